package types

import (
	"errors"
	"math"
	"testing"
)

func TestCheckedAdd(t *testing.T) {
	tests := []struct {
		name    string
		a, b    uint64
		want    uint64
		wantErr bool
	}{
		{"small", 2, 3, 5, false},
		{"zero", 0, 0, 0, false},
		{"max", math.MaxUint64, 0, math.MaxUint64, false},
		{"overflow", math.MaxUint64, 1, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := CheckedAdd(tt.a, tt.b)
			if tt.wantErr {
				if !errors.Is(err, ErrOverflow) {
					t.Fatalf("expected ErrOverflow, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %d, want %d", got, tt.want)
			}
		})
	}
}

func TestCheckedSub(t *testing.T) {
	if got, err := CheckedSub(10, 4); err != nil || got != 6 {
		t.Errorf("CheckedSub(10, 4) = %d, %v", got, err)
	}
	if _, err := CheckedSub(4, 10); !errors.Is(err, ErrOverflow) {
		t.Errorf("expected ErrOverflow, got %v", err)
	}
}

func TestMulDiv(t *testing.T) {
	tests := []struct {
		name    string
		a, b, d uint64
		want    uint64
		wantErr bool
	}{
		{"simple", 1000, 50, 100, 500, false},
		{"truncates", 7, 1, 2, 3, false},
		{"zero divisor", 7, 1, 0, 0, false},
		{"wide intermediate", math.MaxUint64, 10, 20, math.MaxUint64 / 2, false},
		{"quotient overflow", math.MaxUint64, 3, 2, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := MulDiv(tt.a, tt.b, tt.d)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("got %d, want %d", got, tt.want)
			}
		})
	}
}

func TestBasisPoints(t *testing.T) {
	if got := BasisPoints(100_000, 250); got != 2500 {
		t.Errorf("2.5%% of 100000 = %d, want 2500", got)
	}
	if got := BasisPoints(199, 100); got != 1 {
		t.Errorf("1%% of 199 = %d, want 1", got)
	}
	if got := BasisPoints(math.MaxUint64, math.MaxUint16); got != math.MaxUint64 {
		t.Errorf("expected saturation, got %d", got)
	}
}
