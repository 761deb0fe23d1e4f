package id_test

import (
	"strings"
	"testing"

	"github.com/xraph/licensing/id"
)

func TestConstructors(t *testing.T) {
	tests := []struct {
		name   string
		newFn  func() id.ID
		prefix string
	}{
		{"LedgerID", id.NewLedgerID, "lgr_"},
		{"EventID", id.NewEventID, "evt_"},
		{"WithdrawalID", id.NewWithdrawalID, "wdr_"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.newFn().String()
			if !strings.HasPrefix(got, tt.prefix) {
				t.Errorf("expected prefix %q, got %q", tt.prefix, got)
			}
		})
	}
}

func TestParseRoundTrip(t *testing.T) {
	tests := []struct {
		name    string
		newFn   func() id.ID
		parseFn func(string) (id.ID, error)
	}{
		{"LedgerID", id.NewLedgerID, id.ParseLedgerID},
		{"EventID", id.NewEventID, id.ParseEventID},
		{"WithdrawalID", id.NewWithdrawalID, id.ParseWithdrawalID},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			original := tt.newFn()
			parsed, err := tt.parseFn(original.String())
			if err != nil {
				t.Fatalf("parse failed: %v", err)
			}
			if parsed != original {
				t.Errorf("round-trip mismatch: %q != %q", parsed, original)
			}
		})
	}
}

func TestCrossTypeRejection(t *testing.T) {
	if _, err := id.ParseLedgerID(id.NewEventID().String()); err == nil {
		t.Error("ParseLedgerID accepted an event ID")
	}
	if _, err := id.ParseEventID(id.NewWithdrawalID().String()); err == nil {
		t.Error("ParseEventID accepted a withdrawal ID")
	}
	if _, err := id.ParseWithdrawalID(id.NewLedgerID().String()); err == nil {
		t.Error("ParseWithdrawalID accepted a ledger ID")
	}
}

func TestParseEmpty(t *testing.T) {
	if _, err := id.Parse(""); err == nil {
		t.Error("expected error for empty string")
	}
}

func TestNilID(t *testing.T) {
	var i id.ID
	if !i.IsNil() {
		t.Error("zero-value ID should be nil")
	}
	if i.String() != "" || i.Prefix() != "" {
		t.Errorf("expected empty rendering, got %q / %q", i.String(), i.Prefix())
	}
}

func TestTextAndSQLForms(t *testing.T) {
	original := id.NewLedgerID()

	data, err := original.MarshalText()
	if err != nil {
		t.Fatalf("MarshalText failed: %v", err)
	}
	var fromText id.ID
	if err := fromText.UnmarshalText(data); err != nil {
		t.Fatalf("UnmarshalText failed: %v", err)
	}
	if fromText != original {
		t.Errorf("text mismatch: %q != %q", fromText, original)
	}

	val, err := original.Value()
	if err != nil {
		t.Fatalf("Value failed: %v", err)
	}
	var fromSQL id.ID
	if err := fromSQL.Scan(val); err != nil {
		t.Fatalf("Scan failed: %v", err)
	}
	if fromSQL != original {
		t.Errorf("scan mismatch: %q != %q", fromSQL, original)
	}

	var nilID id.ID
	val, err = nilID.Value()
	if err != nil || val != nil {
		t.Errorf("expected NULL for nil ID, got %v (%v)", val, err)
	}
	if err := fromSQL.Scan(nil); err != nil || !fromSQL.IsNil() {
		t.Errorf("expected nil after scanning NULL, err=%v", err)
	}
	if err := fromSQL.Scan(42); err == nil {
		t.Error("expected error scanning an int")
	}
}

func TestUniqueness(t *testing.T) {
	if id.NewEventID() == id.NewEventID() {
		t.Error("two consecutive NewEventID calls returned the same ID")
	}
}
