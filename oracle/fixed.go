package oracle

import (
	"context"
	"fmt"
	"sync"

	"github.com/xraph/licensing/types"
)

// Fixed is an in-process Oracle with a constant exchange rate:
// native = fiat * Numerator / Denominator (truncating), never less than
// Minimum. It records everything it settles.
type Fixed struct {
	Numerator   uint64
	Denominator uint64
	Minimum     uint64

	mu        sync.Mutex
	forwarded uint64
	calls     int
}

// NewFixed returns a Fixed oracle.
func NewFixed(numerator, denominator, minimum uint64) *Fixed {
	return &Fixed{Numerator: numerator, Denominator: denominator, Minimum: minimum}
}

// Quote implements Oracle.
func (f *Fixed) Quote(_ context.Context, fiat uint64) (Quote, error) {
	native, err := types.MulDiv(fiat, f.Numerator, f.Denominator)
	if err != nil {
		return Quote{}, fmt.Errorf("oracle: convert %d: %w", fiat, err)
	}
	return Quote{Native: native, Minimum: f.Minimum}, nil
}

// Convert implements Oracle.
func (f *Fixed) Convert(ctx context.Context, fiat, payment uint64) (uint64, error) {
	q, err := f.Quote(ctx, fiat)
	if err != nil {
		return 0, err
	}
	if payment < q.Required() {
		return 0, fmt.Errorf("%w: %d < %d", ErrBelowMinimum, payment, q.Required())
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	sum, err := types.CheckedAdd(f.forwarded, payment)
	if err != nil {
		return 0, err
	}
	f.forwarded = sum
	f.calls++
	return payment, nil
}

// Forwarded returns the total native units settled so far.
func (f *Fixed) Forwarded() uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.forwarded
}

// Calls returns the number of successful Convert calls.
func (f *Fixed) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}
