// Package fee computes value-proportional transfer fees from an ascending
// table of tiers.
//
// A tier applies to every value at or above its minimum; the highest
// qualifying tier wins. Rates are basis points of the transferred value.
package fee

import (
	"errors"
	"fmt"

	"github.com/xraph/licensing/types"
)

// Validation errors returned by SetTiers.
var (
	ErrLengthMismatch   = errors.New("fee: minimums and rates differ in length")
	ErrNotAscending     = errors.New("fee: tier minimums are not ascending")
	ErrDuplicateMinimum = errors.New("fee: duplicate tier minimum")
	ErrTierOutOfRange   = errors.New("fee: tier index out of range")
)

// Tier is one row of the fee table.
type Tier struct {
	Minimum uint64 `json:"minimum" bson:"minimum"`
	Rate    uint16 `json:"rate"    bson:"rate"`
}

// Table is an ordered list of tiers with strictly ascending minimums.
// The zero value is an empty table that charges nothing.
type Table struct {
	Tiers []Tier `json:"tiers" bson:"tiers"`
}

// NewTable builds a validated table.
func NewTable(minimums []uint64, rates []uint16) (Table, error) {
	var t Table
	if err := t.SetTiers(minimums, rates); err != nil {
		return Table{}, err
	}
	return t, nil
}

// SetTiers replaces the whole table. On error the table is unchanged.
func (t *Table) SetTiers(minimums []uint64, rates []uint16) error {
	if len(minimums) != len(rates) {
		return fmt.Errorf("%w: %d minimums, %d rates", ErrLengthMismatch, len(minimums), len(rates))
	}
	tiers := make([]Tier, len(minimums))
	for i, m := range minimums {
		if i > 0 {
			prev := minimums[i-1]
			if m == prev {
				return fmt.Errorf("%w: %d at position %d", ErrDuplicateMinimum, m, i)
			}
			if m < prev {
				return fmt.Errorf("%w: %d follows %d at position %d", ErrNotAscending, m, prev, i)
			}
		}
		tiers[i] = Tier{Minimum: m, Rate: rates[i]}
	}
	t.Tiers = tiers
	return nil
}

// FeeFor returns the fee owed on value: value*rate/10000 of the last tier
// whose minimum is at or below value. Empty tables and values below the
// first minimum owe nothing.
func (t Table) FeeFor(value uint64) uint64 {
	for i := len(t.Tiers) - 1; i >= 0; i-- {
		if t.Tiers[i].Minimum <= value {
			return types.BasisPoints(value, uint64(t.Tiers[i].Rate))
		}
	}
	return 0
}

// Count returns the number of tiers.
func (t Table) Count() int {
	return len(t.Tiers)
}

// Tier returns the tier at position i.
func (t Table) Tier(i int) (Tier, error) {
	if i < 0 || i >= len(t.Tiers) {
		return Tier{}, fmt.Errorf("%w: %d of %d", ErrTierOutOfRange, i, len(t.Tiers))
	}
	return t.Tiers[i], nil
}

// Minimums returns the tier minimums in order.
func (t Table) Minimums() []uint64 {
	out := make([]uint64, len(t.Tiers))
	for i, tier := range t.Tiers {
		out[i] = tier.Minimum
	}
	return out
}

// Rates returns the tier rates in order.
func (t Table) Rates() []uint16 {
	out := make([]uint16, len(t.Tiers))
	for i, tier := range t.Tiers {
		out[i] = tier.Rate
	}
	return out
}

// Clone returns a deep copy.
func (t Table) Clone() Table {
	if t.Tiers == nil {
		return Table{}
	}
	return Table{Tiers: append([]Tier(nil), t.Tiers...)}
}
