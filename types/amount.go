package types

import (
	"errors"
	"math"
	"math/bits"
)

// BasisPointsDenominator is the divisor for rates expressed in basis points.
const BasisPointsDenominator = 10_000

// ErrOverflow is returned when an unsigned amount would wrap.
var ErrOverflow = errors.New("types: amount overflow")

// CheckedAdd returns a+b or ErrOverflow.
func CheckedAdd(a, b uint64) (uint64, error) {
	sum, carry := bits.Add64(a, b, 0)
	if carry != 0 {
		return 0, ErrOverflow
	}
	return sum, nil
}

// CheckedSub returns a-b or ErrOverflow when b > a.
func CheckedSub(a, b uint64) (uint64, error) {
	diff, borrow := bits.Sub64(a, b, 0)
	if borrow != 0 {
		return 0, ErrOverflow
	}
	return diff, nil
}

// MulDiv returns a*b/d truncated toward zero, computed with a 128-bit
// intermediate. A zero divisor yields 0. ErrOverflow is returned only when
// the quotient itself does not fit in 64 bits.
func MulDiv(a, b, d uint64) (uint64, error) {
	if d == 0 {
		return 0, nil
	}
	hi, lo := bits.Mul64(a, b)
	if hi >= d {
		return 0, ErrOverflow
	}
	q, _ := bits.Div64(hi, lo, d)
	return q, nil
}

// BasisPoints returns value*bps/10000, truncating. Rates above 10000 scale
// beyond value; a result that does not fit saturates at math.MaxUint64.
func BasisPoints(value, bps uint64) uint64 {
	q, err := MulDiv(value, bps, BasisPointsDenominator)
	if err != nil {
		return math.MaxUint64
	}
	return q
}
