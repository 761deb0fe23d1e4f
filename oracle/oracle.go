// Package oracle converts fiat-denominated fees into native payment units
// through an external price service.
package oracle

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrBelowMinimum is returned by an Oracle when the supplied payment is
	// below its own minimum service charge.
	ErrBelowMinimum = errors.New("oracle: payment below minimum charge")

	// ErrUnavailable wraps every failure reported by the price service.
	ErrUnavailable = errors.New("oracle: price service failure")

	// ErrNotConfigured is returned when a non-zero fee is priced without
	// an oracle.
	ErrNotConfigured = errors.New("oracle: no price service configured")
)

// Quote is the price service's answer for one fiat amount.
type Quote struct {
	// Native is the fiat amount converted into native units.
	Native uint64 `json:"native"`
	// Minimum is the smallest payment the service accepts.
	Minimum uint64 `json:"minimum"`
}

// Required returns the payment that satisfies both the converted amount
// and the service minimum.
func (q Quote) Required() uint64 {
	return max(q.Native, q.Minimum)
}

// Oracle is the external price-conversion collaborator.
type Oracle interface {
	// Quote prices fiat minor units in native units without side effects.
	Quote(ctx context.Context, fiat uint64) (Quote, error)

	// Convert settles a fee of fiat minor units with payment native units
	// and returns the native amount accepted. It fails with ErrBelowMinimum
	// when payment is under the service minimum.
	Convert(ctx context.Context, fiat, payment uint64) (uint64, error)
}

// Gateway prices and forwards fees. A zero fiat fee never reaches the
// oracle.
type Gateway struct {
	oracle Oracle
}

// NewGateway wraps o. A nil oracle is allowed as long as every fee is zero.
func NewGateway(o Oracle) *Gateway {
	return &Gateway{oracle: o}
}

// Oracle returns the wrapped collaborator.
func (g *Gateway) Oracle() Oracle {
	return g.oracle
}

// RequiredPayment returns the native payment needed for fiatFee: the larger
// of the converted amount and the oracle's minimum charge.
func (g *Gateway) RequiredPayment(ctx context.Context, fiatFee uint64) (uint64, error) {
	if fiatFee == 0 {
		return 0, nil
	}
	if g.oracle == nil {
		return 0, ErrNotConfigured
	}
	q, err := g.oracle.Quote(ctx, fiatFee)
	if err != nil {
		return 0, fmt.Errorf("%w: quote %d: %w", ErrUnavailable, fiatFee, err)
	}
	return q.Required(), nil
}

// Forward hands exactly required native units to the oracle for fiatFee.
// Nothing is forwarded when required is zero.
func (g *Gateway) Forward(ctx context.Context, fiatFee, required uint64) error {
	if required == 0 {
		return nil
	}
	if g.oracle == nil {
		return ErrNotConfigured
	}
	if _, err := g.oracle.Convert(ctx, fiatFee, required); err != nil {
		return fmt.Errorf("%w: convert %d: %w", ErrUnavailable, fiatFee, err)
	}
	return nil
}
