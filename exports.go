package licensing

import (
	"github.com/xraph/licensing/fee"
	"github.com/xraph/licensing/types"
)

// Re-export common types for convenience so users don't have to import the
// types package.

// Address is re-exported from the types package.
type Address = types.Address

// Entity is re-exported from the types package.
type Entity = types.Entity

// FeeTier is re-exported from the fee package.
type FeeTier = fee.Tier

// Re-export constructors.
var (
	ParseAddress     = types.ParseAddress
	MustParseAddress = types.MustParseAddress
	NullAddress      = types.NullAddress
	NewFeeTable      = fee.NewTable
	NewEntity        = types.NewEntity
)
