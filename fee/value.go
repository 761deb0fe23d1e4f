package fee

import "github.com/xraph/licensing/types"

// ProportionalValue is the share of an issuance's fiat value carried by
// amount units: originalValue*amount/originalSupply, truncating. A zero
// supply carries no value.
func ProportionalValue(originalValue, originalSupply, amount uint64) uint64 {
	if originalSupply == 0 {
		return 0
	}
	v, err := types.MulDiv(originalValue, amount, originalSupply)
	if err != nil {
		// Only reachable when amount exceeds the supply.
		return ^uint64(0)
	}
	return v
}

// Split divides amount between issuer and root authority. The issuer
// receives issuerShare basis points (capped at 10000), the root authority
// the remainder.
func Split(amount uint64, issuerShare uint16) (issuer, root uint64) {
	share := uint64(issuerShare)
	if share > types.BasisPointsDenominator {
		share = types.BasisPointsDenominator
	}
	issuer = types.BasisPoints(amount, share)
	return issuer, amount - issuer
}
