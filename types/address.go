package types

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// Address identifies a holder, issuer, root authority or manager.
// It is a 20-byte account address rendered as 0x-prefixed hex.
type Address = common.Address

// NullAddress is the sentinel owner used as the source of minted units
// and as the "unset" value for the manager role.
var NullAddress = Address{}

// ParseAddress parses a 0x-prefixed or bare 40-digit hex address.
func ParseAddress(s string) (Address, error) {
	s = strings.TrimSpace(s)
	if !common.IsHexAddress(s) {
		return NullAddress, fmt.Errorf("types: invalid address %q", s)
	}
	return common.HexToAddress(s), nil
}

// MustParseAddress is like ParseAddress but panics on error.
func MustParseAddress(s string) Address {
	a, err := ParseAddress(s)
	if err != nil {
		panic(err)
	}
	return a
}

// IsNull reports whether a is the null sentinel.
func IsNull(a Address) bool {
	return a == NullAddress
}
