package licensing

import "github.com/xraph/licensing/id"

// ID is the primary identifier type for ledger instances, events and
// withdrawals.
type ID = id.ID

// Prefix identifies the entity type encoded in a TypeID.
type Prefix = id.Prefix
