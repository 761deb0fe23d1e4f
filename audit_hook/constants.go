package audithook

// Action constants for audit events.
const (
	// Ledger actions
	ActionLedgerCreated       = "ledger.created"
	ActionLedgerSigned        = "ledger.signed"
	ActionLedgerDisabled      = "ledger.disabled"
	ActionManagementTakenOver = "ledger.management_taken_over"

	// Fee configuration actions
	ActionIssuanceFeeRateChanged = "fee.issuance_rate_changed"
	ActionTransferTiersChanged   = "fee.transfer_tiers_changed"
	ActionIssuerFeeShareChanged  = "fee.issuer_share_changed"

	// Issuance actions
	ActionIssued  = "issuance.issued"
	ActionRevoked = "issuance.revoked"

	// Unit actions
	ActionTransferred = "units.transferred"
	ActionRecalled    = "units.recalled"

	// Treasury actions
	ActionWithdrawn = "treasury.withdrawn"

	// Failures
	ActionOperationFailed = "operation.failed"
)

// Resource constants for audit events.
const (
	ResourceLedger   = "ledger"
	ResourceIssuance = "issuance"
	ResourceTreasury = "treasury"
)

// Category constants for audit events.
const (
	CategoryGovernance = "governance"
	CategoryFees       = "fees"
	CategoryIssuance   = "issuance"
	CategoryCustody    = "custody"
	CategoryPayment    = "payment"
	CategoryAccess     = "access"
)

// Severity levels for audit events.
const (
	SeverityInfo     = "info"
	SeverityWarning  = "warning"
	SeverityError    = "error"
	SeverityCritical = "critical"
)

// Outcome values for audit events.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)
