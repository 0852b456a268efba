package log

// Common field names for structured logging
const (
	FieldComponent   = "component"
	FieldError       = "error"
	FieldOperation   = "operation"
	FieldAccountID   = "account_id"
	FieldCategoryID  = "category_id"
	FieldOutcomeID   = "outcome_id"
	FieldAmountCents = "amount_cents"
	FieldBalance     = "balance_cents"
	FieldEventKind   = "kind"
	FieldCount       = "count"
	FieldDuration    = "duration_ms"
)

// Components defines standard component names
const (
	ComponentApp     = "app"
	ComponentLedger  = "ledger"
	ComponentStats   = "stats"
	ComponentStorage = "storage"
	ComponentAMQP    = "amqp"
	ComponentWorker  = "worker"
	ComponentAudit   = "audit"
	ComponentCache   = "cache"
)
