package log

// Field names shared across structured log calls.
const (
	FieldComponent   = "component"
	FieldRequestID   = "request_id"
	FieldClientIP    = "client_ip"
	FieldMethod      = "method"
	FieldPath        = "path"
	FieldQuery       = "query"
	FieldStatusCode  = "status_code"
	FieldDuration    = "duration_ms"
	FieldError       = "error"
	FieldUserID      = "user_id"
	FieldExpenseID   = "expense_id"
	FieldAmountCents = "amount_cents"
	FieldSheetRef    = "sheet_ref"
)

// Component names, one per subsystem.
const (
	ComponentApp    = "app"
	ComponentWorker = "worker"
)
