package constants

const (
	// Environment constants
	EnvDevelopment = "development"
	EnvTest        = "test"
	EnvProduction  = "production"

	// Default pagination
	DefaultPage     = 1
	DefaultPageSize = 20
	MaxPageSize     = 100

	// HTTP Headers
	HeaderContentType = "Content-Type"
	HeaderXRequestID  = "X-Request-ID"
	HeaderXAdminID    = "X-Admin-ID"

	// Content Types
	ContentTypeJSON = "application/json"

	// Context keys
	ContextKeyRequestID = "request_id"
	ContextKeyAdminID   = "admin_id"

	// Consumer lifecycle status
	ConsumerStatusActive   = "active"
	ConsumerStatusInactive = "inactive"

	// Database table names
	TablePlans            = "plans"
	TablePlanAssignments  = "plan_assignments"
	TableCapacityTokens   = "capacity_tokens"
	TableConsumers        = "consumers"
	TableAllocationEvents = "allocation_events"

	// Default plan currency
	DefaultCurrency = "BRL"

	// Token creation bounds
	MaxTokenBatchCount = 100

	// Error messages
	ErrMsgInternalServerError = "Internal server error occurred"
	ErrMsgResourceNotFound    = "Resource not found"
	ErrMsgValidationFailed    = "Validation failed"
	ErrMsgConflict            = "Resource already exists"
)
