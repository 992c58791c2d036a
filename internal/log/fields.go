package log

// Common field names for structured logging
const (
	FieldComponent   = "component"
	FieldError       = "error"
	FieldOperation   = "operation"
	FieldStatusCode  = "status_code"
	FieldURL         = "url"
	FieldMethod      = "method"
	FieldDuration    = "duration_ms"
	FieldProjectID   = "project_id"
	FieldTransaction = "transaction_id"
	FieldCacheKey    = "cache_key"
	FieldFallback    = "fallback"
	FieldGeneration  = "generation"
	FieldLocalID     = "local_id"
	FieldYear        = "year"
	FieldMonth       = "month"
	FieldDropped     = "dropped"
)

// Components defines standard component names
const (
	ComponentApp       = "app"
	ComponentAPI       = "api"
	ComponentStorage   = "storage"
	ComponentAMQP      = "amqp"
	ComponentTracker   = "tracker"
	ComponentReconcile = "reconcile"
	ComponentBackup    = "backup"
	ComponentBackend   = "backend"
)

// Operations defines standard operation names
const (
	OpFetch     = "fetch"
	OpCreate    = "create"
	OpUpdate    = "update"
	OpDelete    = "delete"
	OpLogin     = "login"
	OpRefresh   = "refresh"
	OpReconcile = "reconcile"
	OpBackup    = "backup"
	OpShutdown  = "shutdown"
	OpStartup   = "startup"
)
