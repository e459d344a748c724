package log

// Common field names for structured logging
const (
	FieldComponent  = "component"
	FieldRequestID  = "request_id"
	FieldClientIP   = "client_ip"
	FieldMethod     = "method"
	FieldPath       = "path"
	FieldQuery      = "query"
	FieldStatusCode = "status_code"
	FieldDuration   = "duration_ms"
	FieldUserAgent  = "user_agent"
	FieldError      = "error"
	FieldOperation  = "operation"
	FieldSource     = "source"
	FieldSection    = "section"
	FieldChart      = "chart"
	FieldTable      = "table"
	FieldDialect    = "dialect"
	FieldRows       = "rows"
	FieldDate       = "date"
	FieldCacheKey   = "cache_key"
)

// Components defines standard component names
const (
	ComponentApp       = "app"
	ComponentHTTP      = "http"
	ComponentSource    = "source"
	ComponentCache     = "cache"
	ComponentDashboard = "dashboard"
	ComponentSeed      = "seed"
)

// Operations defines standard operation names
const (
	OpDiscover = "discover"
	OpRender   = "render"
	OpExport   = "export"
	OpRefresh  = "refresh"
	OpPing     = "ping"
)
