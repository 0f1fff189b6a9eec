package metrics

// Metric names
const (
	MetricNameHTTPRequestsTotal    = "botpanel_http_requests_total"
	MetricNameHTTPRequestDuration  = "botpanel_http_request_duration_seconds"
	MetricNameHTTPRequestsInFlight = "botpanel_http_requests_in_flight"
	MetricNameLauncherOperations   = "botpanel_launcher_operations_total"
	MetricNameValidations          = "botpanel_account_validations_total"
	MetricNameActivityWriteErrors  = "botpanel_activity_write_errors_total"
)

// Help text
const (
	HelpTextHTTPRequestsTotal    = "Total number of HTTP requests"
	HelpTextHTTPRequestDuration  = "HTTP request latency in seconds"
	HelpTextHTTPRequestsInFlight = "Current number of HTTP requests being served"
	HelpTextLauncherOperations   = "Launcher calls by operation and outcome"
	HelpTextValidations          = "Account validations against Discord by outcome"
	HelpTextActivityWriteErrors  = "Activity log entries that could not be written"
)

// Label names
const (
	LabelMethod    = "method"
	LabelPath      = "path"
	LabelStatus    = "status"
	LabelOperation = "operation"
	LabelOutcome   = "outcome"
)

// Outcome label values
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// Launcher operation label values
const (
	OpStart  = "start"
	OpStop   = "stop"
	OpRemove = "remove"
)

// HTTPLatencyBuckets covers fast JSON reads up to slow launcher calls.
var HTTPLatencyBuckets = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10}
