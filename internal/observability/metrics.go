package observability

// Counters.
const (
	MUsecaseRequests       MetricKey = "usecase_requests_total"
	MHTTPRequests          MetricKey = "http_requests_total"
	MExternalRequests      MetricKey = "external_requests_total"
	MStockAdjustments      MetricKey = "stock_adjustments_total"
	MDeadLetters           MetricKey = "stock_dead_letters_total"
	MLowStockNotifications MetricKey = "low_stock_notifications_total"
)

// Histograms, in seconds.
const (
	MUsecaseDuration         MetricKey = "usecase_duration_seconds"
	MHTTPRequestDuration     MetricKey = "http_request_duration_seconds"
	MExternalRequestDuration MetricKey = "external_request_duration_seconds"
)

// Gauges.
const (
	MLowStockPending  MetricKey = "low_stock_pending_notifications"
	MBrokerQueueDepth MetricKey = "broker_queue_depth"
)
