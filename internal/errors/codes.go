package errors

// Common error codes
const (
	// System errors
	ErrInternal        ErrorCode = "internal_error"
	ErrInvalidArgument ErrorCode = "invalid_argument"
	ErrNotImplemented  ErrorCode = "not_implemented"
	ErrUnavailable     ErrorCode = "service_unavailable"

	// Configuration errors
	ErrInvalidConfig   ErrorCode = "invalid_configuration"
	ErrMissingConfig   ErrorCode = "missing_configuration"
	ErrBindFlags       ErrorCode = "bind_flags_failed"
	ErrReadConfig      ErrorCode = "read_config_failed"
	ErrInvalidInterval ErrorCode = "invalid_interval"

	// Logging errors
	ErrInvalidLogLevel ErrorCode = "invalid_log_level"

	// Initialization errors
	ErrInitFailed     ErrorCode = "initialization_failed"
	ErrShutdownFailed ErrorCode = "shutdown_failed"
	ErrAlreadyRunning ErrorCode = "already_running"

	// Resource errors
	ErrResourceBusy      ErrorCode = "resource_busy"
	ErrResourceNotFound  ErrorCode = "resource_not_found"
	ErrResourceExhausted ErrorCode = "resource_exhausted"

	// Controller errors
	ErrModeConflict        ErrorCode = "mode_conflict"
	ErrSensorUnavailable   ErrorCode = "sensor_unavailable"
	ErrHardwareUnavailable ErrorCode = "hardware_unavailable"
	ErrUnknownAttribute    ErrorCode = "unknown_attribute"

	// Operation errors
	ErrOperationFailed  ErrorCode = "operation_failed"
	ErrTimeout          ErrorCode = "operation_timeout"
	ErrInvalidOperation ErrorCode = "invalid_operation"

	// Metrics errors
	ErrInitMetrics    ErrorCode = "init_metrics_failed"
	ErrCollectMetrics ErrorCode = "collect_metrics_failed"
	ErrCloseMetrics   ErrorCode = "close_metrics_failed"

	// Transport errors
	ErrConnectFailed  ErrorCode = "connect_failed"
	ErrPublishFailed  ErrorCode = "publish_failed"
	ErrUnknownCommand ErrorCode = "unknown_command"
)

// Common error messages
var errorMessages = map[ErrorCode]string{
	ErrInternal:            "Internal error occurred",
	ErrInvalidArgument:     "Invalid argument provided",
	ErrNotImplemented:      "Operation not implemented",
	ErrUnavailable:         "Service unavailable",
	ErrInvalidConfig:       "Invalid configuration",
	ErrMissingConfig:       "Missing configuration",
	ErrBindFlags:           "Failed to bind flags",
	ErrReadConfig:          "Failed to read config file",
	ErrInvalidLogLevel:     "Invalid log level",
	ErrInitFailed:          "Initialization failed",
	ErrShutdownFailed:      "Shutdown failed",
	ErrAlreadyRunning:      "Another instance is already running",
	ErrResourceBusy:        "Resource is busy",
	ErrResourceNotFound:    "Resource not found",
	ErrResourceExhausted:   "Resource exhausted",
	ErrModeConflict:        "Frequency can only be set in manual mode",
	ErrSensorUnavailable:   "Temperature sensor unavailable",
	ErrHardwareUnavailable: "Output hardware unavailable",
	ErrUnknownAttribute:    "Unknown attribute",
	ErrOperationFailed:     "Operation failed",
	ErrTimeout:             "Operation timed out",
	ErrInvalidOperation:    "Invalid operation",
	ErrInvalidInterval:     "Invalid interval value",
	ErrInitMetrics:         "Failed to initialize metrics",
	ErrCollectMetrics:      "Failed to collect metrics data",
	ErrCloseMetrics:        "Failed to close metrics connection",
	ErrConnectFailed:       "Failed to connect to broker",
	ErrPublishFailed:       "Failed to publish message",
	ErrUnknownCommand:      "Unknown command",
}

// GetErrorMessage returns the message for a given error code
func GetErrorMessage(code ErrorCode) string {
	if msg, ok := errorMessages[code]; ok {
		return msg
	}

	return string(code)
}
