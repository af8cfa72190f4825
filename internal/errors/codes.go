package errors

const (
	// Report errors
	ErrInvalidWindow     ErrorCode = "invalid_window"
	ErrSourceUnavailable ErrorCode = "source_unavailable"
	ErrEmptyReport       ErrorCode = "empty_report"
	ErrAggregation       ErrorCode = "aggregation_error"
	ErrMissingColumns    ErrorCode = "missing_columns"
	ErrSinkFailed        ErrorCode = "sink_failed"

	// Configuration errors
	ErrInvalidConfig ErrorCode = "invalid_configuration"
	ErrReadConfig    ErrorCode = "read_config_failed"

	// Storage errors
	ErrStorageInit   ErrorCode = "storage_init_failed"
	ErrStorageAccess ErrorCode = "storage_access_failed"

	ErrInternal ErrorCode = "internal_error"
)

var errorMessages = map[ErrorCode]string{
	ErrInvalidWindow:     "Invalid report window",
	ErrSourceUnavailable: "Record source unavailable",
	ErrEmptyReport:       "No data found",
	ErrAggregation:       "Malformed record",
	ErrMissingColumns:    "Missing required columns",
	ErrSinkFailed:        "Failed to write report",
	ErrInvalidConfig:     "Invalid configuration",
	ErrReadConfig:        "Failed to read configuration",
	ErrStorageInit:       "Failed to initialize storage",
	ErrStorageAccess:     "Failed to access storage",
	ErrInternal:          "Internal error occurred",
}

// messageFor is the default text for code
func messageFor(code ErrorCode) string {
	if msg, ok := errorMessages[code]; ok {
		return msg
	}

	return string(code)
}
