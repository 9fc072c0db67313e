package errors

// Common error codes
const (
	// System errors
	ErrInternal        ErrorCode = "internal_error"
	ErrInvalidArgument ErrorCode = "invalid_argument"

	// Configuration errors
	ErrInvalidConfig   ErrorCode = "invalid_configuration"
	ErrBindFlags       ErrorCode = "bind_flags_failed"
	ErrReadConfig      ErrorCode = "read_config_failed"
	ErrInvalidInterval ErrorCode = "invalid_interval"
	ErrInvalidHours    ErrorCode = "invalid_daytime_hours"
	ErrInvalidRender   ErrorCode = "invalid_render_settings"

	// Link errors
	ErrPortNotFound ErrorCode = "port_not_found"
	ErrOpenPort     ErrorCode = "open_port_failed"
	ErrHandshake    ErrorCode = "handshake_failed"
	ErrIncompatible ErrorCode = "incompatible_firmware"
	ErrSend         ErrorCode = "send_failed"

	// Sampling errors
	ErrSample ErrorCode = "sample_failed"

	// Application errors
	ErrInitApp   ErrorCode = "init_app_failed"
	ErrMainLoop  ErrorCode = "main_loop_failed"
	ErrDisplay   ErrorCode = "display_init_failed"
	ErrShutdown  ErrorCode = "shutdown_failed"
	ErrMetricsUp ErrorCode = "metrics_server_failed"
)

// Common error messages
var errorMessages = map[ErrorCode]string{
	ErrInternal:        "Internal error occurred",
	ErrInvalidArgument: "Invalid argument provided",
	ErrInvalidConfig:   "Invalid configuration",
	ErrBindFlags:       "Failed to bind flags",
	ErrReadConfig:      "Failed to read configuration",
	ErrInvalidInterval: "Invalid interval value",
	ErrInvalidHours:    "Invalid daytime hours",
	ErrInvalidRender:   "Invalid render settings",
	ErrPortNotFound:    "No gauge found on any serial port",
	ErrOpenPort:        "Failed to open serial port",
	ErrHandshake:       "Handshake with gauge failed",
	ErrIncompatible:    "Gauge firmware speaks a different protocol version",
	ErrSend:            "Failed to send frame",
	ErrSample:          "Failed to sample host load",
	ErrInitApp:         "Failed to initialize application",
	ErrMainLoop:        "Error in main loop",
	ErrDisplay:         "Display initialization failed",
	ErrShutdown:        "Shutdown failed",
	ErrMetricsUp:       "Metrics server failed",
}

// GetErrorMessage returns the message for a given error code
func GetErrorMessage(code ErrorCode) string {
	if msg, ok := errorMessages[code]; ok {
		return msg
	}

	return string(code)
}
