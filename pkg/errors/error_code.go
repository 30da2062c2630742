package errors

// ErrorCode represents a unique error code for identifying different error types.
type ErrorCode int

const (
	// General errors (1-99)
	ErrCodeUnknown ErrorCode = 1

	// Validation errors (100-199)
	ErrCodeInvalidParameter  ErrorCode = 100
	ErrCodeConfigInvalid     ErrorCode = 101
	ErrCodeInvalidPeriod     ErrorCode = 102
	ErrCodeInvalidThreshold  ErrorCode = 103
	ErrCodeInvalidSymbol     ErrorCode = 104
	ErrCodeMissingParameter  ErrorCode = 105
	ErrCodeInvalidVersion    ErrorCode = 106
	ErrCodeUnsupportedAction ErrorCode = 107

	// Data/Resource errors (200-299)
	ErrCodeDataNotFound        ErrorCode = 200
	ErrCodeQueryFailed         ErrorCode = 201
	ErrCodeHistoryWriteFailed  ErrorCode = 202
	ErrCodeStateFileCorrupted  ErrorCode = 203
	ErrCodeInsufficientHistory ErrorCode = 204

	// Strategy errors (400-499)
	ErrCodeUnsupportedStrategy ErrorCode = 400
	ErrCodeVersionMismatch     ErrorCode = 401

	// Trading errors (500-599)
	ErrCodeOrderTooSmall            ErrorCode = 500
	ErrCodeOrderRejectedByExchange  ErrorCode = 501
	ErrCodeInsufficientBalance      ErrorCode = 502
	ErrCodeConcurrentMutation       ErrorCode = 503
	ErrCodeInvalidTransition        ErrorCode = 504
	ErrCodeTradingDisabled          ErrorCode = 505
	ErrCodePartialRotation          ErrorCode = 506
	ErrCodeEngineNotRunning         ErrorCode = 510
	ErrCodeEngineAlreadyRunning     ErrorCode = 511
	ErrCodeEngineStopTimeout        ErrorCode = 512
	ErrCodeEngineCooldown           ErrorCode = 513
	ErrCodeEngineMissingCollaborate ErrorCode = 514

	// Market data errors (700-799)
	ErrCodeMarketDataUnavailable ErrorCode = 700
	ErrCodeMarketDataParseFailed ErrorCode = 701
	ErrCodeExchangeUnavailable   ErrorCode = 702

	// Notification errors (800-899)
	ErrCodeCallbackFailed     ErrorCode = 800
	ErrCodeNotificationFailed ErrorCode = 801
)

var codeNames = map[ErrorCode]string{
	ErrCodeUnknown:                  "unknown",
	ErrCodeInvalidParameter:         "invalid_parameter",
	ErrCodeConfigInvalid:            "config_invalid",
	ErrCodeInvalidPeriod:            "invalid_period",
	ErrCodeInvalidThreshold:         "invalid_threshold",
	ErrCodeInvalidSymbol:            "invalid_symbol",
	ErrCodeMissingParameter:         "missing_parameter",
	ErrCodeInvalidVersion:           "invalid_version",
	ErrCodeUnsupportedAction:        "unsupported_action",
	ErrCodeDataNotFound:             "data_not_found",
	ErrCodeQueryFailed:              "query_failed",
	ErrCodeHistoryWriteFailed:       "history_write_failed",
	ErrCodeStateFileCorrupted:       "state_file_corrupted",
	ErrCodeInsufficientHistory:      "insufficient_history",
	ErrCodeUnsupportedStrategy:      "unsupported_strategy",
	ErrCodeVersionMismatch:          "version_mismatch",
	ErrCodeOrderTooSmall:            "order_too_small",
	ErrCodeOrderRejectedByExchange:  "order_rejected_by_exchange",
	ErrCodeInsufficientBalance:      "insufficient_balance",
	ErrCodeConcurrentMutation:       "concurrent_mutation",
	ErrCodeInvalidTransition:        "invalid_transition",
	ErrCodeTradingDisabled:          "trading_disabled",
	ErrCodePartialRotation:          "partial_rotation",
	ErrCodeEngineNotRunning:         "engine_not_running",
	ErrCodeEngineAlreadyRunning:     "engine_already_running",
	ErrCodeEngineStopTimeout:        "engine_stop_timeout",
	ErrCodeEngineCooldown:           "engine_cooldown",
	ErrCodeEngineMissingCollaborate: "engine_missing_collaborate",
	ErrCodeMarketDataUnavailable:    "market_data_unavailable",
	ErrCodeMarketDataParseFailed:    "market_data_parse_failed",
	ErrCodeExchangeUnavailable:      "exchange_unavailable",
	ErrCodeCallbackFailed:           "callback_failed",
	ErrCodeNotificationFailed:       "notification_failed",
}

// String returns the snake_case name of the code, as reported by the HTTP API.
func (c ErrorCode) String() string {
	if name, ok := codeNames[c]; ok {
		return name
	}

	return "unknown"
}
