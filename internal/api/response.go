package api

import (
	"encoding/json"
	"net/http"

	"github.com/rxtech-lab/argo-signal/pkg/errors"
)

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Code    errors.ErrorCode `json:"code"`
	Error   string           `json:"error"`
	Message string           `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if body == nil {
		return
	}

	_ = json.NewEncoder(w).Encode(body)
}

// statusFor maps an error code to the HTTP status the dashboard expects.
func statusFor(code errors.ErrorCode) int {
	switch code {
	case errors.ErrCodeInvalidParameter, errors.ErrCodeConfigInvalid, errors.ErrCodeMissingParameter,
		errors.ErrCodeInvalidPeriod, errors.ErrCodeInvalidThreshold, errors.ErrCodeInvalidSymbol,
		errors.ErrCodeUnsupportedAction:
		return http.StatusBadRequest
	case errors.ErrCodeUnsupportedStrategy, errors.ErrCodeDataNotFound:
		return http.StatusNotFound
	case errors.ErrCodeConcurrentMutation, errors.ErrCodeEngineAlreadyRunning, errors.ErrCodeEngineNotRunning,
		errors.ErrCodeInvalidTransition, errors.ErrCodeEngineCooldown:
		return http.StatusConflict
	case errors.ErrCodeTradingDisabled, errors.ErrCodeOrderTooSmall, errors.ErrCodeInsufficientBalance,
		errors.ErrCodeInsufficientHistory:
		return http.StatusUnprocessableEntity
	case errors.ErrCodeOrderRejectedByExchange, errors.ErrCodeMarketDataUnavailable,
		errors.ErrCodeExchangeUnavailable, errors.ErrCodePartialRotation:
		return http.StatusBadGateway
	case errors.ErrCodeEngineMissingCollaborate:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, err error) {
	code := errors.GetCode(err)
	writeJSON(w, statusFor(code), ErrorResponse{Code: code, Error: code.String(), Message: err.Error()})
}

func methodNotAllowed(w http.ResponseWriter, r *http.Request) {
	code := errors.ErrCodeUnsupportedAction
	writeJSON(w, http.StatusMethodNotAllowed, ErrorResponse{
		Code:    code,
		Error:   code.String(),
		Message: r.Method + " is not allowed on " + r.URL.Path,
	})
}
