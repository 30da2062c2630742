// Package errors provides structured error handling with typed error codes.
//
// Error codes are organized into categories:
//   - General errors (1-99): Unknown and general errors
//   - Validation errors (100-199): Invalid parameters and rejected configuration
//   - Data/Resource errors (200-299): History and state file failures
//   - Strategy errors (400-499): Unknown strategies and version mismatches
//   - Trading errors (500-599): Order sizing, execution and engine lifecycle errors
//   - Market data errors (700-799): Price fetch and exchange transport failures
//   - Notification errors (800-899): Callback and notifier failures
//
// Usage:
//
//	// Reject an order locally
//	err := errors.Newf(errors.ErrCodeOrderTooSmall, "notional %s below minimum %s", notional, minNotional)
//
//	// Wrap a transport failure
//	err := errors.Wrap(errors.ErrCodeMarketDataUnavailable, "failed to fetch prices", originalErr)
//
//	// Check error code
//	if errors.HasCode(err, errors.ErrCodeOrderTooSmall) { ... }
package errors

import (
	"errors"
	"fmt"
)

// Error represents a structured error with an error code and message.
type Error struct {
	Code    ErrorCode
	Message string
	Cause   error
}

// New creates a new Error with the given code and message.
func New(code ErrorCode, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Cause:   nil,
	}
}

// Newf creates a new Error with the given code and formatted message.
func Newf(code ErrorCode, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   nil,
	}
}

// Wrap wraps an existing error with a new Error containing the given code and message.
func Wrap(code ErrorCode, message string, cause error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// Wrapf wraps an existing error with a new Error containing the given code and formatted message.
func Wrapf(code ErrorCode, cause error, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   cause,
	}
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%d] %s: %v", e.Code, e.Message, e.Cause)
	}

	return fmt.Sprintf("[%d] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target any) bool {
	return errors.As(err, target)
}

// GetCode extracts the ErrorCode from an error if it's an *Error type.
// The outermost coded error wins. Returns ErrCodeUnknown for plain errors.
func GetCode(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}

	return ErrCodeUnknown
}

// HasCode checks if an error has a specific ErrorCode.
func HasCode(err error, code ErrorCode) bool {
	return GetCode(err) == code
}

// HasCodeInChain reports whether any coded error in err's chain carries code.
func HasCodeInChain(err error, code ErrorCode) bool {
	for err != nil {
		var e *Error
		if !errors.As(err, &e) {
			return false
		}

		if e.Code == code {
			return true
		}

		err = e.Cause
	}

	return false
}

// IsTransient reports whether err is a failure expected to clear on the next tick.
func IsTransient(err error) bool {
	switch GetCode(err) {
	case ErrCodeMarketDataUnavailable, ErrCodeExchangeUnavailable:
		return true
	default:
		return false
	}
}

// IsOrderRejection reports whether err means an order was refused, locally or by the exchange.
// The position is unchanged in every case.
func IsOrderRejection(err error) bool {
	switch GetCode(err) {
	case ErrCodeOrderTooSmall, ErrCodeOrderRejectedByExchange, ErrCodeInsufficientBalance:
		return true
	default:
		return false
	}
}
