// internal/core/errors.go
package core

import "fmt"

// Error is a coded error carried through every regime package.
type Error struct {
	Code    string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As support.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches by code so wrapped copies compare equal to their base.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Code == t.Code
	}
	return false
}

// WrapError copies base and attaches cause.
func WrapError(base *Error, cause error) *Error {
	return &Error{
		Code:    base.Code,
		Message: base.Message,
		Cause:   cause,
	}
}

// Errorf wraps base with a formatted cause.
func Errorf(base *Error, format string, args ...any) *Error {
	return WrapError(base, fmt.Errorf(format, args...))
}

var (
	// Data conditions. Detectors degrade instead of returning
	// ErrInsufficientData; it is exported for callers that want to
	// surface "no opinion" explicitly.
	ErrInsufficientData = &Error{Code: "INSUFFICIENT_DATA", Message: "insufficient data for regime detection"}
	ErrInvalidInput     = &Error{Code: "INVALID_INPUT", Message: "invalid input"}
	ErrUnknownRegime    = &Error{Code: "UNKNOWN_REGIME", Message: "regime not known to model"}

	// Model errors
	ErrNotFitted = &Error{Code: "NOT_FITTED", Message: "model is not fitted"}
	ErrNoMethods = &Error{Code: "NO_METHODS", Message: "no method results to combine"}

	// Config errors
	ErrConfigInvalid = &Error{Code: "CONFIG_INVALID", Message: "configuration invalid"}
	ErrConfigMissing = &Error{Code: "CONFIG_MISSING", Message: "required configuration missing"}

	// Surface errors
	ErrUnauthorized  = &Error{Code: "UNAUTHORIZED", Message: "missing or invalid api key"}
	ErrLLMFailed     = &Error{Code: "LLM_FAILED", Message: "LLM request failed"}
	ErrArchiveFailed = &Error{Code: "ARCHIVE_FAILED", Message: "report archive failed"}
	ErrNotFound      = &Error{Code: "NOT_FOUND", Message: "requested object not found"}
	ErrNotifyFailed  = &Error{Code: "NOTIFY_FAILED", Message: "notification delivery failed"}
)
