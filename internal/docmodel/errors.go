package docmodel

import "fmt"

// ErrorCode is a stable, machine-readable failure kind.
type ErrorCode string

const (
	CodePathNotFound      ErrorCode = "PATH_NOT_FOUND"
	CodeLockConflict      ErrorCode = "LOCK_CONFLICT"
	CodeUnresolvedInclude ErrorCode = "UNRESOLVED_INCLUDE"
	CodeCircularInclude   ErrorCode = "CIRCULAR_INCLUDE"
	CodeWriteFailure      ErrorCode = "WRITE_FAILURE"
	CodeMalformedPath     ErrorCode = "MALFORMED_PATH"
)

// Error carries a stable code plus structured detail so a caller can decide
// whether to retry (LOCK_CONFLICT) or give up (MALFORMED_PATH, PATH_NOT_FOUND).
type Error struct {
	Code    ErrorCode      `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
	err     error
}

func (e *Error) Error() string {
	if e.err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.err }

// NewError builds an Error with optional structured details.
func NewError(code ErrorCode, message string, details map[string]any) *Error {
	return &Error{Code: code, Message: message, Details: details}
}

// WrapError builds an Error around an underlying cause.
func WrapError(code ErrorCode, message string, err error) *Error {
	return &Error{Code: code, Message: message, err: err}
}
