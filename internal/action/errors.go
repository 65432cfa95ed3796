package action

import (
	"errors"
	"fmt"

	"github.com/dshills/nucleon/status"
)

// Action errors.
var (
	// ErrUnknownAction indicates no action is registered under the name.
	ErrUnknownAction = errors.New("action: unknown action")

	// ErrNoAction indicates no action was requested.
	ErrNoAction = errors.New("action: no action given")

	// ErrInvalidAction indicates an action without a name or function.
	ErrInvalidAction = errors.New("action: invalid action")

	// ErrPanic indicates the action panicked.
	ErrPanic = errors.New("action: panic")

	// ErrInvalidBundle indicates an --encoded value that is not a
	// base64 encoded JSON object.
	ErrInvalidBundle = errors.New("action: invalid encoded bundle")

	// ErrInvalidPair indicates an encode argument without '='.
	ErrInvalidPair = errors.New("action: invalid path=value pair")
)

// Error is an action failure carrying a status name.
type Error struct {
	// Status is the status name reported for the failure.
	Status string
	Err    error
}

// Errorf creates an Error with the given status and formatted message.
func Errorf(statusName, format string, args ...any) *Error {
	return &Error{Status: statusName, Err: fmt.Errorf(format, args...)}
}

// Error implements error.
func (e *Error) Error() string {
	if e.Err == nil {
		return e.StatusCode()
	}
	return e.Err.Error()
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// StatusCode implements status.Coder.
func (e *Error) StatusCode() string {
	if e.Status == "" {
		return status.UnknownStatus
	}
	return e.Status
}
