package engine

import (
	"errors"
	"fmt"

	"github.com/roach88/markerset/internal/ir"
)

// RuntimeError reports misuse of a Reconstructor. None of the four event
// shapes (instance, matched pair, orphan end, dangling begin) is an error;
// only calling the engine outside its contract is.
type RuntimeError struct {
	// Code identifies the error category.
	Code RuntimeErrorCode

	// Message is a human-readable description.
	Message string

	// Event is the rejected event, if any.
	Event *ir.Event

	// Seq is the logical clock value when the error occurred.
	Seq int64
}

// RuntimeErrorCode categorizes runtime errors.
type RuntimeErrorCode string

const (
	// ErrCodeFinalized indicates a mutation after Finalize.
	ErrCodeFinalized RuntimeErrorCode = "FINALIZED"

	// ErrCodeUnknownEvent indicates an event kind other than instance/begin/end.
	ErrCodeUnknownEvent RuntimeErrorCode = "UNKNOWN_EVENT"
)

// Error implements the error interface.
func (e *RuntimeError) Error() string {
	if e.Event != nil {
		return fmt.Sprintf("%s: %s (event=%s, seq=%d)", e.Code, e.Message, e.Event, e.Seq)
	}
	return fmt.Sprintf("%s: %s (seq=%d)", e.Code, e.Message, e.Seq)
}

// IsFinalizedError returns true if err is, or wraps, a FINALIZED error.
func IsFinalizedError(err error) bool {
	var re *RuntimeError
	if errors.As(err, &re) {
		return re.Code == ErrCodeFinalized
	}
	return false
}

// IsUnknownEventError returns true if err is, or wraps, an UNKNOWN_EVENT error.
func IsUnknownEventError(err error) bool {
	var re *RuntimeError
	if errors.As(err, &re) {
		return re.Code == ErrCodeUnknownEvent
	}
	return false
}

func newFinalizedError(ev ir.Event, seq int64) *RuntimeError {
	return &RuntimeError{
		Code:    ErrCodeFinalized,
		Message: "reconstructor already finalized",
		Event:   &ev,
		Seq:     seq,
	}
}

func newUnknownEventError(ev ir.Event, seq int64) *RuntimeError {
	return &RuntimeError{
		Code:    ErrCodeUnknownEvent,
		Message: fmt.Sprintf("unknown event kind %q", ev.Kind),
		Event:   &ev,
		Seq:     seq,
	}
}
