package chain

import (
	"errors"
	"fmt"
)

// Revert kinds. Every failed call wraps exactly one of them.
var (
	ErrUnauthorized      = errors.New("unauthorized")
	ErrInvalidInput      = errors.New("invalid input")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrNotFound          = errors.New("not found")

	// ErrInvalidTransition is an ErrInvalidInput raised by state machines.
	ErrInvalidTransition = fmt.Errorf("%w: invalid state transition", ErrInvalidInput)
)

// RevertError aborts a transaction. Reason is the message shown to callers.
type RevertError struct {
	Reason string
	Err    error
}

func (e *RevertError) Error() string { return e.Reason }

func (e *RevertError) Unwrap() error { return e.Err }

func Revert(kind error, reason string) error {
	return &RevertError{Reason: reason, Err: kind}
}

func Revertf(kind error, format string, args ...any) error {
	return &RevertError{Reason: fmt.Sprintf(format, args...), Err: kind}
}

// IsRevert reports whether err aborted a call, as opposed to an infrastructure failure.
func IsRevert(err error) bool {
	var re *RevertError
	return errors.As(err, &re)
}
