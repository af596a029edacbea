package call

import (
	"errors"
	"fmt"
)

var (
	ErrNoMedia         = errors.New("no local media available")
	ErrSignalingError  = errors.New("signaling relay error")
	ErrTransportLost   = errors.New("relay connection lost")
	ErrNegotiationDead = errors.New("negotiation failed")
	ErrWrongRole       = errors.New("operation not valid for this role")
	ErrClosed          = errors.New("call attempt closed")
	ErrTimeout         = errors.New("timeout")
)

// CallError wraps a failure with the operation that produced it.
type CallError struct {
	Op      string
	Err     error
	Details string
}

func (e *CallError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %v (%s)", e.Op, e.Err, e.Details)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *CallError) Unwrap() error {
	return e.Err
}

func NewError(op string, err error) *CallError {
	return &CallError{Op: op, Err: err}
}

func WrapError(op string, err error, details string) *CallError {
	return &CallError{Op: op, Err: err, Details: details}
}
