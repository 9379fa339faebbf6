package utils

import "errors"

// ErrTerminal indicates an error that will not go away on retry
// jobs failing with it must settle the record as FAILED and stop
type ErrTerminal struct {
	err error
}

// NewErrTerminal creates new error
func NewErrTerminal(err error) error {
	return &ErrTerminal{err: err}
}

func (e *ErrTerminal) Error() string {
	return "terminal: " + e.err.Error()
}

func (e *ErrTerminal) Unwrap() error {
	return e.err
}

// IsTerminal tests if any error in the chain is terminal
func IsTerminal(err error) bool {
	var e *ErrTerminal
	return errors.As(err, &e)
}
