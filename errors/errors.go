package errors

import (
	stderrors "errors"
	"fmt"
)

var (
	ErrInvalidInput = fmt.Errorf("invalid input")
	ErrInvalidState = fmt.Errorf("invalid state")
	ErrNotFound     = fmt.Errorf("not found")

	ErrWorkerPanic       = fmt.Errorf("worker panic")
	ErrUnknownAction     = fmt.Errorf("unknown action")
	ErrEmptyWords        = fmt.Errorf("no words have been found")
	ErrOnlyCensoredFiles = fmt.Errorf("censored directory contains directories")
)

// Is is errors.Is, re-exported so callers importing this package
// don't need to alias the standard library one.
func Is(err, target error) bool {
	return stderrors.Is(err, target)
}

// Kind returns the sentinel an action failure wraps, or nil for anything else.
// Used by transports to log a stable reason.
func Kind(err error) error {
	for _, target := range []error{ErrInvalidInput, ErrInvalidState, ErrNotFound} {
		if stderrors.Is(err, target) {
			return target
		}
	}
	return nil
}
