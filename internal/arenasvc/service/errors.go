package service

import (
	"errors"
	"fmt"
)

// Kinds of rejected business operations. Test with errors.Is.
var (
	ErrValidation  = errors.New("validation error")
	ErrNotFound    = errors.New("not found")
	ErrConflict    = errors.New("conflict")
	ErrEligibility = errors.New("not eligible")
	ErrState       = errors.New("invalid state")
	ErrAuth        = errors.New("unauthorized")
)

// Error carries a user-facing message for one of the kinds above.
type Error struct {
	Kind error
	Msg  string
}

func (e *Error) Error() string { return e.Msg }

func (e *Error) Unwrap() error { return e.Kind }

func newError(kind error, format string, args ...interface{}) error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

func validationf(format string, args ...interface{}) error {
	return newError(ErrValidation, format, args...)
}

func notFoundf(format string, args ...interface{}) error {
	return newError(ErrNotFound, format, args...)
}

func conflictf(format string, args ...interface{}) error {
	return newError(ErrConflict, format, args...)
}

func eligibilityf(format string, args ...interface{}) error {
	return newError(ErrEligibility, format, args...)
}

func statef(format string, args ...interface{}) error {
	return newError(ErrState, format, args...)
}

func authf(format string, args ...interface{}) error {
	return newError(ErrAuth, format, args...)
}
