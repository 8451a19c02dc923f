// Package apperr carries the service error taxonomy. Callers branch on the
// kind: NotFound/Validation mean "nothing happened, fix your input",
// Conflict means "someone else changed this concurrently, retry".
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

type Kind string

const (
	KindNotFound   Kind = "not_found"
	KindValidation Kind = "validation"
	KindConflict   Kind = "conflict"
	KindInternal   Kind = "internal"
)

type Error struct {
	kind    Kind
	msg     string
	Serials []string // offending serials for set-based validation failures
}

func (e *Error) Error() string { return e.msg }

func (e *Error) Kind() Kind { return e.kind }

// WithSerials attaches the offending serial list so callers can pinpoint a
// set-based discrepancy.
func (e *Error) WithSerials(serials ...string) *Error {
	e.Serials = append([]string{}, serials...)
	return e
}

func newError(kind Kind, format string, args ...interface{}) *Error {
	return &Error{kind: kind, msg: fmt.Sprintf(format, args...)}
}

func NotFound(format string, args ...interface{}) *Error {
	return newError(KindNotFound, format, args...)
}

func Validation(format string, args ...interface{}) *Error {
	return newError(KindValidation, format, args...)
}

func Conflict(format string, args ...interface{}) *Error {
	return newError(KindConflict, format, args...)
}

func Internal(format string, args ...interface{}) *Error {
	return newError(KindInternal, format, args...)
}

// KindOf extracts the kind from anywhere in the wrap chain; errors without a
// kind are Internal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.kind
	}
	return KindInternal
}

// SerialsOf returns the offending serial list attached to err, if any.
func SerialsOf(err error) []string {
	var e *Error
	if errors.As(err, &e) {
		return e.Serials
	}
	return nil
}

func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindNotFound:
		return http.StatusNotFound
	case KindValidation:
		return http.StatusUnprocessableEntity
	case KindConflict:
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}
