package services

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorKind classifies a business-rule failure. Adapters map kinds to
// transport status codes; the kinds themselves are part of the service contract.
type ErrorKind string

const (
	KindValidation  ErrorKind = "validation"
	KindForbidden   ErrorKind = "forbidden"
	KindNotFound    ErrorKind = "not_found"
	KindState       ErrorKind = "state"
	KindConflict    ErrorKind = "conflict"
	KindConcurrency ErrorKind = "concurrency"
)

// Error is a business-rule failure of a specific kind
type Error struct {
	Kind    ErrorKind
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

func newError(kind ErrorKind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func validationError(format string, args ...interface{}) error {
	return newError(KindValidation, format, args...)
}

func forbiddenError(format string, args ...interface{}) error {
	return newError(KindForbidden, format, args...)
}

func notFoundError(format string, args ...interface{}) error {
	return newError(KindNotFound, format, args...)
}

func stateError(format string, args ...interface{}) error {
	return newError(KindState, format, args...)
}

func conflictError(format string, args ...interface{}) error {
	return newError(KindConflict, format, args...)
}

func concurrencyError(format string, args ...interface{}) error {
	return newError(KindConcurrency, format, args...)
}

// KindOf returns the kind of err, if err is (or wraps) an *Error
func KindOf(err error) (ErrorKind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return "", false
}

// IsKind reports whether err is an *Error of the given kind
func IsKind(err error, kind ErrorKind) bool {
	k, ok := KindOf(err)
	return ok && k == kind
}

// isUniqueViolation detects unique index failures (works with both PostgreSQL and SQLite)
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate") ||
		strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "unique")
}
