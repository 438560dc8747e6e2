package domain

import (
	"fmt"
	"net/http"

	"github.com/cockroachdb/errors"
)

// ErrorKind is the machine-readable category of a domain error.
type ErrorKind string

const (
	KindValidation     ErrorKind = "validation"
	KindNotFound       ErrorKind = "not-found"
	KindNotImplemented ErrorKind = "not-implemented"
	KindConversion     ErrorKind = "conversion"
	KindInternal       ErrorKind = "internal"
)

// Status maps the kind to its HTTP status code.
func (k ErrorKind) Status() int {
	switch k {
	case KindValidation:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindNotImplemented:
		return http.StatusNotImplemented
	default:
		return http.StatusInternalServerError
	}
}

// Error is the single error type surfaced by services and the filter compiler.
type Error struct {
	Kind    ErrorKind
	Message string
	// Field names the offending input, when there is one.
	Field string
	cause error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// Status returns the HTTP status code for the error.
func (e *Error) Status() int { return e.Kind.Status() }

// Validationf reports malformed input on field.
func Validationf(field, format string, args ...any) error {
	return errors.WithStack(&Error{Kind: KindValidation, Field: field, Message: fmt.Sprintf(format, args...)})
}

// NotFound reports a missing row of entity.
func NotFound(entity string, id int64) error {
	return errors.WithStack(&Error{Kind: KindNotFound, Message: fmt.Sprintf("%s %d not found", entity, id)})
}

// NotFoundf reports a missing resource with a free-form message.
func NotFoundf(format string, args ...any) error {
	return errors.WithStack(&Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)})
}

// NotImplementedf reports a recognized but unsupported request.
func NotImplementedf(format string, args ...any) error {
	return errors.WithStack(&Error{Kind: KindNotImplemented, Message: fmt.Sprintf(format, args...)})
}

// Internal wraps an unexpected failure.
func Internal(err error, message string) error {
	return &Error{Kind: KindInternal, Message: message, cause: errors.WithStack(err)}
}

// Conversion wraps a failure to reshape data between layers.
func Conversion(err error, message string) error {
	return &Error{Kind: KindConversion, Message: message, cause: errors.WithStack(err)}
}

// AsError extracts the domain error from err.
func AsError(err error) (*Error, bool) {
	var derr *Error
	if errors.As(err, &derr) {
		return derr, true
	}
	return nil, false
}

// KindOf returns the kind of err, KindInternal for foreign errors.
func KindOf(err error) ErrorKind {
	if derr, ok := AsError(err); ok {
		return derr.Kind
	}
	return KindInternal
}

// IsNotFound reports whether err carries KindNotFound.
func IsNotFound(err error) bool {
	return err != nil && KindOf(err) == KindNotFound
}
