// Package errs defines the closed set of error kinds the hub's components
// return, so the API layer can map them to HTTP status codes in one place
// instead of pattern-matching error strings at every call site.
package errs

import "fmt"

// Kind is a closed taxonomy of the ways a hub operation can fail.
type Kind string

const (
	KindUpstreamFailure         Kind = "upstream_failure"
	KindUpstreamBudgetExhausted Kind = "upstream_budget_exhausted"
	KindValidationFailure       Kind = "validation_failure"
	KindNotFound                Kind = "not_found"
	KindStoreFailure            Kind = "store_failure"
	KindFatalConfig             Kind = "fatal_config"
)

// Error wraps an underlying cause with a Kind the server can switch on.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Cause }

// New builds an *Error of the given kind with a message.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap builds an *Error of the given kind around an existing error.
func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// KindOf extracts the Kind from err if it is (or wraps) an *Error,
// defaulting to KindStoreFailure for unrecognized errors since most
// call sites producing bare errors are store-adjacent.
func KindOf(err error) Kind {
	var e *Error
	if as(err, &e) {
		return e.Kind
	}
	return KindStoreFailure
}

func as(err error, target **Error) bool {
	for err != nil {
		if e, ok := err.(*Error); ok {
			*target = e
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}

func NotFound(message string) *Error          { return New(KindNotFound, message) }
func Validation(message string) *Error        { return New(KindValidationFailure, message) }
func Store(message string, cause error) *Error { return Wrap(KindStoreFailure, message, cause) }
