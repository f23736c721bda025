// Package errs re-expresses the source's exception-driven control flow
// (spec.md design note: "Exception-driven control flow") as explicit
// result values: a small closed set of error kinds, each wrapping the
// underlying cause, so callers can branch on Kind() instead of string
// matching or broad catch blocks.
package errs

import (
	"errors"
	"fmt"
)

// Kind is the taxonomy from spec.md §7 — kinds, not type names.
type Kind string

const (
	// KindTransient covers 5xx/timeout/DNS failures against a third
	// party; the next scheduled tick retries implicitly.
	KindTransient Kind = "transient"
	// KindInvalidContent covers upstream HTML that failed extraction.
	KindInvalidContent Kind = "invalid_content"
	// KindTokenInvalid covers a rejected push token or bounced email.
	KindTokenInvalid Kind = "token_invalid"
	// KindUnconfigured covers a channel missing required credentials.
	KindUnconfigured Kind = "unconfigured"
	// KindIntegrity covers a unique-constraint violation treated as
	// idempotent success by the caller.
	KindIntegrity Kind = "integrity"
	// KindFatal covers startup-only failures that must abort the
	// process (repository unreachable, required config missing).
	KindFatal Kind = "fatal"
)

// Error wraps a cause with a Kind so callers can branch without string
// matching.
type Error struct {
	kind  Kind
	msg   string
	cause error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.msg, e.cause)
	}
	return e.msg
}

func (e *Error) Unwrap() error { return e.cause }

// Kind returns the error's taxonomy classification.
func (e *Error) Kind() Kind { return e.kind }

func newErr(k Kind, msg string, cause error) *Error {
	return &Error{kind: k, msg: msg, cause: cause}
}

func Transient(msg string, cause error) *Error      { return newErr(KindTransient, msg, cause) }
func InvalidContent(msg string, cause error) *Error  { return newErr(KindInvalidContent, msg, cause) }
func TokenInvalid(msg string, cause error) *Error    { return newErr(KindTokenInvalid, msg, cause) }
func Unconfigured(msg string, cause error) *Error    { return newErr(KindUnconfigured, msg, cause) }
func Integrity(msg string, cause error) *Error       { return newErr(KindIntegrity, msg, cause) }
func Fatal(msg string, cause error) *Error           { return newErr(KindFatal, msg, cause) }

// KindOf extracts the Kind from err if it (or something it wraps) is an
// *Error. The zero value is returned otherwise.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.kind, true
	}
	return "", false
}
