package catcode

import (
	"errors"
	"fmt"
)

// Error is the runtime's composite error type (§7): a terminal Code, a
// human-readable description, and an optional wrapped cause — mirroring
// reactor/errors.go's WrapError/PanicError cause-chain pattern, but
// keyed off Code instead of an ad-hoc JS error name.
type Error struct {
	Code    Code
	Message string
	Cause   error
}

// New creates an *Error with no cause.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Newf creates an *Error with a formatted message.
func Newf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches code and message to an existing cause, preserving the
// chain for errors.Is/errors.As.
func Wrap(cause error, code Code, message string) *Error {
	return &Error{Code: code, Message: message, Cause: cause}
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap exposes the cause chain to errors.Is/errors.As.
func (e *Error) Unwrap() error { return e.Cause }

// Is considers two *Error values equal (for errors.Is) when their Codes
// match — the taxonomy classifies errors by Code, not by message or
// identity, matching §7's "callers branch on code, not text" policy.
func (e *Error) Is(target error) bool {
	var o *Error
	if errors.As(target, &o) {
		return o.Code == e.Code
	}
	return false
}

// CodeOf extracts the Code from err's chain, or 0 if err does not wrap
// a *Error.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return 0
}

// Is reports whether err's chain contains a *Error with the given code.
// Convenience wrapper around errors.Is(err, New(code, "")).
func Is(err error, code Code) bool {
	return errors.Is(err, New(code, ""))
}
