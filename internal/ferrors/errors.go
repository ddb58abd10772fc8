// Package ferrors provides the module's error-kind classification:
// InvalidInput, FilesystemIO, Internal and Cancelled, modeled as a
// single wrapped error type with a Kind rather than four distinct
// types, so call sites classify with one switch.
package ferrors

import "fmt"

// Kind classifies why an operation failed.
type Kind int

const (
	// KindInvalidInput covers a bad root path, a malformed query, or
	// an out-of-range limit. Returned to the caller; no state change.
	KindInvalidInput Kind = iota
	// KindFilesystemIO covers a transient failure reading a directory
	// or file. Counted into the per-actor error counter; absorbed, not
	// surfaced as a hard failure.
	KindFilesystemIO
	// KindInternal covers snapshot write/load failure, mmap failure,
	// or codec failure. Logged and surfaced via last_error; the live
	// index is never discarded because of it.
	KindInternal
	// KindCancelled marks a search that lost a cancellation race. Not
	// a true error from the actor's perspective: callers see it as
	// "no result", not a failure.
	KindCancelled
)

func (k Kind) String() string {
	switch k {
	case KindInvalidInput:
		return "invalid_input"
	case KindFilesystemIO:
		return "filesystem_io"
	case KindInternal:
		return "internal"
	case KindCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Error is the module's wrapped error type. It satisfies the
// Cause() error convention so error-classification helpers elsewhere
// in the tree (written against that shape) keep working unmodified.
type Error struct {
	Kind    Kind
	Message string
	Cause_  error
}

func (e *Error) Error() string {
	if e.Cause_ != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause_)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Cause returns the wrapped error, or nil.
func (e *Error) Cause() error { return e.Cause_ }

// Unwrap supports errors.Is/errors.As against the wrapped cause.
func (e *Error) Unwrap() error { return e.Cause_ }

// InvalidInput builds a KindInvalidInput error.
func InvalidInput(format string, args ...any) error {
	return &Error{Kind: KindInvalidInput, Message: fmt.Sprintf(format, args...)}
}

// QueryParse builds a KindInvalidInput error for a query-parse
// failure, carrying the byte offset where parsing stopped.
func QueryParse(offset int, format string, args ...any) error {
	return &Error{Kind: KindInvalidInput, Message: fmt.Sprintf("%s (byte offset %d)", fmt.Sprintf(format, args...), offset)}
}

// FilesystemIO builds a KindFilesystemIO error wrapping cause.
func FilesystemIO(cause error, format string, args ...any) error {
	return &Error{Kind: KindFilesystemIO, Message: fmt.Sprintf(format, args...), Cause_: cause}
}

// Internal builds a KindInternal error wrapping cause.
func Internal(cause error, format string, args ...any) error {
	return &Error{Kind: KindInternal, Message: fmt.Sprintf(format, args...), Cause_: cause}
}

// Cancelled builds a KindCancelled error: a search lost its
// cancellation race, not a true failure.
func Cancelled(format string, args ...any) error {
	return &Error{Kind: KindCancelled, Message: fmt.Sprintf(format, args...)}
}

// KindOf extracts the Kind from err if it is (or wraps) an *Error,
// defaulting to KindInternal for unrecognized errors.
func KindOf(err error) Kind {
	var e *Error
	for err != nil {
		if asErr, ok := err.(*Error); ok {
			e = asErr
			break
		}
		cause, ok := err.(interface{ Cause() error })
		if !ok {
			break
		}
		err = cause.Cause()
	}
	if e == nil {
		return KindInternal
	}
	return e.Kind
}
