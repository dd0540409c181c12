package optimization

import (
	"errors"
	"fmt"
)

// Sentinel kinds for the two error classes callers branch on.
var (
	// ErrUsage marks malformed input: bad bounds, impossible batch sizes,
	// shape mismatches. The call aborts and nothing is returned.
	ErrUsage = errors.New("usage error")

	// ErrSingular marks a numerically singular covariance, e.g. duplicated
	// points during a surrogate refit. Batch construction treats it as a
	// normal early stop.
	ErrSingular = errors.New("singular covariance")
)

// Error represents an optimization error with context
// that can be wrapped with additional information.
type Error struct {
	// Message describes the error that occurred.
	Message string
	// Op is the operation that caused the error.
	Op string
	// Component is the component where the error occurred.
	Component string
	// Kind is an optional sentinel (ErrUsage, ErrSingular) matched by errors.Is.
	Kind error
	// Err is the underlying error that triggered this one, if any.
	Err error
}

// Error returns the string representation of the error.
func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	var prefix string
	if e.Component != "" && e.Op != "" {
		prefix = fmt.Sprintf("%s: %s", e.Component, e.Op)
	} else if e.Component != "" {
		prefix = e.Component
	} else if e.Op != "" {
		prefix = e.Op
	}

	if e.Err != nil {
		if prefix != "" {
			return fmt.Sprintf("%s: %s: %v", prefix, e.Message, e.Err)
		}
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}

	if prefix != "" {
		return fmt.Sprintf("%s: %s", prefix, e.Message)
	}
	return e.Message
}

// Unwrap returns the underlying error, if any.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is reports whether the error carries the target sentinel kind.
func (e *Error) Is(target error) bool {
	if e == nil {
		return false
	}
	return e.Kind == target
}

// WithOperation adds operation context to the error.
func (e *Error) WithOperation(op string) *Error {
	e.Op = op
	return e
}

// WithComponent adds component context to the error.
func (e *Error) WithComponent(component string) *Error {
	e.Component = component
	return e
}

func (e *Error) asUsage() *Error {
	e.Kind = ErrUsage
	return e
}

func (e *Error) asSingular() *Error {
	e.Kind = ErrSingular
	return e
}

// NewError creates a new optimization error with the given message.
func NewError(message string) *Error {
	return &Error{
		Message: message,
	}
}

// NewErrorf creates a new optimization error with formatted message.
func NewErrorf(format string, args ...interface{}) *Error {
	return &Error{
		Message: fmt.Sprintf(format, args...),
	}
}

// NewUsageError creates a usage error matched by errors.Is(err, ErrUsage).
func NewUsageError(format string, args ...interface{}) *Error {
	return NewErrorf(format, args...).asUsage()
}

// NewSingularError creates a degeneracy error matched by
// errors.Is(err, ErrSingular).
func NewSingularError(format string, args ...interface{}) *Error {
	return NewErrorf(format, args...).asSingular()
}

// WrapError wraps an existing error with additional context,
// preserving the sentinel kind of the innermost *Error if any.
// If err is nil, WrapError returns nil.
func WrapError(err error, message string) *Error {
	if err == nil {
		return nil
	}
	kind := error(nil)
	var inner *Error
	if errors.As(err, &inner) {
		kind = inner.Kind
	}
	return &Error{
		Message: message,
		Kind:    kind,
		Err:     err,
	}
}

// WrapErrorf wraps an existing error with additional formatted context.
// If err is nil, WrapErrorf returns nil.
func WrapErrorf(err error, format string, args ...interface{}) *Error {
	return WrapError(err, fmt.Sprintf(format, args...))
}
