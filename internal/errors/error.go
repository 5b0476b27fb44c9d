package errors

import (
	stderrors "errors"
	"fmt"
	"log/slog"
)

// Category represents the type of error.
type Category string

const (
	CategoryNavigation Category = "navigation"
	CategoryCallback   Category = "callback"
	CategoryProtocol   Category = "protocol"
	CategoryConfig     Category = "config"
)

// NavsyncError is a coded error with an optional explanation and cause.
type NavsyncError struct {
	// Code is a unique error identifier (e.g., "N001").
	Code string

	// Category groups the error by how it is handled.
	Category Category

	// Message is a short description of the error.
	Message string

	// Detail describes this particular occurrence.
	Detail string

	// Suggestion is a hint on how to fix the error.
	Suggestion string

	// DocURL is a link to documentation about this error.
	DocURL string

	// Wrapped is the underlying error, if any.
	Wrapped error
}

// Error implements the error interface.
func (e *NavsyncError) Error() string {
	msg := e.Message
	if e.Code != "" {
		msg = e.Code + ": " + msg
	}
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.Wrapped != nil {
		msg += ": " + e.Wrapped.Error()
	}
	return msg
}

// Unwrap returns the wrapped error for errors.Is/As support.
func (e *NavsyncError) Unwrap() error {
	return e.Wrapped
}

// WithDetail adds occurrence-specific detail.
func (e *NavsyncError) WithDetail(d string) *NavsyncError {
	e.Detail = d
	return e
}

// WithDetailf adds formatted occurrence-specific detail.
func (e *NavsyncError) WithDetailf(format string, args ...any) *NavsyncError {
	e.Detail = fmt.Sprintf(format, args...)
	return e
}

// WithSuggestion adds a fix suggestion to the error.
func (e *NavsyncError) WithSuggestion(s string) *NavsyncError {
	e.Suggestion = s
	return e
}

// Wrap wraps another error.
func (e *NavsyncError) Wrap(err error) *NavsyncError {
	e.Wrapped = err
	return e
}

// LogAttrs returns the error as slog key/value pairs.
func (e *NavsyncError) LogAttrs() []any {
	attrs := []any{
		slog.String("code", e.Code),
		slog.String("category", string(e.Category)),
	}
	if e.Detail != "" {
		attrs = append(attrs, slog.String("detail", e.Detail))
	}
	if e.Wrapped != nil {
		attrs = append(attrs, slog.Any("error", e.Wrapped))
	}
	return attrs
}

// New creates a NavsyncError from a registered error code.
func New(code string) *NavsyncError {
	template, ok := registry[code]
	if !ok {
		return &NavsyncError{
			Code:    code,
			Message: "Unknown error",
		}
	}
	return &NavsyncError{
		Code:       code,
		Category:   template.Category,
		Message:    template.Message,
		Suggestion: template.Suggestion,
		DocURL:     template.DocURL,
	}
}

// FromError wraps a standard error in a NavsyncError. An error that
// already is (or wraps) a NavsyncError is returned as that error.
func FromError(err error, code string) *NavsyncError {
	if err == nil {
		return nil
	}
	var ne *NavsyncError
	if stderrors.As(err, &ne) {
		return ne
	}
	return New(code).Wrap(err)
}

// HasCode reports whether err is or wraps a NavsyncError with code.
func HasCode(err error, code string) bool {
	var ne *NavsyncError
	for err != nil {
		if !stderrors.As(err, &ne) {
			return false
		}
		if ne.Code == code {
			return true
		}
		err = ne.Wrapped
	}
	return false
}
