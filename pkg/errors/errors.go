// Package errors provides structured error handling for objectdag.
//
// Every failure surfaced by the serializer, the loader and the storage
// transports is an *Error carrying a category (ErrorType), a message, an
// optional cause and key-value details. Callers branch on the category
// with IsType or the IsSerializationError / IsStorageError shortcuts.
//
//	if err := tr.SaveObject(ctx, rec); err != nil {
//	    return errors.Wrap(err, errors.ErrorTypeStorage, "save failed").
//	        WithDetail("transport", tr.Name()).
//	        WithDetail("id", rec.ID)
//	}
package errors

import (
	"errors"
	"fmt"
	"runtime"
)

// ErrorType represents the category of error
type ErrorType string

const (
	// ErrorTypeInternal represents internal system errors
	ErrorTypeInternal ErrorType = "internal"
	// ErrorTypeValidation represents validation errors
	ErrorTypeValidation ErrorType = "validation"
	// ErrorTypeNotFound represents a missing object or resource
	ErrorTypeNotFound ErrorType = "not_found"
	// ErrorTypeTimeout represents timeout and cancellation errors
	ErrorTypeTimeout ErrorType = "timeout"
	// ErrorTypeConnection represents connection errors
	ErrorTypeConnection ErrorType = "connection"
	// ErrorTypeConfig represents configuration errors
	ErrorTypeConfig ErrorType = "config"
	// ErrorTypeData represents malformed stored data
	ErrorTypeData ErrorType = "data"
	// ErrorTypeFile represents file operation errors
	ErrorTypeFile ErrorType = "file"
	// ErrorTypeSerialization represents an in-graph value that cannot be
	// represented as JSON (not a scalar, sequence or decomposable object)
	ErrorTypeSerialization ErrorType = "serialization"
	// ErrorTypeStorage represents a transport save operation that failed
	ErrorTypeStorage ErrorType = "storage"
)

// Error represents a structured error with context
type Error struct {
	Type    ErrorType
	Message string
	Cause   error
	Details map[string]interface{}
	Stack   []StackFrame
}

// StackFrame represents a single frame in the call stack
type StackFrame struct {
	Function string
	File     string
	Line     int
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// WithDetail adds a key-value detail to the error
func (e *Error) WithDetail(key string, value interface{}) *Error {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// New creates a new error with the given type and message
func New(errType ErrorType, message string) *Error {
	return &Error{
		Type:    errType,
		Message: message,
		Stack:   captureStack(2),
	}
}

// Newf creates a new error with a formatted message
func Newf(errType ErrorType, format string, args ...interface{}) *Error {
	return &Error{
		Type:    errType,
		Message: fmt.Sprintf(format, args...),
		Stack:   captureStack(2),
	}
}

// Wrap wraps an existing error with additional context
func Wrap(err error, errType ErrorType, message string) *Error {
	if err == nil {
		return nil
	}

	// If already our error type, preserve the stack
	var existingErr *Error
	if errors.As(err, &existingErr) {
		return &Error{
			Type:    errType,
			Message: message,
			Cause:   err,
			Stack:   existingErr.Stack,
		}
	}

	return &Error{
		Type:    errType,
		Message: message,
		Cause:   err,
		Stack:   captureStack(2),
	}
}

// IsRetryable returns true if the error is retryable. Neither the
// serializer nor the transports retry; the classification is for callers
// that re-run a whole Serialize call.
func IsRetryable(err error) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}

	switch e.Type {
	case ErrorTypeTimeout, ErrorTypeConnection:
		return true
	case ErrorTypeStorage:
		// A storage error is only as retryable as its cause.
		return e.Cause != nil && IsRetryable(e.Cause)
	default:
		return false
	}
}

// IsType reports whether any error in err's chain has the given type
func IsType(err error, errType ErrorType) bool {
	for err != nil {
		var e *Error
		if !errors.As(err, &e) {
			return false
		}
		if e.Type == errType {
			return true
		}
		err = e.Cause
	}
	return false
}

// IsSerializationError reports whether err is, or wraps, a serialization error
func IsSerializationError(err error) bool {
	return IsType(err, ErrorTypeSerialization)
}

// IsStorageError reports whether err is, or wraps, a storage error
func IsStorageError(err error) bool {
	return IsType(err, ErrorTypeStorage)
}

// IsNotFound reports whether err is, or wraps, a not-found error
func IsNotFound(err error) bool {
	return IsType(err, ErrorTypeNotFound)
}

// captureStack captures the current call stack
func captureStack(skip int) []StackFrame {
	const maxFrames = 32
	frames := make([]StackFrame, 0, maxFrames)

	for i := skip; i < maxFrames+skip; i++ {
		pc, file, line, ok := runtime.Caller(i)
		if !ok {
			break
		}

		fn := runtime.FuncForPC(pc)
		if fn == nil {
			continue
		}

		frames = append(frames, StackFrame{
			Function: fn.Name(),
			File:     file,
			Line:     line,
		})
	}

	return frames
}
