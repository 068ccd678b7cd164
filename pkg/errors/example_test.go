// Package errors provides examples of structured error handling in objectdag.
package errors_test

import (
	"fmt"
	"io"

	"github.com/ajitpratap0/objectdag/pkg/errors"
)

// Example demonstrates basic error creation and details.
func Example() {
	err := errors.New(errors.ErrorTypeSerialization, "value is not representable").
		WithDetail("key", "callback").
		WithDetail("type", "func()")

	fmt.Println(err.Error())

	// Output:
	// serialization: value is not representable
}

// ExampleWrap shows how a transport failure is surfaced to the caller.
func ExampleWrap() {
	err := errors.Wrap(io.ErrUnexpectedEOF, errors.ErrorTypeStorage, "failed to save object").
		WithDetail("transport", "disk")

	fmt.Println(errors.IsStorageError(err))
	fmt.Println(errors.IsSerializationError(err))
	fmt.Println(err.Error())

	// Output:
	// true
	// false
	// storage: failed to save object: unexpected EOF
}

// ExampleIsRetryable shows that storage errors inherit retryability from their cause.
func ExampleIsRetryable() {
	conn := errors.New(errors.ErrorTypeConnection, "connection refused")
	wrapped := errors.Wrap(conn, errors.ErrorTypeStorage, "failed to save object")
	fmt.Println(errors.IsRetryable(wrapped))

	bad := errors.New(errors.ErrorTypeSerialization, "unsupported value")
	fmt.Println(errors.IsRetryable(bad))

	// Output:
	// true
	// false
}

// ExampleIsType shows that IsType walks the whole cause chain.
func ExampleIsType() {
	missing := errors.New(errors.ErrorTypeNotFound, "object not found")
	err := errors.Wrap(missing, errors.ErrorTypeData, "failed to resolve reference")

	fmt.Println(errors.IsType(err, errors.ErrorTypeData))
	fmt.Println(errors.IsNotFound(err))

	// Output:
	// true
	// true
}
