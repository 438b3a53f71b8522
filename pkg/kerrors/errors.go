// Package kerrors provides the allocator's typed-error taxonomy,
// generalized from the teacher's pkg/errors.DatabaseError.
package kerrors

import "fmt"

// Code classifies an AllocatorError.
type Code int

const (
	// CodeUnknown is the zero value, never produced deliberately.
	CodeUnknown Code = iota
	// CodeInvalidRequest marks a soft validation failure in Alloc's
	// arguments (non-power-of-two n, n<=0, n over the configured cap).
	CodeInvalidRequest
	// CodeOutOfMemory marks a soft allocation failure: no free node at or
	// above the requested level.
	CodeOutOfMemory
	// CodeDoubleFree marks a Free call on an address whose node is not
	// USED — a caller bug, fatal in the core, reported as 500 here.
	CodeDoubleFree
	// CodeInvalidAddress marks a Free call with a null, misaligned, or
	// out-of-range address.
	CodeInvalidAddress
)

// AllocatorError is the error type returned by TryAlloc, the
// diagnostic-facing wrapper around the core Alloc operation.
type AllocatorError struct {
	Code    Code
	Message string
}

func (e AllocatorError) Error() string {
	return fmt.Sprintf("kbuddy: %s", e.Message)
}

// NewInvalidRequest builds a CodeInvalidRequest error.
func NewInvalidRequest(format string, args ...any) error {
	return AllocatorError{Code: CodeInvalidRequest, Message: fmt.Sprintf(format, args...)}
}

// NewOutOfMemory builds a CodeOutOfMemory error.
func NewOutOfMemory(format string, args ...any) error {
	return AllocatorError{Code: CodeOutOfMemory, Message: fmt.Sprintf(format, args...)}
}

// NewDoubleFree builds a CodeDoubleFree error.
func NewDoubleFree(format string, args ...any) error {
	return AllocatorError{Code: CodeDoubleFree, Message: fmt.Sprintf(format, args...)}
}

// NewInvalidAddress builds a CodeInvalidAddress error.
func NewInvalidAddress(format string, args ...any) error {
	return AllocatorError{Code: CodeInvalidAddress, Message: fmt.Sprintf(format, args...)}
}
