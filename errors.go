package ocl

import (
	"errors"
	"fmt"

	"github.com/gogpu/ocl/driver"
)

// Lifecycle and configuration errors.
var (
	// ErrNilDriver is returned when creating a context without a driver.
	ErrNilDriver = errors.New("ocl: driver is nil")

	// ErrContextReleased is returned when operating on a released context.
	ErrContextReleased = errors.New("ocl: context already released")

	// ErrQueueReleased is returned when operating on a released queue.
	ErrQueueReleased = errors.New("ocl: command queue already released")

	// ErrEventListFull is returned when an enqueue would append a completion
	// token to an output list that is already at capacity. The enqueue is
	// rejected before the driver call is issued; the list is left intact.
	ErrEventListFull = errors.New("ocl: event list at capacity")

	// ErrNoOutputList is returned by PutMarker when no output list is given.
	// A marker exists only to produce an observable completion token.
	ErrNoOutputList = errors.New("ocl: marker requires an output event list")

	// ErrEventOutOfRange is returned by PutWaitForEvent when the index does
	// not address a token currently held by the list.
	ErrEventOutOfRange = errors.New("ocl: event index out of range")

	// ErrUnknownMode is returned by SetProperty when the mode set carries
	// bits this package does not understand.
	ErrUnknownMode = errors.New("ocl: unknown queue mode flags")

	// ErrGLSharingUnsupported is returned by the GL-interop operations when
	// the driver connection lacks the GL sharing capability. This is a
	// configuration property of the driver, not a per-call condition.
	ErrGLSharingUnsupported = errors.New("ocl: driver does not support GL sharing")

	// ErrProfilingUnsupported is returned by EventProfile when the driver
	// cannot report per-command timestamps.
	ErrProfilingUnsupported = errors.New("ocl: driver does not support profiling")
)

// CommandError reports a driver-rejected command. It carries the failed
// operation's name, the driver's numeric status, and a rendering of the
// operands involved. A CommandError is fatal to the attempted command but
// not to the queue: the queue remains usable for subsequent calls.
type CommandError struct {
	// Op is the operation name, e.g. "WriteBuffer".
	Op string

	// Status is the raw driver result code.
	Status driver.Status

	// Detail renders the operands: object identities, offsets, regions and
	// the condition/output list states at the time of the call.
	Detail string
}

// Error implements the error interface.
func (e *CommandError) Error() string {
	return fmt.Sprintf("ocl: %s failed with status %d (%s): %s",
		e.Op, int32(e.Status), e.Status, e.Detail)
}

// newCommandError builds a CommandError for one failed driver call.
func newCommandError(op string, st driver.Status, detail string) error {
	return &CommandError{Op: op, Status: st, Detail: detail}
}

// ResourceStateError reports invalid lifecycle use of a queue, context or
// event list: releasing an already-released object, enqueueing on a released
// queue, or appending to a full output list. It wraps one of the sentinel
// errors above so callers can test the cause with errors.Is.
type ResourceStateError struct {
	// Op is the operation that was attempted.
	Op string

	// Err is the sentinel cause.
	Err error

	// Detail optionally renders the resource state.
	Detail string
}

// Error implements the error interface.
func (e *ResourceStateError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("ocl: %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("ocl: %s: %v: %s", e.Op, e.Err, e.Detail)
}

// Unwrap returns the sentinel cause.
func (e *ResourceStateError) Unwrap() error { return e.Err }
