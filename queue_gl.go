package ocl

import (
	"fmt"

	"github.com/gogpu/ocl/driver"
)

// GLObject identifies a graphics-API object shared into the compute
// context. The value is the foreign object handle as the driver exposes it.
type GLObject uint64

// SupportsGLSharing reports whether the driver behind the queue implements
// graphics-interop acquire and release. This is a configuration property of
// the driver connection, fixed for the queue's lifetime.
func (q *CommandQueue) SupportsGLSharing() bool {
	_, ok := q.drv.(driver.GLSharing)
	return ok
}

// PutAcquireGLObject takes exclusive compute-side ownership of one shared
// graphics object. The graphics API must have finished using the object
// before the acquire executes.
func (q *CommandQueue) PutAcquireGLObject(obj GLObject, condition, events *EventList) error {
	return q.putGLObject("AcquireGLObject", obj, condition, events,
		driver.GLSharing.EnqueueAcquireGLObjects)
}

// PutReleaseGLObject returns one shared graphics object to the graphics
// API. Compute-side commands using the object must be complete.
func (q *CommandQueue) PutReleaseGLObject(obj GLObject, condition, events *EventList) error {
	return q.putGLObject("ReleaseGLObject", obj, condition, events,
		driver.GLSharing.EnqueueReleaseGLObjects)
}

func (q *CommandQueue) putGLObject(op string, obj GLObject, condition, events *EventList,
	call func(driver.GLSharing, driver.QueueID, []uint64, []driver.EventID, *driver.EventID) driver.Status) error {

	gl, ok := q.drv.(driver.GLSharing)
	if !ok {
		return &ResourceStateError{Op: op, Err: ErrGLSharingUnsupported}
	}
	waits, out, err := q.prepare(op, condition, events)
	if err != nil {
		return err
	}
	objects := fillPtr(&q.scratch.ptrA, uint64(obj))
	if st := call(gl, q.id, objects, waits, out); !st.IsSuccess() {
		return newCommandError(op, st,
			fmt.Sprintf("object=%d%s", obj, listStates(condition, events)))
	}
	q.committed(events)
	return nil
}
