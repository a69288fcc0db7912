package ocl

import (
	"fmt"

	"github.com/gogpu/ocl/driver"
)

// EventProfile reports the device timestamps of the token at index in list.
// Timestamps are populated only for commands submitted on a queue created
// with ProfilingMode; the token must have completed. Drivers without the
// profiling capability report ErrProfilingUnsupported.
func (q *CommandQueue) EventProfile(list *EventList, index int) (driver.EventProfile, error) {
	if q.released {
		return driver.EventProfile{}, &ResourceStateError{Op: "EventProfile", Err: ErrQueueReleased}
	}
	if index < 0 || index >= list.Size() {
		return driver.EventProfile{}, &ResourceStateError{Op: "EventProfile", Err: ErrEventOutOfRange,
			Detail: fmt.Sprintf("index %d in %s", index, list)}
	}
	prof, ok := q.drv.(driver.Profiler)
	if !ok {
		return driver.EventProfile{}, &ResourceStateError{Op: "EventProfile", Err: ErrProfilingUnsupported}
	}
	p, st := prof.EventProfile(list.tokens()[index])
	if !st.IsSuccess() {
		return driver.EventProfile{}, newCommandError("EventProfile", st,
			fmt.Sprintf("index %d in %s", index, list))
	}
	return p, nil
}
