package ocl

import (
	"fmt"

	"github.com/gogpu/ocl/driver"
)

// EventList is a bounded, append-only sequence of completion tokens, sized
// once at construction from the expected maximum command count.
//
// A list plays two roles. Passed as the condition argument of an enqueue
// operation it is read-only: its entries are exactly the dependencies the new
// command waits on. Passed as the output argument it receives exactly one new
// token per successful enqueue. An enqueue against a list already at capacity
// is rejected with ErrEventListFull before any driver call is issued.
//
// An EventList is not safe for concurrent use: reading tokens while another
// goroutine might be appending requires external synchronization.
type EventList struct {
	// events is the fixed backing array; len(events) is the capacity.
	events []driver.EventID

	// size is the logical length. Only successful enqueues grow it.
	size int
}

// NewEventList creates a list with room for capacity completion tokens.
// A non-positive capacity yields a list that can hold no tokens (still
// usable as an always-empty condition list).
func NewEventList(capacity int) *EventList {
	if capacity < 0 {
		capacity = 0
	}
	return &EventList{events: make([]driver.EventID, capacity)}
}

// Size returns the number of tokens currently held.
func (l *EventList) Size() int { return l.size }

// Capacity returns the fixed maximum number of tokens.
func (l *EventList) Capacity() int { return len(l.events) }

// Events returns the live token sequence, length Size. The slice aliases the
// list's backing array: treat it as read-only, and do not hold it across an
// enqueue that uses this list as output.
func (l *EventList) Events() []driver.EventID { return l.events[:l.size] }

// String renders the list state for error messages.
func (l *EventList) String() string {
	return fmt.Sprintf("EventList(%d/%d)", l.size, len(l.events))
}

// tokens returns the condition set this list represents.
func (l *EventList) tokens() []driver.EventID { return l.events[:l.size] }

// nextSlot reserves the slot the driver writes the new completion token
// into. The slot does not become visible until commit is called, so a failed
// enqueue leaves the list unchanged.
func (l *EventList) nextSlot() (*driver.EventID, error) {
	if l.size == len(l.events) {
		return nil, ErrEventListFull
	}
	return &l.events[l.size], nil
}

// commit publishes the token written by the preceding successful enqueue.
func (l *EventList) commit() { l.size++ }

// Release frees every token in the list through the driver and resets the
// logical size to zero. The first non-success status is reported; remaining
// tokens are still released.
func (l *EventList) Release(drv driver.Driver) error {
	var firstErr error
	for i := 0; i < l.size; i++ {
		if st := drv.ReleaseEvent(l.events[i]); !st.IsSuccess() && firstErr == nil {
			firstErr = newCommandError("ReleaseEvent", st,
				fmt.Sprintf("event #%d in %s", i, l))
		}
		l.events[i] = 0
	}
	l.size = 0
	return firstErr
}
