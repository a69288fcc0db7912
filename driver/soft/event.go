package soft

import (
	"context"

	"github.com/gogpu/ocl/driver"
)

// event is one command's completion state. The done channel closes after
// status and profile have been written, so readers that observed the close
// see consistent values.
type event struct {
	done     chan struct{}
	status   driver.Status
	profiled bool
	profile  driver.EventProfile

	// abort, when set, runs if the command completes with a failure
	// status, before done closes. Map commands use it to revert the
	// mapping they committed at enqueue time.
	abort func()
}

func (e *event) completed() bool {
	select {
	case <-e.done:
		return true
	default:
		return false
	}
}

// queueState tracks per-queue ordering. gate is the implicit dependency of
// the next command: the previous command on an in-order queue, or the last
// barrier on an out-of-order queue. outstanding holds every event not yet
// observed complete, pruned lazily.
type queueState struct {
	ctx         driver.ContextID
	flags       driver.QueueFlags
	gate        *event
	outstanding []*event
}

func (qs *queueState) inOrder() bool {
	return qs.flags&driver.QueueOutOfOrderExec == 0
}

func (qs *queueState) prune() {
	live := qs.outstanding[:0]
	for _, ev := range qs.outstanding {
		if !ev.completed() {
			live = append(live, ev)
		}
	}
	qs.outstanding = live
}

// begin performs the bookkeeping shared by every enqueue: it resolves the
// explicit dependencies, attaches the queue's implicit gate, creates the
// command's event and registers it under an ID when the caller wants a
// token. Caller holds d.mu.
func (d *Device) begin(qs *queueState, waits []driver.EventID, out *driver.EventID) (*event, []*event, driver.Status) {
	deps := make([]*event, 0, len(waits)+1)
	for _, id := range waits {
		dep, ok := d.events[id]
		if !ok {
			return nil, nil, driver.StatusInvalidEventWaitList
		}
		deps = append(deps, dep)
	}
	if qs.gate != nil {
		deps = append(deps, qs.gate)
	}

	ev := &event{
		done:     make(chan struct{}),
		profiled: qs.flags&driver.QueueProfiling != 0,
	}
	if ev.profiled {
		now := d.now()
		ev.profile.Queued = now
		ev.profile.Submitted = now
	}
	qs.prune()
	qs.outstanding = append(qs.outstanding, ev)
	if qs.inOrder() {
		qs.gate = ev
	}
	if out != nil {
		id := driver.EventID(d.allocID())
		d.events[id] = ev
		*out = id
	}
	return ev, deps, driver.Success
}

// run executes one command asynchronously: it waits for the dependencies,
// claims an execution slot, runs exec and publishes the result through the
// event. A failed dependency poisons the command with the same status. With
// blocking set, run suspends the caller until the command has completed.
func (d *Device) run(ev *event, deps []*event, blocking bool, exec func() driver.Status) driver.Status {
	go func() {
		st := driver.Success
		for _, dep := range deps {
			<-dep.done
			if !dep.status.IsSuccess() && st.IsSuccess() {
				st = dep.status
			}
		}
		if st.IsSuccess() {
			_ = d.sem.Acquire(context.Background(), 1)
			if ev.profiled {
				ev.profile.Start = d.now()
			}
			st = exec()
			if ev.profiled {
				ev.profile.End = d.now()
			}
			d.sem.Release(1)
		}
		if !st.IsSuccess() && ev.abort != nil {
			ev.abort()
		}
		ev.status = st
		close(ev.done)
	}()
	if blocking {
		<-ev.done
		return ev.status
	}
	return driver.Success
}

// EnqueueMarker implements driver.Driver. The marker completes once every
// command submitted to the queue before it has completed.
func (d *Device) EnqueueMarker(q driver.QueueID, out *driver.EventID) driver.Status {
	if out == nil {
		return driver.StatusInvalidValue
	}
	d.mu.Lock()
	qs, ok := d.queues[q]
	if !ok {
		d.mu.Unlock()
		return driver.StatusInvalidCommandQueue
	}
	deps := append([]*event(nil), qs.outstanding...)
	ev, _, st := d.begin(qs, nil, out)
	d.mu.Unlock()
	if !st.IsSuccess() {
		return st
	}
	return d.run(ev, deps, false, func() driver.Status { return driver.Success })
}

// EnqueueBarrier implements driver.Driver. Subsequent commands on the queue
// gate on everything submitted before the barrier.
func (d *Device) EnqueueBarrier(q driver.QueueID) driver.Status {
	d.mu.Lock()
	qs, ok := d.queues[q]
	if !ok {
		d.mu.Unlock()
		return driver.StatusInvalidCommandQueue
	}
	deps := append([]*event(nil), qs.outstanding...)
	ev, _, st := d.begin(qs, nil, nil)
	if st.IsSuccess() {
		qs.gate = ev
	}
	d.mu.Unlock()
	if !st.IsSuccess() {
		return st
	}
	return d.run(ev, deps, false, func() driver.Status { return driver.Success })
}

// EnqueueWaitForEvents implements driver.Driver. Subsequent commands on the
// queue gate on the given tokens.
func (d *Device) EnqueueWaitForEvents(q driver.QueueID, events []driver.EventID) driver.Status {
	d.mu.Lock()
	qs, ok := d.queues[q]
	if !ok {
		d.mu.Unlock()
		return driver.StatusInvalidCommandQueue
	}
	ev, deps, st := d.begin(qs, events, nil)
	if st.IsSuccess() {
		qs.gate = ev
	}
	d.mu.Unlock()
	if !st.IsSuccess() {
		return st
	}
	return d.run(ev, deps, false, func() driver.Status { return driver.Success })
}

// WaitForEvents implements driver.Driver. The calling goroutine blocks
// until every token has completed; the first failure status is reported.
func (d *Device) WaitForEvents(events []driver.EventID) driver.Status {
	d.mu.Lock()
	evs := make([]*event, 0, len(events))
	for _, id := range events {
		ev, ok := d.events[id]
		if !ok {
			d.mu.Unlock()
			return driver.StatusInvalidEvent
		}
		evs = append(evs, ev)
	}
	d.mu.Unlock()

	st := driver.Success
	for _, ev := range evs {
		<-ev.done
		if !ev.status.IsSuccess() && st.IsSuccess() {
			st = ev.status
		}
	}
	return st
}

// Flush implements driver.Driver. Commands are handed to their goroutines
// at enqueue time, so there is nothing to push.
func (d *Device) Flush(q driver.QueueID) driver.Status {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.queues[q]; !ok {
		return driver.StatusInvalidCommandQueue
	}
	return driver.Success
}

// Finish implements driver.Driver.
func (d *Device) Finish(q driver.QueueID) driver.Status {
	d.mu.Lock()
	qs, ok := d.queues[q]
	if !ok {
		d.mu.Unlock()
		return driver.StatusInvalidCommandQueue
	}
	pending := append([]*event(nil), qs.outstanding...)
	d.mu.Unlock()

	for _, ev := range pending {
		<-ev.done
	}
	d.mu.Lock()
	qs.prune()
	d.mu.Unlock()
	return driver.Success
}

// ReleaseEvent implements driver.Driver.
func (d *Device) ReleaseEvent(ev driver.EventID) driver.Status {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.events[ev]; !ok {
		return driver.StatusInvalidEvent
	}
	delete(d.events, ev)
	return driver.Success
}

// EventProfile implements driver.Profiler. Timestamps are available once
// the command has completed on a profiling-enabled queue.
func (d *Device) EventProfile(id driver.EventID) (driver.EventProfile, driver.Status) {
	d.mu.Lock()
	ev, ok := d.events[id]
	d.mu.Unlock()
	if !ok {
		return driver.EventProfile{}, driver.StatusInvalidEvent
	}
	if !ev.completed() || !ev.profiled {
		return driver.EventProfile{}, driver.StatusInvalidOperation
	}
	return ev.profile, driver.Success
}
