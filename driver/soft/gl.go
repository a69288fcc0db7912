package soft

import (
	"sync"

	"github.com/gogpu/ocl/driver"
)

// GL wraps a simulated device with the graphics-interop capability. The
// wrapper tracks which foreign objects are currently acquired by the
// compute side: acquiring an object twice, or releasing one that is not
// held, is rejected with StatusInvalidGLObject.
type GL struct {
	*Device

	mu       sync.Mutex
	acquired map[uint64]bool
}

// NewGL creates a simulated device with GL sharing.
func NewGL(opts ...Option) *GL {
	return &GL{Device: New(opts...), acquired: make(map[uint64]bool)}
}

// EnqueueAcquireGLObjects implements driver.GLSharing.
func (g *GL) EnqueueAcquireGLObjects(q driver.QueueID, objects []uint64, waits []driver.EventID, out *driver.EventID) driver.Status {
	return g.transition(q, objects, waits, out, true)
}

// EnqueueReleaseGLObjects implements driver.GLSharing.
func (g *GL) EnqueueReleaseGLObjects(q driver.QueueID, objects []uint64, waits []driver.EventID, out *driver.EventID) driver.Status {
	return g.transition(q, objects, waits, out, false)
}

func (g *GL) transition(q driver.QueueID, objects []uint64, waits []driver.EventID, out *driver.EventID, acquire bool) driver.Status {
	if len(objects) == 0 {
		return driver.StatusInvalidValue
	}
	objs := append([]uint64(nil), objects...)

	d := g.Device
	d.mu.Lock()
	qs, ok := d.queues[q]
	if !ok {
		d.mu.Unlock()
		return driver.StatusInvalidCommandQueue
	}
	ev, deps, st := d.begin(qs, waits, out)
	d.mu.Unlock()
	if !st.IsSuccess() {
		return st
	}
	return d.run(ev, deps, false, func() driver.Status {
		g.mu.Lock()
		defer g.mu.Unlock()
		for _, obj := range objs {
			if g.acquired[obj] == acquire {
				return driver.StatusInvalidGLObject
			}
		}
		for _, obj := range objs {
			g.acquired[obj] = acquire
		}
		return driver.Success
	})
}

// Acquired reports whether the compute side currently holds the object.
func (g *GL) Acquired(obj uint64) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.acquired[obj]
}
