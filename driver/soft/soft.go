// Package soft is a software-simulated compute device.
//
// The backend keeps all memory objects in host RAM and executes every
// command on its own goroutine once the command's dependencies have
// completed. An in-order queue chains each command to its predecessor; an
// out-of-order queue runs commands as soon as their explicit dependencies
// allow, bounded by a configurable concurrency limit.
//
// Kernels are Go functions registered with RegisterKernel and invoked once
// per global work item. Images are single-channel byte images: one byte per
// pixel, so pitches and regions translate directly to byte offsets.
//
// The package implements driver.Driver plus the Profiler and DeviceInfo
// capabilities. GL sharing is available through the separate GL wrapper
// returned by NewGL.
package soft

import (
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/gogpu/ocl/driver"
)

// defaultConcurrency bounds simultaneously executing commands when no
// option overrides it.
const defaultConcurrency = 8

// Device is the simulated device and its driver connection in one. All
// methods are safe for concurrent use.
type Device struct {
	name  string
	epoch time.Time
	sem   *semaphore.Weighted

	mu       sync.Mutex
	log      *slog.Logger
	nextID   uint64
	contexts map[driver.ContextID]driver.DeviceID
	mems     map[driver.MemID]*memObject
	queues   map[driver.QueueID]*queueState
	events   map[driver.EventID]*event
	kernels  map[driver.KernelID]*kernel
}

// Option configures a Device at construction.
type Option func(*Device)

// WithName overrides the reported device name.
func WithName(name string) Option {
	return func(d *Device) { d.name = name }
}

// WithConcurrency bounds the number of simultaneously executing commands.
func WithConcurrency(n int64) Option {
	return func(d *Device) { d.sem = semaphore.NewWeighted(n) }
}

// New creates a simulated device.
func New(opts ...Option) *Device {
	d := &Device{
		name:     "ocl-soft",
		epoch:    time.Now(),
		sem:      semaphore.NewWeighted(defaultConcurrency),
		log:      slog.New(slog.DiscardHandler),
		nextID:   0,
		contexts: make(map[driver.ContextID]driver.DeviceID),
		mems:     make(map[driver.MemID]*memObject),
		queues:   make(map[driver.QueueID]*queueState),
		events:   make(map[driver.EventID]*event),
		kernels:  make(map[driver.KernelID]*kernel),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// DefaultDevice returns the handle of the single simulated device.
func (d *Device) DefaultDevice() driver.DeviceID { return 1 }

// DeviceName implements driver.DeviceInfo.
func (d *Device) DeviceName(dev driver.DeviceID) (string, driver.Status) {
	if dev != d.DefaultDevice() {
		return "", driver.StatusDeviceNotFound
	}
	return d.name, driver.Success
}

// SetLogger adopts the logger propagated from the command layer.
func (d *Device) SetLogger(l *slog.Logger) {
	d.mu.Lock()
	d.log = l
	d.mu.Unlock()
}

// now returns nanoseconds on the device clock.
func (d *Device) now() uint64 {
	return uint64(time.Since(d.epoch).Nanoseconds())
}

// allocID hands out the next handle value. Caller holds d.mu.
func (d *Device) allocID() uint64 {
	d.nextID++
	return d.nextID
}

// CreateContext implements driver.Driver.
func (d *Device) CreateContext(dev driver.DeviceID) (driver.ContextID, driver.Status) {
	if dev != d.DefaultDevice() {
		return 0, driver.StatusDeviceNotFound
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	id := driver.ContextID(d.allocID())
	d.contexts[id] = dev
	d.log.Debug("soft: context created", slog.Uint64("context", uint64(id)))
	return id, driver.Success
}

// ReleaseContext frees the context and every object still owned by it.
func (d *Device) ReleaseContext(ctx driver.ContextID) driver.Status {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.contexts[ctx]; !ok {
		return driver.StatusInvalidContext
	}
	delete(d.contexts, ctx)
	for id, m := range d.mems {
		if m.ctx == ctx {
			delete(d.mems, id)
		}
	}
	for id, q := range d.queues {
		if q.ctx == ctx {
			delete(d.queues, id)
		}
	}
	return driver.Success
}

// CreateQueue implements driver.Driver.
func (d *Device) CreateQueue(ctx driver.ContextID, dev driver.DeviceID, flags driver.QueueFlags) (driver.QueueID, driver.Status) {
	if dev != d.DefaultDevice() {
		return 0, driver.StatusDeviceNotFound
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.contexts[ctx]; !ok {
		return 0, driver.StatusInvalidContext
	}
	id := driver.QueueID(d.allocID())
	d.queues[id] = &queueState{ctx: ctx, flags: flags}
	d.log.Debug("soft: queue created",
		slog.Uint64("queue", uint64(id)), slog.Uint64("flags", uint64(flags)))
	return id, driver.Success
}

// ReleaseQueue implements driver.Driver. Commands already submitted keep
// executing on their goroutines.
func (d *Device) ReleaseQueue(q driver.QueueID) driver.Status {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.queues[q]; !ok {
		return driver.StatusInvalidCommandQueue
	}
	delete(d.queues, q)
	return driver.Success
}

// SetQueueProperty implements driver.Driver. The simulated device honors
// reconfiguration: the new flag set applies to commands submitted after the
// call.
func (d *Device) SetQueueProperty(q driver.QueueID, flag driver.QueueFlags, enable bool) driver.Status {
	if flag&^(driver.QueueOutOfOrderExec|driver.QueueProfiling) != 0 {
		return driver.StatusInvalidQueueProperty
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	qs, ok := d.queues[q]
	if !ok {
		return driver.StatusInvalidCommandQueue
	}
	if enable {
		qs.flags |= flag
	} else {
		qs.flags &^= flag
	}
	return driver.Success
}
