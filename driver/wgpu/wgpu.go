// Package wgpu is a partial backend over the gogpu/wgpu hardware
// abstraction layer.
//
// Buffers, buffer transfers and compute-kernel launches run on the HAL
// device; image operations are not expressible on this device and report
// StatusNotSupported. Every command executes synchronously before the
// enqueue call returns, so completion tokens are trivially complete and
// queue ordering modes have no observable effect.
//
// Kernels are WGSL compute shaders registered with RegisterKernelWGSL. The
// shader is compiled to SPIR-V through naga and bound to its buffers at
// registration time.
package wgpu

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	// Vulkan backend registers itself via init().
	_ "github.com/gogpu/wgpu/hal/vulkan"

	"github.com/gogpu/ocl/driver"
)

// ErrNoBackend is returned by New when no usable HAL backend or adapter is
// present on the host.
var ErrNoBackend = errors.New("wgpu: no usable backend")

// fenceTimeout bounds every synchronous submission.
const fenceTimeout = 5 * time.Second

// Device implements driver.Driver over one opened HAL device. All methods
// are safe for concurrent use.
type Device struct {
	mu sync.Mutex

	log        *slog.Logger
	instance   hal.Instance
	device     hal.Device
	queue      hal.Queue
	deviceName string

	nextID   uint64
	contexts map[driver.ContextID]struct{}
	buffers  map[driver.MemID]*buffer
	queues   map[driver.QueueID]driver.QueueFlags
	kernels  map[driver.KernelID]*kernelPipeline
	events   map[driver.EventID]struct{}
}

// New opens the first adapter of the Vulkan backend.
func New() (*Device, error) {
	backend, ok := hal.GetBackend(gputypes.BackendVulkan)
	if !ok {
		return nil, ErrNoBackend
	}
	return NewWithAPI(backend)
}

// NewWithAPI opens the first adapter exposed by the given HAL backend.
// Tests use it with the noop backend.
func NewWithAPI(api hal.Backend) (*Device, error) {
	instance, err := api.CreateInstance(&hal.InstanceDescriptor{Flags: 0})
	if err != nil {
		return nil, err
	}
	adapters := instance.EnumerateAdapters(nil)
	if len(adapters) == 0 {
		instance.Destroy()
		return nil, ErrNoBackend
	}
	selected := &adapters[0]
	for i := range adapters {
		if adapters[i].Info.DeviceType == gputypes.DeviceTypeDiscreteGPU ||
			adapters[i].Info.DeviceType == gputypes.DeviceTypeIntegratedGPU {
			selected = &adapters[i]
			break
		}
	}
	openDev, err := selected.Adapter.Open(gputypes.Features(0), gputypes.DefaultLimits())
	if err != nil {
		instance.Destroy()
		return nil, err
	}
	return &Device{
		log:        slog.New(slog.DiscardHandler),
		instance:   instance,
		device:     openDev.Device,
		queue:      openDev.Queue,
		deviceName: selected.Info.Name,
		contexts:   make(map[driver.ContextID]struct{}),
		buffers:    make(map[driver.MemID]*buffer),
		queues:     make(map[driver.QueueID]driver.QueueFlags),
		kernels:    make(map[driver.KernelID]*kernelPipeline),
		events:     make(map[driver.EventID]struct{}),
	}, nil
}

// Close destroys every live kernel pipeline and buffer and the HAL device.
func (d *Device) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, k := range d.kernels {
		k.destroy(d.device)
	}
	for _, b := range d.buffers {
		d.device.DestroyBuffer(b.handle)
	}
	d.kernels = map[driver.KernelID]*kernelPipeline{}
	d.buffers = map[driver.MemID]*buffer{}
	if d.device != nil {
		d.device.Destroy()
		d.device = nil
	}
	if d.instance != nil {
		d.instance.Destroy()
		d.instance = nil
	}
}

// DefaultDevice returns the handle of the single opened adapter.
func (d *Device) DefaultDevice() driver.DeviceID { return 1 }

// DeviceName implements driver.DeviceInfo.
func (d *Device) DeviceName(dev driver.DeviceID) (string, driver.Status) {
	if dev != d.DefaultDevice() {
		return "", driver.StatusDeviceNotFound
	}
	return d.deviceName, driver.Success
}

// SetLogger adopts the logger propagated from the command layer.
func (d *Device) SetLogger(l *slog.Logger) {
	d.mu.Lock()
	d.log = l
	d.mu.Unlock()
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
	d.contexts[id] = struct{}{}
	return id, driver.Success
}

// ReleaseContext implements driver.Driver. Buffers stay owned by the HAL
// device until Close.
func (d *Device) ReleaseContext(ctx driver.ContextID) driver.Status {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.contexts[ctx]; !ok {
		return driver.StatusInvalidContext
	}
	delete(d.contexts, ctx)
	return driver.Success
}

// CreateQueue implements driver.Driver. Ordering flags are accepted and
// recorded but have no effect on a synchronous backend.
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
	d.queues[id] = flags
	return id, driver.Success
}

// ReleaseQueue implements driver.Driver.
func (d *Device) ReleaseQueue(q driver.QueueID) driver.Status {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.queues[q]; !ok {
		return driver.StatusInvalidCommandQueue
	}
	delete(d.queues, q)
	return driver.Success
}

// SetQueueProperty implements driver.Driver.
func (d *Device) SetQueueProperty(q driver.QueueID, flag driver.QueueFlags, enable bool) driver.Status {
	if flag&^(driver.QueueOutOfOrderExec|driver.QueueProfiling) != 0 {
		return driver.StatusInvalidQueueProperty
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	flags, ok := d.queues[q]
	if !ok {
		return driver.StatusInvalidCommandQueue
	}
	if enable {
		flags |= flag
	} else {
		flags &^= flag
	}
	d.queues[q] = flags
	return driver.Success
}

// checkQueue validates a queue handle. Caller holds d.mu.
func (d *Device) checkQueue(q driver.QueueID) driver.Status {
	if _, ok := d.queues[q]; !ok {
		return driver.StatusInvalidCommandQueue
	}
	return driver.Success
}

// checkWaits validates the dependency tokens. Every token is already
// complete on a synchronous backend, so validation is all that remains.
// Caller holds d.mu.
func (d *Device) checkWaits(waits []driver.EventID) driver.Status {
	for _, id := range waits {
		if _, ok := d.events[id]; !ok {
			return driver.StatusInvalidEventWaitList
		}
	}
	return driver.Success
}

// emit allocates a complete token when the caller wants one. Caller holds
// d.mu.
func (d *Device) emit(out *driver.EventID) {
	if out == nil {
		return
	}
	id := driver.EventID(d.allocID())
	d.events[id] = struct{}{}
	*out = id
}

// submit encodes one command buffer, submits it and waits on a fence.
func (d *Device) submit(label string, record func(enc hal.CommandEncoder) error) error {
	enc, err := d.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: label})
	if err != nil {
		return err
	}
	if err := enc.BeginEncoding(label); err != nil {
		return err
	}
	if err := record(enc); err != nil {
		return err
	}
	cb, err := enc.EndEncoding()
	if err != nil {
		return err
	}
	defer d.device.FreeCommandBuffer(cb)

	fence, err := d.device.CreateFence()
	if err != nil {
		return err
	}
	defer d.device.DestroyFence(fence)
	if err := d.queue.Submit([]hal.CommandBuffer{cb}, fence, 1); err != nil {
		return err
	}
	ok, err := d.device.Wait(fence, 1, fenceTimeout)
	if err != nil {
		return err
	}
	if !ok {
		return errors.New("wgpu: fence wait timed out")
	}
	return nil
}

// === Synchronization ===
//
// Commands complete before their enqueue returns, so the synchronization
// entry points reduce to handle validation and token emission.

// EnqueueMarker implements driver.Driver.
func (d *Device) EnqueueMarker(q driver.QueueID, out *driver.EventID) driver.Status {
	if out == nil {
		return driver.StatusInvalidValue
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if st := d.checkQueue(q); !st.IsSuccess() {
		return st
	}
	d.emit(out)
	return driver.Success
}

// EnqueueBarrier implements driver.Driver.
func (d *Device) EnqueueBarrier(q driver.QueueID) driver.Status {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.checkQueue(q)
}

// EnqueueWaitForEvents implements driver.Driver.
func (d *Device) EnqueueWaitForEvents(q driver.QueueID, events []driver.EventID) driver.Status {
	d.mu.Lock()
	defer d.mu.Unlock()
	if st := d.checkQueue(q); !st.IsSuccess() {
		return st
	}
	return d.checkWaits(events)
}

// WaitForEvents implements driver.Driver.
func (d *Device) WaitForEvents(events []driver.EventID) driver.Status {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, id := range events {
		if _, ok := d.events[id]; !ok {
			return driver.StatusInvalidEvent
		}
	}
	return driver.Success
}

// Flush implements driver.Driver.
func (d *Device) Flush(q driver.QueueID) driver.Status {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.checkQueue(q)
}

// Finish implements driver.Driver.
func (d *Device) Finish(q driver.QueueID) driver.Status {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.checkQueue(q)
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
