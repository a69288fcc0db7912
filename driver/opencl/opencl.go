//go:build opencl

// Package opencl is a native backend over an installed OpenCL runtime.
// It is compiled only with the `opencl` build tag and links against the
// system OpenCL library.
package opencl

/*
#cgo LDFLAGS: -lOpenCL
#define CL_TARGET_OPENCL_VERSION 120
#define CL_USE_DEPRECATED_OPENCL_1_0_APIS
#define CL_USE_DEPRECATED_OPENCL_1_1_APIS
#define CL_USE_DEPRECATED_OPENCL_1_2_APIS
#ifdef __APPLE__
#include <OpenCL/opencl.h>
#else
#include <CL/cl.h>
#endif
*/
import "C"

import (
	"errors"
	"log/slog"
	"sync"
	"unsafe"

	"github.com/gogpu/ocl/driver"
)

// ErrNoPlatform is returned by New when the runtime exposes no platform or
// no device.
var ErrNoPlatform = errors.New("opencl: no platform with devices found")

// Device wraps one OpenCL platform and its devices behind the driver
// boundary. Native handles are kept in maps keyed by the opaque IDs the
// command layer sees. All methods are safe for concurrent use.
type Device struct {
	mu sync.Mutex

	log      *slog.Logger
	platform C.cl_platform_id
	devices  []C.cl_device_id

	nextID   uint64
	contexts map[driver.ContextID]C.cl_context
	mems     map[driver.MemID]C.cl_mem
	queues   map[driver.QueueID]C.cl_command_queue
	kernels  map[driver.KernelID]C.cl_kernel
	programs map[driver.KernelID]C.cl_program
	events   map[driver.EventID]C.cl_event
	mapPtrs  map[driver.MemID]unsafe.Pointer
}

// New connects to the first OpenCL platform that exposes at least one
// device.
func New() (*Device, error) {
	var count C.cl_uint
	if rc := C.clGetPlatformIDs(0, nil, &count); rc != C.CL_SUCCESS || count == 0 {
		return nil, ErrNoPlatform
	}
	platforms := make([]C.cl_platform_id, count)
	if rc := C.clGetPlatformIDs(count, &platforms[0], nil); rc != C.CL_SUCCESS {
		return nil, ErrNoPlatform
	}
	for _, p := range platforms {
		var devCount C.cl_uint
		if rc := C.clGetDeviceIDs(p, C.CL_DEVICE_TYPE_ALL, 0, nil, &devCount); rc != C.CL_SUCCESS || devCount == 0 {
			continue
		}
		devices := make([]C.cl_device_id, devCount)
		if rc := C.clGetDeviceIDs(p, C.CL_DEVICE_TYPE_ALL, devCount, &devices[0], nil); rc != C.CL_SUCCESS {
			continue
		}
		return &Device{
			log:      slog.New(slog.DiscardHandler),
			platform: p,
			devices:  devices,
			contexts: make(map[driver.ContextID]C.cl_context),
			mems:     make(map[driver.MemID]C.cl_mem),
			queues:   make(map[driver.QueueID]C.cl_command_queue),
			kernels:  make(map[driver.KernelID]C.cl_kernel),
			programs: make(map[driver.KernelID]C.cl_program),
			events:   make(map[driver.EventID]C.cl_event),
			mapPtrs:  make(map[driver.MemID]unsafe.Pointer),
		}, nil
	}
	return nil, ErrNoPlatform
}

// SetLogger adopts the logger propagated from the command layer.
func (d *Device) SetLogger(l *slog.Logger) {
	d.mu.Lock()
	d.log = l
	d.mu.Unlock()
}

// Devices returns the handles of every device on the platform, 1-based.
func (d *Device) Devices() []driver.DeviceID {
	ids := make([]driver.DeviceID, len(d.devices))
	for i := range d.devices {
		ids[i] = driver.DeviceID(i + 1)
	}
	return ids
}

// DefaultDevice returns the handle of the platform's first device.
func (d *Device) DefaultDevice() driver.DeviceID { return 1 }

// DeviceName implements driver.DeviceInfo via CL_DEVICE_NAME.
func (d *Device) DeviceName(dev driver.DeviceID) (string, driver.Status) {
	native, st := d.nativeDevice(dev)
	if !st.IsSuccess() {
		return "", st
	}
	var buf [256]byte
	var n C.size_t
	rc := C.clGetDeviceInfo(native, C.CL_DEVICE_NAME, C.size_t(len(buf)),
		unsafe.Pointer(&buf[0]), &n)
	if rc != C.CL_SUCCESS {
		return "", toStatus(rc)
	}
	name := buf[:n]
	for len(name) > 0 && name[len(name)-1] == 0 {
		name = name[:len(name)-1]
	}
	return string(name), driver.Success
}

func (d *Device) nativeDevice(dev driver.DeviceID) (C.cl_device_id, driver.Status) {
	idx := int(dev) - 1
	if idx < 0 || idx >= len(d.devices) {
		return nil, driver.StatusDeviceNotFound
	}
	return d.devices[idx], driver.Success
}

// toStatus passes the native result code through unchanged; the
// driver.Status values mirror the OpenCL error codes.
func toStatus(rc C.cl_int) driver.Status { return driver.Status(int32(rc)) }

func clBool(b bool) C.cl_bool {
	if b {
		return C.CL_TRUE
	}
	return C.CL_FALSE
}

// allocID hands out the next handle value. Caller holds d.mu.
func (d *Device) allocID() uint64 {
	d.nextID++
	return d.nextID
}

// waitList resolves dependency tokens to native events. Caller holds d.mu.
func (d *Device) waitList(waits []driver.EventID) ([]C.cl_event, driver.Status) {
	if len(waits) == 0 {
		return nil, driver.Success
	}
	evs := make([]C.cl_event, len(waits))
	for i, id := range waits {
		ev, ok := d.events[id]
		if !ok {
			return nil, driver.StatusInvalidEventWaitList
		}
		evs[i] = ev
	}
	return evs, driver.Success
}

func eventsPtr(evs []C.cl_event) *C.cl_event {
	if len(evs) == 0 {
		return nil
	}
	return &evs[0]
}

// eventSlot returns the native event pointer to hand to an enqueue call:
// nil when the caller does not want a token.
func eventSlot(out *driver.EventID, native *C.cl_event) *C.cl_event {
	if out == nil {
		return nil
	}
	return native
}

// adopt registers a freshly produced native event under a new ID. Caller
// holds d.mu.
func (d *Device) adopt(out *driver.EventID, native C.cl_event) {
	if out == nil {
		return
	}
	id := driver.EventID(d.allocID())
	d.events[id] = native
	*out = id
}

func sizeVec(v []uint64) [3]C.size_t {
	var out [3]C.size_t
	for i, x := range v {
		out[i] = C.size_t(x)
	}
	return out
}

// === Context lifetime ===

// CreateContext implements driver.Driver.
func (d *Device) CreateContext(dev driver.DeviceID) (driver.ContextID, driver.Status) {
	native, st := d.nativeDevice(dev)
	if !st.IsSuccess() {
		return 0, st
	}
	var rc C.cl_int
	ctx := C.clCreateContext(nil, 1, &native, nil, nil, &rc)
	if rc != C.CL_SUCCESS {
		return 0, toStatus(rc)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	id := driver.ContextID(d.allocID())
	d.contexts[id] = ctx
	return id, driver.Success
}

// ReleaseContext implements driver.Driver.
func (d *Device) ReleaseContext(ctx driver.ContextID) driver.Status {
	d.mu.Lock()
	native, ok := d.contexts[ctx]
	delete(d.contexts, ctx)
	d.mu.Unlock()
	if !ok {
		return driver.StatusInvalidContext
	}
	return toStatus(C.clReleaseContext(native))
}

// === Queue lifetime ===

// CreateQueue implements driver.Driver.
func (d *Device) CreateQueue(ctx driver.ContextID, dev driver.DeviceID, flags driver.QueueFlags) (driver.QueueID, driver.Status) {
	native, st := d.nativeDevice(dev)
	if !st.IsSuccess() {
		return 0, st
	}
	d.mu.Lock()
	clCtx, ok := d.contexts[ctx]
	d.mu.Unlock()
	if !ok {
		return 0, driver.StatusInvalidContext
	}
	var props C.cl_command_queue_properties
	if flags&driver.QueueOutOfOrderExec != 0 {
		props |= C.CL_QUEUE_OUT_OF_ORDER_EXEC_MODE_ENABLE
	}
	if flags&driver.QueueProfiling != 0 {
		props |= C.CL_QUEUE_PROFILING_ENABLE
	}
	var rc C.cl_int
	q := C.clCreateCommandQueue(clCtx, native, props, &rc)
	if rc != C.CL_SUCCESS {
		return 0, toStatus(rc)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	id := driver.QueueID(d.allocID())
	d.queues[id] = q
	return id, driver.Success
}

// ReleaseQueue implements driver.Driver.
func (d *Device) ReleaseQueue(q driver.QueueID) driver.Status {
	d.mu.Lock()
	native, ok := d.queues[q]
	delete(d.queues, q)
	d.mu.Unlock()
	if !ok {
		return driver.StatusInvalidCommandQueue
	}
	return toStatus(C.clReleaseCommandQueue(native))
}

// SetQueueProperty implements driver.Driver via the legacy
// clSetCommandQueueProperty entry point.
func (d *Device) SetQueueProperty(q driver.QueueID, flag driver.QueueFlags, enable bool) driver.Status {
	var prop C.cl_command_queue_properties
	switch flag {
	case driver.QueueOutOfOrderExec:
		prop = C.CL_QUEUE_OUT_OF_ORDER_EXEC_MODE_ENABLE
	case driver.QueueProfiling:
		prop = C.CL_QUEUE_PROFILING_ENABLE
	default:
		return driver.StatusInvalidQueueProperty
	}
	d.mu.Lock()
	native, ok := d.queues[q]
	d.mu.Unlock()
	if !ok {
		return driver.StatusInvalidCommandQueue
	}
	return toStatus(C.clSetCommandQueueProperty(native, prop, clBool(enable), nil))
}

// lookupQueue resolves a queue handle.
func (d *Device) lookupQueue(q driver.QueueID) (C.cl_command_queue, driver.Status) {
	d.mu.Lock()
	defer d.mu.Unlock()
	native, ok := d.queues[q]
	if !ok {
		return nil, driver.StatusInvalidCommandQueue
	}
	return native, driver.Success
}

// lookupMem resolves a memory handle.
func (d *Device) lookupMem(mem driver.MemID) (C.cl_mem, driver.Status) {
	d.mu.Lock()
	defer d.mu.Unlock()
	native, ok := d.mems[mem]
	if !ok {
		return nil, driver.StatusInvalidMemObject
	}
	return native, driver.Success
}

// === Synchronization ===

// EnqueueMarker implements driver.Driver.
func (d *Device) EnqueueMarker(q driver.QueueID, out *driver.EventID) driver.Status {
	if out == nil {
		return driver.StatusInvalidValue
	}
	native, st := d.lookupQueue(q)
	if !st.IsSuccess() {
		return st
	}
	var ev C.cl_event
	if rc := C.clEnqueueMarker(native, &ev); rc != C.CL_SUCCESS {
		return toStatus(rc)
	}
	d.mu.Lock()
	d.adopt(out, ev)
	d.mu.Unlock()
	return driver.Success
}

// EnqueueBarrier implements driver.Driver.
func (d *Device) EnqueueBarrier(q driver.QueueID) driver.Status {
	native, st := d.lookupQueue(q)
	if !st.IsSuccess() {
		return st
	}
	return toStatus(C.clEnqueueBarrier(native))
}

// EnqueueWaitForEvents implements driver.Driver.
func (d *Device) EnqueueWaitForEvents(q driver.QueueID, events []driver.EventID) driver.Status {
	native, st := d.lookupQueue(q)
	if !st.IsSuccess() {
		return st
	}
	d.mu.Lock()
	evs, st := d.waitList(events)
	d.mu.Unlock()
	if !st.IsSuccess() {
		return st
	}
	if len(evs) == 0 {
		return driver.StatusInvalidValue
	}
	return toStatus(C.clEnqueueWaitForEvents(native, C.cl_uint(len(evs)), &evs[0]))
}

// WaitForEvents implements driver.Driver.
func (d *Device) WaitForEvents(events []driver.EventID) driver.Status {
	d.mu.Lock()
	evs, st := d.waitList(events)
	d.mu.Unlock()
	if !st.IsSuccess() {
		return driver.StatusInvalidEvent
	}
	if len(evs) == 0 {
		return driver.Success
	}
	return toStatus(C.clWaitForEvents(C.cl_uint(len(evs)), &evs[0]))
}

// Flush implements driver.Driver.
func (d *Device) Flush(q driver.QueueID) driver.Status {
	native, st := d.lookupQueue(q)
	if !st.IsSuccess() {
		return st
	}
	return toStatus(C.clFlush(native))
}

// Finish implements driver.Driver.
func (d *Device) Finish(q driver.QueueID) driver.Status {
	native, st := d.lookupQueue(q)
	if !st.IsSuccess() {
		return st
	}
	return toStatus(C.clFinish(native))
}

// ReleaseEvent implements driver.Driver.
func (d *Device) ReleaseEvent(ev driver.EventID) driver.Status {
	d.mu.Lock()
	native, ok := d.events[ev]
	delete(d.events, ev)
	d.mu.Unlock()
	if !ok {
		return driver.StatusInvalidEvent
	}
	return toStatus(C.clReleaseEvent(native))
}

// EventProfile implements driver.Profiler via clGetEventProfilingInfo.
func (d *Device) EventProfile(ev driver.EventID) (driver.EventProfile, driver.Status) {
	d.mu.Lock()
	native, ok := d.events[ev]
	d.mu.Unlock()
	if !ok {
		return driver.EventProfile{}, driver.StatusInvalidEvent
	}
	var p driver.EventProfile
	for _, probe := range []struct {
		param C.cl_profiling_info
		dst   *uint64
	}{
		{C.CL_PROFILING_COMMAND_QUEUED, &p.Queued},
		{C.CL_PROFILING_COMMAND_SUBMIT, &p.Submitted},
		{C.CL_PROFILING_COMMAND_START, &p.Start},
		{C.CL_PROFILING_COMMAND_END, &p.End},
	} {
		var v C.cl_ulong
		rc := C.clGetEventProfilingInfo(native, probe.param,
			C.size_t(unsafe.Sizeof(v)), unsafe.Pointer(&v), nil)
		if rc != C.CL_SUCCESS {
			return driver.EventProfile{}, toStatus(rc)
		}
		*probe.dst = uint64(v)
	}
	return p, driver.Success
}
