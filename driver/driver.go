// Package driver defines the procedure-call boundary between the ocl command
// submission layer and a compute device driver.
//
// A Driver owns real scheduling and execution; the ocl package on top of it
// only marshals arguments, resolves dependency lists and surfaces statuses.
// Every entry point returns a Status where Success (0) is the only non-error
// value. Nothing at this boundary is retried.
//
// Handle types are opaque, driver-scoped identifiers. The zero value of every
// handle type is invalid. Handles must never be shared between Driver
// instances.
//
// Vector parameters (origins, regions, work sizes) are passed as []uint64
// views over caller-owned storage. Drivers must consume them during the call
// and must not retain the slices: the caller reuses the backing arrays for
// the next call.
package driver

// Opaque handle types. The zero value is never a valid handle.
type (
	// ContextID identifies a device context owning memory objects and queues.
	ContextID uint64

	// DeviceID identifies one accelerator device.
	DeviceID uint64

	// QueueID identifies a native command queue.
	QueueID uint64

	// MemID identifies a device-resident memory object (buffer or image).
	MemID uint64

	// KernelID identifies a compiled, parameterized kernel entry point.
	KernelID uint64

	// EventID is a completion token for one submitted command.
	EventID uint64
)

// QueueFlags is the raw bitmask of queue execution-mode properties.
// The bit assignments match the OpenCL command-queue property values.
type QueueFlags uint64

const (
	// QueueOutOfOrderExec removes the submission-order execution guarantee.
	QueueOutOfOrderExec QueueFlags = 1 << 0

	// QueueProfiling enables per-command timestamp collection.
	QueueProfiling QueueFlags = 1 << 1
)

// MapFlags selects the host access mode of a mapped region.
type MapFlags uint64

const (
	// MapRead maps for host reading.
	MapRead MapFlags = 1 << 0

	// MapWrite maps for host writing.
	MapWrite MapFlags = 1 << 1

	// MapReadWrite maps for both directions.
	MapReadWrite MapFlags = MapRead | MapWrite
)

// Driver is the set of foreign entry points the command-queue layer consumes.
//
// Enqueue calls share a common tail: waits carries the completion tokens the
// new command must wait on (len(waits) == 0 means no dependencies), and out,
// when non-nil, receives the new command's own completion token. A driver
// that is handed a nil out must not create an observable token for the
// command.
//
// Blocking transfer and map calls suspend the calling goroutine until the
// device has completed the command. Non-blocking calls return as soon as the
// command has been accepted into the queue; the host storage passed to a
// non-blocking write must then stay untouched until completion.
type Driver interface {
	// === Context and memory lifetime ===

	// CreateContext allocates a context on the given device.
	CreateContext(dev DeviceID) (ContextID, Status)

	// ReleaseContext frees a context and everything still owned by it.
	ReleaseContext(ctx ContextID) Status

	// CreateBuffer allocates a linear device buffer of size bytes.
	CreateBuffer(ctx ContextID, size uint64) (MemID, Status)

	// CreateImage2D allocates a 2D image. rowPitch is the byte stride of one
	// row; 0 lets the driver pick a packed layout.
	CreateImage2D(ctx ContextID, width, height, rowPitch uint64) (MemID, Status)

	// CreateImage3D allocates a 3D image. slicePitch is the byte stride of
	// one 2D slice; 0 lets the driver pick a packed layout.
	CreateImage3D(ctx ContextID, width, height, depth, rowPitch, slicePitch uint64) (MemID, Status)

	// ReleaseMemObject frees a buffer or image.
	ReleaseMemObject(mem MemID) Status

	// === Queue lifetime ===

	// CreateQueue allocates a native command queue bound to one device.
	CreateQueue(ctx ContextID, dev DeviceID, flags QueueFlags) (QueueID, Status)

	// ReleaseQueue destroys a native queue. Commands already submitted keep
	// executing; the handle becomes invalid immediately.
	ReleaseQueue(q QueueID) Status

	// SetQueueProperty enables or disables one property bit after creation.
	// Whether reconfiguration is honored is driver dependent.
	SetQueueProperty(q QueueID, flag QueueFlags, enable bool) Status

	// === Buffer transfers ===

	EnqueueWriteBuffer(q QueueID, mem MemID, blocking bool, offset uint64, src []byte, waits []EventID, out *EventID) Status
	EnqueueReadBuffer(q QueueID, mem MemID, blocking bool, offset uint64, dst []byte, waits []EventID, out *EventID) Status
	EnqueueCopyBuffer(q QueueID, src, dst MemID, srcOffset, dstOffset, size uint64, waits []EventID, out *EventID) Status
	EnqueueFillBuffer(q QueueID, mem MemID, pattern []byte, offset, size uint64, waits []EventID, out *EventID) Status

	// === Image transfers ===
	//
	// origin and region are always three components long, even for 2D
	// images, which encode a degenerate third dimension (origin z 0,
	// region z 1).

	EnqueueWriteImage(q QueueID, mem MemID, blocking bool, origin, region []uint64, rowPitch, slicePitch uint64, src []byte, waits []EventID, out *EventID) Status
	EnqueueReadImage(q QueueID, mem MemID, blocking bool, origin, region []uint64, rowPitch, slicePitch uint64, dst []byte, waits []EventID, out *EventID) Status
	EnqueueCopyImage(q QueueID, src, dst MemID, srcOrigin, dstOrigin, region []uint64, waits []EventID, out *EventID) Status
	EnqueueCopyBufferToImage(q QueueID, src, dst MemID, srcOffset uint64, dstOrigin, region []uint64, waits []EventID, out *EventID) Status
	EnqueueCopyImageToBuffer(q QueueID, src, dst MemID, srcOrigin, region []uint64, dstOffset uint64, waits []EventID, out *EventID) Status

	// === Mapping ===

	// EnqueueMapBuffer returns a host-addressable window onto the buffer.
	// The window stays valid until EnqueueUnmapMemObject for the same mem.
	EnqueueMapBuffer(q QueueID, mem MemID, blocking bool, flags MapFlags, offset, size uint64, waits []EventID, out *EventID) ([]byte, Status)

	// EnqueueMapImage additionally reports the row and slice pitch of the
	// mapped window.
	EnqueueMapImage(q QueueID, mem MemID, blocking bool, flags MapFlags, origin, region []uint64, waits []EventID, out *EventID) (data []byte, rowPitch, slicePitch uint64, st Status)

	// EnqueueUnmapMemObject commits the outstanding mapped window of mem
	// back to the device and invalidates it.
	EnqueueUnmapMemObject(q QueueID, mem MemID, waits []EventID, out *EventID) Status

	// === Synchronization ===

	// EnqueueMarker appends a synchronization point that completes once
	// everything previously submitted to the queue has completed. out must
	// be non-nil: a marker exists only to produce an observable token.
	EnqueueMarker(q QueueID, out *EventID) Status

	// EnqueueBarrier blocks further commands on the queue until everything
	// previously submitted has completed. No token is produced.
	EnqueueBarrier(q QueueID) Status

	// EnqueueWaitForEvents queues an in-device wait for the given tokens.
	EnqueueWaitForEvents(q QueueID, events []EventID) Status

	// WaitForEvents blocks the host until all given tokens have completed.
	WaitForEvents(events []EventID) Status

	// Flush guarantees all previously submitted commands have been handed
	// to the device, without waiting for completion.
	Flush(q QueueID) Status

	// Finish blocks the host until every previously submitted command on
	// the queue has completed.
	Finish(q QueueID) Status

	// === Kernel execution ===

	// EnqueueTask executes the kernel once, equivalent to a 1-dimensional
	// launch with global size 1 and local size 1.
	EnqueueTask(q QueueID, k KernelID, waits []EventID, out *EventID) Status

	// EnqueueNDRangeKernel launches the kernel over a workDim-dimensional
	// index space. Each vector is either nil (no constraint) or exactly
	// workDim components long.
	EnqueueNDRangeKernel(q QueueID, k KernelID, workDim int, globalOffset, globalSize, localSize []uint64, waits []EventID, out *EventID) Status

	// === Events ===

	// ReleaseEvent frees one completion token.
	ReleaseEvent(ev EventID) Status
}

// GLSharing is the optional graphics-interop capability. Drivers that can
// acquire and release objects shared with a graphics API implement it in
// addition to Driver. Its absence is a configuration property of the driver
// connection, not a per-call condition.
type GLSharing interface {
	EnqueueAcquireGLObjects(q QueueID, objects []uint64, waits []EventID, out *EventID) Status
	EnqueueReleaseGLObjects(q QueueID, objects []uint64, waits []EventID, out *EventID) Status
}

// EventProfile carries the per-command timestamps of a completion token, in
// nanoseconds on the device clock. Only populated on queues created with
// QueueProfiling.
type EventProfile struct {
	Queued    uint64
	Submitted uint64
	Start     uint64
	End       uint64
}

// Profiler is the optional profiling-introspection capability.
type Profiler interface {
	// EventProfile reports the timestamps of a completed token.
	EventProfile(ev EventID) (EventProfile, Status)
}

// DeviceInfo is an optional capability for drivers that can describe their
// devices.
type DeviceInfo interface {
	// DeviceName returns a human-readable device name.
	DeviceName(dev DeviceID) (string, Status)
}
