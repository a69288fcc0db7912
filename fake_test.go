package ocl

import (
	"testing"

	"github.com/gogpu/ocl/driver"
)

// lastCall captures the arguments of the most recent driver call. Vector
// and byte slices are copied at call time, because the queue reuses its
// scratch arrays between calls.
type lastCall struct {
	queue      driver.QueueID
	mem        driver.MemID
	mem2       driver.MemID
	kernel     driver.KernelID
	blocking   bool
	offset     uint64
	offset2    uint64
	size       uint64
	rowPitch   uint64
	slicePitch uint64
	data       []byte
	pattern    []byte
	flags      driver.MapFlags
	origin     []uint64
	origin2    []uint64
	region     []uint64
	workDim    int
	globWO     []uint64
	globWS     []uint64
	locWS      []uint64
	objects    []uint64
	waits      []driver.EventID
	outNil     bool
	prop       driver.QueueFlags
	propOn     bool
}

// fakeDriver is a recording driver.Driver. Every enqueue succeeds with the
// configured status (Success by default) and, when out is non-nil, writes a
// fresh monotonically increasing token.
type fakeDriver struct {
	status   driver.Status      // returned by enqueue and sync calls
	failProp driver.QueueFlags  // SetQueueProperty fails for these bits
	mapData  []byte             // window returned by map calls
	mapRow   uint64
	mapSlice uint64

	nextEvent driver.EventID
	nextMem   driver.MemID
	nextQueue driver.QueueID

	calls    []string
	last     lastCall
	released []driver.EventID
}

func cloneVec(v []uint64) []uint64 {
	if v == nil {
		return nil
	}
	return append([]uint64(nil), v...)
}

func cloneEvents(v []driver.EventID) []driver.EventID {
	if len(v) == 0 {
		return nil
	}
	return append([]driver.EventID(nil), v...)
}

func (d *fakeDriver) record(op string, waits []driver.EventID, out *driver.EventID) {
	d.calls = append(d.calls, op)
	d.last.waits = cloneEvents(waits)
	d.last.outNil = out == nil
}

func (d *fakeDriver) emit(out *driver.EventID) driver.Status {
	if d.status.IsSuccess() && out != nil {
		d.nextEvent++
		*out = d.nextEvent
	}
	return d.status
}

func (d *fakeDriver) CreateContext(dev driver.DeviceID) (driver.ContextID, driver.Status) {
	d.calls = append(d.calls, "CreateContext")
	return 100, d.status
}

func (d *fakeDriver) ReleaseContext(ctx driver.ContextID) driver.Status {
	d.calls = append(d.calls, "ReleaseContext")
	return d.status
}

func (d *fakeDriver) CreateBuffer(ctx driver.ContextID, size uint64) (driver.MemID, driver.Status) {
	d.calls = append(d.calls, "CreateBuffer")
	d.last.size = size
	d.nextMem++
	return d.nextMem, d.status
}

func (d *fakeDriver) CreateImage2D(ctx driver.ContextID, width, height, rowPitch uint64) (driver.MemID, driver.Status) {
	d.calls = append(d.calls, "CreateImage2D")
	d.nextMem++
	return d.nextMem, d.status
}

func (d *fakeDriver) CreateImage3D(ctx driver.ContextID, width, height, depth, rowPitch, slicePitch uint64) (driver.MemID, driver.Status) {
	d.calls = append(d.calls, "CreateImage3D")
	d.nextMem++
	return d.nextMem, d.status
}

func (d *fakeDriver) ReleaseMemObject(mem driver.MemID) driver.Status {
	d.calls = append(d.calls, "ReleaseMemObject")
	d.last.mem = mem
	return d.status
}

func (d *fakeDriver) CreateQueue(ctx driver.ContextID, dev driver.DeviceID, flags driver.QueueFlags) (driver.QueueID, driver.Status) {
	d.calls = append(d.calls, "CreateQueue")
	d.last.prop = flags
	d.nextQueue++
	return d.nextQueue, d.status
}

func (d *fakeDriver) ReleaseQueue(q driver.QueueID) driver.Status {
	d.calls = append(d.calls, "ReleaseQueue")
	return d.status
}

func (d *fakeDriver) SetQueueProperty(q driver.QueueID, flag driver.QueueFlags, enable bool) driver.Status {
	d.calls = append(d.calls, "SetQueueProperty")
	d.last.prop = flag
	d.last.propOn = enable
	if flag&d.failProp != 0 {
		return driver.StatusInvalidQueueProperty
	}
	return d.status
}

func (d *fakeDriver) EnqueueWriteBuffer(q driver.QueueID, mem driver.MemID, blocking bool, offset uint64, src []byte, waits []driver.EventID, out *driver.EventID) driver.Status {
	d.record("WriteBuffer", waits, out)
	d.last.queue, d.last.mem, d.last.blocking, d.last.offset = q, mem, blocking, offset
	d.last.data = append([]byte(nil), src...)
	return d.emit(out)
}

func (d *fakeDriver) EnqueueReadBuffer(q driver.QueueID, mem driver.MemID, blocking bool, offset uint64, dst []byte, waits []driver.EventID, out *driver.EventID) driver.Status {
	d.record("ReadBuffer", waits, out)
	d.last.queue, d.last.mem, d.last.blocking, d.last.offset = q, mem, blocking, offset
	d.last.size = uint64(len(dst))
	return d.emit(out)
}

func (d *fakeDriver) EnqueueCopyBuffer(q driver.QueueID, src, dst driver.MemID, srcOffset, dstOffset, size uint64, waits []driver.EventID, out *driver.EventID) driver.Status {
	d.record("CopyBuffer", waits, out)
	d.last.queue, d.last.mem, d.last.mem2 = q, src, dst
	d.last.offset, d.last.offset2, d.last.size = srcOffset, dstOffset, size
	return d.emit(out)
}

func (d *fakeDriver) EnqueueFillBuffer(q driver.QueueID, mem driver.MemID, pattern []byte, offset, size uint64, waits []driver.EventID, out *driver.EventID) driver.Status {
	d.record("FillBuffer", waits, out)
	d.last.queue, d.last.mem, d.last.offset, d.last.size = q, mem, offset, size
	d.last.pattern = append([]byte(nil), pattern...)
	return d.emit(out)
}

func (d *fakeDriver) EnqueueWriteImage(q driver.QueueID, mem driver.MemID, blocking bool, origin, region []uint64, rowPitch, slicePitch uint64, src []byte, waits []driver.EventID, out *driver.EventID) driver.Status {
	d.record("WriteImage", waits, out)
	d.last.queue, d.last.mem, d.last.blocking = q, mem, blocking
	d.last.origin, d.last.region = cloneVec(origin), cloneVec(region)
	d.last.rowPitch, d.last.slicePitch = rowPitch, slicePitch
	d.last.data = append([]byte(nil), src...)
	return d.emit(out)
}

func (d *fakeDriver) EnqueueReadImage(q driver.QueueID, mem driver.MemID, blocking bool, origin, region []uint64, rowPitch, slicePitch uint64, dst []byte, waits []driver.EventID, out *driver.EventID) driver.Status {
	d.record("ReadImage", waits, out)
	d.last.queue, d.last.mem, d.last.blocking = q, mem, blocking
	d.last.origin, d.last.region = cloneVec(origin), cloneVec(region)
	d.last.rowPitch, d.last.slicePitch = rowPitch, slicePitch
	return d.emit(out)
}

func (d *fakeDriver) EnqueueCopyImage(q driver.QueueID, src, dst driver.MemID, srcOrigin, dstOrigin, region []uint64, waits []driver.EventID, out *driver.EventID) driver.Status {
	d.record("CopyImage", waits, out)
	d.last.queue, d.last.mem, d.last.mem2 = q, src, dst
	d.last.origin, d.last.origin2, d.last.region = cloneVec(srcOrigin), cloneVec(dstOrigin), cloneVec(region)
	return d.emit(out)
}

func (d *fakeDriver) EnqueueCopyBufferToImage(q driver.QueueID, src, dst driver.MemID, srcOffset uint64, dstOrigin, region []uint64, waits []driver.EventID, out *driver.EventID) driver.Status {
	d.record("CopyBufferToImage", waits, out)
	d.last.queue, d.last.mem, d.last.mem2, d.last.offset = q, src, dst, srcOffset
	d.last.origin, d.last.region = cloneVec(dstOrigin), cloneVec(region)
	return d.emit(out)
}

func (d *fakeDriver) EnqueueCopyImageToBuffer(q driver.QueueID, src, dst driver.MemID, srcOrigin, region []uint64, dstOffset uint64, waits []driver.EventID, out *driver.EventID) driver.Status {
	d.record("CopyImageToBuffer", waits, out)
	d.last.queue, d.last.mem, d.last.mem2, d.last.offset = q, src, dst, dstOffset
	d.last.origin, d.last.region = cloneVec(srcOrigin), cloneVec(region)
	return d.emit(out)
}

func (d *fakeDriver) EnqueueMapBuffer(q driver.QueueID, mem driver.MemID, blocking bool, flags driver.MapFlags, offset, size uint64, waits []driver.EventID, out *driver.EventID) ([]byte, driver.Status) {
	d.record("MapBuffer", waits, out)
	d.last.queue, d.last.mem, d.last.blocking = q, mem, blocking
	d.last.flags, d.last.offset, d.last.size = flags, offset, size
	return d.mapData, d.emit(out)
}

func (d *fakeDriver) EnqueueMapImage(q driver.QueueID, mem driver.MemID, blocking bool, flags driver.MapFlags, origin, region []uint64, waits []driver.EventID, out *driver.EventID) ([]byte, uint64, uint64, driver.Status) {
	d.record("MapImage", waits, out)
	d.last.queue, d.last.mem, d.last.blocking, d.last.flags = q, mem, blocking, flags
	d.last.origin, d.last.region = cloneVec(origin), cloneVec(region)
	return d.mapData, d.mapRow, d.mapSlice, d.emit(out)
}

func (d *fakeDriver) EnqueueUnmapMemObject(q driver.QueueID, mem driver.MemID, waits []driver.EventID, out *driver.EventID) driver.Status {
	d.record("UnmapMemObject", waits, out)
	d.last.queue, d.last.mem = q, mem
	return d.emit(out)
}

func (d *fakeDriver) EnqueueMarker(q driver.QueueID, out *driver.EventID) driver.Status {
	d.record("Marker", nil, out)
	d.last.queue = q
	return d.emit(out)
}

func (d *fakeDriver) EnqueueBarrier(q driver.QueueID) driver.Status {
	d.calls = append(d.calls, "Barrier")
	d.last.queue = q
	return d.status
}

func (d *fakeDriver) EnqueueWaitForEvents(q driver.QueueID, events []driver.EventID) driver.Status {
	d.calls = append(d.calls, "EnqueueWaitForEvents")
	d.last.queue = q
	d.last.waits = cloneEvents(events)
	return d.status
}

func (d *fakeDriver) WaitForEvents(events []driver.EventID) driver.Status {
	d.calls = append(d.calls, "WaitForEvents")
	d.last.waits = cloneEvents(events)
	return d.status
}

func (d *fakeDriver) Flush(q driver.QueueID) driver.Status {
	d.calls = append(d.calls, "Flush")
	d.last.queue = q
	return d.status
}

func (d *fakeDriver) Finish(q driver.QueueID) driver.Status {
	d.calls = append(d.calls, "Finish")
	d.last.queue = q
	return d.status
}

func (d *fakeDriver) EnqueueTask(q driver.QueueID, k driver.KernelID, waits []driver.EventID, out *driver.EventID) driver.Status {
	d.record("Task", waits, out)
	d.last.queue, d.last.kernel = q, k
	return d.emit(out)
}

func (d *fakeDriver) EnqueueNDRangeKernel(q driver.QueueID, k driver.KernelID, workDim int, globalOffset, globalSize, localSize []uint64, waits []driver.EventID, out *driver.EventID) driver.Status {
	d.record("NDRangeKernel", waits, out)
	d.last.queue, d.last.kernel, d.last.workDim = q, k, workDim
	d.last.globWO = cloneVec(globalOffset)
	d.last.globWS = cloneVec(globalSize)
	d.last.locWS = cloneVec(localSize)
	return d.emit(out)
}

func (d *fakeDriver) ReleaseEvent(ev driver.EventID) driver.Status {
	d.calls = append(d.calls, "ReleaseEvent")
	d.released = append(d.released, ev)
	return d.status
}

// fakeGLDriver adds the graphics-interop capability to fakeDriver.
type fakeGLDriver struct {
	fakeDriver
}

func (d *fakeGLDriver) EnqueueAcquireGLObjects(q driver.QueueID, objects []uint64, waits []driver.EventID, out *driver.EventID) driver.Status {
	d.record("AcquireGLObjects", waits, out)
	d.last.queue = q
	d.last.objects = cloneVec(objects)
	return d.emit(out)
}

func (d *fakeGLDriver) EnqueueReleaseGLObjects(q driver.QueueID, objects []uint64, waits []driver.EventID, out *driver.EventID) driver.Status {
	d.record("ReleaseGLObjects", waits, out)
	d.last.queue = q
	d.last.objects = cloneVec(objects)
	return d.emit(out)
}

// fakeProfDriver adds the profiling capability to fakeDriver.
type fakeProfDriver struct {
	fakeDriver
	profiles map[driver.EventID]driver.EventProfile
}

func (d *fakeProfDriver) EventProfile(ev driver.EventID) (driver.EventProfile, driver.Status) {
	p, ok := d.profiles[ev]
	if !ok {
		return driver.EventProfile{}, driver.StatusInvalidEvent
	}
	return p, driver.Success
}

// fakeInfoDriver adds the device-description capability to fakeDriver.
type fakeInfoDriver struct {
	fakeDriver
	name string
}

func (d *fakeInfoDriver) DeviceName(dev driver.DeviceID) (string, driver.Status) {
	return d.name, driver.Success
}

// newTestQueue builds a context and an in-order queue on the given driver.
func newTestQueue(t *testing.T, drv driver.Driver, modes ...QueueMode) (*Context, *CommandQueue) {
	t.Helper()
	ctx, err := NewContext(drv, 1)
	if err != nil {
		t.Fatalf("NewContext: %v", err)
	}
	q, err := ctx.Device().CreateCommandQueue(modes...)
	if err != nil {
		t.Fatalf("CreateCommandQueue: %v", err)
	}
	return ctx, q
}

// mustBuffer allocates a buffer or fails the test.
func mustBuffer(t *testing.T, ctx *Context, size uint64) *Buffer {
	t.Helper()
	b, err := ctx.CreateBuffer(size)
	if err != nil {
		t.Fatalf("CreateBuffer: %v", err)
	}
	return b
}

func mustImage2D(t *testing.T, ctx *Context, w, h, pitch uint64) *Image2D {
	t.Helper()
	m, err := ctx.CreateImage2D(w, h, pitch)
	if err != nil {
		t.Fatalf("CreateImage2D: %v", err)
	}
	return m
}

func mustImage3D(t *testing.T, ctx *Context, w, h, d, rowPitch, slicePitch uint64) *Image3D {
	t.Helper()
	m, err := ctx.CreateImage3D(w, h, d, rowPitch, slicePitch)
	if err != nil {
		t.Fatalf("CreateImage3D: %v", err)
	}
	return m
}
