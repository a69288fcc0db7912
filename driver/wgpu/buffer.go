package wgpu

import (
	"log/slog"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/ocl/driver"
)

// buffer is one storage buffer on the HAL device. A mapped buffer carries a
// host-side cache window that is written back on unmap when the mapping
// allowed writes.
type buffer struct {
	handle hal.Buffer
	size   uint64

	mapCache  []byte
	mapOffset uint64
	mapWrite  bool
}

// CreateBuffer implements driver.Driver.
func (d *Device) CreateBuffer(ctx driver.ContextID, size uint64) (driver.MemID, driver.Status) {
	if size == 0 {
		return 0, driver.StatusInvalidBufferSize
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.contexts[ctx]; !ok {
		return 0, driver.StatusInvalidContext
	}
	handle, err := d.device.CreateBuffer(&hal.BufferDescriptor{
		Label: "ocl_buffer",
		Size:  size,
		Usage: gputypes.BufferUsageStorage | gputypes.BufferUsageCopySrc | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		d.log.Warn("wgpu: buffer allocation failed",
			slog.Uint64("size", size), slog.String("err", err.Error()))
		return 0, driver.StatusMemAllocationFailure
	}
	id := driver.MemID(d.allocID())
	d.buffers[id] = &buffer{handle: handle, size: size}
	return id, driver.Success
}

// CreateImage2D implements driver.Driver. Images are not expressible on
// this backend.
func (d *Device) CreateImage2D(ctx driver.ContextID, width, height, rowPitch uint64) (driver.MemID, driver.Status) {
	return 0, driver.StatusNotSupported
}

// CreateImage3D implements driver.Driver.
func (d *Device) CreateImage3D(ctx driver.ContextID, width, height, depth, rowPitch, slicePitch uint64) (driver.MemID, driver.Status) {
	return 0, driver.StatusNotSupported
}

// ReleaseMemObject implements driver.Driver.
func (d *Device) ReleaseMemObject(mem driver.MemID) driver.Status {
	d.mu.Lock()
	defer d.mu.Unlock()
	b, ok := d.buffers[mem]
	if !ok {
		return driver.StatusInvalidMemObject
	}
	d.device.DestroyBuffer(b.handle)
	delete(d.buffers, mem)
	return driver.Success
}

// fitsRange reports whether the byte range [offset, offset+size) lies within
// an allocation of total bytes. The sum is never formed, so offsets near the
// uint64 maximum cannot wrap past the check.
func fitsRange(offset, size, total uint64) bool {
	return offset <= total && size <= total-offset
}

// lookupBuffer resolves a buffer handle. Caller holds d.mu.
func (d *Device) lookupBuffer(mem driver.MemID) (*buffer, driver.Status) {
	b, ok := d.buffers[mem]
	if !ok {
		return nil, driver.StatusInvalidMemObject
	}
	return b, driver.Success
}

// EnqueueWriteBuffer implements driver.Driver. The transfer always
// completes before returning.
func (d *Device) EnqueueWriteBuffer(q driver.QueueID, mem driver.MemID, blocking bool, offset uint64, src []byte, waits []driver.EventID, out *driver.EventID) driver.Status {
	d.mu.Lock()
	defer d.mu.Unlock()
	if st := d.checkQueue(q); !st.IsSuccess() {
		return st
	}
	if st := d.checkWaits(waits); !st.IsSuccess() {
		return st
	}
	b, st := d.lookupBuffer(mem)
	if !st.IsSuccess() {
		return st
	}
	if !fitsRange(offset, uint64(len(src)), b.size) {
		return driver.StatusInvalidValue
	}
	d.queue.WriteBuffer(b.handle, offset, src)
	d.emit(out)
	return driver.Success
}

// EnqueueReadBuffer implements driver.Driver. The buffer contents are
// copied into a mappable staging buffer and read back from there.
func (d *Device) EnqueueReadBuffer(q driver.QueueID, mem driver.MemID, blocking bool, offset uint64, dst []byte, waits []driver.EventID, out *driver.EventID) driver.Status {
	d.mu.Lock()
	defer d.mu.Unlock()
	if st := d.checkQueue(q); !st.IsSuccess() {
		return st
	}
	if st := d.checkWaits(waits); !st.IsSuccess() {
		return st
	}
	b, st := d.lookupBuffer(mem)
	if !st.IsSuccess() {
		return st
	}
	if !fitsRange(offset, uint64(len(dst)), b.size) {
		return driver.StatusInvalidValue
	}
	if err := d.readBack(b, offset, dst); err != nil {
		d.log.Warn("wgpu: buffer read failed", slog.String("err", err.Error()))
		return driver.StatusInvalidOperation
	}
	d.emit(out)
	return driver.Success
}

// readBack copies size bytes of src into dst through a staging buffer.
// Caller holds d.mu.
func (d *Device) readBack(b *buffer, offset uint64, dst []byte) error {
	size := uint64(len(dst))
	if size == 0 {
		return nil
	}
	staging, err := d.device.CreateBuffer(&hal.BufferDescriptor{
		Label: "ocl_staging",
		Size:  size,
		Usage: gputypes.BufferUsageMapRead | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return err
	}
	defer d.device.DestroyBuffer(staging)

	err = d.submit("ocl_read", func(enc hal.CommandEncoder) error {
		enc.CopyBufferToBuffer(b.handle, staging, []hal.BufferCopy{
			{SrcOffset: offset, DstOffset: 0, Size: size},
		})
		return nil
	})
	if err != nil {
		return err
	}
	return d.queue.ReadBuffer(staging, 0, dst)
}

// EnqueueCopyBuffer implements driver.Driver.
func (d *Device) EnqueueCopyBuffer(q driver.QueueID, src, dst driver.MemID, srcOffset, dstOffset, size uint64, waits []driver.EventID, out *driver.EventID) driver.Status {
	d.mu.Lock()
	defer d.mu.Unlock()
	if st := d.checkQueue(q); !st.IsSuccess() {
		return st
	}
	if st := d.checkWaits(waits); !st.IsSuccess() {
		return st
	}
	bs, st := d.lookupBuffer(src)
	if !st.IsSuccess() {
		return st
	}
	bd, st := d.lookupBuffer(dst)
	if !st.IsSuccess() {
		return st
	}
	if !fitsRange(srcOffset, size, bs.size) || !fitsRange(dstOffset, size, bd.size) {
		return driver.StatusInvalidValue
	}
	err := d.submit("ocl_copy", func(enc hal.CommandEncoder) error {
		enc.CopyBufferToBuffer(bs.handle, bd.handle, []hal.BufferCopy{
			{SrcOffset: srcOffset, DstOffset: dstOffset, Size: size},
		})
		return nil
	})
	if err != nil {
		d.log.Warn("wgpu: buffer copy failed", slog.String("err", err.Error()))
		return driver.StatusInvalidOperation
	}
	d.emit(out)
	return driver.Success
}

// EnqueueFillBuffer implements driver.Driver. The pattern is replicated on
// the host and uploaded in one write.
func (d *Device) EnqueueFillBuffer(q driver.QueueID, mem driver.MemID, pattern []byte, offset, size uint64, waits []driver.EventID, out *driver.EventID) driver.Status {
	if len(pattern) == 0 || size%uint64(len(pattern)) != 0 {
		return driver.StatusInvalidValue
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if st := d.checkQueue(q); !st.IsSuccess() {
		return st
	}
	if st := d.checkWaits(waits); !st.IsSuccess() {
		return st
	}
	b, st := d.lookupBuffer(mem)
	if !st.IsSuccess() {
		return st
	}
	if !fitsRange(offset, size, b.size) {
		return driver.StatusInvalidValue
	}
	expanded := make([]byte, size)
	for off := uint64(0); off < size; off += uint64(len(pattern)) {
		copy(expanded[off:], pattern)
	}
	d.queue.WriteBuffer(b.handle, offset, expanded)
	d.emit(out)
	return driver.Success
}

// === Image transfers: not expressible on this backend ===

func (d *Device) EnqueueWriteImage(q driver.QueueID, mem driver.MemID, blocking bool, origin, region []uint64, rowPitch, slicePitch uint64, src []byte, waits []driver.EventID, out *driver.EventID) driver.Status {
	return driver.StatusNotSupported
}

func (d *Device) EnqueueReadImage(q driver.QueueID, mem driver.MemID, blocking bool, origin, region []uint64, rowPitch, slicePitch uint64, dst []byte, waits []driver.EventID, out *driver.EventID) driver.Status {
	return driver.StatusNotSupported
}

func (d *Device) EnqueueCopyImage(q driver.QueueID, src, dst driver.MemID, srcOrigin, dstOrigin, region []uint64, waits []driver.EventID, out *driver.EventID) driver.Status {
	return driver.StatusNotSupported
}

func (d *Device) EnqueueCopyBufferToImage(q driver.QueueID, src, dst driver.MemID, srcOffset uint64, dstOrigin, region []uint64, waits []driver.EventID, out *driver.EventID) driver.Status {
	return driver.StatusNotSupported
}

func (d *Device) EnqueueCopyImageToBuffer(q driver.QueueID, src, dst driver.MemID, srcOrigin, region []uint64, dstOffset uint64, waits []driver.EventID, out *driver.EventID) driver.Status {
	return driver.StatusNotSupported
}

// === Mapping ===

// EnqueueMapBuffer implements driver.Driver. The window is a host-side
// cache of the mapped range; writes land on the device when the buffer is
// unmapped.
func (d *Device) EnqueueMapBuffer(q driver.QueueID, mem driver.MemID, blocking bool, flags driver.MapFlags, offset, size uint64, waits []driver.EventID, out *driver.EventID) ([]byte, driver.Status) {
	if flags&driver.MapReadWrite == 0 {
		return nil, driver.StatusInvalidValue
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if st := d.checkQueue(q); !st.IsSuccess() {
		return nil, st
	}
	if st := d.checkWaits(waits); !st.IsSuccess() {
		return nil, st
	}
	b, st := d.lookupBuffer(mem)
	if !st.IsSuccess() {
		return nil, st
	}
	if !fitsRange(offset, size, b.size) {
		return nil, driver.StatusInvalidValue
	}
	if b.mapCache != nil {
		return nil, driver.StatusInvalidOperation
	}
	cache := make([]byte, size)
	if flags&driver.MapRead != 0 {
		if err := d.readBack(b, offset, cache); err != nil {
			d.log.Warn("wgpu: map read failed", slog.String("err", err.Error()))
			return nil, driver.StatusMapFailure
		}
	}
	b.mapCache = cache
	b.mapOffset = offset
	b.mapWrite = flags&driver.MapWrite != 0
	d.emit(out)
	return cache, driver.Success
}

// EnqueueMapImage implements driver.Driver.
func (d *Device) EnqueueMapImage(q driver.QueueID, mem driver.MemID, blocking bool, flags driver.MapFlags, origin, region []uint64, waits []driver.EventID, out *driver.EventID) ([]byte, uint64, uint64, driver.Status) {
	return nil, 0, 0, driver.StatusNotSupported
}

// EnqueueUnmapMemObject implements driver.Driver.
func (d *Device) EnqueueUnmapMemObject(q driver.QueueID, mem driver.MemID, waits []driver.EventID, out *driver.EventID) driver.Status {
	d.mu.Lock()
	defer d.mu.Unlock()
	if st := d.checkQueue(q); !st.IsSuccess() {
		return st
	}
	if st := d.checkWaits(waits); !st.IsSuccess() {
		return st
	}
	b, st := d.lookupBuffer(mem)
	if !st.IsSuccess() {
		return st
	}
	if b.mapCache == nil {
		return driver.StatusInvalidOperation
	}
	if b.mapWrite {
		d.queue.WriteBuffer(b.handle, b.mapOffset, b.mapCache)
	}
	b.mapCache = nil
	b.mapOffset = 0
	b.mapWrite = false
	d.emit(out)
	return driver.Success
}
