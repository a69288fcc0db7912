package soft

import (
	"math"
	"math/bits"

	"github.com/gogpu/ocl/driver"
)

// memObject is one host-RAM allocation. Buffers leave the geometry fields
// zero; images are single-channel byte images, so width, pitches and region
// components are all byte quantities. 2D images store depth 1.
type memObject struct {
	ctx  driver.ContextID
	data []byte

	image                bool
	width, height, depth uint64
	rowPitch, slicePitch uint64

	mapped bool
}

// fitsRange reports whether the byte range [offset, offset+size) lies within
// an allocation of total bytes. The sum is never formed, so offsets near the
// uint64 maximum cannot wrap past the check.
func fitsRange(offset, size, total uint64) bool {
	return offset <= total && size <= total-offset
}

// CreateBuffer implements driver.Driver.
func (d *Device) CreateBuffer(ctx driver.ContextID, size uint64) (driver.MemID, driver.Status) {
	if size == 0 {
		return 0, driver.StatusInvalidBufferSize
	}
	if size > math.MaxInt {
		return 0, driver.StatusMemAllocationFailure
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.contexts[ctx]; !ok {
		return 0, driver.StatusInvalidContext
	}
	id := driver.MemID(d.allocID())
	d.mems[id] = &memObject{ctx: ctx, data: make([]byte, size)}
	return id, driver.Success
}

// CreateImage2D implements driver.Driver.
func (d *Device) CreateImage2D(ctx driver.ContextID, width, height, rowPitch uint64) (driver.MemID, driver.Status) {
	return d.createImage(ctx, width, height, 1, rowPitch, 0)
}

// CreateImage3D implements driver.Driver.
func (d *Device) CreateImage3D(ctx driver.ContextID, width, height, depth uint64, rowPitch, slicePitch uint64) (driver.MemID, driver.Status) {
	if depth == 0 {
		return 0, driver.StatusInvalidValue
	}
	return d.createImage(ctx, width, height, depth, rowPitch, slicePitch)
}

func (d *Device) createImage(ctx driver.ContextID, width, height, depth, rowPitch, slicePitch uint64) (driver.MemID, driver.Status) {
	if width == 0 || height == 0 {
		return 0, driver.StatusInvalidValue
	}
	if rowPitch == 0 {
		rowPitch = width
	}
	if rowPitch < width {
		return 0, driver.StatusInvalidValue
	}
	hi, rowSpan := bits.Mul64(rowPitch, height)
	if hi != 0 {
		return 0, driver.StatusInvalidValue
	}
	if slicePitch == 0 {
		slicePitch = rowSpan
	}
	if slicePitch < rowSpan {
		return 0, driver.StatusInvalidValue
	}
	hi, total := bits.Mul64(slicePitch, depth)
	if hi != 0 || total > math.MaxInt {
		return 0, driver.StatusMemAllocationFailure
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.contexts[ctx]; !ok {
		return 0, driver.StatusInvalidContext
	}
	id := driver.MemID(d.allocID())
	d.mems[id] = &memObject{
		ctx: ctx, data: make([]byte, total),
		image: true,
		width: width, height: height, depth: depth,
		rowPitch: rowPitch, slicePitch: slicePitch,
	}
	return id, driver.Success
}

// ReleaseMemObject implements driver.Driver.
func (d *Device) ReleaseMemObject(mem driver.MemID) driver.Status {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.mems[mem]; !ok {
		return driver.StatusInvalidMemObject
	}
	delete(d.mems, mem)
	return driver.Success
}

// Bytes returns the backing storage of a buffer, for registered kernel
// functions to read and write. Ordering against other commands is the
// caller's responsibility through events. Returns nil for unknown handles.
func (d *Device) Bytes(mem driver.MemID) []byte {
	d.mu.Lock()
	defer d.mu.Unlock()
	m, ok := d.mems[mem]
	if !ok {
		return nil
	}
	return m.data
}

// lookupBuffer resolves a buffer handle. Caller holds d.mu.
func (d *Device) lookupBuffer(mem driver.MemID) (*memObject, driver.Status) {
	m, ok := d.mems[mem]
	if !ok || m.image {
		return nil, driver.StatusInvalidMemObject
	}
	return m, driver.Success
}

// lookupImage resolves an image handle. Caller holds d.mu.
func (d *Device) lookupImage(mem driver.MemID) (*memObject, driver.Status) {
	m, ok := d.mems[mem]
	if !ok || !m.image {
		return nil, driver.StatusInvalidMemObject
	}
	return m, driver.Success
}

// checkBox validates a three-component origin and region against the image
// extents.
func (m *memObject) checkBox(origin, region []uint64) driver.Status {
	if len(origin) != 3 || len(region) != 3 {
		return driver.StatusInvalidValue
	}
	if region[0] == 0 || region[1] == 0 || region[2] == 0 {
		return driver.StatusInvalidValue
	}
	if !fitsRange(origin[0], region[0], m.width) ||
		!fitsRange(origin[1], region[1], m.height) ||
		!fitsRange(origin[2], region[2], m.depth) {
		return driver.StatusInvalidValue
	}
	return driver.Success
}

// hostPitches defaults the host-side pitches of one transfer to a packed
// layout of the region.
func hostPitches(region []uint64, rowPitch, slicePitch uint64) (uint64, uint64, driver.Status) {
	if rowPitch == 0 {
		rowPitch = region[0]
	}
	if rowPitch < region[0] {
		return 0, 0, driver.StatusInvalidValue
	}
	hi, rowSpan := bits.Mul64(rowPitch, region[1])
	if hi != 0 {
		return 0, 0, driver.StatusInvalidValue
	}
	if slicePitch == 0 {
		slicePitch = rowSpan
	}
	if slicePitch < rowSpan {
		return 0, 0, driver.StatusInvalidValue
	}
	return rowPitch, slicePitch, driver.Success
}

// hostSpan returns the number of host bytes one transfer touches. ok is
// false when the caller-supplied pitches make the span exceed uint64.
func hostSpan(region []uint64, rowPitch, slicePitch uint64) (uint64, bool) {
	hiS, slices := bits.Mul64(region[2]-1, slicePitch)
	hiR, rows := bits.Mul64(region[1]-1, rowPitch)
	span, c1 := bits.Add64(slices, rows, 0)
	span, c2 := bits.Add64(span, region[0], 0)
	return span, hiS|hiR == 0 && c1|c2 == 0
}

// deviceOffset returns the byte offset of a pixel inside the image.
func (m *memObject) deviceOffset(x, y, z uint64) uint64 {
	return z*m.slicePitch + y*m.rowPitch + x
}

// copyRows walks the region row by row, invoking move for every row's
// device offset and host offset. Caller holds d.mu.
func (m *memObject) copyRows(origin, region [3]uint64, hostRowPitch, hostSlicePitch uint64, move func(devOff, hostOff, n uint64)) {
	for z := uint64(0); z < region[2]; z++ {
		for y := uint64(0); y < region[1]; y++ {
			devOff := m.deviceOffset(origin[0], origin[1]+y, origin[2]+z)
			hostOff := z*hostSlicePitch + y*hostRowPitch
			move(devOff, hostOff, region[0])
		}
	}
}

// === Buffer transfers ===

// EnqueueWriteBuffer implements driver.Driver.
func (d *Device) EnqueueWriteBuffer(q driver.QueueID, mem driver.MemID, blocking bool, offset uint64, src []byte, waits []driver.EventID, out *driver.EventID) driver.Status {
	d.mu.Lock()
	qs, ok := d.queues[q]
	if !ok {
		d.mu.Unlock()
		return driver.StatusInvalidCommandQueue
	}
	m, st := d.lookupBuffer(mem)
	if !st.IsSuccess() {
		d.mu.Unlock()
		return st
	}
	if !fitsRange(offset, uint64(len(src)), uint64(len(m.data))) {
		d.mu.Unlock()
		return driver.StatusInvalidValue
	}
	ev, deps, st := d.begin(qs, waits, out)
	d.mu.Unlock()
	if !st.IsSuccess() {
		return st
	}
	return d.run(ev, deps, blocking, func() driver.Status {
		d.mu.Lock()
		defer d.mu.Unlock()
		copy(m.data[offset:], src)
		return driver.Success
	})
}

// EnqueueReadBuffer implements driver.Driver.
func (d *Device) EnqueueReadBuffer(q driver.QueueID, mem driver.MemID, blocking bool, offset uint64, dst []byte, waits []driver.EventID, out *driver.EventID) driver.Status {
	d.mu.Lock()
	qs, ok := d.queues[q]
	if !ok {
		d.mu.Unlock()
		return driver.StatusInvalidCommandQueue
	}
	m, st := d.lookupBuffer(mem)
	if !st.IsSuccess() {
		d.mu.Unlock()
		return st
	}
	if !fitsRange(offset, uint64(len(dst)), uint64(len(m.data))) {
		d.mu.Unlock()
		return driver.StatusInvalidValue
	}
	ev, deps, st := d.begin(qs, waits, out)
	d.mu.Unlock()
	if !st.IsSuccess() {
		return st
	}
	return d.run(ev, deps, blocking, func() driver.Status {
		d.mu.Lock()
		defer d.mu.Unlock()
		copy(dst, m.data[offset:offset+uint64(len(dst))])
		return driver.Success
	})
}

// EnqueueCopyBuffer implements driver.Driver.
func (d *Device) EnqueueCopyBuffer(q driver.QueueID, src, dst driver.MemID, srcOffset, dstOffset, size uint64, waits []driver.EventID, out *driver.EventID) driver.Status {
	d.mu.Lock()
	qs, ok := d.queues[q]
	if !ok {
		d.mu.Unlock()
		return driver.StatusInvalidCommandQueue
	}
	ms, st := d.lookupBuffer(src)
	if !st.IsSuccess() {
		d.mu.Unlock()
		return st
	}
	md, st := d.lookupBuffer(dst)
	if !st.IsSuccess() {
		d.mu.Unlock()
		return st
	}
	if !fitsRange(srcOffset, size, uint64(len(ms.data))) ||
		!fitsRange(dstOffset, size, uint64(len(md.data))) {
		d.mu.Unlock()
		return driver.StatusInvalidValue
	}
	ev, deps, st := d.begin(qs, waits, out)
	d.mu.Unlock()
	if !st.IsSuccess() {
		return st
	}
	return d.run(ev, deps, false, func() driver.Status {
		d.mu.Lock()
		defer d.mu.Unlock()
		copy(md.data[dstOffset:dstOffset+size], ms.data[srcOffset:srcOffset+size])
		return driver.Success
	})
}

// EnqueueFillBuffer implements driver.Driver.
func (d *Device) EnqueueFillBuffer(q driver.QueueID, mem driver.MemID, pattern []byte, offset, size uint64, waits []driver.EventID, out *driver.EventID) driver.Status {
	if len(pattern) == 0 || size%uint64(len(pattern)) != 0 {
		return driver.StatusInvalidValue
	}
	d.mu.Lock()
	qs, ok := d.queues[q]
	if !ok {
		d.mu.Unlock()
		return driver.StatusInvalidCommandQueue
	}
	m, st := d.lookupBuffer(mem)
	if !st.IsSuccess() {
		d.mu.Unlock()
		return st
	}
	if !fitsRange(offset, size, uint64(len(m.data))) {
		d.mu.Unlock()
		return driver.StatusInvalidValue
	}
	ev, deps, st := d.begin(qs, waits, out)
	d.mu.Unlock()
	if !st.IsSuccess() {
		return st
	}
	return d.run(ev, deps, false, func() driver.Status {
		d.mu.Lock()
		defer d.mu.Unlock()
		for off := offset; off < offset+size; off += uint64(len(pattern)) {
			copy(m.data[off:], pattern)
		}
		return driver.Success
	})
}

// === Image transfers ===

// EnqueueWriteImage implements driver.Driver.
func (d *Device) EnqueueWriteImage(q driver.QueueID, mem driver.MemID, blocking bool, origin, region []uint64, rowPitch, slicePitch uint64, src []byte, waits []driver.EventID, out *driver.EventID) driver.Status {
	return d.imageTransfer(q, mem, blocking, origin, region, rowPitch, slicePitch, uint64(len(src)), waits, out,
		func(m *memObject, o, r [3]uint64, hostRowPitch, hostSlicePitch uint64) {
			m.copyRows(o, r, hostRowPitch, hostSlicePitch, func(devOff, hostOff, n uint64) {
				copy(m.data[devOff:devOff+n], src[hostOff:hostOff+n])
			})
		})
}

// EnqueueReadImage implements driver.Driver.
func (d *Device) EnqueueReadImage(q driver.QueueID, mem driver.MemID, blocking bool, origin, region []uint64, rowPitch, slicePitch uint64, dst []byte, waits []driver.EventID, out *driver.EventID) driver.Status {
	return d.imageTransfer(q, mem, blocking, origin, region, rowPitch, slicePitch, uint64(len(dst)), waits, out,
		func(m *memObject, o, r [3]uint64, hostRowPitch, hostSlicePitch uint64) {
			m.copyRows(o, r, hostRowPitch, hostSlicePitch, func(devOff, hostOff, n uint64) {
				copy(dst[hostOff:hostOff+n], m.data[devOff:devOff+n])
			})
		})
}

// imageTransfer shares validation and submission between image reads and
// writes. The origin and region slices alias caller scratch storage, so
// they are copied into arrays before the command goroutine consumes them.
func (d *Device) imageTransfer(q driver.QueueID, mem driver.MemID, blocking bool, origin, region []uint64, rowPitch, slicePitch, hostLen uint64, waits []driver.EventID, out *driver.EventID, move func(m *memObject, o, r [3]uint64, hostRowPitch, hostSlicePitch uint64)) driver.Status {
	d.mu.Lock()
	qs, ok := d.queues[q]
	if !ok {
		d.mu.Unlock()
		return driver.StatusInvalidCommandQueue
	}
	m, st := d.lookupImage(mem)
	if !st.IsSuccess() {
		d.mu.Unlock()
		return st
	}
	if st := m.checkBox(origin, region); !st.IsSuccess() {
		d.mu.Unlock()
		return st
	}
	hostRowPitch, hostSlicePitch, st := hostPitches(region, rowPitch, slicePitch)
	if !st.IsSuccess() {
		d.mu.Unlock()
		return st
	}
	span, ok := hostSpan(region, hostRowPitch, hostSlicePitch)
	if !ok || span > hostLen {
		d.mu.Unlock()
		return driver.StatusInvalidValue
	}
	o := [3]uint64{origin[0], origin[1], origin[2]}
	re := [3]uint64{region[0], region[1], region[2]}
	ev, deps, st := d.begin(qs, waits, out)
	d.mu.Unlock()
	if !st.IsSuccess() {
		return st
	}
	return d.run(ev, deps, blocking, func() driver.Status {
		d.mu.Lock()
		defer d.mu.Unlock()
		move(m, o, re, hostRowPitch, hostSlicePitch)
		return driver.Success
	})
}

// EnqueueCopyImage implements driver.Driver.
func (d *Device) EnqueueCopyImage(q driver.QueueID, src, dst driver.MemID, srcOrigin, dstOrigin, region []uint64, waits []driver.EventID, out *driver.EventID) driver.Status {
	d.mu.Lock()
	qs, ok := d.queues[q]
	if !ok {
		d.mu.Unlock()
		return driver.StatusInvalidCommandQueue
	}
	ms, st := d.lookupImage(src)
	if !st.IsSuccess() {
		d.mu.Unlock()
		return st
	}
	md, st := d.lookupImage(dst)
	if !st.IsSuccess() {
		d.mu.Unlock()
		return st
	}
	if st := ms.checkBox(srcOrigin, region); !st.IsSuccess() {
		d.mu.Unlock()
		return st
	}
	if st := md.checkBox(dstOrigin, region); !st.IsSuccess() {
		d.mu.Unlock()
		return st
	}
	so := [3]uint64{srcOrigin[0], srcOrigin[1], srcOrigin[2]}
	do := [3]uint64{dstOrigin[0], dstOrigin[1], dstOrigin[2]}
	re := [3]uint64{region[0], region[1], region[2]}
	ev, deps, st := d.begin(qs, waits, out)
	d.mu.Unlock()
	if !st.IsSuccess() {
		return st
	}
	return d.run(ev, deps, false, func() driver.Status {
		d.mu.Lock()
		defer d.mu.Unlock()
		for z := uint64(0); z < re[2]; z++ {
			for y := uint64(0); y < re[1]; y++ {
				sOff := ms.deviceOffset(so[0], so[1]+y, so[2]+z)
				dOff := md.deviceOffset(do[0], do[1]+y, do[2]+z)
				copy(md.data[dOff:dOff+re[0]], ms.data[sOff:sOff+re[0]])
			}
		}
		return driver.Success
	})
}

// EnqueueCopyBufferToImage implements driver.Driver. Buffer contents are
// read as packed region rows starting at srcOffset.
func (d *Device) EnqueueCopyBufferToImage(q driver.QueueID, src, dst driver.MemID, srcOffset uint64, dstOrigin, region []uint64, waits []driver.EventID, out *driver.EventID) driver.Status {
	d.mu.Lock()
	qs, ok := d.queues[q]
	if !ok {
		d.mu.Unlock()
		return driver.StatusInvalidCommandQueue
	}
	ms, st := d.lookupBuffer(src)
	if !st.IsSuccess() {
		d.mu.Unlock()
		return st
	}
	md, st := d.lookupImage(dst)
	if !st.IsSuccess() {
		d.mu.Unlock()
		return st
	}
	if st := md.checkBox(dstOrigin, region); !st.IsSuccess() {
		d.mu.Unlock()
		return st
	}
	span := region[0] * region[1] * region[2]
	if !fitsRange(srcOffset, span, uint64(len(ms.data))) {
		d.mu.Unlock()
		return driver.StatusInvalidValue
	}
	do := [3]uint64{dstOrigin[0], dstOrigin[1], dstOrigin[2]}
	re := [3]uint64{region[0], region[1], region[2]}
	ev, deps, st := d.begin(qs, waits, out)
	d.mu.Unlock()
	if !st.IsSuccess() {
		return st
	}
	return d.run(ev, deps, false, func() driver.Status {
		d.mu.Lock()
		defer d.mu.Unlock()
		off := srcOffset
		for z := uint64(0); z < re[2]; z++ {
			for y := uint64(0); y < re[1]; y++ {
				dOff := md.deviceOffset(do[0], do[1]+y, do[2]+z)
				copy(md.data[dOff:dOff+re[0]], ms.data[off:off+re[0]])
				off += re[0]
			}
		}
		return driver.Success
	})
}

// EnqueueCopyImageToBuffer implements driver.Driver. Buffer contents are
// written as packed region rows starting at dstOffset.
func (d *Device) EnqueueCopyImageToBuffer(q driver.QueueID, src, dst driver.MemID, srcOrigin, region []uint64, dstOffset uint64, waits []driver.EventID, out *driver.EventID) driver.Status {
	d.mu.Lock()
	qs, ok := d.queues[q]
	if !ok {
		d.mu.Unlock()
		return driver.StatusInvalidCommandQueue
	}
	ms, st := d.lookupImage(src)
	if !st.IsSuccess() {
		d.mu.Unlock()
		return st
	}
	md, st := d.lookupBuffer(dst)
	if !st.IsSuccess() {
		d.mu.Unlock()
		return st
	}
	if st := ms.checkBox(srcOrigin, region); !st.IsSuccess() {
		d.mu.Unlock()
		return st
	}
	span := region[0] * region[1] * region[2]
	if !fitsRange(dstOffset, span, uint64(len(md.data))) {
		d.mu.Unlock()
		return driver.StatusInvalidValue
	}
	so := [3]uint64{srcOrigin[0], srcOrigin[1], srcOrigin[2]}
	re := [3]uint64{region[0], region[1], region[2]}
	ev, deps, st := d.begin(qs, waits, out)
	d.mu.Unlock()
	if !st.IsSuccess() {
		return st
	}
	return d.run(ev, deps, false, func() driver.Status {
		d.mu.Lock()
		defer d.mu.Unlock()
		off := dstOffset
		for z := uint64(0); z < re[2]; z++ {
			for y := uint64(0); y < re[1]; y++ {
				sOff := ms.deviceOffset(so[0], so[1]+y, so[2]+z)
				copy(md.data[off:off+re[0]], ms.data[sOff:sOff+re[0]])
				off += re[0]
			}
		}
		return driver.Success
	})
}

// === Mapping ===

// EnqueueMapBuffer implements driver.Driver. The returned window aliases
// device storage, so unmapping is a bookkeeping operation. A buffer can
// carry at most one outstanding mapping.
func (d *Device) EnqueueMapBuffer(q driver.QueueID, mem driver.MemID, blocking bool, flags driver.MapFlags, offset, size uint64, waits []driver.EventID, out *driver.EventID) ([]byte, driver.Status) {
	if flags&driver.MapReadWrite == 0 {
		return nil, driver.StatusInvalidValue
	}
	d.mu.Lock()
	qs, ok := d.queues[q]
	if !ok {
		d.mu.Unlock()
		return nil, driver.StatusInvalidCommandQueue
	}
	m, st := d.lookupBuffer(mem)
	if !st.IsSuccess() {
		d.mu.Unlock()
		return nil, st
	}
	if !fitsRange(offset, size, uint64(len(m.data))) {
		d.mu.Unlock()
		return nil, driver.StatusInvalidValue
	}
	if m.mapped {
		d.mu.Unlock()
		return nil, driver.StatusInvalidOperation
	}
	m.mapped = true
	window := m.data[offset : offset+size]
	ev, deps, st := d.begin(qs, waits, out)
	if st.IsSuccess() {
		ev.abort = func() {
			d.mu.Lock()
			m.mapped = false
			d.mu.Unlock()
		}
	} else {
		m.mapped = false
	}
	d.mu.Unlock()
	if !st.IsSuccess() {
		return nil, st
	}
	if st := d.run(ev, deps, blocking, func() driver.Status { return driver.Success }); !st.IsSuccess() {
		return nil, st
	}
	return window, driver.Success
}

// EnqueueMapImage implements driver.Driver. The window starts at the
// region's origin and carries the image's own pitches.
func (d *Device) EnqueueMapImage(q driver.QueueID, mem driver.MemID, blocking bool, flags driver.MapFlags, origin, region []uint64, waits []driver.EventID, out *driver.EventID) ([]byte, uint64, uint64, driver.Status) {
	if flags&driver.MapReadWrite == 0 {
		return nil, 0, 0, driver.StatusInvalidValue
	}
	d.mu.Lock()
	qs, ok := d.queues[q]
	if !ok {
		d.mu.Unlock()
		return nil, 0, 0, driver.StatusInvalidCommandQueue
	}
	m, st := d.lookupImage(mem)
	if !st.IsSuccess() {
		d.mu.Unlock()
		return nil, 0, 0, st
	}
	if st := m.checkBox(origin, region); !st.IsSuccess() {
		d.mu.Unlock()
		return nil, 0, 0, st
	}
	if m.mapped {
		d.mu.Unlock()
		return nil, 0, 0, driver.StatusInvalidOperation
	}
	m.mapped = true
	start := m.deviceOffset(origin[0], origin[1], origin[2])
	end := m.deviceOffset(origin[0]+region[0]-1, origin[1]+region[1]-1, origin[2]+region[2]-1) + 1
	window := m.data[start:end]
	slicePitch := m.slicePitch
	if m.depth == 1 {
		slicePitch = 0
	}
	rowPitch := m.rowPitch
	ev, deps, st := d.begin(qs, waits, out)
	if st.IsSuccess() {
		ev.abort = func() {
			d.mu.Lock()
			m.mapped = false
			d.mu.Unlock()
		}
	} else {
		m.mapped = false
	}
	d.mu.Unlock()
	if !st.IsSuccess() {
		return nil, 0, 0, st
	}
	if st := d.run(ev, deps, blocking, func() driver.Status { return driver.Success }); !st.IsSuccess() {
		return nil, 0, 0, st
	}
	return window, rowPitch, slicePitch, driver.Success
}

// EnqueueUnmapMemObject implements driver.Driver.
func (d *Device) EnqueueUnmapMemObject(q driver.QueueID, mem driver.MemID, waits []driver.EventID, out *driver.EventID) driver.Status {
	d.mu.Lock()
	qs, ok := d.queues[q]
	if !ok {
		d.mu.Unlock()
		return driver.StatusInvalidCommandQueue
	}
	m, found := d.mems[mem]
	if !found {
		d.mu.Unlock()
		return driver.StatusInvalidMemObject
	}
	if !m.mapped {
		d.mu.Unlock()
		return driver.StatusInvalidOperation
	}
	ev, deps, st := d.begin(qs, waits, out)
	d.mu.Unlock()
	if !st.IsSuccess() {
		return st
	}
	return d.run(ev, deps, false, func() driver.Status {
		d.mu.Lock()
		defer d.mu.Unlock()
		m.mapped = false
		return driver.Success
	})
}
