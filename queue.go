package ocl

import (
	"fmt"
	"strings"

	"github.com/gogpu/ocl/driver"
)

// CommandQueue submits commands to one device. Commands on an in-order
// queue execute in submission order; a queue created with
// OutOfOrderExecMode may reorder them, and correctness then depends on
// explicit condition lists, markers and barriers.
//
// Every enqueue operation takes the same trailing pair of parameters:
// condition, a read-only list of completion tokens the new command must wait
// on (nil means no dependencies), and events, an output list that receives
// the new command's own token on success (nil means the caller does not
// observe completion). An operation that fails, in this layer or in the
// driver, appends nothing.
//
// A CommandQueue reuses a small set of internal argument buffers across
// calls, so enqueue operations allocate nothing. The flip side is that a
// queue must not be shared between goroutines without external locking.
type CommandQueue struct {
	ctx    *Context
	device *Device
	id     driver.QueueID
	drv    driver.Driver
	mode   QueueMode

	scratch  marshaler
	released bool
}

// Context returns the owning context.
func (q *CommandQueue) Context() *Context { return q.ctx }

// Device returns the device this queue submits to.
func (q *CommandQueue) Device() *Device { return q.device }

// ID returns the driver handle for this queue.
func (q *CommandQueue) ID() driver.QueueID { return q.id }

// Modes returns the execution-mode flags currently tracked for the queue.
func (q *CommandQueue) Modes() QueueMode { return q.mode }

// IsOutOfOrderModeEnabled reports whether commands may execute out of
// submission order.
func (q *CommandQueue) IsOutOfOrderModeEnabled() bool {
	return q.mode.Has(OutOfOrderExecMode)
}

// IsProfilingEnabled reports whether completion tokens carry timestamps.
func (q *CommandQueue) IsProfilingEnabled() bool {
	return q.mode.Has(ProfilingMode)
}

// String implements fmt.Stringer.
func (q *CommandQueue) String() string {
	return fmt.Sprintf("CommandQueue(id=%d device=%s mode=%s)", q.id, q.device.Name(), q.mode)
}

// prepare performs the per-enqueue bookkeeping shared by every operation:
// it rejects released queues, resolves the condition list to the dependency
// tokens the driver receives, and reserves the output slot the driver writes
// the new completion token into. A reservation becomes visible only through
// committed, so a failed driver call leaves the output list unchanged.
func (q *CommandQueue) prepare(op string, condition, events *EventList) (waits []driver.EventID, out *driver.EventID, err error) {
	if q.released {
		return nil, nil, &ResourceStateError{Op: op, Err: ErrQueueReleased}
	}
	if condition != nil {
		waits = condition.tokens()
	}
	if events != nil {
		out, err = events.nextSlot()
		if err != nil {
			return nil, nil, &ResourceStateError{Op: op, Err: err, Detail: events.String()}
		}
	}
	return waits, out, nil
}

// committed publishes the output slot reserved by prepare.
func (q *CommandQueue) committed(events *EventList) {
	if events != nil {
		events.commit()
	}
}

// listStates renders the condition and output list states for error
// messages.
func listStates(condition, events *EventList) string {
	var b strings.Builder
	if condition != nil {
		fmt.Fprintf(&b, " cond=%s", condition)
	}
	if events != nil {
		fmt.Fprintf(&b, " events=%s", events)
	}
	return b.String()
}

// === Buffer transfers ===

// PutWriteBuffer transfers len(data) bytes from host memory to the start of
// the buffer. With blocking set the call returns only once the transfer has
// completed; otherwise data must stay untouched until completion.
func (q *CommandQueue) PutWriteBuffer(buf *Buffer, blocking bool, data []byte, condition, events *EventList) error {
	return q.PutWriteBufferRegion(buf, blocking, 0, data, condition, events)
}

// PutWriteBufferRegion transfers len(data) bytes from host memory to the
// buffer starting at offset bytes.
func (q *CommandQueue) PutWriteBufferRegion(buf *Buffer, blocking bool, offset uint64, data []byte, condition, events *EventList) error {
	waits, out, err := q.prepare("WriteBuffer", condition, events)
	if err != nil {
		return err
	}
	if st := q.drv.EnqueueWriteBuffer(q.id, buf.id, blocking, offset, data, waits, out); !st.IsSuccess() {
		return newCommandError("WriteBuffer", st,
			fmt.Sprintf("%s offset=%d len=%d%s", buf, offset, len(data), listStates(condition, events)))
	}
	q.committed(events)
	return nil
}

// PutReadBuffer transfers len(dst) bytes from the start of the buffer to
// host memory.
func (q *CommandQueue) PutReadBuffer(buf *Buffer, blocking bool, dst []byte, condition, events *EventList) error {
	return q.PutReadBufferRegion(buf, blocking, 0, dst, condition, events)
}

// PutReadBufferRegion transfers len(dst) bytes from the buffer starting at
// offset bytes to host memory.
func (q *CommandQueue) PutReadBufferRegion(buf *Buffer, blocking bool, offset uint64, dst []byte, condition, events *EventList) error {
	waits, out, err := q.prepare("ReadBuffer", condition, events)
	if err != nil {
		return err
	}
	if st := q.drv.EnqueueReadBuffer(q.id, buf.id, blocking, offset, dst, waits, out); !st.IsSuccess() {
		return newCommandError("ReadBuffer", st,
			fmt.Sprintf("%s offset=%d len=%d%s", buf, offset, len(dst), listStates(condition, events)))
	}
	q.committed(events)
	return nil
}

// PutCopyBuffer copies the whole of src to the start of dst on the device.
func (q *CommandQueue) PutCopyBuffer(src, dst *Buffer, condition, events *EventList) error {
	return q.PutCopyBufferRegion(src, dst, 0, 0, src.size, condition, events)
}

// PutCopyBufferRegion copies size bytes from src at srcOffset to dst at
// dstOffset on the device.
func (q *CommandQueue) PutCopyBufferRegion(src, dst *Buffer, srcOffset, dstOffset, size uint64, condition, events *EventList) error {
	waits, out, err := q.prepare("CopyBuffer", condition, events)
	if err != nil {
		return err
	}
	if st := q.drv.EnqueueCopyBuffer(q.id, src.id, dst.id, srcOffset, dstOffset, size, waits, out); !st.IsSuccess() {
		return newCommandError("CopyBuffer", st,
			fmt.Sprintf("src=%s srcOffset=%d dst=%s dstOffset=%d size=%d%s",
				src, srcOffset, dst, dstOffset, size, listStates(condition, events)))
	}
	q.committed(events)
	return nil
}

// PutFillBuffer repeats pattern over size bytes of the buffer starting at
// offset. size must be a multiple of len(pattern).
func (q *CommandQueue) PutFillBuffer(buf *Buffer, pattern []byte, offset, size uint64, condition, events *EventList) error {
	waits, out, err := q.prepare("FillBuffer", condition, events)
	if err != nil {
		return err
	}
	if st := q.drv.EnqueueFillBuffer(q.id, buf.id, pattern, offset, size, waits, out); !st.IsSuccess() {
		return newCommandError("FillBuffer", st,
			fmt.Sprintf("%s offset=%d size=%d pattern=%d bytes%s",
				buf, offset, size, len(pattern), listStates(condition, events)))
	}
	q.committed(events)
	return nil
}

// === 2D image transfers ===
//
// 2D operations address the driver with full three-component vectors: the
// origin carries a third component pinned to 0 and the region a third
// component pinned to 1.

// PutWriteImage2D transfers the whole image from host memory using the
// image's own row pitch.
func (q *CommandQueue) PutWriteImage2D(img *Image2D, blocking bool, data []byte, condition, events *EventList) error {
	return q.PutWriteImage2DRegion(img, blocking, 0, 0, img.width, img.height, img.rowPitch, data, condition, events)
}

// PutWriteImage2DRegion transfers a rectangular region from host memory to
// the image. rowPitch is the byte stride of one row inside data, 0 for
// packed rows.
func (q *CommandQueue) PutWriteImage2DRegion(img *Image2D, blocking bool, originX, originY, rangeX, rangeY, rowPitch uint64, data []byte, condition, events *EventList) error {
	waits, out, err := q.prepare("WriteImage2D", condition, events)
	if err != nil {
		return err
	}
	origin := fill3(&q.scratch.vecA, originX, originY, 0)
	region := fill3(&q.scratch.vecB, rangeX, rangeY, 1)
	if st := q.drv.EnqueueWriteImage(q.id, img.id, blocking, origin, region, rowPitch, 0, data, waits, out); !st.IsSuccess() {
		return newCommandError("WriteImage2D", st,
			fmt.Sprintf("%s origin=(%d,%d) range=(%d,%d) rowPitch=%d%s",
				img, originX, originY, rangeX, rangeY, rowPitch, listStates(condition, events)))
	}
	q.committed(events)
	return nil
}

// PutReadImage2D transfers the whole image to host memory using the image's
// own row pitch.
func (q *CommandQueue) PutReadImage2D(img *Image2D, blocking bool, dst []byte, condition, events *EventList) error {
	return q.PutReadImage2DRegion(img, blocking, 0, 0, img.width, img.height, img.rowPitch, dst, condition, events)
}

// PutReadImage2DRegion transfers a rectangular region of the image to host
// memory.
func (q *CommandQueue) PutReadImage2DRegion(img *Image2D, blocking bool, originX, originY, rangeX, rangeY, rowPitch uint64, dst []byte, condition, events *EventList) error {
	waits, out, err := q.prepare("ReadImage2D", condition, events)
	if err != nil {
		return err
	}
	origin := fill3(&q.scratch.vecA, originX, originY, 0)
	region := fill3(&q.scratch.vecB, rangeX, rangeY, 1)
	if st := q.drv.EnqueueReadImage(q.id, img.id, blocking, origin, region, rowPitch, 0, dst, waits, out); !st.IsSuccess() {
		return newCommandError("ReadImage2D", st,
			fmt.Sprintf("%s origin=(%d,%d) range=(%d,%d) rowPitch=%d%s",
				img, originX, originY, rangeX, rangeY, rowPitch, listStates(condition, events)))
	}
	q.committed(events)
	return nil
}

// PutCopyImage2D copies the whole of src to dst at origin (0,0).
func (q *CommandQueue) PutCopyImage2D(src, dst *Image2D, condition, events *EventList) error {
	return q.PutCopyImage2DRegion(src, dst, 0, 0, 0, 0, src.width, src.height, condition, events)
}

// PutCopyImage2DRegion copies a rectangular region between two 2D images on
// the device.
func (q *CommandQueue) PutCopyImage2DRegion(src, dst *Image2D, srcOriginX, srcOriginY, dstOriginX, dstOriginY, rangeX, rangeY uint64, condition, events *EventList) error {
	waits, out, err := q.prepare("CopyImage2D", condition, events)
	if err != nil {
		return err
	}
	srcOrigin := fill3(&q.scratch.vecA, srcOriginX, srcOriginY, 0)
	dstOrigin := fill3(&q.scratch.vecB, dstOriginX, dstOriginY, 0)
	region := fill3(&q.scratch.vecC, rangeX, rangeY, 1)
	if st := q.drv.EnqueueCopyImage(q.id, src.id, dst.id, srcOrigin, dstOrigin, region, waits, out); !st.IsSuccess() {
		return newCommandError("CopyImage2D", st,
			fmt.Sprintf("src=%s srcOrigin=(%d,%d) dst=%s dstOrigin=(%d,%d) range=(%d,%d)%s",
				src, srcOriginX, srcOriginY, dst, dstOriginX, dstOriginY, rangeX, rangeY,
				listStates(condition, events)))
	}
	q.committed(events)
	return nil
}

// PutCopyBufferToImage2D copies the buffer from offset 0 into the whole of
// the image.
func (q *CommandQueue) PutCopyBufferToImage2D(src *Buffer, dst *Image2D, condition, events *EventList) error {
	return q.PutCopyBufferToImage2DRegion(src, dst, 0, 0, 0, dst.width, dst.height, condition, events)
}

// PutCopyBufferToImage2DRegion copies a rectangular region from the buffer,
// starting at srcOffset, into the image.
func (q *CommandQueue) PutCopyBufferToImage2DRegion(src *Buffer, dst *Image2D, srcOffset, dstOriginX, dstOriginY, rangeX, rangeY uint64, condition, events *EventList) error {
	waits, out, err := q.prepare("CopyBufferToImage2D", condition, events)
	if err != nil {
		return err
	}
	dstOrigin := fill3(&q.scratch.vecA, dstOriginX, dstOriginY, 0)
	region := fill3(&q.scratch.vecB, rangeX, rangeY, 1)
	if st := q.drv.EnqueueCopyBufferToImage(q.id, src.id, dst.id, srcOffset, dstOrigin, region, waits, out); !st.IsSuccess() {
		return newCommandError("CopyBufferToImage2D", st,
			fmt.Sprintf("src=%s srcOffset=%d dst=%s dstOrigin=(%d,%d) range=(%d,%d)%s",
				src, srcOffset, dst, dstOriginX, dstOriginY, rangeX, rangeY,
				listStates(condition, events)))
	}
	q.committed(events)
	return nil
}

// PutCopyImageToBuffer2D copies the whole image to the buffer at offset 0.
func (q *CommandQueue) PutCopyImageToBuffer2D(src *Image2D, dst *Buffer, condition, events *EventList) error {
	return q.PutCopyImageToBuffer2DRegion(src, dst, 0, 0, src.width, src.height, 0, condition, events)
}

// PutCopyImageToBuffer2DRegion copies a rectangular region of the image to
// the buffer starting at dstOffset.
func (q *CommandQueue) PutCopyImageToBuffer2DRegion(src *Image2D, dst *Buffer, srcOriginX, srcOriginY, rangeX, rangeY, dstOffset uint64, condition, events *EventList) error {
	waits, out, err := q.prepare("CopyImageToBuffer2D", condition, events)
	if err != nil {
		return err
	}
	srcOrigin := fill3(&q.scratch.vecA, srcOriginX, srcOriginY, 0)
	region := fill3(&q.scratch.vecB, rangeX, rangeY, 1)
	if st := q.drv.EnqueueCopyImageToBuffer(q.id, src.id, dst.id, srcOrigin, region, dstOffset, waits, out); !st.IsSuccess() {
		return newCommandError("CopyImageToBuffer2D", st,
			fmt.Sprintf("src=%s srcOrigin=(%d,%d) range=(%d,%d) dst=%s dstOffset=%d%s",
				src, srcOriginX, srcOriginY, rangeX, rangeY, dst, dstOffset,
				listStates(condition, events)))
	}
	q.committed(events)
	return nil
}

// === 3D image transfers ===

// PutWriteImage3D transfers the whole image from host memory using the
// image's own pitches.
func (q *CommandQueue) PutWriteImage3D(img *Image3D, blocking bool, data []byte, condition, events *EventList) error {
	return q.PutWriteImage3DRegion(img, blocking,
		0, 0, 0, img.width, img.height, img.depth, img.rowPitch, img.slicePitch,
		data, condition, events)
}

// PutWriteImage3DRegion transfers a box-shaped region from host memory to
// the image.
func (q *CommandQueue) PutWriteImage3DRegion(img *Image3D, blocking bool, originX, originY, originZ, rangeX, rangeY, rangeZ, rowPitch, slicePitch uint64, data []byte, condition, events *EventList) error {
	waits, out, err := q.prepare("WriteImage3D", condition, events)
	if err != nil {
		return err
	}
	origin := fill3(&q.scratch.vecA, originX, originY, originZ)
	region := fill3(&q.scratch.vecB, rangeX, rangeY, rangeZ)
	if st := q.drv.EnqueueWriteImage(q.id, img.id, blocking, origin, region, rowPitch, slicePitch, data, waits, out); !st.IsSuccess() {
		return newCommandError("WriteImage3D", st,
			fmt.Sprintf("%s origin=(%d,%d,%d) range=(%d,%d,%d) rowPitch=%d slicePitch=%d%s",
				img, originX, originY, originZ, rangeX, rangeY, rangeZ,
				rowPitch, slicePitch, listStates(condition, events)))
	}
	q.committed(events)
	return nil
}

// PutReadImage3D transfers the whole image to host memory using the image's
// own pitches.
func (q *CommandQueue) PutReadImage3D(img *Image3D, blocking bool, dst []byte, condition, events *EventList) error {
	return q.PutReadImage3DRegion(img, blocking,
		0, 0, 0, img.width, img.height, img.depth, img.rowPitch, img.slicePitch,
		dst, condition, events)
}

// PutReadImage3DRegion transfers a box-shaped region of the image to host
// memory.
func (q *CommandQueue) PutReadImage3DRegion(img *Image3D, blocking bool, originX, originY, originZ, rangeX, rangeY, rangeZ, rowPitch, slicePitch uint64, dst []byte, condition, events *EventList) error {
	waits, out, err := q.prepare("ReadImage3D", condition, events)
	if err != nil {
		return err
	}
	origin := fill3(&q.scratch.vecA, originX, originY, originZ)
	region := fill3(&q.scratch.vecB, rangeX, rangeY, rangeZ)
	if st := q.drv.EnqueueReadImage(q.id, img.id, blocking, origin, region, rowPitch, slicePitch, dst, waits, out); !st.IsSuccess() {
		return newCommandError("ReadImage3D", st,
			fmt.Sprintf("%s origin=(%d,%d,%d) range=(%d,%d,%d) rowPitch=%d slicePitch=%d%s",
				img, originX, originY, originZ, rangeX, rangeY, rangeZ,
				rowPitch, slicePitch, listStates(condition, events)))
	}
	q.committed(events)
	return nil
}

// PutCopyImage3D copies the whole of src to dst at origin (0,0,0).
func (q *CommandQueue) PutCopyImage3D(src, dst *Image3D, condition, events *EventList) error {
	return q.PutCopyImage3DRegion(src, dst, 0, 0, 0, 0, 0, 0,
		src.width, src.height, src.depth, condition, events)
}

// PutCopyImage3DRegion copies a box-shaped region between two 3D images on
// the device.
func (q *CommandQueue) PutCopyImage3DRegion(src, dst *Image3D, srcOriginX, srcOriginY, srcOriginZ, dstOriginX, dstOriginY, dstOriginZ, rangeX, rangeY, rangeZ uint64, condition, events *EventList) error {
	waits, out, err := q.prepare("CopyImage3D", condition, events)
	if err != nil {
		return err
	}
	srcOrigin := fill3(&q.scratch.vecA, srcOriginX, srcOriginY, srcOriginZ)
	dstOrigin := fill3(&q.scratch.vecB, dstOriginX, dstOriginY, dstOriginZ)
	region := fill3(&q.scratch.vecC, rangeX, rangeY, rangeZ)
	if st := q.drv.EnqueueCopyImage(q.id, src.id, dst.id, srcOrigin, dstOrigin, region, waits, out); !st.IsSuccess() {
		return newCommandError("CopyImage3D", st,
			fmt.Sprintf("src=%s srcOrigin=(%d,%d,%d) dst=%s dstOrigin=(%d,%d,%d) range=(%d,%d,%d)%s",
				src, srcOriginX, srcOriginY, srcOriginZ,
				dst, dstOriginX, dstOriginY, dstOriginZ,
				rangeX, rangeY, rangeZ, listStates(condition, events)))
	}
	q.committed(events)
	return nil
}

// PutCopyBufferToImage3D copies the buffer from offset 0 into the whole of
// the image.
func (q *CommandQueue) PutCopyBufferToImage3D(src *Buffer, dst *Image3D, condition, events *EventList) error {
	return q.PutCopyBufferToImage3DRegion(src, dst, 0, 0, 0, 0,
		dst.width, dst.height, dst.depth, condition, events)
}

// PutCopyBufferToImage3DRegion copies a box-shaped region from the buffer,
// starting at srcOffset, into the image.
func (q *CommandQueue) PutCopyBufferToImage3DRegion(src *Buffer, dst *Image3D, srcOffset, dstOriginX, dstOriginY, dstOriginZ, rangeX, rangeY, rangeZ uint64, condition, events *EventList) error {
	waits, out, err := q.prepare("CopyBufferToImage3D", condition, events)
	if err != nil {
		return err
	}
	dstOrigin := fill3(&q.scratch.vecA, dstOriginX, dstOriginY, dstOriginZ)
	region := fill3(&q.scratch.vecB, rangeX, rangeY, rangeZ)
	if st := q.drv.EnqueueCopyBufferToImage(q.id, src.id, dst.id, srcOffset, dstOrigin, region, waits, out); !st.IsSuccess() {
		return newCommandError("CopyBufferToImage3D", st,
			fmt.Sprintf("src=%s srcOffset=%d dst=%s dstOrigin=(%d,%d,%d) range=(%d,%d,%d)%s",
				src, srcOffset, dst, dstOriginX, dstOriginY, dstOriginZ,
				rangeX, rangeY, rangeZ, listStates(condition, events)))
	}
	q.committed(events)
	return nil
}

// PutCopyImageToBuffer3D copies the whole image to the buffer at offset 0.
func (q *CommandQueue) PutCopyImageToBuffer3D(src *Image3D, dst *Buffer, condition, events *EventList) error {
	return q.PutCopyImageToBuffer3DRegion(src, dst, 0, 0, 0,
		src.width, src.height, src.depth, 0, condition, events)
}

// PutCopyImageToBuffer3DRegion copies a box-shaped region of the image to
// the buffer starting at dstOffset.
func (q *CommandQueue) PutCopyImageToBuffer3DRegion(src *Image3D, dst *Buffer, srcOriginX, srcOriginY, srcOriginZ, rangeX, rangeY, rangeZ, dstOffset uint64, condition, events *EventList) error {
	waits, out, err := q.prepare("CopyImageToBuffer3D", condition, events)
	if err != nil {
		return err
	}
	srcOrigin := fill3(&q.scratch.vecA, srcOriginX, srcOriginY, srcOriginZ)
	region := fill3(&q.scratch.vecB, rangeX, rangeY, rangeZ)
	if st := q.drv.EnqueueCopyImageToBuffer(q.id, src.id, dst.id, srcOrigin, region, dstOffset, waits, out); !st.IsSuccess() {
		return newCommandError("CopyImageToBuffer3D", st,
			fmt.Sprintf("src=%s srcOrigin=(%d,%d,%d) range=(%d,%d,%d) dst=%s dstOffset=%d%s",
				src, srcOriginX, srcOriginY, srcOriginZ,
				rangeX, rangeY, rangeZ, dst, dstOffset, listStates(condition, events)))
	}
	q.committed(events)
	return nil
}

// === Mapping ===

// PutMapBuffer maps the whole buffer into host memory. The returned window
// stays valid until PutUnmapMemory on the same buffer.
func (q *CommandQueue) PutMapBuffer(buf *Buffer, blocking bool, access MapAccess, condition, events *EventList) ([]byte, error) {
	return q.PutMapBufferRegion(buf, blocking, access, 0, buf.size, condition, events)
}

// PutMapBufferRegion maps size bytes of the buffer, starting at offset, into
// host memory.
func (q *CommandQueue) PutMapBufferRegion(buf *Buffer, blocking bool, access MapAccess, offset, size uint64, condition, events *EventList) ([]byte, error) {
	waits, out, err := q.prepare("MapBuffer", condition, events)
	if err != nil {
		return nil, err
	}
	data, st := q.drv.EnqueueMapBuffer(q.id, buf.id, blocking, access, offset, size, waits, out)
	if !st.IsSuccess() {
		return nil, newCommandError("MapBuffer", st,
			fmt.Sprintf("%s offset=%d size=%d%s", buf, offset, size, listStates(condition, events)))
	}
	q.committed(events)
	return data, nil
}

// PutMapImage2D maps the whole image into host memory.
func (q *CommandQueue) PutMapImage2D(img *Image2D, blocking bool, access MapAccess, condition, events *EventList) (*MappedImage, error) {
	return q.PutMapImage2DRegion(img, blocking, access, 0, 0, img.width, img.height, condition, events)
}

// PutMapImage2DRegion maps a rectangular region of the image into host
// memory. The returned window reports the row pitch the driver chose.
func (q *CommandQueue) PutMapImage2DRegion(img *Image2D, blocking bool, access MapAccess, originX, originY, rangeX, rangeY uint64, condition, events *EventList) (*MappedImage, error) {
	waits, out, err := q.prepare("MapImage2D", condition, events)
	if err != nil {
		return nil, err
	}
	origin := fill3(&q.scratch.vecA, originX, originY, 0)
	region := fill3(&q.scratch.vecB, rangeX, rangeY, 1)
	data, rowPitch, _, st := q.drv.EnqueueMapImage(q.id, img.id, blocking, access, origin, region, waits, out)
	if !st.IsSuccess() {
		return nil, newCommandError("MapImage2D", st,
			fmt.Sprintf("%s origin=(%d,%d) range=(%d,%d)%s",
				img, originX, originY, rangeX, rangeY, listStates(condition, events)))
	}
	q.committed(events)
	return &MappedImage{Data: data, RowPitch: rowPitch}, nil
}

// PutMapImage3D maps the whole image into host memory.
func (q *CommandQueue) PutMapImage3D(img *Image3D, blocking bool, access MapAccess, condition, events *EventList) (*MappedImage, error) {
	return q.PutMapImage3DRegion(img, blocking, access,
		0, 0, 0, img.width, img.height, img.depth, condition, events)
}

// PutMapImage3DRegion maps a box-shaped region of the image into host
// memory.
func (q *CommandQueue) PutMapImage3DRegion(img *Image3D, blocking bool, access MapAccess, originX, originY, originZ, rangeX, rangeY, rangeZ uint64, condition, events *EventList) (*MappedImage, error) {
	waits, out, err := q.prepare("MapImage3D", condition, events)
	if err != nil {
		return nil, err
	}
	origin := fill3(&q.scratch.vecA, originX, originY, originZ)
	region := fill3(&q.scratch.vecB, rangeX, rangeY, rangeZ)
	data, rowPitch, slicePitch, st := q.drv.EnqueueMapImage(q.id, img.id, blocking, access, origin, region, waits, out)
	if !st.IsSuccess() {
		return nil, newCommandError("MapImage3D", st,
			fmt.Sprintf("%s origin=(%d,%d,%d) range=(%d,%d,%d)%s",
				img, originX, originY, originZ, rangeX, rangeY, rangeZ,
				listStates(condition, events)))
	}
	q.committed(events)
	return &MappedImage{Data: data, RowPitch: rowPitch, SlicePitch: slicePitch}, nil
}

// PutUnmapMemory commits the outstanding mapped window of mem back to the
// device and invalidates it.
func (q *CommandQueue) PutUnmapMemory(mem MemObject, condition, events *EventList) error {
	waits, out, err := q.prepare("UnmapMemory", condition, events)
	if err != nil {
		return err
	}
	if st := q.drv.EnqueueUnmapMemObject(q.id, mem.memID(), waits, out); !st.IsSuccess() {
		return newCommandError("UnmapMemory", st,
			fmt.Sprintf("%s%s", mem, listStates(condition, events)))
	}
	q.committed(events)
	return nil
}

// === Synchronization ===

// PutMarker appends a synchronization point whose completion token lands in
// events once everything previously submitted to the queue has completed.
// events must be non-nil: a marker exists only to produce an observable
// token.
func (q *CommandQueue) PutMarker(events *EventList) error {
	if events == nil {
		return &ResourceStateError{Op: "Marker", Err: ErrNoOutputList}
	}
	_, out, err := q.prepare("Marker", nil, events)
	if err != nil {
		return err
	}
	if st := q.drv.EnqueueMarker(q.id, out); !st.IsSuccess() {
		return newCommandError("Marker", st, listStates(nil, events))
	}
	q.committed(events)
	return nil
}

// PutBarrier blocks further commands on the queue until everything
// previously submitted has completed. No completion token is produced.
func (q *CommandQueue) PutBarrier() error {
	if q.released {
		return &ResourceStateError{Op: "Barrier", Err: ErrQueueReleased}
	}
	if st := q.drv.EnqueueBarrier(q.id); !st.IsSuccess() {
		return newCommandError("Barrier", st, q.String())
	}
	return nil
}

// PutWaitForEvent waits for the single token at index in list. With
// blockingWait the host blocks until the token completes; otherwise the wait
// is queued on the device.
func (q *CommandQueue) PutWaitForEvent(list *EventList, index int, blockingWait bool) error {
	if q.released {
		return &ResourceStateError{Op: "WaitForEvent", Err: ErrQueueReleased}
	}
	if index < 0 || index >= list.Size() {
		return &ResourceStateError{Op: "WaitForEvent", Err: ErrEventOutOfRange,
			Detail: fmt.Sprintf("index %d in %s", index, list)}
	}
	tokens := list.tokens()[index : index+1]
	return q.waitFor("WaitForEvent", tokens, blockingWait)
}

// PutWaitForEvents waits for every token in list. With blockingWait the
// host blocks until all tokens complete; otherwise the wait is queued on the
// device.
func (q *CommandQueue) PutWaitForEvents(list *EventList, blockingWait bool) error {
	if q.released {
		return &ResourceStateError{Op: "WaitForEvents", Err: ErrQueueReleased}
	}
	return q.waitFor("WaitForEvents", list.tokens(), blockingWait)
}

func (q *CommandQueue) waitFor(op string, tokens []driver.EventID, blockingWait bool) error {
	var st driver.Status
	if blockingWait {
		st = q.drv.WaitForEvents(tokens)
	} else {
		st = q.drv.EnqueueWaitForEvents(q.id, tokens)
	}
	if !st.IsSuccess() {
		return newCommandError(op, st, fmt.Sprintf("%d tokens blocking=%t", len(tokens), blockingWait))
	}
	return nil
}

// Flush hands all previously submitted commands to the device without
// waiting for completion.
func (q *CommandQueue) Flush() error {
	if q.released {
		return &ResourceStateError{Op: "Flush", Err: ErrQueueReleased}
	}
	if st := q.drv.Flush(q.id); !st.IsSuccess() {
		return newCommandError("Flush", st, q.String())
	}
	return nil
}

// Finish blocks the host until every previously submitted command on the
// queue has completed.
func (q *CommandQueue) Finish() error {
	if q.released {
		return &ResourceStateError{Op: "Finish", Err: ErrQueueReleased}
	}
	if st := q.drv.Finish(q.id); !st.IsSuccess() {
		return newCommandError("Finish", st, q.String())
	}
	return nil
}

// === Configuration and lifetime ===

// SetProperty enables or disables the given mode flags on the queue.
// Whether a driver honors reconfiguration after creation is driver
// dependent; the tracked mode set is updated only for flags the driver
// accepted. A call naming several flags is not atomic: flags are applied
// one at a time, so when the driver rejects one, flags processed before it
// remain applied and the error reports the rejected flag.
func (q *CommandQueue) SetProperty(mode QueueMode, enable bool) error {
	if q.released {
		return &ResourceStateError{Op: "SetQueueProperty", Err: ErrQueueReleased}
	}
	for _, flag := range []QueueMode{OutOfOrderExecMode, ProfilingMode} {
		if !mode.Has(flag) {
			continue
		}
		if st := q.drv.SetQueueProperty(q.id, flag.flags(), enable); !st.IsSuccess() {
			return newCommandError("SetQueueProperty", st,
				fmt.Sprintf("flag=%s enable=%t", flag, enable))
		}
		if enable {
			q.mode |= flag
		} else {
			q.mode &^= flag
		}
	}
	if unknown := mode &^ knownModes; unknown != 0 {
		return &ResourceStateError{Op: "SetQueueProperty", Err: ErrUnknownMode,
			Detail: fmt.Sprintf("bits %#x", uint64(unknown))}
	}
	return nil
}

// Release destroys the native queue. Commands already submitted keep
// executing; further calls on the queue fail with ErrQueueReleased.
// Releasing a queue twice is a client error.
func (q *CommandQueue) Release() error {
	if q.released {
		return &ResourceStateError{Op: "ReleaseQueue", Err: ErrQueueReleased}
	}
	q.released = true
	q.ctx.onQueueReleased(q)
	if st := q.drv.ReleaseQueue(q.id); !st.IsSuccess() {
		return newCommandError("ReleaseQueue", st, q.String())
	}
	return nil
}
