package ocl

import (
	"fmt"

	"github.com/gogpu/ocl/driver"
)

// MemObject is an addressable region on the device: a Buffer, an Image2D or
// an Image3D. The allocation belongs to the Context that created it; a
// CommandQueue only references it for the duration of one enqueued
// operation.
type MemObject interface {
	// memID returns the driver handle.
	memID() driver.MemID

	// String renders the object identity for error messages.
	String() string
}

// MapAccess selects the host access mode of a mapped window.
type MapAccess = driver.MapFlags

// Map access modes.
const (
	MapRead      = driver.MapRead
	MapWrite     = driver.MapWrite
	MapReadWrite = driver.MapReadWrite
)

// Buffer is a linear device allocation of a fixed byte size.
type Buffer struct {
	ctx  *Context
	id   driver.MemID
	size uint64
}

// Size returns the buffer length in bytes.
func (b *Buffer) Size() uint64 { return b.size }

// DriverID exposes the raw driver handle for backend-specific APIs such as
// kernel argument binding.
func (b *Buffer) DriverID() driver.MemID { return b.id }

// String implements fmt.Stringer.
func (b *Buffer) String() string {
	return fmt.Sprintf("Buffer(id=%d size=%d)", b.id, b.size)
}

func (b *Buffer) memID() driver.MemID { return b.id }

// Release frees the device allocation.
func (b *Buffer) Release() error { return b.ctx.releaseMem(b.id, b.String()) }

// Image2D is a two-dimensional device image. Its extents default the region
// of whole-image operations; the driver-facing layout always encodes a
// degenerate third dimension.
type Image2D struct {
	ctx      *Context
	id       driver.MemID
	width    uint64
	height   uint64
	rowPitch uint64
}

// Width returns the image width in pixels.
func (m *Image2D) Width() uint64 { return m.width }

// Height returns the image height in pixels.
func (m *Image2D) Height() uint64 { return m.height }

// RowPitch returns the byte stride of one row, 0 for a driver-chosen packed
// layout.
func (m *Image2D) RowPitch() uint64 { return m.rowPitch }

// DriverID exposes the raw driver handle for backend-specific APIs.
func (m *Image2D) DriverID() driver.MemID { return m.id }

// String implements fmt.Stringer.
func (m *Image2D) String() string {
	return fmt.Sprintf("Image2D(id=%d %dx%d)", m.id, m.width, m.height)
}

func (m *Image2D) memID() driver.MemID { return m.id }

// Release frees the device allocation.
func (m *Image2D) Release() error { return m.ctx.releaseMem(m.id, m.String()) }

// Image3D is a three-dimensional device image.
type Image3D struct {
	ctx        *Context
	id         driver.MemID
	width      uint64
	height     uint64
	depth      uint64
	rowPitch   uint64
	slicePitch uint64
}

// Width returns the image width in pixels.
func (m *Image3D) Width() uint64 { return m.width }

// Height returns the image height in pixels.
func (m *Image3D) Height() uint64 { return m.height }

// Depth returns the image depth in slices.
func (m *Image3D) Depth() uint64 { return m.depth }

// RowPitch returns the byte stride of one row.
func (m *Image3D) RowPitch() uint64 { return m.rowPitch }

// SlicePitch returns the byte stride of one 2D slice.
func (m *Image3D) SlicePitch() uint64 { return m.slicePitch }

// DriverID exposes the raw driver handle for backend-specific APIs.
func (m *Image3D) DriverID() driver.MemID { return m.id }

// String implements fmt.Stringer.
func (m *Image3D) String() string {
	return fmt.Sprintf("Image3D(id=%d %dx%dx%d)", m.id, m.width, m.height, m.depth)
}

func (m *Image3D) memID() driver.MemID { return m.id }

// Release frees the device allocation.
func (m *Image3D) Release() error { return m.ctx.releaseMem(m.id, m.String()) }

// MappedImage is the host-addressable window returned by an image map
// operation, valid until the matching PutUnmapMemory call on the same image.
type MappedImage struct {
	// Data is the host-visible window onto device storage.
	Data []byte

	// RowPitch is the byte stride of one row inside Data.
	RowPitch uint64

	// SlicePitch is the byte stride of one 2D slice inside Data, 0 for 2D
	// images.
	SlicePitch uint64
}
