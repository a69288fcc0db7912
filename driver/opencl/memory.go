//go:build opencl

package opencl

/*
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
	"unsafe"

	"github.com/gogpu/ocl/driver"
)

// Images are allocated as single-channel 8-bit images (CL_R /
// CL_UNSIGNED_INT8), matching the one-byte-per-pixel layout the command
// layer's pitches assume.
var byteImageFormat = C.cl_image_format{
	image_channel_order:     C.CL_R,
	image_channel_data_type: C.CL_UNSIGNED_INT8,
}

// CreateBuffer implements driver.Driver.
func (d *Device) CreateBuffer(ctx driver.ContextID, size uint64) (driver.MemID, driver.Status) {
	d.mu.Lock()
	clCtx, ok := d.contexts[ctx]
	d.mu.Unlock()
	if !ok {
		return 0, driver.StatusInvalidContext
	}
	var rc C.cl_int
	mem := C.clCreateBuffer(clCtx, C.CL_MEM_READ_WRITE, C.size_t(size), nil, &rc)
	if rc != C.CL_SUCCESS {
		return 0, toStatus(rc)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	id := driver.MemID(d.allocID())
	d.mems[id] = mem
	return id, driver.Success
}

// CreateImage2D implements driver.Driver.
func (d *Device) CreateImage2D(ctx driver.ContextID, width, height, rowPitch uint64) (driver.MemID, driver.Status) {
	d.mu.Lock()
	clCtx, ok := d.contexts[ctx]
	d.mu.Unlock()
	if !ok {
		return 0, driver.StatusInvalidContext
	}
	var rc C.cl_int
	mem := C.clCreateImage2D(clCtx, C.CL_MEM_READ_WRITE, &byteImageFormat,
		C.size_t(width), C.size_t(height), C.size_t(rowPitch), nil, &rc)
	if rc != C.CL_SUCCESS {
		return 0, toStatus(rc)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	id := driver.MemID(d.allocID())
	d.mems[id] = mem
	return id, driver.Success
}

// CreateImage3D implements driver.Driver.
func (d *Device) CreateImage3D(ctx driver.ContextID, width, height, depth, rowPitch, slicePitch uint64) (driver.MemID, driver.Status) {
	d.mu.Lock()
	clCtx, ok := d.contexts[ctx]
	d.mu.Unlock()
	if !ok {
		return 0, driver.StatusInvalidContext
	}
	var rc C.cl_int
	mem := C.clCreateImage3D(clCtx, C.CL_MEM_READ_WRITE, &byteImageFormat,
		C.size_t(width), C.size_t(height), C.size_t(depth),
		C.size_t(rowPitch), C.size_t(slicePitch), nil, &rc)
	if rc != C.CL_SUCCESS {
		return 0, toStatus(rc)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	id := driver.MemID(d.allocID())
	d.mems[id] = mem
	return id, driver.Success
}

// ReleaseMemObject implements driver.Driver.
func (d *Device) ReleaseMemObject(mem driver.MemID) driver.Status {
	d.mu.Lock()
	native, ok := d.mems[mem]
	delete(d.mems, mem)
	delete(d.mapPtrs, mem)
	d.mu.Unlock()
	if !ok {
		return driver.StatusInvalidMemObject
	}
	return toStatus(C.clReleaseMemObject(native))
}

// enqueueArgs resolves the queue, memory object and wait list of one
// transfer in a single critical section.
func (d *Device) enqueueArgs(q driver.QueueID, mem driver.MemID, waits []driver.EventID) (C.cl_command_queue, C.cl_mem, []C.cl_event, driver.Status) {
	d.mu.Lock()
	defer d.mu.Unlock()
	clQ, ok := d.queues[q]
	if !ok {
		return nil, nil, nil, driver.StatusInvalidCommandQueue
	}
	clMem, ok := d.mems[mem]
	if !ok {
		return nil, nil, nil, driver.StatusInvalidMemObject
	}
	evs, st := d.waitList(waits)
	if !st.IsSuccess() {
		return nil, nil, nil, st
	}
	return clQ, clMem, evs, driver.Success
}

func hostPtr(data []byte) unsafe.Pointer {
	if len(data) == 0 {
		return nil
	}
	return unsafe.Pointer(&data[0])
}

// EnqueueWriteBuffer implements driver.Driver.
func (d *Device) EnqueueWriteBuffer(q driver.QueueID, mem driver.MemID, blocking bool, offset uint64, src []byte, waits []driver.EventID, out *driver.EventID) driver.Status {
	clQ, clMem, evs, st := d.enqueueArgs(q, mem, waits)
	if !st.IsSuccess() {
		return st
	}
	var ev C.cl_event
	rc := C.clEnqueueWriteBuffer(clQ, clMem, clBool(blocking), C.size_t(offset),
		C.size_t(len(src)), hostPtr(src),
		C.cl_uint(len(evs)), eventsPtr(evs), eventSlot(out, &ev))
	if rc != C.CL_SUCCESS {
		return toStatus(rc)
	}
	d.mu.Lock()
	d.adopt(out, ev)
	d.mu.Unlock()
	return driver.Success
}

// EnqueueReadBuffer implements driver.Driver.
func (d *Device) EnqueueReadBuffer(q driver.QueueID, mem driver.MemID, blocking bool, offset uint64, dst []byte, waits []driver.EventID, out *driver.EventID) driver.Status {
	clQ, clMem, evs, st := d.enqueueArgs(q, mem, waits)
	if !st.IsSuccess() {
		return st
	}
	var ev C.cl_event
	rc := C.clEnqueueReadBuffer(clQ, clMem, clBool(blocking), C.size_t(offset),
		C.size_t(len(dst)), hostPtr(dst),
		C.cl_uint(len(evs)), eventsPtr(evs), eventSlot(out, &ev))
	if rc != C.CL_SUCCESS {
		return toStatus(rc)
	}
	d.mu.Lock()
	d.adopt(out, ev)
	d.mu.Unlock()
	return driver.Success
}

// EnqueueCopyBuffer implements driver.Driver.
func (d *Device) EnqueueCopyBuffer(q driver.QueueID, src, dst driver.MemID, srcOffset, dstOffset, size uint64, waits []driver.EventID, out *driver.EventID) driver.Status {
	clQ, clSrc, evs, st := d.enqueueArgs(q, src, waits)
	if !st.IsSuccess() {
		return st
	}
	clDst, st := d.lookupMem(dst)
	if !st.IsSuccess() {
		return st
	}
	var ev C.cl_event
	rc := C.clEnqueueCopyBuffer(clQ, clSrc, clDst,
		C.size_t(srcOffset), C.size_t(dstOffset), C.size_t(size),
		C.cl_uint(len(evs)), eventsPtr(evs), eventSlot(out, &ev))
	if rc != C.CL_SUCCESS {
		return toStatus(rc)
	}
	d.mu.Lock()
	d.adopt(out, ev)
	d.mu.Unlock()
	return driver.Success
}

// EnqueueFillBuffer implements driver.Driver.
func (d *Device) EnqueueFillBuffer(q driver.QueueID, mem driver.MemID, pattern []byte, offset, size uint64, waits []driver.EventID, out *driver.EventID) driver.Status {
	if len(pattern) == 0 {
		return driver.StatusInvalidValue
	}
	clQ, clMem, evs, st := d.enqueueArgs(q, mem, waits)
	if !st.IsSuccess() {
		return st
	}
	var ev C.cl_event
	rc := C.clEnqueueFillBuffer(clQ, clMem, hostPtr(pattern), C.size_t(len(pattern)),
		C.size_t(offset), C.size_t(size),
		C.cl_uint(len(evs)), eventsPtr(evs), eventSlot(out, &ev))
	if rc != C.CL_SUCCESS {
		return toStatus(rc)
	}
	d.mu.Lock()
	d.adopt(out, ev)
	d.mu.Unlock()
	return driver.Success
}

// EnqueueWriteImage implements driver.Driver.
func (d *Device) EnqueueWriteImage(q driver.QueueID, mem driver.MemID, blocking bool, origin, region []uint64, rowPitch, slicePitch uint64, src []byte, waits []driver.EventID, out *driver.EventID) driver.Status {
	clQ, clMem, evs, st := d.enqueueArgs(q, mem, waits)
	if !st.IsSuccess() {
		return st
	}
	cOrigin, cRegion := sizeVec(origin), sizeVec(region)
	var ev C.cl_event
	rc := C.clEnqueueWriteImage(clQ, clMem, clBool(blocking),
		&cOrigin[0], &cRegion[0], C.size_t(rowPitch), C.size_t(slicePitch), hostPtr(src),
		C.cl_uint(len(evs)), eventsPtr(evs), eventSlot(out, &ev))
	if rc != C.CL_SUCCESS {
		return toStatus(rc)
	}
	d.mu.Lock()
	d.adopt(out, ev)
	d.mu.Unlock()
	return driver.Success
}

// EnqueueReadImage implements driver.Driver.
func (d *Device) EnqueueReadImage(q driver.QueueID, mem driver.MemID, blocking bool, origin, region []uint64, rowPitch, slicePitch uint64, dst []byte, waits []driver.EventID, out *driver.EventID) driver.Status {
	clQ, clMem, evs, st := d.enqueueArgs(q, mem, waits)
	if !st.IsSuccess() {
		return st
	}
	cOrigin, cRegion := sizeVec(origin), sizeVec(region)
	var ev C.cl_event
	rc := C.clEnqueueReadImage(clQ, clMem, clBool(blocking),
		&cOrigin[0], &cRegion[0], C.size_t(rowPitch), C.size_t(slicePitch), hostPtr(dst),
		C.cl_uint(len(evs)), eventsPtr(evs), eventSlot(out, &ev))
	if rc != C.CL_SUCCESS {
		return toStatus(rc)
	}
	d.mu.Lock()
	d.adopt(out, ev)
	d.mu.Unlock()
	return driver.Success
}

// EnqueueCopyImage implements driver.Driver.
func (d *Device) EnqueueCopyImage(q driver.QueueID, src, dst driver.MemID, srcOrigin, dstOrigin, region []uint64, waits []driver.EventID, out *driver.EventID) driver.Status {
	clQ, clSrc, evs, st := d.enqueueArgs(q, src, waits)
	if !st.IsSuccess() {
		return st
	}
	clDst, st := d.lookupMem(dst)
	if !st.IsSuccess() {
		return st
	}
	cSrcOrigin, cDstOrigin := sizeVec(srcOrigin), sizeVec(dstOrigin)
	cRegion := sizeVec(region)
	var ev C.cl_event
	rc := C.clEnqueueCopyImage(clQ, clSrc, clDst,
		&cSrcOrigin[0], &cDstOrigin[0], &cRegion[0],
		C.cl_uint(len(evs)), eventsPtr(evs), eventSlot(out, &ev))
	if rc != C.CL_SUCCESS {
		return toStatus(rc)
	}
	d.mu.Lock()
	d.adopt(out, ev)
	d.mu.Unlock()
	return driver.Success
}

// EnqueueCopyBufferToImage implements driver.Driver.
func (d *Device) EnqueueCopyBufferToImage(q driver.QueueID, src, dst driver.MemID, srcOffset uint64, dstOrigin, region []uint64, waits []driver.EventID, out *driver.EventID) driver.Status {
	clQ, clSrc, evs, st := d.enqueueArgs(q, src, waits)
	if !st.IsSuccess() {
		return st
	}
	clDst, st := d.lookupMem(dst)
	if !st.IsSuccess() {
		return st
	}
	cDstOrigin, cRegion := sizeVec(dstOrigin), sizeVec(region)
	var ev C.cl_event
	rc := C.clEnqueueCopyBufferToImage(clQ, clSrc, clDst, C.size_t(srcOffset),
		&cDstOrigin[0], &cRegion[0],
		C.cl_uint(len(evs)), eventsPtr(evs), eventSlot(out, &ev))
	if rc != C.CL_SUCCESS {
		return toStatus(rc)
	}
	d.mu.Lock()
	d.adopt(out, ev)
	d.mu.Unlock()
	return driver.Success
}

// EnqueueCopyImageToBuffer implements driver.Driver.
func (d *Device) EnqueueCopyImageToBuffer(q driver.QueueID, src, dst driver.MemID, srcOrigin, region []uint64, dstOffset uint64, waits []driver.EventID, out *driver.EventID) driver.Status {
	clQ, clSrc, evs, st := d.enqueueArgs(q, src, waits)
	if !st.IsSuccess() {
		return st
	}
	clDst, st := d.lookupMem(dst)
	if !st.IsSuccess() {
		return st
	}
	cSrcOrigin, cRegion := sizeVec(srcOrigin), sizeVec(region)
	var ev C.cl_event
	rc := C.clEnqueueCopyImageToBuffer(clQ, clSrc, clDst,
		&cSrcOrigin[0], &cRegion[0], C.size_t(dstOffset),
		C.cl_uint(len(evs)), eventsPtr(evs), eventSlot(out, &ev))
	if rc != C.CL_SUCCESS {
		return toStatus(rc)
	}
	d.mu.Lock()
	d.adopt(out, ev)
	d.mu.Unlock()
	return driver.Success
}

// EnqueueMapBuffer implements driver.Driver. The native mapped pointer is
// remembered for EnqueueUnmapMemObject.
func (d *Device) EnqueueMapBuffer(q driver.QueueID, mem driver.MemID, blocking bool, flags driver.MapFlags, offset, size uint64, waits []driver.EventID, out *driver.EventID) ([]byte, driver.Status) {
	clQ, clMem, evs, st := d.enqueueArgs(q, mem, waits)
	if !st.IsSuccess() {
		return nil, st
	}
	var ev C.cl_event
	var rc C.cl_int
	ptr := C.clEnqueueMapBuffer(clQ, clMem, clBool(blocking), mapFlags(flags),
		C.size_t(offset), C.size_t(size),
		C.cl_uint(len(evs)), eventsPtr(evs), eventSlot(out, &ev), &rc)
	if rc != C.CL_SUCCESS {
		return nil, toStatus(rc)
	}
	d.mu.Lock()
	d.mapPtrs[mem] = ptr
	d.adopt(out, ev)
	d.mu.Unlock()
	return unsafe.Slice((*byte)(ptr), size), driver.Success
}

// EnqueueMapImage implements driver.Driver.
func (d *Device) EnqueueMapImage(q driver.QueueID, mem driver.MemID, blocking bool, flags driver.MapFlags, origin, region []uint64, waits []driver.EventID, out *driver.EventID) ([]byte, uint64, uint64, driver.Status) {
	clQ, clMem, evs, st := d.enqueueArgs(q, mem, waits)
	if !st.IsSuccess() {
		return nil, 0, 0, st
	}
	cOrigin, cRegion := sizeVec(origin), sizeVec(region)
	var rowPitch, slicePitch C.size_t
	var ev C.cl_event
	var rc C.cl_int
	ptr := C.clEnqueueMapImage(clQ, clMem, clBool(blocking), mapFlags(flags),
		&cOrigin[0], &cRegion[0], &rowPitch, &slicePitch,
		C.cl_uint(len(evs)), eventsPtr(evs), eventSlot(out, &ev), &rc)
	if rc != C.CL_SUCCESS {
		return nil, 0, 0, toStatus(rc)
	}
	d.mu.Lock()
	d.mapPtrs[mem] = ptr
	d.adopt(out, ev)
	d.mu.Unlock()

	sp := uint64(slicePitch)
	if sp == 0 {
		sp = uint64(rowPitch) * region[1]
	}
	span := (region[2]-1)*sp + (region[1]-1)*uint64(rowPitch) + region[0]
	return unsafe.Slice((*byte)(ptr), span), uint64(rowPitch), uint64(slicePitch), driver.Success
}

// EnqueueUnmapMemObject implements driver.Driver.
func (d *Device) EnqueueUnmapMemObject(q driver.QueueID, mem driver.MemID, waits []driver.EventID, out *driver.EventID) driver.Status {
	d.mu.Lock()
	ptr, mapped := d.mapPtrs[mem]
	d.mu.Unlock()
	if !mapped {
		return driver.StatusInvalidOperation
	}
	clQ, clMem, evs, st := d.enqueueArgs(q, mem, waits)
	if !st.IsSuccess() {
		return st
	}
	var ev C.cl_event
	rc := C.clEnqueueUnmapMemObject(clQ, clMem, ptr,
		C.cl_uint(len(evs)), eventsPtr(evs), eventSlot(out, &ev))
	if rc != C.CL_SUCCESS {
		return toStatus(rc)
	}
	d.mu.Lock()
	delete(d.mapPtrs, mem)
	d.adopt(out, ev)
	d.mu.Unlock()
	return driver.Success
}

func mapFlags(flags driver.MapFlags) C.cl_map_flags {
	var out C.cl_map_flags
	if flags&driver.MapRead != 0 {
		out |= C.CL_MAP_READ
	}
	if flags&driver.MapWrite != 0 {
		out |= C.CL_MAP_WRITE
	}
	return out
}
