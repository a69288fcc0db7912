//go:build opencl

package opencl

/*
#include <stdlib.h>
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
	"fmt"
	"unsafe"

	"github.com/gogpu/ocl/driver"
)

// BuildKernel compiles OpenCL C source in the given context and extracts
// the named kernel. The program handle is retained alongside the kernel and
// released with it.
func (d *Device) BuildKernel(ctx driver.ContextID, source, name string) (driver.KernelID, error) {
	d.mu.Lock()
	clCtx, ok := d.contexts[ctx]
	d.mu.Unlock()
	if !ok {
		return 0, fmt.Errorf("opencl: build %s: unknown context", name)
	}

	cSource := C.CString(source)
	defer C.free(unsafe.Pointer(cSource))
	var rc C.cl_int
	program := C.clCreateProgramWithSource(clCtx, 1, &cSource, nil, &rc)
	if rc != C.CL_SUCCESS {
		return 0, fmt.Errorf("opencl: build %s: create program: %s", name, toStatus(rc))
	}
	if rc := C.clBuildProgram(program, 0, nil, nil, nil, nil); rc != C.CL_SUCCESS {
		st := toStatus(rc)
		C.clReleaseProgram(program)
		return 0, fmt.Errorf("opencl: build %s: %s", name, st)
	}

	cName := C.CString(name)
	defer C.free(unsafe.Pointer(cName))
	kernel := C.clCreateKernel(program, cName, &rc)
	if rc != C.CL_SUCCESS {
		st := toStatus(rc)
		C.clReleaseProgram(program)
		return 0, fmt.Errorf("opencl: build %s: create kernel: %s", name, st)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	id := driver.KernelID(d.allocID())
	d.kernels[id] = kernel
	d.programs[id] = program
	return id, nil
}

// SetKernelArgBuffer binds a memory object to one kernel argument.
func (d *Device) SetKernelArgBuffer(k driver.KernelID, index int, mem driver.MemID) driver.Status {
	d.mu.Lock()
	kernel, ok := d.kernels[k]
	clMem, memOK := d.mems[mem]
	d.mu.Unlock()
	if !ok {
		return driver.StatusInvalidKernel
	}
	if !memOK {
		return driver.StatusInvalidMemObject
	}
	return toStatus(C.clSetKernelArg(kernel, C.cl_uint(index),
		C.size_t(unsafe.Sizeof(clMem)), unsafe.Pointer(&clMem)))
}

// SetKernelArgBytes binds raw bytes to one kernel argument.
func (d *Device) SetKernelArgBytes(k driver.KernelID, index int, data []byte) driver.Status {
	d.mu.Lock()
	kernel, ok := d.kernels[k]
	d.mu.Unlock()
	if !ok {
		return driver.StatusInvalidKernel
	}
	return toStatus(C.clSetKernelArg(kernel, C.cl_uint(index),
		C.size_t(len(data)), hostPtr(data)))
}

// ReleaseKernel frees one kernel and its program.
func (d *Device) ReleaseKernel(k driver.KernelID) driver.Status {
	d.mu.Lock()
	kernel, ok := d.kernels[k]
	program := d.programs[k]
	delete(d.kernels, k)
	delete(d.programs, k)
	d.mu.Unlock()
	if !ok {
		return driver.StatusInvalidKernel
	}
	st := toStatus(C.clReleaseKernel(kernel))
	if program != nil {
		C.clReleaseProgram(program)
	}
	return st
}

// EnqueueTask implements driver.Driver.
func (d *Device) EnqueueTask(q driver.QueueID, k driver.KernelID, waits []driver.EventID, out *driver.EventID) driver.Status {
	d.mu.Lock()
	clQ, qOK := d.queues[q]
	kernel, kOK := d.kernels[k]
	evs, st := d.waitList(waits)
	d.mu.Unlock()
	if !qOK {
		return driver.StatusInvalidCommandQueue
	}
	if !kOK {
		return driver.StatusInvalidKernel
	}
	if !st.IsSuccess() {
		return st
	}
	var ev C.cl_event
	rc := C.clEnqueueTask(clQ, kernel,
		C.cl_uint(len(evs)), eventsPtr(evs), eventSlot(out, &ev))
	if rc != C.CL_SUCCESS {
		return toStatus(rc)
	}
	d.mu.Lock()
	d.adopt(out, ev)
	d.mu.Unlock()
	return driver.Success
}

// EnqueueNDRangeKernel implements driver.Driver.
func (d *Device) EnqueueNDRangeKernel(q driver.QueueID, k driver.KernelID, workDim int, globalOffset, globalSize, localSize []uint64, waits []driver.EventID, out *driver.EventID) driver.Status {
	d.mu.Lock()
	clQ, qOK := d.queues[q]
	kernel, kOK := d.kernels[k]
	evs, st := d.waitList(waits)
	d.mu.Unlock()
	if !qOK {
		return driver.StatusInvalidCommandQueue
	}
	if !kOK {
		return driver.StatusInvalidKernel
	}
	if !st.IsSuccess() {
		return st
	}

	var offPtr, sizePtr, localPtr *C.size_t
	var off, size, local [3]C.size_t
	if globalOffset != nil {
		off = sizeVec(globalOffset)
		offPtr = &off[0]
	}
	if globalSize != nil {
		size = sizeVec(globalSize)
		sizePtr = &size[0]
	}
	if localSize != nil {
		local = sizeVec(localSize)
		localPtr = &local[0]
	}

	var ev C.cl_event
	rc := C.clEnqueueNDRangeKernel(clQ, kernel, C.cl_uint(workDim),
		offPtr, sizePtr, localPtr,
		C.cl_uint(len(evs)), eventsPtr(evs), eventSlot(out, &ev))
	if rc != C.CL_SUCCESS {
		return toStatus(rc)
	}
	d.mu.Lock()
	d.adopt(out, ev)
	d.mu.Unlock()
	return driver.Success
}
