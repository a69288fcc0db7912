package soft

import "github.com/gogpu/ocl/driver"

// KernelFunc is the body of one simulated kernel, invoked once per global
// work item with the item's global ID. Functions access device memory
// through Bytes, typically by capturing buffer handles at registration.
type KernelFunc func(gid [3]uint64)

type kernel struct {
	name string
	fn   KernelFunc
}

// RegisterKernel installs a Go function as a kernel and returns its handle.
func (d *Device) RegisterKernel(name string, fn KernelFunc) driver.KernelID {
	d.mu.Lock()
	defer d.mu.Unlock()
	id := driver.KernelID(d.allocID())
	d.kernels[id] = &kernel{name: name, fn: fn}
	return id
}

// EnqueueTask implements driver.Driver: a single invocation at the zero
// work item.
func (d *Device) EnqueueTask(q driver.QueueID, k driver.KernelID, waits []driver.EventID, out *driver.EventID) driver.Status {
	return d.EnqueueNDRangeKernel(q, k, 1, nil, nil, nil, waits, out)
}

// EnqueueNDRangeKernel implements driver.Driver. An unset global size
// defaults every dimension to one; the local size and global offset only
// shift the IDs the function observes, there is no work-group semantics in
// the simulation.
func (d *Device) EnqueueNDRangeKernel(q driver.QueueID, k driver.KernelID, workDim int, globalOffset, globalSize, localSize []uint64, waits []driver.EventID, out *driver.EventID) driver.Status {
	if workDim < 1 || workDim > 3 {
		return driver.StatusInvalidWorkDimension
	}
	offset, st := expand(globalOffset, workDim, 0)
	if !st.IsSuccess() {
		return st
	}
	size, st := expand(globalSize, workDim, 1)
	if !st.IsSuccess() {
		return st
	}
	if _, st := expand(localSize, workDim, 1); !st.IsSuccess() {
		return st
	}

	d.mu.Lock()
	qs, ok := d.queues[q]
	if !ok {
		d.mu.Unlock()
		return driver.StatusInvalidCommandQueue
	}
	kn, ok := d.kernels[k]
	if !ok {
		d.mu.Unlock()
		return driver.StatusInvalidKernel
	}
	ev, deps, st := d.begin(qs, waits, out)
	d.mu.Unlock()
	if !st.IsSuccess() {
		return st
	}

	// The kernel body runs without the device lock so it can reach memory
	// through Bytes. Ordering against other commands is already settled by
	// the dependency events.
	return d.run(ev, deps, false, func() driver.Status {
		for z := uint64(0); z < size[2]; z++ {
			for y := uint64(0); y < size[1]; y++ {
				for x := uint64(0); x < size[0]; x++ {
					kn.fn([3]uint64{offset[0] + x, offset[1] + y, offset[2] + z})
				}
			}
		}
		return driver.Success
	})
}

// expand validates a work vector and widens it to three components with the
// given default. The input aliases caller scratch storage and is not
// retained.
func expand(v []uint64, workDim int, def uint64) ([3]uint64, driver.Status) {
	full := [3]uint64{def, def, def}
	if v == nil {
		return full, driver.Success
	}
	if len(v) != workDim {
		return full, driver.StatusInvalidValue
	}
	copy(full[:], v)
	return full, driver.Success
}
