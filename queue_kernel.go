package ocl

import "fmt"

// PutTask executes the kernel once. Equivalent to a 1-dimensional launch
// with global work size 1 and local work size 1.
func (q *CommandQueue) PutTask(kernel Kernel, condition, events *EventList) error {
	waits, out, err := q.prepare("Task", condition, events)
	if err != nil {
		return err
	}
	if st := q.drv.EnqueueTask(q.id, kernel.ID, waits, out); !st.IsSuccess() {
		return newCommandError("Task", st,
			fmt.Sprintf("%s%s", kernel, listStates(condition, events)))
	}
	q.committed(events)
	return nil
}

// Put1DRangeKernel launches the kernel over a one-dimensional index space.
// A zero globalWorkOffset, globalWorkSize or localWorkSize leaves the
// corresponding constraint unset for the driver to choose.
func (q *CommandQueue) Put1DRangeKernel(kernel Kernel, globalWorkOffset, globalWorkSize, localWorkSize uint64, condition, events *EventList) error {
	var globWO, globWS, locWS []uint64
	if globalWorkOffset != 0 {
		globWO = fill1(&q.scratch.vecA, globalWorkOffset)
	}
	if globalWorkSize != 0 {
		globWS = fill1(&q.scratch.vecB, globalWorkSize)
	}
	if localWorkSize != 0 {
		locWS = fill1(&q.scratch.vecC, localWorkSize)
	}
	return q.putNDRangeKernel("1DRangeKernel", kernel, 1, globWO, globWS, locWS, condition, events)
}

// Put2DRangeKernel launches the kernel over a two-dimensional index space.
// Each vector is passed to the driver only when both of its components are
// non-zero; a vector with any zero component is left unset for the driver to
// choose.
func (q *CommandQueue) Put2DRangeKernel(kernel Kernel, globalWorkOffsetX, globalWorkOffsetY, globalWorkSizeX, globalWorkSizeY, localWorkSizeX, localWorkSizeY uint64, condition, events *EventList) error {
	var globWO, globWS, locWS []uint64
	if globalWorkOffsetX != 0 && globalWorkOffsetY != 0 {
		globWO = fill2(&q.scratch.vecA, globalWorkOffsetX, globalWorkOffsetY)
	}
	if globalWorkSizeX != 0 && globalWorkSizeY != 0 {
		globWS = fill2(&q.scratch.vecB, globalWorkSizeX, globalWorkSizeY)
	}
	if localWorkSizeX != 0 && localWorkSizeY != 0 {
		locWS = fill2(&q.scratch.vecC, localWorkSizeX, localWorkSizeY)
	}
	return q.putNDRangeKernel("2DRangeKernel", kernel, 2, globWO, globWS, locWS, condition, events)
}

// PutNDRangeKernel launches the kernel over a workDim-dimensional index
// space. Each vector must be nil or exactly workDim components long; nil
// leaves the constraint unset for the driver to choose. The slices are
// consumed during the call and may be reused afterwards.
func (q *CommandQueue) PutNDRangeKernel(kernel Kernel, workDim int, globalWorkOffset, globalWorkSize, localWorkSize []uint64, condition, events *EventList) error {
	return q.putNDRangeKernel("NDRangeKernel", kernel, workDim,
		globalWorkOffset, globalWorkSize, localWorkSize, condition, events)
}

func (q *CommandQueue) putNDRangeKernel(op string, kernel Kernel, workDim int, globWO, globWS, locWS []uint64, condition, events *EventList) error {
	waits, out, err := q.prepare(op, condition, events)
	if err != nil {
		return err
	}
	if st := q.drv.EnqueueNDRangeKernel(q.id, kernel.ID, workDim, globWO, globWS, locWS, waits, out); !st.IsSuccess() {
		return newCommandError(op, st,
			fmt.Sprintf("%s workDim=%d globalOffset=%v globalSize=%v localSize=%v%s",
				kernel, workDim, globWO, globWS, locWS, listStates(condition, events)))
	}
	q.committed(events)
	return nil
}
