package driver

import "fmt"

// Status is the raw result code of a driver entry point.
// Success (0) is the only non-error value; every other value identifies a
// driver-defined failure. The numeric values mirror the OpenCL error codes
// so that native backends can pass driver results through unmodified.
type Status int32

// Driver status codes.
const (
	Success Status = 0

	StatusDeviceNotFound        Status = -1
	StatusDeviceNotAvailable    Status = -2
	StatusMemAllocationFailure  Status = -4
	StatusOutOfResources        Status = -5
	StatusOutOfHostMemory       Status = -6
	StatusMapFailure            Status = -12
	StatusInvalidValue          Status = -30
	StatusInvalidContext        Status = -34
	StatusInvalidQueueProperty  Status = -35
	StatusInvalidCommandQueue   Status = -36
	StatusInvalidMemObject      Status = -38
	StatusInvalidKernel         Status = -48
	StatusInvalidWorkDimension  Status = -53
	StatusInvalidEventWaitList  Status = -57
	StatusInvalidEvent          Status = -58
	StatusInvalidOperation      Status = -59
	StatusInvalidGLObject       Status = -60
	StatusInvalidBufferSize     Status = -61

	// StatusNotSupported is reported by partial backends for operations the
	// underlying device cannot express. It sits outside the OpenCL range.
	StatusNotSupported Status = -1100
)

// IsSuccess reports whether the status is Success.
func (s Status) IsSuccess() bool { return s == Success }

// String returns the symbolic name of the status, or a numeric rendering
// for codes this package does not know about.
func (s Status) String() string {
	switch s {
	case Success:
		return "SUCCESS"
	case StatusDeviceNotFound:
		return "DEVICE_NOT_FOUND"
	case StatusDeviceNotAvailable:
		return "DEVICE_NOT_AVAILABLE"
	case StatusMemAllocationFailure:
		return "MEM_OBJECT_ALLOCATION_FAILURE"
	case StatusOutOfResources:
		return "OUT_OF_RESOURCES"
	case StatusOutOfHostMemory:
		return "OUT_OF_HOST_MEMORY"
	case StatusMapFailure:
		return "MAP_FAILURE"
	case StatusInvalidValue:
		return "INVALID_VALUE"
	case StatusInvalidContext:
		return "INVALID_CONTEXT"
	case StatusInvalidQueueProperty:
		return "INVALID_QUEUE_PROPERTIES"
	case StatusInvalidCommandQueue:
		return "INVALID_COMMAND_QUEUE"
	case StatusInvalidMemObject:
		return "INVALID_MEM_OBJECT"
	case StatusInvalidKernel:
		return "INVALID_KERNEL"
	case StatusInvalidWorkDimension:
		return "INVALID_WORK_DIMENSION"
	case StatusInvalidEventWaitList:
		return "INVALID_EVENT_WAIT_LIST"
	case StatusInvalidEvent:
		return "INVALID_EVENT"
	case StatusInvalidOperation:
		return "INVALID_OPERATION"
	case StatusInvalidGLObject:
		return "INVALID_GL_OBJECT"
	case StatusInvalidBufferSize:
		return "INVALID_BUFFER_SIZE"
	case StatusNotSupported:
		return "NOT_SUPPORTED"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", int32(s))
	}
}
