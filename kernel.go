package ocl

import (
	"fmt"

	"github.com/gogpu/ocl/driver"
)

// Kernel is a compiled, parameterized device entry point. The queue treats
// it as an opaque handle: compilation, argument binding and introspection
// belong to the driver backend that produced the handle.
type Kernel struct {
	// ID is the driver handle.
	ID driver.KernelID

	// Name is a human-readable identifier used in error messages.
	Name string
}

// NewKernel wraps a driver kernel handle.
func NewKernel(id driver.KernelID, name string) Kernel {
	return Kernel{ID: id, Name: name}
}

// String implements fmt.Stringer.
func (k Kernel) String() string {
	return fmt.Sprintf("Kernel(%s id=%d)", k.Name, k.ID)
}
