//go:build !opencl

// Package opencl is a native backend over an installed OpenCL runtime.
// Without the `opencl` build tag only this stub is compiled, so importers
// build everywhere and discover the missing runtime at New.
package opencl

import "errors"

// ErrNotBuilt indicates the binary was built without the `opencl` tag.
var ErrNotBuilt = errors.New("opencl: support requires building with '-tags opencl'")

// Device is a placeholder when the native backend is not compiled in.
type Device struct{}

// New returns ErrNotBuilt when the native backend is not compiled in.
func New() (*Device, error) {
	return nil, ErrNotBuilt
}
