package ocl

import (
	"fmt"

	"github.com/gogpu/ocl/driver"
)

// Device identifies the accelerator a Context is bound to. It is the
// factory for command queues on that device.
type Device struct {
	ctx  *Context
	id   driver.DeviceID
	name string
}

// ID returns the driver handle for this device.
func (d *Device) ID() driver.DeviceID { return d.id }

// Name returns the device name reported by the driver, or a synthetic
// placeholder when the driver does not report one.
func (d *Device) Name() string { return d.name }

func (d *Device) String() string {
	return fmt.Sprintf("Device(%d %q)", d.id, d.name)
}

// CreateCommandQueue creates a command queue on this device. With no modes
// the queue executes commands in submission order without profiling.
func (d *Device) CreateCommandQueue(modes ...QueueMode) (*CommandQueue, error) {
	ctx := d.ctx
	if err := ctx.live("CreateQueue"); err != nil {
		return nil, err
	}
	mode := combineModes(modes)

	id, st := ctx.drv.CreateQueue(ctx.id, d.id, mode.flags())
	if !st.IsSuccess() {
		return nil, newCommandError("CreateQueue", st,
			fmt.Sprintf("device %d mode %s", d.id, mode))
	}

	q := &CommandQueue{
		ctx:    ctx,
		device: d,
		id:     id,
		drv:    ctx.drv,
		mode:   mode,
	}
	ctx.registerQueue(q)
	return q, nil
}
