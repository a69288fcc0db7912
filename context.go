// Package ocl is a command-submission layer for compute accelerators.
//
// A Context binds a driver connection to one device and owns the memory
// objects and command queues created through it. A CommandQueue submits an
// ordered or partially-ordered stream of commands (transfers, copies, maps,
// kernel launches) to its device, tracking completion and dependencies
// through opaque tokens collected in EventLists.
//
// The package does not schedule, reorder or retry anything itself: real
// scheduling and execution belong to the driver behind the
// [github.com/gogpu/ocl/driver.Driver] interface.
package ocl

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/gogpu/ocl/driver"
)

// Context owns device-side allocations and the command queues created
// through it. It binds exactly one driver connection and one device.
//
// Context is safe for concurrent use. The queues it creates are not; see
// CommandQueue.
type Context struct {
	drv driver.Driver
	id  driver.ContextID
	dev *Device

	mu       sync.Mutex
	queues   map[*CommandQueue]struct{}
	released bool
}

// NewContext allocates a driver context on the given device and wraps it.
// The current package logger is propagated to the driver if it accepts one.
func NewContext(drv driver.Driver, dev driver.DeviceID) (*Context, error) {
	if drv == nil {
		return nil, ErrNilDriver
	}
	propagateLogger(drv)

	id, st := drv.CreateContext(dev)
	if !st.IsSuccess() {
		return nil, newCommandError("CreateContext", st, fmt.Sprintf("device %d", dev))
	}

	ctx := &Context{
		drv:    drv,
		id:     id,
		queues: make(map[*CommandQueue]struct{}),
	}
	ctx.dev = &Device{ctx: ctx, id: dev, name: deviceName(drv, dev)}

	Logger().Info("ocl: context created", slog.Uint64("context", uint64(id)),
		slog.String("device", ctx.dev.String()))
	return ctx, nil
}

// deviceName asks the driver for a device name through the optional
// DeviceInfo capability.
func deviceName(drv driver.Driver, dev driver.DeviceID) string {
	if di, ok := drv.(driver.DeviceInfo); ok {
		if name, st := di.DeviceName(dev); st.IsSuccess() {
			return name
		}
	}
	return fmt.Sprintf("device-%d", dev)
}

// Device returns the device this context is bound to.
func (c *Context) Device() *Device { return c.dev }

// Driver returns the underlying driver connection.
func (c *Context) Driver() driver.Driver { return c.drv }

// CreateBuffer allocates a linear device buffer of size bytes.
func (c *Context) CreateBuffer(size uint64) (*Buffer, error) {
	if err := c.live("CreateBuffer"); err != nil {
		return nil, err
	}
	id, st := c.drv.CreateBuffer(c.id, size)
	if !st.IsSuccess() {
		return nil, newCommandError("CreateBuffer", st, fmt.Sprintf("size %d", size))
	}
	return &Buffer{ctx: c, id: id, size: size}, nil
}

// CreateImage2D allocates a 2D device image. rowPitch 0 lets the driver
// choose a packed layout.
func (c *Context) CreateImage2D(width, height, rowPitch uint64) (*Image2D, error) {
	if err := c.live("CreateImage2D"); err != nil {
		return nil, err
	}
	id, st := c.drv.CreateImage2D(c.id, width, height, rowPitch)
	if !st.IsSuccess() {
		return nil, newCommandError("CreateImage2D", st,
			fmt.Sprintf("extent %dx%d rowPitch %d", width, height, rowPitch))
	}
	return &Image2D{ctx: c, id: id, width: width, height: height, rowPitch: rowPitch}, nil
}

// CreateImage3D allocates a 3D device image. Zero pitches let the driver
// choose a packed layout.
func (c *Context) CreateImage3D(width, height, depth, rowPitch, slicePitch uint64) (*Image3D, error) {
	if err := c.live("CreateImage3D"); err != nil {
		return nil, err
	}
	id, st := c.drv.CreateImage3D(c.id, width, height, depth, rowPitch, slicePitch)
	if !st.IsSuccess() {
		return nil, newCommandError("CreateImage3D", st,
			fmt.Sprintf("extent %dx%dx%d rowPitch %d slicePitch %d",
				width, height, depth, rowPitch, slicePitch))
	}
	return &Image3D{
		ctx: c, id: id,
		width: width, height: height, depth: depth,
		rowPitch: rowPitch, slicePitch: slicePitch,
	}, nil
}

// releaseMem frees one memory object through the driver.
func (c *Context) releaseMem(id driver.MemID, desc string) error {
	if st := c.drv.ReleaseMemObject(id); !st.IsSuccess() {
		return newCommandError("ReleaseMemObject", st, desc)
	}
	return nil
}

// registerQueue tracks a queue created on this context.
func (c *Context) registerQueue(q *CommandQueue) {
	c.mu.Lock()
	c.queues[q] = struct{}{}
	c.mu.Unlock()
}

// onQueueReleased drops the context's reference to a released queue.
func (c *Context) onQueueReleased(q *CommandQueue) {
	c.mu.Lock()
	delete(c.queues, q)
	c.mu.Unlock()
}

// live reports a ResourceStateError if the context has been released.
func (c *Context) live(op string) error {
	c.mu.Lock()
	released := c.released
	c.mu.Unlock()
	if released {
		return &ResourceStateError{Op: op, Err: ErrContextReleased}
	}
	return nil
}

// Release frees the driver context. Queues created on the context must be
// released first; releasing a context twice is a client error.
func (c *Context) Release() error {
	c.mu.Lock()
	if c.released {
		c.mu.Unlock()
		return &ResourceStateError{Op: "ReleaseContext", Err: ErrContextReleased}
	}
	c.released = true
	outstanding := len(c.queues)
	c.mu.Unlock()

	if outstanding > 0 {
		Logger().Warn("ocl: releasing context with live queues",
			slog.Int("queues", outstanding))
	}
	if st := c.drv.ReleaseContext(c.id); !st.IsSuccess() {
		return newCommandError("ReleaseContext", st, fmt.Sprintf("context %d", c.id))
	}
	Logger().Info("ocl: context released", slog.Uint64("context", uint64(c.id)))
	return nil
}
