package wgpu

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/naga"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/ocl/driver"
)

// kernelPipeline is one compiled compute shader together with its bind
// group. Buffers are bound at registration time: binding i of the shader
// sees the i-th buffer passed to RegisterKernelWGSL.
type kernelPipeline struct {
	name       string
	module     hal.ShaderModule
	bindLayout hal.BindGroupLayout
	pipeLayout hal.PipelineLayout
	pipeline   hal.ComputePipeline
	bindGroup  hal.BindGroup
}

func (k *kernelPipeline) destroy(device hal.Device) {
	if k.bindGroup != nil {
		device.DestroyBindGroup(k.bindGroup)
	}
	if k.pipeline != nil {
		device.DestroyComputePipeline(k.pipeline)
	}
	if k.pipeLayout != nil {
		device.DestroyPipelineLayout(k.pipeLayout)
	}
	if k.bindLayout != nil {
		device.DestroyBindGroupLayout(k.bindLayout)
	}
	if k.module != nil {
		device.DestroyShaderModule(k.module)
	}
}

// compileWGSL compiles WGSL source to SPIR-V words through naga.
func compileWGSL(source string) ([]uint32, error) {
	spirvBytes, err := naga.Compile(source)
	if err != nil {
		return nil, fmt.Errorf("wgpu: compile kernel: %w", err)
	}
	words := make([]uint32, len(spirvBytes)/4)
	for i := range words {
		words[i] = uint32(spirvBytes[i*4]) |
			uint32(spirvBytes[i*4+1])<<8 |
			uint32(spirvBytes[i*4+2])<<16 |
			uint32(spirvBytes[i*4+3])<<24
	}
	return words, nil
}

// RegisterKernelWGSL compiles a WGSL compute shader and binds it to the
// given buffers as storage bindings 0..n-1 of group 0. The entry point must
// name a @compute function in the source.
func (d *Device) RegisterKernelWGSL(name, source, entryPoint string, bindings []driver.MemID) (driver.KernelID, error) {
	words, err := compileWGSL(source)
	if err != nil {
		return 0, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	bufs := make([]*buffer, len(bindings))
	for i, mem := range bindings {
		b, st := d.lookupBuffer(mem)
		if !st.IsSuccess() {
			return 0, fmt.Errorf("wgpu: kernel %s: binding %d is not a buffer", name, i)
		}
		bufs[i] = b
	}

	k := &kernelPipeline{name: name}
	fail := func(step string, err error) (driver.KernelID, error) {
		k.destroy(d.device)
		return 0, fmt.Errorf("wgpu: kernel %s: %s: %w", name, step, err)
	}

	k.module, err = d.device.CreateShaderModule(&hal.ShaderModuleDescriptor{
		Label:  name,
		Source: hal.ShaderSource{SPIRV: words},
	})
	if err != nil {
		return fail("create shader module", err)
	}

	layoutEntries := make([]gputypes.BindGroupLayoutEntry, len(bufs))
	for i := range bufs {
		layoutEntries[i] = gputypes.BindGroupLayoutEntry{
			Binding:    uint32(i),
			Visibility: gputypes.ShaderStageCompute,
			Buffer:     &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeStorage},
		}
	}
	k.bindLayout, err = d.device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label:   name + "_bind_layout",
		Entries: layoutEntries,
	})
	if err != nil {
		return fail("create bind group layout", err)
	}

	k.pipeLayout, err = d.device.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label:            name + "_pipe_layout",
		BindGroupLayouts: []hal.BindGroupLayout{k.bindLayout},
	})
	if err != nil {
		return fail("create pipeline layout", err)
	}

	k.pipeline, err = d.device.CreateComputePipeline(&hal.ComputePipelineDescriptor{
		Label:   name,
		Layout:  k.pipeLayout,
		Compute: hal.ComputeState{Module: k.module, EntryPoint: entryPoint},
	})
	if err != nil {
		return fail("create compute pipeline", err)
	}

	groupEntries := make([]gputypes.BindGroupEntry, len(bufs))
	for i, b := range bufs {
		groupEntries[i] = gputypes.BindGroupEntry{
			Binding:  uint32(i),
			Resource: gputypes.BufferBinding{Buffer: b.handle.NativeHandle(), Offset: 0, Size: b.size},
		}
	}
	k.bindGroup, err = d.device.CreateBindGroup(&hal.BindGroupDescriptor{
		Label:   name + "_bind_group",
		Layout:  k.bindLayout,
		Entries: groupEntries,
	})
	if err != nil {
		return fail("create bind group", err)
	}

	id := driver.KernelID(d.allocID())
	d.kernels[id] = k
	return id, nil
}

// ReleaseKernel destroys a registered kernel pipeline.
func (d *Device) ReleaseKernel(id driver.KernelID) driver.Status {
	d.mu.Lock()
	defer d.mu.Unlock()
	k, ok := d.kernels[id]
	if !ok {
		return driver.StatusInvalidKernel
	}
	k.destroy(d.device)
	delete(d.kernels, id)
	return driver.Success
}

// EnqueueTask implements driver.Driver: a single workgroup dispatch.
func (d *Device) EnqueueTask(q driver.QueueID, k driver.KernelID, waits []driver.EventID, out *driver.EventID) driver.Status {
	return d.EnqueueNDRangeKernel(q, k, 1, nil, nil, nil, waits, out)
}

// EnqueueNDRangeKernel implements driver.Driver. The global size maps to
// the workgroup grid; global offsets are not expressible in a dispatch and
// report StatusNotSupported. The local size is fixed by the shader's
// @workgroup_size and is rejected when supplied.
func (d *Device) EnqueueNDRangeKernel(q driver.QueueID, k driver.KernelID, workDim int, globalOffset, globalSize, localSize []uint64, waits []driver.EventID, out *driver.EventID) driver.Status {
	if workDim < 1 || workDim > 3 {
		return driver.StatusInvalidWorkDimension
	}
	for _, off := range globalOffset {
		if off != 0 {
			return driver.StatusNotSupported
		}
	}
	if localSize != nil {
		return driver.StatusNotSupported
	}
	grid := [3]uint32{1, 1, 1}
	if globalSize != nil {
		if len(globalSize) != workDim {
			return driver.StatusInvalidValue
		}
		for i, n := range globalSize {
			if n == 0 {
				return driver.StatusInvalidValue
			}
			grid[i] = uint32(n)
		}
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if st := d.checkQueue(q); !st.IsSuccess() {
		return st
	}
	if st := d.checkWaits(waits); !st.IsSuccess() {
		return st
	}
	kn, ok := d.kernels[k]
	if !ok {
		return driver.StatusInvalidKernel
	}

	err := d.submit(kn.name, func(enc hal.CommandEncoder) error {
		pass := enc.BeginComputePass(&hal.ComputePassDescriptor{Label: kn.name})
		pass.SetPipeline(kn.pipeline)
		pass.SetBindGroup(0, kn.bindGroup, nil)
		pass.Dispatch(grid[0], grid[1], grid[2])
		pass.End()
		return nil
	})
	if err != nil {
		d.log.Warn("wgpu: kernel dispatch failed: " + err.Error())
		return driver.StatusInvalidOperation
	}
	d.emit(out)
	return driver.Success
}
