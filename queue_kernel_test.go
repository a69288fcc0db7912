package ocl

import (
	"bytes"
	"reflect"
	"testing"

	"github.com/gogpu/ocl/driver/soft"
)

func TestPutTaskPassesKernelHandle(t *testing.T) {
	drv := &fakeDriver{}
	_, q := newTestQueue(t, drv)
	k := NewKernel(42, "noop")

	events := NewEventList(1)
	if err := q.PutTask(k, nil, events); err != nil {
		t.Fatal(err)
	}
	if drv.last.kernel != 42 {
		t.Errorf("kernel = %d, want 42", drv.last.kernel)
	}
	if events.Size() != 1 {
		t.Errorf("Size = %d, want 1", events.Size())
	}
}

func TestPut1DRangeKernelOmitsZeroComponents(t *testing.T) {
	tests := []struct {
		name                string
		offset, size, local uint64
		wantWO, wantWS, wantLS []uint64
	}{
		{"all set", 4, 64, 8, []uint64{4}, []uint64{64}, []uint64{8}},
		{"no offset", 0, 64, 8, nil, []uint64{64}, []uint64{8}},
		{"no local", 0, 64, 0, nil, []uint64{64}, nil},
		{"all unset", 0, 0, 0, nil, nil, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			drv := &fakeDriver{}
			_, q := newTestQueue(t, drv)
			if err := q.Put1DRangeKernel(NewKernel(1, "k"), tt.offset, tt.size, tt.local, nil, nil); err != nil {
				t.Fatal(err)
			}
			if drv.last.workDim != 1 {
				t.Errorf("workDim = %d, want 1", drv.last.workDim)
			}
			if !reflect.DeepEqual(drv.last.globWO, tt.wantWO) {
				t.Errorf("globalOffset = %v, want %v", drv.last.globWO, tt.wantWO)
			}
			if !reflect.DeepEqual(drv.last.globWS, tt.wantWS) {
				t.Errorf("globalSize = %v, want %v", drv.last.globWS, tt.wantWS)
			}
			if !reflect.DeepEqual(drv.last.locWS, tt.wantLS) {
				t.Errorf("localSize = %v, want %v", drv.last.locWS, tt.wantLS)
			}
		})
	}
}

func TestPut2DRangeKernelRequiresBothComponents(t *testing.T) {
	tests := []struct {
		name                   string
		ox, oy, sx, sy, lx, ly uint64
		wantWO, wantWS, wantLS []uint64
	}{
		{"all set", 1, 2, 8, 4, 2, 2, []uint64{1, 2}, []uint64{8, 4}, []uint64{2, 2}},
		{"half offset dropped", 0, 2, 8, 4, 2, 2, nil, []uint64{8, 4}, []uint64{2, 2}},
		{"half local dropped", 1, 2, 8, 4, 2, 0, []uint64{1, 2}, []uint64{8, 4}, nil},
		{"half size dropped", 0, 0, 8, 0, 0, 0, nil, nil, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			drv := &fakeDriver{}
			_, q := newTestQueue(t, drv)
			err := q.Put2DRangeKernel(NewKernel(1, "k"), tt.ox, tt.oy, tt.sx, tt.sy, tt.lx, tt.ly, nil, nil)
			if err != nil {
				t.Fatal(err)
			}
			if drv.last.workDim != 2 {
				t.Errorf("workDim = %d, want 2", drv.last.workDim)
			}
			if !reflect.DeepEqual(drv.last.globWO, tt.wantWO) {
				t.Errorf("globalOffset = %v, want %v", drv.last.globWO, tt.wantWO)
			}
			if !reflect.DeepEqual(drv.last.globWS, tt.wantWS) {
				t.Errorf("globalSize = %v, want %v", drv.last.globWS, tt.wantWS)
			}
			if !reflect.DeepEqual(drv.last.locWS, tt.wantLS) {
				t.Errorf("localSize = %v, want %v", drv.last.locWS, tt.wantLS)
			}
		})
	}
}

func TestPutNDRangeKernelPassesVectorsVerbatim(t *testing.T) {
	drv := &fakeDriver{}
	_, q := newTestQueue(t, drv)

	off := []uint64{1, 2, 3}
	size := []uint64{8, 8, 4}
	err := q.PutNDRangeKernel(NewKernel(7, "k"), 3, off, size, nil, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	if drv.last.workDim != 3 {
		t.Errorf("workDim = %d, want 3", drv.last.workDim)
	}
	if !reflect.DeepEqual(drv.last.globWO, off) {
		t.Errorf("globalOffset = %v, want %v", drv.last.globWO, off)
	}
	if !reflect.DeepEqual(drv.last.globWS, size) {
		t.Errorf("globalSize = %v, want %v", drv.last.globWS, size)
	}
	if drv.last.locWS != nil {
		t.Errorf("localSize = %v, want nil", drv.last.locWS)
	}
}

func TestPutTaskMatchesUnitRangeKernel(t *testing.T) {
	dev := soft.New()
	ctx, err := NewContext(dev, dev.DefaultDevice())
	if err != nil {
		t.Fatalf("NewContext: %v", err)
	}
	defer func() { _ = ctx.Release() }()
	queue, err := ctx.Device().CreateCommandQueue()
	if err != nil {
		t.Fatalf("CreateCommandQueue: %v", err)
	}
	defer func() { _ = queue.Release() }()

	taskBuf, err := ctx.CreateBuffer(4)
	if err != nil {
		t.Fatal(err)
	}
	rangeBuf, err := ctx.CreateBuffer(4)
	if err != nil {
		t.Fatal(err)
	}
	taskData := dev.Bytes(taskBuf.DriverID())
	rangeData := dev.Bytes(rangeBuf.DriverID())
	stampTask := NewKernel(dev.RegisterKernel("stamp-task", func(gid [3]uint64) {
		taskData[gid[0]]++
	}), "stamp-task")
	stampRange := NewKernel(dev.RegisterKernel("stamp-range", func(gid [3]uint64) {
		rangeData[gid[0]]++
	}), "stamp-range")

	events := NewEventList(2)
	if err := queue.PutTask(stampTask, nil, events); err != nil {
		t.Fatalf("PutTask: %v", err)
	}
	if events.Size() != 1 {
		t.Fatalf("after PutTask: %s", events)
	}
	if err := queue.Put1DRangeKernel(stampRange, 0, 1, 1, nil, events); err != nil {
		t.Fatalf("Put1DRangeKernel: %v", err)
	}
	if events.Size() != 2 {
		t.Fatalf("after Put1DRangeKernel: %s", events)
	}
	if err := queue.Finish(); err != nil {
		t.Fatal(err)
	}

	// Both launches ran their kernel exactly once, at work item 0.
	if taskData[0] != 1 {
		t.Errorf("task ran %d times, want 1", taskData[0])
	}
	if !bytes.Equal(taskData, rangeData) {
		t.Errorf("device effects differ: task %v, unit range %v", taskData, rangeData)
	}
}
