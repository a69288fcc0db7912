package ocl

import (
	"bytes"
	"errors"
	"reflect"
	"testing"

	"github.com/gogpu/ocl/driver"
)

func TestPutWriteBufferMarshalsArguments(t *testing.T) {
	drv := &fakeDriver{}
	ctx, q := newTestQueue(t, drv)
	buf := mustBuffer(t, ctx, 64)

	data := []byte{1, 2, 3, 4}
	if err := q.PutWriteBufferRegion(buf, true, 16, data, nil, nil); err != nil {
		t.Fatalf("PutWriteBufferRegion: %v", err)
	}
	if drv.last.mem != buf.id {
		t.Errorf("mem = %d, want %d", drv.last.mem, buf.id)
	}
	if !drv.last.blocking {
		t.Error("blocking not passed through")
	}
	if drv.last.offset != 16 {
		t.Errorf("offset = %d, want 16", drv.last.offset)
	}
	if !bytes.Equal(drv.last.data, data) {
		t.Errorf("data = %v, want %v", drv.last.data, data)
	}
	if len(drv.last.waits) != 0 {
		t.Errorf("waits = %v, want none", drv.last.waits)
	}
	if !drv.last.outNil {
		t.Error("out should be nil when no output list is given")
	}
}

func TestPutWriteBufferCommitsTokenOnSuccess(t *testing.T) {
	drv := &fakeDriver{}
	ctx, q := newTestQueue(t, drv)
	buf := mustBuffer(t, ctx, 8)

	events := NewEventList(2)
	if err := q.PutWriteBuffer(buf, false, []byte{1}, nil, events); err != nil {
		t.Fatalf("PutWriteBuffer: %v", err)
	}
	if events.Size() != 1 {
		t.Fatalf("Size = %d, want 1", events.Size())
	}
	if got := events.Events()[0]; got != drv.nextEvent {
		t.Errorf("token = %d, want %d", got, drv.nextEvent)
	}
}

func TestEnqueueFailureLeavesOutputListUnchanged(t *testing.T) {
	drv := &fakeDriver{}
	ctx, q := newTestQueue(t, drv)
	buf := mustBuffer(t, ctx, 8)
	drv.status = driver.StatusInvalidValue

	events := NewEventList(2)
	err := q.PutWriteBuffer(buf, false, []byte{1}, nil, events)
	var cmdErr *CommandError
	if !errors.As(err, &cmdErr) {
		t.Fatalf("error = %v, want *CommandError", err)
	}
	if cmdErr.Op != "WriteBuffer" || cmdErr.Status != driver.StatusInvalidValue {
		t.Errorf("got Op=%q Status=%d", cmdErr.Op, cmdErr.Status)
	}
	if events.Size() != 0 {
		t.Errorf("Size = %d after failed enqueue, want 0", events.Size())
	}
}

func TestFullOutputListRejectedBeforeDriverCall(t *testing.T) {
	drv := &fakeDriver{}
	ctx, q := newTestQueue(t, drv)
	buf := mustBuffer(t, ctx, 8)

	events := NewEventList(1)
	if err := q.PutWriteBuffer(buf, false, []byte{1}, nil, events); err != nil {
		t.Fatalf("first enqueue: %v", err)
	}
	before := len(drv.calls)

	err := q.PutWriteBuffer(buf, false, []byte{2}, nil, events)
	if !errors.Is(err, ErrEventListFull) {
		t.Fatalf("error = %v, want ErrEventListFull", err)
	}
	if len(drv.calls) != before {
		t.Errorf("driver called %d times after rejection, want %d", len(drv.calls), before)
	}
	if events.Size() != 1 {
		t.Errorf("Size = %d, want 1", events.Size())
	}
}

func TestConditionTokensPassedThrough(t *testing.T) {
	drv := &fakeDriver{}
	ctx, q := newTestQueue(t, drv)
	buf := mustBuffer(t, ctx, 8)

	deps := NewEventList(2)
	if err := q.PutWriteBuffer(buf, false, []byte{1}, nil, deps); err != nil {
		t.Fatal(err)
	}
	if err := q.PutWriteBuffer(buf, false, []byte{2}, nil, deps); err != nil {
		t.Fatal(err)
	}

	dst := make([]byte, 8)
	if err := q.PutReadBuffer(buf, true, dst, deps, nil); err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(drv.last.waits, deps.Events()) {
		t.Errorf("waits = %v, want %v", drv.last.waits, deps.Events())
	}
}

func TestReleasedQueueRejectsOperations(t *testing.T) {
	drv := &fakeDriver{}
	ctx, q := newTestQueue(t, drv)
	buf := mustBuffer(t, ctx, 8)
	if err := q.Release(); err != nil {
		t.Fatalf("Release: %v", err)
	}

	checks := map[string]error{
		"enqueue": q.PutWriteBuffer(buf, false, []byte{1}, nil, nil),
		"flush":   q.Flush(),
		"finish":  q.Finish(),
		"barrier": q.PutBarrier(),
		"release": q.Release(),
	}
	for name, err := range checks {
		if !errors.Is(err, ErrQueueReleased) {
			t.Errorf("%s: error = %v, want ErrQueueReleased", name, err)
		}
	}
}

func TestCopyBufferDefaultsToWholeSource(t *testing.T) {
	drv := &fakeDriver{}
	ctx, q := newTestQueue(t, drv)
	src := mustBuffer(t, ctx, 48)
	dst := mustBuffer(t, ctx, 64)

	if err := q.PutCopyBuffer(src, dst, nil, nil); err != nil {
		t.Fatal(err)
	}
	if drv.last.mem != src.id || drv.last.mem2 != dst.id {
		t.Errorf("mems = (%d,%d), want (%d,%d)", drv.last.mem, drv.last.mem2, src.id, dst.id)
	}
	if drv.last.offset != 0 || drv.last.offset2 != 0 || drv.last.size != 48 {
		t.Errorf("offsets/size = (%d,%d,%d), want (0,0,48)",
			drv.last.offset, drv.last.offset2, drv.last.size)
	}
}

func TestFillBufferPassesPattern(t *testing.T) {
	drv := &fakeDriver{}
	ctx, q := newTestQueue(t, drv)
	buf := mustBuffer(t, ctx, 32)

	pattern := []byte{0xAB, 0xCD}
	if err := q.PutFillBuffer(buf, pattern, 8, 16, nil, nil); err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(drv.last.pattern, pattern) {
		t.Errorf("pattern = %v, want %v", drv.last.pattern, pattern)
	}
	if drv.last.offset != 8 || drv.last.size != 16 {
		t.Errorf("offset/size = (%d,%d), want (8,16)", drv.last.offset, drv.last.size)
	}
}

func TestImage2DRegionEncodesDegenerateThirdDimension(t *testing.T) {
	drv := &fakeDriver{}
	ctx, q := newTestQueue(t, drv)
	img := mustImage2D(t, ctx, 16, 8, 0)

	data := make([]byte, 5*6)
	if err := q.PutWriteImage2DRegion(img, true, 3, 4, 5, 6, 0, data, nil, nil); err != nil {
		t.Fatal(err)
	}
	if want := []uint64{3, 4, 0}; !reflect.DeepEqual(drv.last.origin, want) {
		t.Errorf("origin = %v, want %v", drv.last.origin, want)
	}
	if want := []uint64{5, 6, 1}; !reflect.DeepEqual(drv.last.region, want) {
		t.Errorf("region = %v, want %v", drv.last.region, want)
	}
}

func TestWholeImage2DDefaultsExtentAndPitch(t *testing.T) {
	drv := &fakeDriver{}
	ctx, q := newTestQueue(t, drv)
	img := mustImage2D(t, ctx, 16, 8, 20)

	dst := make([]byte, 20*8)
	if err := q.PutReadImage2D(img, true, dst, nil, nil); err != nil {
		t.Fatal(err)
	}
	if want := []uint64{0, 0, 0}; !reflect.DeepEqual(drv.last.origin, want) {
		t.Errorf("origin = %v, want %v", drv.last.origin, want)
	}
	if want := []uint64{16, 8, 1}; !reflect.DeepEqual(drv.last.region, want) {
		t.Errorf("region = %v, want %v", drv.last.region, want)
	}
	if drv.last.rowPitch != 20 {
		t.Errorf("rowPitch = %d, want 20", drv.last.rowPitch)
	}
}

func TestCopyImage2DRegionMarshalsBothOrigins(t *testing.T) {
	drv := &fakeDriver{}
	ctx, q := newTestQueue(t, drv)
	src := mustImage2D(t, ctx, 16, 16, 0)
	dst := mustImage2D(t, ctx, 16, 16, 0)

	if err := q.PutCopyImage2DRegion(src, dst, 1, 2, 3, 4, 5, 6, nil, nil); err != nil {
		t.Fatal(err)
	}
	if want := []uint64{1, 2, 0}; !reflect.DeepEqual(drv.last.origin, want) {
		t.Errorf("srcOrigin = %v, want %v", drv.last.origin, want)
	}
	if want := []uint64{3, 4, 0}; !reflect.DeepEqual(drv.last.origin2, want) {
		t.Errorf("dstOrigin = %v, want %v", drv.last.origin2, want)
	}
	if want := []uint64{5, 6, 1}; !reflect.DeepEqual(drv.last.region, want) {
		t.Errorf("region = %v, want %v", drv.last.region, want)
	}
}

func TestImage3DRegionPassedVerbatim(t *testing.T) {
	drv := &fakeDriver{}
	ctx, q := newTestQueue(t, drv)
	img := mustImage3D(t, ctx, 8, 8, 4, 0, 0)

	data := make([]byte, 2*3*4)
	err := q.PutWriteImage3DRegion(img, false, 1, 2, 3, 2, 3, 4, 10, 30, data, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	if want := []uint64{1, 2, 3}; !reflect.DeepEqual(drv.last.origin, want) {
		t.Errorf("origin = %v, want %v", drv.last.origin, want)
	}
	if want := []uint64{2, 3, 4}; !reflect.DeepEqual(drv.last.region, want) {
		t.Errorf("region = %v, want %v", drv.last.region, want)
	}
	if drv.last.rowPitch != 10 || drv.last.slicePitch != 30 {
		t.Errorf("pitches = (%d,%d), want (10,30)", drv.last.rowPitch, drv.last.slicePitch)
	}
}

func TestCopyBufferToImage2DRegion(t *testing.T) {
	drv := &fakeDriver{}
	ctx, q := newTestQueue(t, drv)
	buf := mustBuffer(t, ctx, 64)
	img := mustImage2D(t, ctx, 8, 8, 0)

	if err := q.PutCopyBufferToImage2DRegion(buf, img, 4, 1, 2, 3, 4, nil, nil); err != nil {
		t.Fatal(err)
	}
	if drv.last.offset != 4 {
		t.Errorf("srcOffset = %d, want 4", drv.last.offset)
	}
	if want := []uint64{1, 2, 0}; !reflect.DeepEqual(drv.last.origin, want) {
		t.Errorf("dstOrigin = %v, want %v", drv.last.origin, want)
	}
	if want := []uint64{3, 4, 1}; !reflect.DeepEqual(drv.last.region, want) {
		t.Errorf("region = %v, want %v", drv.last.region, want)
	}
}

func TestMapBufferReturnsDriverWindow(t *testing.T) {
	window := []byte{9, 8, 7}
	drv := &fakeDriver{mapData: window}
	ctx, q := newTestQueue(t, drv)
	buf := mustBuffer(t, ctx, 3)

	data, err := q.PutMapBuffer(buf, true, MapReadWrite, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	if &data[0] != &window[0] {
		t.Error("mapped window does not alias the driver's storage")
	}
	if drv.last.flags != driver.MapReadWrite {
		t.Errorf("flags = %v, want MapReadWrite", drv.last.flags)
	}
	if drv.last.offset != 0 || drv.last.size != 3 {
		t.Errorf("offset/size = (%d,%d), want (0,3)", drv.last.offset, drv.last.size)
	}
}

func TestMapImage2DReportsRowPitch(t *testing.T) {
	drv := &fakeDriver{mapData: make([]byte, 64), mapRow: 16}
	ctx, q := newTestQueue(t, drv)
	img := mustImage2D(t, ctx, 8, 4, 0)

	m, err := q.PutMapImage2D(img, true, MapRead, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	if m.RowPitch != 16 {
		t.Errorf("RowPitch = %d, want 16", m.RowPitch)
	}
	if m.SlicePitch != 0 {
		t.Errorf("SlicePitch = %d, want 0 for a 2D map", m.SlicePitch)
	}
}

func TestUnmapMemoryTargetsMappedObject(t *testing.T) {
	drv := &fakeDriver{mapData: make([]byte, 8)}
	ctx, q := newTestQueue(t, drv)
	buf := mustBuffer(t, ctx, 8)

	if _, err := q.PutMapBuffer(buf, true, MapWrite, nil, nil); err != nil {
		t.Fatal(err)
	}
	if err := q.PutUnmapMemory(buf, nil, nil); err != nil {
		t.Fatal(err)
	}
	if drv.last.mem != buf.id {
		t.Errorf("unmapped mem = %d, want %d", drv.last.mem, buf.id)
	}
}

func TestPutMarkerRequiresOutputList(t *testing.T) {
	drv := &fakeDriver{}
	_, q := newTestQueue(t, drv)

	err := q.PutMarker(nil)
	if !errors.Is(err, ErrNoOutputList) {
		t.Fatalf("error = %v, want ErrNoOutputList", err)
	}

	events := NewEventList(1)
	if err := q.PutMarker(events); err != nil {
		t.Fatalf("PutMarker: %v", err)
	}
	if events.Size() != 1 {
		t.Errorf("Size = %d, want 1", events.Size())
	}
	if drv.last.outNil {
		t.Error("marker must pass a non-nil out")
	}
}

func TestPutWaitForEventSelectsOneToken(t *testing.T) {
	drv := &fakeDriver{}
	ctx, q := newTestQueue(t, drv)
	buf := mustBuffer(t, ctx, 8)

	events := NewEventList(3)
	for i := 0; i < 3; i++ {
		if err := q.PutWriteBuffer(buf, false, []byte{byte(i)}, nil, events); err != nil {
			t.Fatal(err)
		}
	}

	if err := q.PutWaitForEvent(events, 1, true); err != nil {
		t.Fatal(err)
	}
	if want := []driver.EventID{events.Events()[1]}; !reflect.DeepEqual(drv.last.waits, want) {
		t.Errorf("waits = %v, want %v", drv.last.waits, want)
	}
	if got := drv.calls[len(drv.calls)-1]; got != "WaitForEvents" {
		t.Errorf("blocking wait called %q, want WaitForEvents", got)
	}

	if err := q.PutWaitForEvent(events, 2, false); err != nil {
		t.Fatal(err)
	}
	if got := drv.calls[len(drv.calls)-1]; got != "EnqueueWaitForEvents" {
		t.Errorf("queued wait called %q, want EnqueueWaitForEvents", got)
	}

	for _, index := range []int{-1, 3} {
		if err := q.PutWaitForEvent(events, index, true); !errors.Is(err, ErrEventOutOfRange) {
			t.Errorf("index %d: error = %v, want ErrEventOutOfRange", index, err)
		}
	}
}

func TestPutWaitForEventsPassesAllTokens(t *testing.T) {
	drv := &fakeDriver{}
	ctx, q := newTestQueue(t, drv)
	buf := mustBuffer(t, ctx, 8)

	events := NewEventList(2)
	for i := 0; i < 2; i++ {
		if err := q.PutWriteBuffer(buf, false, []byte{byte(i)}, nil, events); err != nil {
			t.Fatal(err)
		}
	}
	if err := q.PutWaitForEvents(events, false); err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(drv.last.waits, events.Events()) {
		t.Errorf("waits = %v, want %v", drv.last.waits, events.Events())
	}
}

func TestSetPropertyUpdatesTrackedFlagsOnSuccess(t *testing.T) {
	drv := &fakeDriver{}
	_, q := newTestQueue(t, drv)

	if err := q.SetProperty(ProfilingMode, true); err != nil {
		t.Fatalf("SetProperty: %v", err)
	}
	if !q.IsProfilingEnabled() {
		t.Error("profiling flag not tracked after successful enable")
	}
	if err := q.SetProperty(ProfilingMode, false); err != nil {
		t.Fatalf("SetProperty: %v", err)
	}
	if q.IsProfilingEnabled() {
		t.Error("profiling flag still tracked after successful disable")
	}
}

func TestSetPropertyKeepsFlagsOnDriverFailure(t *testing.T) {
	drv := &fakeDriver{failProp: driver.QueueOutOfOrderExec}
	_, q := newTestQueue(t, drv)

	err := q.SetProperty(OutOfOrderExecMode, true)
	var cmdErr *CommandError
	if !errors.As(err, &cmdErr) {
		t.Fatalf("error = %v, want *CommandError", err)
	}
	if q.IsOutOfOrderModeEnabled() {
		t.Error("out-of-order flag tracked despite driver rejection")
	}
}

func TestSetPropertyMultiFlagAppliesUpToFailure(t *testing.T) {
	drv := &fakeDriver{failProp: driver.QueueProfiling}
	_, q := newTestQueue(t, drv)

	err := q.SetProperty(OutOfOrderExecMode|ProfilingMode, true)
	var cmdErr *CommandError
	if !errors.As(err, &cmdErr) {
		t.Fatalf("error = %v, want *CommandError", err)
	}
	if !q.IsOutOfOrderModeEnabled() {
		t.Error("flag accepted before the failure should stay applied")
	}
	if q.IsProfilingEnabled() {
		t.Error("rejected flag must not be tracked")
	}
}

func TestSetPropertyRejectsUnknownBits(t *testing.T) {
	drv := &fakeDriver{}
	_, q := newTestQueue(t, drv)

	err := q.SetProperty(ProfilingMode|QueueMode(1<<40), true)
	if !errors.Is(err, ErrUnknownMode) {
		t.Fatalf("error = %v, want ErrUnknownMode", err)
	}
	if !q.IsProfilingEnabled() {
		t.Error("known flag should still be applied alongside the rejection")
	}
}

func TestQueueModeAccessors(t *testing.T) {
	drv := &fakeDriver{}
	_, q := newTestQueue(t, drv, OutOfOrderExecMode, ProfilingMode)
	if !q.IsOutOfOrderModeEnabled() || !q.IsProfilingEnabled() {
		t.Errorf("mode = %s, want both flags", q.Modes())
	}
	if drv.last.prop != driver.QueueOutOfOrderExec|driver.QueueProfiling {
		t.Errorf("driver flags = %v, want both bits", drv.last.prop)
	}
}
