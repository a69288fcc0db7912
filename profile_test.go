package ocl

import (
	"errors"
	"testing"

	"github.com/gogpu/ocl/driver"
)

func TestEventProfileUnsupportedDriver(t *testing.T) {
	drv := &fakeDriver{}
	ctx, q := newTestQueue(t, drv, ProfilingMode)
	buf := mustBuffer(t, ctx, 8)

	events := NewEventList(1)
	if err := q.PutWriteBuffer(buf, false, []byte{1}, nil, events); err != nil {
		t.Fatal(err)
	}
	if _, err := q.EventProfile(events, 0); !errors.Is(err, ErrProfilingUnsupported) {
		t.Fatalf("error = %v, want ErrProfilingUnsupported", err)
	}
}

func TestEventProfileIndexBounds(t *testing.T) {
	drv := &fakeProfDriver{}
	_, q := newTestQueue(t, drv, ProfilingMode)

	events := NewEventList(1)
	for _, index := range []int{-1, 0} {
		if _, err := q.EventProfile(events, index); !errors.Is(err, ErrEventOutOfRange) {
			t.Errorf("index %d: error = %v, want ErrEventOutOfRange", index, err)
		}
	}
}

func TestEventProfileReportsTimestamps(t *testing.T) {
	drv := &fakeProfDriver{profiles: map[driver.EventID]driver.EventProfile{}}
	ctx, q := newTestQueue(t, drv, ProfilingMode)
	buf := mustBuffer(t, ctx, 8)

	events := NewEventList(1)
	if err := q.PutWriteBuffer(buf, false, []byte{1}, nil, events); err != nil {
		t.Fatal(err)
	}
	want := driver.EventProfile{Queued: 10, Submitted: 20, Start: 30, End: 40}
	drv.profiles[events.Events()[0]] = want

	got, err := q.EventProfile(events, 0)
	if err != nil {
		t.Fatal(err)
	}
	if got != want {
		t.Errorf("profile = %+v, want %+v", got, want)
	}
}
