package ocl

import (
	"errors"
	"testing"

	"github.com/gogpu/ocl/driver"
)

func TestNewEventListClampsCapacity(t *testing.T) {
	for _, capacity := range []int{-3, 0} {
		l := NewEventList(capacity)
		if l.Capacity() != 0 {
			t.Errorf("NewEventList(%d).Capacity = %d, want 0", capacity, l.Capacity())
		}
		if l.Size() != 0 {
			t.Errorf("NewEventList(%d).Size = %d, want 0", capacity, l.Size())
		}
	}
}

func TestEventListReserveCommit(t *testing.T) {
	l := NewEventList(2)

	slot, err := l.nextSlot()
	if err != nil {
		t.Fatalf("nextSlot: %v", err)
	}
	*slot = 11
	if l.Size() != 0 {
		t.Fatalf("Size = %d before commit, want 0", l.Size())
	}
	l.commit()
	if l.Size() != 1 {
		t.Fatalf("Size = %d after commit, want 1", l.Size())
	}
	if got := l.Events()[0]; got != 11 {
		t.Errorf("token = %d, want 11", got)
	}

	slot, err = l.nextSlot()
	if err != nil {
		t.Fatalf("nextSlot: %v", err)
	}
	*slot = 22
	l.commit()

	if _, err := l.nextSlot(); !errors.Is(err, ErrEventListFull) {
		t.Fatalf("nextSlot on full list: error = %v, want ErrEventListFull", err)
	}
}

func TestEventListString(t *testing.T) {
	l := NewEventList(4)
	if got := l.String(); got != "EventList(0/4)" {
		t.Errorf("String = %q, want EventList(0/4)", got)
	}
	slot, _ := l.nextSlot()
	*slot = 1
	l.commit()
	if got := l.String(); got != "EventList(1/4)" {
		t.Errorf("String = %q, want EventList(1/4)", got)
	}
}

func TestEventListReleaseFreesAllTokens(t *testing.T) {
	drv := &fakeDriver{}
	l := NewEventList(3)
	for i := 1; i <= 3; i++ {
		slot, _ := l.nextSlot()
		*slot = driver.EventID(i)
		l.commit()
	}

	if err := l.Release(drv); err != nil {
		t.Fatalf("Release: %v", err)
	}
	if len(drv.released) != 3 {
		t.Errorf("released %d tokens, want 3", len(drv.released))
	}
	if l.Size() != 0 {
		t.Errorf("Size = %d after Release, want 0", l.Size())
	}

	// The list is reusable after Release.
	if _, err := l.nextSlot(); err != nil {
		t.Errorf("nextSlot after Release: %v", err)
	}
}
