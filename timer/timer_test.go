package timer

import (
	"sync/atomic"
	"testing"
	"time"
)

func TestTimerManager_OneShotFires(t *testing.T) {
	m := NewTimerManager()
	defer m.Stop()

	var fired int32
	m.AddTimer(10*time.Millisecond, 0, func() {
		atomic.AddInt32(&fired, 1)
	})

	time.Sleep(300 * time.Millisecond)

	if got := atomic.LoadInt32(&fired); got != 1 {
		t.Fatalf("One-shot task must fire exactly once, got %d", got)
	}
	if m.Pending() != 0 {
		t.Errorf("Queue should be empty after the one-shot, got %d", m.Pending())
	}
}

func TestTimerManager_RemoveCancelsPendingTask(t *testing.T) {
	m := NewTimerManager()
	defer m.Stop()

	var fired int32
	id := m.AddTimer(time.Hour, 0, func() {
		atomic.AddInt32(&fired, 1)
	})

	if m.Pending() != 1 {
		t.Fatalf("Expected 1 pending task, got %d", m.Pending())
	}

	m.RemoveTimer(id)

	if m.Pending() != 0 {
		t.Errorf("Removed task should leave the queue, got %d", m.Pending())
	}
	time.Sleep(150 * time.Millisecond)
	if got := atomic.LoadInt32(&fired); got != 0 {
		t.Errorf("Removed task must never fire, got %d", got)
	}
}

func TestTimerManager_IntervalRepeats(t *testing.T) {
	m := NewTimerManager()
	defer m.Stop()

	var fired int32
	m.AddTimer(10*time.Millisecond, 50*time.Millisecond, func() {
		atomic.AddInt32(&fired, 1)
	})

	time.Sleep(400 * time.Millisecond)

	if got := atomic.LoadInt32(&fired); got < 2 {
		t.Errorf("Interval task should fire repeatedly, got %d", got)
	}
}
