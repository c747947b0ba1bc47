package room

import (
	"sync"
	"testing"
	"time"

	"github.com/aryannayak2901/gambit-game/models"
	"github.com/aryannayak2901/gambit-game/timer"
)

// MockArchiver records archived matches.
type MockArchiver struct {
	mutex   sync.Mutex
	records []*models.MatchRecord
}

func (m *MockArchiver) ArchiveMatch(record *models.MatchRecord) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.records = append(m.records, record)
	return nil
}

func (m *MockArchiver) count() int {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	return len(m.records)
}

func TestManager_GetOrCreateIsIdempotent(t *testing.T) {
	manager := NewManager(testRules(), timer.NewTimerManager())
	mock := &MockBroadcaster{}

	room1 := manager.GetOrCreate("r1", mock)
	room2 := manager.GetOrCreate("r1", mock)

	if room1 != room2 {
		t.Fatal("GetOrCreate must return the same instance for the same ID")
	}
	if manager.Count() != 1 {
		t.Errorf("Expected 1 room, got %d", manager.Count())
	}

	// a second GetOrCreate must not redraw the safe doors
	doors1 := room1.SafeDoors()
	doors2 := manager.GetOrCreate("r1", mock).SafeDoors()
	for level, door := range doors1 {
		if doors2[level] != door {
			t.Fatalf("Safe door for level %d changed between lookups", level)
		}
	}
}

func TestManager_AssignsIDWhenEmpty(t *testing.T) {
	manager := NewManager(testRules(), timer.NewTimerManager())

	room := manager.GetOrCreate("", &MockBroadcaster{})
	if room.ID == "" {
		t.Fatal("Expected a server-assigned room ID")
	}
	if _, exists := manager.GetRoom(room.ID); !exists {
		t.Error("Assigned room must be registered under its generated ID")
	}
}

func TestManager_RemoveRoom(t *testing.T) {
	manager := NewManager(testRules(), timer.NewTimerManager())
	room := manager.GetOrCreate("r1", &MockBroadcaster{})

	manager.RemoveRoom(room.ID)

	if _, exists := manager.GetRoom("r1"); exists {
		t.Error("Removed room must not be found")
	}
	if manager.Count() != 0 {
		t.Errorf("Expected 0 rooms, got %d", manager.Count())
	}
}

func TestManager_ReaperArchivesFinishedRooms(t *testing.T) {
	timers := timer.NewTimerManager()
	defer timers.Stop()

	rules := testRules()
	rules.StartDelay = time.Hour
	manager := NewManager(rules, timers)
	archiver := &MockArchiver{}
	manager.SetArchiver(archiver)

	mock := &MockBroadcaster{}
	r := manager.GetOrCreate("done", mock)
	fillRoom(t, r)
	startMatch(t, r)

	// play the match out: everyone picks the wrong door
	wrong := (r.safeDoors[1] + 1) % rules.DoorsPerLevel
	for _, id := range []string{"p1", "p2", "p3"} {
		if err := r.SelectDoor(id, 1, wrong); err != nil {
			t.Fatalf("SelectDoor(%s) failed: %v", id, err)
		}
	}
	if r.GetStatus() != StatusFinished {
		t.Fatalf("Setup failed, room not finished: %s", r.GetStatus())
	}

	idle := manager.GetOrCreate("idle", mock)
	_ = idle

	manager.StartReaper(80*time.Millisecond, 10*time.Millisecond, 40*time.Millisecond)
	defer manager.StopReaper()

	time.Sleep(400 * time.Millisecond)

	if _, exists := manager.GetRoom("done"); exists {
		t.Error("Finished room should have been reaped")
	}
	if archiver.count() != 1 {
		t.Errorf("Expected 1 archived match, got %d", archiver.count())
	}
	if archiver.count() == 1 && archiver.records[0].RoomID != "done" {
		t.Errorf("Archived the wrong room: %s", archiver.records[0].RoomID)
	}

	if _, exists := manager.GetRoom("idle"); exists {
		t.Error("Idle room should have been reaped after the idle timeout")
	}
}
