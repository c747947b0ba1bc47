package room

import (
	"encoding/json"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aryannayak2901/gambit-game/logger"
	"github.com/aryannayak2901/gambit-game/models"
	"github.com/aryannayak2901/gambit-game/network"
	"github.com/aryannayak2901/gambit-game/timer"
)

func TestMain(m *testing.M) {
	logger.InitDevelopment()
	os.Exit(m.Run())
}

// MockBroadcaster is a test double for the Broadcaster interface. It records
// every broadcast so tests can assert on what went out.
type MockBroadcaster struct {
	mutex  sync.Mutex
	msgIDs []uint16
	data   [][]byte
}

func (m *MockBroadcaster) BroadcastToRoom(roomID string, msgID uint16, data []byte) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.msgIDs = append(m.msgIDs, msgID)
	m.data = append(m.data, data)
	return nil
}

func (m *MockBroadcaster) count(msgID uint16) int {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	n := 0
	for _, id := range m.msgIDs {
		if id == msgID {
			n++
		}
	}
	return n
}

func (m *MockBroadcaster) total() int {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	return len(m.msgIDs)
}

func testRules() Rules {
	rules := DefaultRules()
	rules.StartDelay = 20 * time.Millisecond
	return rules
}

func testPlayer(id string, balance int64) models.PlayerDescriptor {
	return models.PlayerDescriptor{ID: id, Name: id, Color: "#fff", GorbaBalance: balance}
}

// fillRoom joins three players.
func fillRoom(t *testing.T, r *Room) {
	t.Helper()
	for _, id := range []string{"p1", "p2", "p3"} {
		if err := r.Join(testPlayer(id, 5)); err != nil {
			t.Fatalf("Join(%s) failed: %v", id, err)
		}
	}
}

// startMatch flips the room to playing without waiting out the countdown.
func startMatch(t *testing.T, r *Room) {
	t.Helper()
	r.beginMatch()
	if r.GetStatus() != StatusPlaying {
		t.Fatalf("Expected room to be playing, got %s", r.GetStatus())
	}
}

func TestNewRoom_SafeDoorTable(t *testing.T) {
	rules := testRules()
	r := newRoom("r1", rules, &MockBroadcaster{}, timer.NewTimerManager(), 42)

	if len(r.safeDoors) != rules.TopLevel {
		t.Fatalf("Expected %d safe doors, got %d", rules.TopLevel, len(r.safeDoors))
	}
	for level := 1; level <= rules.TopLevel; level++ {
		door, ok := r.safeDoors[level]
		if !ok {
			t.Errorf("No safe door drawn for level %d", level)
		}
		if door < 0 || door >= rules.DoorsPerLevel {
			t.Errorf("Safe door for level %d out of range: %d", level, door)
		}
	}

	if r.pot != rules.EntryFee*int64(rules.PlayersPerMatch) {
		t.Errorf("Expected pot %d, got %d", rules.EntryFee*int64(rules.PlayersPerMatch), r.pot)
	}
	if r.GetStatus() != StatusWaiting {
		t.Errorf("New room should be waiting, got %s", r.GetStatus())
	}
}

func TestRoom_JoinOrderAndCapacity(t *testing.T) {
	mock := &MockBroadcaster{}
	r := NewRoom("r1", testRules(), mock, timer.NewTimerManager())

	fillRoom(t, r)

	if err := r.Join(testPlayer("p4", 5)); err != ErrRoomFull {
		t.Fatalf("Expected ErrRoomFull for 4th player, got %v", err)
	}
	if r.PlayerCount() != 3 {
		t.Errorf("Expected 3 players after rejected join, got %d", r.PlayerCount())
	}

	for i, want := range []string{"p1", "p2", "p3"} {
		if r.players[i].ID != want {
			t.Errorf("Expected player %s at index %d, got %s", want, i, r.players[i].ID)
		}
	}
}

func TestRoom_RejoinIsIdempotent(t *testing.T) {
	mock := &MockBroadcaster{}
	r := NewRoom("r1", testRules(), mock, timer.NewTimerManager())

	if err := r.Join(testPlayer("p1", 5)); err != nil {
		t.Fatalf("Join failed: %v", err)
	}
	if err := r.Join(testPlayer("p1", 99)); err != nil {
		t.Fatalf("Rejoin should not error, got %v", err)
	}

	if r.PlayerCount() != 1 {
		t.Fatalf("Rejoin must not duplicate the player, count=%d", r.PlayerCount())
	}
	if r.players[0].GorbaBalance != 5 {
		t.Errorf("Rejoin must not overwrite state, balance=%d", r.players[0].GorbaBalance)
	}
	if mock.count(network.MsgTypeLobbyUpdate) != 2 {
		t.Errorf("Expected a lobby update per join, got %d", mock.count(network.MsgTypeLobbyUpdate))
	}
}

func TestRoom_StartCountdownFiresOnce(t *testing.T) {
	mock := &MockBroadcaster{}
	timers := timer.NewTimerManager()
	defer timers.Stop()
	r := NewRoom("r1", testRules(), mock, timers)

	fillRoom(t, r)

	if r.GetStatus() != StatusWaiting {
		t.Fatalf("Room must stay waiting during the countdown, got %s", r.GetStatus())
	}

	time.Sleep(300 * time.Millisecond)

	if r.GetStatus() != StatusPlaying {
		t.Fatalf("Expected room to be playing after the countdown, got %s", r.GetStatus())
	}
	if got := mock.count(network.MsgTypeMatchStarted); got != 1 {
		t.Errorf("match-started must fire exactly once, got %d", got)
	}
}

func TestRoom_LeaveCancelsCountdown(t *testing.T) {
	mock := &MockBroadcaster{}
	timers := timer.NewTimerManager()
	defer timers.Stop()
	r := NewRoom("r1", testRules(), mock, timers)

	fillRoom(t, r)
	if err := r.Leave("p2"); err != nil {
		t.Fatalf("Leave failed: %v", err)
	}

	time.Sleep(300 * time.Millisecond)

	if r.GetStatus() != StatusWaiting {
		t.Fatalf("Countdown must be cancelled by the leave, status=%s", r.GetStatus())
	}
	if got := mock.count(network.MsgTypeMatchStarted); got != 0 {
		t.Errorf("match-started must not fire, got %d", got)
	}
	if r.PlayerCount() != 2 {
		t.Errorf("Expected 2 players after leave, got %d", r.PlayerCount())
	}
}

func TestRoom_SelectDoorAdvances(t *testing.T) {
	mock := &MockBroadcaster{}
	rules := testRules()
	rules.StartDelay = time.Hour // start driven manually
	r := NewRoom("r1", rules, mock, timer.NewTimerManager())

	fillRoom(t, r)
	startMatch(t, r)

	safe := r.safeDoors[1]
	if err := r.SelectDoor("p1", 1, safe); err != nil {
		t.Fatalf("SelectDoor failed: %v", err)
	}

	if r.players[0].Position != 2 {
		t.Errorf("Expected position 2, got %d", r.players[0].Position)
	}
	if r.players[0].Status != PlayerActive {
		t.Errorf("Player should stay active, got %s", r.players[0].Status)
	}
	if got := mock.count(network.MsgTypeGameUpdate); got != 1 {
		t.Errorf("Expected 1 game update, got %d", got)
	}
}

func TestRoom_SelectDoorOutOfTurnIsNoOp(t *testing.T) {
	mock := &MockBroadcaster{}
	rules := testRules()
	rules.StartDelay = time.Hour
	r := NewRoom("r1", rules, mock, timer.NewTimerManager())

	fillRoom(t, r)
	startMatch(t, r)

	before := mock.total()

	// p1 is at level 1, acting at level 3 must change nothing
	if err := r.SelectDoor("p1", 3, r.safeDoors[3]); err != ErrWrongLevel {
		t.Fatalf("Expected ErrWrongLevel, got %v", err)
	}
	if err := r.SelectDoor("ghost", 1, 0); err != ErrPlayerNotFound {
		t.Fatalf("Expected ErrPlayerNotFound, got %v", err)
	}
	if err := r.SelectDoor("p1", 1, 7); err != ErrBadDoor {
		t.Fatalf("Expected ErrBadDoor, got %v", err)
	}

	if r.players[0].Position != 1 {
		t.Errorf("Position must be untouched, got %d", r.players[0].Position)
	}
	if mock.total() != before {
		t.Errorf("Invalid intents must not broadcast, got %d new messages", mock.total()-before)
	}
}

func TestRoom_WrongDoorEliminatesAndFinishes(t *testing.T) {
	mock := &MockBroadcaster{}
	rules := testRules()
	rules.StartDelay = time.Hour
	rules.BribeBonus = 0
	r := NewRoom("r1", rules, mock, timer.NewTimerManager())

	fillRoom(t, r)
	startMatch(t, r)

	wrong := (r.safeDoors[1] + 1) % rules.DoorsPerLevel
	for _, id := range []string{"p1", "p2"} {
		if err := r.SelectDoor(id, 1, wrong); err != nil {
			t.Fatalf("SelectDoor(%s) failed: %v", id, err)
		}
	}

	if r.GetStatus() != StatusPlaying {
		t.Fatalf("Room must keep playing while one player is active, got %s", r.GetStatus())
	}

	if err := r.SelectDoor("p3", 1, wrong); err != nil {
		t.Fatalf("SelectDoor(p3) failed: %v", err)
	}

	if r.GetStatus() != StatusFinished {
		t.Errorf("Room must finish when every player is out, got %s", r.GetStatus())
	}
	for _, p := range r.players {
		if p.Status != PlayerEliminated {
			t.Errorf("Player %s should be eliminated, got %s", p.ID, p.Status)
		}
	}

	// acting in a finished room is a no-op
	if err := r.SelectDoor("p1", 1, r.safeDoors[1]); err != ErrNotPlaying {
		t.Errorf("Expected ErrNotPlaying in finished room, got %v", err)
	}
}

func TestRoom_WinAtTopLevel(t *testing.T) {
	mock := &MockBroadcaster{}
	rules := testRules()
	rules.StartDelay = time.Hour
	r := NewRoom("r1", rules, mock, timer.NewTimerManager())

	fillRoom(t, r)
	startMatch(t, r)

	for level := 1; level <= rules.TopLevel; level++ {
		if err := r.SelectDoor("p1", level, r.safeDoors[level]); err != nil {
			t.Fatalf("SelectDoor at level %d failed: %v", level, err)
		}
	}

	winner := r.players[0]
	if winner.Status != PlayerWinner {
		t.Errorf("Expected winner status, got %s", winner.Status)
	}
	if winner.Position != rules.TopLevel+1 {
		t.Errorf("Expected position %d, got %d", rules.TopLevel+1, winner.Position)
	}
	if r.GetStatus() != StatusFinished {
		t.Errorf("Room must be finished after a win, got %s", r.GetStatus())
	}

	record := r.Record()
	if record.Winner != "p1" {
		t.Errorf("Record winner should be p1, got %q", record.Winner)
	}
	if record.Pot != rules.EntryFee*int64(rules.PlayersPerMatch) {
		t.Errorf("Record pot mismatch: %d", record.Pot)
	}
}

func TestRoom_BribeSemantics(t *testing.T) {
	mock := &MockBroadcaster{}
	rules := testRules()
	rules.StartDelay = time.Hour
	r := NewRoom("r1", rules, mock, timer.NewTimerManager())

	if err := r.Join(testPlayer("p1", 2)); err != nil {
		t.Fatalf("Join failed: %v", err)
	}
	p := r.players[0]

	for i := 1; i <= 2; i++ {
		if err := r.UseBribe("p1", 1); err != nil {
			t.Fatalf("UseBribe #%d failed: %v", i, err)
		}
		if p.GorbaBalance != int64(2-i) {
			t.Errorf("Expected balance %d, got %d", 2-i, p.GorbaBalance)
		}
		if p.Bribes != i {
			t.Errorf("Expected %d bribes, got %d", i, p.Bribes)
		}
	}

	before := mock.total()
	if err := r.UseBribe("p1", 1); err != ErrInsufficientBalance {
		t.Fatalf("Expected ErrInsufficientBalance, got %v", err)
	}
	if p.GorbaBalance != 0 || p.Bribes != 2 {
		t.Errorf("Broke bribe must not mutate: balance=%d bribes=%d", p.GorbaBalance, p.Bribes)
	}
	if mock.total() != before {
		t.Errorf("Broke bribe must not broadcast")
	}
}

func TestRoom_BribeRescuesWrongDoor(t *testing.T) {
	mock := &MockBroadcaster{}
	rules := testRules()
	rules.StartDelay = time.Hour
	rules.BribeBonus = 1.0 // rescue always hits
	r := NewRoom("r1", rules, mock, timer.NewTimerManager())

	fillRoom(t, r)
	startMatch(t, r)

	if err := r.UseBribe("p1", 1); err != nil {
		t.Fatalf("UseBribe failed: %v", err)
	}

	wrong := (r.safeDoors[1] + 1) % rules.DoorsPerLevel
	if err := r.SelectDoor("p1", 1, wrong); err != nil {
		t.Fatalf("SelectDoor failed: %v", err)
	}

	p := r.players[0]
	if p.Status != PlayerActive || p.Position != 2 {
		t.Fatalf("Bribe at full bonus must rescue the pick: status=%s position=%d", p.Status, p.Position)
	}

	// the bonus was consumed; the next wrong pick eliminates
	wrong2 := (r.safeDoors[2] + 1) % rules.DoorsPerLevel
	if err := r.SelectDoor("p1", 2, wrong2); err != nil {
		t.Fatalf("SelectDoor at level 2 failed: %v", err)
	}
	if p.Status != PlayerEliminated {
		t.Errorf("Expected elimination after bonus was spent, got %s", p.Status)
	}
}

func TestRoom_SnapshotHidesSafeDoors(t *testing.T) {
	r := NewRoom("r1", testRules(), &MockBroadcaster{}, timer.NewTimerManager())
	fillRoom(t, r)

	data, err := json.Marshal(r.Snapshot())
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	payload := string(data)
	if strings.Contains(payload, "safeDoors") || strings.Contains(payload, "safe_doors") {
		t.Errorf("Snapshot must never leak the safe-door table: %s", payload)
	}
	if !strings.Contains(payload, `"status":"waiting"`) {
		t.Errorf("Snapshot missing room status: %s", payload)
	}

	doors := r.SafeDoors()
	doors[1] = 99
	if r.safeDoors[1] == 99 {
		t.Error("SafeDoors must return a copy")
	}
}
