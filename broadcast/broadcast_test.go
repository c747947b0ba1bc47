package broadcast

import (
	"net"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/aryannayak2901/gambit-game/logger"
	"github.com/aryannayak2901/gambit-game/network"
	"github.com/aryannayak2901/gambit-game/room"
	"github.com/aryannayak2901/gambit-game/session"
	"github.com/aryannayak2901/gambit-game/timer"
)

func TestMain(m *testing.M) {
	logger.InitDevelopment()
	os.Exit(m.Run())
}

// MockConnection counts sends; optionally fails.
type MockConnection struct {
	mutex sync.Mutex
	sends int
	fail  bool
}

func (m *MockConnection) Send(msgID uint16, data []byte) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	if m.fail {
		return net.ErrClosed
	}
	m.sends++
	return nil
}

func (m *MockConnection) Close() error                         { return nil }
func (m *MockConnection) RemoteAddr() net.Addr                 { return &net.TCPAddr{} }
func (m *MockConnection) SetHeartbeat(interval time.Duration)  {}
func (m *MockConnection) ReadPacket() (*network.Packet, error) { return nil, nil }

func (m *MockConnection) count() int {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	return m.sends
}

func TestBroadcastToRoom_UnknownRoom(t *testing.T) {
	rm := room.NewManager(room.DefaultRules(), timer.NewTimerManager())
	sm := session.NewManager()
	b := NewRoomBroadcaster(rm, sm)

	if err := b.BroadcastToRoom("ghost", network.MsgTypeGameUpdate, nil); err != ErrRoomNotFound {
		t.Fatalf("Expected ErrRoomNotFound, got %v", err)
	}
}

func TestBroadcastToRoom_FanOutSurvivesDeadConnection(t *testing.T) {
	rm := room.NewManager(room.DefaultRules(), timer.NewTimerManager())
	sm := session.NewManager()
	b := NewRoomBroadcaster(rm, sm)

	r := rm.GetOrCreate("r1", b)

	good1 := &MockConnection{}
	dead := &MockConnection{fail: true}
	good2 := &MockConnection{}
	for i, conn := range []*MockConnection{good1, dead, good2} {
		sess := session.NewSession(string(rune('a'+i)), conn)
		sm.Add(sess)
		r.Attach(sess)
	}

	if err := b.BroadcastToRoom("r1", network.MsgTypeGameUpdate, []byte("{}")); err != nil {
		t.Fatalf("BroadcastToRoom failed: %v", err)
	}

	if good1.count() != 1 || good2.count() != 1 {
		t.Errorf("Healthy sessions must receive the broadcast: %d/%d", good1.count(), good2.count())
	}
}

func TestBroadcastToPlayer_HitsEverySessionOfTheWallet(t *testing.T) {
	rm := room.NewManager(room.DefaultRules(), timer.NewTimerManager())
	sm := session.NewManager()
	b := NewRoomBroadcaster(rm, sm)

	tab1 := &MockConnection{}
	tab2 := &MockConnection{}
	other := &MockConnection{}

	s1 := session.NewSession("s1", tab1)
	s1.Bind("wallet-a", "r1")
	s2 := session.NewSession("s2", tab2)
	s2.Bind("wallet-a", "r1")
	s3 := session.NewSession("s3", other)
	s3.Bind("wallet-b", "r1")
	sm.Add(s1)
	sm.Add(s2)
	sm.Add(s3)

	sent := 0
	b.OnSend(func() { sent++ })

	if err := b.BroadcastToPlayer("wallet-a", network.MsgTypeReject, []byte("{}")); err != nil {
		t.Fatalf("BroadcastToPlayer failed: %v", err)
	}

	if tab1.count() != 1 || tab2.count() != 1 {
		t.Errorf("Both tabs of wallet-a must be hit: %d/%d", tab1.count(), tab2.count())
	}
	if other.count() != 0 {
		t.Errorf("wallet-b must not be hit, got %d", other.count())
	}
	if sent != 2 {
		t.Errorf("OnSend hook should fire per delivery, got %d", sent)
	}
}
