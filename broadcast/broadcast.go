// broadcast/broadcast.go
package broadcast

import (
	"errors"

	"github.com/aryannayak2901/gambit-game/room"

	"github.com/aryannayak2901/gambit-game/session"
)

var (
	ErrRoomNotFound = errors.New("room not found")
)

// 广播接口
type Broadcaster interface {
	BroadcastToRoom(roomID string, msgID uint16, data []byte) error
	BroadcastToPlayer(playerID string, msgID uint16, data []byte) error
}

// 基于房间的广播器
type RoomBroadcaster struct {
	roomManager    *room.Manager
	sessionManager *session.Manager
	onSend         func() // metrics hook, optional
}

func NewRoomBroadcaster(roomManager *room.Manager, sessionManager *session.Manager) *RoomBroadcaster {
	return &RoomBroadcaster{
		roomManager:    roomManager,
		sessionManager: sessionManager,
	}
}

// OnSend registers a hook invoked once per delivered message.
func (b *RoomBroadcaster) OnSend(hook func()) {
	b.onSend = hook
}

// BroadcastToRoom fans a message out to every session subscribed to the room.
// A send failure on one session never blocks the others; the dead connection
// is cleaned up by its own read loop.
func (b *RoomBroadcaster) BroadcastToRoom(roomID string, msgID uint16, data []byte) error {
	r, exists := b.roomManager.GetRoom(roomID)
	if !exists {
		return ErrRoomNotFound
	}

	// Get a thread-safe copy of the sessions
	sessions := r.GetSessions()

	for _, s := range sessions {
		if err := s.Send(msgID, data); err != nil {
			continue
		}
		if b.onSend != nil {
			b.onSend()
		}
	}

	return nil
}

// BroadcastToPlayer delivers to every session bound to a player, e.g. the
// same wallet connected from two tabs.
func (b *RoomBroadcaster) BroadcastToPlayer(playerID string, msgID uint16, data []byte) error {
	sessions := b.sessionManager.GetByPlayerID(playerID)
	for _, s := range sessions {
		if err := s.Send(msgID, data); err != nil {
			continue
		}
		if b.onSend != nil {
			b.onSend()
		}
	}
	return nil
}
