package room

import "github.com/aryannayak2901/gambit-game/models"

// Broadcaster defines the interface for broadcasting messages to a room.
// This is defined here to break the import cycle between room and broadcast.
type Broadcaster interface {
	BroadcastToRoom(roomID string, msgID uint16, data []byte) error
}

// Archiver persists finished matches. The reaper calls it before evicting a
// finished room; a nil archiver is allowed when the database is disabled.
type Archiver interface {
	ArchiveMatch(record *models.MatchRecord) error
}
