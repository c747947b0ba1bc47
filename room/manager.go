// room/manager.go
package room

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/aryannayak2901/gambit-game/logger"
	"github.com/aryannayak2901/gambit-game/timer"
)

// Manager 管理所有房间。进程里只构造一个，由服务端注入各处，
// 不做全局变量。
type Manager struct {
	rooms   map[string]*Room
	mutex   sync.RWMutex
	rules   Rules
	timers  *timer.TimerManager
	archive Archiver

	idleTimeout    time.Duration
	finishedLinger time.Duration
	reaperID       int64
}

// NewManager 创建一个新的房间管理器
func NewManager(rules Rules, timers *timer.TimerManager) *Manager {
	return &Manager{
		rooms:  make(map[string]*Room),
		rules:  rules,
		timers: timers,
	}
}

// SetArchiver wires the match archive. May stay nil when persistence is off.
func (m *Manager) SetArchiver(a Archiver) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.archive = a
}

// GetOrCreate returns the room with the given ID, creating it lazily. The
// operation is idempotent per ID; an empty ID gets a server-assigned one.
func (m *Manager) GetOrCreate(id string, broadcaster Broadcaster) *Room {
	if id == "" {
		id = uuid.New().String()
	}

	m.mutex.Lock()
	defer m.mutex.Unlock()

	if room, exists := m.rooms[id]; exists {
		return room
	}
	room := NewRoom(id, m.rules, broadcaster, m.timers)
	m.rooms[id] = room
	logger.Log.Infof("创建房间 %s，奖池 %d GORBA", id, room.pot)
	return room
}

// GetRoom 从管理器中获取一个房间
func (m *Manager) GetRoom(id string) (*Room, bool) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	room, exists := m.rooms[id]
	return room, exists
}

// RemoveRoom 从管理器中移除并关闭一个房间
func (m *Manager) RemoveRoom(id string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if room, exists := m.rooms[id]; exists {
		room.Close()
		delete(m.rooms, id)
	}
}

// Count 当前房间数
func (m *Manager) Count() int {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return len(m.rooms)
}

// StartReaper runs a periodic sweep that evicts finished rooms after a linger
// period and any room idle past the timeout. Finished rooms are archived
// before eviction.
func (m *Manager) StartReaper(idleTimeout, finishedLinger, sweepInterval time.Duration) {
	m.idleTimeout = idleTimeout
	m.finishedLinger = finishedLinger
	m.reaperID = m.timers.AddTimer(sweepInterval, sweepInterval, m.sweep)
}

// StopReaper 停止回收
func (m *Manager) StopReaper() {
	if m.reaperID != 0 {
		m.timers.RemoveTimer(m.reaperID)
		m.reaperID = 0
	}
}

func (m *Manager) sweep() {
	now := time.Now()

	m.mutex.RLock()
	candidates := make([]*Room, 0)
	for _, room := range m.rooms {
		idle := now.Sub(room.LastActive())
		switch room.GetStatus() {
		case StatusFinished:
			if idle > m.finishedLinger {
				candidates = append(candidates, room)
			}
		default:
			if idle > m.idleTimeout {
				candidates = append(candidates, room)
			}
		}
	}
	m.mutex.RUnlock()

	for _, room := range candidates {
		if room.GetStatus() == StatusFinished && m.archive != nil {
			if err := m.archive.ArchiveMatch(room.Record()); err != nil {
				logger.Log.Errorf("归档房间 %s 失败: %v", room.ID, err)
				// 本轮不回收，下一轮重试
				continue
			}
		}
		logger.Log.Infof("回收房间 %s (status=%s)", room.ID, room.GetStatus())
		m.RemoveRoom(room.ID)
	}
}
