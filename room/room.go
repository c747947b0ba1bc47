// room/room.go
package room

import (
	"encoding/json"
	"errors"
	"math/rand"
	"sync"
	"time"

	"github.com/aryannayak2901/gambit-game/logger"
	"github.com/aryannayak2901/gambit-game/models"
	"github.com/aryannayak2901/gambit-game/network"
	"github.com/aryannayak2901/gambit-game/session"
	"github.com/aryannayak2901/gambit-game/timer"
)

// Status 表示房间的业务状态（单向：waiting -> playing -> finished）
type Status string

const (
	StatusWaiting  Status = "waiting"
	StatusPlaying  Status = "playing"
	StatusFinished Status = "finished"
)

// PlayerStatus 玩家状态（单向：active -> eliminated | winner）
type PlayerStatus string

const (
	PlayerActive     PlayerStatus = "active"
	PlayerEliminated PlayerStatus = "eliminated"
	PlayerWinner     PlayerStatus = "winner"
)

var (
	ErrRoomFull            = errors.New("room is full")
	ErrMatchStarted        = errors.New("match already started")
	ErrPlayerNotFound      = errors.New("player not found in room")
	ErrPlayerNotActive     = errors.New("player is not active")
	ErrNotPlaying          = errors.New("room is not in playing state")
	ErrWrongLevel          = errors.New("player is not at that level")
	ErrBadDoor             = errors.New("door index out of range")
	ErrInsufficientBalance = errors.New("insufficient GORBA balance")
)

// Player 房间内的一名玩家
type Player struct {
	ID           string
	Name         string
	Color        string
	Position     int // 1..TopLevel+1，超过顶层即获胜
	Status       PlayerStatus
	GorbaBalance int64
	Bribes       int
	bonuses      map[int]int // level -> 该层未消耗的贿赂加成次数
}

// Room 是一局 Lucky Ladders 比赛的核心结构
type Room struct {
	ID        string
	CreatedAt time.Time

	rules       Rules
	broadcaster Broadcaster
	timers      *timer.TimerManager

	// 游戏状态，stateMutex 保护
	status       Status
	currentLevel int
	pot          int64
	players      []*Player // 按加入顺序
	safeDoors    map[int]int
	rng          *rand.Rand
	startTimerID int64
	lastActive   time.Time
	finishedAt   time.Time
	stateMutex   sync.Mutex

	// 订阅本房间广播的会话，sessMutex 保护
	sessions  map[string]*session.Session
	sessMutex sync.RWMutex
}

// NewRoom 创建一个新房间并生成本局的安全门
func NewRoom(id string, rules Rules, broadcaster Broadcaster, timers *timer.TimerManager) *Room {
	return newRoom(id, rules, broadcaster, timers, time.Now().UnixNano())
}

func newRoom(id string, rules Rules, broadcaster Broadcaster, timers *timer.TimerManager, seed int64) *Room {
	r := &Room{
		ID:           id,
		CreatedAt:    time.Now(),
		rules:        rules,
		broadcaster:  broadcaster,
		timers:       timers,
		status:       StatusWaiting,
		currentLevel: 1,
		pot:          rules.EntryFee * int64(rules.PlayersPerMatch),
		rng:          rand.New(rand.NewSource(seed)),
		sessions:     make(map[string]*session.Session),
		lastActive:   time.Now(),
	}
	r.safeDoors = r.drawSafeDoors()
	return r
}

// drawSafeDoors 每层独立均匀抽取一扇安全门，整局不变
func (r *Room) drawSafeDoors() map[int]int {
	doors := make(map[int]int, r.rules.TopLevel)
	for level := 1; level <= r.rules.TopLevel; level++ {
		doors[level] = r.rng.Intn(r.rules.DoorsPerLevel)
	}
	return doors
}

// --- 会话订阅 ---

// Attach subscribes a session to this room's broadcasts.
func (r *Room) Attach(s *session.Session) {
	r.sessMutex.Lock()
	defer r.sessMutex.Unlock()
	r.sessions[s.ID] = s
}

// Detach removes a session subscription.
func (r *Room) Detach(sessionID string) {
	r.sessMutex.Lock()
	defer r.sessMutex.Unlock()
	delete(r.sessions, sessionID)
}

// GetSessions returns a slice of all subscribed sessions (thread-safe).
func (r *Room) GetSessions() []*session.Session {
	r.sessMutex.RLock()
	defer r.sessMutex.RUnlock()

	sessions := make([]*session.Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		sessions = append(sessions, s)
	}
	return sessions
}

// --- 核心操作 ---

// Join adds a player to the room. Joining an ID that is already present is
// idempotent and only rebroadcasts the lobby, which doubles as reconnect
// support. Filling the last seat arms the one-shot start countdown.
func (r *Room) Join(desc models.PlayerDescriptor) error {
	r.stateMutex.Lock()

	if r.findPlayer(desc.ID) != nil {
		r.touch()
		r.stateMutex.Unlock()
		r.broadcastState(network.MsgTypeLobbyUpdate)
		return nil
	}

	if r.status != StatusWaiting {
		r.stateMutex.Unlock()
		return ErrMatchStarted
	}
	if len(r.players) >= r.rules.PlayersPerMatch {
		r.stateMutex.Unlock()
		return ErrRoomFull
	}

	r.players = append(r.players, &Player{
		ID:           desc.ID,
		Name:         desc.Name,
		Color:        desc.Color,
		Position:     1,
		Status:       PlayerActive,
		GorbaBalance: desc.GorbaBalance,
		bonuses:      make(map[int]int),
	})
	r.touch()

	full := len(r.players) == r.rules.PlayersPerMatch
	if full {
		r.scheduleStartLocked()
	}
	r.stateMutex.Unlock()

	r.broadcastState(network.MsgTypeLobbyUpdate)
	return nil
}

// scheduleStartLocked arms the start countdown. Caller holds stateMutex.
func (r *Room) scheduleStartLocked() {
	if r.startTimerID != 0 {
		return
	}
	r.startTimerID = r.timers.AddTimer(r.rules.StartDelay, 0, r.beginMatch)
}

// beginMatch fires after the start delay. The room may have changed while the
// countdown ran (a leave, a second countdown cannot exist), so the transition
// is re-validated under the lock and happens at most once.
func (r *Room) beginMatch() {
	r.stateMutex.Lock()
	r.startTimerID = 0
	if r.status != StatusWaiting || len(r.players) != r.rules.PlayersPerMatch {
		r.stateMutex.Unlock()
		return
	}
	r.status = StatusPlaying
	r.touch()
	r.stateMutex.Unlock()

	logger.Log.Infof("房间 %s 满员，比赛开始", r.ID)
	r.broadcastState(network.MsgTypeMatchStarted)
}

// Leave removes a player. Dropping below a full lobby while still waiting
// disarms the pending start countdown.
func (r *Room) Leave(playerID string) error {
	r.stateMutex.Lock()

	idx := -1
	for i, p := range r.players {
		if p.ID == playerID {
			idx = i
			break
		}
	}
	if idx < 0 {
		r.stateMutex.Unlock()
		return ErrPlayerNotFound
	}

	r.players = append(r.players[:idx], r.players[idx+1:]...)
	if r.status == StatusWaiting && len(r.players) < r.rules.PlayersPerMatch && r.startTimerID != 0 {
		r.timers.RemoveTimer(r.startTimerID)
		r.startTimerID = 0
	}
	if r.status == StatusPlaying && len(r.players) > 0 && r.noneActiveLocked() {
		r.finishLocked()
	}
	r.touch()
	r.stateMutex.Unlock()

	r.broadcastState(network.MsgTypeLobbyUpdate)
	return nil
}

// SelectDoor resolves a door pick. Every precondition is checked before any
// mutation; a failed precondition leaves the room untouched and nothing is
// broadcast.
func (r *Room) SelectDoor(playerID string, level, doorIndex int) error {
	r.stateMutex.Lock()

	if r.status != StatusPlaying {
		r.stateMutex.Unlock()
		return ErrNotPlaying
	}
	p := r.findPlayer(playerID)
	if p == nil {
		r.stateMutex.Unlock()
		return ErrPlayerNotFound
	}
	if p.Status != PlayerActive {
		r.stateMutex.Unlock()
		return ErrPlayerNotActive
	}
	if p.Position != level {
		r.stateMutex.Unlock()
		return ErrWrongLevel
	}
	if doorIndex < 0 || doorIndex >= r.rules.DoorsPerLevel {
		r.stateMutex.Unlock()
		return ErrBadDoor
	}

	safe := doorIndex == r.safeDoors[level]
	if !safe {
		// 贿赂补救：每次未消耗的加成独立掷一次
		for i := 0; i < p.bonuses[level] && !safe; i++ {
			if r.rng.Float64() < r.rules.BribeBonus {
				safe = true
			}
		}
	}
	delete(p.bonuses, level)

	if safe {
		p.Position = level + 1
		if p.Position > r.rules.TopLevel {
			p.Status = PlayerWinner
			r.finishLocked()
		}
		if p.Position > r.currentLevel && p.Position <= r.rules.TopLevel {
			r.currentLevel = p.Position
		}
	} else {
		p.Status = PlayerEliminated
		if r.noneActiveLocked() {
			r.finishLocked()
		}
	}
	r.touch()
	r.stateMutex.Unlock()

	r.broadcastState(network.MsgTypeGameUpdate)
	return nil
}

// bribeCost 每次贿赂固定 1 GORBA
const bribeCost = 1

// UseBribe spends 1 GORBA for one extra safe-door draw at the given level.
// The spent bonus only matters for the player's next pick at that level.
func (r *Room) UseBribe(playerID string, level int) error {
	r.stateMutex.Lock()

	p := r.findPlayer(playerID)
	if p == nil {
		r.stateMutex.Unlock()
		return ErrPlayerNotFound
	}
	if p.GorbaBalance < bribeCost {
		r.stateMutex.Unlock()
		return ErrInsufficientBalance
	}

	p.GorbaBalance -= bribeCost
	p.Bribes++
	p.bonuses[level]++
	r.touch()
	r.stateMutex.Unlock()

	r.broadcastState(network.MsgTypeGameUpdate)
	return nil
}

// finishLocked 终局。单向转换，调用方持有 stateMutex。
func (r *Room) finishLocked() {
	if r.status == StatusFinished {
		return
	}
	r.status = StatusFinished
	r.finishedAt = time.Now()
	if r.startTimerID != 0 {
		r.timers.RemoveTimer(r.startTimerID)
		r.startTimerID = 0
	}
}

func (r *Room) findPlayer(playerID string) *Player {
	for _, p := range r.players {
		if p.ID == playerID {
			return p
		}
	}
	return nil
}

func (r *Room) noneActiveLocked() bool {
	for _, p := range r.players {
		if p.Status == PlayerActive {
			return false
		}
	}
	return true
}

func (r *Room) touch() {
	r.lastActive = time.Now()
}

// --- 视图与广播 ---

// Snapshot 返回广播用的房间视图，永远不含安全门
func (r *Room) Snapshot() models.RoomSnapshot {
	r.stateMutex.Lock()
	defer r.stateMutex.Unlock()
	return r.snapshotLocked()
}

func (r *Room) snapshotLocked() models.RoomSnapshot {
	snap := models.RoomSnapshot{
		ID:           r.ID,
		Status:       string(r.status),
		CurrentLevel: r.currentLevel,
		Pot:          r.pot,
		CreatedAt:    r.CreatedAt.UnixMilli(),
		Players:      make([]models.PlayerSnapshot, 0, len(r.players)),
	}
	for _, p := range r.players {
		snap.Players = append(snap.Players, models.PlayerSnapshot{
			ID:           p.ID,
			Name:         p.Name,
			Color:        p.Color,
			Position:     p.Position,
			Status:       string(p.Status),
			GorbaBalance: p.GorbaBalance,
			Bribes:       p.Bribes,
		})
	}
	return snap
}

func (r *Room) broadcastState(msgID uint16) {
	if r.broadcaster == nil {
		return
	}
	data, err := json.Marshal(r.Snapshot())
	if err != nil {
		logger.Log.Errorf("Error marshalling room %s snapshot: %v", r.ID, err)
		return
	}
	if err := r.broadcaster.BroadcastToRoom(r.ID, msgID, data); err != nil {
		logger.Log.Warnf("Broadcast to room %s failed: %v", r.ID, err)
	}
}

// SafeDoors returns a copy of the safe-door table. Testing escape hatch and
// admin RPC only; never part of a broadcast.
func (r *Room) SafeDoors() map[int]int {
	r.stateMutex.Lock()
	defer r.stateMutex.Unlock()

	doors := make(map[int]int, len(r.safeDoors))
	for level, door := range r.safeDoors {
		doors[level] = door
	}
	return doors
}

// GetStatus 获取房间的业务状态
func (r *Room) GetStatus() Status {
	r.stateMutex.Lock()
	defer r.stateMutex.Unlock()
	return r.status
}

// PlayerCount 当前玩家数
func (r *Room) PlayerCount() int {
	r.stateMutex.Lock()
	defer r.stateMutex.Unlock()
	return len(r.players)
}

// LastActive reports when the room last saw a state-changing event.
func (r *Room) LastActive() time.Time {
	r.stateMutex.Lock()
	defer r.stateMutex.Unlock()
	return r.lastActive
}

// Record 终局归档记录
func (r *Room) Record() *models.MatchRecord {
	r.stateMutex.Lock()
	defer r.stateMutex.Unlock()

	record := &models.MatchRecord{
		RoomID:    r.ID,
		Pot:       r.pot,
		CreatedAt: r.CreatedAt,
	}
	if !r.finishedAt.IsZero() {
		record.Duration = int(r.finishedAt.Sub(r.CreatedAt).Seconds())
	}
	for _, p := range r.players {
		if p.Status == PlayerWinner {
			record.Winner = p.ID
		}
		level := p.Position
		if level > r.rules.TopLevel {
			level = r.rules.TopLevel
		}
		record.Players = append(record.Players, models.MatchPlayer{
			PlayerID: p.ID,
			Name:     p.Name,
			Outcome:  string(p.Status),
			Level:    level,
			Bribes:   p.Bribes,
		})
	}
	return record
}

// Close cancels any pending start countdown. Called by the manager on
// eviction.
func (r *Room) Close() {
	r.stateMutex.Lock()
	defer r.stateMutex.Unlock()
	if r.startTimerID != 0 {
		r.timers.RemoveTimer(r.startTimerID)
		r.startTimerID = 0
	}
}
