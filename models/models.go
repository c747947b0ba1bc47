// models/models.go
package models

import (
	"time"
)

// PlayerDescriptor 客户端上报的玩家信息
// The balance is client-supplied on join; settlement against the chain
// contract is out of scope, so the relay trusts it for the match lifetime.
type PlayerDescriptor struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Color        string `json:"color"`
	GorbaBalance int64  `json:"gorbaBalance"`
}

// JoinLobbyRequest 加入房间
type JoinLobbyRequest struct {
	RoomID string           `json:"roomId"`
	Player PlayerDescriptor `json:"player"`
}

// SelectDoorRequest 选门
type SelectDoorRequest struct {
	RoomID    string `json:"roomId"`
	PlayerID  string `json:"playerId"`
	Level     int    `json:"level"`
	DoorIndex int    `json:"doorIndex"`
}

// UseBribeRequest 使用贿赂
type UseBribeRequest struct {
	RoomID   string `json:"roomId"`
	PlayerID string `json:"playerId"`
	Level    int    `json:"level"`
}

// SendMessageRequest 房间聊天
type SendMessageRequest struct {
	RoomID string           `json:"roomId"`
	Sender PlayerDescriptor `json:"sender"`
	Text   string           `json:"message"`
}

// LeaveGameRequest 离开房间
type LeaveGameRequest struct {
	RoomID   string `json:"roomId"`
	PlayerID string `json:"playerId"`
}

// RevealDoorsRequest 测试后门：查看安全门
type RevealDoorsRequest struct {
	RoomID string `json:"roomId"`
}

// ChatMessage is fanned out verbatim to every subscriber of the room.
type ChatMessage struct {
	Sender    PlayerDescriptor `json:"sender"`
	Text      string           `json:"message"`
	Timestamp int64            `json:"ts"`
}

// Reject is sent to the offending sender only, never broadcast.
type Reject struct {
	Reason string `json:"reason"`
	Detail string `json:"detail,omitempty"`
}

// RevealDoorsReply 仅发给请求者
type RevealDoorsReply struct {
	RoomID    string      `json:"roomId"`
	SafeDoors map[int]int `json:"safeDoors"`
}

// PlayerSnapshot 玩家视图
type PlayerSnapshot struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Color        string `json:"color"`
	Position     int    `json:"position"`
	Status       string `json:"status"`
	GorbaBalance int64  `json:"gorbaBalance"`
	Bribes       int    `json:"bribes"`
}

// RoomSnapshot 房间视图，广播用
// The safe-door table is deliberately absent: clients only learn a door's
// nature by walking through it.
type RoomSnapshot struct {
	ID           string           `json:"id"`
	Status       string           `json:"status"`
	CurrentLevel int              `json:"currentLevel"`
	Pot          int64            `json:"pot"`
	CreatedAt    int64            `json:"createdAt"`
	Players      []PlayerSnapshot `json:"players"`
}

// MatchRecord 比赛记录，归档用
type MatchRecord struct {
	RoomID    string        `json:"room_id"`
	Winner    string        `json:"winner"` // player ID, empty when everyone was eliminated
	Pot       int64         `json:"pot"`
	Players   []MatchPlayer `json:"players"`
	Duration  int           `json:"duration"` // 秒
	CreatedAt time.Time     `json:"created_at"`
}

// MatchPlayer 单个玩家的赛果
type MatchPlayer struct {
	PlayerID string `json:"player_id"`
	Name     string `json:"name"`
	Outcome  string `json:"outcome"` // winner/eliminated/left
	Level    int    `json:"level"`   // highest level reached
	Bribes   int    `json:"bribes"`
}

// PlayerStatsView 玩家累计战绩
type PlayerStatsView struct {
	PlayerID   string `json:"player_id"`
	Matches    int    `json:"matches"`
	Wins       int    `json:"wins"`
	Losses     int    `json:"losses"`
	BribesUsed int    `json:"bribes_used"`
	GorbaWon   int64  `json:"gorba_won"`
}
