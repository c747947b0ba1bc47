package network

// 消息ID定义：客户端 -> 服务端
const (
	MsgTypeHeartbeat   = 1
	MsgTypeJoinLobby   = 101
	MsgTypeLeaveGame   = 102
	MsgTypeSelectDoor  = 201
	MsgTypeUseBribe    = 202
	MsgTypeSendMessage = 203
	MsgTypeRevealDoors = 901
)

// 服务端 -> 客户端
const (
	MsgTypeLobbyUpdate  = 301
	MsgTypeMatchStarted = 303
	MsgTypeGameUpdate   = 304
	MsgTypeChatMessage  = 305
	MsgTypeReject       = 401
)

// Reject reason codes carried in the Reject payload. Only malformed or
// explicitly refused requests are answered; invalid intents are dropped.
const (
	RejectBadPayload    = "bad_payload"
	RejectRoomFull      = "room_full"
	RejectMatchStarted  = "match_started"
	RejectRevealBlocked = "reveal_disabled"
)

// MaxPacketSize bounds a single inbound frame. The relay carries small JSON
// intents; anything larger is a misbehaving client.
const MaxPacketSize = 4096
