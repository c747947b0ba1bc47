package server

import (
	"encoding/json"
	"net/http"
	"net/rpc"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/aryannayak2901/gambit-game/broadcast"
	"github.com/aryannayak2901/gambit-game/config"
	"github.com/aryannayak2901/gambit-game/logger"
	"github.com/aryannayak2901/gambit-game/models"
	"github.com/aryannayak2901/gambit-game/monitor"
	"github.com/aryannayak2901/gambit-game/network"
	"github.com/aryannayak2901/gambit-game/persistence"
	"github.com/aryannayak2901/gambit-game/room"
	gameserver_rpc "github.com/aryannayak2901/gambit-game/rpc"
	"github.com/aryannayak2901/gambit-game/services"
	"github.com/aryannayak2901/gambit-game/session"
	"github.com/aryannayak2901/gambit-game/timer"
)

const heartbeatInterval = 60 * time.Second

type GameServer struct {
	addr           string
	gameCfg        config.GameConfig
	upgrader       websocket.Upgrader
	roomManager    *room.Manager
	sessionManager *session.Manager
	matchService   *services.MatchService
	broadcaster    *broadcast.RoomBroadcaster
	rpcServer      *gameserver_rpc.Server
	monitor        *monitor.Monitor
	timers         *timer.TimerManager
	shutdownChan   chan struct{}
}

func NewGameServer(cfg *config.Config, db persistence.Database) *GameServer {
	timers := timer.NewTimerManager()
	rules := room.Rules{
		EntryFee:        cfg.Game.EntryFee,
		PlayersPerMatch: cfg.Game.PlayersPerMatch,
		TopLevel:        cfg.Game.TopLevel,
		DoorsPerLevel:   3,
		StartDelay:      cfg.Game.StartDelay,
		BribeBonus:      cfg.Game.BribeBonus,
	}

	s := &GameServer{
		addr:           cfg.Server.HTTPAddress,
		gameCfg:        cfg.Game,
		roomManager:    room.NewManager(rules, timers),
		sessionManager: session.NewManager(),
		matchService:   services.NewMatchService(db),
		monitor:        monitor.NewMonitor("luckyladders"),
		timers:         timers,
		shutdownChan:   make(chan struct{}),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true // 允许所有跨域请求
			},
		},
	}

	// 初始化广播器
	s.broadcaster = broadcast.NewRoomBroadcaster(s.roomManager, s.sessionManager)
	s.broadcaster.OnSend(s.monitor.IncMessagesSent)

	// 归档与回收
	s.roomManager.SetArchiver(s.matchService)
	s.roomManager.StartReaper(cfg.Game.RoomIdleTimeout, cfg.Game.FinishedLinger, 30*time.Second)
	timers.AddTimer(10*time.Second, 10*time.Second, func() {
		s.monitor.SetActiveRooms(s.roomManager.Count())
	})

	// 初始化RPC服务器
	rpcServer, err := gameserver_rpc.NewServer(cfg.Server.RPCAddress)
	if err != nil {
		logger.Log.Fatalf("Failed to create RPC server: %v", err)
	}
	s.rpcServer = rpcServer

	// 注册RPC服务
	adminService := gameserver_rpc.NewAdminService(s.matchService, s.roomManager)
	rpc.Register(adminService)

	return s
}

func (s *GameServer) Start(monitorAddr string) error {
	go s.rpcServer.Start()
	s.monitor.StartServer(monitorAddr)

	http.HandleFunc("/ws", s.handleWebSocket)
	http.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("Lucky Ladders relay running"))
	})
	logger.Log.Infof("Game server listening on %s", s.addr)
	return http.ListenAndServe(s.addr, nil)
}

func (s *GameServer) Shutdown() {
	close(s.shutdownChan)
	s.roomManager.StopReaper()
	s.timers.Stop()
	s.rpcServer.Stop()
}

func (s *GameServer) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Log.Infof("Failed to upgrade connection: %v", err)
		return
	}
	s.handleConnection(conn)
}

func (s *GameServer) handleConnection(conn *websocket.Conn) {
	wsConn := network.NewWSConnection(conn)
	wsConn.SetHeartbeat(heartbeatInterval)
	sess := session.NewSession(uuid.New().String(), wsConn)
	s.sessionManager.Add(sess)
	s.monitor.IncOnlinePlayers()

	logger.Log.Infof("New connection from %s, session ID: %s", wsConn.RemoteAddr(), sess.GetID())

	defer func() {
		logger.Log.Infof("Connection closed from %s, session ID: %s", wsConn.RemoteAddr(), sess.GetID())
		s.dropSession(sess)
		s.monitor.DecOnlinePlayers()
		wsConn.Close()
	}()

	for {
		select {
		case <-s.shutdownChan:
			return
		default:
			packet, err := wsConn.ReadPacket()
			if err != nil {
				return
			}
			s.handlePacket(sess, packet)
		}
	}
}

// dropSession treats a disconnect as an implicit leave-game.
func (s *GameServer) dropSession(sess *session.Session) {
	playerID, roomID := sess.Membership()
	if roomID != "" {
		if r, exists := s.roomManager.GetRoom(roomID); exists {
			r.Detach(sess.GetID())
			if playerID != "" {
				if err := r.Leave(playerID); err != nil {
					logger.Log.Debugf("Leave on disconnect for %s: %v", playerID, err)
				}
			}
		}
	}
	s.sessionManager.Remove(sess.GetID())
}

func (s *GameServer) handlePacket(sess *session.Session, packet *network.Packet) {
	start := time.Now()
	s.monitor.IncMessagesReceived()

	// One bad payload or handler fault must never take the relay down for
	// every other room on this process.
	defer func() {
		if rec := recover(); rec != nil {
			logger.Log.Errorf("Panic handling msg %d from session %s: %v", packet.MsgID, sess.GetID(), rec)
		}
		s.monitor.ObserveMessageLatency(time.Since(start))
	}()

	switch packet.MsgID {
	case network.MsgTypeHeartbeat:
		sess.LastActive = time.Now()
	case network.MsgTypeJoinLobby:
		s.handleJoinLobby(sess, packet)
	case network.MsgTypeLeaveGame:
		s.handleLeaveGame(sess, packet)
	case network.MsgTypeSelectDoor:
		s.handleSelectDoor(sess, packet)
	case network.MsgTypeUseBribe:
		s.handleUseBribe(sess, packet)
	case network.MsgTypeSendMessage:
		s.handleSendMessage(sess, packet)
	case network.MsgTypeRevealDoors:
		s.handleRevealDoors(sess, packet)
	default:
		logger.Log.Infof("Unknown message type: %d", packet.MsgID)
	}
}

func (s *GameServer) handleJoinLobby(sess *session.Session, packet *network.Packet) {
	var req models.JoinLobbyRequest
	if err := json.Unmarshal(packet.Data, &req); err != nil || req.Player.ID == "" {
		s.reject(sess, network.RejectBadPayload, "join-lobby needs a player id")
		return
	}

	r := s.roomManager.GetOrCreate(req.RoomID, s.broadcaster)

	// Subscribe before joining so the joiner sees its own lobby-update.
	r.Attach(sess)
	sess.Bind(req.Player.ID, r.ID)

	if err := r.Join(req.Player); err != nil {
		r.Detach(sess.GetID())
		sess.Bind("", "")
		switch err {
		case room.ErrRoomFull:
			s.reject(sess, network.RejectRoomFull, "")
		case room.ErrMatchStarted:
			s.reject(sess, network.RejectMatchStarted, "")
		default:
			logger.Log.Warnf("Join room %s failed: %v", r.ID, err)
		}
		return
	}

	logger.Log.Infof("Player %s joined room %s", req.Player.ID, r.ID)
}

func (s *GameServer) handleSelectDoor(sess *session.Session, packet *network.Packet) {
	var req models.SelectDoorRequest
	if err := json.Unmarshal(packet.Data, &req); err != nil || req.RoomID == "" || req.PlayerID == "" {
		s.reject(sess, network.RejectBadPayload, "select-door needs roomId and playerId")
		return
	}

	r, exists := s.roomManager.GetRoom(req.RoomID)
	if !exists {
		return
	}

	if err := r.SelectDoor(req.PlayerID, req.Level, req.DoorIndex); err != nil {
		// 无效意图直接丢弃，不回包
		logger.Log.Debugf("select-door dropped for %s@%s: %v", req.PlayerID, req.RoomID, err)
		return
	}

	if r.GetStatus() == room.StatusFinished {
		s.monitor.IncMatchesFinished()
	}
}

func (s *GameServer) handleUseBribe(sess *session.Session, packet *network.Packet) {
	var req models.UseBribeRequest
	if err := json.Unmarshal(packet.Data, &req); err != nil || req.RoomID == "" || req.PlayerID == "" {
		s.reject(sess, network.RejectBadPayload, "use-bribe needs roomId and playerId")
		return
	}

	r, exists := s.roomManager.GetRoom(req.RoomID)
	if !exists {
		return
	}

	if err := r.UseBribe(req.PlayerID, req.Level); err != nil {
		logger.Log.Debugf("use-bribe dropped for %s@%s: %v", req.PlayerID, req.RoomID, err)
	}
}

func (s *GameServer) handleSendMessage(sess *session.Session, packet *network.Packet) {
	var req models.SendMessageRequest
	if err := json.Unmarshal(packet.Data, &req); err != nil || req.RoomID == "" {
		s.reject(sess, network.RejectBadPayload, "send-message needs a roomId")
		return
	}

	msg := models.ChatMessage{
		Sender:    req.Sender,
		Text:      req.Text,
		Timestamp: time.Now().UnixMilli(),
	}
	data, err := json.Marshal(msg)
	if err != nil {
		logger.Log.Errorf("Error marshalling chat message: %v", err)
		return
	}
	if err := s.broadcaster.BroadcastToRoom(req.RoomID, network.MsgTypeChatMessage, data); err != nil {
		logger.Log.Debugf("chat dropped for room %s: %v", req.RoomID, err)
	}
}

func (s *GameServer) handleLeaveGame(sess *session.Session, packet *network.Packet) {
	var req models.LeaveGameRequest
	if err := json.Unmarshal(packet.Data, &req); err != nil || req.RoomID == "" || req.PlayerID == "" {
		s.reject(sess, network.RejectBadPayload, "leave-game needs roomId and playerId")
		return
	}

	r, exists := s.roomManager.GetRoom(req.RoomID)
	if !exists {
		return
	}

	if err := r.Leave(req.PlayerID); err != nil {
		logger.Log.Debugf("leave-game dropped for %s@%s: %v", req.PlayerID, req.RoomID, err)
		return
	}
	r.Detach(sess.GetID())
	sess.Bind("", "")
	logger.Log.Infof("Player %s left room %s", req.PlayerID, req.RoomID)
}

// handleRevealDoors 测试后门：把本局安全门发回请求者。线上默认关闭。
func (s *GameServer) handleRevealDoors(sess *session.Session, packet *network.Packet) {
	if !s.gameCfg.AllowReveal {
		s.reject(sess, network.RejectRevealBlocked, "")
		return
	}

	var req models.RevealDoorsRequest
	if err := json.Unmarshal(packet.Data, &req); err != nil || req.RoomID == "" {
		s.reject(sess, network.RejectBadPayload, "reveal needs a roomId")
		return
	}

	r, exists := s.roomManager.GetRoom(req.RoomID)
	if !exists {
		return
	}

	reply := models.RevealDoorsReply{RoomID: r.ID, SafeDoors: r.SafeDoors()}
	data, _ := json.Marshal(reply)
	sess.Send(network.MsgTypeRevealDoors, data)
}

// reject answers the sender only; nothing is ever broadcast for a refused
// request.
func (s *GameServer) reject(sess *session.Session, reason, detail string) {
	s.monitor.IncRejectsSent()
	data, _ := json.Marshal(models.Reject{Reason: reason, Detail: detail})
	if err := sess.Send(network.MsgTypeReject, data); err != nil {
		logger.Log.Debugf("Failed to send reject to session %s: %v", sess.GetID(), err)
	}
}
