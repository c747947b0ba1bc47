package rpc

import (
	"errors"
	"net"
	"net/rpc"

	"github.com/aryannayak2901/gambit-game/logger"
	"github.com/aryannayak2901/gambit-game/models"
	"github.com/aryannayak2901/gambit-game/room"
	"github.com/aryannayak2901/gambit-game/services"
)

// Server manages the RPC listener.
type Server struct {
	listener net.Listener
	address  string
}

// NewServer creates a new RPC server.
func NewServer(addr string) (*Server, error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	return &Server{
		listener: listener,
		address:  addr,
	}, nil
}

// Start begins listening for RPC requests.
func (s *Server) Start() {
	logger.Log.Infof("RPC server listening on %s", s.address)
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			// Check if the error is due to the listener being closed.
			if _, ok := err.(*net.OpError); ok {
				logger.Log.Info("RPC server listener closed.")
				return
			}
			logger.Log.Errorf("RPC server accept error: %v", err)
			continue
		}
		go rpc.ServeConn(conn)
	}
}

// Stop closes the RPC listener.
func (s *Server) Stop() {
	if s.listener != nil {
		logger.Log.Info("Stopping RPC server.")
		s.listener.Close()
	}
}

var ErrRoomNotFound = errors.New("room not found")

// AdminService 运维侧只读接口：查房间、查战绩
// Methods follow the net/rpc signature: exported method, exported arguments,
// second argument is a pointer, return type is error.
type AdminService struct {
	matchService *services.MatchService
	roomManager  *room.Manager
}

// NewAdminService creates a new AdminService.
func NewAdminService(ms *services.MatchService, rm *room.Manager) *AdminService {
	return &AdminService{matchService: ms, roomManager: rm}
}

type GetMatchStateArgs struct {
	RoomID string
}

type GetMatchStateReply struct {
	Snapshot models.RoomSnapshot
}

func (as *AdminService) GetMatchState(args *GetMatchStateArgs, reply *GetMatchStateReply) error {
	r, exists := as.roomManager.GetRoom(args.RoomID)
	if !exists {
		return ErrRoomNotFound
	}
	reply.Snapshot = r.Snapshot()
	return nil
}

type GetPlayerStatsArgs struct {
	PlayerID string
}

type GetPlayerStatsReply struct {
	Stats *models.PlayerStatsView
}

func (as *AdminService) GetPlayerStats(args *GetPlayerStatsArgs, reply *GetPlayerStatsReply) error {
	stats, err := as.matchService.GetPlayerStats(args.PlayerID)
	if err != nil {
		return err
	}
	reply.Stats = stats
	return nil
}

type GetLeaderboardArgs struct {
	Limit int
}

type GetLeaderboardReply struct {
	Entries []models.PlayerStatsView
}

func (as *AdminService) GetLeaderboard(args *GetLeaderboardArgs, reply *GetLeaderboardReply) error {
	entries, err := as.matchService.GetLeaderboard(args.Limit)
	if err != nil {
		return err
	}
	reply.Entries = entries
	return nil
}
