package services

import (
	"github.com/aryannayak2901/gambit-game/logger"
	"github.com/aryannayak2901/gambit-game/models"
	"github.com/aryannayak2901/gambit-game/persistence"
)

// MatchService 比赛归档与战绩查询
type MatchService struct {
	db persistence.Database
}

func NewMatchService(db persistence.Database) *MatchService {
	return &MatchService{db: db}
}

// ArchiveMatch implements room.Archiver. Without a database the record is
// logged and dropped; the relay itself never depends on persistence.
func (s *MatchService) ArchiveMatch(record *models.MatchRecord) error {
	if s.db == nil {
		logger.Log.Infow("match finished (archive disabled)",
			"room", record.RoomID, "winner", record.Winner, "pot", record.Pot)
		return nil
	}
	if err := s.db.SaveMatchRecord(record); err != nil {
		return err
	}
	logger.Log.Infof("归档比赛 %s, winner=%q, pot=%d", record.RoomID, record.Winner, record.Pot)
	return nil
}

// GetPlayerStats 获取玩家累计战绩
func (s *MatchService) GetPlayerStats(playerID string) (*models.PlayerStatsView, error) {
	if s.db == nil {
		return nil, persistence.ErrRecordNotFound
	}
	return s.db.GetPlayerStats(playerID)
}

// GetLeaderboard 排行榜
func (s *MatchService) GetLeaderboard(limit int) ([]models.PlayerStatsView, error) {
	if s.db == nil {
		return nil, nil
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return s.db.GetLeaderboard(limit)
}
