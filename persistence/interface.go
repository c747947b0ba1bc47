// persistence/interface.go
package persistence

import (
	"fmt"

	"github.com/aryannayak2901/gambit-game/models"
)

// Database 数据库接口：比赛归档与玩家战绩
type Database interface {
	// SaveMatchRecord archives a finished match and folds its outcome into
	// each participant's aggregate stats, atomically.
	SaveMatchRecord(record *models.MatchRecord) error
	GetPlayerStats(playerID string) (*models.PlayerStatsView, error)
	GetLeaderboard(limit int) ([]models.PlayerStatsView, error)
	Close() error
}

// 错误定义
var (
	ErrRecordNotFound = fmt.Errorf("record not found")
)
