// persistence/gorm_postgresql.go
package persistence

import (
	"fmt"
	"log"
	"os"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/aryannayak2901/gambit-game/models"
)

// GormPostgreSQL 使用GORM的PostgreSQL实现
type GormPostgreSQL struct {
	db *gorm.DB
}

// NewGormPostgreSQL 创建GORM PostgreSQL数据库连接
func NewGormPostgreSQL(host string, port int, user, password, dbname string) (*GormPostgreSQL, error) {
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		host, port, user, password, dbname)

	// 配置GORM日志
	gormLogger := logger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		logger.Config{
			SlowThreshold: time.Second,   // 慢SQL阈值
			LogLevel:      logger.Silent, // 日志级别
			Colorful:      false,
		},
	)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormLogger,
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}

	// 设置连接池
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	// 自动迁移表结构
	if err := db.AutoMigrate(&models.GormMatchRecord{}, &models.GormPlayerStats{}); err != nil {
		return nil, err
	}

	return &GormPostgreSQL{db: db}, nil
}

// SaveMatchRecord 保存比赛记录并累加玩家战绩
func (p *GormPostgreSQL) SaveMatchRecord(record *models.MatchRecord) error {
	players := make(map[string]interface{}, len(record.Players))
	for _, mp := range record.Players {
		players[mp.PlayerID] = map[string]interface{}{
			"name":    mp.Name,
			"outcome": mp.Outcome,
			"level":   mp.Level,
			"bribes":  mp.Bribes,
		}
	}

	return p.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&models.GormMatchRecord{
			RoomID:   record.RoomID,
			Winner:   record.Winner,
			Pot:      record.Pot,
			Players:  players,
			Duration: record.Duration,
		}).Error; err != nil {
			return err
		}

		for _, mp := range record.Players {
			var stats models.GormPlayerStats
			err := tx.Where("player_id = ?", mp.PlayerID).First(&stats).Error
			if err == gorm.ErrRecordNotFound {
				stats = models.GormPlayerStats{PlayerID: mp.PlayerID, Name: mp.Name}
			} else if err != nil {
				return err
			}

			stats.Name = mp.Name
			stats.Matches++
			stats.BribesUsed += mp.Bribes
			if mp.PlayerID == record.Winner {
				stats.Wins++
				stats.GorbaWon += record.Pot
			} else {
				stats.Losses++
			}

			if err := tx.Save(&stats).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// GetPlayerStats 获取玩家累计战绩
func (p *GormPostgreSQL) GetPlayerStats(playerID string) (*models.PlayerStatsView, error) {
	var stats models.GormPlayerStats
	if err := p.db.Where("player_id = ?", playerID).First(&stats).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrRecordNotFound
		}
		return nil, err
	}
	return statsView(&stats), nil
}

// GetLeaderboard 按胜场排序
func (p *GormPostgreSQL) GetLeaderboard(limit int) ([]models.PlayerStatsView, error) {
	var rows []models.GormPlayerStats
	if err := p.db.Order("wins DESC, gorba_won DESC").Limit(limit).Find(&rows).Error; err != nil {
		return nil, err
	}

	views := make([]models.PlayerStatsView, 0, len(rows))
	for i := range rows {
		views = append(views, *statsView(&rows[i]))
	}
	return views, nil
}

// Close 关闭数据库连接
func (p *GormPostgreSQL) Close() error {
	sqlDB, err := p.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func statsView(stats *models.GormPlayerStats) *models.PlayerStatsView {
	return &models.PlayerStatsView{
		PlayerID:   stats.PlayerID,
		Matches:    stats.Matches,
		Wins:       stats.Wins,
		Losses:     stats.Losses,
		BribesUsed: stats.BribesUsed,
		GorbaWon:   stats.GorbaWon,
	}
}
