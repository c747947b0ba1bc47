// models/gorm_models.go
package models

import (
	"gorm.io/gorm"
)

// GormMatchRecord 比赛记录模型
type GormMatchRecord struct {
	gorm.Model
	RoomID   string                 `gorm:"index;not null"`
	Winner   string                 `gorm:"index"`
	Pot      int64                  `gorm:"not null"`
	Players  map[string]interface{} `gorm:"type:jsonb;not null;serializer:json"`
	Duration int                    `gorm:"default:0"` // 比赛时长(秒)
}

// GormPlayerStats 玩家累计战绩模型
type GormPlayerStats struct {
	gorm.Model
	PlayerID   string `gorm:"uniqueIndex;not null"` // 钱包地址
	Name       string
	Matches    int   `gorm:"default:0"`
	Wins       int   `gorm:"default:0"`
	Losses     int   `gorm:"default:0"`
	BribesUsed int   `gorm:"default:0"`
	GorbaWon   int64 `gorm:"default:0"`
}
