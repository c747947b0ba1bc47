// persistence/postgresql.go
package persistence

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	// PostgreSQL 驱动
	_ "github.com/lib/pq"

	"github.com/aryannayak2901/gambit-game/models"
)

// PostgreSQL 不经ORM的实现，database/sql + lib/pq
type PostgreSQL struct {
	db *sql.DB
}

// NewPostgreSQL 创建 PostgreSQL 数据库连接
func NewPostgreSQL(host string, port int, user, password, dbname string) (*PostgreSQL, error) {
	connStr := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		host, port, user, password, dbname)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, err
	}

	// 测试连接
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}

	// 设置连接池参数
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := createTables(db); err != nil {
		return nil, err
	}

	return &PostgreSQL{db: db}, nil
}

func createTables(db *sql.DB) error {
	// 比赛记录表
	_, err := db.Exec(`
        CREATE TABLE IF NOT EXISTS match_records (
            id SERIAL PRIMARY KEY,
            room_id VARCHAR(255) NOT NULL,
            winner VARCHAR(255),
            pot BIGINT NOT NULL,
            players JSONB NOT NULL,
            duration INT DEFAULT 0,
            created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
        )
    `)
	if err != nil {
		return err
	}

	// 玩家战绩表
	_, err = db.Exec(`
        CREATE TABLE IF NOT EXISTS player_stats (
            id SERIAL PRIMARY KEY,
            player_id VARCHAR(255) UNIQUE NOT NULL,
            name VARCHAR(255),
            matches INT DEFAULT 0,
            wins INT DEFAULT 0,
            losses INT DEFAULT 0,
            bribes_used INT DEFAULT 0,
            gorba_won BIGINT DEFAULT 0,
            updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
        )
    `)
	if err != nil {
		return err
	}

	// 创建索引以提高查询性能
	_, err = db.Exec(`
        CREATE INDEX IF NOT EXISTS idx_match_records_room_id ON match_records(room_id);
        CREATE INDEX IF NOT EXISTS idx_match_records_winner ON match_records(winner);
        CREATE INDEX IF NOT EXISTS idx_player_stats_player_id ON player_stats(player_id);
    `)

	return err
}

// SaveMatchRecord 保存比赛记录并累加玩家战绩
func (p *PostgreSQL) SaveMatchRecord(record *models.MatchRecord) error {
	playersJSON, err := json.Marshal(record.Players)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
        INSERT INTO match_records (room_id, winner, pot, players, duration)
        VALUES ($1, $2, $3, $4, $5)
    `, record.RoomID, record.Winner, record.Pot, playersJSON, record.Duration)
	if err != nil {
		return err
	}

	for _, mp := range record.Players {
		won := 0
		lost := 1
		var gorba int64
		if mp.PlayerID == record.Winner {
			won, lost = 1, 0
			gorba = record.Pot
		}

		// UPSERT (PostgreSQL 9.5+)
		_, err = tx.ExecContext(ctx, `
            INSERT INTO player_stats (player_id, name, matches, wins, losses, bribes_used, gorba_won)
            VALUES ($1, $2, 1, $3, $4, $5, $6)
            ON CONFLICT (player_id)
            DO UPDATE SET
                name = $2,
                matches = player_stats.matches + 1,
                wins = player_stats.wins + $3,
                losses = player_stats.losses + $4,
                bribes_used = player_stats.bribes_used + $5,
                gorba_won = player_stats.gorba_won + $6,
                updated_at = CURRENT_TIMESTAMP
        `, mp.PlayerID, mp.Name, won, lost, mp.Bribes, gorba)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

// GetPlayerStats 获取玩家累计战绩
func (p *PostgreSQL) GetPlayerStats(playerID string) (*models.PlayerStatsView, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	view := &models.PlayerStatsView{PlayerID: playerID}
	err := p.db.QueryRowContext(ctx, `
        SELECT matches, wins, losses, bribes_used, gorba_won
        FROM player_stats WHERE player_id = $1
    `, playerID).Scan(&view.Matches, &view.Wins, &view.Losses, &view.BribesUsed, &view.GorbaWon)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrRecordNotFound
		}
		return nil, err
	}
	return view, nil
}

// GetLeaderboard 按胜场排序
func (p *PostgreSQL) GetLeaderboard(limit int) ([]models.PlayerStatsView, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	rows, err := p.db.QueryContext(ctx, `
        SELECT player_id, matches, wins, losses, bribes_used, gorba_won
        FROM player_stats
        ORDER BY wins DESC, gorba_won DESC
        LIMIT $1
    `, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var views []models.PlayerStatsView
	for rows.Next() {
		var v models.PlayerStatsView
		if err := rows.Scan(&v.PlayerID, &v.Matches, &v.Wins, &v.Losses, &v.BribesUsed, &v.GorbaWon); err != nil {
			return nil, err
		}
		views = append(views, v)
	}
	return views, rows.Err()
}

// Close 关闭数据库连接
func (p *PostgreSQL) Close() error {
	return p.db.Close()
}
