package main

import (
	"github.com/aryannayak2901/gambit-game/config"
	"github.com/aryannayak2901/gambit-game/logger"
	"github.com/aryannayak2901/gambit-game/persistence"
	"github.com/aryannayak2901/gambit-game/server"
)

func main() {
	// Initialize logger
	logger.Init()
	defer logger.Sync()

	// Load configuration
	cfg, err := config.LoadConfig(".")
	if err != nil {
		logger.Log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize database. The relay runs without one; finished matches are
	// then logged instead of archived.
	var db persistence.Database
	if cfg.Database.Enabled {
		db, err = persistence.NewGormPostgreSQL(
			cfg.Database.Postgres.Host,
			cfg.Database.Postgres.Port,
			cfg.Database.Postgres.User,
			cfg.Database.Postgres.Password,
			cfg.Database.Postgres.DBName,
		)
		if err != nil {
			logger.Log.Fatalf("Failed to connect to database: %v", err)
		}
		defer db.Close()
		logger.Log.Info("Database connection successful.")
	} else {
		logger.Log.Warn("Database disabled, match archive is off.")
	}

	// Initialize Game Server
	gameServer := server.NewGameServer(cfg, db)

	// Start Server
	logger.Log.Infof("Starting Lucky Ladders relay on %s", cfg.Server.HTTPAddress)
	if err := gameServer.Start(cfg.Server.MonitorAddress); err != nil {
		logger.Log.Fatalf("Failed to start server: %v", err)
	}
}
