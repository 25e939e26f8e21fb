package main

import (
	"github.com/triagedesk/backend/internal/config"
	"github.com/triagedesk/backend/internal/db"
	"github.com/triagedesk/backend/internal/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load configuration", map[string]interface{}{"error": err.Error()})
	}
	logger.Initialize(cfg.Logger)

	database, err := db.Connect(cfg.Database)
	if err != nil {
		logger.Fatal("Failed to connect to database", map[string]interface{}{"error": err.Error()})
	}

	logger.Info("Running database migrations...", map[string]interface{}{"driver": cfg.Database.Driver})
	if err := db.AutoMigrate(database); err != nil {
		logger.Fatal("Migration failed", map[string]interface{}{"error": err.Error()})
	}
	logger.Info("Database migrations completed", nil)
}
