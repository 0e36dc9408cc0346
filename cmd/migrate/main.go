package main

import (
	"flag"
	"log"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"backoffice/internal/config"
	"backoffice/internal/db"
	"backoffice/internal/logging"
	"backoffice/migrations"
)

func main() {
	direction := flag.String("direction", string(db.MigrateUp), "up or down")
	flag.Parse()

	_ = godotenv.Load()
	cfg, err := config.Load(".")
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	logger, err := logging.New(cfg.AppEnv, cfg.LogLevel)
	if err != nil {
		log.Fatalf("failed to create logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	dir := db.MigrateDirection(*direction)
	if dir != db.MigrateUp && dir != db.MigrateDown {
		logger.Fatal("unknown migration direction", zap.String("direction", *direction))
	}

	database, err := db.Connect(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("failed to connect database", zap.Error(err))
	}
	defer database.Close()

	if err := db.Migrate(database.DB, migrations.FS, dir, logger); err != nil {
		logger.Fatal("migration failed", zap.String("direction", *direction), zap.Error(err))
	}
	logger.Info("migrations applied", zap.String("direction", *direction))
}
