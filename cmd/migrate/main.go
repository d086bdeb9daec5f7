package main

// Run database migrations:
//   go run ./cmd/migrate        apply pending migrations
//   go run ./cmd/migrate down   revert the latest migration

import (
	"context"
	"fmt"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"go.uber.org/zap"

	"docprocessor/internal/config"
	"docprocessor/internal/database"
	"docprocessor/internal/database/migration"
	"docprocessor/internal/logger"
)

func main() {
	cfg := config.Load()
	ctx := context.Background()

	log, err := logger.New(cfg.Log.Environment, cfg.Log.Level, cfg.Log.Location())
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		log.Error("failed to connect database", zap.Error(err))
		os.Exit(1)
	}
	defer db.Close()

	cmd := "up"
	if len(os.Args) > 1 {
		cmd = os.Args[1]
	}

	switch cmd {
	case "up":
		err = migration.EnsureMigrated(ctx, db, log, cfg.Database.Host)
	case "down":
		err = migration.Rollback(ctx, db, log, cfg.Database.Host)
	default:
		err = fmt.Errorf("unknown command %q (want up or down)", cmd)
	}
	if err != nil {
		log.Error("migrate failed", zap.Error(err))
		db.Close()
		os.Exit(1)
	}
}
