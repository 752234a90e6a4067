package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/vircom/folio/internal/config"
	"github.com/vircom/folio/internal/database"
	"github.com/vircom/folio/internal/logger"
)

func main() {
	// Parse command line flags
	dryRun := flag.Bool("dry-run", false, "List pending migrations without applying them")
	flag.Parse()

	// Load configuration
	cfg, err := config.NewConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize logger
	logger, err := logger.NewLogger(cfg)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}

	// migrations run below, never implicitly on connect
	cfg.Database.AutoMigrate = false
	db, err := database.NewDB(cfg, logger)
	if err != nil {
		logger.Fatalw("Failed to connect to database", "driver", cfg.Database.Driver, "error", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	if *dryRun {
		pending, err := db.PendingMigrations(ctx)
		if err != nil {
			logger.Fatalw("Failed to list pending migrations", "error", err)
		}
		for _, name := range pending {
			fmt.Println(name)
		}
		logger.Infow("Dry run completed", "pending", len(pending))
		return
	}

	logger.Infow("Running database migrations...", "driver", cfg.Database.Driver)
	if err := db.Migrate(ctx); err != nil {
		logger.Fatalw("Failed to run migrations", "error", err)
	}
	logger.Info("Migration completed successfully")
}
