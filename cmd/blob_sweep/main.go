package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"filevault/internal/blob"
	"filevault/internal/config"
	"filevault/internal/database"
	"filevault/internal/modules/cleanup"
	"filevault/internal/pkg/logger"
	"filevault/internal/repository"
	"filevault/internal/session"
)

// blob_sweep retries queued blob deletions and prunes expired database
// sessions. Intended to run from cron.
func main() {
	configPath := flag.String("config", "", "Path to config file")
	batch := flag.Int("batch", 500, "Maximum queued keys to process")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	log := logger.New(cfg.Logging)
	ctx := context.Background()

	db, err := database.Connect(cfg.Database.DSN, log)
	if err != nil {
		log.Fatal().Err(err).Msg("db connect failed")
	}
	repos := repository.New(db)

	blobs, err := blob.New(ctx, cfg.Blob, log)
	if err != nil {
		log.Fatal().Err(err).Msg("blob store init failed")
	}

	res, err := cleanup.NewSweeper(repos, blobs, log).Run(ctx, *batch)
	if err != nil {
		log.Fatal().Err(err).Msg("blob sweep failed")
	}

	var pruned int64
	if cfg.Session.Store == "database" {
		pruned, err = session.NewDatabaseStore(repos.Sessions).PruneExpired(ctx)
		if err != nil {
			log.Fatal().Err(err).Msg("session prune failed")
		}
	}

	remaining, err := repos.BlobCleanups.Count(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("count cleanup queue failed")
	}

	log.Info().
		Int("deleted", res.Deleted).
		Int("failed", res.Failed).
		Int64("queue_remaining", remaining).
		Int64("sessions_pruned", pruned).
		Msg("cleanup completed")
}
