// Command reclaim runs one expiry sweep and exits.  It is the hook for
// external schedulers (cron, Kubernetes CronJob) that prefer a one-shot
// trigger over the in-process ticker in the server binary.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/ahmedabdellatifss/flash-sale-api/internal/config"
	"github.com/ahmedabdellatifss/flash-sale-api/internal/database"
	"github.com/ahmedabdellatifss/flash-sale-api/internal/logger"
	"github.com/ahmedabdellatifss/flash-sale-api/internal/reclaimer"
	"github.com/ahmedabdellatifss/flash-sale-api/internal/repository"
)

func main() {
	cfg := config.Load()
	log := logger.New(cfg.Env)

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatal().Err(err).Msg("database connection failed")
	}
	defer db.Close()

	sweeper := reclaimer.New(
		repository.NewHoldRepo(db),
		repository.NewProductRepo(db),
		nil, // no broker for the one-shot path
		cfg.ReclaimBatchSize,
		log,
	)

	released, err := sweeper.Sweep(context.Background())
	if err != nil {
		log.Error().Err(err).Int("released", released).Msg("sweep failed")
		os.Exit(1)
	}
	fmt.Printf("Released %d expired holds.\n", released)
}
