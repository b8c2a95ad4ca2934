package main // Entry point package

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/ahmedabdellatifss/flash-sale-api/internal/config"
	"github.com/ahmedabdellatifss/flash-sale-api/internal/database"
	"github.com/ahmedabdellatifss/flash-sale-api/internal/handler"
	"github.com/ahmedabdellatifss/flash-sale-api/internal/logger"
	"github.com/ahmedabdellatifss/flash-sale-api/internal/queue"
	"github.com/ahmedabdellatifss/flash-sale-api/internal/reclaimer"
	"github.com/ahmedabdellatifss/flash-sale-api/internal/repository"
	"github.com/ahmedabdellatifss/flash-sale-api/internal/router"
	"github.com/ahmedabdellatifss/flash-sale-api/internal/service"
)

func main() {
	cfg := config.Load()
	log := logger.New(cfg.Env)

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatal().Err(err).Msg("database connection failed")
	}
	defer db.Close()
	if err := database.EnsureSchema(context.Background(), db); err != nil {
		log.Fatal().Err(err).Msg("schema setup failed")
	}

	rdb := config.NewRedisClient() // nil disables rate limiting and caching
	if rdb == nil {
		log.Warn().Msg("redis unavailable; rate limiting and response cache disabled")
	}

	productRepo := repository.NewProductRepo(db)
	holdRepo := repository.NewHoldRepo(db)
	orderRepo := repository.NewOrderRepo(db)
	paymentLogRepo := repository.NewPaymentLogRepo(db)

	events := service.NewQueuePublisher(log)

	e := echo.New()
	e.HideBanner = true
	router.RegisterRoutes(e)
	router.RegisterSale(e,
		handler.NewProductHandler(productRepo),
		handler.NewHoldHandler(productRepo, holdRepo, cfg.HoldTTL),
		handler.NewOrderHandler(holdRepo, orderRepo),
		handler.NewPaymentHandler(orderRepo, productRepo, paymentLogRepo, events),
		rdb,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Background expiry sweep; external schedulers can run cmd/reclaim instead.
	sweeper := reclaimer.New(holdRepo, productRepo, events, cfg.ReclaimBatchSize, log)
	go sweeper.Run(ctx, cfg.ReclaimInterval)

	// Audit consumer appends sale events to logs/sale.log.
	go queue.StartAuditConsumer(log)

	addr := ":" + cfg.Port
	go func() {
		log.Info().Str("addr", addr).Str("env", cfg.Env).Msg("listening")
		if err := e.Start(addr); err != nil {
			log.Info().Err(err).Msg("http server stopped")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	cancel() // stop the sweep before the server drains

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http shutdown failed")
	}
	log.Info().Msg("shut down")
}
