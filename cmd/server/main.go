package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/kuisduel/kuisduel-backend/internal/config"
	"github.com/kuisduel/kuisduel-backend/internal/database"
	"github.com/kuisduel/kuisduel-backend/internal/duel"
	"github.com/kuisduel/kuisduel-backend/internal/handler"
	"github.com/kuisduel/kuisduel-backend/internal/logger"
	"github.com/kuisduel/kuisduel-backend/internal/repository"
	"github.com/kuisduel/kuisduel-backend/internal/router"
	"github.com/kuisduel/kuisduel-backend/internal/service"
	"github.com/kuisduel/kuisduel-backend/internal/validator"
	"github.com/kuisduel/kuisduel-backend/internal/worker"
	"github.com/rs/zerolog"
)

func main() {
	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.Load()

	// ─── Initialize Logger ─────────────────────────────────────────────
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	log.Info().
		Str("port", cfg.ServerPort).
		Str("mode", cfg.GinMode).
		Str("log_level", cfg.LogLevel).
		Msg("Starting KuisDuel Backend")

	// ─── Initialize Validator ──────────────────────────────────────────
	validator.Setup()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ─── Connect to PostgreSQL ─────────────────────────────────────────
	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	// ─── Connect to Redis ──────────────────────────────────────────────
	rdb, err := database.NewRedisClient(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()

	// ─── Initialize Repositories ───────────────────────────────────────
	playerRepo := repository.NewPlayerRepository(pool)
	questionRepo := repository.NewQuestionRepository(pool)
	duelRepo := repository.NewDuelRepository(pool)
	walletRepo := repository.NewWalletRepository(pool)

	// ─── Initialize Duel Engine ────────────────────────────────────────
	registry := duel.NewRegistry(clockwork.NewRealClock(), log, cfg.DisposeGrace)

	// ─── Initialize Workers ────────────────────────────────────────────
	// The answer queue is the sink live sessions write to; the log worker
	// drains it into PostgreSQL in batches. The settlement worker retries
	// payouts that failed at duel end.
	answerQueue := worker.NewAnswerQueue(rdb, log)
	answerLogWorker := worker.NewAnswerLogWorker(duelRepo, rdb, log)
	settlementWorker := worker.NewSettlementWorker(registry, rdb, log)

	// ─── Initialize Services ──────────────────────────────────────────
	authService := service.NewAuthService(cfg, rdb)
	walletService := service.NewWalletService(walletRepo, log)
	playerService := service.NewPlayerService(playerRepo, walletService, authService, log)
	bankService := service.NewQuestionBankService(questionRepo, rdb, log)
	duelService := service.NewDuelService(cfg, log, registry, duelRepo, walletService, bankService, answerQueue, settlementWorker, rdb)

	// ─── Initialize Handlers ──────────────────────────────────────────
	handlers := &router.Handlers{
		Auth:   handler.NewAuthHandler(authService, playerService),
		Duel:   handler.NewDuelHandler(duelService, bankService),
		Wallet: handler.NewWalletHandler(walletService),
		WS:     handler.NewWSHandler(duelService, log, cfg.AllowedOrigins),
		System: handler.NewSystemHandler(pool, rdb, registry),
	}

	// ─── Start Background Workers ─────────────────────────────────────
	workerCtx, workerCancel := context.WithCancel(context.Background())

	go answerLogWorker.Start(workerCtx)
	go settlementWorker.Start(workerCtx)

	// ─── Setup Router ──────────────────────────────────────────────────
	r := router.SetupRouter(authService, handlers, cfg)

	// ─── Create HTTP Server ────────────────────────────────────────────
	srv := &http.Server{
		Addr:    ":" + cfg.ServerPort,
		Handler: r,
	}

	// ─── Start Server in Goroutine ─────────────────────────────────────
	go func() {
		log.Info().Str("addr", ":"+cfg.ServerPort).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server error")
		}
	}()

	// ─── Graceful Shutdown ─────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	log.Info().Str("signal", sig.String()).Msg("Shutting down gracefully...")

	// 1. Stop accepting new HTTP requests (5s timeout).
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown error")
	}

	// 2. Stop background workers and wait for queues to drain.
	workerCancel()
	time.Sleep(2 * time.Second) // Allow workers to drain.

	log.Info().Msg("Shutdown complete")
}

// init sets zerolog global defaults before main runs.
func init() {
	zerolog.TimeFieldFormat = time.RFC3339
}
