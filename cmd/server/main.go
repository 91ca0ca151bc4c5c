package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	router "parley/internal/adapters/http"
	wsignal "parley/internal/adapters/signal"
	"parley/internal/app"
	"parley/internal/auth"
	"parley/internal/config"
	"parley/internal/core"
	"parley/internal/storage"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	if cfg.Mode == "debug" {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	db, err := storage.Open(cfg.DBPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.DBPath).Msg("failed to open database")
	}

	userRepo := storage.NewUserRepository(db)
	roomRepo := storage.NewRoomRepository(db)
	messageRepo := storage.NewMessageRepository(db)

	tokens := auth.NewTokenManager(cfg.Secret, cfg.TokenTTL)
	authSvc := auth.NewService(userRepo, tokens)

	presence := core.NewPresence()
	registry := app.NewRegistry()
	locks := app.NewRoomLocks()
	rooms := app.NewRooms(roomRepo, messageRepo, locks, registry, cfg.RepoTimeout, cfg.HistoryLimit)
	coord := app.NewCoordinator(roomRepo, messageRepo, userRepo, presence, registry, locks, cfg.RepoTimeout)

	limiter := wsignal.NewRateLimiter(cfg.ChatRateLimit, cfg.ChatRateWindow)
	ws := wsignal.NewController(coord, authSvc, limiter, cfg.ReadLimit, cfg.PingPeriod)

	r := router.SetupRouter(ctx, cfg, authSvc, tokens, rooms, ws)
	addr := fmt.Sprintf(":%d", cfg.Port)

	srv := &http.Server{
		Addr:    addr,
		Handler: r,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("Parley server started")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("server error")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	log.Info().Msg("Server exited gracefully")
}
