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

	"github.com/speakapp/server/internal/adapters"
	router "github.com/speakapp/server/internal/adapters/http"
	"github.com/speakapp/server/internal/app"
	"github.com/speakapp/server/internal/config"
	"github.com/speakapp/server/internal/storage"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Initialize zerolog global logger early so config.Load can use it.
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	// Human-friendly output for terminal; in production you may want JSON only.
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	// Rooms live in memory only; the database just keeps durable traces and
	// accounts. Start serving even if it is down, like any degraded replica.
	var recorder app.Recorder = app.NopRecorder{}
	var authHandler *adapters.AuthHandler

	registry := app.NewRegistry()
	rooms := app.NewRoomStore()

	db, err := storage.NewPostgresDB(cfg.DB.Host, cfg.DB.User, cfg.DB.Password, cfg.DB.Name, cfg.DB.Port)
	if err != nil {
		log.Warn().Err(err).Msg("database unavailable, starting without durable records")
		authHandler = adapters.NewAuthHandler(nil, nil, rooms, cfg.Secret)
	} else {
		defer db.Close()
		if err := db.AutoMigrate(&storage.User{}, &storage.EventRecord{}); err != nil {
			log.Fatal().Err(err).Msg("failed to migrate database")
		}
		rec := storage.NewEventRecorder(db)
		recorder = rec
		authHandler = adapters.NewAuthHandler(storage.NewUserRepository(db), rec, rooms, cfg.Secret)
	}

	coord := app.NewCoordinator(registry, rooms, recorder)
	ws := adapters.NewWSController(coord, cfg.ReadLimit, cfg.PingPeriod)

	r := router.SetupRouter(cfg, ws, authHandler)
	addr := fmt.Sprintf(":%d", cfg.Port)

	srv := &http.Server{
		Addr:    addr,
		Handler: r,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("SpeakApp server started")
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
