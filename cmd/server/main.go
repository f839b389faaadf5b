// cmd/server/main.go
// Entry point for the escape-room realtime server: one process holding every live room
// in memory, speaking the room protocol over websockets, plus a small authenticated
// HTTP API for room inspection and player profiles.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"

	"github.com/trentd187/escape-room/internal/config"
	"github.com/trentd187/escape-room/internal/database"
	"github.com/trentd187/escape-room/internal/logger"
	"github.com/trentd187/escape-room/internal/server"
	"github.com/trentd187/escape-room/internal/store"
)

func main() {
	cfg := config.Load()
	logger.Setup(cfg.Env, cfg.LogLevel)

	// Profiles are optional: without a database (or a key to know who is asking) the
	// realtime protocol still works, only /api/v1/profiles is missing.
	var profiles store.ProfileStore
	if cfg.ProfilesEnabled() {
		if err := database.RunMigrations("migrations", cfg.DatabaseURL); err != nil {
			log.Fatal().Err(err).Msg("failed to run migrations")
		}
		db, err := database.Connect(cfg.DatabaseURL)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to database")
		}
		profiles = store.NewGormProfileStore(db)
	} else {
		log.Warn().Msg("DATABASE_URL or JWT_SECRET not set, profile routes disabled")
	}

	srv := server.New(cfg, profiles)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info().Str("port", cfg.Port).Strs("origins", cfg.AllowedOrigins).Msg("starting server")
	if err := srv.Run(ctx, ":"+cfg.Port); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
	log.Info().Msg("shut down")
}
