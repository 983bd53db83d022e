package main

import (
	"context"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"poker-settle/internal/config"
	"poker-settle/internal/logging"
	"poker-settle/internal/room"
	"poker-settle/internal/session"
	"poker-settle/internal/stats"
	"poker-settle/internal/ws"
)

func main() {
	app, err := config.LoadApp()
	if err != nil {
		panic(err)
	}
	logging.Init(app.Log)
	cfg := app.Server

	profileStore := newProfileStore(cfg)
	defer profileStore.Close()

	sessions := session.NewStore(time.Duration(cfg.SessionTTLMins) * time.Minute)
	sessions.StartJanitor(context.Background(), time.Duration(cfg.SessionSweepMins)*time.Minute)

	rooms := room.NewStore()
	wsServer := ws.NewServer(rooms, profileStore, sessions, newVerifier(cfg))

	r := newRouter(rooms, profileStore, wsServer)

	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	log.Info().Str("addr", cfg.HTTPAddr).Msg("http listening")
	log.Fatal().Err(server.ListenAndServe()).Msg("server stopped")
}

func newProfileStore(cfg config.ServerConfig) stats.ProfileStore {
	if cfg.PostgresDSN == "" {
		log.Warn().Msg("no POSTGRES_DSN, lifetime stats held in memory only")
		return stats.NewMemory()
	}
	pg, err := stats.NewPostgres(cfg.PostgresDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("stats store init failed")
	}
	if err := pg.Ping(context.Background()); err != nil {
		log.Fatal().Err(err).Msg("db ping failed")
	}
	if err := pg.EnsureSchema(context.Background()); err != nil {
		log.Fatal().Err(err).Msg("ensure stats schema failed")
	}
	return pg
}

func newVerifier(cfg config.ServerConfig) session.Verifier {
	if cfg.GoogleClientID == "" {
		log.Warn().Msg("no GOOGLE_CLIENT_ID, logins disabled")
		return noVerifier{}
	}
	return newGoogleVerifier(cfg.GoogleClientID)
}
