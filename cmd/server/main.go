package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"planning-poker/internal/config"
	"planning-poker/internal/db"
	"planning-poker/internal/estimation"
	"planning-poker/internal/relay"
	"planning-poker/internal/server"

	"github.com/gin-gonic/gin"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	if err := config.LoadDotEnv(".env"); err != nil {
		log.Warn().Err(err).Msg("failed to load .env")
	}
	cfg := config.Load()
	if level, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		zerolog.SetGlobalLevel(level)
	}
	gin.SetMode(gin.ReleaseMode)

	catalog, err := estimation.LoadCatalog(cfg.CatalogPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.CatalogPath).Msg("failed to load catalog")
	}

	var conn *gorm.DB
	if os.Getenv("DATABASE_URL") != "" {
		conn, err = db.Open(cfg)
		if err != nil {
			log.Fatal().Err(err).Msg("database connection failed")
		}
		if err := db.Migrate(conn); err != nil {
			log.Fatal().Err(err).Msg("database migration failed")
		}
	} else {
		log.Warn().Msg("DATABASE_URL not set, sessions are kept in memory only")
	}

	clock := clockwork.NewRealClock()
	opts := []server.Option{
		server.WithCatalog(catalog),
		server.WithClock(clock),
	}

	relayCfg := relay.DefaultConfig()
	relayCfg.URL = cfg.NATSURL
	relayCfg.SubjectPrefix = cfg.NATSSubjectPrefix
	notices, err := relay.Connect(relayCfg, clock)
	if err != nil {
		log.Fatal().Err(err).Msg("relay connection failed")
	}
	if notices != nil {
		if conn == nil {
			log.Warn().Msg("NATS relay configured without a database; peers cannot reload rooms")
		}
		opts = append(opts, server.WithNotifier(notices))
		defer notices.Close()
	}

	srv := server.New(conn, cfg, opts...)
	if err := notices.Subscribe(srv.HandleRemoteChange); err != nil {
		log.Fatal().Err(err).Msg("relay subscription failed")
	}

	httpServer := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Info().Str("addr", httpServer.Addr).Msg("planning-poker server listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
}
