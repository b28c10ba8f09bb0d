// cmd/main.go is the application entry point.
// It wires together all layers and starts the HTTP server.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/aldicoding12/frontend-ulil-sub000/internal/config"
	"github.com/aldicoding12/frontend-ulil-sub000/internal/database"
	"github.com/aldicoding12/frontend-ulil-sub000/internal/events"
	"github.com/aldicoding12/frontend-ulil-sub000/internal/handler"
	"github.com/aldicoding12/frontend-ulil-sub000/internal/idempotency"
	"github.com/aldicoding12/frontend-ulil-sub000/internal/repository"
	"github.com/aldicoding12/frontend-ulil-sub000/internal/service"
)

func main() {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config")
	}
	setupLogging(cfg)

	loc, err := cfg.Location()
	if err != nil {
		log.Fatal().Err(err).Msg("timezone")
	}

	// ── 1. Storage ───────────────────────────────────────────────────────
	var store repository.Store
	switch cfg.Store {
	case config.StoreMemory:
		store = repository.NewMemoryStore()
		log.Warn().Msg("using in-memory store, data is lost on restart")
	default:
		pool, err := database.NewPool(ctx, cfg.DB)
		if err != nil {
			log.Fatal().Err(err).Msg("database")
		}
		defer pool.Close()
		if err := database.Migrate(ctx, pool); err != nil {
			log.Fatal().Err(err).Msg("migrate")
		}
		store = repository.NewPostgresStore(pool)
		log.Info().Str("host", cfg.DB.Host).Str("db", cfg.DB.Name).Msg("connected to PostgreSQL")
	}

	// ── 2. Event publishing ──────────────────────────────────────────────
	var publisher events.Publisher = events.NopPublisher{}
	if cfg.AMQPURL != "" {
		p, err := events.NewAMQPPublisher(cfg.AMQPURL, cfg.AMQPExchange)
		if err != nil {
			log.Fatal().Err(err).Msg("rabbitmq")
		}
		defer p.Close()
		publisher = p
		log.Info().Str("exchange", cfg.AMQPExchange).Msg("publishing events to RabbitMQ")
	}

	// ── 3. Idempotency keys ──────────────────────────────────────────────
	var idem idempotency.Store
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Warn().Err(err).Str("addr", cfg.RedisAddr).Msg("redis unreachable, idempotency keys pass through until it recovers")
		}
		idem = idempotency.NewRedisStore(rdb, cfg.IdempotencyTTL)
	}

	// ── 4. Wire up layers ────────────────────────────────────────────────
	svc, err := service.NewReservationService(store, publisher, service.Options{
		Location:          loc,
		DefaultDuration:   cfg.DefaultActivityDuration(),
		CalendarCacheSize: cfg.CalendarCacheSize,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("service")
	}
	h := handler.NewReservationHandler(svc)
	r := handler.NewRouter(h, handler.RouterOptions{
		CORSOrigins: cfg.CORSOrigins,
		Idempotency: idem,
	})

	// ── 5. Start server with graceful shutdown ───────────────────────────
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("port", cfg.Port).Str("timezone", loc.String()).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	// Block until SIGINT or SIGTERM.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
		return
	}
	log.Info().Msg("server stopped")
}

func setupLogging(cfg config.Config) {
	zerolog.TimeFieldFormat = time.RFC3339
	if cfg.LogFormat == "console" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout})
	}
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
}
