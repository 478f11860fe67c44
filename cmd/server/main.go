package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"da-vinci/internal/analytics"
	"da-vinci/internal/config"
	"da-vinci/internal/db"
	"da-vinci/internal/finalize"
	"da-vinci/internal/identity"
	"da-vinci/internal/judge"
	"da-vinci/internal/logger"
	"da-vinci/internal/matchmaking"
	"da-vinci/internal/metrics"
	"da-vinci/internal/room"
	"da-vinci/internal/schedule"
	"da-vinci/internal/server"
	"da-vinci/internal/store"
	"da-vinci/internal/words"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

func main() {
	if err := config.LoadDotEnv(".env"); err != nil {
		log.Warn().Err(err).Msg("failed to load .env")
	}
	cfg := config.Load()
	logger.Init(cfg.LogLevel, cfg.LogFormat)

	addr := ":8080"
	if env := os.Getenv("PORT"); env != "" {
		addr = ":" + env
	}
	if cfg.JWTSecret == "" {
		log.Fatal().Msg("JWT_SECRET is not set")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, closeStore := openStore(ctx, cfg)
	defer closeStore()

	var (
		repo   analytics.Repository = analytics.NewMemory()
		picker words.Picker         = words.NewStatic(words.Defaults)
		source schedule.Source      = schedule.NewMemory()
	)
	if os.Getenv("DATABASE_URL") != "" {
		conn, err := db.Open(cfg)
		if err != nil {
			log.Fatal().Err(err).Msg("database connection failed")
		}
		if err := db.Migrate(conn); err != nil {
			log.Fatal().Err(err).Msg("database migration failed")
		}
		repo = analytics.NewPostgres(conn)
		picker = words.NewLibrary(conn, picker)
		source = schedule.NewRepository(conn)
	} else {
		log.Warn().Msg("DATABASE_URL is not set; game logs are kept in memory")
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(registry)

	loc := cfg.Location()
	gate := schedule.NewGate(source, loc)
	reports := analytics.NewReports(repo)
	queue := matchmaking.NewQueue(st, cfg, picker, gate, m)
	rooms := room.NewService(st, cfg, m)
	vision := judge.NewOpenAIVision(cfg.OpenAIAPIKey, cfg.OpenAIModel, cfg.OpenAIBaseURL,
		time.Duration(cfg.JudgeTimeoutSeconds)*time.Second)
	finalizer := finalize.NewService(st, repo, loc, m)

	srv := server.New(server.Deps{
		Config:   cfg,
		Store:    st,
		Queue:    queue,
		Rooms:    rooms,
		Judge:    judge.NewService(st, vision, reports, m),
		Reports:  reports,
		Gate:     gate,
		Verifier: identity.NewVerifier(cfg.JWTSecret, cfg.AllowedEmailDomain),
		Gatherer: registry,
	})

	var wg sync.WaitGroup
	workers := map[string]func(context.Context) error{
		"matchmaking": queue.Run,
		"turn timers": rooms.Watch,
		"finalizer":   finalizer.Run,
		"server":      srv.Run,
	}
	for name, run := range workers {
		wg.Add(1)
		go func(name string, run func(context.Context) error) {
			defer wg.Done()
			if err := run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Error().Err(err).Str("worker", name).Msg("worker stopped")
				stop()
			}
		}(name, run)
	}

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.Info().Str("addr", addr).Msg("da-vinci server listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("http server failed")
			stop()
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http shutdown failed")
	}
	srv.Close()
	wg.Wait()
}

func openStore(ctx context.Context, cfg config.Config) (store.Store, func()) {
	if cfg.RedisURL == "" {
		log.Warn().Msg("REDIS_URL is not set; using the in-process store")
		return store.NewMemory(), func() {}
	}
	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid REDIS_URL")
	}
	client := redis.NewClient(opts)
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		log.Fatal().Err(err).Msg("redis connection failed")
	}
	st := store.NewRedis(client)
	return st, func() { _ = st.Close() }
}
