package main

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/baechuer/real-time-ressys/services/ewm-service/internal/application/directory"
	"github.com/baechuer/real-time-ressys/services/ewm-service/internal/application/event"
	"github.com/baechuer/real-time-ressys/services/ewm-service/internal/application/participation"
	"github.com/baechuer/real-time-ressys/services/ewm-service/internal/audit"
	"github.com/baechuer/real-time-ressys/services/ewm-service/internal/config"
	"github.com/baechuer/real-time-ressys/services/ewm-service/internal/domain"
	rediscache "github.com/baechuer/real-time-ressys/services/ewm-service/internal/infrastructure/caching/redis"
	"github.com/baechuer/real-time-ressys/services/ewm-service/internal/infrastructure/db/memory"
	"github.com/baechuer/real-time-ressys/services/ewm-service/internal/infrastructure/db/postgres"
	rabbitpub "github.com/baechuer/real-time-ressys/services/ewm-service/internal/infrastructure/messaging/rabbitmq"
	"github.com/baechuer/real-time-ressys/services/ewm-service/internal/infrastructure/stats"
	statshttp "github.com/baechuer/real-time-ressys/services/ewm-service/internal/infrastructure/stats/httpclient"
	statspg "github.com/baechuer/real-time-ressys/services/ewm-service/internal/infrastructure/stats/postgres"
	"github.com/baechuer/real-time-ressys/services/ewm-service/internal/logger"
	"github.com/baechuer/real-time-ressys/services/ewm-service/internal/transport/http/handlers"
	authmw "github.com/baechuer/real-time-ressys/services/ewm-service/internal/transport/http/middleware"
	"github.com/baechuer/real-time-ressys/services/ewm-service/internal/transport/http/router"
)

// App holds the long-lived dependencies so main can release them in order.
type App struct {
	Config *config.Config
	Server *http.Server

	pool      *pgxpool.Pool
	memStore  *memory.Store
	cache     *rediscache.Client
	publisher *rabbitpub.Publisher
	statsDB   *statspg.Store
	recorder  *stats.AsyncRecorder

	workers sync.WaitGroup
	log     zerolog.Logger
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}

	if cfg.LogLevel != "" {
		_ = os.Setenv("LOG_LEVEL", cfg.LogLevel)
	}
	if cfg.LogFormat != "" {
		_ = os.Setenv("LOG_FORMAT", cfg.LogFormat)
	}
	logger.Init()
	log := logger.Logger.With().Str("env", cfg.AppEnv).Logger()

	rootCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := NewApp(rootCtx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("startup failed")
	}
	defer app.Close()

	app.StartWorkers(rootCtx)

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", cfg.HTTPAddr).Str("store", cfg.StoreBackend).Msg("http server starting")
		if err := app.Server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-rootCtx.Done():
		log.Info().Msg("shutdown signal received")
	case err := <-errCh:
		log.Error().Err(err).Msg("http server crashed")
		stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 8*time.Second)
	defer cancel()
	_ = app.Server.Shutdown(shutdownCtx)
	app.workers.Wait()
	log.Info().Msg("shutdown complete")
}

func NewApp(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*App, error) {
	app := &App{Config: cfg, log: log}
	aud := audit.New(log)
	clock := event.SystemClock{}
	readiness := map[string]handlers.Pinger{}

	// 1) Store
	var store domain.Store
	switch cfg.StoreBackend {
	case config.BackendPostgres:
		if u, err := url.Parse(cfg.DatabaseURL); err == nil {
			log.Info().Str("db_user", u.User.Username()).Str("db_host", u.Host).Str("db_db", u.Path).Msg("db config loaded")
		}
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("postgres pool: %w", err)
		}
		app.pool = pool

		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := pool.Ping(pingCtx); err != nil {
			app.Close()
			return nil, fmt.Errorf("postgres ping: %w", err)
		}
		if err := postgres.Migrate(ctx, pool); err != nil {
			app.Close()
			return nil, fmt.Errorf("migrate: %w", err)
		}
		store = postgres.New(pool, cfg.AdmissionMaxRetries, log.With().Str("component", "store").Logger())
		readiness["postgres"] = pool
		log.Info().Msg("postgres connected")
	default:
		app.memStore = memory.New()
		store = app.memStore
		log.Warn().Msg("STORE_BACKEND=memory: data is lost on restart")
	}

	// 2) Cache
	var cache event.Cache
	if cfg.RedisURL != "" {
		c, err := rediscache.New(cfg.RedisURL)
		if err != nil {
			log.Warn().Err(err).Msg("redis unavailable, caching disabled")
		} else {
			app.cache = c
			cache = c
			readiness["redis"] = c
			log.Info().Msg("redis connected")
		}
	}

	// 3) Stats collector
	var (
		sink  stats.Sink
		views event.ViewCounter
	)
	switch cfg.StatsBackend {
	case config.StatsHTTP:
		c := statshttp.New(cfg.StatsURL, cfg.StatsApp, cfg.StatsUnique, cfg.StatsTimeout)
		sink, views = c, c
	case config.StatsPostgres:
		s, err := statspg.Open(ctx, cfg.StatsDatabaseURL, cfg.StatsApp, cfg.StatsUnique)
		if err != nil {
			app.Close()
			return nil, fmt.Errorf("stats db: %w", err)
		}
		app.statsDB = s
		sink, views = s, s
	}
	var hits event.HitRecorder
	if sink != nil {
		app.recorder = stats.NewAsyncRecorder(sink, cfg.StatsQueueSize, cfg.StatsTimeout,
			log.With().Str("component", "stats").Logger())
		hits = app.recorder
	}

	// 4) Broker
	if cfg.OutboxEnabled && cfg.RabbitURL != "" {
		p, err := rabbitpub.NewPublisher(cfg.RabbitURL, cfg.RabbitExchange, cfg.ServiceName)
		if err != nil {
			app.Close()
			return nil, fmt.Errorf("rabbit publisher: %w", err)
		}
		app.publisher = p
		log.Info().Str("exchange", cfg.RabbitExchange).Msg("rabbit publisher ready")
	} else {
		log.Warn().Msg("outbox relay disabled: domain events stay in the outbox")
	}

	// 5) Application
	events := event.New(store, clock, cache, hits, views, aud, event.Options{
		OwnerLead:      cfg.OwnerLeadTime,
		AdminLead:      cfg.AdminLeadTime,
		CacheTTL:       cfg.CacheTTLDetails,
		ViewsFromStats: cfg.ViewsSource == config.ViewsStats,
	})
	admission := participation.New(store, clock, events, aud, participation.Options{
		AllowCancelConfirmed: cfg.AllowCancelConfirmed,
	})
	dir := directory.New(store)

	// 6) Transport
	auth := authmw.NewAuth(cfg.JWTSecret, cfg.JWTIssuer)
	httpHandler := router.New(router.Handlers{
		Events:    handlers.NewEventsHandler(events, dir),
		Requests:  handlers.NewRequestsHandler(admission),
		Directory: handlers.NewDirectoryHandler(dir),
		Health:    handlers.NewHealthHandler(readiness),
	}, auth, cfg)

	app.Server = &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           httpHandler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       cfg.HTTPReadTimeout,
		WriteTimeout:      cfg.HTTPWriteTimeout,
		IdleTimeout:       cfg.HTTPIdleTimeout,
	}
	return app, nil
}

// StartWorkers launches the background loops. They stop when ctx is canceled.
func (a *App) StartWorkers(ctx context.Context) {
	if a.recorder != nil {
		a.workers.Add(1)
		go func() {
			defer a.workers.Done()
			a.recorder.Start(ctx)
		}()
	}

	if a.publisher == nil {
		return
	}
	a.workers.Add(1)
	go func() {
		defer a.workers.Done()
		if a.pool != nil {
			postgres.NewOutboxWorker(a.pool, a.publisher, audit.New(a.log),
				a.log.With().Str("component", "outbox_worker").Logger()).Run(ctx)
			return
		}
		a.memStore.RelayOutbox(ctx, a.publisher, 500*time.Millisecond, a.log)
	}()
	a.log.Info().Msg("outbox relay started")
}

// Close releases connections. Safe on a partially built App.
func (a *App) Close() {
	if a.publisher != nil {
		_ = a.publisher.Close()
	}
	if a.cache != nil {
		_ = a.cache.Close()
	}
	if a.statsDB != nil {
		_ = a.statsDB.Close()
	}
	if a.pool != nil {
		a.pool.Close()
	}
}
