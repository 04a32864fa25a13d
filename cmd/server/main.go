package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"aureus/internal/audit"
	"aureus/internal/auth"
	"aureus/internal/auth/token"
	"aureus/internal/platform/config"
	"aureus/internal/platform/httpserver"
	"aureus/internal/platform/logger"
	"aureus/internal/platform/metrics"
	platformredis "aureus/internal/platform/redis"
	"aureus/internal/ratelimit/lockout"
	httptransport "aureus/internal/transport/http"
	"aureus/internal/users"
)

const (
	requestTimeout  = 30 * time.Second
	shutdownTimeout = 10 * time.Second
)

// main wires dependencies and runs the server lifecycle. Business logic
// lives in the internal service packages; optional backends (postgres,
// redis, kafka) degrade to in-memory counterparts when unconfigured.
func main() {
	cfg := config.FromEnv()
	log := logger.New()

	if err := run(cfg, log); err != nil {
		log.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Server, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New(prometheus.DefaultRegisterer)

	store, closeStore, err := newUserStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeStore()

	lockoutStore, closeRedis, err := newLockoutStore(cfg, log)
	if err != nil {
		return err
	}
	defer closeRedis()
	lockouts := lockout.New(lockoutStore, lockout.DefaultConfig(), log)

	sink, closeSink, err := newAuditSink(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeSink()
	publisher := audit.NewPublisher(0, log)
	worker := audit.NewWorker(sink, publisher.Inbox(), log)

	tokens := token.NewService(cfg.SecretKey, "aureus", cfg.TokenTTL)
	usersService := users.NewService(store, log, m, publisher)
	authService := auth.NewService(store, tokens, lockouts, log, m, publisher, cfg.TokenTTL)

	router := httptransport.NewRouter(httptransport.RouterConfig{
		Logger:         log,
		Metrics:        m,
		Auth:           authService,
		Users:          usersService,
		Tokens:         tokens,
		Resolver:       usersService,
		RequestTimeout: requestTimeout,
	})
	srv := httpserver.New(cfg.Addr, router)

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("starting aureus", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		return worker.Run(ctx)
	})

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// newUserStore opens the postgres pool when DATABASE_URL is set, otherwise
// falls back to the in-memory store.
func newUserStore(ctx context.Context, cfg config.Server, log *slog.Logger) (users.Store, func(), error) {
	if cfg.DatabaseURL == "" {
		log.Warn("DATABASE_URL not set, using in-memory user store")
		return users.NewMemoryStore(), func() {}, nil
	}

	db, err := sql.Open("pgx", cfg.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, nil, err
	}

	store := users.NewPostgresStore(db)
	if err := store.EnsureSchema(ctx); err != nil {
		db.Close()
		return nil, nil, err
	}

	log.Info("connected to postgres")
	return store, func() { db.Close() }, nil
}

func newLockoutStore(cfg config.Server, log *slog.Logger) (lockout.Store, func(), error) {
	client, err := platformredis.New(cfg.Redis)
	if err != nil {
		return nil, nil, err
	}
	if client == nil {
		log.Warn("REDIS_URL not set, using in-memory lockout store")
		return lockout.NewMemoryStore(), func() {}, nil
	}

	log.Info("connected to redis")
	return lockout.NewRedisStore(client.Client), func() { client.Close() }, nil
}

func newAuditSink(ctx context.Context, cfg config.Server, log *slog.Logger) (audit.Sink, func(), error) {
	if len(cfg.Kafka.Brokers) == 0 {
		log.Warn("KAFKA_BROKERS not set, keeping audit events in-process")
		return audit.NewMemorySink(), func() {}, nil
	}

	sink, err := audit.NewKafkaSink(ctx, cfg.Kafka.Brokers, cfg.Kafka.AuditTopic)
	if err != nil {
		return nil, nil, err
	}

	log.Info("connected to kafka", "topic", cfg.Kafka.AuditTopic)
	return sink, sink.Close, nil
}
