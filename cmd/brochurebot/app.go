package main

import (
	"context"
	"fmt"
	"os"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/custodia-labs/brochurebot/internal/adapters/driven/ai"
	"github.com/custodia-labs/brochurebot/internal/adapters/driven/auth"
	"github.com/custodia-labs/brochurebot/internal/adapters/driven/chromem"
	"github.com/custodia-labs/brochurebot/internal/adapters/driven/postgres"
	"github.com/custodia-labs/brochurebot/internal/adapters/driven/qdrant"
	postgresqueue "github.com/custodia-labs/brochurebot/internal/adapters/driven/queue/postgres"
	redisqueue "github.com/custodia-labs/brochurebot/internal/adapters/driven/queue/redis"
	redisadapter "github.com/custodia-labs/brochurebot/internal/adapters/driven/redis"
	"github.com/custodia-labs/brochurebot/internal/adapters/driven/vespa"
	"github.com/custodia-labs/brochurebot/internal/config"
	"github.com/custodia-labs/brochurebot/internal/core/domain"
	"github.com/custodia-labs/brochurebot/internal/core/ports/driven"
	"github.com/custodia-labs/brochurebot/internal/logging"
	"github.com/custodia-labs/brochurebot/internal/metrics"
	"github.com/custodia-labs/brochurebot/internal/runtime"
)

// app holds the infrastructure shared by every command
type app struct {
	cfg     *config.Config
	logger  *zap.Logger
	metrics *metrics.Metrics

	db     *postgres.DB
	sealer *postgres.Sealer
	redis  *redis.Client

	sessions driven.SessionStore
	lock     driven.DistributedLock

	closers []func() error
}

// loadConfig reads dotenv files, layers the configuration and builds the logger
func loadConfig() (*config.Config, *zap.Logger, error) {
	if err := config.LoadDotEnv(envFiles...); err != nil {
		return nil, nil, err
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, fmt.Errorf("invalid configuration: %w", err)
	}
	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger.With(zap.String("version", version)), nil
}

// openApp connects Postgres and, when configured, Redis
func openApp(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*app, error) {
	a := &app{cfg: cfg, logger: logger, metrics: metrics.New()}

	db, err := postgres.Connect(ctx, postgres.Config{
		URL:             cfg.Database.URL,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		ConnMaxIdleTime: cfg.Database.ConnMaxIdleTime,
	})
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	a.db = db
	a.closers = append(a.closers, db.Close)
	logger.Info("postgres connected")

	a.sealer, err = postgres.NewSealerFromHex(cfg.Database.SealKey)
	if err != nil {
		a.Close()
		return nil, err
	}
	if a.sealer == nil {
		logger.Warn("database.seal_key is empty, uploads and share tokens are stored unencrypted")
	}

	if cfg.Redis.Enabled() {
		opts, err := redis.ParseURL(cfg.Redis.URL)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
		client := redis.NewClient(opts)
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			a.Close()
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		a.redis = client
		a.closers = append(a.closers, client.Close)
		a.sessions = redisadapter.NewSessionStore(client)
		a.lock = redisadapter.NewLock(client)
		logger.Info("redis connected, using redis sessions and locks")
	} else {
		a.sessions = postgres.NewSessionStore(db)
		a.lock = postgres.NewAdvisoryLock(db)
		logger.Info("redis not configured, using postgres sessions and advisory locks")
	}

	return a, nil
}

// Close releases connections in reverse order of opening
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.logger.Warn("close failed", zap.Error(err))
		}
	}
	a.closers = nil
}

func (a *app) authAdapter() *auth.Adapter {
	if a.cfg.Auth.BcryptCost > 0 {
		return auth.NewAdapterWithCost(a.cfg.Auth.SessionSecret, a.cfg.Auth.BcryptCost)
	}
	return auth.NewAdapter(a.cfg.Auth.SessionSecret)
}

// taskQueue selects Redis Streams when Redis is configured, otherwise the
// Postgres SKIP LOCKED queue
func (a *app) taskQueue(ctx context.Context) (driven.TaskQueue, error) {
	if a.redis != nil {
		host, _ := os.Hostname()
		q, err := redisqueue.NewQueue(ctx, a.redis, fmt.Sprintf("%s-%d", host, os.Getpid()))
		if err != nil {
			return nil, fmt.Errorf("create redis task queue: %w", err)
		}
		a.logger.Info("using redis task queue")
		return q, nil
	}
	a.logger.Info("using postgres task queue")
	return postgresqueue.NewQueue(a.db.DB), nil
}

// vectorIndex opens the configured backend
func (a *app) vectorIndex(ctx context.Context) (driven.VectorIndex, error) {
	dims := a.cfg.VectorDimensions()
	v := a.cfg.Vector

	var (
		index driven.VectorIndex
		err   error
	)
	switch v.Backend {
	case config.BackendQdrant:
		qc := qdrant.DefaultConfig(dims)
		qc.Host, qc.Port, qc.APIKey, qc.UseTLS = v.QdrantHost, v.QdrantPort, v.QdrantAPIKey, v.QdrantTLS
		if v.Collection != "" {
			qc.Collection = v.Collection
		}
		index, err = qdrant.NewIndex(qc)
	case config.BackendChromem:
		index, err = chromem.NewIndex(chromem.Config{
			Path:       v.ChromemPath,
			Compress:   v.ChromemCompress,
			Dimensions: dims,
		}, a.logger.Named("chromem"))
	case config.BackendVespa:
		vc := vespa.DefaultConfig(v.VespaURL, dims)
		vc.ConfigURL = v.VespaConfigURL
		index, err = vespa.NewIndex(vc)
	default:
		return nil, fmt.Errorf("%w: unknown vector backend %q", domain.ErrInvalidInput, v.Backend)
	}
	if err != nil {
		return nil, fmt.Errorf("open %s index: %w", v.Backend, err)
	}

	if err := index.HealthCheck(ctx); err != nil {
		a.logger.Warn("vector index health check failed", zap.String("backend", v.Backend), zap.Error(err))
	} else {
		a.logger.Info("vector index ready", zap.String("backend", v.Backend), zap.Int("dimensions", dims))
	}
	a.closers = append(a.closers, index.Close)
	return index, nil
}

// runtimeServices builds the embedding and language model providers. An
// unset provider leaves the capability unavailable; an unreachable one is
// logged and kept so it can recover.
func (a *app) runtimeServices(ctx context.Context) (*runtime.Services, error) {
	svcs := runtime.NewServices(domain.NewRuntimeConfig(a.cfg.SessionBackend(), a.cfg.Vector.Backend))
	a.closers = append(a.closers, svcs.Close)

	factory := ai.NewFactory().WithBatchConfig(ai.BatchConfig{
		BatchSize:   a.cfg.Ingest.BatchSize,
		MaxAttempts: a.cfg.Ingest.MaxAttempts,
		Backoff:     a.cfg.Ingest.Backoff,
	}, a.metrics.EmbeddingRetry)

	if a.cfg.AI.EmbeddingProvider != "" {
		settings := a.cfg.AI.EmbeddingSettings()
		embedder, err := factory.CreateEmbeddingService(settings)
		if err != nil {
			return nil, fmt.Errorf("embedding provider: %w", err)
		}
		if err := embedder.HealthCheck(ctx); err != nil {
			a.logger.Warn("embedding provider health check failed", zap.String("provider", string(settings.Provider)), zap.Error(err))
		}
		svcs.SetEmbeddingService(settings.Provider, embedder)
	} else {
		a.logger.Warn("ai.embedding_provider is not set, uploads and chat are unavailable")
	}

	if a.cfg.AI.LLMProvider != "" {
		settings := a.cfg.AI.LLMSettings()
		llm, err := factory.CreateLLMService(settings)
		if err != nil {
			return nil, fmt.Errorf("llm provider: %w", err)
		}
		if err := llm.Ping(ctx); err != nil {
			a.logger.Warn("llm provider ping failed", zap.String("provider", string(settings.Provider)), zap.Error(err))
		}
		svcs.SetLLMService(llm)
	} else {
		a.logger.Warn("ai.llm_provider is not set, chat is unavailable")
	}

	caps := svcs.Config()
	a.logger.Info("runtime capabilities",
		zap.String("session_backend", caps.SessionBackend),
		zap.String("vector_backend", caps.VectorBackend),
		zap.Bool("embedding", caps.EmbeddingAvailable()),
		zap.Bool("llm", caps.LLMAvailable()))
	return svcs, nil
}

// pingFunc adapts a function to the readiness Pinger
type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

// redisPinger is nil without Redis so readiness skips the check
func (a *app) redisPinger() interface{ Ping(context.Context) error } {
	if a.redis == nil {
		return nil
	}
	return pingFunc(func(ctx context.Context) error { return a.redis.Ping(ctx).Err() })
}
