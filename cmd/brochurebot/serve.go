package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/custodia-labs/brochurebot/internal/adapters/driven/auth"
	"github.com/custodia-labs/brochurebot/internal/adapters/driven/pdf"
	"github.com/custodia-labs/brochurebot/internal/adapters/driven/postgres"
	httpadapter "github.com/custodia-labs/brochurebot/internal/adapters/driving/http"
	"github.com/custodia-labs/brochurebot/internal/chunker"
	"github.com/custodia-labs/brochurebot/internal/config"
	"github.com/custodia-labs/brochurebot/internal/core/services"
	"github.com/custodia-labs/brochurebot/internal/worker"
)

var serveMode string

func init() {
	serveCmd.Flags().StringVar(&serveMode, "mode", "", "run mode: api, worker or all (default from server.mode)")
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API, the ingestion worker, or both",
	Long: `Run brochurebot.

Modes:
  api     HTTP API only; uploads are queued for a worker
  worker  ingestion worker and stuck-upload sweeper only
  all     both in one process (default)

Examples:
  brochurebot serve
  brochurebot serve --mode worker --config /etc/brochurebot.yaml`,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	mode := cfg.Server.Mode
	if serveMode != "" {
		mode = serveMode
	}
	if err := cfg.CheckMode(mode); err != nil {
		return err
	}
	logger.Info("brochurebot starting", zap.String("mode", mode))

	a, err := openApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.db.InitSchema(ctx); err != nil {
		return fmt.Errorf("initialize schema: %w", err)
	}

	index, err := a.vectorIndex(ctx)
	if err != nil {
		return err
	}
	runtimeServices, err := a.runtimeServices(ctx)
	if err != nil {
		return err
	}
	taskQueue, err := a.taskQueue(ctx)
	if err != nil {
		return err
	}
	a.closers = append(a.closers, taskQueue.Close)

	// Stores
	tenantStore := postgres.NewTenantStore(a.db, a.sealer)
	uploadStore := postgres.NewUploadStore(a.db)
	blobStore := postgres.NewBlobStore(a.db, a.sealer)
	operatorStore := postgres.NewOperatorStore(a.db)
	queryLog := postgres.NewQueryLog(a.db)

	shareSigner, err := auth.NewShareSigner(cfg.Auth.ShareSecret, cfg.Auth.ShareTTL)
	if err != nil {
		return fmt.Errorf("share signer: %w", err)
	}

	ingestion := services.NewIngestionService(services.IngestionServiceConfig{
		UploadStore: uploadStore,
		BlobStore:   blobStore,
		Parser:      pdf.NewParser(cfg.Ingest.MaxPages),
		Chunker: chunker.New(chunker.Config{
			ChunkSize: cfg.Ingest.ChunkSize,
			Overlap:   cfg.Ingest.ChunkOverlap,
			MinLength: cfg.Ingest.MinChunk,
		}),
		Index:    index,
		Lock:     a.lock,
		Services: runtimeServices,
		LockTTL:  cfg.Ingest.LockTTL,
		Logger:   logger.Named("ingestion"),
	})

	var w *worker.Worker
	if mode != config.ModeAPI {
		sweeper := services.NewSweeper(services.SweeperConfig{
			UploadStore:  uploadStore,
			Lock:         a.lock,
			Logger:       logger.Named("sweeper"),
			PollInterval: cfg.Worker.SweepInterval,
			StuckAfter:   cfg.Ingest.StuckAfter,
		})
		w = worker.NewWorker(worker.WorkerConfig{
			TaskQueue:      taskQueue,
			Ingestion:      ingestion,
			Sweeper:        sweeper,
			Metrics:        a.metrics,
			Logger:         logger.Named("worker"),
			Concurrency:    cfg.Worker.Concurrency,
			DequeueTimeout: cfg.Worker.DequeueTimeout,
		})
		if err := w.Start(ctx); err != nil {
			return fmt.Errorf("start worker: %w", err)
		}
		defer w.Stop()
	}

	if mode == config.ModeWorker {
		<-ctx.Done()
		logger.Info("shutdown signal received")
		return nil
	}

	answers := services.NewAnswerService(services.AnswerServiceConfig{
		Index:       index,
		Services:    runtimeServices,
		Temperature: cfg.AI.LLMTemperature,
		Logger:      logger.Named("answer"),
	})

	serverCfg := httpadapter.Config{
		Host:            "0.0.0.0",
		Port:            cfg.Server.Port,
		Version:         version,
		AllowedOrigins:  cfg.Server.AllowedOrigins(),
		RateLimit:       cfg.Server.RateLimit,
		RateBurst:       cfg.Server.RateBurst,
		MaxUploadBytes:  cfg.Ingest.MaxUploadBytes,
		ReadTimeout:     cfg.Server.ReadTimeout,
		WriteTimeout:    cfg.Server.WriteTimeout,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	}
	server := httpadapter.NewServer(serverCfg, httpadapter.Deps{
		Auth: services.NewAuthService(operatorStore, a.sessions, a.authAdapter(), cfg.Auth.SessionTTL),
		Uploads: services.NewUploadService(services.UploadServiceConfig{
			TenantStore: tenantStore,
			UploadStore: uploadStore,
			BlobStore:   blobStore,
			TaskQueue:   taskQueue,
			MaxBytes:    cfg.Ingest.MaxUploadBytes,
			StuckAfter:  cfg.Ingest.StuckAfter,
			Logger:      logger.Named("upload"),
		}),
		Chat:      services.NewChatService(answers, queryLog, logger.Named("chat")),
		ShareLink: services.NewShareLinkService(tenantStore, shareSigner, cfg.Server.BaseURL, logger.Named("share")),
		Analytics: services.NewAnalyticsService(queryLog),
		Tenants:   services.NewTenantResolver(shareSigner, tenantStore, cfg.Auth.RevokeOnRegenerate),
		Runtime:   runtimeServices,
		Metrics:   a.metrics,
		DB:        a.db,
		Redis:     a.redisPinger(),
		Index:     index,
		Logger:    logger.Named("http"),
	})

	return server.Start(ctx)
}
