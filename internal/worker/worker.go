package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/custodia-labs/brochurebot/internal/core/domain"
	"github.com/custodia-labs/brochurebot/internal/core/ports/driven"
	"github.com/custodia-labs/brochurebot/internal/core/ports/driving"
	"github.com/custodia-labs/brochurebot/internal/core/services"
	"github.com/custodia-labs/brochurebot/internal/metrics"
)

// Worker processes tasks from the task queue.
// It runs the ingestion pipeline for each ingest_document task.
type Worker struct {
	taskQueue driven.TaskQueue
	ingestion driving.IngestionService
	sweeper   *services.Sweeper
	metrics   *metrics.Metrics
	logger    *zap.Logger

	// Configuration
	concurrency    int
	dequeueTimeout int // seconds
	idleWait       time.Duration
	statsInterval  time.Duration

	// Internal state
	mu      sync.RWMutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// WorkerConfig holds configuration for the worker.
type WorkerConfig struct {
	TaskQueue      driven.TaskQueue
	Ingestion      driving.IngestionService
	Sweeper        *services.Sweeper // Optional: stuck upload sweeps
	Metrics        *metrics.Metrics  // Optional
	Logger         *zap.Logger
	Concurrency    int           // Number of concurrent task processors
	DequeueTimeout int           // Seconds to wait for a task before checking again
	IdleWait       time.Duration // Pause after an empty dequeue (default: 100ms)
	StatsInterval  time.Duration // Queue gauge refresh (default: 15s)
}

// NewWorker creates a new task worker.
func NewWorker(cfg WorkerConfig) *Worker {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = 1
	}

	dequeueTimeout := cfg.DequeueTimeout
	if dequeueTimeout <= 0 {
		dequeueTimeout = 5
	}

	idleWait := cfg.IdleWait
	if idleWait <= 0 {
		idleWait = 100 * time.Millisecond
	}

	statsInterval := cfg.StatsInterval
	if statsInterval <= 0 {
		statsInterval = 15 * time.Second
	}

	return &Worker{
		taskQueue:      cfg.TaskQueue,
		ingestion:      cfg.Ingestion,
		sweeper:        cfg.Sweeper,
		metrics:        cfg.Metrics,
		logger:         logger,
		concurrency:    concurrency,
		dequeueTimeout: dequeueTimeout,
		idleWait:       idleWait,
		statsInterval:  statsInterval,
	}
}

// Start begins the worker loop.
// It runs until Stop is called or context is cancelled.
func (w *Worker) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.stopCh = make(chan struct{})
	w.doneCh = make(chan struct{})
	w.mu.Unlock()

	w.logger.Info("worker starting",
		zap.Int("concurrency", w.concurrency),
		zap.Int("dequeue_timeout", w.dequeueTimeout),
	)

	if w.sweeper != nil {
		w.sweeper.Start(ctx)
	}

	var wg sync.WaitGroup
	for i := 0; i < w.concurrency; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			w.processLoop(ctx, workerID)
		}(i)
	}

	if w.metrics != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			w.statsLoop(ctx)
		}()
	}

	go func() {
		wg.Wait()
		close(w.doneCh)
	}()

	return nil
}

// Stop gracefully stops the worker. In-flight tasks run to completion.
func (w *Worker) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	close(w.stopCh)
	w.mu.Unlock()

	if w.sweeper != nil {
		w.sweeper.Stop()
	}

	<-w.doneCh

	w.mu.Lock()
	w.running = false
	w.mu.Unlock()

	w.logger.Info("worker stopped")
}

// Wait blocks until the worker stops.
func (w *Worker) Wait() {
	<-w.doneCh
}

// processLoop is the main processing loop for a worker goroutine.
func (w *Worker) processLoop(ctx context.Context, workerID int) {
	logger := w.logger.With(zap.Int("worker_id", workerID))
	logger.Debug("worker goroutine started")

	for {
		select {
		case <-ctx.Done():
			logger.Debug("worker context cancelled")
			return
		case <-w.stopCh:
			logger.Debug("worker stop signal received")
			return
		default:
		}

		task, err := w.taskQueue.DequeueWithTimeout(ctx, w.dequeueTimeout)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				continue
			}
			logger.Error("failed to dequeue task", zap.Error(err))
			w.pause(ctx, time.Second)
			continue
		}

		if task == nil {
			w.pause(ctx, w.idleWait)
			continue
		}

		w.processTask(ctx, task, logger)
	}
}

// pause sleeps for d unless the worker is stopped first.
func (w *Worker) pause(ctx context.Context, d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-w.stopCh:
	case <-timer.C:
	}
}

// processTask processes a single task. Retryable errors nack the task,
// everything else acks it.
func (w *Worker) processTask(ctx context.Context, task *domain.Task, logger *zap.Logger) {
	logger = logger.With(
		zap.String("task_id", task.ID),
		zap.String("task_type", string(task.Type)),
		zap.String("tenant_id", task.TenantID),
		zap.Int("attempt", task.Attempts),
	)
	logger.Debug("processing task")

	startTime := time.Now()
	var (
		result *domain.TaskResult
		err    error
	)

	switch task.Type {
	case domain.TaskTypeIngestDocument:
		result, err = w.ingestion.ProcessTask(ctx, task)
		w.metrics.ObserveIngestion(result, err)
	default:
		err = fmt.Errorf("unknown task type: %s", task.Type)
	}

	duration := time.Since(startTime)

	if err != nil {
		if errors.Is(err, domain.ErrLockHeld) {
			logger.Info("namespace busy, task will be retried", zap.Duration("duration", duration))
		} else {
			logger.Error("task failed", zap.Duration("duration", duration), zap.Error(err))
		}

		// Use a fresh context so a shutdown still returns the task to the queue
		nackCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if nackErr := w.taskQueue.Nack(nackCtx, task.ID, err.Error()); nackErr != nil {
			logger.Error("failed to nack task", zap.NamedError("nack_error", nackErr))
		}
		return
	}

	if result != nil && !result.Success {
		logger.Warn("task finished with error", zap.String("reason", result.Error), zap.Duration("duration", duration))
	} else {
		logger.Info("task completed", zap.Duration("duration", duration))
	}

	if ackErr := w.taskQueue.Ack(ctx, task.ID); ackErr != nil {
		logger.Error("failed to ack task", zap.NamedError("ack_error", ackErr))
	}
}

// statsLoop refreshes the queue gauges.
func (w *Worker) statsLoop(ctx context.Context) {
	ticker := time.NewTicker(w.statsInterval)
	defer ticker.Stop()

	w.publishStats(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case <-ticker.C:
			w.publishStats(ctx)
		}
	}
}

func (w *Worker) publishStats(ctx context.Context) {
	stats, err := w.taskQueue.Stats(ctx)
	if err != nil {
		w.logger.Debug("failed to read queue stats", zap.Error(err))
		return
	}
	w.metrics.SetQueueStats(stats)
}

// Health returns health status of the worker.
type Health struct {
	Running     bool   `json:"running"`
	QueueHealth bool   `json:"queue_health"`
	Error       string `json:"error,omitempty"`
}

// Health returns the health status of the worker.
func (w *Worker) Health(ctx context.Context) Health {
	w.mu.RLock()
	running := w.running
	w.mu.RUnlock()

	health := Health{
		Running: running,
	}

	if err := w.taskQueue.Ping(ctx); err != nil {
		health.QueueHealth = false
		health.Error = err.Error()
	} else {
		health.QueueHealth = true
	}

	return health
}
