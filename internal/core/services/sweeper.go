package services

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/custodia-labs/brochurebot/internal/core/ports/driven"
)

const sweeperLockName = "stuck-upload-sweeper"

// Sweeper periodically moves uploads stuck in processing to error.
// It runs on worker nodes next to the status read check, so a tenant that
// stops polling still ends in a terminal state.
//
// For multi-worker deployments, configure a DistributedLock so only one
// instance sweeps per cycle.
type Sweeper struct {
	uploads driven.UploadStore
	lock    driven.DistributedLock
	logger  *zap.Logger

	// Internal state
	mu       sync.Mutex
	running  bool
	stopCh   chan struct{}
	doneCh   chan struct{}
	interval time.Duration

	stuckAfter time.Duration
	batchSize  int
	lockTTL    time.Duration
	now        func() time.Time
}

// SweeperConfig holds configuration for the sweeper.
type SweeperConfig struct {
	UploadStore  driven.UploadStore
	Lock         driven.DistributedLock // Optional: coordinates sweeps across instances
	Logger       *zap.Logger
	PollInterval time.Duration // How often to sweep (default: 1m)
	StuckAfter   time.Duration // Processing age treated as stuck (default: 15m)
	BatchSize    int           // Uploads handled per sweep (default: 100)
}

// NewSweeper creates a new sweeper.
func NewSweeper(cfg SweeperConfig) *Sweeper {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	interval := cfg.PollInterval
	if interval <= 0 {
		interval = time.Minute
	}
	stuckAfter := cfg.StuckAfter
	if stuckAfter <= 0 {
		stuckAfter = defaultStuckAfter
	}
	batch := cfg.BatchSize
	if batch <= 0 {
		batch = 100
	}

	return &Sweeper{
		uploads:    cfg.UploadStore,
		lock:       cfg.Lock,
		logger:     logger,
		interval:   interval,
		stuckAfter: stuckAfter,
		batchSize:  batch,
		lockTTL:    2 * interval,
		now:        time.Now,
	}
}

// Start begins the sweep loop.
// It runs until Stop is called or context is cancelled.
func (s *Sweeper) Start(ctx context.Context) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	s.running = true
	s.stopCh = make(chan struct{})
	s.doneCh = make(chan struct{})
	s.mu.Unlock()

	s.logger.Info("sweeper starting",
		zap.Duration("interval", s.interval),
		zap.Duration("stuck_after", s.stuckAfter))

	go s.run(ctx)
}

// Stop gracefully stops the sweeper.
func (s *Sweeper) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	close(s.stopCh)
	s.mu.Unlock()

	<-s.doneCh

	s.mu.Lock()
	s.running = false
	s.mu.Unlock()

	s.logger.Info("sweeper stopped")
}

func (s *Sweeper) run(ctx context.Context) {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.Sweep(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stopCh:
			return
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}

// Sweep runs one cycle and returns how many uploads were moved to error.
func (s *Sweeper) Sweep(ctx context.Context) int {
	if s.lock != nil {
		acquired, err := s.lock.Acquire(ctx, sweeperLockName, s.lockTTL)
		if err != nil {
			s.logger.Warn("failed to acquire sweeper lock", zap.Error(err))
			return 0
		}
		if !acquired {
			s.logger.Debug("sweeper lock held by another instance, skipping cycle")
			return 0
		}
		defer func() {
			if err := s.lock.Release(ctx, sweeperLockName); err != nil {
				s.logger.Warn("failed to release sweeper lock", zap.Error(err))
			}
		}()
	}

	stuck, err := s.uploads.ListStuck(ctx, s.now().Add(-s.stuckAfter), s.batchSize)
	if err != nil {
		s.logger.Error("failed to list stuck uploads", zap.Error(err))
		return 0
	}

	swept := 0
	for _, u := range stuck {
		if err := s.uploads.MarkError(ctx, u.TenantID, u.UploadID, stuckMessage); err != nil {
			// ErrSuperseded: finished or replaced since the listing
			s.logger.Debug("upload not swept",
				zap.String("upload_id", u.UploadID),
				zap.Error(err))
			continue
		}
		swept++
		s.logger.Warn("ingestion timed out",
			zap.String("namespace", u.Namespace.String()),
			zap.String("upload_id", u.UploadID))
	}
	return swept
}
