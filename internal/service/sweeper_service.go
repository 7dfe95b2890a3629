package service

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/meridian-motors/meridian-backoffice/internal/lock"
	"github.com/meridian-motors/meridian-backoffice/internal/metrics"
	"github.com/meridian-motors/meridian-backoffice/internal/repository"
	"github.com/meridian-motors/meridian-backoffice/internal/storage"
)

// UploadSweeper reaps attachment rows whose presigned upload was never
// confirmed. Pre-created PENDING rows are an accepted eventual-consistency
// gap of the presigned flow; the sweeper bounds it.
type UploadSweeper struct {
	attachmentRepo repository.AttachmentRepository
	storage        storage.Backend
	locker         lock.Locker
	metrics        *metrics.Metrics
	logger         zerolog.Logger
	config         SweeperConfig

	// Control
	mu       sync.Mutex
	running  bool
	stopChan chan struct{}
	doneChan chan struct{}
}

// SweeperConfig contains sweeper configuration.
type SweeperConfig struct {
	// Enabled determines if the sweeper runs automatically.
	Enabled bool

	// Interval is how often to sweep.
	Interval time.Duration

	// GracePeriod is how long a pending row may exist before it is reaped.
	// Must comfortably exceed the presign expiry.
	GracePeriod time.Duration

	// BatchSize is the maximum number of rows to process per run.
	BatchSize int
}

// DefaultSweeperConfig returns sensible defaults.
func DefaultSweeperConfig() SweeperConfig {
	return SweeperConfig{
		Enabled:     true,
		Interval:    1 * time.Hour,
		GracePeriod: 24 * time.Hour,
		BatchSize:   500,
	}
}

// NewUploadSweeper creates a new upload sweeper.
func NewUploadSweeper(
	attachmentRepo repository.AttachmentRepository,
	backend storage.Backend,
	locker lock.Locker,
	m *metrics.Metrics,
	logger zerolog.Logger,
	config SweeperConfig,
) *UploadSweeper {
	return &UploadSweeper{
		attachmentRepo: attachmentRepo,
		storage:        backend,
		locker:         locker,
		metrics:        m,
		logger:         logger.With().Str("service", "sweeper").Logger(),
		config:         config,
		stopChan:       make(chan struct{}),
		doneChan:       make(chan struct{}),
	}
}

// Start begins the sweep scheduler.
func (sw *UploadSweeper) Start() {
	sw.mu.Lock()
	if sw.running {
		sw.mu.Unlock()
		return
	}
	sw.running = true
	sw.mu.Unlock()

	sw.logger.Info().
		Dur("interval", sw.config.Interval).
		Dur("grace_period", sw.config.GracePeriod).
		Int("batch_size", sw.config.BatchSize).
		Msg("Starting upload sweeper")

	go sw.runLoop()
}

// Stop stops the sweep scheduler.
func (sw *UploadSweeper) Stop() {
	sw.mu.Lock()
	if !sw.running {
		sw.mu.Unlock()
		return
	}
	sw.running = false
	sw.mu.Unlock()

	close(sw.stopChan)
	<-sw.doneChan

	sw.logger.Info().Msg("Upload sweeper stopped")
}

// runLoop is the main sweep loop.
func (sw *UploadSweeper) runLoop() {
	defer close(sw.doneChan)

	// Run immediately on start
	sw.RunOnce(context.Background())

	ticker := time.NewTicker(sw.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			sw.RunOnce(context.Background())
		case <-sw.stopChan:
			return
		}
	}
}

// SweepResult contains the result of one sweep run.
type SweepResult struct {
	// RowsReaped is the number of stale pending rows removed.
	RowsReaped int

	// Errors is the number of errors encountered.
	Errors int

	// Duration is how long the run took.
	Duration time.Duration
}

// RunOnce executes a single sweep. Can be called manually or by the scheduler.
func (sw *UploadSweeper) RunOnce(ctx context.Context) SweepResult {
	start := time.Now()
	result := SweepResult{}

	// One node sweeps at a time.
	lockKey := lock.Keys.UploadSweep()
	lockTTL := sw.config.Interval / 2
	if lockTTL < 5*time.Minute {
		lockTTL = 5 * time.Minute
	}

	acquired, err := sw.locker.Acquire(ctx, lockKey, lockTTL)
	if err != nil {
		sw.logger.Error().Err(err).Msg("Failed to acquire sweep lock")
		result.Errors++
		result.Duration = time.Since(start)
		return result
	}
	if !acquired {
		sw.logger.Debug().Msg("Sweep lock held by another process, skipping run")
		result.Duration = time.Since(start)
		return result
	}
	defer func() {
		if _, err := sw.locker.Release(ctx, lockKey); err != nil {
			sw.logger.Error().Err(err).Msg("Failed to release sweep lock")
		}
	}()

	cutoff := time.Now().UTC().Add(-sw.config.GracePeriod)
	stale, err := sw.attachmentRepo.ListStalePending(ctx, cutoff, sw.config.BatchSize)
	if err != nil {
		sw.logger.Error().Err(err).Msg("Failed to list stale pending uploads")
		result.Errors++
		result.Duration = time.Since(start)
		return result
	}

	if len(stale) == 0 {
		sw.logger.Debug().Msg("No stale pending uploads found")
		result.Duration = time.Since(start)
		return result
	}

	sw.logger.Info().Int("count", len(stale)).Msg("Reaping stale pending uploads")

	for _, attachment := range stale {
		if err := sw.attachmentRepo.Delete(ctx, attachment.ID); err != nil {
			sw.logger.Warn().Err(err).Int64("attachment_id", attachment.ID).Msg("failed to delete stale row")
			result.Errors++
			continue
		}

		// The caller may have uploaded without confirming; delete the blob
		// too so the bucket doesn't accumulate unreferenced objects.
		if err := sw.storage.Delete(ctx, attachment.StorageKey); err != nil {
			sw.logger.Warn().
				Err(err).
				Str("key", attachment.StorageKey).
				Msg("failed to delete blob of stale upload")
			result.Errors++
		}

		result.RowsReaped++
		if sw.metrics != nil {
			sw.metrics.UploadsSweptTotal.Inc()
		}
	}

	result.Duration = time.Since(start)

	sw.logger.Info().
		Int("reaped", result.RowsReaped).
		Int("errors", result.Errors).
		Dur("duration", result.Duration).
		Msg("Sweep run complete")

	return result
}
