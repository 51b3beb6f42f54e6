package worker

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	domainErrors "github.com/polkiloo/loyaltytiers/internal/domain/errors"
)

// Finalizer exposes the subset of application functionality required by the sweeper.
type Finalizer interface {
	ExpiredMembers(ctx context.Context, afterID int64, limit int) ([]int64, error)
	FinalizeWindow(ctx context.Context, userID int64) (bool, error)
}

// WindowSweeper periodically finalizes accrual windows that ended without a
// later purchase or status read, so promotions land on time.
type WindowSweeper struct {
	facade    Finalizer
	interval  time.Duration
	batchSize int
	workers   int
	logger    *slog.Logger

	wg     sync.WaitGroup
	cancel context.CancelFunc
	mu     sync.Mutex
}

// NewWindowSweeper constructs the sweeper worker pool.
func NewWindowSweeper(facade Finalizer, interval time.Duration, batchSize, workers int, logger *slog.Logger) *WindowSweeper {
	if workers <= 0 {
		workers = 1
	}
	if batchSize <= 0 {
		batchSize = 1
	}
	if interval <= 0 {
		interval = time.Minute
	}
	return &WindowSweeper{
		facade:    facade,
		interval:  interval,
		batchSize: batchSize,
		workers:   workers,
		logger:    logger,
	}
}

// Start launches background sweeping. A second call is a no-op until Stop.
func (s *WindowSweeper) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return
	}

	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.wg.Add(1)
	go s.dispatch(runCtx)
}

// Stop cancels the current pass and waits for workers to finish.
func (s *WindowSweeper) Stop() {
	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.mu.Unlock()

	s.wg.Wait()
}

func (s *WindowSweeper) dispatch(ctx context.Context) {
	defer s.wg.Done()
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.Sweep(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}

// Sweep walks expired windows in user id order, batch by batch, until a short
// batch, and returns the number of finalized records. Ids that fail are left
// behind the cursor and retried on the next pass.
func (s *WindowSweeper) Sweep(ctx context.Context) int {
	total := 0
	var cursor int64
	for ctx.Err() == nil {
		ids, err := s.facade.ExpiredMembers(ctx, cursor, s.batchSize)
		if err != nil {
			if ctx.Err() == nil {
				s.logger.Error("list expired memberships failed", slog.String("error", err.Error()))
			}
			break
		}
		if len(ids) == 0 {
			break
		}

		total += s.finalizeBatch(ctx, ids)
		if len(ids) < s.batchSize {
			break
		}
		next := slices.Max(ids)
		if next <= cursor {
			break
		}
		cursor = next
	}
	if total > 0 {
		s.logger.Info("membership windows finalized", slog.Int("count", total))
	}
	return total
}

func (s *WindowSweeper) finalizeBatch(ctx context.Context, ids []int64) int {
	jobs := make(chan int64)
	var finalized atomic.Int64
	var wg sync.WaitGroup

	workers := s.workers
	if workers > len(ids) {
		workers = len(ids)
	}
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for userID := range jobs {
				if s.finalize(ctx, userID) {
					finalized.Add(1)
				}
			}
		}()
	}

feed:
	for _, id := range ids {
		select {
		case <-ctx.Done():
			break feed
		case jobs <- id:
		}
	}
	close(jobs)
	wg.Wait()
	return int(finalized.Load())
}

func (s *WindowSweeper) finalize(ctx context.Context, userID int64) bool {
	changed, err := s.facade.FinalizeWindow(ctx, userID)
	switch {
	case err == nil:
		return changed
	case ctx.Err() != nil:
	case errors.Is(err, domainErrors.ErrNotFound):
		s.logger.Debug("expired membership vanished", slog.Int64("user_id", userID))
	case errors.Is(err, domainErrors.ErrConflict):
		s.logger.Warn("window finalize contended", slog.Int64("user_id", userID), slog.String("error", err.Error()))
	default:
		s.logger.Error("window finalize failed", slog.Int64("user_id", userID), slog.String("error", err.Error()))
	}
	return false
}
