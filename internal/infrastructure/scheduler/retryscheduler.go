package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/crateful-io/crateful/internal/application/billing/usecases"
	"github.com/crateful-io/crateful/internal/shared/goroutine"
	"github.com/crateful-io/crateful/internal/shared/logger"
)

// RetryScheduler runs the payment retry sweep. It starts after a
// configurable offset so the daily retry pass lands a few hours after the
// main renewal sweep instead of contending with it.
type RetryScheduler struct {
	processPaymentRetriesUC *usecases.ProcessPaymentRetriesUseCase
	logger                  logger.Interface
	stopChan                chan struct{}
	stopOnce                sync.Once
	wg                      sync.WaitGroup
	interval                time.Duration
	startOffset             time.Duration
}

// NewRetryScheduler creates a new RetryScheduler
func NewRetryScheduler(
	processPaymentRetriesUC *usecases.ProcessPaymentRetriesUseCase,
	logger logger.Interface,
	interval time.Duration,
	startOffset time.Duration,
) *RetryScheduler {
	if interval <= 0 {
		interval = 24 * time.Hour
	}
	return &RetryScheduler{
		processPaymentRetriesUC: processPaymentRetriesUC,
		logger:                  logger,
		stopChan:                make(chan struct{}),
		interval:                interval,
		startOffset:             startOffset,
	}
}

// Start starts the scheduler
func (s *RetryScheduler) Start(ctx context.Context) {
	s.logger.Infow("starting payment retry scheduler",
		"interval", s.interval,
		"start_offset", s.startOffset,
	)

	s.wg.Add(1)
	goroutine.SafeGo(s.logger, "retry-scheduler", func() {
		defer s.wg.Done()
		s.runLoop(ctx)
	})
}

// Stop stops the scheduler gracefully
func (s *RetryScheduler) Stop() {
	s.stopOnce.Do(func() {
		s.logger.Infow("stopping payment retry scheduler")
		close(s.stopChan)
		s.wg.Wait()
		s.logger.Infow("payment retry scheduler stopped")
	})
}

func (s *RetryScheduler) runLoop(ctx context.Context) {
	if s.startOffset > 0 {
		select {
		case <-ctx.Done():
			return
		case <-s.stopChan:
			return
		case <-time.After(s.startOffset):
		}
	}

	s.processPaymentRetries(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Infow("payment retry scheduler stopped due to context cancellation")
			return
		case <-s.stopChan:
			return
		case <-ticker.C:
			s.processPaymentRetries(ctx)
		}
	}
}

func (s *RetryScheduler) processPaymentRetries(ctx context.Context) {
	s.logger.Debugw("payment retry sweep task started")

	startTime := time.Now()

	summary, err := s.processPaymentRetriesUC.Execute(ctx)
	if err != nil {
		s.logger.Errorw("payment retry sweep failed",
			"error", err,
			"duration", time.Since(startTime),
		)
		return
	}

	if summary.Selected > 0 {
		s.logger.Infow("payment retry sweep completed",
			"selected", summary.Selected,
			"succeeded", summary.Succeeded,
			"skipped", summary.Skipped,
			"failed", summary.Failed,
			"errors", summary.Errors,
			"duration", time.Since(startTime),
		)
	} else {
		s.logger.Debugw("no payments due for retry",
			"duration", time.Since(startTime),
		)
	}
}
