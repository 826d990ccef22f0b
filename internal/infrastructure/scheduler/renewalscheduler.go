package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/crateful-io/crateful/internal/application/billing/usecases"
	"github.com/crateful-io/crateful/internal/shared/goroutine"
	"github.com/crateful-io/crateful/internal/shared/logger"
)

// RenewalScheduler runs the daily renewal sweep: every active subscription
// whose delivery date has arrived gets one billing cycle.
type RenewalScheduler struct {
	processDueRenewalsUC *usecases.ProcessDueRenewalsUseCase
	logger               logger.Interface
	stopChan             chan struct{}
	stopOnce             sync.Once
	wg                   sync.WaitGroup
	interval             time.Duration
}

// NewRenewalScheduler creates a new RenewalScheduler
func NewRenewalScheduler(
	processDueRenewalsUC *usecases.ProcessDueRenewalsUseCase,
	logger logger.Interface,
	interval time.Duration,
) *RenewalScheduler {
	if interval <= 0 {
		interval = 24 * time.Hour
	}
	return &RenewalScheduler{
		processDueRenewalsUC: processDueRenewalsUC,
		logger:               logger,
		stopChan:             make(chan struct{}),
		interval:             interval,
	}
}

// Start starts the scheduler
func (s *RenewalScheduler) Start(ctx context.Context) {
	s.logger.Infow("starting renewal scheduler", "interval", s.interval)

	s.wg.Add(1)
	goroutine.SafeGo(s.logger, "renewal-scheduler", func() {
		defer s.wg.Done()
		s.runLoop(ctx)
	})
}

// Stop stops the scheduler gracefully
func (s *RenewalScheduler) Stop() {
	s.stopOnce.Do(func() {
		s.logger.Infow("stopping renewal scheduler")
		close(s.stopChan)
		s.wg.Wait()
		s.logger.Infow("renewal scheduler stopped")
	})
}

func (s *RenewalScheduler) runLoop(ctx context.Context) {
	// Run immediately on startup to pick up deliveries that came due while
	// the worker was down
	s.processDueRenewals(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Infow("renewal scheduler stopped due to context cancellation")
			return
		case <-s.stopChan:
			return
		case <-ticker.C:
			s.processDueRenewals(ctx)
		}
	}
}

func (s *RenewalScheduler) processDueRenewals(ctx context.Context) {
	s.logger.Debugw("renewal sweep task started")

	startTime := time.Now()

	summary, err := s.processDueRenewalsUC.Execute(ctx)
	if err != nil {
		s.logger.Errorw("renewal sweep failed",
			"error", err,
			"duration", time.Since(startTime),
		)
		return
	}

	if summary.Selected > 0 {
		s.logger.Infow("renewal sweep completed",
			"selected", summary.Selected,
			"succeeded", summary.Succeeded,
			"skipped", summary.Skipped,
			"failed", summary.Failed,
			"errors", summary.Errors,
			"duration", time.Since(startTime),
		)
	} else {
		s.logger.Debugw("no subscriptions due for renewal",
			"duration", time.Since(startTime),
		)
	}
}
