package usecases

import (
	"context"
	"fmt"
	"runtime/debug"

	"github.com/crateful-io/crateful/internal/domain/subscription"
	"github.com/crateful-io/crateful/internal/shared/biztime"
	"github.com/crateful-io/crateful/internal/shared/logger"
)

// ProcessPaymentRetriesUseCase selects payment_failed subscriptions whose
// retry date has arrived and re-runs the full renewal cycle on each. A
// retry revalidates inventory and reprices at current catalog prices; it is
// not a blind replay of the failed charge.
type ProcessPaymentRetriesUseCase struct {
	subscriptionRepo subscription.SubscriptionRepository
	renewUC          *RenewSubscriptionUseCase
	logger           logger.Interface
}

func NewProcessPaymentRetriesUseCase(
	subscriptionRepo subscription.SubscriptionRepository,
	renewUC *RenewSubscriptionUseCase,
	logger logger.Interface,
) *ProcessPaymentRetriesUseCase {
	return &ProcessPaymentRetriesUseCase{
		subscriptionRepo: subscriptionRepo,
		renewUC:          renewUC,
		logger:           logger,
	}
}

func (uc *ProcessPaymentRetriesUseCase) Execute(ctx context.Context) (*SweepSummary, error) {
	now := biztime.NowUTC()

	due, err := uc.subscriptionRepo.FindDueForRetry(ctx, now)
	if err != nil {
		return nil, fmt.Errorf("failed to find retryable subscriptions: %w", err)
	}

	summary := &SweepSummary{Selected: len(due)}
	if len(due) == 0 {
		return summary, nil
	}

	uc.logger.Infow("payment retry sweep started", "due_count", len(due))

	for _, sub := range due {
		uc.retryOne(ctx, sub, summary)
	}

	uc.logger.Infow("payment retry sweep finished",
		"selected", summary.Selected,
		"succeeded", summary.Succeeded,
		"skipped", summary.Skipped,
		"failed", summary.Failed,
		"errors", summary.Errors,
	)

	return summary, nil
}

func (uc *ProcessPaymentRetriesUseCase) retryOne(ctx context.Context, sub *subscription.Subscription, summary *SweepSummary) {
	defer func() {
		if r := recover(); r != nil {
			summary.Errors++
			uc.logger.Errorw("payment retry panicked",
				"subscription_sid", sub.SID(),
				"panic", fmt.Sprintf("%v", r),
				"stack", string(debug.Stack()),
			)
		}
	}()

	outcome, err := uc.renewUC.Execute(ctx, RenewSubscriptionCommand{SubscriptionID: sub.ID()})
	if err != nil && outcome == "" {
		summary.Errors++
		uc.logger.Errorw("payment retry errored",
			"subscription_sid", sub.SID(),
			"attempt", sub.FailedPaymentCount()+1,
			"error", err,
		)
		return
	}

	switch outcome {
	case OutcomeSuccess:
		summary.Succeeded++
	case OutcomeSkipped:
		summary.Skipped++
	case OutcomeFailed:
		summary.Failed++
	}
}
