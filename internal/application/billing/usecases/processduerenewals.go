package usecases

import (
	"context"
	"fmt"
	"runtime/debug"

	"github.com/crateful-io/crateful/internal/domain/subscription"
	"github.com/crateful-io/crateful/internal/shared/biztime"
	"github.com/crateful-io/crateful/internal/shared/logger"
)

// SweepSummary aggregates the outcome of one batch pass.
type SweepSummary struct {
	Selected  int
	Succeeded int
	Skipped   int
	Failed    int
	Errors    int
}

// ProcessDueRenewalsUseCase selects every subscription whose delivery date
// has arrived and runs the renewal cycle on each. Subscriptions are handled
// independently: one failing or panicking never stops the batch.
type ProcessDueRenewalsUseCase struct {
	subscriptionRepo subscription.SubscriptionRepository
	renewUC          *RenewSubscriptionUseCase
	logger           logger.Interface
}

func NewProcessDueRenewalsUseCase(
	subscriptionRepo subscription.SubscriptionRepository,
	renewUC *RenewSubscriptionUseCase,
	logger logger.Interface,
) *ProcessDueRenewalsUseCase {
	return &ProcessDueRenewalsUseCase{
		subscriptionRepo: subscriptionRepo,
		renewUC:          renewUC,
		logger:           logger,
	}
}

func (uc *ProcessDueRenewalsUseCase) Execute(ctx context.Context) (*SweepSummary, error) {
	now := biztime.NowUTC()

	due, err := uc.subscriptionRepo.FindDueForRenewal(ctx, now)
	if err != nil {
		return nil, fmt.Errorf("failed to find due subscriptions: %w", err)
	}

	summary := &SweepSummary{Selected: len(due)}
	if len(due) == 0 {
		return summary, nil
	}

	uc.logger.Infow("renewal sweep started", "due_count", len(due))

	for _, sub := range due {
		uc.renewOne(ctx, sub, summary)
	}

	uc.logger.Infow("renewal sweep finished",
		"selected", summary.Selected,
		"succeeded", summary.Succeeded,
		"skipped", summary.Skipped,
		"failed", summary.Failed,
		"errors", summary.Errors,
	)

	return summary, nil
}

func (uc *ProcessDueRenewalsUseCase) renewOne(ctx context.Context, sub *subscription.Subscription, summary *SweepSummary) {
	defer func() {
		if r := recover(); r != nil {
			summary.Errors++
			uc.logger.Errorw("renewal panicked",
				"subscription_sid", sub.SID(),
				"panic", fmt.Sprintf("%v", r),
				"stack", string(debug.Stack()),
			)
		}
	}()

	outcome, err := uc.renewUC.Execute(ctx, RenewSubscriptionCommand{SubscriptionID: sub.ID()})
	if err != nil && outcome == "" {
		summary.Errors++
		uc.logger.Errorw("renewal errored",
			"subscription_sid", sub.SID(),
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
