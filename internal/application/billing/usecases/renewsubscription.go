package usecases

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/crateful-io/crateful/internal/application/billing"
	"github.com/crateful-io/crateful/internal/application/billing/billinggateway"
	"github.com/crateful-io/crateful/internal/domain/order"
	"github.com/crateful-io/crateful/internal/domain/subscription"
	"github.com/crateful-io/crateful/internal/shared/biztime"
	"github.com/crateful-io/crateful/internal/shared/logger"
)

// RenewalOutcome is the result of one subscription renewal cycle.
type RenewalOutcome string

const (
	OutcomeSuccess RenewalOutcome = "success"
	OutcomeSkipped RenewalOutcome = "skipped"
	OutcomeFailed  RenewalOutcome = "failed"
)

// ErrCycleAlreadyAttempted marks a cycle whose charge marker is already
// held, meaning a previous run charged (or may have charged) this cycle and
// crashed before persisting its outcome. Operators must reconcile manually.
var ErrCycleAlreadyAttempted = errors.New("charge already attempted for this cycle")

type RenewSubscriptionCommand struct {
	SubscriptionID uint
}

// RenewSubscriptionUseCase drives one subscription's renewal cycle:
// validate inventory, price, charge off-session, persist the order, advance
// the schedule, notify. The retry sweep re-invokes the same use case; a
// retry is another trigger, not a separate code path.
type RenewSubscriptionUseCase struct {
	subscriptionRepo subscription.SubscriptionRepository
	billingEventRepo subscription.BillingEventRepository
	orderRepo        order.OrderRepository
	validator        *billing.InventoryValidator
	gateway          billinggateway.BillingGateway
	notifier         NotificationDispatcher
	guard            ChargeGuard
	tx               TransactionRunner
	currency         string
	logger           logger.Interface
}

func NewRenewSubscriptionUseCase(
	subscriptionRepo subscription.SubscriptionRepository,
	billingEventRepo subscription.BillingEventRepository,
	orderRepo order.OrderRepository,
	validator *billing.InventoryValidator,
	gateway billinggateway.BillingGateway,
	notifier NotificationDispatcher,
	guard ChargeGuard,
	tx TransactionRunner,
	currency string,
	logger logger.Interface,
) *RenewSubscriptionUseCase {
	return &RenewSubscriptionUseCase{
		subscriptionRepo: subscriptionRepo,
		billingEventRepo: billingEventRepo,
		orderRepo:        orderRepo,
		validator:        validator,
		gateway:          gateway,
		notifier:         notifier,
		guard:            guard,
		tx:               tx,
		currency:         currency,
		logger:           logger,
	}
}

func (uc *RenewSubscriptionUseCase) Execute(ctx context.Context, cmd RenewSubscriptionCommand) (RenewalOutcome, error) {
	sub, err := uc.subscriptionRepo.GetByID(ctx, cmd.SubscriptionID)
	if err != nil {
		return "", fmt.Errorf("failed to get subscription: %w", err)
	}
	if sub == nil {
		return "", subscription.ErrSubscriptionNotFound
	}

	if !sub.Status().IsBillable() && !sub.Status().IsRetryable() {
		return "", fmt.Errorf("subscription %s is not billable (status %s)", sub.SID(), sub.Status())
	}

	result := uc.validator.Validate(ctx, sub.Items())

	if !result.HasAvailableItems() {
		return uc.postponeCycle(ctx, sub, result)
	}

	shippingCents := sub.DeliveryType().ShippingFeeCents()
	totalCents := result.SubtotalCents + shippingCents

	if !sub.HasPaymentReferences() {
		// Rejected before any gateway call: a configuration error, recorded
		// distinctly from a declined charge.
		gwErr := billinggateway.NewGatewayError(
			billinggateway.CodeMissingPaymentMethod,
			subscription.ErrMissingPaymentReferences.Error(),
		)
		return uc.applyPaymentFailure(ctx, sub, totalCents, gwErr)
	}

	cycleDate := biztime.CycleDate(sub.NextDeliveryDate())
	attempt := sub.FailedPaymentCount() + 1

	acquired, err := uc.guard.Acquire(ctx, sub.ID(), chargeMarker(cycleDate, attempt))
	if err != nil {
		// The deterministic idempotency key still protects the gateway call;
		// a degraded guard must not stop billing.
		uc.logger.Warnw("charge guard unavailable, relying on gateway idempotency",
			"subscription_sid", sub.SID(),
			"error", err,
		)
	} else if !acquired {
		uc.logger.Errorw("charge marker already held for cycle, skipping to avoid double charge",
			"subscription_sid", sub.SID(),
			"cycle_date", cycleDate,
			"attempt", attempt,
		)
		return OutcomeFailed, ErrCycleAlreadyAttempted
	}

	chargeResp, err := uc.gateway.ChargeOffSession(ctx, billinggateway.ChargeRequest{
		CustomerRef:      *sub.GatewayCustomerID(),
		PaymentMethodRef: *sub.GatewayPaymentMethodID(),
		AmountCents:      totalCents,
		Currency:         uc.currency,
		IdempotencyKey:   fmt.Sprintf("renewal_%s_%s_%d", sub.SID(), cycleDate, attempt),
		Metadata: map[string]string{
			"subscription_sid": sub.SID(),
			"cycle_date":       cycleDate,
			"user_id":          strconv.FormatUint(uint64(sub.UserID()), 10),
		},
	})
	if err != nil {
		gwErr := billinggateway.AsGatewayError(err)
		if gwErr == nil {
			gwErr = billinggateway.NewGatewayError(billinggateway.CodeGatewayUnavailable, err.Error())
		}
		// The charge definitively did not go through on a decline; clear the
		// marker so the retry sweep can bill this cycle again.
		if releaseErr := uc.guard.Release(ctx, sub.ID(), chargeMarker(cycleDate, attempt)); releaseErr != nil {
			uc.logger.Warnw("failed to release charge marker",
				"subscription_sid", sub.SID(),
				"error", releaseErr,
			)
		}
		return uc.applyPaymentFailure(ctx, sub, totalCents, gwErr)
	}

	return uc.completeCycle(ctx, sub, result, chargeResp, shippingCents)
}

// postponeCycle handles a cycle where nothing is purchasable: reschedule
// without charging, audit, notify. Failure bookkeeping stays untouched.
func (uc *RenewSubscriptionUseCase) postponeCycle(
	ctx context.Context,
	sub *subscription.Subscription,
	result *billing.ValidationResult,
) (RenewalOutcome, error) {
	if err := sub.PostponeDelivery(); err != nil {
		return "", fmt.Errorf("failed to postpone delivery: %w", err)
	}

	if err := uc.subscriptionRepo.Update(ctx, sub); err != nil {
		return "", fmt.Errorf("failed to update subscription: %w", err)
	}

	uc.appendEvent(ctx, sub, func() (*subscription.BillingEvent, error) {
		return subscription.NewSkippedCycleEvent(sub.ID(), sub.UserID(), result.Skipped)
	})

	uc.dispatch(sub, "renewal postponed", func(ctx context.Context) error {
		return uc.notifier.RenewalPostponed(ctx, RenewalPostponedNotice{
			UserID:           sub.UserID(),
			SubscriptionSID:  sub.SID(),
			SkippedItems:     result.Skipped,
			NextDeliveryDate: sub.NextDeliveryDate(),
		})
	})

	uc.logger.Infow("renewal cycle skipped, all items unavailable",
		"subscription_sid", sub.SID(),
		"skipped_count", len(result.Skipped),
		"next_delivery_date", sub.NextDeliveryDate(),
	)

	return OutcomeSkipped, nil
}

// completeCycle persists the successful charge: order snapshot plus
// subscription update in one transaction, then the audit event and the
// confirmation notification.
func (uc *RenewSubscriptionUseCase) completeCycle(
	ctx context.Context,
	sub *subscription.Subscription,
	result *billing.ValidationResult,
	charge *billinggateway.ChargeResponse,
	shippingCents int64,
) (RenewalOutcome, error) {
	now := biztime.NowUTC()

	lineItems := make([]order.LineItem, 0, len(result.Available))
	for _, item := range result.Available {
		lineItems = append(lineItems, order.LineItem{
			ProductID:      item.ProductID,
			Name:           item.Name,
			UnitPriceCents: item.UnitPriceCents,
			Quantity:       item.Quantity,
		})
	}

	ord, err := order.NewFromRenewal(
		sub.UserID(),
		sub.ID(),
		lineItems,
		result.SubtotalCents,
		shippingCents,
		sub.ShippingAddress(),
		sub.DeliveryType().String(),
		sub.DeliveryNotes(),
		order.PaymentRecord{
			TransactionID: charge.TransactionID,
			AmountCents:   charge.AmountCents,
			ChargedAt:     now,
		},
	)
	if err != nil {
		// Money moved but the snapshot cannot be built. Surface loudly; the
		// transaction id is the reconciliation handle.
		uc.logger.Errorw("charged but failed to build order snapshot",
			"subscription_sid", sub.SID(),
			"transaction_id", charge.TransactionID,
			"error", err,
		)
		return "", fmt.Errorf("failed to build order for charged renewal: %w", err)
	}

	if err := sub.CompleteRenewal(now); err != nil {
		return "", fmt.Errorf("failed to complete renewal: %w", err)
	}

	err = uc.tx.RunInTransaction(ctx, func(txCtx context.Context) error {
		if err := uc.orderRepo.Create(txCtx, ord); err != nil {
			return fmt.Errorf("failed to create order: %w", err)
		}
		if err := uc.subscriptionRepo.Update(txCtx, sub); err != nil {
			return fmt.Errorf("failed to update subscription: %w", err)
		}
		return nil
	})
	if err != nil {
		uc.logger.Errorw("charged but failed to persist renewal",
			"subscription_sid", sub.SID(),
			"transaction_id", charge.TransactionID,
			"error", err,
		)
		return "", err
	}

	uc.appendEvent(ctx, sub, func() (*subscription.BillingEvent, error) {
		return subscription.NewRenewalSuccessEvent(
			sub.ID(), sub.UserID(), charge.AmountCents, charge.TransactionID, ord.ID(), result.Skipped)
	})

	uc.dispatch(sub, "renewal succeeded", func(ctx context.Context) error {
		return uc.notifier.RenewalSucceeded(ctx, RenewalSuccessNotice{
			UserID:           sub.UserID(),
			SubscriptionSID:  sub.SID(),
			OrderOID:         ord.OID(),
			AmountCents:      charge.AmountCents,
			ChargedItems:     result.Available,
			SkippedItems:     result.Skipped,
			NextDeliveryDate: sub.NextDeliveryDate(),
		})
	})

	uc.logger.Infow("subscription renewed",
		"subscription_sid", sub.SID(),
		"order_oid", ord.OID(),
		"amount_cents", charge.AmountCents,
		"transaction_id", charge.TransactionID,
		"skipped_count", len(result.Skipped),
		"next_delivery_date", sub.NextDeliveryDate(),
	)

	return OutcomeSuccess, nil
}

// applyPaymentFailure runs the retry policy for one failed charge, persists
// the bookkeeping, appends the audit event, and notifies the user. The
// delivery date is not rescheduled: it stays put until a charge succeeds.
func (uc *RenewSubscriptionUseCase) applyPaymentFailure(
	ctx context.Context,
	sub *subscription.Subscription,
	amountCents int64,
	gwErr *billinggateway.GatewayError,
) (RenewalOutcome, error) {
	now := biztime.NowUTC()
	count := sub.RecordPaymentFailure(now, gwErr.Message)

	if err := uc.subscriptionRepo.Update(ctx, sub); err != nil {
		return "", fmt.Errorf("failed to persist payment failure: %w", err)
	}

	expired := count >= subscription.MaxPaymentFailures

	uc.appendEvent(ctx, sub, func() (*subscription.BillingEvent, error) {
		if expired {
			return subscription.NewSubscriptionExpiredEvent(sub.ID(), sub.UserID(), gwErr.Code, gwErr.Message)
		}
		return subscription.NewRenewalFailedEvent(sub.ID(), sub.UserID(), amountCents, gwErr.Code, gwErr.Message)
	})

	if expired {
		uc.dispatch(sub, "subscription expired", func(ctx context.Context) error {
			return uc.notifier.SubscriptionExpired(ctx, SubscriptionExpiredNotice{
				UserID:          sub.UserID(),
				SubscriptionSID: sub.SID(),
				ErrorMessage:    gwErr.Message,
			})
		})
	} else {
		uc.dispatch(sub, "payment failed", func(ctx context.Context) error {
			return uc.notifier.PaymentFailed(ctx, PaymentFailedNotice{
				UserID:                sub.UserID(),
				SubscriptionSID:       sub.SID(),
				AttemptNumber:         count,
				ErrorMessage:          gwErr.Message,
				NextRetryDate:         sub.NextRetryDate(),
				PaymentMethodRequired: gwErr.IsConfigurationError(),
			})
		})
	}

	uc.logger.Warnw("renewal charge failed",
		"subscription_sid", sub.SID(),
		"failed_payment_count", count,
		"error_code", gwErr.Code,
		"error_message", gwErr.Message,
		"status", sub.Status(),
	)

	return OutcomeFailed, nil
}

// appendEvent writes the audit record for this attempt. The audit trail is
// best-effort relative to the renewal itself: a write failure is logged but
// does not change the outcome.
func (uc *RenewSubscriptionUseCase) appendEvent(
	ctx context.Context,
	sub *subscription.Subscription,
	build func() (*subscription.BillingEvent, error),
) {
	event, err := build()
	if err != nil {
		uc.logger.Errorw("failed to build billing event",
			"subscription_sid", sub.SID(),
			"error", err,
		)
		return
	}
	if err := uc.billingEventRepo.Create(ctx, event); err != nil {
		uc.logger.Errorw("failed to append billing event",
			"subscription_sid", sub.SID(),
			"event_type", event.EventType(),
			"error", err,
		)
	}
}

// dispatch sends a notification without letting a send failure fail the
// renewal.
func (uc *RenewSubscriptionUseCase) dispatch(sub *subscription.Subscription, kind string, send func(ctx context.Context) error) {
	if uc.notifier == nil {
		return
	}
	if err := send(context.Background()); err != nil {
		uc.logger.Warnw("failed to dispatch notification",
			"subscription_sid", sub.SID(),
			"notification", kind,
			"error", err,
		)
	}
}

func chargeMarker(cycleDate string, attempt int) string {
	return fmt.Sprintf("%s_%d", cycleDate, attempt)
}
