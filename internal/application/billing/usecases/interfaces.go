package usecases

import (
	"context"
	"time"

	"github.com/crateful-io/crateful/internal/application/billing"
	"github.com/crateful-io/crateful/internal/domain/subscription"
)

// RenewalSuccessNotice describes a confirmed renewal, listing both charged
// and skipped items.
type RenewalSuccessNotice struct {
	UserID           uint
	SubscriptionSID  string
	OrderOID         string
	AmountCents      int64
	ChargedItems     []billing.AvailableItem
	SkippedItems     []subscription.SkippedItem
	NextDeliveryDate time.Time
}

// RenewalPostponedNotice describes a fully-skipped cycle.
type RenewalPostponedNotice struct {
	UserID           uint
	SubscriptionSID  string
	SkippedItems     []subscription.SkippedItem
	NextDeliveryDate time.Time
}

// PaymentFailedNotice describes one failed charge attempt.
type PaymentFailedNotice struct {
	UserID          uint
	SubscriptionSID string
	AttemptNumber   int
	ErrorMessage    string
	NextRetryDate   *time.Time

	// PaymentMethodRequired is set when the failure is a configuration
	// error: the user must re-link a payment method for retries to matter.
	PaymentMethodRequired bool
}

// SubscriptionExpiredNotice describes the terminal third failure.
type SubscriptionExpiredNotice struct {
	UserID          uint
	SubscriptionSID string
	ErrorMessage    string
}

// NotificationDispatcher sends renewal outcome messages to users. Dispatch
// is fire-and-forget from the orchestrator's perspective: a send failure is
// logged and never fails the renewal.
type NotificationDispatcher interface {
	RenewalSucceeded(ctx context.Context, notice RenewalSuccessNotice) error
	RenewalPostponed(ctx context.Context, notice RenewalPostponedNotice) error
	PaymentFailed(ctx context.Context, notice PaymentFailedNotice) error
	SubscriptionExpired(ctx context.Context, notice SubscriptionExpiredNotice) error
}

// ChargeGuard marks a renewal attempt as in flight before the gateway call
// so a crashed sweep cannot double-charge the same attempt on its next run.
// The marker identifies one (cycle, attempt) pair.
type ChargeGuard interface {
	// Acquire returns false when a charge with this marker was already
	// attempted for the subscription.
	Acquire(ctx context.Context, subscriptionID uint, marker string) (bool, error)

	// Release clears the marker after a failed attempt that consumed no
	// money, so the retry sweep can try the same cycle again.
	Release(ctx context.Context, subscriptionID uint, marker string) error
}

// TransactionRunner wraps the order-creation + subscription-update pair in
// one atomic transaction.
type TransactionRunner interface {
	RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// UserDirectory resolves user contact details for gateway registration and
// notifications.
type UserDirectory interface {
	EmailByUserID(ctx context.Context, userID uint) (string, error)
}
