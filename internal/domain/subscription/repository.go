package subscription

import (
	"context"
	"time"
)

type SubscriptionRepository interface {
	Create(ctx context.Context, sub *Subscription) error
	GetByID(ctx context.Context, id uint) (*Subscription, error)
	GetBySID(ctx context.Context, sid string) (*Subscription, error)
	GetByUserID(ctx context.Context, userID uint) ([]*Subscription, error)
	Update(ctx context.Context, sub *Subscription) error
	Delete(ctx context.Context, id uint) error

	// FindDueForRenewal returns active subscriptions whose nextDeliveryDate
	// has arrived. The result is a point-in-time selection: subscriptions
	// rescheduled mid-sweep are not re-selected.
	FindDueForRenewal(ctx context.Context, now time.Time) ([]*Subscription, error)

	// FindDueForRetry returns payment_failed subscriptions whose retry date
	// has arrived and which have failures left to consume.
	FindDueForRetry(ctx context.Context, now time.Time) ([]*Subscription, error)

	CountByStatus(ctx context.Context, status string) (int64, error)
}

// BillingEventRepository persists the append-only renewal audit trail.
type BillingEventRepository interface {
	Create(ctx context.Context, event *BillingEvent) error
	ListBySubscriptionID(ctx context.Context, subscriptionID uint, limit int) ([]*BillingEvent, error)
}
