package usecases

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/crateful-io/crateful/internal/application/billing/billinggateway"
	"github.com/crateful-io/crateful/internal/domain/order"
	"github.com/crateful-io/crateful/internal/domain/subscription"
)

type mockSubscriptionRepository struct {
	mock.Mock
}

func (m *mockSubscriptionRepository) Create(ctx context.Context, sub *subscription.Subscription) error {
	args := m.Called(ctx, sub)
	if args.Error(0) == nil && sub.ID() == 0 {
		_ = sub.SetID(1)
	}
	return args.Error(0)
}

func (m *mockSubscriptionRepository) GetByID(ctx context.Context, id uint) (*subscription.Subscription, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*subscription.Subscription), args.Error(1)
}

func (m *mockSubscriptionRepository) GetBySID(ctx context.Context, sid string) (*subscription.Subscription, error) {
	args := m.Called(ctx, sid)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*subscription.Subscription), args.Error(1)
}

func (m *mockSubscriptionRepository) GetByUserID(ctx context.Context, userID uint) ([]*subscription.Subscription, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*subscription.Subscription), args.Error(1)
}

func (m *mockSubscriptionRepository) Update(ctx context.Context, sub *subscription.Subscription) error {
	args := m.Called(ctx, sub)
	return args.Error(0)
}

func (m *mockSubscriptionRepository) Delete(ctx context.Context, id uint) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *mockSubscriptionRepository) FindDueForRenewal(ctx context.Context, now time.Time) ([]*subscription.Subscription, error) {
	args := m.Called(ctx, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*subscription.Subscription), args.Error(1)
}

func (m *mockSubscriptionRepository) FindDueForRetry(ctx context.Context, now time.Time) ([]*subscription.Subscription, error) {
	args := m.Called(ctx, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*subscription.Subscription), args.Error(1)
}

func (m *mockSubscriptionRepository) CountByStatus(ctx context.Context, status string) (int64, error) {
	args := m.Called(ctx, status)
	return args.Get(0).(int64), args.Error(1)
}

type mockBillingEventRepository struct {
	mock.Mock
}

func (m *mockBillingEventRepository) Create(ctx context.Context, event *subscription.BillingEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func (m *mockBillingEventRepository) ListBySubscriptionID(ctx context.Context, subscriptionID uint, limit int) ([]*subscription.BillingEvent, error) {
	args := m.Called(ctx, subscriptionID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*subscription.BillingEvent), args.Error(1)
}

type mockOrderRepository struct {
	mock.Mock
}

func (m *mockOrderRepository) Create(ctx context.Context, o *order.Order) error {
	args := m.Called(ctx, o)
	if args.Error(0) == nil && o.ID() == 0 {
		_ = o.SetID(1)
	}
	return args.Error(0)
}

func (m *mockOrderRepository) GetByID(ctx context.Context, id uint) (*order.Order, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*order.Order), args.Error(1)
}

func (m *mockOrderRepository) GetByOID(ctx context.Context, oid string) (*order.Order, error) {
	args := m.Called(ctx, oid)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*order.Order), args.Error(1)
}

func (m *mockOrderRepository) GetBySubscriptionID(ctx context.Context, subscriptionID uint) ([]*order.Order, error) {
	args := m.Called(ctx, subscriptionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*order.Order), args.Error(1)
}

type mockBillingGateway struct {
	mock.Mock
}

func (m *mockBillingGateway) PreparePaymentMethod(ctx context.Context, req billinggateway.PrepareRequest) (*billinggateway.PrepareResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billinggateway.PrepareResponse), args.Error(1)
}

func (m *mockBillingGateway) ChargeOffSession(ctx context.Context, req billinggateway.ChargeRequest) (*billinggateway.ChargeResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billinggateway.ChargeResponse), args.Error(1)
}

type mockNotificationDispatcher struct {
	mock.Mock
}

func (m *mockNotificationDispatcher) RenewalSucceeded(ctx context.Context, notice RenewalSuccessNotice) error {
	args := m.Called(ctx, notice)
	return args.Error(0)
}

func (m *mockNotificationDispatcher) RenewalPostponed(ctx context.Context, notice RenewalPostponedNotice) error {
	args := m.Called(ctx, notice)
	return args.Error(0)
}

func (m *mockNotificationDispatcher) PaymentFailed(ctx context.Context, notice PaymentFailedNotice) error {
	args := m.Called(ctx, notice)
	return args.Error(0)
}

func (m *mockNotificationDispatcher) SubscriptionExpired(ctx context.Context, notice SubscriptionExpiredNotice) error {
	args := m.Called(ctx, notice)
	return args.Error(0)
}

type mockChargeGuard struct {
	mock.Mock
}

func (m *mockChargeGuard) Acquire(ctx context.Context, subscriptionID uint, marker string) (bool, error) {
	args := m.Called(ctx, subscriptionID, marker)
	return args.Bool(0), args.Error(1)
}

func (m *mockChargeGuard) Release(ctx context.Context, subscriptionID uint, marker string) error {
	args := m.Called(ctx, subscriptionID, marker)
	return args.Error(0)
}

type mockUserDirectory struct {
	mock.Mock
}

func (m *mockUserDirectory) EmailByUserID(ctx context.Context, userID uint) (string, error) {
	args := m.Called(ctx, userID)
	return args.String(0), args.Error(1)
}

// passthroughTxRunner runs the callback directly, with no transaction
// semantics. Good enough for use case tests: the repositories are mocked.
type passthroughTxRunner struct{}

func (passthroughTxRunner) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}
