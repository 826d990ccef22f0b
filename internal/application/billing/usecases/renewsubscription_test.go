package usecases

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/crateful-io/crateful/internal/application/billing"
	"github.com/crateful-io/crateful/internal/application/billing/billinggateway"
	"github.com/crateful-io/crateful/internal/domain/catalog"
	"github.com/crateful-io/crateful/internal/domain/order"
	"github.com/crateful-io/crateful/internal/domain/subscription"
	vo "github.com/crateful-io/crateful/internal/domain/subscription/valueobjects"
	"github.com/crateful-io/crateful/internal/shared/logger"
)

type mockProductReader struct {
	mock.Mock
}

func (m *mockProductReader) GetByID(ctx context.Context, id uint) (*catalog.Product, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*catalog.Product), args.Error(1)
}

type renewFixture struct {
	subs     *mockSubscriptionRepository
	events   *mockBillingEventRepository
	orders   *mockOrderRepository
	products *mockProductReader
	gateway  *mockBillingGateway
	notifier *mockNotificationDispatcher
	guard    *mockChargeGuard
	uc       *RenewSubscriptionUseCase
}

func newRenewFixture() *renewFixture {
	f := &renewFixture{
		subs:     new(mockSubscriptionRepository),
		events:   new(mockBillingEventRepository),
		orders:   new(mockOrderRepository),
		products: new(mockProductReader),
		gateway:  new(mockBillingGateway),
		notifier: new(mockNotificationDispatcher),
		guard:    new(mockChargeGuard),
	}
	log := logger.NewLogger()
	f.uc = NewRenewSubscriptionUseCase(
		f.subs,
		f.events,
		f.orders,
		billing.NewInventoryValidator(f.products, log),
		f.gateway,
		f.notifier,
		f.guard,
		passthroughTxRunner{},
		"usd",
		log,
	)
	return f
}

func (f *renewFixture) assertExpectations(t *testing.T) {
	t.Helper()
	f.subs.AssertExpectations(t)
	f.events.AssertExpectations(t)
	f.orders.AssertExpectations(t)
	f.products.AssertExpectations(t)
	f.gateway.AssertExpectations(t)
	f.notifier.AssertExpectations(t)
	f.guard.AssertExpectations(t)
}

var testDeliveryDate = time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)

type subOption func(*subscription.ReconstructParams)

func withStatus(status vo.SubscriptionStatus) subOption {
	return func(p *subscription.ReconstructParams) { p.Status = status }
}

func withFailures(count int, nextRetry time.Time) subOption {
	return func(p *subscription.ReconstructParams) {
		p.FailedPaymentCount = count
		p.NextRetryDate = &nextRetry
	}
}

func withoutPaymentRefs() subOption {
	return func(p *subscription.ReconstructParams) {
		p.GatewayCustomerID = nil
		p.GatewayPaymentMethodID = nil
	}
}

func billableSubscription(t *testing.T, opts ...subOption) *subscription.Subscription {
	t.Helper()

	item, err := subscription.NewItem(1, 2)
	require.NoError(t, err)

	customerRef := "cus_test123"
	paymentRef := "pm_test123"
	now := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)

	params := subscription.ReconstructParams{
		ID:                     7,
		SID:                    "sub_renewtest01",
		UUID:                   uuid.NewString(),
		UserID:                 42,
		Cadence:                vo.CadenceRecurringWeekly,
		Status:                 vo.StatusActive,
		Items:                  []subscription.Item{item},
		NextDeliveryDate:       testDeliveryDate,
		GatewayCustomerID:      &customerRef,
		GatewayPaymentMethodID: &paymentRef,
		ShippingAddress:        "123 Main St, Springfield",
		DeliveryType:           vo.DeliveryStandard,
		Version:                3,
		CreatedAt:              now,
		UpdatedAt:              now,
	}
	for _, opt := range opts {
		opt(&params)
	}

	sub, err := subscription.Reconstruct(params)
	require.NoError(t, err)
	return sub
}

func availableProduct(t *testing.T) *catalog.Product {
	t.Helper()
	p, err := catalog.ReconstructProduct(1, "Coffee Beans", 2999, true, true, nil)
	require.NoError(t, err)
	return p
}

func TestRenewSubscription_Success(t *testing.T) {
	f := newRenewFixture()
	sub := billableSubscription(t)

	f.subs.On("GetByID", mock.Anything, uint(7)).Return(sub, nil)
	f.products.On("GetByID", mock.Anything, uint(1)).Return(availableProduct(t), nil)
	f.guard.On("Acquire", mock.Anything, uint(7), "2026-09-01_1").Return(true, nil)

	wantKey := fmt.Sprintf("renewal_%s_2026-09-01_1", sub.SID())
	f.gateway.On("ChargeOffSession", mock.Anything, mock.MatchedBy(func(req billinggateway.ChargeRequest) bool {
		return req.CustomerRef == "cus_test123" &&
			req.PaymentMethodRef == "pm_test123" &&
			req.AmountCents == 6897 && // 2 x 2999 + 899 shipping
			req.Currency == "usd" &&
			req.IdempotencyKey == wantKey
	})).Return(&billinggateway.ChargeResponse{TransactionID: "txn_abc", AmountCents: 6897}, nil)

	f.orders.On("Create", mock.Anything, mock.MatchedBy(func(o *order.Order) bool {
		return o.UserID() == 42 &&
			o.SubscriptionID() == 7 &&
			o.TotalCents() == 6897 &&
			o.Payment().TransactionID == "txn_abc" &&
			len(o.Items()) == 1
	})).Return(nil)
	f.subs.On("Update", mock.Anything, sub).Return(nil)
	f.events.On("Create", mock.Anything, mock.MatchedBy(func(ev *subscription.BillingEvent) bool {
		return ev.EventType() == subscription.EventRenewalSuccess &&
			ev.SubscriptionID() == 7 &&
			ev.TransactionID() != nil && *ev.TransactionID() == "txn_abc"
	})).Return(nil)
	f.notifier.On("RenewalSucceeded", mock.Anything, mock.MatchedBy(func(n RenewalSuccessNotice) bool {
		return n.UserID == 42 && n.AmountCents == 6897 && len(n.ChargedItems) == 1
	})).Return(nil)

	outcome, err := f.uc.Execute(context.Background(), RenewSubscriptionCommand{SubscriptionID: 7})

	require.NoError(t, err)
	assert.Equal(t, OutcomeSuccess, outcome)
	assert.Equal(t, testDeliveryDate.AddDate(0, 0, 7), sub.NextDeliveryDate())
	require.NotNil(t, sub.LastDeliveryDate())
	assert.Equal(t, vo.StatusActive, sub.Status())
	f.assertExpectations(t)
}

func TestRenewSubscription_PartialSuccess(t *testing.T) {
	f := newRenewFixture()

	itemA, err := subscription.NewItem(1, 2)
	require.NoError(t, err)
	itemB, err := subscription.NewItem(2, 1)
	require.NoError(t, err)
	sub := billableSubscription(t, func(p *subscription.ReconstructParams) {
		p.Items = []subscription.Item{itemA, itemB}
	})

	discontinued, err := catalog.ReconstructProduct(2, "Old Blend", 1999, false, true, nil)
	require.NoError(t, err)

	f.subs.On("GetByID", mock.Anything, uint(7)).Return(sub, nil)
	f.products.On("GetByID", mock.Anything, uint(1)).Return(availableProduct(t), nil)
	f.products.On("GetByID", mock.Anything, uint(2)).Return(discontinued, nil)
	f.guard.On("Acquire", mock.Anything, uint(7), mock.Anything).Return(true, nil)

	// Only the available item is billed: 2 x 2999 + 899.
	f.gateway.On("ChargeOffSession", mock.Anything, mock.MatchedBy(func(req billinggateway.ChargeRequest) bool {
		return req.AmountCents == 6897
	})).Return(&billinggateway.ChargeResponse{TransactionID: "txn_partial", AmountCents: 6897}, nil)

	f.orders.On("Create", mock.Anything, mock.MatchedBy(func(o *order.Order) bool {
		return len(o.Items()) == 1 && o.Items()[0].ProductID == 1
	})).Return(nil)
	f.subs.On("Update", mock.Anything, sub).Return(nil)
	f.events.On("Create", mock.Anything, mock.MatchedBy(func(ev *subscription.BillingEvent) bool {
		return ev.EventType() == subscription.EventRenewalSuccess && len(ev.SkippedItems()) == 1
	})).Return(nil)
	f.notifier.On("RenewalSucceeded", mock.Anything, mock.MatchedBy(func(n RenewalSuccessNotice) bool {
		return len(n.ChargedItems) == 1 && len(n.SkippedItems) == 1 &&
			n.SkippedItems[0].Reason == billing.ReasonDiscontinued
	})).Return(nil)

	outcome, err := f.uc.Execute(context.Background(), RenewSubscriptionCommand{SubscriptionID: 7})

	require.NoError(t, err)
	assert.Equal(t, OutcomeSuccess, outcome)
	f.assertExpectations(t)
}

func TestRenewSubscription_AllItemsUnavailable_PostponesWithoutCharging(t *testing.T) {
	f := newRenewFixture()
	sub := billableSubscription(t)

	outOfStock, err := catalog.ReconstructProduct(1, "Coffee Beans", 2999, true, false, nil)
	require.NoError(t, err)

	f.subs.On("GetByID", mock.Anything, uint(7)).Return(sub, nil)
	f.products.On("GetByID", mock.Anything, uint(1)).Return(outOfStock, nil)
	f.subs.On("Update", mock.Anything, sub).Return(nil)
	f.events.On("Create", mock.Anything, mock.MatchedBy(func(ev *subscription.BillingEvent) bool {
		return ev.EventType() == subscription.EventSkippedItem && len(ev.SkippedItems()) == 1
	})).Return(nil)
	f.notifier.On("RenewalPostponed", mock.Anything, mock.MatchedBy(func(n RenewalPostponedNotice) bool {
		return n.UserID == 42 && len(n.SkippedItems) == 1
	})).Return(nil)

	outcome, err := f.uc.Execute(context.Background(), RenewSubscriptionCommand{SubscriptionID: 7})

	require.NoError(t, err)
	assert.Equal(t, OutcomeSkipped, outcome)
	assert.Equal(t, testDeliveryDate.AddDate(0, 0, 7), sub.NextDeliveryDate())
	assert.Equal(t, 0, sub.FailedPaymentCount())
	assert.Nil(t, sub.LastDeliveryDate())
	f.gateway.AssertNotCalled(t, "ChargeOffSession", mock.Anything, mock.Anything)
	f.guard.AssertNotCalled(t, "Acquire", mock.Anything, mock.Anything, mock.Anything)
	f.assertExpectations(t)
}

func TestRenewSubscription_Declined_FirstFailure(t *testing.T) {
	f := newRenewFixture()
	sub := billableSubscription(t)

	f.subs.On("GetByID", mock.Anything, uint(7)).Return(sub, nil)
	f.products.On("GetByID", mock.Anything, uint(1)).Return(availableProduct(t), nil)
	f.guard.On("Acquire", mock.Anything, uint(7), "2026-09-01_1").Return(true, nil)
	f.gateway.On("ChargeOffSession", mock.Anything, mock.Anything).
		Return(nil, billinggateway.NewGatewayError(billinggateway.CodeCardDeclined, "Your card was declined."))
	f.guard.On("Release", mock.Anything, uint(7), "2026-09-01_1").Return(nil)
	f.subs.On("Update", mock.Anything, sub).Return(nil)
	f.events.On("Create", mock.Anything, mock.MatchedBy(func(ev *subscription.BillingEvent) bool {
		return ev.EventType() == subscription.EventRenewalFailed &&
			ev.ErrorCode() != nil && *ev.ErrorCode() == billinggateway.CodeCardDeclined
	})).Return(nil)
	f.notifier.On("PaymentFailed", mock.Anything, mock.MatchedBy(func(n PaymentFailedNotice) bool {
		return n.AttemptNumber == 1 && !n.PaymentMethodRequired && n.NextRetryDate != nil
	})).Return(nil)

	outcome, err := f.uc.Execute(context.Background(), RenewSubscriptionCommand{SubscriptionID: 7})

	require.NoError(t, err)
	assert.Equal(t, OutcomeFailed, outcome)
	assert.Equal(t, vo.StatusPaymentFailed, sub.Status())
	assert.Equal(t, 1, sub.FailedPaymentCount())
	// Deliveries are not rescheduled on a failed charge.
	assert.Equal(t, testDeliveryDate, sub.NextDeliveryDate())
	require.NotNil(t, sub.NextRetryDate())
	f.assertExpectations(t)
}

func TestRenewSubscription_ThirdFailure_Expires(t *testing.T) {
	f := newRenewFixture()
	sub := billableSubscription(t,
		withStatus(vo.StatusPaymentFailed),
		withFailures(2, testDeliveryDate.AddDate(0, 0, 4)),
	)

	f.subs.On("GetByID", mock.Anything, uint(7)).Return(sub, nil)
	f.products.On("GetByID", mock.Anything, uint(1)).Return(availableProduct(t), nil)
	// Third attempt gets its own marker and idempotency key.
	f.guard.On("Acquire", mock.Anything, uint(7), "2026-09-01_3").Return(true, nil)
	f.gateway.On("ChargeOffSession", mock.Anything, mock.MatchedBy(func(req billinggateway.ChargeRequest) bool {
		return req.IdempotencyKey == fmt.Sprintf("renewal_%s_2026-09-01_3", sub.SID())
	})).Return(nil, billinggateway.NewGatewayError(billinggateway.CodeInsufficientFunds, "Insufficient funds."))
	f.guard.On("Release", mock.Anything, uint(7), "2026-09-01_3").Return(nil)
	f.subs.On("Update", mock.Anything, sub).Return(nil)
	f.events.On("Create", mock.Anything, mock.MatchedBy(func(ev *subscription.BillingEvent) bool {
		return ev.EventType() == subscription.EventSubscriptionExpired
	})).Return(nil)
	f.notifier.On("SubscriptionExpired", mock.Anything, mock.MatchedBy(func(n SubscriptionExpiredNotice) bool {
		return n.UserID == 42 && n.ErrorMessage == "Insufficient funds."
	})).Return(nil)

	outcome, err := f.uc.Execute(context.Background(), RenewSubscriptionCommand{SubscriptionID: 7})

	require.NoError(t, err)
	assert.Equal(t, OutcomeFailed, outcome)
	assert.Equal(t, vo.StatusExpired, sub.Status())
	assert.Equal(t, 3, sub.FailedPaymentCount())
	assert.Nil(t, sub.NextRetryDate())
	f.notifier.AssertNotCalled(t, "PaymentFailed", mock.Anything, mock.Anything)
	f.assertExpectations(t)
}

func TestRenewSubscription_MissingPaymentReferences(t *testing.T) {
	f := newRenewFixture()
	sub := billableSubscription(t, withoutPaymentRefs())

	f.subs.On("GetByID", mock.Anything, uint(7)).Return(sub, nil)
	f.products.On("GetByID", mock.Anything, uint(1)).Return(availableProduct(t), nil)
	f.subs.On("Update", mock.Anything, sub).Return(nil)
	f.events.On("Create", mock.Anything, mock.MatchedBy(func(ev *subscription.BillingEvent) bool {
		return ev.EventType() == subscription.EventRenewalFailed &&
			ev.ErrorCode() != nil && *ev.ErrorCode() == billinggateway.CodeMissingPaymentMethod
	})).Return(nil)
	f.notifier.On("PaymentFailed", mock.Anything, mock.MatchedBy(func(n PaymentFailedNotice) bool {
		return n.PaymentMethodRequired && n.AttemptNumber == 1
	})).Return(nil)

	outcome, err := f.uc.Execute(context.Background(), RenewSubscriptionCommand{SubscriptionID: 7})

	require.NoError(t, err)
	assert.Equal(t, OutcomeFailed, outcome)
	// The configuration failure consumes an attempt like any other failure.
	assert.Equal(t, 1, sub.FailedPaymentCount())
	assert.Equal(t, vo.StatusPaymentFailed, sub.Status())
	f.gateway.AssertNotCalled(t, "ChargeOffSession", mock.Anything, mock.Anything)
	f.guard.AssertNotCalled(t, "Acquire", mock.Anything, mock.Anything, mock.Anything)
	f.assertExpectations(t)
}

func TestRenewSubscription_ChargeMarkerAlreadyHeld(t *testing.T) {
	f := newRenewFixture()
	sub := billableSubscription(t)

	f.subs.On("GetByID", mock.Anything, uint(7)).Return(sub, nil)
	f.products.On("GetByID", mock.Anything, uint(1)).Return(availableProduct(t), nil)
	f.guard.On("Acquire", mock.Anything, uint(7), "2026-09-01_1").Return(false, nil)

	outcome, err := f.uc.Execute(context.Background(), RenewSubscriptionCommand{SubscriptionID: 7})

	require.ErrorIs(t, err, ErrCycleAlreadyAttempted)
	assert.Equal(t, OutcomeFailed, outcome)
	assert.Equal(t, 0, sub.FailedPaymentCount())
	f.gateway.AssertNotCalled(t, "ChargeOffSession", mock.Anything, mock.Anything)
	f.subs.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
	f.assertExpectations(t)
}

func TestRenewSubscription_GuardUnavailable_ChargeStillProceeds(t *testing.T) {
	f := newRenewFixture()
	sub := billableSubscription(t)

	f.subs.On("GetByID", mock.Anything, uint(7)).Return(sub, nil)
	f.products.On("GetByID", mock.Anything, uint(1)).Return(availableProduct(t), nil)
	f.guard.On("Acquire", mock.Anything, uint(7), mock.Anything).Return(false, assert.AnError)
	f.gateway.On("ChargeOffSession", mock.Anything, mock.Anything).
		Return(&billinggateway.ChargeResponse{TransactionID: "txn_degraded", AmountCents: 6897}, nil)
	f.orders.On("Create", mock.Anything, mock.Anything).Return(nil)
	f.subs.On("Update", mock.Anything, sub).Return(nil)
	f.events.On("Create", mock.Anything, mock.Anything).Return(nil)
	f.notifier.On("RenewalSucceeded", mock.Anything, mock.Anything).Return(nil)

	outcome, err := f.uc.Execute(context.Background(), RenewSubscriptionCommand{SubscriptionID: 7})

	require.NoError(t, err)
	assert.Equal(t, OutcomeSuccess, outcome)
	f.assertExpectations(t)
}

func TestRenewSubscription_NotBillableStatus(t *testing.T) {
	f := newRenewFixture()
	sub := billableSubscription(t, withStatus(vo.StatusPaused))

	f.subs.On("GetByID", mock.Anything, uint(7)).Return(sub, nil)

	outcome, err := f.uc.Execute(context.Background(), RenewSubscriptionCommand{SubscriptionID: 7})

	require.Error(t, err)
	assert.Empty(t, outcome)
	f.gateway.AssertNotCalled(t, "ChargeOffSession", mock.Anything, mock.Anything)
	f.assertExpectations(t)
}

func TestRenewSubscription_NotFound(t *testing.T) {
	f := newRenewFixture()

	f.subs.On("GetByID", mock.Anything, uint(99)).Return(nil, nil)

	outcome, err := f.uc.Execute(context.Background(), RenewSubscriptionCommand{SubscriptionID: 99})

	require.ErrorIs(t, err, subscription.ErrSubscriptionNotFound)
	assert.Empty(t, outcome)
	f.assertExpectations(t)
}

func TestRenewSubscription_NotificationFailureDoesNotFailRenewal(t *testing.T) {
	f := newRenewFixture()
	sub := billableSubscription(t)

	f.subs.On("GetByID", mock.Anything, uint(7)).Return(sub, nil)
	f.products.On("GetByID", mock.Anything, uint(1)).Return(availableProduct(t), nil)
	f.guard.On("Acquire", mock.Anything, uint(7), mock.Anything).Return(true, nil)
	f.gateway.On("ChargeOffSession", mock.Anything, mock.Anything).
		Return(&billinggateway.ChargeResponse{TransactionID: "txn_ok", AmountCents: 6897}, nil)
	f.orders.On("Create", mock.Anything, mock.Anything).Return(nil)
	f.subs.On("Update", mock.Anything, sub).Return(nil)
	f.events.On("Create", mock.Anything, mock.Anything).Return(assert.AnError)
	f.notifier.On("RenewalSucceeded", mock.Anything, mock.Anything).Return(assert.AnError)

	outcome, err := f.uc.Execute(context.Background(), RenewSubscriptionCommand{SubscriptionID: 7})

	require.NoError(t, err)
	assert.Equal(t, OutcomeSuccess, outcome)
	f.assertExpectations(t)
}
