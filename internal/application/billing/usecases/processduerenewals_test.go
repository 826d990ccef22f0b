package usecases

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/crateful-io/crateful/internal/application/billing/billinggateway"
	"github.com/crateful-io/crateful/internal/domain/subscription"
	vo "github.com/crateful-io/crateful/internal/domain/subscription/valueobjects"
)

func withIdentity(id uint, sid string) subOption {
	return func(p *subscription.ReconstructParams) {
		p.ID = id
		p.SID = sid
	}
}

func TestProcessDueRenewals_EmptyBatch(t *testing.T) {
	f := newRenewFixture()
	sweep := NewProcessDueRenewalsUseCase(f.subs, f.uc, f.uc.logger)

	f.subs.On("FindDueForRenewal", mock.Anything, mock.Anything).
		Return([]*subscription.Subscription{}, nil)

	summary, err := sweep.Execute(context.Background())

	require.NoError(t, err)
	assert.Equal(t, &SweepSummary{}, summary)
	f.assertExpectations(t)
}

func TestProcessDueRenewals_SelectionFailure(t *testing.T) {
	f := newRenewFixture()
	sweep := NewProcessDueRenewalsUseCase(f.subs, f.uc, f.uc.logger)

	f.subs.On("FindDueForRenewal", mock.Anything, mock.Anything).Return(nil, assert.AnError)

	summary, err := sweep.Execute(context.Background())

	require.Error(t, err)
	assert.Nil(t, summary)
}

func TestProcessDueRenewals_IsolatesFailures(t *testing.T) {
	f := newRenewFixture()
	sweep := NewProcessDueRenewalsUseCase(f.subs, f.uc, f.uc.logger)

	good := billableSubscription(t, withIdentity(1, "sub_sweepgood01"))
	declined := billableSubscription(t, withIdentity(2, "sub_sweepdecl01"))
	broken := billableSubscription(t, withIdentity(3, "sub_sweepbrok01"))
	panicky := billableSubscription(t, withIdentity(4, "sub_sweeppanc01"))

	f.subs.On("FindDueForRenewal", mock.Anything, mock.Anything).
		Return([]*subscription.Subscription{good, declined, broken, panicky}, nil)

	f.products.On("GetByID", mock.Anything, uint(1)).Return(availableProduct(t), nil)
	f.guard.On("Acquire", mock.Anything, mock.Anything, mock.Anything).Return(true, nil)
	f.guard.On("Release", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	// Sub 1 charges cleanly.
	f.subs.On("GetByID", mock.Anything, uint(1)).Return(good, nil)
	f.gateway.On("ChargeOffSession", mock.Anything, mock.MatchedBy(func(req billinggateway.ChargeRequest) bool {
		return req.Metadata["subscription_sid"] == "sub_sweepgood01"
	})).Return(&billinggateway.ChargeResponse{TransactionID: "txn_1", AmountCents: 6897}, nil)
	f.orders.On("Create", mock.Anything, mock.Anything).Return(nil)
	f.subs.On("Update", mock.Anything, good).Return(nil)
	f.notifier.On("RenewalSucceeded", mock.Anything, mock.Anything).Return(nil)

	// Sub 2 is declined.
	f.subs.On("GetByID", mock.Anything, uint(2)).Return(declined, nil)
	f.gateway.On("ChargeOffSession", mock.Anything, mock.MatchedBy(func(req billinggateway.ChargeRequest) bool {
		return req.Metadata["subscription_sid"] == "sub_sweepdecl01"
	})).Return(nil, billinggateway.NewGatewayError(billinggateway.CodeCardDeclined, "declined"))
	f.subs.On("Update", mock.Anything, declined).Return(nil)
	f.notifier.On("PaymentFailed", mock.Anything, mock.Anything).Return(nil)

	// Sub 3 cannot even be loaded.
	f.subs.On("GetByID", mock.Anything, uint(3)).Return(nil, assert.AnError)

	// Sub 4 blows up mid-cycle.
	f.subs.On("GetByID", mock.Anything, uint(4)).Return(panicky, nil)
	f.gateway.On("ChargeOffSession", mock.Anything, mock.MatchedBy(func(req billinggateway.ChargeRequest) bool {
		return req.Metadata["subscription_sid"] == "sub_sweeppanc01"
	})).Run(func(args mock.Arguments) {
		panic(fmt.Errorf("gateway client bug"))
	}).Return(nil, nil)

	f.events.On("Create", mock.Anything, mock.Anything).Return(nil)

	summary, err := sweep.Execute(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 4, summary.Selected)
	assert.Equal(t, 1, summary.Succeeded)
	assert.Equal(t, 1, summary.Failed)
	assert.Equal(t, 0, summary.Skipped)
	assert.Equal(t, 2, summary.Errors)
}

func TestProcessPaymentRetries_RunsFullCycle(t *testing.T) {
	f := newRenewFixture()
	sweep := NewProcessPaymentRetriesUseCase(f.subs, f.uc, f.uc.logger)

	sub := billableSubscription(t,
		withIdentity(5, "sub_sweepretr01"),
		withStatus(vo.StatusPaymentFailed),
		withFailures(1, testDeliveryDate.AddDate(0, 0, 3)),
	)

	f.subs.On("FindDueForRetry", mock.Anything, mock.Anything).
		Return([]*subscription.Subscription{sub}, nil)
	f.subs.On("GetByID", mock.Anything, uint(5)).Return(sub, nil)
	f.products.On("GetByID", mock.Anything, uint(1)).Return(availableProduct(t), nil)
	// Second attempt: fresh marker and idempotency key.
	f.guard.On("Acquire", mock.Anything, uint(5), "2026-09-01_2").Return(true, nil)
	f.gateway.On("ChargeOffSession", mock.Anything, mock.MatchedBy(func(req billinggateway.ChargeRequest) bool {
		return req.IdempotencyKey == "renewal_sub_sweepretr01_2026-09-01_2"
	})).Return(&billinggateway.ChargeResponse{TransactionID: "txn_retry", AmountCents: 6897}, nil)
	f.orders.On("Create", mock.Anything, mock.Anything).Return(nil)
	f.subs.On("Update", mock.Anything, sub).Return(nil)
	f.events.On("Create", mock.Anything, mock.Anything).Return(nil)
	f.notifier.On("RenewalSucceeded", mock.Anything, mock.Anything).Return(nil)

	summary, err := sweep.Execute(context.Background())

	require.NoError(t, err)
	assert.Equal(t, &SweepSummary{Selected: 1, Succeeded: 1}, summary)
	assert.Equal(t, 0, sub.FailedPaymentCount())
	assert.Nil(t, sub.NextRetryDate())
	f.assertExpectations(t)
}
