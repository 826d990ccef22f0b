package subscription

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	vo "github.com/crateful-io/crateful/internal/domain/subscription/valueobjects"
)

func newTestSubscription(t *testing.T, cadence vo.Cadence) *Subscription {
	t.Helper()

	item, err := NewItem(1, 2)
	require.NoError(t, err)

	sub, err := NewSubscription(
		42,
		cadence,
		[]Item{item},
		vo.DeliveryStandard,
		"1 Main St, Springfield",
		"leave at door",
		time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC),
	)
	require.NoError(t, err)
	return sub
}

func TestNewSubscription(t *testing.T) {
	sub := newTestSubscription(t, vo.CadenceRecurringWeekly)

	assert.Equal(t, vo.StatusActive, sub.Status())
	assert.Equal(t, uint(42), sub.UserID())
	assert.True(t, strings.HasPrefix(sub.SID(), "sub_"))
	assert.NotEmpty(t, sub.UUID())
	assert.Equal(t, 0, sub.FailedPaymentCount())
	assert.Nil(t, sub.NextRetryDate())
	assert.False(t, sub.HasPaymentReferences())
	assert.Equal(t, 1, sub.Version())
}

func TestNewSubscription_Validation(t *testing.T) {
	item, err := NewItem(1, 1)
	require.NoError(t, err)
	nextDate := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		fn   func() (*Subscription, error)
	}{
		{
			name: "missing user",
			fn: func() (*Subscription, error) {
				return NewSubscription(0, vo.CadenceRecurringWeekly, []Item{item}, vo.DeliveryStandard, "addr", "", nextDate)
			},
		},
		{
			name: "invalid cadence",
			fn: func() (*Subscription, error) {
				return NewSubscription(1, vo.Cadence("daily"), []Item{item}, vo.DeliveryStandard, "addr", "", nextDate)
			},
		},
		{
			name: "no items",
			fn: func() (*Subscription, error) {
				return NewSubscription(1, vo.CadenceRecurringWeekly, nil, vo.DeliveryStandard, "addr", "", nextDate)
			},
		},
		{
			name: "missing address",
			fn: func() (*Subscription, error) {
				return NewSubscription(1, vo.CadenceRecurringWeekly, []Item{item}, vo.DeliveryStandard, "", "", nextDate)
			},
		},
		{
			name: "zero delivery date",
			fn: func() (*Subscription, error) {
				return NewSubscription(1, vo.CadenceRecurringWeekly, []Item{item}, vo.DeliveryStandard, "addr", "", time.Time{})
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sub, err := tt.fn()
			assert.Error(t, err)
			assert.Nil(t, sub)
		})
	}
}

func TestSubscription_LinkPaymentMethod(t *testing.T) {
	sub := newTestSubscription(t, vo.CadenceRecurringWeekly)

	require.NoError(t, sub.LinkPaymentMethod("cus_abc", "pm_xyz"))
	assert.True(t, sub.HasPaymentReferences())
	assert.Equal(t, "cus_abc", *sub.GatewayCustomerID())
	assert.Equal(t, "pm_xyz", *sub.GatewayPaymentMethodID())

	assert.Error(t, sub.LinkPaymentMethod("", "pm_xyz"))
	assert.Error(t, sub.LinkPaymentMethod("cus_abc", ""))
}

func TestSubscription_RecordPaymentFailure_RetryPolicy(t *testing.T) {
	sub := newTestSubscription(t, vo.CadenceRecurringMonthly)
	originalDate := sub.NextDeliveryDate()
	now := time.Date(2026, 9, 1, 6, 0, 0, 0, time.UTC)

	// First failure: payment_failed, retry in 3 days.
	count := sub.RecordPaymentFailure(now, "card_declined")
	assert.Equal(t, 1, count)
	assert.Equal(t, vo.StatusPaymentFailed, sub.Status())
	require.NotNil(t, sub.NextRetryDate())
	assert.Equal(t, now.Add(3*24*time.Hour), *sub.NextRetryDate())
	assert.Equal(t, "card_declined", *sub.LastBillingError())
	assert.Equal(t, now, *sub.LastBillingAttempt())
	assert.Equal(t, originalDate, sub.NextDeliveryDate(), "delivery date must not move on failure")

	// Second failure: still payment_failed, retry in 4 more days.
	secondAttempt := now.Add(3 * 24 * time.Hour)
	count = sub.RecordPaymentFailure(secondAttempt, "card_declined")
	assert.Equal(t, 2, count)
	assert.Equal(t, vo.StatusPaymentFailed, sub.Status())
	require.NotNil(t, sub.NextRetryDate())
	assert.Equal(t, secondAttempt.Add(4*24*time.Hour), *sub.NextRetryDate())

	// Third failure: terminal.
	thirdAttempt := secondAttempt.Add(4 * 24 * time.Hour)
	count = sub.RecordPaymentFailure(thirdAttempt, "insufficient_funds")
	assert.Equal(t, 3, count)
	assert.Equal(t, vo.StatusExpired, sub.Status())
	assert.Nil(t, sub.NextRetryDate())
	assert.Equal(t, "insufficient_funds", *sub.LastBillingError())
	assert.Equal(t, originalDate, sub.NextDeliveryDate())
	assert.True(t, sub.Status().IsTerminal())
}

func TestSubscription_CompleteRenewal(t *testing.T) {
	sub := newTestSubscription(t, vo.CadenceRecurringBiweekly)
	originalDate := sub.NextDeliveryDate()

	// A late sweep: the charge lands two days after the scheduled date.
	now := originalDate.Add(48 * time.Hour)
	require.NoError(t, sub.CompleteRenewal(now))

	// The next date advances from the previous scheduled date, not from
	// now, keeping the cadence aligned.
	assert.Equal(t, originalDate.AddDate(0, 0, 14), sub.NextDeliveryDate())
	assert.Equal(t, now, *sub.LastDeliveryDate())
	assert.Equal(t, now, *sub.LastBillingAttempt())
	assert.Equal(t, vo.StatusActive, sub.Status())
	assert.Equal(t, 0, sub.FailedPaymentCount())
	assert.Nil(t, sub.LastBillingError())
	assert.Nil(t, sub.NextRetryDate())
}

func TestSubscription_CompleteRenewal_ClearsFailureBookkeeping(t *testing.T) {
	sub := newTestSubscription(t, vo.CadenceRecurringWeekly)
	originalDate := sub.NextDeliveryDate()

	failedAt := originalDate.Add(time.Hour)
	sub.RecordPaymentFailure(failedAt, "card_declined")
	require.Equal(t, vo.StatusPaymentFailed, sub.Status())

	// Successful retry three days later.
	retriedAt := failedAt.Add(3 * 24 * time.Hour)
	require.NoError(t, sub.CompleteRenewal(retriedAt))

	assert.Equal(t, vo.StatusActive, sub.Status())
	assert.Equal(t, 0, sub.FailedPaymentCount())
	assert.Nil(t, sub.LastBillingError())
	assert.Nil(t, sub.NextRetryDate())
	assert.Equal(t, originalDate.AddDate(0, 0, 7), sub.NextDeliveryDate())
}

func TestSubscription_CompleteRenewal_RejectedStates(t *testing.T) {
	sub := newTestSubscription(t, vo.CadenceRecurringWeekly)
	require.NoError(t, sub.Cancel("user request"))

	err := sub.CompleteRenewal(time.Now().UTC())
	assert.Error(t, err)
}

func TestSubscription_PostponeDelivery(t *testing.T) {
	sub := newTestSubscription(t, vo.CadenceRecurringMonthly)
	originalDate := sub.NextDeliveryDate()

	require.NoError(t, sub.PostponeDelivery())

	assert.Equal(t, originalDate.AddDate(0, 1, 0), sub.NextDeliveryDate())
	assert.Equal(t, vo.StatusActive, sub.Status())
	assert.Equal(t, 0, sub.FailedPaymentCount(), "a skipped cycle is not a payment failure")
	assert.Nil(t, sub.LastBillingAttempt())
	assert.Nil(t, sub.LastDeliveryDate())
}

func TestSubscription_PauseResumeCancel(t *testing.T) {
	sub := newTestSubscription(t, vo.CadenceRecurringWeekly)

	require.NoError(t, sub.Pause())
	assert.Equal(t, vo.StatusPaused, sub.Status())

	// Pausing again is a no-op.
	require.NoError(t, sub.Pause())

	require.NoError(t, sub.Resume())
	assert.Equal(t, vo.StatusActive, sub.Status())

	assert.Error(t, sub.Cancel(""))
	require.NoError(t, sub.Cancel("moving abroad"))
	assert.Equal(t, vo.StatusCancelled, sub.Status())
	assert.NotNil(t, sub.CancelledAt())
	assert.Equal(t, "moving abroad", *sub.CancelReason())

	// Terminal states refuse further transitions.
	assert.Error(t, sub.Pause())
	assert.Error(t, sub.Resume())
	assert.Error(t, sub.PostponeDelivery())
}

func TestSubscription_Reconstruct_RoundTrip(t *testing.T) {
	created := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	next := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	cust := "cus_abc"
	pm := "pm_xyz"

	sub, err := Reconstruct(ReconstructParams{
		ID:                     7,
		SID:                    "sub_test123",
		UUID:                   "2b1f0a8e-0000-0000-0000-000000000000",
		UserID:                 42,
		Cadence:                vo.CadenceRecurringQuarterly,
		Status:                 vo.StatusActive,
		Items:                  []Item{ReconstructItem(1, 3)},
		NextDeliveryDate:       next,
		GatewayCustomerID:      &cust,
		GatewayPaymentMethodID: &pm,
		ShippingAddress:        "1 Main St",
		DeliveryType:           vo.DeliveryExpress,
		Version:                4,
		CreatedAt:              created,
		UpdatedAt:              created,
	})
	require.NoError(t, err)

	assert.Equal(t, uint(7), sub.ID())
	assert.Equal(t, vo.CadenceRecurringQuarterly, sub.Cadence())
	assert.True(t, sub.HasPaymentReferences())
	assert.Len(t, sub.Items(), 1)
	assert.Equal(t, 3, sub.Items()[0].Quantity())
}

func TestSubscription_Reconstruct_Invalid(t *testing.T) {
	_, err := Reconstruct(ReconstructParams{
		ID:      0,
		UserID:  1,
		Cadence: vo.CadenceRecurringWeekly,
		Status:  vo.StatusActive,
	})
	assert.Error(t, err)

	_, err = Reconstruct(ReconstructParams{
		ID:      1,
		UserID:  1,
		Cadence: vo.CadenceRecurringWeekly,
		Status:  vo.SubscriptionStatus("limbo"),
	})
	assert.Error(t, err)
}

func TestSubscription_SetID(t *testing.T) {
	sub := newTestSubscription(t, vo.CadenceRecurringWeekly)

	require.NoError(t, sub.SetID(10))
	assert.Equal(t, uint(10), sub.ID())
	assert.Error(t, sub.SetID(11), "ID can only be set once")
	assert.Error(t, newTestSubscription(t, vo.CadenceRecurringWeekly).SetID(0))
}
