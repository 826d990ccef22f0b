package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crateful-io/crateful/internal/domain/subscription"
	"github.com/crateful-io/crateful/internal/shared/logger"
)

func TestBillingEventRepository_CreateAndList(t *testing.T) {
	repo := NewBillingEventRepository(setupTestDB(t), logger.NewLogger())
	ctx := context.Background()

	skipped := []subscription.SkippedItem{{ProductID: 2, Quantity: 1, Reason: "out of stock"}}

	success, err := subscription.NewRenewalSuccessEvent(7, 42, 6897, "txn_1", 11, skipped)
	require.NoError(t, err)
	failed, err := subscription.NewRenewalFailedEvent(7, 42, 6897, "card_declined", "Your card was declined.")
	require.NoError(t, err)
	otherSub, err := subscription.NewSkippedCycleEvent(8, 42, skipped)
	require.NoError(t, err)

	require.NoError(t, repo.Create(ctx, success))
	require.NoError(t, repo.Create(ctx, failed))
	require.NoError(t, repo.Create(ctx, otherSub))
	assert.NotZero(t, success.ID())

	events, err := repo.ListBySubscriptionID(ctx, 7, 50)
	require.NoError(t, err)
	require.Len(t, events, 2)

	// Newest first; same-timestamp rows fall back to id ordering.
	assert.Equal(t, subscription.EventRenewalFailed, events[0].EventType())
	assert.Equal(t, subscription.EventRenewalSuccess, events[1].EventType())

	got := events[1]
	assert.Equal(t, success.EID(), got.EID())
	require.NotNil(t, got.AmountCents())
	assert.Equal(t, int64(6897), *got.AmountCents())
	require.NotNil(t, got.TransactionID())
	assert.Equal(t, "txn_1", *got.TransactionID())
	require.NotNil(t, got.OrderID())
	assert.Equal(t, uint(11), *got.OrderID())
	require.Len(t, got.SkippedItems(), 1)
	assert.Equal(t, "out of stock", got.SkippedItems()[0].Reason)

	gotFailed := events[0]
	require.NotNil(t, gotFailed.ErrorCode())
	assert.Equal(t, "card_declined", *gotFailed.ErrorCode())
}

func TestBillingEventRepository_ListHonorsLimit(t *testing.T) {
	repo := NewBillingEventRepository(setupTestDB(t), logger.NewLogger())
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		ev, err := subscription.NewRenewalFailedEvent(7, 42, 1000, "card_declined", "declined")
		require.NoError(t, err)
		require.NoError(t, repo.Create(ctx, ev))
	}

	events, err := repo.ListBySubscriptionID(ctx, 7, 3)
	require.NoError(t, err)
	assert.Len(t, events, 3)
}
