package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crateful-io/crateful/internal/domain/order"
	"github.com/crateful-io/crateful/internal/shared/logger"
)

func renewalOrder(t *testing.T, subscriptionID uint) *order.Order {
	t.Helper()

	o, err := order.NewFromRenewal(
		42,
		subscriptionID,
		[]order.LineItem{
			{ProductID: 1, Name: "Coffee Beans", UnitPriceCents: 2999, Quantity: 2},
		},
		5998,
		899,
		"123 Main St, Springfield",
		"standard",
		"leave at the door",
		order.PaymentRecord{
			TransactionID: "txn_order_1",
			AmountCents:   6897,
			ChargedAt:     time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC),
		},
	)
	require.NoError(t, err)
	return o
}

func TestOrderRepository_CreateAndGet(t *testing.T) {
	repo := NewOrderRepository(setupTestDB(t), logger.NewLogger())
	ctx := context.Background()

	o := renewalOrder(t, 7)
	require.NoError(t, repo.Create(ctx, o))
	assert.NotZero(t, o.ID())

	found, err := repo.GetByID(ctx, o.ID())
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, o.OID(), found.OID())
	assert.Equal(t, uint(42), found.UserID())
	assert.Equal(t, uint(7), found.SubscriptionID())
	assert.Equal(t, int64(5998), found.SubtotalCents())
	assert.Equal(t, int64(899), found.ShippingCents())
	assert.Equal(t, int64(6897), found.TotalCents())
	require.Len(t, found.Items(), 1)
	assert.Equal(t, "Coffee Beans", found.Items()[0].Name)
	assert.Equal(t, "txn_order_1", found.Payment().TransactionID)
	assert.Equal(t, "standard", found.DeliveryType())

	byOID, err := repo.GetByOID(ctx, o.OID())
	require.NoError(t, err)
	require.NotNil(t, byOID)
	assert.Equal(t, o.ID(), byOID.ID())
}

func TestOrderRepository_GetBySubscriptionID(t *testing.T) {
	repo := NewOrderRepository(setupTestDB(t), logger.NewLogger())
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, renewalOrder(t, 7)))
	require.NoError(t, repo.Create(ctx, renewalOrder(t, 7)))
	require.NoError(t, repo.Create(ctx, renewalOrder(t, 8)))

	orders, err := repo.GetBySubscriptionID(ctx, 7)
	require.NoError(t, err)
	assert.Len(t, orders, 2)

	missing, err := repo.GetByID(ctx, 9999)
	require.NoError(t, err)
	assert.Nil(t, missing)
}
