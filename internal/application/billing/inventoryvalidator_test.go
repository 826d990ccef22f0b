package billing

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/crateful-io/crateful/internal/domain/catalog"
	"github.com/crateful-io/crateful/internal/domain/subscription"
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

func mustProduct(t *testing.T, id uint, name string, priceCents int64, isActive, inStock bool, stockCount *int) *catalog.Product {
	t.Helper()
	p, err := catalog.ReconstructProduct(id, name, priceCents, isActive, inStock, stockCount)
	require.NoError(t, err)
	return p
}

func intPtr(v int) *int { return &v }

func mustItem(t *testing.T, productID uint, qty int) subscription.Item {
	t.Helper()
	item, err := subscription.NewItem(productID, qty)
	require.NoError(t, err)
	return item
}

func TestInventoryValidator_Validate_AllAvailable(t *testing.T) {
	products := new(mockProductReader)
	products.On("GetByID", mock.Anything, uint(1)).
		Return(mustProduct(t, 1, "Coffee Beans", 2999, true, true, nil), nil)
	products.On("GetByID", mock.Anything, uint(2)).
		Return(mustProduct(t, 2, "Filters", 499, true, true, intPtr(100)), nil)

	v := NewInventoryValidator(products, logger.NewLogger())
	result := v.Validate(context.Background(), []subscription.Item{
		mustItem(t, 1, 2),
		mustItem(t, 2, 1),
	})

	require.Len(t, result.Available, 2)
	assert.Empty(t, result.Skipped)
	assert.Equal(t, int64(2*2999+499), result.SubtotalCents)
	assert.True(t, result.HasAvailableItems())
	assert.Equal(t, "Coffee Beans", result.Available[0].Name)
	assert.Equal(t, int64(2999), result.Available[0].UnitPriceCents)
}

func TestInventoryValidator_Validate_ExclusionRules(t *testing.T) {
	tests := []struct {
		name       string
		product    *catalog.Product
		productErr error
		quantity   int
		wantReason string
	}{
		{
			name:       "not found",
			productErr: catalog.ErrProductNotFound,
			quantity:   1,
			wantReason: "not found in catalog",
		},
		{
			name:       "lookup failure",
			productErr: errors.New("connection refused"),
			quantity:   1,
			wantReason: "error checking availability",
		},
		{
			name:       "discontinued",
			product:    mustProduct(t, 1, "Old Blend", 1999, false, true, nil),
			quantity:   1,
			wantReason: "discontinued",
		},
		{
			name:       "out of stock flag",
			product:    mustProduct(t, 1, "Seasonal", 1999, true, false, nil),
			quantity:   1,
			wantReason: "out of stock",
		},
		{
			name:       "insufficient tracked stock",
			product:    mustProduct(t, 1, "Limited", 1999, true, true, intPtr(2)),
			quantity:   5,
			wantReason: "insufficient stock (2 available, 5 needed)",
		},
		{
			name:       "discontinued wins over out of stock",
			product:    mustProduct(t, 1, "Retired", 1999, false, false, intPtr(0)),
			quantity:   1,
			wantReason: "discontinued",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			products := new(mockProductReader)
			products.On("GetByID", mock.Anything, uint(1)).Return(tt.product, tt.productErr)

			v := NewInventoryValidator(products, logger.NewLogger())
			result := v.Validate(context.Background(), []subscription.Item{mustItem(t, 1, tt.quantity)})

			assert.Empty(t, result.Available)
			require.Len(t, result.Skipped, 1)
			assert.Equal(t, tt.wantReason, result.Skipped[0].Reason)
			assert.Equal(t, uint(1), result.Skipped[0].ProductID)
			assert.Equal(t, tt.quantity, result.Skipped[0].Quantity)
			assert.Equal(t, int64(0), result.SubtotalCents)
			assert.False(t, result.HasAvailableItems())
		})
	}
}

func TestInventoryValidator_Validate_LookupFailureDoesNotAbort(t *testing.T) {
	products := new(mockProductReader)
	products.On("GetByID", mock.Anything, uint(1)).Return(nil, errors.New("timeout"))
	products.On("GetByID", mock.Anything, uint(2)).
		Return(mustProduct(t, 2, "Filters", 499, true, true, nil), nil)

	v := NewInventoryValidator(products, logger.NewLogger())
	result := v.Validate(context.Background(), []subscription.Item{
		mustItem(t, 1, 1),
		mustItem(t, 2, 3),
	})

	require.Len(t, result.Available, 1)
	require.Len(t, result.Skipped, 1)
	assert.Equal(t, "error checking availability", result.Skipped[0].Reason)
	assert.Equal(t, int64(3*499), result.SubtotalCents)
}

func TestInventoryValidator_Validate_UntrackedStockAlwaysSatisfies(t *testing.T) {
	products := new(mockProductReader)
	products.On("GetByID", mock.Anything, uint(1)).
		Return(mustProduct(t, 1, "Made To Order", 1250, true, true, nil), nil)

	v := NewInventoryValidator(products, logger.NewLogger())
	result := v.Validate(context.Background(), []subscription.Item{mustItem(t, 1, 1000)})

	require.Len(t, result.Available, 1)
	assert.Equal(t, int64(1000*1250), result.SubtotalCents)
}

func TestInventoryValidator_Validate_Idempotent(t *testing.T) {
	products := new(mockProductReader)
	products.On("GetByID", mock.Anything, uint(1)).
		Return(mustProduct(t, 1, "Coffee Beans", 2999, true, true, intPtr(10)), nil)

	v := NewInventoryValidator(products, logger.NewLogger())
	items := []subscription.Item{mustItem(t, 1, 2)}

	first := v.Validate(context.Background(), items)
	second := v.Validate(context.Background(), items)

	assert.Equal(t, first, second)
}
