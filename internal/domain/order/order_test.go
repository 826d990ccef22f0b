package order

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewFromRenewal(t *testing.T) {
	chargedAt := time.Date(2026, 9, 1, 6, 0, 0, 0, time.UTC)
	items := []LineItem{
		{ProductID: 1, Name: "Coffee Beans 1kg", UnitPriceCents: 2999, Quantity: 2},
	}

	ord, err := NewFromRenewal(
		42, 5,
		items,
		5998, 899,
		"1 Main St", "standard", "leave at door",
		PaymentRecord{TransactionID: "txn_abc", AmountCents: 6897, ChargedAt: chargedAt},
	)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(ord.OID(), "ord_"))
	assert.Equal(t, int64(6897), ord.TotalCents())
	assert.Equal(t, int64(5998), ord.SubtotalCents())
	assert.Equal(t, int64(899), ord.ShippingCents())
	assert.Equal(t, "txn_abc", ord.Payment().TransactionID)
	assert.Equal(t, int64(5998), ord.Items()[0].LineTotalCents())
}

func TestNewFromRenewal_AmountMismatch(t *testing.T) {
	items := []LineItem{{ProductID: 1, Name: "Coffee", UnitPriceCents: 1000, Quantity: 1}}

	_, err := NewFromRenewal(
		42, 5,
		items,
		1000, 899,
		"1 Main St", "standard", "",
		PaymentRecord{TransactionID: "txn_abc", AmountCents: 1000, ChargedAt: time.Now().UTC()},
	)
	assert.Error(t, err, "payment amount must equal subtotal plus shipping")
}

func TestNewFromRenewal_Validation(t *testing.T) {
	items := []LineItem{{ProductID: 1, Name: "Coffee", UnitPriceCents: 1000, Quantity: 1}}
	payment := PaymentRecord{TransactionID: "txn_abc", AmountCents: 1899, ChargedAt: time.Now().UTC()}

	_, err := NewFromRenewal(0, 5, items, 1000, 899, "addr", "standard", "", payment)
	assert.Error(t, err)

	_, err = NewFromRenewal(42, 0, items, 1000, 899, "addr", "standard", "", payment)
	assert.Error(t, err)

	_, err = NewFromRenewal(42, 5, nil, 1000, 899, "addr", "standard", "", payment)
	assert.Error(t, err)

	_, err = NewFromRenewal(42, 5, items, 1000, 899, "addr", "standard", "",
		PaymentRecord{AmountCents: 1899, ChargedAt: time.Now().UTC()})
	assert.Error(t, err)
}
