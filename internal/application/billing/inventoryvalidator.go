// Package billing contains the recurring-delivery billing engine: inventory
// validation, the off-session payment gateway adapter, and the renewal and
// retry orchestration use cases.
package billing

import (
	"context"
	"errors"
	"fmt"

	"github.com/crateful-io/crateful/internal/domain/catalog"
	"github.com/crateful-io/crateful/internal/domain/subscription"
	"github.com/crateful-io/crateful/internal/shared/logger"
)

// Exclusion reasons recorded on skipped items. These are user-facing strings
// carried into billing events and notifications.
const (
	ReasonNotFound     = "not found in catalog"
	ReasonDiscontinued = "discontinued"
	ReasonOutOfStock   = "out of stock"
	ReasonLookupFailed = "error checking availability"
)

// AvailableItem is a subscription item that can be charged this cycle, with
// the current catalog price resolved.
type AvailableItem struct {
	ProductID      uint
	Name           string
	Quantity       int
	UnitPriceCents int64
}

// LineTotalCents returns unit price times quantity.
func (a AvailableItem) LineTotalCents() int64 {
	return a.UnitPriceCents * int64(a.Quantity)
}

// ValidationResult partitions a subscription's items for one cycle.
type ValidationResult struct {
	Available     []AvailableItem
	Skipped       []subscription.SkippedItem
	SubtotalCents int64
}

// HasAvailableItems reports whether anything can be charged this cycle.
func (r *ValidationResult) HasAvailableItems() bool {
	return len(r.Available) > 0
}

// InventoryValidator checks a subscription's items against the live catalog
// and prices the purchasable subset. It only reads; it never mutates.
type InventoryValidator struct {
	products catalog.ProductReader
	logger   logger.Interface
}

func NewInventoryValidator(products catalog.ProductReader, logger logger.Interface) *InventoryValidator {
	return &InventoryValidator{
		products: products,
		logger:   logger,
	}
}

// Validate partitions items into available and skipped, summing the subtotal
// over available items at current catalog prices. A catalog lookup failure
// excludes that item but never aborts validation of the rest.
func (v *InventoryValidator) Validate(ctx context.Context, items []subscription.Item) *ValidationResult {
	result := &ValidationResult{}

	for _, item := range items {
		product, err := v.products.GetByID(ctx, item.ProductID())
		switch {
		case errors.Is(err, catalog.ErrProductNotFound):
			result.Skipped = append(result.Skipped, skippedItem(item, ReasonNotFound))
			continue
		case err != nil:
			v.logger.Warnw("catalog lookup failed during inventory validation",
				"product_id", item.ProductID(),
				"error", err,
			)
			result.Skipped = append(result.Skipped, skippedItem(item, ReasonLookupFailed))
			continue
		}

		// Exclusion rules, first match wins.
		switch {
		case !product.IsActive():
			result.Skipped = append(result.Skipped, skippedItem(item, ReasonDiscontinued))
		case !product.InStock():
			result.Skipped = append(result.Skipped, skippedItem(item, ReasonOutOfStock))
		case !product.HasStockFor(item.Quantity()):
			reason := fmt.Sprintf("insufficient stock (%d available, %d needed)",
				*product.StockCount(), item.Quantity())
			result.Skipped = append(result.Skipped, skippedItem(item, reason))
		default:
			available := AvailableItem{
				ProductID:      product.ID(),
				Name:           product.Name(),
				Quantity:       item.Quantity(),
				UnitPriceCents: product.PriceCents(),
			}
			result.Available = append(result.Available, available)
			result.SubtotalCents += available.LineTotalCents()
		}
	}

	return result
}

func skippedItem(item subscription.Item, reason string) subscription.SkippedItem {
	return subscription.SkippedItem{
		ProductID: item.ProductID(),
		Quantity:  item.Quantity(),
		Reason:    reason,
	}
}
