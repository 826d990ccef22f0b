package catalog

import (
	"context"
	"errors"
)

// ErrProductNotFound marks a product id that no longer resolves in the
// catalog. Callers treat it as a business exclusion, not a failure.
var ErrProductNotFound = errors.New("product not found in catalog")

// ProductReader is the read-only catalog lookup consumed at renewal time.
type ProductReader interface {
	GetByID(ctx context.Context, id uint) (*Product, error)
}
