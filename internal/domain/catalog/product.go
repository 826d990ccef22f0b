// Package catalog exposes the read-only product view consumed by the
// billing engine. Catalog management mutates products elsewhere; from this
// core's perspective a product is a snapshot of availability and price.
package catalog

import "fmt"

// Product is the catalog read model used at renewal time.
type Product struct {
	dbID       uint
	name       string
	priceCents int64
	isActive   bool
	inStock    bool
	stockCount *int
}

// ReconstructProduct rebuilds a product from the catalog store.
func ReconstructProduct(id uint, name string, priceCents int64, isActive, inStock bool, stockCount *int) (*Product, error) {
	if id == 0 {
		return nil, fmt.Errorf("product ID cannot be zero")
	}
	if priceCents < 0 {
		return nil, fmt.Errorf("product price cannot be negative")
	}
	return &Product{
		dbID:       id,
		name:       name,
		priceCents: priceCents,
		isActive:   isActive,
		inStock:    inStock,
		stockCount: stockCount,
	}, nil
}

func (p *Product) ID() uint          { return p.dbID }
func (p *Product) Name() string      { return p.name }
func (p *Product) PriceCents() int64 { return p.priceCents }
func (p *Product) IsActive() bool    { return p.isActive }
func (p *Product) InStock() bool     { return p.inStock }

// StockCount returns the tracked stock count, or nil when the product does
// not track a finite count.
func (p *Product) StockCount() *int { return p.stockCount }

// HasStockFor reports whether the tracked stock covers the requested
// quantity. Products without a tracked count always satisfy the request.
func (p *Product) HasStockFor(quantity int) bool {
	if p.stockCount == nil {
		return true
	}
	return *p.stockCount >= quantity
}
