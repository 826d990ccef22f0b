package models

import (
	"time"

	"gorm.io/gorm"

	"github.com/crateful-io/crateful/internal/shared/constants"
)

// ProductModel is the catalog table read by the billing engine. Catalog
// management owns writes; billing only reads availability and price.
type ProductModel struct {
	ID         uint   `gorm:"primarykey"`
	Name       string `gorm:"not null;size:200"`
	PriceCents int64  `gorm:"not null"`
	IsActive   bool   `gorm:"not null;default:true;index:idx_product_active"`
	InStock    bool   `gorm:"not null;default:true"`
	StockCount *int
	CreatedAt  time.Time
	UpdatedAt  time.Time
	DeletedAt  gorm.DeletedAt `gorm:"index"`
}

// TableName specifies the table name for GORM
func (ProductModel) TableName() string {
	return constants.TableProducts
}
