package migration

import (
	"github.com/crateful-io/crateful/internal/infrastructure/persistence/models"
)

func AutoMigrateModels() []interface{} {
	return []interface{}{
		&models.UserModel{},
		&models.ProductModel{},
		&models.SubscriptionModel{},
		&models.SubscriptionItemModel{},
		&models.BillingEventModel{},
		&models.OrderModel{},
	}
}
