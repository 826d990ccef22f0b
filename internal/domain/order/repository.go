package order

import "context"

type OrderRepository interface {
	Create(ctx context.Context, o *Order) error
	GetByID(ctx context.Context, id uint) (*Order, error)
	GetByOID(ctx context.Context, oid string) (*Order, error)
	GetBySubscriptionID(ctx context.Context, subscriptionID uint) ([]*Order, error)
}
