package constants

const (
	// Environment constants
	EnvDevelopment = "development"
	EnvTest        = "test"
	EnvProduction  = "production"

	// Default pagination
	DefaultPage     = 1
	DefaultPageSize = 20
	MaxPageSize     = 100

	// Database table names
	TableUsers             = "users"
	TableProducts          = "products"
	TableSubscriptions     = "subscriptions"
	TableSubscriptionItems = "subscription_items"
	TableBillingEvents     = "subscription_billing_events"
	TableOrders            = "orders"
)
