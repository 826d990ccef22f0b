package valueobjects

import "fmt"

// DeliveryType selects the shipping tier for a subscription's deliveries.
type DeliveryType string

const (
	DeliveryStandard DeliveryType = "standard"
	DeliveryExpress  DeliveryType = "express"
	DeliverySameDay  DeliveryType = "same_day"
)

var validDeliveryTypes = map[DeliveryType]bool{
	DeliveryStandard: true,
	DeliveryExpress:  true,
	DeliverySameDay:  true,
}

// ParseDeliveryType validates and returns a DeliveryType.
func ParseDeliveryType(value string) (DeliveryType, error) {
	d := DeliveryType(value)
	if !validDeliveryTypes[d] {
		return "", fmt.Errorf("invalid delivery type: %s", value)
	}
	return d, nil
}

func (d DeliveryType) String() string {
	return string(d)
}

// ShippingFeeCents returns the flat shipping fee for this delivery tier in
// minor currency units. Unknown values fall back to the standard rate.
func (d DeliveryType) ShippingFeeCents() int64 {
	switch d {
	case DeliveryExpress:
		return 1599
	case DeliverySameDay:
		return 2999
	default:
		return 899
	}
}
