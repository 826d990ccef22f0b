package subscription

import "fmt"

// Item is one product line on a subscription. No price is stored here:
// price is always resolved from the catalog at renewal time.
type Item struct {
	productID uint
	quantity  int
}

// NewItem creates a subscription item. Quantity must be at least 1.
func NewItem(productID uint, quantity int) (Item, error) {
	if productID == 0 {
		return Item{}, fmt.Errorf("product ID is required")
	}
	if quantity < 1 {
		return Item{}, fmt.Errorf("quantity must be at least 1")
	}
	return Item{productID: productID, quantity: quantity}, nil
}

// ReconstructItem rebuilds an item from persistence.
func ReconstructItem(productID uint, quantity int) Item {
	return Item{productID: productID, quantity: quantity}
}

func (i Item) ProductID() uint {
	return i.productID
}

func (i Item) Quantity() int {
	return i.quantity
}
