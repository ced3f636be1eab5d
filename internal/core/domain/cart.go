package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// LineItem is one product in the cart. The product fields are copied
// from the catalog when the item is first added and never refreshed.
type LineItem struct {
	Product
	Amount int `json:"amount"`
}

func (li LineItem) Total() decimal.Decimal {
	return li.Price.Mul(decimal.NewFromInt(int64(li.Amount)))
}

// Cart is an ordered list of line items, unique by product ID.
type Cart []LineItem

// Find returns the index of productID in the cart or -1.
func (c Cart) Find(productID int) int {
	for i := range c {
		if c[i].ID == productID {
			return i
		}
	}
	return -1
}

func (c Cart) Clone() Cart {
	out := make(Cart, len(c))
	copy(out, c)
	return out
}

// Count is the number of units across all items.
func (c Cart) Count() int {
	n := 0
	for _, item := range c {
		n += item.Amount
	}
	return n
}

func (c Cart) Subtotal() decimal.Decimal {
	total := decimal.Zero
	for _, item := range c {
		total = total.Add(item.Total())
	}
	return total
}

// Validate checks the invariants a stored snapshot must satisfy before
// it is trusted: positive amounts and no duplicate products.
func (c Cart) Validate() error {
	seen := make(map[int]struct{}, len(c))
	for _, item := range c {
		if item.Amount < 1 {
			return fmt.Errorf("product %d: amount %d is not positive", item.ID, item.Amount)
		}
		if _, dup := seen[item.ID]; dup {
			return fmt.Errorf("product %d: duplicate line item", item.ID)
		}
		seen[item.ID] = struct{}{}
	}
	return nil
}
