package domain

import "time"

type Stock struct {
	ProductID int `json:"id"`
	Amount    int `json:"amount"`
}

// Inventory is the stored stock row for a product.
type Inventory struct {
	ProductID int
	Quantity  int
	Version   int // bumped on every write
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (i Inventory) Stock() Stock {
	return Stock{ProductID: i.ProductID, Amount: i.Quantity}
}
