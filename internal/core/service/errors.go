package service

import (
	"errors"
	"fmt"
)

var (
	ErrProductNotFound     = errors.New("product not found")
	ErrStockUnavailable    = errors.New("product out of stock")
	ErrStockExceeded       = errors.New("requested amount exceeds stock")
	ErrProductLookupFailed = errors.New("product lookup failed")
	ErrStockLookupFailed   = errors.New("stock lookup failed")
	ErrInvalidAmount       = errors.New("amount must be positive")
	ErrItemNotInCart       = errors.New("item not in cart")
	ErrPersistFailed       = errors.New("cart snapshot not saved")
)

type Op string

const (
	OpAddItem    Op = "add_item"
	OpRemoveItem Op = "remove_item"
	OpSetAmount  Op = "set_amount"
)

// CartError describes a rejected mutation. Kind is one of the sentinel
// errors above, so callers can branch with errors.Is.
type CartError struct {
	Op        Op
	ProductID int
	Kind      error
	Err       error
}

func (e *CartError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s product %d: %v: %v", e.Op, e.ProductID, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s product %d: %v", e.Op, e.ProductID, e.Kind)
}

func (e *CartError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// Message is the one-line text shown to the shopper.
func (e *CartError) Message() string {
	switch e.Kind {
	case ErrStockUnavailable, ErrStockExceeded:
		return "requested quantity out of stock"
	case ErrInvalidAmount:
		return "quantity must be positive"
	case ErrPersistFailed:
		return "error saving cart"
	}

	switch e.Op {
	case OpAddItem:
		return "error adding product"
	case OpRemoveItem:
		return "error removing product"
	default:
		return "error updating product amount"
	}
}
