package model

import (
	"time"
)

// CartItem is one line of a cart. Name is captured from the catalog when
// the line is first added; Price is refreshed whenever the line is touched.
type CartItem struct {
	ProductID uint    `json:"product_id"`
	Name      string  `json:"name"`
	Price     float64 `json:"price"`
	Quantity  int     `json:"quantity"`
	Subtotal  float64 `json:"subtotal"`
}

// Cart is the per-user aggregate. Items keep insertion order and are
// stored as a JSON column so the whole cart is written in one UPDATE.
type Cart struct {
	ID        uint       `gorm:"primarykey" json:"id"`
	UserID    uint       `gorm:"uniqueIndex;not null" json:"user_id"`
	Items     []CartItem `gorm:"serializer:json;type:text" json:"items"`
	Total     float64    `gorm:"not null;default:0" json:"total"`
	Version   int        `gorm:"not null;default:1" json:"version"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

func (Cart) TableName() string {
	return "carts"
}

// FindItem returns the index of the line for productID, or -1.
func (c *Cart) FindItem(productID uint) int {
	for i := range c.Items {
		if c.Items[i].ProductID == productID {
			return i
		}
	}
	return -1
}

// CartLine is a cart item with the current catalog product attached.
type CartLine struct {
	CartItem
	Product *Product `json:"product,omitempty"`
}

// CartView is the cart as returned to clients.
type CartView struct {
	ID        uint       `json:"id,omitempty"`
	UserID    uint       `json:"user_id"`
	Items     []CartLine `json:"items"`
	Total     float64    `json:"total"`
	Version   int        `json:"version"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
}
