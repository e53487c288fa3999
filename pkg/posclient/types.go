package posclient

import "time"

// Product is the catalog subset attached to each cart line.
type Product struct {
	ID         uint    `json:"id"`
	Name       string  `json:"name"`
	Code       string  `json:"code"`
	Barcode    string  `json:"barcode"`
	RetailRate float64 `json:"retail_rate"`
	Category   string  `json:"category"`
	ImageURL   string  `json:"image_url"`
	Stock      *int    `json:"stock"` // nil when not stock-tracked
	LowStock   bool    `json:"low_stock"`
	IsActive   bool    `json:"is_active"`
}

type CartLine struct {
	ProductID uint     `json:"product_id"`
	Name      string   `json:"name"`
	Price     float64  `json:"price"`
	Quantity  int      `json:"quantity"`
	Subtotal  float64  `json:"subtotal"`
	Product   *Product `json:"product,omitempty"`
}

type Cart struct {
	ID        uint       `json:"id,omitempty"`
	UserID    uint       `json:"user_id"`
	Items     []CartLine `json:"items"`
	Total     float64    `json:"total"`
	Version   int        `json:"version"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
}

// ItemCount is the number of units across all lines.
func (c *Cart) ItemCount() int {
	n := 0
	for _, line := range c.Items {
		n += line.Quantity
	}
	return n
}

func (c *Cart) clone() *Cart {
	out := *c
	out.Items = make([]CartLine, len(c.Items))
	copy(out.Items, c.Items)
	return &out
}

// Event is a server push received over the cart websocket.
type Event struct {
	Type string `json:"type"`
	Cart *Cart  `json:"cart,omitempty"`
}

const EventCartUpdated = "cart.updated"
