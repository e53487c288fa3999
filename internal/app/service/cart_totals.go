package service

import (
	"github.com/ikkim/pos-backend/internal/app/model"
	"github.com/shopspring/decimal"
)

// RecalculateTotals sets every line's subtotal to price * quantity and the
// cart total to the sum of subtotals. It must run after every mutation and
// before the cart is persisted; totals are never derived at read time.
// Arithmetic is done in decimal and stored back as float64.
func RecalculateTotals(cart *model.Cart) {
	total := decimal.Zero
	for i := range cart.Items {
		item := &cart.Items[i]
		subtotal := decimal.NewFromFloat(item.Price).Mul(decimal.NewFromInt(int64(item.Quantity)))
		item.Subtotal = subtotal.InexactFloat64()
		total = total.Add(subtotal)
	}
	cart.Total = total.InexactFloat64()
}
