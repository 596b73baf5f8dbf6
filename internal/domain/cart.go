package domain

import "github.com/shopspring/decimal"

// Product is a catalog entry that can be put into the cart.
type Product struct {
	ID    int64            `json:"id"`
	Name  string           `json:"name"`
	Price *decimal.Decimal `json:"price,omitempty"` // nil is treated as 0
}

// CartLine is one distinct product in the cart with its running quantity.
type CartLine struct {
	LineID    string           `json:"line_id"`
	ProductID int64            `json:"product_id"`
	Name      string           `json:"name"`
	Price     *decimal.Decimal `json:"price,omitempty"`
	Qty       int              `json:"qty"`
}

// Subtotal returns Qty * Price, with an absent price counting as 0.
func (l CartLine) Subtotal() decimal.Decimal {
	if l.Price == nil {
		return decimal.Zero
	}
	return l.Price.Mul(decimal.NewFromInt(int64(l.Qty)))
}

// Cart is a read-only snapshot of the cart aggregate.
type Cart struct {
	Lines      []CartLine      `json:"lines"`
	TotalCount int             `json:"total_count"`
	TotalPrice decimal.Decimal `json:"total_price"`
}
