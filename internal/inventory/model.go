package inventory

import "github.com/shopspring/decimal"

// Product carries only the stock-relevant columns of a catalog product.
type Product struct {
	ID        int64           `json:"id"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Stock     int             `json:"stock"`
	SoldCount int             `json:"soldCount"`
}

// Covers reports whether the product can satisfy qty units right now.
func (p *Product) Covers(qty int) bool {
	return qty <= p.Stock
}
