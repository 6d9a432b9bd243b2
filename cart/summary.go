package cart

import (
	"github.com/ThanawawEikQ/dark-vista-shop/entities"

	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
)

var DefaultTaxRate = decimal.RequireFromString("0.1")

// Summarize prices a cart the way the cart and checkout pages show it:
// free shipping, tax as a fraction of the subtotal, amounts rounded to cents.
func Summarize(state entities.CartState, taxRate decimal.Decimal, cur currency.Unit) entities.Summary {
	subtotal := state.Total.Round(2)
	tax := state.Total.Mul(taxRate).Round(2)
	return entities.Summary{
		Subtotal: entities.Money{Amount: subtotal, Currency: cur},
		Shipping: entities.Money{Amount: decimal.Zero, Currency: cur},
		Tax:      entities.Money{Amount: tax, Currency: cur},
		Total:    entities.Money{Amount: subtotal.Add(tax), Currency: cur},
	}
}
