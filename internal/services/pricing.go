package services

import (
	"github.com/shopspring/decimal"

	"storefront-service/internal/models"
)

// PricingConfig holds the storefront tax and shipping policy
type PricingConfig struct {
	TaxRate               float64
	FreeShippingThreshold float64
	FlatShippingRate      float64
}

func DefaultPricingConfig() PricingConfig {
	return PricingConfig{
		TaxRate:               0.08,
		FreeShippingThreshold: 75,
		FlatShippingRate:      9.99,
	}
}

// PricedLine is the unit price and quantity of one cart or order line
type PricedLine struct {
	UnitPrice float64
	Quantity  int
}

// LineTotal returns price×qty rounded to cents
func LineTotal(unitPrice float64, quantity int) float64 {
	return decimal.NewFromFloat(unitPrice).Mul(decimal.NewFromInt(int64(quantity))).Round(2).InexactFloat64()
}

// CalculateTotals prices a set of lines. Every component is rounded to cents
// before the total is summed, so total == subtotal + tax + shipping exactly.
func CalculateTotals(lines []PricedLine, cfg PricingConfig) models.CartTotals {
	subtotal := decimal.Zero
	items := 0
	for _, l := range lines {
		subtotal = subtotal.Add(decimal.NewFromFloat(l.UnitPrice).Mul(decimal.NewFromInt(int64(l.Quantity))))
		items += l.Quantity
	}
	subtotal = subtotal.Round(2)

	tax := subtotal.Mul(decimal.NewFromFloat(cfg.TaxRate)).Round(2)

	shipping := decimal.Zero
	free := len(lines) == 0 || subtotal.GreaterThanOrEqual(decimal.NewFromFloat(cfg.FreeShippingThreshold))
	if !free {
		shipping = decimal.NewFromFloat(cfg.FlatShippingRate).Round(2)
	}

	total := subtotal.Add(tax).Add(shipping)

	return models.CartTotals{
		Subtotal:       subtotal.InexactFloat64(),
		TaxAmount:      tax.InexactFloat64(),
		ShippingAmount: shipping.InexactFloat64(),
		Total:          total.InexactFloat64(),
		ItemCount:      items,
		FreeShipping:   free,
	}
}

// CartLines converts cart rows with loaded products into priced lines
func CartLines(items []models.CartItem) []PricedLine {
	lines := make([]PricedLine, 0, len(items))
	for _, item := range items {
		if item.Product == nil {
			continue
		}
		lines = append(lines, PricedLine{UnitPrice: item.Product.Price, Quantity: item.Quantity})
	}
	return lines
}
