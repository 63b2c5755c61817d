// Package pricing derives order totals from a cart snapshot. All functions
// are pure: same snapshot and policy in, same totals out.
package pricing

import (
	"github.com/shopspring/decimal"

	"github.com/verdora/storefront/internal/domain/cart"
)

// Policy is the pricing configuration. It is configuration, not user data.
type Policy struct {
	// FreeShippingThreshold is the subtotal at or above which the shipping
	// fee is waived.
	FreeShippingThreshold decimal.Decimal
	// FlatShippingFee applies when 0 < subtotal < FreeShippingThreshold.
	// An empty cart ships for free regardless of the threshold.
	FlatShippingFee decimal.Decimal
}

// UnitEffectivePrice returns the price actually charged for one unit of the
// line: the sale price when present and strictly below the list price, the
// list price otherwise. A sale price at or above list is treated as absent;
// the source data does not always guarantee the relation.
func UnitEffectivePrice(l cart.Line) decimal.Decimal {
	if l.OnSale() {
		return l.SalePrice
	}
	return l.UnitPrice
}

// Subtotal returns the sum of effective price times quantity across all lines.
func Subtotal(s cart.Snapshot) decimal.Decimal {
	sum := decimal.Zero
	for _, l := range s.Lines {
		qty := decimal.NewFromInt(int64(l.Quantity))
		sum = sum.Add(UnitEffectivePrice(l).Mul(qty))
	}
	return sum
}

// ShippingFee returns zero for an empty cart or a subtotal at or above the
// free-shipping threshold, and the flat fee otherwise.
func ShippingFee(s cart.Snapshot, p Policy) decimal.Decimal {
	sub := Subtotal(s)
	if sub.IsZero() || sub.GreaterThanOrEqual(p.FreeShippingThreshold) {
		return decimal.Zero
	}
	return p.FlatShippingFee
}

// GrandTotal returns subtotal plus shipping fee.
func GrandTotal(s cart.Snapshot, p Policy) decimal.Decimal {
	return Subtotal(s).Add(ShippingFee(s, p))
}

// Quote bundles the derived totals for one snapshot.
type Quote struct {
	ItemCount   int
	Subtotal    decimal.Decimal
	ShippingFee decimal.Decimal
	GrandTotal  decimal.Decimal
}

// Calculate derives the full quote in one pass over the snapshot.
func Calculate(s cart.Snapshot, p Policy) Quote {
	sub := Subtotal(s)
	fee := decimal.Zero
	if !sub.IsZero() && sub.LessThan(p.FreeShippingThreshold) {
		fee = p.FlatShippingFee
	}
	return Quote{
		ItemCount:   s.ItemCount(),
		Subtotal:    sub,
		ShippingFee: fee,
		GrandTotal:  sub.Add(fee),
	}
}
