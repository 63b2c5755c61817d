// Package order defines the order payload handed to the external
// order-creation collaborator. Order processing itself lives outside this
// system.
package order

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Order is the submission payload for one checkout: the priced lines, the
// computed totals, and the customer-supplied shipping information.
type Order struct {
	ID          string
	ClientID    string
	Lines       []Line
	Subtotal    decimal.Decimal
	ShippingFee decimal.Decimal
	Total       decimal.Decimal
	Customer    Customer
	CreatedAt   time.Time
}

// Line is one priced line item of an order. UnitPrice is the effective price
// validated against the live catalog at checkout time.
type Line struct {
	ProductID string          `json:"productId"`
	Name      string          `json:"name"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
}

// Customer holds the shipping information supplied at submission.
type Customer struct {
	Name    string
	Phone   string
	Address string
	Note    string
}

// Repository is the external order-creation collaborator.
type Repository interface {
	Create(ctx context.Context, o *Order) error
}
