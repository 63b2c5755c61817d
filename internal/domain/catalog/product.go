package catalog

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when a requested product does not exist.
var ErrNotFound = errors.New("product not found")

// Product represents an item in the plant catalog.
//
// SalePrice is zero when the product is not on sale. The upstream catalog data
// does not guarantee sale prices sit below list prices, so consumers must go
// through OnSale/EffectivePrice instead of reading SalePrice directly.
type Product struct {
	ID        string
	Name      string
	Price     decimal.Decimal
	SalePrice decimal.Decimal
	Stock     int
	Category  string
	ImagePath string
}

// OnSale reports whether the product carries a usable sale price: present and
// strictly below the list price. A sale price at or above list is treated as
// absent.
func (p Product) OnSale() bool {
	return p.SalePrice.IsPositive() && p.SalePrice.LessThan(p.Price)
}

// EffectivePrice returns the price actually charged for one unit after
// sale-price precedence is applied.
func (p Product) EffectivePrice() decimal.Decimal {
	if p.OnSale() {
		return p.SalePrice
	}
	return p.Price
}

// Filter narrows List results. The zero value matches everything.
type Filter struct {
	Category string
}

// Repository defines read operations for the product catalog.
type Repository interface {
	List(ctx context.Context, f Filter) ([]Product, error)
	GetByID(ctx context.Context, id string) (*Product, error)
	GetByIDs(ctx context.Context, ids []string) ([]Product, error)
}
