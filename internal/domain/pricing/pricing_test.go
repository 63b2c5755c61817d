package pricing

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/verdora/storefront/internal/domain/cart"
)

func d(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

var policy = Policy{
	FreeShippingThreshold: d("500000"),
	FlatShippingFee:       d("50000"),
}

func line(id string, qty int, price, salePrice string) cart.Line {
	l := cart.Line{ProductID: id, Quantity: qty, UnitPrice: d(price)}
	if salePrice != "" {
		l.SalePrice = d(salePrice)
	}
	return l
}

func TestUnitEffectivePrice(t *testing.T) {
	tests := []struct {
		name string
		line cart.Line
		want string
	}{
		{
			name: "no sale price uses list price",
			line: line("p1", 1, "450000", ""),
			want: "450000",
		},
		{
			name: "sale price below list wins",
			line: line("p1", 1, "120000", "99000"),
			want: "99000",
		},
		{
			name: "sale price equal to list is ignored",
			line: line("p1", 1, "120000", "120000"),
			want: "120000",
		},
		{
			name: "sale price above list is ignored",
			line: line("p1", 1, "120000", "150000"),
			want: "120000",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := UnitEffectivePrice(tt.line)
			assert.True(t, got.Equal(d(tt.want)), "got %s want %s", got, tt.want)
		})
	}
}

func TestQuote(t *testing.T) {
	tests := []struct {
		name         string
		lines        []cart.Line
		wantCount    int
		wantSubtotal string
		wantShipping string
		wantTotal    string
	}{
		{
			name:         "empty cart ships free with zero totals",
			lines:        nil,
			wantCount:    0,
			wantSubtotal: "0",
			wantShipping: "0",
			wantTotal:    "0",
		},
		{
			name: "below threshold pays flat fee",
			lines: []cart.Line{
				line("monstera-deliciosa", 1, "450000", ""),
			},
			wantCount:    1,
			wantSubtotal: "450000",
			wantShipping: "50000",
			wantTotal:    "500000",
		},
		{
			name: "sale prices drop subtotal below list total",
			lines: []cart.Line{
				line("monstera-deliciosa", 1, "450000", ""),
				line("snake-plant", 2, "120000", "99000"),
			},
			wantCount:    3,
			wantSubtotal: "648000",
			wantShipping: "0",
			wantTotal:    "648000",
		},
		{
			name: "exactly at threshold ships free",
			lines: []cart.Line{
				line("monstera-deliciosa", 1, "450000", ""),
				line("golden-pothos", 1, "50000", ""),
			},
			wantCount:    2,
			wantSubtotal: "500000",
			wantShipping: "0",
			wantTotal:    "500000",
		},
		{
			name: "one unit below threshold pays fee",
			lines: []cart.Line{
				line("monstera-deliciosa", 1, "449999.99", ""),
				line("golden-pothos", 1, "50000", ""),
			},
			wantCount:    2,
			wantSubtotal: "499999.99",
			wantShipping: "50000",
			wantTotal:    "549999.99",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snap := cart.Snapshot{Lines: tt.lines}
			q := Calculate(snap, policy)

			assert.Equal(t, tt.wantCount, q.ItemCount)
			assert.True(t, q.Subtotal.Equal(d(tt.wantSubtotal)), "subtotal %s", q.Subtotal)
			assert.True(t, q.ShippingFee.Equal(d(tt.wantShipping)), "shipping %s", q.ShippingFee)
			assert.True(t, q.GrandTotal.Equal(d(tt.wantTotal)), "total %s", q.GrandTotal)

			// Calculate agrees with the standalone functions.
			assert.True(t, q.Subtotal.Equal(Subtotal(snap)))
			assert.True(t, q.ShippingFee.Equal(ShippingFee(snap, policy)))
			assert.True(t, q.GrandTotal.Equal(GrandTotal(snap, policy)))
		})
	}
}

func TestCalculateIsPure(t *testing.T) {
	snap := cart.Snapshot{Lines: []cart.Line{
		line("snake-plant", 3, "120000", "99000"),
	}}

	first := Calculate(snap, policy)
	second := Calculate(snap, policy)

	assert.True(t, first.Subtotal.Equal(second.Subtotal))
	assert.True(t, first.GrandTotal.Equal(second.GrandTotal))
	assert.Equal(t, first.ItemCount, second.ItemCount)
}
