package catalog

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func d(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

func TestOnSaleAndEffectivePrice(t *testing.T) {
	tests := []struct {
		name      string
		price     string
		salePrice string
		wantSale  bool
		wantPrice string
	}{
		{
			name:      "no sale price",
			price:     "450000",
			salePrice: "0",
			wantSale:  false,
			wantPrice: "450000",
		},
		{
			name:      "sale price below list",
			price:     "120000",
			salePrice: "99000",
			wantSale:  true,
			wantPrice: "99000",
		},
		{
			name:      "sale price equal to list is not a sale",
			price:     "120000",
			salePrice: "120000",
			wantSale:  false,
			wantPrice: "120000",
		},
		{
			name:      "sale price above list is ignored",
			price:     "120000",
			salePrice: "130000",
			wantSale:  false,
			wantPrice: "120000",
		},
		{
			name:      "negative sale price is ignored",
			price:     "120000",
			salePrice: "-1",
			wantSale:  false,
			wantPrice: "120000",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := Product{Price: d(tt.price), SalePrice: d(tt.salePrice)}
			assert.Equal(t, tt.wantSale, p.OnSale())
			assert.True(t, p.EffectivePrice().Equal(d(tt.wantPrice)))
		})
	}
}
