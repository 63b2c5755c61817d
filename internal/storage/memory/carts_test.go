package memory

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verdora/storefront/internal/domain/cart"
)

func TestLoadMissingClient(t *testing.T) {
	s := NewCartStore()

	rec, err := s.Load(context.Background(), "nobody")

	require.NoError(t, err)
	assert.Equal(t, cart.RecordVersion, rec.Version)
	assert.Empty(t, rec.Lines)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := NewCartStore()

	rec := cart.Record{
		Version: cart.RecordVersion,
		Lines: []cart.RecordLine{
			{
				ProductID: "monstera-deliciosa",
				Quantity:  2,
				Name:      "Monstera Deliciosa",
				UnitPrice: decimal.RequireFromString("450000"),
				Stock:     5,
			},
		},
	}
	require.NoError(t, s.Save(ctx, "client-1", rec))

	got, err := s.Load(ctx, "client-1")
	require.NoError(t, err)
	assert.Equal(t, rec, got)

	// Other clients remain isolated.
	other, err := s.Load(ctx, "client-2")
	require.NoError(t, err)
	assert.Empty(t, other.Lines)
}

func TestRecordsDoNotShareBackingSlices(t *testing.T) {
	ctx := context.Background()
	s := NewCartStore()

	rec := cart.Record{
		Version: cart.RecordVersion,
		Lines:   []cart.RecordLine{{ProductID: "snake-plant", Quantity: 1}},
	}
	require.NoError(t, s.Save(ctx, "client-1", rec))

	// Mutating the caller's slice after save must not leak into the store.
	rec.Lines[0].Quantity = 99

	got, err := s.Load(ctx, "client-1")
	require.NoError(t, err)
	assert.Equal(t, 1, got.Lines[0].Quantity)

	// Nor should mutating a loaded record affect later loads.
	got.Lines[0].Quantity = 42
	again, err := s.Load(ctx, "client-1")
	require.NoError(t, err)
	assert.Equal(t, 1, again.Lines[0].Quantity)
}
