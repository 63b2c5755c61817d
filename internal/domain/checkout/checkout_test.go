package checkout

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verdora/storefront/internal/domain/cart"
	"github.com/verdora/storefront/internal/domain/catalog"
	"github.com/verdora/storefront/internal/domain/order"
	"github.com/verdora/storefront/internal/domain/pricing"
)

func d(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

var policy = pricing.Policy{
	FreeShippingThreshold: d("500000"),
	FlatShippingFee:       d("50000"),
}

// fakeCatalog serves products from a mutable map, standing in for the live
// catalog that may have drifted since the cart lines were snapshotted.
type fakeCatalog struct {
	mu       sync.Mutex
	products map[string]catalog.Product
	err      error
}

func newFakeCatalog(products ...catalog.Product) *fakeCatalog {
	m := make(map[string]catalog.Product, len(products))
	for _, p := range products {
		m[p.ID] = p
	}
	return &fakeCatalog{products: m}
}

func (f *fakeCatalog) set(p catalog.Product) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.products[p.ID] = p
}

func (f *fakeCatalog) remove(id string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.products, id)
}

func (f *fakeCatalog) List(context.Context, catalog.Filter) ([]catalog.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]catalog.Product, 0, len(f.products))
	for _, p := range f.products {
		out = append(out, p)
	}
	return out, nil
}

func (f *fakeCatalog) GetByID(_ context.Context, id string) (*catalog.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.products[id]
	if !ok {
		return nil, catalog.ErrNotFound
	}
	return &p, nil
}

func (f *fakeCatalog) GetByIDs(_ context.Context, ids []string) ([]catalog.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	out := make([]catalog.Product, 0, len(ids))
	for _, id := range ids {
		if p, ok := f.products[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

// fakeOrders records created orders; optionally fails, optionally blocks
// until released so tests can hold a submission in flight.
type fakeOrders struct {
	mu      sync.Mutex
	created []*order.Order
	err     error
	block   chan struct{}
}

func (f *fakeOrders) Create(_ context.Context, o *order.Order) error {
	if f.block != nil {
		<-f.block
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.created = append(f.created, o)
	return nil
}

func (f *fakeOrders) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.created)
}

var (
	monstera = catalog.Product{
		ID:    "monstera-deliciosa",
		Name:  "Monstera Deliciosa",
		Price: d("450000"),
		Stock: 5,
	}
	snakePlant = catalog.Product{
		ID:        "snake-plant",
		Name:      "Snake Plant",
		Price:     d("120000"),
		SalePrice: d("99000"),
		Stock:     3,
	}
)

type fixture struct {
	cart    *cart.Store
	catalog *fakeCatalog
	orders  *fakeOrders
	coord   *Coordinator
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		cart:    cart.New("client-1", memoryPersist{}),
		catalog: newFakeCatalog(monstera, snakePlant),
		orders:  &fakeOrders{},
	}
	f.coord = New(f.cart, f.catalog, f.orders, policy,
		WithClock(func() time.Time {
			return time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)
		}),
	)
	return f
}

type memoryPersist struct{}

func (memoryPersist) Load(context.Context, string) (cart.Record, error) {
	return cart.EmptyRecord(), nil
}
func (memoryPersist) Save(context.Context, string, cart.Record) error { return nil }

var customer = order.Customer{
	Name:    "Lan Pham",
	Phone:   "+84 90 000 0000",
	Address: "12 Nguyen Trai, Hanoi",
}

func TestSubmitSuccess(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	f.cart.AddItem(ctx, monstera, 1)
	f.cart.AddItem(ctx, snakePlant, 2)

	res, err := f.coord.Submit(ctx, customer)
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.NotEmpty(t, res.OrderID)

	// 450000 + 2*99000 (sale price), above the free shipping threshold.
	assert.Equal(t, 3, res.Quote.ItemCount)
	assert.True(t, res.Quote.Subtotal.Equal(d("648000")), "subtotal %s", res.Quote.Subtotal)
	assert.True(t, res.Quote.ShippingFee.IsZero())
	assert.True(t, res.Quote.GrandTotal.Equal(d("648000")))

	// The cart clears on confirmed success only.
	assert.True(t, f.cart.Snapshot().Empty())

	require.Equal(t, 1, f.orders.count())
	o := f.orders.created[0]
	assert.Equal(t, res.OrderID, o.ID)
	assert.Equal(t, "client-1", o.ClientID)
	assert.Equal(t, customer, o.Customer)
	assert.Equal(t, time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC), o.CreatedAt)
	require.Len(t, o.Lines, 2)
	assert.True(t, o.Lines[1].UnitPrice.Equal(d("99000")))

	assert.Equal(t, StateIdle, f.coord.State())
}

func TestSubmitEmptyCart(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	res, err := f.coord.Submit(ctx, customer)

	require.ErrorIs(t, err, ErrEmptyCart)
	assert.Nil(t, res)
	assert.Zero(t, f.orders.count())
	assert.Equal(t, StateIdle, f.coord.State())
}

func TestSubmitStaleStock(t *testing.T) {
	ctx := context.Background()

	t.Run("stock shrank below quantity", func(t *testing.T) {
		f := newFixture(t)
		f.cart.AddItem(ctx, monstera, 3)

		shrunk := monstera
		shrunk.Stock = 1
		f.catalog.set(shrunk)

		_, err := f.coord.Submit(ctx, customer)

		var stale *StaleStockError
		require.ErrorAs(t, err, &stale)
		assert.Equal(t, monstera.ID, stale.ProductID)
		assert.Equal(t, 3, stale.Requested)
		assert.Equal(t, 1, stale.Available)

		// Cart preserved for the user to adjust.
		assert.Equal(t, 3, f.cart.Snapshot().ItemCount())
		assert.Zero(t, f.orders.count())
	})

	t.Run("product removed from catalog", func(t *testing.T) {
		f := newFixture(t)
		f.cart.AddItem(ctx, monstera, 1)
		f.catalog.remove(monstera.ID)

		_, err := f.coord.Submit(ctx, customer)

		var stale *StaleStockError
		require.ErrorAs(t, err, &stale)
		assert.Equal(t, 0, stale.Available)
		assert.Equal(t, 1, f.cart.Snapshot().ItemCount())
	})
}

func TestSubmitPriceChanged(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name   string
		mutate func(catalog.Product) catalog.Product
	}{
		{
			name: "list price raised",
			mutate: func(p catalog.Product) catalog.Product {
				p.Price = d("480000")
				return p
			},
		},
		{
			name: "list price dropped",
			mutate: func(p catalog.Product) catalog.Product {
				p.Price = d("399000")
				return p
			},
		},
		{
			name: "sale started since adding",
			mutate: func(p catalog.Product) catalog.Product {
				p.SalePrice = d("400000")
				return p
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.cart.AddItem(ctx, monstera, 1)
			f.catalog.set(tt.mutate(monstera))

			_, err := f.coord.Submit(ctx, customer)

			var changed *PriceChangedError
			require.ErrorAs(t, err, &changed)
			assert.Equal(t, monstera.ID, changed.ProductID)
			assert.True(t, changed.Was.Equal(d("450000")))

			// Blocked, not silently repriced: cart intact, no order.
			assert.Equal(t, 1, f.cart.Snapshot().ItemCount())
			assert.Zero(t, f.orders.count())
		})
	}
}

func TestSubmitCatalogUnavailable(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.cart.AddItem(ctx, monstera, 1)
	f.catalog.err = errors.New("connection refused")

	_, err := f.coord.Submit(ctx, customer)

	require.Error(t, err)
	assert.Equal(t, 1, f.cart.Snapshot().ItemCount())
	assert.Equal(t, StateIdle, f.coord.State())
}

func TestSubmitOrderCreateFailurePreservesCart(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.cart.AddItem(ctx, monstera, 2)
	f.orders.err = errors.New("orders service down")

	res, err := f.coord.Submit(ctx, customer)

	require.Error(t, err)
	assert.Nil(t, res)
	assert.Equal(t, 2, f.cart.Snapshot().ItemCount())
	assert.Equal(t, StateIdle, f.coord.State())

	// Retry succeeds once the collaborator recovers; the cart clears then.
	f.orders.err = nil
	res, err = f.coord.Submit(ctx, customer)
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.True(t, f.cart.Snapshot().Empty())
}

func TestSubmitInFlightRejected(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.cart.AddItem(ctx, monstera, 1)

	f.orders.block = make(chan struct{})

	firstDone := make(chan error, 1)
	go func() {
		_, err := f.coord.Submit(ctx, customer)
		firstDone <- err
	}()

	// Wait until the first submission is past validation and parked in the
	// order collaborator.
	require.Eventually(t, func() bool {
		return f.coord.State() == StateSubmitting
	}, time.Second, time.Millisecond)

	_, err := f.coord.Submit(ctx, customer)
	assert.ErrorIs(t, err, ErrSubmitInFlight)

	close(f.orders.block)
	require.NoError(t, <-firstDone)
	assert.Equal(t, 1, f.orders.count())
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "idle", StateIdle.String())
	assert.Equal(t, "validating", StateValidating.String())
	assert.Equal(t, "submitting", StateSubmitting.String())
}
