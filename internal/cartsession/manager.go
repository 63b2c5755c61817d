// Package cartsession hands out one cart engine per client device, loading
// the persisted cart record on first use so the cart survives restarts.
package cartsession

import (
	"context"
	"sync"

	"github.com/go-faster/errors"
	"go.uber.org/zap"

	"github.com/verdora/storefront/internal/domain/cart"
	"github.com/verdora/storefront/internal/domain/catalog"
	"github.com/verdora/storefront/internal/domain/checkout"
	"github.com/verdora/storefront/internal/domain/order"
	"github.com/verdora/storefront/internal/domain/pricing"
	"github.com/verdora/storefront/internal/notify"
)

// Session bundles the per-client engine instances: the cart store and the
// checkout coordinator bound to it. Both are injected explicitly into
// consumers; there is no ambient global cart.
type Session struct {
	Cart     *cart.Store
	Checkout *checkout.Coordinator
}

// Manager owns the client -> Session map. Stores are created lazily on first
// access and seeded from the persistence adapter.
type Manager struct {
	persist cart.Persistence
	catalog catalog.Repository
	orders  order.Repository
	policy  pricing.Policy
	sink    notify.Sink
	lg      *zap.Logger

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewManager creates a Manager. The sink and logger are shared by every
// session it creates.
func NewManager(
	persist cart.Persistence,
	catalogRepo catalog.Repository,
	orders order.Repository,
	policy pricing.Policy,
	sink notify.Sink,
	lg *zap.Logger,
) *Manager {
	return &Manager{
		persist:  persist,
		catalog:  catalogRepo,
		orders:   orders,
		policy:   policy,
		sink:     sink,
		lg:       lg,
		sessions: make(map[string]*Session),
	}
}

// Session returns the session for the given client, creating it from the
// persisted cart record on first use. A persistence transport failure is
// returned rather than masked: starting an empty session over an unreachable
// store could later clobber the client's durable cart.
func (m *Manager) Session(ctx context.Context, clientID string) (*Session, error) {
	m.mu.Lock()
	if s, ok := m.sessions[clientID]; ok {
		m.mu.Unlock()
		return s, nil
	}
	m.mu.Unlock()

	rec, err := m.persist.Load(ctx, clientID)
	if err != nil {
		return nil, errors.Wrap(err, "load cart")
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	// Racing first requests for the same client may both load; the first one
	// to take the lock wins and the record is identical either way.
	if s, ok := m.sessions[clientID]; ok {
		return s, nil
	}

	store := cart.New(clientID, m.persist,
		cart.WithSink(m.sink),
		cart.WithLogger(m.lg),
	)
	store.Restore(rec)

	s := &Session{
		Cart: store,
		Checkout: checkout.New(store, m.catalog, m.orders, m.policy,
			checkout.WithSink(m.sink),
			checkout.WithLogger(m.lg),
		),
	}
	m.sessions[clientID] = s
	return s, nil
}
