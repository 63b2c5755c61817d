package cart

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/verdora/storefront/internal/domain/catalog"
	"github.com/verdora/storefront/internal/notify"
)

// Store is the sole writer of cart state for one client device. Every
// mutation path funnels through it so the invariants are enforced in one
// place:
//
//   - at most one line per product; adds merge into the existing line
//   - 1 <= quantity <= stock ceiling observed at mutation time
//   - each mutation persists before it returns and before subscribers fire
//   - each mutating call emits exactly one outcome
//
// The design expects a single logical writer per client, but HTTP delivery
// turns rapid duplicate UI events into parallel requests, so mutations are
// serialized by a mutex: two racing adds can never together exceed the stock
// ceiling.
type Store struct {
	clientID string
	persist  Persistence
	sink     notify.Sink
	lg       *zap.Logger

	mu      sync.Mutex
	lines   []Line
	index   map[string]int // productID -> position in lines
	subs    map[int]func(Snapshot)
	nextSub int
}

// Option configures a Store.
type Option func(*Store)

// WithSink sets the notification sink for mutation outcomes.
func WithSink(sink notify.Sink) Option {
	return func(s *Store) { s.sink = sink }
}

// WithLogger sets the logger used for persistence failures.
func WithLogger(lg *zap.Logger) Option {
	return func(s *Store) { s.lg = lg }
}

// New creates an empty Store for the given client. Use Restore to seed it
// from a persisted record before sharing it.
func New(clientID string, persist Persistence, opts ...Option) *Store {
	s := &Store{
		clientID: clientID,
		persist:  persist,
		sink:     notify.Discard,
		lg:       zap.NewNop(),
		index:    make(map[string]int),
		subs:     make(map[int]func(Snapshot)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ClientID returns the client device this store belongs to.
func (s *Store) ClientID() string {
	return s.clientID
}

// Restore replaces the store contents with the given persisted record. It
// does not persist or notify; it exists for the load-on-startup path only.
func (s *Store) Restore(rec Record) {
	lines := linesFromRecord(rec)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.lines = lines
	s.index = make(map[string]int, len(lines))
	for i, l := range lines {
		s.index[l.ProductID] = i
	}
}

// AddItem adds requestedQty units of p to the cart, merging into the existing
// line for the same product. requestedQty of zero defaults to one. Quantities
// clamp to the product's current stock; hitting the ceiling is an outcome,
// not an error. A product with no stock is rejected without creating a line.
//
// Negative quantities and negative stock are programmer errors and panic.
func (s *Store) AddItem(ctx context.Context, p catalog.Product, requestedQty int) Outcome {
	if requestedQty < 0 {
		panic(fmt.Sprintf("cart: negative quantity %d for product %q", requestedQty, p.ID))
	}
	if p.Stock < 0 {
		panic(fmt.Sprintf("cart: negative stock %d for product %q", p.Stock, p.ID))
	}
	if p.ID == "" {
		panic("cart: product with empty ID")
	}
	if requestedQty == 0 {
		requestedQty = 1
	}

	s.mu.Lock()
	out := OutcomeAdded
	changed := false

	if i, ok := s.index[p.ID]; ok {
		line := &s.lines[i]
		newQty := line.Quantity + requestedQty
		if newQty > p.Stock {
			newQty = p.Stock
			out = OutcomeStockLimit
		}
		if newQty < 1 {
			// Live stock is gone. The add is rejected; the existing line
			// stays so checkout revalidation can surface it.
			out = OutcomeOutOfStock
		} else if newQty != line.Quantity {
			line.Quantity = newQty
			line.Stock = p.Stock // refresh the stock observation
			changed = true
		}
	} else {
		if p.Stock == 0 {
			out = OutcomeOutOfStock
		} else {
			qty := requestedQty
			if qty > p.Stock {
				qty = p.Stock
				out = OutcomeStockLimit
			}
			s.index[p.ID] = len(s.lines)
			s.lines = append(s.lines, Line{
				ProductID: p.ID,
				Quantity:  qty,
				Name:      p.Name,
				UnitPrice: p.Price,
				SalePrice: p.SalePrice,
				ImagePath: p.ImagePath,
				Category:  p.Category,
				Stock:     p.Stock,
			})
			changed = true
		}
	}

	return s.commit(ctx, out, p.Name, changed)
}

// RemoveItem deletes the line for the given product. Removing an absent
// product is a no-op, not an error.
func (s *Store) RemoveItem(ctx context.Context, productID string) Outcome {
	s.mu.Lock()
	i, ok := s.index[productID]
	if !ok {
		return s.commit(ctx, OutcomeNoOp, "", false)
	}
	name := s.lines[i].Name
	s.removeLocked(i)
	return s.commit(ctx, OutcomeRemoved, name, true)
}

// UpdateQuantity overwrites the quantity of an existing line. A quantity of
// zero or less removes the line. Requests above the line's stock snapshot are
// silently clamped rather than rejected; the caller receives the clamped
// outcome so the UI can reflect the value actually stored.
func (s *Store) UpdateQuantity(ctx context.Context, productID string, newQty int) Outcome {
	s.mu.Lock()
	i, ok := s.index[productID]
	if !ok {
		return s.commit(ctx, OutcomeNoOp, "", false)
	}
	name := s.lines[i].Name

	if newQty <= 0 {
		s.removeLocked(i)
		return s.commit(ctx, OutcomeRemoved, name, true)
	}

	line := &s.lines[i]
	out := OutcomeUpdated
	qty := newQty
	if qty > line.Stock {
		qty = line.Stock
		out = OutcomeQuantityClamped
	}
	if qty < 1 {
		qty = 1
	}
	changed := qty != line.Quantity
	line.Quantity = qty
	return s.commit(ctx, out, name, changed)
}

// Clear empties all lines. The cart object survives; an emptied cart is
// simply a cart with zero lines.
func (s *Store) Clear(ctx context.Context) Outcome {
	s.mu.Lock()
	changed := len(s.lines) > 0
	s.lines = nil
	s.index = make(map[string]int)
	return s.commit(ctx, OutcomeCleared, "", changed)
}

// Snapshot returns an immutable view of the current lines for pricing and
// display consumption.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Subscribe registers fn to run with the post-mutation snapshot after every
// state change. It returns an unsubscribe function. Subscribers run outside
// the store lock and must not mutate the store synchronously.
func (s *Store) Subscribe(fn func(Snapshot)) (unsubscribe func()) {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

// commit finishes a mutation: persists the new state (when there is one),
// releases the lock, fans out to subscribers, and reports the outcome to the
// notification sink. Callers must hold s.mu; commit unlocks it.
func (s *Store) commit(ctx context.Context, out Outcome, name string, changed bool) Outcome {
	var (
		snap Snapshot
		subs []func(Snapshot)
	)
	if changed {
		s.saveLocked(ctx)
		snap = s.snapshotLocked()
		subs = make([]func(Snapshot), 0, len(s.subs))
		for _, fn := range s.subs {
			subs = append(subs, fn)
		}
	}
	s.mu.Unlock()

	for _, fn := range subs {
		fn(snap)
	}
	s.sink.Notify(out.kind(), out.message(name))
	return out
}

// saveLocked writes the full cart record through the persistence adapter.
// A failed save is logged, not raised: in-memory state stays authoritative
// for the session and the next successful save rewrites the whole record.
func (s *Store) saveLocked(ctx context.Context) {
	rec := s.snapshotLocked().toRecord()
	if err := s.persist.Save(ctx, s.clientID, rec); err != nil {
		s.lg.Warn("cart save failed",
			zap.String("client_id", s.clientID),
			zap.Error(err),
		)
	}
}

func (s *Store) snapshotLocked() Snapshot {
	lines := make([]Line, len(s.lines))
	copy(lines, s.lines)
	return Snapshot{Lines: lines}
}

// removeLocked deletes the line at position i and reindexes the tail.
func (s *Store) removeLocked(i int) {
	delete(s.index, s.lines[i].ProductID)
	s.lines = append(s.lines[:i], s.lines[i+1:]...)
	for j := i; j < len(s.lines); j++ {
		s.index[s.lines[j].ProductID] = j
	}
}
