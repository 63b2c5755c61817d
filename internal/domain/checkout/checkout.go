// Package checkout turns a priced cart into an order submission and clears
// the cart on confirmed success only.
package checkout

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/verdora/storefront/internal/domain/cart"
	"github.com/verdora/storefront/internal/domain/catalog"
	"github.com/verdora/storefront/internal/domain/order"
	"github.com/verdora/storefront/internal/domain/pricing"
	"github.com/verdora/storefront/internal/notify"
)

// State enumerates the coordinator phases. Success and Failed are terminal
// per submission and reported through Submit's return values; between
// submissions the coordinator always rests at StateIdle.
type State int32

const (
	StateIdle State = iota
	StateValidating
	StateSubmitting
)

// String returns the lowercase state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateValidating:
		return "validating"
	case StateSubmitting:
		return "submitting"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// Entry-guard and concurrency errors. These are business outcomes: the cart
// is preserved and the user may retry.
var (
	// ErrEmptyCart rejects submission of a cart with no lines.
	ErrEmptyCart = errors.New("cart is empty")
	// ErrSubmitInFlight rejects a second submission while one is running.
	ErrSubmitInFlight = errors.New("a submission is already in progress")
)

// StaleStockError indicates a cart line can no longer be fulfilled: the live
// catalog reports less stock than the line's quantity.
type StaleStockError struct {
	ProductID string
	Name      string
	Requested int
	Available int
}

func (e *StaleStockError) Error() string {
	return fmt.Sprintf("only %d of %q available (requested %d)", e.Available, e.Name, e.Requested)
}

// PriceChangedError indicates the live effective price of a cart line differs
// from the price captured when the line was added. Submission blocks so the
// user confirms the new price instead of being silently charged it.
type PriceChangedError struct {
	ProductID string
	Name      string
	Was       decimal.Decimal
	Now       decimal.Decimal
}

func (e *PriceChangedError) Error() string {
	return fmt.Sprintf("price of %q changed from %s to %s", e.Name, e.Was, e.Now)
}

// Result is returned on a successful submission.
type Result struct {
	OrderID string
	Quote   pricing.Quote
}

// Coordinator drives one client's cart through validation and submission.
//
// State machine: Idle -> Validating -> Submitting -> (Success | Failed),
// then back to Idle. Totals are always re-derived from the current cart
// snapshot at validation time, never from a value captured earlier in the UI
// lifecycle. Checkout is the one point where the live catalog is consulted
// instead of the line snapshots.
type Coordinator struct {
	cart    *cart.Store
	catalog catalog.Repository
	orders  order.Repository
	policy  pricing.Policy
	sink    notify.Sink
	lg      *zap.Logger
	now     func() time.Time

	state atomic.Int32
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithSink sets the notification sink for checkout outcomes.
func WithSink(sink notify.Sink) Option {
	return func(c *Coordinator) { c.sink = sink }
}

// WithLogger sets the coordinator's logger.
func WithLogger(lg *zap.Logger) Option {
	return func(c *Coordinator) { c.lg = lg }
}

// WithClock overrides the time source. Tests use it to pin CreatedAt.
func WithClock(now func() time.Time) Option {
	return func(c *Coordinator) { c.now = now }
}

// New creates a Coordinator bound to one client's cart store.
func New(
	cartStore *cart.Store,
	catalogRepo catalog.Repository,
	orders order.Repository,
	policy pricing.Policy,
	opts ...Option,
) *Coordinator {
	c := &Coordinator{
		cart:    cartStore,
		catalog: catalogRepo,
		orders:  orders,
		policy:  policy,
		sink:    notify.Discard,
		lg:      zap.NewNop(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// State returns the coordinator's current phase.
func (c *Coordinator) State() State {
	return State(c.state.Load())
}

// Submit validates the current cart against the live catalog, recomputes the
// totals, hands the order payload to the order collaborator, and clears the
// cart exactly once on confirmed success. On any failure the cart is
// preserved so the user can retry.
//
// Submission is not cancellable once started; only not-yet-started rejection
// is supported, via the entry guards and the in-flight check.
func (c *Coordinator) Submit(ctx context.Context, customer order.Customer) (*Result, error) {
	if !c.state.CompareAndSwap(int32(StateIdle), int32(StateValidating)) {
		return nil, ErrSubmitInFlight
	}
	defer c.state.Store(int32(StateIdle))

	snap := c.cart.Snapshot()
	if snap.Empty() {
		c.sink.Notify(notify.KindError, "your cart is empty")
		return nil, ErrEmptyCart
	}

	lines, err := c.validate(ctx, snap)
	if err != nil {
		c.sink.Notify(notify.KindError, err.Error())
		return nil, err
	}

	quote := pricing.Calculate(snap, c.policy)

	c.state.Store(int32(StateSubmitting))
	o := &order.Order{
		ID:          uuid.New().String(),
		ClientID:    c.cart.ClientID(),
		Lines:       lines,
		Subtotal:    quote.Subtotal,
		ShippingFee: quote.ShippingFee,
		Total:       quote.GrandTotal,
		Customer:    customer,
		CreatedAt:   c.now().UTC(),
	}
	if err := c.orders.Create(ctx, o); err != nil {
		c.lg.Warn("order submission failed",
			zap.String("client_id", o.ClientID),
			zap.Error(err),
		)
		c.sink.Notify(notify.KindError, "order could not be placed, please try again")
		return nil, errors.Wrap(err, "create order")
	}

	c.cart.Clear(ctx)
	c.sink.Notify(notify.KindSuccess, "order placed")
	c.lg.Info("order placed",
		zap.String("order_id", o.ID),
		zap.String("client_id", o.ClientID),
		zap.Int("items", quote.ItemCount),
	)

	return &Result{OrderID: o.ID, Quote: quote}, nil
}

// validate re-checks every cart line against the live catalog: stock must
// still cover the quantity and the effective price must match the snapshot.
// It returns the priced order lines on success.
func (c *Coordinator) validate(ctx context.Context, snap cart.Snapshot) ([]order.Line, error) {
	ids := make([]string, len(snap.Lines))
	for i, l := range snap.Lines {
		ids[i] = l.ProductID
	}

	fetched, err := c.catalog.GetByIDs(ctx, ids)
	if err != nil {
		return nil, errors.Wrap(err, "revalidate catalog")
	}
	byID := make(map[string]catalog.Product, len(fetched))
	for _, p := range fetched {
		byID[p.ID] = p
	}

	lines := make([]order.Line, len(snap.Lines))
	for i, l := range snap.Lines {
		p, ok := byID[l.ProductID]
		if !ok || p.Stock < l.Quantity {
			e := &StaleStockError{
				ProductID: l.ProductID,
				Name:      l.Name,
				Requested: l.Quantity,
			}
			if ok {
				e.Available = p.Stock
			}
			return nil, e
		}

		was := pricing.UnitEffectivePrice(l)
		now := p.EffectivePrice()
		if !now.Equal(was) {
			return nil, &PriceChangedError{
				ProductID: l.ProductID,
				Name:      l.Name,
				Was:       was,
				Now:       now,
			}
		}

		lines[i] = order.Line{
			ProductID: l.ProductID,
			Name:      l.Name,
			Quantity:  l.Quantity,
			UnitPrice: now,
		}
	}
	return lines, nil
}
