// Package coalesce batches rapid cart persistence writes. Keystroke-adjacent
// quantity changes can save the cart many times per second; the Saver absorbs
// them and writes only the latest record per client on a fixed interval.
package coalesce

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"go.uber.org/zap"

	"github.com/verdora/storefront/internal/domain/cart"
)

// Saver wraps a cart.Persistence and coalesces Save calls per client:
// latest record wins, flushed on the interval and once more on shutdown.
// Because every save carries the full record, dropping intermediate states
// never loses a mutation that a later save does not restate.
type Saver struct {
	next     cart.Persistence
	interval time.Duration
	lg       *zap.Logger

	pending chan map[string]cart.Record // 1-element slot holding dirty records
}

var _ cart.Persistence = (*Saver)(nil)

// New creates a Saver flushing at the given interval. Run must be started
// for writes to reach the underlying adapter.
func New(next cart.Persistence, interval time.Duration, lg *zap.Logger) *Saver {
	s := &Saver{
		next:     next,
		interval: interval,
		lg:       lg,
		pending:  make(chan map[string]cart.Record, 1),
	}
	s.pending <- make(map[string]cart.Record)
	return s
}

// Save records the latest version of the client's cart for the next flush.
func (s *Saver) Save(_ context.Context, clientID string, rec cart.Record) error {
	dirty := <-s.pending
	dirty[clientID] = rec
	s.pending <- dirty
	return nil
}

// Load returns the pending record when one is waiting to be flushed, so the
// caller always reads its own writes, and falls through to the underlying
// adapter otherwise.
func (s *Saver) Load(ctx context.Context, clientID string) (cart.Record, error) {
	dirty := <-s.pending
	rec, ok := dirty[clientID]
	s.pending <- dirty
	if ok {
		return rec, nil
	}
	return s.next.Load(ctx, clientID)
}

// Run flushes pending records on the interval until ctx is cancelled, then
// performs a final flush so shutdown loses nothing. It is errgroup-shaped:
// it returns nil on clean shutdown.
func (s *Saver) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.flush(ctx)
		case <-ctx.Done():
			// Detached context: the parent is already cancelled but the
			// final writes still need to go out.
			flushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
			s.flush(flushCtx)
			cancel()
			return nil
		}
	}
}

// Flush writes out all pending records immediately.
func (s *Saver) Flush(ctx context.Context) error {
	if n := s.flush(ctx); n > 0 {
		return errors.Errorf("%d cart records failed to flush", n)
	}
	return nil
}

// flush drains the dirty set and writes each record. Failed writes are put
// back so the next flush retries them; it returns the number of failures.
func (s *Saver) flush(ctx context.Context) int {
	dirty := <-s.pending
	s.pending <- make(map[string]cart.Record)

	failed := 0
	for clientID, rec := range dirty {
		if err := s.next.Save(ctx, clientID, rec); err != nil {
			failed++
			s.lg.Warn("cart flush failed",
				zap.String("client_id", clientID),
				zap.Error(err),
			)
			s.requeue(clientID, rec)
		}
	}
	return failed
}

// requeue puts a failed record back unless a newer one arrived meanwhile.
func (s *Saver) requeue(clientID string, rec cart.Record) {
	dirty := <-s.pending
	if _, ok := dirty[clientID]; !ok {
		dirty[clientID] = rec
	}
	s.pending <- dirty
}
