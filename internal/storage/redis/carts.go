// Package redis persists cart records in Redis, one JSON document per client
// device under a namespaced key.
package redis

import (
	"context"
	"encoding/json"

	"github.com/go-faster/errors"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/verdora/storefront/internal/domain/cart"
)

const keyPrefix = "verdora:cart:"

// CartStore implements cart.Persistence backed by Redis. Records carry no
// TTL: the cart exists for session continuity and must survive arbitrary
// gaps between visits.
type CartStore struct {
	client goredis.UniversalClient
	lg     *zap.Logger
}

var _ cart.Persistence = (*CartStore)(nil)

// NewCartStore creates a CartStore using the given client.
func NewCartStore(client goredis.UniversalClient, lg *zap.Logger) *CartStore {
	return &CartStore{client: client, lg: lg}
}

// Load fetches the client's cart record. A missing key yields an empty
// record. A payload that fails to parse, or carries an unknown version, is
// treated as "no cart": logged and replaced with an empty record, never a
// fatal error. Only transport failures are returned.
func (s *CartStore) Load(ctx context.Context, clientID string) (cart.Record, error) {
	data, err := s.client.Get(ctx, cartKey(clientID)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return cart.EmptyRecord(), nil
	}
	if err != nil {
		return cart.Record{}, errors.Wrap(err, "redis get")
	}
	return s.decode(clientID, data), nil
}

// Save writes the full cart record. The write completes (success or failure)
// before the caller's next mutation is accepted; the cart store serializes
// mutations around it.
func (s *CartStore) Save(ctx context.Context, clientID string, rec cart.Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return errors.Wrap(err, "marshal cart record")
	}
	if err := s.client.Set(ctx, cartKey(clientID), data, 0).Err(); err != nil {
		return errors.Wrap(err, "redis set")
	}
	return nil
}

// decode parses a stored payload, degrading corrupt data to an empty record.
func (s *CartStore) decode(clientID string, data []byte) cart.Record {
	var rec cart.Record
	if err := json.Unmarshal(data, &rec); err != nil {
		s.lg.Warn("corrupt cart record, starting empty",
			zap.String("client_id", clientID),
			zap.Error(err),
		)
		return cart.EmptyRecord()
	}
	if rec.Version != cart.RecordVersion {
		s.lg.Warn("unknown cart record version, starting empty",
			zap.String("client_id", clientID),
			zap.Int("version", rec.Version),
		)
		return cart.EmptyRecord()
	}
	return rec
}

func cartKey(clientID string) string {
	return keyPrefix + clientID
}
