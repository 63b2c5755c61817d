package redis

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/verdora/storefront/internal/domain/cart"
)

func TestCartKey(t *testing.T) {
	assert.Equal(t, "verdora:cart:client-1", cartKey("client-1"))
}

func TestDecode(t *testing.T) {
	s := NewCartStore(nil, zap.NewNop())

	valid := cart.Record{
		Version: cart.RecordVersion,
		Lines:   []cart.RecordLine{{ProductID: "monstera-deliciosa", Quantity: 2}},
	}
	validJSON, err := json.Marshal(valid)
	require.NoError(t, err)

	tests := []struct {
		name      string
		data      []byte
		wantLines int
	}{
		{
			name:      "valid record parses",
			data:      validJSON,
			wantLines: 1,
		},
		{
			name:      "corrupt payload degrades to empty",
			data:      []byte("{not json"),
			wantLines: 0,
		},
		{
			name:      "wrong type degrades to empty",
			data:      []byte(`"a string"`),
			wantLines: 0,
		},
		{
			name:      "unknown version degrades to empty",
			data:      []byte(`{"version":99,"lines":[{"productId":"x","quantity":1}]}`),
			wantLines: 0,
		},
		{
			name:      "missing version degrades to empty",
			data:      []byte(`{"lines":[]}`),
			wantLines: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.decode("client-1", tt.data)
			assert.Equal(t, cart.RecordVersion, rec.Version)
			assert.Len(t, rec.Lines, tt.wantLines)
		})
	}
}
