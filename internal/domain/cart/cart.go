// Package cart implements the cart engine: the canonical list of cart lines,
// the invariants every mutation must respect, and the persisted wire form.
package cart

import (
	"context"

	"github.com/shopspring/decimal"
)

// Line is one product's presence in the cart.
//
// Every field except Quantity is a snapshot of the catalog row taken when the
// line was created. The snapshot keeps the cart renderable if the catalog
// becomes unreachable; it is never the pricing authority at checkout, where
// the live catalog is consulted again.
type Line struct {
	ProductID string
	Quantity  int
	Name      string
	UnitPrice decimal.Decimal
	SalePrice decimal.Decimal // zero when the product was not on sale
	ImagePath string
	Category  string
	Stock     int // stock level observed when the snapshot was taken
}

// OnSale reports whether the snapshot carries a usable sale price: present
// and strictly below the unit price.
func (l Line) OnSale() bool {
	return l.SalePrice.IsPositive() && l.SalePrice.LessThan(l.UnitPrice)
}

// Snapshot is an immutable view of the cart at a point in time. Lines keep
// their insertion order.
type Snapshot struct {
	Lines []Line
}

// ItemCount returns the sum of quantities across all lines.
func (s Snapshot) ItemCount() int {
	total := 0
	for _, l := range s.Lines {
		total += l.Quantity
	}
	return total
}

// Empty reports whether the cart has no lines.
func (s Snapshot) Empty() bool {
	return len(s.Lines) == 0
}

// Line returns the line for the given product, if present.
func (s Snapshot) Line(productID string) (Line, bool) {
	for _, l := range s.Lines {
		if l.ProductID == productID {
			return l, true
		}
	}
	return Line{}, false
}

// RecordVersion is the wire format version for persisted carts. Records with
// any other version are treated as corrupt and ignored.
const RecordVersion = 1

// Record is the persisted form of a cart: a versioned list of line tuples
// under a single namespaced key.
type Record struct {
	Version int          `json:"version"`
	Lines   []RecordLine `json:"lines"`
}

// RecordLine is the persisted form of a single cart line.
type RecordLine struct {
	ProductID string          `json:"productId"`
	Quantity  int             `json:"quantity"`
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
	SalePrice decimal.Decimal `json:"salePrice"`
	ImagePath string          `json:"imagePath"`
	Category  string          `json:"category"`
	Stock     int             `json:"stockQuantity"`
}

// EmptyRecord returns a current-version record with no lines.
func EmptyRecord() Record {
	return Record{Version: RecordVersion}
}

// Persistence stores the durable cart record for each client device. The
// persisted record is owned exclusively by the Store's save path; nothing
// else writes it.
//
// Load returns an empty record when no cart was ever saved. Implementations
// treat corrupt payloads as "no cart" (logged, nil error); only transport
// failures surface as errors.
type Persistence interface {
	Load(ctx context.Context, clientID string) (Record, error)
	Save(ctx context.Context, clientID string, rec Record) error
}

func (s Snapshot) toRecord() Record {
	rec := Record{Version: RecordVersion, Lines: make([]RecordLine, len(s.Lines))}
	for i, l := range s.Lines {
		rec.Lines[i] = RecordLine{
			ProductID: l.ProductID,
			Quantity:  l.Quantity,
			Name:      l.Name,
			UnitPrice: l.UnitPrice,
			SalePrice: l.SalePrice,
			ImagePath: l.ImagePath,
			Category:  l.Category,
			Stock:     l.Stock,
		}
	}
	return rec
}

// linesFromRecord rebuilds in-memory lines from a persisted record, dropping
// tuples that violate the line invariants (missing product ID, quantity < 1).
func linesFromRecord(rec Record) []Line {
	lines := make([]Line, 0, len(rec.Lines))
	for _, rl := range rec.Lines {
		if rl.ProductID == "" || rl.Quantity < 1 {
			continue
		}
		lines = append(lines, Line{
			ProductID: rl.ProductID,
			Quantity:  rl.Quantity,
			Name:      rl.Name,
			UnitPrice: rl.UnitPrice,
			SalePrice: rl.SalePrice,
			ImagePath: rl.ImagePath,
			Category:  rl.Category,
			Stock:     rl.Stock,
		})
	}
	return lines
}
