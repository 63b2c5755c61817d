package cart

import (
	"fmt"

	"github.com/verdora/storefront/internal/notify"
)

// Outcome classifies the result of a single cart mutation. Every mutating
// Store call produces exactly one outcome; business-rule violations such as
// hitting the stock ceiling are outcomes, never errors.
type Outcome int

const (
	// OutcomeNoOp means the call changed nothing (e.g. removing an absent line).
	OutcomeNoOp Outcome = iota
	// OutcomeAdded means units were added to the cart as requested.
	OutcomeAdded
	// OutcomeUpdated means a line's quantity was overwritten as requested.
	OutcomeUpdated
	// OutcomeRemoved means a line was deleted.
	OutcomeRemoved
	// OutcomeCleared means all lines were removed.
	OutcomeCleared
	// OutcomeStockLimit means an add ran into the stock ceiling; the quantity
	// holds at the ceiling, which may mean no change at all.
	OutcomeStockLimit
	// OutcomeOutOfStock means an add was rejected because the product has no
	// stock. No line is created.
	OutcomeOutOfStock
	// OutcomeQuantityClamped means an update asked for more than the stock
	// snapshot allows and was silently clamped rather than rejected.
	OutcomeQuantityClamped
)

// String returns the wire name of the outcome, used in API responses.
func (o Outcome) String() string {
	switch o {
	case OutcomeNoOp:
		return "noop"
	case OutcomeAdded:
		return "added"
	case OutcomeUpdated:
		return "updated"
	case OutcomeRemoved:
		return "removed"
	case OutcomeCleared:
		return "cleared"
	case OutcomeStockLimit:
		return "stock_limit"
	case OutcomeOutOfStock:
		return "out_of_stock"
	case OutcomeQuantityClamped:
		return "quantity_clamped"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// Changed reports whether the outcome implies a state change. OutcomeStockLimit
// is resolved per call by the Store, which knows whether the clamp left any
// increment; this reports the usual case.
func (o Outcome) Changed() bool {
	switch o {
	case OutcomeNoOp, OutcomeOutOfStock:
		return false
	default:
		return true
	}
}

// kind maps the outcome onto a notification kind.
func (o Outcome) kind() notify.Kind {
	switch o {
	case OutcomeOutOfStock:
		return notify.KindError
	case OutcomeNoOp, OutcomeStockLimit, OutcomeQuantityClamped:
		return notify.KindInfo
	default:
		return notify.KindSuccess
	}
}

// message renders the user-facing text for the outcome. name may be empty
// when the mutation targeted a product that was never in the cart.
func (o Outcome) message(name string) string {
	if name == "" {
		name = "item"
	}
	switch o {
	case OutcomeNoOp:
		return fmt.Sprintf("%s is not in your cart", name)
	case OutcomeAdded:
		return fmt.Sprintf("%s added to cart", name)
	case OutcomeUpdated:
		return fmt.Sprintf("%s quantity updated", name)
	case OutcomeRemoved:
		return fmt.Sprintf("%s removed from cart", name)
	case OutcomeCleared:
		return "cart cleared"
	case OutcomeStockLimit:
		return fmt.Sprintf("stock limit reached for %s", name)
	case OutcomeOutOfStock:
		return fmt.Sprintf("%s is out of stock", name)
	case OutcomeQuantityClamped:
		return fmt.Sprintf("quantity for %s limited to available stock", name)
	default:
		return "cart updated"
	}
}
