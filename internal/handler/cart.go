package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/verdora/storefront/internal/domain/cart"
	"github.com/verdora/storefront/internal/domain/catalog"
	"github.com/verdora/storefront/internal/domain/pricing"
)

// cartLineView is the API shape of one cart line, rendered from the line
// snapshot so the cart stays displayable even when the catalog is down.
type cartLineView struct {
	ProductID      string   `json:"productId"`
	Name           string   `json:"name"`
	Quantity       int      `json:"quantity"`
	UnitPrice      float64  `json:"unitPrice"`
	SalePrice      *float64 `json:"salePrice,omitempty"`
	EffectivePrice float64  `json:"effectivePrice"`
	Stock          int      `json:"stockQuantity"`
	Category       string   `json:"category"`
	ImagePath      string   `json:"imagePath"`
}

// cartView is the priced cart: the lines plus the derived totals, recomputed
// from the snapshot on every render.
type cartView struct {
	Items       []cartLineView `json:"items"`
	ItemCount   int            `json:"itemCount"`
	Subtotal    float64        `json:"subtotal"`
	ShippingFee float64        `json:"shippingFee"`
	GrandTotal  float64        `json:"grandTotal"`
}

// mutationResponse reports the single outcome of a cart mutation together
// with the resulting cart state.
type mutationResponse struct {
	Outcome string   `json:"outcome"`
	Cart    cartView `json:"cart"`
}

type addItemRequest struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

type updateItemRequest struct {
	Quantity int `json:"quantity"`
}

func (h *Handler) getCart(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, r, http.StatusOK, h.cartToView(s.Cart.Snapshot()))
}

func (h *Handler) addItem(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}

	var req addItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.ProductID == "" {
		writeError(w, r, http.StatusBadRequest, "productId required")
		return
	}
	if req.Quantity < 0 {
		writeError(w, r, http.StatusBadRequest, "quantity must not be negative")
		return
	}

	p, err := h.catalog.GetByID(r.Context(), req.ProductID)
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			writeError(w, r, http.StatusNotFound, "product not found")
			return
		}
		zctx.From(r.Context()).Error("get product", zap.Error(err))
		writeError(w, r, http.StatusInternalServerError, "catalog unavailable")
		return
	}

	out := s.Cart.AddItem(r.Context(), *p, req.Quantity)
	h.writeMutation(w, r, s.Cart.Snapshot(), out)
}

func (h *Handler) updateItem(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}

	var req updateItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}

	out := s.Cart.UpdateQuantity(r.Context(), chi.URLParam(r, "productID"), req.Quantity)
	h.writeMutation(w, r, s.Cart.Snapshot(), out)
}

func (h *Handler) removeItem(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}

	out := s.Cart.RemoveItem(r.Context(), chi.URLParam(r, "productID"))
	h.writeMutation(w, r, s.Cart.Snapshot(), out)
}

func (h *Handler) clearCart(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}

	out := s.Cart.Clear(r.Context())
	h.writeMutation(w, r, s.Cart.Snapshot(), out)
}

func (h *Handler) writeMutation(w http.ResponseWriter, r *http.Request, snap cart.Snapshot, out cart.Outcome) {
	writeJSON(w, r, http.StatusOK, mutationResponse{
		Outcome: out.String(),
		Cart:    h.cartToView(snap),
	})
}

func (h *Handler) cartToView(snap cart.Snapshot) cartView {
	quote := pricing.Calculate(snap, h.policy)

	items := make([]cartLineView, len(snap.Lines))
	for i, l := range snap.Lines {
		items[i] = cartLineView{
			ProductID:      l.ProductID,
			Name:           l.Name,
			Quantity:       l.Quantity,
			UnitPrice:      l.UnitPrice.InexactFloat64(),
			EffectivePrice: pricing.UnitEffectivePrice(l).InexactFloat64(),
			Stock:          l.Stock,
			Category:       l.Category,
			ImagePath:      h.imageBaseURL + l.ImagePath,
		}
		if l.OnSale() {
			sale := l.SalePrice.InexactFloat64()
			items[i].SalePrice = &sale
		}
	}

	return cartView{
		Items:       items,
		ItemCount:   quote.ItemCount,
		Subtotal:    quote.Subtotal.InexactFloat64(),
		ShippingFee: quote.ShippingFee.InexactFloat64(),
		GrandTotal:  quote.GrandTotal.InexactFloat64(),
	}
}
