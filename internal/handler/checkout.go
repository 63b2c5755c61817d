package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/verdora/storefront/internal/domain/checkout"
	"github.com/verdora/storefront/internal/domain/order"
)

type checkoutRequest struct {
	Name    string `json:"name"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
	Note    string `json:"note"`
}

type checkoutResponse struct {
	OrderID     string  `json:"orderId"`
	ItemCount   int     `json:"itemCount"`
	Subtotal    float64 `json:"subtotal"`
	ShippingFee float64 `json:"shippingFee"`
	Total       float64 `json:"total"`
}

func (h *Handler) submitCheckout(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}

	var req checkoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Name == "" || req.Address == "" {
		writeError(w, r, http.StatusBadRequest, "name and address required")
		return
	}

	result, err := s.Checkout.Submit(r.Context(), order.Customer{
		Name:    req.Name,
		Phone:   req.Phone,
		Address: req.Address,
		Note:    req.Note,
	})
	if err != nil {
		h.writeCheckoutError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusCreated, checkoutResponse{
		OrderID:     result.OrderID,
		ItemCount:   result.Quote.ItemCount,
		Subtotal:    result.Quote.Subtotal.InexactFloat64(),
		ShippingFee: result.Quote.ShippingFee.InexactFloat64(),
		Total:       result.Quote.GrandTotal.InexactFloat64(),
	})
}

// writeCheckoutError maps checkout errors onto HTTP statuses. Entry-guard
// rejections are conflicts the client resolves by refreshing the cart;
// collaborator failures are retryable server-side conditions.
func (h *Handler) writeCheckoutError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, checkout.ErrEmptyCart),
		errors.Is(err, checkout.ErrSubmitInFlight):
		writeError(w, r, http.StatusConflict, err.Error())
		return
	}

	var stale *checkout.StaleStockError
	if errors.As(err, &stale) {
		writeError(w, r, http.StatusConflict, stale.Error())
		return
	}

	var priced *checkout.PriceChangedError
	if errors.As(err, &priced) {
		writeError(w, r, http.StatusConflict, priced.Error())
		return
	}

	zctx.From(r.Context()).Error("checkout failed", zap.Error(err))
	writeError(w, r, http.StatusServiceUnavailable, "order could not be placed, please try again")
}
