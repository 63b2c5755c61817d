package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/verdora/storefront/internal/domain/catalog"
)

// productView is the API shape of a catalog product.
type productView struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	Price     float64  `json:"price"`
	SalePrice *float64 `json:"salePrice,omitempty"`
	Stock     int      `json:"stockQuantity"`
	Category  string   `json:"category"`
	ImagePath string   `json:"imagePath"`
}

func (h *Handler) listProducts(w http.ResponseWriter, r *http.Request) {
	filter := catalog.Filter{Category: r.URL.Query().Get("category")}

	products, err := h.catalog.List(r.Context(), filter)
	if err != nil {
		zctx.From(r.Context()).Error("list products", zap.Error(err))
		writeError(w, r, http.StatusInternalServerError, "catalog unavailable")
		return
	}

	out := make([]productView, len(products))
	for i, p := range products {
		out[i] = h.productToView(p)
	}
	writeJSON(w, r, http.StatusOK, out)
}

func (h *Handler) getProduct(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "productID")

	p, err := h.catalog.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			writeError(w, r, http.StatusNotFound, "product not found")
			return
		}
		zctx.From(r.Context()).Error("get product", zap.Error(err))
		writeError(w, r, http.StatusInternalServerError, "catalog unavailable")
		return
	}

	writeJSON(w, r, http.StatusOK, h.productToView(*p))
}

func (h *Handler) productToView(p catalog.Product) productView {
	v := productView{
		ID:        p.ID,
		Name:      p.Name,
		Price:     p.Price.InexactFloat64(),
		Stock:     p.Stock,
		Category:  p.Category,
		ImagePath: h.imageBaseURL + p.ImagePath,
	}
	if p.OnSale() {
		sale := p.SalePrice.InexactFloat64()
		v.SalePrice = &sale
	}
	return v
}
