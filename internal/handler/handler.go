// Package handler exposes the cart engine over a JSON HTTP API.
package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/verdora/storefront/internal/cartsession"
	"github.com/verdora/storefront/internal/domain/catalog"
	"github.com/verdora/storefront/internal/domain/pricing"
)

// Config holds non-dependency configuration for the Handler.
type Config struct {
	// ImageBaseURL is prepended to relative image paths in responses.
	// When empty, image paths are returned as stored.
	ImageBaseURL string
}

// Handler routes API requests to the per-client cart sessions and the
// read-only catalog.
type Handler struct {
	sessions     *cartsession.Manager
	catalog      catalog.Repository
	policy       pricing.Policy
	imageBaseURL string
}

// New constructs a Handler with the required dependencies.
func New(
	cfg Config,
	sessions *cartsession.Manager,
	catalogRepo catalog.Repository,
	policy pricing.Policy,
) *Handler {
	return &Handler{
		sessions:     sessions,
		catalog:      catalogRepo,
		policy:       policy,
		imageBaseURL: cfg.ImageBaseURL,
	}
}

// Routes returns the API router mounted under /api by the server.
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()

	r.Get("/products", h.listProducts)
	r.Get("/products/{productID}", h.getProduct)

	r.Route("/cart", func(r chi.Router) {
		r.Get("/", h.getCart)
		r.Delete("/", h.clearCart)
		r.Post("/items", h.addItem)
		r.Put("/items/{productID}", h.updateItem)
		r.Delete("/items/{productID}", h.removeItem)
	})

	r.Post("/checkout", h.submitCheckout)

	return r
}
