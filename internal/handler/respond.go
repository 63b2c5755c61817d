package handler

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/go-faster/sdk/zctx"

	"github.com/verdora/storefront/internal/cartsession"
)

// errorResponse is the uniform error body for all API failures.
type errorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zctx.From(r.Context()).Warn("write response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, r *http.Request, status int, message string) {
	writeJSON(w, r, status, errorResponse{Code: status, Message: message})
}

// clientID extracts and validates the client device identifier. The ID is an
// opaque, unauthenticated device token generated by the storefront client;
// it must be a UUID so keys in the cart store stay well-formed.
func clientID(r *http.Request) (string, bool) {
	id := r.Header.Get("X-Client-ID")
	if _, err := uuid.Parse(id); err != nil {
		return "", false
	}
	return id, true
}

// session resolves the cart session for the request, writing the error
// response itself when it cannot.
func (h *Handler) session(w http.ResponseWriter, r *http.Request) (*cartsession.Session, bool) {
	id, ok := clientID(r)
	if !ok {
		writeError(w, r, http.StatusBadRequest, "missing or invalid X-Client-ID header")
		return nil, false
	}

	s, err := h.sessions.Session(r.Context(), id)
	if err != nil {
		zctx.From(r.Context()).Error("load cart session", zap.Error(err))
		writeError(w, r, http.StatusServiceUnavailable, "cart is temporarily unavailable")
		return nil, false
	}
	return s, true
}
