// internal/subscriptions/handler.go
package subscriptions

import (
	"encoding/json"
	"errors"
	"net/http"

	"newsletter/internal/subscriber"

	"go.uber.org/zap"
)

type Handler struct {
	service Service
	logger  *zap.Logger
}

func NewHandler(service Service, logger *zap.Logger) *Handler {
	return &Handler{service: service, logger: logger.Named("subscriptions.http")}
}

type subscribeRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// HandleSubscribe serves POST /subscriptions.
func (h *Handler) HandleSubscribe(w http.ResponseWriter, r *http.Request) {
	var req subscribeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			http.Error(w, "request body too large", http.StatusRequestEntityTooLarge)
			return
		}
		http.Error(w, "malformed request body", http.StatusBadRequest)
		return
	}

	ns, err := subscriber.FromRequest(req.Name, req.Email)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if _, err := h.service.Subscribe(r.Context(), ns); err != nil {
		switch {
		case errors.Is(err, ErrRateLimited):
			http.Error(w, err.Error(), http.StatusTooManyRequests)
		case errors.Is(err, ErrAlreadySubscribed):
			http.Error(w, err.Error(), http.StatusConflict)
		default:
			h.logger.Error("subscribe failed", zap.Error(err))
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		}
		return
	}

	w.WriteHeader(http.StatusOK)
}

// HandleConfirm serves GET /subscriptions/confirm.
func (h *Handler) HandleConfirm(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("subscription_token")
	if token == "" {
		http.Error(w, "missing subscription_token", http.StatusBadRequest)
		return
	}

	if err := h.service.Confirm(r.Context(), token); err != nil {
		if errors.Is(err, ErrTokenNotFound) {
			http.Error(w, "unknown subscription token", http.StatusUnauthorized)
			return
		}
		h.logger.Error("confirm failed", zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusOK)
}
