package newsletters

import (
	"encoding/json"
	"errors"
	"net/http"

	"newsletter/internal/authentication"

	"go.uber.org/zap"
)

type Handler struct {
	service Service
	logger  *zap.Logger
}

func NewHandler(service Service, logger *zap.Logger) *Handler {
	return &Handler{service: service, logger: logger.Named("newsletters.http")}
}

// HandlePublish serves POST /newsletters. The body is validated before the
// credentials are looked at.
func (h *Handler) HandlePublish(w http.ResponseWriter, r *http.Request) {
	var issue Issue
	if err := json.NewDecoder(r.Body).Decode(&issue); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			http.Error(w, "request body too large", http.StatusRequestEntityTooLarge)
			return
		}
		http.Error(w, "malformed request body", http.StatusBadRequest)
		return
	}
	if err := issue.Validate(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	credentials, err := authentication.BasicAuthentication(r.Header)
	if err != nil {
		h.logger.Debug("rejected publish credentials", zap.Error(err))
		unauthorized(w)
		return
	}

	if err := h.service.PublishIssue(r.Context(), credentials, issue); err != nil {
		if errors.Is(err, authentication.ErrInvalidCredentials) {
			h.logger.Info("publish authentication failed", zap.String("username", credentials.Username))
			unauthorized(w)
			return
		}
		h.logger.Error("publish failed", zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusOK)
}

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("WWW-Authenticate", `Basic realm="publish"`)
	http.Error(w, authentication.ErrInvalidCredentials.Error(), http.StatusUnauthorized)
}
