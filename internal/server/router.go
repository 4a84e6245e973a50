// internal/server/router.go
package server

import (
	"net/http"

	"newsletter/internal/newsletters"
	"newsletter/internal/subscriptions"
	"newsletter/internal/telemetry"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
)

// Options configures the router.
type Options struct {
	// AllowedOrigins may post the subscription form from a browser.
	// Empty disables CORS.
	AllowedOrigins []string
}

// Request body limits. A newsletter issue carries both HTML and text
// renditions, so it gets more room than the subscription form.
const (
	maxSubscribeBodyBytes = 64 << 10
	maxPublishBodyBytes   = 4 << 20
)

// NewRouter wires the public HTTP surface.
func NewRouter(logger *zap.Logger, subs *subscriptions.Handler, news *newsletters.Handler, opts Options) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(telemetry.RequestLogger(logger.Named("http")))
	r.Use(middleware.Recoverer)
	if len(opts.AllowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: opts.AllowedOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
			MaxAge:         300,
		}))
	}

	r.Get("/health_check", HealthCheck)

	r.Route("/subscriptions", func(r chi.Router) {
		r.With(middleware.RequestSize(maxSubscribeBodyBytes)).Post("/", subs.HandleSubscribe)
		r.Get("/confirm", subs.HandleConfirm)
	})
	r.With(middleware.RequestSize(maxPublishBodyBytes)).Post("/newsletters", news.HandlePublish)

	return r
}

// HealthCheck always answers 200 with an empty body.
func HealthCheck(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
}
