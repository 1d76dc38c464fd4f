package httpapi

import (
	stdhttp "net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"server/internal/gateway"
	"server/internal/http/handlers"
	"server/internal/infra"
	"server/internal/middleware"
)

// NewRouter assembles the API surface: content operations, the job
// status poll endpoint and the live WebSocket channel.
func NewRouter(app *handlers.App, hub *gateway.Hub, cfg *infra.Config, logger infra.Logger) stdhttp.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RealIP, chimw.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(logger))
	r.Use(middleware.CORS(cfg.AllowedOrigins))
	r.Use(middleware.RateLimit(cfg.RateLimitPerMin, time.Minute))

	r.Get("/v1/healthz", app.Health)

	r.Route("/v1/content", func(r chi.Router) {
		r.Use(middleware.AuthJWT(cfg.JWTSecret))
		r.Post("/", app.ContentCreate)
		r.Get("/job/{job_id}/status", app.ContentJobStatus)
		r.Patch("/{id}", app.ContentUpdate)
		r.Post("/{id}/rollback", app.ContentRollback)
		r.Delete("/{id}", app.ContentDelete)
		r.Get("/ws", gateway.Handler(hub, logger))
	})

	return r
}
