package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	"github.com/FACorreiaa/charge-analytics/pkg/httperr"
	"github.com/FACorreiaa/charge-analytics/pkg/middleware"
)

// NewRouter builds the HTTP handler tree with the middleware stack applied.
func NewRouter(d *Dependencies) http.Handler {
	cfg := d.Config

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.StructuredLogger(d.Logger))
	r.Use(chimw.Recoverer)
	r.Use(middleware.CORS(cfg.Server.AllowedOrigins))
	if d.RateLimiter != nil {
		r.Use(d.RateLimiter.Handler)
	}
	if d.Metrics != nil {
		r.Use(middleware.Metrics(d.Metrics))
		r.Method(http.MethodGet, cfg.Observability.MetricsPath, d.Metrics.Handler())
	}

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		httperr.Write(w, r, httperr.New(http.StatusNotFound, httperr.CodeInvalidRequest, "Not found"))
	})

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		render.JSON(w, r, map[string]string{
			"service": "charge-analytics",
			"docs":    "/api/charging/supported-formats",
		})
	})

	r.Route("/api/charging", d.ChargingHandler.Routes)
	r.Route("/api/import", d.ImportHandler.Routes)

	return r
}

// NewServer wraps the router in an http.Server configured from Config.
func NewServer(d *Dependencies) *http.Server {
	cfg := d.Config.Server
	return &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:           NewRouter(d),
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      cfg.WriteTimeout,
	}
}
