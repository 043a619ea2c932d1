package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/KyooRuss/Parking-Management/pkg/version"
)

type RouterConfig struct {
	Parking  *ParkingHandler
	Hub      *Hub
	Verifier IdentityVerifier
	// Metrics serves /metrics; the default registry is used when nil.
	Metrics http.Handler
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(CORSMiddleware)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]interface{}{
			"status":  "healthy",
			"service": "parking-management",
			"build":   version.Current(),
		})
	})

	metrics := cfg.Metrics
	if metrics == nil {
		metrics = promhttp.Handler()
	}
	r.Method(http.MethodGet, "/metrics", metrics)

	r.Route("/api", func(r chi.Router) {
		r.Use(IdentityMiddleware(cfg.Verifier))
		cfg.Parking.Routes(r)
		if cfg.Hub != nil {
			r.Get("/ws", cfg.Hub.ServeWS)
		}
	})

	return r
}
