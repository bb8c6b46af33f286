package api

import (
	"net/http"

	"github.com/athebyme/gomarket-sync/pkg/interfaces"
	"github.com/athebyme/gomarket-sync/services/sync-service/internal/api/handlers"
	"github.com/athebyme/gomarket-sync/services/sync-service/internal/api/middleware"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// SetupRouter настраивает маршрутизатор. auth == nil отключает проверку токенов
func SetupRouter(
	syncHandler *handlers.SyncHandler,
	logger interfaces.LoggerPort,
	auth interfaces.AuthPort,
	metricsPath string,
) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Recoverer(logger))
	r.Use(middleware.Metrics)

	r.Get("/", syncHandler.Alive)
	r.Method(http.MethodGet, "/health", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	}))
	r.Method(http.MethodHead, "/health", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	if metricsPath == "" {
		metricsPath = "/metrics"
	}
	r.Handle(metricsPath, promhttp.Handler())

	r.Route("/sync", func(r chi.Router) {
		if auth != nil {
			r.Use(middleware.Auth(auth, logger))
		}

		r.Get("/", syncHandler.Sync)
		r.Post("/", syncHandler.Sync)
		r.Get("/last", syncHandler.Last)
		r.Get("/runs", syncHandler.Runs)
	})

	return r
}
