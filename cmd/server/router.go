package main

import (
	"log/slog"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"kycgate/internal/platform/metrics"
	"kycgate/internal/platform/middleware"
	"kycgate/internal/screening/handler"
)

type routerDeps struct {
	logger      *slog.Logger
	httpMetrics *metrics.Metrics
	gatherer    prometheus.Gatherer
	corsOrigins []string
	validator   middleware.JWTValidator
	analyze     *handler.Handler
	status      *handler.StatusHandler
}

func newRouter(d routerDeps) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Recovery(d.logger))
	r.Use(middleware.RequestID)
	r.Use(middleware.RequestTime)
	r.Use(middleware.Logger(d.logger, d.httpMetrics))
	r.Use(middleware.CORS(d.corsOrigins))

	d.status.Register(r)
	r.Handle("/metrics", metrics.Handler(d.gatherer))

	r.Group(func(r chi.Router) {
		if d.validator != nil {
			r.Use(middleware.RequireAuth(d.validator, d.logger))
		}
		d.analyze.Register(r)
	})
	return r
}
