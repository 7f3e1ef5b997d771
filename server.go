package main

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-canvas/pkg/audit"
	"github.com/ekaya-inc/ekaya-canvas/pkg/auth"
	"github.com/ekaya-inc/ekaya-canvas/pkg/config"
	"github.com/ekaya-inc/ekaya-canvas/pkg/handlers"
	"github.com/ekaya-inc/ekaya-canvas/pkg/metrics"
	"github.com/ekaya-inc/ekaya-canvas/pkg/middleware"
	"github.com/ekaya-inc/ekaya-canvas/pkg/services"
)

// app holds the wired services the HTTP layer depends on.
type app struct {
	contextService    services.ContextService
	extractionService services.ContextExtractionService
	generationService services.GenerationService
	imageService      services.ImageService
	authMiddleware    *auth.Middleware
	rateLimiter       *middleware.RateLimiter
	auditor           *audit.SecurityAuditor
	metrics           *metrics.Metrics
	readinessChecks   map[string]handlers.ReadinessCheck
}

// newRouter registers every route and wraps the mux in the request logging
// and metrics middleware.
func newRouter(cfg *config.Config, a *app, logger *zap.Logger) http.Handler {
	mux := http.NewServeMux()

	var rateLimit handlers.Middleware
	if a.rateLimiter != nil {
		rateLimit = a.rateLimiter.Limit
	}

	health := handlers.NewHealthHandler(cfg, logger)
	for name, check := range a.readinessChecks {
		health.WithCheck(name, check)
	}
	health.RegisterRoutes(mux)

	handlers.NewContextsHandler(a.contextService, a.extractionService, a.auditor, logger).
		RegisterRoutes(mux, a.authMiddleware, rateLimit)

	handlers.NewImagesHandler(a.generationService, a.imageService, a.auditor, logger).
		RegisterRoutes(mux, a.authMiddleware, rateLimit)

	if a.metrics != nil {
		mux.Handle("GET /metrics", a.metrics.Handler())
	}

	return middleware.Chain(mux,
		middleware.RequestLogger(logger.Named("http")),
		middleware.RequestMetrics(a.metrics),
	)
}
