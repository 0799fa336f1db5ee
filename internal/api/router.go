package api

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	"github.com/orgtreehq/orgtree/internal/app"
	iauth "github.com/orgtreehq/orgtree/internal/auth"
	"github.com/orgtreehq/orgtree/internal/handlers"
	"github.com/orgtreehq/orgtree/internal/middleware"
	"github.com/orgtreehq/orgtree/internal/security"
	"github.com/orgtreehq/orgtree/internal/services"
)

// NewRouter builds the Gin engine, wires middleware and registers all routes.
func NewRouter(db *gorm.DB, jwt *iauth.JWTService, cfg *app.Config) (*gin.Engine, error) {
	if db == nil {
		return nil, fmt.Errorf("database handle must be provided")
	}
	if jwt == nil {
		return nil, fmt.Errorf("jwt service must be provided")
	}
	if cfg == nil {
		return nil, fmt.Errorf("config must be provided")
	}

	csrfManager, err := security.NewCSRFManager(security.CSRFConfig{
		Secret: cfg.Security.CSRFSecret,
		TTL:    cfg.Security.CSRFTokenTTL,
	})
	if err != nil {
		return nil, err
	}

	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery())
	r.Use(middleware.Logger())
	r.Use(middleware.Metrics())
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS())
	r.Use(middleware.CSRF(csrfManager))
	// Basic rate limiting: 100 requests/minute per IP+path
	r.Use(middleware.RateLimit(middleware.NewMemoryRateStore(), 100, time.Minute))

	// Health endpoint (public)
	r.GET("/health", handlers.Health(db))

	// CSRF token issuance (public)
	csrfHandler := handlers.NewCSRFHandler(csrfManager)
	r.GET("/api/csrf", csrfHandler.Token)

	authHandler, err := handlers.NewAuthHandler(db, jwt)
	if err != nil {
		return nil, err
	}

	userLoader, err := services.NewUserService(db, nil)
	if err != nil {
		return nil, err
	}
	requireAuth := middleware.Auth(jwt, userLoader)

	api := r.Group("/api")
	api.Use(requireAuth)

	registerAuthRoutes(r, api, authHandler)

	if err := registerOrganizationRoutes(api, db); err != nil {
		return nil, err
	}
	if err := registerTransferRoutes(api, db); err != nil {
		return nil, err
	}
	if err := registerAdminRoutes(api, db, jwt, cfg); err != nil {
		return nil, err
	}

	// Metrics endpoint
	if cfg.Monitoring.Prometheus.Enabled {
		endpoint := cfg.Monitoring.Prometheus.Endpoint
		if endpoint == "" {
			endpoint = "/metrics"
		}
		r.GET(endpoint, gin.WrapH(promhttp.Handler()))
	}

	// NotFound fallback
	r.NoRoute(middleware.NotFoundHandler)

	return r, nil
}
