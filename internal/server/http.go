// Package server provides HTTP handlers and router setup for the
// marketing site API.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/manny2375/2020realtorsblue-sub000/internal/alerts"
	"github.com/manny2375/2020realtorsblue-sub000/internal/analytics"
	"github.com/manny2375/2020realtorsblue-sub000/internal/auth"
	"github.com/manny2375/2020realtorsblue-sub000/internal/catalog"
	"github.com/manny2375/2020realtorsblue-sub000/internal/email"
	"github.com/manny2375/2020realtorsblue-sub000/internal/favorites"
	"github.com/manny2375/2020realtorsblue-sub000/internal/inquiry"
	"github.com/manny2375/2020realtorsblue-sub000/internal/kv"
	"github.com/manny2375/2020realtorsblue-sub000/internal/ratelimit"
)

// Rate limits for the two abuse-prone endpoints. Everything else is
// unthrottled.
const (
	registerLimit  = 5
	registerWindow = time.Hour
	loginLimit     = 10
	loginWindow    = 15 * time.Minute
)

// Config holds server configuration options.
type Config struct {
	BodyLimit string // Max request body size (echo format, default "1M")
}

// Deps are the wired services the handlers dispatch into.
type Deps struct {
	Auth      *auth.Authenticator
	Catalog   *catalog.Service
	Favorites favorites.Store
	Inquiries *inquiry.Service
	Alerts    *alerts.Service
	Email     *email.Service
	Analytics *analytics.Service
	Limiter   *ratelimit.Limiter
	KV        kv.Store
}

// Server wraps the Echo server.
type Server struct {
	echo    *echo.Echo
	handler *Handler
}

// New creates the HTTP server with the full route table.
func New(deps Deps, cfg *Config) *Server {
	e := echo.New()
	e.HideBanner = true

	handler := NewHandler(deps)

	bodyLimit := "1M"
	if cfg != nil && cfg.BodyLimit != "" {
		bodyLimit = cfg.BodyLimit
	}

	// Global middleware stack (order matters)
	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
	}))
	e.Use(middleware.BodyLimit(bodyLimit))
	e.Use(requestMetrics())

	requireAuth := authMiddleware(deps.Auth)

	api := e.Group("/api")

	// Auth
	api.POST("/auth/register", handler.Register,
		rateLimitMiddleware(deps.Limiter, "register", registerLimit, registerWindow))
	api.POST("/auth/login", handler.Login,
		rateLimitMiddleware(deps.Limiter, "login", loginLimit, loginWindow))
	api.POST("/auth/logout", handler.Logout, requireAuth)
	api.GET("/auth/me", handler.Me, requireAuth)

	// Catalog
	api.GET("/properties", handler.ListProperties)
	api.GET("/properties/search", handler.SearchProperties)
	api.GET("/properties/:id", handler.GetProperty)
	api.POST("/properties", handler.CreateProperty, requireAuth)
	api.GET("/agents", handler.ListAgents)
	api.GET("/agents/:id", handler.GetAgent)
	api.POST("/agents", handler.CreateAgent, requireAuth)

	// Favorites
	api.GET("/favorites", handler.ListFavorites, requireAuth)
	api.POST("/favorites", handler.AddFavorite, requireAuth)
	api.DELETE("/favorites/:id", handler.RemoveFavorite, requireAuth)
	api.POST("/favorites/sync", handler.SyncFavorites, requireAuth)

	// Inquiries and tours
	api.POST("/inquiries", handler.SubmitInquiry)
	api.POST("/tour-request", handler.SubmitTourRequest)

	// Email
	api.GET("/email/notifications", handler.ListNotifications, requireAuth)
	api.GET("/email/stats", handler.NotificationStats, requireAuth)
	api.GET("/email/preferences", handler.GetEmailPreferences, requireAuth)
	api.POST("/email/preferences", handler.SetEmailPreferences, requireAuth)

	// Price alerts
	api.GET("/price-alerts", handler.ListPriceAlerts, requireAuth)
	api.POST("/price-alerts", handler.CreatePriceAlert, requireAuth)
	api.PUT("/price-alerts/:id", handler.UpdatePriceAlert, requireAuth)
	api.DELETE("/price-alerts/:id", handler.DeletePriceAlert, requireAuth)

	// Analytics and health
	api.GET("/analytics/popular-searches", handler.PopularSearches)
	api.GET("/analytics/metrics", handler.MetricsSummary)
	api.GET("/health/kv", handler.HealthKV)

	// Webhooks
	api.POST("/webhooks/sendgrid", handler.SendGridWebhook)

	e.GET("/health", handler.Health)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	return &Server{
		echo:    e,
		handler: handler,
	}
}

// Start starts the HTTP server on the given address.
func (s *Server) Start(addr string) error {
	return s.echo.Start(addr)
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

// ServeHTTP implements http.Handler, allowing Server to be used with httptest.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.echo.ServeHTTP(w, r)
}
