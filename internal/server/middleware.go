package server

import (
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/manny2375/2020realtorsblue-sub000/internal/analytics"
	"github.com/manny2375/2020realtorsblue-sub000/internal/auth"
	"github.com/manny2375/2020realtorsblue-sub000/internal/core"
	"github.com/manny2375/2020realtorsblue-sub000/internal/ratelimit"
)

// userContextKey is where authMiddleware stashes the resolved user.
const userContextKey = "authenticated_user"

// authMiddleware resolves the bearer session token and stores the user in
// the request context. Missing, malformed, expired, and unknown tokens all
// map to a 401.
func authMiddleware(authenticator *auth.Authenticator) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			header := c.Request().Header.Get("Authorization")
			if header == "" {
				return handleError(c, core.NewAuthenticationError("missing authorization header"))
			}

			const prefix = "Bearer "
			if !strings.HasPrefix(header, prefix) {
				return handleError(c, core.NewAuthenticationError("invalid authorization header format, expected 'Bearer <token>'"))
			}
			token := strings.TrimPrefix(header, prefix)

			user, err := authenticator.Validate(c.Request().Context(), token)
			if err != nil {
				return handleError(c, core.NewAuthenticationError("invalid or expired session"))
			}

			c.Set(userContextKey, user)
			c.Set(sessionTokenKey, token)
			return next(c)
		}
	}
}

// sessionTokenKey holds the raw token so logout can delete it.
const sessionTokenKey = "session_token"

// currentUser returns the user stashed by authMiddleware.
func currentUser(c echo.Context) *core.User {
	user, _ := c.Get(userContextKey).(*core.User)
	return user
}

// rateLimitMiddleware applies a fixed-window limit per client IP on one
// route. The route name keeps register and login in separate buckets.
func rateLimitMiddleware(limiter *ratelimit.Limiter, route string, limit int, window time.Duration) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			identifier := route + ":" + ratelimit.Identifier(c.RealIP())
			result := limiter.Check(c.Request().Context(), identifier, limit, window)
			if !result.Allowed {
				return handleError(c, core.NewRateLimitError("rate limit exceeded", result.ResetTime))
			}
			return next(c)
		}
	}
}

// requestMetrics counts every handled request by method, route, and status.
func requestMetrics() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			err := next(c)
			analytics.RequestsTotal.WithLabelValues(
				c.Request().Method,
				c.Path(),
				strconv.Itoa(c.Response().Status),
			).Inc()
			return err
		}
	}
}
