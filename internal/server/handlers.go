package server

import (
	"errors"
	"net/http"
	"net/mail"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/manny2375/2020realtorsblue-sub000/internal/auth"
	"github.com/manny2375/2020realtorsblue-sub000/internal/core"
)

// Handler holds the HTTP handlers.
type Handler struct {
	deps Deps
}

// NewHandler creates a handler over the wired services.
func NewHandler(deps Deps) *Handler {
	return &Handler{deps: deps}
}

type registerRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

// Register handles POST /api/auth/register.
func (h *Handler) Register(c echo.Context) error {
	var req registerRequest
	if err := c.Bind(&req); err != nil {
		return handleError(c, core.NewValidationError("invalid request body", err))
	}

	req.Email = strings.TrimSpace(req.Email)
	if _, err := mail.ParseAddress(req.Email); err != nil {
		return handleError(c, core.NewValidationError("a valid email is required", err))
	}
	if len(req.Password) < 8 {
		return handleError(c, core.NewValidationError("password must be at least 8 characters", nil))
	}
	if strings.TrimSpace(req.FirstName) == "" || strings.TrimSpace(req.LastName) == "" {
		return handleError(c, core.NewValidationError("firstName and lastName are required", nil))
	}

	user, err := h.deps.Auth.Register(c.Request().Context(), auth.RegisterParams{
		Email:     req.Email,
		Password:  req.Password,
		FirstName: strings.TrimSpace(req.FirstName),
		LastName:  strings.TrimSpace(req.LastName),
	})
	if err != nil {
		if errors.Is(err, auth.ErrEmailExists) {
			return handleError(c, core.NewConflictError("an account with this email already exists"))
		}
		return handleError(c, core.NewInternalError(err))
	}

	if h.deps.Email != nil {
		h.deps.Email.SendWelcome(c.Request().Context(), user)
	}

	return c.JSON(http.StatusCreated, map[string]interface{}{
		"success": true,
		"userId":  user.ID,
	})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login handles POST /api/auth/login.
func (h *Handler) Login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return handleError(c, core.NewValidationError("invalid request body", err))
	}
	if req.Email == "" || req.Password == "" {
		return handleError(c, core.NewValidationError("email and password are required", nil))
	}

	token, user, err := h.deps.Auth.Login(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrNotFound) {
			return handleError(c, core.NewAuthenticationError("invalid email or password"))
		}
		return handleError(c, core.NewInternalError(err))
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"success":      true,
		"sessionToken": token,
		"user":         user,
	})
}

// Logout handles POST /api/auth/logout.
func (h *Handler) Logout(c echo.Context) error {
	token, _ := c.Get(sessionTokenKey).(string)
	if err := h.deps.Auth.Logout(c.Request().Context(), token); err != nil {
		return handleError(c, core.NewInternalError(err))
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"success": true})
}

// Me handles GET /api/auth/me.
func (h *Handler) Me(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{"user": currentUser(c)})
}

// Health handles GET /health.
func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// HealthKV handles GET /api/health/kv.
func (h *Handler) HealthKV(c echo.Context) error {
	if err := h.deps.KV.Ping(c.Request().Context()); err != nil {
		return c.JSON(http.StatusServiceUnavailable, map[string]string{
			"status": "unavailable",
		})
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// handleError is the single error boundary: typed errors carry their
// status and wire shape, anything else is a 500 with a generic message
// so internal detail stays in the server log.
func handleError(c echo.Context, err error) error {
	var apiErr *core.APIError
	if errors.As(err, &apiErr) {
		if apiErr.Type == core.ErrorTypeInternal {
			c.Logger().Error(err)
		}
		return c.JSON(apiErr.HTTPStatusCode(), apiErr.ToJSON())
	}

	c.Logger().Error(err)
	return c.JSON(http.StatusInternalServerError, map[string]interface{}{
		"error": "internal server error",
	})
}
