package server

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/manny2375/2020realtorsblue-sub000/internal/core"
)

// ListFavorites handles GET /api/favorites.
func (h *Handler) ListFavorites(c echo.Context) error {
	user := currentUser(c)
	ids, err := h.deps.Favorites.List(c.Request().Context(), user.ID)
	if err != nil {
		return handleError(c, core.NewInternalError(err))
	}
	if ids == nil {
		ids = []string{}
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"favorites": ids})
}

type favoriteRequest struct {
	PropertyID string `json:"propertyId"`
}

// AddFavorite handles POST /api/favorites. Adding an id that is already
// present succeeds as a no-op.
func (h *Handler) AddFavorite(c echo.Context) error {
	var req favoriteRequest
	if err := c.Bind(&req); err != nil {
		return handleError(c, core.NewValidationError("invalid request body", err))
	}
	if strings.TrimSpace(req.PropertyID) == "" {
		return handleError(c, core.NewValidationError("propertyId is required", nil))
	}

	user := currentUser(c)
	if err := h.deps.Favorites.Add(c.Request().Context(), user.ID, req.PropertyID); err != nil {
		return handleError(c, core.NewInternalError(err))
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"success": true})
}

// RemoveFavorite handles DELETE /api/favorites/:id. Removing an absent id
// succeeds as a no-op.
func (h *Handler) RemoveFavorite(c echo.Context) error {
	user := currentUser(c)
	if err := h.deps.Favorites.Remove(c.Request().Context(), user.ID, c.Param("id")); err != nil {
		return handleError(c, core.NewInternalError(err))
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"success": true})
}

type syncFavoritesRequest struct {
	FavoriteIDs []string `json:"favoriteIds"`
}

// SyncFavorites handles POST /api/favorites/sync: an idempotent batch
// upsert of the client's locally accumulated ids.
func (h *Handler) SyncFavorites(c echo.Context) error {
	var req syncFavoritesRequest
	if err := c.Bind(&req); err != nil {
		return handleError(c, core.NewValidationError("invalid request body", err))
	}

	user := currentUser(c)
	if err := h.deps.Favorites.SyncBatch(c.Request().Context(), user.ID, req.FavoriteIDs); err != nil {
		return handleError(c, core.NewInternalError(err))
	}

	ids, err := h.deps.Favorites.List(c.Request().Context(), user.ID)
	if err != nil {
		return handleError(c, core.NewInternalError(err))
	}
	if ids == nil {
		ids = []string{}
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"success":   true,
		"favorites": ids,
	})
}

// ListNotifications handles GET /api/email/notifications.
func (h *Handler) ListNotifications(c echo.Context) error {
	user := currentUser(c)
	notifications, err := h.deps.Email.Store().ListByUser(c.Request().Context(), user.ID, 50)
	if err != nil {
		return handleError(c, core.NewInternalError(err))
	}
	if notifications == nil {
		notifications = []core.EmailNotification{}
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"notifications": notifications})
}

// NotificationStats handles GET /api/email/stats.
func (h *Handler) NotificationStats(c echo.Context) error {
	user := currentUser(c)
	stats, err := h.deps.Email.Store().Stats(c.Request().Context(), user.ID)
	if err != nil {
		return handleError(c, core.NewInternalError(err))
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"stats": stats})
}

// GetEmailPreferences handles GET /api/email/preferences.
func (h *Handler) GetEmailPreferences(c echo.Context) error {
	user := currentUser(c)
	prefs, err := h.deps.Email.Store().GetPreferences(c.Request().Context(), user.ID)
	if err != nil {
		return handleError(c, core.NewInternalError(err))
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"preferences": prefs})
}

// SetEmailPreferences handles POST /api/email/preferences.
func (h *Handler) SetEmailPreferences(c echo.Context) error {
	var prefs core.EmailPreferences
	if err := c.Bind(&prefs); err != nil {
		return handleError(c, core.NewValidationError("invalid request body", err))
	}

	user := currentUser(c)
	prefs.UserID = user.ID
	if err := h.deps.Email.Store().UpsertPreferences(c.Request().Context(), &prefs); err != nil {
		return handleError(c, core.NewInternalError(err))
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"success":     true,
		"preferences": prefs,
	})
}

// ListPriceAlerts handles GET /api/price-alerts.
func (h *Handler) ListPriceAlerts(c echo.Context) error {
	user := currentUser(c)
	alerts, err := h.deps.Alerts.List(c.Request().Context(), user.ID)
	if err != nil {
		return handleError(c, err)
	}
	if alerts == nil {
		alerts = []core.PriceAlert{}
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"alerts": alerts})
}

// CreatePriceAlert handles POST /api/price-alerts.
func (h *Handler) CreatePriceAlert(c echo.Context) error {
	var alert core.PriceAlert
	if err := c.Bind(&alert); err != nil {
		return handleError(c, core.NewValidationError("invalid request body", err))
	}

	user := currentUser(c)
	if err := h.deps.Alerts.Create(c.Request().Context(), user.ID, &alert); err != nil {
		return handleError(c, err)
	}
	return c.JSON(http.StatusCreated, map[string]interface{}{"alert": alert})
}

// UpdatePriceAlert handles PUT /api/price-alerts/:id.
func (h *Handler) UpdatePriceAlert(c echo.Context) error {
	var alert core.PriceAlert
	if err := c.Bind(&alert); err != nil {
		return handleError(c, core.NewValidationError("invalid request body", err))
	}
	alert.ID = c.Param("id")

	user := currentUser(c)
	if err := h.deps.Alerts.Update(c.Request().Context(), user.ID, &alert); err != nil {
		return handleError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"alert": alert})
}

// DeletePriceAlert handles DELETE /api/price-alerts/:id.
func (h *Handler) DeletePriceAlert(c echo.Context) error {
	user := currentUser(c)
	if err := h.deps.Alerts.Delete(c.Request().Context(), user.ID, c.Param("id")); err != nil {
		return handleError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"success": true})
}
