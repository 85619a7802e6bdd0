package server

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/manny2375/2020realtorsblue-sub000/internal/catalog"
	"github.com/manny2375/2020realtorsblue-sub000/internal/core"
)

// ListProperties handles GET /api/properties.
func (h *Handler) ListProperties(c echo.Context) error {
	filter, err := parsePropertyFilter(c)
	if err != nil {
		return handleError(c, err)
	}

	properties, err := h.deps.Catalog.ListProperties(c.Request().Context(), filter)
	if err != nil {
		return handleError(c, core.NewInternalError(err))
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"properties": properties})
}

// GetProperty handles GET /api/properties/:id.
func (h *Handler) GetProperty(c echo.Context) error {
	property, err := h.deps.Catalog.GetProperty(c.Request().Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			return handleError(c, core.NewNotFoundError("property not found"))
		}
		return handleError(c, core.NewInternalError(err))
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"property": property})
}

// SearchProperties handles GET /api/properties/search.
func (h *Handler) SearchProperties(c echo.Context) error {
	query := strings.TrimSpace(c.QueryParam("q"))
	if query == "" {
		return handleError(c, core.NewValidationError("query parameter q is required", nil))
	}

	limit := 0
	if raw := c.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return handleError(c, core.NewValidationError("limit must be an integer", err))
		}
		limit = n
	}

	if h.deps.Analytics != nil {
		h.deps.Analytics.RecordSearch(c.Request().Context(), query)
	}

	properties, err := h.deps.Catalog.SearchProperties(c.Request().Context(), query, limit)
	if err != nil {
		return handleError(c, core.NewInternalError(err))
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"properties": properties})
}

// CreateProperty handles POST /api/properties. Listing creation is for
// staff accounts; it also fans out matching price alerts.
func (h *Handler) CreateProperty(c echo.Context) error {
	user := currentUser(c)
	if user.Role != core.RoleAgent && user.Role != core.RoleAdmin {
		return handleError(c, core.NewForbiddenError("listing creation requires an agent account"))
	}

	var property core.Property
	if err := c.Bind(&property); err != nil {
		return handleError(c, core.NewValidationError("invalid request body", err))
	}
	if strings.TrimSpace(property.Title) == "" {
		return handleError(c, core.NewValidationError("title is required", nil))
	}
	if property.PriceCents <= 0 {
		return handleError(c, core.NewValidationError("priceCents must be positive", nil))
	}
	if property.Status == "" {
		property.Status = core.StatusActive
	}

	property.ID = uuid.NewString()
	property.CreatedAt = time.Now().UTC()

	if err := h.deps.Catalog.CreateProperty(c.Request().Context(), &property); err != nil {
		return handleError(c, core.NewInternalError(err))
	}

	if h.deps.Alerts != nil {
		h.deps.Alerts.NotifyMatches(c.Request().Context(), &property)
	}

	return c.JSON(http.StatusCreated, map[string]interface{}{"property": property})
}

// ListAgents handles GET /api/agents.
func (h *Handler) ListAgents(c echo.Context) error {
	agents, err := h.deps.Catalog.ListAgents(c.Request().Context())
	if err != nil {
		return handleError(c, core.NewInternalError(err))
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"agents": agents})
}

// GetAgent handles GET /api/agents/:id.
func (h *Handler) GetAgent(c echo.Context) error {
	agent, err := h.deps.Catalog.GetAgent(c.Request().Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			return handleError(c, core.NewNotFoundError("agent not found"))
		}
		return handleError(c, core.NewInternalError(err))
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"agent": agent})
}

// CreateAgent handles POST /api/agents. Admin only.
func (h *Handler) CreateAgent(c echo.Context) error {
	user := currentUser(c)
	if user.Role != core.RoleAdmin {
		return handleError(c, core.NewForbiddenError("agent creation requires an admin account"))
	}

	var agent core.Agent
	if err := c.Bind(&agent); err != nil {
		return handleError(c, core.NewValidationError("invalid request body", err))
	}
	if strings.TrimSpace(agent.FirstName) == "" || strings.TrimSpace(agent.LastName) == "" {
		return handleError(c, core.NewValidationError("firstName and lastName are required", nil))
	}

	agent.ID = uuid.NewString()
	agent.CreatedAt = time.Now().UTC()

	if err := h.deps.Catalog.CreateAgent(c.Request().Context(), &agent); err != nil {
		return handleError(c, core.NewInternalError(err))
	}
	return c.JSON(http.StatusCreated, map[string]interface{}{"agent": agent})
}

// parsePropertyFilter validates the listing query parameters. Prices are
// cents; limit and offset are clamped by the store layer.
func parsePropertyFilter(c echo.Context) (catalog.PropertyFilter, error) {
	var f catalog.PropertyFilter

	f.Status = c.QueryParam("status")
	f.PropertyType = c.QueryParam("propertyType")
	f.City = c.QueryParam("city")

	intParams := []struct {
		name string
		dst  *int64
	}{
		{"minPrice", &f.MinPriceCents},
		{"maxPrice", &f.MaxPriceCents},
	}
	for _, p := range intParams {
		if raw := c.QueryParam(p.name); raw != "" {
			n, err := strconv.ParseInt(raw, 10, 64)
			if err != nil || n < 0 {
				return f, core.NewValidationError(p.name+" must be a non-negative integer of cents", err)
			}
			*p.dst = n
		}
	}

	if raw := c.QueryParam("minBedrooms"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return f, core.NewValidationError("minBedrooms must be a non-negative integer", err)
		}
		f.MinBedrooms = n
	}
	if raw := c.QueryParam("minBathrooms"); raw != "" {
		n, err := strconv.ParseFloat(raw, 64)
		if err != nil || n < 0 {
			return f, core.NewValidationError("minBathrooms must be a non-negative number", err)
		}
		f.MinBathrooms = n
	}
	if raw := c.QueryParam("featured"); raw != "" {
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return f, core.NewValidationError("featured must be a boolean", err)
		}
		f.Featured = &b
	}
	if raw := c.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return f, core.NewValidationError("limit must be an integer", err)
		}
		f.Limit = n
	}
	if raw := c.QueryParam("offset"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return f, core.NewValidationError("offset must be an integer", err)
		}
		f.Offset = n
	}

	return f, nil
}
