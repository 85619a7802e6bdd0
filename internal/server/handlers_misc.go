package server

import (
	"io"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/manny2375/2020realtorsblue-sub000/internal/analytics"
	"github.com/manny2375/2020realtorsblue-sub000/internal/core"
	"github.com/manny2375/2020realtorsblue-sub000/internal/email"
)

// SubmitInquiry handles POST /api/inquiries.
func (h *Handler) SubmitInquiry(c echo.Context) error {
	var inq core.Inquiry
	if err := c.Bind(&inq); err != nil {
		return handleError(c, core.NewValidationError("invalid request body", err))
	}

	if err := h.deps.Inquiries.SubmitInquiry(c.Request().Context(), &inq); err != nil {
		return handleError(c, err)
	}
	return c.JSON(http.StatusCreated, map[string]interface{}{
		"success":   true,
		"inquiryId": inq.ID,
	})
}

// SubmitTourRequest handles POST /api/tour-request.
func (h *Handler) SubmitTourRequest(c echo.Context) error {
	var req core.TourRequest
	if err := c.Bind(&req); err != nil {
		return handleError(c, core.NewValidationError("invalid request body", err))
	}

	if err := h.deps.Inquiries.SubmitTourRequest(c.Request().Context(), &req); err != nil {
		return handleError(c, err)
	}
	return c.JSON(http.StatusCreated, map[string]interface{}{
		"success":       true,
		"tourRequestId": req.ID,
	})
}

// PopularSearches handles GET /api/analytics/popular-searches.
func (h *Handler) PopularSearches(c echo.Context) error {
	limit := 0
	if raw := c.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return handleError(c, core.NewValidationError("limit must be an integer", err))
		}
		limit = n
	}

	terms, err := h.deps.Analytics.PopularSearches(c.Request().Context(), limit)
	if err != nil {
		return handleError(c, core.NewInternalError(err))
	}
	if terms == nil {
		terms = []analytics.SearchTerm{}
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"searches": terms})
}

// MetricsSummary handles GET /api/analytics/metrics.
func (h *Handler) MetricsSummary(c echo.Context) error {
	summary, err := analytics.GatherSummary()
	if err != nil {
		return handleError(c, core.NewInternalError(err))
	}
	return c.JSON(http.StatusOK, summary)
}

// SendGridWebhook handles POST /api/webhooks/sendgrid, applying delivery
// events to the stored notification records. Always 200 so the provider
// does not endlessly retry malformed batches.
func (h *Handler) SendGridWebhook(c echo.Context) error {
	payload, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return handleError(c, core.NewValidationError("failed to read webhook body", err))
	}

	result := email.ProcessWebhook(c.Request().Context(), h.deps.Email.Store(), payload)
	return c.JSON(http.StatusOK, result)
}
