package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/jjspscl/hunt-st-assessment/internal/domain"
)

// Reset wipes all task data.
// POST /api/admin/reset
func (h *Handler) Reset(c echo.Context) error {
	if err := h.service.Reset(c.Request().Context()); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]bool{"success": true})
}

// ListModels lists upstream models and the active selection.
// GET /api/models
func (h *Handler) ListModels(c echo.Context) error {
	resp, err := h.service.ListModels(c.Request().Context())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, resp)
}

// SetActiveModel selects the model used by later chat turns.
// POST /api/models/active
func (h *Handler) SetActiveModel(c echo.Context) error {
	var req domain.SetActiveModelRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	ctx := c.Request().Context()
	if err := h.service.SetActiveModel(ctx, req.ModelID); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]string{"activeId": h.service.ActiveModel(ctx)})
}
