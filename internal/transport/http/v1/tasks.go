package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/jjspscl/hunt-st-assessment/internal/domain"
)

// ListTasks returns every task in creation order.
// GET /api/tasks
func (h *Handler) ListTasks(c echo.Context) error {
	tasks, err := h.service.ListTasks(c.Request().Context())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"tasks": tasks})
}

// CreateTasks creates tasks directly, bypassing the chat.
// POST /api/tasks
func (h *Handler) CreateTasks(c echo.Context) error {
	var req domain.CreateTasksRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	tasks, err := h.service.CreateTasks(c.Request().Context(), req)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, map[string]interface{}{"tasks": tasks})
}

// GetTask returns a task with its details.
// GET /api/tasks/:id
func (h *Handler) GetTask(c echo.Context) error {
	resp, err := h.service.GetTaskWithDetails(c.Request().Context(), c.Param("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, resp)
}

// UpdateTask marks a task completed.
// PATCH /api/tasks/:id
func (h *Handler) UpdateTask(c echo.Context) error {
	var req domain.UpdateTaskRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	task, err := h.service.UpdateTask(c.Request().Context(), c.Param("id"), req)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"task": task})
}

// ListDetails returns the details of a task.
// GET /api/tasks/:id/details
func (h *Handler) ListDetails(c echo.Context) error {
	ctx := c.Request().Context()
	taskID := c.Param("id")

	task, err := h.service.GetTask(ctx, taskID)
	if err != nil {
		return writeError(c, err)
	}
	if task == nil {
		return writeError(c, domain.ErrTaskNotFound)
	}
	details, err := h.service.ListDetails(ctx, taskID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"details": details})
}
