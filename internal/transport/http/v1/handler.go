// Package v1 provides the /api HTTP handlers.
package v1

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/jjspscl/hunt-st-assessment/internal/service"
)

// Handler handles HTTP requests.
type Handler struct {
	service *service.Service
}

// NewHandler creates a new handler.
func NewHandler(service *service.Service) *Handler {
	return &Handler{
		service: service,
	}
}

// RegisterRoutes registers the /api routes with the echo server. Everything
// outside /api/auth and /api/health requires a session when auth is enabled.
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	api := e.Group("/api")
	auth := h.RequireSession

	// Auth
	api.POST("/auth/login", h.Login)
	api.POST("/auth/logout", h.Logout)
	api.GET("/auth/status", h.AuthStatus)

	// Chat
	api.GET("/chat", h.GetChat, auth)
	api.POST("/chat", h.PostChat, auth)

	// Tasks
	api.GET("/tasks", h.ListTasks, auth)
	api.POST("/tasks", h.CreateTasks, auth)
	api.GET("/tasks/:id", h.GetTask, auth)
	api.PATCH("/tasks/:id", h.UpdateTask, auth)
	api.GET("/tasks/:id/details", h.ListDetails, auth)

	// Models
	api.GET("/models", h.ListModels, auth)
	api.POST("/models/active", h.SetActiveModel, auth)

	api.POST("/admin/reset", h.Reset, auth)

	api.GET("/health", h.Health)
}

// Health returns health status.
// GET /api/health
func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}
