// Package http provides the HTTP server for the task chat.
package http

import (
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/jjspscl/hunt-st-assessment/internal/service"
	v1 "github.com/jjspscl/hunt-st-assessment/internal/transport/http/v1"
	"github.com/jjspscl/hunt-st-assessment/internal/transport/ws"
)

// NewServer creates the HTTP server with the /api routes and, when wsServer
// is non-nil, the live task event socket.
func NewServer(svc *service.Service, wsServer *ws.Server) *echo.Echo {
	e := echo.New()
	e.HideBanner = true

	// Middleware
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	// Cross-origin callers must be listed; same-origin requests need no CORS headers.
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowCredentials: true,
		AllowOriginFunc: func(origin string) (bool, error) {
			return svc.Config().OriginAllowed(origin), nil
		},
	}))

	// Handlers
	v1Handler := v1.NewHandler(svc)
	v1Handler.RegisterRoutes(e)

	if wsServer != nil {
		e.GET("/api/ws", wsServer.HandleWebSocket, v1Handler.RequireSession)
	}

	return e
}
