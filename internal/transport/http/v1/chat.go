package v1

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/jjspscl/hunt-st-assessment/internal/domain"
	"github.com/jjspscl/hunt-st-assessment/internal/service"
)

// GetChat returns the persisted conversation for the caller.
// GET /api/chat
func (h *Handler) GetChat(c echo.Context) error {
	ctx := c.Request().Context()
	messages, err := h.service.GetHistory(ctx, h.identity(c))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, domain.ChatHistoryResponse{Messages: messages})
}

// PostChat runs a chat turn. A replayed turn is answered with JSON; a fresh
// turn is streamed as server-sent events.
// POST /api/chat
func (h *Handler) PostChat(c echo.Context) error {
	var req domain.ChatRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}

	ctx := c.Request().Context()
	orch := h.service.NewOrchestrator(ctx, h.identity(c))
	result, err := orch.Handle(ctx, req)
	if err != nil {
		return writeError(c, err)
	}
	if result.Cached != nil {
		return c.JSON(http.StatusOK, result.Cached)
	}
	return streamTurn(c, result.Turn)
}

// streamTurn forwards turn chunks as SSE. When the client goes away the turn
// is detached and left to finish on its own.
func streamTurn(c echo.Context, turn *service.Turn) error {
	w := c.Response()
	w.Header().Set(echo.HeaderContentType, "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	w.Flush()

	ctx := c.Request().Context()
	for {
		select {
		case <-ctx.Done():
			turn.Detach()
			return nil
		case chunk, ok := <-turn.Chunks():
			if !ok {
				fmt.Fprint(w, "data: [DONE]\n\n")
				w.Flush()
				return nil
			}
			data, err := json.Marshal(chunk)
			if err != nil {
				log.Printf("ERROR: failed to encode stream chunk: %v", err)
				continue
			}
			if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
				turn.Detach()
				return nil
			}
			w.Flush()
		}
	}
}
