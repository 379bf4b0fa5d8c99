package v1

import (
	"log"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/jjspscl/hunt-st-assessment/internal/domain"
)

type errorResponse struct {
	Error string           `json:"error"`
	Code  domain.ErrorCode `json:"code"`
}

// writeError renders err as {"error", "code"}. Errors without a domain code
// are logged and reported as internal.
func writeError(c echo.Context, err error) error {
	derr := domain.AsError(err)
	if derr.Code == domain.ErrCodeInternal {
		log.Printf("ERROR: %s %s: %v", c.Request().Method, c.Path(), err)
	}
	return c.JSON(derr.Status, errorResponse{Error: derr.Message, Code: derr.Code})
}

func badRequest(c echo.Context, msg string) error {
	return c.JSON(http.StatusBadRequest, errorResponse{Error: msg, Code: domain.ErrCodeValidation})
}
