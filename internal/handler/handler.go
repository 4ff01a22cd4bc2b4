// Package handler holds the HTTP handlers.
package handler

import (
	"github.com/labstack/echo/v4"

	apperrors "gptcatalog/internal/errors"
	"gptcatalog/internal/logger"
)

// MessageResponse is a plain acknowledgement.
type MessageResponse struct {
	Message string `json:"message"`
}

// errorResponse maps err onto its HTTP status and localized body. Internal
// errors are logged with detail and returned without it.
func errorResponse(log logger.Logger, op string, err error) *echo.HTTPError {
	httpErr := apperrors.MapErrorToHTTP(err)
	if apperrors.KindOf(err) == apperrors.KindInternal {
		log.Error(op+" failed", "error", err)
	}
	return echo.NewHTTPError(httpErr.StatusCode, httpErr.ToErrorResponse())
}
