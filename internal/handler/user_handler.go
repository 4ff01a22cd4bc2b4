package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"gptcatalog/internal/auth"
	apperrors "gptcatalog/internal/errors"
	"gptcatalog/internal/logger"
	"gptcatalog/internal/model"
	"gptcatalog/internal/repository"
	"gptcatalog/internal/service"
)

// ClaimsContextKey is where the JWT middleware stores verified claims.
const ClaimsContextKey = "user"

// UserHandler serves the current user's profile.
type UserHandler struct {
	svc service.UserService
	log logger.Logger
}

// NewUserHandler creates a handler layer.
func NewUserHandler(svc service.UserService, log logger.Logger) *UserHandler {
	if log == nil {
		log = logger.Nop()
	}
	return &UserHandler{svc: svc, log: log}
}

// MeResponse describes the logged in user.
type MeResponse struct {
	UserID        uint       `json:"userId"`
	Email         string     `json:"email"`
	Role          model.Role `json:"role"`
	HotmartStatus *string    `json:"hotmartStatus,omitempty"`
}

// Me godoc
// @Summary Current user
// @Description Returns the stored profile of the session cookie's user. The role may be newer than the one in the token.
// @Tags auth
// @Produce json
// @Success 200 {object} MeResponse
// @Failure 401 {object} errors.ErrorResponse
// @Failure 500 {object} errors.ErrorResponse
// @Router /api/auth/me [get]
func (h *UserHandler) Me(c echo.Context) error {
	claims, ok := c.Get(ClaimsContextKey).(*auth.Claims)
	if !ok || claims == nil {
		return errorResponse(h.log, "me", apperrors.ErrInvalidToken)
	}

	user, err := h.svc.GetUser(c.Request().Context(), claims.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return errorResponse(h.log, "me", apperrors.ErrInvalidToken)
		}
		return errorResponse(h.log, "me", err)
	}

	return c.JSON(http.StatusOK, MeResponse{
		UserID:        user.ID,
		Email:         user.Email,
		Role:          user.Role,
		HotmartStatus: user.HotmartStatus,
	})
}
