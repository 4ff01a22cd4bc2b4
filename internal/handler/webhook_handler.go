package handler

import (
	"io"
	"net/http"

	"github.com/labstack/echo/v4"

	apperrors "gptcatalog/internal/errors"
	"gptcatalog/internal/logger"
	"gptcatalog/internal/service"
	"gptcatalog/internal/webhook"
)

const maxWebhookBody = 1 << 20

// WebhookHandler receives payment provider notifications.
type WebhookHandler struct {
	transitions service.RoleTransitionService
	log         logger.Logger
}

// NewWebhookHandler creates a new webhook handler.
func NewWebhookHandler(transitions service.RoleTransitionService, log logger.Logger) *WebhookHandler {
	if log == nil {
		log = logger.Nop()
	}
	return &WebhookHandler{transitions: transitions, log: log}
}

// WebhookResponse acknowledges a delivery.
type WebhookResponse struct {
	Message string `json:"message"`
	Outcome string `json:"outcome"`
}

// Hotmart godoc
// @Summary Payment webhook
// @Description Applies purchase approvals and reversals to user roles. Unknown events are acknowledged.
// @Tags webhooks
// @Accept json
// @Produce json
// @Param X-Hotmart-Hottok header string false "Security token when not sent in the body"
// @Success 200 {object} WebhookResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 401 {object} errors.ErrorResponse
// @Failure 500 {object} errors.ErrorResponse
// @Router /api/webhook/hotmart [post]
func (h *WebhookHandler) Hotmart(c echo.Context) error {
	body, err := io.ReadAll(io.LimitReader(c.Request().Body, maxWebhookBody))
	if err != nil {
		return errorResponse(h.log, "webhook", apperrors.ErrBadPayload)
	}

	delivery, err := webhook.Parse(body, c.Request().Header.Get(webhook.HeaderToken))
	if err != nil {
		h.log.Warn("malformed webhook payload", "error", err)
		return errorResponse(h.log, "webhook", err)
	}

	outcome, err := h.transitions.Handle(c.Request().Context(), delivery)
	if err != nil {
		return errorResponse(h.log, "webhook", err)
	}

	msg := "Webhook received successfully"
	if outcome == service.OutcomeUserNotFound {
		msg = "User not found, but webhook received."
	}
	return c.JSON(http.StatusOK, WebhookResponse{Message: msg, Outcome: string(outcome)})
}
