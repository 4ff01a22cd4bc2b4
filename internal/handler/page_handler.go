package handler

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/labstack/echo/v4"

	"gptcatalog/internal/auth"
	"gptcatalog/internal/catalog"
	"gptcatalog/internal/gate"
)

const emailPlaceholder = "{user_email}"

// PageHandler serves the protected catalog and the paywall.
type PageHandler struct {
	catalog     *catalog.Catalog
	verifier    auth.TokenVerifier
	checkoutURL string
}

// NewPageHandler creates a page handler.
func NewPageHandler(c *catalog.Catalog, verifier auth.TokenVerifier, checkoutURL string) *PageHandler {
	return &PageHandler{catalog: c, verifier: verifier, checkoutURL: checkoutURL}
}

// PaywallResponse carries the checkout link for the current user.
type PaywallResponse struct {
	Message     string `json:"message"`
	CheckoutURL string `json:"checkoutUrl"`
}

// Catalog godoc
// @Summary GPT catalog
// @Description Protected root. Guests are redirected to the paywall and anonymous users to the login page.
// @Tags pages
// @Produce json
// @Success 200 {array} catalog.Category
// @Failure 302 "redirect to /login or /paywall"
// @Router / [get]
func (h *PageHandler) Catalog(c echo.Context) error {
	return c.JSON(http.StatusOK, h.catalog.Categories())
}

// Paywall godoc
// @Summary Paywall
// @Description Returns the checkout URL, personalized with the session's email when a valid cookie is present.
// @Tags pages
// @Produce json
// @Success 200 {object} PaywallResponse
// @Router /paywall [get]
func (h *PageHandler) Paywall(c echo.Context) error {
	var email string
	if ck, err := c.Cookie(gate.CookieName); err == nil {
		if claims, err := h.verifier.Verify(ck.Value); err == nil {
			email = claims.Email
		}
	}

	return c.JSON(http.StatusOK, PaywallResponse{
		Message:     "Para ter acesso ilimitado ao nosso catálogo exclusivo de GPTs, complete o pagamento.",
		CheckoutURL: strings.ReplaceAll(h.checkoutURL, emailPlaceholder, url.QueryEscape(email)),
	})
}
