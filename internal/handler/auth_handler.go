package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"gptcatalog/internal/auth"
	apperrors "gptcatalog/internal/errors"
	"gptcatalog/internal/gate"
	"gptcatalog/internal/logger"
	"gptcatalog/internal/model"
	"gptcatalog/internal/service"
)

// AuthHandler handles authentication endpoints.
type AuthHandler struct {
	authService  service.AuthService
	secureCookie bool
	log          logger.Logger
}

// NewAuthHandler creates a new auth handler. secureCookie marks the session
// cookie Secure and is off only in development.
func NewAuthHandler(authService service.AuthService, secureCookie bool, log logger.Logger) *AuthHandler {
	if log == nil {
		log = logger.Nop()
	}
	return &AuthHandler{authService: authService, secureCookie: secureCookie, log: log}
}

// SignupRequest represents a signup request.
type SignupRequest struct {
	Email      string `json:"email"`
	Password   string `json:"password"`
	InviteCode string `json:"inviteCode,omitempty"`
}

// LoginRequest represents a login request.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse is returned with the session cookie.
type LoginResponse struct {
	Message string     `json:"message"`
	Role    model.Role `json:"role"`
}

// SignupResponse is returned for a created account.
type SignupResponse struct {
	Message string     `json:"message"`
	UserID  uint       `json:"userId"`
	Role    model.Role `json:"role"`
}

// Signup godoc
// @Summary Create an account
// @Description Creates a guest account, or an invited one when a valid invite code is given. Does not log in.
// @Tags auth
// @Accept json
// @Produce json
// @Param request body SignupRequest true "Signup data"
// @Success 201 {object} SignupResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 409 {object} errors.ErrorResponse
// @Failure 429 {object} errors.ErrorResponse
// @Failure 500 {object} errors.ErrorResponse
// @Router /api/auth/signup [post]
func (h *AuthHandler) Signup(c echo.Context) error {
	var req SignupRequest
	if err := c.Bind(&req); err != nil {
		return errorResponse(h.log, "signup", apperrors.ErrInvalidRequest)
	}

	res, err := h.authService.Signup(c.Request().Context(), req.Email, req.Password, req.InviteCode)
	if err != nil {
		return errorResponse(h.log, "signup", err)
	}

	return c.JSON(http.StatusCreated, SignupResponse{
		Message: "Usuário cadastrado com sucesso!",
		UserID:  res.UserID,
		Role:    res.Role,
	})
}

// Login godoc
// @Summary Log in
// @Description Verifies credentials and sets the auth_token session cookie.
// @Tags auth
// @Accept json
// @Produce json
// @Param request body LoginRequest true "Login credentials"
// @Success 200 {object} LoginResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 401 {object} errors.ErrorResponse
// @Failure 429 {object} errors.ErrorResponse
// @Failure 500 {object} errors.ErrorResponse
// @Router /api/auth/login [post]
func (h *AuthHandler) Login(c echo.Context) error {
	var req LoginRequest
	if err := c.Bind(&req); err != nil {
		return errorResponse(h.log, "login", apperrors.ErrInvalidRequest)
	}

	res, err := h.authService.Login(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		return errorResponse(h.log, "login", err)
	}

	c.SetCookie(h.sessionCookie(res.Token, int(auth.SessionTokenExpiry.Seconds())))
	return c.JSON(http.StatusOK, LoginResponse{
		Message: "Login bem-sucedido!",
		Role:    res.Role,
	})
}

// Logout godoc
// @Summary Log out
// @Description Clears the session cookie. Tokens are not revoked server side.
// @Tags auth
// @Produce json
// @Success 200 {object} MessageResponse
// @Router /api/auth/logout [post]
func (h *AuthHandler) Logout(c echo.Context) error {
	c.SetCookie(h.sessionCookie("", -1))
	return c.JSON(http.StatusOK, MessageResponse{Message: "Logout realizado com sucesso."})
}

func (h *AuthHandler) sessionCookie(value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     gate.CookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	}
}
