package errors

import (
	"errors"
	"net/http"
)

// Kind classifies domain errors for HTTP mapping and logging.
type Kind string

const (
	KindValidation           Kind = "validation"
	KindAuth                 Kind = "auth"
	KindConflict             Kind = "conflict"
	KindConfig               Kind = "config"
	KindUpstreamVerification Kind = "upstream_verification"
	KindRateLimited          Kind = "rate_limited"
	KindInternal             Kind = "internal"
)

// DomainError is a sentinel error carrying its kind, a stable code and the
// localized message shown to end users.
type DomainError struct {
	kind    Kind
	code    string
	status  int
	msg     string
	display string
}

func newDomainError(kind Kind, status int, code, msg, display string) *DomainError {
	return &DomainError{kind: kind, code: code, status: status, msg: msg, display: display}
}

func (e *DomainError) Error() string { return e.msg }

// Kind returns the error category.
func (e *DomainError) Kind() Kind { return e.kind }

// Code returns the stable machine-readable code.
func (e *DomainError) Code() string { return e.code }

var (
	// ErrMissingCredentials is returned when email or password is absent.
	ErrMissingCredentials = newDomainError(KindValidation, http.StatusBadRequest, "MISSING_FIELDS",
		"email and password are required", "Email e senha são obrigatórios.")
	// ErrInvalidEmail is returned when the email does not match local@domain.tld.
	ErrInvalidEmail = newDomainError(KindValidation, http.StatusBadRequest, "INVALID_EMAIL",
		"invalid email format", "Formato de email inválido.")
	// ErrPasswordTooShort is returned when a signup password has fewer than 6 characters.
	ErrPasswordTooShort = newDomainError(KindValidation, http.StatusBadRequest, "PASSWORD_TOO_SHORT",
		"password must have at least 6 characters", "A senha deve ter pelo menos 6 caracteres.")
	// ErrPasswordTooLong is returned when a signup password exceeds 72 bytes.
	ErrPasswordTooLong = newDomainError(KindValidation, http.StatusBadRequest, "PASSWORD_TOO_LONG",
		"password must have at most 72 bytes", "A senha deve ter no máximo 72 bytes.")
	// ErrInvalidRequest is returned when a request body cannot be decoded.
	ErrInvalidRequest = newDomainError(KindValidation, http.StatusBadRequest, "INVALID_REQUEST",
		"invalid request body", "Requisição inválida.")
	// ErrInvalidInvite is returned when an invite code is unknown or expired.
	ErrInvalidInvite = newDomainError(KindValidation, http.StatusBadRequest, "INVALID_INVITE",
		"invalid or expired invite code", "Código de convite inválido ou expirado.")
	// ErrInviteAlreadyUsed is returned when an invite code was already redeemed.
	ErrInviteAlreadyUsed = newDomainError(KindConflict, http.StatusBadRequest, "INVITE_ALREADY_USED",
		"invite code already used", "Código de convite já utilizado.")
	// ErrDuplicateUser is returned when signing up with an email that already exists.
	ErrDuplicateUser = newDomainError(KindConflict, http.StatusConflict, "USER_ALREADY_EXISTS",
		"user already exists", "Usuário já cadastrado com este email.")
	// ErrInvalidCredentials is returned for unknown email and wrong password alike.
	ErrInvalidCredentials = newDomainError(KindAuth, http.StatusUnauthorized, "INVALID_CREDENTIALS",
		"invalid email or password", "Credenciais inválidas.")
	// ErrInvalidToken is returned for absent, malformed, tampered or expired session tokens.
	ErrInvalidToken = newDomainError(KindAuth, http.StatusUnauthorized, "INVALID_TOKEN",
		"invalid or expired session token", "Sessão inválida ou expirada.")
	// ErrInvalidConfig is returned when a configuration value is malformed.
	ErrInvalidConfig = newDomainError(KindConfig, http.StatusInternalServerError, "CONFIG_ERROR",
		"invalid server configuration", "Configuração interna do servidor incompleta.")
	// ErrMissingSecret is returned when a signing or shared secret is not configured.
	ErrMissingSecret = newDomainError(KindConfig, http.StatusInternalServerError, "CONFIG_ERROR",
		"server secret not configured", "Configuração interna do servidor incompleta.")
	// ErrWebhookUnauthorized is returned when a webhook security token does not match.
	ErrWebhookUnauthorized = newDomainError(KindUpstreamVerification, http.StatusUnauthorized, "UNAUTHORIZED",
		"webhook security token mismatch", "Unauthorized")
	// ErrBadPayload is returned when a webhook payload lacks the buyer identity.
	ErrBadPayload = newDomainError(KindValidation, http.StatusBadRequest, "BAD_PAYLOAD",
		"webhook payload missing buyer email", "Invalid payload")
	// ErrRateLimited is returned when a client exceeds the auth endpoints rate.
	ErrRateLimited = newDomainError(KindRateLimited, http.StatusTooManyRequests, "RATE_LIMITED",
		"too many requests", "Muitas tentativas. Tente novamente em instantes.")
)

// ErrorResponse represents a standardized error response.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// HTTPError represents an HTTP error with status code.
type HTTPError struct {
	StatusCode int
	Message    string
	Code       string
}

func (e *HTTPError) Error() string {
	return e.Message
}

// NewHTTPError creates a new HTTP error.
func NewHTTPError(statusCode int, message, code string) *HTTPError {
	return &HTTPError{
		StatusCode: statusCode,
		Message:    message,
		Code:       code,
	}
}

// ToErrorResponse converts an HTTPError to ErrorResponse.
func (e *HTTPError) ToErrorResponse() ErrorResponse {
	return ErrorResponse{
		Error: e.Message,
		Code:  e.Code,
	}
}

// KindOf returns the kind of err, or KindInternal for anything unrecognised.
func KindOf(err error) Kind {
	var de *DomainError
	if errors.As(err, &de) {
		return de.kind
	}
	return KindInternal
}

// MapErrorToHTTP maps domain errors to HTTP errors. Wrapped domain errors are
// unwrapped; everything else becomes a generic internal error so no detail leaks.
func MapErrorToHTTP(err error) *HTTPError {
	var de *DomainError
	if errors.As(err, &de) {
		return NewHTTPError(de.status, de.display, de.code)
	}
	return NewHTTPError(http.StatusInternalServerError, "Erro interno do servidor.", "INTERNAL_ERROR")
}
