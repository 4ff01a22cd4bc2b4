package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v4"

	apperrors "gptcatalog/internal/errors"
	"gptcatalog/internal/logger"
	"gptcatalog/internal/model"
)

// SessionTokenExpiry is the fixed lifetime of a session token. Tokens are
// never renewed; the client logs in again after expiry.
const SessionTokenExpiry = 24 * time.Hour

func init() {
	// Timestamps keep millisecond precision so a token issued mid-second is
	// not cut short by up to a second.
	jwt.TimePrecision = time.Millisecond
}

// Claims represents the session token claims.
type Claims struct {
	UserID uint       `json:"userId"`
	Email  string     `json:"email"`
	Role   model.Role `json:"role"`
	jwt.RegisteredClaims
}

// TokenVerifier verifies session tokens. All failures collapse to
// ErrInvalidToken.
type TokenVerifier interface {
	Verify(token string) (*Claims, error)
}

// TokenCodec issues and verifies HS256 session tokens.
type TokenCodec struct {
	secret []byte
	now    func() time.Time
	log    logger.Logger
}

// CodecOption customizes a TokenCodec.
type CodecOption func(*TokenCodec)

// WithClock injects a custom clock (useful for tests).
func WithClock(now func() time.Time) CodecOption {
	return func(c *TokenCodec) {
		if now != nil {
			c.now = now
		}
	}
}

// WithLogger sets the logger used for verification diagnostics.
func WithLogger(log logger.Logger) CodecOption {
	return func(c *TokenCodec) {
		if log != nil {
			c.log = log
		}
	}
}

// NewTokenCodec creates a codec signing with secret. An empty secret is a
// configuration error, never silently defaulted.
func NewTokenCodec(secret string, opts ...CodecOption) (*TokenCodec, error) {
	if secret == "" {
		return nil, fmt.Errorf("token codec: %w", apperrors.ErrMissingSecret)
	}
	c := &TokenCodec{
		secret: []byte(secret),
		now:    time.Now,
		log:    logger.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Issue signs a session token for the user valid for SessionTokenExpiry.
func (c *TokenCodec) Issue(userID uint, email string, role model.Role) (string, error) {
	now := c.now()
	claims := &Claims{
		UserID: userID,
		Email:  email,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(uint64(userID), 10),
			ExpiresAt: jwt.NewNumericDate(now.Add(SessionTokenExpiry)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(c.secret)
}

// Verify checks signature and lifetime and returns the claims.
func (c *TokenCodec) Verify(tokenString string) (*Claims, error) {
	if tokenString == "" {
		return nil, apperrors.ErrInvalidToken
	}

	// Time-based claims are checked below against the injected clock.
	parser := jwt.NewParser(jwt.WithoutClaimsValidation())
	claims := &Claims{}
	token, err := parser.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return c.secret, nil
	})
	if err != nil {
		c.log.Debug("session token rejected", "reason", rejectReason(err))
		return nil, apperrors.ErrInvalidToken
	}
	if !token.Valid {
		c.log.Debug("session token rejected", "reason", "invalid")
		return nil, apperrors.ErrInvalidToken
	}

	now := c.now()
	if claims.ExpiresAt == nil || !now.Before(claims.ExpiresAt.Time) {
		c.log.Debug("session token rejected", "reason", "expired", "user_id", claims.UserID)
		return nil, apperrors.ErrInvalidToken
	}
	if claims.NotBefore != nil && now.Before(claims.NotBefore.Time) {
		c.log.Debug("session token rejected", "reason", "not_yet_valid", "user_id", claims.UserID)
		return nil, apperrors.ErrInvalidToken
	}
	return claims, nil
}

func rejectReason(err error) string {
	var ve *jwt.ValidationError
	if errors.As(err, &ve) {
		switch {
		case ve.Errors&jwt.ValidationErrorMalformed != 0:
			return "malformed"
		case ve.Errors&jwt.ValidationErrorSignatureInvalid != 0:
			return "signature"
		case ve.Errors&jwt.ValidationErrorUnverifiable != 0:
			return "unverifiable"
		}
	}
	return "invalid"
}
