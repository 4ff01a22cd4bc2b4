package router

import (
	"net/http"
	"path/filepath"

	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	echoSwagger "github.com/swaggo/echo-swagger"

	"gptcatalog/internal/auth"
	"gptcatalog/internal/config"
	apperrors "gptcatalog/internal/errors"
	"gptcatalog/internal/gate"
	"gptcatalog/internal/handler"
	"gptcatalog/internal/logger"
	"gptcatalog/internal/ratelimit"
)

// Handlers groups the HTTP handlers mounted by Register.
type Handlers struct {
	Auth    *handler.AuthHandler
	User    *handler.UserHandler
	Webhook *handler.WebhookHandler
	Page    *handler.PageHandler
	Health  *handler.HealthHandler
	Metrics http.Handler
}

// Register wires routes and middleware. The access gate runs on every
// request before routing reaches a handler.
func Register(
	e *echo.Echo,
	cfg *config.Config,
	log logger.Logger,
	verifier auth.TokenVerifier,
	accessGate *gate.Gate,
	authLimiter *ratelimit.Limiter,
	h Handlers,
) {
	e.IPExtractor = clientIPExtractor(cfg, log)

	e.Use(middleware.RequestID())
	e.Use(requestLogger(log))
	e.Use(middleware.Recover())
	e.Use(accessGate.Middleware())

	e.GET("/", h.Page.Catalog)
	e.GET("/paywall", h.Page.Paywall)
	e.Static("/icons", filepath.Join(cfg.StaticDir, "icons"))
	e.File("/favicon.ico", filepath.Join(cfg.StaticDir, "favicon.ico"))

	api := e.Group("/api")

	api.GET("/healthz", h.Health.Healthz)
	if h.Metrics != nil {
		api.GET("/metrics", echo.WrapHandler(h.Metrics))
	}
	api.GET("/swagger/*", echoSwagger.WrapHandler)

	// Public routes
	credentials := api.Group("/auth")
	credentials.POST("/login", h.Auth.Login, authLimiter.Middleware())
	credentials.POST("/signup", h.Auth.Signup, authLimiter.Middleware())
	credentials.POST("/logout", h.Auth.Logout)

	api.POST("/webhook/hotmart", h.Webhook.Hotmart)

	// Secured routes (session cookie)
	secured := api.Group("", echojwt.WithConfig(sessionJWTConfig(verifier)))
	secured.GET("/auth/me", h.User.Me)
}

// clientIPExtractor decides what c.RealIP returns, which keys the rate
// limiter. X-Forwarded-For is honored only when the socket peer is a
// configured trusted proxy.
func clientIPExtractor(cfg *config.Config, log logger.Logger) echo.IPExtractor {
	nets, err := cfg.TrustedProxyNets()
	if err != nil {
		log.Warn("ignoring trusted proxies", "error", err)
		nets = nil
	}
	if len(nets) == 0 {
		return echo.ExtractIPDirect()
	}
	opts := []echo.TrustOption{
		echo.TrustLoopback(false),
		echo.TrustLinkLocal(false),
		echo.TrustPrivateNet(false),
	}
	for _, n := range nets {
		opts = append(opts, echo.TrustIPRange(n))
	}
	return echo.ExtractIPFromXFFHeader(opts...)
}

// sessionJWTConfig reads the session cookie and verifies it with the token
// codec so expiry follows the codec's clock.
func sessionJWTConfig(verifier auth.TokenVerifier) echojwt.Config {
	return echojwt.Config{
		TokenLookup: "cookie:" + gate.CookieName,
		ContextKey:  handler.ClaimsContextKey,
		ParseTokenFunc: func(_ echo.Context, token string) (interface{}, error) {
			claims, err := verifier.Verify(token)
			if err != nil {
				return nil, err
			}
			return claims, nil
		},
		ErrorHandler: func(_ echo.Context, _ error) error {
			httpErr := apperrors.MapErrorToHTTP(apperrors.ErrInvalidToken)
			return echo.NewHTTPError(httpErr.StatusCode, httpErr.ToErrorResponse())
		},
	}
}

func requestLogger(log logger.Logger) echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:    true,
		LogURI:       true,
		LogMethod:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogRemoteIP:  true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(_ echo.Context, v middleware.RequestLoggerValues) error {
			kv := []any{
				"method", v.Method,
				"uri", v.URI,
				"status", v.Status,
				"latency", v.Latency,
				"request_id", v.RequestID,
				"remote_ip", v.RemoteIP,
			}
			switch {
			case v.Status >= http.StatusInternalServerError:
				log.Error("request", append(kv, "error", v.Error)...)
			case v.Status >= http.StatusBadRequest:
				log.Warn("request", kv...)
			default:
				log.Info("request", kv...)
			}
			return nil
		},
	})
}
