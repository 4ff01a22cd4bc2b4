// Package gate decides, before any page logic runs, whether a request passes,
// is sent to the login page or is sent to the paywall.
package gate

import (
	"net/http"
	"net/url"

	"github.com/labstack/echo/v4"

	"gptcatalog/internal/auth"
	"gptcatalog/internal/logger"
)

// CookieName is the cookie carrying the session token.
const CookieName = "auth_token"

// Recorder observes gate outcomes.
type Recorder interface {
	ObserveGate(outcome string)
}

// Decision is the result of evaluating one request.
type Decision struct {
	Outcome  Outcome
	Location string
	Claims   *auth.Claims
}

// Gate is stateless: a decision depends only on the path and the token.
type Gate struct {
	verifier auth.TokenVerifier
	exempt   ExemptSet
	policy   Policy
	log      logger.Logger
	recorder Recorder
}

// Option customizes a Gate.
type Option func(*Gate)

// WithPolicy replaces the default role policy.
func WithPolicy(p Policy) Option {
	return func(g *Gate) { g.policy = p }
}

// WithLogger sets the gate logger.
func WithLogger(l logger.Logger) Option {
	return func(g *Gate) {
		if l != nil {
			g.log = l
		}
	}
}

// WithRecorder sets the outcome recorder.
func WithRecorder(r Recorder) Option {
	return func(g *Gate) { g.recorder = r }
}

// New creates a Gate verifying tokens with verifier.
func New(verifier auth.TokenVerifier, opts ...Option) *Gate {
	g := &Gate{
		verifier: verifier,
		exempt:   DefaultExemptSet(),
		policy:   DefaultPolicy(),
		log:      logger.Nop(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Decide evaluates path with the token taken from the session cookie.
// Absent, malformed and expired tokens all lead to the login redirect.
func (g *Gate) Decide(path, token string) Decision {
	if path == "" {
		path = ProtectedRoot
	}
	if g.exempt.Matches(path) {
		return Decision{Outcome: PassThrough}
	}

	claims, err := g.verifier.Verify(token)
	if err != nil || !claims.Role.IsValid() {
		return Decision{Outcome: RedirectLogin, Location: loginLocation(path)}
	}

	switch outcome := g.policy.Evaluate(claims.Role, path); outcome {
	case PassThrough:
		return Decision{Outcome: PassThrough, Claims: claims}
	case RedirectPaywall:
		return Decision{Outcome: RedirectPaywall, Location: PaywallPath, Claims: claims}
	default:
		return Decision{Outcome: RedirectLogin, Location: loginLocation(path), Claims: claims}
	}
}

// Middleware applies the gate to every request.
func (g *Gate) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			path := c.Request().URL.Path
			var token string
			if ck, err := c.Cookie(CookieName); err == nil {
				token = ck.Value
			}

			d := g.Decide(path, token)
			if g.recorder != nil {
				g.recorder.ObserveGate(string(d.Outcome))
			}

			switch d.Outcome {
			case PassThrough:
				if d.Claims != nil {
					g.log.Debug("gate pass", "path", path, "role", d.Claims.Role)
				}
				return next(c)
			case RedirectPaywall:
				g.log.Info("guest redirected to paywall", "path", path, "user_id", d.Claims.UserID)
			default:
				g.log.Debug("unauthenticated request redirected to login", "path", path)
			}
			return c.Redirect(http.StatusFound, d.Location)
		}
	}
}

func loginLocation(path string) string {
	q := url.Values{}
	q.Set("redirectedFrom", path)
	return LoginPath + "?" + q.Encode()
}
