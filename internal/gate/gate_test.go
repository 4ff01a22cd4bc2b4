package gate

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gptcatalog/internal/auth"
	"gptcatalog/internal/model"
)

var issuedAt = time.Date(2026, 4, 10, 9, 0, 0, 0, time.UTC)

type countingRecorder struct {
	mu     sync.Mutex
	counts map[string]int
}

func (r *countingRecorder) ObserveGate(outcome string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.counts == nil {
		r.counts = map[string]int{}
	}
	r.counts[outcome]++
}

func newCodec(t *testing.T, now *time.Time) *auth.TokenCodec {
	t.Helper()
	codec, err := auth.NewTokenCodec("gate-secret", auth.WithClock(func() time.Time { return *now }))
	require.NoError(t, err)
	return codec
}

func issue(t *testing.T, codec *auth.TokenCodec, role model.Role) string {
	t.Helper()
	token, err := codec.Issue(5, "user@example.com", role)
	require.NoError(t, err)
	return token
}

func TestGate_Decide(t *testing.T) {
	now := issuedAt
	codec := newCodec(t, &now)
	g := New(codec)

	guest := issue(t, codec, model.RoleGuest)
	invited := issue(t, codec, model.RoleInvited)
	paid := issue(t, codec, model.RolePaid)

	tests := []struct {
		name     string
		path     string
		token    string
		outcome  Outcome
		location string
	}{
		{"no token on root", "/", "", RedirectLogin, "/login?redirectedFrom=%2F"},
		{"garbage token on root", "/", "garbage", RedirectLogin, "/login?redirectedFrom=%2F"},
		{"guest on root", "/", guest, RedirectPaywall, "/paywall"},
		{"invited on root", "/", invited, PassThrough, ""},
		{"paid on root", "/", paid, PassThrough, ""},
		{"login page without token", "/login", "", PassThrough, ""},
		{"signup page without token", "/signup", "", PassThrough, ""},
		{"paywall without token", "/paywall", "", PassThrough, ""},
		{"favicon", "/favicon.ico", "", PassThrough, ""},
		{"api without token", "/api/auth/login", "", PassThrough, ""},
		{"webhook without token", "/api/webhook/hotmart", "", PassThrough, ""},
		{"static asset", "/static/app.css", "", PassThrough, ""},
		{"build asset", "/_next/chunk.js", "", PassThrough, ""},
		{"icon", "/icons/gpt.png", "", PassThrough, ""},
		{"unlisted path without token", "/settings", "", RedirectLogin, "/login?redirectedFrom=%2Fsettings"},
		{"guest on unlisted path", "/settings", guest, PassThrough, ""},
		{"exact match only", "/login/extra", "", RedirectLogin, "/login?redirectedFrom=%2Flogin%2Fextra"},
		{"empty path is root", "", "", RedirectLogin, "/login?redirectedFrom=%2F"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := g.Decide(tt.path, tt.token)
			assert.Equal(t, tt.outcome, d.Outcome)
			assert.Equal(t, tt.location, d.Location)
		})
	}
}

func TestGate_ExpiredTokenRedirectsToLogin(t *testing.T) {
	now := issuedAt
	codec := newCodec(t, &now)
	g := New(codec)
	token := issue(t, codec, model.RolePaid)

	now = issuedAt.Add(auth.SessionTokenExpiry - time.Second)
	assert.Equal(t, PassThrough, g.Decide("/", token).Outcome)

	now = issuedAt.Add(auth.SessionTokenExpiry)
	d := g.Decide("/", token)
	assert.Equal(t, RedirectLogin, d.Outcome)
	assert.Equal(t, "/login?redirectedFrom=%2F", d.Location)
}

func TestGate_UnknownRoleRedirectsToLogin(t *testing.T) {
	now := issuedAt
	codec := newCodec(t, &now)
	g := New(codec)

	d := g.Decide("/", issue(t, codec, model.Role("admin")))
	assert.Equal(t, RedirectLogin, d.Outcome)
}

func TestGate_DenyFallback(t *testing.T) {
	now := issuedAt
	codec := newCodec(t, &now)
	g := New(codec, WithPolicy(DefaultPolicy().WithFallback(RedirectPaywall)))

	assert.Equal(t, RedirectPaywall, g.Decide("/settings", issue(t, codec, model.RoleGuest)).Outcome)
	assert.Equal(t, PassThrough, g.Decide("/", issue(t, codec, model.RoleInvited)).Outcome)
	assert.Equal(t, PassThrough, g.Decide("/login", "").Outcome, "exempt paths ignore the policy")
}

func TestPolicy_WithFallbackCopiesRules(t *testing.T) {
	base := DefaultPolicy()
	deny := base.WithFallback(RedirectPaywall)
	deny.Rules[0].Outcome = PassThrough

	assert.Equal(t, RedirectPaywall, base.Rules[0].Outcome)
	assert.Equal(t, PassThrough, base.Fallback)
}

func TestGate_Middleware(t *testing.T) {
	now := issuedAt
	codec := newCodec(t, &now)
	rec := &countingRecorder{}
	g := New(codec, WithRecorder(rec))

	e := echo.New()
	e.Use(g.Middleware())
	e.GET("/", func(c echo.Context) error {
		return c.String(http.StatusOK, "catalog")
	})
	e.GET("/login", func(c echo.Context) error {
		return c.String(http.StatusOK, "login")
	})

	do := func(path, token string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		if token != "" {
			req.AddCookie(&http.Cookie{Name: CookieName, Value: token})
		}
		w := httptest.NewRecorder()
		e.ServeHTTP(w, req)
		return w
	}

	w := do("/", "")
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/login?redirectedFrom=%2F", w.Header().Get("Location"))

	w = do("/", issue(t, codec, model.RoleGuest))
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/paywall", w.Header().Get("Location"))

	w = do("/", issue(t, codec, model.RolePaid))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "catalog", w.Body.String())

	w = do("/login", "")
	assert.Equal(t, http.StatusOK, w.Code)

	assert.Equal(t, 1, rec.counts[string(RedirectLogin)])
	assert.Equal(t, 1, rec.counts[string(RedirectPaywall)])
	assert.Equal(t, 2, rec.counts[string(PassThrough)])
}
