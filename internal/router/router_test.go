package router

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/glebarez/sqlite"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"gptcatalog/internal/auth"
	"gptcatalog/internal/cache"
	"gptcatalog/internal/catalog"
	"gptcatalog/internal/config"
	"gptcatalog/internal/gate"
	"gptcatalog/internal/handler"
	"gptcatalog/internal/logger"
	"gptcatalog/internal/metrics"
	"gptcatalog/internal/model"
	"gptcatalog/internal/ratelimit"
	"gptcatalog/internal/repository"
	"gptcatalog/internal/service"
)

const hotmartSecret = "hot-secret"

type testServer struct {
	e       *echo.Echo
	db      *gorm.DB
	metrics *metrics.Metrics
}

func newTestServer(t *testing.T, rate string, opts ...func(*config.Config)) *testServer {
	t.Helper()

	gdb, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	sqlDB, err := gdb.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, gdb.AutoMigrate(&model.User{}, &model.InviteCode{}, &model.PaymentEvent{}))

	mr := miniredis.RunT(t)
	cacheClient := cache.New(mr.Addr(), "", 0)

	cfg := &config.Config{StaticDir: t.TempDir(), Env: "development"}
	for _, opt := range opts {
		opt(cfg)
	}
	log := logger.Nop()
	m := metrics.New()

	codec, err := auth.NewTokenCodec("jwt-secret")
	require.NoError(t, err)
	hasher := auth.NewPasswordHasherWithCost(2, bcrypt.MinCost)

	users := repository.NewUserRepository(gdb)
	invites := repository.NewInviteRepository(gdb)
	events := repository.NewPaymentEventRepository(gdb)

	recorder := service.NewEventRecorder(events, log, service.WithFlushInterval(10*time.Millisecond))
	t.Cleanup(recorder.Close)

	profiles := service.NewUserService(users, cacheClient)
	authSvc := service.NewAuthService(users, invites, codec, hasher, log, service.WithAuthRecorder(m))
	transitions, err := service.NewRoleTransitionService(hotmartSecret, users, cache.NewDeliveryStore(cacheClient), recorder, log,
		service.WithProfileCache(profiles), service.WithWebhookRecorder(m))
	require.NoError(t, err)

	limiter, err := ratelimit.New(rate, nil, log, m)
	require.NoError(t, err)

	cat, err := catalog.Parse([]byte(`[{"category":"Escrita","gpts":[{"name":"Revisor"}]}]`))
	require.NoError(t, err)

	e := echo.New()
	Register(e, cfg, log, codec, gate.New(codec, gate.WithRecorder(m)), limiter, Handlers{
		Auth:    handler.NewAuthHandler(authSvc, false, log),
		User:    handler.NewUserHandler(profiles, log),
		Webhook: handler.NewWebhookHandler(transitions, log),
		Page:    handler.NewPageHandler(cat, codec, "https://pay.example.com/?email={user_email}"),
		Health:  handler.NewHealthHandler(handler.PingFunc(sqlDB.PingContext), cacheClient),
		Metrics: m.Handler(),
	})

	require.NoError(t, invites.CreateBatch(t.Context(), []model.InviteCode{{Code: "FRIENDS"}}))
	return &testServer{e: e, db: gdb, metrics: m}
}

func (s *testServer) do(method, path, body string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	for _, ck := range cookies {
		req.AddCookie(ck)
	}
	w := httptest.NewRecorder()
	s.e.ServeHTTP(w, req)
	return w
}

func (s *testServer) login(t *testing.T, email, password string) *http.Cookie {
	t.Helper()
	w := s.do(http.MethodPost, "/api/auth/login", `{"email":"`+email+`","password":"`+password+`"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	for _, ck := range w.Result().Cookies() {
		if ck.Name == gate.CookieName {
			return ck
		}
	}
	t.Fatal("login did not set the session cookie")
	return nil
}

func TestRouter_GuestJourney(t *testing.T) {
	s := newTestServer(t, "100-M")

	w := s.do(http.MethodGet, "/", "")
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/login?redirectedFrom=%2F", w.Header().Get("Location"))

	w = s.do(http.MethodPost, "/api/auth/signup", `{"email":"guest@example.com","password":"secret1"}`)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Contains(t, w.Body.String(), `"role":"guest"`)

	cookie := s.login(t, "guest@example.com", "secret1")

	w = s.do(http.MethodGet, "/", "", cookie)
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/paywall", w.Header().Get("Location"))

	w = s.do(http.MethodGet, "/paywall", "", cookie)
	require.Equal(t, http.StatusOK, w.Code)
	var paywall handler.PaywallResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &paywall))
	assert.Equal(t, "https://pay.example.com/?email=guest%40example.com", paywall.CheckoutURL)

	webhookBody := `{"event":"purchase.approved","securityToken":"` + hotmartSecret + `","data":{"buyer":{"email":"guest@example.com"},"purchase":{"transaction":"HP1","status":"approved"}}}`
	w = s.do(http.MethodPost, "/api/webhook/hotmart", webhookBody)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "role_upgraded")

	w = s.do(http.MethodGet, "/api/auth/me", "", cookie)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"role":"paid"`, "profile reflects the webhook before the token does")

	w = s.do(http.MethodGet, "/", "", cookie)
	assert.Equal(t, http.StatusFound, w.Code, "old token still carries the guest role")

	cookie = s.login(t, "guest@example.com", "secret1")
	w = s.do(http.MethodGet, "/", "", cookie)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Revisor")

	w = s.do(http.MethodPost, "/api/webhook/hotmart", webhookBody)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "duplicate")
}

func TestRouter_InvitedUserPasses(t *testing.T) {
	s := newTestServer(t, "100-M")

	w := s.do(http.MethodPost, "/api/auth/signup", `{"email":"friend@example.com","password":"secret1","inviteCode":"FRIENDS"}`)
	require.Equal(t, http.StatusCreated, w.Code)

	w = s.do(http.MethodPost, "/api/auth/signup", `{"email":"other@example.com","password":"secret1","inviteCode":"FRIENDS"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "INVITE_ALREADY_USED")

	cookie := s.login(t, "friend@example.com", "secret1")
	assert.Equal(t, http.StatusOK, s.do(http.MethodGet, "/", "", cookie).Code)

	w = s.do(http.MethodPost, "/api/auth/logout", "", cookie)
	require.Equal(t, http.StatusOK, w.Code)
}

func TestRouter_ExemptPathsAndSecuredRoutes(t *testing.T) {
	s := newTestServer(t, "100-M")

	assert.Equal(t, http.StatusOK, s.do(http.MethodGet, "/api/healthz", "").Code)
	assert.Equal(t, http.StatusOK, s.do(http.MethodGet, "/paywall", "").Code)
	assert.Equal(t, http.StatusNotFound, s.do(http.MethodGet, "/icons/missing.png", "").Code)

	w := s.do(http.MethodGet, "/api/auth/me", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "INVALID_TOKEN")

	w = s.do(http.MethodGet, "/api/auth/me", "", &http.Cookie{Name: gate.CookieName, Value: "forged"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = s.do(http.MethodGet, "/settings", "", &http.Cookie{Name: gate.CookieName, Value: "forged"})
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/login?redirectedFrom=%2Fsettings", w.Header().Get("Location"))

	w = s.do(http.MethodPost, "/api/webhook/hotmart", `{"event":"purchase.approved","securityToken":"nope","data":{"buyer":{"email":"a@b.co"}}}`)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRouter_RateLimitsCredentials(t *testing.T) {
	s := newTestServer(t, "2-M")

	body := `{"email":"ghost@example.com","password":"secret1"}`
	assert.Equal(t, http.StatusUnauthorized, s.do(http.MethodPost, "/api/auth/login", body).Code)
	assert.Equal(t, http.StatusUnauthorized, s.do(http.MethodPost, "/api/auth/login", body).Code)

	w := s.do(http.MethodPost, "/api/auth/login", body)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Contains(t, w.Body.String(), "RATE_LIMITED")

	assert.Equal(t, http.StatusOK, s.do(http.MethodPost, "/api/auth/logout", "").Code, "logout is not throttled")
}

func (s *testServer) loginFrom(remoteAddr, forwardedFor string) int {
	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(`{"email":"ghost@example.com","password":"secret1"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	req.RemoteAddr = remoteAddr
	if forwardedFor != "" {
		req.Header.Set(echo.HeaderXForwardedFor, forwardedFor)
		req.Header.Set(echo.HeaderXRealIP, forwardedFor)
	}
	w := httptest.NewRecorder()
	s.e.ServeHTTP(w, req)
	return w.Code
}

func TestRouter_RateLimitIgnoresSpoofedForwardedFor(t *testing.T) {
	s := newTestServer(t, "2-M")

	var codes []int
	for i := 0; i < 5; i++ {
		codes = append(codes, s.loginFrom("10.0.0.9:4100", fmt.Sprintf("1.2.3.%d", i)))
	}

	assert.Equal(t, []int{
		http.StatusUnauthorized,
		http.StatusUnauthorized,
		http.StatusTooManyRequests,
		http.StatusTooManyRequests,
		http.StatusTooManyRequests,
	}, codes)
}

func TestRouter_RateLimitTrustedProxy(t *testing.T) {
	s := newTestServer(t, "2-M", func(cfg *config.Config) {
		cfg.TrustedProxies = []string{"10.0.0.0/24"}
	})

	// clients behind the proxy get their own buckets
	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusUnauthorized, s.loginFrom("10.0.0.9:4100", fmt.Sprintf("1.2.3.%d", i)))
	}
	assert.Equal(t, http.StatusUnauthorized, s.loginFrom("10.0.0.9:4100", "1.2.3.0"))
	assert.Equal(t, http.StatusTooManyRequests, s.loginFrom("10.0.0.9:4100", "1.2.3.0"))

	// a peer outside the trusted range cannot choose its bucket
	assert.Equal(t, http.StatusUnauthorized, s.loginFrom("203.0.113.7:5000", "1.2.3.50"))
	assert.Equal(t, http.StatusUnauthorized, s.loginFrom("203.0.113.7:5000", "1.2.3.51"))
	assert.Equal(t, http.StatusTooManyRequests, s.loginFrom("203.0.113.7:5000", "1.2.3.52"))
}

func TestRouter_Metrics(t *testing.T) {
	s := newTestServer(t, "100-M")
	s.do(http.MethodGet, "/", "")
	s.do(http.MethodPost, "/api/auth/login", `{"email":"ghost@example.com","password":"secret1"}`)

	w := s.do(http.MethodGet, "/api/metrics", "")
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, `gptcatalog_gate_decisions_total{outcome="login"} 1`)
	assert.Contains(t, body, `gptcatalog_auth_attempts_total{operation="login",result="auth"} 1`)
}
