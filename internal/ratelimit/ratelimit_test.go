package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type routeCounter map[string]int

func (r routeCounter) ObserveRateLimited(route string) { r[route]++ }

func newServer(t *testing.T, l *Limiter) *echo.Echo {
	t.Helper()
	e := echo.New()
	e.POST("/api/auth/login", func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	}, l.Middleware())
	return e
}

func post(e *echo.Echo, ip string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", nil)
	req.RemoteAddr = ip + ":5555"
	w := httptest.NewRecorder()
	e.ServeHTTP(w, req)
	return w
}

func TestLimiter_MemoryStore(t *testing.T) {
	counter := routeCounter{}
	l, err := New("2-M", nil, nil, counter)
	require.NoError(t, err)
	e := newServer(t, l)

	assert.Equal(t, http.StatusOK, post(e, "10.0.0.1").Code)
	w := post(e, "10.0.0.1")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "2", w.Header().Get(HeaderLimit))
	assert.Equal(t, "0", w.Header().Get(HeaderRemaining))

	w = post(e, "10.0.0.1")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Contains(t, w.Body.String(), "RATE_LIMITED")
	assert.Equal(t, 1, counter["/api/auth/login"])

	assert.Equal(t, http.StatusOK, post(e, "10.0.0.2").Code, "limits are per client")
}

func TestLimiter_RedisStore(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	l, err := New("1-M", client, nil, nil)
	require.NoError(t, err)
	e := newServer(t, l)

	assert.Equal(t, http.StatusOK, post(e, "10.0.0.3").Code)
	assert.Equal(t, http.StatusTooManyRequests, post(e, "10.0.0.3").Code)
}

func TestNew_InvalidRate(t *testing.T) {
	_, err := New("lots", nil, nil, nil)
	assert.Error(t, err)
}
