// Package ratelimit throttles the credential endpoints per client IP.
package ratelimit

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/store/memory"
	sredis "github.com/ulule/limiter/v3/drivers/store/redis"

	apperrors "gptcatalog/internal/errors"
	"gptcatalog/internal/logger"
)

const (
	// DefaultRate applies when no rate is configured.
	DefaultRate = "20-M"
	keyPrefix   = "gptcatalog:ratelimit"

	HeaderLimit     = "X-RateLimit-Limit"
	HeaderRemaining = "X-RateLimit-Remaining"
	HeaderReset     = "X-RateLimit-Reset"
)

// Recorder observes rejected requests.
type Recorder interface {
	ObserveRateLimited(route string)
}

// Limiter wraps a ulule limiter for use as echo middleware.
type Limiter struct {
	limiter  *limiter.Limiter
	log      logger.Logger
	recorder Recorder
}

// New creates a limiter for rate (for example "20-M"). A nil client selects
// the in-process memory store.
func New(rate string, client *redis.Client, log logger.Logger, recorder Recorder) (*Limiter, error) {
	if rate == "" {
		rate = DefaultRate
	}
	parsed, err := limiter.NewRateFromFormatted(rate)
	if err != nil {
		return nil, fmt.Errorf("parse rate %q: %w", rate, err)
	}

	var store limiter.Store
	if client != nil {
		store, err = sredis.NewStoreWithOptions(client, limiter.StoreOptions{
			Prefix:   keyPrefix,
			MaxRetry: 3,
		})
		if err != nil {
			return nil, fmt.Errorf("create redis store: %w", err)
		}
	} else {
		store = memory.NewStoreWithOptions(limiter.StoreOptions{
			Prefix:          keyPrefix,
			CleanUpInterval: limiter.DefaultCleanUpInterval,
		})
	}

	if log == nil {
		log = logger.Nop()
	}
	return &Limiter{limiter: limiter.New(store, parsed), log: log, recorder: recorder}, nil
}

// Middleware rejects requests over the rate with 429. Store failures let the
// request through.
func (l *Limiter) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			route := c.Path()
			key := route + ":" + c.RealIP()

			lctx, err := l.limiter.Get(c.Request().Context(), key)
			if err != nil {
				l.log.Warn("rate limiter unavailable", "route", route, "error", err)
				return next(c)
			}

			h := c.Response().Header()
			h.Set(HeaderLimit, strconv.FormatInt(lctx.Limit, 10))
			h.Set(HeaderRemaining, strconv.FormatInt(lctx.Remaining, 10))
			h.Set(HeaderReset, strconv.FormatInt(lctx.Reset, 10))

			if lctx.Reached {
				if l.recorder != nil {
					l.recorder.ObserveRateLimited(route)
				}
				l.log.Warn("rate limit reached", "route", route, "ip", c.RealIP())
				httpErr := apperrors.MapErrorToHTTP(apperrors.ErrRateLimited)
				return c.JSON(http.StatusTooManyRequests, httpErr.ToErrorResponse())
			}
			return next(c)
		}
	}
}
