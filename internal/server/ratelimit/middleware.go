package ratelimit

import (
	"log/slog"
	"net/http"

	"olh/internal/server/metrics"

	"github.com/labstack/echo/v4"
)

// Limiter decides whether one more request for key is allowed.
type Limiter interface {
	Allow(key string) bool
	Close() error
}

// Middleware returns an echo middleware that enforces l per client IP.
func Middleware(l Limiter) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ip := c.RealIP()
			if !l.Allow(ip) {
				metrics.RateLimited.Inc()
				slog.Warn("rate limit exceeded", "ip", ip, "path", c.Path())
				return c.JSON(http.StatusTooManyRequests, echo.Map{
					"error": "rate limit exceeded, try again later",
				})
			}
			return next(c)
		}
	}
}
