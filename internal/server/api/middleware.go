package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"olh/internal/domain"
	"olh/internal/server/auth"
	"olh/internal/server/metrics"

	"github.com/labstack/echo/v4"
)

const principalKey = "principal"

var errNoToken = errors.New("no token, authorization denied")

// RequestLogger returns an echo middleware that logs requests using slog
// and records them in the request metrics.
func RequestLogger() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			err := next(c)
			if err != nil {
				c.Error(err)
			}

			req := c.Request()
			res := c.Response()
			elapsed := time.Since(start)

			route := c.Path()
			if route == "" {
				route = "unmatched"
			}
			metrics.RecordRequest(req.Method, route, strconv.Itoa(res.Status), elapsed)

			slog.Info("request",
				"method", req.Method,
				"path", req.URL.Path,
				"status", res.Status,
				"latency_ms", elapsed.Milliseconds(),
				"ip", c.RealIP(),
				"user_agent", req.UserAgent(),
				"bytes_out", res.Size,
			)

			return nil
		}
	}
}

// RequireAuth rejects requests without a valid bearer token and stores the
// caller's principal for the handlers.
func RequireAuth(tokens *auth.TokenIssuer) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			p, err := bearerPrincipal(c, tokens)
			if err != nil {
				msg := "token is invalid"
				if errors.Is(err, errNoToken) {
					msg = err.Error()
				}
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": msg})
			}
			c.Set(principalKey, p)
			return next(c)
		}
	}
}

// OptionalAuth stores the caller's principal when a valid bearer token is
// present and lets anonymous requests through otherwise.
func OptionalAuth(tokens *auth.TokenIssuer) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if p, err := bearerPrincipal(c, tokens); err == nil {
				c.Set(principalKey, p)
			}
			return next(c)
		}
	}
}

// RequireModerator must run after RequireAuth.
func RequireModerator() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !principal(c).CanModerate() {
				return c.JSON(http.StatusForbidden, echo.Map{"error": "access denied, admin only"})
			}
			return next(c)
		}
	}
}

func bearerPrincipal(c echo.Context, tokens *auth.TokenIssuer) (domain.Principal, error) {
	header := c.Request().Header.Get(echo.HeaderAuthorization)
	raw, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || strings.TrimSpace(raw) == "" {
		return domain.Principal{}, errNoToken
	}
	p, err := tokens.Parse(strings.TrimSpace(raw))
	if err != nil {
		slog.Debug("rejected bearer token", "error", err, "ip", c.RealIP())
		return domain.Principal{}, err
	}
	return p, nil
}

// principal returns the authenticated caller, or the zero Principal for
// anonymous requests.
func principal(c echo.Context) domain.Principal {
	p, _ := c.Get(principalKey).(domain.Principal)
	return p
}
