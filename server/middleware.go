package server

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

// headerRequestID carries the correlation id; incoming values are kept so
// callers can trace requests across services.
const headerRequestID = "X-Request-Id"

// requestLogger logs one line per request with a correlation id.
func requestLogger(log zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			id := c.Request().Header.Get(headerRequestID)
			if id == "" {
				id = uuid.NewString()
			}
			c.Response().Header().Set(headerRequestID, id)

			err := next(c)
			if err != nil {
				c.Error(err)
			}

			log.Info().
				Str("request_id", id).
				Str("method", c.Request().Method).
				Str("path", c.Request().URL.Path).
				Int("status", c.Response().Status).
				Dur("latency", time.Since(start)).
				Str("remote", c.RealIP()).
				Msg("request")

			return err
		}
	}
}

// bodyLimit renders a byte count in the form echo's body limit middleware
// expects.
func bodyLimit(n int64) string {
	const mb = 1024 * 1024
	if n%mb == 0 {
		return fmt.Sprintf("%dM", n/mb)
	}
	return fmt.Sprintf("%dK", n/1024)
}
