package httpcontroller

import (
	"crypto/subtle"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

// configureMiddleware sets up middleware for the server.
func (s *Server) configureMiddleware() {
	s.Echo.Use(middleware.Recover())
	s.Echo.Use(s.bodyLimitMiddleware())
	s.Echo.Use(s.requestLogMiddleware())
}

// bodyLimitMiddleware rejects oversized requests before any processing.
func (s *Server) bodyLimitMiddleware() echo.MiddlewareFunc {
	limit := s.Settings.Ingest.MaxUploadSize
	if limit <= 0 {
		limit = 100 << 20
	}
	return middleware.BodyLimit(fmt.Sprintf("%d", limit))
}

// requestLogMiddleware logs one line per request to the web logger.
func (s *Server) requestLogMiddleware() echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:  true,
		LogURI:     true,
		LogMethod:  true,
		LogLatency: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			s.webLogger.Info("Request handled",
				"method", v.Method,
				"uri", v.URI,
				"status", v.Status,
				"latency_ms", v.Latency.Milliseconds(),
				"ip", s.RealIP(c))
			return nil
		},
	})
}

// AuthMiddleware requires the pre-shared ingest secret on a route. The
// secret is accepted from the Secret/secret form field or the X-API-Key
// header; any valid match authorizes.
func (s *Server) AuthMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		expected := s.Settings.Ingest.Secret
		if expected == "" {
			return s.handleError(c, nil, "uploads are disabled: no ingest secret configured", http.StatusUnauthorized)
		}

		for _, candidate := range []string{
			c.FormValue("Secret"),
			c.FormValue("secret"),
			c.Request().Header.Get("X-API-Key"),
		} {
			if candidate != "" && subtle.ConstantTimeCompare([]byte(candidate), []byte(expected)) == 1 {
				return next(c)
			}
		}

		return s.handleError(c, nil, "invalid or missing API key", http.StatusUnauthorized)
	}
}
