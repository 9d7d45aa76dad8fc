// internal/httpcontroller/server.go
package httpcontroller

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/tmakela/callvault/internal/conf"
	"github.com/tmakela/callvault/internal/contacts"
	"github.com/tmakela/callvault/internal/datastore"
	"github.com/tmakela/callvault/internal/ingest"
	"github.com/tmakela/callvault/internal/logging"
	"github.com/tmakela/callvault/internal/observability"
)

// Server encapsulates the Echo server and the components behind its routes.
type Server struct {
	Echo       *echo.Echo
	DS         datastore.Interface
	Settings   *conf.Settings
	Ingestor   *ingest.Ingestor
	Backfiller *contacts.Backfiller

	webLogger      *slog.Logger
	webLoggerClose func() error
}

// New initializes the HTTP server with the given datastore.
func New(settings *conf.Settings, dataStore datastore.Interface, metrics *observability.Metrics) *Server {
	s := &Server{
		Echo:       echo.New(),
		DS:         dataStore,
		Settings:   settings,
		Ingestor:   ingest.New(settings, dataStore, metrics),
		Backfiller: contacts.New(dataStore, metrics),
	}

	// Trust X-Forwarded-For so remote_ip survives a reverse proxy.
	s.Echo.IPExtractor = echo.ExtractIPFromXFFHeader()

	s.initializeServer()
	return s
}

// initializeServer configures and initializes the server.
func (s *Server) initializeServer() {
	s.Echo.HideBanner = true
	s.initLogger()
	s.configureMiddleware()
	s.initRoutes()
}

// initLogger sets up the web request logger, optionally backed by a file.
func (s *Server) initLogger() {
	s.webLogger = logging.ForService("web")
	if s.webLogger == nil {
		s.webLogger = slog.Default()
	}

	logCfg := s.Settings.WebServer.Log
	if !logCfg.Enabled || logCfg.Path == "" {
		return
	}

	fileLogger, closeFn, err := logging.NewFileLogger(logCfg.Path, "web", slog.LevelInfo)
	if err != nil {
		s.webLogger.Error("Failed to initialize web log file, logging to console only",
			"path", logCfg.Path, "error", err)
		return
	}
	s.webLogger = fileLogger
	s.webLoggerClose = closeFn
}

// Start begins listening and serving HTTP requests.
func (s *Server) Start() {
	errChan := make(chan error)

	go func() {
		if err := s.Echo.Start(":" + s.Settings.WebServer.Port); err != nil {
			errChan <- err
		}
	}()

	go s.handleServerError(errChan)

	logging.Info("HTTP server started", "port", s.Settings.WebServer.Port)
}

// Shutdown stops the server, waiting for in-flight requests to finish.
func (s *Server) Shutdown(ctx context.Context) error {
	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	err := s.Echo.Shutdown(shutdownCtx)
	if s.webLoggerClose != nil {
		if closeErr := s.webLoggerClose(); closeErr != nil && err == nil {
			err = fmt.Errorf("closing web log: %w", closeErr)
		}
	}
	return err
}

func (s *Server) handleServerError(errChan chan error) {
	for err := range errChan {
		logging.Error("HTTP server error", "error", err)
	}
}

// RealIP returns the client address of a request, preferring the forwarded
// chain's origin over the direct peer.
func (s *Server) RealIP(c echo.Context) string {
	if xff := c.Request().Header.Get("X-Forwarded-For"); xff != "" {
		ips := strings.Split(xff, ",")
		if len(ips) > 0 {
			return strings.TrimSpace(ips[0])
		}
	}

	ip, _, _ := net.SplitHostPort(c.Request().RemoteAddr)
	return ip
}

// Debug logs debug messages when web server debug mode is enabled.
func (s *Server) Debug(format string, v ...any) {
	if s.Settings.WebServer.Debug {
		s.webLogger.Debug(fmt.Sprintf(format, v...))
	}
}
