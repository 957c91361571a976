// Package server exposes the validation engine over HTTP: document
// validation, health and metrics endpoints.
package server

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	plausibus "github.com/megadur/plausibus"
	"github.com/megadur/plausibus/engine"
	"github.com/megadur/plausibus/fhir"
)

// Pinger reports backing store health. *pgxpool.Pool satisfies this.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server wires the engine into an echo instance.
type Server struct {
	echo    *echo.Echo
	engine  *engine.Engine
	metrics *plausibus.Metrics
	log     zerolog.Logger
	db      Pinger

	maxBodyBytes int64
}

// Option configures the server.
type Option func(*Server)

// WithDatabase registers a backing store for the health endpoint.
func WithDatabase(db Pinger) Option {
	return func(s *Server) { s.db = db }
}

// WithMaxBodyBytes bounds the accepted request body size.
func WithMaxBodyBytes(n int64) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxBodyBytes = n
		}
	}
}

// New creates the HTTP server around a validation engine.
func New(eng *engine.Engine, log zerolog.Logger, opts ...Option) *Server {
	s := &Server{
		engine:       eng,
		metrics:      eng.Metrics(),
		log:          log.With().Str("component", "server").Logger(),
		maxBodyBytes: 8 * 1024 * 1024,
	}
	for _, opt := range opts {
		opt(s)
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())
	e.Use(requestLogger(s.log))
	e.Use(middleware.BodyLimit(bodyLimit(s.maxBodyBytes)))

	e.POST("/v1/validations", s.handleValidate)
	e.GET("/healthz", s.handleHealth)
	e.GET("/metrics", s.handleMetrics)

	s.echo = e
	return s
}

// Handler returns the HTTP handler, for tests and custom listeners.
func (s *Server) Handler() http.Handler { return s.echo }

// Start serves until the listener fails or Shutdown is called.
func (s *Server) Start(address string) error {
	err := s.echo.Start(address)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

// validationResponse is the wire form of a validation report.
type validationResponse struct {
	ID       string               `json:"id"`
	Document string               `json:"document"`
	Valid    bool                 `json:"valid"`
	Errors   int                  `json:"errors"`
	Warnings int                  `json:"warnings"`
	Infos    int                  `json:"infos"`
	Results  []*plausibus.Result  `json:"results"`
	Duration string               `json:"duration"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleValidate(c echo.Context) error {
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "unreadable request body"})
	}
	if len(body) == 0 {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "empty request body"})
	}

	report, err := s.engine.Validate(c.Request().Context(), body)
	if err != nil {
		if errors.Is(err, fhir.ErrNotABundle) {
			return c.JSON(http.StatusUnprocessableEntity, errorResponse{Error: err.Error()})
		}
		return c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
	}
	defer report.Release()

	return c.JSON(http.StatusOK, validationResponse{
		ID:       report.ID,
		Document: report.Document,
		Valid:    report.Valid,
		Errors:   report.ErrorCount(),
		Warnings: report.WarningCount(),
		Infos:    report.InfoCount(),
		Results:  report.Results,
		Duration: report.Duration.String(),
	})
}

func (s *Server) handleHealth(c echo.Context) error {
	status := map[string]string{"status": "ok"}

	if s.db != nil {
		ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
		defer cancel()
		if err := s.db.Ping(ctx); err != nil {
			s.log.Error().Err(err).Msg("database health check failed")
			status["status"] = "degraded"
			status["database"] = err.Error()
			return c.JSON(http.StatusServiceUnavailable, status)
		}
		status["database"] = "ok"
	}
	return c.JSON(http.StatusOK, status)
}

func (s *Server) handleMetrics(c echo.Context) error {
	return c.JSON(http.StatusOK, s.metrics.Snapshot())
}
