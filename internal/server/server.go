package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"askmynotes/internal/auth"
	"askmynotes/internal/domain"
	"askmynotes/internal/parser"
)

const shutdownTimeout = 10 * time.Second

// Server is the HTTP surface over a NotesService.
type Server struct {
	echo     *echo.Echo
	handlers *handlers
	logger   *slog.Logger
	maxBody  string
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the server logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// BodyLimitFor returns a body limit that admits an upload of maxUpload
// bytes plus 1 MiB of multipart framing, in echo's "<n>K" form.
func BodyLimitFor(maxUpload int64) string {
	if maxUpload <= 0 {
		maxUpload = parser.DefaultMaxBytes
	}
	return fmt.Sprintf("%dK", (maxUpload+1<<20+1023)/1024)
}

// WithBodyLimit caps request bodies, e.g. "11M".
func WithBodyLimit(limit string) Option {
	return func(s *Server) {
		if limit != "" {
			s.maxBody = limit
		}
	}
}

// New builds the router. Every /api route goes through the auth chain.
func New(svc Notes, chain auth.Chain, opts ...Option) *Server {
	s := &Server{
		echo:    echo.New(),
		logger:  slog.Default(),
		maxBody: "11M",
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	s.handlers = &handlers{svc: svc, logger: s.logger}

	e := s.echo
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	e.Use(middleware.BodyLimit(s.maxBody))
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:  true,
		LogURI:     true,
		LogMethod:  true,
		LogLatency: true,
		LogError:   true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			attrs := []any{
				"method", v.Method,
				"uri", v.URI,
				"status", v.Status,
				"latency", v.Latency.String(),
			}
			if v.Error != nil {
				attrs = append(attrs, "error", v.Error)
			}
			s.logger.Info("request", attrs...)
			return nil
		},
	}))

	e.GET("/health", s.handlers.health)

	api := e.Group("/api", auth.Middleware(chain, s.logger))
	api.POST("/notes/:subjectId/upload", s.handlers.upload)
	api.GET("/notes/:subjectId", s.handlers.listNotes)
	api.DELETE("/notes/:subjectId/:noteId", s.handlers.deleteNote)
	api.DELETE("/subjects/:id", s.handlers.deleteSubject)
	api.POST("/chat/:subjectId", s.handlers.chat)
	api.GET("/chat/:subjectId/history", s.handlers.history)
	api.DELETE("/chat/:subjectId/history", s.handlers.clearHistory)
	api.POST("/study/:subjectId", s.handlers.study)

	return s
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", "addr", addr)
		if err := s.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	s.logger.Info("http server shutting down")
	return s.echo.Shutdown(shutdownCtx)
}

// writeError maps domain errors to status codes. Provider failures get a
// generic message.
func writeError(c echo.Context, logger *slog.Logger, err error) error {
	var verr *domain.ValidationError
	switch {
	case errors.Is(err, parser.ErrFileTooLarge):
		return message(c, http.StatusRequestEntityTooLarge, err.Error())
	case errors.As(err, &verr):
		return message(c, http.StatusBadRequest, verr.Message)
	case errors.Is(err, domain.ErrUnsupportedFormat):
		return message(c, http.StatusUnsupportedMediaType, "Unsupported file type. Allowed: .txt, .md, .pdf, .html, .xlsx.")
	case errors.Is(err, domain.ErrRateLimited):
		logger.Warn("model rate limited", "error", err)
		return message(c, http.StatusServiceUnavailable, "The model is busy. Please try again shortly.")
	case errors.Is(err, domain.ErrProvider):
		logger.Error("model provider failed", "error", err)
		return message(c, http.StatusBadGateway, "Failed to generate a response.")
	case errors.Is(err, context.Canceled):
		return message(c, http.StatusRequestTimeout, "Request cancelled.")
	default:
		logger.Error("request failed", "error", err)
		return message(c, http.StatusInternalServerError, "Internal server error.")
	}
}

func message(c echo.Context, status int, msg string) error {
	return c.JSON(status, echo.Map{"message": msg})
}
