// Package api exposes the HTTP interface for the scraper service.
package api

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pankajkandpal99/web-scrapper/internal/config"
	"github.com/pankajkandpal99/web-scrapper/internal/metrics"
	"github.com/pankajkandpal99/web-scrapper/internal/scraper"
)

const (
	userIDHeader  = "X-User-ID"
	apiKeyHeader  = "X-API-Key"
	maxBodyBytes  = 1 << 20
	readyzTimeout = 3 * time.Second
)

// ScrapeService is the orchestrator surface the handlers drive.
type ScrapeService interface {
	Scrape(ctx context.Context, userID string, req scraper.ScrapeRequest) (*scraper.ScrapedRecord, error)
	ScrapeMany(ctx context.Context, userID string, urls []string, opts *scraper.ScrapeOptions) ([]scraper.BulkResult, error)
	History(ctx context.Context, userID string) ([]scraper.RecordSummary, error)
	Get(ctx context.Context, userID, id string) (*scraper.ScrapedRecord, error)
	DeleteAll(ctx context.Context, userID string) (scraper.DeleteResult, error)
	DeleteByIDs(ctx context.Context, userID string, ids []string) (scraper.DeleteResult, error)
}

// ErrorReporter receives server-side failures.
type ErrorReporter interface {
	Capture(ctx context.Context, err error, tags map[string]string)
}

// ReadinessCheck probes one downstream dependency.
type ReadinessCheck func(ctx context.Context) error

// Option customizes a Server.
type Option func(*Server)

// WithReporter forwards 5xx failures to r.
func WithReporter(r ErrorReporter) Option {
	return func(s *Server) { s.reporter = r }
}

// WithReadinessCheck adds a named probe to /readyz.
func WithReadinessCheck(name string, check ReadinessCheck) Option {
	return func(s *Server) {
		if s.readiness == nil {
			s.readiness = map[string]ReadinessCheck{}
		}
		s.readiness[name] = check
	}
}

// Server wires HTTP handlers to the scrape service.
type Server struct {
	router    chi.Router
	svc       ScrapeService
	cfg       config.Config
	logger    *zap.Logger
	reporter  ErrorReporter
	readiness map[string]ReadinessCheck
	now       func() time.Time
}

// NewServer constructs a Server with middleware and routes.
func NewServer(svc ScrapeService, cfg config.Config, logger *zap.Logger, opts ...Option) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		svc:    svc,
		cfg:    cfg,
		logger: logger.Named("api"),
		now:    func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	metrics.Init()

	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoverMiddleware)
	r.Use(metrics.Middleware)

	r.Get("/healthz", s.healthz)
	r.Get("/readyz", s.readyz)
	r.Handle("/metrics", metrics.Handler())

	r.Route("/api/v1/scraper", func(r chi.Router) {
		if timeout := cfg.RequestTimeout(); timeout > 0 {
			r.Use(s.timeoutMiddleware(timeout))
		}
		if cfg.Auth.Enabled {
			r.Use(s.apiKeyMiddleware(cfg.Auth.APIKey))
		}
		r.Use(s.callerMiddleware)

		r.Post("/", s.scrape)
		r.Post("/bulk", s.scrapeBulk)
		r.Get("/history", s.history)
		r.Delete("/clear", s.clearAll)
		r.Delete("/items", s.deleteItems)
		r.Get("/{id}", s.getByID)
	})

	s.router = r
	return s
}

// Handler returns the Router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	s.writeData(w, http.StatusOK, map[string]string{"status": "ok"}, "")
}

func (s *Server) readyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readyzTimeout)
	defer cancel()
	failed := map[string]string{}
	for name, check := range s.readiness {
		if err := check(ctx); err != nil {
			s.logger.Warn("readiness check failed", zap.String("check", name), zap.Error(err))
			failed[name] = err.Error()
		}
	}
	if len(failed) > 0 {
		s.writeData(w, http.StatusServiceUnavailable, map[string]any{"status": "unavailable", "failed": failed}, "")
		return
	}
	s.writeData(w, http.StatusOK, map[string]string{"status": "ready"}, "")
}

type requestIDKey struct{}

type userIDKey struct{}

// RequestIDFrom returns the request id assigned by the server, if any.
func RequestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

func callerFrom(r *http.Request) string {
	id, _ := r.Context().Value(userIDKey{}).(string)
	return id
}

func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := r.Header.Get("X-Request-ID")
		if reqID == "" {
			reqID = uuid.NewString()
		}
		ctx := context.WithValue(r.Context(), requestIDKey{}, reqID)
		w.Header().Set("X-Request-ID", reqID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := &responseWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(ww, r)
		s.logger.Info("request completed",
			zap.String("request_id", RequestIDFrom(r.Context())),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.status),
			zap.Int64("duration_ms", time.Since(start).Milliseconds()),
		)
	})
}

func (s *Server) recoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				err := fmt.Errorf("panic: %v", rec)
				s.logger.Error("panic recovered", zap.String("path", r.URL.Path), zap.Error(err))
				s.report(r, err)
				s.writeError(w, http.StatusInternalServerError, "Internal Server Error", typeInternal)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// timeoutMiddleware answers with the error envelope once d elapses.
// The body is rendered when the request arrives.
func (s *Server) timeoutMiddleware(d time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			http.TimeoutHandler(next, d, s.timeoutBody()).ServeHTTP(w, r)
		})
	}
}

func (s *Server) timeoutBody() string {
	body, err := json.Marshal(errorEnvelope{
		Code:      http.StatusServiceUnavailable,
		Error:     "request timed out",
		Type:      typeTimeout,
		Timestamp: s.now().Format(timestampLayout),
	})
	if err != nil {
		return `{"success":false,"code":503,"error":"request timed out","type":"Timeout"}`
	}
	return string(body)
}

func (s *Server) apiKeyMiddleware(expected string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.Header.Get(apiKeyHeader)
			if key == "" {
				key = r.URL.Query().Get("api_key")
			}
			if key != expected {
				s.writeError(w, http.StatusForbidden, "Forbidden", typeAuth)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// callerMiddleware requires the verified caller id set by the upstream auth layer.
func (s *Server) callerMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID := r.Header.Get(userIDHeader)
		if userID == "" {
			s.writeError(w, http.StatusUnauthorized, "User authentication required", typeAuth)
			return
		}
		ctx := context.WithValue(r.Context(), userIDKey{}, userID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	n, err := rw.ResponseWriter.Write(b)
	if err != nil {
		return n, fmt.Errorf("write response: %w", err)
	}
	return n, nil
}

func (rw *responseWriter) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (rw *responseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	if h, ok := rw.ResponseWriter.(http.Hijacker); ok {
		conn, buf, err := h.Hijack()
		if err != nil {
			return nil, nil, fmt.Errorf("hijack connection: %w", err)
		}
		return conn, buf, nil
	}
	return nil, nil, errors.New("hijacker not supported")
}
