package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/pankajkandpal99/web-scrapper/internal/scraper"
)

// Error types reported alongside non-service failures.
const (
	typeValidation = "ValidationError"
	typeAuth       = "AuthenticationError"
	typeInternal   = "InternalError"
	typeTimeout    = "Timeout"
)

const timestampLayout = "2006-01-02T15:04:05.000Z07:00"

type successEnvelope struct {
	Success   bool   `json:"success"`
	Code      int    `json:"code"`
	Data      any    `json:"data"`
	Message   string `json:"message,omitempty"`
	Timestamp string `json:"timestamp"`
}

type errorEnvelope struct {
	Success   bool   `json:"success"`
	Code      int    `json:"code"`
	Error     string `json:"error"`
	Type      string `json:"type,omitempty"`
	Timestamp string `json:"timestamp"`
}

func (s *Server) writeData(w http.ResponseWriter, status int, data any, message string) {
	s.writeJSON(w, status, successEnvelope{
		Success:   true,
		Code:      status,
		Data:      data,
		Message:   message,
		Timestamp: s.now().Format(timestampLayout),
	})
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg, errType string) {
	s.writeJSON(w, status, errorEnvelope{
		Code:      status,
		Error:     msg,
		Type:      errType,
		Timestamp: s.now().Format(timestampLayout),
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("write JSON failed", zap.Error(err))
	}
}

// writeServiceError maps a service error onto the error envelope.
// 5xx details stay in logs unless development mode is on.
func (s *Server) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var se *scraper.Error
	if !errors.As(err, &se) {
		se = scraper.Internal("unexpected error", err)
	}
	status := se.HTTPStatus()
	if status < http.StatusInternalServerError {
		s.writeError(w, status, se.Msg, string(se.Kind))
		return
	}

	s.logger.Error("request failed",
		zap.String("request_id", RequestIDFrom(r.Context())),
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
		zap.String("user_id", callerFrom(r)),
		zap.Error(err),
	)
	s.report(r, err)

	msg := "Internal Server Error"
	if s.cfg.Logging.Development {
		msg = se.Error()
	}
	s.writeError(w, status, msg, string(se.Kind))
}

func (s *Server) report(r *http.Request, err error) {
	if s.reporter == nil {
		return
	}
	s.reporter.Capture(r.Context(), err, map[string]string{
		"method":     r.Method,
		"path":       r.URL.Path,
		"request_id": RequestIDFrom(r.Context()),
	})
}

func (s *Server) decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body", typeValidation)
		return false
	}
	return true
}
