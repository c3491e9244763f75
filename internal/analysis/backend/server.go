package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"

	"email-analyzer/internal/analysis"
	"email-analyzer/internal/common/logger"
)

const maxRequestSize = 1 << 20

// ServeStdio is the child side of the Process backend: one JSON request is
// read from r, analyzed by the pipeline and written to w as a report.
func ServeStdio(ctx context.Context, pipeline *analysis.Pipeline, r io.Reader, w io.Writer) error {
	var req analysis.Request
	if err := json.NewDecoder(io.LimitReader(r, maxRequestSize)).Decode(&req); err != nil {
		return fmt.Errorf("decode request: %w", err)
	}

	report := pipeline.Run(ctx, req.FullText())
	if err := json.NewEncoder(w).Encode(report); err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	return nil
}

// Server is the remote side of the HTTP backend.
type Server struct {
	pipeline *analysis.Pipeline
	logger   logger.Logger
	mux      *http.ServeMux
}

func NewServer(pipeline *analysis.Pipeline, log logger.Logger) *Server {
	s := &Server{
		pipeline: pipeline,
		logger:   log.WithFields(map[string]interface{}{"component": "analysis-server"}),
		mux:      http.NewServeMux(),
	}
	s.mux.HandleFunc(analyzePath, s.handleAnalyze)
	s.mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
	})
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	var req analysis.Request
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestSize)).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if req.RequestID == "" {
		req.RequestID = r.Header.Get("X-Request-ID")
	}
	if req.RequestID == "" {
		req.RequestID = uuid.NewString()
	}

	start := time.Now()
	report := s.pipeline.Run(r.Context(), req.FullText())

	s.logger.Debug("analysis served", map[string]interface{}{
		"requestId":  req.RequestID,
		"topic":      report.Result.Topic,
		"reliable":   report.Validation.Reliable,
		"durationMs": time.Since(start).Milliseconds(),
	})

	w.Header().Set("X-Request-ID", req.RequestID)
	writeJSON(w, http.StatusOK, report)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
