package analysis

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"email-analyzer/internal/common/logger"
	"email-analyzer/internal/common/metrics"
	"email-analyzer/internal/common/observability"
)

// FallbackAnalyzer answers when the primary backend cannot. It must not fail.
type FallbackAnalyzer interface {
	Analyze(subject, content string) Report
}

// Service is the single entry point callers use to analyze an email.
type Service struct {
	backend  Backend
	fallback FallbackAnalyzer
	cache    Cache
	timeout  time.Duration
	obs      *observability.Observability
	logger   logger.Logger
}

type Option func(*Service)

// WithCache enables result caching for reports produced by the primary backend.
func WithCache(c Cache) Option {
	return func(s *Service) { s.cache = c }
}

func WithObservability(o *observability.Observability) Option {
	return func(s *Service) { s.obs = o }
}

// WithTimeout bounds each primary backend call. Zero disables the bound.
func WithTimeout(d time.Duration) Option {
	return func(s *Service) { s.timeout = d }
}

func NewService(backend Backend, fallback FallbackAnalyzer, log logger.Logger, opts ...Option) *Service {
	s := &Service{
		backend:  backend,
		fallback: fallback,
		timeout:  30 * time.Second,
		logger:   log.WithFields(map[string]interface{}{"component": "analysis-service"}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AnalyzeEmail classifies one email. Backend failures of any kind are answered
// by the fallback engine; the only error returned is ErrInvalidInput for text
// that is not valid UTF-8. Blank subject and content are answered with
// DefaultReport without touching the cache or the backend.
func (s *Service) AnalyzeEmail(ctx context.Context, subject, content string) (AnalysisResult, ValidationResult, error) {
	if !utf8.ValidString(subject) || !utf8.ValidString(content) {
		return AnalysisResult{}, ValidationResult{}, fmt.Errorf("%w: subject and content must be valid UTF-8", ErrInvalidInput)
	}
	if strings.TrimSpace(subject+content) == "" {
		report := DefaultReport()
		return report.Result, report.Validation, nil
	}

	start := time.Now()
	ctx, span := s.obs.StartSpan(ctx, "analysis.AnalyzeEmail")
	defer span.End()

	if report, ok := s.cached(ctx, subject, content); ok {
		span.SetAttributes(attribute.Bool("analysis.cache_hit", true))
		metrics.AnalysisCacheHits.Inc()
		return report.Result, report.Validation, nil
	}

	req := Request{
		RequestID: uuid.NewString(),
		Subject:   subject,
		Content:   content,
	}

	report, err := s.callBackend(ctx, req)
	if err != nil {
		reason := FallbackReason(err)
		s.logger.Warn("primary analysis failed, using fallback", map[string]interface{}{
			"requestId": req.RequestID,
			"reason":    reason,
			"error":     err.Error(),
		})
		span.RecordError(err)
		span.SetStatus(codes.Error, reason)
		metrics.AnalysisFallbacks.WithLabelValues(reason).Inc()

		fb := s.fallback.Analyze(subject, content)
		report = &fb
	} else if s.cache != nil {
		if err := s.cache.Set(ctx, subject, content, report); err != nil {
			s.logger.Warn("failed to cache analysis", map[string]interface{}{
				"requestId": req.RequestID,
				"error":     err.Error(),
			})
		}
	}

	elapsed := time.Since(start)
	method := string(report.Validation.Method)
	metrics.AnalysesTotal.WithLabelValues(method, strconv.FormatBool(report.Validation.Reliable)).Inc()
	metrics.AnalysisDuration.WithLabelValues(method).Observe(elapsed.Seconds())
	s.obs.RecordAnalysis(ctx, elapsed, method, report.Validation.Reliable)

	span.SetAttributes(
		attribute.String("analysis.method", method),
		attribute.Float64("analysis.confidence", report.Result.Confidence),
		attribute.Bool("analysis.reliable", report.Validation.Reliable),
	)

	s.logger.Debug("email analyzed", map[string]interface{}{
		"requestId":  req.RequestID,
		"method":     method,
		"topic":      report.Result.Topic,
		"confidence": report.Result.Confidence,
		"reliable":   report.Validation.Reliable,
		"durationMs": elapsed.Milliseconds(),
	})

	return report.Result, report.Validation, nil
}

func (s *Service) callBackend(ctx context.Context, req Request) (report *Report, err error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	defer func() {
		if r := recover(); r != nil {
			report, err = nil, fmt.Errorf("%w: backend panicked: %v", ErrBackendFailed, r)
		}
	}()

	report, err = s.backend.Analyze(ctx, req)
	if err == nil && report == nil {
		err = fmt.Errorf("%w: backend returned no report", ErrBackendParse)
	}
	return report, err
}

func (s *Service) cached(ctx context.Context, subject, content string) (*Report, bool) {
	if s.cache == nil {
		return nil, false
	}
	report, ok, err := s.cache.Get(ctx, subject, content)
	if err != nil {
		s.logger.Warn("analysis cache lookup failed", map[string]interface{}{
			"error": err.Error(),
		})
		return nil, false
	}
	return report, ok
}
