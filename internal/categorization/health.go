package categorization

import (
	"context"
	"time"
)

const (
	healthSubject = "Q4 Budget Review Meeting - Tomorrow 2 PM"
	healthContent = "Hi team, we will review the Q4 budget in the main conference room. " +
		"Please bring your departmental reports and any project updates for the agenda."
)

type HealthStatus struct {
	Healthy    bool          `json:"healthy"`
	Method     string        `json:"method"`
	Score      float64       `json:"score"`
	Confidence float64       `json:"confidence"`
	Latency    time.Duration `json:"latencyNs"`
	Error      string        `json:"error,omitempty"`
}

// HealthChecker analyzes a canned email; the analyzer is healthy iff that
// result is reliable.
type HealthChecker struct {
	analyzer Analyzer
}

func NewHealthChecker(analyzer Analyzer) *HealthChecker {
	return &HealthChecker{analyzer: analyzer}
}

func (h *HealthChecker) Check(ctx context.Context) HealthStatus {
	start := time.Now()
	result, validation, err := h.analyzer.AnalyzeEmail(ctx, healthSubject, healthContent)
	status := HealthStatus{Latency: time.Since(start)}
	if err != nil {
		status.Error = err.Error()
		return status
	}

	status.Healthy = validation.Reliable
	status.Method = string(validation.Method)
	status.Score = validation.Score
	status.Confidence = result.Confidence
	return status
}
