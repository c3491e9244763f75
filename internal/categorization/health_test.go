package categorization_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"email-analyzer/internal/analysis"
	"email-analyzer/internal/analysis/backend"
	"email-analyzer/internal/analysis/fallback"
	"email-analyzer/internal/categorization"
	"email-analyzer/internal/common/logger"
)

type brokenBackend struct{}

func (brokenBackend) Analyze(context.Context, analysis.Request) (*analysis.Report, error) {
	return nil, analysis.ErrBackendFailed
}

func TestHealthChecker_LocalPipelineIsHealthy(t *testing.T) {
	log := logger.NewTestLogger(t)
	svc := analysis.NewService(
		backend.NewLocal(backend.NewPipeline(backend.LocalOptions{AccuracyThreshold: 0.7}, log)),
		fallback.New(log),
		log,
	)

	status := categorization.NewHealthChecker(svc).Check(context.Background())

	assert.True(t, status.Healthy)
	assert.Equal(t, string(analysis.MethodEnsemble), status.Method)
	assert.GreaterOrEqual(t, status.Score, 0.7)
	assert.Empty(t, status.Error)
}

func TestHealthChecker_StrictThresholdIsUnhealthy(t *testing.T) {
	log := logger.NewNoOpLogger()
	local := backend.NewLocal(backend.NewPipeline(backend.LocalOptions{AccuracyThreshold: 0.95}, log))
	svc := analysis.NewService(local, fallback.New(log), log)

	status := categorization.NewHealthChecker(svc).Check(context.Background())
	assert.False(t, status.Healthy)
}

func TestHealthChecker_FallbackReportsMethod(t *testing.T) {
	log := logger.NewNoOpLogger()
	svc := analysis.NewService(brokenBackend{}, fallback.New(log), log)

	status := categorization.NewHealthChecker(svc).Check(context.Background())
	assert.Equal(t, string(analysis.MethodFallback), status.Method)
	assert.InDelta(t, 0.65, status.Confidence, 1e-9)
}
