package backend

import (
	"context"
	"fmt"
	"time"

	"email-analyzer/internal/analysis"
	"email-analyzer/internal/analysis/classifiers"
	"email-analyzer/internal/common/logger"
)

// LocalOptions tune the in-process pipeline.
type LocalOptions struct {
	AccuracyThreshold float64
	SecondaryLatency  time.Duration
	SecondaryTimeout  time.Duration
}

// NewPipeline builds the standard classifier ensemble: the pattern classifier
// leads, the secondary classifier follows.
func NewPipeline(opts LocalOptions, log logger.Logger) *analysis.Pipeline {
	threshold := opts.AccuracyThreshold
	if threshold == 0 {
		threshold = analysis.DefaultAccuracyThreshold
	}
	return analysis.NewPipeline(
		[]analysis.Classifier{
			classifiers.NewPattern(),
			classifiers.NewSecondary(opts.SecondaryLatency, opts.SecondaryTimeout),
		},
		analysis.NewValidator(threshold),
		log,
	)
}

// Local runs the pipeline in-process.
type Local struct {
	pipeline *analysis.Pipeline
}

func NewLocal(pipeline *analysis.Pipeline) *Local {
	return &Local{pipeline: pipeline}
}

func (l *Local) Analyze(ctx context.Context, req analysis.Request) (*analysis.Report, error) {
	report := l.pipeline.Run(ctx, req.FullText())
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", analysis.ErrBackendTimeout, err)
	}
	return &report, nil
}

// Validator exposes the pipeline's validator so the threshold can be tuned at runtime.
func (l *Local) Validator() *analysis.Validator {
	return l.pipeline.Validator()
}
