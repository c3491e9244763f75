package analysis

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"email-analyzer/internal/common/logger"
)

// Pipeline runs every classifier concurrently, then combines and validates.
type Pipeline struct {
	classifiers []Classifier
	combiner    *Combiner
	validator   *Validator
	logger      logger.Logger
}

// NewPipeline keeps classifiers in the given order; that order is the
// priority the combiner uses for topic, intent and urgency.
func NewPipeline(classifiers []Classifier, validator *Validator, log logger.Logger) *Pipeline {
	return &Pipeline{
		classifiers: classifiers,
		combiner:    NewCombiner(),
		validator:   validator,
		logger:      log.WithFields(map[string]interface{}{"component": "pipeline"}),
	}
}

func (p *Pipeline) Validator() *Validator {
	return p.validator
}

// Run never fails. A classifier that panics contributes a degraded partial.
// Blank text skips the classifiers and yields DefaultReport.
func (p *Pipeline) Run(ctx context.Context, text string) Report {
	if strings.TrimSpace(text) == "" {
		return DefaultReport()
	}
	partials := p.Partials(ctx, text)
	result := p.combiner.Combine(partials)
	return Report{
		Result:     result,
		Validation: p.validator.Validate(result, partials),
	}
}

// Partials fans text out to every classifier and waits for all of them. Each
// classifier writes only its own slot so the outcome is independent of
// completion order.
func (p *Pipeline) Partials(ctx context.Context, text string) []PartialResult {
	partials := make([]PartialResult, len(p.classifiers))

	g, gctx := errgroup.WithContext(ctx)
	for i, c := range p.classifiers {
		i, c := i, c
		g.Go(func() error {
			partials[i] = p.safeAnalyze(gctx, c, text)
			return nil
		})
	}
	_ = g.Wait()

	return partials
}

func (p *Pipeline) safeAnalyze(ctx context.Context, c Classifier, text string) (partial PartialResult) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("classifier panicked", map[string]interface{}{
				"model": c.Name(),
				"panic": fmt.Sprint(r),
			})
			partial = DegradedPartial(c.Name(), "classifier failed")
		}
	}()
	return c.Analyze(ctx, text)
}
