package analysis

import (
	"math"
	"sync/atomic"
)

const (
	DefaultAccuracyThreshold = 0.7
	MinAccuracyThreshold     = 0.1
	MaxAccuracyThreshold     = 0.95

	confidenceWeight = 0.6
	agreementWeight  = 0.4

	reliableFeedback   = "High confidence analysis with good model agreement"
	unreliableFeedback = "Low confidence or model disagreement, manual review recommended"
)

// Validator scores a combined result for reliability. Its threshold may be
// changed concurrently with Validate; readers see either the old or the new value.
type Validator struct {
	threshold atomic.Uint64
}

func NewValidator(threshold float64) *Validator {
	v := &Validator{}
	v.SetThreshold(threshold)
	return v
}

// SetThreshold stores threshold clamped to [0.1, 0.95].
func (v *Validator) SetThreshold(threshold float64) {
	if math.IsNaN(threshold) {
		threshold = DefaultAccuracyThreshold
	}
	threshold = math.Max(MinAccuracyThreshold, math.Min(MaxAccuracyThreshold, threshold))
	v.threshold.Store(math.Float64bits(threshold))
}

func (v *Validator) Threshold() float64 {
	return math.Float64frombits(v.threshold.Load())
}

func (v *Validator) Validate(result AnalysisResult, partials []PartialResult) ValidationResult {
	threshold := v.Threshold()
	score := confidenceWeight*result.Confidence + agreementWeight*Agreement(partials)
	score = math.Max(0, math.Min(1, score))

	reliable := score >= threshold && result.Confidence >= threshold
	feedback := unreliableFeedback
	if reliable {
		feedback = reliableFeedback
	}

	return ValidationResult{
		Method:   MethodEnsemble,
		Score:    score,
		Reliable: reliable,
		Feedback: feedback,
	}
}

// Agreement is the fraction of partial pairs whose category sets intersect.
// Fewer than two partials agree trivially.
func Agreement(partials []PartialResult) float64 {
	if len(partials) < 2 {
		return 1
	}

	pairs, agreeing := 0, 0
	for i := 0; i < len(partials); i++ {
		for j := i + 1; j < len(partials); j++ {
			pairs++
			if intersects(partials[i].Categories, partials[j].Categories) {
				agreeing++
			}
		}
	}
	return float64(agreeing) / float64(pairs)
}

func intersects(a, b []string) bool {
	set := make(map[string]struct{}, len(a))
	for _, v := range a {
		set[v] = struct{}{}
	}
	for _, v := range b {
		if _, ok := set[v]; ok {
			return true
		}
	}
	return false
}
