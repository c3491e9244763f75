package analysis

import (
	"fmt"
	"sort"
)

const (
	minContributingConfidence = 0.3
	maxEnsembleConfidence     = 0.95
	maxEnsembleCategories     = 3

	lowConfidenceMean      = 0.5
	conflictingCategoryMax = 0.7
)

// sentimentOrder breaks sentiment vote ties.
var sentimentOrder = []Sentiment{SentimentPositive, SentimentNegative, SentimentNeutral}

// DefaultResult is the zero-information answer used when nothing can be said
// about an email.
func DefaultResult() AnalysisResult {
	return AnalysisResult{
		Topic:           CategoryGeneral,
		Sentiment:       SentimentNeutral,
		Intent:          IntentInformational,
		Urgency:         UrgencyLow,
		Confidence:      0.3,
		Categories:      []string{CategoryGeneral},
		Keywords:        []string{},
		Reasoning:       "No model produced a usable analysis",
		SuggestedLabels: []string{},
		RiskFlags:       []RiskFlag{RiskLowConfidence},
	}
}

// DefaultReport pairs DefaultResult with an unreliable validation. It is the
// answer for text with nothing to classify.
func DefaultReport() Report {
	result := DefaultResult()
	return Report{
		Result: result,
		Validation: ValidationResult{
			Method:   MethodEnsemble,
			Score:    result.Confidence,
			Reliable: false,
			Feedback: unreliableFeedback,
		},
	}
}

// Combiner merges partial classifications by confidence-weighted voting.
type Combiner struct{}

func NewCombiner() *Combiner {
	return &Combiner{}
}

// Combine merges partials. The order of partials is their priority: topic,
// intent and urgency come from the first partial that passes the confidence
// filter.
func (c *Combiner) Combine(partials []PartialResult) AnalysisResult {
	contributing := make([]PartialResult, 0, len(partials))
	for _, p := range partials {
		if p.Confidence > minContributingConfidence {
			contributing = append(contributing, p)
		}
	}
	if len(contributing) == 0 {
		return DefaultResult()
	}

	lead := contributing[0]
	result := AnalysisResult{
		Topic:           lead.Topic,
		Sentiment:       voteSentiment(contributing),
		Intent:          lead.Intent,
		Urgency:         lead.Urgency,
		Confidence:      weightedConfidence(contributing),
		Categories:      voteCategories(contributing),
		Keywords:        flatten(contributing, func(p PartialResult) []string { return p.Keywords }, MaxKeywords),
		SuggestedLabels: flatten(contributing, func(p PartialResult) []string { return p.SuggestedLabels }, MaxSuggestedLabels),
		Reasoning:       fmt.Sprintf("Ensemble analysis combining %d models", len(contributing)),
		RiskFlags:       riskFlags(partials),
	}
	if result.Topic == "" {
		result.Topic = result.Categories[0]
	}
	return result
}

func weightedConfidence(partials []PartialResult) float64 {
	var sumSquares, sum float64
	for _, p := range partials {
		sumSquares += p.Confidence * p.Confidence
		sum += p.Confidence
	}
	conf := sumSquares / sum
	if conf > maxEnsembleConfidence {
		conf = maxEnsembleConfidence
	}
	return conf
}

func voteCategories(partials []PartialResult) []string {
	weights := make(map[string]float64)
	var order []string
	for _, p := range partials {
		for _, cat := range p.Categories {
			if _, seen := weights[cat]; !seen {
				order = append(order, cat)
			}
			weights[cat] += p.Confidence
		}
	}

	sort.SliceStable(order, func(i, j int) bool {
		return weights[order[i]] > weights[order[j]]
	})
	if len(order) > maxEnsembleCategories {
		order = order[:maxEnsembleCategories]
	}
	if len(order) == 0 {
		return []string{CategoryGeneral}
	}
	return order
}

func voteSentiment(partials []PartialResult) Sentiment {
	weights := make(map[Sentiment]float64)
	for _, p := range partials {
		weights[p.Sentiment] += p.Confidence
	}

	best := SentimentNeutral
	bestWeight := -1.0
	for _, s := range sentimentOrder {
		if w, ok := weights[s]; ok && w > bestWeight {
			best, bestWeight = s, w
		}
	}
	return best
}

func flatten(partials []PartialResult, field func(PartialResult) []string, limit int) []string {
	seen := make(map[string]struct{})
	out := make([]string, 0, limit)
	for _, p := range partials {
		for _, v := range field(p) {
			if _, dup := seen[v]; dup {
				continue
			}
			seen[v] = struct{}{}
			out = append(out, v)
			if len(out) == limit {
				return out
			}
		}
	}
	return out
}

// riskFlags looks at every partial, including those the vote filtered out.
func riskFlags(partials []PartialResult) []RiskFlag {
	flags := []RiskFlag{}

	var confSum float64
	distinct := make(map[string]struct{})
	mentions := 0
	urgent := false
	for _, p := range partials {
		confSum += p.Confidence
		for _, cat := range p.Categories {
			distinct[cat] = struct{}{}
			mentions++
		}
		if p.Urgency.Rank() >= UrgencyHigh.Rank() {
			urgent = true
		}
	}

	if confSum/float64(len(partials)) < lowConfidenceMean {
		flags = append(flags, RiskLowConfidence)
	}
	if mentions > 0 && float64(len(distinct))/float64(mentions) > conflictingCategoryMax {
		flags = append(flags, RiskConflictingCategorization)
	}
	if urgent {
		flags = append(flags, RiskUrgentContent)
	}
	return flags
}
