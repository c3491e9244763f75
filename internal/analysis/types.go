// Package analysis implements the email content analysis ensemble: independent
// rule-based classifiers are fanned out, merged by confidence-weighted voting,
// scored for reliability, and replaced by a heuristic fallback whenever the
// primary backend cannot produce a report.
package analysis

import "context"

type Sentiment string

const (
	SentimentPositive Sentiment = "positive"
	SentimentNegative Sentiment = "negative"
	SentimentNeutral  Sentiment = "neutral"
)

type Urgency string

const (
	UrgencyLow      Urgency = "low"
	UrgencyMedium   Urgency = "medium"
	UrgencyHigh     Urgency = "high"
	UrgencyCritical Urgency = "critical"
)

// Rank orders urgencies from low (0) to critical (3). Unknown values rank as low.
func (u Urgency) Rank() int {
	switch u {
	case UrgencyMedium:
		return 1
	case UrgencyHigh:
		return 2
	case UrgencyCritical:
		return 3
	default:
		return 0
	}
}

type ValidationMethod string

const (
	MethodCrossValidation     ValidationMethod = "cross_validation"
	MethodEnsemble            ValidationMethod = "ensemble"
	MethodConfidenceThreshold ValidationMethod = "confidence_threshold"
	MethodHumanFeedback       ValidationMethod = "human_feedback"
	MethodFallback            ValidationMethod = "fallback"
)

type RiskFlag string

const (
	RiskLowConfidence             RiskFlag = "low_confidence"
	RiskConflictingCategorization RiskFlag = "conflicting_categorization"
	RiskUrgentContent             RiskFlag = "urgent_content"
)

const (
	CategoryGeneral     = "General"
	IntentInformational = "informational"

	MaxKeywords        = 10
	MaxSuggestedLabels = 8
)

// AnalysisResult is the merged classification of one email.
type AnalysisResult struct {
	Topic           string     `json:"topic"`
	Sentiment       Sentiment  `json:"sentiment"`
	Intent          string     `json:"intent"`
	Urgency         Urgency    `json:"urgency"`
	Confidence      float64    `json:"confidence"`
	Categories      []string   `json:"categories"`
	Keywords        []string   `json:"keywords"`
	Reasoning       string     `json:"reasoning"`
	SuggestedLabels []string   `json:"suggestedLabels"`
	RiskFlags       []RiskFlag `json:"riskFlags"`
}

// HasRiskFlag reports whether flag is present on the result.
func (r AnalysisResult) HasRiskFlag(flag RiskFlag) bool {
	for _, f := range r.RiskFlags {
		if f == flag {
			return true
		}
	}
	return false
}

// ValidationResult is the reliability verdict that accompanies an AnalysisResult.
type ValidationResult struct {
	Method   ValidationMethod `json:"method"`
	Score    float64          `json:"score"`
	Reliable bool             `json:"reliable"`
	Feedback string           `json:"feedback"`
}

// PartialResult is the output of a single classifier before ensembling.
type PartialResult struct {
	Model           string    `json:"model"`
	Topic           string    `json:"topic"`
	Sentiment       Sentiment `json:"sentiment"`
	Intent          string    `json:"intent"`
	Urgency         Urgency   `json:"urgency"`
	Confidence      float64   `json:"confidence"`
	Categories      []string  `json:"categories"`
	Keywords        []string  `json:"keywords"`
	SuggestedLabels []string  `json:"suggestedLabels"`
	Reasoning       string    `json:"reasoning"`
}

// DegradedPartial is the minimal partial a classifier reports when it cannot
// analyze the text. Its confidence sits at the combiner's filter boundary so it
// never contributes to a vote.
func DegradedPartial(model, reason string) PartialResult {
	return PartialResult{
		Model:      model,
		Topic:      CategoryGeneral,
		Sentiment:  SentimentNeutral,
		Intent:     IntentInformational,
		Urgency:    UrgencyLow,
		Confidence: 0.3,
		Categories: []string{CategoryGeneral},
		Reasoning:  reason,
	}
}

// Classifier analyzes raw email text. Implementations must not fail: any
// internal problem is reported as a DegradedPartial.
type Classifier interface {
	Name() string
	Analyze(ctx context.Context, text string) PartialResult
}

// Report is the full answer of one analysis invocation.
type Report struct {
	Result     AnalysisResult   `json:"result"`
	Validation ValidationResult `json:"validation"`
}

// Request is what a Backend receives.
type Request struct {
	RequestID string `json:"requestId,omitempty"`
	Subject   string `json:"subject"`
	Content   string `json:"content"`
}

// FullText joins subject and content the way every analyzer sees them.
func (r Request) FullText() string {
	return FullText(r.Subject, r.Content)
}

func FullText(subject, content string) string {
	return subject + "\n" + content
}

// Backend is the primary analysis path. Any returned error routes the
// invocation to the fallback engine.
type Backend interface {
	Analyze(ctx context.Context, req Request) (*Report, error)
}

// Cache stores reports keyed by email text.
type Cache interface {
	Get(ctx context.Context, subject, content string) (*Report, bool, error)
	Set(ctx context.Context, subject, content string, report *Report) error
}
