package classifiers

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"email-analyzer/internal/analysis"
)

const (
	SecondaryModel = "secondary"

	secondaryMaxCategories = 2
	secondaryMaxKeywords   = 5
)

// The secondary tables are tuned independently of the pattern classifier:
// fewer, more specific indicators per category.
var secondaryCategories = []rule{
	{"Work & Business", words(`meeting`, `budget`, `reports?`, `deadline`, `quarter(?:ly)?`, `conference room`,
		`department(?:al)?`, `deliverables?`, `kpi`, `roadmap`)},
	{"Finance & Banking", words(`invoice`, `bank statement`, `payment due`, `account balance`, `credit card`,
		`transfer`, `interest rate`, `tax return`)},
	{"Personal & Family", words(`family`, `birthday`, `wedding`, `holiday`, `grandma`, `grandpa`, `cousin`)},
	{"Promotions & Marketing", words(`% off`, `sale`, `promo code`, `special offer`, `unsubscribe`, `deal`)},
	{"Healthcare", words(`appointment reminder`, `doctor`, `prescription`, `health insurance`, `clinic`)},
	{"Travel", words(`flight`, `hotel`, `itinerary`, `boarding`, `reservation`)},
	{"Education", words(`course`, `enrollment`, `exam`, `lecture`, `campus`)},
	{"Technology", words(`server`, `deployment`, `outage`, `api`, `incident`, `bug`)},
	{"Shopping & Orders", words(`order`, `shipment`, `tracking number`, `delivered`, `checkout`)},
}

var (
	secondaryPositive = words(`thank you`, `thanks`, `appreciate`, `grateful`, `pleased`, `great job`,
		`looking forward`, `delighted`)
	secondaryNegative = words(`complaint`, `disappointed`, `angry`, `problem`, `delay(?:ed)?`, `cancel(?:led)?`,
		`not working`, `refund request`)
)

var secondaryIntents = []rule{
	{"urgent_action", words(`urgent`, `asap`, `immediately`)},
	{"complaint", words(`complaint`, `disappointed`, `not working`)},
	{"approval", words(`approve`, `sign off`)},
	{"request", words(`please`, `could you`, `can you`)},
	{"scheduling", words(`meeting`, `schedule`, `calendar`)},
	{"inquiry", words(`question`, `wondering`)},
	{"gratitude", words(`thank you`, `thanks`, `appreciate`)},
}

var secondaryUrgency = []struct {
	level   analysis.Urgency
	pattern *regexp.Regexp
}{
	{analysis.UrgencyCritical, words(`urgent`, `asap`, `emergency`, `deadline today`)},
	{analysis.UrgencyHigh, words(`important`, `tomorrow`, `deadline`)},
	{analysis.UrgencyMedium, words(`soon`, `reminder`, `next week`)},
}

var secondaryStopwords = toSet(
	"about", "after", "before", "could", "every", "their", "there", "these", "those", "which",
	"while", "would", "please", "thanks", "regards",
)

// Secondary stands in for a remote inference model. It simulates the call
// latency and degrades locally when the call would exceed its timeout.
type Secondary struct {
	latency time.Duration
	timeout time.Duration
}

func NewSecondary(latency, timeout time.Duration) *Secondary {
	return &Secondary{latency: latency, timeout: timeout}
}

func (s *Secondary) Name() string { return SecondaryModel }

func (s *Secondary) Analyze(ctx context.Context, text string) (partial analysis.PartialResult) {
	defer func() {
		if r := recover(); r != nil {
			partial = analysis.DegradedPartial(SecondaryModel, fmt.Sprintf("secondary analysis failed: %v", r))
		}
	}()

	if err := s.simulateCall(ctx); err != nil {
		return analysis.DegradedPartial(SecondaryModel, "secondary inference unavailable: "+err.Error())
	}

	categories, hits := rank(secondaryCategories, text, secondaryMaxCategories)
	if len(categories) == 0 {
		categories = []string{analysis.CategoryGeneral}
	}
	sentiment := secondarySentiment(text)
	urgency := analysis.UrgencyLow
	for _, tier := range secondaryUrgency {
		if tier.pattern.MatchString(text) {
			urgency = tier.level
			break
		}
	}

	intent := analysis.IntentInformational
	for _, r := range secondaryIntents {
		if r.pattern.MatchString(text) {
			intent = r.name
			break
		}
	}

	labels := append([]string{}, categories...)
	if urgency.Rank() >= analysis.UrgencyHigh.Rank() {
		labels = appendUnique(labels, analysis.MaxSuggestedLabels, "Needs Attention")
	}

	keywords := frequentWords(text, 5, secondaryStopwords)
	if len(keywords) > secondaryMaxKeywords {
		keywords = keywords[:secondaryMaxKeywords]
	}

	return analysis.PartialResult{
		Model:           SecondaryModel,
		Topic:           categories[0],
		Sentiment:       sentiment,
		Intent:          intent,
		Urgency:         urgency,
		Confidence:      secondaryConfidence(hits, sentiment),
		Categories:      categories,
		Keywords:        keywords,
		SuggestedLabels: labels,
		Reasoning:       fmt.Sprintf("Secondary model: %d category indicators, %s", hits, strings.Join(categories, ", ")),
	}
}

func (s *Secondary) simulateCall(ctx context.Context) error {
	if s.latency <= 0 {
		return ctx.Err()
	}
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	timer := time.NewTimer(s.latency)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// secondarySentiment is a plain majority vote.
func secondarySentiment(text string) analysis.Sentiment {
	pos := count(secondaryPositive, text)
	neg := count(secondaryNegative, text)
	switch {
	case pos > neg:
		return analysis.SentimentPositive
	case neg > pos:
		return analysis.SentimentNegative
	default:
		return analysis.SentimentNeutral
	}
}

func secondaryConfidence(categoryHits int, sentiment analysis.Sentiment) float64 {
	if categoryHits > 3 {
		categoryHits = 3
	}
	conf := 0.55 + 0.08*float64(categoryHits)
	if sentiment != analysis.SentimentNeutral {
		conf += 0.05
	}
	if conf > 0.9 {
		conf = 0.9
	}
	return conf
}
