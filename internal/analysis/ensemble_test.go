package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func partial(model string, conf float64, cats ...string) PartialResult {
	return PartialResult{
		Model:      model,
		Topic:      cats[0],
		Sentiment:  SentimentNeutral,
		Intent:     IntentInformational,
		Urgency:    UrgencyLow,
		Confidence: conf,
		Categories: cats,
	}
}

// ==========================
// Filtering and defaults
// ==========================

func TestCombine_NoPartialAboveFilterReturnsDefault(t *testing.T) {
	c := NewCombiner()

	for _, partials := range [][]PartialResult{
		nil,
		{partial("a", 0.3, "Travel")},
		{partial("a", 0.1, "Travel"), partial("b", 0.25, "Education")},
	} {
		result := c.Combine(partials)
		assert.Equal(t, CategoryGeneral, result.Topic)
		assert.Equal(t, SentimentNeutral, result.Sentiment)
		assert.Equal(t, IntentInformational, result.Intent)
		assert.Equal(t, UrgencyLow, result.Urgency)
		assert.Equal(t, 0.3, result.Confidence)
		assert.Equal(t, []string{CategoryGeneral}, result.Categories)
		assert.Equal(t, []RiskFlag{RiskLowConfidence}, result.RiskFlags)
	}
}

func TestCombine_SinglePartialKeepsTopicIntentUrgency(t *testing.T) {
	p := PartialResult{
		Model:      "pattern",
		Topic:      "Healthcare",
		Sentiment:  SentimentPositive,
		Intent:     "scheduling",
		Urgency:    UrgencyMedium,
		Confidence: 0.8,
		Categories: []string{"Healthcare"},
		Keywords:   []string{"doctor", "appointment"},
	}

	result := NewCombiner().Combine([]PartialResult{p})

	assert.Equal(t, "Healthcare", result.Topic)
	assert.Equal(t, "scheduling", result.Intent)
	assert.Equal(t, UrgencyMedium, result.Urgency)
	assert.Equal(t, SentimentPositive, result.Sentiment)
	assert.InDelta(t, 0.8, result.Confidence, 1e-9)
	assert.Equal(t, []string{"doctor", "appointment"}, result.Keywords)
	assert.Equal(t, "Ensemble analysis combining 1 models", result.Reasoning)
}

func TestCombine_LeadIsFirstPartialPassingFilter(t *testing.T) {
	low := partial("pattern", 0.2, "Travel")
	low.Intent = "request"
	high := partial("secondary", 0.7, "Education")
	high.Intent = "inquiry"
	high.Urgency = UrgencyHigh

	result := NewCombiner().Combine([]PartialResult{low, high})

	assert.Equal(t, "Education", result.Topic)
	assert.Equal(t, "inquiry", result.Intent)
	assert.Equal(t, UrgencyHigh, result.Urgency)
}

// ==========================
// Voting
// ==========================

func TestCombine_WeightedConfidence(t *testing.T) {
	result := NewCombiner().Combine([]PartialResult{
		partial("a", 0.9, "Travel"),
		partial("b", 0.5, "Travel"),
	})
	// (0.81 + 0.25) / 1.4
	assert.InDelta(t, 1.06/1.4, result.Confidence, 1e-9)

	capped := NewCombiner().Combine([]PartialResult{partial("a", 0.99, "Travel")})
	assert.Equal(t, 0.95, capped.Confidence)
}

func TestCombine_CategoryVoteTopThree(t *testing.T) {
	result := NewCombiner().Combine([]PartialResult{
		partial("a", 0.6, "Travel", "Finance & Banking", "Education"),
		partial("b", 0.8, "Technology", "Finance & Banking"),
	})

	require.Len(t, result.Categories, 3)
	assert.Equal(t, "Finance & Banking", result.Categories[0])
	assert.Equal(t, "Technology", result.Categories[1])
	assert.Equal(t, "Travel", result.Categories[2])
}

func TestCombine_SentimentVoteAndTieOrder(t *testing.T) {
	pos := partial("a", 0.6, "Travel")
	pos.Sentiment = SentimentPositive
	neg := partial("b", 0.6, "Travel")
	neg.Sentiment = SentimentNegative
	neutral := partial("c", 0.7, "Travel")

	assert.Equal(t, SentimentPositive, NewCombiner().Combine([]PartialResult{neg, pos}).Sentiment)
	assert.Equal(t, SentimentNeutral, NewCombiner().Combine([]PartialResult{pos, neutral}).Sentiment)
}

func TestCombine_OrderIndependentVotes(t *testing.T) {
	a := partial("a", 0.8, "Travel", "Education")
	a.Sentiment = SentimentPositive
	b := partial("b", 0.6, "Education")

	ab := NewCombiner().Combine([]PartialResult{a, b})
	ba := NewCombiner().Combine([]PartialResult{b, a})

	assert.Equal(t, ab.Categories, ba.Categories)
	assert.Equal(t, ab.Sentiment, ba.Sentiment)
	assert.InDelta(t, ab.Confidence, ba.Confidence, 1e-12)
}

func TestCombine_KeywordAndLabelCaps(t *testing.T) {
	a := partial("a", 0.8, "Travel")
	b := partial("b", 0.8, "Travel")
	for i := 0; i < 8; i++ {
		a.Keywords = append(a.Keywords, string(rune('a'+i)))
		b.Keywords = append(b.Keywords, string(rune('e'+i)))
		a.SuggestedLabels = append(a.SuggestedLabels, string(rune('A'+i)))
		b.SuggestedLabels = append(b.SuggestedLabels, string(rune('E'+i)))
	}

	result := NewCombiner().Combine([]PartialResult{a, b})

	assert.Len(t, result.Keywords, MaxKeywords)
	assert.Equal(t, []string{"a", "b", "c", "d", "e", "f", "g", "h", "i", "j"}, result.Keywords)
	assert.Len(t, result.SuggestedLabels, MaxSuggestedLabels)
	assert.Equal(t, "A", result.SuggestedLabels[0])
}

// ==========================
// Risk flags
// ==========================

func TestCombine_RiskFlags(t *testing.T) {
	tests := []struct {
		name     string
		partials []PartialResult
		want     []RiskFlag
	}{
		{
			name:     "agreeing confident partials",
			partials: []PartialResult{partial("a", 0.8, "Travel"), partial("b", 0.7, "Travel")},
			want:     []RiskFlag{},
		},
		{
			name:     "mean confidence counts filtered partials",
			partials: []PartialResult{partial("a", 0.6, "Travel"), partial("b", 0.2, "Travel")},
			want:     []RiskFlag{RiskLowConfidence},
		},
		{
			name:     "conflicting categories",
			partials: []PartialResult{partial("a", 0.8, "Travel", "Education"), partial("b", 0.8, "Technology")},
			want:     []RiskFlag{RiskConflictingCategorization},
		},
		{
			name: "urgent from any partial",
			partials: func() []PartialResult {
				b := partial("b", 0.8, "Travel")
				b.Urgency = UrgencyHigh
				return []PartialResult{partial("a", 0.8, "Travel"), b}
			}(),
			want: []RiskFlag{RiskUrgentContent},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := NewCombiner().Combine(tt.partials)
			assert.Equal(t, tt.want, result.RiskFlags)
		})
	}
}
