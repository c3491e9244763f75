package classifiers

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"email-analyzer/internal/analysis"
)

func TestSecondary_Analyze(t *testing.T) {
	s := NewSecondary(0, 0)
	p := s.Analyze(context.Background(), analysis.FullText(
		"Q4 Budget Review Meeting - Tomorrow 2 PM",
		"We will go over the budget in the conference room. Bring the departmental reports.",
	))

	assert.Equal(t, SecondaryModel, p.Model)
	assert.Equal(t, "Work & Business", p.Topic)
	assert.Equal(t, analysis.SentimentNeutral, p.Sentiment)
	assert.Equal(t, analysis.UrgencyHigh, p.Urgency)
	assert.Equal(t, "scheduling", p.Intent)
	assert.InDelta(t, 0.79, p.Confidence, 1e-9)
	assert.LessOrEqual(t, len(p.Keywords), secondaryMaxKeywords)
}

func TestSecondaryConfidence(t *testing.T) {
	assert.InDelta(t, 0.55, secondaryConfidence(0, analysis.SentimentNeutral), 1e-9)
	assert.InDelta(t, 0.71, secondaryConfidence(2, analysis.SentimentNeutral), 1e-9)
	assert.InDelta(t, 0.84, secondaryConfidence(9, analysis.SentimentPositive), 1e-9)
}

func TestSecondarySentiment(t *testing.T) {
	assert.Equal(t, analysis.SentimentPositive, secondarySentiment("Thank you, I really appreciate it"))
	assert.Equal(t, analysis.SentimentNegative, secondarySentiment("The shipment was delayed again"))
	assert.Equal(t, analysis.SentimentNeutral, secondarySentiment("Thanks, but the order is delayed"))
}

func TestSecondary_LatencyWithinTimeout(t *testing.T) {
	s := NewSecondary(5*time.Millisecond, time.Second)
	p := s.Analyze(context.Background(), "Your flight and hotel itinerary")
	assert.Equal(t, "Travel", p.Topic)
	assert.Greater(t, p.Confidence, 0.3)
}

func TestSecondary_TimeoutDegrades(t *testing.T) {
	s := NewSecondary(time.Second, 10*time.Millisecond)

	start := time.Now()
	p := s.Analyze(context.Background(), "Your flight and hotel itinerary")

	assert.Less(t, time.Since(start), 500*time.Millisecond)
	assert.Equal(t, 0.3, p.Confidence)
	assert.Equal(t, []string{analysis.CategoryGeneral}, p.Categories)
	assert.Equal(t, SecondaryModel, p.Model)
}

func TestSecondary_CancelledContextDegrades(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := NewSecondary(0, 0).Analyze(ctx, "Your flight and hotel itinerary")
	assert.Equal(t, 0.3, p.Confidence)
}
