package categorization

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"email-analyzer/internal/analysis"
	apperrors "email-analyzer/internal/common/errors"
	"email-analyzer/internal/common/logger"
)

// ==========================
// Fakes
// ==========================

type fakeAnalyzer struct {
	mu       sync.Mutex
	calls    int
	result   analysis.AnalysisResult
	validity analysis.ValidationResult
	err      error
}

func (f *fakeAnalyzer) AnalyzeEmail(_ context.Context, _, _ string) (analysis.AnalysisResult, analysis.ValidationResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.result, f.validity, f.err
}

type update struct {
	emailID, categoryID int64
	confidence          int
	labels              []string
}

type fakeStore struct {
	emails     map[int64]*Email
	categories []Category
	updates    []update
	updateErr  error
	listErr    error
}

func (s *fakeStore) GetEmail(_ context.Context, id int64) (*Email, error) {
	e, ok := s.emails[id]
	if !ok {
		return nil, fmt.Errorf("email %d: %w", id, ErrEmailNotFound)
	}
	return e, nil
}

func (s *fakeStore) ListCategories(context.Context) ([]Category, error) {
	return s.categories, s.listErr
}

func (s *fakeStore) UpdateCategorization(_ context.Context, emailID, categoryID int64, confidence int, labels []string) error {
	if s.updateErr != nil {
		return s.updateErr
	}
	s.updates = append(s.updates, update{emailID, categoryID, confidence, labels})
	return nil
}

type fakeSink struct {
	activities []Activity
	err        error
}

func (s *fakeSink) RecordActivity(_ context.Context, a Activity) error {
	s.activities = append(s.activities, a)
	return s.err
}

type fakeAlerter struct {
	alerts []Alert
}

func (a *fakeAlerter) AlertUrgent(_ context.Context, alert Alert) error {
	a.alerts = append(a.alerts, alert)
	return nil
}

func reliableWork() *fakeAnalyzer {
	return &fakeAnalyzer{
		result: analysis.AnalysisResult{
			Topic:           "Work & Business",
			Urgency:         analysis.UrgencyHigh,
			Confidence:      0.774,
			Categories:      []string{"Work & Business", "Finance & Banking"},
			SuggestedLabels: []string{"Work & Business", "High Priority"},
			RiskFlags:       []analysis.RiskFlag{analysis.RiskUrgentContent},
		},
		validity: analysis.ValidationResult{Method: analysis.MethodEnsemble, Score: 0.86, Reliable: true},
	}
}

func newStore() *fakeStore {
	return &fakeStore{
		emails: map[int64]*Email{
			1: {ID: 1, Subject: "Budget", Content: "Quarterly budget review"},
			2: {ID: 2, Subject: "Hello", Content: "Just saying hi"},
			3: {ID: 3, Subject: "", Content: "no subject"},
		},
		categories: []Category{{ID: 10, Name: "Personal"}, {ID: 20, Name: "Work"}},
	}
}

// ==========================
// CategorizeEmail
// ==========================

func TestCategorizeEmail_PersistsReliableMatch(t *testing.T) {
	store, sink, alerter := newStore(), &fakeSink{}, &fakeAlerter{}
	c := NewCategorizer(reliableWork(), store, sink, alerter, logger.NewTestLogger(t))

	outcome, err := c.CategorizeEmail(context.Background(), 1)
	require.NoError(t, err)

	assert.Equal(t, StatusCategorized, outcome.Status)
	assert.Equal(t, int64(20), outcome.CategoryID)
	assert.Equal(t, 77, outcome.Confidence)
	require.Len(t, store.updates, 1)
	assert.Equal(t, update{1, 20, 77, []string{"Work & Business", "High Priority"}}, store.updates[0])

	require.Len(t, sink.activities, 1)
	assert.Equal(t, ActivityEmailCategorized, sink.activities[0].Type)
	assert.Equal(t, "Categories: Work & Business, Finance & Banking | Confidence: 77% | reliable", sink.activities[0].Details)
	assert.NotEmpty(t, sink.activities[0].ID)

	require.Len(t, alerter.alerts, 1)
	assert.Equal(t, int64(1), alerter.alerts[0].EmailID)
}

func TestCategorizeEmail_LowConfidenceNotPersisted(t *testing.T) {
	store, sink := newStore(), &fakeSink{}
	analyzer := reliableWork()
	analyzer.validity.Reliable = false

	outcome, err := NewCategorizer(analyzer, store, sink, nil, logger.NewNoOpLogger()).CategorizeEmail(context.Background(), 1)
	require.NoError(t, err)

	assert.Equal(t, StatusLowConfidence, outcome.Status)
	assert.Empty(t, store.updates)
	assert.Contains(t, sink.activities[0].Details, "needs review")
}

func TestCategorizeEmail_NoMatchingCategory(t *testing.T) {
	store := newStore()
	store.categories = []Category{{ID: 10, Name: "Personal"}}

	outcome, err := NewCategorizer(reliableWork(), store, nil, nil, logger.NewNoOpLogger()).CategorizeEmail(context.Background(), 1)
	require.NoError(t, err)

	assert.Equal(t, StatusNoMatchingCategory, outcome.Status)
	assert.Empty(t, store.updates)
}

func TestCategorizeEmail_Errors(t *testing.T) {
	tests := []struct {
		name    string
		emailID int64
		mutate  func(*fakeStore, *fakeAnalyzer)
		code    apperrors.ErrorCode
	}{
		{"not found", 99, nil, apperrors.ErrCodeEmailNotFound},
		{"missing subject", 3, nil, apperrors.ErrCodeInvalidEmailInput},
		{"persist failure", 1, func(s *fakeStore, _ *fakeAnalyzer) { s.updateErr = errors.New("deadlock") }, apperrors.ErrCodeCategoryPersistFailed},
		{"list categories failure", 1, func(s *fakeStore, _ *fakeAnalyzer) { s.listErr = errors.New("timeout") }, apperrors.ErrCodeQueryExecutionFailed},
		{"invalid text", 1, func(_ *fakeStore, a *fakeAnalyzer) { a.err = analysis.ErrInvalidInput }, apperrors.ErrCodeInvalidEmailInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, analyzer := newStore(), reliableWork()
			if tt.mutate != nil {
				tt.mutate(store, analyzer)
			}

			_, err := NewCategorizer(analyzer, store, nil, nil, logger.NewNoOpLogger()).CategorizeEmail(context.Background(), tt.emailID)

			var stdErr *apperrors.StandardError
			require.ErrorAs(t, err, &stdErr)
			assert.Equal(t, tt.code, stdErr.Code)
		})
	}
}

func TestCategorizeEmail_ActivityFailureIsNotFatal(t *testing.T) {
	sink := &fakeSink{err: errors.New("index closed")}
	outcome, err := NewCategorizer(reliableWork(), newStore(), sink, nil, logger.NewNoOpLogger()).CategorizeEmail(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, StatusCategorized, outcome.Status)
}

// ==========================
// CategorizeBatch
// ==========================

func TestCategorizeBatch_SizeLimits(t *testing.T) {
	c := NewCategorizer(reliableWork(), newStore(), nil, nil, logger.NewNoOpLogger())

	_, err := c.CategorizeBatch(context.Background(), nil)
	var stdErr *apperrors.StandardError
	require.ErrorAs(t, err, &stdErr)
	assert.Equal(t, apperrors.ErrCodeEmptyBatch, stdErr.Code)

	ids := make([]int64, MaxBatchSize+1)
	_, err = c.CategorizeBatch(context.Background(), ids)
	require.ErrorAs(t, err, &stdErr)
	assert.Equal(t, apperrors.ErrCodeBatchTooLarge, stdErr.Code)
}

func TestCategorizeBatch_MixedOutcomes(t *testing.T) {
	store, sink, analyzer := newStore(), &fakeSink{}, reliableWork()
	c := NewCategorizer(analyzer, store, sink, nil, logger.NewNoOpLogger())

	result, err := c.CategorizeBatch(context.Background(), []int64{1, 2, 3, 99})
	require.NoError(t, err)

	require.Len(t, result.Outcomes, 4)
	assert.Equal(t, StatusCategorized, result.Outcomes[0].Status)
	assert.Equal(t, StatusCategorized, result.Outcomes[1].Status)
	assert.Equal(t, StatusMissingContent, result.Outcomes[2].Status)
	assert.Equal(t, StatusEmailNotFound, result.Outcomes[3].Status)
	assert.Equal(t, 2, result.Categorized)
	assert.Equal(t, 2, result.Failed)

	assert.Equal(t, 2, analyzer.calls)

	require.Len(t, sink.activities, 1)
	activity := sink.activities[0]
	assert.Equal(t, ActivityBatchCategorized, activity.Type)
	assert.Equal(t, "Batch categorized 2 of 4 emails", activity.Description)
	assert.Equal(t, []int64{1, 2, 3, 99}, activity.EmailIDs)
	assert.Contains(t, activity.Details, "#1 Categories: Work & Business, Finance & Banking | Confidence: 77% | reliable")
	assert.Contains(t, activity.Details, "#99 Email 99: email_not_found")
}

func TestCategorizeBatch_PersistFailureIsPerItem(t *testing.T) {
	store := newStore()
	store.updateErr = errors.New("disk full")

	result, err := NewCategorizer(reliableWork(), store, nil, nil, logger.NewNoOpLogger()).CategorizeBatch(context.Background(), []int64{1})
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, result.Outcomes[0].Status)
	assert.Contains(t, result.Outcomes[0].Error, "CATEGORY_PERSIST_FAILED")
}

// ==========================
// Helpers
// ==========================

func TestMatchCategory(t *testing.T) {
	stored := []Category{{ID: 1, Name: "Work"}, {ID: 2, Name: "Finance"}, {ID: 3, Name: ""}}

	tests := []struct {
		analyzed []string
		wantID   int64
		wantOK   bool
	}{
		{[]string{"Work & Business"}, 1, true},
		{[]string{"finance & banking"}, 2, true},
		{[]string{"work"}, 1, true},
		{[]string{"Travel", "Finance & Banking"}, 2, true},
		{[]string{"Travel"}, 0, false},
		{[]string{""}, 0, false},
	}
	for _, tt := range tests {
		got, ok := MatchCategory(tt.analyzed, stored)
		assert.Equal(t, tt.wantOK, ok, tt.analyzed)
		assert.Equal(t, tt.wantID, got.ID, tt.analyzed)
	}
}

func TestConfidencePercent(t *testing.T) {
	assert.Equal(t, 65, ConfidencePercent(0.65))
	assert.Equal(t, 78, ConfidencePercent(0.776))
	assert.Equal(t, 0, ConfidencePercent(0))
	assert.Equal(t, 100, ConfidencePercent(1))
}
