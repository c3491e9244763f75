package categorization

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"

	"email-analyzer/internal/analysis"
	apperrors "email-analyzer/internal/common/errors"
	"email-analyzer/internal/common/logger"
	"email-analyzer/internal/common/metrics"
)

type Categorizer struct {
	analyzer Analyzer
	emails   EmailStore
	activity ActivitySink
	alerter  Alerter
	logger   logger.Logger
	now      func() time.Time
}

// NewCategorizer wires the collaborators. activity and alerter may be nil.
func NewCategorizer(analyzer Analyzer, emails EmailStore, activity ActivitySink, alerter Alerter, log logger.Logger) *Categorizer {
	return &Categorizer{
		analyzer: analyzer,
		emails:   emails,
		activity: activity,
		alerter:  alerter,
		logger:   log.WithFields(map[string]interface{}{"component": "categorizer"}),
		now:      time.Now,
	}
}

// CategorizeEmail analyzes one stored email and persists its category when the
// analysis is reliable and maps onto a stored category.
func (c *Categorizer) CategorizeEmail(ctx context.Context, emailID int64) (*Outcome, error) {
	categories, err := c.emails.ListCategories(ctx)
	if err != nil {
		return nil, apperrors.NewQueryExecutionFailedError("list categories", err)
	}

	outcome, detail, err := c.categorize(ctx, emailID, categories)
	if err != nil {
		return nil, err
	}

	c.record(ctx, Activity{
		Type:        ActivityEmailCategorized,
		Description: fmt.Sprintf("Email %d: %s", emailID, outcome.Status),
		Details:     detail,
		EmailIDs:    []int64{emailID},
	})
	return outcome, nil
}

// CategorizeBatch categorizes 1..MaxBatchSize emails, one analysis per id.
// Per-email problems are reported in the outcomes; only invalid batches and
// infrastructure failures are returned as errors.
func (c *Categorizer) CategorizeBatch(ctx context.Context, emailIDs []int64) (*BatchResult, error) {
	if len(emailIDs) == 0 {
		return nil, apperrors.NewEmptyBatchError()
	}
	if len(emailIDs) > MaxBatchSize {
		return nil, apperrors.NewBatchTooLargeError(len(emailIDs), MaxBatchSize)
	}

	categories, err := c.emails.ListCategories(ctx)
	if err != nil {
		return nil, apperrors.NewQueryExecutionFailedError("list categories", err)
	}

	result := &BatchResult{Outcomes: make([]Outcome, 0, len(emailIDs))}
	details := make([]string, 0, len(emailIDs))

	for _, id := range emailIDs {
		outcome, detail, err := c.categorize(ctx, id, categories)
		if err != nil {
			outcome = failedOutcome(id, err)
			detail = fmt.Sprintf("Email %d: %s", id, outcome.Status)
		}
		if outcome.Status == StatusCategorized {
			result.Categorized++
		} else {
			result.Failed++
		}
		result.Outcomes = append(result.Outcomes, *outcome)
		details = append(details, fmt.Sprintf("#%d %s", id, detail))
	}

	c.record(ctx, Activity{
		Type:        ActivityBatchCategorized,
		Description: fmt.Sprintf("Batch categorized %d of %d emails", result.Categorized, len(emailIDs)),
		Details:     strings.Join(details, "; "),
		EmailIDs:    emailIDs,
	})

	c.logger.Info("batch categorized", map[string]interface{}{
		"size":        len(emailIDs),
		"categorized": result.Categorized,
		"failed":      result.Failed,
	})
	return result, nil
}

func (c *Categorizer) categorize(ctx context.Context, emailID int64, categories []Category) (*Outcome, string, error) {
	email, err := c.emails.GetEmail(ctx, emailID)
	if errors.Is(err, ErrEmailNotFound) {
		return nil, "", apperrors.NewEmailNotFoundError(emailID)
	}
	if err != nil {
		return nil, "", apperrors.NewQueryExecutionFailedError("get email", err)
	}
	if strings.TrimSpace(email.Subject) == "" || strings.TrimSpace(email.Content) == "" {
		return nil, "", apperrors.NewInvalidEmailInputError(emailID, "subject and content are required")
	}

	result, validation, err := c.analyzer.AnalyzeEmail(ctx, email.Subject, email.Content)
	if err != nil {
		return nil, "", apperrors.NewInvalidEmailInputError(emailID, err.Error())
	}

	outcome := &Outcome{
		EmailID:    emailID,
		Categories: result.Categories,
		Confidence: ConfidencePercent(result.Confidence),
		Labels:     result.SuggestedLabels,
		Reliable:   validation.Reliable,
		Method:     string(validation.Method),
		Urgent:     result.HasRiskFlag(analysis.RiskUrgentContent),
	}

	matched, ok := MatchCategory(result.Categories, categories)
	switch {
	case !validation.Reliable:
		outcome.Status = StatusLowConfidence
	case !ok:
		outcome.Status = StatusNoMatchingCategory
	default:
		if err := c.emails.UpdateCategorization(ctx, emailID, matched.ID, outcome.Confidence, outcome.Labels); err != nil {
			return nil, "", apperrors.NewCategoryPersistFailedError(emailID, err)
		}
		outcome.Status = StatusCategorized
		outcome.CategoryID = matched.ID
		outcome.CategoryName = matched.Name
	}
	metrics.CategorizationOutcomes.WithLabelValues(string(outcome.Status)).Inc()

	if outcome.Status == StatusCategorized && outcome.Urgent {
		c.alert(ctx, Alert{
			EmailID:    emailID,
			Subject:    email.Subject,
			Categories: result.Categories,
			Urgency:    result.Urgency,
			Confidence: outcome.Confidence,
		})
	}

	c.logger.Debug("email categorized", map[string]interface{}{
		"emailId":    emailID,
		"status":     string(outcome.Status),
		"confidence": outcome.Confidence,
		"reliable":   outcome.Reliable,
		"method":     outcome.Method,
	})
	return outcome, ActivityDetail(result.Categories, outcome.Confidence, validation.Reliable), nil
}

func failedOutcome(emailID int64, err error) *Outcome {
	status := StatusFailed
	var stdErr *apperrors.StandardError
	if errors.As(err, &stdErr) {
		switch stdErr.Code {
		case apperrors.ErrCodeEmailNotFound:
			status = StatusEmailNotFound
		case apperrors.ErrCodeInvalidEmailInput:
			status = StatusMissingContent
		}
	}
	metrics.CategorizationOutcomes.WithLabelValues(string(status)).Inc()
	return &Outcome{EmailID: emailID, Status: status, Error: err.Error()}
}

func (c *Categorizer) record(ctx context.Context, activity Activity) {
	if c.activity == nil {
		return
	}
	activity.ID = uuid.NewString()
	activity.CreatedAt = c.now().UTC()

	if err := c.activity.RecordActivity(ctx, activity); err != nil {
		stdErr := apperrors.NewActivityLogFailedError(err)
		c.logger.Warn("failed to record activity", map[string]interface{}{
			"activityType": string(activity.Type),
			"errorCode":    string(stdErr.Code),
			"error":        err.Error(),
		})
	}
}

func (c *Categorizer) alert(ctx context.Context, alert Alert) {
	if c.alerter == nil {
		return
	}
	if err := c.alerter.AlertUrgent(ctx, alert); err != nil {
		c.logger.Warn("failed to publish urgent alert", map[string]interface{}{
			"emailId": alert.EmailID,
			"error":   err.Error(),
		})
	}
}

// ConfidencePercent converts a [0,1] confidence to a rounded integer percentage.
func ConfidencePercent(confidence float64) int {
	return int(math.Round(confidence * 100))
}

// ActivityDetail is the human-readable summary written to the activity log.
func ActivityDetail(categories []string, confidencePct int, reliable bool) string {
	verdict := "needs review"
	if reliable {
		verdict = "reliable"
	}
	return fmt.Sprintf("Categories: %s | Confidence: %d%% | %s", strings.Join(categories, ", "), confidencePct, verdict)
}
