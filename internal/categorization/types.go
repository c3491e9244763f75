// Package categorization applies analysis results to stored emails: it maps
// analyzed categories onto the mailbox's category table, persists reliable
// assignments, logs activity and raises urgent-content alerts.
package categorization

import (
	"context"
	"errors"
	"time"

	"email-analyzer/internal/analysis"
)

const MaxBatchSize = 10

var ErrEmailNotFound = errors.New("EMAIL_NOT_FOUND")

type Email struct {
	ID      int64
	Subject string
	Content string
}

type Category struct {
	ID   int64
	Name string
}

// Status is the per-email outcome of a categorization attempt.
type Status string

const (
	StatusCategorized        Status = "categorized"
	StatusLowConfidence      Status = "low_confidence"
	StatusNoMatchingCategory Status = "no_matching_category"
	StatusEmailNotFound      Status = "email_not_found"
	StatusMissingContent     Status = "missing_content"
	StatusFailed             Status = "failed"
)

type Outcome struct {
	EmailID      int64    `json:"emailId"`
	Status       Status   `json:"status"`
	CategoryID   int64    `json:"categoryId,omitempty"`
	CategoryName string   `json:"categoryName,omitempty"`
	Categories   []string `json:"categories,omitempty"`
	Confidence   int      `json:"confidence"`
	Labels       []string `json:"labels,omitempty"`
	Reliable     bool     `json:"reliable"`
	Method       string   `json:"method,omitempty"`
	Urgent       bool     `json:"urgent"`
	Error        string   `json:"error,omitempty"`
}

type BatchResult struct {
	Outcomes    []Outcome `json:"outcomes"`
	Categorized int       `json:"categorized"`
	Failed      int       `json:"failed"`
}

type ActivityType string

const (
	ActivityEmailCategorized ActivityType = "email_categorization"
	ActivityBatchCategorized ActivityType = "batch_categorization"
)

type Activity struct {
	ID          string       `json:"id"`
	Type        ActivityType `json:"type"`
	Description string       `json:"description"`
	Details     string       `json:"details"`
	EmailIDs    []int64      `json:"emailIds"`
	CreatedAt   time.Time    `json:"createdAt"`
}

type Alert struct {
	EmailID    int64            `json:"emailId"`
	Subject    string           `json:"subject"`
	Categories []string         `json:"categories"`
	Urgency    analysis.Urgency `json:"urgency"`
	Confidence int              `json:"confidence"`
}

// EmailStore returns ErrEmailNotFound (possibly wrapped) for unknown ids.
type EmailStore interface {
	GetEmail(ctx context.Context, id int64) (*Email, error)
	ListCategories(ctx context.Context) ([]Category, error)
	UpdateCategorization(ctx context.Context, emailID, categoryID int64, confidence int, labels []string) error
}

type ActivitySink interface {
	RecordActivity(ctx context.Context, activity Activity) error
}

type Alerter interface {
	AlertUrgent(ctx context.Context, alert Alert) error
}

type Analyzer interface {
	AnalyzeEmail(ctx context.Context, subject, content string) (analysis.AnalysisResult, analysis.ValidationResult, error)
}
