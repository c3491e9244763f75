// internal/workers/email/categorize-emails/models.go
package categorizeemails

import "email-analyzer/internal/categorization"

// Input accepts either a single emailId or a batch of emailIds. A batch wins
// when both are present.
type Input struct {
	EmailID  int64   `json:"emailId,omitempty"`
	EmailIDs []int64 `json:"emailIds,omitempty"`
}

func (i Input) ids() []int64 {
	if len(i.EmailIDs) > 0 {
		return i.EmailIDs
	}
	if i.EmailID != 0 {
		return []int64{i.EmailID}
	}
	return nil
}

type Output struct {
	Outcomes    []categorization.Outcome `json:"outcomes"`
	Categorized int                      `json:"categorizedCount"`
	Failed      int                      `json:"failedCount"`
	HasUrgent   bool                     `json:"hasUrgent"`
}
