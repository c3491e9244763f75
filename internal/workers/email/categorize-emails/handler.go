// internal/workers/email/categorize-emails/handler.go
package categorizeemails

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	"email-analyzer/internal/categorization"
	apperrors "email-analyzer/internal/common/errors"
	"email-analyzer/internal/common/logger"
	"email-analyzer/internal/common/metrics"
)

const (
	TaskType = "categorize-emails"
)

// Categorizer is the part of *categorization.Categorizer the worker drives.
type Categorizer interface {
	CategorizeEmail(ctx context.Context, emailID int64) (*categorization.Outcome, error)
	CategorizeBatch(ctx context.Context, emailIDs []int64) (*categorization.BatchResult, error)
}

type Handler struct {
	config       *Config
	categorizer  Categorizer
	logger       logger.Logger
	errorHandler *apperrors.ErrorHandler
}

func NewHandler(config *Config, categorizer Categorizer, log logger.Logger) *Handler {
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:       config,
		categorizer:  categorizer,
		logger:       log,
		errorHandler: apperrors.NewErrorHandler(log),
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	start := time.Now()
	metrics.WorkerJobsActive.WithLabelValues(TaskType).Inc()
	defer func() {
		metrics.WorkerJobsActive.WithLabelValues(TaskType).Dec()
		metrics.WorkerJobDuration.WithLabelValues(TaskType).Observe(time.Since(start).Seconds())
	}()

	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	var input Input
	if err := json.Unmarshal([]byte(job.Variables), &input); err != nil {
		h.failJob(client, job, apperrors.NewInvalidEmailInputError(0, fmt.Sprintf("parse input: %v", err)))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	output, err := h.Execute(ctx, &input)
	if err != nil {
		h.failJob(client, job, err)
		return
	}

	h.completeJob(client, job, output)
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	// A single emailId surfaces its own errors (not found, missing content)
	// to the process; a batch reports them per item.
	if len(input.EmailIDs) == 0 && input.EmailID != 0 {
		outcome, err := h.categorizer.CategorizeEmail(ctx, input.EmailID)
		if err != nil {
			return nil, err
		}
		single := &categorization.BatchResult{Outcomes: []categorization.Outcome{*outcome}}
		if outcome.Status == categorization.StatusCategorized {
			single.Categorized = 1
		} else {
			single.Failed = 1
		}
		return newOutput(single), nil
	}

	result, err := h.categorizer.CategorizeBatch(ctx, input.ids())
	if err != nil {
		return nil, err
	}
	return newOutput(result), nil
}

func newOutput(result *categorization.BatchResult) *Output {
	out := &Output{
		Outcomes:    result.Outcomes,
		Categorized: result.Categorized,
		Failed:      result.Failed,
	}
	for _, o := range result.Outcomes {
		if o.Urgent {
			out.HasUrgent = true
			break
		}
	}
	return out
}

func (h *Handler) completeJob(client worker.JobClient, job entities.Job, output *Output) {
	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.Key).
		VariablesFromObject(output)
	if err != nil {
		h.logger.Error("failed to create complete job command", map[string]interface{}{
			"error": err,
		})
		return
	}
	if _, err := cmd.Send(context.Background()); err != nil {
		h.logger.Error("failed to send complete job command", map[string]interface{}{
			"error": err,
		})
		return
	}
	metrics.WorkerJobsCompleted.WithLabelValues(TaskType).Inc()
}

func (h *Handler) failJob(client worker.JobClient, job entities.Job, err error) {
	stdErr := apperrors.Normalize(err)
	metrics.WorkerJobsFailed.WithLabelValues(TaskType, string(stdErr.Code)).Inc()
	h.errorHandler.HandleJobError(context.Background(), client, job, stdErr)
}
