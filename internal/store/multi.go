package store

import (
	"context"
	"errors"

	"email-analyzer/internal/categorization"
)

// MultiSink records every activity in each sink. All sinks are attempted;
// their errors are joined.
type MultiSink []categorization.ActivitySink

func (m MultiSink) RecordActivity(ctx context.Context, a categorization.Activity) error {
	var errs []error
	for _, sink := range m {
		if err := sink.RecordActivity(ctx, a); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
