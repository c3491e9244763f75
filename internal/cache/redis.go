// Package cache stores analysis reports in Redis so repeated analyses of the
// same email text skip the backend.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"email-analyzer/internal/analysis"
)

const keyPrefix = "email-analysis:"

// Redis implements analysis.Cache.
type Redis struct {
	client redis.Cmdable
	ttl    time.Duration
}

func NewRedis(client redis.Cmdable, ttl time.Duration) *Redis {
	return &Redis{client: client, ttl: ttl}
}

// Key derives the cache key from the email text. Subject and content are
// length-prefixed so ("ab", "c") and ("a", "bc") never collide.
func Key(subject, content string) string {
	h := sha256.New()
	fmt.Fprintf(h, "%d:%s", len(subject), subject)
	h.Write([]byte(content))
	return keyPrefix + hex.EncodeToString(h.Sum(nil))
}

func (r *Redis) Get(ctx context.Context, subject, content string) (*analysis.Report, bool, error) {
	raw, err := r.client.Get(ctx, Key(subject, content)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("cache get: %w", err)
	}

	var report analysis.Report
	if err := json.Unmarshal(raw, &report); err != nil {
		return nil, false, fmt.Errorf("cache decode: %w", err)
	}
	return &report, true, nil
}

// Set stores report unless it came from the fallback engine; degraded answers
// must not outlive the outage that produced them.
func (r *Redis) Set(ctx context.Context, subject, content string, report *analysis.Report) error {
	if report == nil || report.Validation.Method == analysis.MethodFallback {
		return nil
	}
	raw, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("cache encode: %w", err)
	}
	if err := r.client.Set(ctx, Key(subject, content), raw, r.ttl).Err(); err != nil {
		return fmt.Errorf("cache set: %w", err)
	}
	return nil
}
