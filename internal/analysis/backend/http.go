package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"email-analyzer/internal/analysis"
	"email-analyzer/internal/common/logger"
)

const (
	analyzePath     = "/api/analyze"
	maxResponseSize = 1 << 20
)

// HTTP calls a remote analysis service. There are no retries within one call;
// any failure routes the request to the fallback engine.
type HTTP struct {
	baseURL string
	client  *http.Client
	logger  logger.Logger
}

func NewHTTP(baseURL string, client *http.Client, log logger.Logger) *HTTP {
	if client == nil {
		client = &http.Client{}
	}
	return &HTTP{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  client,
		logger:  log.WithFields(map[string]interface{}{"component": "http-backend"}),
	}
}

func (h *HTTP) Analyze(ctx context.Context, req analysis.Request) (*analysis.Report, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("%w: encode request: %v", analysis.ErrBackendFailed, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, h.baseURL+analyzePath, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", analysis.ErrBackendFailed, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if req.RequestID != "" {
		httpReq.Header.Set("X-Request-ID", req.RequestID)
	}

	resp, err := h.client.Do(httpReq)
	if resp != nil {
		defer resp.Body.Close()
	}
	if ctx.Err() != nil || errors.Is(err, context.DeadlineExceeded) {
		if err == nil {
			err = ctx.Err()
		}
		return nil, fmt.Errorf("%w: %v", analysis.ErrBackendTimeout, err)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", analysis.ErrBackendFailed, err)
	}

	if resp.StatusCode != http.StatusOK {
		h.logger.Warn("analysis service returned non-OK status", map[string]interface{}{
			"requestId": req.RequestID,
			"status":    resp.StatusCode,
		})
		return nil, fmt.Errorf("%w: status %d", analysis.ErrBackendFailed, resp.StatusCode)
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("%w: %v", analysis.ErrBackendTimeout, err)
		}
		return nil, fmt.Errorf("%w: read body: %v", analysis.ErrBackendFailed, err)
	}
	return decodeReport(raw)
}
