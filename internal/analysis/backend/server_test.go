package backend

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"email-analyzer/internal/analysis"
	"email-analyzer/internal/common/logger"
)

func TestServer_RoundTripWithHTTPBackend(t *testing.T) {
	server := httptest.NewServer(NewServer(newTestPipeline(), logger.NewTestLogger(t)))
	defer server.Close()

	report, err := NewHTTP(server.URL, server.Client(), logger.NewNoOpLogger()).Analyze(context.Background(), budgetRequest)
	require.NoError(t, err)

	assert.Contains(t, report.Result.Categories, "Work & Business")
	assert.Equal(t, analysis.MethodEnsemble, report.Validation.Method)
}

func TestServer_RejectsBadRequests(t *testing.T) {
	handler := NewServer(newTestPipeline(), logger.NewNoOpLogger())

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, analyzePath, nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, analyzePath, strings.NewReader("{")))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestServer_AssignsRequestID(t *testing.T) {
	handler := NewServer(newTestPipeline(), logger.NewNoOpLogger())

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, analyzePath, strings.NewReader(`{"subject":"hi","content":"thanks"}`)))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestServer_Health(t *testing.T) {
	rec := httptest.NewRecorder()
	NewServer(newTestPipeline(), logger.NewNoOpLogger()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"healthy"}`, rec.Body.String())
}

func TestServeStdio(t *testing.T) {
	var out bytes.Buffer
	in := strings.NewReader(`{"subject":"Q4 Budget Review Meeting","content":"Please review the budget before the meeting."}`)

	require.NoError(t, ServeStdio(context.Background(), newTestPipeline(), in, &out))

	report, err := decodeReport(out.Bytes())
	require.NoError(t, err)
	assert.Contains(t, report.Result.Categories, "Work & Business")
}

func TestServeStdio_BadInput(t *testing.T) {
	err := ServeStdio(context.Background(), newTestPipeline(), strings.NewReader("nope"), &bytes.Buffer{})
	assert.Error(t, err)
}
