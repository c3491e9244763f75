package analysis

import "errors"

var (
	// ErrInvalidInput is the only error AnalyzeEmail returns.
	ErrInvalidInput = errors.New("INVALID_ANALYSIS_INPUT")

	ErrBackendTimeout = errors.New("ANALYSIS_BACKEND_TIMEOUT")
	ErrBackendFailed  = errors.New("ANALYSIS_BACKEND_FAILED")
	ErrBackendParse   = errors.New("ANALYSIS_PARSE_FAILED")
)

// FallbackReason maps a backend error to the label used for fallback metrics.
func FallbackReason(err error) string {
	switch {
	case errors.Is(err, ErrBackendTimeout):
		return "timeout"
	case errors.Is(err, ErrBackendParse):
		return "parse"
	case errors.Is(err, ErrBackendFailed):
		return "failed"
	default:
		return "unknown"
	}
}
