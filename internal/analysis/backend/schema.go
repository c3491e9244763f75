// Package backend provides the primary analysis paths: in-process, a child
// process speaking JSON over stdio, and a remote HTTP service.
package backend

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"email-analyzer/internal/analysis"
)

const reportSchemaJSON = `{
  "type": "object",
  "required": ["result", "validation"],
  "properties": {
    "result": {
      "type": "object",
      "required": ["topic", "sentiment", "intent", "urgency", "confidence", "categories"],
      "properties": {
        "topic":      {"type": "string"},
        "sentiment":  {"enum": ["positive", "negative", "neutral"]},
        "intent":     {"type": "string"},
        "urgency":    {"enum": ["low", "medium", "high", "critical"]},
        "confidence": {"type": "number", "minimum": 0, "maximum": 1},
        "categories": {"type": "array", "minItems": 1, "uniqueItems": true, "items": {"type": "string"}},
        "keywords":   {"type": ["array", "null"], "maxItems": 10, "items": {"type": "string"}},
        "reasoning":  {"type": "string"},
        "suggestedLabels": {"type": ["array", "null"], "maxItems": 8, "items": {"type": "string"}},
        "riskFlags": {
          "type": ["array", "null"],
          "items": {"enum": ["low_confidence", "conflicting_categorization", "urgent_content"]}
        }
      }
    },
    "validation": {
      "type": "object",
      "required": ["method", "score", "reliable"],
      "properties": {
        "method":   {"enum": ["cross_validation", "ensemble", "confidence_threshold", "human_feedback", "fallback"]},
        "score":    {"type": "number", "minimum": 0, "maximum": 1},
        "reliable": {"type": "boolean"},
        "feedback": {"type": "string"}
      }
    }
  }
}`

var reportSchema = mustSchema(reportSchemaJSON)

func mustSchema(s string) *gojsonschema.Schema {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(s))
	if err != nil {
		panic(fmt.Sprintf("invalid report schema: %v", err))
	}
	return schema
}

// decodeReport validates raw backend output against the report schema before
// decoding it. Every failure is an ErrBackendParse.
func decodeReport(raw []byte) (*analysis.Report, error) {
	result, err := reportSchema.Validate(gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", analysis.ErrBackendParse, err)
	}
	if !result.Valid() {
		errs := make([]string, len(result.Errors()))
		for i, desc := range result.Errors() {
			errs[i] = desc.String()
		}
		return nil, fmt.Errorf("%w: report validation failed: %s", analysis.ErrBackendParse, strings.Join(errs, "; "))
	}

	var report analysis.Report
	if err := json.Unmarshal(raw, &report); err != nil {
		return nil, fmt.Errorf("%w: %v", analysis.ErrBackendParse, err)
	}
	return &report, nil
}
