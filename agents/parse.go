package agents

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/wikigen/wikigen"
)

// StripCodeFence removes a leading and trailing triple-backtick fence line
// if present, returning the inner text trimmed. Models frequently wrap
// JSON payloads in a fenced block even when told not to.
func StripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}

	// Drop the opening fence line, including any language tag.
	if idx := strings.IndexByte(s, '\n'); idx >= 0 {
		s = s[idx+1:]
	} else {
		return ""
	}

	// Drop the closing fence line if present.
	if idx := strings.LastIndex(s, "```"); idx >= 0 {
		s = s[:idx]
	}

	return strings.TrimSpace(s)
}

// evaluationPayload is the wire shape of a critic verdict.
type evaluationPayload struct {
	Score           float64            `json:"score"`
	Passed          bool               `json:"passed"`
	Feedback        string             `json:"feedback"`
	CriteriaScores  map[string]float64 `json:"criteria_scores"`
	CriteriaWeights map[string]float64 `json:"criteria_weights"`
}

// ParseEvaluation parses a critic's raw output, a JSON object optionally
// wrapped in a fenced code block, into an EvaluationResult. Errors here
// trigger the loop's critic fallback rather than failing the run.
func ParseEvaluation(raw string) (*wikigen.EvaluationResult, error) {
	stripped := StripCodeFence(raw)

	var payload evaluationPayload
	if err := json.Unmarshal([]byte(stripped), &payload); err != nil {
		return nil, fmt.Errorf("parse evaluation JSON: %w", err)
	}

	if payload.Score < 1.0 || payload.Score > 10.0 {
		return nil, fmt.Errorf(
			"evaluation score %.2f outside [1.0, 10.0]", payload.Score,
		)
	}

	return &wikigen.EvaluationResult{
		Score:           payload.Score,
		Passed:          payload.Passed,
		Feedback:        payload.Feedback,
		CriteriaScores:  payload.CriteriaScores,
		CriteriaWeights: payload.CriteriaWeights,
	}, nil
}

// parseMarkdown parses a generator's raw output as page/README markdown:
// strip a wrapping fence if present and require non-empty content.
func parseMarkdown(raw string) (string, error) {
	text := strings.TrimSpace(raw)

	// Only unwrap when the entire output is a single fenced block;
	// fenced code inside a page is content, not wrapping.
	if strings.HasPrefix(text, "```") &&
		strings.HasSuffix(text, "```") &&
		strings.Count(text, "```") == 2 {
		text = StripCodeFence(text)
	}

	if text == "" {
		return "", wikigen.ErrEmptyOutput
	}
	return text, nil
}
