// Package models provides langchaingo-backed implementations of wikigen's
// model and embedding contracts.
package models

import (
	"context"
	"time"

	"github.com/tmc/langchaingo/llms"

	"github.com/wikigen/wikigen"
)

// LCGModel wraps an llms.Model and implements wikigen's Model interface,
// normalizing token usage across providers.
//
// Example usage:
//
//	llm, _ := openai.New(openai.WithToken(apiKey))
//	model := models.NewLCGModel(llm).WithModelName("gpt-4o")
type LCGModel struct {
	model     llms.Model
	modelName string // Optional, for error messages and diagnostics
}

// NewLCGModel creates a new LCGModel wrapping the given llms.Model.
func NewLCGModel(model llms.Model) *LCGModel {
	return &LCGModel{model: model}
}

// WithModelName sets the model name. Returns the model for chaining.
func (m *LCGModel) WithModelName(name string) *LCGModel {
	m.modelName = name
	return m
}

// Unwrap returns the underlying llms.Model.
func (m *LCGModel) Unwrap() llms.Model {
	return m.model
}

// GenerateContent implements wikigen.Model. Token usage is normalized
// across providers.
func (m *LCGModel) GenerateContent(
	ctx context.Context,
	messages []llms.MessageContent,
	options ...llms.CallOption,
) (*wikigen.ContentResponse, error) {
	startTime := time.Now()
	lcgResponse, err := m.model.GenerateContent(ctx, messages, options...)
	duration := time.Since(startTime)

	var response *wikigen.ContentResponse
	if lcgResponse != nil {
		response = convertLCGResponse(lcgResponse, duration)
	}
	return response, err
}

// convertLCGResponse converts an llms.ContentResponse to
// wikigen.ContentResponse with normalized tokens.
func convertLCGResponse(
	lcgResponse *llms.ContentResponse,
	duration time.Duration,
) *wikigen.ContentResponse {
	response := &wikigen.ContentResponse{
		Choices: make([]*wikigen.ContentChoice, len(lcgResponse.Choices)),
		Info:    &wikigen.GenerationInfo{Duration: duration},
	}

	for i, choice := range lcgResponse.Choices {
		response.Choices[i] = &wikigen.ContentChoice{
			Content:    choice.Content,
			StopReason: choice.StopReason,
		}
	}

	// Extract and normalize token info from the first choice's
	// GenerationInfo.
	if len(lcgResponse.Choices) > 0 && lcgResponse.Choices[0].GenerationInfo != nil {
		rawInfo := lcgResponse.Choices[0].GenerationInfo
		response.Info.RawGenerationInfo = rawInfo
		response.Info.InputTokens = extractInputTokens(rawInfo)
		response.Info.OutputTokens = extractOutputTokens(rawInfo)
		response.Info.TotalTokens = extractTotalTokens(
			rawInfo,
			response.Info.InputTokens,
			response.Info.OutputTokens,
		)
	}

	return response
}

// extractInputTokens extracts input/prompt token count from
// GenerationInfo. Handles the key names used by different providers.
func extractInputTokens(info map[string]any) int {
	// OpenAI / Ollama / Google (compat)
	if v := getIntFromMap(info, "PromptTokens"); v > 0 {
		return v
	}
	// Anthropic
	if v := getIntFromMap(info, "InputTokens"); v > 0 {
		return v
	}
	// Google / Bedrock
	if v := getIntFromMap(info, "input_tokens"); v > 0 {
		return v
	}
	return 0
}

// extractOutputTokens extracts output/completion token count from
// GenerationInfo.
func extractOutputTokens(info map[string]any) int {
	// OpenAI / Ollama / Google (compat)
	if v := getIntFromMap(info, "CompletionTokens"); v > 0 {
		return v
	}
	// Anthropic
	if v := getIntFromMap(info, "OutputTokens"); v > 0 {
		return v
	}
	// Google / Bedrock
	if v := getIntFromMap(info, "output_tokens"); v > 0 {
		return v
	}
	return 0
}

// extractTotalTokens extracts total token count or computes it.
func extractTotalTokens(info map[string]any, input, output int) int {
	if v := getIntFromMap(info, "TotalTokens"); v > 0 {
		return v
	}
	if v := getIntFromMap(info, "total_tokens"); v > 0 {
		return v
	}
	return input + output
}

// getIntFromMap extracts an int value from a map, handling various numeric
// types.
func getIntFromMap(m map[string]any, key string) int {
	v, ok := m[key]
	if !ok {
		return 0
	}
	switch n := v.(type) {
	case int:
		return n
	case int32:
		return int(n)
	case int64:
		return int(n)
	case float32:
		return int(n)
	case float64:
		return int(n)
	default:
		return 0
	}
}

// Compile-time check.
var _ wikigen.Model = (*LCGModel)(nil)
