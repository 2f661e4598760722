package agents

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wikigen/wikigen"
)

// stubRole returns queued outputs in order and records prompts.
type stubRole struct {
	name    string
	outputs []string
	calls   int
	prompts []string
}

func (s *stubRole) Name() string { return s.name }

func (s *stubRole) Invoke(
	ctx context.Context,
	prompt string,
) (string, wikigen.TokenUsage, error) {
	s.prompts = append(s.prompts, prompt)
	out := s.outputs[s.calls]
	s.calls++
	return out, wikigen.TokenUsage{Calls: 1}, nil
}

const passVerdict = `{"score": 9.0, "passed": true, "feedback": "good"}`
const failVerdict = `{"score": 4.0, "passed": false, "feedback": "shallow"}`

func TestStructureAgent_Generate(t *testing.T) {
	generator := &stubRole{
		name:    "structure",
		outputs: []string{"```json\n" + validStructureJSON + "\n```"},
	}
	critic := &stubRole{name: "structure-critic", outputs: []string{passVerdict}}

	agent := NewStructureAgent(generator, critic)
	result, err := agent.Generate(
		context.Background(),
		RepoInfo{Name: "acme/payments", Description: "payments service"},
		[]SourceFile{
			{Path: "main.go", Content: "package main"},
			{Path: "api/handler.go", Content: "package api"},
		},
	)
	require.NoError(t, err)

	require.NotNil(t, result.Output)
	assert.Equal(t, "Payments Service Wiki", result.Output.Title)
	assert.Len(t, result.Output.Pages, 2)
	assert.True(t, result.PassedQualityGate)

	// Structure planning sees the file listing, not file contents.
	require.Len(t, generator.prompts, 1)
	assert.Contains(t, generator.prompts[0], "acme/payments")
	assert.Contains(t, generator.prompts[0], "api/handler.go")
	assert.NotContains(t, generator.prompts[0], "package main")
}

func TestStructureAgent_RetriesInvalidPlan(t *testing.T) {
	generator := &stubRole{
		name: "structure",
		outputs: []string{
			`{"title": "Wiki"}`, // fails schema validation
			validStructureJSON,
		},
	}
	critic := &stubRole{name: "structure-critic", outputs: []string{passVerdict}}

	agent := NewStructureAgent(generator, critic)
	result, err := agent.Generate(
		context.Background(), RepoInfo{Name: "r"}, nil,
	)
	require.NoError(t, err)

	// The invalid plan is skipped without a critic call.
	assert.Equal(t, 2, result.Attempts)
	assert.Len(t, result.EvaluationHistory, 1)
	assert.Equal(t, 1, critic.calls)
	require.NotNil(t, result.Output)
}

func TestPageAgent_Generate(t *testing.T) {
	generator := &stubRole{
		name:    "page",
		outputs: []string{"# Overview\n\nThe service does payments."},
	}
	critic := &stubRole{name: "page-critic", outputs: []string{passVerdict}}

	agent := NewPageAgent(generator, critic)
	result, err := agent.Generate(
		context.Background(),
		PagePlan{ID: "overview", Title: "Overview", SourceFiles: []string{"main.go"}},
		[]SourceFile{{Path: "main.go", Content: "package main"}},
	)
	require.NoError(t, err)

	require.NotNil(t, result.Output)
	assert.Equal(t, "# Overview\n\nThe service does payments.", *result.Output)

	// Page generation sees full file contents with path markers.
	assert.Contains(t, generator.prompts[0], "<<< main.go >>>")
	assert.Contains(t, generator.prompts[0], "package main")
}

func TestPageAgent_RespectsConfig(t *testing.T) {
	generator := &stubRole{name: "page", outputs: []string{"# Draft"}}
	critic := &stubRole{name: "page-critic", outputs: []string{failVerdict}}

	agent := NewPageAgent(generator, critic).
		WithConfig(wikigen.LoopConfig{QualityThreshold: 7.0, MaxAttempts: 1})

	result, err := agent.Generate(context.Background(), PagePlan{ID: "p"}, nil)
	require.NoError(t, err)

	assert.Equal(t, 1, result.Attempts)
	assert.False(t, result.PassedQualityGate)
	assert.Equal(t, 4.0, result.FinalScore)
	require.NotNil(t, result.Output)
}

func TestReadmeAgent_Generate(t *testing.T) {
	generator := &stubRole{
		name:    "readme",
		outputs: []string{"# Payments Wiki\n\nStart with the overview."},
	}
	critic := &stubRole{name: "readme-critic", outputs: []string{passVerdict}}

	agent := NewReadmeAgent(generator, critic)
	result, err := agent.Generate(
		context.Background(),
		WikiStructure{Title: "Payments Wiki"},
		[]PageSummary{
			{ID: "overview", Title: "Overview", Excerpt: "The service does payments."},
			{ID: "api", Title: "HTTP API"},
		},
	)
	require.NoError(t, err)

	require.NotNil(t, result.Output)
	assert.Contains(t, generator.prompts[0], "Payments Wiki")
	assert.Contains(t, generator.prompts[0], "Overview")
	assert.Contains(t, generator.prompts[0], "The service does payments.")
}
