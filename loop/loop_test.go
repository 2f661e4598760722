package loop_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wikigen/wikigen"
	"github.com/wikigen/wikigen/events"
	"github.com/wikigen/wikigen/internal/tt"
	"github.com/wikigen/wikigen/loop"
)

// parseIdentity accepts any generator output as-is.
func parseIdentity(raw string) (string, error) {
	return raw, nil
}

// parseStrict rejects outputs marked unparsable.
func parseStrict(raw string) (string, error) {
	if raw == "unparsable" {
		return "", errors.New("not valid output")
	}
	return raw, nil
}

// parseEval decodes the test critic verdict format.
func parseEval(raw string) (*wikigen.EvaluationResult, error) {
	var e wikigen.EvaluationResult
	var payload struct {
		Score          float64            `json:"score"`
		Feedback       string             `json:"feedback"`
		CriteriaScores map[string]float64 `json:"criteria_scores"`
	}
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return nil, err
	}
	e.Score = payload.Score
	e.Feedback = payload.Feedback
	e.CriteriaScores = payload.CriteriaScores
	return &e, nil
}

// verdict builds the test critic verdict JSON.
func verdict(score float64, feedback string) string {
	return fmt.Sprintf(`{"score": %.1f, "feedback": %q}`, score, feedback)
}

// verdictWithCriteria builds a verdict carrying criteria scores.
func verdictWithCriteria(score float64, criteria map[string]float64) string {
	data, _ := json.Marshal(map[string]any{
		"score":           score,
		"feedback":        "criteria feedback",
		"criteria_scores": criteria,
	})
	return string(data)
}

// eventRecorder captures every loop event in order.
type eventRecorder struct {
	started   []*wikigen.AttemptStartedEvent
	skipped   []*wikigen.OutputParseSkippedEvent
	fallbacks []*wikigen.CriticFallbackEvent
	evaluated []*wikigen.AttemptEvaluatedEvent
	passed    []*wikigen.QualityGatePassedEvent
	exhausted []*wikigen.QualityGateExhaustedEvent
}

func (r *eventRecorder) OnAttemptStarted(e *wikigen.AttemptStartedEvent) {
	r.started = append(r.started, e)
}
func (r *eventRecorder) OnOutputParseSkipped(e *wikigen.OutputParseSkippedEvent) {
	r.skipped = append(r.skipped, e)
}
func (r *eventRecorder) OnCriticFallback(e *wikigen.CriticFallbackEvent) {
	r.fallbacks = append(r.fallbacks, e)
}
func (r *eventRecorder) OnAttemptEvaluated(e *wikigen.AttemptEvaluatedEvent) {
	r.evaluated = append(r.evaluated, e)
}
func (r *eventRecorder) OnQualityGatePassed(e *wikigen.QualityGatePassedEvent) {
	r.passed = append(r.passed, e)
}
func (r *eventRecorder) OnQualityGateExhausted(e *wikigen.QualityGateExhaustedEvent) {
	r.exhausted = append(r.exhausted, e)
}

func config(threshold float64, maxAttempts int) wikigen.LoopConfig {
	return wikigen.LoopConfig{
		QualityThreshold: threshold,
		MaxAttempts:      maxAttempts,
	}
}

func TestRun_PassesOnFirstAttempt(t *testing.T) {
	generator := tt.NewMockRole("gen").AddResponse("draft-1", 100, 50)
	critic := tt.NewMockRole("critic").AddResponse(verdict(9.0, "good"), 30, 10)

	result, err := loop.Run(
		context.Background(), generator, critic,
		config(7.0, 3), "write the page",
		parseIdentity, parseEval, nil,
	)
	require.NoError(t, err)

	assert.Equal(t, 1, result.Attempts)
	assert.Equal(t, 9.0, result.FinalScore)
	assert.True(t, result.PassedQualityGate)
	assert.False(t, result.BelowMinimumFloor)
	require.NotNil(t, result.Output)
	assert.Equal(t, "draft-1", *result.Output)
	require.Len(t, result.EvaluationHistory, 1)

	// The critic receives the generator's raw text as its input.
	require.Len(t, critic.CapturedPrompts, 1)
	assert.Equal(t, "draft-1", critic.CapturedPrompts[0])
}

func TestRun_StopsWhenGateCleared(t *testing.T) {
	generator := tt.NewMockRole("gen").
		AddResponse("draft-1", 100, 50).
		AddResponse("draft-2", 120, 60)
	critic := tt.NewMockRole("critic").
		AddResponse(verdict(5.0, "too shallow"), 30, 10).
		AddResponse(verdict(8.0, "better"), 30, 10)

	result, err := loop.Run(
		context.Background(), generator, critic,
		config(7.0, 3), "write the page",
		parseIdentity, parseEval, nil,
	)
	require.NoError(t, err)

	assert.Equal(t, 2, result.Attempts)
	assert.Equal(t, 8.0, result.FinalScore)
	assert.True(t, result.PassedQualityGate)
	require.NotNil(t, result.Output)
	assert.Equal(t, "draft-2", *result.Output)
	assert.Len(t, result.EvaluationHistory, 2)

	// Attempt 1 uses the initial prompt verbatim; attempt 2 appends the
	// previous attempt's feedback, labeled with its attempt number.
	require.Len(t, generator.CapturedPrompts, 2)
	assert.Equal(t, "write the page", generator.CapturedPrompts[0])
	assert.Contains(t, generator.CapturedPrompts[1], "write the page")
	assert.Contains(t, generator.CapturedPrompts[1], "Critic Feedback (attempt 1)")
	assert.Contains(t, generator.CapturedPrompts[1], "too shallow")
}

func TestRun_ExhaustsAttempts(t *testing.T) {
	generator := tt.NewMockRole("gen").
		AddResponse("draft-1", 10, 5).
		AddResponse("draft-2", 10, 5).
		AddResponse("draft-3", 10, 5)
	critic := tt.NewMockRole("critic").
		AddResponse(verdict(6.0, "a"), 5, 5).
		AddResponse(verdict(6.0, "b"), 5, 5).
		AddResponse(verdict(6.0, "c"), 5, 5)

	recorder := &eventRecorder{}
	registry := events.NewRegistry().Subscribe(recorder)

	result, err := loop.Run(
		context.Background(), generator, critic,
		config(7.0, 3), "write the page",
		parseIdentity, parseEval,
		&loop.Options{Agent: "page:test", Events: registry},
	)
	require.NoError(t, err)

	assert.Equal(t, 3, result.Attempts)
	assert.Equal(t, 6.0, result.FinalScore)
	assert.False(t, result.PassedQualityGate)
	assert.Len(t, result.EvaluationHistory, 3)

	// Ties break first-seen: strict > keeps attempt 1's output.
	require.NotNil(t, result.Output)
	assert.Equal(t, "draft-1", *result.Output)

	assert.Len(t, recorder.started, 3)
	assert.Empty(t, recorder.passed)
	require.Len(t, recorder.exhausted, 1)
	assert.Equal(t, 6.0, recorder.exhausted[0].BestScore)
}

func TestRun_CriticErrorFallsBack(t *testing.T) {
	generator := tt.NewMockRole("gen").AddResponse("draft-1", 10, 5)
	critic := tt.NewMockRole("critic").AddError(errors.New("critic down"))

	recorder := &eventRecorder{}
	registry := events.NewRegistry().Subscribe(recorder)

	result, err := loop.Run(
		context.Background(), generator, critic,
		config(7.0, 3), "write the page",
		parseIdentity, parseEval,
		&loop.Options{Agent: "page:test", Events: registry},
	)
	require.NoError(t, err)

	// The fallback scores exactly at the threshold, so with no floors
	// configured the loop stops at attempt 1.
	assert.Equal(t, 1, result.Attempts)
	assert.Equal(t, 7.0, result.FinalScore)
	assert.True(t, result.PassedQualityGate)

	require.Len(t, result.EvaluationHistory, 1)
	evaluation := result.EvaluationHistory[0]
	assert.Equal(t, wikigen.CriticFallbackFeedback, evaluation.Feedback)
	assert.True(t, evaluation.FallbackApplied)

	// A degraded pass is distinguishable from a genuine one.
	require.Len(t, recorder.fallbacks, 1)
	assert.ErrorContains(t, recorder.fallbacks[0].Err, "critic down")
}

func TestRun_CriticUnparsableFallsBack(t *testing.T) {
	generator := tt.NewMockRole("gen").AddResponse("draft-1", 10, 5)
	critic := tt.NewMockRole("critic").AddResponse("not json at all", 5, 5)

	result, err := loop.Run(
		context.Background(), generator, critic,
		config(7.0, 3), "write the page",
		parseIdentity, parseEval, nil,
	)
	require.NoError(t, err)

	assert.Equal(t, 1, result.Attempts)
	assert.True(t, result.PassedQualityGate)
	require.Len(t, result.EvaluationHistory, 1)
	assert.True(t, result.EvaluationHistory[0].FallbackApplied)
}

func TestRun_ParseFailureSkipsAttempt(t *testing.T) {
	generator := tt.NewMockRole("gen").
		AddResponse("unparsable", 10, 5).
		AddResponse("draft-2", 10, 5)
	critic := tt.NewMockRole("critic").AddResponse(verdict(8.0, "fine"), 5, 5)

	recorder := &eventRecorder{}
	registry := events.NewRegistry().Subscribe(recorder)

	result, err := loop.Run(
		context.Background(), generator, critic,
		config(7.0, 3), "write the page",
		parseStrict, parseEval,
		&loop.Options{Agent: "page:test", Events: registry},
	)
	require.NoError(t, err)

	assert.Equal(t, 2, result.Attempts)
	assert.Equal(t, 8.0, result.FinalScore)
	assert.True(t, result.PassedQualityGate)

	// The skipped attempt contributes no evaluation and no critic call.
	assert.Len(t, result.EvaluationHistory, 1)
	assert.Equal(t, 1, critic.CallCount())
	require.Len(t, recorder.skipped, 1)
	assert.Equal(t, 1, recorder.skipped[0].Attempt)
	assert.Equal(t, "unparsable", recorder.skipped[0].RawOutput)

	// No feedback exists after a skip, so attempt 2 reuses the initial
	// prompt verbatim.
	assert.Equal(t, "write the page", generator.CapturedPrompts[1])
}

func TestRun_AllAttemptsFailToParse(t *testing.T) {
	generator := tt.NewMockRole("gen").
		AddResponse("unparsable", 10, 5).
		AddResponse("unparsable", 10, 5).
		AddResponse("unparsable", 10, 5)
	critic := tt.NewMockRole("critic")

	result, err := loop.Run(
		context.Background(), generator, critic,
		config(7.0, 3), "write the page",
		parseStrict, parseEval, nil,
	)
	require.NoError(t, err)

	assert.Nil(t, result.Output)
	assert.Equal(t, 3, result.Attempts)
	assert.Equal(t, 0.0, result.FinalScore)
	assert.False(t, result.PassedQualityGate)
	assert.Empty(t, result.EvaluationHistory)
	assert.Equal(t, 0, critic.CallCount())

	// Generator usage still accumulates for skipped attempts.
	assert.Equal(t, 3, result.TokenUsage.Calls)
	assert.Equal(t, 30, result.TokenUsage.InputTokens)
}

func TestRun_FloorViolationBlocksEarlyExit(t *testing.T) {
	generator := tt.NewMockRole("gen").
		AddResponse("draft-1", 10, 5).
		AddResponse("draft-2", 10, 5)
	critic := tt.NewMockRole("critic").
		AddResponse(verdictWithCriteria(8.0, map[string]float64{"accuracy": 5.0}), 5, 5).
		AddResponse(verdictWithCriteria(8.5, map[string]float64{"accuracy": 7.0}), 5, 5)

	cfg := wikigen.LoopConfig{
		QualityThreshold: 7.0,
		MaxAttempts:      3,
		CriterionFloors:  map[string]float64{"accuracy": 6.0},
	}

	result, err := loop.Run(
		context.Background(), generator, critic,
		cfg, "write the page",
		parseIdentity, parseEval, nil,
	)
	require.NoError(t, err)

	// Attempt 1 clears the threshold but violates the accuracy floor, so
	// the loop continues. Attempt 2 passes outright and becomes best.
	assert.Equal(t, 2, result.Attempts)
	assert.Equal(t, 8.5, result.FinalScore)
	assert.True(t, result.PassedQualityGate)
	assert.False(t, result.BelowMinimumFloor)
	require.NotNil(t, result.Output)
	assert.Equal(t, "draft-2", *result.Output)
}

func TestRun_BestBelowFloorFlagsResult(t *testing.T) {
	generator := tt.NewMockRole("gen").
		AddResponse("draft-1", 10, 5).
		AddResponse("draft-2", 10, 5)
	critic := tt.NewMockRole("critic").
		AddResponse(verdictWithCriteria(9.0, map[string]float64{"accuracy": 4.0}), 5, 5).
		AddResponse(verdictWithCriteria(6.0, map[string]float64{"accuracy": 8.0}), 5, 5)

	cfg := wikigen.LoopConfig{
		QualityThreshold: 7.0,
		MaxAttempts:      2,
		CriterionFloors:  map[string]float64{"accuracy": 6.0},
	}

	result, err := loop.Run(
		context.Background(), generator, critic,
		cfg, "write the page",
		parseIdentity, parseEval, nil,
	)
	require.NoError(t, err)

	// The 9.0 attempt stays best despite its floor violation; the result
	// completes but is flagged instead of silently accepted.
	assert.Equal(t, 2, result.Attempts)
	assert.Equal(t, 9.0, result.FinalScore)
	assert.True(t, result.BelowMinimumFloor)
	assert.False(t, result.PassedQualityGate)
}

func TestRun_AbsentCriterionNeverViolatesFloor(t *testing.T) {
	generator := tt.NewMockRole("gen").AddResponse("draft-1", 10, 5)
	critic := tt.NewMockRole("critic").
		AddResponse(verdictWithCriteria(8.0, map[string]float64{"clarity": 8.0}), 5, 5)

	cfg := wikigen.LoopConfig{
		QualityThreshold: 7.0,
		MaxAttempts:      3,
		CriterionFloors:  map[string]float64{"accuracy": 6.0},
	}

	result, err := loop.Run(
		context.Background(), generator, critic,
		cfg, "write the page",
		parseIdentity, parseEval, nil,
	)
	require.NoError(t, err)

	assert.Equal(t, 1, result.Attempts)
	assert.True(t, result.PassedQualityGate)
	assert.False(t, result.BelowMinimumFloor)
}

func TestRun_GeneratorErrorPropagates(t *testing.T) {
	generator := tt.NewMockRole("gen").AddError(errors.New("connection refused"))
	critic := tt.NewMockRole("critic")

	result, err := loop.Run(
		context.Background(), generator, critic,
		config(7.0, 3), "write the page",
		parseIdentity, parseEval, nil,
	)
	require.Error(t, err)
	assert.Nil(t, result)
	assert.ErrorContains(t, err, "connection refused")
	assert.ErrorContains(t, err, "gen")
}

func TestRun_TokenUsageAccumulates(t *testing.T) {
	generator := tt.NewMockRole("gen").
		AddResponse("draft-1", 100, 50).
		AddResponse("draft-2", 110, 60)
	critic := tt.NewMockRole("critic").
		AddResponse(verdict(5.0, "no"), 20, 10).
		AddResponse(verdict(9.0, "yes"), 25, 15)

	result, err := loop.Run(
		context.Background(), generator, critic,
		config(7.0, 3), "write the page",
		parseIdentity, parseEval, nil,
	)
	require.NoError(t, err)

	assert.Equal(t, 4, result.TokenUsage.Calls)
	assert.Equal(t, 255, result.TokenUsage.InputTokens)
	assert.Equal(t, 135, result.TokenUsage.OutputTokens)
	assert.Equal(t, 390, result.TokenUsage.TotalTokens)
}

func TestRun_InvalidConfig(t *testing.T) {
	generator := tt.NewMockRole("gen")
	critic := tt.NewMockRole("critic")

	_, err := loop.Run(
		context.Background(), generator, critic,
		config(7.0, 0), "write the page",
		parseIdentity, parseEval, nil,
	)
	require.ErrorIs(t, err, wikigen.ErrInvalidConfig)
}
