// Package loop implements the quality-gated generator/critic iteration
// engine.
//
// A loop run drives up to MaxAttempts cycles of generate → parse →
// critique → gate-check between two opaque LLM-backed roles, tracks the
// best-scoring attempt, and returns a [wikigen.AgentResult] even under
// partial failure:
//
//   - Generator output that fails to parse silently skips the attempt
//     (no critic call, no evaluation history entry).
//   - A critic call or critic-output parse failure is substituted with an
//     auto-pass fallback evaluation at the quality threshold, because
//     critic unavailability must never block documentation generation.
//     Fallback evaluations are marked FallbackApplied and publish a
//     CriticFallbackEvent so a degraded pass remains distinguishable.
//   - Only transport-level generator failures propagate as errors.
//
// The Structure/Page/Readme agents are three instantiations of [Run] with
// different prompt builders and parsers; see the agents package.
package loop

import (
	"context"
	"fmt"

	"github.com/wikigen/wikigen"
	"github.com/wikigen/wikigen/events"
)

// ParseFunc parses raw generator text into the loop's output type. A
// returned error routes the attempt through the skip path.
type ParseFunc[T any] func(raw string) (T, error)

// EvalParseFunc parses raw critic text into an EvaluationResult. A
// returned error triggers the critic fallback.
type EvalParseFunc func(raw string) (*wikigen.EvaluationResult, error)

// Options carries the optional collaborators of a loop run.
type Options struct {
	// Agent labels this run in published events.
	Agent string

	// Events receives loop lifecycle events. Nil drops them.
	Events *events.Registry
}

// critiqueOutcome tags which branch produced an attempt's evaluation, so
// the control flow stays explicit instead of catch-and-ignore.
type critiqueOutcome int

const (
	// outcomeEvaluated means the critic responded and its output parsed.
	outcomeEvaluated critiqueOutcome = iota

	// outcomeFallback means the critic call or parse failed and an
	// auto-pass evaluation was substituted.
	outcomeFallback
)

// Run drives the quality loop for one artifact.
//
// Per attempt i in 1..cfg.MaxAttempts:
//
//  1. Attempt 1 uses initialPrompt verbatim; later attempts append the
//     previous attempt's critic feedback, labeled with the attempt number
//     it came from.
//  2. The generator is invoked in a fresh isolated conversation. Its token
//     usage is accumulated regardless of what happens next.
//  3. parseOutput runs on the raw generator text; on error the attempt is
//     skipped without a critic call or history entry.
//  4. The critic is invoked (fresh conversation) with the generator's raw
//     text; parse or call failure substitutes the fallback evaluation.
//  5. The evaluation is appended to history; the best-scoring attempt
//     (strictly greater than the best seen, initial best 0.0) replaces the
//     tracked best output.
//  6. The loop exits early iff score >= threshold AND no configured
//     criterion floor is violated.
//
// Run returns an error only for config validation failures and
// transport-level generator failures; every other condition resolves into
// result fields.
func Run[T any](
	ctx context.Context,
	generator wikigen.RoleInvoker,
	critic wikigen.RoleInvoker,
	cfg wikigen.LoopConfig,
	initialPrompt string,
	parseOutput ParseFunc[T],
	parseEvaluation EvalParseFunc,
	opts *Options,
) (*wikigen.AgentResult[T], error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if opts == nil {
		opts = &Options{}
	}

	var (
		usage          wikigen.TokenUsage
		history        []*wikigen.EvaluationResult
		bestOutput     *T
		bestScore      float64 // 0.0 until an attempt is evaluated
		bestBelowFloor bool
		attempts       int

		// Feedback from the last evaluated attempt, carried into the
		// next generator prompt. Skipped attempts leave it untouched.
		lastFeedback        string
		lastFeedbackAttempt int
	)

	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		attempts = attempt
		opts.Events.Publish(&wikigen.AttemptStartedEvent{
			Agent:       opts.Agent,
			Attempt:     attempt,
			MaxAttempts: cfg.MaxAttempts,
		})

		prompt := initialPrompt
		if lastFeedback != "" {
			prompt = fmt.Sprintf(
				"%s\n\n## Critic Feedback (attempt %d)\n\n%s",
				initialPrompt, lastFeedbackAttempt, lastFeedback,
			)
		}

		raw, genUsage, err := generator.Invoke(ctx, prompt)
		usage.Add(genUsage)
		if err != nil {
			// Transport-level failure. Not retried here; retry, if
			// any, belongs to the orchestration layer above.
			return nil, fmt.Errorf(
				"generator %s (attempt %d): %w",
				generator.Name(), attempt, err,
			)
		}

		output, parseErr := parseOutput(raw)
		if parseErr != nil {
			opts.Events.Publish(&wikigen.OutputParseSkippedEvent{
				Agent:     opts.Agent,
				Attempt:   attempt,
				Err:       parseErr,
				RawOutput: raw,
			})
			continue
		}

		evaluation, outcome, criticErr := critique(
			ctx, critic, cfg, raw, parseEvaluation, &usage,
		)
		if outcome == outcomeFallback {
			opts.Events.Publish(&wikigen.CriticFallbackEvent{
				Agent:   opts.Agent,
				Attempt: attempt,
				Err:     criticErr,
			})
		}

		history = append(history, evaluation)
		belowFloor := evaluation.BelowFloor(cfg.CriterionFloors)
		lastFeedback = evaluation.Feedback
		lastFeedbackAttempt = attempt

		opts.Events.Publish(&wikigen.AttemptEvaluatedEvent{
			Agent:      opts.Agent,
			Attempt:    attempt,
			Evaluation: evaluation,
			BelowFloor: belowFloor,
		})

		// Strictly greater, so ties keep the first-seen attempt.
		if evaluation.Score > bestScore {
			bestOutput = &output
			bestScore = evaluation.Score
			bestBelowFloor = belowFloor
		}

		if evaluation.Score >= cfg.QualityThreshold && !belowFloor {
			opts.Events.Publish(&wikigen.QualityGatePassedEvent{
				Agent:   opts.Agent,
				Attempt: attempt,
				Score:   evaluation.Score,
			})
			break
		}
	}

	passed := bestScore >= cfg.QualityThreshold && !bestBelowFloor
	if !passed {
		opts.Events.Publish(&wikigen.QualityGateExhaustedEvent{
			Agent:      opts.Agent,
			Attempts:   attempts,
			BestScore:  bestScore,
			BelowFloor: bestBelowFloor,
		})
	}

	return &wikigen.AgentResult[T]{
		Output:            bestOutput,
		Attempts:          attempts,
		FinalScore:        bestScore,
		PassedQualityGate: passed,
		BelowMinimumFloor: bestBelowFloor,
		EvaluationHistory: history,
		TokenUsage:        usage,
	}, nil
}

// critique invokes the critic with the generator's raw text and parses its
// verdict. Any failure, transport or parse, resolves into the fallback
// evaluation; the returned error is informational, for event payloads.
func critique(
	ctx context.Context,
	critic wikigen.RoleInvoker,
	cfg wikigen.LoopConfig,
	generatorOutput string,
	parseEvaluation EvalParseFunc,
	usage *wikigen.TokenUsage,
) (*wikigen.EvaluationResult, critiqueOutcome, error) {
	raw, criticUsage, err := critic.Invoke(ctx, generatorOutput)
	usage.Add(criticUsage)
	if err != nil {
		return fallbackEvaluation(cfg), outcomeFallback,
			fmt.Errorf("critic %s: %w", critic.Name(), err)
	}

	evaluation, err := parseEvaluation(raw)
	if err != nil {
		return fallbackEvaluation(cfg), outcomeFallback,
			fmt.Errorf("critic %s output: %w", critic.Name(), err)
	}

	return evaluation, outcomeEvaluated, nil
}

// fallbackEvaluation builds the auto-pass evaluation substituted when the
// critic is unavailable. It scores exactly at the threshold so the gate
// condition score >= threshold holds (absent criterion floors).
func fallbackEvaluation(cfg wikigen.LoopConfig) *wikigen.EvaluationResult {
	return &wikigen.EvaluationResult{
		Score:           cfg.QualityThreshold,
		Passed:          true,
		Feedback:        wikigen.CriticFallbackFeedback,
		FallbackApplied: true,
	}
}
