package wikigen

// CriticFallbackFeedback is the feedback text recorded when a critic call or
// its output parsing fails and the loop substitutes an auto-pass evaluation.
const CriticFallbackFeedback = "Critic evaluation failed; auto-passed."

// EvaluationResult is a critic's verdict on one generator attempt.
//
// It is produced once per critic invocation and immutable after
// construction. Passed is informational only: the authoritative
// accept/reject decision is recomputed by the quality loop from Score and
// the configured criterion floors, never trusted verbatim from the critic.
type EvaluationResult struct {
	// Score is the overall weighted score in [1.0, 10.0].
	Score float64

	// Passed is the critic's own pass/fail claim. Informational only.
	Passed bool

	// Feedback is free-form critic feedback. For failed attempts it is
	// appended to the next attempt's generator prompt.
	Feedback string

	// CriteriaScores maps criterion name to its sub-score.
	CriteriaScores map[string]float64

	// CriteriaWeights maps criterion name to the weight the critic
	// applied when computing Score.
	CriteriaWeights map[string]float64

	// FallbackApplied is true when this evaluation was synthesized by the
	// loop because the critic call or its output parsing failed. Fallback
	// evaluations score exactly at the quality threshold and carry
	// CriticFallbackFeedback. Callers can use this to distinguish a
	// degraded pass from a genuine one.
	FallbackApplied bool
}

// BelowFloor reports whether any criterion named in floors is present in
// the evaluation's CriteriaScores with a value strictly less than its
// configured floor. Criteria absent from the evaluation never trigger a
// floor violation.
func (e *EvaluationResult) BelowFloor(floors map[string]float64) bool {
	for name, floor := range floors {
		if score, ok := e.CriteriaScores[name]; ok && score < floor {
			return true
		}
	}
	return false
}
