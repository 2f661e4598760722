package wikigen

// AgentResult is the sole return contract of every agent. The type
// parameter T varies per adapter: a structure plan, a generated page, or
// README text.
//
// An AgentResult is created once, at loop completion, and never mutated
// afterward. Quality outcomes are encoded in its fields rather than raised
// as errors; only transport-level generator failures escape the loop as an
// error.
type AgentResult[T any] struct {
	// Output is the best-scoring attempt's parsed output, or nil if every
	// attempt's output failed to parse.
	Output *T

	// Attempts is the 1-based index of the loop iteration at which the
	// run returned, whether by early exit on gate-pass or by exhausting
	// MaxAttempts.
	Attempts int

	// FinalScore is the score of the attempt stored in Output. It is 0.0
	// when Output is nil.
	FinalScore float64

	// PassedQualityGate is true when FinalScore reached the quality
	// threshold and the best attempt violated no criterion floor.
	PassedQualityGate bool

	// BelowMinimumFloor is true when the best attempt scored some
	// configured criterion strictly below its floor.
	BelowMinimumFloor bool

	// EvaluationHistory holds one EvaluationResult per completed attempt,
	// in insertion order. Attempts whose generator output failed to parse
	// contribute no entry.
	EvaluationHistory []*EvaluationResult

	// TokenUsage is the total usage across all generator and critic calls
	// made during the run, including attempts that were skipped.
	TokenUsage TokenUsage
}
