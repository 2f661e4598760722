package wikigen

// TokenUsage accumulates token counts across multiple model calls.
//
// A zero TokenUsage is ready to use. Usage combines via field-wise
// addition, which is associative and commutative: folding the usages of
// attempts 1..N in any grouping yields identical totals. Each quality-loop
// run owns exactly one TokenUsage; it is never shared across concurrent
// loop runs.
type TokenUsage struct {
	// InputTokens is the accumulated input/prompt token count.
	InputTokens int

	// OutputTokens is the accumulated output/completion token count.
	OutputTokens int

	// TotalTokens is the accumulated total token count.
	TotalTokens int

	// Calls is the number of model calls folded into this usage.
	Calls int
}

// Add folds other into u field-wise.
func (u *TokenUsage) Add(other TokenUsage) {
	u.InputTokens += other.InputTokens
	u.OutputTokens += other.OutputTokens
	u.TotalTokens += other.TotalTokens
	u.Calls += other.Calls
}

// AddInfo folds the token counts of a single generation into u and
// increments Calls by one. A nil info still counts as a call.
func (u *TokenUsage) AddInfo(info *GenerationInfo) {
	u.Calls++
	if info == nil {
		return
	}
	u.InputTokens += info.InputTokens
	u.OutputTokens += info.OutputTokens
	u.TotalTokens += info.TotalTokens
}

// UsageFromInfo builds a single-call TokenUsage from a GenerationInfo.
func UsageFromInfo(info *GenerationInfo) TokenUsage {
	var u TokenUsage
	u.AddInfo(info)
	return u
}
