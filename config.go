package wikigen

import "fmt"

// Default quality-loop settings used by [DefaultLoopConfig].
const (
	DefaultQualityThreshold = 7.0
	DefaultMaxAttempts      = 3
)

// LoopConfig configures one quality-loop invocation.
//
// It is supplied once per loop run and never mutated by the loop. There are
// no process-wide defaults or lazily initialized globals; construct a
// config explicitly and thread it into the adapters or the loop.
type LoopConfig struct {
	// QualityThreshold is the minimum overall score an attempt must reach
	// to pass the quality gate.
	QualityThreshold float64

	// MaxAttempts is the maximum number of generate → critique cycles.
	// Must be at least 1.
	MaxAttempts int

	// CriterionFloors maps criterion name to a per-dimension minimum
	// score. An attempt whose evaluation scores any configured criterion
	// strictly below its floor cannot pass the gate, even if the overall
	// score clears QualityThreshold.
	CriterionFloors map[string]float64
}

// DefaultLoopConfig returns a config with sensible defaults and no
// criterion floors.
func DefaultLoopConfig() LoopConfig {
	return LoopConfig{
		QualityThreshold: DefaultQualityThreshold,
		MaxAttempts:      DefaultMaxAttempts,
	}
}

// Validate checks the config for values the loop cannot run with.
func (c LoopConfig) Validate() error {
	if c.MaxAttempts < 1 {
		return fmt.Errorf("%w: MaxAttempts must be >= 1, got %d",
			ErrInvalidConfig, c.MaxAttempts)
	}
	return nil
}
