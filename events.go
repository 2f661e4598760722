package wikigen

// -----------------------------------------------------------------------------
// Event Interface
// -----------------------------------------------------------------------------

// Event is a marker interface for all wikigen events. Events are published
// through an events.Registry; the loop and pipeline publish events instead
// of writing to a logger directly, so callers choose how to observe them.
type Event interface {
	event()
}

// -----------------------------------------------------------------------------
// Quality Loop Events
// -----------------------------------------------------------------------------

// AttemptStartedEvent is emitted before each generator invocation.
type AttemptStartedEvent struct {
	// Agent labels the loop run (e.g. "structure", "page:auth").
	Agent string

	// Attempt is the current attempt number (1-indexed).
	Attempt int

	// MaxAttempts is the configured attempt bound.
	MaxAttempts int
}

func (AttemptStartedEvent) event() {}

// OutputParseSkippedEvent is emitted when a generator output fails to
// parse. The attempt is discarded without invoking the critic and without
// recording an evaluation.
type OutputParseSkippedEvent struct {
	Agent   string
	Attempt int

	// Err is the parse error.
	Err error

	// RawOutput is the unparsable generator text.
	RawOutput string
}

func (OutputParseSkippedEvent) event() {}

// CriticFallbackEvent is emitted when a critic invocation or its output
// parsing fails and the loop substitutes an auto-pass evaluation at the
// quality threshold. A systemic critic outage shows up as a stream of
// these events, distinguishing degraded passes from genuine ones.
type CriticFallbackEvent struct {
	Agent   string
	Attempt int

	// Err is the critic call or parse error that triggered the fallback.
	Err error
}

func (CriticFallbackEvent) event() {}

// AttemptEvaluatedEvent is emitted after each completed attempt, whether
// the evaluation is real or a fallback.
type AttemptEvaluatedEvent struct {
	Agent   string
	Attempt int

	// Evaluation is the recorded (real or fallback) evaluation.
	Evaluation *EvaluationResult

	// BelowFloor is true when the evaluation violated a criterion floor.
	BelowFloor bool
}

func (AttemptEvaluatedEvent) event() {}

// QualityGatePassedEvent is emitted when an attempt clears the gate and
// the loop exits early.
type QualityGatePassedEvent struct {
	Agent   string
	Attempt int
	Score   float64
}

func (QualityGatePassedEvent) event() {}

// QualityGateExhaustedEvent is emitted when MaxAttempts is exhausted
// without any attempt clearing the gate.
type QualityGateExhaustedEvent struct {
	Agent    string
	Attempts int

	// BestScore is the best score seen, 0.0 if every attempt was skipped.
	BestScore float64

	// BelowFloor reports whether the best attempt violated a floor.
	BelowFloor bool
}

func (QualityGateExhaustedEvent) event() {}

// -----------------------------------------------------------------------------
// Pipeline Events
// -----------------------------------------------------------------------------

// StructureVersionCreatedEvent is emitted after a new structure version is
// persisted for a scope.
type StructureVersionCreatedEvent struct {
	Repo    string
	Branch  string
	Scope   string
	Version int

	// Rebuilt is true when the structure was re-extracted, false when the
	// prior plan was carried forward by an incremental run.
	Rebuilt bool
}

func (StructureVersionCreatedEvent) event() {}

// PageGeneratedEvent is emitted after a page's quality loop completes,
// whether or not it passed the gate.
type PageGeneratedEvent struct {
	Scope  string
	PageID string
	Score  float64
	Passed bool
	Usage  TokenUsage
}

func (PageGeneratedEvent) event() {}

// PageCopiedForwardEvent is emitted when an incremental run duplicates an
// unchanged page into the new structure version.
type PageCopiedForwardEvent struct {
	Scope  string
	PageID string
}

func (PageCopiedForwardEvent) event() {}

// PageFailedEvent is emitted when a page's quality loop produced no output
// or failed fatally. Other pages of the batch continue; partial progress
// is expected.
type PageFailedEvent struct {
	Scope  string
	PageID string
	Err    error
}

func (PageFailedEvent) event() {}
