package main

import (
	"log"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/wikigen/wikigen"
)

// eventLogger subscribes to wikigen events and writes them to a rotating
// log file.
type eventLogger struct {
	logger *log.Logger
	file   *lumberjack.Logger
}

// newEventLogger creates a logger writing to path with rotation.
func newEventLogger(path string) *eventLogger {
	file := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    15, // megabytes
		MaxBackups: 3,
		MaxAge:     28, // days
		Compress:   true,
	}
	return &eventLogger{
		logger: log.New(file, "", log.LstdFlags),
		file:   file,
	}
}

// Close closes the underlying log file.
func (l *eventLogger) Close() error {
	return l.file.Close()
}

func (l *eventLogger) OnAttemptStarted(e *wikigen.AttemptStartedEvent) {
	l.logger.Printf("[%s] attempt %d/%d", e.Agent, e.Attempt, e.MaxAttempts)
}

func (l *eventLogger) OnOutputParseSkipped(e *wikigen.OutputParseSkippedEvent) {
	l.logger.Printf("[%s] attempt %d skipped, output unparsable: %v",
		e.Agent, e.Attempt, e.Err)
}

func (l *eventLogger) OnCriticFallback(e *wikigen.CriticFallbackEvent) {
	l.logger.Printf("[%s] attempt %d critic unavailable, auto-passed: %v",
		e.Agent, e.Attempt, e.Err)
}

func (l *eventLogger) OnAttemptEvaluated(e *wikigen.AttemptEvaluatedEvent) {
	l.logger.Printf("[%s] attempt %d scored %.1f (below floor: %v)",
		e.Agent, e.Attempt, e.Evaluation.Score, e.BelowFloor)
}

func (l *eventLogger) OnQualityGatePassed(e *wikigen.QualityGatePassedEvent) {
	l.logger.Printf("[%s] passed quality gate at attempt %d with %.1f",
		e.Agent, e.Attempt, e.Score)
}

func (l *eventLogger) OnQualityGateExhausted(e *wikigen.QualityGateExhaustedEvent) {
	l.logger.Printf("[%s] exhausted %d attempts, best score %.1f",
		e.Agent, e.Attempts, e.BestScore)
}

func (l *eventLogger) OnStructureVersionCreated(e *wikigen.StructureVersionCreatedEvent) {
	l.logger.Printf("structure v%d created for %s@%s scope %s (rebuilt: %v)",
		e.Version, e.Repo, e.Branch, e.Scope, e.Rebuilt)
}

func (l *eventLogger) OnPageGenerated(e *wikigen.PageGeneratedEvent) {
	l.logger.Printf("page %s generated, score %.1f, %d tokens",
		e.PageID, e.Score, e.Usage.TotalTokens)
}

func (l *eventLogger) OnPageCopiedForward(e *wikigen.PageCopiedForwardEvent) {
	l.logger.Printf("page %s copied forward unchanged", e.PageID)
}

func (l *eventLogger) OnPageFailed(e *wikigen.PageFailedEvent) {
	l.logger.Printf("page %s failed: %v", e.PageID, e.Err)
}
