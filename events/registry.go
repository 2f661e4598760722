// Package events provides the subscriber registry through which the
// quality loop and pipeline publish lifecycle events.
package events

import (
	"github.com/wikigen/wikigen"
)

// -----------------------------------------------------------------------------
// Subscriber Interfaces
// -----------------------------------------------------------------------------

// Subscribers implement any combination of the interfaces below; they only
// receive the events whose interface they implement.

// AttemptStartedSubscriber receives AttemptStartedEvent.
type AttemptStartedSubscriber interface {
	OnAttemptStarted(e *wikigen.AttemptStartedEvent)
}

// OutputParseSkippedSubscriber receives OutputParseSkippedEvent.
type OutputParseSkippedSubscriber interface {
	OnOutputParseSkipped(e *wikigen.OutputParseSkippedEvent)
}

// CriticFallbackSubscriber receives CriticFallbackEvent.
type CriticFallbackSubscriber interface {
	OnCriticFallback(e *wikigen.CriticFallbackEvent)
}

// AttemptEvaluatedSubscriber receives AttemptEvaluatedEvent.
type AttemptEvaluatedSubscriber interface {
	OnAttemptEvaluated(e *wikigen.AttemptEvaluatedEvent)
}

// QualityGatePassedSubscriber receives QualityGatePassedEvent.
type QualityGatePassedSubscriber interface {
	OnQualityGatePassed(e *wikigen.QualityGatePassedEvent)
}

// QualityGateExhaustedSubscriber receives QualityGateExhaustedEvent.
type QualityGateExhaustedSubscriber interface {
	OnQualityGateExhausted(e *wikigen.QualityGateExhaustedEvent)
}

// StructureVersionCreatedSubscriber receives StructureVersionCreatedEvent.
type StructureVersionCreatedSubscriber interface {
	OnStructureVersionCreated(e *wikigen.StructureVersionCreatedEvent)
}

// PageGeneratedSubscriber receives PageGeneratedEvent.
type PageGeneratedSubscriber interface {
	OnPageGenerated(e *wikigen.PageGeneratedEvent)
}

// PageCopiedForwardSubscriber receives PageCopiedForwardEvent.
type PageCopiedForwardSubscriber interface {
	OnPageCopiedForward(e *wikigen.PageCopiedForwardEvent)
}

// PageFailedSubscriber receives PageFailedEvent.
type PageFailedSubscriber interface {
	OnPageFailed(e *wikigen.PageFailedEvent)
}

// -----------------------------------------------------------------------------
// Registry
// -----------------------------------------------------------------------------

// Registry manages event subscribers and dispatches events to them.
//
// Registry stores registered subscribers in order and dispatches each
// published event to the subscribers implementing the matching interface.
// A single subscriber can implement multiple interfaces and is registered
// once.
//
// Registry is NOT thread-safe for registration. Register all subscribers
// before starting generation. Publishing is safe as long as the subscriber
// set no longer changes, because dispatch only reads the slice.
type Registry struct {
	subscribers []any
}

// NewRegistry creates a new empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		subscribers: make([]any, 0),
	}
}

// Subscribe adds a subscriber to the registry. The subscriber can implement
// any combination of subscriber interfaces.
//
// Subscribers are called in the order they are registered. Returns the
// registry for chaining.
func (r *Registry) Subscribe(subscriber any) *Registry {
	r.subscribers = append(r.subscribers, subscriber)
	return r
}

// Publish dispatches an event to all matching subscribers. A nil Registry
// is valid and drops every event, so callers never need to nil-check.
func (r *Registry) Publish(e wikigen.Event) {
	if r == nil {
		return
	}
	for _, sub := range r.subscribers {
		dispatch(sub, e)
	}
}

// dispatch routes a single event to a single subscriber if it implements
// the matching interface.
func dispatch(sub any, e wikigen.Event) {
	switch event := e.(type) {
	case *wikigen.AttemptStartedEvent:
		if s, ok := sub.(AttemptStartedSubscriber); ok {
			s.OnAttemptStarted(event)
		}
	case *wikigen.OutputParseSkippedEvent:
		if s, ok := sub.(OutputParseSkippedSubscriber); ok {
			s.OnOutputParseSkipped(event)
		}
	case *wikigen.CriticFallbackEvent:
		if s, ok := sub.(CriticFallbackSubscriber); ok {
			s.OnCriticFallback(event)
		}
	case *wikigen.AttemptEvaluatedEvent:
		if s, ok := sub.(AttemptEvaluatedSubscriber); ok {
			s.OnAttemptEvaluated(event)
		}
	case *wikigen.QualityGatePassedEvent:
		if s, ok := sub.(QualityGatePassedSubscriber); ok {
			s.OnQualityGatePassed(event)
		}
	case *wikigen.QualityGateExhaustedEvent:
		if s, ok := sub.(QualityGateExhaustedSubscriber); ok {
			s.OnQualityGateExhausted(event)
		}
	case *wikigen.StructureVersionCreatedEvent:
		if s, ok := sub.(StructureVersionCreatedSubscriber); ok {
			s.OnStructureVersionCreated(event)
		}
	case *wikigen.PageGeneratedEvent:
		if s, ok := sub.(PageGeneratedSubscriber); ok {
			s.OnPageGenerated(event)
		}
	case *wikigen.PageCopiedForwardEvent:
		if s, ok := sub.(PageCopiedForwardSubscriber); ok {
			s.OnPageCopiedForward(event)
		}
	case *wikigen.PageFailedEvent:
		if s, ok := sub.(PageFailedSubscriber); ok {
			s.OnPageFailed(event)
		}
	}
}
