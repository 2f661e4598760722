package wikigen

import (
	"context"
	"fmt"

	"github.com/tmc/langchaingo/llms"
)

// RoleInvoker is the contract the quality loop requires of its generator
// and critic roles: a single-turn request/response exchange with token
// usage metadata.
//
// Implementations must not carry conversation state between calls. Each
// invocation is an isolated exchange; critic feedback from one attempt may
// only influence the next attempt through text explicitly appended to its
// prompt, never through hidden history.
type RoleInvoker interface {
	// Name identifies the role in events and error messages.
	Name() string

	// Invoke sends prompt to the role and returns the raw response text
	// plus the single call's token usage.
	Invoke(ctx context.Context, prompt string) (string, TokenUsage, error)
}

// Role binds a Model to a system prompt and implements [RoleInvoker].
//
// Every Invoke builds a fresh two-message conversation (system + human),
// guaranteeing attempt isolation: no history is shared across attempts or
// between the generator and critic roles of one loop run.
type Role struct {
	name         string
	model        Model
	systemPrompt string
	options      []llms.CallOption
}

// NewRole creates a Role with the given name, model, and system prompt.
func NewRole(name string, model Model, systemPrompt string) *Role {
	return &Role{
		name:         name,
		model:        model,
		systemPrompt: systemPrompt,
	}
}

// WithOptions sets llms.CallOption values passed to every model call (e.g.
// temperature, max tokens). Returns the role for chaining.
func (r *Role) WithOptions(options ...llms.CallOption) *Role {
	r.options = options
	return r
}

// Name implements RoleInvoker.
func (r *Role) Name() string { return r.name }

// Invoke implements RoleInvoker. The returned TokenUsage covers exactly
// this one call.
func (r *Role) Invoke(
	ctx context.Context,
	prompt string,
) (string, TokenUsage, error) {
	messages := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, r.systemPrompt),
		llms.TextParts(llms.ChatMessageTypeHuman, prompt),
	}

	response, err := r.model.GenerateContent(ctx, messages, r.options...)
	if err != nil {
		return "", TokenUsage{}, fmt.Errorf("role %s: %w", r.name, err)
	}

	var usage TokenUsage
	if response != nil {
		usage = UsageFromInfo(response.Info)
	}
	if response == nil || len(response.Choices) == 0 {
		return "", usage, fmt.Errorf("role %s: %w", r.name, ErrEmptyResponse)
	}

	return response.Choices[0].Content, usage, nil
}

// Compile-time check.
var _ RoleInvoker = (*Role)(nil)
