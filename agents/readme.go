package agents

import (
	"context"
	"fmt"
	"strings"

	"github.com/wikigen/wikigen"
	"github.com/wikigen/wikigen/events"
	"github.com/wikigen/wikigen/loop"
)

// ReadmeAgent generates the wiki's landing README under the quality gate.
type ReadmeAgent struct {
	generator wikigen.RoleInvoker
	critic    wikigen.RoleInvoker
	config    wikigen.LoopConfig
	events    *events.Registry
}

// NewReadmeAgent creates a ReadmeAgent with the default loop config.
func NewReadmeAgent(
	generator wikigen.RoleInvoker,
	critic wikigen.RoleInvoker,
) *ReadmeAgent {
	return &ReadmeAgent{
		generator: generator,
		critic:    critic,
		config:    wikigen.DefaultLoopConfig(),
	}
}

// WithConfig sets the quality-loop config. Returns the agent for chaining.
func (a *ReadmeAgent) WithConfig(cfg wikigen.LoopConfig) *ReadmeAgent {
	a.config = cfg
	return a
}

// WithEvents sets the event registry loop events publish to.
func (a *ReadmeAgent) WithEvents(r *events.Registry) *ReadmeAgent {
	a.events = r
	return a
}

// Generate writes the README for a generated wiki. The result's Output is
// raw markdown.
func (a *ReadmeAgent) Generate(
	ctx context.Context,
	structure WikiStructure,
	pages []PageSummary,
) (*wikigen.AgentResult[string], error) {
	prompt := buildReadmePrompt(structure, pages)
	return loop.Run(
		ctx, a.generator, a.critic, a.config, prompt,
		parseMarkdown, ParseEvaluation,
		&loop.Options{Agent: "readme", Events: a.events},
	)
}

func buildReadmePrompt(structure WikiStructure, pages []PageSummary) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Wiki: %s\n", structure.Title)
	if structure.Description != "" {
		fmt.Fprintf(&sb, "About: %s\n", structure.Description)
	}
	sb.WriteString("\nPages:\n\n")
	for _, p := range pages {
		fmt.Fprintf(&sb, "- %s (%s)\n", p.Title, p.ID)
		if p.Excerpt != "" {
			fmt.Fprintf(&sb, "  %s\n", p.Excerpt)
		}
	}
	sb.WriteString("\nWrite the wiki's landing README.")
	return sb.String()
}
