package agents

import (
	"context"
	"fmt"
	"strings"

	"github.com/wikigen/wikigen"
	"github.com/wikigen/wikigen/events"
	"github.com/wikigen/wikigen/loop"
)

// PageAgent generates one wiki page's markdown under the quality gate.
type PageAgent struct {
	generator wikigen.RoleInvoker
	critic    wikigen.RoleInvoker
	config    wikigen.LoopConfig
	events    *events.Registry
}

// NewPageAgent creates a PageAgent with the default loop config.
func NewPageAgent(
	generator wikigen.RoleInvoker,
	critic wikigen.RoleInvoker,
) *PageAgent {
	return &PageAgent{
		generator: generator,
		critic:    critic,
		config:    wikigen.DefaultLoopConfig(),
	}
}

// WithConfig sets the quality-loop config. Returns the agent for chaining.
func (a *PageAgent) WithConfig(cfg wikigen.LoopConfig) *PageAgent {
	a.config = cfg
	return a
}

// WithEvents sets the event registry loop events publish to.
func (a *PageAgent) WithEvents(r *events.Registry) *PageAgent {
	a.events = r
	return a
}

// Generate writes the page described by plan from the given source files.
// The result's Output is raw markdown.
func (a *PageAgent) Generate(
	ctx context.Context,
	plan PagePlan,
	files []SourceFile,
) (*wikigen.AgentResult[string], error) {
	prompt := buildPagePrompt(plan, files)
	return loop.Run(
		ctx, a.generator, a.critic, a.config, prompt,
		parseMarkdown, ParseEvaluation,
		&loop.Options{Agent: "page:" + plan.ID, Events: a.events},
	)
}

func buildPagePrompt(plan PagePlan, files []SourceFile) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Page: %s\n", plan.Title)
	if plan.Description != "" {
		fmt.Fprintf(&sb, "Covers: %s\n", plan.Description)
	}
	sb.WriteString("\nSource files:\n\n")
	sb.WriteString(formatFileContents(files))
	sb.WriteString("Write this wiki page.")
	return sb.String()
}
