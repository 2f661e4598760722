package agents

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/wikigen/wikigen"
	"github.com/wikigen/wikigen/events"
	"github.com/wikigen/wikigen/loop"
	"github.com/wikigen/wikigen/schema"
)

// structureSchema validates the structure generator's decoded JSON before
// the plan is accepted. A plan that fails validation routes the attempt
// through the loop's parse-skip path.
var structureSchema = schema.MustCompile(schema.Object(map[string]*schema.Property{
	"title":       schema.String("Wiki title"),
	"description": schema.String("One-paragraph wiki summary"),
	"pages": schema.Array("Planned pages", schema.Object(map[string]*schema.Property{
		"id":          schema.String("Stable, URL-safe page identifier"),
		"title":       schema.String("Page title"),
		"description": schema.String("What the page covers"),
		"importance":  schema.String("Page importance").Enum("high", "medium", "low"),
		"source_files": schema.Array(
			"Source file paths the page documents",
			map[string]any{"type": "string"},
		),
	}, "id", "title", "source_files")),
}, "title", "pages"))

// StructureAgent plans the wiki structure for one scope under the quality
// gate.
type StructureAgent struct {
	generator wikigen.RoleInvoker
	critic    wikigen.RoleInvoker
	config    wikigen.LoopConfig
	events    *events.Registry
}

// NewStructureAgent creates a StructureAgent with the default loop config.
func NewStructureAgent(
	generator wikigen.RoleInvoker,
	critic wikigen.RoleInvoker,
) *StructureAgent {
	return &StructureAgent{
		generator: generator,
		critic:    critic,
		config:    wikigen.DefaultLoopConfig(),
	}
}

// WithConfig sets the quality-loop config. Returns the agent for chaining.
func (a *StructureAgent) WithConfig(cfg wikigen.LoopConfig) *StructureAgent {
	a.config = cfg
	return a
}

// WithEvents sets the event registry loop events publish to.
func (a *StructureAgent) WithEvents(r *events.Registry) *StructureAgent {
	a.events = r
	return a
}

// Generate plans the wiki structure for the given repository listing.
func (a *StructureAgent) Generate(
	ctx context.Context,
	repo RepoInfo,
	files []SourceFile,
) (*wikigen.AgentResult[WikiStructure], error) {
	prompt := buildStructurePrompt(repo, files)
	return loop.Run(
		ctx, a.generator, a.critic, a.config, prompt,
		ParseStructure, ParseEvaluation,
		&loop.Options{Agent: "structure", Events: a.events},
	)
}

// ParseStructure parses and validates a structure generator's raw output:
// JSON, optionally wrapped in a fenced code block.
func ParseStructure(raw string) (WikiStructure, error) {
	stripped := StripCodeFence(raw)

	// Validate against the schema first, on the generically decoded
	// value, so missing required fields fail loudly instead of zeroing.
	var decoded any
	if err := json.Unmarshal([]byte(stripped), &decoded); err != nil {
		return WikiStructure{}, fmt.Errorf("parse structure JSON: %w", err)
	}
	if err := structureSchema.Validate(decoded); err != nil {
		return WikiStructure{}, err
	}

	var structure WikiStructure
	if err := json.Unmarshal([]byte(stripped), &structure); err != nil {
		return WikiStructure{}, fmt.Errorf("parse structure JSON: %w", err)
	}
	if len(structure.Pages) == 0 {
		return WikiStructure{}, fmt.Errorf(
			"structure plan has no pages: %w", wikigen.ErrEmptyOutput,
		)
	}
	return structure, nil
}

func buildStructurePrompt(repo RepoInfo, files []SourceFile) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Repository: %s\n", repo.Name)
	if repo.Description != "" {
		fmt.Fprintf(&sb, "Description: %s\n", repo.Description)
	}
	sb.WriteString("\nFile listing:\n\n")
	sb.WriteString(formatFileListing(files))
	sb.WriteString("\nPlan the documentation wiki for this repository.")
	return sb.String()
}
