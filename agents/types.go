// Package agents instantiates the quality loop for the three wiki
// artifacts: the structure plan, individual pages, and the README.
//
// Each agent is a thin pairing of a prompt builder and an output parser
// handed to loop.Run: three instantiations of one generic engine, not an
// inheritance hierarchy. Quality outcomes land in the returned
// [wikigen.AgentResult]; only transport-level failures surface as errors.
package agents

import (
	"fmt"
	"strings"
)

// RepoInfo identifies the repository a documentation scope belongs to.
type RepoInfo struct {
	// Name is the repository name, e.g. "acme/payments".
	Name string

	// Description is an optional one-line repository summary.
	Description string
}

// SourceFile is one file of the source listing handed to the agents.
type SourceFile struct {
	// Path is the file path relative to the scope root.
	Path string

	// Content is the file's text content. Prompt builders that only need
	// the listing (structure planning) ignore it.
	Content string
}

// WikiStructure is the structure agent's output: the planned shape of the
// wiki for one scope.
type WikiStructure struct {
	// Title is the wiki title.
	Title string `json:"title"`

	// Description summarizes what the wiki covers.
	Description string `json:"description"`

	// Pages are the planned pages in presentation order.
	Pages []PagePlan `json:"pages"`
}

// PagePlan is one planned documentation page.
type PagePlan struct {
	// ID is a stable, URL-safe page identifier.
	ID string `json:"id"`

	// Title is the page title.
	Title string `json:"title"`

	// Description says what the page should cover.
	Description string `json:"description"`

	// Importance is "high", "medium", or "low".
	Importance string `json:"importance"`

	// SourceFiles lists the paths this page documents. Incremental runs
	// regenerate a page iff this list intersects the changed-file set.
	SourceFiles []string `json:"source_files"`
}

// PageSummary is the condensed page view the README agent works from.
type PageSummary struct {
	ID      string
	Title   string
	Excerpt string
}

// formatFileListing renders paths only, for structure planning.
func formatFileListing(files []SourceFile) string {
	var sb strings.Builder
	for _, f := range files {
		sb.WriteString(f.Path)
		sb.WriteByte('\n')
	}
	return sb.String()
}

// formatFileContents renders full file contents with path markers, for
// page generation.
func formatFileContents(files []SourceFile) string {
	var sb strings.Builder
	for _, f := range files {
		fmt.Fprintf(&sb, "<<< %s >>>\n%s\n\n", f.Path, f.Content)
	}
	return sb.String()
}
