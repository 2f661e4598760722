package pipeline

import (
	"path"
	"strings"

	"github.com/wikigen/wikigen/agents"
)

// structuralSignalFiles are the basenames whose change forces a full
// structure re-extraction: package manifests and package markers. A
// heuristic allow-list, not a semantic analysis.
var structuralSignalFiles = map[string]bool{
	"go.mod":           true,
	"go.sum":           true,
	"package.json":     true,
	"pyproject.toml":   true,
	"setup.py":         true,
	"requirements.txt": true,
	"Cargo.toml":       true,
	"pom.xml":          true,
	"build.gradle":     true,
	"__init__.py":      true,
}

// RequiresStructureRebuild reports whether any changed file's basename is
// a structural signal: a package manifest, a package marker, or the
// scope's own config file.
func RequiresStructureRebuild(changed []string, configFile string) bool {
	for _, p := range changed {
		base := path.Base(strings.TrimSuffix(p, "/"))
		if structuralSignalFiles[base] || base == configFile {
			return true
		}
	}
	return false
}

// PagePartition separates planned pages into those that must be
// regenerated and those eligible to be copied forward unchanged.
type PagePartition struct {
	// Affected pages have at least one source file in the changed set.
	Affected []agents.PagePlan

	// Unchanged pages can be duplicated into the new structure version
	// with their prior content and score intact.
	Unchanged []agents.PagePlan
}

// PartitionPages splits plans by intersecting each page's source-file list
// with the changed-file set. Plain set intersection, no transitive
// dependency analysis.
func PartitionPages(
	plans []agents.PagePlan,
	changed []string,
) PagePartition {
	changedSet := make(map[string]bool, len(changed))
	for _, p := range changed {
		changedSet[p] = true
	}

	var partition PagePartition
	for _, plan := range plans {
		affected := false
		for _, f := range plan.SourceFiles {
			if changedSet[f] {
				affected = true
				break
			}
		}
		if affected {
			partition.Affected = append(partition.Affected, plan)
		} else {
			partition.Unchanged = append(partition.Unchanged, plan)
		}
	}
	return partition
}
