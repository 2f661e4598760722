package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/wikigen/wikigen/agents"
)

func TestRequiresStructureRebuild(t *testing.T) {
	tests := []struct {
		name    string
		changed []string
		want    bool
	}{
		{name: "no changes", changed: nil, want: false},
		{name: "source only", changed: []string{"main.go", "api/handler.go"}, want: false},
		{name: "go.mod at root", changed: []string{"go.mod"}, want: true},
		{name: "nested manifest", changed: []string{"services/auth/go.mod"}, want: true},
		{name: "package.json", changed: []string{"web/package.json"}, want: true},
		{name: "python package marker", changed: []string{"pkg/__init__.py"}, want: true},
		{name: "scope config file", changed: []string{"backend/.wiki.yml"}, want: true},
		{name: "mixed", changed: []string{"main.go", "Cargo.toml"}, want: true},
		{name: "manifest-like name elsewhere", changed: []string{"docs/go.mod.md"}, want: false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := RequiresStructureRebuild(tc.changed, DefaultScopeConfigFile)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestPartitionPages(t *testing.T) {
	plans := []agents.PagePlan{
		{ID: "core", SourceFiles: []string{"core.go", "util.go"}},
		{ID: "api", SourceFiles: []string{"api.go"}},
		{ID: "storage", SourceFiles: []string{"store.go"}},
	}

	partition := PartitionPages(plans, []string{"util.go", "store.go"})

	var affected, unchanged []string
	for _, p := range partition.Affected {
		affected = append(affected, p.ID)
	}
	for _, p := range partition.Unchanged {
		unchanged = append(unchanged, p.ID)
	}
	assert.Equal(t, []string{"core", "storage"}, affected)
	assert.Equal(t, []string{"api"}, unchanged)
}

func TestPartitionPages_NoChanges(t *testing.T) {
	plans := []agents.PagePlan{
		{ID: "core", SourceFiles: []string{"core.go"}},
	}

	partition := PartitionPages(plans, nil)
	assert.Empty(t, partition.Affected)
	assert.Len(t, partition.Unchanged, 1)
}

func TestPartitionPages_ExactPathMatchOnly(t *testing.T) {
	plans := []agents.PagePlan{
		{ID: "core", SourceFiles: []string{"pkg/core.go"}},
	}

	// Intersection is on exact paths, not basenames.
	partition := PartitionPages(plans, []string{"core.go"})
	assert.Empty(t, partition.Affected)
	assert.Len(t, partition.Unchanged, 1)
}
