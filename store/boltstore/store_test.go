package boltstore

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wikigen/wikigen"
	"github.com/wikigen/wikigen/agents"
	"github.com/wikigen/wikigen/pipeline"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "wiki.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func testVersion(id string, version int) *pipeline.StructureVersion {
	return &pipeline.StructureVersion{
		ID:      id,
		Repo:    "acme/svc",
		Branch:  "main",
		Scope:   ".",
		Version: version,
		Structure: agents.WikiStructure{
			Title: "Service Wiki",
			Pages: []agents.PagePlan{
				{ID: "core", Title: "Core", SourceFiles: []string{"core.go"}},
			},
		},
		CreatedAt: time.Now().UTC().Truncate(time.Second),
	}
}

func TestStructureVersionRoundTrip(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.CreateStructureVersion(ctx, testVersion("v1", 1)))
	require.NoError(t, store.CreateStructureVersion(ctx, testVersion("v2", 2)))

	versions, err := store.ListStructureVersions(ctx, "acme/svc", "main", ".")
	require.NoError(t, err)
	require.Len(t, versions, 2)
	assert.Equal(t, 1, versions[0].Version)
	assert.Equal(t, 2, versions[1].Version)
	assert.Equal(t, "Service Wiki", versions[0].Structure.Title)

	latest, err := store.GetLatestStructure(ctx, "acme/svc", "main", ".")
	require.NoError(t, err)
	assert.Equal(t, "v2", latest.ID)
}

func TestGetLatestStructure_Empty(t *testing.T) {
	store := openTestStore(t)

	_, err := store.GetLatestStructure(
		context.Background(), "acme/svc", "main", ".",
	)
	assert.ErrorIs(t, err, wikigen.ErrNoStructure)
}

func TestScopeIsolation(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	v := testVersion("v1", 1)
	require.NoError(t, store.CreateStructureVersion(ctx, v))

	other := testVersion("v-other", 1)
	other.Branch = "develop"
	require.NoError(t, store.CreateStructureVersion(ctx, other))

	versions, err := store.ListStructureVersions(ctx, "acme/svc", "main", ".")
	require.NoError(t, err)
	require.Len(t, versions, 1)
	assert.Equal(t, "v1", versions[0].ID)
}

func TestPagesAndChunks(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.CreateStructureVersion(ctx, testVersion("v1", 1)))
	require.NoError(t, store.CreatePages(ctx, []*pipeline.StoredPage{
		{ID: "p1", StructureID: "v1", PlanID: "core", Title: "Core",
			Markdown: "# Core", Score: 8.5},
		{ID: "p2", StructureID: "v1", PlanID: "api", Title: "API",
			Markdown: "# API", Score: 9.0},
	}))
	require.NoError(t, store.CreateChunks(ctx, []*pipeline.StoredChunk{
		{ID: "c1", PageID: "p1", Content: "# Core", TokenCount: 3,
			HeadingPath: []string{"Core"}, HeadingLevel: 1,
			Embedding: []float32{0.1, 0.2}},
		{ID: "c2", PageID: "p1", Content: "details", TokenCount: 1,
			StartChar: 7, EndChar: 14},
	}))

	pages, err := store.GetPagesForStructure(ctx, "v1")
	require.NoError(t, err)
	require.Len(t, pages, 2)
	assert.Equal(t, 8.5, pages[0].Score)

	chunks, err := store.GetChunksForPage(ctx, "p1")
	require.NoError(t, err)
	require.Len(t, chunks, 2)
	assert.Equal(t, []string{"Core"}, chunks[0].HeadingPath)
	assert.Equal(t, []float32{0.1, 0.2}, chunks[0].Embedding)

	chunks, err = store.GetChunksForPage(ctx, "p2")
	require.NoError(t, err)
	assert.Empty(t, chunks)
}

func TestDeleteStructureVersion_Cascades(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.CreateStructureVersion(ctx, testVersion("v1", 1)))
	require.NoError(t, store.CreateStructureVersion(ctx, testVersion("v2", 2)))
	require.NoError(t, store.CreatePages(ctx, []*pipeline.StoredPage{
		{ID: "p1", StructureID: "v1", PlanID: "core"},
		{ID: "p2", StructureID: "v2", PlanID: "core"},
	}))
	require.NoError(t, store.CreateChunks(ctx, []*pipeline.StoredChunk{
		{ID: "c1", PageID: "p1", Content: "a"},
		{ID: "c2", PageID: "p2", Content: "b"},
	}))

	require.NoError(t, store.DeleteStructureVersion(ctx, "v1"))

	versions, err := store.ListStructureVersions(ctx, "acme/svc", "main", ".")
	require.NoError(t, err)
	require.Len(t, versions, 1)
	assert.Equal(t, "v2", versions[0].ID)

	pages, err := store.GetPagesForStructure(ctx, "v1")
	require.NoError(t, err)
	assert.Empty(t, pages)

	chunks, err := store.GetChunksForPage(ctx, "p1")
	require.NoError(t, err)
	assert.Empty(t, chunks)

	// The surviving version's data is untouched.
	chunks, err = store.GetChunksForPage(ctx, "p2")
	require.NoError(t, err)
	assert.Len(t, chunks, 1)
}

func TestDeleteStructureVersion_MissingIsNoop(t *testing.T) {
	store := openTestStore(t)
	assert.NoError(t, store.DeleteStructureVersion(
		context.Background(), "no-such-id",
	))
}

func TestSetReadme(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.CreateStructureVersion(ctx, testVersion("v1", 1)))
	require.NoError(t, store.SetReadme(ctx, "v1", "# Welcome"))

	latest, err := store.GetLatestStructure(ctx, "acme/svc", "main", ".")
	require.NoError(t, err)
	assert.Equal(t, "# Welcome", latest.Readme)

	assert.ErrorIs(t,
		store.SetReadme(ctx, "missing", "x"),
		wikigen.ErrNoStructure,
	)
}

func TestOpen_Reopens(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wiki.db")

	store, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, store.CreateStructureVersion(
		context.Background(), testVersion("v1", 1),
	))
	require.NoError(t, store.Close())

	reopened, err := Open(path)
	require.NoError(t, err)
	defer reopened.Close()

	latest, err := reopened.GetLatestStructure(
		context.Background(), "acme/svc", "main", ".",
	)
	require.NoError(t, err)
	assert.Equal(t, "v1", latest.ID)
}
