package pipeline

import (
	"context"
	"time"

	"github.com/wikigen/wikigen/agents"
)

// StructureVersion is one persisted version of a scope's structure plan.
// Versions are append-only per (repo, branch, scope); at most
// MaxStructureVersions are retained.
type StructureVersion struct {
	ID        string                `json:"id"`
	Repo      string                `json:"repo"`
	Branch    string                `json:"branch"`
	Scope     string                `json:"scope"`
	Version   int                   `json:"version"`
	Structure agents.WikiStructure  `json:"structure"`
	Readme    string                `json:"readme,omitempty"`
	CreatedAt time.Time             `json:"created_at"`
}

// StoredPage is one generated page persisted under a structure version.
type StoredPage struct {
	ID          string   `json:"id"`
	StructureID string   `json:"structure_id"`
	PlanID      string   `json:"plan_id"`
	Title       string   `json:"title"`
	Markdown    string   `json:"markdown"`
	Score       float64  `json:"score"`
	SourceFiles []string `json:"source_files"`
}

// StoredChunk is one embedded chunk of a page, ready for vector search.
type StoredChunk struct {
	ID           string    `json:"id"`
	PageID       string    `json:"page_id"`
	Content      string    `json:"content"`
	HeadingPath  []string  `json:"heading_path"`
	HeadingLevel int       `json:"heading_level"`
	TokenCount   int       `json:"token_count"`
	StartChar    int       `json:"start_char"`
	EndChar      int       `json:"end_char"`
	HasCode      bool      `json:"has_code"`
	Embedding    []float32 `json:"embedding,omitempty"`
}

// Store is the persistence collaborator the pipeline writes through. The
// pipeline assumes no transactional semantics beyond "write succeeds or
// returns an error"; writes are append-only (new structure versions) so
// the true concurrency boundary stays at the storage layer.
//
// A bbolt-backed implementation lives in store/boltstore; an in-memory
// test double lives in internal/tt.
type Store interface {
	// CreateStructureVersion persists a new structure version.
	CreateStructureVersion(ctx context.Context, v *StructureVersion) error

	// ListStructureVersions returns all retained versions for the key, in
	// ascending version order.
	ListStructureVersions(
		ctx context.Context,
		repo, branch, scope string,
	) ([]*StructureVersion, error)

	// DeleteStructureVersion removes a version and its pages and chunks.
	DeleteStructureVersion(ctx context.Context, id string) error

	// GetLatestStructure returns the highest retained version for the
	// key, or wikigen.ErrNoStructure when none exists.
	GetLatestStructure(
		ctx context.Context,
		repo, branch, scope string,
	) (*StructureVersion, error)

	// CreatePages persists generated pages.
	CreatePages(ctx context.Context, pages []*StoredPage) error

	// CreateChunks persists embedded chunks.
	CreateChunks(ctx context.Context, chunks []*StoredChunk) error

	// GetPagesForStructure returns all pages stored under a structure
	// version.
	GetPagesForStructure(
		ctx context.Context,
		structureID string,
	) ([]*StoredPage, error)

	// GetChunksForPage returns all chunks stored under a page.
	GetChunksForPage(
		ctx context.Context,
		pageID string,
	) ([]*StoredChunk, error)

	// SetReadme attaches README markdown to a structure version.
	SetReadme(ctx context.Context, structureID, readme string) error
}

// Embedder is the embedding collaborator. EmbedBatch returns one vector
// per input text, same length and order.
type Embedder interface {
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}
