// Package tt provides shared test doubles.
package tt

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/wikigen/wikigen"
	"github.com/wikigen/wikigen/pipeline"
)

// -----------------------------------------------------------------------------
// MockRole - implements wikigen.RoleInvoker
// -----------------------------------------------------------------------------

// MockRole is a configurable mock that implements wikigen.RoleInvoker.
// Responses are consumed in queue order; prompts are captured for
// verification.
type MockRole struct {
	name      string
	responses []mockResponse
	callCount int

	// CapturedPrompts stores the prompt passed to each Invoke call.
	// Populated automatically on every call.
	CapturedPrompts []string
}

type mockResponse struct {
	text  string
	usage wikigen.TokenUsage
	err   error
}

// NewMockRole creates a MockRole with the given name.
func NewMockRole(name string) *MockRole {
	return &MockRole{name: name}
}

// AddResponse queues a response with the specified text and token counts.
func (m *MockRole) AddResponse(text string, inputTokens, outputTokens int) *MockRole {
	m.responses = append(m.responses, mockResponse{
		text: text,
		usage: wikigen.TokenUsage{
			InputTokens:  inputTokens,
			OutputTokens: outputTokens,
			TotalTokens:  inputTokens + outputTokens,
			Calls:        1,
		},
	})
	return m
}

// AddError queues an error for the next call.
func (m *MockRole) AddError(err error) *MockRole {
	m.responses = append(m.responses, mockResponse{err: err})
	return m
}

// CallCount returns the number of times Invoke has been called.
func (m *MockRole) CallCount() int {
	return m.callCount
}

// Name implements wikigen.RoleInvoker.
func (m *MockRole) Name() string { return m.name }

// Invoke implements wikigen.RoleInvoker. It panics when the response queue
// is exhausted, which always indicates a miswired test.
func (m *MockRole) Invoke(
	ctx context.Context,
	prompt string,
) (string, wikigen.TokenUsage, error) {
	idx := m.callCount
	m.callCount++
	m.CapturedPrompts = append(m.CapturedPrompts, prompt)

	if idx >= len(m.responses) {
		panic(fmt.Sprintf(
			"MockRole %s: call %d has no queued response", m.name, idx+1,
		))
	}
	r := m.responses[idx]
	if r.err != nil {
		return "", wikigen.TokenUsage{}, r.err
	}
	return r.text, r.usage, nil
}

// Compile-time check.
var _ wikigen.RoleInvoker = (*MockRole)(nil)

// -----------------------------------------------------------------------------
// RuneTokenizer - deterministic tokenizer for chunker tests
// -----------------------------------------------------------------------------

// RuneTokenizer treats every rune as one token. It round-trips exactly, so
// chunker tests can size inputs by character count instead of depending on
// a BPE vocabulary.
type RuneTokenizer struct{}

// Count returns the rune count of text.
func (RuneTokenizer) Count(text string) int {
	return len([]rune(text))
}

// Encode converts text to its rune values.
func (RuneTokenizer) Encode(text string) []int {
	runes := []rune(text)
	tokens := make([]int, len(runes))
	for i, r := range runes {
		tokens[i] = int(r)
	}
	return tokens
}

// Decode converts rune values back to text.
func (RuneTokenizer) Decode(tokens []int) string {
	var sb strings.Builder
	for _, t := range tokens {
		sb.WriteRune(rune(t))
	}
	return sb.String()
}

// -----------------------------------------------------------------------------
// MockEmbedder - implements pipeline.Embedder
// -----------------------------------------------------------------------------

// MockEmbedder returns a fixed-dimension vector per text, derived from the
// text length so tests can tell vectors apart.
type MockEmbedder struct {
	// Err, when set, is returned by every EmbedBatch call.
	Err error

	// BatchCount is the number of EmbedBatch calls made.
	BatchCount int
}

// EmbedBatch implements pipeline.Embedder.
func (m *MockEmbedder) EmbedBatch(
	ctx context.Context,
	texts []string,
) ([][]float32, error) {
	m.BatchCount++
	if m.Err != nil {
		return nil, m.Err
	}
	vectors := make([][]float32, len(texts))
	for i, t := range texts {
		vectors[i] = []float32{float32(len(t)), float32(i)}
	}
	return vectors, nil
}

// -----------------------------------------------------------------------------
// MemoryStore - implements pipeline.Store
// -----------------------------------------------------------------------------

// MemoryStore is an in-memory pipeline.Store for tests.
type MemoryStore struct {
	structures map[string]*pipeline.StructureVersion
	pages      map[string]*pipeline.StoredPage
	chunks     map[string]*pipeline.StoredChunk
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		structures: make(map[string]*pipeline.StructureVersion),
		pages:      make(map[string]*pipeline.StoredPage),
		chunks:     make(map[string]*pipeline.StoredChunk),
	}
}

// CreateStructureVersion implements pipeline.Store.
func (s *MemoryStore) CreateStructureVersion(
	ctx context.Context,
	v *pipeline.StructureVersion,
) error {
	copied := *v
	s.structures[v.ID] = &copied
	return nil
}

// ListStructureVersions implements pipeline.Store.
func (s *MemoryStore) ListStructureVersions(
	ctx context.Context,
	repo, branch, scope string,
) ([]*pipeline.StructureVersion, error) {
	var versions []*pipeline.StructureVersion
	for _, v := range s.structures {
		if v.Repo == repo && v.Branch == branch && v.Scope == scope {
			versions = append(versions, v)
		}
	}
	sort.Slice(versions, func(i, j int) bool {
		return versions[i].Version < versions[j].Version
	})
	return versions, nil
}

// GetLatestStructure implements pipeline.Store.
func (s *MemoryStore) GetLatestStructure(
	ctx context.Context,
	repo, branch, scope string,
) (*pipeline.StructureVersion, error) {
	versions, err := s.ListStructureVersions(ctx, repo, branch, scope)
	if err != nil {
		return nil, err
	}
	if len(versions) == 0 {
		return nil, wikigen.ErrNoStructure
	}
	return versions[len(versions)-1], nil
}

// DeleteStructureVersion implements pipeline.Store.
func (s *MemoryStore) DeleteStructureVersion(
	ctx context.Context,
	id string,
) error {
	for pageID, page := range s.pages {
		if page.StructureID != id {
			continue
		}
		for chunkID, chunk := range s.chunks {
			if chunk.PageID == pageID {
				delete(s.chunks, chunkID)
			}
		}
		delete(s.pages, pageID)
	}
	delete(s.structures, id)
	return nil
}

// CreatePages implements pipeline.Store.
func (s *MemoryStore) CreatePages(
	ctx context.Context,
	pages []*pipeline.StoredPage,
) error {
	for _, page := range pages {
		copied := *page
		s.pages[page.ID] = &copied
	}
	return nil
}

// CreateChunks implements pipeline.Store.
func (s *MemoryStore) CreateChunks(
	ctx context.Context,
	chunks []*pipeline.StoredChunk,
) error {
	for _, chunk := range chunks {
		copied := *chunk
		s.chunks[chunk.ID] = &copied
	}
	return nil
}

// GetPagesForStructure implements pipeline.Store.
func (s *MemoryStore) GetPagesForStructure(
	ctx context.Context,
	structureID string,
) ([]*pipeline.StoredPage, error) {
	var pages []*pipeline.StoredPage
	for _, page := range s.pages {
		if page.StructureID == structureID {
			pages = append(pages, page)
		}
	}
	sort.Slice(pages, func(i, j int) bool {
		return pages[i].PlanID < pages[j].PlanID
	})
	return pages, nil
}

// GetChunksForPage implements pipeline.Store.
func (s *MemoryStore) GetChunksForPage(
	ctx context.Context,
	pageID string,
) ([]*pipeline.StoredChunk, error) {
	var chunks []*pipeline.StoredChunk
	for _, chunk := range s.chunks {
		if chunk.PageID == pageID {
			chunks = append(chunks, chunk)
		}
	}
	sort.Slice(chunks, func(i, j int) bool {
		return chunks[i].StartChar < chunks[j].StartChar
	})
	return chunks, nil
}

// SetReadme implements pipeline.Store.
func (s *MemoryStore) SetReadme(
	ctx context.Context,
	structureID, readme string,
) error {
	v, ok := s.structures[structureID]
	if !ok {
		return wikigen.ErrNoStructure
	}
	v.Readme = readme
	return nil
}

// StructureCount returns the number of stored structure versions.
func (s *MemoryStore) StructureCount() int {
	return len(s.structures)
}

// ChunkCount returns the number of stored chunks.
func (s *MemoryStore) ChunkCount() int {
	return len(s.chunks)
}

// Compile-time check.
var _ pipeline.Store = (*MemoryStore)(nil)
