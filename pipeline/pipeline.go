// Package pipeline orchestrates documentation generation for one scope:
// structure planning, page generation, chunking, embedding, storage, and
// the incremental decision of which pages a change set actually affects.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/wikigen/wikigen"
	"github.com/wikigen/wikigen/agents"
	"github.com/wikigen/wikigen/chunk"
	"github.com/wikigen/wikigen/events"
)

// MaxStructureVersions is how many historical structure versions each
// (repository, branch, scope) retains. Creating one more deletes the
// oldest before the insert, preserving an append-only version sequence.
const MaxStructureVersions = 3

// Dependencies carries the explicitly constructed collaborators of a
// ScopeProcessor. There are no process-wide singletons; everything the
// pipeline touches is threaded through here.
type Dependencies struct {
	Structure *agents.StructureAgent
	Pages     *agents.PageAgent
	Readme    *agents.ReadmeAgent
	Chunker   *chunk.Chunker
	Store     Store

	// Embedder may be nil; chunks are then stored without vectors.
	Embedder Embedder

	// Events may be nil; lifecycle events are then dropped.
	Events *events.Registry

	// Config may be nil; DefaultScopeConfig applies.
	Config *ScopeConfig
}

// Result is the outcome of one scope processing run.
type Result struct {
	// Structure is the structure version the run produced or reused.
	Structure *StructureVersion

	// Pages are the pages now stored under Structure, regenerated and
	// copied-forward alike.
	Pages []*StoredPage

	// FailedPages lists plan IDs whose quality loop produced no output.
	FailedPages []string

	// Readme is the generated README markdown, empty if its loop
	// produced no output.
	Readme string

	// AllPassedQualityGate is true when the structure, every generated
	// page, and the README all passed their gates. A false value flags
	// the run rather than failing it.
	AllPassedQualityGate bool

	// TokenUsage is the total usage across every model call of the run.
	TokenUsage wikigen.TokenUsage
}

// ScopeProcessor runs full and incremental documentation generation for
// one scope. Runs are strictly sequential within a job; separate
// repositories/branches are independent units of work.
type ScopeProcessor struct {
	deps Dependencies
}

// NewScopeProcessor creates a processor from its dependencies.
func NewScopeProcessor(deps Dependencies) *ScopeProcessor {
	if deps.Config == nil {
		deps.Config = DefaultScopeConfig()
	}
	return &ScopeProcessor{deps: deps}
}

// ProcessFull regenerates the scope from scratch: a new structure plan,
// every page, and the README.
//
// Pages are persisted as they are generated, so a mid-run failure leaves
// earlier pages durably written; partial progress is expected rather than
// rolled back.
func (p *ScopeProcessor) ProcessFull(
	ctx context.Context,
	repo agents.RepoInfo,
	branch string,
	files []agents.SourceFile,
) (*Result, error) {
	result := &Result{AllPassedQualityGate: true}

	structureResult, err := p.deps.Structure.Generate(ctx, repo, files)
	if err != nil {
		return nil, fmt.Errorf("structure generation: %w", err)
	}
	result.TokenUsage.Add(structureResult.TokenUsage)
	if structureResult.Output == nil {
		return nil, fmt.Errorf(
			"structure generation (%d attempts): %w",
			structureResult.Attempts, wikigen.ErrAllAttemptsFailed,
		)
	}
	if !structureResult.PassedQualityGate {
		result.AllPassedQualityGate = false
	}

	version, err := p.createVersion(
		ctx, repo.Name, branch, *structureResult.Output, true,
	)
	if err != nil {
		return nil, err
	}
	result.Structure = version

	for _, plan := range version.Structure.Pages {
		page, err := p.generatePage(ctx, version, plan, files, result)
		if err != nil {
			return nil, err
		}
		if page != nil {
			result.Pages = append(result.Pages, page)
		}
	}

	if err := p.generateReadme(ctx, version, result); err != nil {
		return nil, err
	}

	return result, nil
}

// ProcessIncremental regenerates only what a change set affects. A change
// touching a structural-signal file (or the scope's config file) falls
// back to ProcessFull; otherwise the prior plan is carried into a new
// version, unchanged pages are duplicated forward with content and score
// intact, and only affected pages rerun their quality loops.
func (p *ScopeProcessor) ProcessIncremental(
	ctx context.Context,
	repo agents.RepoInfo,
	branch string,
	changed []string,
	files []agents.SourceFile,
) (*Result, error) {
	if RequiresStructureRebuild(changed, p.deps.Config.ConfigFile) {
		return p.ProcessFull(ctx, repo, branch, files)
	}

	latest, err := p.deps.Store.GetLatestStructure(
		ctx, repo.Name, branch, p.deps.Config.Scope,
	)
	if err != nil {
		// First run for this scope: nothing to diff against.
		if errors.Is(err, wikigen.ErrNoStructure) {
			return p.ProcessFull(ctx, repo, branch, files)
		}
		return nil, fmt.Errorf("load latest structure: %w", err)
	}

	partition := PartitionPages(latest.Structure.Pages, changed)
	if len(partition.Affected) == 0 {
		// Nothing this change set touches; the current version stands.
		pages, err := p.deps.Store.GetPagesForStructure(ctx, latest.ID)
		if err != nil {
			return nil, fmt.Errorf("load pages: %w", err)
		}
		return &Result{
			Structure:            latest,
			Pages:                pages,
			Readme:               latest.Readme,
			AllPassedQualityGate: true,
		}, nil
	}

	result := &Result{AllPassedQualityGate: true}

	version, err := p.createVersion(
		ctx, repo.Name, branch, latest.Structure, false,
	)
	if err != nil {
		return nil, err
	}
	result.Structure = version

	priorPages, err := p.deps.Store.GetPagesForStructure(ctx, latest.ID)
	if err != nil {
		return nil, fmt.Errorf("load prior pages: %w", err)
	}
	priorByPlan := make(map[string]*StoredPage, len(priorPages))
	for _, page := range priorPages {
		priorByPlan[page.PlanID] = page
	}

	for _, plan := range partition.Unchanged {
		prior, ok := priorByPlan[plan.ID]
		if !ok {
			// Prior content went missing; regenerate instead.
			partition.Affected = append(partition.Affected, plan)
			continue
		}
		copied, err := p.copyPageForward(ctx, version, prior)
		if err != nil {
			return nil, err
		}
		result.Pages = append(result.Pages, copied)
	}

	for _, plan := range partition.Affected {
		page, err := p.generatePage(ctx, version, plan, files, result)
		if err != nil {
			return nil, err
		}
		if page != nil {
			result.Pages = append(result.Pages, page)
		}
	}

	if err := p.generateReadme(ctx, version, result); err != nil {
		return nil, err
	}

	return result, nil
}

// createVersion enforces version retention and persists a new structure
// version for the scope.
func (p *ScopeProcessor) createVersion(
	ctx context.Context,
	repo, branch string,
	structure agents.WikiStructure,
	rebuilt bool,
) (*StructureVersion, error) {
	versions, err := p.deps.Store.ListStructureVersions(
		ctx, repo, branch, p.deps.Config.Scope,
	)
	if err != nil {
		return nil, fmt.Errorf("list structure versions: %w", err)
	}

	next := 1
	if len(versions) > 0 {
		next = versions[len(versions)-1].Version + 1
	}
	for len(versions) >= MaxStructureVersions {
		if err := p.deps.Store.DeleteStructureVersion(
			ctx, versions[0].ID,
		); err != nil {
			return nil, fmt.Errorf("prune structure version: %w", err)
		}
		versions = versions[1:]
	}

	version := &StructureVersion{
		ID:        uuid.NewString(),
		Repo:      repo,
		Branch:    branch,
		Scope:     p.deps.Config.Scope,
		Version:   next,
		Structure: structure,
		CreatedAt: time.Now().UTC(),
	}
	if err := p.deps.Store.CreateStructureVersion(ctx, version); err != nil {
		return nil, fmt.Errorf("create structure version: %w", err)
	}

	p.deps.Events.Publish(&wikigen.StructureVersionCreatedEvent{
		Repo:    repo,
		Branch:  branch,
		Scope:   p.deps.Config.Scope,
		Version: next,
		Rebuilt: rebuilt,
	})
	return version, nil
}

// generatePage runs one page's quality loop and persists the page and its
// embedded chunks. A page whose every attempt failed to parse is recorded
// in FailedPages and returns (nil, nil); the batch continues.
func (p *ScopeProcessor) generatePage(
	ctx context.Context,
	version *StructureVersion,
	plan agents.PagePlan,
	files []agents.SourceFile,
	result *Result,
) (*StoredPage, error) {
	pageFiles := selectFiles(files, plan.SourceFiles)

	pageResult, err := p.deps.Pages.Generate(ctx, plan, pageFiles)
	if err != nil {
		return nil, fmt.Errorf("page %s: %w", plan.ID, err)
	}
	result.TokenUsage.Add(pageResult.TokenUsage)

	if pageResult.Output == nil {
		result.FailedPages = append(result.FailedPages, plan.ID)
		p.deps.Events.Publish(&wikigen.PageFailedEvent{
			Scope:  p.deps.Config.Scope,
			PageID: plan.ID,
			Err:    wikigen.ErrAllAttemptsFailed,
		})
		return nil, nil
	}
	if !pageResult.PassedQualityGate {
		result.AllPassedQualityGate = false
	}

	page := &StoredPage{
		ID:          uuid.NewString(),
		StructureID: version.ID,
		PlanID:      plan.ID,
		Title:       plan.Title,
		Markdown:    *pageResult.Output,
		Score:       pageResult.FinalScore,
		SourceFiles: plan.SourceFiles,
	}
	if err := p.deps.Store.CreatePages(
		ctx, []*StoredPage{page},
	); err != nil {
		return nil, fmt.Errorf("store page %s: %w", plan.ID, err)
	}

	if err := p.chunkAndStore(ctx, page); err != nil {
		return nil, err
	}

	p.deps.Events.Publish(&wikigen.PageGeneratedEvent{
		Scope:  p.deps.Config.Scope,
		PageID: plan.ID,
		Score:  pageResult.FinalScore,
		Passed: pageResult.PassedQualityGate,
		Usage:  pageResult.TokenUsage,
	})
	return page, nil
}

// chunkAndStore splits a page into chunks, embeds them as one batch, and
// persists them.
func (p *ScopeProcessor) chunkAndStore(
	ctx context.Context,
	page *StoredPage,
) error {
	pieces := p.deps.Chunker.Chunk(page.Markdown)
	if len(pieces) == 0 {
		return nil
	}

	chunks := make([]*StoredChunk, len(pieces))
	texts := make([]string, len(pieces))
	for i, piece := range pieces {
		chunks[i] = &StoredChunk{
			ID:           uuid.NewString(),
			PageID:       page.ID,
			Content:      piece.Content,
			HeadingPath:  piece.HeadingPath,
			HeadingLevel: piece.HeadingLevel,
			TokenCount:   piece.TokenCount,
			StartChar:    piece.StartChar,
			EndChar:      piece.EndChar,
			HasCode:      piece.HasCode,
		}
		texts[i] = piece.Content
	}

	if p.deps.Embedder != nil {
		vectors, err := p.deps.Embedder.EmbedBatch(ctx, texts)
		if err != nil {
			return fmt.Errorf("embed page %s: %w", page.PlanID, err)
		}
		for i := range chunks {
			chunks[i].Embedding = vectors[i]
		}
	}

	if err := p.deps.Store.CreateChunks(ctx, chunks); err != nil {
		return fmt.Errorf("store chunks for %s: %w", page.PlanID, err)
	}
	return nil
}

// copyPageForward duplicates an unchanged page, and its chunks, under the
// new structure version with prior content and score intact. No model
// calls are made.
func (p *ScopeProcessor) copyPageForward(
	ctx context.Context,
	version *StructureVersion,
	prior *StoredPage,
) (*StoredPage, error) {
	copied := &StoredPage{
		ID:          uuid.NewString(),
		StructureID: version.ID,
		PlanID:      prior.PlanID,
		Title:       prior.Title,
		Markdown:    prior.Markdown,
		Score:       prior.Score,
		SourceFiles: prior.SourceFiles,
	}
	if err := p.deps.Store.CreatePages(
		ctx, []*StoredPage{copied},
	); err != nil {
		return nil, fmt.Errorf("copy page %s: %w", prior.PlanID, err)
	}

	priorChunks, err := p.deps.Store.GetChunksForPage(ctx, prior.ID)
	if err != nil {
		return nil, fmt.Errorf("load chunks for %s: %w", prior.PlanID, err)
	}
	if len(priorChunks) > 0 {
		copies := make([]*StoredChunk, len(priorChunks))
		for i, c := range priorChunks {
			dup := *c
			dup.ID = uuid.NewString()
			dup.PageID = copied.ID
			copies[i] = &dup
		}
		if err := p.deps.Store.CreateChunks(ctx, copies); err != nil {
			return nil, fmt.Errorf(
				"copy chunks for %s: %w", prior.PlanID, err,
			)
		}
	}

	p.deps.Events.Publish(&wikigen.PageCopiedForwardEvent{
		Scope:  p.deps.Config.Scope,
		PageID: prior.PlanID,
	})
	return copied, nil
}

// generateReadme runs the README quality loop over the run's pages and
// attaches the result to the structure version. A README whose every
// attempt failed to parse flags the run but does not fail it.
func (p *ScopeProcessor) generateReadme(
	ctx context.Context,
	version *StructureVersion,
	result *Result,
) error {
	summaries := make([]agents.PageSummary, len(result.Pages))
	for i, page := range result.Pages {
		summaries[i] = agents.PageSummary{
			ID:      page.PlanID,
			Title:   page.Title,
			Excerpt: excerpt(page.Markdown, 240),
		}
	}

	readmeResult, err := p.deps.Readme.Generate(
		ctx, version.Structure, summaries,
	)
	if err != nil {
		return fmt.Errorf("readme generation: %w", err)
	}
	result.TokenUsage.Add(readmeResult.TokenUsage)

	if readmeResult.Output == nil {
		result.AllPassedQualityGate = false
		return nil
	}
	if !readmeResult.PassedQualityGate {
		result.AllPassedQualityGate = false
	}

	result.Readme = *readmeResult.Output
	version.Readme = result.Readme
	if err := p.deps.Store.SetReadme(
		ctx, version.ID, result.Readme,
	); err != nil {
		return fmt.Errorf("store readme: %w", err)
	}
	return nil
}

// selectFiles filters the scope listing down to the paths a page plan
// names, preserving listing order.
func selectFiles(files []agents.SourceFile, paths []string) []agents.SourceFile {
	wanted := make(map[string]bool, len(paths))
	for _, p := range paths {
		wanted[p] = true
	}
	var selected []agents.SourceFile
	for _, f := range files {
		if wanted[f.Path] {
			selected = append(selected, f)
		}
	}
	return selected
}

// excerpt returns the first n bytes of text, cut at a rune boundary.
func excerpt(text string, n int) string {
	if len(text) <= n {
		return text
	}
	for n > 0 && text[n]&0xC0 == 0x80 {
		n--
	}
	return text[:n]
}
