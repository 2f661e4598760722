// Command wikigen generates and maintains a documentation wiki for a
// source directory using an LLM generator/critic quality loop.
package main

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/wikigen/wikigen"
	"github.com/wikigen/wikigen/agents"
	"github.com/wikigen/wikigen/chunk"
	"github.com/wikigen/wikigen/events"
	"github.com/wikigen/wikigen/models"
	"github.com/wikigen/wikigen/pipeline"
	"github.com/wikigen/wikigen/store/boltstore"
)

func main() {
	root := &cobra.Command{
		Use:           "wikigen",
		Short:         "Generate and maintain a documentation wiki with LLM agents",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.AddCommand(newChunkCmd())
	root.AddCommand(newGenerateCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

// newChunkCmd splits a markdown file and prints the chunks as JSON.
func newChunkCmd() *cobra.Command {
	var (
		maxTokens     int
		overlapTokens int
		minTokens     int
	)

	cmd := &cobra.Command{
		Use:   "chunk FILE",
		Short: "Split a markdown file into embedding-ready chunks",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}

			chunker, err := chunk.New(chunk.Config{
				MaxTokens:     maxTokens,
				OverlapTokens: overlapTokens,
				MinTokens:     minTokens,
			})
			if err != nil {
				return err
			}

			encoder := json.NewEncoder(cmd.OutOrStdout())
			encoder.SetIndent("", "  ")
			return encoder.Encode(chunker.Chunk(string(data)))
		},
	}

	defaults := chunk.DefaultConfig()
	cmd.Flags().IntVar(&maxTokens, "max-tokens", defaults.MaxTokens,
		"token budget per chunk")
	cmd.Flags().IntVar(&overlapTokens, "overlap-tokens", defaults.OverlapTokens,
		"overlap tokens between adjacent chunks")
	cmd.Flags().IntVar(&minTokens, "min-tokens", defaults.MinTokens,
		"merge threshold for undersized chunks")
	return cmd
}

// newGenerateCmd runs a full scope generation against a local directory.
func newGenerateCmd() *cobra.Command {
	var (
		repoName   string
		branch     string
		provider   string
		modelName  string
		embedModel string
		storePath  string
		configPath string
		logPath    string
	)

	cmd := &cobra.Command{
		Use:   "generate DIR",
		Short: "Generate the documentation wiki for a source directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := args[0]

			cfg := pipeline.DefaultScopeConfig()
			if configPath != "" {
				loaded, err := pipeline.LoadScopeConfig(configPath)
				if err != nil {
					return err
				}
				cfg = loaded
			}

			llm, err := buildLLM(provider, modelName)
			if err != nil {
				return err
			}
			model := models.NewLCGModel(llm).WithModelName(modelName)

			var embedder pipeline.Embedder
			if embedModel != "" {
				embedder, err = buildEmbedder(provider, embedModel)
				if err != nil {
					return err
				}
			}

			chunker, err := chunk.New(cfg.ChunkConfig())
			if err != nil {
				return err
			}

			store, err := boltstore.Open(storePath)
			if err != nil {
				return err
			}
			defer store.Close()

			logger := newEventLogger(logPath)
			defer logger.Close()
			registry := events.NewRegistry().Subscribe(logger)

			loopCfg := cfg.LoopConfig()
			processor := pipeline.NewScopeProcessor(pipeline.Dependencies{
				Structure: agents.NewStructureAgent(
					wikigen.NewRole("structure-generator", model, agents.StructureSystemPrompt),
					wikigen.NewRole("structure-critic", model, agents.StructureCriticPrompt),
				).WithConfig(loopCfg).WithEvents(registry),
				Pages: agents.NewPageAgent(
					wikigen.NewRole("page-generator", model, agents.PageSystemPrompt),
					wikigen.NewRole("page-critic", model, agents.PageCriticPrompt),
				).WithConfig(loopCfg).WithEvents(registry),
				Readme: agents.NewReadmeAgent(
					wikigen.NewRole("readme-generator", model, agents.ReadmeSystemPrompt),
					wikigen.NewRole("readme-critic", model, agents.ReadmeCriticPrompt),
				).WithConfig(loopCfg).WithEvents(registry),
				Chunker:  chunker,
				Store:    store,
				Embedder: embedder,
				Events:   registry,
				Config:   cfg,
			})

			files, err := collectSourceFiles(dir, cfg.Exclude)
			if err != nil {
				return err
			}

			result, err := processor.ProcessFull(
				cmd.Context(),
				agents.RepoInfo{Name: repoName},
				branch,
				files,
			)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(),
				"wiki v%d: %d pages (%d failed), gate passed: %v, %d tokens\n",
				result.Structure.Version,
				len(result.Pages),
				len(result.FailedPages),
				result.AllPassedQualityGate,
				result.TokenUsage.TotalTokens,
			)
			return nil
		},
	}

	cmd.Flags().StringVar(&repoName, "repo", "", "repository name")
	cmd.Flags().StringVar(&branch, "branch", "main", "branch name")
	cmd.Flags().StringVar(&provider, "provider", "ollama", "model provider (ollama|openai)")
	cmd.Flags().StringVar(&modelName, "model", "llama3", "model name")
	cmd.Flags().StringVar(&embedModel, "embed-model", "", "embedding model name (empty disables embedding)")
	cmd.Flags().StringVar(&storePath, "store", "wikigen.db", "bolt store path")
	cmd.Flags().StringVar(&configPath, "config", "", "scope config file")
	cmd.Flags().StringVar(&logPath, "log", "wikigen.log", "event log path")
	cmd.MarkFlagRequired("repo")
	return cmd
}

func buildLLM(provider, model string) (llms.Model, error) {
	switch provider {
	case "ollama":
		return ollama.New(ollama.WithModel(model))
	case "openai":
		return openai.New(openai.WithModel(model))
	default:
		return nil, fmt.Errorf("unknown provider %q", provider)
	}
}

func buildEmbedder(provider, model string) (pipeline.Embedder, error) {
	llm, err := buildLLM(provider, model)
	if err != nil {
		return nil, err
	}
	client, ok := llm.(embeddings.EmbedderClient)
	if !ok {
		return nil, fmt.Errorf("provider %q does not support embeddings", provider)
	}
	embedder, err := embeddings.NewEmbedder(client)
	if err != nil {
		return nil, err
	}
	return models.NewLCGEmbedder(embedder), nil
}

// skipDirs are directories never handed to the agents.
var skipDirs = map[string]bool{
	".git":         true,
	"node_modules": true,
	"vendor":       true,
}

// maxFileSize bounds how much of a file is sent to the model.
const maxFileSize = 64 * 1024

// collectSourceFiles walks dir and reads every regular file into a
// SourceFile, skipping VCS/dependency directories, excluded globs, and
// oversized or binary files.
func collectSourceFiles(dir string, exclude []string) ([]agents.SourceFile, error) {
	var files []agents.SourceFile
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if skipDirs[d.Name()] {
				return filepath.SkipDir
			}
			return nil
		}

		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if isExcluded(rel, exclude) {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return err
		}
		if info.Size() > maxFileSize {
			return nil
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		if strings.ContainsRune(string(data), 0) {
			return nil // binary
		}

		files = append(files, agents.SourceFile{
			Path:    rel,
			Content: string(data),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return files, nil
}

// isExcluded matches a slash-separated relative path against exclusion
// globs. A glob ending in "/**" excludes the whole subtree; otherwise the
// glob must match the full path or its basename.
func isExcluded(rel string, globs []string) bool {
	for _, glob := range globs {
		if prefix, ok := strings.CutSuffix(glob, "/**"); ok {
			if rel == prefix || strings.HasPrefix(rel, prefix+"/") {
				return true
			}
			continue
		}
		if ok, _ := path.Match(glob, rel); ok {
			return true
		}
		if ok, _ := path.Match(glob, path.Base(rel)); ok {
			return true
		}
	}
	return false
}
