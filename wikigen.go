// Package wikigen provides the core building blocks for generating and
// incrementally maintaining a documentation wiki for a source repository
// using LLM generator and critic roles.
//
// The library is organized around a small set of contracts defined in this
// package, with behaviors in subpackages:
//
//   - [Model] abstracts an LLM backend with normalized token usage. A
//     langchaingo-backed implementation lives in the models subpackage.
//   - [Role] binds a Model to a system prompt. Every Role invocation runs
//     in a fresh single-turn conversation, so no state leaks between
//     quality-loop attempts.
//   - The loop subpackage drives bounded generate → critique → gate-check
//     cycles and returns an [AgentResult].
//   - The chunk subpackage splits generated markdown into heading-aware,
//     token-bounded chunks for vector search.
//   - The agents subpackage instantiates the loop for the three wiki
//     artifacts: structure plans, pages, and the README.
//   - The pipeline subpackage decides which pages need regeneration after
//     a change set and orchestrates generation, chunking, embedding, and
//     storage for one documentation scope.
//
// # Quick Start
//
//	llm, _ := openai.New()
//	model := models.NewLCGModel(llm).WithModelName("gpt-4o")
//
//	generator := wikigen.NewRole("page-generator", model, agents.PageSystemPrompt)
//	critic := wikigen.NewRole("page-critic", model, agents.PageCriticPrompt)
//
//	pageAgent := agents.NewPageAgent(generator, critic)
//	result, err := pageAgent.Generate(ctx, plan, files)
//	if err != nil {
//	    // transport-level failure; quality outcomes are in result fields
//	}
//	if result.PassedQualityGate {
//	    fmt.Println(*result.Output)
//	}
package wikigen
