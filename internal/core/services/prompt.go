package services

import (
	"fmt"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/logger"
)

// DefaultInstructions open every prompt.
const DefaultInstructions = "Based on the following context from uploaded documents, please answer the question.\n" +
	"If the answer cannot be found in the context, please say so clearly.\n" +
	"Cite the sources you use with their [Source N] markers."

// DefaultMaxContextChars caps the context block when none is configured.
const DefaultMaxContextChars = 8000

// PromptAssembler renders retrieved chunks and a question into a prompt.
// It is pure and deterministic.
type PromptAssembler struct {
	instructions    string
	maxContextChars int
}

// NewPromptAssembler creates an assembler. maxContextChars <= 0 disables truncation.
func NewPromptAssembler(maxContextChars int) *PromptAssembler {
	return &PromptAssembler{
		instructions:    DefaultInstructions,
		maxContextChars: maxContextChars,
	}
}

// WithInstructions replaces the opening instructions.
func (a *PromptAssembler) WithInstructions(text string) *PromptAssembler {
	a.instructions = text
	return a
}

// Assemble builds the prompt for query from results.
//
// When the context exceeds the budget, whole chunks are dropped starting
// from the lowest rank; a chunk is never cut. The top-ranked chunk is always
// kept so a non-empty retrieval never produces an empty context; when it
// alone exceeds the budget the result is marked OverBudget.
func (a *PromptAssembler) Assemble(query string, results []domain.RetrievalResult) domain.AssembledPrompt {
	ranked := slices.Clone(results)
	domain.SortResults(ranked)

	kept := len(ranked)
	block := renderContext(ranked[:kept])
	for a.maxContextChars > 0 && kept > 1 && utf8.RuneCountInString(block) > a.maxContextChars {
		kept--
		block = renderContext(ranked[:kept])
	}
	if dropped := len(ranked) - kept; dropped > 0 {
		logger.Debug("Dropped %d chunks to fit %d context characters", dropped, a.maxContextChars)
	}
	overBudget := a.maxContextChars > 0 && utf8.RuneCountInString(block) > a.maxContextChars
	if overBudget {
		logger.Warn("Top chunk alone exceeds the %d character context budget", a.maxContextChars)
	}

	chunks := make([]domain.PromptChunk, len(ranked))
	for i, r := range ranked {
		chunks[i] = domain.PromptChunk{Result: r}
		if i < kept {
			chunks[i].Citation = i + 1
		} else {
			chunks[i].Dropped = true
		}
	}

	return domain.AssembledPrompt{
		Prompt:  a.render(query, block),
		Context: block,
		Chunks:     chunks,
		OverBudget: overBudget,
	}
}

func (a *PromptAssembler) render(query, block string) string {
	return fmt.Sprintf("%s\n\nContext:\n%s\n\nQuestion: %s\n\nAnswer:", a.instructions, block, strings.TrimSpace(query))
}

// renderContext numbers each chunk as a citable source block.
func renderContext(results []domain.RetrievalResult) string {
	blocks := make([]string, len(results))
	for i, r := range results {
		blocks[i] = fmt.Sprintf("[Source %d - %s]\n%s\n", i+1, r.Filename, r.Content)
	}
	return strings.Join(blocks, "\n")
}
