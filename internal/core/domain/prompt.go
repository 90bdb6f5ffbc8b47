package domain

// PromptChunk is a retrieved chunk as placed (or not) into a prompt.
type PromptChunk struct {
	Result RetrievalResult

	// Citation is the 1-based [Source N] marker. Zero when dropped.
	Citation int

	// Dropped is true when the chunk did not fit the context budget.
	Dropped bool
}

// AssembledPrompt is the final prompt and the context it was built from.
// It is produced once per answer request; the debug trace is derived from
// the same value that is sent to the generator.
type AssembledPrompt struct {
	// Prompt is the exact text sent to the generator.
	Prompt string

	// Context is the concatenated context block embedded in Prompt.
	Context string

	// Chunks lists every input chunk in rank order.
	Chunks []PromptChunk

	// OverBudget is true when Context exceeds the budget because the
	// top-ranked chunk alone does.
	OverBudget bool
}

// Used returns the chunks that made it into the prompt, in citation order.
func (p AssembledPrompt) Used() []RetrievalResult {
	var used []RetrievalResult
	for _, c := range p.Chunks {
		if !c.Dropped {
			used = append(used, c.Result)
		}
	}
	return used
}

// DroppedCount returns the number of chunks removed by truncation.
func (p AssembledPrompt) DroppedCount() int {
	n := 0
	for _, c := range p.Chunks {
		if c.Dropped {
			n++
		}
	}
	return n
}

// Sources returns the filenames of used chunks, deduplicated in order of first appearance.
func (p AssembledPrompt) Sources() []string {
	seen := make(map[string]bool)
	var sources []string
	for _, r := range p.Used() {
		if seen[r.Filename] {
			continue
		}
		seen[r.Filename] = true
		sources = append(sources, r.Filename)
	}
	return sources
}

// Trace builds the debug trace for this prompt.
func (p AssembledPrompt) Trace() *DebugTrace {
	trace := &DebugTrace{
		Context:        p.Context,
		FullPrompt:     p.Prompt,
		RelevantChunks: make([]TracedChunk, 0, len(p.Chunks)),
		OverBudget:     p.OverBudget,
	}
	for _, c := range p.Chunks {
		trace.RelevantChunks = append(trace.RelevantChunks, TracedChunk{
			Content: c.Result.Content,
			Metadata: ChunkMetadata{
				DocumentID: c.Result.DocumentID,
				Filename:   c.Result.Filename,
				ChunkIndex: c.Result.ChunkIndex,
				Start:      c.Result.Start,
				End:        c.Result.End,
				Headers:    c.Result.Headers,
			},
			Score:    c.Result.Score,
			Citation: c.Citation,
			Dropped:  c.Dropped,
		})
	}
	return trace
}
