// Package chunker splits document text into overlapping chunks.
package chunker

import (
	"fmt"
	"iter"
	"slices"
	"strings"
	"unicode"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

// DefaultChunkSize is the default number of characters per chunk.
const DefaultChunkSize = 500

// DefaultChunkOverlap is the default number of overlapping characters.
const DefaultChunkOverlap = 50

// Processor splits text into chunks of a target size measured in runes.
// Adjacent chunks share exactly overlap runes.
//
// Boundary preference is best-effort: a cut is moved back to the nearest
// paragraph break, then sentence end, within the tolerance window before the
// target size. Without one, the text is split hard at the target size.
type Processor struct {
	chunkSize int
	overlap   int
	tolerance int
}

// Option configures the chunker processor.
type Option func(*Processor)

// WithChunkSize sets the chunk size in characters.
func WithChunkSize(size int) Option {
	return func(p *Processor) {
		p.chunkSize = size
	}
}

// WithOverlap sets the overlap between chunks in characters.
func WithOverlap(overlap int) Option {
	return func(p *Processor) {
		p.overlap = overlap
	}
}

// WithBoundaryTolerance sets how far back from the target size a natural
// boundary may be taken. Zero disables boundary preference.
func WithBoundaryTolerance(runes int) Option {
	return func(p *Processor) {
		p.tolerance = runes
	}
}

// New creates a new chunker processor with the given options.
// Returns domain.ErrConfiguration when the sizing cannot make progress.
func New(opts ...Option) (*Processor, error) {
	p := &Processor{
		chunkSize: DefaultChunkSize,
		overlap:   DefaultChunkOverlap,
		tolerance: -1,
	}

	for _, opt := range opts {
		opt(p)
	}

	sizing := domain.ChunkingSettings{Size: p.chunkSize, Overlap: p.overlap}
	if err := sizing.Validate(); err != nil {
		return nil, err
	}

	if p.tolerance < 0 {
		p.tolerance = p.chunkSize / 10
	}
	if p.tolerance >= p.chunkSize {
		return nil, fmt.Errorf("%w: boundary tolerance (%d) must be smaller than chunk size (%d)",
			domain.ErrConfiguration, p.tolerance, p.chunkSize)
	}

	return p, nil
}

// Name returns the processor name.
func (p *Processor) Name() string {
	return "chunker"
}

// ChunkSize returns the target chunk size.
func (p *Processor) ChunkSize() int {
	return p.chunkSize
}

// Overlap returns the overlap between adjacent chunks.
func (p *Processor) Overlap() int {
	return p.overlap
}

// Split lazily yields the chunks of text in order.
// Chunk IDs are left empty; the caller assigns them.
// Whitespace-only text yields nothing.
func (p *Processor) Split(documentID, text string) iter.Seq[domain.Chunk] {
	return func(yield func(domain.Chunk) bool) {
		if strings.TrimSpace(text) == "" {
			return
		}

		runes := []rune(text)
		n := len(runes)
		start := 0

		for index := 0; ; index++ {
			end := start + p.chunkSize
			if end >= n {
				end = n
			} else {
				end = p.boundary(runes, start, end)
			}

			chunk := domain.Chunk{
				DocumentID: documentID,
				Index:      index,
				Content:    string(runes[start:end]),
				Start:      start,
				End:        end,
			}
			if !yield(chunk) || end == n {
				return
			}

			start = end - p.overlap
		}
	}
}

// Chunks collects Split into a slice.
func (p *Processor) Chunks(documentID, text string) []domain.Chunk {
	return slices.Collect(p.Split(documentID, text))
}

// boundary returns the cut position for a chunk starting at start whose hard
// end is end. The result always leaves room for the next chunk to advance.
func (p *Processor) boundary(runes []rune, start, end int) int {
	if p.tolerance == 0 {
		return end
	}

	low := max(end-p.tolerance, start+p.overlap+1, start+2)
	if low > end {
		return end
	}

	for b := end; b >= low; b-- {
		if runes[b-1] == '\n' && runes[b-2] == '\n' {
			return b
		}
	}
	for b := end; b >= low; b-- {
		if unicode.IsSpace(runes[b-1]) && isSentenceEnd(runes[b-2]) {
			return b
		}
	}
	return end
}

func isSentenceEnd(r rune) bool {
	return r == '.' || r == '!' || r == '?'
}

// Reassemble rebuilds the source text from ordered chunks using their offsets,
// dropping the overlap each chunk shares with its predecessor.
func Reassemble(chunks []domain.Chunk) string {
	var b strings.Builder
	covered := 0
	for _, c := range chunks {
		runes := []rune(c.Content)
		skip := covered - c.Start
		if skip < 0 {
			skip = 0
		}
		if skip < len(runes) {
			b.WriteString(string(runes[skip:]))
		}
		if c.End > covered {
			covered = c.End
		}
	}
	return b.String()
}
