// Package list provides list display components for the TUI.
package list

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/sercha-rag/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

// ChunkList displays the chunks retrieved for an answer.
type ChunkList struct {
	chunks   []domain.TracedChunk
	selected int
	styles   *styles.Styles
	width    int
	height   int
}

// NewChunkList creates a new chunk list component.
func NewChunkList(s *styles.Styles) *ChunkList {
	if s == nil {
		s = styles.DefaultStyles()
	}

	return &ChunkList{
		styles: s,
		width:  80,
		height: 10,
	}
}

// Init initialises the chunk list.
func (c *ChunkList) Init() tea.Cmd {
	return nil
}

// Update handles list navigation messages.
func (c *ChunkList) Update(msg tea.Msg) (*ChunkList, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch msg.String() {
		case "up", "k":
			c.MoveUp()
		case "down", "j":
			c.MoveDown()
		}
	}
	return c, nil
}

// View renders the chunk list.
func (c *ChunkList) View() string {
	if len(c.chunks) == 0 {
		return c.styles.Muted.Render("No chunks retrieved")
	}

	lines := make([]string, 0, len(c.chunks)*2+2)
	lines = append(lines, c.styles.Subtitle.Render(fmt.Sprintf("Retrieved chunks (%d)", len(c.chunks))), "")

	// Each chunk takes two lines.
	visibleCount := (c.height - 2) / 2
	if visibleCount < 1 {
		visibleCount = 1
	}

	start := 0
	if c.selected >= visibleCount {
		start = c.selected - visibleCount + 1
	}
	end := min(start+visibleCount, len(c.chunks))

	for i := start; i < end; i++ {
		lines = append(lines, c.renderChunk(i, &c.chunks[i]))
	}

	return strings.Join(lines, "\n")
}

// renderChunk formats one chunk with its marker, origin and preview.
func (c *ChunkList) renderChunk(index int, chunk *domain.TracedChunk) string {
	indicator := "  "
	if index == c.selected {
		indicator = "> "
	}

	marker := fmt.Sprintf("[Source %d]", chunk.Citation)
	if chunk.Dropped {
		marker = "[dropped]"
	}
	heading := fmt.Sprintf("%s%s %s #%d", indicator, marker, chunk.Metadata.Filename, chunk.Metadata.ChunkIndex)

	var headLine string
	switch {
	case index == c.selected:
		headLine = c.styles.Selected.Render(fmt.Sprintf("%s  %.3f", heading, chunk.Score))
	case chunk.Dropped:
		headLine = c.styles.Dropped.Render(heading) + "  " + c.styles.Score.Render(fmt.Sprintf("%.3f", chunk.Score))
	default:
		headLine = c.styles.Citation.Render(heading) + "  " + c.styles.RenderScore(chunk.Score)
	}

	maxPreviewLen := c.width - 6
	if maxPreviewLen < 20 {
		maxPreviewLen = 20
	}
	preview := strings.Join(strings.Fields(chunk.Content), " ")
	if runes := []rune(preview); len(runes) > maxPreviewLen {
		preview = string(runes[:maxPreviewLen-3]) + "..."
	}

	return headLine + "\n" + c.styles.Muted.Render("    "+preview)
}

// SetChunks replaces the list contents and resets the selection.
func (c *ChunkList) SetChunks(chunks []domain.TracedChunk) {
	c.chunks = chunks
	c.selected = 0
}

// Chunks returns the current chunks.
func (c *ChunkList) Chunks() []domain.TracedChunk {
	return c.chunks
}

// Selected returns the index of the selected chunk.
func (c *ChunkList) Selected() int {
	return c.selected
}

// SelectedChunk returns the currently selected chunk, or nil if none.
func (c *ChunkList) SelectedChunk() *domain.TracedChunk {
	if c.selected < 0 || c.selected >= len(c.chunks) {
		return nil
	}
	return &c.chunks[c.selected]
}

// MoveUp moves selection up.
func (c *ChunkList) MoveUp() {
	if c.selected > 0 {
		c.selected--
	}
}

// MoveDown moves selection down.
func (c *ChunkList) MoveDown() {
	if c.selected < len(c.chunks)-1 {
		c.selected++
	}
}

// SetDimensions sets the component dimensions.
func (c *ChunkList) SetDimensions(width, height int) {
	c.width = width
	c.height = height
}

// Count returns the number of chunks.
func (c *ChunkList) Count() int {
	return len(c.chunks)
}
