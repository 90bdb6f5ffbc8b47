// Package docdetails provides the document details view component for the TUI.
package docdetails

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/sercha-rag/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/sercha-rag/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driving"
)

var errNoIngestionService = errors.New("ingestion service not available")

// View shows a document's metadata followed by its chunks.
type View struct {
	styles           *styles.Styles
	ingestionService driving.IngestionService
	ctx              context.Context

	document     *domain.Document
	lines        []string
	headerLines  int
	scrollOffset int
	width        int
	height       int
	ready        bool
	loading      bool
	err          error
}

// NewView creates a new document details view.
func NewView(s *styles.Styles, ingestionService driving.IngestionService) *View {
	if s == nil {
		s = styles.DefaultStyles()
	}
	return &View{
		styles:           s,
		ingestionService: ingestionService,
		ctx:              context.Background(),
		width:            80,
		height:           24,
	}
}

// WithContext sets the context for service calls.
func (v *View) WithContext(ctx context.Context) *View {
	v.ctx = ctx
	return v
}

// Load shows the summary of doc at once and fetches its chunks.
func (v *View) Load(doc domain.Document) tea.Cmd {
	v.document = &doc
	v.scrollOffset = 0
	v.err = nil
	v.loading = true
	v.lines = v.buildContent()

	ctx := v.ctx
	svc := v.ingestionService
	id := doc.ID
	return func() tea.Msg {
		if svc == nil {
			return messages.DocumentLoaded{Err: errNoIngestionService}
		}
		full, err := svc.Get(ctx, id)
		return messages.DocumentLoaded{Document: full, Err: err}
	}
}

// SetDocument displays doc directly.
func (v *View) SetDocument(doc *domain.Document) {
	v.document = doc
	v.scrollOffset = 0
	v.err = nil
	v.loading = false
	v.lines = v.buildContent()
}

// Init initialises the view.
func (v *View) Init() tea.Cmd {
	return nil
}

// Update handles messages for the document details view.
func (v *View) Update(msg tea.Msg) (*View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.SetDimensions(msg.Width, msg.Height)
		return v, nil

	case tea.KeyMsg:
		return v.handleKeyMsg(msg)

	case messages.DocumentLoaded:
		v.loading = false
		if msg.Err != nil {
			v.err = msg.Err
			return v, nil
		}
		v.SetDocument(msg.Document)
		return v, nil

	case messages.ErrorOccurred:
		v.err = msg.Err
		return v, nil
	}

	return v, nil
}

// handleKeyMsg handles key presses.
func (v *View) handleKeyMsg(msg tea.KeyMsg) (*View, tea.Cmd) {
	switch msg.String() {
	case "up", "k":
		if v.scrollOffset > 0 {
			v.scrollOffset--
		}
	case "down", "j":
		if v.scrollOffset < v.maxScrollOffset() {
			v.scrollOffset++
		}
	case "pgup", "ctrl+u":
		v.scrollOffset = max(v.scrollOffset-v.visibleLines(), 0)
	case "pgdown", "ctrl+d":
		v.scrollOffset = min(v.scrollOffset+v.visibleLines(), v.maxScrollOffset())
	case "home", "g":
		v.scrollOffset = 0
	case "end", "G":
		v.scrollOffset = v.maxScrollOffset()
	case "esc":
		return v, func() tea.Msg {
			return messages.ViewChanged{View: messages.ViewDocuments}
		}
	}

	return v, nil
}

// visibleLines returns the number of lines that can be displayed.
func (v *View) visibleLines() int {
	// Reserve lines for title, separator, help, and padding
	reserved := 6
	available := v.height - reserved
	if available < 1 {
		available = 1
	}
	return available
}

// maxScrollOffset returns the maximum scroll offset.
func (v *View) maxScrollOffset() int {
	return max(len(v.lines)-v.visibleLines(), 0)
}

// buildContent builds the content lines for display.
func (v *View) buildContent() []string {
	if v.document == nil {
		return nil
	}
	doc := v.document

	lines := []string{
		formatField("ID", doc.ID),
		formatField("File", doc.Filename),
		formatField("Version", doc.Version),
		formatField("Chunks", fmt.Sprintf("%d", doc.ChunkCount)),
	}
	if !doc.UploadedAt.IsZero() {
		lines = append(lines, formatField("Uploaded", doc.UploadedAt.Local().Format("2006-01-02 15:04:05")))
	}
	v.headerLines = len(lines)

	if len(doc.Metadata) > 0 {
		lines = append(lines, "", "Metadata:")
		keys := make([]string, 0, len(doc.Metadata))
		for k := range doc.Metadata {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			value := doc.Metadata[k]
			if len(value) > 50 {
				value = value[:47] + "..."
			}
			lines = append(lines, fmt.Sprintf("  %s: %s", k, value))
		}
	}

	if len(doc.Chunks) > 0 {
		width := max(v.width-6, 20)
		for _, c := range doc.Chunks {
			lines = append(lines, "", fmt.Sprintf("--- chunk %d [%d:%d] ---", c.Index, c.Start, c.End))
			lines = append(lines, wrap(c.Content, width)...)
		}
	}

	return lines
}

func formatField(label, value string) string {
	return fmt.Sprintf("%-12s %s", label+":", value)
}

// wrap breaks text into lines of at most width runes on word boundaries.
func wrap(text string, width int) []string {
	var lines []string
	for _, para := range strings.Split(text, "\n") {
		words := strings.Fields(para)
		if len(words) == 0 {
			lines = append(lines, "")
			continue
		}
		line := words[0]
		for _, w := range words[1:] {
			if len([]rune(line))+1+len([]rune(w)) > width {
				lines = append(lines, line)
				line = w
				continue
			}
			line += " " + w
		}
		lines = append(lines, line)
	}
	return lines
}

// View renders the document details view.
func (v *View) View() string {
	var b strings.Builder

	b.WriteString(v.styles.Title.Render("Document Details"))
	b.WriteString("\n")
	b.WriteString(strings.Repeat("─", max(min(v.width-4, 60), 1)))
	b.WriteString("\n\n")

	if v.err != nil {
		b.WriteString(v.styles.Error.Render(fmt.Sprintf("Error: %s", v.err.Error())))
		b.WriteString("\n\n")
		b.WriteString(v.renderHelp())
		return b.String()
	}

	if v.document == nil {
		b.WriteString(v.styles.Muted.Render("No document selected"))
		b.WriteString("\n\n")
		b.WriteString(v.renderHelp())
		return b.String()
	}

	visible := v.visibleLines()
	for i := v.scrollOffset; i < len(v.lines) && i < v.scrollOffset+visible; i++ {
		b.WriteString(v.renderLine(i, v.lines[i]))
		b.WriteString("\n")
	}
	if v.loading {
		b.WriteString(v.styles.Muted.Render("Loading chunks..."))
		b.WriteString("\n")
	}

	if len(v.lines) > visible {
		b.WriteString("\n")
		b.WriteString(v.styles.Muted.Render(fmt.Sprintf("  [Line %d-%d of %d]",
			v.scrollOffset+1,
			min(v.scrollOffset+visible, len(v.lines)),
			len(v.lines))))
	}

	b.WriteString("\n\n")
	b.WriteString(v.renderHelp())

	return b.String()
}

// renderLine styles a content line by its position and shape.
func (v *View) renderLine(i int, line string) string {
	switch {
	case i < v.headerLines:
		if k, val, ok := strings.Cut(line, ":"); ok {
			return v.styles.Subtitle.Render(k+":") + v.styles.Normal.Render(val)
		}
	case strings.HasPrefix(line, "--- chunk"):
		return v.styles.Citation.Render(line)
	case line == "Metadata:":
		return v.styles.Subtitle.Render(line)
	case strings.HasPrefix(line, "  "):
		if k, val, ok := strings.Cut(line, ":"); ok {
			return v.styles.Muted.Render(k+":") + v.styles.Normal.Render(val)
		}
	}
	return v.styles.Normal.Render(line)
}

// renderHelp renders the help footer.
func (v *View) renderHelp() string {
	return v.styles.Help.Render("[↑/↓] scroll  [pgup/pgdn] page  [esc] back")
}

// SetDimensions sets the view dimensions and rewraps the chunks.
func (v *View) SetDimensions(width, height int) {
	v.width = width
	v.height = height
	v.ready = true
	v.lines = v.buildContent()
	v.scrollOffset = min(v.scrollOffset, v.maxScrollOffset())
}

// Document returns the displayed document.
func (v *View) Document() *domain.Document {
	return v.document
}

// ScrollOffset returns the first visible line.
func (v *View) ScrollOffset() int {
	return v.scrollOffset
}

// Err returns the last error.
func (v *View) Err() error {
	return v.err
}
