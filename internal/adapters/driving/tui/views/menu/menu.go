// Package menu provides the start screen of the TUI: the indexed library at a
// glance and the entries into asking, browsing and configuring.
package menu

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/sercha-rag/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/sercha-rag/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

// Item is one menu entry. Shortcut selects it directly.
type Item struct {
	Label    string
	Hint     string
	Shortcut string
	View     messages.ViewType
	Quit     bool
}

// library summarises the indexed documents.
type library struct {
	loaded    bool
	documents int
	chunks    int
	newest    string
	err       error
}

// View is the start screen.
type View struct {
	styles   *styles.Styles
	items    []Item
	selected int
	library  library
	width    int
	height   int
	ready    bool
}

// NewView creates the start screen.
func NewView(s *styles.Styles) *View {
	if s == nil {
		s = styles.DefaultStyles()
	}

	return &View{
		styles: s,
		items: []Item{
			{Label: "Ask", Hint: "question your documents", Shortcut: "a", View: messages.ViewAsk},
			{Label: "Documents", Hint: "browse chunks and delete documents", Shortcut: "d", View: messages.ViewDocuments},
			{Label: "Settings", Hint: "providers and retrieval tuning", Shortcut: "s", View: messages.ViewSettings},
			{Label: "Help", Hint: "key bindings", Shortcut: "?", View: messages.ViewHelp},
			{Label: "Quit", Shortcut: "q", Quit: true},
		},
		width:  80,
		height: 24,
	}
}

// Init initialises the menu view.
func (v *View) Init() tea.Cmd {
	return nil
}

// Update handles navigation, shortcuts and library updates.
func (v *View) Update(msg tea.Msg) (*View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.SetDimensions(msg.Width, msg.Height)
		return v, nil

	case messages.DocumentsLoaded:
		v.SetLibrary(msg.Documents, msg.Err)
		return v, nil

	case tea.KeyMsg:
		switch key := msg.String(); key {
		case "up", "k":
			if v.selected > 0 {
				v.selected--
			}
		case "down", "j":
			if v.selected < len(v.items)-1 {
				v.selected++
			}
		case "enter":
			return v, v.choose(v.items[v.selected])
		default:
			for i, item := range v.items {
				if item.Shortcut == key {
					v.selected = i
					return v, v.choose(item)
				}
			}
		}
	}

	return v, nil
}

func (v *View) choose(item Item) tea.Cmd {
	if item.Quit {
		return tea.Quit
	}
	return func() tea.Msg {
		return messages.ViewChanged{View: item.View}
	}
}

// SetLibrary records the indexed documents shown in the summary line.
func (v *View) SetLibrary(docs []domain.Document, err error) {
	v.library = library{loaded: true, err: err}
	if err != nil {
		return
	}
	v.library.documents = len(docs)
	for i := range docs {
		v.library.chunks += docs[i].ChunkCount
	}
	// Documents arrive newest first.
	if len(docs) > 0 {
		v.library.newest = docs[0].Filename
	}
}

// View renders the menu.
func (v *View) View() string {
	if !v.ready {
		return "Initialising..."
	}

	var b strings.Builder
	b.WriteString(v.styles.Title.Render("sercha-rag"))
	b.WriteString("\n")
	b.WriteString(v.styles.Muted.Render("Answers from your documents"))
	b.WriteString("\n\n")
	b.WriteString(v.renderLibrary())
	b.WriteString("\n\n")

	for i, item := range v.items {
		line := fmt.Sprintf("[%s] %-10s", item.Shortcut, item.Label)
		if i == v.selected {
			b.WriteString(v.styles.Selected.Render("> " + line))
		} else {
			b.WriteString(v.styles.Normal.Render("  " + line))
		}
		if item.Hint != "" {
			b.WriteString(" " + v.styles.Muted.Render(item.Hint))
		}
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(v.styles.Help.Render("[j/k] Navigate  [Enter] Select  [q] Quit"))
	return b.String()
}

func (v *View) renderLibrary() string {
	lib := v.library
	switch {
	case !lib.loaded:
		return v.styles.Muted.Render("Loading library...")
	case lib.err != nil:
		return v.styles.Error.Render("Library unavailable: " + lib.err.Error())
	case lib.documents == 0:
		return v.styles.Warning.Render("No documents indexed yet. Run 'sercha-rag ingest <file>' to add some.")
	}
	noun := "documents"
	if lib.documents == 1 {
		noun = "document"
	}
	summary := fmt.Sprintf("%d %s, %d chunks indexed", lib.documents, noun, lib.chunks)
	return v.styles.Success.Render(summary) + v.styles.Muted.Render("  latest: ") + v.styles.Citation.Render(lib.newest)
}

// SetDimensions sets the view dimensions.
func (v *View) SetDimensions(width, height int) {
	v.width = width
	v.height = height
	v.ready = true
}

// Selected returns the currently selected index.
func (v *View) Selected() int {
	return v.selected
}
