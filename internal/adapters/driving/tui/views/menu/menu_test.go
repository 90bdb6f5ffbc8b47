package menu

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-rag/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/sercha-rag/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

func TestNewView(t *testing.T) {
	v := NewView(styles.DefaultStyles())

	require.NotNil(t, v)
	assert.Equal(t, 0, v.Selected())
	assert.Len(t, v.items, 5)
	assert.Nil(t, v.Init())
}

func TestNewView_NilStyles(t *testing.T) {
	v := NewView(nil)

	assert.NotNil(t, v.styles)
}

func TestView_Items(t *testing.T) {
	v := NewView(nil)

	labels := make([]string, len(v.items))
	for i, item := range v.items {
		labels[i] = item.Label
	}
	assert.Equal(t, []string{"Ask", "Documents", "Settings", "Help", "Quit"}, labels)
	assert.True(t, v.items[4].Quit)
}

func TestView_Navigation(t *testing.T) {
	v := NewView(nil)

	v, _ = v.Update(tea.KeyMsg{Type: tea.KeyUp})
	assert.Equal(t, 0, v.Selected(), "selection stops at the top")

	v, _ = v.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'j'}})
	v, _ = v.Update(tea.KeyMsg{Type: tea.KeyDown})
	assert.Equal(t, 2, v.Selected())

	for i := 0; i < 10; i++ {
		v, _ = v.Update(tea.KeyMsg{Type: tea.KeyDown})
	}
	assert.Equal(t, 4, v.Selected(), "selection stops at the bottom")

	v, _ = v.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'k'}})
	assert.Equal(t, 3, v.Selected())
}

func TestView_EnterChangesView(t *testing.T) {
	testCases := []struct {
		downs int
		view  messages.ViewType
	}{
		{0, messages.ViewAsk},
		{1, messages.ViewDocuments},
		{2, messages.ViewSettings},
		{3, messages.ViewHelp},
	}

	for _, tc := range testCases {
		t.Run(tc.view.String(), func(t *testing.T) {
			v := NewView(nil)
			for i := 0; i < tc.downs; i++ {
				v, _ = v.Update(tea.KeyMsg{Type: tea.KeyDown})
			}

			_, cmd := v.Update(tea.KeyMsg{Type: tea.KeyEnter})
			require.NotNil(t, cmd)

			assert.Equal(t, messages.ViewChanged{View: tc.view}, cmd())
		})
	}
}

func TestView_QuitItem(t *testing.T) {
	v := NewView(nil)
	for i := 0; i < 4; i++ {
		v, _ = v.Update(tea.KeyMsg{Type: tea.KeyDown})
	}

	_, cmd := v.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)

	assert.Equal(t, tea.Quit(), cmd())
}

func TestView_QuitKey(t *testing.T) {
	v := NewView(nil)

	_, cmd := v.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}})
	require.NotNil(t, cmd)

	assert.Equal(t, tea.Quit(), cmd())
}

func TestView_Render(t *testing.T) {
	v := NewView(nil)
	assert.Equal(t, "Initialising...", v.View())

	v, _ = v.Update(tea.WindowSizeMsg{Width: 80, Height: 24})
	view := v.View()

	assert.Contains(t, view, "sercha-rag")
	assert.Contains(t, view, "> ")
	assert.Contains(t, view, "Ask")
	assert.Contains(t, view, "Documents")
}

func TestView_SetDimensions(t *testing.T) {
	v := NewView(nil)

	v.SetDimensions(120, 40)

	assert.Equal(t, 120, v.width)
	assert.Equal(t, 40, v.height)
	assert.NotEqual(t, "Initialising...", v.View())
}

func TestView_Shortcuts(t *testing.T) {
	testCases := []struct {
		key  rune
		view messages.ViewType
		idx  int
	}{
		{'a', messages.ViewAsk, 0},
		{'d', messages.ViewDocuments, 1},
		{'s', messages.ViewSettings, 2},
		{'?', messages.ViewHelp, 3},
	}

	for _, tc := range testCases {
		t.Run(string(tc.key), func(t *testing.T) {
			v := NewView(nil)

			v, cmd := v.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{tc.key}})
			require.NotNil(t, cmd)

			assert.Equal(t, tc.idx, v.Selected())
			assert.Equal(t, messages.ViewChanged{View: tc.view}, cmd())
		})
	}
}

func TestView_UnknownKeyIgnored(t *testing.T) {
	v := NewView(nil)

	v, cmd := v.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'z'}})

	assert.Nil(t, cmd)
	assert.Equal(t, 0, v.Selected())
}

func TestView_LibrarySummary(t *testing.T) {
	v := NewView(nil)
	v.SetDimensions(100, 30)
	assert.Contains(t, v.View(), "Loading library...")

	v, _ = v.Update(messages.DocumentsLoaded{Documents: []domain.Document{
		{ID: "2", Filename: "handbook.md", ChunkCount: 7},
		{ID: "1", Filename: "faq.txt", ChunkCount: 3},
	}})

	view := v.View()
	assert.Contains(t, view, "2 documents, 10 chunks indexed")
	assert.Contains(t, view, "handbook.md")
}

func TestView_LibraryEmpty(t *testing.T) {
	v := NewView(nil)
	v.SetDimensions(100, 30)

	v.SetLibrary(nil, nil)

	assert.Contains(t, v.View(), "No documents indexed yet")
}

func TestView_LibraryError(t *testing.T) {
	v := NewView(nil)
	v.SetDimensions(100, 30)

	v.SetLibrary(nil, domain.ErrStoreUnavailable)

	assert.Contains(t, v.View(), "Library unavailable")
}
