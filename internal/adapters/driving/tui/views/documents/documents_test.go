package documents

import (
	"context"
	"errors"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-rag/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/sercha-rag/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

// MockIngestionService implements driving.IngestionService for testing.
type MockIngestionService struct {
	ListFunc   func(ctx context.Context) ([]domain.Document, error)
	DeleteFunc func(ctx context.Context, documentID string) error
	deleted    []string
}

func (m *MockIngestionService) Ingest(context.Context, domain.IngestRequest) (*domain.Document, error) {
	return nil, nil
}

func (m *MockIngestionService) IngestFile(context.Context, *domain.RawDocument) (*domain.Document, error) {
	return nil, nil
}

func (m *MockIngestionService) Delete(ctx context.Context, documentID string) error {
	m.deleted = append(m.deleted, documentID)
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, documentID)
	}
	return nil
}

func (m *MockIngestionService) DeleteByFilename(context.Context, string) error {
	return nil
}

func (m *MockIngestionService) Get(context.Context, string) (*domain.Document, error) {
	return nil, domain.ErrNotFound
}

func (m *MockIngestionService) List(ctx context.Context) ([]domain.Document, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx)
	}
	return testDocuments(), nil
}

func testDocuments() []domain.Document {
	uploaded := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	return []domain.Document{
		{ID: "doc-1", Filename: "keys.md", ChunkCount: 4, UploadedAt: uploaded},
		{ID: "doc-2", Filename: "handbook.pdf", ChunkCount: 12, UploadedAt: uploaded},
	}
}

// loadedView returns a view that has processed its initial load.
func loadedView(t *testing.T, svc *MockIngestionService) *View {
	t.Helper()
	v := NewView(styles.DefaultStyles(), svc)
	v.SetDimensions(100, 30)
	cmd := v.Init()
	require.NotNil(t, cmd)
	v, _ = v.Update(cmd())
	return v
}

func key(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestNewView(t *testing.T) {
	v := NewView(nil, &MockIngestionService{})

	require.NotNil(t, v)
	assert.Empty(t, v.Documents())
	assert.Nil(t, v.SelectedDocument())
}

func TestView_InitLoadsDocuments(t *testing.T) {
	v := loadedView(t, &MockIngestionService{})

	assert.Len(t, v.Documents(), 2)
	assert.NoError(t, v.Err())
	view := v.View()
	assert.Contains(t, view, "Documents (2)")
	assert.Contains(t, view, "keys.md")
	assert.Contains(t, view, "12 chunks")
}

func TestView_LoadError(t *testing.T) {
	svc := &MockIngestionService{
		ListFunc: func(context.Context) ([]domain.Document, error) {
			return nil, domain.ErrStoreUnavailable
		},
	}

	v := loadedView(t, svc)

	assert.ErrorIs(t, v.Err(), domain.ErrStoreUnavailable)
	assert.Contains(t, v.View(), "Error:")
}

func TestView_NoService(t *testing.T) {
	v := NewView(nil, nil)
	v, _ = v.Update(v.Init()())

	assert.ErrorIs(t, v.Err(), errNoIngestionService)
}

func TestView_Empty(t *testing.T) {
	svc := &MockIngestionService{
		ListFunc: func(context.Context) ([]domain.Document, error) { return nil, nil },
	}

	v := loadedView(t, svc)

	assert.Contains(t, v.View(), "No documents indexed")
}

func TestView_Navigation(t *testing.T) {
	v := loadedView(t, &MockIngestionService{})

	v, _ = v.Update(key("j"))
	assert.Equal(t, 1, v.SelectedIndex())

	v, _ = v.Update(key("down"))
	assert.Equal(t, 1, v.SelectedIndex(), "selection stops at the last document")

	v, _ = v.Update(key("k"))
	assert.Equal(t, 0, v.SelectedIndex())
}

func TestView_ShowDetails(t *testing.T) {
	v := loadedView(t, &MockIngestionService{})

	v, _ = v.Update(key("enter"))
	require.True(t, v.IsShowingMenu())
	assert.Contains(t, v.View(), "Actions for: keys.md")

	v, cmd := v.Update(key("enter"))
	require.NotNil(t, cmd)
	assert.False(t, v.IsShowingMenu())

	selected, ok := cmd().(messages.DocumentSelected)
	require.True(t, ok)
	assert.Equal(t, "doc-1", selected.Document.ID)
}

func TestView_DeleteConfirmed(t *testing.T) {
	svc := &MockIngestionService{}
	v := loadedView(t, svc)
	v, _ = v.Update(key("j"))

	v, _ = v.Update(key("x"))
	require.True(t, v.IsConfirming())
	assert.Contains(t, v.View(), "Delete handbook.pdf and its 12 chunks?")

	v, cmd := v.Update(key("y"))
	require.NotNil(t, cmd)
	deleted, ok := cmd().(messages.DocumentDeleted)
	require.True(t, ok)
	assert.Equal(t, "doc-2", deleted.DocumentID)
	assert.Equal(t, []string{"doc-2"}, svc.deleted)

	v, cmd = v.Update(deleted)
	require.NotNil(t, cmd, "list reloads after delete")
	assert.Contains(t, v.notice, "doc-2")
}

func TestView_DeleteCancelled(t *testing.T) {
	svc := &MockIngestionService{}
	v := loadedView(t, svc)

	v, _ = v.Update(key("x"))
	v, cmd := v.Update(key("n"))

	assert.Nil(t, cmd)
	assert.False(t, v.IsConfirming())
	assert.Empty(t, svc.deleted)
}

func TestView_DeleteFromMenu(t *testing.T) {
	v := loadedView(t, &MockIngestionService{})

	v, _ = v.Update(key("enter"))
	v, _ = v.Update(key("j"))
	v, _ = v.Update(key("enter"))

	assert.True(t, v.IsConfirming())
}

func TestView_DeleteError(t *testing.T) {
	v := loadedView(t, &MockIngestionService{})

	v, cmd := v.Update(messages.DocumentDeleted{DocumentID: "doc-1", Err: errors.New("locked")})

	assert.Nil(t, cmd)
	assert.EqualError(t, v.Err(), "locked")
}

func TestView_SelectionClampedAfterReload(t *testing.T) {
	v := loadedView(t, &MockIngestionService{})
	v, _ = v.Update(key("j"))

	v, _ = v.Update(messages.DocumentsLoaded{Documents: testDocuments()[:1]})

	assert.Equal(t, 0, v.SelectedIndex())
}

func TestView_Reload(t *testing.T) {
	v := loadedView(t, &MockIngestionService{})

	v, cmd := v.Update(key("r"))

	require.NotNil(t, cmd)
	assert.Contains(t, v.View(), "Loading documents...")
}

func TestView_EscReturnsToMenu(t *testing.T) {
	v := loadedView(t, &MockIngestionService{})

	_, cmd := v.Update(key("esc"))
	require.NotNil(t, cmd)

	assert.Equal(t, messages.ViewChanged{View: messages.ViewMenu}, cmd())
}
