package ask

import (
	"context"
	"errors"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-rag/internal/adapters/driving/tui/components/status"
	"github.com/custodia-labs/sercha-rag/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

// MockAnswerService implements driving.AnswerService for testing.
type MockAnswerService struct {
	AnswerFunc func(ctx context.Context, question string, opts domain.AnswerOptions) (*domain.Message, error)
	lastOpts   domain.AnswerOptions
}

func (m *MockAnswerService) Answer(
	ctx context.Context, question string, opts domain.AnswerOptions,
) (*domain.Message, error) {
	m.lastOpts = opts
	if m.AnswerFunc != nil {
		return m.AnswerFunc(ctx, question, opts)
	}
	return &domain.Message{
		Role:    domain.RoleAssistant,
		Text:    "Keys rotate every 90 days [Source 1].",
		Sources: []string{"keys.md"},
		State:   domain.AnswerCompleted,
	}, nil
}

func typeText(v *View, text string) *View {
	for _, r := range text {
		v, _ = v.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}
	return v
}

func newReadyView(svc *MockAnswerService) *View {
	v := NewView(nil, nil, svc)
	v.SetDimensions(100, 40)
	return v
}

func TestNewView(t *testing.T) {
	v := NewView(nil, nil, &MockAnswerService{})

	require.NotNil(t, v)
	assert.True(t, v.InputFocused())
	assert.False(t, v.Ready())
	assert.Nil(t, v.Answer())
	assert.Equal(t, "Initialising...", v.View())
}

func TestView_Typing(t *testing.T) {
	v := newReadyView(&MockAnswerService{})

	v = typeText(v, "why")

	assert.Equal(t, "why", v.Question())
}

func TestView_SubmitRunsAnswer(t *testing.T) {
	svc := &MockAnswerService{}
	v := newReadyView(svc)
	v = typeText(v, "when do keys rotate?")

	v, cmd := v.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	assert.True(t, v.Pending())

	msg := cmd()
	received, ok := msg.(messages.AnswerReceived)
	require.True(t, ok)
	assert.Equal(t, "when do keys rotate?", received.Question)
	assert.False(t, svc.lastOpts.Debug)

	v, _ = v.Update(received)
	assert.False(t, v.Pending())
	assert.False(t, v.InputFocused())
	require.NotNil(t, v.Answer())
	assert.Equal(t, 2, v.Conversation().Len())
	assert.Contains(t, v.View(), "Sources: keys.md")
}

func TestView_SubmitEmptyQuestion(t *testing.T) {
	v := newReadyView(&MockAnswerService{})
	v = typeText(v, "   ")

	_, cmd := v.Update(tea.KeyMsg{Type: tea.KeyEnter})

	assert.Nil(t, cmd)
	assert.False(t, v.Pending())
}

func TestView_SubmitWhilePending(t *testing.T) {
	v := newReadyView(&MockAnswerService{})
	v = typeText(v, "first")
	v.Update(tea.KeyMsg{Type: tea.KeyEnter})

	// Still in input mode until the answer arrives.
	_, cmd := v.Update(tea.KeyMsg{Type: tea.KeyEnter})

	assert.Nil(t, cmd)
}

func TestView_DebugToggle(t *testing.T) {
	svc := &MockAnswerService{
		AnswerFunc: func(_ context.Context, _ string, opts domain.AnswerOptions) (*domain.Message, error) {
			return &domain.Message{
				Role:    domain.RoleAssistant,
				Text:    "answer",
				Sources: []string{"a.md"},
				Debug: &domain.DebugTrace{
					FullPrompt: "prompt",
					RelevantChunks: []domain.TracedChunk{
						{Content: "kept", Metadata: domain.ChunkMetadata{Filename: "a.md"}, Citation: 1},
						{Content: "gone", Metadata: domain.ChunkMetadata{Filename: "b.md"}, Dropped: true},
					},
				},
			}, nil
		},
	}
	v := newReadyView(svc)

	v, cmd := v.Update(tea.KeyMsg{Type: tea.KeyCtrlD})
	assert.Nil(t, cmd)
	assert.True(t, v.DebugEnabled())
	assert.Empty(t, v.Question(), "debug key must not be typed")

	v = typeText(v, "q")
	v, cmd = v.Update(tea.KeyMsg{Type: tea.KeyEnter})
	v, _ = v.Update(cmd())

	assert.True(t, svc.lastOpts.Debug)
	view := v.View()
	assert.Contains(t, view, "[Source 1] a.md")
	assert.Contains(t, view, "[dropped] b.md")
	assert.Contains(t, view, "Answered from 1 chunks")
}

func TestView_AnswerError(t *testing.T) {
	svc := &MockAnswerService{
		AnswerFunc: func(context.Context, string, domain.AnswerOptions) (*domain.Message, error) {
			return nil, &domain.AnswerError{Stage: domain.AnswerGenerating, Err: domain.ErrGenerationTimeout}
		},
	}
	v := newReadyView(svc)
	v = typeText(v, "q")
	v, cmd := v.Update(tea.KeyMsg{Type: tea.KeyEnter})

	v, _ = v.Update(cmd())

	require.Error(t, v.Err())
	assert.True(t, errors.Is(v.Err(), domain.ErrGenerationTimeout))
	assert.Equal(t, status.StateError, v.statusbar.State())
	assert.True(t, v.InputFocused(), "input keeps focus so the question can be retried")
	assert.Contains(t, v.View(), "Error:")
}

func TestView_NoAnswerService(t *testing.T) {
	v := NewView(nil, nil, nil)
	v.SetDimensions(80, 24)
	v = typeText(v, "q")

	v, cmd := v.Update(tea.KeyMsg{Type: tea.KeyEnter})
	msg := cmd()

	errMsg, ok := msg.(messages.ErrorOccurred)
	require.True(t, ok)
	assert.ErrorIs(t, errMsg.Err, ErrNoAnswerService)

	v, _ = v.Update(errMsg)
	assert.False(t, v.Pending())
}

func TestView_NewQuestion(t *testing.T) {
	v := newReadyView(&MockAnswerService{})
	v = typeText(v, "q")
	v, cmd := v.Update(tea.KeyMsg{Type: tea.KeyEnter})
	v, _ = v.Update(cmd())
	require.False(t, v.InputFocused())

	v, _ = v.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'n'}})

	assert.True(t, v.InputFocused())
	assert.Empty(t, v.Question())
	assert.NotNil(t, v.Answer(), "previous answer stays visible")
}

func TestView_NoContextAnswer(t *testing.T) {
	svc := &MockAnswerService{
		AnswerFunc: func(context.Context, string, domain.AnswerOptions) (*domain.Message, error) {
			return &domain.Message{Role: domain.RoleAssistant, Text: "no docs", NoContext: true}, nil
		},
	}
	v := newReadyView(svc)
	v = typeText(v, "q")
	v, cmd := v.Update(tea.KeyMsg{Type: tea.KeyEnter})
	v, _ = v.Update(cmd())

	assert.Contains(t, v.View(), "Answered without context")
}

func TestView_EscReturnsToMenu(t *testing.T) {
	v := newReadyView(&MockAnswerService{})

	_, cmd := v.Update(tea.KeyMsg{Type: tea.KeyEsc})
	require.NotNil(t, cmd)

	assert.Equal(t, messages.ViewChanged{View: messages.ViewMenu}, cmd())
}

func TestView_Reset(t *testing.T) {
	v := newReadyView(&MockAnswerService{})
	v = typeText(v, "q")
	v.Update(messages.ErrorOccurred{Err: errors.New("boom")})

	v.Reset()

	assert.True(t, v.InputFocused())
	assert.Empty(t, v.Question())
	assert.NoError(t, v.Err())
}

func TestView_WithContext(t *testing.T) {
	type key string
	ctx := context.WithValue(context.Background(), key("k"), "v")
	var seen context.Context
	svc := &MockAnswerService{
		AnswerFunc: func(ctx context.Context, _ string, _ domain.AnswerOptions) (*domain.Message, error) {
			seen = ctx
			return &domain.Message{Role: domain.RoleAssistant}, nil
		},
	}
	v := newReadyView(svc).WithContext(ctx)
	v = typeText(v, "q")

	_, cmd := v.Update(tea.KeyMsg{Type: tea.KeyEnter})
	cmd()

	assert.Equal(t, "v", seen.Value(key("k")))
}
