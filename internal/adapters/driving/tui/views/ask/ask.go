// Package ask provides the question and answer view for the TUI.
package ask

import (
	"context"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/sercha-rag/internal/adapters/driving/tui/components/input"
	"github.com/custodia-labs/sercha-rag/internal/adapters/driving/tui/components/list"
	"github.com/custodia-labs/sercha-rag/internal/adapters/driving/tui/components/status"
	"github.com/custodia-labs/sercha-rag/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/sercha-rag/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/sercha-rag/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driving"
)

// View is the ask view: a question input, the latest answer with its
// sources, and the retrieved chunks when debug is on.
type View struct {
	styles    *styles.Styles
	keymap    *keymap.KeyMap
	input     *input.QuestionInput
	chunks    *list.ChunkList
	statusbar *status.Bar

	answerService driving.AnswerService
	ctx           context.Context

	// conversation is kept for the session only.
	conversation domain.Conversation
	answer       *domain.Message
	pending      bool
	debug        bool

	width      int
	height     int
	ready      bool
	err        error
	focusInput bool
}

// NewView creates a new ask view.
func NewView(s *styles.Styles, km *keymap.KeyMap, answerService driving.AnswerService) *View {
	if s == nil {
		s = styles.DefaultStyles()
	}
	if km == nil {
		km = keymap.DefaultKeyMap()
	}

	return &View{
		styles:        s,
		keymap:        km,
		input:         input.NewQuestionInput(s),
		chunks:        list.NewChunkList(s),
		statusbar:     status.NewBar(s, km),
		answerService: answerService,
		ctx:           context.Background(),
		width:         80,
		height:        24,
		focusInput:    true,
	}
}

// WithContext sets the context used for answer requests.
func (v *View) WithContext(ctx context.Context) *View {
	v.ctx = ctx
	return v
}

// Init initialises the view.
func (v *View) Init() tea.Cmd {
	return v.input.Init()
}

// Update handles messages for the ask view.
func (v *View) Update(msg tea.Msg) (*View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.SetDimensions(msg.Width, msg.Height)
		return v, nil

	case tea.KeyMsg:
		return v.handleKeyMsg(msg)

	case messages.AnswerReceived:
		v.handleAnswer(msg)
		return v, nil

	case messages.ErrorOccurred:
		v.pending = false
		v.err = msg.Err
		v.statusbar.SetState(status.StateError)
		v.statusbar.SetMessage(msg.Err.Error())
		return v, nil
	}

	var cmd tea.Cmd
	v.input, cmd = v.input.Update(msg)
	return v, cmd
}

// handleKeyMsg processes keyboard input.
func (v *View) handleKeyMsg(msg tea.KeyMsg) (*View, tea.Cmd) {
	if msg.Type == tea.KeyEsc {
		return v, func() tea.Msg {
			return messages.ViewChanged{View: messages.ViewMenu}
		}
	}

	if keymap.Matches(msg.String(), v.keymap.Debug) {
		v.debug = !v.debug
		v.statusbar.SetDebug(v.debug)
		return v, nil
	}

	if v.focusInput {
		if msg.Type == tea.KeyEnter {
			return v, v.submit()
		}
		var cmd tea.Cmd
		v.input, cmd = v.input.Update(msg)
		return v, cmd
	}

	// Answer mode: navigate retrieved chunks or start over.
	switch {
	case keymap.Matches(msg.String(), v.keymap.NewQuestion):
		v.focusInput = true
		v.input.SetValue("")
		return v, v.input.Focus()
	case keymap.Matches(msg.String(), v.keymap.Up):
		v.chunks.MoveUp()
	case keymap.Matches(msg.String(), v.keymap.Down):
		v.chunks.MoveDown()
	}
	return v, nil
}

// submit sends the typed question unless one is already in flight.
func (v *View) submit() tea.Cmd {
	question := strings.TrimSpace(v.input.Value())
	if question == "" || v.pending {
		return nil
	}

	v.pending = true
	v.err = nil
	v.statusbar.SetState(status.StateThinking)
	v.statusbar.SetMessage("")
	v.conversation.Append(domain.Message{Role: domain.RoleUser, Text: question, CreatedAt: time.Now()})
	return v.performAsk(question, v.debug)
}

// performAsk runs the answer pipeline off the UI loop.
func (v *View) performAsk(question string, debug bool) tea.Cmd {
	ctx := v.ctx
	svc := v.answerService
	return func() tea.Msg {
		if svc == nil {
			return messages.ErrorOccurred{Err: ErrNoAnswerService}
		}
		msg, err := svc.Answer(ctx, question, domain.AnswerOptions{Debug: debug})
		return messages.AnswerReceived{Question: question, Message: msg, Err: err}
	}
}

// handleAnswer shows a finished answer or its error.
func (v *View) handleAnswer(msg messages.AnswerReceived) {
	v.pending = false
	if msg.Err != nil {
		v.err = msg.Err
		v.statusbar.SetState(status.StateError)
		v.statusbar.SetMessage(msg.Err.Error())
		return
	}
	if msg.Message == nil {
		return
	}

	v.err = nil
	v.answer = msg.Message
	v.conversation.Append(*msg.Message)

	used := 0
	if msg.Message.Debug != nil {
		v.chunks.SetChunks(msg.Message.Debug.RelevantChunks)
		for _, c := range msg.Message.Debug.RelevantChunks {
			if !c.Dropped {
				used++
			}
		}
	} else {
		v.chunks.SetChunks(nil)
		used = len(msg.Message.Sources)
	}
	if msg.Message.NoContext {
		used = 0
	}

	v.statusbar.SetState(status.StateAnswered)
	v.statusbar.SetChunkCount(used)
	v.focusInput = false
	v.input.Blur()
}

// View renders the ask view.
func (v *View) View() string {
	if !v.ready {
		return "Initialising..."
	}

	sections := make([]string, 0, 12)
	sections = append(sections, v.styles.Title.Render("sercha-rag"), "", v.input.View(), "")

	if v.err != nil {
		sections = append(sections, v.styles.Error.Render("Error: "+v.err.Error()), "")
	}

	if v.answer != nil {
		text := lipgloss.NewStyle().Width(max(v.width-4, 20)).Render(v.answer.Text)
		sections = append(sections, v.styles.Answer.Render(text), "")
		if len(v.answer.Sources) > 0 {
			sections = append(sections,
				v.styles.Citation.Render("Sources: "+strings.Join(v.answer.Sources, ", ")), "")
		}
		if v.answer.Debug != nil {
			sections = append(sections, v.chunks.View())
		}
	}

	sections = append(sections, "", v.statusbar.View())
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

// SetDimensions sets the view dimensions.
func (v *View) SetDimensions(width, height int) {
	v.width = width
	v.height = height
	v.ready = true

	v.input.SetWidth(width)
	v.chunks.SetDimensions(width, height/2)
	v.statusbar.SetWidth(width)
}

// Ready returns whether the view is ready to render.
func (v *View) Ready() bool {
	return v.ready
}

// Question returns the text currently in the input.
func (v *View) Question() string {
	return v.input.Value()
}

// Answer returns the latest answer, or nil before the first one.
func (v *View) Answer() *domain.Message {
	return v.answer
}

// Conversation returns the session's turns.
func (v *View) Conversation() *domain.Conversation {
	return &v.conversation
}

// Pending reports whether a question is awaiting its answer.
func (v *View) Pending() bool {
	return v.pending
}

// DebugEnabled reports whether answers are requested with a trace.
func (v *View) DebugEnabled() bool {
	return v.debug
}

// Err returns the current error, if any.
func (v *View) Err() error {
	return v.err
}

// InputFocused returns whether the input has focus.
func (v *View) InputFocused() bool {
	return v.focusInput
}

// Reset clears the input and returns to input mode. The conversation
// and last answer are kept.
func (v *View) Reset() {
	v.focusInput = true
	v.input.Focus()
	v.input.SetValue("")
	v.err = nil
	v.statusbar.SetState(status.StateReady)
	v.statusbar.SetMessage("")
}
