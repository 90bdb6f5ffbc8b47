// Package styles provides colour themes and styling for the TUI.
package styles

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
)

// Theme is the colour palette of the chat interface.
type Theme struct {
	Accent    lipgloss.Color // titles and selection
	Citation  lipgloss.Color // source markers and filenames
	Text      lipgloss.Color
	Dim       lipgloss.Color // secondary text
	Panel     lipgloss.Color // status bar background
	Frame     lipgloss.Color // borders
	Success   lipgloss.Color
	Warning   lipgloss.Color
	Error     lipgloss.Color
	Highlight lipgloss.Color // high-scoring chunks
}

// DefaultTheme returns the dark palette used by sercha-rag.
func DefaultTheme() *Theme {
	return &Theme{
		Accent:    lipgloss.Color("#7C3AED"),
		Citation:  lipgloss.Color("#06B6D4"),
		Text:      lipgloss.Color("#CDD6F4"),
		Dim:       lipgloss.Color("#6C7086"),
		Panel:     lipgloss.Color("#181825"),
		Frame:     lipgloss.Color("#45475A"),
		Success:   lipgloss.Color("#A6E3A1"),
		Warning:   lipgloss.Color("#F9E2AF"),
		Error:     lipgloss.Color("#F38BA8"),
		Highlight: lipgloss.Color("#FAB387"),
	}
}

// Styles contains the lipgloss styles shared by every view.
type Styles struct {
	theme *Theme

	Title    lipgloss.Style
	Subtitle lipgloss.Style
	Normal   lipgloss.Style
	Muted    lipgloss.Style
	Selected lipgloss.Style
	Help     lipgloss.Style

	Error   lipgloss.Style
	Success lipgloss.Style
	Warning lipgloss.Style

	InputField lipgloss.Style
	StatusBar  lipgloss.Style
	Border     lipgloss.Style

	// Answer renders generated text, indented under the question.
	Answer lipgloss.Style
	// Citation renders "[Source N]" markers and source filenames.
	Citation lipgloss.Style
	// Score renders a similarity score; StrongScore one at or above StrongScoreThreshold.
	Score       lipgloss.Style
	StrongScore lipgloss.Style
	// Dropped renders chunks that did not fit the context budget.
	Dropped lipgloss.Style
}

// StrongScoreThreshold is the cosine similarity from which a chunk is
// rendered as a strong match.
const StrongScoreThreshold = 0.75

// NewStyles builds styles from theme, falling back to DefaultTheme.
func NewStyles(theme *Theme) *Styles {
	if theme == nil {
		theme = DefaultTheme()
	}

	text := lipgloss.NewStyle().Foreground(theme.Text)
	dim := lipgloss.NewStyle().Foreground(theme.Dim)
	framed := lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(theme.Frame)

	return &Styles{
		theme: theme,

		Title:    lipgloss.NewStyle().Bold(true).Foreground(theme.Accent),
		Subtitle: lipgloss.NewStyle().Bold(true).Foreground(theme.Citation),
		Normal:   text,
		Muted:    dim,
		Selected: text.Bold(true).Background(theme.Accent),
		Help:     dim,

		Error:   lipgloss.NewStyle().Foreground(theme.Error),
		Success: lipgloss.NewStyle().Foreground(theme.Success),
		Warning: lipgloss.NewStyle().Foreground(theme.Warning),

		InputField: framed.Padding(0, 1),
		StatusBar:  dim.Background(theme.Panel).Padding(0, 1),
		Border:     framed,

		Answer:      text.PaddingLeft(2),
		Citation:    lipgloss.NewStyle().Foreground(theme.Citation).Italic(true),
		Score:       dim,
		StrongScore: lipgloss.NewStyle().Bold(true).Foreground(theme.Highlight),
		Dropped:     dim.Strikethrough(true),
	}
}

// DefaultStyles returns styles with the default theme.
func DefaultStyles() *Styles {
	return NewStyles(DefaultTheme())
}

// Theme returns the palette behind these styles.
func (s *Styles) Theme() *Theme {
	return s.theme
}

// RenderScore renders a similarity score, emphasising strong matches.
func (s *Styles) RenderScore(score float64) string {
	text := fmt.Sprintf("%.3f", score)
	if score >= StrongScoreThreshold {
		return s.StrongScore.Render(text)
	}
	return s.Score.Render(text)
}
