// Package settings provides the settings configuration view for the TUI.
package settings

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/sercha-rag/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/sercha-rag/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driving"
)

// Section tracks which settings section is active.
type Section int

const (
	SectionOverview Section = iota
	SectionProvider
	SectionEdit
)

// Key constants for key handling.
const (
	keyDown  = "down"
	keyEnter = "enter"
	keyEsc   = "esc"
)

var errNoSettingsService = errors.New("settings service not available")

// View is the settings configuration view.
type View struct {
	styles          *styles.Styles
	settingsService driving.SettingsService

	values []domain.SettingValue
	loaded bool
	err    error
	notice string

	// Navigation state
	section  Section
	selected int // index into values on the overview
	choice   int // index into providers on the picker

	// providerGroup is "embedding" or "llm" while picking a provider.
	providerGroup string
	editKey       string
	editInput     textinput.Model

	width  int
	height int
	ready  bool
}

// NewView creates a new settings view.
func NewView(s *styles.Styles, settingsService driving.SettingsService) *View {
	if s == nil {
		s = styles.DefaultStyles()
	}

	editInput := textinput.New()
	editInput.CharLimit = 512

	return &View{
		styles:          s,
		settingsService: settingsService,
		section:         SectionOverview,
		editInput:       editInput,
	}
}

// Init initialises the view and loads settings.
func (v *View) Init() tea.Cmd {
	return v.loadSettings()
}

// loadSettings returns a command that loads every setting.
func (v *View) loadSettings() tea.Cmd {
	svc := v.settingsService
	return func() tea.Msg {
		if svc == nil {
			return messages.SettingsLoaded{Err: errNoSettingsService}
		}
		values, err := svc.Describe()
		return messages.SettingsLoaded{Values: values, Err: err}
	}
}

// saveSettings writes key/value pairs in order, stopping at the first error.
func (v *View) saveSettings(pairs ...string) tea.Cmd {
	svc := v.settingsService
	return func() tea.Msg {
		if svc == nil {
			return messages.SettingsSaved{Err: errNoSettingsService}
		}
		for i := 0; i+1 < len(pairs); i += 2 {
			if err := svc.Set(pairs[i], pairs[i+1]); err != nil {
				return messages.SettingsSaved{Key: pairs[i], Err: err}
			}
		}
		return messages.SettingsSaved{Key: pairs[0]}
	}
}

// Update handles messages for the settings view.
func (v *View) Update(msg tea.Msg) (*View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.SetDimensions(msg.Width, msg.Height)
		return v, nil

	case messages.SettingsLoaded:
		if msg.Err != nil {
			v.err = msg.Err
			return v, nil
		}
		v.values = msg.Values
		v.loaded = true
		v.err = nil
		if v.selected >= len(v.values) {
			v.selected = 0
		}
		return v, nil

	case messages.SettingsSaved:
		if msg.Err != nil {
			v.err = msg.Err
			return v, nil
		}
		v.err = nil
		v.notice = "Saved " + msg.Key
		return v, v.loadSettings()

	case tea.KeyMsg:
		return v.handleKeyMsg(msg)
	}

	return v, nil
}

// handleKeyMsg handles key presses based on current section.
func (v *View) handleKeyMsg(msg tea.KeyMsg) (*View, tea.Cmd) {
	if msg.String() == keyEsc {
		if v.section == SectionOverview {
			return v, func() tea.Msg {
				return messages.ViewChanged{View: messages.ViewMenu}
			}
		}
		v.closeEditor()
		v.section = SectionOverview
		return v, nil
	}

	switch v.section {
	case SectionOverview:
		return v.handleOverviewKeys(msg)
	case SectionProvider:
		return v.handleProviderKeys(msg)
	case SectionEdit:
		return v.handleEditKeys(msg)
	}
	return v, nil
}

func (v *View) handleOverviewKeys(msg tea.KeyMsg) (*View, tea.Cmd) {
	switch msg.String() {
	case "up", "k":
		if v.selected > 0 {
			v.selected--
		}
	case keyDown, "j":
		if v.selected < len(v.values)-1 {
			v.selected++
		}
	case keyEnter:
		if v.selected < 0 || v.selected >= len(v.values) {
			return v, nil
		}
		v.notice = ""
		setting := v.values[v.selected]
		if group, ok := providerGroup(setting.Key); ok {
			v.providerGroup = group
			v.section = SectionProvider
			v.choice = indexOf(v.providers(), domain.AIProvider(setting.Value))
			return v, nil
		}
		return v, v.openEditor(setting)
	}
	return v, nil
}

func (v *View) handleProviderKeys(msg tea.KeyMsg) (*View, tea.Cmd) {
	providers := v.providers()

	switch msg.String() {
	case "up", "k":
		if v.choice > 0 {
			v.choice--
		}
	case keyDown, "j":
		if v.choice < len(providers)-1 {
			v.choice++
		}
	case keyEnter:
		if v.choice < 0 || v.choice >= len(providers) {
			return v, nil
		}
		provider := providers[v.choice]
		model := v.defaultModels()[provider]
		group := v.providerGroup
		v.section = SectionOverview

		save := v.saveSettings(group+".provider", string(provider), group+".model", model)
		if provider.RequiresAPIKey() && v.value(group+".api_key") == "" {
			// Ask for the key straight away.
			return v, tea.Batch(save, v.openEditor(domain.SettingValue{Key: group + ".api_key", Secret: true}))
		}
		return v, save
	}
	return v, nil
}

func (v *View) handleEditKeys(msg tea.KeyMsg) (*View, tea.Cmd) {
	if msg.String() == keyEnter {
		key := v.editKey
		value := strings.TrimSpace(v.editInput.Value())
		v.closeEditor()
		v.section = SectionOverview
		return v, v.saveSettings(key, value)
	}

	var cmd tea.Cmd
	v.editInput, cmd = v.editInput.Update(msg)
	return v, cmd
}

// openEditor switches to the text editor for one setting.
func (v *View) openEditor(setting domain.SettingValue) tea.Cmd {
	v.section = SectionEdit
	v.editKey = setting.Key
	v.editInput.Reset()
	if setting.Secret {
		v.editInput.EchoMode = textinput.EchoPassword
		v.editInput.Placeholder = "Enter API key"
	} else {
		v.editInput.EchoMode = textinput.EchoNormal
		v.editInput.Placeholder = setting.Key
		v.editInput.SetValue(setting.Value)
	}
	return v.editInput.Focus()
}

func (v *View) closeEditor() {
	v.editKey = ""
	v.editInput.Reset()
	v.editInput.Blur()
}

// providerGroup reports whether key selects a provider, and for which group.
func providerGroup(key string) (string, bool) {
	switch key {
	case "embedding.provider":
		return "embedding", true
	case "llm.provider":
		return "llm", true
	}
	return "", false
}

func (v *View) providers() []domain.AIProvider {
	if v.providerGroup == "embedding" {
		return domain.AllEmbeddingProviders()
	}
	return domain.AllLLMProviders()
}

func (v *View) defaultModels() map[domain.AIProvider]string {
	if v.providerGroup == "embedding" {
		return domain.DefaultEmbeddingModels()
	}
	return domain.DefaultLLMModels()
}

// value returns the loaded value of key.
func (v *View) value(key string) string {
	for _, s := range v.values {
		if s.Key == key {
			return s.Value
		}
	}
	return ""
}

func indexOf(providers []domain.AIProvider, p domain.AIProvider) int {
	for i := range providers {
		if providers[i] == p {
			return i
		}
	}
	return 0
}

// View renders the settings view.
func (v *View) View() string {
	var b strings.Builder

	b.WriteString(v.styles.Title.Render("Settings"))
	b.WriteString("\n\n")

	if v.err != nil {
		b.WriteString(v.styles.Error.Render(fmt.Sprintf("Error: %s", v.err.Error())))
		b.WriteString("\n\n")
	}

	if !v.loaded {
		if v.err == nil {
			b.WriteString(v.styles.Muted.Render("Loading settings..."))
		}
		return b.String()
	}

	switch v.section {
	case SectionOverview:
		b.WriteString(v.renderOverview())
	case SectionProvider:
		b.WriteString(v.renderProviderSelect())
	case SectionEdit:
		b.WriteString(v.renderEditor())
	}

	b.WriteString("\n")
	b.WriteString(v.renderHelp())

	return b.String()
}

func (v *View) renderOverview() string {
	var b strings.Builder

	// Keep the selected row on screen.
	visible := max(v.height-10, 5)
	start := 0
	if v.selected >= visible {
		start = v.selected - visible + 1
	}
	end := min(start+visible, len(v.values))

	section := ""
	for i := start; i < end; i++ {
		s := v.values[i]
		if group, _, _ := strings.Cut(s.Key, "."); group != section {
			section = group
			b.WriteString(v.styles.Subtitle.Render("[" + section + "]"))
			b.WriteString("\n")
		}

		value := s.Value
		switch {
		case value == "":
			value = "(not set)"
		case s.Secret:
			value = "********"
		}

		indicator := "  "
		if i == v.selected {
			indicator = "> "
		}
		line := fmt.Sprintf("%s%-28s %s", indicator, s.Key, value)
		if i == v.selected {
			b.WriteString(v.styles.Selected.Render(line))
		} else {
			b.WriteString(v.styles.Normal.Render(line))
		}
		if s.Origin != "" {
			b.WriteString(v.styles.Muted.Render("  " + s.Origin))
		}
		b.WriteString("\n")
	}

	b.WriteString("\n")
	if v.notice != "" {
		b.WriteString(v.styles.Success.Render(v.notice))
		b.WriteString("\n")
	}
	if v.settingsService != nil {
		if err := v.settingsService.Validate(); err != nil {
			b.WriteString(v.styles.Warning.Render(fmt.Sprintf("Warning: %s", err.Error())))
		} else {
			b.WriteString(v.styles.Success.Render("Configuration is valid"))
		}
		b.WriteString("\n")
	}

	return b.String()
}

func (v *View) renderProviderSelect() string {
	var b strings.Builder

	title := "Select Embedding Provider"
	if v.providerGroup == "llm" {
		title = "Select LLM Provider"
	}
	b.WriteString(v.styles.Subtitle.Render(title))
	b.WriteString("\n\n")

	current := domain.AIProvider(v.value(v.providerGroup + ".provider"))
	defaults := v.defaultModels()
	for i, provider := range v.providers() {
		indicator := "  "
		if i == v.choice {
			indicator = "> "
		}

		marker := ""
		if provider == current {
			marker = v.styles.Success.Render(" (current)")
		}

		line := fmt.Sprintf("%s%s", indicator, provider.Description())
		if i == v.choice {
			b.WriteString(v.styles.Selected.Render(line))
		} else {
			b.WriteString(v.styles.Normal.Render(line))
		}
		b.WriteString(marker)
		b.WriteString("\n")

		details := []string{}
		if model, ok := defaults[provider]; ok {
			details = append(details, "model "+model)
		}
		if provider.RequiresAPIKey() {
			details = append(details, "needs API key")
		}
		if provider.IsLocal() {
			details = append(details, "runs locally")
		}
		if len(details) > 0 {
			b.WriteString(v.styles.Muted.Render("    " + strings.Join(details, ", ")))
			b.WriteString("\n")
		}
	}

	return b.String()
}

func (v *View) renderEditor() string {
	var b strings.Builder
	b.WriteString(v.styles.Subtitle.Render("Edit " + v.editKey))
	b.WriteString("\n\n")
	b.WriteString(v.editInput.View())
	b.WriteString("\n")
	return b.String()
}

func (v *View) renderHelp() string {
	switch v.section {
	case SectionOverview:
		return v.styles.Help.Render("[j/k] navigate  [enter] edit  [esc] back")
	case SectionProvider:
		return v.styles.Help.Render("[j/k] navigate  [enter] select  [esc] back")
	case SectionEdit:
		return v.styles.Help.Render("[enter] save  [esc] cancel")
	default:
		return ""
	}
}

// SetDimensions sets the view dimensions.
func (v *View) SetDimensions(width, height int) {
	v.width = width
	v.height = height
	v.ready = true
}

// Reset resets the view to initial state.
func (v *View) Reset() {
	v.section = SectionOverview
	v.selected = 0
	v.choice = 0
	v.providerGroup = ""
	v.notice = ""
	v.err = nil
	v.closeEditor()
}

// Section returns the active section.
func (v *View) Section() Section {
	return v.section
}

// Values returns the loaded settings.
func (v *View) Values() []domain.SettingValue {
	return v.values
}

// EditKey returns the key being edited, empty outside the editor.
func (v *View) EditKey() string {
	return v.editKey
}

// Err returns the last error.
func (v *View) Err() error {
	return v.err
}
