// Package tui renders the workspace strip and feeds user intents back into
// the navigation engine. It owns presentation only; every navigation step
// goes through the debounced dispatch path so key repeat cannot double-step.
package tui

import (
	"sort"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/truncate"

	"github.com/codefionn/spacecycle/internal/config"
	"github.com/codefionn/spacecycle/internal/navigator"
)

const maxPillWidth = 14

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("170")).
			MarginLeft(2)

	modeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	pillStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("250")).
			Padding(0, 1)

	focusedPillStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("231")).
				Background(lipgloss.Color("62")).
				Bold(true).
				Padding(0, 1)

	previousPillStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("245")).
				Underline(true).
				Padding(0, 1)

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")).
			MarginLeft(2)

	emptyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			Italic(true).
			MarginLeft(2)

	overlayStyle = lipgloss.NewStyle().
			Border(lipgloss.NormalBorder()).
			BorderForeground(lipgloss.Color("241")).
			Padding(0, 1)
)

// WmInfo is the read-only window-manager surface the presentation layer
// uses; the navigation core never touches it.
type WmInfo interface {
	CurrentMode() (string, error)
	BindingsForMode(name string) (map[string]string, error)
}

type stateMsg navigator.State

type modeMsg string

type bindingsMsg map[string]string

// Model is the bubbletea model for the workspace strip.
type Model struct {
	state   navigator.State
	updates <-chan navigator.State

	trigger func(action string)
	reorder func([]string)
	info    WmInfo

	keymap       map[string]string // key string -> action
	helpKeys     helpKeymap
	mode         string
	bindings     map[string]string
	showBindings bool
	width        int
}

type helpKeymap struct {
	Help key.Binding
	Quit key.Binding
}

// New creates the model. trigger routes an action name into the debounced
// dispatch path; reorder feeds a new arrangement back into the engine.
func New(updates <-chan navigator.State, keymap map[string]string, trigger func(string), reorder func([]string), info WmInfo) *Model {
	if len(keymap) == 0 {
		keymap = config.DefaultKeybindings()
	}
	return &Model{
		updates: updates,
		trigger: trigger,
		reorder: reorder,
		info:    info,
		keymap:  keymap,
		helpKeys: helpKeymap{
			Help: key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "bindings")),
			Quit: key.NewBinding(key.WithKeys("q", "esc", "ctrl+c"), key.WithHelp("q", "quit")),
		},
	}
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.waitForState(), m.fetchMode())
}

func (m *Model) waitForState() tea.Cmd {
	return func() tea.Msg {
		s, ok := <-m.updates
		if !ok {
			return nil
		}
		return stateMsg(s)
	}
}

func (m *Model) fetchMode() tea.Cmd {
	if m.info == nil {
		return nil
	}
	return func() tea.Msg {
		mode, err := m.info.CurrentMode()
		if err != nil {
			return nil
		}
		return modeMsg(mode)
	}
}

func (m *Model) fetchBindings() tea.Cmd {
	if m.info == nil {
		return nil
	}
	mode := m.mode
	if mode == "" {
		mode = "main"
	}
	return func() tea.Msg {
		bindings, err := m.info.BindingsForMode(mode)
		if err != nil {
			return nil
		}
		return bindingsMsg(bindings)
	}
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case stateMsg:
		m.state = navigator.State(msg)
		return m, m.waitForState()

	case modeMsg:
		m.mode = string(msg)
		return m, nil

	case bindingsMsg:
		m.bindings = map[string]string(msg)
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// Any key dismisses the bindings overlay without reaching the strip.
	if m.showBindings {
		m.showBindings = false
		return m, nil
	}

	if key.Matches(msg, m.helpKeys.Help) {
		m.showBindings = true
		if m.bindings == nil {
			return m, m.fetchBindings()
		}
		return m, nil
	}
	if key.Matches(msg, m.helpKeys.Quit) {
		return m, tea.Quit
	}

	switch msg.String() {
	case "shift+left", "H":
		m.moveFocused(-1)
		return m, nil
	case "shift+right", "L":
		m.moveFocused(1)
		return m, nil
	}

	if action, ok := m.keymap[msg.String()]; ok {
		switch action {
		case config.ActionQuit:
			return m, tea.Quit
		case config.ActionBack, config.ActionForward, config.ActionToggle, config.ActionRefresh:
			if m.trigger != nil {
				m.trigger(action)
			}
		}
	}
	return m, nil
}

// moveFocused shifts the focused pill one slot left or right and feeds the
// new arrangement back into the engine. Focus itself is untouched.
func (m *Model) moveFocused(delta int) {
	if m.reorder == nil {
		return
	}
	n := len(m.state.Order)
	if n < 2 {
		return
	}
	idx := -1
	for i, id := range m.state.Order {
		if id == m.state.Focused {
			idx = i
			break
		}
	}
	if idx < 0 {
		return
	}
	target := idx + delta
	if target < 0 || target >= n {
		return
	}

	reordered := append([]string(nil), m.state.Order...)
	reordered[idx], reordered[target] = reordered[target], reordered[idx]
	m.state.Order = reordered
	m.reorder(reordered)
}

// View implements tea.Model.
func (m *Model) View() string {
	var b strings.Builder

	header := titleStyle.Render("spacecycle")
	if m.mode != "" {
		header += modeStyle.Render("  mode:" + m.mode)
	}
	b.WriteString(header)
	b.WriteString("\n\n")

	if m.showBindings {
		b.WriteString(m.renderBindings())
		b.WriteString("\n")
		return b.String()
	}

	if len(m.state.Order) == 0 {
		b.WriteString(emptyStyle.Render("no workspaces yet"))
	} else {
		b.WriteString("  " + m.renderStrip())
	}
	b.WriteString("\n\n")
	b.WriteString(helpStyle.Render("h/l cycle · tab toggle · H/L reorder · r refresh · ? bindings · q quit"))
	b.WriteString("\n")
	return b.String()
}

func (m *Model) renderStrip() string {
	pills := make([]string, 0, len(m.state.Order))
	for _, id := range m.state.Order {
		label := truncate.StringWithTail(id, maxPillWidth, "…")
		switch id {
		case m.state.Focused:
			pills = append(pills, focusedPillStyle.Render(label))
		case m.state.Previous:
			pills = append(pills, previousPillStyle.Render(label))
		default:
			pills = append(pills, pillStyle.Render(label))
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, pills...)
}

func (m *Model) renderBindings() string {
	if len(m.bindings) == 0 {
		return overlayStyle.Render("no bindings reported") + "\n" + helpStyle.Render("press any key to dismiss")
	}

	keys := make([]string, 0, len(m.bindings))
	for k := range m.bindings {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var rows []string
	for _, k := range keys {
		rows = append(rows, k+"  →  "+m.bindings[k])
	}
	return overlayStyle.Render(strings.Join(rows, "\n")) + "\n" + helpStyle.Render("press any key to dismiss")
}
