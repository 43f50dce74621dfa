// Package charm is the component based skin, built on bubbletea, bubbles and
// lipgloss: tabs, a masked password field, a spinner and toast notices.
package charm

import (
	"context"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/mrlokans/loginflow/internal/authflow"
)

// DefaultToastDuration is how long transient notices stay on screen.
const DefaultToastDuration = 3 * time.Second

type field int

const (
	fieldUsername field = iota
	fieldPassword
)

type stateMsg struct {
	state authflow.State
	cb    authflow.Callbacks
}

type navigatedMsg struct {
	target string
}

type toastExpiredMsg struct {
	id uint64
}

// submitDoneMsg reports that a Submit call returned.
type submitDoneMsg struct{}

// Options configure the model.
type Options struct {
	ToastDuration time.Duration
}

// Model is the bubbletea model. It mirrors controller state delivered through
// View and turns key presses into controller callbacks.
type Model struct {
	ctx   context.Context
	start func(context.Context)

	state     authflow.State
	cb        authflow.Callbacks
	haveState bool

	username textinput.Model
	password textinput.Model
	focus    field
	spinner  spinner.Model

	// pending holds input between Enter and the controller's answer, which
	// reaches the model asynchronously.
	pending bool

	toast         authflow.Notice
	toastID       uint64
	toastDuration time.Duration

	navigatedTo string
	aborted     bool
}

// NewModel builds the model. start runs the session probe once the program
// is up; it is normally Controller.Start.
func NewModel(ctx context.Context, start func(context.Context), opts Options) Model {
	if opts.ToastDuration <= 0 {
		opts.ToastDuration = DefaultToastDuration
	}

	username := textinput.New()
	username.Placeholder = "username"
	username.Prompt = ""
	username.CharLimit = 128
	username.Width = 28
	username.Focus()

	password := textinput.New()
	password.Placeholder = "password"
	password.Prompt = ""
	password.CharLimit = 128
	password.Width = 28
	password.EchoMode = textinput.EchoPassword
	password.EchoCharacter = '•'

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = mutedStyle

	return Model{
		ctx:           ctx,
		start:         start,
		username:      username,
		password:      password,
		spinner:       sp,
		toastDuration: opts.ToastDuration,
	}
}

// NavigatedTo is the target the flow navigated to, empty if it did not.
func (m Model) NavigatedTo() string {
	return m.navigatedTo
}

// Aborted reports whether the user quit before the flow finished.
func (m Model) Aborted() bool {
	return m.aborted
}

func (m Model) Init() tea.Cmd {
	ctx, start := m.ctx, m.start
	return tea.Batch(
		m.spinner.Tick,
		textinput.Blink,
		func() tea.Msg {
			if start != nil {
				start(ctx)
			}
			return nil
		},
	)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case stateMsg:
		return m.applyState(msg)

	case navigatedMsg:
		m.navigatedTo = msg.target
		return m, tea.Quit

	case submitDoneMsg:
		m.pending = false
		return m, nil

	case toastExpiredMsg:
		if msg.id == m.toastID {
			m.toast = authflow.Notice{}
		}
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	return m, nil
}

func (m Model) applyState(msg stateMsg) (tea.Model, tea.Cmd) {
	if m.haveState && msg.state.Version <= m.state.Version {
		return m, nil
	}
	prev := m.state
	m.state, m.cb, m.haveState = msg.state, msg.cb, true
	if m.locked() {
		m.syncInputs()
	}

	n := msg.state.Notice
	if !n.Transient || n.Empty() {
		return m, nil
	}
	if n == prev.Notice && msg.state.Attempt == prev.Attempt {
		return m, nil
	}

	m.toast = n
	m.toastID++
	id := m.toastID
	return m, tea.Tick(m.toastDuration, func(time.Time) tea.Msg {
		return toastExpiredMsg{id: id}
	})
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyCtrlC, tea.KeyEsc:
		m.aborted = true
		return m, tea.Quit
	}

	// Controls are disabled until the form shows, from Enter until the
	// submission is answered, and while the controller is locked.
	if !m.haveState || !m.state.ShowForm() || m.locked() || m.pending {
		return m, nil
	}

	switch msg.Type {
	case tea.KeyTab, tea.KeyShiftTab:
		m.cb.SetMode(m.state.Mode.Other())
		return m, nil

	case tea.KeyUp, tea.KeyDown:
		return m.toggleFocus(), nil

	case tea.KeyEnter:
		m.pending = true
		ctx, submit := m.ctx, m.cb.Submit
		return m, func() tea.Msg {
			submit(ctx)
			return submitDoneMsg{}
		}
	}

	var cmd tea.Cmd
	if m.focus == fieldUsername {
		before := m.username.Value()
		m.username, cmd = m.username.Update(msg)
		if v := m.username.Value(); v != before {
			m.cb.SetUsername(v)
		}
	} else {
		before := m.password.Value()
		m.password, cmd = m.password.Update(msg)
		if v := m.password.Value(); v != before {
			m.cb.SetPassword(v)
		}
	}
	return m, cmd
}

func (m Model) locked() bool {
	return m.state.Busy() || m.state.Status == authflow.StatusSucceeded
}

// syncInputs shows the values the controller holds. It only runs while the
// controller ignores input, so it cannot race with typing.
func (m *Model) syncInputs() {
	if m.username.Value() != m.state.Username {
		m.username.SetValue(m.state.Username)
	}
	if m.password.Value() != m.state.Password {
		m.password.SetValue(m.state.Password)
	}
}

func (m Model) toggleFocus() Model {
	if m.focus == fieldUsername {
		m.focus = fieldPassword
		m.username.Blur()
		m.password.Focus()
	} else {
		m.focus = fieldUsername
		m.password.Blur()
		m.username.Focus()
	}
	return m
}

func (m Model) View() string {
	if m.navigatedTo != "" {
		return mutedStyle.Render("Redirecting to "+m.navigatedTo+"...") + "\n"
	}
	if !m.haveState || m.state.Phase == authflow.PhaseChecking {
		return frameStyle.Render(m.spinner.View()+" Checking session...") + "\n"
	}
	if m.state.Phase == authflow.PhaseRedirecting {
		return frameStyle.Render(m.spinner.View()+" Already signed in. Redirecting...") + "\n"
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("Welcome"))
	b.WriteString("\n\n")
	b.WriteString(m.tabs())
	b.WriteString("\n\n")
	b.WriteString(m.inputRow("Username", m.username, m.focus == fieldUsername))
	b.WriteString("\n")
	b.WriteString(m.inputRow("Password", m.password, m.focus == fieldPassword))
	b.WriteString("\n\n")
	b.WriteString(m.button())

	if n := m.state.Notice; n.Kind == authflow.NoticeError {
		b.WriteString("\n\n")
		b.WriteString(errorStyle.Render(n.Text))
	}

	b.WriteString("\n\n")
	b.WriteString(helpStyle.Render("tab: switch form • ↑/↓: move • enter: submit • esc: quit"))

	out := frameStyle.Render(b.String())
	if !m.toast.Empty() {
		out = lipgloss.JoinVertical(lipgloss.Left, out, toastStyle(m.toast.Kind).Render(m.toast.Text))
	}
	return out + "\n"
}

func (m Model) tabs() string {
	render := func(mode authflow.Mode) string {
		if mode == m.state.Mode {
			return activeTabStyle.Render(mode.Title())
		}
		return tabStyle.Render(mode.Title())
	}
	return lipgloss.JoinHorizontal(lipgloss.Bottom, render(authflow.ModeLogin), render(authflow.ModeRegister))
}

func (m Model) inputRow(label string, input textinput.Model, focused bool) string {
	style := labelStyle
	if focused {
		style = focusedLabelStyle
	}
	return style.Render(label) + input.View()
}

func (m Model) button() string {
	label := m.state.SubmitLabel()
	if m.state.Busy() {
		return disabledButtonStyle.Render(m.spinner.View() + " " + label)
	}
	if m.locked() {
		return disabledButtonStyle.Render(label)
	}
	return buttonStyle.Render(label)
}

func toastStyle(kind authflow.NoticeKind) lipgloss.Style {
	switch kind {
	case authflow.NoticeSuccess:
		return successToastStyle
	case authflow.NoticeWarning:
		return warningToastStyle
	default:
		return errorToastStyle
	}
}
