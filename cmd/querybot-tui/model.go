// ABOUTME: Bubbletea model for the querybot terminal client
// ABOUTME: Tabs across agent categories and drives one conversation controller at a time

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/2389/querybot/internal/agentapi"
	"github.com/2389/querybot/internal/conversation"
)

const (
	maxVisibleSources = 3
	chromeHeight      = 5
)

// rendererFunc builds a markdown renderer wrapped to width.
type rendererFunc func(width int) (*glamour.TermRenderer, error)

// Result messages carry the controller they were started for so replies that
// arrive after a tab switch are dropped.
type activatedMsg struct {
	conv *conversation.Controller
	err  error
}

type submittedMsg struct {
	conv *conversation.Controller
	err  error
}

type clearedMsg struct {
	conv *conversation.Controller
	err  error
}

type retriedMsg struct {
	conv *conversation.Controller
	err  error
}

type styles struct {
	tabActive   lipgloss.Style
	tabInactive lipgloss.Style
	user        lipgloss.Style
	assistant   lipgloss.Style
	source      lipgloss.Style
	errorText   lipgloss.Style
	help        lipgloss.Style
	notice      lipgloss.Style
}

func newStyles() styles {
	pink := lipgloss.Color("#ff71ce")
	blue := lipgloss.Color("#01cdfe")
	mint := lipgloss.Color("#05ffa1")
	muted := lipgloss.Color("#7f8c8d")

	return styles{
		tabActive:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#000000")).Background(blue).Padding(0, 1),
		tabInactive: lipgloss.NewStyle().Foreground(muted).Padding(0, 1),
		user:        lipgloss.NewStyle().Foreground(mint).Bold(true),
		assistant:   lipgloss.NewStyle().Foreground(blue).Bold(true),
		source:      lipgloss.NewStyle().Foreground(muted),
		errorText:   lipgloss.NewStyle().Foreground(pink).Bold(true),
		help:        lipgloss.NewStyle().Foreground(muted),
		notice:      lipgloss.NewStyle().Foreground(lipgloss.Color("#ffd166")),
	}
}

type model struct {
	ctx      context.Context
	gateway  conversation.Gateway
	sessions conversation.Sessions
	logger   *slog.Logger

	categories  []agentapi.Category
	index       int
	conv        *conversation.Controller
	newRenderer rendererFunc
	renderer    *glamour.TermRenderer

	input    textinput.Model
	viewport viewport.Model
	spinner  spinner.Model
	styles   styles

	width  int
	height int
	notice string

	// last rendered transcript and message count, used to decide when to
	// follow the conversation to the bottom
	shown     string
	shownMsgs int
}

func newModel(ctx context.Context, gateway conversation.Gateway, sessions conversation.Sessions, newRenderer rendererFunc, logger *slog.Logger) model {
	input := textinput.New()
	input.Placeholder = "Ask a question..."
	input.CharLimit = 2000
	input.Prompt = "> "
	input.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("#05ffa1"))

	m := model{
		ctx:         ctx,
		gateway:     gateway,
		sessions:    sessions,
		logger:      logger,
		categories:  agentapi.Categories(),
		newRenderer: newRenderer,
		input:       input,
		viewport:    viewport.New(80, 20),
		spinner:     sp,
		styles:      newStyles(),
		width:       80,
		height:      20 + chromeHeight,
	}
	m.renderer = m.buildRenderer(m.width)
	m.conv = m.newController()
	return m
}

func (m model) category() agentapi.Category {
	return m.categories[m.index]
}

func (m model) newController() *conversation.Controller {
	return conversation.New(m.category(), m.gateway, m.sessions, conversation.WithLogger(m.logger))
}

func (m model) buildRenderer(width int) *glamour.TermRenderer {
	if m.newRenderer == nil {
		return nil
	}
	r, err := m.newRenderer(width)
	if err != nil {
		m.logger.Warn("markdown renderer unavailable", "error", err)
		return nil
	}
	return r
}

// activate returns the command that opens the current controller.
func (m model) activate() tea.Cmd {
	conv, ctx := m.conv, m.ctx
	return func() tea.Msg {
		return activatedMsg{conv: conv, err: conv.Activate(ctx)}
	}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.activate(), textinput.Blink)
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.viewport.Width = msg.Width
		m.viewport.Height = max(msg.Height-chromeHeight, 1)
		m.input.Width = max(msg.Width-4, 10)
		m.renderer = m.buildRenderer(max(msg.Width-4, 20))
		m.refresh()
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		m.refresh()
		return m, cmd

	case activatedMsg:
		if msg.conv == m.conv && msg.err != nil {
			m.logger.Debug("activation failed", "category", string(m.category()), "error", msg.err)
		}
		m.refresh()
		return m, nil

	case submittedMsg:
		if msg.conv == m.conv {
			m.notice = noticeFor(msg.err)
		}
		m.refresh()
		return m, nil

	case clearedMsg, retriedMsg:
		m.refresh()
		return m, nil

	case tea.MouseMsg:
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	return m, nil
}

func (m model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	busy := m.conv.Snapshot().State.Busy()

	switch msg.Type {
	case tea.KeyCtrlC, tea.KeyEsc:
		return m, tea.Quit

	case tea.KeyTab, tea.KeyShiftTab:
		step := 1
		if msg.Type == tea.KeyShiftTab {
			step = len(m.categories) - 1
		}
		m.index = (m.index + step) % len(m.categories)
		m.conv = m.newController()
		m.notice = ""
		m.input.Reset()
		m.shown, m.shownMsgs = "", -1
		m.refresh()
		return m, m.activate()

	case tea.KeyEnter:
		if busy {
			return m, nil
		}
		text := strings.TrimSpace(m.input.Value())
		if text == "" {
			m.notice = noticeFor(conversation.ErrEmptyMessage)
			return m, nil
		}
		if m.conv.Snapshot().State != conversation.StateReady {
			m.notice = noticeFor(conversation.ErrNotReady)
			return m, nil
		}
		m.input.Reset()
		m.notice = ""
		conv, ctx := m.conv, m.ctx
		return m, func() tea.Msg {
			return submittedMsg{conv: conv, err: conv.Submit(ctx, text)}
		}

	case tea.KeyCtrlL:
		if busy {
			return m, nil
		}
		m.notice = ""
		conv, ctx := m.conv, m.ctx
		return m, func() tea.Msg {
			return clearedMsg{conv: conv, err: conv.Clear(ctx)}
		}

	case tea.KeyPgUp, tea.KeyPgDown, tea.KeyUp, tea.KeyDown:
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd

	case tea.KeyCtrlR:
		if m.conv.Snapshot().State != conversation.StateError {
			return m, nil
		}
		conv, ctx := m.conv, m.ctx
		return m, func() tea.Msg {
			return retriedMsg{conv: conv, err: conv.Retry(ctx)}
		}
	}

	if busy {
		return m, nil
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func noticeFor(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, conversation.ErrEmptyMessage):
		return "Type a message first."
	case errors.Is(err, conversation.ErrBusy):
		return "Still waiting on the last reply."
	case errors.Is(err, conversation.ErrNotReady):
		return "This agent is not ready yet."
	default:
		return err.Error()
	}
}

// refresh re-renders the transcript into the viewport. It follows new output
// to the bottom unless the user has scrolled up, and always jumps for a new
// message.
func (m *model) refresh() {
	content := m.transcript()
	if content == m.shown {
		return
	}
	count := len(m.conv.Snapshot().Messages)
	follow := m.viewport.AtBottom() || count != m.shownMsgs

	m.viewport.SetContent(content)
	if follow {
		m.viewport.GotoBottom()
	}
	m.shown, m.shownMsgs = content, count
}

func (m model) transcript() string {
	snap := m.conv.Snapshot()

	var b strings.Builder
	switch snap.State {
	case conversation.StateIdle, conversation.StateLoadingInitial:
		if len(snap.Messages) == 0 {
			fmt.Fprintf(&b, "%s Loading %s...\n", m.spinner.View(), snap.Category.Label())
			return b.String()
		}
	case conversation.StateError:
		b.WriteString(m.styles.errorText.Render(snap.Error))
		b.WriteString("\n")
		b.WriteString(m.styles.help.Render("Press ctrl+r to retry."))
		b.WriteString("\n")
		return b.String()
	}

	if len(snap.Messages) == 0 {
		fmt.Fprintf(&b, "Ask %s about %s.\n", snap.Category.Label(), snap.Category.Topic())
	}

	for _, msg := range snap.Messages {
		if msg.Role == conversation.RoleUser {
			b.WriteString(m.styles.user.Render("You"))
			b.WriteString("\n")
			b.WriteString(msg.Content)
			b.WriteString("\n\n")
			continue
		}
		b.WriteString(m.styles.assistant.Render(snap.Category.Label()))
		b.WriteString("\n")
		b.WriteString(m.renderMarkdown(msg.Content))
		b.WriteString(m.renderSources(msg.Sources()))
		b.WriteString("\n")
	}

	if snap.State == conversation.StateSending {
		fmt.Fprintf(&b, "%s Thinking...\n", m.spinner.View())
	}
	return b.String()
}

func (m model) renderMarkdown(content string) string {
	if m.renderer == nil {
		return content + "\n"
	}
	out, err := m.renderer.Render(content)
	if err != nil {
		m.logger.Debug("markdown render failed", "error", err)
		return content + "\n"
	}
	return out
}

func (m model) renderSources(sources []agentapi.Source) string {
	if len(sources) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString(m.styles.source.Render("Explore more:"))
	b.WriteString("\n")
	for i, s := range sources {
		if i == maxVisibleSources {
			fmt.Fprintf(&b, "  %s\n", m.styles.source.Render(fmt.Sprintf("...and %d more", len(sources)-maxVisibleSources)))
			break
		}
		fmt.Fprintf(&b, "  • %s %s\n", s.Title, m.styles.source.Render("("+s.Host()+")"))
	}
	return b.String()
}

func (m model) tabs() string {
	parts := make([]string, 0, len(m.categories))
	for i, c := range m.categories {
		style := m.styles.tabInactive
		if i == m.index {
			style = m.styles.tabActive
		}
		parts = append(parts, style.Render(c.Label()))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, parts...)
}

func (m model) View() string {
	var b strings.Builder
	b.WriteString(m.tabs())
	b.WriteString("\n")
	b.WriteString(m.viewport.View())
	b.WriteString("\n")
	if m.notice != "" {
		b.WriteString(m.styles.notice.Render(m.notice))
	}
	b.WriteString("\n")
	b.WriteString(m.input.View())
	b.WriteString("\n")
	b.WriteString(m.styles.help.Render("tab switch agent • enter send • pgup/pgdn scroll • ctrl+l clear • ctrl+r retry • esc quit"))
	return b.String()
}
