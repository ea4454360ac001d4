// ABOUTME: Tests for the terminal client model
// ABOUTME: Drives key presses through Update and runs the returned commands inline

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/querybot/internal/agentapi"
	"github.com/2389/querybot/internal/conversation"
	"github.com/2389/querybot/internal/session"
	"github.com/2389/querybot/internal/store"
)

type fakeGateway struct {
	mu            sync.Mutex
	failSummaries int
	block         chan struct{}
	sends         []string
}

func (f *fakeGateway) Send(ctx context.Context, category agentapi.Category, message, threadID string) (*agentapi.ChatResponse, error) {
	f.mu.Lock()
	f.sends = append(f.sends, message)
	block := f.block
	f.mu.Unlock()

	if block != nil {
		<-block
	}
	return &agentapi.ChatResponse{
		Response: agentapi.Response{Summary: "reply to " + message},
		ThreadID: "t-" + string(category),
	}, nil
}

func (f *fakeGateway) InitialSummary(ctx context.Context, category agentapi.Category) (*agentapi.ChatResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failSummaries > 0 {
		f.failSummaries--
		return nil, fmt.Errorf("%w: boom", agentapi.ErrRequestFailed)
	}
	return &agentapi.ChatResponse{
		Response: agentapi.Response{
			Summary: string(category) + " headlines",
			ExploreMore: []agentapi.Source{
				{Title: "One", URL: "https://one.example.com/a"},
				{Title: "Two", URL: "https://two.example.com/b"},
				{Title: "Three", URL: "https://three.example.com/c"},
				{Title: "Four", URL: "https://four.example.com/d"},
			},
		},
		ThreadID: "s-" + string(category),
	}, nil
}

func newTestModel(t *testing.T, gw *fakeGateway) (model, *session.Store) {
	t.Helper()
	sessions := session.New(store.NewMockStore(), nil)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return newModel(context.Background(), gw, sessions, nil, logger), sessions
}

func update(t *testing.T, m model, msg tea.Msg) (model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	nm, ok := next.(model)
	require.True(t, ok)
	return nm, cmd
}

// press sends a key and feeds the resulting command's message back in.
func press(t *testing.T, m model, key tea.KeyMsg) model {
	t.Helper()
	m, cmd := update(t, m, key)
	require.NotNil(t, cmd)
	m, _ = update(t, m, cmd())
	return m
}

func activate(t *testing.T, m model) model {
	t.Helper()
	m, _ = update(t, m, m.activate()())
	return m
}

func TestNewModel_StartsOnGeneral(t *testing.T) {
	m, _ := newTestModel(t, &fakeGateway{})
	assert.Equal(t, agentapi.General, m.category())
	assert.Equal(t, conversation.StateIdle, m.conv.Snapshot().State)
}

func TestTab_CyclesCategoriesWithFreshActivation(t *testing.T) {
	m, sessions := newTestModel(t, &fakeGateway{})
	m = activate(t, m)

	first := m.conv
	m = press(t, m, tea.KeyMsg{Type: tea.KeyTab})
	assert.Equal(t, agentapi.Sports, m.category())
	assert.NotSame(t, first, m.conv)
	assert.Equal(t, conversation.StateReady, m.conv.Snapshot().State)
	assert.Contains(t, m.transcript(), "sports headlines")

	id, ok := sessions.Load(context.Background(), agentapi.Sports)
	require.True(t, ok)
	assert.Equal(t, "s-sports", id)

	m = press(t, m, tea.KeyMsg{Type: tea.KeyTab})
	assert.Equal(t, agentapi.Finance, m.category())

	m = press(t, m, tea.KeyMsg{Type: tea.KeyTab})
	assert.Equal(t, agentapi.General, m.category())

	m = press(t, m, tea.KeyMsg{Type: tea.KeyShiftTab})
	assert.Equal(t, agentapi.Finance, m.category())
}

func TestEnter_SubmitsAndPersistsThread(t *testing.T) {
	gw := &fakeGateway{}
	m, sessions := newTestModel(t, gw)
	m = activate(t, m)

	m.input.SetValue("  who won?  ")
	m = press(t, m, tea.KeyMsg{Type: tea.KeyEnter})

	assert.Equal(t, []string{"who won?"}, gw.sends)
	assert.Empty(t, m.input.Value())
	out := m.transcript()
	assert.Contains(t, out, "who won?")
	assert.Contains(t, out, "reply to who won?")

	id, ok := sessions.Load(context.Background(), agentapi.General)
	require.True(t, ok)
	assert.Equal(t, "t-general", id)
}

func TestEnter_EmptyInputShowsNotice(t *testing.T) {
	m, _ := newTestModel(t, &fakeGateway{})
	m = activate(t, m)

	m.input.SetValue("   ")
	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	assert.Nil(t, cmd)
	assert.Equal(t, "Type a message first.", m.notice)
}

func TestInputIgnoredWhileSending(t *testing.T) {
	gw := &fakeGateway{block: make(chan struct{})}
	m, _ := newTestModel(t, gw)
	m = activate(t, m)

	m.input.SetValue("first")
	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)

	done := make(chan tea.Msg, 1)
	go func() { done <- cmd() }()
	require.Eventually(t, func() bool {
		return m.conv.Snapshot().State == conversation.StateSending
	}, time.Second, 5*time.Millisecond)

	m.input.SetValue("second")
	m, cmd = update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	assert.Nil(t, cmd)
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("x")})
	assert.Equal(t, "second", m.input.Value())
	assert.Contains(t, m.transcript(), "Thinking...")

	close(gw.block)
	m, _ = update(t, m, <-done)
	assert.Equal(t, []string{"first"}, gw.sends)
	assert.Equal(t, conversation.StateReady, m.conv.Snapshot().State)
}

func TestCtrlR_RetriesFailedSummary(t *testing.T) {
	gw := &fakeGateway{failSummaries: 1}
	m, _ := newTestModel(t, gw)

	m = press(t, m, tea.KeyMsg{Type: tea.KeyTab})
	require.Equal(t, conversation.StateError, m.conv.Snapshot().State)
	assert.Contains(t, m.transcript(), "Failed to load sports summary. Please try again.")
	assert.Contains(t, m.transcript(), "ctrl+r")

	m = press(t, m, tea.KeyMsg{Type: tea.KeyCtrlR})
	assert.Equal(t, conversation.StateReady, m.conv.Snapshot().State)
	assert.Contains(t, m.transcript(), "sports headlines")
}

func TestCtrlR_IgnoredWhenReady(t *testing.T) {
	m, _ := newTestModel(t, &fakeGateway{})
	m = activate(t, m)

	_, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyCtrlR})
	assert.Nil(t, cmd)
}

func TestCtrlL_ClearsStoredThread(t *testing.T) {
	m, sessions := newTestModel(t, &fakeGateway{})
	m = activate(t, m)

	m.input.SetValue("hi")
	m = press(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	_, ok := sessions.Load(context.Background(), agentapi.General)
	require.True(t, ok)

	m = press(t, m, tea.KeyMsg{Type: tea.KeyCtrlL})
	_, ok = sessions.Load(context.Background(), agentapi.General)
	assert.False(t, ok)
	assert.Empty(t, m.conv.Snapshot().Messages)
	assert.Contains(t, m.transcript(), "Ask")
}

func TestEsc_Quits(t *testing.T) {
	m, _ := newTestModel(t, &fakeGateway{})
	_, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}

func TestStaleSubmitResultIsIgnored(t *testing.T) {
	m, _ := newTestModel(t, &fakeGateway{})
	other := conversation.New(agentapi.Finance, &fakeGateway{}, session.New(store.NewMockStore(), nil))

	m, _ = update(t, m, submittedMsg{conv: other, err: conversation.ErrBusy})
	assert.Empty(t, m.notice)

	m, _ = update(t, m, submittedMsg{conv: m.conv, err: conversation.ErrBusy})
	assert.Equal(t, "Still waiting on the last reply.", m.notice)
}

func TestRenderSources_ShowsFirstThree(t *testing.T) {
	m, _ := newTestModel(t, &fakeGateway{})
	m = press(t, m, tea.KeyMsg{Type: tea.KeyTab})

	out := m.transcript()
	assert.Contains(t, out, "One")
	assert.Contains(t, out, "three.example.com")
	assert.NotContains(t, out, "Four")
	assert.Contains(t, out, "...and 1 more")
}

func TestMarkdownRenderer(t *testing.T) {
	m, _ := newTestModel(t, &fakeGateway{})
	m.renderer = m.buildRenderer(60)
	assert.Nil(t, m.renderer)

	m.newRenderer = func(width int) (*glamour.TermRenderer, error) {
		return glamour.NewTermRenderer(glamour.WithStandardStyle("notty"), glamour.WithWordWrap(width))
	}
	m.renderer = m.buildRenderer(60)
	require.NotNil(t, m.renderer)
	assert.Contains(t, m.renderMarkdown("**Markets** are up"), "Markets")

	m.newRenderer = func(int) (*glamour.TermRenderer, error) { return nil, errors.New("no terminal") }
	assert.Nil(t, m.buildRenderer(60))
	m.renderer = nil
	assert.Equal(t, "plain\n", m.renderMarkdown("plain"))
}

func TestViewport_ScrollBackSurvivesSpinnerTicks(t *testing.T) {
	m, _ := newTestModel(t, &fakeGateway{})
	m = activate(t, m)
	m, _ = update(t, m, tea.WindowSizeMsg{Width: 80, Height: chromeHeight + 4})

	for i := 0; i < 4; i++ {
		m.input.SetValue(fmt.Sprintf("question %d", i))
		m = press(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	}
	require.True(t, m.viewport.AtBottom())

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyPgUp})
	require.False(t, m.viewport.AtBottom())
	offset := m.viewport.YOffset

	m, _ = update(t, m, spinner.TickMsg{})
	assert.Equal(t, offset, m.viewport.YOffset, "ticks keep the scroll position")

	m, _ = update(t, m, tea.MouseMsg{Button: tea.MouseButtonWheelUp, Action: tea.MouseActionPress})
	assert.Less(t, m.viewport.YOffset, offset)

	m.input.SetValue("one more")
	m = press(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	assert.True(t, m.viewport.AtBottom(), "a new message follows to the bottom")
}
