// ABOUTME: Conversation controller state machine for one agent view
// ABOUTME: Orchestrates gateway calls, message history and thread id persistence

package conversation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/2389/querybot/internal/agentapi"
)

// ApologyText is appended as the assistant reply when a send fails.
const ApologyText = "Sorry, I encountered an error while processing your request. Please try again."

var (
	// ErrEmptyMessage is returned when a submission is blank after trimming.
	ErrEmptyMessage = errors.New("message is empty")

	// ErrBusy is returned while a send or initial load is in flight.
	ErrBusy = errors.New("conversation is busy")

	// ErrNotReady is returned when the controller has not been activated or
	// is showing a load error.
	ErrNotReady = errors.New("conversation is not ready")
)

// Gateway is what the controller needs from the agent service client.
type Gateway interface {
	Send(ctx context.Context, category agentapi.Category, message, threadID string) (*agentapi.ChatResponse, error)
	InitialSummary(ctx context.Context, category agentapi.Category) (*agentapi.ChatResponse, error)
}

// Sessions is what the controller needs from the session store.
type Sessions interface {
	Load(ctx context.Context, category agentapi.Category) (string, bool)
	Save(ctx context.Context, category agentapi.Category, threadID string) error
	Clear(ctx context.Context, category agentapi.Category) error
	ClearRemote(ctx context.Context, category agentapi.Category, threadID string) error
}

// Controller owns the in-memory conversation of one agent view.
// All methods are safe for concurrent use; remote calls run without the lock
// held and at most one is in flight at a time.
type Controller struct {
	category agentapi.Category
	gateway  Gateway
	sessions Sessions
	logger   *slog.Logger
	now      func() time.Time

	mu       sync.Mutex
	state    State
	messages []Message
	threadID string
	errText  string
}

// Option configures a Controller.
type Option func(*Controller)

// WithLogger overrides the controller logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Controller) {
		c.logger = logger
	}
}

// WithClock overrides the time source used for message timestamps.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) {
		c.now = now
	}
}

// New creates an idle controller for category.
func New(category agentapi.Category, gateway Gateway, sessions Sessions, opts ...Option) *Controller {
	c := &Controller{
		category: category,
		gateway:  gateway,
		sessions: sessions,
		logger:   slog.Default(),
		now:      time.Now,
		state:    StateIdle,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With("component", "conversation", "category", string(category))
	return c
}

// Category returns the agent category this controller talks to.
func (c *Controller) Category() agentapi.Category {
	return c.category
}

// Activate prepares the conversation when its view opens. A stored thread id
// is reused silently with an empty history. Without one, categories that have
// an initial summary are seeded from it.
func (c *Controller) Activate(ctx context.Context) error {
	c.mu.Lock()
	if c.state != StateIdle {
		c.mu.Unlock()
		return nil
	}
	// Claimed before the lookup so a concurrent Activate returns early
	c.state = StateLoadingInitial
	c.mu.Unlock()

	threadID, ok := c.sessions.Load(ctx, c.category)

	c.mu.Lock()
	c.messages = nil
	c.errText = ""
	if ok {
		c.threadID = threadID
		c.state = StateReady
		c.mu.Unlock()
		c.logger.Debug("reusing stored thread", "thread_id", threadID)
		return nil
	}
	c.threadID = ""
	if !c.category.HasSummary() {
		c.state = StateReady
		c.mu.Unlock()
		return nil
	}
	c.mu.Unlock()

	return c.seed(ctx)
}

// Retry repeats the initial summary load after a failure.
func (c *Controller) Retry(ctx context.Context) error {
	c.mu.Lock()
	if c.state != StateError {
		c.mu.Unlock()
		return ErrNotReady
	}
	c.state = StateLoadingInitial
	c.errText = ""
	c.mu.Unlock()

	return c.seed(ctx)
}

// seed fetches the initial summary. Callers must have moved the state to
// StateLoadingInitial.
func (c *Controller) seed(ctx context.Context) error {
	resp, err := c.gateway.InitialSummary(ctx, c.category)
	if err == nil && resp == nil {
		err = fmt.Errorf("%w: empty summary", agentapi.ErrRequestFailed)
	}
	if err != nil {
		c.logger.Error("failed to load initial summary", "error", err)
		c.mu.Lock()
		c.state = StateError
		c.errText = fmt.Sprintf("Failed to load %s summary. Please try again.", c.category)
		c.mu.Unlock()
		return err
	}

	c.mu.Lock()
	c.messages = []Message{c.assistantMessage(resp)}
	c.threadID = resp.ThreadID
	c.state = StateReady
	c.mu.Unlock()

	c.persist(ctx, resp.ThreadID)
	return nil
}

// Submit sends a user message. The user turn is appended before the remote
// call; a failed call appends ApologyText instead of a reply and is not
// reported as an error.
func (c *Controller) Submit(ctx context.Context, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return ErrEmptyMessage
	}

	c.mu.Lock()
	switch {
	case c.state.Busy():
		c.mu.Unlock()
		return ErrBusy
	case c.state != StateReady:
		c.mu.Unlock()
		return ErrNotReady
	}
	c.messages = append(c.messages, Message{
		ID:        uuid.New().String(),
		Role:      RoleUser,
		Content:   text,
		CreatedAt: c.now(),
	})
	c.state = StateSending
	threadID := c.threadID
	c.mu.Unlock()

	resp, err := c.gateway.Send(ctx, c.category, text, threadID)
	if err != nil {
		c.logger.Error("error sending message", "thread_id", threadID, "error", err)
		c.mu.Lock()
		c.messages = append(c.messages, Message{
			ID:        uuid.New().String(),
			Role:      RoleAssistant,
			Content:   ApologyText,
			CreatedAt: c.now(),
		})
		c.state = StateReady
		c.mu.Unlock()
		return nil
	}

	c.mu.Lock()
	c.messages = append(c.messages, c.assistantMessage(resp))
	if resp.ThreadID != "" {
		c.threadID = resp.ThreadID
	}
	c.state = StateReady
	current := c.threadID
	c.mu.Unlock()

	c.persist(ctx, current)
	return nil
}

// Clear forgets the conversation locally and on the remote service, then
// re-seeds categories that have an initial summary.
func (c *Controller) Clear(ctx context.Context) error {
	c.mu.Lock()
	if c.state.Busy() {
		c.mu.Unlock()
		return ErrBusy
	}
	threadID := c.threadID
	c.messages = nil
	c.threadID = ""
	c.errText = ""
	if c.category.HasSummary() {
		c.state = StateLoadingInitial
	} else {
		c.state = StateReady
	}
	c.mu.Unlock()

	if threadID != "" {
		// Best effort: the view resets whatever the server says
		_ = c.sessions.ClearRemote(ctx, c.category, threadID)
	}
	if err := c.sessions.Clear(ctx, c.category); err != nil {
		c.logger.Warn("failed to clear stored thread id", "error", err)
	}

	if !c.category.HasSummary() {
		return nil
	}
	return c.seed(ctx)
}

// Snapshot returns a copy of the current state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	msgs := make([]Message, len(c.messages))
	copy(msgs, c.messages)
	return Snapshot{
		Category: c.category,
		State:    c.state,
		Messages: msgs,
		ThreadID: c.threadID,
		Error:    c.errText,
	}
}

// assistantMessage builds the assistant turn for a reply envelope.
func (c *Controller) assistantMessage(resp *agentapi.ChatResponse) Message {
	return Message{
		ID:        uuid.New().String(),
		Role:      RoleAssistant,
		Content:   resp.Response.Summary,
		Response:  resp,
		CreatedAt: c.now(),
	}
}

// persist stores the thread id; failures only produce a diagnostic.
func (c *Controller) persist(ctx context.Context, threadID string) {
	if threadID == "" {
		return
	}
	if err := c.sessions.Save(ctx, c.category, threadID); err != nil {
		c.logger.Warn("failed to save thread id", "thread_id", threadID, "error", err)
	}
}
