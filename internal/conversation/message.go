// ABOUTME: Conversation message and state types held in memory by a Controller
// ABOUTME: Messages are immutable once appended and never persisted

package conversation

import (
	"time"

	"github.com/2389/querybot/internal/agentapi"
)

// Role identifies who authored a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one conversational turn.
type Message struct {
	ID        string
	Role      Role
	Content   string
	Response  *agentapi.ChatResponse // nil for user turns and fallback replies
	CreatedAt time.Time
}

// Sources returns the explore-more links carried by the message, if any.
func (m Message) Sources() []agentapi.Source {
	if m.Response == nil {
		return nil
	}
	return m.Response.Response.ExploreMore
}

// State is the lifecycle position of a Controller.
type State string

const (
	StateIdle           State = "idle"
	StateLoadingInitial State = "loading_initial"
	StateReady          State = "ready"
	StateSending        State = "sending"
	StateError          State = "error"
)

// Busy reports whether a remote call is in flight.
func (s State) Busy() bool {
	return s == StateLoadingInitial || s == StateSending
}

// Snapshot is a point-in-time copy of a Controller's observable state.
type Snapshot struct {
	Category agentapi.Category
	State    State
	Messages []Message
	ThreadID string
	Error    string
}
