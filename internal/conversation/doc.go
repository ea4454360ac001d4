// Package conversation provides the per-view conversation state machine.
//
// # Overview
//
// A Controller owns the in-memory message list of one agent view. It sits
// between the presentation layer (web pages, terminal UI) and the agent
// service client, and keeps the session store in step with the thread id
// returned by every successful reply.
//
// # Lifecycle
//
//	idle -> loading_initial -> ready <-> sending
//	             |
//	             v
//	           error -> (Retry) -> loading_initial
//
// Activate reuses a stored thread id without replaying history. When no id
// is stored and the category has an initial summary, the summary is fetched
// and becomes the first assistant message.
//
// # Submissions
//
// Submit appends the user message before calling the service, so the user's
// own turn is never rolled back. A failed call appends a fixed apology reply.
// Only one call is in flight per controller; a second Submit returns ErrBusy
// and is not queued.
//
// # Clearing
//
// Clear asks the remote service to drop the thread and always removes the
// local record, then re-seeds categories with an initial summary.
package conversation
