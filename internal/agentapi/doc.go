// Package agentapi is the HTTP client for the remote agent service.
//
// # Overview
//
// The remote service hosts three topic-scoped chat agents. Every agent is
// addressed through a Category, and each category maps to a fixed pair of
// routes:
//
//	general  POST /chat
//	sports   POST /chat/sports   GET /chat/sports/summary
//	finance  POST /chat/finance  GET /chat/finance/summary
//
// Conversations are cleared with DELETE /conversations/{thread_id} and the
// service reports liveness on GET /health.
//
// # Envelope
//
// Chat and summary calls return the same envelope:
//
//	{"response": {"summary": "...", "explore_more": [{"title": "...", "url": "..."}]},
//	 "thread_id": "..."}
//
// # Errors
//
// Transport failures, non-2xx statuses and undecodable bodies are all
// reported as ErrRequestFailed (wrapped with detail for logs). The client
// never retries and never caches.
//
// # Usage
//
//	api := agentapi.New("http://localhost:8000", agentapi.WithTimeout(30*time.Second))
//	resp, err := api.Send(ctx, agentapi.Sports, "Who won last night?", threadID)
package agentapi
