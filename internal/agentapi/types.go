// ABOUTME: Wire types exchanged with the remote agent service
// ABOUTME: Chat request, response envelope, explore-more sources and health payload

package agentapi

import "net/url"

// Source is an explore-more link suggested alongside a reply.
type Source struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

// Host returns the hostname of the source URL, or the raw URL when it cannot
// be parsed.
func (s Source) Host() string {
	u, err := url.Parse(s.URL)
	if err != nil || u.Hostname() == "" {
		return s.URL
	}
	return u.Hostname()
}

// Response is the structured body of a reply.
type Response struct {
	Summary     string   `json:"summary"`
	ExploreMore []Source `json:"explore_more"`
}

// ChatResponse is the envelope returned by every chat and summary call.
type ChatResponse struct {
	Response Response `json:"response"`
	ThreadID string   `json:"thread_id"`
}

// ChatRequest is the JSON body sent to the chat routes.
type ChatRequest struct {
	Message  string `json:"message"`
	ThreadID string `json:"thread_id,omitempty"`
}

// HealthResponse is returned by GET /health.
type HealthResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}
