// ABOUTME: Chat web UI serving one page per agent category
// ABOUTME: Routes page loads and form posts to per-view conversation controllers

package webui

import (
	"context"
	"errors"
	"html/template"
	"log/slog"
	"net/http"
	"time"

	"github.com/yuin/goldmark"

	"github.com/2389/querybot/internal/agentapi"
	"github.com/2389/querybot/internal/assets"
	"github.com/2389/querybot/internal/conversation"
	"github.com/2389/querybot/internal/dedupe"
)

const (
	// DefaultTitle is shown in the sidebar and page titles.
	DefaultTitle = "Query Bot"

	// DefaultViewTTL is how long an untouched view is kept.
	DefaultViewTTL = 30 * time.Minute

	// DefaultTokenTTL is how long a used form token is remembered.
	DefaultTokenTTL = time.Hour

	maxTrackedTokens = 10000
)

// User-facing notices for rejected submissions.
const (
	noticeEmpty    = "Please enter a message."
	noticeBusy     = "Please wait for the current response to finish."
	noticeNotReady = "This conversation is not ready yet."
)

// Config holds web UI configuration
type Config struct {
	Title    string
	ViewTTL  time.Duration
	TokenTTL time.Duration
}

// UI handles chat page routes
type UI struct {
	gateway  conversation.Gateway
	sessions conversation.Sessions
	config   Config
	logger   *slog.Logger
	hub      *viewHub
	guard    *dedupe.Guard
	tmpl     *template.Template
	md       goldmark.Markdown
	now      func() time.Time
}

// Option configures a UI.
type Option func(*UI)

// WithClock overrides the time source used for view expiry.
func WithClock(now func() time.Time) Option {
	return func(u *UI) {
		u.now = now
	}
}

// New creates the web UI. Zero config values fall back to defaults.
func New(gateway conversation.Gateway, sessions conversation.Sessions, cfg Config, opts ...Option) *UI {
	if cfg.Title == "" {
		cfg.Title = DefaultTitle
	}
	if cfg.ViewTTL <= 0 {
		cfg.ViewTTL = DefaultViewTTL
	}
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = DefaultTokenTTL
	}

	u := &UI{
		gateway:  gateway,
		sessions: sessions,
		config:   cfg,
		logger:   slog.Default().With("component", "webui"),
		tmpl:     parseTemplates(),
		md:       newMarkdown(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(u)
	}
	u.hub = newViewHub(cfg.ViewTTL, u.now)
	u.guard = dedupe.New(cfg.TokenTTL, maxTrackedTokens, dedupe.WithClock(u.now))
	return u
}

// Close stops background cleanup
func (u *UI) Close() {
	u.hub.Close()
	u.guard.Close()
}

// RegisterRoutes registers the chat routes on the given mux
func (u *UI) RegisterRoutes(mux *http.ServeMux) {
	mux.Handle("GET "+assets.Prefix, assets.Handler())

	// Pages
	for _, c := range agentapi.Categories() {
		pattern := "GET " + c.Path()
		if c.Path() == "/" {
			pattern = "GET /{$}"
		}
		mux.HandleFunc(pattern, u.handlePage(c))
	}

	// Form posts
	mux.HandleFunc("POST /{category}/send", u.handleSend)
	mux.HandleFunc("POST /{category}/clear", u.handleClear)
	mux.HandleFunc("POST /{category}/retry", u.handleRetry)
}

// handlePage opens a new view for category and renders it
func (u *UI) handlePage(c agentapi.Category) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctrl := conversation.New(c, u.gateway, u.sessions, conversation.WithClock(u.now))
		// Activation failures are rendered as the error state
		_ = ctrl.Activate(detach(r))

		v := u.hub.add(ctrl)
		u.logger.Debug("opened view", "category", c, "view_id", v.id)
		u.renderChatPage(w, http.StatusOK, v, "")
	}
}

// handleSend submits a user message
func (u *UI) handleSend(w http.ResponseWriter, r *http.Request) {
	v, ok := u.lookupView(w, r)
	if !ok {
		return
	}

	token := r.FormValue("token")
	if !u.guard.Claim(token) {
		u.logger.Debug("ignoring replayed submission", "view_id", v.id)
		u.renderChatPage(w, http.StatusOK, v, "")
		return
	}

	err := v.controller.Submit(detach(r), r.FormValue("message"))
	if err != nil {
		u.guard.Release(token)
	}
	u.renderResult(w, v, err)
}

// handleClear clears the conversation
func (u *UI) handleClear(w http.ResponseWriter, r *http.Request) {
	v, ok := u.lookupView(w, r)
	if !ok {
		return
	}

	token := r.FormValue("token")
	if !u.guard.Claim(token) {
		u.renderChatPage(w, http.StatusOK, v, "")
		return
	}

	err := v.controller.Clear(detach(r))
	if errors.Is(err, conversation.ErrBusy) {
		u.guard.Release(token)
		u.renderResult(w, v, err)
		return
	}
	// Re-seed failures show as the error state
	u.renderChatPage(w, http.StatusOK, v, "")
}

// handleRetry repeats a failed initial summary load
func (u *UI) handleRetry(w http.ResponseWriter, r *http.Request) {
	v, ok := u.lookupView(w, r)
	if !ok {
		return
	}

	token := r.FormValue("token")
	if !u.guard.Claim(token) {
		u.renderChatPage(w, http.StatusOK, v, "")
		return
	}

	// Retry outside the error state is a no-op; a failed retry shows the error again
	_ = v.controller.Retry(detach(r))
	u.renderChatPage(w, http.StatusOK, v, "")
}

// lookupView resolves the category and view for a form post. Posts for
// unknown or expired views are redirected to a fresh page.
func (u *UI) lookupView(w http.ResponseWriter, r *http.Request) (*view, bool) {
	c, err := agentapi.ParseCategory(r.PathValue("category"))
	if err != nil {
		http.NotFound(w, r)
		return nil, false
	}

	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form data", http.StatusBadRequest)
		return nil, false
	}

	v, ok := u.hub.get(r.FormValue("view_id"))
	if !ok || v.controller.Category() != c {
		u.logger.Debug("unknown view, redirecting", "category", c)
		http.Redirect(w, r, c.Path(), http.StatusSeeOther)
		return nil, false
	}
	return v, true
}

// renderResult maps a controller error to a status and notice
func (u *UI) renderResult(w http.ResponseWriter, v *view, err error) {
	switch {
	case err == nil:
		u.renderChatPage(w, http.StatusOK, v, "")
	case errors.Is(err, conversation.ErrEmptyMessage):
		u.renderChatPage(w, http.StatusBadRequest, v, noticeEmpty)
	case errors.Is(err, conversation.ErrBusy):
		u.renderChatPage(w, http.StatusConflict, v, noticeBusy)
	case errors.Is(err, conversation.ErrNotReady):
		u.renderChatPage(w, http.StatusConflict, v, noticeNotReady)
	default:
		u.logger.Error("unexpected conversation error", "view_id", v.id, "error", err)
		u.renderChatPage(w, http.StatusInternalServerError, v, err.Error())
	}
}

// detach keeps request values but is not cancelled when the client goes away.
func detach(r *http.Request) context.Context {
	return context.WithoutCancel(r.Context())
}
