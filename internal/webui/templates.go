// ABOUTME: Template loading, markdown rendering and page view models for the chat UI
// ABOUTME: Converts controller snapshots into the data the chat template renders

package webui

import (
	"bytes"
	"html/template"
	"net/http"

	"github.com/google/uuid"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"

	"github.com/2389/querybot/internal/agentapi"
	"github.com/2389/querybot/internal/assets"
	"github.com/2389/querybot/internal/conversation"
)

// visibleSources is how many explore-more links show before the fold.
const visibleSources = 3

var pageIcons = map[agentapi.Category]string{
	agentapi.General: "\U0001F916",
	agentapi.Sports:  "⚽",
	agentapi.Finance: "\U0001F4C8",
}

type navItem struct {
	Label  string
	Path   string
	Icon   string
	Active bool
}

type messageView struct {
	ID          string
	Role        conversation.Role
	Content     string
	HTML        template.HTML
	HasResponse bool
	Sources     []agentapi.Source
	More        []agentapi.Source
}

type chatPageData struct {
	Title         string
	Stylesheet    string
	Nav           []navItem
	Category      agentapi.Category
	Label         string
	Welcome       string
	Placeholder   string
	ViewID        string
	ThreadID      string
	Token         string
	State         conversation.State
	InputDisabled bool
	Error         string
	Notice        string
	Messages      []messageView
}

func parseTemplates() *template.Template {
	return template.Must(template.ParseFS(templateFS, "templates/base.html", "templates/chat.html"))
}

func newMarkdown() goldmark.Markdown {
	return goldmark.New(
		goldmark.WithExtensions(extension.Linkify, extension.Strikethrough),
		goldmark.WithRendererOptions(html.WithHardWraps()),
	)
}

// renderMarkdown converts a reply summary to HTML. Raw HTML in the source is
// dropped by the renderer.
func (u *UI) renderMarkdown(src string) template.HTML {
	var buf bytes.Buffer
	if err := u.md.Convert([]byte(src), &buf); err != nil {
		u.logger.Error("failed to convert markdown", "error", err)
		return template.HTML("<p>" + template.HTMLEscapeString(src) + "</p>")
	}
	return template.HTML(buf.String())
}

func (u *UI) welcome(c agentapi.Category) string {
	switch c {
	case agentapi.Sports:
		return "Sports Hub - Latest Updates"
	case agentapi.Finance:
		return "Finance Hub - Market Insights"
	default:
		return "Hi, welcome to " + u.config.Title
	}
}

func (u *UI) pageData(v *view, notice string) chatPageData {
	snap := v.controller.Snapshot()
	c := snap.Category

	nav := make([]navItem, 0, len(agentapi.Categories()))
	for _, nc := range agentapi.Categories() {
		nav = append(nav, navItem{
			Label:  nc.Label(),
			Path:   nc.Path(),
			Icon:   pageIcons[nc],
			Active: nc == c,
		})
	}

	msgs := make([]messageView, 0, len(snap.Messages))
	for _, m := range snap.Messages {
		mv := messageView{
			ID:      m.ID,
			Role:    m.Role,
			Content: m.Content,
		}
		if m.Response != nil {
			mv.HasResponse = true
			mv.HTML = u.renderMarkdown(m.Response.Response.Summary)
			sources := m.Sources()
			if len(sources) > visibleSources {
				mv.Sources, mv.More = sources[:visibleSources], sources[visibleSources:]
			} else {
				mv.Sources = sources
			}
		}
		msgs = append(msgs, mv)
	}

	return chatPageData{
		Title:         u.config.Title,
		Stylesheet:    assets.Stylesheet,
		Nav:           nav,
		Category:      c,
		Label:         c.Label(),
		Welcome:       u.welcome(c),
		Placeholder:   "Ask me anything about " + c.Topic() + "...",
		ViewID:        v.id,
		ThreadID:      snap.ThreadID,
		Token:         uuid.New().String(),
		State:         snap.State,
		InputDisabled: snap.State != conversation.StateReady,
		Error:         snap.Error,
		Notice:        notice,
		Messages:      msgs,
	}
}

// renderChatPage renders the chat page for a view
func (u *UI) renderChatPage(w http.ResponseWriter, status int, v *view, notice string) {
	data := u.pageData(v, notice)

	var buf bytes.Buffer
	if err := u.tmpl.ExecuteTemplate(&buf, "base", data); err != nil {
		u.logger.Error("failed to render chat page", "category", data.Category, "error", err)
		http.Error(w, "Failed to render page", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}
