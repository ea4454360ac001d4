// ABOUTME: Agent categories and the fixed category-to-route lookup table
// ABOUTME: Maps page paths and names to the remote send/summary endpoints

package agentapi

import (
	"fmt"
	"strings"
)

// Category selects one of the remote topic-scoped agents.
type Category string

const (
	General Category = "general"
	Sports  Category = "sports"
	Finance Category = "finance"
)

// route holds the remote endpoints for a category. An empty Summary means the
// category has no pre-canned initial summary.
type route struct {
	Send    string
	Summary string
	Page    string
	Label   string
	Topic   string
}

var routes = map[Category]route{
	General: {Send: "/chat", Page: "/", Label: "General", Topic: "any topic"},
	Sports:  {Send: "/chat/sports", Summary: "/chat/sports/summary", Page: "/sports", Label: "Sports", Topic: "sports"},
	Finance: {Send: "/chat/finance", Summary: "/chat/finance/summary", Page: "/finance", Label: "Finance", Topic: "finance"},
}

// Categories returns every known category in navigation order.
func Categories() []Category {
	return []Category{General, Sports, Finance}
}

// ParseCategory validates a category name.
func ParseCategory(s string) (Category, error) {
	c := Category(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := routes[c]; !ok {
		return "", fmt.Errorf("unknown agent category %q", s)
	}
	return c, nil
}

// FromPath resolves the category for a page path. Anything that is not a
// sports or finance page belongs to the general agent.
func FromPath(path string) Category {
	switch {
	case strings.HasPrefix(path, "/sports"):
		return Sports
	case strings.HasPrefix(path, "/finance"):
		return Finance
	default:
		return General
	}
}

// Valid reports whether c is a known category.
func (c Category) Valid() bool {
	_, ok := routes[c]
	return ok
}

// HasSummary reports whether the category defines an initial summary route.
func (c Category) HasSummary() bool {
	return routes[c].Summary != ""
}

// Path is the page route serving this category.
func (c Category) Path() string {
	if r, ok := routes[c]; ok {
		return r.Page
	}
	return "/"
}

// Label is the human readable category name.
func (c Category) Label() string {
	if r, ok := routes[c]; ok {
		return r.Label
	}
	return string(c)
}

// Topic is the phrase used in input placeholders ("Ask me anything about ...").
func (c Category) Topic() string {
	if r, ok := routes[c]; ok {
		return r.Topic
	}
	return string(c)
}

func (c Category) String() string {
	return string(c)
}
