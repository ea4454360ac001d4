// ABOUTME: View hub holding one conversation controller per open chat page
// ABOUTME: Views are keyed by uuid and expire after a period of inactivity

package webui

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/2389/querybot/internal/conversation"
)

// view is one opened chat page and its conversation.
type view struct {
	id         string
	controller *conversation.Controller

	mu       sync.Mutex
	lastUsed time.Time
}

func (v *view) touch(now time.Time) {
	v.mu.Lock()
	v.lastUsed = now
	v.mu.Unlock()
}

func (v *view) idleSince(now time.Time) time.Duration {
	v.mu.Lock()
	defer v.mu.Unlock()
	return now.Sub(v.lastUsed)
}

// viewHub manages open views
type viewHub struct {
	mu     sync.RWMutex
	views  map[string]*view
	ttl    time.Duration
	now    func() time.Time
	cancel context.CancelFunc
}

func newViewHub(ttl time.Duration, now func() time.Time) *viewHub {
	ctx, cancel := context.WithCancel(context.Background())
	hub := &viewHub{
		views:  make(map[string]*view),
		ttl:    ttl,
		now:    now,
		cancel: cancel,
	}
	go hub.cleanupLoop(ctx)
	return hub
}

// add registers a new view for controller.
func (h *viewHub) add(controller *conversation.Controller) *view {
	v := &view{
		id:         uuid.New().String(),
		controller: controller,
		lastUsed:   h.now(),
	}

	h.mu.Lock()
	h.views[v.id] = v
	h.mu.Unlock()
	return v
}

// get returns the view and marks it used.
func (h *viewHub) get(id string) (*view, bool) {
	if id == "" {
		return nil, false
	}

	h.mu.RLock()
	v, ok := h.views[id]
	h.mu.RUnlock()
	if !ok {
		return nil, false
	}
	v.touch(h.now())
	return v, true
}

func (h *viewHub) len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.views)
}

// cleanupLoop periodically removes stale views
func (h *viewHub) cleanupLoop(ctx context.Context) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			h.cleanupStaleViews()
		}
	}
}

// cleanupStaleViews removes views idle for longer than the ttl and returns
// how many were dropped. Dropping a view never touches the stored thread id.
func (h *viewHub) cleanupStaleViews() int {
	h.mu.Lock()
	defer h.mu.Unlock()

	now := h.now()
	removed := 0
	for id, v := range h.views {
		if v.idleSince(now) > h.ttl {
			delete(h.views, id)
			removed++
		}
	}
	return removed
}

// Close stops the cleanup goroutine
func (h *viewHub) Close() {
	h.cancel()
}
