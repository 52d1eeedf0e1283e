package notify

import (
	"log/slog"
	"sync"
)

// Event types pushed to organization subscribers.
const (
	EventMemberRoleUpdated   = "member_role_updated"
	EventMemberStatusUpdated = "member_status_updated"
	EventMemberRemoved       = "member_removed"
)

// Event is a single notification delivered to organization subscribers.
type Event struct {
	Type string         `json:"type"`
	Data map[string]any `json:"data"`
}

// subscriberBuffer is the per-subscriber channel depth. A subscriber that
// falls this far behind starts losing events rather than blocking writers.
const subscriberBuffer = 16

// Hub fans events out to connected subscribers, grouped by organization.
// Delivery is best-effort: sends never block and never fail the caller.
type Hub struct {
	mu   sync.RWMutex
	subs map[string]map[chan Event]struct{}

	// onCountChange, if set, is called with the total subscriber count
	// whenever a subscriber joins or leaves.
	onCountChange func(int)
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{subs: make(map[string]map[chan Event]struct{})}
}

// OnCountChange registers a callback invoked with the total subscriber count
// after every subscribe/unsubscribe. Must be called before the hub is used.
func (h *Hub) OnCountChange(fn func(int)) {
	h.onCountChange = fn
}

// Subscribe registers a new subscriber for the given organization. The
// returned cancel func must be called when the subscriber disconnects.
func (h *Hub) Subscribe(orgID string) (<-chan Event, func()) {
	ch := make(chan Event, subscriberBuffer)

	h.mu.Lock()
	if h.subs[orgID] == nil {
		h.subs[orgID] = make(map[chan Event]struct{})
	}
	h.subs[orgID][ch] = struct{}{}
	count := h.count()
	h.mu.Unlock()

	h.notifyCount(count)

	cancel := func() {
		h.mu.Lock()
		if set, ok := h.subs[orgID]; ok {
			if _, ok := set[ch]; ok {
				delete(set, ch)
				close(ch)
			}
			if len(set) == 0 {
				delete(h.subs, orgID)
			}
		}
		count := h.count()
		h.mu.Unlock()
		h.notifyCount(count)
	}
	return ch, cancel
}

// SendToOrganization delivers an event to every subscriber of the given
// organization. Subscribers with full buffers are skipped.
func (h *Hub) SendToOrganization(orgID string, ev Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for ch := range h.subs[orgID] {
		select {
		case ch <- ev:
		default:
			slog.Warn("dropping event for slow subscriber", "organization_id", orgID, "type", ev.Type)
		}
	}
}

// SubscriberCount returns the total number of connected subscribers.
func (h *Hub) SubscriberCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.count()
}

// count must be called with h.mu held.
func (h *Hub) count() int {
	n := 0
	for _, set := range h.subs {
		n += len(set)
	}
	return n
}

func (h *Hub) notifyCount(n int) {
	if h.onCountChange != nil {
		h.onCountChange(n)
	}
}
