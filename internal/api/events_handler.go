package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ritahq/rita/internal/notify"
)

// EventHub is the subscription surface of the notification fan-out.
type EventHub interface {
	Subscribe(orgID string) (<-chan notify.Event, func())
}

// pingInterval keeps intermediaries from closing idle SSE connections.
const pingInterval = 25 * time.Second

// eventsHandler streams organization events over server-sent events.
type eventsHandler struct {
	hub EventHub
}

func newEventsHandler(hub EventHub) *eventsHandler {
	return &eventsHandler{hub: hub}
}

// Stream handles GET /organizations/{orgID}/events. The connection stays
// open until the client disconnects; events published after subscription
// are delivered in order, best effort.
func (h *eventsHandler) Stream(w http.ResponseWriter, r *http.Request) {
	orgID := chi.URLParam(r, "orgID")

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "internal_error", "streaming not supported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	ch, cancel := h.hub.Subscribe(orgID)
	defer cancel()

	fmt.Fprint(w, ": connected\n\n")
	flusher.Flush()

	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case ev, ok := <-ch:
			if !ok {
				return
			}
			data, err := json.Marshal(ev.Data)
			if err != nil {
				continue
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Type, data)
			flusher.Flush()
		case <-ticker.C:
			fmt.Fprint(w, ": ping\n\n")
			flusher.Flush()
		}
	}
}
