package server

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/ayusman/handtune/internal/app"
)

// Event stream pacing.
const (
	eventInterval = 66 * time.Millisecond // ~15 updates per second
	writeWait     = 2 * time.Second
)

var upgrader = websocket.Upgrader{
	CheckOrigin: sameOrigin,
}

// StatusFeed is a source of status updates.
type StatusFeed interface {
	Status() app.Status
	Subscribe() (<-chan app.Status, func())
}

// EventsHandler pushes pipeline status to websocket clients.
type EventsHandler struct {
	feed   StatusFeed
	logger *zap.Logger
}

// NewEventsHandler creates an EventsHandler over feed.
func NewEventsHandler(feed StatusFeed, logger *zap.Logger) *EventsHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EventsHandler{feed: feed, logger: logger}
}

// ServeHTTP upgrades the request and streams status JSON until the client
// goes away.
func (h *EventsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Debug("websocket upgrade", zap.Error(err))
		return
	}
	defer conn.Close()

	updates, unsubscribe := h.feed.Subscribe()
	defer unsubscribe()

	// Reads only detect the client closing.
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	send := func(s app.Status) bool {
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		return conn.WriteJSON(s) == nil
	}
	if !send(h.feed.Status()) {
		return
	}

	ticker := time.NewTicker(eventInterval)
	defer ticker.Stop()

	var pending *app.Status
	for {
		select {
		case <-gone:
			return
		case <-r.Context().Done():
			return
		case s := <-updates:
			pending = &s
		case <-ticker.C:
			if pending == nil {
				continue
			}
			if !send(*pending) {
				return
			}
			pending = nil
		}
	}
}
