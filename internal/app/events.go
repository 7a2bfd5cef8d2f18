package app

import (
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"newsletter/api/internal/editor"
)

const (
	eventWriteWait = 10 * time.Second
	eventPongWait  = 60 * time.Second
	eventPingEvery = eventPongWait * 9 / 10
)

// upgrader accepts the same origin the CORS headers allow. Requests without
// an Origin header come from non-browser clients and are accepted.
func (s *HTTPServer) upgrader() *websocket.Upgrader {
	return &websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			return originAllowed(s.corsOrigin, r.Header.Get("Origin"))
		},
	}
}

func originAllowed(corsOrigin, origin string) bool {
	corsOrigin = strings.TrimSpace(corsOrigin)
	if corsOrigin == "*" || origin == "" {
		return true
	}
	return strings.EqualFold(strings.TrimRight(origin, "/"), strings.TrimRight(corsOrigin, "/"))
}

// handleEvents streams session events to a websocket client. The first
// message is always the current state.
func (s *HTTPServer) handleEvents(w http.ResponseWriter, r *http.Request, session *editor.Session) {
	events, unsubscribe := session.Subscribe()
	defer unsubscribe()

	conn, err := s.upgrader().Upgrade(w, r, nil)
	if err != nil {
		logrus.WithError(err).WithField("session_id", session.ID()).Warn("websocket upgrade failed")
		return
	}
	defer conn.Close()

	// the client never sends anything meaningful; reading detects disconnects
	// and services pongs
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		conn.SetReadLimit(512)
		_ = conn.SetReadDeadline(time.Now().Add(eventPongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(eventPongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	state := session.State()
	if err := writeEvent(conn, editor.Event{Type: editor.EventState, State: &state}); err != nil {
		return
	}

	ping := time.NewTicker(eventPingEvery)
	defer ping.Stop()
	for {
		select {
		case <-gone:
			return
		case <-r.Context().Done():
			return
		case event, ok := <-events:
			if !ok {
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, "session closed"),
					time.Now().Add(eventWriteWait))
				return
			}
			if err := writeEvent(conn, event); err != nil {
				return
			}
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(eventWriteWait)); err != nil {
				return
			}
		}
	}
}

func writeEvent(conn *websocket.Conn, event editor.Event) error {
	_ = conn.SetWriteDeadline(time.Now().Add(eventWriteWait))
	return conn.WriteJSON(event)
}
