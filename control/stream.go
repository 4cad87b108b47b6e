package control

import (
	"fmt"
	"net/http"

	"github.com/coder/websocket"
	json "github.com/goccy/go-json"

	"github.com/wispworks/wisp/events"
	"github.com/wispworks/wisp/pkg/slogx"
)

// subscribeAll fans every closed-set topic into one channel. Slow consumers
// drop events rather than stalling the bus.
func (s *Server) subscribeAll() (<-chan events.Envelope, func()) {
	ch := make(chan events.Envelope, 128)
	unsubs := make([]events.Unsubscribe, 0, len(events.Topics()))
	for _, topic := range events.Topics() {
		unsubs = append(unsubs, s.bus.Subscribe(topic, func(env events.Envelope) {
			select {
			case ch <- env:
			default:
			}
		}))
	}
	return ch, func() {
		for _, u := range unsubs {
			u()
		}
	}
}

// handleEvents streams envelopes as server-sent events until the client
// disconnects.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ch, cancel := s.subscribeAll()
	defer cancel()

	for {
		select {
		case <-r.Context().Done():
			return
		case env := <-ch:
			data, err := env.ToJSON()
			if err != nil {
				continue
			}
			if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", env.Type, data); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

// handleWSEvents streams the same envelopes over a websocket.
func (s *Server) handleWSEvents(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		s.log.Warn("websocket accept failed", slogx.Error(err))
		return
	}
	defer conn.Close(websocket.StatusNormalClosure, "stream closed")

	ctx := conn.CloseRead(r.Context())
	ch, cancel := s.subscribeAll()
	defer cancel()

	for {
		select {
		case <-ctx.Done():
			return
		case env := <-ch:
			data, err := json.Marshal(env)
			if err != nil {
				continue
			}
			if err := conn.Write(ctx, websocket.MessageText, data); err != nil {
				return
			}
		}
	}
}
