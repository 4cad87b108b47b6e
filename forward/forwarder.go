// Package forward delivers event envelopes to the companion UI. Every
// outbound event is wrapped in a "bridge" envelope carrying a per-room
// monotonic sequence number, then handed to a delivery sink: either the room
// transport's data channel (in-process) or an HTTP POST to a companion
// service (external). The inbound side answers snapshot requests.
package forward

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/alphadose/haxmap"
	json "github.com/goccy/go-json"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/wispworks/wisp/events"
	"github.com/wispworks/wisp/pkg/slogx"
	"github.com/wispworks/wisp/provider"
)

// Bridge is the wire shape of one forwarded event.
type Bridge struct {
	Kind     string         `json:"kind"`
	Event    string         `json:"event"`
	Version  string         `json:"version"`
	Seq      uint64         `json:"seq"`
	TS       int64          `json:"ts"`
	ID       string         `json:"id"`
	Data     map[string]any `json:"data,omitempty"`
	Snapshot map[string]any `json:"snapshot,omitempty"`
}

// Sink delivers one serialized bridge envelope to a room's UI.
type Sink interface {
	Deliver(ctx context.Context, roomURL string, payload []byte) error
}

// SnapshotProvider produces the current UI state for a room, served in
// response to snapshot requests.
type SnapshotProvider func(roomURL string) map[string]any

// Forwarder assigns sequence numbers and pushes envelopes through its sink.
// Seq is strictly monotonic and gap-free per room; delivery happens under
// the room lock so envelopes reach the sink in seq order.
type Forwarder struct {
	sink     Sink
	snapshot SnapshotProvider
	rooms    *haxmap.Map[string, *roomState]
}

type roomState struct {
	mu  sync.Mutex
	seq uint64
}

// New builds a forwarder over a sink. snapshot may be nil; snapshot requests
// are then answered with an empty object.
func New(sink Sink, snapshot SnapshotProvider) *Forwarder {
	if snapshot == nil {
		snapshot = func(string) map[string]any { return map[string]any{} }
	}
	return &Forwarder{
		sink:     sink,
		snapshot: snapshot,
		rooms:    haxmap.New[string, *roomState](),
	}
}

func (f *Forwarder) room(roomURL string) *roomState {
	r, _ := f.rooms.GetOrCompute(roomURL, func() *roomState { return &roomState{} })
	return r
}

// Forward wraps an event envelope for a room and delivers it.
func (f *Forwarder) Forward(ctx context.Context, roomURL string, env events.Envelope) error {
	return f.send(ctx, roomURL, env.Type, env.ID, env.Data, nil)
}

// Emit builds a fresh envelope for a topic and delivers it. Used by tool
// dispatch for UI events that never touch the bus.
func (f *Forwarder) Emit(ctx context.Context, roomURL, topic string, data map[string]any) error {
	env := events.NewEnvelope(topic, data)
	return f.send(ctx, roomURL, topic, env.ID, data, nil)
}

func (f *Forwarder) send(ctx context.Context, roomURL, topic, id string, data, snapshot map[string]any) error {
	r := f.room(roomURL)
	r.mu.Lock()
	defer r.mu.Unlock()

	// The next seq is only committed once the sink accepts the envelope;
	// a failed delivery must not leave a gap in the stream.
	seq := r.seq + 1
	b := Bridge{
		Kind:     "bridge",
		Event:    topic,
		Version:  events.Version,
		Seq:      seq,
		TS:       time.Now().UnixMilli(),
		ID:       id,
		Data:     data,
		Snapshot: snapshot,
	}
	payload, err := json.Marshal(b)
	if err != nil {
		return fmt.Errorf("failed to marshal bridge envelope: %w", err)
	}
	if err := f.sink.Deliver(ctx, roomURL, payload); err != nil {
		return fmt.Errorf("failed to deliver seq %d to %s: %w", seq, roomURL, err)
	}
	r.seq = seq
	return nil
}

// HandleInbound processes a message from the UI. Only snapshot requests are
// recognized; anything else is logged and dropped.
func (f *Forwarder) HandleInbound(ctx context.Context, roomURL string, raw []byte) error {
	kind := gjson.GetBytes(raw, "kind")
	if kind.String() != "req" {
		slog.Debug("ignoring non-request inbound message",
			slogx.Room(roomURL),
			slog.String("kind", kind.String()),
			slogx.LoggerName("forward"),
		)
		return nil
	}
	switch req := gjson.GetBytes(raw, "req").String(); req {
	case "snapshot":
		snap := f.snapshot(roomURL)
		env := events.NewEnvelope("snapshot", nil)
		return f.send(ctx, roomURL, "snapshot", env.ID, nil, snap)
	default:
		return fmt.Errorf("unknown request %q", req)
	}
}

// Reset clears a room's sequence state. Called when a session leaves or
// transitions away from a room.
func (f *Forwarder) Reset(roomURL string) {
	f.rooms.Del(roomURL)
}

// TransportSink delivers through the room transport's data channel.
type TransportSink struct {
	Transport provider.Transport
}

func (s TransportSink) Deliver(ctx context.Context, roomURL string, payload []byte) error {
	return s.Transport.SendAppMessage(ctx, roomURL, payload)
}

// HTTPSink POSTs envelopes to a companion service.
type HTTPSink struct {
	BaseURL string
	Client  *http.Client
}

func (s HTTPSink) Deliver(ctx context.Context, roomURL string, payload []byte) error {
	client := s.Client
	if client == nil {
		client = http.DefaultClient
	}
	body, err := sjson.SetBytes([]byte(`{}`), "room_url", roomURL)
	if err != nil {
		return err
	}
	// splice the envelope in unparsed to keep it byte-identical
	body, err = sjson.SetRawBytes(body, "envelope", payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.BaseURL+"/bridge", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		return fmt.Errorf("bridge delivery returned %s", resp.Status)
	}
	return nil
}
