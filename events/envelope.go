package events

import (
	"fmt"
	"time"

	json "github.com/goccy/go-json"
	"github.com/tidwall/gjson"

	"github.com/wispworks/wisp/pkg/uuidx"
)

// Envelope is the canonical shape of every event. It is immutable once
// constructed; Data must not be mutated by subscribers.
type Envelope struct {
	ID      string         `json:"id"`
	TS      int64          `json:"ts"`
	Type    string         `json:"type"`
	Version string         `json:"version"`
	Data    map[string]any `json:"data"`
}

// NewEnvelope stamps data with a fresh id, the current unix-millisecond
// timestamp, and the fixed envelope version.
func NewEnvelope(topic string, data map[string]any) Envelope {
	return Envelope{
		ID:      uuidx.NewString(),
		TS:      time.Now().UnixMilli(),
		Type:    topic,
		Version: Version,
		Data:    data,
	}
}

// ToJSON serializes the envelope.
func (e Envelope) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// FromJSON parses an envelope, validating the fields every consumer relies
// on. Unknown extra fields are ignored so "bridge" envelopes parse too.
func FromJSON(data []byte) (Envelope, error) {
	if !gjson.ValidBytes(data) {
		return Envelope{}, fmt.Errorf("invalid json: %s", data)
	}
	var e Envelope
	if err := json.Unmarshal(data, &e); err != nil {
		return Envelope{}, err
	}
	if e.ID == "" {
		return Envelope{}, fmt.Errorf("envelope missing id")
	}
	if e.Type == "" {
		return Envelope{}, fmt.Errorf("envelope missing type")
	}
	if e.Version != Version {
		return Envelope{}, fmt.Errorf("unsupported envelope version %q", e.Version)
	}
	return e, nil
}
