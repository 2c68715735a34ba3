package relay

import (
	"context"
	"encoding/json"
)

// Envelope is what crosses instances. Only room and all-user broadcasts are
// eligible: personal sends are keyed to connections whose session keys exist
// solely on the issuing process, so there is nothing another instance could
// deliver. Encryption always happens per destination connection at delivery
// time, never before publishing.
type Envelope struct {
	Origin  string         `json:"origin"` // gateway id of the publisher
	Kind    string         `json:"kind"`   // KindRoom or KindAll
	Room    string         `json:"room,omitempty"`
	Exclude *int64         `json:"exclude,omitempty"`
	Message map[string]any `json:"message"`
}

const (
	KindRoom = "room"
	KindAll  = "all"
)

func (e *Envelope) Marshal() ([]byte, error) { return json.Marshal(e) }

func Unmarshal(raw []byte) (*Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, err
	}
	return &env, nil
}

// Relay is a best-effort cross-instance pub/sub fabric. Implementations must
// tolerate the backend dropping without taking the gateway down: log, keep
// serving locally.
type Relay interface {
	// Publish sends an envelope to every subscribed instance, including the
	// publisher itself (the consumer filters on Origin).
	Publish(ctx context.Context, env *Envelope) error
	// Start begins consuming in a background goroutine and invokes onEvent
	// for every envelope received.
	Start(ctx context.Context, onEvent func(*Envelope)) error
	Close() error
}
