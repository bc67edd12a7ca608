package ws

import "encoding/json"

// Envelope is the outbound wire frame: an event name plus its payload.
type Envelope struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data,omitempty"`
}

// IncomingMessage is an inbound frame. Data stays raw so the room layer
// can decode it against the event's own payload type.
type IncomingMessage struct {
	// From is the connection id, filled in by the read pump.
	From  string          `json:"-"`
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}
