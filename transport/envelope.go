package transport

import (
	"encoding/json"
	"fmt"
)

// Channel protocol events. Client to server: joinRoom, leaveRoom,
// message. Server to client: newMessage, authenticated, disconnect,
// error. The protocol is owned by the SchoolSync backend and consumed
// as given.
const (
	EventJoinRoom      = "joinRoom"
	EventLeaveRoom     = "leaveRoom"
	EventMessage       = "message"
	EventNewMessage    = "newMessage"
	EventAuthenticated = "authenticated"
	EventDisconnect    = "disconnect"
	EventError         = "error"
)

// Envelope wraps every frame on the channel with its event name.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// NewEnvelope builds an envelope carrying payload as JSON.
func NewEnvelope(event string, payload any) (Envelope, error) {
	if payload == nil {
		return Envelope{Event: event}, nil
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, fmt.Errorf("encoding %s payload: %w", event, err)
	}
	return Envelope{Event: event, Data: data}, nil
}

// Decode unmarshals the envelope payload into v.
func (e Envelope) Decode(v any) error {
	if len(e.Data) == 0 {
		return fmt.Errorf("event %s carries no payload", e.Event)
	}
	if err := json.Unmarshal(e.Data, v); err != nil {
		return fmt.Errorf("decoding %s payload: %w", e.Event, err)
	}
	return nil
}

// roomRef is the payload of joinRoom / leaveRoom frames.
type roomRef struct {
	RoomID string `json:"roomId"`
}

// disconnectInfo is the payload of a server-initiated disconnect.
type disconnectInfo struct {
	Reason string `json:"reason"`
}

// appError is the payload of an application error pushed by the server.
type appError struct {
	Message string `json:"message"`
}
