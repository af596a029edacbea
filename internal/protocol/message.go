package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Message is the envelope for every websocket frame exchanged with the relay,
// in both directions. Payload stays raw JSON so the relay can forward signal
// bodies without understanding them.
type Message struct {
	Type    string          `json:"type"`
	RoomID  string          `json:"room_id,omitempty"`
	From    string          `json:"from,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Message type constants.
const (
	// Client to server.
	TypeJoin   = "join"
	TypeLeave  = "leave"
	TypeSignal = "signal"

	// Server to client.
	TypeWelcome     = "welcome"
	TypeRoomMembers = "room_members"
	TypePeerJoined  = "peer_joined"
	TypePeerLeft    = "peer_left"
	TypeError       = "error"
)

// WelcomePayload carries the connection id the relay assigned at upgrade time.
type WelcomePayload struct {
	ClientID string `json:"client_id"`
}

// RoomMembersPayload is sent to a joining client. Initiator is explicit so the
// client never has to infer its role from list emptiness.
type RoomMembersPayload struct {
	Members   []string `json:"members"`
	Initiator bool     `json:"initiator"`
}

// PeerPayload identifies the peer a peer_joined/peer_left event is about.
type PeerPayload struct {
	PeerID string `json:"peer_id"`
}

// ErrorPayload carries a human-readable error from the relay.
type ErrorPayload struct {
	Error string `json:"error"`
}

// Signal kinds carried inside a signal message.
const (
	KindOffer     = "offer"
	KindAnswer    = "answer"
	KindCandidate = "candidate"
)

// SignalPayload is the handshake union: an SDP offer/answer or one ICE
// candidate. Candidate keeps the browser/pion ICECandidateInit JSON shape but
// is never decoded server-side.
type SignalPayload struct {
	Kind      string          `json:"kind"`
	SDP       string          `json:"sdp,omitempty"`
	Candidate json.RawMessage `json:"candidate,omitempty"`
}

var (
	ErrUnknownKind  = errors.New("protocol: unknown signal kind")
	ErrMissingSDP   = errors.New("protocol: missing sdp")
	ErrMissingCand  = errors.New("protocol: missing candidate")
	ErrMissingRoom  = errors.New("protocol: missing room_id")
	ErrUnknownType  = errors.New("protocol: unknown message type")
	ErrEmptyMessage = errors.New("protocol: empty message")
)

// Validate checks that the payload has the fields its kind requires. The sdp
// and candidate bodies themselves stay opaque.
func (p SignalPayload) Validate() error {
	switch p.Kind {
	case KindOffer, KindAnswer:
		if p.SDP == "" {
			return fmt.Errorf("%w for %s", ErrMissingSDP, p.Kind)
		}
	case KindCandidate:
		if len(p.Candidate) == 0 {
			return ErrMissingCand
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownKind, p.Kind)
	}
	return nil
}

// ValidateInbound checks a client-to-server message before the relay acts on
// it. Server-to-client types arriving from a client are rejected.
func (m *Message) ValidateInbound() error {
	if m == nil || m.Type == "" {
		return ErrEmptyMessage
	}
	switch m.Type {
	case TypeJoin, TypeLeave:
		if m.RoomID == "" {
			return ErrMissingRoom
		}
	case TypeSignal:
		if m.RoomID == "" {
			return ErrMissingRoom
		}
		var p SignalPayload
		if err := json.Unmarshal(m.Payload, &p); err != nil {
			return fmt.Errorf("protocol: bad signal payload: %w", err)
		}
		return p.Validate()
	default:
		return fmt.Errorf("%w: %q", ErrUnknownType, m.Type)
	}
	return nil
}

// NewMessage builds an envelope with an encoded payload.
func NewMessage(msgType, roomID string, payload any) (*Message, error) {
	msg := &Message{Type: msgType, RoomID: roomID}
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("protocol: encode %s payload: %w", msgType, err)
		}
		msg.Payload = b
	}
	return msg, nil
}

// DecodePayload decodes the payload into the provided struct.
func (m *Message) DecodePayload(v any) error {
	if len(m.Payload) == 0 {
		return ErrEmptyMessage
	}
	return json.Unmarshal(m.Payload, v)
}
