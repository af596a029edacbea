package signaling

import (
	"log/slog"

	"github.com/peerwave/peerwave/internal/protocol"
)

// IncomingSignal is one relayed handshake payload plus the sender's id.
type IncomingSignal struct {
	From    string
	Payload protocol.SignalPayload
}

// Handler routes incoming relay messages to typed channels. The lifecycle
// controller consumes these; nothing here blocks the read pump for long
// because every channel is buffered.
type Handler struct {
	client      *Client
	Welcome     chan string
	RoomMembers chan protocol.RoomMembersPayload
	PeerJoined  chan string
	PeerLeft    chan string
	Signals     chan IncomingSignal
	Errors      chan string
	closed      bool
}

// NewHandler creates a message handler for the given client.
func NewHandler(client *Client) *Handler {
	return &Handler{
		client:      client,
		Welcome:     make(chan string, 1),
		RoomMembers: make(chan protocol.RoomMembersPayload, 1),
		PeerJoined:  make(chan string, 4),
		PeerLeft:    make(chan string, 4),
		Signals:     make(chan IncomingSignal, 32),
		Errors:      make(chan string, 4),
	}
}

// Start consumes the client's incoming stream until the connection drops.
// Run it on its own goroutine.
func (h *Handler) Start() {
	for msg := range h.client.Incoming() {
		switch msg.Type {

		case protocol.TypeWelcome:
			var p protocol.WelcomePayload
			if err := msg.DecodePayload(&p); err == nil {
				h.Welcome <- p.ClientID
			}

		case protocol.TypeRoomMembers:
			var p protocol.RoomMembersPayload
			if err := msg.DecodePayload(&p); err == nil {
				h.RoomMembers <- p
			}

		case protocol.TypePeerJoined:
			var p protocol.PeerPayload
			if err := msg.DecodePayload(&p); err == nil {
				h.PeerJoined <- p.PeerID
			}

		case protocol.TypePeerLeft:
			var p protocol.PeerPayload
			if err := msg.DecodePayload(&p); err == nil {
				h.PeerLeft <- p.PeerID
			}

		case protocol.TypeSignal:
			var p protocol.SignalPayload
			if err := msg.DecodePayload(&p); err != nil {
				slog.Warn("bad signal payload", "from", msg.From, "err", err)
				continue
			}
			h.Signals <- IncomingSignal{From: msg.From, Payload: p}

		case protocol.TypeError:
			var p protocol.ErrorPayload
			if err := msg.DecodePayload(&p); err != nil {
				h.Errors <- "unknown error from relay"
				continue
			}
			h.Errors <- p.Error

		default:
			slog.Debug("ignoring unknown message type", "type", msg.Type)
		}
	}
}

// Close closes all handler channels. Call only after the consumer is done.
func (h *Handler) Close() {
	if h.closed {
		return
	}
	h.closed = true

	close(h.Welcome)
	close(h.RoomMembers)
	close(h.PeerJoined)
	close(h.PeerLeft)
	close(h.Signals)
	close(h.Errors)
}
