package relay

import (
	"log/slog"
	"time"

	"github.com/gorilla/websocket"

	"github.com/peerwave/peerwave/internal/protocol"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer. 64 KB is enough for SDP bodies.
	maxMessageSize = 64 * 1024

	// Outbound queue depth per connection.
	sendBuffer = 256
)

// Client wraps a single websocket connection on the relay side. The id is
// assigned at upgrade time and is the only identity the signaling subsystem
// knows about a peer.
type Client struct {
	ID       string
	Registry *Registry
	Conn     *websocket.Conn

	// Send is the buffered outbound queue drained by WritePump.
	Send chan *protocol.Message

	// roomID is the room this connection currently belongs to, empty when
	// idle. Only ever touched from the connection's own ReadPump goroutine
	// (joins, leaves and disconnect cleanup all originate there).
	roomID string
}

// NewClient builds a relay client for an upgraded connection.
func NewClient(id string, registry *Registry, conn *websocket.Conn) *Client {
	return &Client{
		ID:       id,
		Registry: registry,
		Conn:     conn,
		Send:     make(chan *protocol.Message, sendBuffer),
	}
}

// trySend queues a message without blocking. Fan-out happens under a room
// lock, so a slow receiver must not stall the room; delivery is best-effort
// and a full queue drops the message. Sends only ever happen while the client
// is still a room member, which is what makes closing Send after removal
// safe.
func (c *Client) trySend(msg *protocol.Message) {
	select {
	case c.Send <- msg:
	default:
		slog.Warn("send queue full, dropping message", "client", c.ID, "type", msg.Type)
	}
}

func (c *Client) sendError(text string) {
	msg, err := protocol.NewMessage(protocol.TypeError, "", protocol.ErrorPayload{Error: text})
	if err != nil {
		return
	}
	c.trySend(msg)
}

// ReadPump pumps messages from the websocket connection into the registry.
//
// There is at most one reader per connection; all membership changes for this
// connection happen on this goroutine, including the disconnect cleanup.
func (c *Client) ReadPump() {
	defer func() {
		c.Registry.Disconnect(c)
		close(c.Send)
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		var msg protocol.Message
		if err := c.Conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				slog.Warn("read error", "client", c.ID, "err", err)
			}
			return
		}

		if err := msg.ValidateInbound(); err != nil {
			c.sendError(err.Error())
			continue
		}

		switch msg.Type {
		case protocol.TypeJoin:
			c.Registry.Join(c, msg.RoomID)
		case protocol.TypeLeave:
			c.Registry.Leave(c, msg.RoomID)
		case protocol.TypeSignal:
			c.Registry.Relay(c, msg.RoomID, msg.Payload)
		}
	}
}

// WritePump pumps messages from the Send queue to the websocket connection
// and keeps the connection alive with periodic pings.
//
// One goroutine per connection; all writes go through here.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteJSON(msg); err != nil {
				slog.Warn("write error", "client", c.ID, "err", err)
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
