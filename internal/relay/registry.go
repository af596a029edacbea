package relay

import (
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/peerwave/peerwave/internal/protocol"
)

// Registry owns all room membership state. Rooms are created lazily on first
// join and removed transactionally when the last member leaves, so there is
// no background sweep.
//
// The registry mutex only guards the room map itself (O(1) lookup, insert,
// delete). Everything per-room, including message fan-out, happens under that
// room's own mutex so concurrent calls in different rooms never contend.
type Registry struct {
	mu    sync.RWMutex
	rooms map[string]*Room
}

func NewRegistry() *Registry {
	return &Registry{rooms: make(map[string]*Room)}
}

// Join adds c to the room, creating it if needed. The joiner is told who was
// already there (and whether it is the initiator); everyone already present
// is told a peer joined. A connection that is already in a room is rejected
// without touching membership.
func (r *Registry) Join(c *Client, roomID string) {
	if c.roomID != "" {
		c.sendError("already in a room")
		return
	}

	for {
		r.mu.Lock()
		room, ok := r.rooms[roomID]
		if !ok {
			room = newRoom(roomID)
			r.rooms[roomID] = room
		}
		r.mu.Unlock()

		room.mu.Lock()
		if room.closed {
			// Lost a race with the last member leaving; the room is no
			// longer in the map. Look it up again.
			room.mu.Unlock()
			continue
		}

		others := room.memberIDs(nil)
		room.members = append(room.members, c)

		members, err := protocol.NewMessage(protocol.TypeRoomMembers, roomID, protocol.RoomMembersPayload{
			Members:   others,
			Initiator: len(others) > 0,
		})
		if err == nil {
			c.trySend(members)
		}

		joined, err := protocol.NewMessage(protocol.TypePeerJoined, roomID, protocol.PeerPayload{PeerID: c.ID})
		if err == nil {
			for _, m := range room.members {
				if m != c {
					m.trySend(joined)
				}
			}
		}
		room.mu.Unlock()

		c.roomID = roomID
		slog.Info("client joined room", "client", c.ID, "room", roomID, "peers", len(others))
		return
	}
}

// Leave removes c from the room and notifies the remaining members. Leaving a
// room the connection is not a member of is a no-op, never an error.
func (r *Registry) Leave(c *Client, roomID string) {
	if roomID == "" || c.roomID != roomID {
		return
	}
	r.removeFromRoom(c, roomID)
}

// Disconnect is the transport-level exit path. It runs the same cleanup as an
// explicit leave; an ungraceful exit must look identical to the peer.
func (r *Registry) Disconnect(c *Client) {
	if c.roomID == "" {
		return
	}
	r.removeFromRoom(c, c.roomID)
}

func (r *Registry) removeFromRoom(c *Client, roomID string) {
	r.mu.Lock()
	room, ok := r.rooms[roomID]
	if !ok {
		r.mu.Unlock()
		c.roomID = ""
		return
	}

	room.mu.Lock()
	removed := room.remove(c)
	empty := len(room.members) == 0
	if removed && empty {
		room.closed = true
		delete(r.rooms, roomID)
	}
	r.mu.Unlock()

	if removed && !empty {
		left, err := protocol.NewMessage(protocol.TypePeerLeft, roomID, protocol.PeerPayload{PeerID: c.ID})
		if err == nil {
			for _, m := range room.members {
				m.trySend(left)
			}
		}
	}
	room.mu.Unlock()

	c.roomID = ""
	if removed {
		slog.Info("client left room", "client", c.ID, "room", roomID, "room_dropped", empty)
	}
}

// Relay forwards a handshake payload to every room member except the sender.
// The payload is opaque; all negotiation intelligence lives client-side. A
// room with no other members is the normal race between a departing peer and
// an in-flight message, so the payload is silently dropped.
func (r *Registry) Relay(sender *Client, roomID string, payload json.RawMessage) {
	r.mu.RLock()
	room, ok := r.rooms[roomID]
	r.mu.RUnlock()
	if !ok {
		slog.Debug("relay to empty room dropped", "client", sender.ID, "room", roomID)
		return
	}

	msg := &protocol.Message{
		Type:    protocol.TypeSignal,
		RoomID:  roomID,
		From:    sender.ID,
		Payload: payload,
	}

	room.mu.Lock()
	if !room.contains(sender) {
		room.mu.Unlock()
		slog.Debug("relay from non-member dropped", "client", sender.ID, "room", roomID)
		return
	}
	for _, m := range room.members {
		if m != sender {
			m.trySend(msg)
		}
	}
	room.mu.Unlock()
}

// RoomSize reports the current member count, zero when the room does not
// exist.
func (r *Registry) RoomSize(roomID string) int {
	r.mu.RLock()
	room, ok := r.rooms[roomID]
	r.mu.RUnlock()
	if !ok {
		return 0
	}
	room.mu.Lock()
	defer room.mu.Unlock()
	return len(room.members)
}
