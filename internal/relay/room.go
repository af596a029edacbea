package relay

import "sync"

// Room groups the connections that are trying to establish a call with each
// other. Members are kept in join order; the relay tells the second arrival it
// is the initiator, which is what keeps offer/answer roles deterministic.
//
// A room only exists while it has members: the registry creates it on first
// join and deletes it when the last member leaves. closed marks a room that
// has been removed from the registry so a racing join can detect the stale
// pointer and retry.
type Room struct {
	ID string

	// mu serializes all membership mutation and recipient snapshots for this
	// room. Different rooms never share a lock.
	mu      sync.Mutex
	members []*Client
	closed  bool
}

func newRoom(id string) *Room {
	return &Room{ID: id}
}

// memberIDs returns the ids of all members except the given client.
// Caller must hold mu.
func (r *Room) memberIDs(except *Client) []string {
	ids := make([]string, 0, len(r.members))
	for _, m := range r.members {
		if m != except {
			ids = append(ids, m.ID)
		}
	}
	return ids
}

// contains reports whether c is a member. Caller must hold mu.
func (r *Room) contains(c *Client) bool {
	for _, m := range r.members {
		if m == c {
			return true
		}
	}
	return false
}

// remove deletes c from the member list, preserving join order of the rest.
// Caller must hold mu.
func (r *Room) remove(c *Client) bool {
	for i, m := range r.members {
		if m == c {
			r.members = append(r.members[:i], r.members[i+1:]...)
			return true
		}
	}
	return false
}
