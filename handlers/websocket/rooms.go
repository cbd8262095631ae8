package websocket

import "sync"

// registry tracks room membership: document id -> set of live clients.
type registry struct {
	mu    sync.RWMutex
	rooms map[string]map[*Client]bool
}

func newRegistry() *registry {
	return &registry{rooms: make(map[string]map[*Client]bool)}
}

// join adds c to the room for its document, creating the room if absent, and
// reports the resulting member count.
func (r *registry) join(c *Client) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	room, ok := r.rooms[c.documentID]
	if !ok {
		room = make(map[*Client]bool)
		r.rooms[c.documentID] = room
	}
	room[c] = true
	return len(room)
}

// leave removes c from its room, dropping the room entry when it empties. It
// reports the display name and whether c was actually a member, so a
// double-disconnect stays a no-op for the caller.
func (r *registry) leave(c *Client) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	room, ok := r.rooms[c.documentID]
	if !ok || !room[c] {
		return "", false
	}

	delete(room, c)
	if len(room) == 0 {
		delete(r.rooms, c.documentID)
	}
	return c.displayName, true
}

// contains reports whether c is still a member of its room.
func (r *registry) contains(c *Client) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.rooms[c.documentID][c]
}

// members returns a snapshot of the room, minus exclude, so no lock is held
// while messages are delivered.
func (r *registry) members(documentID string, exclude *Client) []*Client {
	r.mu.RLock()
	defer r.mu.RUnlock()

	room := r.rooms[documentID]
	members := make([]*Client, 0, len(room))
	for c := range room {
		if c == exclude {
			continue
		}
		members = append(members, c)
	}
	return members
}

// counts reports the member count of every active room.
func (r *registry) counts() map[string]int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	counts := make(map[string]int, len(r.rooms))
	for id, room := range r.rooms {
		counts[id] = len(room)
	}
	return counts
}
