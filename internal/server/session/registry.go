// Package session tracks which live connection belongs to which room and
// which display identity. A connection is a member of at most one room at a
// time; joining a second room vacates the first.
package session

import (
	"sync"
)

// Session describes one live connection's identity within a room.
type Session struct {
	ConnID        string
	RoomID        string
	ParticipantID string
	DisplayName   string
	CursorColor   string
}

// Registry is the shared, synchronized room-membership structure consulted
// by the relay on every fan-out. All methods are safe for concurrent use by
// the per-connection goroutines.
type Registry struct {
	mu    sync.RWMutex
	conns map[string]Session
	rooms map[string]map[string]struct{}
}

func NewRegistry() *Registry {
	return &Registry{
		conns: make(map[string]Session),
		rooms: make(map[string]map[string]struct{}),
	}
}

// Join records the connection's room membership and identity. Re-joining
// from the same connection replaces the previous membership rather than
// duplicating it; the vacated session is returned with true so the caller
// can announce the departure to the old room.
func (r *Registry) Join(connID, roomID, participantID, displayName, cursorColor string) (Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	prev, hadPrev := r.conns[connID]
	if hadPrev {
		r.removeFromRoom(connID, prev.RoomID)
	}

	r.conns[connID] = Session{
		ConnID:        connID,
		RoomID:        roomID,
		ParticipantID: participantID,
		DisplayName:   displayName,
		CursorColor:   cursorColor,
	}

	members, ok := r.rooms[roomID]
	if !ok {
		members = make(map[string]struct{})
		r.rooms[roomID] = members
	}
	members[connID] = struct{}{}
	return prev, hadPrev
}

// Leave removes the connection from its room. The returned Session and true
// are only produced if the connection had actually joined; a connection that
// never joined is a no-op and reports false, so the caller emits no
// participant_left for it.
func (r *Registry) Leave(connID string) (Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.conns[connID]
	if !ok {
		return Session{}, false
	}
	delete(r.conns, connID)
	r.removeFromRoom(connID, s.RoomID)
	return s, true
}

// Lookup returns the current session of a joined connection.
func (r *Registry) Lookup(connID string) (Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.conns[connID]
	return s, ok
}

// Members returns a snapshot of the connection ids currently joined to the
// room. The slice is a copy; callers may range over it without holding any
// registry lock.
func (r *Registry) Members(roomID string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	set, ok := r.rooms[roomID]
	if !ok {
		return nil
	}
	members := make([]string, 0, len(set))
	for id := range set {
		members = append(members, id)
	}
	return members
}

// caller must hold r.mu
func (r *Registry) removeFromRoom(connID, roomID string) {
	set, ok := r.rooms[roomID]
	if !ok {
		return
	}
	delete(set, connID)
	if len(set) == 0 {
		delete(r.rooms, roomID)
	}
}
