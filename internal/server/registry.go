// Package server keeps the room membership bookkeeping for the relay in the
// Registry type.
package server

import (
	"log/slog"
	"sort"
	"sync"
)

// Peer is a live connection as seen by the registry and the router.
type Peer interface {
	ID() string
	Send(frame []byte) error
}

// RoomSummary describes one room for status reporting.
type RoomSummary struct {
	Name    string `json:"name"`
	Members int    `json:"members"`
}

// Registry maps room names to their members and keeps a reverse index from
// each member to the room it is in. A peer is in at most one room at a time.
// All methods are safe for concurrent use and never perform I/O.
type Registry struct {
	mu       sync.RWMutex
	rooms    map[string]map[Peer]struct{}
	memberOf map[Peer]string
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		rooms:    make(map[string]map[Peer]struct{}),
		memberOf: make(map[Peer]string),
	}
}

// CreateRoom creates roomID with peer as its only member. If the name is
// already taken it returns ErrRoomAlreadyExists and changes nothing.
func (r *Registry) CreateRoom(peer Peer, roomID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.rooms[roomID]; exists {
		return ErrRoomAlreadyExists
	}

	r.detachLocked(peer)
	r.rooms[roomID] = map[Peer]struct{}{peer: {}}
	r.memberOf[peer] = roomID

	slog.Info("room created", "room", roomID, "clientId", peer.ID())
	return nil
}

// JoinRoom adds peer to an existing room, moving it out of any room it was in
// before. It returns ErrRoomNotFound if roomID does not exist.
func (r *Registry) JoinRoom(peer Peer, roomID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.rooms[roomID]; !exists {
		return ErrRoomNotFound
	}

	if current, ok := r.memberOf[peer]; ok && current == roomID {
		return nil
	}

	// Detaching may delete the previous room, never the target: the target
	// still exists and peer is not in it.
	r.detachLocked(peer)
	r.rooms[roomID][peer] = struct{}{}
	r.memberOf[peer] = roomID

	slog.Info("room joined", "room", roomID, "clientId", peer.ID(), "members", len(r.rooms[roomID]))
	return nil
}

// RoomOf reports the room peer is currently in.
func (r *Registry) RoomOf(peer Peer) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	roomID, ok := r.memberOf[peer]
	return roomID, ok
}

// Leave removes peer from its room and deletes the room if it became empty.
// It reports the room that was left and whether that room was deleted; ok is
// false when peer was in no room.
func (r *Registry) Leave(peer Peer) (roomID string, deleted bool, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	roomID, ok = r.memberOf[peer]
	if !ok {
		return "", false, false
	}
	deleted = r.detachLocked(peer)
	return roomID, deleted, true
}

// Members returns a snapshot of the members of roomID, without exclude.
func (r *Registry) Members(roomID string, exclude Peer) []Peer {
	r.mu.RLock()
	defer r.mu.RUnlock()

	members := r.rooms[roomID]
	peers := make([]Peer, 0, len(members))
	for p := range members {
		if p == exclude {
			continue
		}
		peers = append(peers, p)
	}
	return peers
}

// Stats returns the number of rooms and the number of affiliated peers.
func (r *Registry) Stats() (rooms, members int) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.rooms), len(r.memberOf)
}

// Rooms lists every room with its member count, ordered by name.
func (r *Registry) Rooms() []RoomSummary {
	r.mu.RLock()
	summaries := make([]RoomSummary, 0, len(r.rooms))
	for name, members := range r.rooms {
		summaries = append(summaries, RoomSummary{Name: name, Members: len(members)})
	}
	r.mu.RUnlock()

	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].Name < summaries[j].Name
	})
	return summaries
}

// detachLocked removes peer from whatever room it is in and reports whether
// that room was deleted. The caller must hold r.mu for writing.
func (r *Registry) detachLocked(peer Peer) bool {
	roomID, ok := r.memberOf[peer]
	if !ok {
		return false
	}
	delete(r.memberOf, peer)

	members := r.rooms[roomID]
	delete(members, peer)
	slog.Info("room left", "room", roomID, "clientId", peer.ID(), "members", len(members))

	if len(members) > 0 {
		return false
	}
	delete(r.rooms, roomID)
	slog.Info("room deleted", "room", roomID)
	return true
}
