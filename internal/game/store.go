package game

import "sync"

// RoomSummary holds lightweight room metadata for lobby browsing.
type RoomSummary struct {
	RoomID      string `json:"roomId"`
	RoomName    string `json:"roomName,omitempty"`
	PlayerCount int    `json:"playerCount"`
	HostID      string `json:"hostId,omitempty"`
}

// RoomStore is the in-memory registry of live rooms, keyed by room id. It is
// constructed explicitly and handed to the orchestrator, never held as a
// package global, so tests can run independent instances side by side.
type RoomStore struct {
	mu    sync.RWMutex
	rooms map[string]*Room
}

// NewRoomStore constructs an empty store.
func NewRoomStore() *RoomStore {
	return &RoomStore{rooms: make(map[string]*Room)}
}

// Ensure returns the room with the given id, creating it if absent.
func (s *RoomStore) Ensure(id string) *Room {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rooms[id]
	if !ok {
		r = newRoom(id)
		s.rooms[id] = r
	}
	return r
}

// Get returns the room with the given id, or nil.
func (s *RoomStore) Get(id string) *Room {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.rooms[id]
}

// Remove deletes the room from the registry and returns it, or nil if it was
// not present. The caller is responsible for cancelling the room's timers.
func (s *RoomStore) Remove(id string) *Room {
	s.mu.Lock()
	defer s.mu.Unlock()
	r := s.rooms[id]
	delete(s.rooms, id)
	return r
}

// Snapshot returns all live rooms; used for the disconnect sweep.
func (s *RoomStore) Snapshot() []*Room {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Room, 0, len(s.rooms))
	for _, r := range s.rooms {
		out = append(out, r)
	}
	return out
}

// Len returns the number of live rooms.
func (s *RoomStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.rooms)
}
