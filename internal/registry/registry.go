// Package registry is the authoritative in-memory store of active rooms.
//
// A Room is created lazily the first time someone joins an unseen room id, mutated by
// every join/leave/theme/start event, and deleted the moment its member list becomes
// empty. Nothing here is persisted: a restart forgets every room.
//
// Invariants kept by every method:
//   - a non-empty HostID always names a member currently in the room
//   - a room with members always has exactly one host
//   - an empty room never exists
//
// Operations on a room that does not exist (other than EnsureRoom) are no-ops, because
// events from independent connections arrive in no particular order and a leave for an
// already-deleted room is normal, not an error.
package registry

import (
	"sort" // sort orders List output so API responses are stable between calls
	"sync" // sync provides the RWMutex that makes every registry method atomic
)

// Member is one connection's presence in one room.
type Member struct {
	ID        string `json:"id"`        // connection identifier
	Username  string `json:"username"`  // display name supplied by the client at join time
	IsCreator bool   `json:"isCreator"` // client claims to have created the room
}

// Room is the mutable state of a single game session.
// Members is kept in join order; host succession relies on that order.
type Room struct {
	ID      string   // Client-chosen room code, e.g. "R1"
	Members []Member // Everyone currently in the room, oldest first
	HostID  string   // Connection id of the host; empty until a host is known
	Theme   string   // Theme announced in start-game; the registry default until then
	Started bool     // Flipped once by the first accepted start-game
}

// Snapshot is a copy of a room that is safe to hand to other goroutines.
type Snapshot struct {
	ID      string   `json:"id"`
	Members []Member `json:"players"`
	HostID  string   `json:"hostId"`
	Theme   string   `json:"theme"`
	Started bool     `json:"started"`
}

// Removal describes what RemoveMember did.
type Removal struct {
	Removed     bool   // a member with that connection id was present
	WasHost     bool   // the removed member held the host role
	NewHostID   string // set when the host role moved to another member
	RoomDeleted bool   // the room became empty and was deleted
}

// Registry owns every active Room, keyed by room id.
// The mutex makes each method atomic, so two concurrent joins to the same room can
// never both observe "no host yet".
type Registry struct {
	// mu guards rooms. Writers (join, leave, start) take the exclusive lock; the HTTP
	// inspection routes only read, so they share an RLock.
	mu           sync.RWMutex
	rooms        map[string]*Room // room id -> live room
	defaultTheme string           // Theme every new room starts with
}

// New creates an empty registry. Rooms start with defaultTheme until a host picks one.
func New(defaultTheme string) *Registry {
	return &Registry{
		rooms:        make(map[string]*Room),
		defaultTheme: defaultTheme,
	}
}

// EnsureRoom returns the existing room or creates an empty one with no host.
func (r *Registry) EnsureRoom(roomID string) Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ensure(roomID).snapshot()
}

// ensure is EnsureRoom without the lock; callers must hold r.mu.
func (r *Registry) ensure(roomID string) *Room {
	room, ok := r.rooms[roomID]
	if !ok {
		// First time anyone mentions this id: create it empty, with no host yet
		room = &Room{ID: roomID, Theme: r.defaultTheme}
		r.rooms[roomID] = room
	}
	return room
}

// AddMember appends m to the room. If the room has no host yet, or m claims to be the
// creator, m becomes host.
//
// A connection that is already a member is not added twice; AddMember then reports
// false and leaves the room untouched. Missing rooms are ignored.
func (r *Registry) AddMember(roomID string, m Member) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	room, ok := r.rooms[roomID]
	if !ok {
		return false
	}
	// The same connection joining twice would show up twice in the player list
	if room.indexOf(m.ID) >= 0 {
		return false
	}

	// Appending keeps join order, which is what host succession walks later
	room.Members = append(room.Members, m)
	// First one in becomes host; a self-declared creator takes the role over
	if room.HostID == "" || m.IsCreator {
		room.HostID = m.ID
	}
	return true
}

// RemoveMember removes the member with connID. When that member was host and others
// remain, the earliest-joined surviving member becomes host. An emptied room is deleted.
func (r *Registry) RemoveMember(roomID, connID string) Removal {
	r.mu.Lock()
	defer r.mu.Unlock()

	room, ok := r.rooms[roomID]
	if !ok {
		return Removal{}
	}
	i := room.indexOf(connID)
	if i < 0 {
		return Removal{}
	}

	// Splice the member out without disturbing the order of the others
	room.Members = append(room.Members[:i], room.Members[i+1:]...)
	res := Removal{Removed: true, WasHost: room.HostID == connID}

	// Last one out: the room disappears entirely and a later join starts fresh
	if len(room.Members) == 0 {
		delete(r.rooms, roomID)
		res.RoomDeleted = true
		return res
	}
	// The host left: the longest-standing remaining member inherits the role
	if res.WasHost {
		room.HostID = room.Members[0].ID
		res.NewHostID = room.HostID
	}
	return res
}

// SetTheme records the chosen theme. Missing rooms are ignored.
func (r *Registry) SetTheme(roomID, theme string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if room, ok := r.rooms[roomID]; ok {
		room.Theme = theme
	}
}

// MarkStarted flips the room from lobby to started. It returns false when the room is
// missing or already started.
func (r *Registry) MarkStarted(roomID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	room, ok := r.rooms[roomID]
	if !ok || room.Started {
		return false
	}
	room.Started = true
	return true
}

// Snapshot returns a copy of the room, or false if it does not exist.
func (r *Registry) Snapshot(roomID string) (Snapshot, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	room, ok := r.rooms[roomID]
	if !ok {
		return Snapshot{}, false
	}
	return room.snapshot(), true
}

// IsHost reports whether connID is the current host of roomID.
func (r *Registry) IsHost(roomID, connID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	room, ok := r.rooms[roomID]
	return ok && connID != "" && room.HostID == connID
}

// Len is the number of live rooms.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms)
}

// List returns snapshots of every room ordered by id.
func (r *Registry) List() []Snapshot {
	r.mu.RLock()
	out := make([]Snapshot, 0, len(r.rooms))
	for _, room := range r.rooms {
		out = append(out, room.snapshot())
	}
	r.mu.RUnlock()

	// Map iteration order is random in Go, so sort for a predictable response
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// indexOf returns the position of connID in Members, or -1 when it is not a member.
func (room *Room) indexOf(connID string) int {
	for i, m := range room.Members {
		if m.ID == connID {
			return i
		}
	}
	return -1
}

// snapshot copies the room. The member slice is copied too, otherwise a caller could
// mutate registry state through the shared backing array.
func (room *Room) snapshot() Snapshot {
	members := make([]Member, len(room.Members))
	copy(members, room.Members)
	return Snapshot{
		ID:      room.ID,
		Members: members,
		HostID:  room.HostID,
		Theme:   room.Theme,
		Started: room.Started,
	}
}
