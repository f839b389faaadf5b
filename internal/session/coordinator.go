// Package session implements the room protocol on top of the registry and the gateway.
//
// The Coordinator turns inbound events (join-room, start-game, leave-room, disconnect)
// into registry mutations followed by broadcasts. All events from every connection go
// through one channel and are handled one at a time by Run, so a mutation and the
// broadcast describing it always happen back to back, and every room's stream of
// room-players frames follows the order of its mutations.
package session

import (
	"context" // context carries the shutdown signal into Run
	"strings" // strings trims and measures display names

	"github.com/rs/zerolog/log" // zerolog's global logger, configured once in main

	"github.com/trentd187/escape-room/internal/protocol"
	"github.com/trentd187/escape-room/internal/registry"
)

// DefaultUsername is used when a client joins without a name and carries no identity.
const DefaultUsername = "Player"

// MaxUsername is the longest display name, in runes, that gets broadcast to a room.
// Profiles use the same limit.
const MaxUsername = 32

// Gateway is what the coordinator needs from the connection layer: room-scoped
// publish plus unicast to one connection.
type Gateway interface {
	Subscribe(connID, roomID string)
	Unsubscribe(connID, roomID string)
	Publish(roomID string, frame []byte)
	Send(connID string, frame []byte)
}

// disconnected is the internal event for a connection that went away.
type disconnected struct{}

// event is one queued message together with the connection that sent it.
type event struct {
	connID string // Which connection the message came from
	msg    any    // protocol.JoinRoom, protocol.StartGame, protocol.LeaveRoom or disconnected
}

// Coordinator is the single writer of the room registry.
type Coordinator struct {
	registry *registry.Registry // Authoritative room state
	gateway  Gateway            // Where frames go out; the websocket hub in production
	events   chan event         // Every inbound event from every connection, in arrival order
	done     chan struct{}      // Closed when Run returns so Dispatch stops accepting work

	// current maps connection id -> room id. Only touched by the Run goroutine.
	current map[string]string
}

// NewCoordinator wires a coordinator to its registry and gateway. queue is the number
// of inbound events buffered ahead of Run.
func NewCoordinator(reg *registry.Registry, gw Gateway, queue int) *Coordinator {
	if queue <= 0 {
		queue = 256
	}
	return &Coordinator{
		registry: reg,
		gateway:  gw,
		events:   make(chan event, queue),
		done:     make(chan struct{}),
		current:  make(map[string]string),
	}
}

// Run processes events until ctx is cancelled. It must be started exactly once,
// usually as "go coordinator.Run(ctx)".
func (c *Coordinator) Run(ctx context.Context) {
	defer close(c.done)
	for {
		select {
		case ev := <-c.events:
			c.handle(ev.connID, ev.msg)
		case <-ctx.Done():
			log.Info().Msg("session coordinator stopped")
			return
		}
	}
}

// Dispatch queues a decoded inbound message (protocol.JoinRoom, protocol.StartGame or
// protocol.LeaveRoom) from connID. It returns false once the coordinator has stopped.
func (c *Coordinator) Dispatch(connID string, msg any) bool {
	// Check done on its own first: a select with both cases ready picks at random, and
	// a buffered events channel would otherwise keep accepting work after Run stopped.
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.events <- event{connID: connID, msg: msg}:
		return true
	case <-c.done:
		return false
	}
}

// Disconnect queues the cleanup for a connection whose transport closed. It is handled
// exactly like leave-room.
func (c *Coordinator) Disconnect(connID string) {
	c.Dispatch(connID, disconnected{})
}

func (c *Coordinator) handle(connID string, msg any) {
	switch m := msg.(type) {
	case protocol.JoinRoom:
		c.join(connID, m)
	case protocol.StartGame:
		c.startGame(connID, m)
	case protocol.LeaveRoom:
		c.leaveRequested(connID, m.RoomID)
	case disconnected:
		if roomID, ok := c.current[connID]; ok {
			c.leave(connID, roomID)
		}
	default:
		log.Warn().Str("conn", connID).Msgf("ignoring unsupported message %T", msg)
	}
}

func (c *Coordinator) join(connID string, p protocol.JoinRoom) {
	if cur, ok := c.current[connID]; ok {
		if cur == p.RoomID {
			// Joining the room you are already in changes nothing; the client just
			// gets its view refreshed.
			log.Debug().Str("conn", connID).Str("room", cur).Msg("duplicate join ignored")
			if snap, ok := c.registry.Snapshot(cur); ok {
				c.gateway.Send(connID, protocol.RoomPlayersFrame(snap))
				c.gateway.Send(connID, protocol.HostStatusFrame(snap.HostID == connID))
			}
			return
		}
		// One room per connection: switching rooms is a leave followed by a join
		c.leave(connID, cur)
	}

	username := cleanUsername(p.Username)

	// Remember who was host before the join so a creator takeover can be announced
	previousHost := c.registry.EnsureRoom(p.RoomID).HostID
	c.registry.AddMember(p.RoomID, registry.Member{
		ID:        connID,
		Username:  username,
		IsCreator: p.IsCreator,
	})
	c.current[connID] = p.RoomID
	c.gateway.Subscribe(connID, p.RoomID)

	snap, ok := c.registry.Snapshot(p.RoomID)
	if !ok {
		return
	}
	log.Info().
		Str("conn", connID).
		Str("room", p.RoomID).
		Str("username", username).
		Str("host", snap.HostID).
		Int("players", len(snap.Members)).
		Msg("player joined")

	// Everyone in the room (the joiner included, since it is already subscribed) gets
	// the new list; only the joiner is told whether it is host
	c.gateway.Publish(p.RoomID, protocol.RoomPlayersFrame(snap))
	c.gateway.Send(connID, protocol.HostStatusFrame(snap.HostID == connID))

	if previousHost != "" && previousHost != snap.HostID {
		log.Info().Str("room", p.RoomID).Str("from", previousHost).Str("to", snap.HostID).Msg("host taken by creator")
		c.gateway.Send(previousHost, protocol.HostStatusFrame(false))
	}
}

// leaveRequested handles an explicit leave-room. An empty room id means "whatever room
// I am in".
func (c *Coordinator) leaveRequested(connID, roomID string) {
	cur, ok := c.current[connID]
	if !ok {
		log.Debug().Str("conn", connID).Str("room", roomID).Msg("leave from connection outside any room")
		return
	}
	if roomID != "" && roomID != cur {
		log.Debug().Str("conn", connID).Str("room", roomID).Str("current", cur).Msg("leave for another room ignored")
		return
	}
	c.leave(connID, cur)
}

// leave removes connID from roomID and tells whoever is left.
func (c *Coordinator) leave(connID, roomID string) {
	delete(c.current, connID)
	// Unsubscribe first so the leaver does not receive the list it just left
	c.gateway.Unsubscribe(connID, roomID)

	res := c.registry.RemoveMember(roomID, connID)
	if !res.Removed {
		return
	}
	// Nobody left to tell
	if res.RoomDeleted {
		log.Info().Str("conn", connID).Str("room", roomID).Msg("room empty, deleted")
		return
	}

	snap, ok := c.registry.Snapshot(roomID)
	if !ok {
		return
	}
	log.Info().
		Str("conn", connID).
		Str("room", roomID).
		Str("host", snap.HostID).
		Int("players", len(snap.Members)).
		Msg("player left")

	c.gateway.Publish(roomID, protocol.RoomPlayersFrame(snap))
	// Succession: the new host learns about it privately
	if res.NewHostID != "" {
		log.Info().Str("room", roomID).Str("from", connID).Str("to", res.NewHostID).Msg("host handed over")
		c.gateway.Send(res.NewHostID, protocol.HostStatusFrame(true))
	}
}

// cleanUsername trims surrounding whitespace, cuts the name to MaxUsername runes and
// falls back to DefaultUsername when nothing is left.
func cleanUsername(name string) string {
	name = strings.TrimSpace(name)
	if r := []rune(name); len(r) > MaxUsername {
		name = strings.TrimSpace(string(r[:MaxUsername]))
	}
	if name == "" {
		return DefaultUsername
	}
	return name
}
