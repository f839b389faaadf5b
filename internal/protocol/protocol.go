// Package protocol defines the realtime wire format spoken over each websocket.
//
// Every text frame is a JSON envelope {"event": "<name>", "data": <payload>}. Inbound
// events come from clients (join-room, start-game, leave-room); outbound events are
// produced by the session coordinator (room-players, host-status, start-game).
package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/trentd187/escape-room/internal/registry"
)

// Event names, shared by both directions where the name is the same on the wire.
const (
	EventJoinRoom    = "join-room"
	EventLeaveRoom   = "leave-room"
	EventStartGame   = "start-game"
	EventRoomPlayers = "room-players"
	EventHostStatus  = "host-status"
)

var (
	ErrMalformed    = errors.New("malformed frame")
	ErrUnknownEvent = errors.New("unknown event")
	ErrMissingRoom  = errors.New("roomId is required")
)

// Envelope is the outer shape of every frame.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// JoinRoom is the payload of an inbound join-room.
type JoinRoom struct {
	RoomID    string `json:"roomId"`
	Username  string `json:"username"`
	IsCreator bool   `json:"isCreator"`
}

// StartGame is the payload of an inbound start-game.
type StartGame struct {
	RoomID string `json:"roomId"`
	Theme  string `json:"theme"`
}

// LeaveRoom carries the room named by an inbound leave-room. On the wire the payload is
// a bare JSON string.
type LeaveRoom struct {
	RoomID string
}

// RoomPlayers is the full-membership broadcast. Clients replace their whole view with it.
type RoomPlayers struct {
	Players []registry.Member `json:"players"`
	HostID  *string           `json:"hostId"`
}

// GameStarted is the outbound start-game payload.
type GameStarted struct {
	Theme string `json:"theme"`
}

// Decode parses one inbound frame into JoinRoom, StartGame or LeaveRoom.
func Decode(frame []byte) (any, error) {
	var env Envelope
	if err := json.Unmarshal(frame, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	switch env.Event {
	case EventJoinRoom:
		var p JoinRoom
		if err := unmarshalData(env.Data, &p); err != nil {
			return nil, err
		}
		p.RoomID = strings.TrimSpace(p.RoomID)
		p.Username = strings.TrimSpace(p.Username)
		if p.RoomID == "" {
			return nil, ErrMissingRoom
		}
		return p, nil

	case EventStartGame:
		var p StartGame
		if err := unmarshalData(env.Data, &p); err != nil {
			return nil, err
		}
		p.RoomID = strings.TrimSpace(p.RoomID)
		p.Theme = strings.TrimSpace(p.Theme)
		if p.RoomID == "" {
			return nil, ErrMissingRoom
		}
		return p, nil

	case EventLeaveRoom:
		// The room id is optional here; the coordinator already knows where the
		// connection is, so an empty leave-room still means "leave my room".
		var roomID string
		if len(env.Data) > 0 && string(env.Data) != "null" {
			if err := json.Unmarshal(env.Data, &roomID); err != nil {
				return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
			}
		}
		return LeaveRoom{RoomID: strings.TrimSpace(roomID)}, nil
	}

	return nil, fmt.Errorf("%w: %q", ErrUnknownEvent, env.Event)
}

func unmarshalData(data json.RawMessage, v any) error {
	if len(data) == 0 {
		return fmt.Errorf("%w: missing data", ErrMalformed)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return nil
}

// Encode wraps payload in an envelope. Payloads are plain structs and booleans, so a
// marshal failure is a programming error and panics.
func Encode(event string, payload any) []byte {
	data, err := json.Marshal(payload)
	if err != nil {
		panic(fmt.Sprintf("protocol: encode %s: %v", event, err))
	}
	frame, err := json.Marshal(Envelope{Event: event, Data: data})
	if err != nil {
		panic(fmt.Sprintf("protocol: encode %s: %v", event, err))
	}
	return frame
}

// RoomPlayersFrame builds the room-players broadcast for a snapshot.
// An unknown host is sent as null.
func RoomPlayersFrame(snap registry.Snapshot) []byte {
	payload := RoomPlayers{Players: snap.Members}
	if payload.Players == nil {
		payload.Players = []registry.Member{}
	}
	if snap.HostID != "" {
		host := snap.HostID
		payload.HostID = &host
	}
	return Encode(EventRoomPlayers, payload)
}

// HostStatusFrame builds the host-status unicast.
func HostStatusFrame(isHost bool) []byte {
	return Encode(EventHostStatus, isHost)
}

// GameStartedFrame builds the start-game broadcast.
func GameStartedFrame(theme string) []byte {
	return Encode(EventStartGame, GameStarted{Theme: theme})
}
