package session

import (
	"github.com/rs/zerolog/log"

	"github.com/trentd187/escape-room/internal/protocol"
)

// startGame lets the host move the whole room into the game.
// Requests from anyone else, or repeated requests after the room has started, are
// dropped without telling the sender: the start button is a lobby convenience, not a
// security boundary.
func (c *Coordinator) startGame(connID string, p protocol.StartGame) {
	if !c.registry.IsHost(p.RoomID, connID) {
		log.Debug().Str("conn", connID).Str("room", p.RoomID).Msg("start-game from non-host ignored")
		return
	}
	if !c.registry.MarkStarted(p.RoomID) {
		log.Debug().Str("conn", connID).Str("room", p.RoomID).Msg("start-game for started room ignored")
		return
	}

	theme := p.Theme
	if theme != "" {
		c.registry.SetTheme(p.RoomID, theme)
	} else if snap, ok := c.registry.Snapshot(p.RoomID); ok {
		theme = snap.Theme
	}

	c.fanOutStart(p.RoomID, theme)
}

// fanOutStart delivers one start-game frame to every connection subscribed to the room
// right now. Connections that join later get nothing replayed.
func (c *Coordinator) fanOutStart(roomID, theme string) {
	log.Info().Str("room", roomID).Str("theme", theme).Msg("game started")
	c.gateway.Publish(roomID, protocol.GameStartedFrame(theme))
}
