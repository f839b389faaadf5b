package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/trentd187/escape-room/internal/registry"
)

// RoomReader is the read side of the room registry.
type RoomReader interface {
	Snapshot(roomID string) (registry.Snapshot, bool)
	List() []registry.Snapshot
}

// ListRooms handles GET /api/v1/rooms (admin only): every live room, ordered by id.
func ListRooms(rooms RoomReader) fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.JSON(rooms.List())
	}
}

// GetRoom handles GET /api/v1/rooms/:id. It lets a page that was reloaded ask where
// things stand without joining; membership changes still arrive over the websocket.
func GetRoom(rooms RoomReader) fiber.Handler {
	return func(c *fiber.Ctx) error {
		snap, ok := rooms.Snapshot(c.Params("id"))
		if !ok {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "room not found",
			})
		}
		return c.JSON(snap)
	}
}
