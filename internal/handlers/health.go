// Package handlers contains the HTTP route handlers. Each exported function is a
// "handler factory": it takes the dependencies it needs and returns a fiber.Handler,
// so nothing here reaches for globals.
package handlers

import "github.com/gofiber/fiber/v2"

// Counter is anything that can report a size: the room registry, the websocket hub.
type Counter interface {
	Len() int
}

// CounterFunc adapts a plain function to Counter.
type CounterFunc func() int

// Len calls f.
func (f CounterFunc) Len() int { return f() }

// HealthCheck handles GET /health. It is a liveness probe: no database, no auth, just
// proof the process answers plus the current room and connection counts.
func HealthCheck(rooms, connections Counter) fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":      "ok",
			"rooms":       rooms.Len(),
			"connections": connections.Len(),
		})
	}
}
