package middleware

import "github.com/gofiber/fiber/v2"

// RequireRole lets a request through only when the role stored by Auth is one of roles.
// It must run after Auth; without a stored role the answer is 403.
//
//	api.Get("/rooms", middleware.RequireRole("admin"), handlers.ListRooms(reg))
func RequireRole(roles ...string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userRole, _ := c.Locals(LocalUserRole).(string)
		for _, role := range roles {
			if userRole != "" && userRole == role {
				return c.Next()
			}
		}
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "insufficient permissions",
		})
	}
}
