// Package middleware contains Fiber middleware shared by the HTTP API and the websocket
// upgrade route.
//
// Identity comes from an external auth provider that issues HS256-signed JWTs. The token
// subject is the stable user id; custom claims carry the display name, email and role.
// This server never issues tokens itself.
package middleware

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog/log"

	"github.com/trentd187/escape-room/internal/models"
)

// Keys under which identity is stored in c.Locals.
const (
	LocalUserID    = "userID"
	LocalUserName  = "userName"
	LocalUserEmail = "userEmail"
	LocalUserRole  = "userRole"
)

var (
	ErrMissingToken = errors.New("missing token")
	ErrInvalidToken = errors.New("invalid token")
)

// Claims is the payload we expect from the auth provider.
type Claims struct {
	jwt.RegisteredClaims        // Subject = user id, plus expiry
	Role                 string `json:"role"`
	Email                string `json:"email"`
	Name                 string `json:"name"`
}

// ParseToken verifies tokenStr with secret and returns its claims.
func ParseToken(secret []byte, tokenStr string) (*Claims, error) {
	if len(secret) == 0 || tokenStr == "" {
		return nil, ErrMissingToken
	}

	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (any, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, errors.Join(ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.Subject == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// Auth rejects requests without a valid "Authorization: Bearer <token>" header and stores
// the caller's identity in c.Locals for the handlers below it.
func Auth(secret string) fiber.Handler {
	key := []byte(secret)
	return func(c *fiber.Ctx) error {
		claims, err := ParseToken(key, bearer(c))
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "missing or invalid token",
			})
		}
		storeIdentity(c, claims)
		return c.Next()
	}
}

// Identify is the optional flavour of Auth used on the websocket route: browsers cannot
// set headers on a websocket handshake, so the token may also come as ?token=. A missing
// or bad token just means an anonymous connection.
func Identify(secret string) fiber.Handler {
	key := []byte(secret)
	return func(c *fiber.Ctx) error {
		tokenStr := c.Query("token")
		if tokenStr == "" {
			tokenStr = bearer(c)
		}
		if tokenStr == "" || len(key) == 0 {
			return c.Next()
		}

		claims, err := ParseToken(key, tokenStr)
		if err != nil {
			log.Debug().Err(err).Str("ip", c.IP()).Msg("ignoring invalid identity token")
			return c.Next()
		}
		storeIdentity(c, claims)
		return c.Next()
	}
}

func bearer(c *fiber.Ctx) string {
	h := c.Get(fiber.HeaderAuthorization)
	if !strings.HasPrefix(h, "Bearer ") {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
}

func storeIdentity(c *fiber.Ctx, claims *Claims) {
	c.Locals(LocalUserID, claims.Subject)
	c.Locals(LocalUserName, claims.Name)
	c.Locals(LocalUserEmail, claims.Email)
	c.Locals(LocalUserRole, string(models.RoleFromClaim(claims.Role)))
}
