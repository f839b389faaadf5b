package handlers

import (
	"errors"
	"net/mail"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/trentd187/escape-room/internal/middleware"
	"github.com/trentd187/escape-room/internal/models"
	"github.com/trentd187/escape-room/internal/session"
	"github.com/trentd187/escape-room/internal/store"
)

// UpdateProfileRequest is the JSON body of PUT /api/v1/profiles/me.
// Empty fields fall back to what the identity token says.
type UpdateProfileRequest struct {
	DisplayName string  `json:"displayName"`
	Email       string  `json:"email"`
	AvatarURL   *string `json:"avatarUrl"`
}

// Profiles and room members share one name limit.
const maxDisplayName = session.MaxUsername

// GetMyProfile handles GET /api/v1/profiles/me.
func GetMyProfile(profiles store.ProfileStore) fiber.Handler {
	return func(c *fiber.Ctx) error {
		uid, _ := c.Locals(middleware.LocalUserID).(string)
		return respondProfile(c, profiles, uid)
	}
}

// GetProfile handles GET /api/v1/profiles/:uid.
func GetProfile(profiles store.ProfileStore) fiber.Handler {
	return func(c *fiber.Ctx) error {
		return respondProfile(c, profiles, c.Params("uid"))
	}
}

func respondProfile(c *fiber.Ctx, profiles store.ProfileStore, uid string) error {
	p, err := profiles.Get(c.UserContext(), uid)
	if errors.Is(err, store.ErrNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "profile not found"})
	}
	if err != nil {
		log.Error().Err(err).Str("uid", uid).Msg("failed to load profile")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to load profile"})
	}
	return c.JSON(p)
}

// PutMyProfile handles PUT /api/v1/profiles/me: create the caller's profile on first
// call, update it afterwards. The role always comes from the token, never the body.
func PutMyProfile(profiles store.ProfileStore) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req UpdateProfileRequest
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
		}

		uid, _ := c.Locals(middleware.LocalUserID).(string)
		tokenName, _ := c.Locals(middleware.LocalUserName).(string)
		tokenEmail, _ := c.Locals(middleware.LocalUserEmail).(string)
		role, _ := c.Locals(middleware.LocalUserRole).(string)

		name := firstNonEmpty(strings.TrimSpace(req.DisplayName), tokenName)
		if name == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "displayName is required"})
		}
		if len([]rune(name)) > maxDisplayName {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "displayName is too long"})
		}

		email := firstNonEmpty(strings.TrimSpace(req.Email), tokenEmail)
		if _, err := mail.ParseAddress(email); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "a valid email is required"})
		}

		p := &models.Profile{
			UID:         uid,
			Email:       email,
			DisplayName: name,
			AvatarURL:   req.AvatarURL,
			Role:        models.RoleFromClaim(role),
		}
		if err := profiles.Upsert(c.UserContext(), p); err != nil {
			log.Error().Err(err).Str("uid", uid).Msg("failed to save profile")
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to save profile"})
		}
		return c.JSON(p)
	}
}

// DeleteMyProfile handles DELETE /api/v1/profiles/me.
func DeleteMyProfile(profiles store.ProfileStore) fiber.Handler {
	return func(c *fiber.Ctx) error {
		uid, _ := c.Locals(middleware.LocalUserID).(string)
		err := profiles.Delete(c.UserContext(), uid)
		if errors.Is(err, store.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "profile not found"})
		}
		if err != nil {
			log.Error().Err(err).Str("uid", uid).Msg("failed to delete profile")
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to delete profile"})
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
