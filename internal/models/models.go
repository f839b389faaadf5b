// Package models defines the data structures that map to database tables.
// GORM uses these structs to generate SQL queries and map rows back to Go values.
//
// Rooms are deliberately NOT here: room state lives in memory only and disappears with
// the process. The only persisted record is a player's profile, which belongs to the
// identity issued by the external auth provider.
package models

import (
	"time"

	"github.com/google/uuid"
)

// UserRole is a profile's global permission level.
type UserRole string

const (
	UserRoleAdmin UserRole = "admin" // Can inspect every live room
	UserRoleUser  UserRole = "user"  // Regular player
)

// RoleFromClaim converts the raw role string from a token into a UserRole.
// Unknown or empty values fall back to the least privileged role.
func RoleFromClaim(s string) UserRole {
	if s == string(UserRoleAdmin) {
		return UserRoleAdmin
	}
	return UserRoleUser
}

// Profile is a player's stored profile, keyed by the auth provider's user id (UID).
type Profile struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"-"`
	UID         string    `gorm:"uniqueIndex;not null" json:"uid"`                      // Subject of the identity token
	Email       string    `gorm:"uniqueIndex;not null" json:"email"`                    // Primary email from the auth provider
	DisplayName string    `gorm:"not null" json:"displayName"`                          // Name shown in rooms by default
	AvatarURL   *string   `json:"avatarUrl"`                                            // Optional picture; pointer = nullable
	Role        UserRole  `gorm:"type:varchar(16);not null;default:'user'" json:"role"` // Global role
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}
