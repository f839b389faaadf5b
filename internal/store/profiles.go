// Package store persists player profiles.
// Handlers depend on the ProfileStore interface; GormProfileStore is the postgres-backed
// implementation used in production.
package store

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/trentd187/escape-room/internal/models"
)

// ErrNotFound is returned when no profile has the requested uid.
var ErrNotFound = errors.New("profile not found")

// ProfileStore is the create/read/update/delete surface over profiles, keyed by uid.
type ProfileStore interface {
	Get(ctx context.Context, uid string) (*models.Profile, error)
	Upsert(ctx context.Context, p *models.Profile) error
	Delete(ctx context.Context, uid string) error
}

// GormProfileStore stores profiles in the profiles table.
type GormProfileStore struct {
	db *gorm.DB
}

// NewGormProfileStore wraps an open GORM handle.
func NewGormProfileStore(db *gorm.DB) *GormProfileStore {
	return &GormProfileStore{db: db}
}

// Get loads the profile for uid.
func (s *GormProfileStore) Get(ctx context.Context, uid string) (*models.Profile, error) {
	var p models.Profile
	err := s.db.WithContext(ctx).Where("uid = ?", uid).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get profile %s: %w", uid, err)
	}
	return &p, nil
}

// Upsert inserts p or, when a profile with the same uid exists, updates its editable
// columns. p is refreshed with the stored row.
func (s *GormProfileStore) Upsert(ctx context.Context, p *models.Profile) error {
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "uid"}},
		DoUpdates: clause.AssignmentColumns([]string{"email", "display_name", "avatar_url", "role", "updated_at"}),
	}).Create(p).Error
	if err != nil {
		return fmt.Errorf("upsert profile %s: %w", p.UID, err)
	}

	stored, err := s.Get(ctx, p.UID)
	if err != nil {
		return err
	}
	*p = *stored
	return nil
}

// Delete removes the profile for uid.
func (s *GormProfileStore) Delete(ctx context.Context, uid string) error {
	res := s.db.WithContext(ctx).Where("uid = ?", uid).Delete(&models.Profile{})
	if res.Error != nil {
		return fmt.Errorf("delete profile %s: %w", uid, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
