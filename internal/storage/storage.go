// Package storage is the single source of truth for ladder state.
package storage

import (
	"context"
	"fmt"

	"github.com/blademasters/bladebot/internal/models"
	"gorm.io/gorm"
)

type Storage struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Storage {
	return &Storage{db: db}
}

func (s *Storage) Migrate(ctx context.Context) error {
	if err := s.db.WithContext(ctx).AutoMigrate(
		&models.User{},
		&models.Challenge{},
		&models.Match{},
		&models.PendingRankChange{},
		&models.Ticket{},
		&models.BotLog{},
		&models.AdminAction{},
		&models.UserSettings{},
	); err != nil {
		return fmt.Errorf("migrating database: %w", err)
	}

	// Partial unique index: at most one pending challenge per
	// (challenger, type). Duplicate commands race on this constraint
	// instead of on a SELECT.
	if err := s.db.WithContext(ctx).Exec(
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_challenges_exclusive_pending
		 ON challenges (challenger_id, challenge_type)
		 WHERE status = 'pending'`,
	).Error; err != nil {
		return fmt.Errorf("creating pending-challenge index: %w", err)
	}

	return nil
}

// Transaction runs fn inside a database transaction, with the storage
// handle rebound to it.
func (s *Storage) Transaction(ctx context.Context, fn func(tx *Storage) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(New(tx))
	})
}
