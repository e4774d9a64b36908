package storage

import (
	"context"
	"fmt"

	"github.com/blademasters/bladebot/internal/models"
)

func (s *Storage) CreateMatch(ctx context.Context, match *models.Match) error {
	if err := s.db.WithContext(ctx).Create(match).Error; err != nil {
		return fmt.Errorf("creating match: %w", err)
	}
	return nil
}

func (s *Storage) GetMatch(ctx context.Context, id uint) (*models.Match, error) {
	var match models.Match
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&match).Error; err != nil {
		return nil, fmt.Errorf("getting match: %w", err)
	}
	return &match, nil
}

func (s *Storage) UpdateMatch(ctx context.Context, id uint, fields map[string]any) error {
	if err := s.db.
		WithContext(ctx).
		Model(&models.Match{}).
		Where("id = ?", id).
		Updates(fields).
		Error; err != nil {
		return fmt.Errorf("updating match: %w", err)
	}
	return nil
}

func (s *Storage) DeleteMatch(ctx context.Context, id uint) error {
	if err := s.db.WithContext(ctx).Delete(&models.Match{}, id).Error; err != nil {
		return fmt.Errorf("deleting match: %w", err)
	}
	return nil
}

func (s *Storage) GetUserMatches(ctx context.Context, userID string, limit int) ([]*models.Match, error) {
	var matches []*models.Match
	if err := s.db.
		WithContext(ctx).
		Where("challenger_id = ? OR challenged_id = ?", userID, userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&matches).
		Error; err != nil {
		return nil, fmt.Errorf("getting user matches: %w", err)
	}
	return matches, nil
}

func (s *Storage) GetRecentMatches(ctx context.Context, limit int) ([]*models.Match, error) {
	var matches []*models.Match
	if err := s.db.
		WithContext(ctx).
		Order("created_at DESC").
		Limit(limit).
		Find(&matches).
		Error; err != nil {
		return nil, fmt.Errorf("getting recent matches: %w", err)
	}
	return matches, nil
}

func (s *Storage) GetMatchesBetween(ctx context.Context, userA, userB string) ([]*models.Match, error) {
	var matches []*models.Match
	if err := s.db.
		WithContext(ctx).
		Where(
			"(challenger_id = ? AND challenged_id = ?) OR (challenger_id = ? AND challenged_id = ?)",
			userA, userB, userB, userA,
		).
		Order("created_at DESC").
		Find(&matches).
		Error; err != nil {
		return nil, fmt.Errorf("getting matches between users: %w", err)
	}
	return matches, nil
}
