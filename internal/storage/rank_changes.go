package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/blademasters/bladebot/internal/models"
)

func (s *Storage) CreatePendingRankChange(ctx context.Context, change *models.PendingRankChange) error {
	if err := s.db.WithContext(ctx).Create(change).Error; err != nil {
		return fmt.Errorf("creating pending rank change: %w", err)
	}
	return nil
}

func (s *Storage) GetPendingRankChange(ctx context.Context, id uint) (*models.PendingRankChange, error) {
	var change models.PendingRankChange
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&change).Error; err != nil {
		return nil, fmt.Errorf("getting pending rank change: %w", err)
	}
	return &change, nil
}

func (s *Storage) GetPendingRankChanges(ctx context.Context) ([]*models.PendingRankChange, error) {
	var changes []*models.PendingRankChange
	if err := s.db.
		WithContext(ctx).
		Where("status = ?", models.RankChangeStatusPending).
		Order("created_at ASC").
		Find(&changes).
		Error; err != nil {
		return nil, fmt.Errorf("getting pending rank changes: %w", err)
	}
	return changes, nil
}

// ResolveRankChange moves a pending change to confirmed or rejected.
// Returns false when the row was already processed.
func (s *Storage) ResolveRankChange(ctx context.Context, id uint, to models.RankChangeStatus, processedBy string, at time.Time) (bool, error) {
	res := s.db.
		WithContext(ctx).
		Model(&models.PendingRankChange{}).
		Where("id = ? AND status = ?", id, models.RankChangeStatusPending).
		Updates(map[string]any{
			"status":       to,
			"processed_at": at,
			"processed_by": processedBy,
		})
	if res.Error != nil {
		return false, fmt.Errorf("resolving rank change: %w", res.Error)
	}
	return res.RowsAffected == 1, nil
}
