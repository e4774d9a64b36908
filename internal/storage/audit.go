package storage

import (
	"context"
	"fmt"

	"github.com/blademasters/bladebot/internal/models"
)

func (s *Storage) LogAction(ctx context.Context, actionType, userID, details string) error {
	if err := s.db.WithContext(ctx).Create(&models.BotLog{
		ActionType: actionType,
		UserID:     userID,
		Details:    details,
	}).Error; err != nil {
		return fmt.Errorf("logging action: %w", err)
	}
	return nil
}

func (s *Storage) LogAdminAction(ctx context.Context, adminID, actionType, targetUserID, details string) error {
	if err := s.db.WithContext(ctx).Create(&models.AdminAction{
		AdminID:      adminID,
		ActionType:   actionType,
		TargetUserID: targetUserID,
		Details:      details,
	}).Error; err != nil {
		return fmt.Errorf("logging admin action: %w", err)
	}
	return nil
}

func (s *Storage) GetOrCreateSettings(ctx context.Context, userID string) (*models.UserSettings, error) {
	settings := models.UserSettings{
		UserID:            userID,
		DuelNotifications: true,
		RankNotifications: true,
		Timezone:          "UTC",
	}
	if err := s.db.WithContext(ctx).FirstOrCreate(&settings, models.UserSettings{UserID: userID}).Error; err != nil {
		return nil, fmt.Errorf("getting settings: %w", err)
	}
	return &settings, nil
}

func (s *Storage) UpdateSettings(ctx context.Context, userID string, fields map[string]any) error {
	if err := s.db.
		WithContext(ctx).
		Model(&models.UserSettings{}).
		Where("user_id = ?", userID).
		Updates(fields).
		Error; err != nil {
		return fmt.Errorf("updating settings: %w", err)
	}
	return nil
}
