package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/blademasters/bladebot/internal/models"
)

func (s *Storage) CreateChallenge(ctx context.Context, challenge *models.Challenge) error {
	if err := s.db.WithContext(ctx).Create(challenge).Error; err != nil {
		return fmt.Errorf("creating challenge: %w", err)
	}
	return nil
}

func (s *Storage) GetChallenge(ctx context.Context, id uint) (*models.Challenge, error) {
	var challenge models.Challenge
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&challenge).Error; err != nil {
		return nil, fmt.Errorf("getting challenge: %w", err)
	}
	return &challenge, nil
}

// TransitionChallenge moves a pending challenge to a terminal state,
// optionally setting extra fields. The WHERE on the current status makes
// concurrent duplicate transitions yield exactly one winner.
func (s *Storage) TransitionChallenge(ctx context.Context, id uint, to models.ChallengeStatus, extra map[string]any) (bool, error) {
	fields := map[string]any{"status": to}
	for k, v := range extra {
		fields[k] = v
	}

	res := s.db.
		WithContext(ctx).
		Model(&models.Challenge{}).
		Where("id = ? AND status = ?", id, models.ChallengeStatusPending).
		Updates(fields)
	if res.Error != nil {
		return false, fmt.Errorf("transitioning challenge: %w", res.Error)
	}
	return res.RowsAffected == 1, nil
}

func (s *Storage) SetChallengeTicket(ctx context.Context, id uint, channelID string) error {
	if err := s.db.
		WithContext(ctx).
		Model(&models.Challenge{}).
		Where("id = ?", id).
		Update("ticket_channel_id", channelID).
		Error; err != nil {
		return fmt.Errorf("setting challenge ticket: %w", err)
	}
	return nil
}

// ExpirePendingChallenges sweeps challenges past their expiry. Running
// it again immediately is a no-op because the WHERE only matches rows
// still pending.
func (s *Storage) ExpirePendingChallenges(ctx context.Context, now time.Time) (int64, error) {
	res := s.db.
		WithContext(ctx).
		Model(&models.Challenge{}).
		Where("status = ? AND expires_at <= ?", models.ChallengeStatusPending, now).
		Update("status", models.ChallengeStatusExpired)
	if res.Error != nil {
		return 0, fmt.Errorf("expiring challenges: %w", res.Error)
	}
	return res.RowsAffected, nil
}

// GetPendingChallengesFor lists pending, unexpired challenges a user may
// act on: those addressed to them plus open ones from other members.
func (s *Storage) GetPendingChallengesFor(ctx context.Context, userID string, now time.Time) ([]*models.Challenge, error) {
	var challenges []*models.Challenge
	if err := s.db.
		WithContext(ctx).
		Where(
			"(challenged_id = ? OR (challenged_id = '' AND challenger_id != ?)) AND status = ? AND expires_at > ?",
			userID, userID, models.ChallengeStatusPending, now,
		).
		Order("created_at DESC").
		Find(&challenges).
		Error; err != nil {
		return nil, fmt.Errorf("getting pending challenges: %w", err)
	}
	return challenges, nil
}

func (s *Storage) GetPendingChallengesBy(ctx context.Context, challengerID string, now time.Time) ([]*models.Challenge, error) {
	var challenges []*models.Challenge
	if err := s.db.
		WithContext(ctx).
		Where("challenger_id = ? AND status = ? AND expires_at > ?",
			challengerID, models.ChallengeStatusPending, now).
		Order("created_at DESC").
		Find(&challenges).
		Error; err != nil {
		return nil, fmt.Errorf("getting challenges by challenger: %w", err)
	}
	return challenges, nil
}

// FindPendingChallengeBetween returns the most recent pending challenge
// from challenger that challenged may accept, specific or open.
func (s *Storage) FindPendingChallengeBetween(ctx context.Context, challengerID, challengedID string, now time.Time) (*models.Challenge, error) {
	var challenge models.Challenge
	if err := s.db.
		WithContext(ctx).
		Where(
			"challenger_id = ? AND (challenged_id = ? OR challenged_id = '') AND status = ? AND expires_at > ?",
			challengerID, challengedID, models.ChallengeStatusPending, now,
		).
		Order("created_at DESC").
		First(&challenge).
		Error; err != nil {
		return nil, fmt.Errorf("finding challenge between users: %w", err)
	}
	return &challenge, nil
}
