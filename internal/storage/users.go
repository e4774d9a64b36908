package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/blademasters/bladebot/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

func (s *Storage) GetUser(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&user).Error; err != nil {
		return nil, fmt.Errorf("getting user: %w", err)
	}
	return &user, nil
}

func (s *Storage) GetUserByDiscordID(ctx context.Context, discordID string) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).Where("discord_id = ?", discordID).First(&user).Error; err != nil {
		return nil, fmt.Errorf("getting user by discord id: %w", err)
	}
	return &user, nil
}

// GetOrCreateUser registers a member on first contact. New users start
// as Guests off the ladder with the starting rating; the conflict clause
// makes concurrent first interactions collapse into one row.
func (s *Storage) GetOrCreateUser(ctx context.Context, discordID, displayName string, rating int) (*models.User, error) {
	userToCreate := &models.User{
		ID:          uuid.New().String(),
		DiscordID:   discordID,
		DisplayName: displayName,
		Tier:        "Guest",
		Rating:      rating,
		Status:      models.UserStatusActive,
	}

	var user models.User
	if err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.
			Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "discord_id"}},
				DoNothing: true,
			}).
			Create(userToCreate).
			Error; err != nil {
			return fmt.Errorf("creating user: %w", err)
		}

		if err := tx.
			Where("discord_id = ?", discordID).
			First(&user).
			Error; err != nil {
			return fmt.Errorf("getting user: %w", err)
		}

		return nil
	}); err != nil {
		return nil, fmt.Errorf("in tx: %w", err)
	}

	return &user, nil
}

func (s *Storage) UpdateUser(ctx context.Context, id string, fields map[string]any) error {
	if err := s.db.
		WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", id).
		Updates(fields).
		Error; err != nil {
		return fmt.Errorf("updating user: %w", err)
	}
	return nil
}

func (s *Storage) SetUserRank(ctx context.Context, id, tier, numeral string) error {
	return s.UpdateUser(ctx, id, map[string]any{"tier": tier, "numeral": numeral})
}

func (s *Storage) SetUserStatus(ctx context.Context, id string, status models.UserStatus) error {
	return s.UpdateUser(ctx, id, map[string]any{"status": status})
}

func (s *Storage) TouchLastChallenge(ctx context.Context, id string, at time.Time) error {
	return s.UpdateUser(ctx, id, map[string]any{"last_challenge_at": at})
}

// ApplyMatchResult moves a participant's stats after a recorded match.
// The rating is clamped at 0; sign=+1 applies, sign=-1 reverses a void.
func (s *Storage) ApplyMatchResult(ctx context.Context, id string, won bool, ratingDelta, sign int) error {
	winInc, lossInc := 0, 0
	if won {
		winInc = sign
	} else {
		lossInc = sign
	}

	if err := s.db.
		WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"rating":       gorm.Expr("MAX(0, rating + ?)", ratingDelta*sign),
			"wins":         gorm.Expr("wins + ?", winInc),
			"losses":       gorm.Expr("losses + ?", lossInc),
			"games_played": gorm.Expr("games_played + ?", sign),
		}).
		Error; err != nil {
		return fmt.Errorf("applying match result: %w", err)
	}
	return nil
}

func (s *Storage) CountActiveByRank(ctx context.Context, tier, numeral string) (int, error) {
	var count int64
	if err := s.db.
		WithContext(ctx).
		Model(&models.User{}).
		Where("tier = ? AND numeral = ? AND status = ?", tier, numeral, models.UserStatusActive).
		Count(&count).
		Error; err != nil {
		return 0, fmt.Errorf("counting rank occupancy: %w", err)
	}
	return int(count), nil
}

func (s *Storage) GetUsersByRank(ctx context.Context, tier, numeral string) ([]*models.User, error) {
	var users []*models.User
	if err := s.db.
		WithContext(ctx).
		Where("tier = ? AND numeral = ? AND status = ?", tier, numeral, models.UserStatusActive).
		Order("rating DESC").
		Find(&users).
		Error; err != nil {
		return nil, fmt.Errorf("getting users by rank: %w", err)
	}
	return users, nil
}

func (s *Storage) GetLeaderboard(ctx context.Context, limit int) ([]*models.User, error) {
	var users []*models.User
	if err := s.db.
		WithContext(ctx).
		Where("status = ?", models.UserStatusActive).
		Order("rating DESC").
		Limit(limit).
		Find(&users).
		Error; err != nil {
		return nil, fmt.Errorf("getting leaderboard: %w", err)
	}
	return users, nil
}

// LeaderboardPosition is the 1-indexed standing among active users.
func (s *Storage) LeaderboardPosition(ctx context.Context, id string) (int, error) {
	user, err := s.GetUser(ctx, id)
	if err != nil {
		return 0, err
	}

	var above int64
	if err := s.db.
		WithContext(ctx).
		Model(&models.User{}).
		Where("rating > ? AND status = ?", user.Rating, models.UserStatusActive).
		Count(&above).
		Error; err != nil {
		return 0, fmt.Errorf("counting leaderboard position: %w", err)
	}
	return int(above) + 1, nil
}

func (s *Storage) SearchUsers(ctx context.Context, query string, limit int) ([]*models.User, error) {
	var users []*models.User
	if err := s.db.
		WithContext(ctx).
		Where("display_name LIKE ? OR roblox_username LIKE ?", "%"+query+"%", "%"+query+"%").
		Order("display_name").
		Limit(limit).
		Find(&users).
		Error; err != nil {
		return nil, fmt.Errorf("searching users: %w", err)
	}
	return users, nil
}

func (s *Storage) GetActiveUsers(ctx context.Context) ([]*models.User, error) {
	var users []*models.User
	if err := s.db.
		WithContext(ctx).
		Where("status = ?", models.UserStatusActive).
		Find(&users).
		Error; err != nil {
		return nil, fmt.Errorf("getting active users: %w", err)
	}
	return users, nil
}

func (s *Storage) GetReserveUsers(ctx context.Context) ([]*models.User, error) {
	var users []*models.User
	if err := s.db.
		WithContext(ctx).
		Where("status = ?", models.UserStatusReserve).
		Order("display_name").
		Find(&users).
		Error; err != nil {
		return nil, fmt.Errorf("getting reserve users: %w", err)
	}
	return users, nil
}
