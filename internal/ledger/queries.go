package ledger

import (
	"context"

	"github.com/blademasters/bladebot/internal/elo"
	"github.com/blademasters/bladebot/internal/ladder"
	"github.com/blademasters/bladebot/internal/models"
)

// Profile is a user's ladder record with derived statistics.
type Profile struct {
	User     *models.User
	Position int
	WinRate  float64
}

func (l *Ledger) GetProfile(ctx context.Context, user *models.User) (*Profile, error) {
	position, err := l.storage.LeaderboardPosition(ctx, user.ID)
	if err != nil {
		return nil, translate(err)
	}

	return &Profile{
		User:     user,
		Position: position,
		WinRate:  user.WinRate(),
	}, nil
}

func (l *Ledger) Leaderboard(ctx context.Context, limit int) ([]*models.User, error) {
	users, err := l.storage.GetLeaderboard(ctx, limit)
	if err != nil {
		return nil, translate(err)
	}
	return users, nil
}

func (l *Ledger) SearchUsers(ctx context.Context, query string, limit int) ([]*models.User, error) {
	users, err := l.storage.SearchUsers(ctx, query, limit)
	if err != nil {
		return nil, translate(err)
	}
	return users, nil
}

// HeadToHead is the lifetime record between two users.
type HeadToHead struct {
	Matches []*models.Match
	WinsA   int
	WinsB   int
}

func (l *Ledger) Compare(ctx context.Context, a, b *models.User) (*HeadToHead, error) {
	matches, err := l.storage.GetMatchesBetween(ctx, a.ID, b.ID)
	if err != nil {
		return nil, translate(err)
	}

	h2h := &HeadToHead{Matches: matches}
	for _, m := range matches {
		if m.WinnerID == a.ID {
			h2h.WinsA++
		} else {
			h2h.WinsB++
		}
	}
	return h2h, nil
}

// RankSlot is one rung of the ladder with its live occupancy.
type RankSlot struct {
	Rank      ladder.Rank
	Occupancy int
	Capacity  int
}

func (s RankSlot) Full() bool {
	return s.Occupancy >= s.Capacity
}

// RankDistribution reports occupancy for every rank, floor to ceiling.
func (l *Ledger) RankDistribution(ctx context.Context) ([]RankSlot, error) {
	var slots []RankSlot
	for _, r := range ladder.Ranks() {
		count, err := l.ladder.Occupancy(ctx, r)
		if err != nil {
			return nil, err
		}
		slots = append(slots, RankSlot{
			Rank:      r,
			Occupancy: count,
			Capacity:  ladder.Capacity(r),
		})
	}
	return slots, nil
}

// RatingPreview shows what a hypothetical matchup would do to a player's
// rating.
type RatingPreview struct {
	WinProbability float64
	DeltaIfWin     int
	DeltaIfLoss    int
}

func (l *Ledger) PreviewRating(player, opponent *models.User) (*RatingPreview, error) {
	winDelta, _, err := elo.ComputeDelta(player.Rating, opponent.Rating, player.GamesPlayed, opponent.GamesPlayed)
	if err != nil {
		return nil, validationf("computing preview: %v", err)
	}
	_, lossDelta, err := elo.ComputeDelta(opponent.Rating, player.Rating, opponent.GamesPlayed, player.GamesPlayed)
	if err != nil {
		return nil, validationf("computing preview: %v", err)
	}

	return &RatingPreview{
		WinProbability: elo.WinProbability(player.Rating, opponent.Rating),
		DeltaIfWin:     winDelta,
		DeltaIfLoss:    lossDelta,
	}, nil
}

// PromotionTargets lists the active members holding the rank directly
// above the challenger, i.e. legal promotion-challenge opponents.
func (l *Ledger) PromotionTargets(ctx context.Context, challenger *models.User) ([]*models.User, ladder.Rank, error) {
	next, ok := ladder.Next(ladder.Rank{Tier: challenger.Tier, Numeral: challenger.Numeral})
	if !ok {
		return nil, ladder.Rank{}, validationf("you are already at the top of the ladder")
	}

	users, err := l.storage.GetUsersByRank(ctx, next.Tier, next.Numeral)
	if err != nil {
		return nil, ladder.Rank{}, translate(err)
	}
	return users, next, nil
}

func (l *Ledger) GetMatch(ctx context.Context, id uint) (*models.Match, error) {
	match, err := l.storage.GetMatch(ctx, id)
	if err != nil {
		return nil, translate(err)
	}
	return match, nil
}

func (l *Ledger) GetUserByDiscordID(ctx context.Context, discordID string) (*models.User, error) {
	user, err := l.storage.GetUserByDiscordID(ctx, discordID)
	if err != nil {
		return nil, translate(err)
	}
	return user, nil
}
