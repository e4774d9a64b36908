package ledger

import (
	"context"
	"fmt"

	"github.com/blademasters/bladebot/internal/elo"
	"github.com/blademasters/bladebot/internal/ladder"
	"github.com/blademasters/bladebot/internal/models"
	"github.com/blademasters/bladebot/internal/storage"
	"github.com/sirupsen/logrus"
)

type RecordParams struct {
	ChallengerID string // internal user ids
	ChallengedID string
	WinnerID     string
	MatchType    models.ChallengeType
	Score        string
	Notes        string
	RecordedBy   string
}

type RecordResult struct {
	Match *models.Match

	// PendingChange is set when a promotion match produced a legal rank
	// swap awaiting confirmation; RankChangeReason explains why not
	// otherwise.
	PendingChange    *models.PendingRankChange
	RankChangeReason string
}

// RecordMatch creates the immutable match record, applies rating and
// win/loss deltas to both participants, and, for promotion matches,
// files a pending rank change when the ladder allows the swap. Friendly
// duels are never recorded.
func (l *Ledger) RecordMatch(ctx context.Context, p RecordParams) (*RecordResult, error) {
	if !p.MatchType.Rated() {
		return nil, validationf("%s duels are not logged", p.MatchType)
	}
	if p.ChallengerID == p.ChallengedID {
		return nil, validationf("a member cannot duel themselves")
	}
	if p.WinnerID != p.ChallengerID && p.WinnerID != p.ChallengedID {
		return nil, validationf("the winner must be one of the two participants")
	}

	loserID := p.ChallengerID
	if p.WinnerID == p.ChallengerID {
		loserID = p.ChallengedID
	}

	winner, err := l.storage.GetUser(ctx, p.WinnerID)
	if err != nil {
		return nil, translate(err)
	}
	loser, err := l.storage.GetUser(ctx, loserID)
	if err != nil {
		return nil, translate(err)
	}

	winnerDelta, loserDelta, err := elo.ComputeDelta(winner.Rating, loser.Rating, winner.GamesPlayed, loser.GamesPlayed)
	if err != nil {
		return nil, validationf("computing rating change: %v", err)
	}

	match := &models.Match{
		ChallengerID:       p.ChallengerID,
		ChallengedID:       p.ChallengedID,
		WinnerID:           winner.ID,
		LoserID:            loser.ID,
		MatchType:          p.MatchType,
		Score:              p.Score,
		Notes:              p.Notes,
		WinnerRatingBefore: winner.Rating,
		LoserRatingBefore:  loser.Rating,
		WinnerRatingAfter:  elo.Clamp(winner.Rating + winnerDelta),
		LoserRatingAfter:   elo.Clamp(loser.Rating + loserDelta),
		WinnerDelta:        winnerDelta,
		LoserDelta:         loserDelta,
		RecordedBy:         p.RecordedBy,
	}

	result := &RecordResult{Match: match}

	winnerRank := ladder.Rank{Tier: winner.Tier, Numeral: winner.Numeral}
	loserRank := ladder.Rank{Tier: loser.Tier, Numeral: loser.Numeral}

	var swapOK bool
	if p.MatchType == models.ChallengeTypePromotion {
		ok, reason, err := l.ladder.CanPromote(ctx, winnerRank, loserRank)
		if err != nil {
			return nil, fmt.Errorf("checking promotion legality: %w", err)
		}
		swapOK = ok
		result.RankChangeReason = reason
	}

	if err := l.storage.Transaction(ctx, func(tx *storage.Storage) error {
		if err := tx.CreateMatch(ctx, match); err != nil {
			return err
		}
		if err := tx.ApplyMatchResult(ctx, winner.ID, true, winnerDelta, +1); err != nil {
			return err
		}
		if err := tx.ApplyMatchResult(ctx, loser.ID, false, loserDelta, +1); err != nil {
			return err
		}

		if swapOK {
			change := &models.PendingRankChange{
				MatchID:          match.ID,
				WinnerID:         winner.ID,
				LoserID:          loser.ID,
				WinnerOldTier:    winnerRank.Tier,
				WinnerOldNumeral: winnerRank.Numeral,
				WinnerNewTier:    loserRank.Tier,
				WinnerNewNumeral: loserRank.Numeral,
				LoserOldTier:     loserRank.Tier,
				LoserOldNumeral:  loserRank.Numeral,
				LoserNewTier:     winnerRank.Tier,
				LoserNewNumeral:  winnerRank.Numeral,
				Status:           models.RankChangeStatusPending,
			}
			if err := tx.CreatePendingRankChange(ctx, change); err != nil {
				return err
			}
			result.PendingChange = change
		}

		return nil
	}); err != nil {
		return nil, fmt.Errorf("recording match: %w", err)
	}

	if err := l.storage.LogAction(ctx, "match_recorded", p.RecordedBy,
		fmt.Sprintf("match=%d type=%s winner=%s", match.ID, p.MatchType, winner.ID)); err != nil {
		logrus.Errorf("failed to audit match recording: %v", err)
	}

	return result, nil
}

// VoidMatch reverses the rating and win/loss effects of a recorded match
// and deletes the row. A rank change already confirmed off this match is
// left untouched; reversing ranks stays a manual decision.
func (l *Ledger) VoidMatch(ctx context.Context, matchID uint, actorID, reason string) (*models.Match, error) {
	match, err := l.storage.GetMatch(ctx, matchID)
	if err != nil {
		return nil, translate(err)
	}

	if err := l.storage.Transaction(ctx, func(tx *storage.Storage) error {
		if err := tx.ApplyMatchResult(ctx, match.WinnerID, true, match.WinnerDelta, -1); err != nil {
			return err
		}
		if err := tx.ApplyMatchResult(ctx, match.LoserID, false, match.LoserDelta, -1); err != nil {
			return err
		}
		if err := tx.DeleteMatch(ctx, match.ID); err != nil {
			return err
		}
		return tx.LogAdminAction(ctx, actorID, "match_voided", match.WinnerID,
			fmt.Sprintf("match=%d reason=%s", match.ID, reason))
	}); err != nil {
		return nil, fmt.Errorf("voiding match: %w", err)
	}

	return match, nil
}

// EditMatch applies moderator corrections to descriptive fields (score,
// notes). Result and rating fields are immutable; fixing those means
// voiding and re-recording.
func (l *Ledger) EditMatch(ctx context.Context, matchID uint, actorID string, fields map[string]any) (*models.Match, error) {
	for k := range fields {
		if k != "score" && k != "notes" {
			return nil, validationf("field %q cannot be edited", k)
		}
	}
	if len(fields) == 0 {
		return nil, validationf("nothing to edit")
	}

	if _, err := l.storage.GetMatch(ctx, matchID); err != nil {
		return nil, translate(err)
	}

	if err := l.storage.UpdateMatch(ctx, matchID, fields); err != nil {
		return nil, fmt.Errorf("editing match: %w", err)
	}
	if err := l.storage.LogAdminAction(ctx, actorID, "match_edited", "",
		fmt.Sprintf("match=%d fields=%v", matchID, fields)); err != nil {
		logrus.Errorf("failed to audit match edit: %v", err)
	}

	return l.storage.GetMatch(ctx, matchID)
}

func (l *Ledger) MatchHistory(ctx context.Context, user *models.User, limit int) ([]*models.Match, error) {
	matches, err := l.storage.GetUserMatches(ctx, user.ID, limit)
	if err != nil {
		return nil, translate(err)
	}
	return matches, nil
}

func (l *Ledger) RecentMatches(ctx context.Context, limit int) ([]*models.Match, error) {
	matches, err := l.storage.GetRecentMatches(ctx, limit)
	if err != nil {
		return nil, translate(err)
	}
	return matches, nil
}
