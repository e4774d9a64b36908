package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/blademasters/bladebot/internal/ladder"
	"github.com/blademasters/bladebot/internal/models"
	"github.com/blademasters/bladebot/internal/storage"
)

// ConfirmRankChange applies a pending rank swap to both participants and
// flags the originating match. Role reassignment on the chat platform is
// the caller's follow-up; its failure must not undo this commit.
func (l *Ledger) ConfirmRankChange(ctx context.Context, changeID uint, adminID string) (*models.PendingRankChange, error) {
	change, err := l.storage.GetPendingRankChange(ctx, changeID)
	if err != nil {
		return nil, translate(err)
	}

	if err := l.storage.Transaction(ctx, func(tx *storage.Storage) error {
		ok, err := tx.ResolveRankChange(ctx, changeID, models.RankChangeStatusConfirmed, adminID, time.Now())
		if err != nil {
			return err
		}
		if !ok {
			return notFoundf("rank change %d was already processed", changeID)
		}

		if err := tx.SetUserRank(ctx, change.WinnerID, change.WinnerNewTier, change.WinnerNewNumeral); err != nil {
			return err
		}
		if err := tx.SetUserRank(ctx, change.LoserID, change.LoserNewTier, change.LoserNewNumeral); err != nil {
			return err
		}
		if err := tx.UpdateMatch(ctx, change.MatchID, map[string]any{"rank_change": true}); err != nil {
			return err
		}

		return tx.LogAdminAction(ctx, adminID, "rank_change_confirmed", change.WinnerID,
			fmt.Sprintf("change=%d match=%d", changeID, change.MatchID))
	}); err != nil {
		if IsBusiness(err) {
			return nil, err
		}
		return nil, fmt.Errorf("confirming rank change: %w", err)
	}

	change.Status = models.RankChangeStatusConfirmed
	return change, nil
}

// RejectRankChange discards a pending swap without touching either user.
func (l *Ledger) RejectRankChange(ctx context.Context, changeID uint, adminID, reason string) error {
	ok, err := l.storage.ResolveRankChange(ctx, changeID, models.RankChangeStatusRejected, adminID, time.Now())
	if err != nil {
		return fmt.Errorf("rejecting rank change: %w", err)
	}
	if !ok {
		return notFoundf("rank change %d not found or already processed", changeID)
	}

	return l.storage.LogAdminAction(ctx, adminID, "rank_change_rejected", "",
		fmt.Sprintf("change=%d reason=%s", changeID, reason))
}

func (l *Ledger) PendingRankChanges(ctx context.Context) ([]*models.PendingRankChange, error) {
	changes, err := l.storage.GetPendingRankChanges(ctx)
	if err != nil {
		return nil, translate(err)
	}
	return changes, nil
}

// EvaluateUser places a Guest/Evaluation member onto the ladder at one
// of the evaluation placement ranks, subject to capacity.
func (l *Ledger) EvaluateUser(ctx context.Context, adminID string, user *models.User, rank ladder.Rank) error {
	valid := false
	for _, r := range ladder.EvaluationRanks {
		if r == rank {
			valid = true
			break
		}
	}
	if !valid {
		return validationf("%s is not an evaluation placement rank", rank)
	}

	if !ladder.Unranked(user.Tier) {
		return validationf("%s is already ranked %s %s", user.DisplayName, user.Tier, user.Numeral)
	}

	count, err := l.ladder.Occupancy(ctx, rank)
	if err != nil {
		return err
	}
	if count >= ladder.Capacity(rank) {
		return capacityf("%s is currently full", rank)
	}

	if err := l.storage.SetUserRank(ctx, user.ID, rank.Tier, rank.Numeral); err != nil {
		return fmt.Errorf("placing user: %w", err)
	}

	return l.storage.LogAdminAction(ctx, adminID, "evaluation_placement", user.ID,
		fmt.Sprintf("rank=%s", rank))
}

// SyncRoster reconciles user statuses against the live member list:
// active users who left become reserve, returned reserves become active
// again. presentDiscordIDs is the full guild membership.
func (l *Ledger) SyncRoster(ctx context.Context, presentDiscordIDs map[string]bool) (toReserve, toActive int, err error) {
	active, err := l.storage.GetActiveUsers(ctx)
	if err != nil {
		return 0, 0, translate(err)
	}
	for _, u := range active {
		if !presentDiscordIDs[u.DiscordID] {
			if err := l.storage.SetUserStatus(ctx, u.ID, models.UserStatusReserve); err != nil {
				return toReserve, toActive, err
			}
			toReserve++
		}
	}

	reserves, err := l.storage.GetReserveUsers(ctx)
	if err != nil {
		return toReserve, 0, translate(err)
	}
	for _, u := range reserves {
		if presentDiscordIDs[u.DiscordID] {
			if err := l.storage.SetUserStatus(ctx, u.ID, models.UserStatusActive); err != nil {
				return toReserve, toActive, err
			}
			toActive++
		}
	}

	return toReserve, toActive, nil
}
