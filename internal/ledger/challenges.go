package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/blademasters/bladebot/internal/ladder"
	"github.com/blademasters/bladebot/internal/models"
	"github.com/sirupsen/logrus"
)

// CreateChallenge opens a challenge from challenger, optionally aimed at
// a specific target. Exclusivity per (challenger, type) is enforced by
// the storage layer's partial unique index, so two near-simultaneous
// commands cannot both succeed.
func (l *Ledger) CreateChallenge(ctx context.Context, challenger *models.User, target *models.User, ctype models.ChallengeType) (*models.Challenge, error) {
	if challenger.IsReserve() {
		return nil, validationf("you are on the reserve list and cannot issue challenges")
	}
	if target != nil {
		if target.ID == challenger.ID {
			return nil, validationf("you cannot challenge yourself")
		}
		if target.IsReserve() {
			return nil, validationf("%s is on the reserve list", target.DisplayName)
		}
	}

	if ctype == models.ChallengeTypePromotion {
		if err := l.validatePromotionChallenge(ctx, challenger, target); err != nil {
			return nil, err
		}
	}

	now := time.Now()
	challenge := &models.Challenge{
		ChallengerID:  challenger.ID,
		ChallengeType: ctype,
		Status:        models.ChallengeStatusPending,
		ExpiresAt:     now.Add(l.challengeTTL),
	}
	if target != nil {
		challenge.ChallengedID = target.ID
	}

	if err := l.storage.CreateChallenge(ctx, challenge); err != nil {
		if errors.Is(translate(err), ErrConflict) {
			return nil, conflictf("you already have a pending %s challenge", ctype)
		}
		return nil, fmt.Errorf("creating challenge: %w", err)
	}

	if ctype == models.ChallengeTypePromotion {
		if err := l.storage.TouchLastChallenge(ctx, challenger.ID, now); err != nil {
			logrus.Errorf("failed to update challenge cooldown for %s: %v", challenger.ID, err)
		}
	}

	if err := l.storage.LogAction(ctx, "challenge_created", challenger.ID,
		fmt.Sprintf("type=%s target=%s", ctype, challenge.ChallengedID)); err != nil {
		logrus.Errorf("failed to audit challenge creation: %v", err)
	}

	return challenge, nil
}

func (l *Ledger) validatePromotionChallenge(ctx context.Context, challenger *models.User, target *models.User) error {
	challengerRank := ladder.Rank{Tier: challenger.Tier, Numeral: challenger.Numeral}
	next, ok := ladder.Next(challengerRank)
	if !ok {
		return validationf("you are already at the top of the ladder")
	}

	if challenger.LastChallengeAt != nil && l.promotionCooldown > 0 {
		elapsed := time.Since(*challenger.LastChallengeAt)
		if elapsed < l.promotionCooldown {
			remaining := (l.promotionCooldown - elapsed).Round(time.Minute)
			return validationf("promotion challenge cooldown active, %s remaining", remaining)
		}
	}

	if target != nil {
		targetRank := ladder.Rank{Tier: target.Tier, Numeral: target.Numeral}
		if targetRank != next {
			return validationf("you can only challenge members of %s", next)
		}
	}

	return nil
}

// AcceptChallenge resolves a pending challenge in the accepter's favor.
// Exactly one concurrent accept wins; the rest see a conflict.
func (l *Ledger) AcceptChallenge(ctx context.Context, accepter *models.User, challengeID uint) (*models.Challenge, error) {
	challenge, err := l.storage.GetChallenge(ctx, challengeID)
	if err != nil {
		return nil, translate(err)
	}

	if challenge.Status != models.ChallengeStatusPending {
		return nil, notFoundf("challenge %d is no longer active", challengeID)
	}
	if time.Now().After(challenge.ExpiresAt) {
		// The sweep will flip it eventually; do it now for a clear answer.
		if _, err := l.storage.TransitionChallenge(ctx, challengeID, models.ChallengeStatusExpired, nil); err != nil {
			logrus.Errorf("failed to expire challenge %d: %v", challengeID, err)
		}
		return nil, validationf("challenge %d has expired", challengeID)
	}
	if challenge.ChallengerID == accepter.ID {
		return nil, validationf("you cannot accept your own challenge")
	}
	if !challenge.Open() && challenge.ChallengedID != accepter.ID {
		return nil, permissionf("this challenge is not addressed to you")
	}

	if challenge.ChallengeType == models.ChallengeTypePromotion {
		challenger, err := l.storage.GetUser(ctx, challenge.ChallengerID)
		if err != nil {
			return nil, translate(err)
		}
		accepterRank := ladder.Rank{Tier: accepter.Tier, Numeral: accepter.Numeral}
		challengerRank := ladder.Rank{Tier: challenger.Tier, Numeral: challenger.Numeral}
		if !ladder.IsImmediatelyAbove(accepterRank, challengerRank) {
			return nil, validationf("only members of the rank directly above %s may accept this challenge", challengerRank)
		}
	}

	now := time.Now()
	ok, err := l.storage.TransitionChallenge(ctx, challengeID, models.ChallengeStatusAccepted, map[string]any{
		"challenged_id": accepter.ID,
		"accepted_at":   now,
	})
	if err != nil {
		return nil, fmt.Errorf("accepting challenge: %w", err)
	}
	if !ok {
		return nil, conflictf("challenge %d was already resolved", challengeID)
	}

	challenge.Status = models.ChallengeStatusAccepted
	challenge.ChallengedID = accepter.ID
	challenge.AcceptedAt = &now
	return challenge, nil
}

// DeclineChallenge refuses a pending challenge. Specific challenges may
// only be declined by their target; open ones by anyone except the
// challenger.
func (l *Ledger) DeclineChallenge(ctx context.Context, decliner *models.User, challengeID uint) error {
	challenge, err := l.storage.GetChallenge(ctx, challengeID)
	if err != nil {
		return translate(err)
	}

	if challenge.Status != models.ChallengeStatusPending {
		return notFoundf("challenge %d is no longer active", challengeID)
	}
	if challenge.ChallengerID == decliner.ID {
		return validationf("you cannot decline your own challenge; cancel it instead")
	}
	if !challenge.Open() && challenge.ChallengedID != decliner.ID {
		return permissionf("this challenge is not addressed to you")
	}

	ok, err := l.storage.TransitionChallenge(ctx, challengeID, models.ChallengeStatusDeclined, nil)
	if err != nil {
		return fmt.Errorf("declining challenge: %w", err)
	}
	if !ok {
		return conflictf("challenge %d was already resolved", challengeID)
	}
	return nil
}

// CancelChallenge withdraws a pending challenge; only its challenger may.
func (l *Ledger) CancelChallenge(ctx context.Context, canceller *models.User, challengeID uint) error {
	challenge, err := l.storage.GetChallenge(ctx, challengeID)
	if err != nil {
		return translate(err)
	}

	if challenge.ChallengerID != canceller.ID {
		return permissionf("you can only cancel your own challenges")
	}
	if challenge.Status != models.ChallengeStatusPending {
		return notFoundf("challenge %d is no longer active", challengeID)
	}

	ok, err := l.storage.TransitionChallenge(ctx, challengeID, models.ChallengeStatusCancelled, nil)
	if err != nil {
		return fmt.Errorf("cancelling challenge: %w", err)
	}
	if !ok {
		return conflictf("challenge %d was already resolved", challengeID)
	}
	return nil
}

// SweepExpired expires every pending challenge past its deadline. Safe
// to run on a timer; a second sweep finds nothing to do.
func (l *Ledger) SweepExpired(ctx context.Context) (int64, error) {
	n, err := l.storage.ExpirePendingChallenges(ctx, time.Now())
	if err != nil {
		return 0, fmt.Errorf("sweeping expired challenges: %w", err)
	}
	return n, nil
}

// RunSweeper expires challenges periodically until ctx is cancelled.
func (l *Ledger) RunSweeper(ctx context.Context, interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()

	logger := logrus.WithField("component", "challenge_sweeper")

	for {
		select {
		case <-t.C:
			n, err := l.SweepExpired(ctx)
			if err != nil {
				logger.Errorf("sweep failed: %v", err)
				continue
			}
			if n > 0 {
				logger.Infof("expired %d challenges", n)
			}
		case <-ctx.Done():
			return
		}
	}
}

// AttachTicket links a coordination channel to an accepted challenge.
func (l *Ledger) AttachTicket(ctx context.Context, challengeID uint, channelID string) error {
	if err := l.storage.SetChallengeTicket(ctx, challengeID, channelID); err != nil {
		return translate(err)
	}
	return nil
}

func (l *Ledger) PendingChallengesFor(ctx context.Context, user *models.User) ([]*models.Challenge, error) {
	challenges, err := l.storage.GetPendingChallengesFor(ctx, user.ID, time.Now())
	if err != nil {
		return nil, translate(err)
	}
	return challenges, nil
}

func (l *Ledger) PendingChallengesBy(ctx context.Context, user *models.User) ([]*models.Challenge, error) {
	challenges, err := l.storage.GetPendingChallengesBy(ctx, user.ID, time.Now())
	if err != nil {
		return nil, translate(err)
	}
	return challenges, nil
}

// FindChallengeBetween locates the most recent pending challenge from
// challenger that challenged could act on.
func (l *Ledger) FindChallengeBetween(ctx context.Context, challenger, challenged *models.User) (*models.Challenge, error) {
	challenge, err := l.storage.FindPendingChallengeBetween(ctx, challenger.ID, challenged.ID, time.Now())
	if err != nil {
		return nil, translate(err)
	}
	return challenge, nil
}
