package ledger

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/blademasters/bladebot/internal/ladder"
	"github.com/blademasters/bladebot/internal/models"
	"github.com/blademasters/bladebot/internal/storage"
)

func newTestLedger(t *testing.T, cfg Config) *Ledger {
	t.Helper()

	// A named shared-cache database keeps every pooled connection on
	// the same in-memory instance.
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	store := storage.New(db)
	require.NoError(t, store.Migrate(context.Background()))

	return New(store, ladder.New(store), cfg)
}

func defaultConfig() Config {
	return Config{
		ChallengeTTL:      time.Hour,
		PromotionCooldown: 0,
	}
}

func makeUser(t *testing.T, l *Ledger, discordID string) *models.User {
	t.Helper()
	user, err := l.Resolve(context.Background(), ParticipantRef{
		Kind:        LiveMember,
		DiscordID:   discordID,
		DisplayName: "player-" + discordID,
	})
	require.NoError(t, err)
	return user
}

func rankUser(t *testing.T, l *Ledger, user *models.User, r ladder.Rank) {
	t.Helper()
	require.NoError(t, l.Storage().SetUserRank(context.Background(), user.ID, r.Tier, r.Numeral))
	user.Tier = r.Tier
	user.Numeral = r.Numeral
}

func TestCreateChallengeExclusivePerType(t *testing.T) {
	l := newTestLedger(t, defaultConfig())
	ctx := context.Background()

	alice := makeUser(t, l, "alice")
	bob := makeUser(t, l, "bob")

	first, err := l.CreateChallenge(ctx, alice, bob, models.ChallengeTypeOfficial)
	require.NoError(t, err)

	_, err = l.CreateChallenge(ctx, alice, bob, models.ChallengeTypeOfficial)
	require.ErrorIs(t, err, ErrConflict)

	// A different type is a separate slot.
	_, err = l.CreateChallenge(ctx, alice, nil, models.ChallengeTypeFriendly)
	require.NoError(t, err)

	// Resolving the first frees the slot.
	_, err = l.AcceptChallenge(ctx, bob, first.ID)
	require.NoError(t, err)
	_, err = l.CreateChallenge(ctx, alice, bob, models.ChallengeTypeOfficial)
	require.NoError(t, err)
}

func TestCreateChallengeValidation(t *testing.T) {
	l := newTestLedger(t, defaultConfig())
	ctx := context.Background()

	alice := makeUser(t, l, "alice")
	bob := makeUser(t, l, "bob")

	_, err := l.CreateChallenge(ctx, alice, alice, models.ChallengeTypeOfficial)
	require.ErrorIs(t, err, ErrValidation)

	require.NoError(t, l.Storage().SetUserStatus(ctx, bob.ID, models.UserStatusReserve))
	bob.Status = models.UserStatusReserve
	_, err = l.CreateChallenge(ctx, alice, bob, models.ChallengeTypeOfficial)
	require.ErrorIs(t, err, ErrValidation)

	_, err = l.CreateChallenge(ctx, bob, nil, models.ChallengeTypeOfficial)
	require.ErrorIs(t, err, ErrValidation)
}

func TestAcceptChallengeRules(t *testing.T) {
	l := newTestLedger(t, defaultConfig())
	ctx := context.Background()

	alice := makeUser(t, l, "alice")
	bob := makeUser(t, l, "bob")
	carol := makeUser(t, l, "carol")

	challenge, err := l.CreateChallenge(ctx, alice, bob, models.ChallengeTypeOfficial)
	require.NoError(t, err)

	_, err = l.AcceptChallenge(ctx, alice, challenge.ID)
	require.ErrorIs(t, err, ErrValidation)

	_, err = l.AcceptChallenge(ctx, carol, challenge.ID)
	require.ErrorIs(t, err, ErrPermissionDenied)

	accepted, err := l.AcceptChallenge(ctx, bob, challenge.ID)
	require.NoError(t, err)
	require.Equal(t, models.ChallengeStatusAccepted, accepted.Status)
	require.NotNil(t, accepted.AcceptedAt)

	// Already resolved.
	_, err = l.AcceptChallenge(ctx, bob, challenge.ID)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestOpenChallengeAnyoneCanAccept(t *testing.T) {
	l := newTestLedger(t, defaultConfig())
	ctx := context.Background()

	alice := makeUser(t, l, "alice")
	carol := makeUser(t, l, "carol")

	challenge, err := l.CreateChallenge(ctx, alice, nil, models.ChallengeTypeOfficial)
	require.NoError(t, err)
	require.True(t, challenge.Open())

	accepted, err := l.AcceptChallenge(ctx, carol, challenge.ID)
	require.NoError(t, err)
	require.Equal(t, carol.ID, accepted.ChallengedID)
}

func TestDeclineAndCancelPermissions(t *testing.T) {
	l := newTestLedger(t, defaultConfig())
	ctx := context.Background()

	alice := makeUser(t, l, "alice")
	bob := makeUser(t, l, "bob")
	carol := makeUser(t, l, "carol")

	challenge, err := l.CreateChallenge(ctx, alice, bob, models.ChallengeTypeOfficial)
	require.NoError(t, err)

	require.ErrorIs(t, l.DeclineChallenge(ctx, alice, challenge.ID), ErrValidation)
	require.ErrorIs(t, l.DeclineChallenge(ctx, carol, challenge.ID), ErrPermissionDenied)
	require.ErrorIs(t, l.CancelChallenge(ctx, bob, challenge.ID), ErrPermissionDenied)

	require.NoError(t, l.DeclineChallenge(ctx, bob, challenge.ID))
	require.ErrorIs(t, l.DeclineChallenge(ctx, bob, challenge.ID), ErrNotFound)

	second, err := l.CreateChallenge(ctx, alice, bob, models.ChallengeTypeOfficial)
	require.NoError(t, err)
	require.NoError(t, l.CancelChallenge(ctx, alice, second.ID))
}

func TestSweepExpiredIsIdempotent(t *testing.T) {
	// A negative TTL makes every challenge born expired.
	l := newTestLedger(t, Config{ChallengeTTL: -time.Minute})
	ctx := context.Background()

	alice := makeUser(t, l, "alice")
	bob := makeUser(t, l, "bob")

	_, err := l.CreateChallenge(ctx, alice, bob, models.ChallengeTypeOfficial)
	require.NoError(t, err)
	_, err = l.CreateChallenge(ctx, bob, alice, models.ChallengeTypeOfficial)
	require.NoError(t, err)

	n, err := l.SweepExpired(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 2, n)

	// The second pass finds nothing; already-expired rows stay put.
	n, err = l.SweepExpired(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 0, n)
}

func TestAcceptExpiredChallenge(t *testing.T) {
	l := newTestLedger(t, Config{ChallengeTTL: -time.Minute})
	ctx := context.Background()

	alice := makeUser(t, l, "alice")
	bob := makeUser(t, l, "bob")

	challenge, err := l.CreateChallenge(ctx, alice, bob, models.ChallengeTypeOfficial)
	require.NoError(t, err)

	_, err = l.AcceptChallenge(ctx, bob, challenge.ID)
	require.ErrorIs(t, err, ErrValidation)

	stored, err := l.Storage().GetChallenge(ctx, challenge.ID)
	require.NoError(t, err)
	require.Equal(t, models.ChallengeStatusExpired, stored.Status)
}

func TestRecordMatchZeroSum(t *testing.T) {
	l := newTestLedger(t, defaultConfig())
	ctx := context.Background()

	alice := makeUser(t, l, "alice")
	bob := makeUser(t, l, "bob")

	result, err := l.RecordMatch(ctx, RecordParams{
		ChallengerID: alice.ID,
		ChallengedID: bob.ID,
		WinnerID:     alice.ID,
		MatchType:    models.ChallengeTypeOfficial,
		Score:        "3-1",
		RecordedBy:   "mod",
	})
	require.NoError(t, err)

	match := result.Match
	require.Equal(t, 16, match.WinnerDelta)
	require.Equal(t, -16, match.LoserDelta)
	require.Zero(t, match.WinnerDelta+match.LoserDelta)
	require.False(t, match.RankChange)
	require.Nil(t, result.PendingChange)

	winner, err := l.Storage().GetUser(ctx, alice.ID)
	require.NoError(t, err)
	loser, err := l.Storage().GetUser(ctx, bob.ID)
	require.NoError(t, err)

	require.Equal(t, 1016, winner.Rating)
	require.Equal(t, 984, loser.Rating)
	require.Equal(t, 1, winner.Wins)
	require.Equal(t, 0, winner.Losses)
	require.Equal(t, 1, loser.Losses)
	require.Equal(t, 1, winner.GamesPlayed)
	require.Equal(t, 1, loser.GamesPlayed)
}

func TestRecordMatchRejectsFriendly(t *testing.T) {
	l := newTestLedger(t, defaultConfig())

	alice := makeUser(t, l, "alice")
	bob := makeUser(t, l, "bob")

	_, err := l.RecordMatch(context.Background(), RecordParams{
		ChallengerID: alice.ID,
		ChallengedID: bob.ID,
		WinnerID:     alice.ID,
		MatchType:    models.ChallengeTypeFriendly,
		RecordedBy:   "mod",
	})
	require.ErrorIs(t, err, ErrValidation)
}

func TestRecordMatchRejectsOutsiderWinner(t *testing.T) {
	l := newTestLedger(t, defaultConfig())

	alice := makeUser(t, l, "alice")
	bob := makeUser(t, l, "bob")
	carol := makeUser(t, l, "carol")

	_, err := l.RecordMatch(context.Background(), RecordParams{
		ChallengerID: alice.ID,
		ChallengedID: bob.ID,
		WinnerID:     carol.ID,
		MatchType:    models.ChallengeTypeOfficial,
		RecordedBy:   "mod",
	})
	require.ErrorIs(t, err, ErrValidation)
}

func TestVoidMatchRestoresRatings(t *testing.T) {
	l := newTestLedger(t, defaultConfig())
	ctx := context.Background()

	alice := makeUser(t, l, "alice")
	bob := makeUser(t, l, "bob")

	result, err := l.RecordMatch(ctx, RecordParams{
		ChallengerID: alice.ID,
		ChallengedID: bob.ID,
		WinnerID:     alice.ID,
		MatchType:    models.ChallengeTypeOfficial,
		RecordedBy:   "mod",
	})
	require.NoError(t, err)

	voided, err := l.VoidMatch(ctx, result.Match.ID, "admin", "misrecorded")
	require.NoError(t, err)
	require.Equal(t, result.Match.ID, voided.ID)

	winner, err := l.Storage().GetUser(ctx, alice.ID)
	require.NoError(t, err)
	loser, err := l.Storage().GetUser(ctx, bob.ID)
	require.NoError(t, err)

	require.Equal(t, 1000, winner.Rating)
	require.Equal(t, 1000, loser.Rating)
	require.Zero(t, winner.Wins)
	require.Zero(t, loser.Losses)
	require.Zero(t, winner.GamesPlayed)
	require.Zero(t, loser.GamesPlayed)

	_, err = l.GetMatch(ctx, result.Match.ID)
	require.ErrorIs(t, err, ErrNotFound)

	_, err = l.VoidMatch(ctx, result.Match.ID, "admin", "again")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestEditMatchFieldWhitelist(t *testing.T) {
	l := newTestLedger(t, defaultConfig())
	ctx := context.Background()

	alice := makeUser(t, l, "alice")
	bob := makeUser(t, l, "bob")

	result, err := l.RecordMatch(ctx, RecordParams{
		ChallengerID: alice.ID,
		ChallengedID: bob.ID,
		WinnerID:     alice.ID,
		MatchType:    models.ChallengeTypeOfficial,
		Score:        "3-0",
		RecordedBy:   "mod",
	})
	require.NoError(t, err)

	_, err = l.EditMatch(ctx, result.Match.ID, "admin", map[string]any{"winner_delta": 100})
	require.ErrorIs(t, err, ErrValidation)

	edited, err := l.EditMatch(ctx, result.Match.ID, "admin", map[string]any{"score": "3-2"})
	require.NoError(t, err)
	require.Equal(t, "3-2", edited.Score)
	require.Equal(t, 16, edited.WinnerDelta)
}

func TestPromotionMatchFilesPendingChange(t *testing.T) {
	l := newTestLedger(t, defaultConfig())
	ctx := context.Background()

	alice := makeUser(t, l, "alice")
	bob := makeUser(t, l, "bob")
	rankUser(t, l, alice, ladder.Rank{Tier: ladder.TierBronze, Numeral: "IV"})
	rankUser(t, l, bob, ladder.Rank{Tier: ladder.TierBronze, Numeral: "III"})

	result, err := l.RecordMatch(ctx, RecordParams{
		ChallengerID: alice.ID,
		ChallengedID: bob.ID,
		WinnerID:     alice.ID,
		MatchType:    models.ChallengeTypePromotion,
		RecordedBy:   "mod",
	})
	require.NoError(t, err)
	require.NotNil(t, result.PendingChange)

	change := result.PendingChange
	require.Equal(t, "III", change.WinnerNewNumeral)
	require.Equal(t, "IV", change.LoserNewNumeral)

	// Nothing moves until a moderator confirms.
	stored, err := l.Storage().GetUser(ctx, alice.ID)
	require.NoError(t, err)
	require.Equal(t, "IV", stored.Numeral)
}

func TestPromotionRequiresAdjacency(t *testing.T) {
	l := newTestLedger(t, defaultConfig())
	ctx := context.Background()

	alice := makeUser(t, l, "alice")
	bob := makeUser(t, l, "bob")
	rankUser(t, l, alice, ladder.Rank{Tier: ladder.TierBronze, Numeral: "IV"})
	rankUser(t, l, bob, ladder.Rank{Tier: ladder.TierBronze, Numeral: "II"})

	result, err := l.RecordMatch(ctx, RecordParams{
		ChallengerID: alice.ID,
		ChallengedID: bob.ID,
		WinnerID:     alice.ID,
		MatchType:    models.ChallengeTypePromotion,
		RecordedBy:   "mod",
	})
	require.NoError(t, err)
	require.Nil(t, result.PendingChange)
	require.Contains(t, result.RankChangeReason, "not immediately below")
}

func TestPromotionDeniedWhenDestinationFull(t *testing.T) {
	l := newTestLedger(t, defaultConfig())
	ctx := context.Background()

	winnerRank := ladder.Rank{Tier: ladder.TierDiamond, Numeral: "II"}
	loserRank := ladder.Rank{Tier: ladder.TierDiamond, Numeral: "I"}
	require.Equal(t, 3, ladder.Capacity(winnerRank))

	alice := makeUser(t, l, "alice")
	bob := makeUser(t, l, "bob")
	rankUser(t, l, alice, winnerRank)
	rankUser(t, l, bob, loserRank)

	// Two more Diamond II holders fill the rank the loser would drop into.
	for _, id := range []string{"dave", "erin"} {
		u := makeUser(t, l, id)
		rankUser(t, l, u, winnerRank)
	}

	result, err := l.RecordMatch(ctx, RecordParams{
		ChallengerID: alice.ID,
		ChallengedID: bob.ID,
		WinnerID:     alice.ID,
		MatchType:    models.ChallengeTypePromotion,
		RecordedBy:   "mod",
	})
	require.NoError(t, err)
	require.Nil(t, result.PendingChange)
	require.Contains(t, result.RankChangeReason, "destination full")

	// Ratings still moved; only the rank swap was blocked.
	winner, err := l.Storage().GetUser(ctx, alice.ID)
	require.NoError(t, err)
	require.Equal(t, 1016, winner.Rating)
}

func TestConfirmRankChangeSwapsRanks(t *testing.T) {
	l := newTestLedger(t, defaultConfig())
	ctx := context.Background()

	alice := makeUser(t, l, "alice")
	bob := makeUser(t, l, "bob")
	rankUser(t, l, alice, ladder.Rank{Tier: ladder.TierSilver, Numeral: "II"})
	rankUser(t, l, bob, ladder.Rank{Tier: ladder.TierSilver, Numeral: "I"})

	result, err := l.RecordMatch(ctx, RecordParams{
		ChallengerID: alice.ID,
		ChallengedID: bob.ID,
		WinnerID:     alice.ID,
		MatchType:    models.ChallengeTypePromotion,
		RecordedBy:   "mod",
	})
	require.NoError(t, err)
	require.NotNil(t, result.PendingChange)

	confirmed, err := l.ConfirmRankChange(ctx, result.PendingChange.ID, "admin")
	require.NoError(t, err)
	require.Equal(t, models.RankChangeStatusConfirmed, confirmed.Status)

	winner, err := l.Storage().GetUser(ctx, alice.ID)
	require.NoError(t, err)
	loser, err := l.Storage().GetUser(ctx, bob.ID)
	require.NoError(t, err)
	require.Equal(t, "I", winner.Numeral)
	require.Equal(t, "II", loser.Numeral)

	match, err := l.GetMatch(ctx, result.Match.ID)
	require.NoError(t, err)
	require.True(t, match.RankChange)

	// A second confirm finds nothing pending.
	_, err = l.ConfirmRankChange(ctx, result.PendingChange.ID, "admin")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestRejectRankChangeLeavesRanks(t *testing.T) {
	l := newTestLedger(t, defaultConfig())
	ctx := context.Background()

	alice := makeUser(t, l, "alice")
	bob := makeUser(t, l, "bob")
	rankUser(t, l, alice, ladder.Rank{Tier: ladder.TierGold, Numeral: "III"})
	rankUser(t, l, bob, ladder.Rank{Tier: ladder.TierGold, Numeral: "II"})

	result, err := l.RecordMatch(ctx, RecordParams{
		ChallengerID: alice.ID,
		ChallengedID: bob.ID,
		WinnerID:     alice.ID,
		MatchType:    models.ChallengeTypePromotion,
		RecordedBy:   "mod",
	})
	require.NoError(t, err)
	require.NotNil(t, result.PendingChange)

	require.NoError(t, l.RejectRankChange(ctx, result.PendingChange.ID, "admin", "bad footage"))

	winner, err := l.Storage().GetUser(ctx, alice.ID)
	require.NoError(t, err)
	require.Equal(t, "III", winner.Numeral)

	match, err := l.GetMatch(ctx, result.Match.ID)
	require.NoError(t, err)
	require.False(t, match.RankChange)

	require.ErrorIs(t, l.RejectRankChange(ctx, result.PendingChange.ID, "admin", "again"), ErrNotFound)
}

func TestPromotionChallengeCooldown(t *testing.T) {
	l := newTestLedger(t, Config{ChallengeTTL: time.Hour, PromotionCooldown: 72 * time.Hour})
	ctx := context.Background()

	alice := makeUser(t, l, "alice")
	rankUser(t, l, alice, ladder.Rank{Tier: ladder.TierBronze, Numeral: "IV"})

	first, err := l.CreateChallenge(ctx, alice, nil, models.ChallengeTypePromotion)
	require.NoError(t, err)
	require.NoError(t, l.CancelChallenge(ctx, alice, first.ID))

	// The slot is free again but the cooldown still applies.
	refreshed, err := l.Storage().GetUser(ctx, alice.ID)
	require.NoError(t, err)
	_, err = l.CreateChallenge(ctx, refreshed, nil, models.ChallengeTypePromotion)
	require.ErrorIs(t, err, ErrValidation)
}

func TestPromotionChallengeTargetRank(t *testing.T) {
	l := newTestLedger(t, defaultConfig())
	ctx := context.Background()

	alice := makeUser(t, l, "alice")
	bob := makeUser(t, l, "bob")
	carol := makeUser(t, l, "carol")
	rankUser(t, l, alice, ladder.Rank{Tier: ladder.TierBronze, Numeral: "IV"})
	rankUser(t, l, bob, ladder.Rank{Tier: ladder.TierBronze, Numeral: "III"})
	rankUser(t, l, carol, ladder.Rank{Tier: ladder.TierBronze, Numeral: "II"})

	_, err := l.CreateChallenge(ctx, alice, carol, models.ChallengeTypePromotion)
	require.ErrorIs(t, err, ErrValidation)

	_, err = l.CreateChallenge(ctx, alice, bob, models.ChallengeTypePromotion)
	require.NoError(t, err)
}

func TestPromotionAtCeiling(t *testing.T) {
	l := newTestLedger(t, defaultConfig())
	ctx := context.Background()

	alice := makeUser(t, l, "alice")
	rankUser(t, l, alice, ladder.Ceiling())

	_, err := l.CreateChallenge(ctx, alice, nil, models.ChallengeTypePromotion)
	require.ErrorIs(t, err, ErrValidation)
}

func TestEvaluateUser(t *testing.T) {
	l := newTestLedger(t, defaultConfig())
	ctx := context.Background()

	alice := makeUser(t, l, "alice")
	require.Equal(t, "Guest", alice.Tier)

	// Only the placement ranks are legal.
	err := l.EvaluateUser(ctx, "admin", alice, ladder.Rank{Tier: ladder.TierDiamond, Numeral: "I"})
	require.ErrorIs(t, err, ErrValidation)

	require.NoError(t, l.EvaluateUser(ctx, "admin", alice, ladder.Rank{Tier: ladder.TierSilver, Numeral: "IV"}))

	placed, err := l.Storage().GetUser(ctx, alice.ID)
	require.NoError(t, err)
	require.Equal(t, ladder.TierSilver, placed.Tier)

	// Already ranked.
	err = l.EvaluateUser(ctx, "admin", placed, ladder.Rank{Tier: ladder.TierBronze, Numeral: "IV"})
	require.ErrorIs(t, err, ErrValidation)
}

func TestEvaluateUserCapacity(t *testing.T) {
	l := newTestLedger(t, defaultConfig())
	ctx := context.Background()

	full := ladder.Rank{Tier: ladder.TierGold, Numeral: "III"}
	for i := 0; i < ladder.Capacity(full); i++ {
		u := makeUser(t, l, fmt.Sprintf("holder-%d", i))
		rankUser(t, l, u, full)
	}

	newcomer := makeUser(t, l, "newcomer")
	err := l.EvaluateUser(ctx, "admin", newcomer, full)
	require.ErrorIs(t, err, ErrCapacity)
}

func TestSyncRoster(t *testing.T) {
	l := newTestLedger(t, defaultConfig())
	ctx := context.Background()

	alice := makeUser(t, l, "alice")
	bob := makeUser(t, l, "bob")
	require.NoError(t, l.Storage().SetUserStatus(ctx, bob.ID, models.UserStatusReserve))

	// Alice left, bob came back.
	toReserve, toActive, err := l.SyncRoster(ctx, map[string]bool{"bob": true})
	require.NoError(t, err)
	require.Equal(t, 1, toReserve)
	require.Equal(t, 1, toActive)

	refreshedAlice, err := l.Storage().GetUser(ctx, alice.ID)
	require.NoError(t, err)
	require.True(t, refreshedAlice.IsReserve())

	refreshedBob, err := l.Storage().GetUser(ctx, bob.ID)
	require.NoError(t, err)
	require.False(t, refreshedBob.IsReserve())
}

func TestResolveArchivedUser(t *testing.T) {
	l := newTestLedger(t, defaultConfig())
	ctx := context.Background()

	_, err := l.Resolve(ctx, ParticipantRef{Kind: ArchivedUser, DiscordID: "ghost"})
	require.ErrorIs(t, err, ErrNotFound)

	makeUser(t, l, "ghost")
	user, err := l.Resolve(ctx, ParticipantRef{Kind: ArchivedUser, DiscordID: "ghost"})
	require.NoError(t, err)
	require.Equal(t, "ghost", user.DiscordID)
}
