// Package ledger implements the dueling-ladder state machine: challenge
// lifecycle, match recording, and rank-change confirmation.
package ledger

import (
	"time"

	"github.com/blademasters/bladebot/internal/elo"
	"github.com/blademasters/bladebot/internal/ladder"
	"github.com/blademasters/bladebot/internal/storage"
)

type Config struct {
	// ChallengeTTL is how long a challenge stays open before the sweep
	// expires it.
	ChallengeTTL time.Duration
	// PromotionCooldown rate-limits promotion challenges per challenger.
	PromotionCooldown time.Duration
}

type Ledger struct {
	storage *storage.Storage
	ladder  *ladder.Ladder

	challengeTTL      time.Duration
	promotionCooldown time.Duration
	startingRating    int
}

func New(store *storage.Storage, lad *ladder.Ladder, cfg Config) *Ledger {
	return &Ledger{
		storage:           store,
		ladder:            lad,
		challengeTTL:      cfg.ChallengeTTL,
		promotionCooldown: cfg.PromotionCooldown,
		startingRating:    elo.StartingRating,
	}
}

func (l *Ledger) Storage() *storage.Storage {
	return l.storage
}
