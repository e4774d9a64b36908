package models

import "time"

// Match is the immutable record of a completed duel. It is created
// exactly once when a moderator records a result and is only ever
// removed again by the privileged void operation, which also reverses
// the stat deltas captured here.
type Match struct {
	ID uint `gorm:"primaryKey"`

	ChallengerID string `gorm:"index:idx_matches_pair"`
	ChallengedID string `gorm:"index:idx_matches_pair"`
	WinnerID     string `gorm:"index"`
	LoserID      string

	MatchType ChallengeType
	Score     string
	Notes     string

	WinnerRatingBefore int
	LoserRatingBefore  int
	WinnerRatingAfter  int
	LoserRatingAfter   int
	WinnerDelta        int
	LoserDelta         int

	RankChange bool

	RecordedBy string
	CreatedAt  time.Time `gorm:"autoCreateTime;index"`
}
