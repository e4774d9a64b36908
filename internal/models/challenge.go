package models

import (
	"fmt"
	"time"
)

type ChallengeType string

const (
	ChallengeTypeFriendly  ChallengeType = "friendly"
	ChallengeTypeOfficial  ChallengeType = "official"
	ChallengeTypePromotion ChallengeType = "promotion"
)

func ParseChallengeType(s string) (ChallengeType, error) {
	switch ChallengeType(s) {
	case ChallengeTypeFriendly, ChallengeTypeOfficial, ChallengeTypePromotion:
		return ChallengeType(s), nil
	}
	return "", fmt.Errorf("unknown challenge type %q", s)
}

// Rated reports whether matches of this type move ratings.
func (t ChallengeType) Rated() bool {
	return t == ChallengeTypeOfficial || t == ChallengeTypePromotion
}

type ChallengeStatus string

const (
	ChallengeStatusPending   ChallengeStatus = "pending"
	ChallengeStatusAccepted  ChallengeStatus = "accepted"
	ChallengeStatusDeclined  ChallengeStatus = "declined"
	ChallengeStatusExpired   ChallengeStatus = "expired"
	ChallengeStatusCancelled ChallengeStatus = "cancelled"
)

// Challenge is a proposed match. ChallengedID is empty for open
// challenges that anyone (of the right rank, for promotions) may take.
// A pending row is exclusive per (challenger, type); the partial unique
// index behind that lives in storage.Migrate.
type Challenge struct {
	ID uint `gorm:"primaryKey"`

	ChallengerID string `gorm:"index"`
	ChallengedID string `gorm:"index"`

	ChallengeType ChallengeType
	Status        ChallengeStatus `gorm:"index"`

	TicketChannelID string

	CreatedAt  time.Time `gorm:"autoCreateTime"`
	AcceptedAt *time.Time
	ExpiresAt  time.Time `gorm:"index"`
}

func (c *Challenge) Open() bool {
	return c.ChallengedID == ""
}

func (c *Challenge) String() string {
	return fmt.Sprintf("Challenge(%d, %s, %s -> %s, %s)",
		c.ID, c.ChallengeType, c.ChallengerID, c.ChallengedID, c.Status)
}
