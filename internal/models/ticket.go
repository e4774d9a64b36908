package models

import "time"

type TicketStatus string

const (
	TicketStatusActive TicketStatus = "active"
	TicketStatusClosed TicketStatus = "closed"
)

// Ticket is a coordination channel opened for an accepted challenge.
// The table is the source of truth; the bot keeps only a read-through
// cache on top of it.
type Ticket struct {
	ChannelID string `gorm:"primaryKey"`

	ChallengeID  uint `gorm:"index"`
	ChallengerID string
	ChallengedID string

	DuelType ChallengeType
	Status   TicketStatus

	CreatedAt time.Time `gorm:"autoCreateTime"`
}
