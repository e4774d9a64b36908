package models

import "time"

type RankChangeStatus string

const (
	RankChangeStatusPending   RankChangeStatus = "pending"
	RankChangeStatusConfirmed RankChangeStatus = "confirmed"
	RankChangeStatusRejected  RankChangeStatus = "rejected"
)

// PendingRankChange is a proposed rank swap between the two participants
// of a promotion match, awaiting administrator confirmation.
type PendingRankChange struct {
	ID      uint `gorm:"primaryKey"`
	MatchID uint `gorm:"index"`

	WinnerID string
	LoserID  string

	WinnerOldTier    string
	WinnerOldNumeral string
	WinnerNewTier    string
	WinnerNewNumeral string
	LoserOldTier     string
	LoserOldNumeral  string
	LoserNewTier     string
	LoserNewNumeral  string

	Status RankChangeStatus `gorm:"index"`

	CreatedAt   time.Time `gorm:"autoCreateTime"`
	ProcessedAt *time.Time
	ProcessedBy string
}
