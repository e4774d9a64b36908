package models

import "time"

type UserStatus string

const (
	UserStatusActive  UserStatus = "active"
	UserStatusReserve UserStatus = "reserve"
)

// User is a member's ladder identity. Rows are never hard-deleted;
// members who leave the guild are flipped to reserve instead.
type User struct {
	ID        string `gorm:"type:uuid;primaryKey"`
	DiscordID string `gorm:"uniqueIndex"`

	DisplayName    string
	RobloxUsername string
	RobloxID       int64

	Tier    string `gorm:"index:idx_users_rank"`
	Numeral string `gorm:"index:idx_users_rank"`

	Rating      int `gorm:"index"`
	Wins        int
	Losses      int
	GamesPlayed int

	LastChallengeAt *time.Time

	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
	Status    UserStatus
}

func (u *User) IsReserve() bool {
	return u.Status == UserStatusReserve
}

func (u *User) WinRate() float64 {
	total := u.Wins + u.Losses
	if total == 0 {
		return 0
	}
	return float64(u.Wins) / float64(total) * 100
}
