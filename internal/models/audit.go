package models

import "time"

// BotLog is an append-only trace of actions the bot took on its own.
type BotLog struct {
	ID         uint `gorm:"primaryKey"`
	ActionType string
	UserID     string
	Details    string
	CreatedAt  time.Time `gorm:"autoCreateTime;index"`
}

// AdminAction records a privileged operation and who performed it.
type AdminAction struct {
	ID           uint `gorm:"primaryKey"`
	AdminID      string
	ActionType   string
	TargetUserID string
	Details      string
	CreatedAt    time.Time `gorm:"autoCreateTime;index"`
}
