package models

// UserSettings holds per-member notification preferences.
type UserSettings struct {
	UserID string `gorm:"primaryKey"`

	DuelNotifications bool `gorm:"default:true"`
	RankNotifications bool `gorm:"default:true"`
	Timezone          string
}
