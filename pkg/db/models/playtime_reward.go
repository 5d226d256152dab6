package models

import "time"

// PlaytimeReward is the per-player accrual cursor for the playtime program.
// total_active_minutes is the high-water mark already paid out; the reward
// job pays the delta between live session minutes and this value.
type PlaytimeReward struct {
	ID                 int64      `gorm:"column:id;primaryKey;autoIncrement"`
	PlayerID           int64      `gorm:"column:player_id;not null;uniqueIndex"`
	TotalActiveMinutes int64      `gorm:"column:total_active_minutes;not null;default:0"`
	CoinsAwarded       int64      `gorm:"column:coins_awarded;not null;default:0"`
	LastAwardedAt      *time.Time `gorm:"column:last_awarded_at"`
	UpdatedAt          time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}
