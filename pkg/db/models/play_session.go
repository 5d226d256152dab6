package models

import "time"

// PlaySession mirrors one game-server session. The plugin writes these rows;
// the backend only reads them to accrue playtime rewards.
type PlaySession struct {
	ID            int64      `gorm:"column:id;primaryKey;autoIncrement"`
	PlayerID      int64      `gorm:"column:player_id;not null;index"`
	ServerID      string     `gorm:"column:server_id;not null"`
	ActiveMinutes int64      `gorm:"column:active_minutes;not null;default:0"`
	StartedAt     time.Time  `gorm:"column:started_at;not null"`
	EndedAt       *time.Time `gorm:"column:ended_at"`
}
