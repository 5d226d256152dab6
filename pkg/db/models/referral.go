package models

import "time"

// Referral records one player inviting another. A referral only counts
// toward the referrer's discount once confirmed.
type Referral struct {
	ID               int64     `gorm:"column:id;primaryKey;autoIncrement"`
	ReferrerPlayerID int64     `gorm:"column:referrer_player_id;not null;index"`
	ReferredPlayerID int64     `gorm:"column:referred_player_id;not null;uniqueIndex"`
	ReferredNick     string    `gorm:"column:referred_nick;not null"`
	Confirmed        bool      `gorm:"column:confirmed;not null;default:false"`
	CreatedAt        time.Time `gorm:"column:created_at;autoCreateTime"`
}
