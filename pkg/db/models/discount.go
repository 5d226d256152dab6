package models

import "time"

// Discount caches the referral-derived discount for one player.
// discount_percent is always min(referrals_count, 20) * 2.
type Discount struct {
	ID              int64     `gorm:"column:id;primaryKey;autoIncrement"`
	PlayerID        int64     `gorm:"column:player_id;not null;uniqueIndex"`
	ReferralsCount  int       `gorm:"column:referrals_count;not null;default:0"`
	DiscountPercent int       `gorm:"column:discount_percent;not null;default:0"`
	UpdatedAt       time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// MaxReferralDiscountPercent caps the referral program at 20 confirmed
// referrals worth 2% each.
const MaxReferralDiscountPercent = 40

// ReferralDiscountPercent derives the discount for a confirmed referral count.
func ReferralDiscountPercent(referrals int) int {
	if referrals < 0 {
		return 0
	}
	percent := referrals * 2
	if percent > MaxReferralDiscountPercent {
		return MaxReferralDiscountPercent
	}
	return percent
}
