package models

import (
	"time"

	"github.com/forgecraft/craftvault-backend/pkg/enums"
)

// Player is the canonical account entity. The primary key is the stable
// external id assigned by the community bot, never auto-generated.
type Player struct {
	ID            int64      `gorm:"column:id;primaryKey;autoIncrement:false"`
	MinecraftNick string     `gorm:"column:minecraft_nick;type:text;not null;uniqueIndex"`
	PasswordHash  string     `gorm:"column:password_hash;not null"`
	Role          enums.Role `gorm:"column:role;type:text;not null;default:player"`
	GameBalance   int64      `gorm:"column:game_balance;not null;default:0"`
	DonateBalance int64      `gorm:"column:donate_balance;not null;default:0"`
	ReferrerNick  *string    `gorm:"column:referrer_nick"`
	MessagesCount int64      `gorm:"column:messages_count;not null;default:0"`
	LastLoginAt   *time.Time `gorm:"column:last_login_at"`
	RegisteredAt  time.Time  `gorm:"column:registered_at;autoCreateTime"`
	UpdatedAt     time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

// Balance returns the wallet amount for the requested currency.
func (p Player) Balance(currency enums.Currency) int64 {
	if currency == enums.CurrencyDonate {
		return p.DonateBalance
	}
	return p.GameBalance
}
