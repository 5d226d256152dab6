package players

import (
	"time"

	"github.com/forgecraft/craftvault-backend/pkg/enums"
)

// RegisterInput carries a registration request. PlayerID is the stable
// external id assigned by the community bot.
type RegisterInput struct {
	PlayerID     int64
	Nick         string
	Password     string
	ReferrerNick string
}

// Profile is the authenticated player's own view.
type Profile struct {
	PlayerID        int64      `json:"player_id"`
	MinecraftNick   string     `json:"minecraft_nick"`
	Role            enums.Role `json:"role"`
	GameBalance     int64      `json:"game_balance"`
	DonateBalance   int64      `json:"donate_balance"`
	ReferralsCount  int        `json:"referrals_count"`
	DiscountPercent int        `json:"discount_percent"`
	RegisteredAt    time.Time  `json:"registered_at"`
	LastLoginAt     *time.Time `json:"last_login_at,omitempty"`
}

// ChatRewardWinner is one rewarded player in a chat-activity run.
type ChatRewardWinner struct {
	PlayerID      int64  `json:"player_id"`
	MinecraftNick string `json:"minecraft_nick"`
	Messages      int64  `json:"messages"`
	CoinsAwarded  int64  `json:"coins_awarded"`
}

// ChatRewardStats summarizes one chat-activity run for the notifier.
type ChatRewardStats struct {
	Winners       []ChatRewardWinner `json:"winners"`
	CoinsAwarded  int64              `json:"coins_awarded"`
	CountersReset int64              `json:"counters_reset"`
}
