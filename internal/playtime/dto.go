package playtime

import "time"

// PlayerMinutes is the live sum of session minutes for one player.
type PlayerMinutes struct {
	PlayerID int64
	Minutes  int64
}

// PlayerPlaytime is the per-player view served to the bot.
type PlayerPlaytime struct {
	PlayerID      int64      `json:"player_id"`
	MinecraftNick string     `json:"minecraft_nick"`
	TotalMinutes  int64      `json:"total_minutes"`
	CoinsAwarded  int64      `json:"coins_awarded"`
	LastAwardedAt *time.Time `json:"last_awarded_at,omitempty"`
}

// RewardRunStats summarizes one accrual run for the notifier.
type RewardRunStats struct {
	PlayersRewarded int   `json:"players_rewarded"`
	CoinsAwarded    int64 `json:"coins_awarded"`
	MinutesCredited int64 `json:"minutes_credited"`
}
