package auth

import (
	"time"

	"github.com/forgecraft/craftvault-backend/pkg/enums"
)

// LoginRequest carries player credentials.
type LoginRequest struct {
	Nick     string `json:"nick" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// PlayerSummary is the identity slice returned alongside tokens.
type PlayerSummary struct {
	ID            int64      `json:"id"`
	MinecraftNick string     `json:"minecraft_nick"`
	Role          enums.Role `json:"role"`
	GameBalance   int64      `json:"game_balance"`
	DonateBalance int64      `json:"donate_balance"`
	LastLoginAt   *time.Time `json:"last_login_at,omitempty"`
}

// LoginResponse is the token pair plus the authenticated player.
type LoginResponse struct {
	AccessToken  string        `json:"access_token"`
	RefreshToken string        `json:"refresh_token"`
	Player       PlayerSummary `json:"player"`
}

// RefreshRequest rotates an expired access token.
type RefreshRequest struct {
	AccessToken  string `json:"access_token" validate:"required"`
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// RefreshResponse is the freshly rotated token pair.
type RefreshResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}
