package auth

import (
	"github.com/forgecraft/craftvault-backend/pkg/enums"
	"github.com/golang-jwt/jwt/v5"
)

// AccessTokenPayload captures the data available when minting a JWT.
type AccessTokenPayload struct {
	PlayerID int64
	Nick     string
	Role     enums.Role
	JTI      string
}

// AccessTokenClaims represents the typed JWT issued to clients.
type AccessTokenClaims struct {
	PlayerID int64      `json:"player_id"`
	Nick     string     `json:"nick"`
	Role     enums.Role `json:"role"`
	jwt.RegisteredClaims
}
