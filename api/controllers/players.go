package controllers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/forgecraft/craftvault-backend/api/middleware"
	"github.com/forgecraft/craftvault-backend/api/responses"
	"github.com/forgecraft/craftvault-backend/api/validators"
	playersvc "github.com/forgecraft/craftvault-backend/internal/players"
	pkgerrors "github.com/forgecraft/craftvault-backend/pkg/errors"
	"github.com/forgecraft/craftvault-backend/pkg/logger"
)

type registerRequest struct {
	PlayerID     int64  `json:"player_id" validate:"required"`
	Nick         string `json:"nick" validate:"required,min=3,max=16"`
	Password     string `json:"password" validate:"required,min=8"`
	ReferrerNick string `json:"referrer_nick,omitempty"`
}

// PlayerRegister creates an account for a community member.
func PlayerRegister(svc playersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload registerRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		player, err := svc.Register(r.Context(), playersvc.RegisterInput{
			PlayerID:     payload.PlayerID,
			Nick:         validators.SanitizeString(payload.Nick, 16),
			Password:     payload.Password,
			ReferrerNick: validators.SanitizeString(payload.ReferrerNick, 16),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, map[string]any{
			"player_id":      player.ID,
			"minecraft_nick": player.MinecraftNick,
		})
	}
}

// PlayerProfile returns the caller's own profile.
func PlayerProfile(svc playersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		playerID := middleware.PlayerIDFromContext(r.Context())
		if playerID == 0 {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "player context missing"))
			return
		}

		profile, err := svc.Profile(r.Context(), playerID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, profile)
	}
}

// AdminConfirmReferral marks a referred player confirmed and recomputes the
// referrer's cumulative discount.
func AdminConfirmReferral(svc playersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		playerID, err := strconv.ParseInt(chi.URLParam(r, "playerId"), 10, 64)
		if err != nil || playerID <= 0 {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid player id"))
			return
		}

		if err := svc.ConfirmReferral(r.Context(), playerID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "confirmed"})
	}
}

type chatMessageRequest struct {
	PlayerID int64 `json:"player_id" validate:"required"`
}

// BotChatMessage bumps a player's daily message counter. Called by the
// community bot's chat bridge.
func BotChatMessage(svc playersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload chatMessageRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.IncrementMessages(r.Context(), payload.PlayerID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "counted"})
	}
}
