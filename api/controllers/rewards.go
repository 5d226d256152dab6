package controllers

import (
	"net/http"

	"github.com/forgecraft/craftvault-backend/api/middleware"
	"github.com/forgecraft/craftvault-backend/api/responses"
	"github.com/forgecraft/craftvault-backend/api/validators"
	playtimesvc "github.com/forgecraft/craftvault-backend/internal/playtime"
	pkgerrors "github.com/forgecraft/craftvault-backend/pkg/errors"
	"github.com/forgecraft/craftvault-backend/pkg/logger"
)

// RewardsStats returns the caller's playtime totals.
func RewardsStats(svc playtimesvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		playerID := middleware.PlayerIDFromContext(r.Context())
		if playerID == 0 {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "player context missing"))
			return
		}

		stats, err := svc.Stats(r.Context(), playerID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, stats)
	}
}

// RewardsTop returns the playtime leaderboard.
func RewardsTop(svc playtimesvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, err := validators.ParseQueryInt(r, "limit", 10, 1, 100)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		top, err := svc.Top(r.Context(), limit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, top)
	}
}
