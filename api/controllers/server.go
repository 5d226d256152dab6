package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/forgecraft/craftvault-backend/api/middleware"
	"github.com/forgecraft/craftvault-backend/api/responses"
	"github.com/forgecraft/craftvault-backend/api/validators"
	serversvc "github.com/forgecraft/craftvault-backend/internal/server"
	pkgerrors "github.com/forgecraft/craftvault-backend/pkg/errors"
	"github.com/forgecraft/craftvault-backend/pkg/logger"
)

// ServerOnlinePlayers lists who is on the target server right now.
func ServerOnlinePlayers(svc serversvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		players, err := svc.OnlinePlayers(r.Context(), r.URL.Query().Get("server_id"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, players)
	}
}

type broadcastRequest struct {
	ServerID string `json:"server_id" validate:"required"`
	Message  string `json:"message" validate:"required,max=256"`
}

// AdminBroadcast sends a chat announcement and records the audit row.
func AdminBroadcast(svc serversvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		adminID := middleware.PlayerIDFromContext(r.Context())
		var payload broadcastRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Broadcast(r.Context(), serversvc.BroadcastInput{
			AdminID:  adminID,
			ServerID: payload.ServerID,
			Message:  payload.Message,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

type gamemodeRequest struct {
	ServerID string `json:"server_id" validate:"required"`
	Nick     string `json:"nick" validate:"required"`
	Mode     string `json:"mode" validate:"required"`
}

// AdminGamemode switches a player's gamemode and records the audit row.
func AdminGamemode(svc serversvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		adminID := middleware.PlayerIDFromContext(r.Context())
		var payload gamemodeRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.SetGamemode(r.Context(), serversvc.GamemodeInput{
			AdminID:  adminID,
			ServerID: payload.ServerID,
			Nick:     payload.Nick,
			Mode:     payload.Mode,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// AdminPendingExecutions lists fulfillments waiting for manual approval.
func AdminPendingExecutions(svc serversvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, err := validators.ParseQueryInt(r, "limit", 0, 0, 50)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		executions, err := svc.PendingExecutions(r.Context(), limit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, executions)
	}
}

// AdminApproveExecution reruns a manual_required execution.
func AdminApproveExecution(svc serversvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		adminID := middleware.PlayerIDFromContext(r.Context())
		id, err := uuid.Parse(chi.URLParam(r, "executionId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid execution id"))
			return
		}

		updated, err := svc.ApproveExecution(r.Context(), adminID, id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, updated)
	}
}
