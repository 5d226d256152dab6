package controllers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/forgecraft/craftvault-backend/api/middleware"
	"github.com/forgecraft/craftvault-backend/api/responses"
	"github.com/forgecraft/craftvault-backend/api/validators"
	transfersvc "github.com/forgecraft/craftvault-backend/internal/transfers"
	pkgerrors "github.com/forgecraft/craftvault-backend/pkg/errors"
	"github.com/forgecraft/craftvault-backend/pkg/logger"
	"github.com/forgecraft/craftvault-backend/pkg/pagination"
)

type sendTransferRequest struct {
	RecipientNick string  `json:"recipient_nick" validate:"required"`
	Amount        int64   `json:"amount" validate:"required,min=1"`
	Message       *string `json:"message,omitempty"`
}

// TransferSend moves coins between players, commission included.
func TransferSend(svc transfersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		playerID := middleware.PlayerIDFromContext(r.Context())
		if playerID == 0 {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "player context missing"))
			return
		}

		var payload sendTransferRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Send(r.Context(), transfersvc.SendInput{
			SenderID:      playerID,
			RecipientNick: validators.SanitizeString(payload.RecipientNick, 16),
			Amount:        payload.Amount,
			Message:       payload.Message,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// TransferHistory pages through the caller's transfers.
func TransferHistory(svc transfersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		playerID := middleware.PlayerIDFromContext(r.Context())
		if playerID == 0 {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "player context missing"))
			return
		}

		direction := transfersvc.Direction(strings.TrimSpace(r.URL.Query().Get("direction")))
		if direction == "" {
			direction = transfersvc.DirectionAll
		}

		limit, err := validators.ParseQueryInt(r, "limit", 0, 0, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		page, err := svc.History(r.Context(), playerID, direction, pagination.Params{
			Limit:  limit,
			Cursor: strings.TrimSpace(r.URL.Query().Get("cursor")),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, page)
	}
}

// TransferStats returns the caller's sent/received aggregates.
func TransferStats(svc transfersvc.Service, logg *logger.Logger) http.HandlerFunc {
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

// TransferCommission quotes the commission for a prospective amount.
func TransferCommission(svc transfersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		raw := strings.TrimSpace(r.URL.Query().Get("amount"))
		amount, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "amount must be numeric"))
			return
		}

		quote, err := svc.Commission(amount)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, quote)
	}
}
