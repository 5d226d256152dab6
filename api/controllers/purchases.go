package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/forgecraft/craftvault-backend/api/middleware"
	"github.com/forgecraft/craftvault-backend/api/responses"
	"github.com/forgecraft/craftvault-backend/api/validators"
	shopsvc "github.com/forgecraft/craftvault-backend/internal/shop"
	"github.com/forgecraft/craftvault-backend/pkg/enums"
	pkgerrors "github.com/forgecraft/craftvault-backend/pkg/errors"
	"github.com/forgecraft/craftvault-backend/pkg/logger"
	"github.com/forgecraft/craftvault-backend/pkg/pagination"
)

type purchaseRequest struct {
	ProductID int64  `json:"product_id" validate:"required"`
	Currency  string `json:"currency" validate:"required"`
	Quantity  int    `json:"quantity,omitempty" validate:"omitempty,min=1"`
	PromoCode string `json:"promo_code,omitempty"`
}

// ShopPurchase runs the full purchase flow: price resolution, guarded
// debit, ledger insert and synchronous fulfillment dispatch.
func ShopPurchase(svc shopsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		playerID := middleware.PlayerIDFromContext(r.Context())
		if playerID == 0 {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "player context missing"))
			return
		}

		var payload purchaseRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Purchase(r.Context(), shopsvc.PurchaseInput{
			PlayerID:  playerID,
			ProductID: payload.ProductID,
			Currency:  enums.Currency(strings.ToLower(strings.TrimSpace(payload.Currency))),
			Quantity:  payload.Quantity,
			PromoCode: validators.SanitizeString(payload.PromoCode, 64),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// PurchaseHistory pages through the caller's own purchases.
func PurchaseHistory(svc shopsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		playerID := middleware.PlayerIDFromContext(r.Context())
		if playerID == 0 {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "player context missing"))
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", 0, 0, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		list, err := svc.History(r.Context(), playerID, pagination.Params{
			Limit:  limit,
			Cursor: strings.TrimSpace(r.URL.Query().Get("cursor")),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

// PurchaseByID returns one purchase with its fulfillment trail.
func PurchaseByID(svc shopsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		playerID := middleware.PlayerIDFromContext(r.Context())
		if playerID == 0 {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "player context missing"))
			return
		}

		id, err := uuid.Parse(chi.URLParam(r, "purchaseId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid purchase id"))
			return
		}

		detail, err := svc.PurchaseByID(r.Context(), playerID, id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, detail)
	}
}

// AdminPurchaseStats returns the sales overview.
func AdminPurchaseStats(svc shopsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stats, err := svc.Stats(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, stats)
	}
}
