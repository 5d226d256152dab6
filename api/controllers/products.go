package controllers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/forgecraft/craftvault-backend/api/responses"
	"github.com/forgecraft/craftvault-backend/api/validators"
	shopsvc "github.com/forgecraft/craftvault-backend/internal/shop"
	"github.com/forgecraft/craftvault-backend/pkg/enums"
	pkgerrors "github.com/forgecraft/craftvault-backend/pkg/errors"
	"github.com/forgecraft/craftvault-backend/pkg/logger"
	"github.com/forgecraft/craftvault-backend/pkg/types"
)

// ListProducts returns the active catalog, optionally filtered by category.
func ListProducts(svc shopsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var category *string
		if raw := strings.TrimSpace(r.URL.Query().Get("category")); raw != "" {
			category = &raw
		}

		products, err := svc.ListProducts(r.Context(), category)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, products)
	}
}

// GetProduct returns one active listing.
func GetProduct(svc shopsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := productIDParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		product, err := svc.GetProduct(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, product)
	}
}

type adminProductRequest struct {
	Name                   string                 `json:"name" validate:"required"`
	Description            *string                `json:"description,omitempty"`
	Kind                   string                 `json:"kind" validate:"required"`
	Category               *string                `json:"category,omitempty"`
	ItemsData              types.ItemsData        `json:"items_data,omitempty"`
	SubscriptionDays       *int                   `json:"subscription_days,omitempty" validate:"omitempty,min=1"`
	GamePrice              *int64                 `json:"game_price,omitempty" validate:"omitempty,min=1"`
	DonatePrice            *int64                 `json:"donate_price,omitempty" validate:"omitempty,min=1"`
	MaxPurchasesPerPlayer  *int                   `json:"max_purchases_per_player,omitempty" validate:"omitempty,min=1"`
	ExecutionConfig        *types.ExecutionConfig `json:"execution_config,omitempty"`
	AutoExecute            *bool                  `json:"auto_execute,omitempty"`
	RequiresManualApproval bool                   `json:"requires_manual_approval,omitempty"`
	IsActive               *bool                  `json:"is_active,omitempty"`
}

func (p adminProductRequest) toInput() shopsvc.AdminProductInput {
	return shopsvc.AdminProductInput{
		Name:                   p.Name,
		Description:            p.Description,
		Kind:                   enums.ProductKind(strings.ToLower(strings.TrimSpace(p.Kind))),
		Category:               p.Category,
		ItemsData:              p.ItemsData,
		SubscriptionDays:       p.SubscriptionDays,
		GamePrice:              p.GamePrice,
		DonatePrice:            p.DonatePrice,
		MaxPurchasesPerPlayer:  p.MaxPurchasesPerPlayer,
		ExecutionConfig:        p.ExecutionConfig,
		AutoExecute:            p.AutoExecute,
		RequiresManualApproval: p.RequiresManualApproval,
		IsActive:               p.IsActive,
	}
}

// AdminCreateProduct adds a catalog listing.
func AdminCreateProduct(svc shopsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload adminProductRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		product, err := svc.CreateProduct(r.Context(), payload.toInput())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, product)
	}
}

// AdminUpdateProduct replaces a listing's writable fields.
func AdminUpdateProduct(svc shopsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := productIDParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload adminProductRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		product, err := svc.UpdateProduct(r.Context(), id, payload.toInput())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, product)
	}
}

// AdminDeleteProduct deactivates a listing.
func AdminDeleteProduct(svc shopsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := productIDParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.DeleteProduct(r.Context(), id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "deactivated"})
	}
}

func productIDParam(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "productId"), 10, 64)
	if err != nil || id <= 0 {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "invalid product id")
	}
	return id, nil
}
