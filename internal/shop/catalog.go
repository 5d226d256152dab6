package shop

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/forgecraft/craftvault-backend/pkg/db/models"
	"github.com/forgecraft/craftvault-backend/pkg/enums"
	pkgerrors "github.com/forgecraft/craftvault-backend/pkg/errors"
)

func (s *service) CreateProduct(ctx context.Context, input AdminProductInput) (*models.Product, error) {
	if err := validateAdminProduct(input); err != nil {
		return nil, err
	}

	product := input.toModel()
	if err := s.repo.CreateProduct(ctx, &product); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "insert product")
	}
	s.logg.Info(s.logg.WithField(ctx, "product_id", product.ID), "product created")
	return &product, nil
}

func (s *service) UpdateProduct(ctx context.Context, id int64, input AdminProductInput) (*models.Product, error) {
	if id == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id required")
	}
	if err := validateAdminProduct(input); err != nil {
		return nil, err
	}

	existing, err := s.repo.FindProduct(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}

	updated := input.toModel()
	updated.ID = existing.ID
	updated.CreatedAt = existing.CreatedAt
	if err := s.repo.SaveProduct(ctx, &updated); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save product")
	}
	s.logg.Info(s.logg.WithField(ctx, "product_id", updated.ID), "product updated")
	return &updated, nil
}

func (s *service) DeleteProduct(ctx context.Context, id int64) error {
	if id == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "product id required")
	}
	ok, err := s.repo.DeactivateProduct(ctx, id)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "deactivate product")
	}
	if !ok {
		return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}
	s.logg.Info(s.logg.WithField(ctx, "product_id", id), "product deactivated")
	return nil
}

// validateAdminProduct enforces the kind-specific configuration contract so
// a misconfigured listing fails at save time instead of at first delivery.
func validateAdminProduct(input AdminProductInput) error {
	if strings.TrimSpace(input.Name) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "product name required")
	}
	if !input.Kind.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown product kind %q", input.Kind))
	}
	if input.GamePrice == nil && input.DonatePrice == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "at least one price is required")
	}
	if input.GamePrice != nil && *input.GamePrice <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "game price must be positive")
	}
	if input.DonatePrice != nil && *input.DonatePrice <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "donate price must be positive")
	}
	if input.MaxPurchasesPerPlayer != nil && *input.MaxPurchasesPerPlayer < 1 {
		return pkgerrors.New(pkgerrors.CodeValidation, "max purchases per player must be at least 1")
	}
	return validateKindConfig(input)
}

func validateKindConfig(input AdminProductInput) error {
	hasTemplates := input.ExecutionConfig != nil && len(input.ExecutionConfig.Commands) > 0

	switch input.Kind {
	case enums.KindItem:
		if !hasTemplates {
			if len(input.ItemsData) == 0 {
				return pkgerrors.New(pkgerrors.CodeValidation, "item product needs items_data or command templates")
			}
			for _, stack := range input.ItemsData {
				if strings.TrimSpace(stack.MinecraftID) == "" || stack.Amount < 1 {
					return pkgerrors.New(pkgerrors.CodeValidation, "items_data entries need an item id and a positive amount")
				}
			}
		}
	case enums.KindSubscription:
		if input.SubscriptionDays == nil || *input.SubscriptionDays < 1 {
			return pkgerrors.New(pkgerrors.CodeValidation, "subscription product needs a positive duration in days")
		}
		if !hasTemplates {
			return pkgerrors.New(pkgerrors.CodeValidation, "subscription product needs command templates")
		}
	case enums.KindWhitelist:
		// Default command batch is synthesized, templates are optional.
	default:
		if !hasTemplates {
			return pkgerrors.New(pkgerrors.CodeValidation,
				fmt.Sprintf("%s product needs command templates", input.Kind))
		}
	}

	if input.autoExecute() && !input.RequiresManualApproval {
		if input.ExecutionConfig == nil || strings.TrimSpace(input.ExecutionConfig.ServerID) == "" {
			return pkgerrors.New(pkgerrors.CodeValidation, "auto-executed product needs a target server")
		}
	}
	return nil
}

func (i AdminProductInput) toModel() models.Product {
	return models.Product{
		Name:                   strings.TrimSpace(i.Name),
		Description:            i.Description,
		Kind:                   i.Kind,
		Category:               i.Category,
		ItemsData:              i.ItemsData,
		SubscriptionDays:       i.SubscriptionDays,
		GamePrice:              i.GamePrice,
		DonatePrice:            i.DonatePrice,
		MaxPurchasesPerPlayer:  i.MaxPurchasesPerPlayer,
		ExecutionConfig:        i.ExecutionConfig,
		AutoExecute:            i.autoExecute(),
		RequiresManualApproval: i.RequiresManualApproval,
		IsActive:               i.isActive(),
	}
}

func (i AdminProductInput) autoExecute() bool {
	if i.AutoExecute == nil {
		return true
	}
	return *i.AutoExecute
}

func (i AdminProductInput) isActive() bool {
	if i.IsActive == nil {
		return true
	}
	return *i.IsActive
}
