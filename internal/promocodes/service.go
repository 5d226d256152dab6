package promocodes

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/forgecraft/craftvault-backend/pkg/db"
	"github.com/forgecraft/craftvault-backend/pkg/db/models"
	dbtypes "github.com/forgecraft/craftvault-backend/pkg/db/types"
	pkgerrors "github.com/forgecraft/craftvault-backend/pkg/errors"
	"github.com/forgecraft/craftvault-backend/pkg/logger"
)

const (
	defaultListLimit = 20
	maxListLimit     = 100
)

// CreateInput describes an admin-issued promo code.
type CreateInput struct {
	Code               string     `json:"code"`
	DiscountPercent    int        `json:"discount_percent"`
	UsesLeft           *int       `json:"uses_left,omitempty"`
	ApplicableProducts []int64    `json:"applicable_products,omitempty"`
	StartDate          *time.Time `json:"start_date,omitempty"`
	EndDate            *time.Time `json:"end_date,omitempty"`
}

// ListInput filters the admin listing.
type ListInput struct {
	ActiveOnly bool
	Limit      int
	Offset     int
}

// ValidationResult is the answer to a pre-purchase promo check.
type ValidationResult struct {
	Valid           bool             `json:"valid"`
	DiscountPercent int              `json:"discount_percent"`
	Promocode       models.Promocode `json:"promocode"`
}

// Service manages promo codes and answers validity checks.
type Service interface {
	Create(ctx context.Context, input CreateInput) (*models.Promocode, error)
	List(ctx context.Context, input ListInput) ([]models.Promocode, error)
	Deactivate(ctx context.Context, id int64) error
	// Validate checks a code against its window, remaining uses and product
	// allow-list without consuming a use.
	Validate(ctx context.Context, code string, productID *int64) (*ValidationResult, error)
}

type service struct {
	repo Repository
	logg *logger.Logger
	now  func() time.Time
}

// Params wires promocode service dependencies.
type Params struct {
	Repo   Repository
	Logger *logger.Logger
	Now    func() time.Time
}

// NewService builds the promocode service.
func NewService(p Params) (Service, error) {
	if p.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "promocodes repository required")
	}
	if p.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "logger required")
	}
	now := p.Now
	if now == nil {
		now = time.Now
	}
	return &service{repo: p.Repo, logg: p.Logger, now: now}, nil
}

func (s *service) Create(ctx context.Context, input CreateInput) (*models.Promocode, error) {
	code := strings.TrimSpace(input.Code)
	if code == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "promo code required")
	}
	if input.DiscountPercent < 1 || input.DiscountPercent > 100 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "discount must be between 1 and 100 percent")
	}
	if input.UsesLeft != nil && *input.UsesLeft < 1 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "uses_left must be positive when set")
	}
	if input.StartDate != nil && input.EndDate != nil && input.EndDate.Before(*input.StartDate) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "end_date precedes start_date")
	}

	promo := models.Promocode{
		Code:               code,
		DiscountPercent:    input.DiscountPercent,
		UsesLeft:           input.UsesLeft,
		StartDate:          input.StartDate,
		EndDate:            input.EndDate,
		ApplicableProducts: dbtypes.Int64Array(input.ApplicableProducts),
		IsActive:           true,
	}
	if err := s.repo.Create(ctx, &promo); err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, fmt.Sprintf("promo code %q already exists", code))
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "insert promocode")
	}
	return &promo, nil
}

func (s *service) List(ctx context.Context, input ListInput) ([]models.Promocode, error) {
	limit := input.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	offset := input.Offset
	if offset < 0 {
		offset = 0
	}
	promos, err := s.repo.List(ctx, input.ActiveOnly, limit, offset)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list promocodes")
	}
	return promos, nil
}

func (s *service) Deactivate(ctx context.Context, id int64) error {
	if id == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "promocode id required")
	}
	ok, err := s.repo.Deactivate(ctx, id)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "deactivate promocode")
	}
	if !ok {
		return pkgerrors.New(pkgerrors.CodeNotFound, "promocode not found")
	}
	return nil
}

func (s *service) Validate(ctx context.Context, code string, productID *int64) (*ValidationResult, error) {
	if strings.TrimSpace(code) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "promo code required")
	}
	promo, err := s.repo.FindByCode(ctx, code)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodePromoInvalid, "promo code is invalid or expired")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load promocode")
	}
	if !promo.ActiveAt(s.now().UTC()) {
		return nil, pkgerrors.New(pkgerrors.CodePromoInvalid, "promo code is invalid or expired")
	}
	if productID != nil && !promo.AppliesTo(*productID) {
		return nil, pkgerrors.New(pkgerrors.CodePromoNotUsable, "promo code does not apply to this product")
	}
	return &ValidationResult{
		Valid:           true,
		DiscountPercent: promo.DiscountPercent,
		Promocode:       *promo,
	}, nil
}
