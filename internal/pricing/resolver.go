package pricing

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/forgecraft/craftvault-backend/pkg/db/models"
	"github.com/forgecraft/craftvault-backend/pkg/enums"
	pkgerrors "github.com/forgecraft/craftvault-backend/pkg/errors"
)

// Quote is the fully resolved price for one purchase attempt.
type Quote struct {
	BaseAmount             int64  `json:"base_amount"`
	AppliedDiscountPercent int    `json:"applied_discount_percent"`
	FinalAmount            int64  `json:"final_amount"`
	PromocodeID            *int64 `json:"promocode_id,omitempty"`
	PromoConsumed          bool   `json:"promo_consumed"`
}

// ResolveInput carries everything pricing needs; the caller supplies the
// referral discount so resolution stays a pure function of its inputs plus
// the promocode row.
type ResolveInput struct {
	Product                 models.Product
	Currency                enums.Currency
	Quantity                int
	ReferralDiscountPercent int
	PromoCode               string
}

// Resolver computes the final charge for a purchase inside the caller's
// transaction.
type Resolver interface {
	Resolve(ctx context.Context, tx *gorm.DB, input ResolveInput) (*Quote, error)
}

type resolver struct {
	repo Repository
	now  func() time.Time
}

// Params wires resolver dependencies.
type Params struct {
	Repo Repository
	Now  func() time.Time
}

// NewResolver builds the pricing resolver.
func NewResolver(p Params) (Resolver, error) {
	if p.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "pricing repository required")
	}
	if p.Now == nil {
		p.Now = time.Now
	}
	return &resolver{repo: p.Repo, now: p.Now}, nil
}

func (r *resolver) Resolve(ctx context.Context, tx *gorm.DB, input ResolveInput) (*Quote, error) {
	if !input.Currency.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid currency")
	}
	if input.Quantity <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}

	unitPrice := input.Product.PriceFor(input.Currency)
	if unitPrice == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNoPrice, "product has no price in requested currency").
			WithDetails(map[string]any{"product_id": input.Product.ID, "currency": input.Currency})
	}

	base := *unitPrice * int64(input.Quantity)
	quote := &Quote{BaseAmount: base}

	promoPercent := 0
	if input.PromoCode != "" {
		repo := r.repo.WithTx(tx)
		promo, err := repo.FindByCode(ctx, input.PromoCode)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, pkgerrors.New(pkgerrors.CodePromoInvalid, "promocode does not exist")
			}
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load promocode")
		}
		if !promo.ActiveAt(r.now()) {
			return nil, pkgerrors.New(pkgerrors.CodePromoInvalid, "promocode is not active")
		}
		if !promo.AppliesTo(input.Product.ID) {
			return nil, pkgerrors.New(pkgerrors.CodePromoNotUsable, "promocode does not cover this product")
		}

		// Consumption happens for every valid supplied code, including when
		// the referral discount ends up larger. Clients rely on uses_left
		// moving whenever a code is accepted.
		consumed, err := repo.ConsumeUse(ctx, promo)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "consume promocode use")
		}
		if !consumed {
			return nil, pkgerrors.New(pkgerrors.CodePromoInvalid, "promocode has no uses left")
		}

		promoPercent = promo.DiscountPercent
		id := promo.ID
		quote.PromocodeID = &id
		quote.PromoConsumed = true
	}

	applied := input.ReferralDiscountPercent
	if promoPercent > applied {
		applied = promoPercent
	}
	if applied < 0 {
		applied = 0
	}
	if applied > 100 {
		applied = 100
	}

	quote.AppliedDiscountPercent = applied
	quote.FinalAmount = ceilDiscounted(base, applied)
	return quote, nil
}

// ceilDiscounted applies the percentage and rounds up, so the player never
// pays less than the discounted price.
func ceilDiscounted(base int64, percent int) int64 {
	remaining := base * int64(100-percent)
	return (remaining + 99) / 100
}
