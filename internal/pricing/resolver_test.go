package pricing

import (
	"context"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/forgecraft/craftvault-backend/pkg/db/models"
	"github.com/forgecraft/craftvault-backend/pkg/enums"
	pkgerrors "github.com/forgecraft/craftvault-backend/pkg/errors"
)

type stubRepo struct {
	promo       *models.Promocode
	findErr     error
	consumeOK   bool
	consumeErr  error
	consumed    int
	lastPromoID int64
}

func (s *stubRepo) WithTx(tx *gorm.DB) Repository { return s }

func (s *stubRepo) FindByCode(ctx context.Context, code string) (*models.Promocode, error) {
	if s.findErr != nil {
		return nil, s.findErr
	}
	if s.promo == nil || s.promo.Code != code {
		return nil, gorm.ErrRecordNotFound
	}
	return s.promo, nil
}

func (s *stubRepo) ConsumeUse(ctx context.Context, promo *models.Promocode) (bool, error) {
	s.consumed++
	s.lastPromoID = promo.ID
	if s.consumeErr != nil {
		return false, s.consumeErr
	}
	return s.consumeOK, nil
}

func fixedNow() time.Time {
	return time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
}

func newTestResolver(t *testing.T, repo Repository) Resolver {
	t.Helper()
	r, err := NewResolver(Params{Repo: repo, Now: fixedNow})
	if err != nil {
		t.Fatalf("NewResolver failed: %v", err)
	}
	return r
}

func gamePriced(price int64) models.Product {
	return models.Product{ID: 7, Name: "Diamond Kit", Kind: enums.KindItem, GamePrice: &price}
}

func TestResolveNoPriceForCurrency(t *testing.T) {
	r := newTestResolver(t, &stubRepo{})
	product := gamePriced(100)

	_, err := r.Resolve(context.Background(), nil, ResolveInput{
		Product:  product,
		Currency: enums.CurrencyDonate,
		Quantity: 1,
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeNoPrice {
		t.Fatalf("expected NO_PRICE_FOR_CURRENCY, got %v", err)
	}
}

func TestResolveReferralDiscountCeilRounding(t *testing.T) {
	r := newTestResolver(t, &stubRepo{})

	// 100 * 3 = 300 base; 7% off = 279; exact division
	quote, err := r.Resolve(context.Background(), nil, ResolveInput{
		Product:                 gamePriced(100),
		Currency:                enums.CurrencyGame,
		Quantity:                3,
		ReferralDiscountPercent: 7,
	})
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if quote.FinalAmount != 279 {
		t.Fatalf("expected 279, got %d", quote.FinalAmount)
	}

	// 33 base with 10% off = 29.7 -> rounds up to 30
	quote, err = r.Resolve(context.Background(), nil, ResolveInput{
		Product:                 gamePriced(33),
		Currency:                enums.CurrencyGame,
		Quantity:                1,
		ReferralDiscountPercent: 10,
	})
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if quote.FinalAmount != 30 {
		t.Fatalf("expected ceil to 30, got %d", quote.FinalAmount)
	}
	if quote.AppliedDiscountPercent != 10 {
		t.Fatalf("expected 10%%, got %d", quote.AppliedDiscountPercent)
	}
}

func TestResolveMaxOfReferralAndPromo(t *testing.T) {
	uses := 5
	repo := &stubRepo{
		promo: &models.Promocode{
			ID:              3,
			Code:            "SPRING",
			DiscountPercent: 15,
			UsesLeft:        &uses,
			IsActive:        true,
		},
		consumeOK: true,
	}
	r := newTestResolver(t, repo)

	// referral 20 beats promo 15; promo still consumed
	quote, err := r.Resolve(context.Background(), nil, ResolveInput{
		Product:                 gamePriced(200),
		Currency:                enums.CurrencyGame,
		Quantity:                1,
		ReferralDiscountPercent: 20,
		PromoCode:               "SPRING",
	})
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if quote.AppliedDiscountPercent != 20 {
		t.Fatalf("expected max discount 20, got %d", quote.AppliedDiscountPercent)
	}
	if quote.FinalAmount != 160 {
		t.Fatalf("expected 160, got %d", quote.FinalAmount)
	}
	if repo.consumed != 1 {
		t.Fatalf("expected promo consumed exactly once, got %d", repo.consumed)
	}
	if quote.PromocodeID == nil || *quote.PromocodeID != 3 {
		t.Fatalf("expected promocode id recorded, got %+v", quote.PromocodeID)
	}
}

func TestResolvePromoWinsOverReferral(t *testing.T) {
	repo := &stubRepo{
		promo: &models.Promocode{
			ID:              3,
			Code:            "BIG",
			DiscountPercent: 50,
			IsActive:        true,
		},
		consumeOK: true,
	}
	r := newTestResolver(t, repo)

	quote, err := r.Resolve(context.Background(), nil, ResolveInput{
		Product:                 gamePriced(101),
		Currency:                enums.CurrencyGame,
		Quantity:                1,
		ReferralDiscountPercent: 10,
		PromoCode:               "BIG",
	})
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if quote.AppliedDiscountPercent != 50 {
		t.Fatalf("expected 50, got %d", quote.AppliedDiscountPercent)
	}
	// 101 * 0.5 = 50.5 -> 51
	if quote.FinalAmount != 51 {
		t.Fatalf("expected ceil to 51, got %d", quote.FinalAmount)
	}
}

func TestResolvePromoExhausted(t *testing.T) {
	uses := 1
	repo := &stubRepo{
		promo: &models.Promocode{
			ID:              9,
			Code:            "LAST",
			DiscountPercent: 10,
			UsesLeft:        &uses,
			IsActive:        true,
		},
		consumeOK: false, // guarded decrement found no uses left
	}
	r := newTestResolver(t, repo)

	_, err := r.Resolve(context.Background(), nil, ResolveInput{
		Product:   gamePriced(100),
		Currency:  enums.CurrencyGame,
		Quantity:  1,
		PromoCode: "LAST",
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodePromoInvalid {
		t.Fatalf("expected PROMOCODE_INVALID for exhausted code, got %v", err)
	}
}

func TestResolvePromoWindowAndScope(t *testing.T) {
	future := fixedNow().Add(time.Hour)
	repo := &stubRepo{
		promo: &models.Promocode{
			ID:              4,
			Code:            "SOON",
			DiscountPercent: 10,
			StartDate:       &future,
			IsActive:        true,
		},
	}
	r := newTestResolver(t, repo)

	_, err := r.Resolve(context.Background(), nil, ResolveInput{
		Product:   gamePriced(100),
		Currency:  enums.CurrencyGame,
		Quantity:  1,
		PromoCode: "SOON",
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodePromoInvalid {
		t.Fatalf("expected PROMOCODE_INVALID before start date, got %v", err)
	}

	repo.promo = &models.Promocode{
		ID:                 5,
		Code:               "SCOPED",
		DiscountPercent:    10,
		ApplicableProducts: []int64{999},
		IsActive:           true,
	}
	_, err = r.Resolve(context.Background(), nil, ResolveInput{
		Product:   gamePriced(100),
		Currency:  enums.CurrencyGame,
		Quantity:  1,
		PromoCode: "SCOPED",
	})
	typed = pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodePromoNotUsable {
		t.Fatalf("expected PROMOCODE_NOT_APPLICABLE, got %v", err)
	}
}

func TestResolveUnknownPromo(t *testing.T) {
	r := newTestResolver(t, &stubRepo{})
	_, err := r.Resolve(context.Background(), nil, ResolveInput{
		Product:   gamePriced(100),
		Currency:  enums.CurrencyGame,
		Quantity:  1,
		PromoCode: "GHOST",
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodePromoInvalid {
		t.Fatalf("expected PROMOCODE_INVALID for unknown code, got %v", err)
	}
}

func TestResolveZeroPricePaidProduct(t *testing.T) {
	r := newTestResolver(t, &stubRepo{})
	quote, err := r.Resolve(context.Background(), nil, ResolveInput{
		Product:                 gamePriced(0),
		Currency:                enums.CurrencyGame,
		Quantity:                2,
		ReferralDiscountPercent: 40,
	})
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if quote.FinalAmount != 0 {
		t.Fatalf("expected free product to stay free, got %d", quote.FinalAmount)
	}
}
