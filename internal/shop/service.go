package shop

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/forgecraft/craftvault-backend/internal/fulfillment"
	"github.com/forgecraft/craftvault-backend/internal/pricing"
	"github.com/forgecraft/craftvault-backend/pkg/db/models"
	"github.com/forgecraft/craftvault-backend/pkg/enums"
	pkgerrors "github.com/forgecraft/craftvault-backend/pkg/errors"
	"github.com/forgecraft/craftvault-backend/pkg/logger"
	"github.com/forgecraft/craftvault-backend/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service exposes the purchase ledger and catalog reads.
type Service interface {
	ListProducts(ctx context.Context, category *string) ([]models.Product, error)
	GetProduct(ctx context.Context, id int64) (*models.Product, error)
	Purchase(ctx context.Context, input PurchaseInput) (*PurchaseResult, error)
	History(ctx context.Context, playerID int64, params pagination.Params) (*PurchaseList, error)
	PurchaseByID(ctx context.Context, playerID int64, id uuid.UUID) (*PurchaseDetail, error)
	Stats(ctx context.Context) (*Stats, error)

	CreateProduct(ctx context.Context, input AdminProductInput) (*models.Product, error)
	UpdateProduct(ctx context.Context, id int64, input AdminProductInput) (*models.Product, error)
	// DeleteProduct deactivates the listing. Rows are never removed so
	// past purchases keep their product reference.
	DeleteProduct(ctx context.Context, id int64) error
}

type service struct {
	repo       Repository
	execRepo   fulfillment.Repository
	tx         txRunner
	pricing    pricing.Resolver
	dispatcher fulfillment.Dispatcher
	logg       *logger.Logger
}

// Params wires shop service dependencies.
type Params struct {
	Repo       Repository
	ExecRepo   fulfillment.Repository
	Tx         txRunner
	Pricing    pricing.Resolver
	Dispatcher fulfillment.Dispatcher
	Logger     *logger.Logger
}

// NewService builds the purchase ledger service.
func NewService(p Params) (Service, error) {
	if p.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "shop repository required")
	}
	if p.ExecRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "fulfillment repository required")
	}
	if p.Tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "transaction runner required")
	}
	if p.Pricing == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "pricing resolver required")
	}
	if p.Dispatcher == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "fulfillment dispatcher required")
	}
	if p.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "logger required")
	}
	return &service{
		repo:       p.Repo,
		execRepo:   p.ExecRepo,
		tx:         p.Tx,
		pricing:    p.Pricing,
		dispatcher: p.Dispatcher,
		logg:       p.Logger,
	}, nil
}

func (s *service) ListProducts(ctx context.Context, category *string) ([]models.Product, error) {
	return s.repo.ListActiveProducts(ctx, category)
}

func (s *service) GetProduct(ctx context.Context, id int64) (*models.Product, error) {
	product, err := s.repo.FindActiveProduct(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	return product, nil
}

// Purchase runs the full ledger flow. The money movement commits in one
// transaction; fulfillment dispatch happens strictly after commit, so a
// delivery failure can never unwind the charge.
func (s *service) Purchase(ctx context.Context, input PurchaseInput) (*PurchaseResult, error) {
	ctx = s.logg.WithPlayerID(ctx, input.PlayerID)

	if input.PlayerID == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "player identity missing")
	}
	if input.ProductID == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id required")
	}
	if !input.Currency.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unsupported currency %q", input.Currency))
	}
	if input.Quantity == 0 {
		input.Quantity = 1
	}
	if input.Quantity < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}

	var (
		purchase models.Purchase
		product  models.Product
	)
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		found, err := repo.FindActiveProduct(ctx, input.ProductID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
		}
		product = *found

		player, err := repo.FindPlayer(ctx, input.PlayerID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "player not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load player")
		}

		if product.MaxPurchasesPerPlayer != nil && *product.MaxPurchasesPerPlayer > 0 {
			made, err := repo.PurchasesMade(ctx, input.PlayerID, product.ID)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load purchase limit")
			}
			if made+input.Quantity > *product.MaxPurchasesPerPlayer {
				return pkgerrors.New(pkgerrors.CodePurchaseLimit, "purchase limit reached for this product").
					WithDetails(map[string]any{
						"limit":     *product.MaxPurchasesPerPlayer,
						"purchased": made,
					})
			}
		}

		referral, err := repo.ReferralDiscountPercent(ctx, input.PlayerID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load referral discount")
		}

		quote, err := s.pricing.Resolve(ctx, tx, pricing.ResolveInput{
			Product:                 product,
			Currency:                input.Currency,
			Quantity:                input.Quantity,
			ReferralDiscountPercent: referral,
			PromoCode:               input.PromoCode,
		})
		if err != nil {
			return err
		}

		debited, err := repo.DebitBalance(ctx, input.PlayerID, input.Currency, quote.FinalAmount)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "debit balance")
		}
		if !debited {
			return pkgerrors.New(pkgerrors.CodeInsufficientFunds, "insufficient funds").
				WithDetails(map[string]any{
					"required": quote.FinalAmount,
					"currency": input.Currency,
				})
		}

		purchase = models.Purchase{
			PlayerID:               player.ID,
			MinecraftNick:          player.MinecraftNick,
			ProductID:              product.ID,
			ProductName:            product.Name,
			Quantity:               input.Quantity,
			Currency:               input.Currency,
			AmountPaid:             quote.FinalAmount,
			AppliedDiscountPercent: quote.AppliedDiscountPercent,
			PromocodeID:            quote.PromocodeID,
			Status:                 enums.PurchaseCompleted,
		}
		if err := repo.CreatePurchase(ctx, &purchase); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "insert purchase")
		}
		if err := repo.IncrementPurchaseLimit(ctx, player.ID, product.ID, input.Quantity); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "bump purchase limit")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	result := &PurchaseResult{Purchase: purchase}
	execution, err := s.dispatcher.Dispatch(ctx, purchase, product)
	if err != nil {
		// The charge is committed; surface the purchase and leave the
		// execution trail to the sweeper and the admin queue.
		s.logg.Error(ctx, fmt.Sprintf("dispatch for purchase %s failed", purchase.ID), err)
		return result, nil
	}
	result.Execution = execution
	return result, nil
}

func (s *service) History(ctx context.Context, playerID int64, params pagination.Params) (*PurchaseList, error) {
	if playerID == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "player identity missing")
	}
	list, err := s.repo.ListPurchases(ctx, playerID, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list purchases")
	}
	return list, nil
}

func (s *service) PurchaseByID(ctx context.Context, playerID int64, id uuid.UUID) (*PurchaseDetail, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "purchase id required")
	}
	purchase, err := s.repo.FindPurchase(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "purchase not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load purchase")
	}
	// Players only see their own history. Report not-found rather than
	// forbidden so purchase ids stay unguessable.
	if playerID != 0 && purchase.PlayerID != playerID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "purchase not found")
	}

	executions, err := s.execRepo.ListByPurchase(ctx, purchase.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load execution records")
	}
	return &PurchaseDetail{Purchase: *purchase, Executions: executions}, nil
}

func (s *service) Stats(ctx context.Context) (*Stats, error) {
	stats, err := s.repo.Stats(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load purchase stats")
	}
	return stats, nil
}
