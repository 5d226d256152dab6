package shop

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/forgecraft/craftvault-backend/pkg/db/models"
	"github.com/forgecraft/craftvault-backend/pkg/enums"
	"github.com/forgecraft/craftvault-backend/pkg/pagination"
)

// Repository defines persistence operations for the shop tables.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	ListActiveProducts(ctx context.Context, category *string) ([]models.Product, error)
	FindActiveProduct(ctx context.Context, id int64) (*models.Product, error)
	// FindProduct ignores the active flag. Paid purchases still deliver
	// after a product is pulled from the catalog.
	FindProduct(ctx context.Context, id int64) (*models.Product, error)
	FindPlayer(ctx context.Context, id int64) (*models.Player, error)
	ReferralDiscountPercent(ctx context.Context, playerID int64) (int, error)
	PurchasesMade(ctx context.Context, playerID, productID int64) (int, error)
	// DebitBalance decrements the wallet only while it stays non-negative.
	// Returns false when the guard matched no row.
	DebitBalance(ctx context.Context, playerID int64, currency enums.Currency, amount int64) (bool, error)
	CreatePurchase(ctx context.Context, purchase *models.Purchase) error
	IncrementPurchaseLimit(ctx context.Context, playerID, productID int64, qty int) error
	FindPurchase(ctx context.Context, id uuid.UUID) (*models.Purchase, error)
	ListPurchases(ctx context.Context, playerID int64, params pagination.Params) (*PurchaseList, error)
	Stats(ctx context.Context) (*Stats, error)
	CreateProduct(ctx context.Context, product *models.Product) error
	SaveProduct(ctx context.Context, product *models.Product) error
	// DeactivateProduct flips is_active off. Returns false when no row
	// matched the id.
	DeactivateProduct(ctx context.Context, id int64) (bool, error)
}
