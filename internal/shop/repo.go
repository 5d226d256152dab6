package shop

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/forgecraft/craftvault-backend/pkg/db/models"
	"github.com/forgecraft/craftvault-backend/pkg/enums"
	"github.com/forgecraft/craftvault-backend/pkg/pagination"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds a shop repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) ListActiveProducts(ctx context.Context, category *string) ([]models.Product, error) {
	query := r.db.WithContext(ctx).Where("is_active = ?", true)
	if category != nil {
		query = query.Where("category = ?", *category)
	}
	var products []models.Product
	if err := query.Order("id ASC").Find(&products).Error; err != nil {
		return nil, err
	}
	return products, nil
}

func (r *repository) FindActiveProduct(ctx context.Context, id int64) (*models.Product, error) {
	var product models.Product
	err := r.db.WithContext(ctx).
		Where("id = ? AND is_active = ?", id, true).
		First(&product).Error
	if err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *repository) FindProduct(ctx context.Context, id int64) (*models.Product, error) {
	var product models.Product
	if err := r.db.WithContext(ctx).First(&product, id).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *repository) FindPlayer(ctx context.Context, id int64) (*models.Player, error) {
	var player models.Player
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&player).Error; err != nil {
		return nil, err
	}
	return &player, nil
}

func (r *repository) ReferralDiscountPercent(ctx context.Context, playerID int64) (int, error) {
	var discount models.Discount
	err := r.db.WithContext(ctx).Where("player_id = ?", playerID).First(&discount).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, nil
		}
		return 0, err
	}
	return discount.DiscountPercent, nil
}

func (r *repository) PurchasesMade(ctx context.Context, playerID, productID int64) (int, error) {
	var limit models.PurchaseLimit
	err := r.db.WithContext(ctx).
		Where("player_id = ? AND product_id = ?", playerID, productID).
		First(&limit).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, nil
		}
		return 0, err
	}
	return limit.PurchasesMade, nil
}

func balanceColumn(currency enums.Currency) string {
	if currency == enums.CurrencyDonate {
		return "donate_balance"
	}
	return "game_balance"
}

// DebitBalance is the only write path that moves money out of a wallet. The
// balance guard lives in the WHERE clause so two concurrent purchases cannot
// both pass a sufficient-funds check against a stale read.
func (r *repository) DebitBalance(ctx context.Context, playerID int64, currency enums.Currency, amount int64) (bool, error) {
	column := balanceColumn(currency)
	res := r.db.WithContext(ctx).
		Model(&models.Player{}).
		Where("id = ? AND "+column+" >= ?", playerID, amount).
		UpdateColumn(column, gorm.Expr(column+" - ?", amount))
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repository) CreatePurchase(ctx context.Context, purchase *models.Purchase) error {
	return r.db.WithContext(ctx).Create(purchase).Error
}

func (r *repository) IncrementPurchaseLimit(ctx context.Context, playerID, productID int64, qty int) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "player_id"}, {Name: "product_id"}},
			DoUpdates: clause.Assignments(map[string]any{
				"purchases_made": gorm.Expr("purchase_limits.purchases_made + ?", qty),
			}),
		}).
		Create(&models.PurchaseLimit{
			PlayerID:      playerID,
			ProductID:     productID,
			PurchasesMade: qty,
		}).Error
}

func (r *repository) FindPurchase(ctx context.Context, id uuid.UUID) (*models.Purchase, error) {
	var purchase models.Purchase
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&purchase).Error; err != nil {
		return nil, err
	}
	return &purchase, nil
}

func (r *repository) ListPurchases(ctx context.Context, playerID int64, params pagination.Params) (*PurchaseList, error) {
	limit := pagination.NormalizeLimit(params.Limit)
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, err
	}

	query := r.db.WithContext(ctx).
		Where("player_id = ?", playerID).
		Order("purchased_at DESC, id DESC").
		Limit(limit + 1)
	if cursor != nil {
		query = query.Where(
			"purchased_at < ? OR (purchased_at = ? AND id < ?)",
			cursor.CreatedAt, cursor.CreatedAt, cursor.ID,
		)
	}

	var purchases []models.Purchase
	if err := query.Find(&purchases).Error; err != nil {
		return nil, err
	}

	list := &PurchaseList{Purchases: purchases}
	if len(purchases) > limit {
		list.Purchases = purchases[:limit]
		last := list.Purchases[limit-1]
		list.NextCursor = pagination.EncodeCursor(pagination.Cursor{
			CreatedAt: last.PurchasedAt,
			ID:        last.ID,
		})
	}
	return list, nil
}

func (r *repository) Stats(ctx context.Context) (*Stats, error) {
	stats := &Stats{}

	if err := r.db.WithContext(ctx).
		Model(&models.Purchase{}).
		Count(&stats.TotalPurchases).Error; err != nil {
		return nil, err
	}

	type revenueRow struct {
		Currency enums.Currency
		Total    int64
	}
	var revenue []revenueRow
	err := r.db.WithContext(ctx).
		Model(&models.Purchase{}).
		Select("currency, COALESCE(SUM(amount_paid), 0) AS total").
		Group("currency").
		Scan(&revenue).Error
	if err != nil {
		return nil, err
	}
	for _, row := range revenue {
		switch row.Currency {
		case enums.CurrencyDonate:
			stats.DonateRevenue = row.Total
		default:
			stats.GameRevenue = row.Total
		}
	}

	err = r.db.WithContext(ctx).
		Model(&models.Purchase{}).
		Select("product_id, product_name, COUNT(*) AS purchases, COALESCE(SUM(amount_paid), 0) AS revenue").
		Group("product_id, product_name").
		Order("purchases DESC").
		Limit(5).
		Scan(&stats.TopProducts).Error
	if err != nil {
		return nil, err
	}
	return stats, nil
}

func (r *repository) CreateProduct(ctx context.Context, product *models.Product) error {
	return r.db.WithContext(ctx).Create(product).Error
}

func (r *repository) SaveProduct(ctx context.Context, product *models.Product) error {
	return r.db.WithContext(ctx).Save(product).Error
}

func (r *repository) DeactivateProduct(ctx context.Context, id int64) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("id = ?", id).
		Update("is_active", false)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
