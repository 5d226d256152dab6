package promocodes

import (
	"context"

	"gorm.io/gorm"

	"github.com/forgecraft/craftvault-backend/pkg/db/models"
)

// Repository defines persistence operations for promo code administration.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, promo *models.Promocode) error
	FindByID(ctx context.Context, id int64) (*models.Promocode, error)
	FindByCode(ctx context.Context, code string) (*models.Promocode, error)
	List(ctx context.Context, activeOnly bool, limit, offset int) ([]models.Promocode, error)
	// Deactivate returns false when no row matched.
	Deactivate(ctx context.Context, id int64) (bool, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a promocodes repository.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, promo *models.Promocode) error {
	return r.db.WithContext(ctx).Create(promo).Error
}

func (r *repository) FindByID(ctx context.Context, id int64) (*models.Promocode, error) {
	var promo models.Promocode
	if err := r.db.WithContext(ctx).First(&promo, id).Error; err != nil {
		return nil, err
	}
	return &promo, nil
}

func (r *repository) FindByCode(ctx context.Context, code string) (*models.Promocode, error) {
	var promo models.Promocode
	err := r.db.WithContext(ctx).Where("code = ?", code).First(&promo).Error
	if err != nil {
		return nil, err
	}
	return &promo, nil
}

func (r *repository) List(ctx context.Context, activeOnly bool, limit, offset int) ([]models.Promocode, error) {
	query := r.db.WithContext(ctx).Model(&models.Promocode{})
	if activeOnly {
		query = query.Where("is_active = ?", true)
	}
	var promos []models.Promocode
	err := query.
		Order("created_at DESC, id DESC").
		Limit(limit).
		Offset(offset).
		Find(&promos).Error
	if err != nil {
		return nil, err
	}
	return promos, nil
}

func (r *repository) Deactivate(ctx context.Context, id int64) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Promocode{}).
		Where("id = ?", id).
		Update("is_active", false)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}
