package pricing

import (
	"context"

	"github.com/forgecraft/craftvault-backend/pkg/db/models"
	"gorm.io/gorm"
)

// Repository exposes promocode persistence for pricing resolution.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindByCode(ctx context.Context, code string) (*models.Promocode, error)
	// ConsumeUse decrements uses_left when the code is limited. Returns
	// false when the code ran out between lookup and consumption.
	ConsumeUse(ctx context.Context, promo *models.Promocode) (bool, error)
}

type repositoryImpl struct {
	db *gorm.DB
}

// NewRepository returns a pricing repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{db: db}
}

func (r *repositoryImpl) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repositoryImpl{db: tx}
}

func (r *repositoryImpl) FindByCode(ctx context.Context, code string) (*models.Promocode, error) {
	var promo models.Promocode
	err := r.db.WithContext(ctx).Where("code = ?", code).First(&promo).Error
	if err != nil {
		return nil, err
	}
	return &promo, nil
}

func (r *repositoryImpl) ConsumeUse(ctx context.Context, promo *models.Promocode) (bool, error) {
	if promo.UsesLeft == nil {
		return true, nil
	}
	result := r.db.WithContext(ctx).
		Model(&models.Promocode{}).
		Where("id = ? AND uses_left > 0", promo.ID).
		UpdateColumn("uses_left", gorm.Expr("uses_left - 1"))
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}
