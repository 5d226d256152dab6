package server

import (
	"context"

	"gorm.io/gorm"

	"github.com/forgecraft/craftvault-backend/pkg/db/models"
)

// Repository persists the audit trail for manual server actions.
type Repository interface {
	CreateAction(ctx context.Context, action *models.AdminAction) error
	ListActions(ctx context.Context, limit int) ([]models.AdminAction, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds an audit repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) CreateAction(ctx context.Context, action *models.AdminAction) error {
	return r.db.WithContext(ctx).Create(action).Error
}

func (r *repository) ListActions(ctx context.Context, limit int) ([]models.AdminAction, error) {
	if limit <= 0 {
		limit = 50
	}
	var actions []models.AdminAction
	err := r.db.WithContext(ctx).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&actions).Error
	if err != nil {
		return nil, err
	}
	return actions, nil
}
