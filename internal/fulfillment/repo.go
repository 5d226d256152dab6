package fulfillment

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/forgecraft/craftvault-backend/pkg/db/models"
	"github.com/forgecraft/craftvault-backend/pkg/enums"
	"github.com/forgecraft/craftvault-backend/pkg/types"
)

// Repository persists fulfillment execution records.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, execution *models.ProductExecution) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.ProductExecution, error)
	ListByPurchase(ctx context.Context, purchaseID uuid.UUID) ([]models.ProductExecution, error)
	ListManualRequired(ctx context.Context, limit int) ([]models.ProductExecution, error)
	// SweepBatch returns the oldest pending records still under their retry
	// budget, capped at limit.
	SweepBatch(ctx context.Context, limit int) ([]models.ProductExecution, error)
	MarkManualRequired(ctx context.Context, id uuid.UUID) error
	RecordSuccess(ctx context.Context, id uuid.UUID, results types.CommandResults, executedAt time.Time) error
	// RecordFailure bumps retry_count and flips status to failed once the
	// budget is exhausted; otherwise the record stays pending for the sweeper.
	RecordFailure(ctx context.Context, id uuid.UUID, results types.CommandResults, lastError string) error
}

type repositoryImpl struct {
	db *gorm.DB
}

// NewRepository returns a fulfillment repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{db: db}
}

func (r *repositoryImpl) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repositoryImpl{db: tx}
}

func (r *repositoryImpl) Create(ctx context.Context, execution *models.ProductExecution) error {
	return r.db.WithContext(ctx).Create(execution).Error
}

func (r *repositoryImpl) FindByID(ctx context.Context, id uuid.UUID) (*models.ProductExecution, error) {
	var execution models.ProductExecution
	if err := r.db.WithContext(ctx).First(&execution, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &execution, nil
}

func (r *repositoryImpl) ListByPurchase(ctx context.Context, purchaseID uuid.UUID) ([]models.ProductExecution, error) {
	var executions []models.ProductExecution
	err := r.db.WithContext(ctx).
		Where("purchase_id = ?", purchaseID).
		Order("created_at ASC").
		Find(&executions).Error
	return executions, err
}

func (r *repositoryImpl) ListManualRequired(ctx context.Context, limit int) ([]models.ProductExecution, error) {
	var executions []models.ProductExecution
	query := r.db.WithContext(ctx).
		Where("status = ?", enums.ExecutionManualRequired).
		Order("created_at ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	err := query.Find(&executions).Error
	return executions, err
}

func (r *repositoryImpl) SweepBatch(ctx context.Context, limit int) ([]models.ProductExecution, error) {
	var executions []models.ProductExecution
	err := r.db.WithContext(ctx).
		Where("status = ? AND retry_count < max_retries", enums.ExecutionPending).
		Order("created_at ASC").
		Limit(limit).
		Find(&executions).Error
	return executions, err
}

func (r *repositoryImpl) MarkManualRequired(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.ProductExecution{}).
		Where("id = ?", id).
		UpdateColumn("status", enums.ExecutionManualRequired).Error
}

func (r *repositoryImpl) RecordSuccess(ctx context.Context, id uuid.UUID, results types.CommandResults, executedAt time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.ProductExecution{}).
		Where("id = ?", id).
		Select("status", "results", "last_error", "executed_at").
		Updates(&models.ProductExecution{
			Status:     enums.ExecutionSuccess,
			Results:    results,
			ExecutedAt: &executedAt,
		}).Error
}

func (r *repositoryImpl) RecordFailure(ctx context.Context, id uuid.UUID, results types.CommandResults, lastError string) error {
	resultsJSON, err := json.Marshal(results)
	if err != nil {
		return err
	}
	return r.db.WithContext(ctx).
		Model(&models.ProductExecution{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"retry_count": gorm.Expr("retry_count + 1"),
			"status": gorm.Expr(
				"CASE WHEN retry_count + 1 >= max_retries THEN ? ELSE ? END",
				enums.ExecutionFailed, enums.ExecutionPending,
			),
			"results":    resultsJSON,
			"last_error": lastError,
		}).Error
}
