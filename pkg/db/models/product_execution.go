package models

import (
	"time"

	"github.com/forgecraft/craftvault-backend/pkg/enums"
	"github.com/forgecraft/craftvault-backend/pkg/types"
	"github.com/google/uuid"
)

// ProductExecution is the fulfillment record for one purchase. Created in
// pending before any command runs, so a crash mid-dispatch leaves a row the
// sweeper can pick up.
type ProductExecution struct {
	ID         uuid.UUID             `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	PurchaseID uuid.UUID             `gorm:"column:purchase_id;type:uuid;not null;index"`
	PlayerID   int64                 `gorm:"column:player_id;not null;index"`
	ProductID  int64                 `gorm:"column:product_id;not null"`
	Kind       enums.ProductKind     `gorm:"column:kind;type:text;not null"`
	Status     enums.ExecutionStatus `gorm:"column:status;type:text;not null;default:pending;index"`
	Results    types.CommandResults  `gorm:"column:results;type:jsonb;serializer:json"`
	RetryCount int                   `gorm:"column:retry_count;not null;default:0"`
	MaxRetries int                   `gorm:"column:max_retries;not null;default:3"`
	LastError  *string               `gorm:"column:last_error"`
	CreatedAt  time.Time             `gorm:"column:created_at;autoCreateTime"`
	ExecutedAt *time.Time            `gorm:"column:executed_at"`
}

// Retryable reports whether the sweeper may attempt this record again.
func (e ProductExecution) Retryable() bool {
	return e.Status == enums.ExecutionPending && e.RetryCount < e.MaxRetries
}
