package cron

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/forgecraft/craftvault-backend/internal/fulfillment"
	"github.com/forgecraft/craftvault-backend/pkg/db/models"
	"github.com/forgecraft/craftvault-backend/pkg/enums"
	"github.com/forgecraft/craftvault-backend/pkg/logger"
)

const defaultSweepBatchSize = 10

// SweeperJobParams configure the retry sweeper.
type SweeperJobParams struct {
	Logger     *logger.Logger
	Executions sweepRepository
	Purchases  purchaseResolver
	Dispatcher fulfillment.Dispatcher
	BatchSize  int
}

type sweepRepository interface {
	SweepBatch(ctx context.Context, limit int) ([]models.ProductExecution, error)
	MarkManualRequired(ctx context.Context, id uuid.UUID) error
}

type purchaseResolver interface {
	FindPurchase(ctx context.Context, id uuid.UUID) (*models.Purchase, error)
	FindProduct(ctx context.Context, id int64) (*models.Product, error)
}

// NewSweeperJob builds the cron job that retries pending executions.
func NewSweeperJob(params SweeperJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Executions == nil {
		return nil, fmt.Errorf("executions repository required")
	}
	if params.Purchases == nil {
		return nil, fmt.Errorf("purchase resolver required")
	}
	if params.Dispatcher == nil {
		return nil, fmt.Errorf("dispatcher required")
	}
	batchSize := params.BatchSize
	if batchSize <= 0 {
		batchSize = defaultSweepBatchSize
	}
	return &sweeperJob{
		logg:       params.Logger,
		executions: params.Executions,
		purchases:  params.Purchases,
		dispatcher: params.Dispatcher,
		batchSize:  batchSize,
	}, nil
}

type sweeperJob struct {
	logg       *logger.Logger
	executions sweepRepository
	purchases  purchaseResolver
	dispatcher fulfillment.Dispatcher
	batchSize  int
}

func (j *sweeperJob) Name() string { return "execution-sweeper" }

func (j *sweeperJob) Run(ctx context.Context) error {
	batch, err := j.executions.SweepBatch(ctx, j.batchSize)
	if err != nil {
		return fmt.Errorf("load sweep batch: %w", err)
	}

	var errs []error
	succeeded, retried, deferred := 0, 0, 0
	for _, execution := range batch {
		outcome, err := j.sweep(ctx, execution)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		switch outcome {
		case sweepSucceeded:
			succeeded++
		case sweepRetried:
			retried++
		case sweepDeferred:
			deferred++
		}
	}

	logCtx := j.logg.WithFields(ctx, map[string]any{
		"batch":     len(batch),
		"succeeded": succeeded,
		"retried":   retried,
		"deferred":  deferred,
	})
	j.logg.Info(logCtx, "execution sweep complete")
	return multierr.Combine(errs...)
}

type sweepOutcome int

const (
	sweepSucceeded sweepOutcome = iota
	sweepRetried
	sweepDeferred
)

func (j *sweeperJob) sweep(ctx context.Context, execution models.ProductExecution) (sweepOutcome, error) {
	purchase, err := j.purchases.FindPurchase(ctx, execution.PurchaseID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return j.deferToManual(ctx, execution, "purchase record missing")
	}
	if err != nil {
		return 0, fmt.Errorf("resolve purchase %s: %w", execution.PurchaseID, err)
	}

	product, err := j.purchases.FindProduct(ctx, execution.ProductID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return j.deferToManual(ctx, execution, "product record missing")
	}
	if err != nil {
		return 0, fmt.Errorf("resolve product %d: %w", execution.ProductID, err)
	}

	updated, err := j.dispatcher.Run(ctx, execution, *purchase, *product)
	if err != nil {
		return 0, fmt.Errorf("run execution %s: %w", execution.ID, err)
	}
	switch updated.Status {
	case enums.ExecutionSuccess:
		return sweepSucceeded, nil
	case enums.ExecutionManualRequired:
		return sweepDeferred, nil
	default:
		return sweepRetried, nil
	}
}

func (j *sweeperJob) deferToManual(ctx context.Context, execution models.ProductExecution, reason string) (sweepOutcome, error) {
	if err := j.executions.MarkManualRequired(ctx, execution.ID); err != nil {
		return 0, fmt.Errorf("mark manual %s: %w", execution.ID, err)
	}
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"execution_id": execution.ID,
		"reason":       reason,
	})
	j.logg.Warn(logCtx, "execution deferred to manual review")
	return sweepDeferred, nil
}
