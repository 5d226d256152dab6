package cron

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/forgecraft/craftvault-backend/pkg/db/models"
	"github.com/forgecraft/craftvault-backend/pkg/enums"
	"github.com/forgecraft/craftvault-backend/pkg/logger"
)

func TestSweeperJobRetriesPendingExecutions(t *testing.T) {
	purchaseID := uuid.New()
	execution := models.ProductExecution{ID: uuid.New(), PurchaseID: purchaseID, ProductID: 7}

	repo := &fakeSweepRepo{batch: []models.ProductExecution{execution}}
	resolver := &fakePurchaseResolver{
		purchases: map[uuid.UUID]*models.Purchase{purchaseID: {ID: purchaseID, ProductID: 7}},
		products:  map[int64]*models.Product{7: {ID: 7, Name: "VIP"}},
	}
	dispatcher := &fakeJobDispatcher{status: enums.ExecutionSuccess}
	job := newSweeperJob(t, repo, resolver, dispatcher)

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(dispatcher.ran) != 1 {
		t.Fatalf("expected one dispatch, got %d", len(dispatcher.ran))
	}
	if dispatcher.ran[0] != execution.ID {
		t.Fatalf("dispatched wrong execution: %s", dispatcher.ran[0])
	}
	if len(repo.manualMarked) != 0 {
		t.Fatalf("nothing should be deferred, got %v", repo.manualMarked)
	}
}

func TestSweeperJobDefersOrphanedExecutions(t *testing.T) {
	orphan := models.ProductExecution{ID: uuid.New(), PurchaseID: uuid.New(), ProductID: 7}

	repo := &fakeSweepRepo{batch: []models.ProductExecution{orphan}}
	resolver := &fakePurchaseResolver{}
	dispatcher := &fakeJobDispatcher{}
	job := newSweeperJob(t, repo, resolver, dispatcher)

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(dispatcher.ran) != 0 {
		t.Fatal("orphaned execution must not reach the dispatcher")
	}
	if len(repo.manualMarked) != 1 || repo.manualMarked[0] != orphan.ID {
		t.Fatalf("expected orphan marked manual, got %v", repo.manualMarked)
	}
}

func TestSweeperJobDefersWhenProductGone(t *testing.T) {
	purchaseID := uuid.New()
	execution := models.ProductExecution{ID: uuid.New(), PurchaseID: purchaseID, ProductID: 99}

	repo := &fakeSweepRepo{batch: []models.ProductExecution{execution}}
	resolver := &fakePurchaseResolver{
		purchases: map[uuid.UUID]*models.Purchase{purchaseID: {ID: purchaseID, ProductID: 99}},
	}
	dispatcher := &fakeJobDispatcher{}
	job := newSweeperJob(t, repo, resolver, dispatcher)

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(repo.manualMarked) != 1 {
		t.Fatalf("expected deferral, got %v", repo.manualMarked)
	}
}

func TestSweeperJobKeepsGoingAfterDispatchError(t *testing.T) {
	purchaseA, purchaseB := uuid.New(), uuid.New()
	failing := models.ProductExecution{ID: uuid.New(), PurchaseID: purchaseA, ProductID: 1}
	healthy := models.ProductExecution{ID: uuid.New(), PurchaseID: purchaseB, ProductID: 1}

	repo := &fakeSweepRepo{batch: []models.ProductExecution{failing, healthy}}
	resolver := &fakePurchaseResolver{
		purchases: map[uuid.UUID]*models.Purchase{
			purchaseA: {ID: purchaseA, ProductID: 1},
			purchaseB: {ID: purchaseB, ProductID: 1},
		},
		products: map[int64]*models.Product{1: {ID: 1}},
	}
	dispatcher := &fakeJobDispatcher{status: enums.ExecutionSuccess, failFor: failing.ID}
	job := newSweeperJob(t, repo, resolver, dispatcher)

	if err := job.Run(context.Background()); err == nil {
		t.Fatal("expected aggregated error")
	}
	if len(dispatcher.ran) != 2 {
		t.Fatalf("expected both executions attempted, got %d", len(dispatcher.ran))
	}
}

func TestSweeperJobPropagatesBatchError(t *testing.T) {
	repo := &fakeSweepRepo{batchErr: errors.New("db down")}
	job := newSweeperJob(t, repo, &fakePurchaseResolver{}, &fakeJobDispatcher{})

	if err := job.Run(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}

func newSweeperJob(t *testing.T, repo *fakeSweepRepo, resolver *fakePurchaseResolver, dispatcher *fakeJobDispatcher) Job {
	t.Helper()
	job, err := NewSweeperJob(SweeperJobParams{
		Logger:     testJobLogger(),
		Executions: repo,
		Purchases:  resolver,
		Dispatcher: dispatcher,
	})
	if err != nil {
		t.Fatalf("NewSweeperJob: %v", err)
	}
	return job
}

func testJobLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Level: zerolog.Disabled, Output: io.Discard})
}

type fakeSweepRepo struct {
	batch        []models.ProductExecution
	batchErr     error
	manualMarked []uuid.UUID
}

func (f *fakeSweepRepo) SweepBatch(ctx context.Context, limit int) ([]models.ProductExecution, error) {
	if f.batchErr != nil {
		return nil, f.batchErr
	}
	if len(f.batch) > limit {
		return f.batch[:limit], nil
	}
	return f.batch, nil
}

func (f *fakeSweepRepo) MarkManualRequired(ctx context.Context, id uuid.UUID) error {
	f.manualMarked = append(f.manualMarked, id)
	return nil
}

type fakePurchaseResolver struct {
	purchases map[uuid.UUID]*models.Purchase
	products  map[int64]*models.Product
}

func (f *fakePurchaseResolver) FindPurchase(ctx context.Context, id uuid.UUID) (*models.Purchase, error) {
	purchase, ok := f.purchases[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return purchase, nil
}

func (f *fakePurchaseResolver) FindProduct(ctx context.Context, id int64) (*models.Product, error) {
	product, ok := f.products[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return product, nil
}

type fakeJobDispatcher struct {
	status  enums.ExecutionStatus
	failFor uuid.UUID
	ran     []uuid.UUID
}

func (f *fakeJobDispatcher) Dispatch(ctx context.Context, purchase models.Purchase, product models.Product) (*models.ProductExecution, error) {
	panic("sweeper must reuse existing executions")
}

func (f *fakeJobDispatcher) Run(ctx context.Context, execution models.ProductExecution, purchase models.Purchase, product models.Product) (*models.ProductExecution, error) {
	f.ran = append(f.ran, execution.ID)
	if execution.ID == f.failFor {
		return nil, errors.New("rcon unreachable")
	}
	updated := execution
	updated.Status = f.status
	return &updated, nil
}
