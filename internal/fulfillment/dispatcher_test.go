package fulfillment

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/forgecraft/craftvault-backend/internal/rcon"
	"github.com/forgecraft/craftvault-backend/pkg/config"
	"github.com/forgecraft/craftvault-backend/pkg/db/models"
	"github.com/forgecraft/craftvault-backend/pkg/enums"
	"github.com/forgecraft/craftvault-backend/pkg/logger"
	"github.com/forgecraft/craftvault-backend/pkg/types"
)

type stubExecRepo struct {
	created      []*models.ProductExecution
	manualMarked []uuid.UUID
	successID    uuid.UUID
	successData  types.CommandResults
	failureID    uuid.UUID
	failureData  types.CommandResults
	failureErr   string
	createErr    error
}

func (s *stubExecRepo) WithTx(tx *gorm.DB) Repository { return s }

func (s *stubExecRepo) Create(ctx context.Context, execution *models.ProductExecution) error {
	if s.createErr != nil {
		return s.createErr
	}
	if execution.ID == uuid.Nil {
		execution.ID = uuid.New()
	}
	s.created = append(s.created, execution)
	return nil
}

func (s *stubExecRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.ProductExecution, error) {
	return nil, gorm.ErrRecordNotFound
}

func (s *stubExecRepo) ListByPurchase(ctx context.Context, purchaseID uuid.UUID) ([]models.ProductExecution, error) {
	return nil, nil
}

func (s *stubExecRepo) ListManualRequired(ctx context.Context, limit int) ([]models.ProductExecution, error) {
	return nil, nil
}

func (s *stubExecRepo) SweepBatch(ctx context.Context, limit int) ([]models.ProductExecution, error) {
	return nil, nil
}

func (s *stubExecRepo) MarkManualRequired(ctx context.Context, id uuid.UUID) error {
	s.manualMarked = append(s.manualMarked, id)
	return nil
}

func (s *stubExecRepo) RecordSuccess(ctx context.Context, id uuid.UUID, results types.CommandResults, executedAt time.Time) error {
	s.successID = id
	s.successData = results
	return nil
}

func (s *stubExecRepo) RecordFailure(ctx context.Context, id uuid.UUID, results types.CommandResults, lastError string) error {
	s.failureID = id
	s.failureData = results
	s.failureErr = lastError
	return nil
}

type fakeExecutor struct {
	failing  map[string]error
	executed []string
	servers  []string
}

func (f *fakeExecutor) Execute(ctx context.Context, serverID, command string) (rcon.Result, error) {
	f.executed = append(f.executed, command)
	f.servers = append(f.servers, serverID)
	if err, ok := f.failing[command]; ok {
		return rcon.Result{}, err
	}
	return rcon.Result{ServerID: serverID, Command: command, Output: "ok"}, nil
}

func (f *fakeExecutor) ListOnlinePlayers(ctx context.Context, serverID string) ([]rcon.OnlinePlayer, error) {
	return nil, nil
}

func (f *fakeExecutor) Status() map[string]bool { return nil }

func (f *fakeExecutor) Close() error { return nil }

type sleepRecorder struct {
	delays []time.Duration
}

func (s *sleepRecorder) sleep(ctx context.Context, d time.Duration) error {
	s.delays = append(s.delays, d)
	return ctx.Err()
}

func dispatchNow() time.Time {
	return time.Date(2026, 4, 1, 9, 30, 0, 0, time.UTC)
}

func newTestDispatcher(t *testing.T, repo Repository, exec rcon.Executor, sleeper *sleepRecorder) Dispatcher {
	t.Helper()
	d, err := NewDispatcher(Params{
		Repo:     repo,
		Executor: exec,
		Config:   config.FulfillmentConfig{CommandDelay: 300 * time.Millisecond, DefaultMaxRetries: 3},
		Logger:   logger.New(logger.Options{ServiceName: "test", Level: zerolog.Disabled, Output: io.Discard}),
		Now:      dispatchNow,
		Sleep:    sleeper.sleep,
	})
	if err != nil {
		t.Fatalf("NewDispatcher failed: %v", err)
	}
	return d
}

func whitelistProduct() models.Product {
	return models.Product{
		ID:              11,
		Name:            "Whitelist Slot",
		Kind:            enums.KindWhitelist,
		AutoExecute:     true,
		ExecutionConfig: &types.ExecutionConfig{ServerID: "survival"},
	}
}

func testPurchase() models.Purchase {
	return models.Purchase{
		ID:            uuid.New(),
		PlayerID:      42,
		MinecraftNick: "Steve",
		ProductID:     11,
		Quantity:      1,
		Currency:      enums.CurrencyGame,
	}
}

func TestDispatchManualApprovalShortCircuits(t *testing.T) {
	repo := &stubExecRepo{}
	exec := &fakeExecutor{}
	product := whitelistProduct()
	product.RequiresManualApproval = true

	execution, err := newTestDispatcher(t, repo, exec, &sleepRecorder{}).
		Dispatch(context.Background(), testPurchase(), product)
	if err != nil {
		t.Fatalf("dispatch failed: %v", err)
	}
	if execution.Status != enums.ExecutionManualRequired {
		t.Fatalf("expected manual_required, got %s", execution.Status)
	}
	if len(exec.executed) != 0 {
		t.Fatalf("no commands should run before approval, got %v", exec.executed)
	}
	if len(repo.manualMarked) != 1 || repo.manualMarked[0] != execution.ID {
		t.Fatalf("expected record %s marked manual, got %v", execution.ID, repo.manualMarked)
	}
}

func TestDispatchAutoExecuteDisabledShortCircuits(t *testing.T) {
	repo := &stubExecRepo{}
	exec := &fakeExecutor{}
	product := whitelistProduct()
	product.AutoExecute = false

	execution, err := newTestDispatcher(t, repo, exec, &sleepRecorder{}).
		Dispatch(context.Background(), testPurchase(), product)
	if err != nil {
		t.Fatalf("dispatch failed: %v", err)
	}
	if execution.Status != enums.ExecutionManualRequired {
		t.Fatalf("expected manual_required, got %s", execution.Status)
	}
	if len(exec.executed) != 0 {
		t.Fatalf("no commands should run, got %v", exec.executed)
	}
}

func TestDispatchWhitelistSuccess(t *testing.T) {
	repo := &stubExecRepo{}
	exec := &fakeExecutor{}

	execution, err := newTestDispatcher(t, repo, exec, &sleepRecorder{}).
		Dispatch(context.Background(), testPurchase(), whitelistProduct())
	if err != nil {
		t.Fatalf("dispatch failed: %v", err)
	}
	if execution.Status != enums.ExecutionSuccess {
		t.Fatalf("expected success, got %s", execution.Status)
	}
	if len(exec.executed) != 1 || exec.executed[0] != "whitelist add Steve" {
		t.Fatalf("unexpected commands %v", exec.executed)
	}
	if exec.servers[0] != "survival" {
		t.Fatalf("expected survival server, got %s", exec.servers[0])
	}
	if repo.successID != execution.ID || !repo.successData.AllOK() {
		t.Fatalf("expected success persisted for %s", execution.ID)
	}
	if execution.ExecutedAt == nil || !execution.ExecutedAt.Equal(dispatchNow()) {
		t.Fatalf("expected executed_at %v, got %v", dispatchNow(), execution.ExecutedAt)
	}
}

func TestDispatchRecordsCreatedBeforeExecution(t *testing.T) {
	repo := &stubExecRepo{}
	exec := &fakeExecutor{failing: map[string]error{
		"whitelist add Steve": errors.New("dial tcp: connection refused"),
	}}

	execution, err := newTestDispatcher(t, repo, exec, &sleepRecorder{}).
		Dispatch(context.Background(), testPurchase(), whitelistProduct())
	if err != nil {
		t.Fatalf("dispatch failed: %v", err)
	}
	if len(repo.created) != 1 {
		t.Fatalf("expected one created record, got %d", len(repo.created))
	}
	if execution.Status != enums.ExecutionPending {
		t.Fatalf("first failure should leave record pending, got %s", execution.Status)
	}
	if execution.RetryCount != 1 {
		t.Fatalf("expected retry count 1, got %d", execution.RetryCount)
	}
	if repo.failureErr != "dial tcp: connection refused" {
		t.Fatalf("unexpected last error %q", repo.failureErr)
	}
}

func TestRunAttemptsEveryCommand(t *testing.T) {
	repo := &stubExecRepo{}
	exec := &fakeExecutor{failing: map[string]error{
		"give Steve minecraft:diamond 16": errors.New("server unavailable"),
	}}
	sleeper := &sleepRecorder{}

	product := models.Product{
		ID:          12,
		Kind:        enums.KindItem,
		AutoExecute: true,
		ItemsData: types.ItemsData{
			{MinecraftID: "minecraft:diamond", Amount: 16},
			{MinecraftID: "minecraft:bread", Amount: 8},
		},
		ExecutionConfig: &types.ExecutionConfig{ServerID: "survival"},
	}
	execution := models.ProductExecution{
		ID:         uuid.New(),
		PurchaseID: uuid.New(),
		PlayerID:   42,
		ProductID:  12,
		Kind:       enums.KindItem,
		Status:     enums.ExecutionPending,
		MaxRetries: 3,
	}

	updated, err := newTestDispatcher(t, repo, exec, sleeper).
		Run(context.Background(), execution, testPurchase(), product)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if len(exec.executed) != 2 {
		t.Fatalf("expected both commands attempted, got %v", exec.executed)
	}
	if len(sleeper.delays) != 1 || sleeper.delays[0] != 300*time.Millisecond {
		t.Fatalf("expected one 300ms pause, got %v", sleeper.delays)
	}
	if updated.Status != enums.ExecutionPending || updated.RetryCount != 1 {
		t.Fatalf("expected pending retry 1, got %s retry %d", updated.Status, updated.RetryCount)
	}
	if len(repo.failureData) != 2 || repo.failureData[0].OK || !repo.failureData[1].OK {
		t.Fatalf("expected partial results persisted, got %+v", repo.failureData)
	}
}

func TestRunExhaustsRetryBudget(t *testing.T) {
	repo := &stubExecRepo{}
	exec := &fakeExecutor{failing: map[string]error{
		"whitelist add Steve": errors.New("auth failed"),
	}}

	execution := models.ProductExecution{
		ID:         uuid.New(),
		PlayerID:   42,
		Kind:       enums.KindWhitelist,
		Status:     enums.ExecutionPending,
		RetryCount: 2,
		MaxRetries: 3,
	}

	updated, err := newTestDispatcher(t, repo, exec, &sleepRecorder{}).
		Run(context.Background(), execution, testPurchase(), whitelistProduct())
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if updated.Status != enums.ExecutionFailed {
		t.Fatalf("expected failed after budget, got %s", updated.Status)
	}
	if updated.RetryCount != 3 {
		t.Fatalf("expected retry count 3, got %d", updated.RetryCount)
	}
	if updated.LastError == nil || *updated.LastError != "auth failed" {
		t.Fatalf("expected last error recorded, got %v", updated.LastError)
	}
}

func TestRunMissingServerDefersToManual(t *testing.T) {
	repo := &stubExecRepo{}
	exec := &fakeExecutor{}

	product := whitelistProduct()
	product.ExecutionConfig = nil
	execution := models.ProductExecution{
		ID:         uuid.New(),
		PlayerID:   42,
		Kind:       enums.KindWhitelist,
		Status:     enums.ExecutionPending,
		MaxRetries: 3,
	}

	updated, err := newTestDispatcher(t, repo, exec, &sleepRecorder{}).
		Run(context.Background(), execution, testPurchase(), product)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if updated.Status != enums.ExecutionManualRequired {
		t.Fatalf("expected manual_required, got %s", updated.Status)
	}
	if len(exec.executed) != 0 {
		t.Fatalf("no commands should run, got %v", exec.executed)
	}
}

func TestRunBadNickDefersToManual(t *testing.T) {
	repo := &stubExecRepo{}
	exec := &fakeExecutor{}

	purchase := testPurchase()
	purchase.MinecraftNick = "Steve; op Steve"
	execution := models.ProductExecution{
		ID:         uuid.New(),
		PlayerID:   42,
		Kind:       enums.KindWhitelist,
		Status:     enums.ExecutionPending,
		MaxRetries: 3,
	}

	updated, err := newTestDispatcher(t, repo, exec, &sleepRecorder{}).
		Run(context.Background(), execution, purchase, whitelistProduct())
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if updated.Status != enums.ExecutionManualRequired {
		t.Fatalf("expected manual_required, got %s", updated.Status)
	}
	if len(exec.executed) != 0 {
		t.Fatalf("unsafe nick must never reach the server, got %v", exec.executed)
	}
}
