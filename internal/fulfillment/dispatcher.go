package fulfillment

import (
	"context"
	"fmt"
	"time"

	"github.com/forgecraft/craftvault-backend/internal/rcon"
	"github.com/forgecraft/craftvault-backend/pkg/config"
	"github.com/forgecraft/craftvault-backend/pkg/db/models"
	"github.com/forgecraft/craftvault-backend/pkg/enums"
	pkgerrors "github.com/forgecraft/craftvault-backend/pkg/errors"
	"github.com/forgecraft/craftvault-backend/pkg/logger"
	"github.com/forgecraft/craftvault-backend/pkg/types"
)

// Dispatcher drives fulfillment of paid purchases. Dispatch is the
// post-commit entry point; Run is the shared execution path also used by the
// retry sweeper and by admin approval of manual records.
type Dispatcher interface {
	Dispatch(ctx context.Context, purchase models.Purchase, product models.Product) (*models.ProductExecution, error)
	Run(ctx context.Context, execution models.ProductExecution, purchase models.Purchase, product models.Product) (*models.ProductExecution, error)
}

type dispatcher struct {
	repo     Repository
	executor rcon.Executor
	cfg      config.FulfillmentConfig
	logg     *logger.Logger
	now      func() time.Time
	sleep    func(ctx context.Context, d time.Duration) error
}

// Params wires dispatcher dependencies.
type Params struct {
	Repo     Repository
	Executor rcon.Executor
	Config   config.FulfillmentConfig
	Logger   *logger.Logger

	// Now and Sleep exist for tests; both default to real time.
	Now   func() time.Time
	Sleep func(ctx context.Context, d time.Duration) error
}

// NewDispatcher builds the fulfillment dispatcher.
func NewDispatcher(p Params) (Dispatcher, error) {
	if p.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "fulfillment repository required")
	}
	if p.Executor == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "rcon executor required")
	}
	if p.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "logger required")
	}
	if p.Now == nil {
		p.Now = time.Now
	}
	if p.Sleep == nil {
		p.Sleep = sleepContext
	}
	return &dispatcher{
		repo:     p.Repo,
		executor: p.Executor,
		cfg:      p.Config,
		logg:     p.Logger,
		now:      p.Now,
		sleep:    p.Sleep,
	}, nil
}

// Dispatch records a pending execution for the purchase and, when the
// product allows automatic delivery, runs its command batch. The pending row
// is created before any command goes out so a crash mid-batch leaves work
// the sweeper can find.
func (d *dispatcher) Dispatch(ctx context.Context, purchase models.Purchase, product models.Product) (*models.ProductExecution, error) {
	ctx = d.logg.WithPlayerID(ctx, purchase.PlayerID)

	execution := models.ProductExecution{
		PurchaseID: purchase.ID,
		PlayerID:   purchase.PlayerID,
		ProductID:  product.ID,
		Kind:       product.Kind,
		Status:     enums.ExecutionPending,
		MaxRetries: d.maxRetries(),
	}
	if err := d.repo.Create(ctx, &execution); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create execution record")
	}

	if !product.AutoExecute || product.RequiresManualApproval {
		return d.deferToManual(ctx, execution, "product requires manual handling")
	}
	return d.Run(ctx, execution, purchase, product)
}

// Run executes the command batch for an existing execution record and
// persists the outcome. Every command in the batch is attempted even after
// an earlier one fails, so partial deliveries are visible in the results.
func (d *dispatcher) Run(ctx context.Context, execution models.ProductExecution, purchase models.Purchase, product models.Product) (*models.ProductExecution, error) {
	ctx = d.logg.WithPlayerID(ctx, execution.PlayerID)

	commands, err := BuildCommands(buildInput{
		Product:  product,
		Nick:     purchase.MinecraftNick,
		Quantity: purchase.Quantity,
	})
	if err != nil {
		return d.deferToManual(ctx, execution, err.Error())
	}

	serverID := ""
	if product.ExecutionConfig != nil {
		serverID = product.ExecutionConfig.ServerID
	}
	if serverID == "" {
		return d.deferToManual(ctx, execution, "no target server configured")
	}
	ctx = d.logg.WithServerID(ctx, serverID)

	results := make(types.CommandResults, 0, len(commands))
	for i, command := range commands {
		if i > 0 {
			if sleepErr := d.sleep(ctx, d.cfg.CommandDelay); sleepErr != nil {
				return d.persistFailure(ctx, execution, results, sleepErr.Error())
			}
		}
		entry := types.CommandResult{Command: command, ExecutedAt: d.now().UTC()}
		res, execErr := d.executor.Execute(ctx, serverID, command)
		if execErr != nil {
			entry.Error = execErr.Error()
		} else {
			entry.Output = res.Output
			entry.OK = true
		}
		results = append(results, entry)
	}

	if !results.AllOK() {
		return d.persistFailure(ctx, execution, results, firstError(results))
	}

	executedAt := d.now().UTC()
	if err := d.repo.RecordSuccess(ctx, execution.ID, results, executedAt); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "record execution success")
	}
	execution.Status = enums.ExecutionSuccess
	execution.Results = results
	execution.LastError = nil
	execution.ExecutedAt = &executedAt
	d.logg.Info(ctx, fmt.Sprintf("fulfilled purchase %s with %d command(s)", execution.PurchaseID, len(results)))
	return &execution, nil
}

func (d *dispatcher) deferToManual(ctx context.Context, execution models.ProductExecution, reason string) (*models.ProductExecution, error) {
	if err := d.repo.MarkManualRequired(ctx, execution.ID); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mark execution manual_required")
	}
	execution.Status = enums.ExecutionManualRequired
	d.logg.Warn(ctx, fmt.Sprintf("fulfillment %s deferred to manual handling: %s", execution.ID, reason))
	return &execution, nil
}

func (d *dispatcher) persistFailure(ctx context.Context, execution models.ProductExecution, results types.CommandResults, lastError string) (*models.ProductExecution, error) {
	if err := d.repo.RecordFailure(ctx, execution.ID, results, lastError); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "record execution failure")
	}
	// Mirror the persisted transition so callers see the same state the
	// sweeper will.
	execution.RetryCount++
	execution.Results = results
	execution.LastError = &lastError
	if execution.RetryCount >= execution.MaxRetries {
		execution.Status = enums.ExecutionFailed
	} else {
		execution.Status = enums.ExecutionPending
	}
	d.logg.Warn(ctx, fmt.Sprintf("fulfillment %s attempt %d/%d failed: %s",
		execution.ID, execution.RetryCount, execution.MaxRetries, lastError))
	return &execution, nil
}

func (d *dispatcher) maxRetries() int {
	if d.cfg.DefaultMaxRetries > 0 {
		return d.cfg.DefaultMaxRetries
	}
	return 3
}

func firstError(results types.CommandResults) string {
	for _, res := range results {
		if !res.OK {
			if res.Error != "" {
				return res.Error
			}
			return "command failed: " + res.Command
		}
	}
	return "unknown execution error"
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
