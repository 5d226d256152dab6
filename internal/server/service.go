package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/forgecraft/craftvault-backend/internal/fulfillment"
	"github.com/forgecraft/craftvault-backend/internal/rcon"
	"github.com/forgecraft/craftvault-backend/pkg/db/models"
	"github.com/forgecraft/craftvault-backend/pkg/enums"
	pkgerrors "github.com/forgecraft/craftvault-backend/pkg/errors"
	"github.com/forgecraft/craftvault-backend/pkg/logger"
)

const defaultPendingLimit = 50

var validGamemodes = map[string]struct{}{
	"survival":  {},
	"creative":  {},
	"adventure": {},
	"spectator": {},
}

// purchaseResolver loads the rows an approval re-run needs.
type purchaseResolver interface {
	FindPurchase(ctx context.Context, id uuid.UUID) (*models.Purchase, error)
	FindProduct(ctx context.Context, id int64) (*models.Product, error)
}

// executionStore is the slice of the fulfillment repository the admin
// queue reads from.
type executionStore interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.ProductExecution, error)
	ListManualRequired(ctx context.Context, limit int) ([]models.ProductExecution, error)
}

// Service covers live server commands and the manual fulfillment queue.
// Every mutating call writes an audit row keyed by the acting admin.
type Service interface {
	OnlinePlayers(ctx context.Context, serverID string) ([]rcon.OnlinePlayer, error)
	Broadcast(ctx context.Context, input BroadcastInput) (*rcon.Result, error)
	SetGamemode(ctx context.Context, input GamemodeInput) (*rcon.Result, error)
	PendingExecutions(ctx context.Context, limit int) ([]models.ProductExecution, error)
	ApproveExecution(ctx context.Context, adminID int64, id uuid.UUID) (*models.ProductExecution, error)
}

type service struct {
	repo       Repository
	executor   rcon.Executor
	executions executionStore
	purchases  purchaseResolver
	dispatcher fulfillment.Dispatcher
	logg       *logger.Logger
}

// Params wires server action dependencies.
type Params struct {
	Repo       Repository
	Executor   rcon.Executor
	Executions executionStore
	Purchases  purchaseResolver
	Dispatcher fulfillment.Dispatcher
	Logger     *logger.Logger
}

// NewService builds the server actions service.
func NewService(p Params) (Service, error) {
	if p.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "audit repository required")
	}
	if p.Executor == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "rcon executor required")
	}
	if p.Executions == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "execution store required")
	}
	if p.Purchases == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "purchase resolver required")
	}
	if p.Dispatcher == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "fulfillment dispatcher required")
	}
	if p.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "logger required")
	}
	return &service{
		repo:       p.Repo,
		executor:   p.Executor,
		executions: p.Executions,
		purchases:  p.Purchases,
		dispatcher: p.Dispatcher,
		logg:       p.Logger,
	}, nil
}

func (s *service) OnlinePlayers(ctx context.Context, serverID string) ([]rcon.OnlinePlayer, error) {
	serverID = strings.TrimSpace(serverID)
	if serverID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "server id required")
	}
	players, err := s.executor.ListOnlinePlayers(ctx, serverID)
	if err != nil {
		return nil, err
	}
	return players, nil
}

func (s *service) Broadcast(ctx context.Context, input BroadcastInput) (*rcon.Result, error) {
	if input.AdminID == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "admin identity missing")
	}
	message := strings.TrimSpace(input.Message)
	if message == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "message required")
	}
	if len(message) > 256 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "message too long")
	}
	// Newlines would smuggle a second command into the console.
	if strings.ContainsAny(message, "\r\n") {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "message must be a single line")
	}
	serverID := strings.TrimSpace(input.ServerID)
	if serverID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "server id required")
	}

	result, err := s.executor.Execute(ctx, serverID, "say "+message)
	if err != nil {
		return nil, err
	}

	s.audit(ctx, input.AdminID, enums.AdminActionBroadcast, &serverID, map[string]any{
		"message": message,
	})
	return &result, nil
}

func (s *service) SetGamemode(ctx context.Context, input GamemodeInput) (*rcon.Result, error) {
	if input.AdminID == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "admin identity missing")
	}
	if !fulfillment.ValidNick(input.Nick) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "minecraft nick is not command-safe")
	}
	mode := strings.ToLower(strings.TrimSpace(input.Mode))
	if _, ok := validGamemodes[mode]; !ok {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown gamemode %q", input.Mode))
	}
	serverID := strings.TrimSpace(input.ServerID)
	if serverID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "server id required")
	}

	result, err := s.executor.Execute(ctx, serverID, fmt.Sprintf("gamemode %s %s", mode, input.Nick))
	if err != nil {
		return nil, err
	}

	s.audit(ctx, input.AdminID, enums.AdminActionGamemode, &serverID, map[string]any{
		"nick": input.Nick,
		"mode": mode,
	})
	return &result, nil
}

func (s *service) PendingExecutions(ctx context.Context, limit int) ([]models.ProductExecution, error) {
	if limit <= 0 || limit > defaultPendingLimit {
		limit = defaultPendingLimit
	}
	executions, err := s.executions.ListManualRequired(ctx, limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list manual executions")
	}
	return executions, nil
}

// ApproveExecution reruns a manual_required record through the shared
// dispatch path. The outcome, success or another failure, lands on the same
// execution row.
func (s *service) ApproveExecution(ctx context.Context, adminID int64, id uuid.UUID) (*models.ProductExecution, error) {
	if adminID == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "admin identity missing")
	}
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "execution id required")
	}

	execution, err := s.executions.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "execution not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load execution")
	}
	if execution.Status != enums.ExecutionManualRequired {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict,
			fmt.Sprintf("execution is %s, only manual_required can be approved", execution.Status))
	}

	purchase, err := s.purchases.FindPurchase(ctx, execution.PurchaseID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "purchase not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load purchase")
	}
	product, err := s.purchases.FindProduct(ctx, execution.ProductID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}

	updated, err := s.dispatcher.Run(ctx, *execution, *purchase, *product)
	if err != nil {
		return nil, err
	}

	s.audit(ctx, adminID, enums.AdminActionApprove, nil, map[string]any{
		"execution_id": id.String(),
		"status":       string(updated.Status),
	})
	return updated, nil
}

// audit never fails the action it records. A lost row is logged and the
// admin's command result still stands.
func (s *service) audit(ctx context.Context, adminID int64, action enums.AdminActionType, serverID *string, payload map[string]any) {
	raw, err := json.Marshal(payload)
	if err != nil {
		s.logg.Error(ctx, "marshal audit payload", err)
		raw = nil
	}
	row := &models.AdminAction{
		AdminID:  adminID,
		Action:   action,
		ServerID: serverID,
		Payload:  raw,
	}
	if err := s.repo.CreateAction(ctx, row); err != nil {
		s.logg.Error(s.logg.WithField(ctx, "action", string(action)), "persist audit row", err)
	}
}
