package transfers

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/forgecraft/craftvault-backend/pkg/config"
	"github.com/forgecraft/craftvault-backend/pkg/db/models"
	"github.com/forgecraft/craftvault-backend/pkg/enums"
	pkgerrors "github.com/forgecraft/craftvault-backend/pkg/errors"
	"github.com/forgecraft/craftvault-backend/pkg/logger"
	"github.com/forgecraft/craftvault-backend/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service moves game coins between players.
type Service interface {
	Send(ctx context.Context, input SendInput) (*SendResult, error)
	History(ctx context.Context, playerID int64, direction Direction, params pagination.Params) (*HistoryPage, error)
	Stats(ctx context.Context, playerID int64) (*Stats, error)
	Commission(amount int64) (*Quote, error)
}

type service struct {
	repo Repository
	tx   txRunner
	cfg  config.TransfersConfig
	logg *logger.Logger
}

// Params wires transfer service dependencies.
type Params struct {
	Repo   Repository
	Tx     txRunner
	Config config.TransfersConfig
	Logger *logger.Logger
}

// NewService builds the transfer service.
func NewService(p Params) (Service, error) {
	if p.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "transfers repository required")
	}
	if p.Tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "transaction runner required")
	}
	if p.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "logger required")
	}
	return &service{repo: p.Repo, tx: p.Tx, cfg: p.Config, logg: p.Logger}, nil
}

// Send settles one transfer. Debit, credit and the ledger row commit in a
// single transaction; the debit is guarded so the sender can never go
// negative under concurrent sends.
func (s *service) Send(ctx context.Context, input SendInput) (*SendResult, error) {
	ctx = s.logg.WithPlayerID(ctx, input.SenderID)

	if input.SenderID == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "player identity missing")
	}
	if strings.TrimSpace(input.RecipientNick) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "recipient nick required")
	}
	if input.Amount < s.minAmount() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation,
			fmt.Sprintf("minimum transfer amount is %d", s.minAmount()))
	}

	commission := s.commissionFor(input.Amount)
	totalDeducted := input.Amount + commission

	var result SendResult
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		sender, err := repo.FindPlayer(ctx, input.SenderID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "player not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load sender")
		}
		if strings.EqualFold(sender.MinecraftNick, input.RecipientNick) {
			return pkgerrors.New(pkgerrors.CodeValidation, "cannot transfer to yourself")
		}

		recipient, err := repo.FindPlayerByNick(ctx, input.RecipientNick)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return s.recipientNotFound(ctx, repo, input.RecipientNick)
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load recipient")
		}

		debited, err := repo.DebitGameBalance(ctx, sender.ID, totalDeducted)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "debit sender")
		}
		if !debited {
			return pkgerrors.New(pkgerrors.CodeInsufficientFunds, "insufficient funds").
				WithDetails(map[string]any{
					"amount":     input.Amount,
					"commission": commission,
					"required":   totalDeducted,
				})
		}
		if err := repo.CreditGameBalance(ctx, recipient.ID, input.Amount); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "credit recipient")
		}

		transfer := models.Transfer{
			SenderID:      sender.ID,
			SenderNick:    sender.MinecraftNick,
			RecipientID:   recipient.ID,
			RecipientNick: recipient.MinecraftNick,
			Amount:        input.Amount,
			Commission:    commission,
			TotalDeducted: totalDeducted,
			Message:       input.Message,
			Status:        enums.TransferCompleted,
		}
		if err := repo.CreateTransfer(ctx, &transfer); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "insert transfer")
		}

		result = SendResult{
			Transfer:   transfer,
			NewBalance: sender.GameBalance - totalDeducted,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (s *service) recipientNotFound(ctx context.Context, repo Repository, nick string) error {
	appErr := pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("player %q not found", nick))
	suggestion, err := repo.SuggestNick(ctx, nick)
	if err != nil {
		s.logg.Error(ctx, "nick suggestion lookup failed", err)
		return appErr
	}
	if suggestion != "" {
		return appErr.WithDetails(map[string]any{"suggestion": suggestion})
	}
	return appErr
}

func (s *service) History(ctx context.Context, playerID int64, direction Direction, params pagination.Params) (*HistoryPage, error) {
	if playerID == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "player identity missing")
	}
	if direction == "" {
		direction = DirectionAll
	}
	if !direction.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown direction %q", direction))
	}
	page, err := s.repo.ListTransfers(ctx, playerID, direction, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list transfers")
	}
	return page, nil
}

func (s *service) Stats(ctx context.Context, playerID int64) (*Stats, error) {
	if playerID == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "player identity missing")
	}
	stats, err := s.repo.Stats(ctx, playerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load transfer stats")
	}
	stats.CommissionPercent = s.commissionPercent()
	stats.MinAmount = s.minAmount()
	return stats, nil
}

func (s *service) Commission(amount int64) (*Quote, error) {
	if amount <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount must be positive")
	}
	commission := s.commissionFor(amount)
	return &Quote{
		Amount:            amount,
		Commission:        commission,
		TotalDeducted:     amount + commission,
		CommissionPercent: s.commissionPercent(),
		MinAmount:         s.minAmount(),
	}, nil
}

// commissionFor rounds up, favoring the house on fractional coins.
func (s *service) commissionFor(amount int64) int64 {
	percent := int64(s.commissionPercent())
	return (amount*percent + 99) / 100
}

func (s *service) commissionPercent() int {
	if s.cfg.CommissionPercent > 0 {
		return s.cfg.CommissionPercent
	}
	return 15
}

func (s *service) minAmount() int64 {
	if s.cfg.MinAmount > 0 {
		return int64(s.cfg.MinAmount)
	}
	return 10
}
