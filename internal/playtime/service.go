package playtime

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	pkgerrors "github.com/forgecraft/craftvault-backend/pkg/errors"
	"github.com/forgecraft/craftvault-backend/pkg/logger"
)

// coinsPerMinute is the accrual rate of the playtime program.
const coinsPerMinute = 1

const defaultTopLimit = 10

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service exposes playtime statistics and the reward accrual run.
type Service interface {
	// AccrueRewards pays the delta between live session minutes and each
	// player's paid high-water mark, one coin per minute, in one transaction.
	AccrueRewards(ctx context.Context) (*RewardRunStats, error)
	Stats(ctx context.Context, playerID int64) (*PlayerPlaytime, error)
	Top(ctx context.Context, limit int) ([]PlayerPlaytime, error)
}

type service struct {
	repo Repository
	tx   txRunner
	logg *logger.Logger
	now  func() time.Time
}

// Params wires playtime service dependencies.
type Params struct {
	Repo   Repository
	Tx     txRunner
	Logger *logger.Logger
	Now    func() time.Time
}

// NewService builds the playtime service.
func NewService(p Params) (Service, error) {
	if p.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "playtime repository required")
	}
	if p.Tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "transaction runner required")
	}
	if p.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "logger required")
	}
	if p.Now == nil {
		p.Now = time.Now
	}
	return &service{repo: p.Repo, tx: p.Tx, logg: p.Logger, now: p.Now}, nil
}

func (s *service) AccrueRewards(ctx context.Context) (*RewardRunStats, error) {
	stats := &RewardRunStats{}
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		totals, err := repo.SessionTotals(ctx)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "sum session minutes")
		}
		cursors, err := repo.RewardCursors(ctx)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load reward cursors")
		}

		awardedAt := s.now().UTC()
		for _, total := range totals {
			paid := cursors[total.PlayerID].TotalActiveMinutes
			delta := total.Minutes - paid
			if delta <= 0 {
				continue
			}
			coins := delta * coinsPerMinute
			if err := repo.CreditGameBalance(ctx, total.PlayerID, coins); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "credit playtime reward")
			}
			if err := repo.AdvanceCursor(ctx, total.PlayerID, total.Minutes, coins, awardedAt); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "advance reward cursor")
			}
			stats.PlayersRewarded++
			stats.CoinsAwarded += coins
			stats.MinutesCredited += delta
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logCtx := s.logg.WithFields(ctx, map[string]any{
		"players_rewarded": stats.PlayersRewarded,
		"coins_awarded":    stats.CoinsAwarded,
	})
	s.logg.Info(logCtx, "playtime reward accrual complete")
	return stats, nil
}

func (s *service) Stats(ctx context.Context, playerID int64) (*PlayerPlaytime, error) {
	if playerID == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "player id required")
	}
	stats, err := s.repo.PlayerStats(ctx, playerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &PlayerPlaytime{PlayerID: playerID}, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load playtime stats")
	}
	return stats, nil
}

func (s *service) Top(ctx context.Context, limit int) ([]PlayerPlaytime, error) {
	if limit <= 0 {
		limit = defaultTopLimit
	}
	top, err := s.repo.TopByMinutes(ctx, limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load playtime top")
	}
	return top, nil
}
