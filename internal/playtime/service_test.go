package playtime

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/forgecraft/craftvault-backend/pkg/db/models"
	"github.com/forgecraft/craftvault-backend/pkg/logger"
)

type stubPlaytimeRepo struct {
	totals  []PlayerMinutes
	cursors map[int64]models.PlaytimeReward

	credits  map[int64]int64
	advanced map[int64]int64
}

func (s *stubPlaytimeRepo) WithTx(tx *gorm.DB) Repository { return s }

func (s *stubPlaytimeRepo) SessionTotals(ctx context.Context) ([]PlayerMinutes, error) {
	return s.totals, nil
}

func (s *stubPlaytimeRepo) RewardCursors(ctx context.Context) (map[int64]models.PlaytimeReward, error) {
	if s.cursors == nil {
		return map[int64]models.PlaytimeReward{}, nil
	}
	return s.cursors, nil
}

func (s *stubPlaytimeRepo) AdvanceCursor(ctx context.Context, playerID, totalMinutes, coinsDelta int64, awardedAt time.Time) error {
	if s.advanced == nil {
		s.advanced = map[int64]int64{}
	}
	s.advanced[playerID] = totalMinutes
	return nil
}

func (s *stubPlaytimeRepo) CreditGameBalance(ctx context.Context, playerID, amount int64) error {
	if s.credits == nil {
		s.credits = map[int64]int64{}
	}
	s.credits[playerID] += amount
	return nil
}

func (s *stubPlaytimeRepo) TopByMinutes(ctx context.Context, limit int) ([]PlayerPlaytime, error) {
	return nil, nil
}

func (s *stubPlaytimeRepo) PlayerStats(ctx context.Context, playerID int64) (*PlayerPlaytime, error) {
	return nil, gorm.ErrRecordNotFound
}

type passthroughTx struct{}

func (passthroughTx) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

func newPlaytimeService(t *testing.T, repo Repository) Service {
	t.Helper()
	svc, err := NewService(Params{
		Repo:   repo,
		Tx:     passthroughTx{},
		Logger: logger.New(logger.Options{ServiceName: "test", Level: zerolog.Disabled, Output: io.Discard}),
		Now:    func() time.Time { return time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC) },
	})
	if err != nil {
		t.Fatalf("NewService failed: %v", err)
	}
	return svc
}

func TestAccrueRewardsPaysOnlyTheDelta(t *testing.T) {
	repo := &stubPlaytimeRepo{
		totals: []PlayerMinutes{
			{PlayerID: 1, Minutes: 120},
			{PlayerID: 2, Minutes: 50},
		},
		cursors: map[int64]models.PlaytimeReward{
			1: {PlayerID: 1, TotalActiveMinutes: 100, CoinsAwarded: 100},
			2: {PlayerID: 2, TotalActiveMinutes: 50, CoinsAwarded: 50},
		},
	}

	stats, err := newPlaytimeService(t, repo).AccrueRewards(context.Background())
	if err != nil {
		t.Fatalf("accrue failed: %v", err)
	}
	if stats.PlayersRewarded != 1 || stats.CoinsAwarded != 20 || stats.MinutesCredited != 20 {
		t.Fatalf("unexpected stats %+v", stats)
	}
	if repo.credits[1] != 20 {
		t.Fatalf("expected 20 coins for player 1, got %d", repo.credits[1])
	}
	if _, touched := repo.credits[2]; touched {
		t.Fatalf("player 2 had no new minutes and must not be credited")
	}
	if repo.advanced[1] != 120 {
		t.Fatalf("cursor for player 1 must advance to 120, got %d", repo.advanced[1])
	}
}

func TestAccrueRewardsFirstRunPaysEverything(t *testing.T) {
	repo := &stubPlaytimeRepo{
		totals: []PlayerMinutes{{PlayerID: 7, Minutes: 45}},
	}

	stats, err := newPlaytimeService(t, repo).AccrueRewards(context.Background())
	if err != nil {
		t.Fatalf("accrue failed: %v", err)
	}
	if stats.CoinsAwarded != 45 || repo.credits[7] != 45 {
		t.Fatalf("expected full 45 coin payout, got stats %+v credits %v", stats, repo.credits)
	}
}

func TestAccrueRewardsIdempotentWhenNothingNew(t *testing.T) {
	repo := &stubPlaytimeRepo{
		totals: []PlayerMinutes{{PlayerID: 1, Minutes: 100}},
		cursors: map[int64]models.PlaytimeReward{
			1: {PlayerID: 1, TotalActiveMinutes: 100},
		},
	}

	stats, err := newPlaytimeService(t, repo).AccrueRewards(context.Background())
	if err != nil {
		t.Fatalf("accrue failed: %v", err)
	}
	if stats.PlayersRewarded != 0 || len(repo.credits) != 0 {
		t.Fatalf("second run over the same minutes must be a no-op, got %+v", stats)
	}
}

func TestStatsUnknownPlayerReturnsZeroes(t *testing.T) {
	svc := newPlaytimeService(t, &stubPlaytimeRepo{})

	stats, err := svc.Stats(context.Background(), 404)
	if err != nil {
		t.Fatalf("stats failed: %v", err)
	}
	if stats.PlayerID != 404 || stats.TotalMinutes != 0 {
		t.Fatalf("expected zeroed stats, got %+v", stats)
	}
}
