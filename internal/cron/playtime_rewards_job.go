package cron

import (
	"context"
	"fmt"

	"github.com/forgecraft/craftvault-backend/internal/notify"
	"github.com/forgecraft/craftvault-backend/internal/playtime"
	"github.com/forgecraft/craftvault-backend/pkg/logger"
)

// PlaytimeRewardsJobParams configure the playtime payout job.
type PlaytimeRewardsJobParams struct {
	Logger   *logger.Logger
	Playtime playtimeRewarder
	Reporter notify.Reporter
}

type playtimeRewarder interface {
	AccrueRewards(ctx context.Context) (*playtime.RewardRunStats, error)
}

// NewPlaytimeRewardsJob builds the cron job that converts session minutes
// into game coins.
func NewPlaytimeRewardsJob(params PlaytimeRewardsJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Playtime == nil {
		return nil, fmt.Errorf("playtime service required")
	}
	if params.Reporter == nil {
		return nil, fmt.Errorf("reporter required")
	}
	return &playtimeRewardsJob{
		logg:     params.Logger,
		playtime: params.Playtime,
		reporter: params.Reporter,
	}, nil
}

type playtimeRewardsJob struct {
	logg     *logger.Logger
	playtime playtimeRewarder
	reporter notify.Reporter
}

func (j *playtimeRewardsJob) Name() string { return "playtime-rewards" }

func (j *playtimeRewardsJob) Run(ctx context.Context) error {
	stats, err := j.playtime.AccrueRewards(ctx)
	if err != nil {
		return fmt.Errorf("accrue playtime rewards: %w", err)
	}
	// Payouts are committed at this point. A lost report is not a reason
	// to rerun the job.
	if err := j.reporter.ReportPlaytimeRewards(ctx, *stats); err != nil {
		j.logg.Error(ctx, "playtime reward report failed", err)
	}
	return nil
}
