package cron

import (
	"context"
	"fmt"

	"github.com/forgecraft/craftvault-backend/internal/notify"
	"github.com/forgecraft/craftvault-backend/internal/players"
	"github.com/forgecraft/craftvault-backend/pkg/logger"
)

// ChatRewardsJobParams configure the daily chat activity payout job.
type ChatRewardsJobParams struct {
	Logger   *logger.Logger
	Players  chatRewarder
	Reporter notify.Reporter
}

type chatRewarder interface {
	AccrueChatRewards(ctx context.Context) (*players.ChatRewardStats, error)
}

// NewChatRewardsJob builds the cron job that pays the most active chatters
// and resets the daily counters.
func NewChatRewardsJob(params ChatRewardsJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Players == nil {
		return nil, fmt.Errorf("players service required")
	}
	if params.Reporter == nil {
		return nil, fmt.Errorf("reporter required")
	}
	return &chatRewardsJob{
		logg:     params.Logger,
		players:  params.Players,
		reporter: params.Reporter,
	}, nil
}

type chatRewardsJob struct {
	logg     *logger.Logger
	players  chatRewarder
	reporter notify.Reporter
}

func (j *chatRewardsJob) Name() string { return "chat-rewards" }

func (j *chatRewardsJob) Run(ctx context.Context) error {
	stats, err := j.players.AccrueChatRewards(ctx)
	if err != nil {
		return fmt.Errorf("accrue chat rewards: %w", err)
	}
	if err := j.reporter.ReportChatRewards(ctx, *stats); err != nil {
		j.logg.Error(ctx, "chat reward report failed", err)
	}
	return nil
}
