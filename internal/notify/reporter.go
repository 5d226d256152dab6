package notify

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/forgecraft/craftvault-backend/internal/players"
	"github.com/forgecraft/craftvault-backend/internal/playtime"
	"github.com/forgecraft/craftvault-backend/pkg/config"
	pkgerrors "github.com/forgecraft/craftvault-backend/pkg/errors"
	"github.com/forgecraft/craftvault-backend/pkg/logger"
)

// Reporter pushes human-readable reward run summaries to the community
// channel. The jobs hand over raw stats; rendering lives here.
type Reporter interface {
	ReportPlaytimeRewards(ctx context.Context, stats playtime.RewardRunStats) error
	ReportChatRewards(ctx context.Context, stats players.ChatRewardStats) error
}

// sender is the transport surface, satisfied by *tgbotapi.BotAPI.
type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

type telegramReporter struct {
	api    sender
	chatID int64
	logg   *logger.Logger
}

// NewTelegramReporter builds a Telegram-backed reporter. With reporting not
// configured it returns a no-op so callers never branch.
func NewTelegramReporter(cfg config.TelegramConfig, logg *logger.Logger) (Reporter, error) {
	if logg == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "logger required")
	}
	if !cfg.Enabled() {
		return noopReporter{}, nil
	}
	api, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "telegram bot auth")
	}
	return &telegramReporter{api: api, chatID: cfg.ReportChatID, logg: logg}, nil
}

func (r *telegramReporter) ReportPlaytimeRewards(ctx context.Context, stats playtime.RewardRunStats) error {
	var b strings.Builder
	b.WriteString("⛏ Playtime rewards\n\n")
	fmt.Fprintf(&b, "Players rewarded: %d\n", stats.PlayersRewarded)
	fmt.Fprintf(&b, "Minutes credited: %d\n", stats.MinutesCredited)
	fmt.Fprintf(&b, "Coins paid out: %d", stats.CoinsAwarded)
	return r.send(ctx, b.String())
}

func (r *telegramReporter) ReportChatRewards(ctx context.Context, stats players.ChatRewardStats) error {
	var b strings.Builder
	b.WriteString("💬 Chat activity, last 24h\n\n")
	if len(stats.Winners) == 0 {
		b.WriteString("No active chatters today.")
		return r.send(ctx, b.String())
	}
	for i, winner := range stats.Winners {
		fmt.Fprintf(&b, "%d. %s — %d msg, +%d coins\n",
			i+1, winner.MinecraftNick, winner.Messages, winner.CoinsAwarded)
	}
	fmt.Fprintf(&b, "\nTotal paid: %d coins", stats.CoinsAwarded)
	return r.send(ctx, b.String())
}

func (r *telegramReporter) send(ctx context.Context, text string) error {
	msg := tgbotapi.NewMessage(r.chatID, text)
	if _, err := r.api.Send(msg); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "send telegram report")
	}
	r.logg.Info(ctx, "reward report sent")
	return nil
}

type noopReporter struct{}

func (noopReporter) ReportPlaytimeRewards(context.Context, playtime.RewardRunStats) error {
	return nil
}

func (noopReporter) ReportChatRewards(context.Context, players.ChatRewardStats) error {
	return nil
}
