package notify

import (
	"context"
	"io"
	"strings"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"github.com/forgecraft/craftvault-backend/internal/players"
	"github.com/forgecraft/craftvault-backend/internal/playtime"
	"github.com/forgecraft/craftvault-backend/pkg/config"
	"github.com/forgecraft/craftvault-backend/pkg/logger"
)

type fakeSender struct {
	sent []tgbotapi.MessageConfig
	err  error
}

func (f *fakeSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	if f.err != nil {
		return tgbotapi.Message{}, f.err
	}
	msg, ok := c.(tgbotapi.MessageConfig)
	if !ok {
		panic("unexpected chattable type")
	}
	f.sent = append(f.sent, msg)
	return tgbotapi.Message{MessageID: len(f.sent)}, nil
}

func newTestReporter(s sender) *telegramReporter {
	logg := logger.New(logger.Options{ServiceName: "test", Level: zerolog.Disabled, Output: io.Discard})
	return &telegramReporter{api: s, chatID: 777, logg: logg}
}

func TestReportPlaytimeRewards(t *testing.T) {
	fake := &fakeSender{}
	r := newTestReporter(fake)

	err := r.ReportPlaytimeRewards(context.Background(), playtime.RewardRunStats{
		PlayersRewarded: 12,
		CoinsAwarded:    340,
		MinutesCredited: 340,
	})
	if err != nil {
		t.Fatalf("report: %v", err)
	}
	if len(fake.sent) != 1 {
		t.Fatalf("expected single message, got %d", len(fake.sent))
	}
	msg := fake.sent[0]
	if msg.ChatID != 777 {
		t.Errorf("chat id = %d, want 777", msg.ChatID)
	}
	for _, want := range []string{"Players rewarded: 12", "Coins paid out: 340"} {
		if !strings.Contains(msg.Text, want) {
			t.Errorf("message missing %q:\n%s", want, msg.Text)
		}
	}
}

func TestReportChatRewardsRendersWinners(t *testing.T) {
	fake := &fakeSender{}
	r := newTestReporter(fake)

	err := r.ReportChatRewards(context.Background(), players.ChatRewardStats{
		Winners: []players.ChatRewardWinner{
			{PlayerID: 1, MinecraftNick: "Steve", Messages: 92, CoinsAwarded: 30},
			{PlayerID: 2, MinecraftNick: "Alex", Messages: 57, CoinsAwarded: 25},
		},
		CoinsAwarded:  55,
		CountersReset: 40,
	})
	if err != nil {
		t.Fatalf("report: %v", err)
	}
	text := fake.sent[0].Text
	for _, want := range []string{"1. Steve — 92 msg, +30 coins", "2. Alex — 57 msg, +25 coins", "Total paid: 55 coins"} {
		if !strings.Contains(text, want) {
			t.Errorf("message missing %q:\n%s", want, text)
		}
	}
}

func TestReportChatRewardsEmptyDay(t *testing.T) {
	fake := &fakeSender{}
	r := newTestReporter(fake)

	if err := r.ReportChatRewards(context.Background(), players.ChatRewardStats{}); err != nil {
		t.Fatalf("report: %v", err)
	}
	if !strings.Contains(fake.sent[0].Text, "No active chatters") {
		t.Errorf("expected empty-day message, got:\n%s", fake.sent[0].Text)
	}
}

func TestDisabledConfigReturnsNoop(t *testing.T) {
	logg := logger.New(logger.Options{ServiceName: "test", Level: zerolog.Disabled, Output: io.Discard})
	r, err := NewTelegramReporter(config.TelegramConfig{}, logg)
	if err != nil {
		t.Fatalf("constructor: %v", err)
	}
	if _, ok := r.(noopReporter); !ok {
		t.Fatalf("expected noop reporter, got %T", r)
	}
	if err := r.ReportPlaytimeRewards(context.Background(), playtime.RewardRunStats{}); err != nil {
		t.Errorf("noop should never fail: %v", err)
	}
}
