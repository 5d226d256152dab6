package players

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/forgecraft/craftvault-backend/internal/fulfillment"
	"github.com/forgecraft/craftvault-backend/pkg/config"
	"github.com/forgecraft/craftvault-backend/pkg/db"
	"github.com/forgecraft/craftvault-backend/pkg/db/models"
	"github.com/forgecraft/craftvault-backend/pkg/enums"
	pkgerrors "github.com/forgecraft/craftvault-backend/pkg/errors"
	"github.com/forgecraft/craftvault-backend/pkg/logger"
	"github.com/forgecraft/craftvault-backend/pkg/security"
)

const minPasswordLength = 6

// chatRewards are the payouts for the daily chat-activity top, first place
// first.
var chatRewards = []int64{30, 25, 20, 15, 10}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service exposes player registration, referrals and chat rewards.
type Service interface {
	Register(ctx context.Context, input RegisterInput) (*models.Player, error)
	Profile(ctx context.Context, playerID int64) (*Profile, error)
	// ConfirmReferral marks the referral of the given referred player
	// confirmed and recomputes the referrer's discount.
	ConfirmReferral(ctx context.Context, referredPlayerID int64) error
	IncrementMessages(ctx context.Context, playerID int64) error
	// AccrueChatRewards pays the daily top five by message count and resets
	// every counter, in one transaction.
	AccrueChatRewards(ctx context.Context) (*ChatRewardStats, error)
}

type service struct {
	repo     Repository
	tx       txRunner
	password config.PasswordConfig
	logg     *logger.Logger
}

// Params wires players service dependencies.
type Params struct {
	Repo     Repository
	Tx       txRunner
	Password config.PasswordConfig
	Logger   *logger.Logger
}

// NewService builds the players service.
func NewService(p Params) (Service, error) {
	if p.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "players repository required")
	}
	if p.Tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "transaction runner required")
	}
	if p.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "logger required")
	}
	return &service{repo: p.Repo, tx: p.Tx, password: p.Password, logg: p.Logger}, nil
}

func (s *service) Register(ctx context.Context, input RegisterInput) (*models.Player, error) {
	if input.PlayerID == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "player id required")
	}
	if !fulfillment.ValidNick(input.Nick) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "minecraft nick must be 3-16 characters of A-Za-z0-9_")
	}
	if len(input.Password) < minPasswordLength {
		return nil, pkgerrors.New(pkgerrors.CodeValidation,
			fmt.Sprintf("password must be at least %d characters", minPasswordLength))
	}
	if input.ReferrerNick == input.Nick {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "players cannot refer themselves")
	}

	hash, err := security.HashPassword(input.Password, s.password)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}

	player := &models.Player{
		ID:            input.PlayerID,
		MinecraftNick: input.Nick,
		PasswordHash:  hash,
		Role:          enums.RolePlayer,
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		var referrer *models.Player
		if input.ReferrerNick != "" {
			referrer, err = repo.FindByNick(ctx, input.ReferrerNick)
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return pkgerrors.New(pkgerrors.CodeNotFound, "referrer not found")
				}
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load referrer")
			}
			player.ReferrerNick = &referrer.MinecraftNick
		}

		if err := repo.CreatePlayer(ctx, player); err != nil {
			if db.IsUniqueViolation(err, "") {
				return pkgerrors.New(pkgerrors.CodeConflict, "player or nick already registered")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create player")
		}

		if referrer != nil {
			referral := &models.Referral{
				ReferrerPlayerID: referrer.ID,
				ReferredPlayerID: player.ID,
				ReferredNick:     player.MinecraftNick,
			}
			if err := repo.CreateReferral(ctx, referral); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create referral")
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	ctx = s.logg.WithPlayerID(ctx, player.ID)
	s.logg.Info(ctx, fmt.Sprintf("registered player %s", player.MinecraftNick))
	return player, nil
}

func (s *service) Profile(ctx context.Context, playerID int64) (*Profile, error) {
	if playerID == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "player identity missing")
	}
	player, err := s.repo.FindByID(ctx, playerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "player not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load player")
	}

	profile := &Profile{
		PlayerID:      player.ID,
		MinecraftNick: player.MinecraftNick,
		Role:          player.Role,
		GameBalance:   player.GameBalance,
		DonateBalance: player.DonateBalance,
		RegisteredAt:  player.RegisteredAt,
		LastLoginAt:   player.LastLoginAt,
	}

	discount, err := s.repo.FindDiscount(ctx, playerID)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load discount")
		}
		return profile, nil
	}
	profile.ReferralsCount = discount.ReferralsCount
	profile.DiscountPercent = discount.DiscountPercent
	return profile, nil
}

func (s *service) ConfirmReferral(ctx context.Context, referredPlayerID int64) error {
	if referredPlayerID == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "referred player id required")
	}
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		referral, err := repo.FindReferralByReferred(ctx, referredPlayerID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "referral not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load referral")
		}
		if referral.Confirmed {
			return nil
		}
		if err := repo.ConfirmReferral(ctx, referral.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "confirm referral")
		}

		confirmed, err := repo.CountConfirmedReferrals(ctx, referral.ReferrerPlayerID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count referrals")
		}
		percent := models.ReferralDiscountPercent(confirmed)
		if err := repo.UpsertDiscount(ctx, referral.ReferrerPlayerID, confirmed, percent); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update discount")
		}
		return nil
	})
}

func (s *service) IncrementMessages(ctx context.Context, playerID int64) error {
	if playerID == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "player id required")
	}
	if err := s.repo.IncrementMessages(ctx, playerID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "bump message counter")
	}
	return nil
}

func (s *service) AccrueChatRewards(ctx context.Context) (*ChatRewardStats, error) {
	stats := &ChatRewardStats{}
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		top, err := repo.TopByMessages(ctx, len(chatRewards))
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load chat top")
		}
		for i, player := range top {
			reward := chatRewards[i]
			if err := repo.CreditGameBalance(ctx, player.ID, reward); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "credit chat reward")
			}
			stats.Winners = append(stats.Winners, ChatRewardWinner{
				PlayerID:      player.ID,
				MinecraftNick: player.MinecraftNick,
				Messages:      player.MessagesCount,
				CoinsAwarded:  reward,
			})
			stats.CoinsAwarded += reward
		}

		// Counters reset for everyone, winners or not, so the next day
		// starts from zero.
		reset, err := repo.ResetMessageCounts(ctx)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reset message counters")
		}
		stats.CountersReset = reset
		return nil
	})
	if err != nil {
		return nil, err
	}

	logCtx := s.logg.WithFields(ctx, map[string]any{
		"winners":        len(stats.Winners),
		"coins_awarded":  stats.CoinsAwarded,
		"counters_reset": stats.CountersReset,
	})
	s.logg.Info(logCtx, "chat activity rewards complete")
	return stats, nil
}
