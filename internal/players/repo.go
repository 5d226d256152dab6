package players

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/forgecraft/craftvault-backend/pkg/db/models"
)

// Repository defines persistence for players, referrals and discounts.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreatePlayer(ctx context.Context, player *models.Player) error
	FindByID(ctx context.Context, id int64) (*models.Player, error)
	// FindByNick matches the canonical case-sensitive nick.
	FindByNick(ctx context.Context, nick string) (*models.Player, error)
	CreateReferral(ctx context.Context, referral *models.Referral) error
	FindReferralByReferred(ctx context.Context, referredPlayerID int64) (*models.Referral, error)
	ConfirmReferral(ctx context.Context, referralID int64) error
	CountConfirmedReferrals(ctx context.Context, referrerPlayerID int64) (int, error)
	FindDiscount(ctx context.Context, playerID int64) (*models.Discount, error)
	UpsertDiscount(ctx context.Context, playerID int64, referrals, percent int) error
	IncrementMessages(ctx context.Context, playerID int64) error
	TopByMessages(ctx context.Context, limit int) ([]models.Player, error)
	ResetMessageCounts(ctx context.Context) (int64, error)
	CreditGameBalance(ctx context.Context, playerID, amount int64) error
	UpdateLastLogin(ctx context.Context, playerID int64) error
	UpdatePassword(ctx context.Context, playerID int64, passwordHash string) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a players repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) CreatePlayer(ctx context.Context, player *models.Player) error {
	return r.db.WithContext(ctx).Create(player).Error
}

func (r *repository) FindByID(ctx context.Context, id int64) (*models.Player, error) {
	var player models.Player
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&player).Error; err != nil {
		return nil, err
	}
	return &player, nil
}

func (r *repository) FindByNick(ctx context.Context, nick string) (*models.Player, error) {
	var player models.Player
	if err := r.db.WithContext(ctx).Where("minecraft_nick = ?", nick).First(&player).Error; err != nil {
		return nil, err
	}
	return &player, nil
}

func (r *repository) CreateReferral(ctx context.Context, referral *models.Referral) error {
	return r.db.WithContext(ctx).Create(referral).Error
}

func (r *repository) FindReferralByReferred(ctx context.Context, referredPlayerID int64) (*models.Referral, error) {
	var referral models.Referral
	err := r.db.WithContext(ctx).
		Where("referred_player_id = ?", referredPlayerID).
		First(&referral).Error
	if err != nil {
		return nil, err
	}
	return &referral, nil
}

func (r *repository) ConfirmReferral(ctx context.Context, referralID int64) error {
	return r.db.WithContext(ctx).
		Model(&models.Referral{}).
		Where("id = ?", referralID).
		Update("confirmed", true).Error
}

func (r *repository) CountConfirmedReferrals(ctx context.Context, referrerPlayerID int64) (int, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Referral{}).
		Where("referrer_player_id = ? AND confirmed = ?", referrerPlayerID, true).
		Count(&count).Error
	if err != nil {
		return 0, err
	}
	return int(count), nil
}

func (r *repository) FindDiscount(ctx context.Context, playerID int64) (*models.Discount, error) {
	var discount models.Discount
	err := r.db.WithContext(ctx).Where("player_id = ?", playerID).First(&discount).Error
	if err != nil {
		return nil, err
	}
	return &discount, nil
}

func (r *repository) UpsertDiscount(ctx context.Context, playerID int64, referrals, percent int) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "player_id"}},
			DoUpdates: clause.Assignments(map[string]any{
				"referrals_count":  referrals,
				"discount_percent": percent,
			}),
		}).
		Create(&models.Discount{
			PlayerID:        playerID,
			ReferralsCount:  referrals,
			DiscountPercent: percent,
		}).Error
}

func (r *repository) IncrementMessages(ctx context.Context, playerID int64) error {
	return r.db.WithContext(ctx).
		Model(&models.Player{}).
		Where("id = ?", playerID).
		UpdateColumn("messages_count", gorm.Expr("messages_count + 1")).Error
}

func (r *repository) TopByMessages(ctx context.Context, limit int) ([]models.Player, error) {
	var players []models.Player
	err := r.db.WithContext(ctx).
		Where("messages_count > 0").
		Order("messages_count DESC, id ASC").
		Limit(limit).
		Find(&players).Error
	if err != nil {
		return nil, err
	}
	return players, nil
}

func (r *repository) ResetMessageCounts(ctx context.Context) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Player{}).
		Where("messages_count > 0").
		UpdateColumn("messages_count", 0)
	return res.RowsAffected, res.Error
}

func (r *repository) CreditGameBalance(ctx context.Context, playerID, amount int64) error {
	return r.db.WithContext(ctx).
		Model(&models.Player{}).
		Where("id = ?", playerID).
		UpdateColumn("game_balance", gorm.Expr("game_balance + ?", amount)).Error
}

func (r *repository) UpdateLastLogin(ctx context.Context, playerID int64) error {
	return r.db.WithContext(ctx).
		Model(&models.Player{}).
		Where("id = ?", playerID).
		UpdateColumn("last_login_at", gorm.Expr("CURRENT_TIMESTAMP")).Error
}

func (r *repository) UpdatePassword(ctx context.Context, playerID int64, passwordHash string) error {
	return r.db.WithContext(ctx).
		Model(&models.Player{}).
		Where("id = ?", playerID).
		Update("password_hash", passwordHash).Error
}
