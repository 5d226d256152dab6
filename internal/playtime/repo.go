package playtime

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/forgecraft/craftvault-backend/pkg/db/models"
)

// Repository defines persistence for playtime sessions and reward cursors.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	// SessionTotals sums active minutes per player across all sessions.
	SessionTotals(ctx context.Context) ([]PlayerMinutes, error)
	RewardCursors(ctx context.Context) (map[int64]models.PlaytimeReward, error)
	AdvanceCursor(ctx context.Context, playerID, totalMinutes, coinsDelta int64, awardedAt time.Time) error
	CreditGameBalance(ctx context.Context, playerID, amount int64) error
	TopByMinutes(ctx context.Context, limit int) ([]PlayerPlaytime, error)
	PlayerStats(ctx context.Context, playerID int64) (*PlayerPlaytime, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a playtime repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) SessionTotals(ctx context.Context) ([]PlayerMinutes, error) {
	var totals []PlayerMinutes
	err := r.db.WithContext(ctx).
		Model(&models.PlaySession{}).
		Select("player_id, COALESCE(SUM(active_minutes), 0) AS minutes").
		Group("player_id").
		Scan(&totals).Error
	if err != nil {
		return nil, err
	}
	return totals, nil
}

func (r *repository) RewardCursors(ctx context.Context) (map[int64]models.PlaytimeReward, error) {
	var rows []models.PlaytimeReward
	if err := r.db.WithContext(ctx).Find(&rows).Error; err != nil {
		return nil, err
	}
	cursors := make(map[int64]models.PlaytimeReward, len(rows))
	for _, row := range rows {
		cursors[row.PlayerID] = row
	}
	return cursors, nil
}

func (r *repository) AdvanceCursor(ctx context.Context, playerID, totalMinutes, coinsDelta int64, awardedAt time.Time) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "player_id"}},
			DoUpdates: clause.Assignments(map[string]any{
				"total_active_minutes": totalMinutes,
				"coins_awarded":        gorm.Expr("playtime_rewards.coins_awarded + ?", coinsDelta),
				"last_awarded_at":      awardedAt,
			}),
		}).
		Create(&models.PlaytimeReward{
			PlayerID:           playerID,
			TotalActiveMinutes: totalMinutes,
			CoinsAwarded:       coinsDelta,
			LastAwardedAt:      &awardedAt,
		}).Error
}

func (r *repository) CreditGameBalance(ctx context.Context, playerID, amount int64) error {
	return r.db.WithContext(ctx).
		Model(&models.Player{}).
		Where("id = ?", playerID).
		UpdateColumn("game_balance", gorm.Expr("game_balance + ?", amount)).Error
}

func (r *repository) TopByMinutes(ctx context.Context, limit int) ([]PlayerPlaytime, error) {
	var top []PlayerPlaytime
	err := r.db.WithContext(ctx).
		Model(&models.PlaytimeReward{}).
		Select("playtime_rewards.player_id, players.minecraft_nick, playtime_rewards.total_active_minutes AS total_minutes, playtime_rewards.coins_awarded, playtime_rewards.last_awarded_at").
		Joins("JOIN players ON players.id = playtime_rewards.player_id").
		Order("playtime_rewards.total_active_minutes DESC").
		Limit(limit).
		Scan(&top).Error
	if err != nil {
		return nil, err
	}
	return top, nil
}

func (r *repository) PlayerStats(ctx context.Context, playerID int64) (*PlayerPlaytime, error) {
	var stats PlayerPlaytime
	err := r.db.WithContext(ctx).
		Model(&models.PlaytimeReward{}).
		Select("playtime_rewards.player_id, players.minecraft_nick, playtime_rewards.total_active_minutes AS total_minutes, playtime_rewards.coins_awarded, playtime_rewards.last_awarded_at").
		Joins("JOIN players ON players.id = playtime_rewards.player_id").
		Where("playtime_rewards.player_id = ?", playerID).
		First(&stats).Error
	if err != nil {
		return nil, err
	}
	return &stats, nil
}
