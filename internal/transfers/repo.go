package transfers

import (
	"context"

	"gorm.io/gorm"

	"github.com/forgecraft/craftvault-backend/pkg/db/models"
	"github.com/forgecraft/craftvault-backend/pkg/enums"
	"github.com/forgecraft/craftvault-backend/pkg/pagination"
)

// Repository defines persistence operations for peer-to-peer transfers.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindPlayer(ctx context.Context, id int64) (*models.Player, error)
	// FindPlayerByNick matches the nick exactly, including case.
	FindPlayerByNick(ctx context.Context, nick string) (*models.Player, error)
	// SuggestNick looks up a case-insensitive match to offer as a hint when
	// the exact lookup misses. Empty string when nothing is close.
	SuggestNick(ctx context.Context, nick string) (string, error)
	// DebitGameBalance decrements only while the balance stays non-negative.
	DebitGameBalance(ctx context.Context, playerID, amount int64) (bool, error)
	CreditGameBalance(ctx context.Context, playerID, amount int64) error
	CreateTransfer(ctx context.Context, transfer *models.Transfer) error
	ListTransfers(ctx context.Context, playerID int64, direction Direction, params pagination.Params) (*HistoryPage, error)
	Stats(ctx context.Context, playerID int64) (*Stats, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a transfers repository.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	return &repository{db: tx}
}

func (r *repository) FindPlayer(ctx context.Context, id int64) (*models.Player, error) {
	var player models.Player
	if err := r.db.WithContext(ctx).First(&player, id).Error; err != nil {
		return nil, err
	}
	return &player, nil
}

func (r *repository) FindPlayerByNick(ctx context.Context, nick string) (*models.Player, error) {
	var player models.Player
	err := r.db.WithContext(ctx).
		Where("minecraft_nick = ?", nick).
		First(&player).Error
	if err != nil {
		return nil, err
	}
	return &player, nil
}

func (r *repository) SuggestNick(ctx context.Context, nick string) (string, error) {
	var suggestion string
	err := r.db.WithContext(ctx).
		Model(&models.Player{}).
		Select("minecraft_nick").
		Where("LOWER(minecraft_nick) = LOWER(?)", nick).
		Limit(1).
		Scan(&suggestion).Error
	if err != nil {
		return "", err
	}
	return suggestion, nil
}

func (r *repository) DebitGameBalance(ctx context.Context, playerID, amount int64) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Player{}).
		Where("id = ? AND game_balance >= ?", playerID, amount).
		UpdateColumn("game_balance", gorm.Expr("game_balance - ?", amount))
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repository) CreditGameBalance(ctx context.Context, playerID, amount int64) error {
	return r.db.WithContext(ctx).
		Model(&models.Player{}).
		Where("id = ?", playerID).
		UpdateColumn("game_balance", gorm.Expr("game_balance + ?", amount)).Error
}

func (r *repository) CreateTransfer(ctx context.Context, transfer *models.Transfer) error {
	return r.db.WithContext(ctx).Create(transfer).Error
}

func (r *repository) ListTransfers(ctx context.Context, playerID int64, direction Direction, params pagination.Params) (*HistoryPage, error) {
	limit := pagination.NormalizeLimit(params.Limit)
	query := r.db.WithContext(ctx).Model(&models.Transfer{})

	switch direction {
	case DirectionSent:
		query = query.Where("sender_id = ?", playerID)
	case DirectionReceived:
		query = query.Where("recipient_id = ?", playerID)
	default:
		query = query.Where("sender_id = ? OR recipient_id = ?", playerID, playerID)
	}

	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, err
	}
	if cursor != nil {
		query = query.Where(
			"created_at < ? OR (created_at = ? AND id < ?)",
			cursor.CreatedAt, cursor.CreatedAt, cursor.ID,
		)
	}

	var rows []models.Transfer
	err = query.
		Order("created_at DESC, id DESC").
		Limit(pagination.LimitWithBuffer(params.Limit)).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	page := &HistoryPage{}
	if len(rows) > limit {
		rows = rows[:limit]
		last := rows[len(rows)-1]
		page.NextCursor = pagination.EncodeCursor(pagination.Cursor{
			CreatedAt: last.CreatedAt,
			ID:        last.ID,
		})
	}
	for _, row := range rows {
		direction := DirectionReceived
		if row.SenderID == playerID {
			direction = DirectionSent
		}
		page.Transfers = append(page.Transfers, HistoryEntry{Transfer: row, Direction: direction})
	}
	return page, nil
}

func (r *repository) Stats(ctx context.Context, playerID int64) (*Stats, error) {
	var stats Stats
	err := r.db.WithContext(ctx).
		Model(&models.Transfer{}).
		Select(
			"COUNT(*) AS count",
			"COALESCE(SUM(amount), 0) AS total_amount",
			"COALESCE(SUM(commission), 0) AS total_commission",
			"COALESCE(SUM(total_deducted), 0) AS total_deducted",
		).
		Where("sender_id = ? AND status = ?", playerID, enums.TransferCompleted).
		Scan(&stats.Sent).Error
	if err != nil {
		return nil, err
	}

	err = r.db.WithContext(ctx).
		Model(&models.Transfer{}).
		Select(
			"COUNT(*) AS count",
			"COALESCE(SUM(amount), 0) AS total_amount",
		).
		Where("recipient_id = ? AND status = ?", playerID, enums.TransferCompleted).
		Scan(&stats.Received).Error
	if err != nil {
		return nil, err
	}
	return &stats, nil
}
