package models

import "time"

// PurchaseLimit tracks how many units of a limited product a player has
// bought. One row per (player, product) pair.
type PurchaseLimit struct {
	ID            int64     `gorm:"column:id;primaryKey;autoIncrement"`
	PlayerID      int64     `gorm:"column:player_id;not null;uniqueIndex:idx_purchase_limits_player_product"`
	ProductID     int64     `gorm:"column:product_id;not null;uniqueIndex:idx_purchase_limits_player_product"`
	PurchasesMade int       `gorm:"column:purchases_made;not null;default:0"`
	UpdatedAt     time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
