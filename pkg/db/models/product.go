package models

import (
	"time"

	"github.com/forgecraft/craftvault-backend/pkg/enums"
	"github.com/forgecraft/craftvault-backend/pkg/types"
)

// Product is one listing in the shop catalog. Prices are whole coins in the
// respective wallet currency; a nil price means the product cannot be bought
// with that currency.
type Product struct {
	ID                     int64                  `gorm:"column:id;primaryKey;autoIncrement"`
	Name                   string                 `gorm:"column:name;not null"`
	Description            *string                `gorm:"column:description"`
	Kind                   enums.ProductKind      `gorm:"column:kind;type:text;not null"`
	Category               *string                `gorm:"column:category"`
	ItemsData              types.ItemsData        `gorm:"column:items_data;type:jsonb;serializer:json"`
	SubscriptionDays       *int                   `gorm:"column:subscription_days"`
	GamePrice              *int64                 `gorm:"column:game_price"`
	DonatePrice            *int64                 `gorm:"column:donate_price"`
	MaxPurchasesPerPlayer  *int                   `gorm:"column:max_purchases_per_player"`
	ExecutionConfig        *types.ExecutionConfig `gorm:"column:execution_config;type:jsonb;serializer:json"`
	AutoExecute            bool                   `gorm:"column:auto_execute;not null;default:true"`
	RequiresManualApproval bool                   `gorm:"column:requires_manual_approval;not null;default:false"`
	IsActive               bool                   `gorm:"column:is_active;not null;default:true"`
	CreatedAt              time.Time              `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt              time.Time              `gorm:"column:updated_at;autoUpdateTime"`
}

// PriceFor returns the listed price in the requested currency, if any.
func (p Product) PriceFor(currency enums.Currency) *int64 {
	if currency == enums.CurrencyDonate {
		return p.DonatePrice
	}
	return p.GamePrice
}
