package models

import (
	"time"

	"github.com/forgecraft/craftvault-backend/pkg/enums"
	"github.com/google/uuid"
)

// Purchase is one immutable ledger row. Rows are only ever inserted; the
// fulfillment outcome lives on product_executions, never here.
type Purchase struct {
	ID                     uuid.UUID            `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	PlayerID               int64                `gorm:"column:player_id;not null;index"`
	MinecraftNick          string               `gorm:"column:minecraft_nick;not null"`
	ProductID              int64                `gorm:"column:product_id;not null;index"`
	ProductName            string               `gorm:"column:product_name;not null"`
	Quantity               int                  `gorm:"column:quantity;not null;default:1"`
	Currency               enums.Currency       `gorm:"column:currency;type:text;not null"`
	AmountPaid             int64                `gorm:"column:amount_paid;not null"`
	AppliedDiscountPercent int                  `gorm:"column:applied_discount_percent;not null;default:0"`
	PromocodeID            *int64               `gorm:"column:promocode_id"`
	Status                 enums.PurchaseStatus `gorm:"column:status;type:text;not null;default:completed"`
	PurchasedAt            time.Time            `gorm:"column:purchased_at;autoCreateTime"`
}
