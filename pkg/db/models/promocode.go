package models

import (
	"time"

	dbtypes "github.com/forgecraft/craftvault-backend/pkg/db/types"
)

// Promocode is an admin-issued discount code. uses_left is nil for
// unlimited codes; applicable_products empty means all products qualify.
type Promocode struct {
	ID                 int64              `gorm:"column:id;primaryKey;autoIncrement"`
	Code               string             `gorm:"column:code;type:text;not null;uniqueIndex"`
	DiscountPercent    int                `gorm:"column:discount_percent;not null"`
	UsesLeft           *int               `gorm:"column:uses_left"`
	StartDate          *time.Time         `gorm:"column:start_date"`
	EndDate            *time.Time         `gorm:"column:end_date"`
	ApplicableProducts dbtypes.Int64Array `gorm:"column:applicable_products;type:bigint[]"`
	IsActive           bool               `gorm:"column:is_active;not null;default:true"`
	CreatedAt          time.Time          `gorm:"column:created_at;autoCreateTime"`
}

// ActiveAt reports whether the code is inside its validity window.
func (p Promocode) ActiveAt(now time.Time) bool {
	if !p.IsActive {
		return false
	}
	if p.StartDate != nil && now.Before(*p.StartDate) {
		return false
	}
	if p.EndDate != nil && now.After(*p.EndDate) {
		return false
	}
	if p.UsesLeft != nil && *p.UsesLeft <= 0 {
		return false
	}
	return true
}

// AppliesTo reports whether the code covers the given product.
func (p Promocode) AppliesTo(productID int64) bool {
	if len(p.ApplicableProducts) == 0 {
		return true
	}
	return p.ApplicableProducts.Contains(productID)
}
