package models

import (
	"time"

	"github.com/forgecraft/craftvault-backend/pkg/enums"
	"github.com/google/uuid"
)

// Transfer is one settled peer-to-peer game-coin transfer.
// total_deducted = amount + commission.
type Transfer struct {
	ID            uuid.UUID            `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	SenderID      int64                `gorm:"column:sender_id;not null;index"`
	SenderNick    string               `gorm:"column:sender_nick;not null"`
	RecipientID   int64                `gorm:"column:recipient_id;not null;index"`
	RecipientNick string               `gorm:"column:recipient_nick;not null"`
	Amount        int64                `gorm:"column:amount;not null"`
	Commission    int64                `gorm:"column:commission;not null"`
	TotalDeducted int64                `gorm:"column:total_deducted;not null"`
	Message       *string              `gorm:"column:message"`
	Status        enums.TransferStatus `gorm:"column:status;type:text;not null;default:completed"`
	CreatedAt     time.Time            `gorm:"column:created_at;autoCreateTime"`
}
