package models

import (
	"encoding/json"
	"time"

	"github.com/forgecraft/craftvault-backend/pkg/enums"
)

// AdminAction is the audit row written for every manual server action.
type AdminAction struct {
	ID        int64                 `gorm:"column:id;primaryKey;autoIncrement"`
	AdminID   int64                 `gorm:"column:admin_id;not null;index"`
	Action    enums.AdminActionType `gorm:"column:action;type:text;not null"`
	ServerID  *string               `gorm:"column:server_id"`
	Payload   json.RawMessage       `gorm:"column:payload;type:jsonb"`
	CreatedAt time.Time             `gorm:"column:created_at;autoCreateTime"`
}
