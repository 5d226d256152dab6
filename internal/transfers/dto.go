package transfers

import (
	"github.com/forgecraft/craftvault-backend/pkg/db/models"
)

// Direction filters transfer history queries.
type Direction string

const (
	DirectionAll      Direction = "all"
	DirectionSent     Direction = "sent"
	DirectionReceived Direction = "received"
)

// IsValid reports whether the direction is one of the known filters.
func (d Direction) IsValid() bool {
	switch d {
	case DirectionAll, DirectionSent, DirectionReceived:
		return true
	}
	return false
}

// SendInput carries one transfer request.
type SendInput struct {
	SenderID      int64   `json:"-"`
	RecipientNick string  `json:"recipient_nick"`
	Amount        int64   `json:"amount"`
	Message       *string `json:"message,omitempty"`
}

// SendResult is the settled transfer plus the sender's remaining balance.
type SendResult struct {
	Transfer   models.Transfer `json:"transfer"`
	NewBalance int64           `json:"new_balance"`
}

// HistoryEntry is one transfer annotated with its direction relative to the
// requesting player.
type HistoryEntry struct {
	models.Transfer
	Direction Direction `json:"direction"`
}

// HistoryPage is one cursor page of transfer history.
type HistoryPage struct {
	Transfers  []HistoryEntry `json:"transfers"`
	NextCursor string         `json:"next_cursor,omitempty"`
}

// SentStats aggregates a player's outgoing transfers.
type SentStats struct {
	Count           int64 `json:"count"`
	TotalAmount     int64 `json:"total_amount"`
	TotalCommission int64 `json:"total_commission"`
	TotalDeducted   int64 `json:"total_deducted"`
}

// ReceivedStats aggregates a player's incoming transfers.
type ReceivedStats struct {
	Count       int64 `json:"count"`
	TotalAmount int64 `json:"total_amount"`
}

// Stats is the per-player transfer summary.
type Stats struct {
	Sent              SentStats     `json:"sent"`
	Received          ReceivedStats `json:"received"`
	CommissionPercent int           `json:"commission_percent"`
	MinAmount         int64         `json:"min_transfer_amount"`
}

// Quote previews the commission for a prospective transfer.
type Quote struct {
	Amount            int64 `json:"amount"`
	Commission        int64 `json:"commission"`
	TotalDeducted     int64 `json:"total_deducted"`
	CommissionPercent int   `json:"commission_percent"`
	MinAmount         int64 `json:"min_transfer_amount"`
}
