package shop

import (
	"github.com/forgecraft/craftvault-backend/pkg/db/models"
	"github.com/forgecraft/craftvault-backend/pkg/enums"
	"github.com/forgecraft/craftvault-backend/pkg/types"
)

// PurchaseInput carries one purchase attempt. PlayerID comes from the
// authenticated session, never from the request body.
type PurchaseInput struct {
	PlayerID  int64
	ProductID int64
	Currency  enums.Currency
	Quantity  int
	PromoCode string
}

// PurchaseResult is the purchase response payload. Purchase reflects the
// committed financial leg; Execution is the best-effort fulfillment outcome
// and is nil only when dispatch itself errored before persisting a record.
type PurchaseResult struct {
	Purchase  models.Purchase          `json:"purchase"`
	Execution *models.ProductExecution `json:"execution,omitempty"`
}

// PurchaseDetail is one purchase with its full fulfillment trail.
type PurchaseDetail struct {
	Purchase   models.Purchase           `json:"purchase"`
	Executions []models.ProductExecution `json:"executions"`
}

// PurchaseList is one page of purchase history.
type PurchaseList struct {
	Purchases  []models.Purchase `json:"purchases"`
	NextCursor string            `json:"next_cursor,omitempty"`
}

// ProductStat aggregates sales for one product.
type ProductStat struct {
	ProductID   int64  `json:"product_id"`
	ProductName string `json:"product_name"`
	Purchases   int64  `json:"purchases"`
	Revenue     int64  `json:"revenue"`
}

// Stats is the admin sales overview.
type Stats struct {
	TotalPurchases int64         `json:"total_purchases"`
	GameRevenue    int64         `json:"game_revenue"`
	DonateRevenue  int64         `json:"donate_revenue"`
	TopProducts    []ProductStat `json:"top_products"`
}

// AdminProductInput is the full writable surface of a catalog listing.
// Pointer fields with nil mean "use the default", not "clear".
type AdminProductInput struct {
	Name                   string
	Description            *string
	Kind                   enums.ProductKind
	Category               *string
	ItemsData              types.ItemsData
	SubscriptionDays       *int
	GamePrice              *int64
	DonatePrice            *int64
	MaxPurchasesPerPlayer  *int
	ExecutionConfig        *types.ExecutionConfig
	AutoExecute            *bool
	RequiresManualApproval bool
	IsActive               *bool
}
