package enums

import "fmt"

// PurchaseStatus is the financial state of a ledger row. Purchases are
// immutable once written; refunds append nothing and flip the status only
// through an explicit admin action.
type PurchaseStatus string

const (
	PurchaseCompleted PurchaseStatus = "completed"
	PurchaseRefunded  PurchaseStatus = "refunded"
)

var validPurchaseStatuses = []PurchaseStatus{
	PurchaseCompleted,
	PurchaseRefunded,
}

// String implements fmt.Stringer.
func (s PurchaseStatus) String() string {
	return string(s)
}

// IsValid reports whether the status is recognized.
func (s PurchaseStatus) IsValid() bool {
	for _, candidate := range validPurchaseStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParsePurchaseStatus converts raw input into a PurchaseStatus.
func ParsePurchaseStatus(value string) (PurchaseStatus, error) {
	for _, candidate := range validPurchaseStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid purchase status %q", value)
}
