package enums

import "fmt"

// ProductKind selects the fulfillment handler for a product.
type ProductKind string

const (
	KindItem         ProductKind = "item"
	KindSubscription ProductKind = "subscription"
	KindWhitelist    ProductKind = "whitelist"
	KindRank         ProductKind = "rank"
	KindService      ProductKind = "service"
	KindCommand      ProductKind = "command"
)

var validProductKinds = []ProductKind{
	KindItem,
	KindSubscription,
	KindWhitelist,
	KindRank,
	KindService,
	KindCommand,
}

// String implements fmt.Stringer.
func (k ProductKind) String() string {
	return string(k)
}

// IsValid reports whether the kind is one of the closed set.
func (k ProductKind) IsValid() bool {
	for _, candidate := range validProductKinds {
		if candidate == k {
			return true
		}
	}
	return false
}

// ParseProductKind converts raw input into a ProductKind.
func ParseProductKind(value string) (ProductKind, error) {
	for _, candidate := range validProductKinds {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid product kind %q", value)
}
