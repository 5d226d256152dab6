package enums

import "fmt"

// AdminActionType labels audited manual server actions.
type AdminActionType string

const (
	AdminActionBroadcast AdminActionType = "broadcast_message"
	AdminActionGamemode  AdminActionType = "set_gamemode"
	AdminActionApprove   AdminActionType = "approve_execution"
)

var validAdminActionTypes = []AdminActionType{
	AdminActionBroadcast,
	AdminActionGamemode,
	AdminActionApprove,
}

// String implements fmt.Stringer.
func (a AdminActionType) String() string {
	return string(a)
}

// IsValid reports whether the action type is recognized.
func (a AdminActionType) IsValid() bool {
	for _, candidate := range validAdminActionTypes {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseAdminActionType converts raw input into an AdminActionType.
func ParseAdminActionType(value string) (AdminActionType, error) {
	for _, candidate := range validAdminActionTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid admin action type %q", value)
}
