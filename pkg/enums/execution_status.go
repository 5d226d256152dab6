package enums

import "fmt"

// ExecutionStatus is the state of a fulfillment execution record.
//
// pending records are eligible for the retry sweeper while retry_count
// stays below max_retries. success and failed are terminal.
// manual_required records are only moved by an operator approval.
type ExecutionStatus string

const (
	ExecutionPending        ExecutionStatus = "pending"
	ExecutionSuccess        ExecutionStatus = "success"
	ExecutionFailed         ExecutionStatus = "failed"
	ExecutionManualRequired ExecutionStatus = "manual_required"
)

var validExecutionStatuses = []ExecutionStatus{
	ExecutionPending,
	ExecutionSuccess,
	ExecutionFailed,
	ExecutionManualRequired,
}

// String implements fmt.Stringer.
func (s ExecutionStatus) String() string {
	return string(s)
}

// IsValid reports whether the status is recognized.
func (s ExecutionStatus) IsValid() bool {
	for _, candidate := range validExecutionStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the sweeper must never touch the record again.
func (s ExecutionStatus) IsTerminal() bool {
	return s == ExecutionSuccess || s == ExecutionFailed
}

// ParseExecutionStatus converts raw input into an ExecutionStatus.
func ParseExecutionStatus(value string) (ExecutionStatus, error) {
	for _, candidate := range validExecutionStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid execution status %q", value)
}
