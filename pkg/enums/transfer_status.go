package enums

import "fmt"

// TransferStatus is the state of a peer-to-peer transfer. Transfers settle
// inside a single transaction, so completed is the only state the API ever
// returns; failed rows exist for forensic inserts only.
type TransferStatus string

const (
	TransferCompleted TransferStatus = "completed"
	TransferFailed    TransferStatus = "failed"
)

var validTransferStatuses = []TransferStatus{
	TransferCompleted,
	TransferFailed,
}

// String implements fmt.Stringer.
func (s TransferStatus) String() string {
	return string(s)
}

// IsValid reports whether the status is recognized.
func (s TransferStatus) IsValid() bool {
	for _, candidate := range validTransferStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseTransferStatus converts raw input into a TransferStatus.
func ParseTransferStatus(value string) (TransferStatus, error) {
	for _, candidate := range validTransferStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid transfer status %q", value)
}
