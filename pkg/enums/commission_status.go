package enums

import "fmt"

// CommissionStatus is the settlement state of a commission entry.
type CommissionStatus string

const (
	CommissionStatusPending CommissionStatus = "PENDING"
	CommissionStatusPaid    CommissionStatus = "PAID"
	CommissionStatusFailed  CommissionStatus = "FAILED"
)

var validCommissionStatuses = []CommissionStatus{
	CommissionStatusPending,
	CommissionStatusPaid,
	CommissionStatusFailed,
}

// String returns the string representation.
func (v CommissionStatus) String() string {
	return string(v)
}

// IsValid reports whether the value is supported.
func (v CommissionStatus) IsValid() bool {
	for _, candidate := range validCommissionStatuses {
		if candidate == v {
			return true
		}
	}
	return false
}

// ParseCommissionStatus converts raw input into a CommissionStatus.
func ParseCommissionStatus(value string) (CommissionStatus, error) {
	for _, candidate := range validCommissionStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid commission status %q", value)
}
