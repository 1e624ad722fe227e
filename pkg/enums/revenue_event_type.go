package enums

import "fmt"

// RevenueEventType classifies the revenue behind an invoice or commission.
type RevenueEventType string

const (
	RevenueEventTypeCPA RevenueEventType = "CPA"
)

var validRevenueEventTypes = []RevenueEventType{
	RevenueEventTypeCPA,
}

// IsValid reports whether the value is supported.
func (v RevenueEventType) IsValid() bool {
	for _, candidate := range validRevenueEventTypes {
		if candidate == v {
			return true
		}
	}
	return false
}

// ParseRevenueEventType converts raw input into a RevenueEventType.
func ParseRevenueEventType(value string) (RevenueEventType, error) {
	for _, candidate := range validRevenueEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid revenue event type %q", value)
}
