package enums

import "fmt"

// AffiliateStatus tracks an affiliate user's progression. SIGNUP only ever moves to ACTIVE.
type AffiliateStatus string

const (
	AffiliateStatusSignup AffiliateStatus = "SIGNUP"
	AffiliateStatusActive AffiliateStatus = "ACTIVE"
)

var validAffiliateStatuses = []AffiliateStatus{
	AffiliateStatusSignup,
	AffiliateStatusActive,
}

// IsValid reports whether the value is supported.
func (v AffiliateStatus) IsValid() bool {
	for _, candidate := range validAffiliateStatuses {
		if candidate == v {
			return true
		}
	}
	return false
}

// ParseAffiliateStatus converts raw input into a AffiliateStatus.
func ParseAffiliateStatus(value string) (AffiliateStatus, error) {
	for _, candidate := range validAffiliateStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid affiliate status %q", value)
}
