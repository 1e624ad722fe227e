package enums

import "fmt"

// WithdrawalStatus is the payout state of a withdrawal request.
type WithdrawalStatus string

const (
	WithdrawalStatusPending    WithdrawalStatus = "PENDING"
	WithdrawalStatusProcessing WithdrawalStatus = "PROCESSING"
	WithdrawalStatusPaid       WithdrawalStatus = "PAID"
	WithdrawalStatusFailed     WithdrawalStatus = "FAILED"
)

var validWithdrawalStatuses = []WithdrawalStatus{
	WithdrawalStatusPending,
	WithdrawalStatusProcessing,
	WithdrawalStatusPaid,
	WithdrawalStatusFailed,
}

// String returns the string representation.
func (v WithdrawalStatus) String() string {
	return string(v)
}

// IsValid reports whether the value is supported.
func (v WithdrawalStatus) IsValid() bool {
	for _, candidate := range validWithdrawalStatuses {
		if candidate == v {
			return true
		}
	}
	return false
}

// ParseWithdrawalStatus converts raw input into a WithdrawalStatus.
func ParseWithdrawalStatus(value string) (WithdrawalStatus, error) {
	for _, candidate := range validWithdrawalStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid withdrawal status %q", value)
}

var withdrawalTransitions = map[WithdrawalStatus][]WithdrawalStatus{
	WithdrawalStatusPending:    {WithdrawalStatusProcessing, WithdrawalStatusFailed},
	WithdrawalStatusProcessing: {WithdrawalStatusPaid, WithdrawalStatusFailed},
}

// CanTransitionTo reports whether the payout lifecycle allows moving to next.
// PAID and FAILED are terminal.
func (v WithdrawalStatus) CanTransitionTo(next WithdrawalStatus) bool {
	for _, allowed := range withdrawalTransitions[v] {
		if allowed == next {
			return true
		}
	}
	return false
}

// SourcesFor lists the states from which next can be reached.
func SourcesFor(next WithdrawalStatus) []WithdrawalStatus {
	var sources []WithdrawalStatus
	for _, from := range validWithdrawalStatuses {
		if from.CanTransitionTo(next) {
			sources = append(sources, from)
		}
	}
	return sources
}
