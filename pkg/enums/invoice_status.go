package enums

import "fmt"

// InvoiceStatus is the settlement state of a provider invoice.
type InvoiceStatus string

const (
	InvoiceStatusPaid InvoiceStatus = "PAID"
)

var validInvoiceStatuses = []InvoiceStatus{
	InvoiceStatusPaid,
}

// IsValid reports whether the value is supported.
func (v InvoiceStatus) IsValid() bool {
	for _, candidate := range validInvoiceStatuses {
		if candidate == v {
			return true
		}
	}
	return false
}

// ParseInvoiceStatus converts raw input into a InvoiceStatus.
func ParseInvoiceStatus(value string) (InvoiceStatus, error) {
	for _, candidate := range validInvoiceStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid invoice status %q", value)
}
