package enums

import "fmt"

// PaymentType is the payout rail requested for a withdrawal.
type PaymentType string

const (
	PaymentTypeCrypto PaymentType = "CRYPTO"
	PaymentTypeFiat   PaymentType = "FIAT"
)

var validPaymentTypes = []PaymentType{
	PaymentTypeCrypto,
	PaymentTypeFiat,
}

// String returns the string representation.
func (v PaymentType) String() string {
	return string(v)
}

// IsValid reports whether the value is supported.
func (v PaymentType) IsValid() bool {
	for _, candidate := range validPaymentTypes {
		if candidate == v {
			return true
		}
	}
	return false
}

// ParsePaymentType converts raw input into a PaymentType.
func ParsePaymentType(value string) (PaymentType, error) {
	for _, candidate := range validPaymentTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid payment type %q", value)
}
