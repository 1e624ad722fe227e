package enums

import "fmt"

// AcquisitionSource records how a referred user reached the shop.
type AcquisitionSource string

const (
	AcquisitionSourceQR   AcquisitionSource = "QR"
	AcquisitionSourceLink AcquisitionSource = "LINK"
	AcquisitionSourceAPI  AcquisitionSource = "API"
)

var validAcquisitionSources = []AcquisitionSource{
	AcquisitionSourceQR,
	AcquisitionSourceLink,
	AcquisitionSourceAPI,
}

// String returns the string representation.
func (v AcquisitionSource) String() string {
	return string(v)
}

// IsValid reports whether the value is supported.
func (v AcquisitionSource) IsValid() bool {
	for _, candidate := range validAcquisitionSources {
		if candidate == v {
			return true
		}
	}
	return false
}

// ParseAcquisitionSource converts raw input into a AcquisitionSource.
func ParseAcquisitionSource(value string) (AcquisitionSource, error) {
	for _, candidate := range validAcquisitionSources {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid acquisition source %q", value)
}

// ParseAcquisitionSourceOrDefault maps empty input to QR.
func ParseAcquisitionSourceOrDefault(value string) (AcquisitionSource, error) {
	if value == "" {
		return AcquisitionSourceQR, nil
	}
	return ParseAcquisitionSource(value)
}
