// Package signature verifies provider webhook signatures.
package signature

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"
	"time"
)

const (
	// DefaultMaxDrift bounds how far X-Timestamp may be from the server clock.
	DefaultMaxDrift = 5 * time.Minute

	prefix = "sha256="
)

// Sign returns the hex HMAC-SHA256 of "{timestamp}.{body}" with the sha256= prefix.
func Sign(secret, timestamp string, body []byte) string {
	return prefix + hex.EncodeToString(compute(secret, timestamp, body))
}

// Verify reports whether header carries a valid signature for body. Malformed
// input is reported as invalid.
func Verify(secret, timestamp, header string, body []byte) bool {
	if secret == "" || timestamp == "" || header == "" {
		return false
	}
	supplied := strings.TrimPrefix(strings.TrimSpace(header), prefix)
	got, err := hex.DecodeString(supplied)
	if err != nil || len(got) != sha256.Size {
		return false
	}
	return hmac.Equal(got, compute(secret, timestamp, body))
}

// VerifyTimestamp reports whether timestamp (unix seconds) lies within maxDrift
// of now in either direction. A non-positive maxDrift uses DefaultMaxDrift.
func VerifyTimestamp(timestamp string, now time.Time, maxDrift time.Duration) bool {
	secs, err := strconv.ParseInt(strings.TrimSpace(timestamp), 10, 64)
	if err != nil {
		return false
	}
	if maxDrift <= 0 {
		maxDrift = DefaultMaxDrift
	}
	drift := now.Sub(time.Unix(secs, 0))
	if drift < 0 {
		drift = -drift
	}
	return drift <= maxDrift
}

func compute(secret, timestamp string, body []byte) []byte {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(timestamp))
	mac.Write([]byte("."))
	mac.Write(body)
	return mac.Sum(nil)
}
