package enums

import "fmt"

// WebhookEventType enumerates the provider events the ledger accepts.
type WebhookEventType string

const (
	WebhookEventUserSignup    WebhookEventType = "user.signup"
	WebhookEventUserActivated WebhookEventType = "user.activated"
	WebhookEventInvoicePaid   WebhookEventType = "invoice.paid"
)

var validWebhookEventTypes = []WebhookEventType{
	WebhookEventUserSignup,
	WebhookEventUserActivated,
	WebhookEventInvoicePaid,
}

// IsValid reports whether the provider event type is handled.
func (t WebhookEventType) IsValid() bool {
	for _, candidate := range validWebhookEventTypes {
		if candidate == t {
			return true
		}
	}
	return false
}

// IsActivation reports whether the event settles revenue. invoice.paid is an
// alias of user.activated.
func (t WebhookEventType) IsActivation() bool {
	return t == WebhookEventUserActivated || t == WebhookEventInvoicePaid
}

// ParseWebhookEventType converts the envelope type into WebhookEventType.
func ParseWebhookEventType(value string) (WebhookEventType, error) {
	for _, candidate := range validWebhookEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("unsupported event type %q", value)
}
