package models

// All lists every persisted model in dependency order.
func All() []any {
	return []any{
		&Shop{},
		&WalletProvider{},
		&AffiliateUser{},
		&WebhookEvent{},
		&Invoice{},
		&Commission{},
		&Withdrawal{},
	}
}
