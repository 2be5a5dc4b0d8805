package models

import "time"

// SubscriptionInterval is the refresh cadence of a token subscription.
type SubscriptionInterval string

const (
	IntervalWeek  SubscriptionInterval = "week"
	IntervalMonth SubscriptionInterval = "month"
)

// TokenAccount is one user's token balance plus subscription bookkeeping.
// CreditedPurchases tracks billing purchase IDs already converted to tokens
// so webhook retries and purchase polling stay idempotent.
type TokenAccount struct {
	UserID               string               `json:"user_id"`
	Balance              int                  `json:"balance"`
	LastRefresh          time.Time            `json:"last_refresh"`
	SubscriptionID       string               `json:"subscription_id,omitempty"`
	SubscriptionInterval SubscriptionInterval `json:"subscription_interval,omitempty"`
	CreditedPurchases    []string             `json:"credited_purchases,omitempty"`
}

// HasCredited reports whether a billing purchase was already credited.
func (a *TokenAccount) HasCredited(purchaseID string) bool {
	for _, id := range a.CreditedPurchases {
		if id == purchaseID {
			return true
		}
	}

	return false
}

// TokenPack is a one-time token purchase product.
type TokenPack struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	Tokens    int     `json:"tokens"`
	PriceUSD  float64 `json:"price_usd"`
	PriceSlug string  `json:"price_slug"`
}

// TokenSubscription is a recurring token plan.
type TokenSubscription struct {
	ID              string               `json:"id"`
	Name            string               `json:"name"`
	TokensPerPeriod int                  `json:"tokens_per_period"`
	PriceUSD        float64              `json:"price_usd"`
	PriceSlug       string               `json:"price_slug"`
	Interval        SubscriptionInterval `json:"interval"`
}
