// Package billing wraps the external billing provider: entitlement checks,
// checkout sessions, and usage metering.
package billing

import "context"

// Subscription is one of a customer's provider-side subscriptions.
type Subscription struct {
	ID        string `json:"id"`
	Status    string `json:"status"`
	PriceSlug string `json:"price_slug,omitempty"`
	Interval  string `json:"interval,omitempty"`
}

// Billing is a customer's entitlement snapshot.
type Billing struct {
	Features      map[string]bool `json:"features"`
	Subscriptions []Subscription  `json:"subscriptions"`
}

// HasFeature reports whether the snapshot grants the feature.
func (b *Billing) HasFeature(featureSlug string) bool {
	return b.Features[featureSlug]
}

// ActiveSubscription returns the customer's first active subscription.
func (b *Billing) ActiveSubscription() (Subscription, bool) {
	for _, sub := range b.Subscriptions {
		if sub.Status == "active" {
			return sub, true
		}
	}

	return Subscription{}, false
}

// CheckoutRequest starts a purchase for a price.
type CheckoutRequest struct {
	PriceSlug  string `json:"price_slug"`
	SuccessURL string `json:"success_url"`
	CancelURL  string `json:"cancel_url"`
}

// CheckoutSession is the provider's hosted checkout page.
type CheckoutSession struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

// Client is the billing provider collaborator.
type Client interface {
	CheckFeatureAccess(ctx context.Context, userID, featureSlug string) (bool, error)
	GetBilling(ctx context.Context, userID string) (*Billing, error)
	CreateCheckoutSession(ctx context.Context, userID string, req CheckoutRequest) (*CheckoutSession, error)
	CreateUsageEvent(ctx context.Context, userID, usageMeterSlug string, amount int) error
}
