package webhooks

import "encoding/json"

// Billing event types emitted by the payment provider.
const (
	EventPaymentSucceeded     = "payment.succeeded"
	EventPaymentFailed        = "payment.failed"
	EventPurchaseCompleted    = "purchase.completed"
	EventSubscriptionCreated  = "subscription.created"
	EventSubscriptionUpdated  = "subscription.updated"
	EventSubscriptionCanceled = "subscription.canceled"
	EventCustomerCreated      = "customer.created"
	EventCustomerUpdated      = "customer.updated"
)

// Customer identifies the billed account. ExternalID is the user id this
// service knows the customer by.
type Customer struct {
	ID         string `json:"id"`
	ExternalID string `json:"externalId"`
}

// Event is one billing webhook delivery payload.
type Event struct {
	ID             string   `json:"id"`
	Type           string   `json:"type"`
	Object         string   `json:"object,omitempty"`
	Customer       Customer `json:"customer"`
	PriceSlug      string   `json:"priceSlug,omitempty"`
	PurchaseID     string   `json:"purchaseId,omitempty"`
	SubscriptionID string   `json:"subscriptionId,omitempty"`
	FailureReason  string   `json:"failureReason,omitempty"`
}

// ParseEvent decodes a verified webhook body.
func ParseEvent(body []byte) (*Event, error) {
	var event Event
	if err := json.Unmarshal(body, &event); err != nil {
		return nil, err
	}

	return &event, nil
}
