package billing

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// DemoClient is an in-memory billing provider for development and tests.
// With allowAll set it grants every feature, mirroring demo mode in which
// paid blocks run without a real provider.
type DemoClient struct {
	allowAll bool

	mu     sync.RWMutex
	grants map[string]map[string]bool
	subs   map[string][]Subscription
	usage  map[string]int
}

func NewDemoClient(allowAll bool) *DemoClient {
	return &DemoClient{
		allowAll: allowAll,
		grants:   make(map[string]map[string]bool),
		subs:     make(map[string][]Subscription),
		usage:    make(map[string]int),
	}
}

// Grant gives a user access to a feature.
func (c *DemoClient) Grant(userID, featureSlug string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.grants[userID] == nil {
		c.grants[userID] = make(map[string]bool)
	}

	c.grants[userID][featureSlug] = true
}

// AddSubscription attaches a subscription to a user.
func (c *DemoClient) AddSubscription(userID string, sub Subscription) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.subs[userID] = append(c.subs[userID], sub)
}

func (c *DemoClient) CheckFeatureAccess(_ context.Context, userID, featureSlug string) (bool, error) {
	if c.allowAll {
		return true, nil
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.grants[userID][featureSlug], nil
}

func (c *DemoClient) GetBilling(_ context.Context, userID string) (*Billing, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	features := make(map[string]bool, len(c.grants[userID]))
	for slug, granted := range c.grants[userID] {
		features[slug] = granted
	}

	return &Billing{
		Features:      features,
		Subscriptions: append([]Subscription(nil), c.subs[userID]...),
	}, nil
}

func (c *DemoClient) CreateCheckoutSession(_ context.Context, _ string, req CheckoutRequest) (*CheckoutSession, error) {
	if req.PriceSlug == "" {
		return nil, fmt.Errorf("checkout requires a price slug")
	}

	id := uuid.New().String()

	return &CheckoutSession{
		ID:  id,
		URL: fmt.Sprintf("https://checkout.invalid/session/%s?price=%s", id, req.PriceSlug),
	}, nil
}

func (c *DemoClient) CreateUsageEvent(_ context.Context, _, usageMeterSlug string, amount int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.usage[usageMeterSlug] += amount

	return nil
}

// UsageTotal reports the recorded usage for a meter.
func (c *DemoClient) UsageTotal(usageMeterSlug string) int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.usage[usageMeterSlug]
}
