package services

import (
	"context"
	"fmt"

	"github.com/blockdeck/blockdeck/pkg/billing"
	"github.com/blockdeck/blockdeck/pkg/registry"
)

// Entitlements resolves per-feature access for the whole block catalog in
// one billing snapshot.
type Entitlements struct {
	billing  billing.Client
	registry *registry.Registry
}

func NewEntitlements(client billing.Client, reg *registry.Registry) *Entitlements {
	return &Entitlements{billing: client, registry: reg}
}

// EntitlementReport maps every catalog feature slug to whether the user
// holds it, together with the raw subscription list.
type EntitlementReport struct {
	Entitlements  map[string]bool        `json:"entitlements"`
	Subscriptions []billing.Subscription `json:"subscriptions"`
}

// ForUser builds the report for one user. Free blocks are always granted.
func (s *Entitlements) ForUser(ctx context.Context, userID string) (*EntitlementReport, error) {
	snapshot, err := s.billing.GetBilling(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load entitlements for %s: %w", userID, err)
	}

	access := make(map[string]bool)

	for _, def := range s.registry.Definitions() {
		if def.IsFree() {
			access[def.FeatureSlug] = true

			continue
		}

		access[def.FeatureSlug] = snapshot.HasFeature(def.FeatureSlug)
	}

	return &EntitlementReport{
		Entitlements:  access,
		Subscriptions: snapshot.Subscriptions,
	}, nil
}
