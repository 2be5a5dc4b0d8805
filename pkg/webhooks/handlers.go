package webhooks

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/blockdeck/blockdeck/pkg/services"
)

// RegisterBillingHandlers wires the token ledger to billing events: one-time
// purchases credit packs idempotently, subscription lifecycle events switch
// the account's recurring grant on and off.
func RegisterBillingHandlers(p *Processor, tokens *services.Tokens, logger *slog.Logger) {
	logger = logger.With("module", "webhooks")

	credit := func(ctx context.Context, event *Event) error {
		userID := event.Customer.ExternalID
		if userID == "" {
			return fmt.Errorf("event %s has no customer external id", event.ID)
		}

		product, ok := services.TokenProductByPriceSlug(event.PriceSlug)
		if !ok {
			logger.WarnContext(ctx, "Payment for unknown price slug", "price_slug", event.PriceSlug, "user_id", userID)

			return nil
		}

		if product.Subscription {
			return tokens.SetSubscription(ctx, userID, event.SubscriptionID, product.Interval, product.Tokens)
		}

		purchaseID := event.PurchaseID
		if purchaseID == "" {
			purchaseID = event.ID
		}

		credited, balance, err := tokens.CreditPurchase(ctx, userID, purchaseID, product.Tokens, event.PriceSlug)
		if err != nil {
			return err
		}

		if !credited {
			logger.InfoContext(ctx, "Purchase already credited", "purchase_id", purchaseID, "user_id", userID)

			return nil
		}

		logger.InfoContext(ctx, "Credited token purchase",
			"purchase_id", purchaseID, "user_id", userID, "tokens", product.Tokens, "balance", balance)

		return nil
	}

	p.On(EventPaymentSucceeded, credit)
	p.On(EventPurchaseCompleted, credit)

	p.On(EventPaymentFailed, func(ctx context.Context, event *Event) error {
		logger.WarnContext(ctx, "Payment failed",
			"user_id", event.Customer.ExternalID, "price_slug", event.PriceSlug, "reason", event.FailureReason)

		return nil
	})

	subscribe := func(ctx context.Context, event *Event) error {
		userID := event.Customer.ExternalID
		if userID == "" {
			return fmt.Errorf("event %s has no customer external id", event.ID)
		}

		product, ok := services.TokenProductByPriceSlug(event.PriceSlug)
		if !ok || !product.Subscription {
			logger.WarnContext(ctx, "Subscription event for unknown price slug", "price_slug", event.PriceSlug, "user_id", userID)

			return nil
		}

		return tokens.SetSubscription(ctx, userID, event.SubscriptionID, product.Interval, product.Tokens)
	}

	p.On(EventSubscriptionCreated, subscribe)
	p.On(EventSubscriptionUpdated, subscribe)

	p.On(EventSubscriptionCanceled, func(ctx context.Context, event *Event) error {
		userID := event.Customer.ExternalID
		if userID == "" {
			return fmt.Errorf("event %s has no customer external id", event.ID)
		}

		return tokens.CancelSubscription(ctx, userID)
	})
}
