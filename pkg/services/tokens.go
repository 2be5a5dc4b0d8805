package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/blockdeck/blockdeck/pkg/eventbus"
	"github.com/blockdeck/blockdeck/pkg/models"
	"github.com/blockdeck/blockdeck/pkg/persistence"
)

// DefaultTokenBalance is granted to every new account.
const DefaultTokenBalance = 10

// TokenPacks lists the one-time purchase products.
func TokenPacks() []models.TokenPack {
	return []models.TokenPack{
		{ID: "starter", Name: "Starter Pack", Tokens: 100, PriceUSD: 5, PriceSlug: "starter_pack"},
		{ID: "pro", Name: "Pro Pack", Tokens: 500, PriceUSD: 20, PriceSlug: "pro_pack"},
	}
}

// TokenSubscriptions lists the recurring token plans.
func TokenSubscriptions() []models.TokenSubscription {
	return []models.TokenSubscription{
		{ID: "monthly", Name: "Monthly Plan", TokensPerPeriod: 200, PriceUSD: 10, PriceSlug: "monthly_plan", Interval: models.IntervalMonth},
		{ID: "weekly", Name: "Weekly Plan", TokensPerPeriod: 50, PriceUSD: 3, PriceSlug: "weekly_plan", Interval: models.IntervalWeek},
	}
}

// TokenProduct is either a pack or a subscription resolved by price slug.
type TokenProduct struct {
	Tokens       int
	Subscription bool
	Interval     models.SubscriptionInterval
}

// TokenProductByPriceSlug resolves a checkout price slug to its token grant.
func TokenProductByPriceSlug(priceSlug string) (TokenProduct, bool) {
	for _, pack := range TokenPacks() {
		if pack.PriceSlug == priceSlug {
			return TokenProduct{Tokens: pack.Tokens}, true
		}
	}

	for _, sub := range TokenSubscriptions() {
		if sub.PriceSlug == priceSlug {
			return TokenProduct{Tokens: sub.TokensPerPeriod, Subscription: true, Interval: sub.Interval}, true
		}
	}

	return TokenProduct{}, false
}

// Tokens is the token ledger service. Accounts are created lazily with the
// default balance on first touch.
type Tokens struct {
	repo   persistence.TokenRepository
	bus    eventbus.EventPublisher
	logger *slog.Logger
}

func NewTokens(repo persistence.TokenRepository) *Tokens {
	return &Tokens{
		repo:   repo,
		logger: slog.With("module", "token_service"),
	}
}

// WithEventBus attaches a publisher for token ledger events.
func (s *Tokens) WithEventBus(bus eventbus.EventPublisher) *Tokens {
	s.bus = bus

	return s
}

// Account returns the user's token account, initializing a fresh one with
// the default balance if none exists yet.
func (s *Tokens) Account(ctx context.Context, userID string) (*models.TokenAccount, error) {
	account, err := s.repo.Get(ctx, userID)
	if err == nil {
		return account, nil
	}

	if !persistence.IsTokenAccountNotFound(err) {
		return nil, fmt.Errorf("failed to load token account for %s: %w", userID, err)
	}

	account = &models.TokenAccount{
		UserID:      userID,
		Balance:     DefaultTokenBalance,
		LastRefresh: time.Now().UTC(),
	}

	if err := s.repo.Put(ctx, account); err != nil {
		return nil, fmt.Errorf("failed to initialize token account for %s: %w", userID, err)
	}

	return account, nil
}

// Balance returns the user's current token balance.
func (s *Tokens) Balance(ctx context.Context, userID string) (int, error) {
	account, err := s.Account(ctx, userID)
	if err != nil {
		return 0, err
	}

	return account.Balance, nil
}

// Deduct spends tokens for a block run. The balance never goes negative.
func (s *Tokens) Deduct(ctx context.Context, userID string, amount int, blockID string) (int, error) {
	account, err := s.Account(ctx, userID)
	if err != nil {
		return 0, err
	}

	if account.Balance < amount {
		return account.Balance, fmt.Errorf("need %d tokens, have %d: %w", amount, account.Balance, ErrInsufficientTokens)
	}

	account.Balance -= amount

	if err := s.repo.Put(ctx, account); err != nil {
		return 0, fmt.Errorf("failed to persist token deduction for %s: %w", userID, err)
	}

	s.logger.Info("Deducted tokens", "user_id", userID, "amount", amount, "block_id", blockID, "new_balance", account.Balance)
	s.publish(ctx, userID, eventbus.TokensDeducted{
		BaseEvent:  s.baseEvent(eventbus.TokensDeductedEvent, userID),
		Amount:     amount,
		BlockID:    blockID,
		NewBalance: account.Balance,
	})

	return account.Balance, nil
}

// Credit adds tokens to the user's balance.
func (s *Tokens) Credit(ctx context.Context, userID string, amount int, reason string) (int, error) {
	account, err := s.Account(ctx, userID)
	if err != nil {
		return 0, err
	}

	account.Balance += amount

	if err := s.repo.Put(ctx, account); err != nil {
		return 0, fmt.Errorf("failed to persist token credit for %s: %w", userID, err)
	}

	s.logger.Info("Credited tokens", "user_id", userID, "amount", amount, "reason", reason, "new_balance", account.Balance)
	s.publish(ctx, userID, eventbus.TokensCredited{
		BaseEvent:  s.baseEvent(eventbus.TokensCreditedEvent, userID),
		Amount:     amount,
		Reason:     reason,
		NewBalance: account.Balance,
	})

	return account.Balance, nil
}

// CreditPurchase credits a billing purchase exactly once. Replays of the
// same purchase ID are acknowledged without a second credit.
func (s *Tokens) CreditPurchase(ctx context.Context, userID, purchaseID string, amount int, reason string) (credited bool, newBalance int, err error) {
	account, err := s.Account(ctx, userID)
	if err != nil {
		return false, 0, err
	}

	if account.HasCredited(purchaseID) {
		return false, account.Balance, nil
	}

	account.Balance += amount
	account.CreditedPurchases = append(account.CreditedPurchases, purchaseID)

	if err := s.repo.Put(ctx, account); err != nil {
		return false, 0, fmt.Errorf("failed to persist purchase credit for %s: %w", userID, err)
	}

	s.logger.Info("Credited purchase", "user_id", userID, "purchase_id", purchaseID, "amount", amount, "new_balance", account.Balance)
	s.publish(ctx, userID, eventbus.TokensCredited{
		BaseEvent:  s.baseEvent(eventbus.TokensCreditedEvent, userID),
		Amount:     amount,
		Reason:     reason,
		NewBalance: account.Balance,
	})

	return true, account.Balance, nil
}

// SetSubscription records an active subscription and credits its first
// period of tokens.
func (s *Tokens) SetSubscription(ctx context.Context, userID, subscriptionID string, interval models.SubscriptionInterval, tokensPerPeriod int) error {
	account, err := s.Account(ctx, userID)
	if err != nil {
		return err
	}

	account.SubscriptionID = subscriptionID
	account.SubscriptionInterval = interval
	account.LastRefresh = time.Now().UTC()
	account.Balance += tokensPerPeriod

	if err := s.repo.Put(ctx, account); err != nil {
		return fmt.Errorf("failed to persist subscription for %s: %w", userID, err)
	}

	s.logger.Info("Subscription activated", "user_id", userID, "subscription_id", subscriptionID, "interval", interval)
	s.publish(ctx, userID, eventbus.TokensCredited{
		BaseEvent:  s.baseEvent(eventbus.TokensCreditedEvent, userID),
		Amount:     tokensPerPeriod,
		Reason:     "subscription activated",
		NewBalance: account.Balance,
	})

	return nil
}

// CancelSubscription detaches the subscription. The remaining balance stays.
func (s *Tokens) CancelSubscription(ctx context.Context, userID string) error {
	account, err := s.Account(ctx, userID)
	if err != nil {
		return err
	}

	account.SubscriptionID = ""
	account.SubscriptionInterval = ""

	if err := s.repo.Put(ctx, account); err != nil {
		return fmt.Errorf("failed to persist subscription cancellation for %s: %w", userID, err)
	}

	s.logger.Info("Subscription cancelled", "user_id", userID)

	return nil
}

// RefreshSubscription credits a new period of subscription tokens.
func (s *Tokens) RefreshSubscription(ctx context.Context, userID string, tokensPerPeriod int) error {
	account, err := s.Account(ctx, userID)
	if err != nil {
		return err
	}

	account.Balance += tokensPerPeriod
	account.LastRefresh = time.Now().UTC()

	if err := s.repo.Put(ctx, account); err != nil {
		return fmt.Errorf("failed to persist subscription refresh for %s: %w", userID, err)
	}

	s.logger.Info("Subscription refreshed", "user_id", userID, "amount", tokensPerPeriod, "new_balance", account.Balance)
	s.publish(ctx, userID, eventbus.TokensCredited{
		BaseEvent:  s.baseEvent(eventbus.TokensCreditedEvent, userID),
		Amount:     tokensPerPeriod,
		Reason:     "subscription refresh",
		NewBalance: account.Balance,
	})

	return nil
}

func (s *Tokens) baseEvent(t eventbus.EventType, userID string) eventbus.BaseEvent {
	return eventbus.BaseEvent{
		Type:      t,
		Timestamp: time.Now().UTC(),
		UserID:    userID,
	}
}

func (s *Tokens) publish(ctx context.Context, userID string, event eventbus.Event) {
	if s.bus == nil {
		return
	}

	if err := s.bus.Publish(ctx, userID, event); err != nil {
		s.logger.Warn("Failed to publish token event", "event_type", event.GetType(), "error", err)
	}
}
