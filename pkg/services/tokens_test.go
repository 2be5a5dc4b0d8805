package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blockdeck/blockdeck/pkg/models"
	"github.com/blockdeck/blockdeck/pkg/persistence/file"
)

func newTokenService(t *testing.T) *Tokens {
	t.Helper()

	return NewTokens(file.NewPersistence(t.TempDir()).TokenRepository())
}

func TestTokensNewAccountStartsWithDefaultBalance(t *testing.T) {
	svc := newTokenService(t)

	balance, err := svc.Balance(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, DefaultTokenBalance, balance)
}

func TestTokensDeduct(t *testing.T) {
	svc := newTokenService(t)
	ctx := context.Background()

	newBalance, err := svc.Deduct(ctx, "user-1", 3, "summarize-text")
	require.NoError(t, err)
	assert.Equal(t, 7, newBalance)

	_, err = svc.Deduct(ctx, "user-1", 100, "summarize-text")
	require.ErrorIs(t, err, ErrInsufficientTokens)

	// A failed deduction leaves the balance unchanged.
	balance, err := svc.Balance(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, 7, balance)
}

func TestTokensCredit(t *testing.T) {
	svc := newTokenService(t)

	newBalance, err := svc.Credit(context.Background(), "user-1", 100, "starter pack")
	require.NoError(t, err)
	assert.Equal(t, DefaultTokenBalance+100, newBalance)
}

func TestTokensCreditPurchaseIsIdempotent(t *testing.T) {
	svc := newTokenService(t)
	ctx := context.Background()

	credited, balance, err := svc.CreditPurchase(ctx, "user-1", "purchase-1", 100, "starter pack")
	require.NoError(t, err)
	assert.True(t, credited)
	assert.Equal(t, DefaultTokenBalance+100, balance)

	// Replaying the same purchase does not credit twice.
	credited, balance, err = svc.CreditPurchase(ctx, "user-1", "purchase-1", 100, "starter pack")
	require.NoError(t, err)
	assert.False(t, credited)
	assert.Equal(t, DefaultTokenBalance+100, balance)
}

func TestTokensSubscriptionLifecycle(t *testing.T) {
	svc := newTokenService(t)
	ctx := context.Background()

	require.NoError(t, svc.SetSubscription(ctx, "user-1", "sub-1", models.IntervalMonth, 200))

	account, err := svc.Account(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, "sub-1", account.SubscriptionID)
	assert.Equal(t, models.IntervalMonth, account.SubscriptionInterval)
	assert.Equal(t, DefaultTokenBalance+200, account.Balance)

	require.NoError(t, svc.RefreshSubscription(ctx, "user-1", 200))

	account, err = svc.Account(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, DefaultTokenBalance+400, account.Balance)

	require.NoError(t, svc.CancelSubscription(ctx, "user-1"))

	account, err = svc.Account(ctx, "user-1")
	require.NoError(t, err)
	assert.Empty(t, account.SubscriptionID)
	// The balance survives cancellation.
	assert.Equal(t, DefaultTokenBalance+400, account.Balance)
}

func TestTokenProductByPriceSlug(t *testing.T) {
	product, ok := TokenProductByPriceSlug("starter_pack")
	require.True(t, ok)
	assert.Equal(t, 100, product.Tokens)
	assert.False(t, product.Subscription)

	product, ok = TokenProductByPriceSlug("weekly_plan")
	require.True(t, ok)
	assert.Equal(t, 50, product.Tokens)
	assert.True(t, product.Subscription)
	assert.Equal(t, models.IntervalWeek, product.Interval)

	_, ok = TokenProductByPriceSlug("free_lunch")
	assert.False(t, ok)
}
