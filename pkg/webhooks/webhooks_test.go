package webhooks_test

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blockdeck/blockdeck/pkg/models"
	"github.com/blockdeck/blockdeck/pkg/persistence/file"
	"github.com/blockdeck/blockdeck/pkg/services"
	"github.com/blockdeck/blockdeck/pkg/webhooks"
)

func testSecret() string {
	return "whsec_" + base64.StdEncoding.EncodeToString([]byte("test-signing-key"))
}

func testVerifier(t *testing.T) *webhooks.Verifier {
	t.Helper()

	verifier, err := webhooks.NewVerifier(testSecret())
	require.NoError(t, err)

	return verifier
}

func encodeEvent(t *testing.T, event webhooks.Event) []byte {
	t.Helper()

	body, err := json.Marshal(event)
	require.NoError(t, err)

	return body
}

func TestNewVerifierRejectsBadSecrets(t *testing.T) {
	_, err := webhooks.NewVerifier("plain-secret")
	assert.Error(t, err)

	_, err = webhooks.NewVerifier("whsec_not!!base64")
	assert.Error(t, err)
}

func TestVerifyAcceptsSignedDelivery(t *testing.T) {
	verifier := testVerifier(t)
	body := []byte(`{"id":"evt_1","type":"payment.succeeded"}`)

	now := time.Now()
	ts, sig := verifier.Sign(body, "msg_1", now)

	assert.NoError(t, verifier.Verify(body, "msg_1", ts, sig, now))
}

func TestVerifyRejectsTamperedBody(t *testing.T) {
	verifier := testVerifier(t)
	body := []byte(`{"id":"evt_1"}`)

	now := time.Now()
	ts, sig := verifier.Sign(body, "msg_1", now)

	err := verifier.Verify([]byte(`{"id":"evt_2"}`), "msg_1", ts, sig, now)
	require.Error(t, err)
	assert.True(t, webhooks.IsVerificationError(err))
}

func TestVerifyRejectsMissingHeaders(t *testing.T) {
	verifier := testVerifier(t)

	err := verifier.Verify([]byte(`{}`), "", "", "", time.Now())
	assert.True(t, webhooks.IsVerificationError(err))
}

func TestVerifyRejectsBadSignatureFormat(t *testing.T) {
	verifier := testVerifier(t)
	body := []byte(`{}`)

	now := time.Now()
	ts, _ := verifier.Sign(body, "msg_1", now)

	for _, sig := range []string{"no-version", "v2,abcd", "v1,"} {
		err := verifier.Verify(body, "msg_1", ts, sig, now)
		assert.True(t, webhooks.IsVerificationError(err), "signature %q", sig)
	}
}

func TestVerifyRejectsStaleAndFutureTimestamps(t *testing.T) {
	verifier := testVerifier(t)
	body := []byte(`{}`)
	now := time.Now()

	ts, sig := verifier.Sign(body, "msg_1", now.Add(-10*time.Minute))
	err := verifier.Verify(body, "msg_1", ts, sig, now)
	assert.True(t, webhooks.IsVerificationError(err))

	ts, sig = verifier.Sign(body, "msg_1", now.Add(5*time.Minute))
	err = verifier.Verify(body, "msg_1", ts, sig, now)
	assert.True(t, webhooks.IsVerificationError(err))
}

func TestMemoryIdempotencyStoreExpires(t *testing.T) {
	ctx := context.Background()
	store := webhooks.NewMemoryIdempotencyStore().WithTTL(time.Millisecond)

	require.NoError(t, store.Record(ctx, "msg_1"))

	seen, err := store.Seen(ctx, "msg_1")
	require.NoError(t, err)
	assert.True(t, seen)

	time.Sleep(5 * time.Millisecond)

	seen, err = store.Seen(ctx, "msg_1")
	require.NoError(t, err)
	assert.False(t, seen)
}

func newTestProcessor(t *testing.T) (*webhooks.Processor, *webhooks.Verifier, *services.Tokens) {
	t.Helper()

	persistence := file.NewPersistence(t.TempDir())
	t.Cleanup(func() { _ = persistence.Close(context.Background()) })

	tokens := services.NewTokens(persistence.TokenRepository())

	verifier := testVerifier(t)
	processor := webhooks.NewProcessor(verifier, webhooks.NewMemoryIdempotencyStore(), slog.Default())
	webhooks.RegisterBillingHandlers(processor, tokens, slog.Default())

	return processor, verifier, tokens
}

func deliver(t *testing.T, p *webhooks.Processor, verifier *webhooks.Verifier, deliveryID string, event webhooks.Event) *webhooks.Result {
	t.Helper()

	body := encodeEvent(t, event)
	ts, sig := verifier.Sign(body, deliveryID, time.Now())

	result, err := p.Process(context.Background(), body, deliveryID, ts, sig)
	require.NoError(t, err)

	return result
}

func TestProcessRejectsUnsignedDelivery(t *testing.T) {
	processor, _, _ := newTestProcessor(t)

	_, err := processor.Process(context.Background(), []byte(`{}`), "msg_1", "0", "v1,bogus")
	assert.True(t, webhooks.IsVerificationError(err))
}

func TestPaymentSucceededCreditsPack(t *testing.T) {
	processor, verifier, tokens := newTestProcessor(t)

	result := deliver(t, processor, verifier, "msg_1", webhooks.Event{
		ID:         "evt_1",
		Type:       webhooks.EventPaymentSucceeded,
		Customer:   webhooks.Customer{ID: "cus_1", ExternalID: "user-1"},
		PriceSlug:  "starter_pack",
		PurchaseID: "pur_1",
	})
	assert.False(t, result.Duplicate)

	balance, err := tokens.Balance(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, services.DefaultTokenBalance+100, balance)
}

func TestDuplicateDeliveryCreditsOnce(t *testing.T) {
	processor, verifier, tokens := newTestProcessor(t)

	event := webhooks.Event{
		ID:         "evt_1",
		Type:       webhooks.EventPaymentSucceeded,
		Customer:   webhooks.Customer{ExternalID: "user-1"},
		PriceSlug:  "starter_pack",
		PurchaseID: "pur_1",
	}

	first := deliver(t, processor, verifier, "msg_1", event)
	second := deliver(t, processor, verifier, "msg_1", event)

	assert.False(t, first.Duplicate)
	assert.True(t, second.Duplicate)

	balance, err := tokens.Balance(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, services.DefaultTokenBalance+100, balance)
}

func TestRetriedPaymentWithNewDeliveryIDCreditsOnce(t *testing.T) {
	processor, verifier, tokens := newTestProcessor(t)

	event := webhooks.Event{
		ID:         "evt_1",
		Type:       webhooks.EventPaymentSucceeded,
		Customer:   webhooks.Customer{ExternalID: "user-1"},
		PriceSlug:  "pro_pack",
		PurchaseID: "pur_1",
	}

	deliver(t, processor, verifier, "msg_1", event)
	deliver(t, processor, verifier, "msg_2", event)

	balance, err := tokens.Balance(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, services.DefaultTokenBalance+500, balance)
}

func TestSubscriptionLifecycle(t *testing.T) {
	processor, verifier, tokens := newTestProcessor(t)
	ctx := context.Background()

	deliver(t, processor, verifier, "msg_1", webhooks.Event{
		ID:             "evt_1",
		Type:           webhooks.EventSubscriptionCreated,
		Customer:       webhooks.Customer{ExternalID: "user-1"},
		PriceSlug:      "monthly_plan",
		SubscriptionID: "sub_1",
	})

	account, err := tokens.Account(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, "sub_1", account.SubscriptionID)
	assert.Equal(t, models.IntervalMonth, account.SubscriptionInterval)
	assert.Equal(t, services.DefaultTokenBalance+200, account.Balance)

	deliver(t, processor, verifier, "msg_2", webhooks.Event{
		ID:             "evt_2",
		Type:           webhooks.EventSubscriptionCanceled,
		Customer:       webhooks.Customer{ExternalID: "user-1"},
		SubscriptionID: "sub_1",
	})

	account, err = tokens.Account(ctx, "user-1")
	require.NoError(t, err)
	assert.Empty(t, account.SubscriptionID)
	assert.Equal(t, services.DefaultTokenBalance+200, account.Balance, "balance survives cancellation")
}

func TestUnknownEventTypeIsAcknowledged(t *testing.T) {
	processor, verifier, _ := newTestProcessor(t)

	result := deliver(t, processor, verifier, "msg_1", webhooks.Event{
		ID:   "evt_1",
		Type: "customer.created",
	})
	assert.False(t, result.Duplicate)
}

func TestUnknownPriceSlugIsAcknowledged(t *testing.T) {
	processor, verifier, tokens := newTestProcessor(t)

	deliver(t, processor, verifier, "msg_1", webhooks.Event{
		ID:        "evt_1",
		Type:      webhooks.EventPaymentSucceeded,
		Customer:  webhooks.Customer{ExternalID: "user-1"},
		PriceSlug: "mystery_plan",
	})

	balance, err := tokens.Balance(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, services.DefaultTokenBalance, balance)
}
