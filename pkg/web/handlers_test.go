package web_test

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blockdeck/blockdeck/pkg/billing"
	"github.com/blockdeck/blockdeck/pkg/blocks"
	"github.com/blockdeck/blockdeck/pkg/models"
	"github.com/blockdeck/blockdeck/pkg/persistence/file"
	"github.com/blockdeck/blockdeck/pkg/registry"
	"github.com/blockdeck/blockdeck/pkg/run"
	"github.com/blockdeck/blockdeck/pkg/services"
	"github.com/blockdeck/blockdeck/pkg/web"
	"github.com/blockdeck/blockdeck/pkg/webhooks"
)

type testEnv struct {
	app      *fiber.App
	tokens   *services.Tokens
	billing  *billing.DemoClient
	verifier *webhooks.Verifier
}

func setupTestApp(t *testing.T) *testEnv {
	t.Helper()

	persistence := file.NewPersistence(t.TempDir())
	t.Cleanup(func() { _ = persistence.Close(context.Background()) })

	reg := registry.NewRegistry(slog.Default())
	require.NoError(t, blocks.RegisterAll(reg, blocks.NewDemoModel(), http.DefaultClient))

	billingClient := billing.NewDemoClient(false)
	workflows := services.NewWorkflows(persistence)
	tokens := services.NewTokens(persistence.TokenRepository())
	entitlements := services.NewEntitlements(billingClient, reg)
	runner := blocks.NewRunner(reg, billingClient, billingClient, tokens)

	sessions := run.NewSessionStore(runner.ForUser, reg.Definition, run.Options{})
	t.Cleanup(sessions.Close)

	secret := "whsec_" + base64.StdEncoding.EncodeToString([]byte("test-key"))
	verifier, err := webhooks.NewVerifier(secret)
	require.NoError(t, err)

	processor := webhooks.NewProcessor(verifier, webhooks.NewMemoryIdempotencyStore(), slog.Default())
	webhooks.RegisterBillingHandlers(processor, tokens, slog.Default())

	handlers := web.NewAPIHandlers(workflows, tokens, entitlements, billingClient, runner, sessions, reg, slog.Default()).
		WithWebhookProcessor(processor).
		WithDemoMode(true)

	app := fiber.New()
	web.RegisterRoutes(app, handlers)

	return &testEnv{app: app, tokens: tokens, billing: billingClient, verifier: verifier}
}

func doJSON(t *testing.T, app *fiber.App, method, path, userID string, body any) (*http.Response, []byte) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")

	if userID != "" {
		req.Header.Set("X-User-Id", userID)
	}

	resp, err := app.Test(req)
	require.NoError(t, err)

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	_ = resp.Body.Close()

	return resp, data
}

func TestMissingPrincipalIsRejected(t *testing.T) {
	env := setupTestApp(t)

	resp, _ := doJSON(t, env.app, http.MethodGet, "/api/workflows", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestWorkflowLifecycle(t *testing.T) {
	env := setupTestApp(t)

	resp, body := doJSON(t, env.app, http.MethodPost, "/api/workflows", "user-1", web.CreateWorkflowRequest{
		Name:        "Email digest",
		Description: "Summarize and send",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))

	var created models.Workflow
	require.NoError(t, json.Unmarshal(body, &created))
	assert.Equal(t, "user-1", created.OwnerID)
	assert.NotEmpty(t, created.ID)

	resp, body = doJSON(t, env.app, http.MethodGet, "/api/workflows/"+created.ID, "user-2", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, "marketplace read is public")

	var fetched models.Workflow
	require.NoError(t, json.Unmarshal(body, &fetched))
	assert.Equal(t, "Email digest", fetched.Name)

	newName := "Email digest v2"
	resp, _ = doJSON(t, env.app, http.MethodPatch, "/api/workflows/"+created.ID, "user-1", web.UpdateWorkflowRequest{Name: &newName})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = doJSON(t, env.app, http.MethodPatch, "/api/workflows/"+created.ID, "user-2", web.UpdateWorkflowRequest{Name: &newName})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode, "non-owner update looks like a missing workflow")

	resp, _ = doJSON(t, env.app, http.MethodDelete, "/api/workflows/"+created.ID, "user-1", nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, _ = doJSON(t, env.app, http.MethodGet, "/api/workflows/"+created.ID, "user-1", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestCreateWorkflowValidation(t *testing.T) {
	env := setupTestApp(t)

	resp, _ := doJSON(t, env.app, http.MethodPost, "/api/workflows", "user-1", web.CreateWorkflowRequest{Description: "no name"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestIncludeCycleRejectedWithCode(t *testing.T) {
	env := setupTestApp(t)

	_, body := doJSON(t, env.app, http.MethodPost, "/api/workflows", "user-1", web.CreateWorkflowRequest{Name: "A"})

	var a models.Workflow
	require.NoError(t, json.Unmarshal(body, &a))

	resp, body := doJSON(t, env.app, http.MethodPost, "/api/workflows", "user-1", web.CreateWorkflowRequest{
		Name:     "B",
		Includes: []string{a.ID},
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var b models.Workflow
	require.NoError(t, json.Unmarshal(body, &b))

	includes := []string{b.ID}
	resp, body = doJSON(t, env.app, http.MethodPatch, "/api/workflows/"+a.ID, "user-1", web.UpdateWorkflowRequest{Includes: &includes})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, string(body), "CYCLE_DETECTED")

	selfIncludes := []string{a.ID}
	resp, body = doJSON(t, env.app, http.MethodPatch, "/api/workflows/"+a.ID, "user-1", web.UpdateWorkflowRequest{Includes: &selfIncludes})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, string(body), "SELF_REFERENCE")
}

func TestRunFreeBlock(t *testing.T) {
	env := setupTestApp(t)

	resp, body := doJSON(t, env.app, http.MethodPost, "/api/run-block", "user-1", web.RunBlockRequest{
		BlockID: "text-join",
		Inputs:  map[string]string{"text1": "a", "text2": "b", "separator": "-"},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

	var out web.RunBlockResponse
	require.NoError(t, json.Unmarshal(body, &out))
	assert.True(t, out.Success)
	assert.Equal(t, "a-b", out.Outputs["combined"].String())
}

func TestRunLockedBlockReturnsSlugs(t *testing.T) {
	env := setupTestApp(t)

	resp, body := doJSON(t, env.app, http.MethodPost, "/api/run-block", "user-1", web.RunBlockRequest{
		BlockID: "summarize-text",
		Inputs:  map[string]string{"text": "Hello there. More."},
	})
	require.Equal(t, http.StatusForbidden, resp.StatusCode)

	var problem map[string]any
	require.NoError(t, json.Unmarshal(body, &problem))
	assert.Equal(t, "summarize_text", problem["featureSlug"])
	assert.Equal(t, "summarize_text", problem["priceSlug"])
}

func TestRunPaidBlockWithoutTokensReturns402(t *testing.T) {
	env := setupTestApp(t)
	env.billing.Grant("user-1", "summarize_text")

	// Burn the default balance.
	_, err := env.tokens.Deduct(t.Context(), "user-1", services.DefaultTokenBalance, "summarize-text")
	require.NoError(t, err)

	resp, body := doJSON(t, env.app, http.MethodPost, "/api/run-block", "user-1", web.RunBlockRequest{
		BlockID: "summarize-text",
		Inputs:  map[string]string{"text": "Hello there. More."},
	})
	require.Equal(t, http.StatusPaymentRequired, resp.StatusCode)

	var problem map[string]any
	require.NoError(t, json.Unmarshal(body, &problem))
	assert.Equal(t, true, problem["needsPurchase"])
	assert.Equal(t, float64(0), problem["currentBalance"])
}

func TestRunUnknownBlockIs404(t *testing.T) {
	env := setupTestApp(t)

	resp, _ := doJSON(t, env.app, http.MethodPost, "/api/run-block", "user-1", web.RunBlockRequest{BlockID: "nope"})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func flowGraph() web.RunFlowRequest {
	return web.RunFlowRequest{
		Nodes: []models.Node{
			{ID: "n1", BlockID: "constant", Label: "Greeting"},
			{ID: "n2", BlockID: "text-join", Label: "Join"},
		},
		Edges: []models.Edge{
			{ID: "e1", Source: "n1", SourceOutput: "value", Target: "n2", TargetInput: "text1"},
		},
		EntryValues: run.EntryValues{
			"n1": {"value": "hi"},
			"n2": {"text2": "there", "separator": " "},
		},
	}
}

func TestPlanFlowReturnsOrderAndEntryInputs(t *testing.T) {
	env := setupTestApp(t)
	graph := flowGraph()

	resp, body := doJSON(t, env.app, http.MethodPost, "/api/flows/plan", "user-1", web.PlanFlowRequest{
		Nodes: graph.Nodes,
		Edges: graph.Edges,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

	var plan struct {
		Order       []string `json:"order"`
		EntryInputs []struct {
			NodeID   string `json:"node_id"`
			InputKey string `json:"input_key"`
		} `json:"entry_inputs"`
	}
	require.NoError(t, json.Unmarshal(body, &plan))
	assert.Equal(t, []string{"n1", "n2"}, plan.Order)
	assert.NotEmpty(t, plan.EntryInputs)
}

func TestPlanFlowCycleDetected(t *testing.T) {
	env := setupTestApp(t)

	resp, body := doJSON(t, env.app, http.MethodPost, "/api/flows/plan", "user-1", web.PlanFlowRequest{
		Nodes: []models.Node{
			{ID: "n1", BlockID: "text-join"},
			{ID: "n2", BlockID: "text-join"},
		},
		Edges: []models.Edge{
			{Source: "n1", SourceOutput: "combined", Target: "n2", TargetInput: "text1"},
			{Source: "n2", SourceOutput: "combined", Target: "n1", TargetInput: "text1"},
		},
	})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, string(body), "CYCLE_DETECTED")
}

func TestRunFlowExecutesAndCachesOutputs(t *testing.T) {
	env := setupTestApp(t)

	resp, body := doJSON(t, env.app, http.MethodPost, "/api/flows/run", "user-1", flowGraph())
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

	var result run.Result
	require.NoError(t, json.Unmarshal(body, &result))
	assert.Equal(t, run.StateCompleted, result.State)
	require.Len(t, result.Results, 2)
	assert.Equal(t, "hi there", result.Results[1].Outputs["combined"].String())

	resp, _ = doJSON(t, env.app, http.MethodDelete, "/api/flows/cache", "user-1", nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
}

func TestTokenEndpoints(t *testing.T) {
	env := setupTestApp(t)

	resp, body := doJSON(t, env.app, http.MethodGet, "/api/tokens", "user-1", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var account struct {
		Balance int `json:"balance"`
	}
	require.NoError(t, json.Unmarshal(body, &account))
	assert.Equal(t, services.DefaultTokenBalance, account.Balance)

	resp, body = doJSON(t, env.app, http.MethodGet, "/api/tokens/products", "user-1", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "starter_pack")
	assert.Contains(t, string(body), "monthly_plan")
}

func TestPurchaseTokensInDemoModeCreditsDirectly(t *testing.T) {
	env := setupTestApp(t)

	resp, body := doJSON(t, env.app, http.MethodPost, "/api/tokens/purchase", "user-1", web.PurchaseRequest{PriceSlug: "starter_pack"})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

	var out struct {
		Balance  int  `json:"balance"`
		Credited bool `json:"credited"`
	}
	require.NoError(t, json.Unmarshal(body, &out))
	assert.True(t, out.Credited)
	assert.Equal(t, services.DefaultTokenBalance+100, out.Balance)
}

func TestPurchaseUnknownPriceSlug(t *testing.T) {
	env := setupTestApp(t)

	resp, _ := doJSON(t, env.app, http.MethodPost, "/api/tokens/purchase", "user-1", web.PurchaseRequest{PriceSlug: "mystery"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestEntitlementsReport(t *testing.T) {
	env := setupTestApp(t)
	env.billing.Grant("user-1", "summarize_text")

	resp, body := doJSON(t, env.app, http.MethodGet, "/api/entitlements", "user-1", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var report services.EntitlementReport
	require.NoError(t, json.Unmarshal(body, &report))
	assert.True(t, report.Entitlements["summarize_text"])
	assert.True(t, report.Entitlements[models.FreeFeatureSlug], "free blocks are always entitled")
	assert.False(t, report.Entitlements["translate_text"])
}

func TestWebhookEndpoint(t *testing.T) {
	env := setupTestApp(t)

	event := webhooks.Event{
		ID:         "evt_1",
		Type:       webhooks.EventPaymentSucceeded,
		Customer:   webhooks.Customer{ExternalID: "user-1"},
		PriceSlug:  "starter_pack",
		PurchaseID: "pur_1",
	}
	body, err := json.Marshal(event)
	require.NoError(t, err)

	ts, sig := env.verifier.Sign(body, "msg_1", time.Now())

	req := httptest.NewRequest(http.MethodPost, "/api/webhook", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("svix-id", "msg_1")
	req.Header.Set("svix-timestamp", ts)
	req.Header.Set("svix-signature", sig)

	resp, err := env.app.Test(req)
	require.NoError(t, err)

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	_ = resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode, string(data))

	balance, err := env.tokens.Balance(t.Context(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, services.DefaultTokenBalance+100, balance)

	// Unsigned delivery is rejected.
	req = httptest.NewRequest(http.MethodPost, "/api/webhook", bytes.NewReader(body))
	resp, err = env.app.Test(req)
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestHealthEndpoint(t *testing.T) {
	env := setupTestApp(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	resp, err := env.app.Test(req)
	require.NoError(t, err)
	_ = resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
