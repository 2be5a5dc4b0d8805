// Package web provides the HTTP handlers for the block marketplace API.
package web

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"

	"github.com/blockdeck/blockdeck/pkg/billing"
	"github.com/blockdeck/blockdeck/pkg/blocks"
	"github.com/blockdeck/blockdeck/pkg/models"
	"github.com/blockdeck/blockdeck/pkg/persistence"
	"github.com/blockdeck/blockdeck/pkg/run"
	"github.com/blockdeck/blockdeck/pkg/services"
	"github.com/blockdeck/blockdeck/pkg/webhooks"
)

const principalKey = "user_id"

// RequirePrincipal resolves the acting user from the X-User-Id header.
// Authentication proper sits in front of this API; the header carries the
// already-authenticated identity.
func RequirePrincipal() fiber.Handler {
	return func(c fiber.Ctx) error {
		userID := c.Get("X-User-Id")
		if userID == "" {
			return unauthorized(c, "X-User-Id header is required")
		}

		c.Locals(principalKey, userID)

		return c.Next()
	}
}

func principal(c fiber.Ctx) string {
	userID, _ := c.Locals(principalKey).(string)

	return userID
}

type APIHandlers struct {
	workflows    *services.Workflows
	tokens       *services.Tokens
	entitlements *services.Entitlements
	billing      billing.Client
	runner       *blocks.Runner
	sessions     *run.SessionStore
	blockCatalog BlockCatalog
	validator    *validator.Validate
	logger       *slog.Logger

	webhookProcessor *webhooks.Processor
	execLog          *ExecutionLog
	demoMode         bool
}

// BlockCatalog is the subset of the registry the API reads.
type BlockCatalog interface {
	Definitions() []*models.BlockDefinition
	HealthCheck(ctx context.Context) error
}

func NewAPIHandlers(
	workflows *services.Workflows,
	tokens *services.Tokens,
	entitlements *services.Entitlements,
	billingClient billing.Client,
	runner *blocks.Runner,
	sessions *run.SessionStore,
	catalog BlockCatalog,
	logger *slog.Logger,
) *APIHandlers {
	return &APIHandlers{
		workflows:    workflows,
		tokens:       tokens,
		entitlements: entitlements,
		billing:      billingClient,
		runner:       runner,
		sessions:     sessions,
		blockCatalog: catalog,
		validator:    validator.New(validator.WithRequiredStructEnabled()),
		logger:       logger.With("module", "web"),
	}
}

// WithWebhookProcessor enables the billing webhook endpoint.
func (h *APIHandlers) WithWebhookProcessor(p *webhooks.Processor) *APIHandlers {
	h.webhookProcessor = p

	return h
}

// WithExecutionLog enables the activity log endpoint.
func (h *APIHandlers) WithExecutionLog(l *ExecutionLog) *APIHandlers {
	h.execLog = l

	return h
}

// WithDemoMode makes token purchases credit directly instead of going
// through the billing provider's checkout.
func (h *APIHandlers) WithDemoMode(enabled bool) *APIHandlers {
	h.demoMode = enabled

	return h
}

func (h *APIHandlers) GetBlocks(c fiber.Ctx) error {
	return c.JSON(fiber.Map{"blocks": h.blockCatalog.Definitions()})
}

func (h *APIHandlers) GetWorkflows(c fiber.Ctx) error {
	opts, err := parseListOptions(c)
	if err != nil {
		return badRequest(c, "Invalid query parameters: "+err.Error())
	}

	var result *persistence.WorkflowListResult
	if c.Query("mine") == "true" {
		result, err = h.workflows.ListByOwner(c.Context(), principal(c), opts)
	} else {
		result, err = h.workflows.List(c.Context(), opts)
	}

	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(fiber.Map{
		"workflows":   result.Workflows,
		"next_cursor": result.NextCursor,
		"has_more":    result.HasMore,
	})
}

func parseListOptions(c fiber.Ctx) (persistence.ListOptions, error) {
	opts := persistence.ListOptions{Cursor: c.Query("cursor")}

	if limitStr := c.Query("limit"); limitStr != "" {
		limit, err := strconv.Atoi(limitStr)
		if err != nil {
			return opts, err
		}

		opts.Limit = limit
	}

	return opts, nil
}

func (h *APIHandlers) CreateWorkflow(c fiber.Ctx) error {
	var req CreateWorkflowRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	created, err := h.workflows.Create(c.Context(), principal(c), services.CreateWorkflowRequest{
		Name:        req.Name,
		Description: req.Description,
		Definition:  req.Definition,
		Includes:    req.Includes,
	})
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(created)
}

func (h *APIHandlers) GetWorkflow(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Workflow ID is required")
	}

	workflow, err := h.workflows.GetPublic(c.Context(), id)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(workflow)
}

func (h *APIHandlers) UpdateWorkflow(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Workflow ID is required")
	}

	var req UpdateWorkflowRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	updated, err := h.workflows.Update(c.Context(), principal(c), id, models.WorkflowPatch{
		Name:        req.Name,
		Description: req.Description,
		Definition:  req.Definition,
		Includes:    req.Includes,
	})
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(updated)
}

func (h *APIHandlers) DeleteWorkflow(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Workflow ID is required")
	}

	if err := h.workflows.Delete(c.Context(), principal(c), id); err != nil {
		return handleServiceError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *APIHandlers) RunBlock(c fiber.Ctx) error {
	var req RunBlockRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	outputs, err := h.runner.RunBlockForUser(c.Context(), principal(c), req.BlockID, req.Inputs)
	if err != nil {
		var (
			lockErr *blocks.LockedError
			balErr  *blocks.InsufficientBalanceError
		)

		switch {
		case errors.Is(err, blocks.ErrUnknownBlock):
			return notFound(c, "unknown block: "+req.BlockID)
		case errors.As(err, &lockErr):
			return lockedProblem(c, lockErr)
		case errors.As(err, &balErr):
			return insufficientBalanceProblem(c, balErr)
		default:
			return internalError(c, err)
		}
	}

	return c.JSON(RunBlockResponse{Success: true, Outputs: outputs})
}

func (h *APIHandlers) PlanFlow(c fiber.Ctx) error {
	var req PlanFlowRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	executor := h.sessions.Executor(principal(c))

	plan, err := executor.Plan(&models.FlowGraph{Nodes: req.Nodes, Edges: req.Edges})
	if err != nil {
		return handleRunError(c, err)
	}

	return c.JSON(fiber.Map{
		"order":        plan.Order,
		"entry_inputs": plan.EntryInputs,
		"state":        executor.State(),
	})
}

func (h *APIHandlers) RunFlow(c fiber.Ctx) error {
	var req RunFlowRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	executor := h.sessions.Executor(principal(c))

	result, err := executor.Execute(c.Context(), &models.FlowGraph{Nodes: req.Nodes, Edges: req.Edges}, req.EntryValues)
	if err != nil {
		return handleRunError(c, err)
	}

	return c.JSON(result)
}

func (h *APIHandlers) ClearFlowCache(c fiber.Ctx) error {
	executor := h.sessions.Executor(principal(c))
	executor.Reset()
	executor.Cache().ClearAll()

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *APIHandlers) GetFlowLog(c fiber.Ctx) error {
	if h.execLog == nil {
		return c.JSON(fiber.Map{"entries": []LogEntry{}})
	}

	return c.JSON(fiber.Map{"entries": h.execLog.Entries(principal(c))})
}

func (h *APIHandlers) GetTokens(c fiber.Ctx) error {
	account, err := h.tokens.Account(c.Context(), principal(c))
	if err != nil {
		return internalError(c, err)
	}

	return c.JSON(fiber.Map{
		"balance":               account.Balance,
		"subscription_id":       account.SubscriptionID,
		"subscription_interval": account.SubscriptionInterval,
	})
}

func (h *APIHandlers) GetTokenProducts(c fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"packs":         services.TokenPacks(),
		"subscriptions": services.TokenSubscriptions(),
	})
}

func (h *APIHandlers) PurchaseTokens(c fiber.Ctx) error {
	var req PurchaseRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	product, ok := services.TokenProductByPriceSlug(req.PriceSlug)
	if !ok {
		return badRequest(c, "unknown price slug: "+req.PriceSlug)
	}

	if h.demoMode {
		return h.purchaseDirect(c, req.PriceSlug, product)
	}

	session, err := h.billing.CreateCheckoutSession(c.Context(), principal(c), billing.CheckoutRequest{
		PriceSlug:  req.PriceSlug,
		SuccessURL: req.SuccessURL,
		CancelURL:  req.CancelURL,
	})
	if err != nil {
		return internalError(c, err)
	}

	return c.JSON(fiber.Map{"checkout_url": session.URL, "session_id": session.ID})
}

// purchaseDirect credits the product immediately, skipping checkout.
func (h *APIHandlers) purchaseDirect(c fiber.Ctx, priceSlug string, product services.TokenProduct) error {
	userID := principal(c)

	if product.Subscription {
		subscriptionID := "demo-" + priceSlug
		if err := h.tokens.SetSubscription(c.Context(), userID, subscriptionID, product.Interval, product.Tokens); err != nil {
			return internalError(c, err)
		}
	} else {
		if _, err := h.tokens.Credit(c.Context(), userID, product.Tokens, "purchase "+priceSlug); err != nil {
			return internalError(c, err)
		}
	}

	balance, err := h.tokens.Balance(c.Context(), userID)
	if err != nil {
		return internalError(c, err)
	}

	return c.JSON(fiber.Map{"balance": balance, "credited": true})
}

func (h *APIHandlers) GetEntitlements(c fiber.Ctx) error {
	report, err := h.entitlements.ForUser(c.Context(), principal(c))
	if err != nil {
		return internalError(c, err)
	}

	return c.JSON(report)
}

func (h *APIHandlers) CreateCheckout(c fiber.Ctx) error {
	var req CheckoutRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	session, err := h.billing.CreateCheckoutSession(c.Context(), principal(c), billing.CheckoutRequest{
		PriceSlug:  req.PriceSlug,
		SuccessURL: req.SuccessURL,
		CancelURL:  req.CancelURL,
	})
	if err != nil {
		return internalError(c, err)
	}

	return c.JSON(fiber.Map{"checkout_url": session.URL, "session_id": session.ID})
}

// Webhook receives billing provider deliveries. No principal: the caller is
// the provider, authenticated by signature alone.
func (h *APIHandlers) Webhook(c fiber.Ctx) error {
	if h.webhookProcessor == nil {
		return unauthorized(c, "webhook secret is not configured")
	}

	result, err := h.webhookProcessor.Process(
		c.Context(),
		c.Body(),
		c.Get("svix-id"),
		c.Get("svix-timestamp"),
		c.Get("svix-signature"),
	)
	if err != nil {
		if webhooks.IsVerificationError(err) {
			return badRequest(c, err.Error())
		}

		return internalError(c, err)
	}

	return c.JSON(fiber.Map{"received": true, "duplicate": result.Duplicate})
}

func (h *APIHandlers) HealthCheck(c fiber.Ctx) error {
	repositoryCheck, repOK := h.workflows.HealthCheck(c.Context())

	catalogCheck := "Block catalog is healthy"
	catalogOK := true

	if err := h.blockCatalog.HealthCheck(c.Context()); err != nil {
		catalogCheck = err.Error()
		catalogOK = false
	}

	status := "unhealthy"
	httpStatus := http.StatusInternalServerError

	if repOK && catalogOK {
		status = "healthy"
		httpStatus = http.StatusOK
	}

	return c.Status(httpStatus).JSON(fiber.Map{
		"status": status,
		"checkers": fiber.Map{
			"catalog":    catalogCheck,
			"repository": repositoryCheck,
		},
		"timestamp": time.Now().UTC(),
	})
}
