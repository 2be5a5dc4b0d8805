package web

import (
	"github.com/gofiber/fiber/v3"
)

// RegisterRoutes mounts the API under /api. The webhook route sits outside
// the principal middleware: the billing provider authenticates by signature.
func RegisterRoutes(app *fiber.App, h *APIHandlers) {
	app.Post("/api/webhook", h.Webhook)
	app.Get("/health", h.HealthCheck)

	api := app.Group("/api", RequirePrincipal())

	api.Get("/blocks", h.GetBlocks)

	api.Get("/workflows", h.GetWorkflows)
	api.Post("/workflows", h.CreateWorkflow)
	api.Get("/workflows/:id", h.GetWorkflow)
	api.Patch("/workflows/:id", h.UpdateWorkflow)
	api.Delete("/workflows/:id", h.DeleteWorkflow)

	api.Post("/run-block", h.RunBlock)

	api.Post("/flows/plan", h.PlanFlow)
	api.Post("/flows/run", h.RunFlow)
	api.Delete("/flows/cache", h.ClearFlowCache)
	api.Get("/flows/log", h.GetFlowLog)

	api.Get("/tokens", h.GetTokens)
	api.Get("/tokens/products", h.GetTokenProducts)
	api.Post("/tokens/purchase", h.PurchaseTokens)

	api.Get("/entitlements", h.GetEntitlements)
	api.Post("/checkout", h.CreateCheckout)
}
