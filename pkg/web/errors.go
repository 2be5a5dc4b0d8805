package web

import (
	"errors"

	"github.com/gofiber/fiber/v3"
	"github.com/moogar0880/problems"

	"github.com/blockdeck/blockdeck/pkg/blocks"
	"github.com/blockdeck/blockdeck/pkg/graph"
	"github.com/blockdeck/blockdeck/pkg/run"
	"github.com/blockdeck/blockdeck/pkg/services"
)

func badRequest(c fiber.Ctx, detail string) error {
	problem := problems.NewStatusProblem(fiber.StatusBadRequest).
		WithInstance(c.Path()).
		WithType("validation_error").
		WithDetail(detail)

	return c.Status(fiber.StatusBadRequest).JSON(problem)
}

func unauthorized(c fiber.Ctx, detail string) error {
	problem := problems.NewStatusProblem(fiber.StatusUnauthorized).
		WithInstance(c.Path()).
		WithType("unauthorized").
		WithDetail(detail)

	return c.Status(fiber.StatusUnauthorized).JSON(problem)
}

func notFound(c fiber.Ctx, detail string) error {
	problem := problems.NewStatusProblem(fiber.StatusNotFound).
		WithInstance(c.Path()).
		WithType("not_found").
		WithDetail(detail)

	return c.Status(fiber.StatusNotFound).JSON(problem)
}

func conflict(c fiber.Ctx, detail string) error {
	problem := problems.NewStatusProblem(fiber.StatusConflict).
		WithInstance(c.Path()).
		WithType("conflict").
		WithDetail(detail)

	return c.Status(fiber.StatusConflict).JSON(problem)
}

func internalError(c fiber.Ctx, err error) error {
	problem := problems.NewStatusProblem(fiber.StatusInternalServerError).
		WithInstance(c.Path()).
		WithType("internal_error").
		WithError(err)

	return c.Status(fiber.StatusInternalServerError).JSON(problem)
}

// lockedProblem reports a block behind a paywall, carrying the slugs the
// client needs to start a checkout.
func lockedProblem(c fiber.Ctx, lockErr *blocks.LockedError) error {
	problem := problems.NewStatusProblem(fiber.StatusForbidden).
		WithInstance(c.Path()).
		WithType("block_locked").
		WithDetail(lockErr.Error())

	return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
		"type":        problem.Type,
		"title":       problem.Title,
		"status":      problem.Status,
		"detail":      problem.Detail,
		"instance":    problem.Instance,
		"blockId":     lockErr.BlockID,
		"featureSlug": lockErr.FeatureSlug,
		"priceSlug":   lockErr.PriceSlug,
	})
}

// insufficientBalanceProblem reports an empty token balance, carrying the
// cost and balance so the client can prompt a purchase.
func insufficientBalanceProblem(c fiber.Ctx, balErr *blocks.InsufficientBalanceError) error {
	problem := problems.NewStatusProblem(fiber.StatusPaymentRequired).
		WithInstance(c.Path()).
		WithType("insufficient_tokens").
		WithDetail(balErr.Error())

	return c.Status(fiber.StatusPaymentRequired).JSON(fiber.Map{
		"type":           problem.Type,
		"title":          problem.Title,
		"status":         problem.Status,
		"detail":         problem.Detail,
		"instance":       problem.Instance,
		"blockId":        balErr.BlockID,
		"tokenCost":      balErr.TokenCost,
		"currentBalance": balErr.Balance,
		"needsPurchase":  true,
	})
}

// handleServiceError maps service layer errors onto problem responses.
func handleServiceError(c fiber.Ctx, err error) error {
	switch {
	case services.IsIncludeValidationError(err):
		problem := problems.NewStatusProblem(fiber.StatusBadRequest).
			WithInstance(c.Path()).
			WithType(services.IncludeErrorCode(err)).
			WithDetail(err.Error())

		return c.Status(fiber.StatusBadRequest).JSON(problem)

	case services.IsWorkflowNotFound(err):
		return notFound(c, "workflow not found")

	case services.IsValidationError(err):
		return badRequest(c, err.Error())

	default:
		return internalError(c, err)
	}
}

// handleRunError maps planner and executor errors onto problem responses.
func handleRunError(c fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, graph.ErrCycle):
		problem := problems.NewStatusProblem(fiber.StatusBadRequest).
			WithInstance(c.Path()).
			WithType("CYCLE_DETECTED").
			WithDetail(err.Error())

		return c.Status(fiber.StatusBadRequest).JSON(problem)

	case errors.Is(err, graph.ErrDuplicateNodeID), errors.Is(err, graph.ErrDuplicateInputEdge):
		return badRequest(c, err.Error())

	case errors.Is(err, run.ErrMissingEntryInput):
		return badRequest(c, err.Error())

	case errors.Is(err, run.ErrRunInFlight):
		return conflict(c, err.Error())

	default:
		return internalError(c, err)
	}
}
