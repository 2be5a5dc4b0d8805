package blocks

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/blockdeck/blockdeck/pkg/models"
	"github.com/blockdeck/blockdeck/pkg/registry"
	"github.com/blockdeck/blockdeck/pkg/run"
)

var ErrUnknownBlock = errors.New("unknown block")

// LockedError means the user lacks the billing entitlement for a paid
// block. It carries the slugs the caller needs to start a checkout.
type LockedError struct {
	BlockID     string
	FeatureSlug string
	PriceSlug   string
}

func (e *LockedError) Error() string {
	return fmt.Sprintf("block '%s' is locked behind feature '%s'", e.BlockID, e.FeatureSlug)
}

// InsufficientBalanceError means the user is entitled but out of tokens.
type InsufficientBalanceError struct {
	BlockID   string
	TokenCost int
	Balance   int
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("block '%s' costs %d tokens, balance is %d", e.BlockID, e.TokenCost, e.Balance)
}

// IsLocked reports whether err is an entitlement denial.
func IsLocked(err error) bool {
	var locked *LockedError

	return errors.As(err, &locked)
}

// IsInsufficientBalance reports whether err is a token shortfall.
func IsInsufficientBalance(err error) bool {
	var insufficient *InsufficientBalanceError

	return errors.As(err, &insufficient)
}

// EntitlementChecker answers whether a user holds a billing feature.
type EntitlementChecker interface {
	CheckFeatureAccess(ctx context.Context, userID, featureSlug string) (bool, error)
}

// UsageReporter records billable block runs against a usage meter.
type UsageReporter interface {
	CreateUsageEvent(ctx context.Context, userID, usageMeterSlug string, amount int) error
}

// TokenLedger checks and spends a user's token balance.
type TokenLedger interface {
	Balance(ctx context.Context, userID string) (int, error)
	Deduct(ctx context.Context, userID string, amount int, blockID string) (int, error)
}

// Runner executes blocks on behalf of a user, enforcing the paid-block
// gates in order: catalog lookup, entitlement, token balance. Free blocks
// skip both gates. Tokens are deducted only after a successful run.
type Runner struct {
	registry     *registry.Registry
	entitlements EntitlementChecker
	usage        UsageReporter
	ledger       TokenLedger
	logger       *slog.Logger
}

func NewRunner(reg *registry.Registry, entitlements EntitlementChecker, usage UsageReporter, ledger TokenLedger) *Runner {
	return &Runner{
		registry:     reg,
		entitlements: entitlements,
		usage:        usage,
		ledger:       ledger,
		logger:       slog.With("module", "block_runner"),
	}
}

func (r *Runner) RunBlockForUser(ctx context.Context, userID, blockID string, inputs map[string]string) (map[string]models.Scalar, error) {
	def, ok := r.registry.Definition(blockID)
	if !ok {
		return nil, fmt.Errorf("'%s': %w", blockID, ErrUnknownBlock)
	}

	handler, err := r.registry.Get(blockID)
	if err != nil {
		return nil, fmt.Errorf("'%s': %w", blockID, ErrUnknownBlock)
	}

	if !def.IsFree() {
		if err := r.checkGates(ctx, userID, def); err != nil {
			return nil, err
		}
	}

	outputs, err := handler.Execute(ctx, inputs)
	if err != nil {
		return nil, err
	}

	if !def.IsFree() {
		r.settle(ctx, userID, def)
	}

	return outputs, nil
}

// ForUser adapts the runner to the executor's BlockRunner interface, bound
// to one principal.
func (r *Runner) ForUser(userID string) run.BlockRunner {
	return run.BlockRunnerFunc(func(ctx context.Context, blockID string, inputs map[string]string) (map[string]models.Scalar, error) {
		return r.RunBlockForUser(ctx, userID, blockID, inputs)
	})
}

func (r *Runner) checkGates(ctx context.Context, userID string, def *models.BlockDefinition) error {
	allowed, err := r.entitlements.CheckFeatureAccess(ctx, userID, def.FeatureSlug)
	if err != nil {
		return fmt.Errorf("failed to check entitlement for '%s': %w", def.ID, err)
	}

	if !allowed {
		return &LockedError{BlockID: def.ID, FeatureSlug: def.FeatureSlug, PriceSlug: def.PriceSlug}
	}

	if def.TokenCost == 0 {
		return nil
	}

	balance, err := r.ledger.Balance(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to read token balance: %w", err)
	}

	if balance < def.TokenCost {
		return &InsufficientBalanceError{BlockID: def.ID, TokenCost: def.TokenCost, Balance: balance}
	}

	return nil
}

// settle deducts tokens and reports usage after a successful run. Both are
// best effort: the block already ran, so failures are logged, not returned.
func (r *Runner) settle(ctx context.Context, userID string, def *models.BlockDefinition) {
	if def.TokenCost > 0 {
		if _, err := r.ledger.Deduct(ctx, userID, def.TokenCost, def.ID); err != nil {
			r.logger.Error("Failed to deduct tokens after run", "block_id", def.ID, "user_id", userID, "error", err)
		}
	}

	if def.UsageMeterSlug != "" && r.usage != nil {
		if err := r.usage.CreateUsageEvent(ctx, userID, def.UsageMeterSlug, 1); err != nil {
			r.logger.Warn("Failed to report usage event", "block_id", def.ID, "meter", def.UsageMeterSlug, "error", err)
		}
	}
}
