// Package registry holds the block catalog: every runnable block's
// definition and the handler that executes it.
package registry

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/blockdeck/blockdeck/pkg/models"
)

// Handler executes one block type. Inputs arrive fully resolved as strings;
// outputs are keyed by the block's declared output keys.
type Handler interface {
	Execute(ctx context.Context, inputs map[string]string) (map[string]models.Scalar, error)
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(ctx context.Context, inputs map[string]string) (map[string]models.Scalar, error)

func (f HandlerFunc) Execute(ctx context.Context, inputs map[string]string) (map[string]models.Scalar, error) {
	return f(ctx, inputs)
}

type entry struct {
	definition *models.BlockDefinition
	handler    Handler
}

type Registry struct {
	logger *slog.Logger

	mu      sync.RWMutex
	entries map[string]entry
	order   []string
}

func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{
		logger:  logger,
		entries: make(map[string]entry),
	}
}

// Register adds a block to the catalog. Re-registering an ID is an error.
func (r *Registry) Register(def *models.BlockDefinition, handler Handler) error {
	if def == nil || def.ID == "" {
		return fmt.Errorf("block definition requires an ID")
	}

	if handler == nil {
		return fmt.Errorf("block '%s' requires a handler", def.ID)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.entries[def.ID]; exists {
		return fmt.Errorf("block '%s' already registered", def.ID)
	}

	r.entries[def.ID] = entry{definition: def, handler: handler}
	r.order = append(r.order, def.ID)

	r.logger.Debug("Registered block", "block_id", def.ID, "uses_ai", def.UsesAI)

	return nil
}

// Get returns the handler for a block type.
func (r *Registry) Get(blockID string) (Handler, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.entries[blockID]
	if !ok {
		return nil, fmt.Errorf("block '%s' not registered", blockID)
	}

	return e.handler, nil
}

// Definition returns the catalog entry for a block type. Its signature
// matches graph.SchemaLookup so the planner can use it directly.
func (r *Registry) Definition(blockID string) (*models.BlockDefinition, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.entries[blockID]
	if !ok {
		return nil, false
	}

	return e.definition, true
}

// Definitions returns every registered definition in registration order.
func (r *Registry) Definitions() []*models.BlockDefinition {
	r.mu.RLock()
	defer r.mu.RUnlock()

	defs := make([]*models.BlockDefinition, 0, len(r.order))
	for _, id := range r.order {
		defs = append(defs, r.entries[id].definition)
	}

	return defs
}

// HealthCheck reports whether the catalog is usable.
func (r *Registry) HealthCheck(_ context.Context) error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if len(r.entries) == 0 {
		return fmt.Errorf("block catalog is empty")
	}

	return nil
}
