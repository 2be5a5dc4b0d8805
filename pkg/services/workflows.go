package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/blockdeck/blockdeck/pkg/eventbus"
	"github.com/blockdeck/blockdeck/pkg/graph"
	"github.com/blockdeck/blockdeck/pkg/models"
	"github.com/blockdeck/blockdeck/pkg/persistence"
)

// Workflows is the workflow CRUD service. Mutations validate the definition
// graph and the include list before anything is written; a rejected update
// leaves the stored workflow untouched.
type Workflows struct {
	persistence persistence.Persistence
	bus         eventbus.EventPublisher
	logger      *slog.Logger
}

func NewWorkflows(p persistence.Persistence) *Workflows {
	return &Workflows{
		persistence: p,
		logger:      slog.With("module", "workflow_service"),
	}
}

// WithEventBus attaches a publisher for workflow.updated events.
func (s *Workflows) WithEventBus(bus eventbus.EventPublisher) *Workflows {
	s.bus = bus

	return s
}

// HealthCheck checks the health of the persistence layer.
func (s *Workflows) HealthCheck(ctx context.Context) (string, bool) {
	if s.persistence == nil {
		return "Persistence layer not initialized", false
	}

	if err := s.persistence.HealthCheck(ctx); err != nil {
		return "Persistence layer is unhealthy: " + err.Error(), false
	}

	return "Persistence layer is healthy", true
}

// CreateWorkflowRequest holds the fields for a new workflow.
type CreateWorkflowRequest struct {
	Name        string          `json:"name"        validate:"required,min=1,max=255"`
	Description string          `json:"description" validate:"max=2000"`
	Definition  json.RawMessage `json:"definition"`
	Includes    []string        `json:"includes"`
}

func (s *Workflows) Create(ctx context.Context, ownerID string, req CreateWorkflowRequest) (*models.Workflow, error) {
	if ownerID == "" {
		return nil, ErrEmptyOwnerID
	}

	if req.Name == "" {
		return nil, ErrWorkflowNameRequired
	}

	if err := validateDefinition(req.Definition); err != nil {
		return nil, err
	}

	id := uuid.New().String()

	if err := ValidateIncludes(ctx, s.repo(), ownerID, id, req.Includes); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	workflow := &models.Workflow{
		ID:          id,
		OwnerID:     ownerID,
		Name:        req.Name,
		Description: req.Description,
		Definition:  normalizeDefinition(req.Definition),
		Includes:    req.Includes,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.repo().Save(ctx, workflow); err != nil {
		return nil, fmt.Errorf("failed to create workflow: %w", err)
	}

	s.logger.Info("Created workflow", "workflow_id", workflow.ID, "owner_id", ownerID)
	s.publishUpdated(ctx, workflow)

	return workflow, nil
}

// Get returns a workflow owned by ownerID. A workflow owned by someone else
// is reported as not found.
func (s *Workflows) Get(ctx context.Context, ownerID, id string) (*models.Workflow, error) {
	workflow, err := s.repo().GetByID(ctx, id)
	if err != nil {
		if persistence.IsWorkflowNotFound(err) {
			return nil, ErrWorkflowNotFound
		}

		return nil, fmt.Errorf("failed to load workflow %s: %w", id, err)
	}

	if workflow.OwnerID != ownerID {
		return nil, ErrWorkflowNotFound
	}

	return workflow, nil
}

// GetPublic returns a workflow by ID regardless of owner, for marketplace
// read access.
func (s *Workflows) GetPublic(ctx context.Context, id string) (*models.Workflow, error) {
	workflow, err := s.repo().GetByID(ctx, id)
	if err != nil {
		if persistence.IsWorkflowNotFound(err) {
			return nil, ErrWorkflowNotFound
		}

		return nil, fmt.Errorf("failed to load workflow %s: %w", id, err)
	}

	return workflow, nil
}

// List pages through all workflows newest first (marketplace view).
func (s *Workflows) List(ctx context.Context, opts persistence.ListOptions) (*persistence.WorkflowListResult, error) {
	result, err := s.repo().List(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list workflows: %w", err)
	}

	return result, nil
}

// ListByOwner pages through the caller's workflows newest first.
func (s *Workflows) ListByOwner(ctx context.Context, ownerID string, opts persistence.ListOptions) (*persistence.WorkflowListResult, error) {
	if ownerID == "" {
		return nil, ErrEmptyOwnerID
	}

	result, err := s.repo().ListByOwner(ctx, ownerID, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list workflows for owner %s: %w", ownerID, err)
	}

	return result, nil
}

// Update applies a partial patch. Includes and definition changes are
// validated before the write; the whole update is atomic.
func (s *Workflows) Update(ctx context.Context, ownerID, id string, patch models.WorkflowPatch) (*models.Workflow, error) {
	workflow, err := s.Get(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}

	if patch.Includes != nil {
		if err := ValidateIncludes(ctx, s.repo(), ownerID, id, *patch.Includes); err != nil {
			return nil, err
		}
	}

	if patch.Definition != nil {
		if err := validateDefinition(patch.Definition); err != nil {
			return nil, err
		}
	}

	if patch.Name != nil {
		if *patch.Name == "" {
			return nil, ErrWorkflowNameRequired
		}

		workflow.Name = *patch.Name
	}

	if patch.Description != nil {
		workflow.Description = *patch.Description
	}

	if patch.Definition != nil {
		workflow.Definition = normalizeDefinition(patch.Definition)
	}

	if patch.Includes != nil {
		workflow.Includes = *patch.Includes
	}

	workflow.UpdatedAt = time.Now().UTC()

	if err := s.repo().Save(ctx, workflow); err != nil {
		return nil, fmt.Errorf("failed to update workflow %s: %w", id, err)
	}

	s.logger.Info("Updated workflow", "workflow_id", id, "owner_id", ownerID)
	s.publishUpdated(ctx, workflow)

	return workflow, nil
}

// Delete removes a workflow owned by ownerID.
func (s *Workflows) Delete(ctx context.Context, ownerID, id string) error {
	if _, err := s.Get(ctx, ownerID, id); err != nil {
		return err
	}

	if err := s.repo().Delete(ctx, id); err != nil {
		if persistence.IsWorkflowNotFound(err) {
			return ErrWorkflowNotFound
		}

		return fmt.Errorf("failed to delete workflow %s: %w", id, err)
	}

	s.logger.Info("Deleted workflow", "workflow_id", id, "owner_id", ownerID)

	return nil
}

func (s *Workflows) repo() persistence.WorkflowRepository {
	return s.persistence.WorkflowRepository()
}

func (s *Workflows) publishUpdated(ctx context.Context, workflow *models.Workflow) {
	if s.bus == nil {
		return
	}

	event := eventbus.WorkflowUpdated{
		BaseEvent: eventbus.BaseEvent{
			Type:      eventbus.WorkflowUpdatedEvent,
			Timestamp: time.Now().UTC(),
			UserID:    workflow.OwnerID,
		},
		WorkflowID: workflow.ID,
	}

	if err := s.bus.Publish(ctx, workflow.ID, event); err != nil {
		s.logger.Warn("Failed to publish workflow event", "workflow_id", workflow.ID, "error", err)
	}
}

// validateDefinition parses the stored definition and rejects graphs with
// duplicate node IDs or more than one edge into the same input.
func validateDefinition(definition json.RawMessage) error {
	if len(definition) == 0 {
		return nil
	}

	var g models.FlowGraph
	if err := json.Unmarshal(definition, &g); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidDefinition, err)
	}

	if err := graph.Validate(&g); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidDefinition, err)
	}

	return nil
}

func normalizeDefinition(definition json.RawMessage) json.RawMessage {
	if len(definition) == 0 {
		return json.RawMessage(`{}`)
	}

	return definition
}
