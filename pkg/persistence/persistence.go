// Package persistence provides the storage abstraction for workflows and
// token accounts.
package persistence

import (
	"context"

	"github.com/blockdeck/blockdeck/pkg/models"
)

const (
	DefaultPageLimit = 20
	MaxPageLimit     = 100
)

// ListOptions controls cursor pagination. Cursor is opaque to callers; an
// empty cursor starts from the newest workflow.
type ListOptions struct {
	Limit  int
	Cursor string
}

// Normalized clamps the limit into [1, MaxPageLimit], defaulting when unset.
func (o ListOptions) Normalized() ListOptions {
	if o.Limit <= 0 {
		o.Limit = DefaultPageLimit
	}

	if o.Limit > MaxPageLimit {
		o.Limit = MaxPageLimit
	}

	return o
}

// WorkflowListResult is one page of an owner's workflows, newest first.
type WorkflowListResult struct {
	Workflows  []*models.Workflow `json:"workflows"`
	NextCursor string             `json:"next_cursor,omitempty"`
	HasMore    bool               `json:"has_more"`
}

type WorkflowRepository interface {
	GetByID(ctx context.Context, id string) (*models.Workflow, error)
	List(ctx context.Context, opts ListOptions) (*WorkflowListResult, error)
	ListByOwner(ctx context.Context, ownerID string, opts ListOptions) (*WorkflowListResult, error)
	Save(ctx context.Context, workflow *models.Workflow) error
	Delete(ctx context.Context, id string) error
}

type TokenRepository interface {
	Get(ctx context.Context, userID string) (*models.TokenAccount, error)
	Put(ctx context.Context, account *models.TokenAccount) error
}

type Persistence interface {
	WorkflowRepository() WorkflowRepository
	TokenRepository() TokenRepository
	HealthCheck(ctx context.Context) error
	Close(ctx context.Context) error
}
