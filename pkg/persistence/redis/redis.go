// Package redis provides Redis-backed persistence. Workflows live as JSON
// values with a per-owner sorted set indexing them by updated_at, which
// makes cursor pagination a range query.
package redis

import (
	"context"
	"fmt"

	goredis "github.com/redis/go-redis/v9"

	"github.com/blockdeck/blockdeck/pkg/persistence"
)

const keyPrefix = "blockdeck"

type Persistence struct {
	client       goredis.UniversalClient
	workflowRepo *WorkflowRepository
	tokenRepo    *TokenRepository
}

// NewPersistence connects to the Redis instance at the given URL
// (redis://host:port/db).
func NewPersistence(url string) (*Persistence, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}

	client := goredis.NewClient(opts)

	return &Persistence{
		client:       client,
		workflowRepo: NewWorkflowRepository(client),
		tokenRepo:    NewTokenRepository(client),
	}, nil
}

func (rp *Persistence) WorkflowRepository() persistence.WorkflowRepository {
	return rp.workflowRepo
}

func (rp *Persistence) TokenRepository() persistence.TokenRepository {
	return rp.tokenRepo
}

func (rp *Persistence) HealthCheck(ctx context.Context) error {
	if err := rp.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}

	return nil
}

func (rp *Persistence) Close(_ context.Context) error {
	return rp.client.Close()
}
