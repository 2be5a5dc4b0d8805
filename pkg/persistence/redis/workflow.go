package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	goredis "github.com/redis/go-redis/v9"

	"github.com/blockdeck/blockdeck/pkg/models"
	"github.com/blockdeck/blockdeck/pkg/persistence"
)

// WorkflowRepository keeps each workflow under blockdeck:workflow:<id> and
// indexes IDs per owner in a sorted set scored by updated_at (unix nanos).
type WorkflowRepository struct {
	client goredis.UniversalClient
}

func NewWorkflowRepository(client goredis.UniversalClient) *WorkflowRepository {
	return &WorkflowRepository{client: client}
}

func workflowKey(id string) string {
	return fmt.Sprintf("%s:workflow:%s", keyPrefix, id)
}

func ownerIndexKey(ownerID string) string {
	return fmt.Sprintf("%s:owner:%s:workflows", keyPrefix, ownerID)
}

func globalIndexKey() string {
	return keyPrefix + ":workflows:by_updated"
}

func (wr *WorkflowRepository) GetByID(ctx context.Context, id string) (*models.Workflow, error) {
	data, err := wr.client.Get(ctx, workflowKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, persistence.NewWorkflowError("GetByID", id, persistence.ErrWorkflowNotFound)
		}

		return nil, persistence.NewWorkflowError("GetByID", id, err)
	}

	var workflow models.Workflow
	if err := json.Unmarshal(data, &workflow); err != nil {
		return nil, persistence.NewWorkflowError("GetByID", id, fmt.Errorf("failed to decode workflow: %w", err))
	}

	return &workflow, nil
}

func (wr *WorkflowRepository) List(ctx context.Context, opts persistence.ListOptions) (*persistence.WorkflowListResult, error) {
	return wr.listIndex(ctx, globalIndexKey(), opts)
}

func (wr *WorkflowRepository) ListByOwner(ctx context.Context, ownerID string, opts persistence.ListOptions) (*persistence.WorkflowListResult, error) {
	return wr.listIndex(ctx, ownerIndexKey(ownerID), opts)
}

func (wr *WorkflowRepository) listIndex(ctx context.Context, indexKey string, opts persistence.ListOptions) (*persistence.WorkflowListResult, error) {
	opts = opts.Normalized()

	max := "+inf"

	if opts.Cursor != "" {
		after, err := persistence.DecodeCursor(opts.Cursor)
		if err != nil {
			return nil, err
		}

		// Exclusive upper bound: strictly older than the cursor.
		max = "(" + strconv.FormatInt(after.UnixNano(), 10)
	}

	ids, err := wr.client.ZRevRangeByScore(ctx, indexKey, &goredis.ZRangeBy{
		Min:   "-inf",
		Max:   max,
		Count: int64(opts.Limit) + 1,
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list workflows from index %s: %w", indexKey, err)
	}

	hasMore := len(ids) > opts.Limit
	if hasMore {
		ids = ids[:opts.Limit]
	}

	workflows := make([]*models.Workflow, 0, len(ids))

	for _, id := range ids {
		workflow, err := wr.GetByID(ctx, id)
		if err != nil {
			// Index entry without a value; drop it lazily.
			if persistence.IsWorkflowNotFound(err) {
				wr.client.ZRem(ctx, indexKey, id)

				continue
			}

			return nil, err
		}

		workflows = append(workflows, workflow)
	}

	result := &persistence.WorkflowListResult{Workflows: workflows, HasMore: hasMore}
	if hasMore && len(workflows) > 0 {
		result.NextCursor = persistence.EncodeCursor(workflows[len(workflows)-1].UpdatedAt)
	}

	return result, nil
}

func (wr *WorkflowRepository) Save(ctx context.Context, workflow *models.Workflow) error {
	data, err := json.Marshal(workflow)
	if err != nil {
		return persistence.NewWorkflowError("Save", workflow.ID, err)
	}

	score := goredis.Z{
		Score:  float64(workflow.UpdatedAt.UnixNano()),
		Member: workflow.ID,
	}

	pipe := wr.client.TxPipeline()
	pipe.Set(ctx, workflowKey(workflow.ID), data, 0)
	pipe.ZAdd(ctx, ownerIndexKey(workflow.OwnerID), score)
	pipe.ZAdd(ctx, globalIndexKey(), score)

	if _, err := pipe.Exec(ctx); err != nil {
		return persistence.NewWorkflowError("Save", workflow.ID, err)
	}

	return nil
}

func (wr *WorkflowRepository) Delete(ctx context.Context, id string) error {
	workflow, err := wr.GetByID(ctx, id)
	if err != nil {
		return persistence.NewWorkflowError("Delete", id, persistence.ErrWorkflowNotFound)
	}

	pipe := wr.client.TxPipeline()
	pipe.Del(ctx, workflowKey(id))
	pipe.ZRem(ctx, ownerIndexKey(workflow.OwnerID), id)
	pipe.ZRem(ctx, globalIndexKey(), id)

	if _, err := pipe.Exec(ctx); err != nil {
		return persistence.NewWorkflowError("Delete", id, err)
	}

	return nil
}
