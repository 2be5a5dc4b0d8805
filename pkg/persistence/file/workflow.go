package file

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path"
	"sort"
	"time"

	"github.com/blockdeck/blockdeck/pkg/models"
	"github.com/blockdeck/blockdeck/pkg/persistence"
)

const workflowDirPerm = 0o755

// WorkflowRepository stores each workflow as workflows/<id>.json.
type WorkflowRepository struct {
	root string
}

func NewWorkflowRepository(root string) *WorkflowRepository {
	return &WorkflowRepository{root: root}
}

func (wr *WorkflowRepository) dir() string {
	return path.Join(wr.root, "workflows")
}

func (wr *WorkflowRepository) path(id string) string {
	return path.Join(wr.dir(), id+".json")
}

func (wr *WorkflowRepository) GetByID(_ context.Context, id string) (*models.Workflow, error) {
	data, err := os.ReadFile(wr.path(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, persistence.NewWorkflowError("GetByID", id, persistence.ErrWorkflowNotFound)
		}

		return nil, persistence.NewWorkflowError("GetByID", id, err)
	}

	var workflow models.Workflow
	if err := json.Unmarshal(data, &workflow); err != nil {
		return nil, persistence.NewWorkflowError("GetByID", id, fmt.Errorf("failed to decode workflow file: %w", err))
	}

	return &workflow, nil
}

// List pages through all workflows newest first. The cursor is the
// updated_at of the previous page's last workflow.
func (wr *WorkflowRepository) List(ctx context.Context, opts persistence.ListOptions) (*persistence.WorkflowListResult, error) {
	return wr.list(ctx, "", opts)
}

// ListByOwner pages through one owner's workflows newest first.
func (wr *WorkflowRepository) ListByOwner(ctx context.Context, ownerID string, opts persistence.ListOptions) (*persistence.WorkflowListResult, error) {
	return wr.list(ctx, ownerID, opts)
}

func (wr *WorkflowRepository) list(ctx context.Context, ownerID string, opts persistence.ListOptions) (*persistence.WorkflowListResult, error) {
	opts = opts.Normalized()

	var after time.Time

	if opts.Cursor != "" {
		t, err := persistence.DecodeCursor(opts.Cursor)
		if err != nil {
			return nil, err
		}

		after = t
	}

	all, err := wr.loadAll(ctx)
	if err != nil {
		return nil, err
	}

	owned := make([]*models.Workflow, 0, len(all))

	for _, workflow := range all {
		if ownerID != "" && workflow.OwnerID != ownerID {
			continue
		}

		if !after.IsZero() && !workflow.UpdatedAt.Before(after) {
			continue
		}

		owned = append(owned, workflow)
	}

	sort.Slice(owned, func(i, j int) bool {
		return owned[i].UpdatedAt.After(owned[j].UpdatedAt)
	})

	hasMore := len(owned) > opts.Limit
	if hasMore {
		owned = owned[:opts.Limit]
	}

	result := &persistence.WorkflowListResult{Workflows: owned, HasMore: hasMore}
	if hasMore {
		result.NextCursor = persistence.EncodeCursor(owned[len(owned)-1].UpdatedAt)
	}

	return result, nil
}

func (wr *WorkflowRepository) Save(_ context.Context, workflow *models.Workflow) error {
	if err := os.MkdirAll(wr.dir(), workflowDirPerm); err != nil {
		return persistence.NewWorkflowError("Save", workflow.ID, err)
	}

	data, err := json.MarshalIndent(workflow, "", "  ")
	if err != nil {
		return persistence.NewWorkflowError("Save", workflow.ID, err)
	}

	if err := os.WriteFile(wr.path(workflow.ID), data, 0o644); err != nil {
		return persistence.NewWorkflowError("Save", workflow.ID, err)
	}

	return nil
}

func (wr *WorkflowRepository) Delete(_ context.Context, id string) error {
	if err := os.Remove(wr.path(id)); err != nil {
		if os.IsNotExist(err) {
			return persistence.NewWorkflowError("Delete", id, persistence.ErrWorkflowNotFound)
		}

		return persistence.NewWorkflowError("Delete", id, err)
	}

	return nil
}

func (wr *WorkflowRepository) loadAll(ctx context.Context) ([]*models.Workflow, error) {
	entries, err := fs.Glob(os.DirFS(wr.dir()), "*.json")
	if err != nil {
		return nil, fmt.Errorf("failed to list workflow files: %w", err)
	}

	workflows := make([]*models.Workflow, 0, len(entries))

	for _, entry := range entries {
		id := entry[:len(entry)-len(".json")]

		workflow, err := wr.GetByID(ctx, id)
		if err != nil {
			if persistence.IsWorkflowNotFound(err) {
				continue
			}

			return nil, err
		}

		workflows = append(workflows, workflow)
	}

	return workflows, nil
}
