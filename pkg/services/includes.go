package services

import (
	"context"
	"fmt"

	"github.com/blockdeck/blockdeck/pkg/models"
	"github.com/blockdeck/blockdeck/pkg/persistence"
)

// ValidateIncludes checks a proposed includes list for a workflow before it
// is persisted. The checks run in order, each a distinct failure mode:
// self-reference, existence, ownership, and finally a cycle search over the
// owner's whole include graph with the candidate's entry overridden by the
// proposal. Diamond-shaped shared includes are legal; only true cycles are
// rejected.
func ValidateIncludes(ctx context.Context, repo persistence.WorkflowRepository, ownerID, candidateID string, newIncludes []string) error {
	if len(newIncludes) == 0 {
		return nil
	}

	for _, id := range newIncludes {
		if id == candidateID {
			return fmt.Errorf("workflow %s: %w", candidateID, ErrSelfReference)
		}
	}

	referenced := make(map[string]*models.Workflow, len(newIncludes))

	for _, id := range newIncludes {
		if _, seen := referenced[id]; seen {
			continue
		}

		workflow, err := repo.GetByID(ctx, id)
		if err != nil {
			if persistence.IsWorkflowNotFound(err) {
				return fmt.Errorf("workflow %s: %w", id, ErrMissingReference)
			}

			return fmt.Errorf("failed to resolve include %s: %w", id, err)
		}

		referenced[id] = workflow
	}

	for id, workflow := range referenced {
		if workflow.OwnerID != ownerID {
			return fmt.Errorf("workflow %s: %w", id, ErrCrossOwnerReference)
		}
	}

	adjacency, err := ownerIncludeGraph(ctx, repo, ownerID)
	if err != nil {
		return err
	}

	adjacency[candidateID] = newIncludes

	if hasIncludeCycle(candidateID, adjacency) {
		return fmt.Errorf("workflow %s: %w", candidateID, ErrIncludeCycle)
	}

	return nil
}

// ownerIncludeGraph loads every workflow owned by ownerID and maps each to
// its current includes list.
func ownerIncludeGraph(ctx context.Context, repo persistence.WorkflowRepository, ownerID string) (map[string][]string, error) {
	adjacency := make(map[string][]string)
	cursor := ""

	for {
		page, err := repo.ListByOwner(ctx, ownerID, persistence.ListOptions{
			Limit:  persistence.MaxPageLimit,
			Cursor: cursor,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to load include graph for owner %s: %w", ownerID, err)
		}

		for _, workflow := range page.Workflows {
			adjacency[workflow.ID] = workflow.Includes
		}

		if !page.HasMore || page.NextCursor == "" {
			break
		}

		cursor = page.NextCursor
	}

	return adjacency, nil
}

// hasIncludeCycle runs a depth-first search from start, tracking the nodes
// on the current path. A node popped off the path may legally be visited
// again via another branch.
func hasIncludeCycle(start string, adjacency map[string][]string) bool {
	onPath := make(map[string]bool)

	var visit func(id string) bool

	visit = func(id string) bool {
		if onPath[id] {
			return true
		}

		onPath[id] = true

		for _, next := range adjacency[id] {
			if visit(next) {
				return true
			}
		}

		onPath[id] = false

		return false
	}

	return visit(start)
}
