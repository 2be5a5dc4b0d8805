package services

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blockdeck/blockdeck/pkg/models"
	"github.com/blockdeck/blockdeck/pkg/persistence"
	"github.com/blockdeck/blockdeck/pkg/persistence/file"
)

func newWorkflowService(t *testing.T) *Workflows {
	t.Helper()

	return NewWorkflows(file.NewPersistence(t.TempDir()))
}

func TestWorkflowCreateAndGet(t *testing.T) {
	svc := newWorkflowService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, "user-1", CreateWorkflowRequest{
		Name:        "Email digest",
		Description: "Summarize and send",
		Definition:  json.RawMessage(`{"nodes":[{"id":"n1","block_id":"constant"}],"edges":[]}`),
	})
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "user-1", created.OwnerID)
	assert.False(t, created.UpdatedAt.IsZero())

	got, err := svc.Get(ctx, "user-1", created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Email digest", got.Name)
}

func TestWorkflowCreateValidation(t *testing.T) {
	svc := newWorkflowService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, "", CreateWorkflowRequest{Name: "x"})
	require.ErrorIs(t, err, ErrEmptyOwnerID)

	_, err = svc.Create(ctx, "user-1", CreateWorkflowRequest{})
	require.ErrorIs(t, err, ErrWorkflowNameRequired)

	_, err = svc.Create(ctx, "user-1", CreateWorkflowRequest{
		Name:       "bad",
		Definition: json.RawMessage(`{"nodes":`),
	})
	require.ErrorIs(t, err, ErrInvalidDefinition)

	// Two edges into the same input are rejected at edit time.
	_, err = svc.Create(ctx, "user-1", CreateWorkflowRequest{
		Name: "double wire",
		Definition: json.RawMessage(`{
			"nodes":[{"id":"a","block_id":"constant"},{"id":"b","block_id":"constant"},{"id":"c","block_id":"text-join"}],
			"edges":[
				{"id":"e1","source":"a","source_output":"value","target":"c","target_input":"text1"},
				{"id":"e2","source":"b","source_output":"value","target":"c","target_input":"text1"}
			]
		}`),
	})
	require.ErrorIs(t, err, ErrInvalidDefinition)
}

func TestWorkflowGetHidesOtherOwners(t *testing.T) {
	svc := newWorkflowService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, "user-1", CreateWorkflowRequest{Name: "mine"})
	require.NoError(t, err)

	_, err = svc.Get(ctx, "user-2", created.ID)
	require.ErrorIs(t, err, ErrWorkflowNotFound)

	// Marketplace read access ignores ownership.
	public, err := svc.GetPublic(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "mine", public.Name)
}

func TestWorkflowUpdatePatchesFields(t *testing.T) {
	svc := newWorkflowService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, "user-1", CreateWorkflowRequest{Name: "before", Description: "old"})
	require.NoError(t, err)

	name := "after"
	updated, err := svc.Update(ctx, "user-1", created.ID, models.WorkflowPatch{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, "after", updated.Name)
	assert.Equal(t, "old", updated.Description)
	assert.True(t, updated.UpdatedAt.After(created.UpdatedAt) || updated.UpdatedAt.Equal(created.UpdatedAt))

	empty := ""
	_, err = svc.Update(ctx, "user-1", created.ID, models.WorkflowPatch{Name: &empty})
	require.ErrorIs(t, err, ErrWorkflowNameRequired)
}

func TestWorkflowUpdateRejectsBadIncludesAtomically(t *testing.T) {
	svc := newWorkflowService(t)
	ctx := context.Background()

	w1, err := svc.Create(ctx, "user-1", CreateWorkflowRequest{Name: "w1"})
	require.NoError(t, err)

	w2, err := svc.Create(ctx, "user-1", CreateWorkflowRequest{Name: "w2", Includes: []string{w1.ID}})
	require.NoError(t, err)

	// Closing the loop is rejected and nothing is persisted.
	includes := []string{w2.ID}
	name := "should not stick"
	_, err = svc.Update(ctx, "user-1", w1.ID, models.WorkflowPatch{Name: &name, Includes: &includes})
	require.ErrorIs(t, err, ErrIncludeCycle)

	got, err := svc.Get(ctx, "user-1", w1.ID)
	require.NoError(t, err)
	assert.Equal(t, "w1", got.Name)
	assert.Empty(t, got.Includes)
}

func TestWorkflowDelete(t *testing.T) {
	svc := newWorkflowService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, "user-1", CreateWorkflowRequest{Name: "doomed"})
	require.NoError(t, err)

	require.ErrorIs(t, svc.Delete(ctx, "user-2", created.ID), ErrWorkflowNotFound)
	require.NoError(t, svc.Delete(ctx, "user-1", created.ID))
	require.ErrorIs(t, svc.Delete(ctx, "user-1", created.ID), ErrWorkflowNotFound)
}

func TestWorkflowListByOwner(t *testing.T) {
	svc := newWorkflowService(t)
	ctx := context.Background()

	for _, name := range []string{"one", "two", "three"} {
		_, err := svc.Create(ctx, "user-1", CreateWorkflowRequest{Name: name})
		require.NoError(t, err)
	}

	_, err := svc.Create(ctx, "user-2", CreateWorkflowRequest{Name: "other"})
	require.NoError(t, err)

	result, err := svc.ListByOwner(ctx, "user-1", persistence.ListOptions{Limit: 10})
	require.NoError(t, err)
	assert.Len(t, result.Workflows, 3)

	all, err := svc.List(ctx, persistence.ListOptions{Limit: 10})
	require.NoError(t, err)
	assert.Len(t, all.Workflows, 4)
}
