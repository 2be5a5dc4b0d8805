package graph

import (
	"testing"

	"github.com/blockdeck/blockdeck/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testGraph(nodes []string, edges [][2]string) *models.FlowGraph {
	g := &models.FlowGraph{}
	for _, id := range nodes {
		g.Nodes = append(g.Nodes, models.Node{ID: id, BlockID: "constant"})
	}

	for i, e := range edges {
		g.Edges = append(g.Edges, models.Edge{
			ID:           "e" + string(rune('a'+i)),
			Source:       e[0],
			SourceOutput: "value",
			Target:       e[1],
			TargetInput:  "value",
		})
	}

	return g
}

func indexOf(order []string, id string) int {
	for i, v := range order {
		if v == id {
			return i
		}
	}

	return -1
}

func TestComputeRunOrder_LinearChain(t *testing.T) {
	g := testGraph([]string{"a", "b", "c"}, [][2]string{{"a", "b"}, {"b", "c"}})

	order, err := ComputeRunOrder(g)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, order)
}

func TestComputeRunOrder_EdgesBeforeSources(t *testing.T) {
	// Diamond plus a stray root; every edge source must precede its target.
	g := testGraph(
		[]string{"d", "b", "c", "a", "x"},
		[][2]string{{"a", "b"}, {"a", "c"}, {"b", "d"}, {"c", "d"}},
	)

	order, err := ComputeRunOrder(g)
	require.NoError(t, err)
	require.Len(t, order, 5)

	for _, e := range g.Edges {
		assert.Less(t, indexOf(order, e.Source), indexOf(order, e.Target),
			"edge %s->%s out of order", e.Source, e.Target)
	}
}

func TestComputeRunOrder_Deterministic(t *testing.T) {
	g := testGraph([]string{"n1", "n2", "n3", "n4"}, nil)

	first, err := ComputeRunOrder(g)
	require.NoError(t, err)

	for range 10 {
		again, err := ComputeRunOrder(g)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestComputeRunOrder_CycleDetected(t *testing.T) {
	g := testGraph([]string{"a", "b", "c"}, [][2]string{{"a", "b"}, {"b", "c"}, {"c", "a"}})

	order, err := ComputeRunOrder(g)
	assert.ErrorIs(t, err, ErrCycle)
	assert.Nil(t, order)
}

func TestComputeRunOrder_CycleInSubgraph(t *testing.T) {
	// A cycle anywhere rejects the whole graph, never a partial order.
	g := testGraph([]string{"free", "a", "b"}, [][2]string{{"a", "b"}, {"b", "a"}})

	_, err := ComputeRunOrder(g)
	assert.ErrorIs(t, err, ErrCycle)
}

func TestComputeRunOrder_EmptyGraph(t *testing.T) {
	order, err := ComputeRunOrder(&models.FlowGraph{})
	require.NoError(t, err)
	assert.Empty(t, order)
}

func TestComputeRunOrder_IgnoresSelfLoopsAndDanglingEdges(t *testing.T) {
	g := testGraph([]string{"a", "b"}, [][2]string{{"a", "a"}, {"ghost", "b"}, {"a", "b"}})

	order, err := ComputeRunOrder(g)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, order)
}

func TestValidate_RejectsDuplicateInputEdges(t *testing.T) {
	g := testGraph([]string{"a", "b", "c"}, [][2]string{{"a", "c"}, {"b", "c"}})

	err := Validate(g)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDuplicateInputEdge)

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "c", verr.NodeID)
	assert.Equal(t, "value", verr.InputKey)
}

func TestValidate_RejectsDuplicateNodeIDs(t *testing.T) {
	g := &models.FlowGraph{Nodes: []models.Node{{ID: "a"}, {ID: "a"}}}

	assert.ErrorIs(t, Validate(g), ErrDuplicateNodeID)
}

func TestValidate_AllowsDistinctInputsAndDanglingEdges(t *testing.T) {
	g := &models.FlowGraph{
		Nodes: []models.Node{{ID: "a"}, {ID: "b"}, {ID: "join"}},
		Edges: []models.Edge{
			{Source: "a", SourceOutput: "value", Target: "join", TargetInput: "text1"},
			{Source: "b", SourceOutput: "value", Target: "join", TargetInput: "text2"},
			{Source: "ghost", Target: "join", TargetInput: "text1"},
		},
	}

	assert.NoError(t, Validate(g))
}
