package export_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blockdeck/blockdeck/pkg/export"
	"github.com/blockdeck/blockdeck/pkg/models"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	graph := &models.FlowGraph{
		Nodes: []models.Node{
			{ID: "n1", BlockID: "constant", Label: "Greeting", PositionX: 10, PositionY: 20},
			{ID: "n2", BlockID: "uppercase"},
		},
		Edges: []models.Edge{
			{ID: "e1", Source: "n1", SourceOutput: "value", Target: "n2", TargetInput: "text"},
		},
	}

	data, err := export.Encode(graph, time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"exportedAt"`)

	decoded, err := export.Decode(data)
	require.NoError(t, err)
	assert.Equal(t, graph.Nodes, decoded.Nodes)
	assert.Equal(t, graph.Edges, decoded.Edges)
}

func TestEncodeEmptyGraphUsesArrays(t *testing.T) {
	data, err := export.Encode(&models.FlowGraph{}, time.Now())
	require.NoError(t, err)

	assert.Contains(t, string(data), `"nodes": []`)
	assert.Contains(t, string(data), `"edges": []`)
}

func TestDecodeRejectsMalformedJSON(t *testing.T) {
	_, err := export.Decode([]byte(`{"nodes": [`))
	assert.Error(t, err)
}

func TestDecodeRejectsMissingFields(t *testing.T) {
	_, err := export.Decode([]byte(`{"nodes": []}`))
	assert.ErrorContains(t, err, "invalid workflow export")

	_, err = export.Decode([]byte(`{"nodes": [{"id": "n1"}], "edges": []}`))
	assert.ErrorContains(t, err, "invalid workflow export")

	_, err = export.Decode([]byte(`{"nodes": [], "edges": [{"source": "a"}]}`))
	assert.ErrorContains(t, err, "invalid workflow export")
}

func TestDecodeAcceptsForeignExtraFields(t *testing.T) {
	decoded, err := export.Decode([]byte(`{
		"nodes": [{"id": "n1", "block_id": "trigger", "position_x": 5, "position_y": 5}],
		"edges": [],
		"exportedAt": "2026-03-01T12:00:00Z",
		"version": 2
	}`))
	require.NoError(t, err)
	require.Len(t, decoded.Nodes, 1)
	assert.Equal(t, "trigger", decoded.Nodes[0].BlockID)
}
