// Package export reads and writes the backup format for workflow graphs:
// a JSON document holding the graph's nodes, edges, and export time,
// re-importable verbatim.
package export

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/xeipuuv/gojsonschema"

	"github.com/blockdeck/blockdeck/pkg/models"
)

// Document is the file-level export of one workflow graph.
type Document struct {
	Nodes      []models.Node `json:"nodes"`
	Edges      []models.Edge `json:"edges"`
	ExportedAt time.Time     `json:"exportedAt"`
}

// documentSchema validates imported documents before they are trusted as
// graph data. Position and label fields are optional display metadata.
var documentSchema = map[string]any{
	"type":                 "object",
	"required":             []any{"nodes", "edges"},
	"additionalProperties": true,
	"properties": map[string]any{
		"nodes": map[string]any{
			"type": "array",
			"items": map[string]any{
				"type":     "object",
				"required": []any{"id", "block_id"},
				"properties": map[string]any{
					"id":         map[string]any{"type": "string", "minLength": 1},
					"block_id":   map[string]any{"type": "string", "minLength": 1},
					"label":      map[string]any{"type": "string"},
					"position_x": map[string]any{"type": "integer"},
					"position_y": map[string]any{"type": "integer"},
				},
			},
		},
		"edges": map[string]any{
			"type": "array",
			"items": map[string]any{
				"type":     "object",
				"required": []any{"source", "target"},
				"properties": map[string]any{
					"id":            map[string]any{"type": "string"},
					"source":        map[string]any{"type": "string", "minLength": 1},
					"source_output": map[string]any{"type": "string"},
					"target":        map[string]any{"type": "string", "minLength": 1},
					"target_input":  map[string]any{"type": "string"},
				},
			},
		},
		"exportedAt": map[string]any{"type": "string"},
	},
}

// Encode serializes a graph for backup.
func Encode(graph *models.FlowGraph, exportedAt time.Time) ([]byte, error) {
	doc := Document{
		Nodes:      graph.Nodes,
		Edges:      graph.Edges,
		ExportedAt: exportedAt.UTC(),
	}

	if doc.Nodes == nil {
		doc.Nodes = []models.Node{}
	}

	if doc.Edges == nil {
		doc.Edges = []models.Edge{}
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode workflow export: %w", err)
	}

	return data, nil
}

// Decode parses and validates an exported document, returning the graph it
// carries.
func Decode(data []byte) (*models.FlowGraph, error) {
	if err := validateDocument(data); err != nil {
		return nil, err
	}

	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode workflow export: %w", err)
	}

	return &models.FlowGraph{Nodes: doc.Nodes, Edges: doc.Edges}, nil
}

func validateDocument(data []byte) error {
	schemaLoader := gojsonschema.NewGoLoader(documentSchema)
	dataLoader := gojsonschema.NewBytesLoader(data)

	result, err := gojsonschema.Validate(schemaLoader, dataLoader)
	if err != nil {
		return fmt.Errorf("failed to validate workflow export: %w", err)
	}

	if !result.Valid() {
		var reasons []string
		for _, schemaErr := range result.Errors() {
			reasons = append(reasons, schemaErr.String())
		}

		return fmt.Errorf("invalid workflow export: %s", strings.Join(reasons, "; "))
	}

	return nil
}
