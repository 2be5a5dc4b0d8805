package graph

import (
	"fmt"

	"github.com/blockdeck/blockdeck/pkg/models"
)

// SchemaLookup resolves a block ID to its definition. A nil second return
// means the block is unknown and its node contributes no entry fields.
type SchemaLookup func(blockID string) (*models.BlockDefinition, bool)

// EntryInput is one manual value the user must supply before a run: a
// declared input of a node with no incoming edge.
type EntryInput struct {
	NodeID    string `json:"node_id"`
	NodeLabel string `json:"node_label"`
	InputKey  string `json:"input_key"`
	Label     string `json:"label"`
	Required  bool   `json:"required"`
}

// CollectEntryInputs walks nodes in graph order and their declared inputs in
// schema order, emitting a field for every input the resolver reports as
// manual. The order is deterministic for a fixed graph.
func CollectEntryInputs(g *models.FlowGraph, schemas SchemaLookup) []EntryInput {
	out := make([]EntryInput, 0)

	for i := range g.Nodes {
		node := &g.Nodes[i]

		def, ok := schemas(node.BlockID)
		if !ok {
			continue
		}

		for _, in := range def.Inputs {
			src := ResolveInputSource(node.ID, in.Key, g)
			if src.Kind != SourceManual {
				continue
			}

			label := node.DisplayLabel()
			out = append(out, EntryInput{
				NodeID:    node.ID,
				NodeLabel: label,
				InputKey:  in.Key,
				Label:     fmt.Sprintf("%s: %s", label, in.Label),
				Required:  in.Required,
			})
		}
	}

	return out
}
