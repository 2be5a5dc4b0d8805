// Package graph evaluates user-built flow graphs: input-source resolution,
// run-order planning, entry-input collection, and structural validation.
package graph

import "github.com/blockdeck/blockdeck/pkg/models"

// SourceKind says where a node input's value comes from.
type SourceKind string

const (
	// SourceConnected means the input is wired from an upstream output.
	SourceConnected SourceKind = "connected"
	// SourceManual means the user supplies the value directly.
	SourceManual SourceKind = "manual"
)

// InputSource describes the resolved source of one node input.
type InputSource struct {
	Kind         SourceKind
	SourceNodeID string
	SourceOutput string
	SourceLabel  string
}

// ResolveInputSource scans the graph for an edge terminating at
// (nodeID, inputKey). The first match wins; edges from nodes absent from the
// node set are skipped. With no match the input is manual.
func ResolveInputSource(nodeID, inputKey string, g *models.FlowGraph) InputSource {
	for _, e := range g.Edges {
		if e.Target != nodeID || e.TargetInput != inputKey {
			continue
		}

		src, ok := g.NodeByID(e.Source)
		if !ok {
			continue
		}

		return InputSource{
			Kind:         SourceConnected,
			SourceNodeID: e.Source,
			SourceOutput: e.SourceOutput,
			SourceLabel:  src.DisplayLabel(),
		}
	}

	return InputSource{Kind: SourceManual}
}
