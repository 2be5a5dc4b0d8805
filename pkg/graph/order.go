package graph

import (
	"errors"

	"github.com/blockdeck/blockdeck/pkg/models"
)

// ErrCycle is returned when the graph contains a directed cycle and no run
// order exists.
var ErrCycle = errors.New("workflow has a cycle")

// ComputeRunOrder returns node IDs in an order where every edge source
// precedes its target. The sort is layered: each pass schedules every node
// whose dependencies are all scheduled, so ties among ready nodes follow the
// graph's node order and the result is deterministic for a fixed graph.
// An empty graph yields an empty order. Self-loops and edges touching
// missing nodes are ignored when building dependencies.
func ComputeRunOrder(g *models.FlowGraph) ([]string, error) {
	ids := make(map[string]struct{}, len(g.Nodes))
	for _, n := range g.Nodes {
		ids[n.ID] = struct{}{}
	}

	incoming := make(map[string]map[string]struct{}, len(g.Nodes))
	for id := range ids {
		incoming[id] = make(map[string]struct{})
	}

	for _, e := range g.Edges {
		if e.Source == e.Target {
			continue
		}

		if _, ok := ids[e.Source]; !ok {
			continue
		}

		if _, ok := ids[e.Target]; !ok {
			continue
		}

		incoming[e.Target][e.Source] = struct{}{}
	}

	order := make([]string, 0, len(g.Nodes))
	done := make(map[string]struct{}, len(g.Nodes))

	progress := true
	for progress && len(order) < len(g.Nodes) {
		progress = false

		for _, n := range g.Nodes {
			if _, scheduled := done[n.ID]; scheduled {
				continue
			}

			ready := true

			for dep := range incoming[n.ID] {
				if _, ok := done[dep]; !ok {
					ready = false

					break
				}
			}

			if ready {
				order = append(order, n.ID)
				done[n.ID] = struct{}{}
				progress = true
			}
		}
	}

	if len(order) != len(g.Nodes) {
		return nil, ErrCycle
	}

	return order, nil
}
