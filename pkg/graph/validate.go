package graph

import (
	"errors"
	"fmt"

	"github.com/blockdeck/blockdeck/pkg/models"
)

var (
	// ErrDuplicateNodeID indicates two nodes in the graph share an ID.
	ErrDuplicateNodeID = errors.New("duplicate node id")

	// ErrDuplicateInputEdge indicates more than one edge terminates at the
	// same (node, input) pair. The canvas allows drawing these, but only one
	// source can win, so the graph is rejected rather than silently picking.
	ErrDuplicateInputEdge = errors.New("multiple edges target the same input")
)

// ValidationError reports which node or input a structural problem concerns.
type ValidationError struct {
	NodeID   string
	InputKey string
	Err      error
}

func (e *ValidationError) Error() string {
	if e.InputKey != "" {
		return fmt.Sprintf("node %s input %s: %v", e.NodeID, e.InputKey, e.Err)
	}

	return fmt.Sprintf("node %s: %v", e.NodeID, e.Err)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// Validate checks the structural invariants the evaluator relies on: unique
// node IDs and at most one edge into any (node, input) pair. Edges touching
// nodes outside the graph are tolerated here; the evaluator ignores them.
func Validate(g *models.FlowGraph) error {
	seen := make(map[string]struct{}, len(g.Nodes))
	for _, n := range g.Nodes {
		if _, dup := seen[n.ID]; dup {
			return &ValidationError{NodeID: n.ID, Err: ErrDuplicateNodeID}
		}

		seen[n.ID] = struct{}{}
	}

	targets := make(map[string]struct{}, len(g.Edges))

	for _, e := range g.Edges {
		if _, ok := seen[e.Source]; !ok {
			continue
		}

		if _, ok := seen[e.Target]; !ok {
			continue
		}

		key := e.Target + "\x00" + e.TargetInput
		if _, dup := targets[key]; dup {
			return &ValidationError{NodeID: e.Target, InputKey: e.TargetInput, Err: ErrDuplicateInputEdge}
		}

		targets[key] = struct{}{}
	}

	return nil
}
