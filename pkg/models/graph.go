package models

// Node is one placement of a block on the canvas. Position is display
// metadata only; evaluation ignores it.
type Node struct {
	ID        string `json:"id"         validate:"required"`
	BlockID   string `json:"block_id"   validate:"required"`
	Label     string `json:"label"`
	PositionX int    `json:"position_x"`
	PositionY int    `json:"position_y"`
}

// DisplayLabel is the label shown to the user, falling back to the node ID.
func (n *Node) DisplayLabel() string {
	if n.Label != "" {
		return n.Label
	}

	return n.ID
}

// Edge wires one node's output to another node's input.
type Edge struct {
	ID           string `json:"id"`
	Source       string `json:"source"        validate:"required"`
	SourceOutput string `json:"source_output"`
	Target       string `json:"target"        validate:"required"`
	TargetInput  string `json:"target_input"`
}

// FlowGraph is a user-built graph of block nodes and edges, the unit the
// evaluator consumes. Node IDs are unique within a graph.
type FlowGraph struct {
	Nodes []Node `json:"nodes"`
	Edges []Edge `json:"edges"`
}

// NodeByID returns the node with the given ID, if present.
func (g *FlowGraph) NodeByID(id string) (*Node, bool) {
	for i := range g.Nodes {
		if g.Nodes[i].ID == id {
			return &g.Nodes[i], true
		}
	}

	return nil, false
}
