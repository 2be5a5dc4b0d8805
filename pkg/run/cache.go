// Package run drives sequential execution of a flow graph against a block
// runner and owns the session-scoped output cache.
package run

import (
	"sync"

	"github.com/blockdeck/blockdeck/pkg/models"
)

// OutputCache stores each node's last produced outputs, keyed by node ID then
// output key. Entries survive across runs within one session so partial
// re-runs can reuse upstream results; only the executor writes, everything
// else reads.
type OutputCache struct {
	mu      sync.RWMutex
	outputs map[string]map[string]models.Scalar
}

func NewOutputCache() *OutputCache {
	return &OutputCache{
		outputs: make(map[string]map[string]models.Scalar),
	}
}

// Set replaces the cached output set for a node.
func (c *OutputCache) Set(nodeID string, outputs map[string]models.Scalar) {
	copied := make(map[string]models.Scalar, len(outputs))
	for k, v := range outputs {
		copied[k] = v
	}

	c.mu.Lock()
	c.outputs[nodeID] = copied
	c.mu.Unlock()
}

// Get returns the cached value for (nodeID, outputKey), if present.
func (c *OutputCache) Get(nodeID, outputKey string) (models.Scalar, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	node, ok := c.outputs[nodeID]
	if !ok {
		return models.Scalar{}, false
	}

	v, ok := node[outputKey]

	return v, ok
}

// ClearNode drops the cached outputs of one node.
func (c *OutputCache) ClearNode(nodeID string) {
	c.mu.Lock()
	delete(c.outputs, nodeID)
	c.mu.Unlock()
}

// ClearAll empties the cache.
func (c *OutputCache) ClearAll() {
	c.mu.Lock()
	c.outputs = make(map[string]map[string]models.Scalar)
	c.mu.Unlock()
}

// Snapshot returns a copy of the whole cache for display purposes.
func (c *OutputCache) Snapshot() map[string]map[string]models.Scalar {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make(map[string]map[string]models.Scalar, len(c.outputs))

	for nodeID, outputs := range c.outputs {
		copied := make(map[string]models.Scalar, len(outputs))
		for k, v := range outputs {
			copied[k] = v
		}

		out[nodeID] = copied
	}

	return out
}
