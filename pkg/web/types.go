// Package web provides HTTP request and response types for the marketplace API.
package web

import (
	"encoding/json"

	"github.com/blockdeck/blockdeck/pkg/models"
	"github.com/blockdeck/blockdeck/pkg/run"
)

// CreateWorkflowRequest is the body for creating a new workflow.
type CreateWorkflowRequest struct {
	Name        string          `json:"name"        validate:"required,min=1,max=255"`
	Description string          `json:"description" validate:"max=2000"`
	Definition  json.RawMessage `json:"definition"`
	Includes    []string        `json:"includes"`
}

// UpdateWorkflowRequest is a partial update; absent fields are left untouched.
type UpdateWorkflowRequest struct {
	Name        *string         `json:"name,omitempty"        validate:"omitempty,min=1,max=255"`
	Description *string         `json:"description,omitempty" validate:"omitempty,max=2000"`
	Definition  json.RawMessage `json:"definition,omitempty"`
	Includes    *[]string       `json:"includes,omitempty"`
}

// RunBlockRequest executes a single block outside a flow.
type RunBlockRequest struct {
	BlockID string            `json:"blockId" validate:"required"`
	Inputs  map[string]string `json:"inputs"`
}

// RunBlockResponse carries the block's outputs on success.
type RunBlockResponse struct {
	Success bool                     `json:"success"`
	Outputs map[string]models.Scalar `json:"outputs"`
}

// PlanFlowRequest carries the canvas graph to plan.
type PlanFlowRequest struct {
	Nodes []models.Node `json:"nodes"`
	Edges []models.Edge `json:"edges"`
}

// RunFlowRequest carries the graph plus the user's manual entry values,
// keyed node ID then input key.
type RunFlowRequest struct {
	Nodes       []models.Node   `json:"nodes"`
	Edges       []models.Edge   `json:"edges"`
	EntryValues run.EntryValues `json:"entryValues"`
}

// PurchaseRequest buys a token pack or subscription by price slug.
type PurchaseRequest struct {
	PriceSlug  string `json:"priceSlug"  validate:"required"`
	SuccessURL string `json:"successUrl"`
	CancelURL  string `json:"cancelUrl"`
}

// CheckoutRequest opens a checkout session for a block's price slug.
type CheckoutRequest struct {
	PriceSlug  string `json:"priceSlug"  validate:"required"`
	SuccessURL string `json:"successUrl"`
	CancelURL  string `json:"cancelUrl"`
}
