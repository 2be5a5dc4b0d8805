package models

import (
	"encoding/json"
	"time"
)

// Workflow is a persisted marketplace workflow. The definition is an opaque
// JSON document (the canvas state); Includes references other workflows owned
// by the same principal and must stay acyclic.
type Workflow struct {
	ID          string          `json:"id"`
	OwnerID     string          `json:"owner_id"`
	Name        string          `json:"name"        validate:"required,min=1"`
	Description string          `json:"description"`
	Definition  json.RawMessage `json:"definition"`
	Includes    []string        `json:"includes"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// WorkflowPatch is a partial update; nil fields are left untouched.
type WorkflowPatch struct {
	Name        *string         `json:"name,omitempty"`
	Description *string         `json:"description,omitempty"`
	Definition  json.RawMessage `json:"definition,omitempty"`
	Includes    *[]string       `json:"includes,omitempty"`
}
