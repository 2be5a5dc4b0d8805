// Package eventbus carries run-execution and billing lifecycle events
// between the executor, the ledger, and the execution-log subscriber.
package eventbus

import (
	"time"

	"github.com/blockdeck/blockdeck/pkg/models"
)

type EventType string

// Topic is the single bus topic; consumers filter on event type metadata.
const Topic = "blockdeck.events"

const EventMetadataKey = "key"
const EventTypeMetadataKey = "event_type"

const (
	// Workflow run lifecycle.
	RunStartedEvent      EventType = "run.started"
	RunNodeFinishedEvent EventType = "run.node.finished"
	RunNodeFailedEvent   EventType = "run.node.failed"
	RunCompletedEvent    EventType = "run.completed"
	RunFailedEvent       EventType = "run.failed"

	// Token ledger.
	TokensCreditedEvent EventType = "tokens.credited"
	TokensDeductedEvent EventType = "tokens.deducted"

	// Persistence.
	WorkflowUpdatedEvent EventType = "workflow.updated"
)

type BaseEvent struct {
	ID        string         `json:"id"`
	Type      EventType      `json:"type"`
	Timestamp time.Time      `json:"timestamp"`
	UserID    string         `json:"user_id,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

type RunStarted struct {
	BaseEvent

	RunID     string `json:"run_id"`
	NodeCount int    `json:"node_count"`
}

func (e RunStarted) GetType() EventType { return RunStartedEvent }

type RunNodeFinished struct {
	BaseEvent

	RunID   string                   `json:"run_id"`
	NodeID  string                   `json:"node_id"`
	BlockID string                   `json:"block_id"`
	Outputs map[string]models.Scalar `json:"outputs,omitempty"`
}

func (e RunNodeFinished) GetType() EventType { return RunNodeFinishedEvent }

type RunNodeFailed struct {
	BaseEvent

	RunID   string `json:"run_id"`
	NodeID  string `json:"node_id"`
	BlockID string `json:"block_id"`
	Error   string `json:"error"`
}

func (e RunNodeFailed) GetType() EventType { return RunNodeFailedEvent }

type RunCompleted struct {
	BaseEvent

	RunID    string        `json:"run_id"`
	Duration time.Duration `json:"duration"`
}

func (e RunCompleted) GetType() EventType { return RunCompletedEvent }

type RunFailed struct {
	BaseEvent

	RunID        string `json:"run_id"`
	FailedNodeID string `json:"failed_node_id,omitempty"`
	Error        string `json:"error"`
}

func (e RunFailed) GetType() EventType { return RunFailedEvent }

type TokensCredited struct {
	BaseEvent

	Amount     int    `json:"amount"`
	Reason     string `json:"reason,omitempty"`
	NewBalance int    `json:"new_balance"`
}

func (e TokensCredited) GetType() EventType { return TokensCreditedEvent }

type TokensDeducted struct {
	BaseEvent

	Amount     int    `json:"amount"`
	BlockID    string `json:"block_id,omitempty"`
	NewBalance int    `json:"new_balance"`
}

func (e TokensDeducted) GetType() EventType { return TokensDeductedEvent }

type WorkflowUpdated struct {
	BaseEvent

	WorkflowID string `json:"workflow_id"`
}

func (e WorkflowUpdated) GetType() EventType { return WorkflowUpdatedEvent }
