package web

import (
	"context"
	"sync"
	"time"

	"github.com/blockdeck/blockdeck/pkg/eventbus"
)

const executionLogDepth = 100

// LogEntry is one recorded bus event, flattened for the activity panel.
type LogEntry struct {
	Time    time.Time          `json:"time"`
	Type    eventbus.EventType `json:"type"`
	RunID   string             `json:"run_id,omitempty"`
	NodeID  string             `json:"node_id,omitempty"`
	BlockID string             `json:"block_id,omitempty"`
	Detail  string             `json:"detail,omitempty"`
	Amount  int                `json:"amount,omitempty"`
	Balance int                `json:"balance,omitempty"`
}

// ExecutionLog keeps the most recent run and token events per principal,
// fed by bus subscriptions.
type ExecutionLog struct {
	mu      sync.Mutex
	entries map[string][]LogEntry
}

func NewExecutionLog() *ExecutionLog {
	return &ExecutionLog{entries: make(map[string][]LogEntry)}
}

// Attach subscribes the log to the run and token event types.
func (l *ExecutionLog) Attach(bus eventbus.EventSubscriber) error {
	types := []eventbus.EventType{
		eventbus.RunStartedEvent,
		eventbus.RunNodeFinishedEvent,
		eventbus.RunNodeFailedEvent,
		eventbus.RunCompletedEvent,
		eventbus.RunFailedEvent,
		eventbus.TokensCreditedEvent,
		eventbus.TokensDeductedEvent,
	}

	for _, t := range types {
		if err := bus.Handle(t, l.record); err != nil {
			return err
		}
	}

	return nil
}

// Entries returns the principal's recent events, newest last.
func (l *ExecutionLog) Entries(principal string) []LogEntry {
	l.mu.Lock()
	defer l.mu.Unlock()

	entries := l.entries[principal]
	out := make([]LogEntry, len(entries))
	copy(out, entries)

	return out
}

// Clear drops the principal's recorded events.
func (l *ExecutionLog) Clear(principal string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	delete(l.entries, principal)
}

func (l *ExecutionLog) record(_ context.Context, event any) error {
	var (
		principal string
		entry     LogEntry
	)

	switch e := event.(type) {
	case *eventbus.RunStarted:
		principal = e.UserID
		entry = LogEntry{Time: e.Timestamp, Type: e.Type, RunID: e.RunID}
	case *eventbus.RunNodeFinished:
		principal = e.UserID
		entry = LogEntry{Time: e.Timestamp, Type: e.Type, RunID: e.RunID, NodeID: e.NodeID, BlockID: e.BlockID}
	case *eventbus.RunNodeFailed:
		principal = e.UserID
		entry = LogEntry{Time: e.Timestamp, Type: e.Type, RunID: e.RunID, NodeID: e.NodeID, BlockID: e.BlockID, Detail: e.Error}
	case *eventbus.RunCompleted:
		principal = e.UserID
		entry = LogEntry{Time: e.Timestamp, Type: e.Type, RunID: e.RunID}
	case *eventbus.RunFailed:
		principal = e.UserID
		entry = LogEntry{Time: e.Timestamp, Type: e.Type, RunID: e.RunID, NodeID: e.FailedNodeID, Detail: e.Error}
	case *eventbus.TokensCredited:
		principal = e.UserID
		entry = LogEntry{Time: e.Timestamp, Type: e.Type, Detail: e.Reason, Amount: e.Amount, Balance: e.NewBalance}
	case *eventbus.TokensDeducted:
		principal = e.UserID
		entry = LogEntry{Time: e.Timestamp, Type: e.Type, BlockID: e.BlockID, Amount: e.Amount, Balance: e.NewBalance}
	default:
		return nil
	}

	if principal == "" {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	entries := append(l.entries[principal], entry)
	if len(entries) > executionLogDepth {
		entries = entries[len(entries)-executionLogDepth:]
	}

	l.entries[principal] = entries

	return nil
}
