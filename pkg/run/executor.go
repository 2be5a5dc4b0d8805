package run

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/blockdeck/blockdeck/pkg/eventbus"
	"github.com/blockdeck/blockdeck/pkg/graph"
	"github.com/blockdeck/blockdeck/pkg/models"
	"github.com/blockdeck/blockdeck/pkg/otelhelper"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	nooptrace "go.opentelemetry.io/otel/trace/noop"
)

// State is the executor's lifecycle position.
type State string

const (
	StateIdle          State = "idle"
	StatePlanning      State = "planning"
	StateAwaitingInput State = "awaiting_input"
	StateRunning       State = "running"
	StateCompleted     State = "completed"
	StateFailed        State = "failed"
)

var (
	// ErrRunInFlight rejects a second Execute while one is running.
	ErrRunInFlight = errors.New("a run is already in flight")

	// ErrMissingEntryInput means a required manual input was left blank;
	// execution never begins.
	ErrMissingEntryInput = errors.New("required entry input is missing")

	// ErrUpstreamNotReady is returned in strict mode when a connected input
	// has no cached upstream value.
	ErrUpstreamNotReady = errors.New("upstream output not available")
)

// BlockRunner executes one block with fully resolved inputs. Implementations
// report entitlement, balance, and execution failures as errors.
type BlockRunner interface {
	RunBlock(ctx context.Context, blockID string, inputs map[string]string) (map[string]models.Scalar, error)
}

// BlockRunnerFunc adapts a function to the BlockRunner interface.
type BlockRunnerFunc func(ctx context.Context, blockID string, inputs map[string]string) (map[string]models.Scalar, error)

func (f BlockRunnerFunc) RunBlock(ctx context.Context, blockID string, inputs map[string]string) (map[string]models.Scalar, error) {
	return f(ctx, blockID, inputs)
}

// Options tune executor behavior.
type Options struct {
	// StrictUpstream makes a missing cached value on a connected input a
	// hard failure instead of substituting an empty string.
	StrictUpstream bool
}

// Plan is the result of the planning phase: the execution order and the
// manual inputs to collect before running.
type Plan struct {
	Order       []string           `json:"order"`
	EntryInputs []graph.EntryInput `json:"entry_inputs"`
}

// NodeResult is one node's outcome within a run.
type NodeResult struct {
	NodeID  string                   `json:"node_id"`
	BlockID string                   `json:"block_id"`
	Outputs map[string]models.Scalar `json:"outputs"`
}

// Result summarizes a finished run.
type Result struct {
	RunID           string       `json:"run_id"`
	State           State        `json:"state"`
	Order           []string     `json:"order"`
	Results         []NodeResult `json:"results"`
	FailedNodeID    string       `json:"failed_node_id,omitempty"`
	FailedNodeLabel string       `json:"failed_node_label,omitempty"`
	Error           string       `json:"error,omitempty"`
}

// EntryValues holds user-supplied manual values: node ID → input key → value.
type EntryValues map[string]map[string]string

// Executor runs a flow graph strictly sequentially: plan, collect entry
// inputs, then execute node by node against the block runner, caching each
// node's outputs for downstream reads. One executor serves one session;
// a single run may be in flight at a time.
type Executor struct {
	runner    BlockRunner
	schemas   graph.SchemaLookup
	cache     *OutputCache
	bus       eventbus.EventBus
	logger    *slog.Logger
	tracer    trace.Tracer
	opts      Options
	principal string

	mu         sync.Mutex
	state      State
	generation uint64
}

func NewExecutor(runner BlockRunner, schemas graph.SchemaLookup, opts Options) *Executor {
	return &Executor{
		runner:  runner,
		schemas: schemas,
		cache:   NewOutputCache(),
		logger:  slog.With("module", "run_executor"),
		tracer:  nooptrace.NewTracerProvider().Tracer("blockdeck/run"),
		opts:    opts,
		state:   StateIdle,
	}
}

// WithPrincipal stamps published run events with the owning user.
func (e *Executor) WithPrincipal(principal string) *Executor {
	e.principal = principal

	return e
}

// WithEventBus attaches a bus for run lifecycle events.
func (e *Executor) WithEventBus(bus eventbus.EventBus) *Executor {
	e.bus = bus

	return e
}

// WithTracer attaches a tracer for per-node spans.
func (e *Executor) WithTracer(tracer trace.Tracer) *Executor {
	e.tracer = tracer

	return e
}

// Cache exposes the session output cache (read-only use by callers).
func (e *Executor) Cache() *OutputCache {
	return e.cache
}

// State returns the executor's current lifecycle state.
func (e *Executor) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.state
}

// Reset abandons any in-flight run and returns to idle. Cache writes from a
// superseded run are discarded via the generation check.
func (e *Executor) Reset() {
	e.mu.Lock()
	e.generation++
	e.state = StateIdle
	e.mu.Unlock()
}

// Plan validates the graph and computes the run order and entry fields.
// A cycle fails planning; an empty graph plans to an empty order, which
// Execute treats as an immediate completion.
func (e *Executor) Plan(g *models.FlowGraph) (*Plan, error) {
	e.setState(StatePlanning)

	if err := graph.Validate(g); err != nil {
		e.setState(StateFailed)

		return nil, err
	}

	order, err := graph.ComputeRunOrder(g)
	if err != nil {
		e.setState(StateFailed)

		return nil, err
	}

	entry := graph.CollectEntryInputs(g, e.schemas)

	if len(entry) > 0 {
		e.setState(StateAwaitingInput)
	} else {
		e.setState(StateIdle)
	}

	return &Plan{Order: order, EntryInputs: entry}, nil
}

// Execute plans and runs the graph. Manual values come from entryValues;
// connected inputs read the output cache. On the first node failure the
// remaining order is abandoned; earlier nodes' cached outputs stay valid.
func (e *Executor) Execute(ctx context.Context, g *models.FlowGraph, entryValues EntryValues) (*Result, error) {
	gen, err := e.beginRun()
	if err != nil {
		return nil, err
	}

	plan, err := e.Plan(g)
	if err != nil {
		e.endRun(gen, StateFailed)

		return nil, err
	}

	if len(plan.Order) == 0 {
		// Nothing to run.
		e.endRun(gen, StateCompleted)

		return &Result{RunID: "", State: StateCompleted, Order: plan.Order}, nil
	}

	if err := checkRequiredEntries(plan.EntryInputs, entryValues); err != nil {
		e.endRun(gen, StateFailed)

		return nil, err
	}

	e.setState(StateRunning)

	runID := uuid.New().String()
	startedAt := time.Now()
	logger := e.logger.With("run_id", runID, "nodes", len(plan.Order))

	ctx, span := otelhelper.StartSpan(ctx, e.tracer, "run.execute",
		attribute.String(otelhelper.RunIDKey, runID),
		attribute.Int("blockdeck.run.node_count", len(plan.Order)),
	)
	defer span.End()

	logger.Info("Starting workflow run")
	e.publish(ctx, runID, eventbus.RunStarted{
		BaseEvent: e.baseEvent(eventbus.RunStartedEvent),
		RunID:     runID,
		NodeCount: len(plan.Order),
	})

	result := &Result{RunID: runID, Order: plan.Order, State: StateRunning}

	for _, nodeID := range plan.Order {
		node, ok := g.NodeByID(nodeID)
		if !ok {
			continue
		}

		def, ok := e.schemas(node.BlockID)
		if !ok {
			logger.Warn("Skipping node with unknown block", "node_id", nodeID, "block_id", node.BlockID)

			continue
		}

		inputs, err := e.resolveInputs(node, def, g, entryValues)
		if err != nil {
			return e.failRun(ctx, gen, result, node, err, logger), nil
		}

		outputs, err := e.executeNode(ctx, runID, node, inputs)
		if err != nil {
			return e.failRun(ctx, gen, result, node, err, logger), nil
		}

		// Discard results from a superseded run.
		if !e.isActive(gen) {
			logger.Warn("Run superseded, discarding node output", "node_id", nodeID)

			return result, nil
		}

		e.cache.Set(nodeID, outputs)
		result.Results = append(result.Results, NodeResult{
			NodeID:  nodeID,
			BlockID: node.BlockID,
			Outputs: outputs,
		})

		e.publish(ctx, runID, eventbus.RunNodeFinished{
			BaseEvent: e.baseEvent(eventbus.RunNodeFinishedEvent),
			RunID:     runID,
			NodeID:    nodeID,
			BlockID:   node.BlockID,
			Outputs:   outputs,
		})
	}

	e.endRun(gen, StateCompleted)
	result.State = StateCompleted

	logger.Info("Workflow run completed", "duration", time.Since(startedAt))
	e.publish(ctx, runID, eventbus.RunCompleted{
		BaseEvent: e.baseEvent(eventbus.RunCompletedEvent),
		RunID:     runID,
		Duration:  time.Since(startedAt),
	})

	return result, nil
}

// resolveInputs builds the input map for one node: connected inputs read the
// cache, manual inputs read the entry values.
func (e *Executor) resolveInputs(node *models.Node, def *models.BlockDefinition, g *models.FlowGraph, entryValues EntryValues) (map[string]string, error) {
	inputs := make(map[string]string, len(def.Inputs))

	for _, in := range def.Inputs {
		src := graph.ResolveInputSource(node.ID, in.Key, g)

		if src.Kind == graph.SourceConnected {
			v, ok := e.cache.Get(src.SourceNodeID, src.SourceOutput)
			if !ok {
				if e.opts.StrictUpstream {
					return nil, fmt.Errorf("input %q of node %s: %w", in.Key, node.ID, ErrUpstreamNotReady)
				}

				inputs[in.Key] = ""

				continue
			}

			inputs[in.Key] = v.String()

			continue
		}

		inputs[in.Key] = entryValues[node.ID][in.Key]
	}

	return inputs, nil
}

func (e *Executor) executeNode(ctx context.Context, runID string, node *models.Node, inputs map[string]string) (map[string]models.Scalar, error) {
	ctx, span := otelhelper.StartSpan(ctx, e.tracer, "run.node",
		attribute.String(otelhelper.RunIDKey, runID),
		attribute.String(otelhelper.NodeIDKey, node.ID),
		attribute.String(otelhelper.BlockIDKey, node.BlockID),
	)
	defer span.End()

	outputs, err := e.runner.RunBlock(ctx, node.BlockID, inputs)
	if err != nil {
		otelhelper.SetError(span, err)

		return nil, err
	}

	return outputs, nil
}

func (e *Executor) failRun(ctx context.Context, gen uint64, result *Result, node *models.Node, err error, logger *slog.Logger) *Result {
	e.endRun(gen, StateFailed)

	result.State = StateFailed
	result.FailedNodeID = node.ID
	result.FailedNodeLabel = node.DisplayLabel()
	result.Error = err.Error()

	logger.Error("Workflow run failed", "node_id", node.ID, "error", err)

	e.publish(ctx, result.RunID, eventbus.RunNodeFailed{
		BaseEvent: e.baseEvent(eventbus.RunNodeFailedEvent),
		RunID:     result.RunID,
		NodeID:    node.ID,
		BlockID:   node.BlockID,
		Error:     err.Error(),
	})
	e.publish(ctx, result.RunID, eventbus.RunFailed{
		BaseEvent:    e.baseEvent(eventbus.RunFailedEvent),
		RunID:        result.RunID,
		FailedNodeID: node.ID,
		Error:        err.Error(),
	})

	return result
}

func checkRequiredEntries(fields []graph.EntryInput, values EntryValues) error {
	for _, f := range fields {
		if !f.Required {
			continue
		}

		if values[f.NodeID][f.InputKey] == "" {
			return fmt.Errorf("%q: %w", f.Label, ErrMissingEntryInput)
		}
	}

	return nil
}

func (e *Executor) beginRun() (uint64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state == StateRunning {
		return 0, ErrRunInFlight
	}

	e.generation++
	e.state = StatePlanning

	return e.generation, nil
}

// endRun records the terminal state, unless the run was superseded.
func (e *Executor) endRun(gen uint64, terminal State) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.generation != gen {
		return
	}

	e.state = terminal
}

func (e *Executor) isActive(gen uint64) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.generation == gen
}

func (e *Executor) setState(s State) {
	e.mu.Lock()
	e.state = s
	e.mu.Unlock()
}

func (e *Executor) baseEvent(t eventbus.EventType) eventbus.BaseEvent {
	id := ""
	if e.bus != nil {
		id = e.bus.GenerateID()
	}

	return eventbus.BaseEvent{
		ID:        id,
		Type:      t,
		Timestamp: time.Now().UTC(),
		UserID:    e.principal,
	}
}

func (e *Executor) publish(ctx context.Context, key string, event eventbus.Event) {
	if e.bus == nil {
		return
	}

	if err := e.bus.Publish(ctx, key, event); err != nil {
		e.logger.Warn("Failed to publish run event", "event_type", event.GetType(), "error", err)
	}
}
