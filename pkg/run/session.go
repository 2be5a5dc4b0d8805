package run

import (
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/blockdeck/blockdeck/pkg/eventbus"
	"github.com/blockdeck/blockdeck/pkg/graph"
)

const (
	defaultSessionTTL = 30 * time.Minute
	defaultPruneEvery = 5 * time.Minute
)

// RunnerFactory binds a block runner to one principal, so per-user gates
// like entitlements and token balances apply inside a session's runs.
type RunnerFactory func(principal string) BlockRunner

// SharedRunner uses the same runner for every principal.
func SharedRunner(runner BlockRunner) RunnerFactory {
	return func(string) BlockRunner { return runner }
}

// SessionStore hands out one executor per principal and reclaims idle ones.
// The per-session output cache lives inside the executor, so a principal's
// cached node outputs survive across requests until the session expires.
type SessionStore struct {
	runners RunnerFactory
	schemas graph.SchemaLookup
	opts    Options
	ttl     time.Duration
	logger  *slog.Logger
	bus     eventbus.EventBus
	tracer  trace.Tracer

	mu       sync.Mutex
	sessions map[string]*session
	done     chan struct{}
	once     sync.Once
}

type session struct {
	executor *Executor
	lastSeen time.Time
}

func NewSessionStore(runners RunnerFactory, schemas graph.SchemaLookup, opts Options) *SessionStore {
	s := &SessionStore{
		runners:  runners,
		schemas:  schemas,
		opts:     opts,
		ttl:      defaultSessionTTL,
		logger:   slog.With("module", "run_sessions"),
		sessions: make(map[string]*session),
		done:     make(chan struct{}),
	}

	go s.pruneLoop(defaultPruneEvery)

	return s
}

// WithEventBus attaches a bus that new executors publish run events to.
func (s *SessionStore) WithEventBus(bus eventbus.EventBus) *SessionStore {
	s.bus = bus

	return s
}

// WithTracer attaches a tracer that new executors span their runs with.
func (s *SessionStore) WithTracer(tracer trace.Tracer) *SessionStore {
	s.tracer = tracer

	return s
}

// WithTTL overrides the idle timeout. Intended for construction time.
func (s *SessionStore) WithTTL(ttl time.Duration) *SessionStore {
	s.ttl = ttl

	return s
}

// Executor returns the principal's executor, creating one on first use.
func (s *SessionStore) Executor(principal string) *Executor {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[principal]
	if !ok {
		executor := NewExecutor(s.runners(principal), s.schemas, s.opts).WithPrincipal(principal)
		if s.bus != nil {
			executor = executor.WithEventBus(s.bus)
		}

		if s.tracer != nil {
			executor = executor.WithTracer(s.tracer)
		}

		sess = &session{executor: executor}
		s.sessions[principal] = sess
	}

	sess.lastSeen = time.Now()

	return sess.executor
}

// Drop discards a principal's session and its cached outputs.
func (s *SessionStore) Drop(principal string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.sessions, principal)
}

// Close stops the background pruner.
func (s *SessionStore) Close() {
	s.once.Do(func() { close(s.done) })
}

func (s *SessionStore) pruneLoop(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			s.prune(time.Now())
		}
	}
}

func (s *SessionStore) prune(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for principal, sess := range s.sessions {
		if now.Sub(sess.lastSeen) > s.ttl {
			delete(s.sessions, principal)
			s.logger.Debug("Pruned idle run session", "principal", principal)
		}
	}
}
