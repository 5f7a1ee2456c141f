package bridge

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/pagebridge/pagebridge/internal/marshal"
	"github.com/pagebridge/pagebridge/internal/monitoring"
)

// ErrUnknownCall is returned by Settle when no pending call matches the
// given name and sequence number. Settling twice hits the same path:
// the entry is removed the first time and never revisited.
var ErrUnknownCall = errors.New("bridge: unknown pending call")

// Emitter carries the compact correlation token across the transport
// when a call is initiated. The real arguments stay host-side.
type Emitter interface {
	BindingCalled(name string, seq uint64) error
}

// EmitterFunc adapts a function to the Emitter interface.
type EmitterFunc func(name string, seq uint64) error

func (f EmitterFunc) BindingCalled(name string, seq uint64) error { return f(name, seq) }

// CallError is the failure a rejected call settles with.
type CallError struct {
	Name    string
	Seq     uint64
	Message string
}

func (e *CallError) Error() string {
	return fmt.Sprintf("call %s#%d failed: %s", e.Name, e.Seq, e.Message)
}

// Settlement is the terminal state of a pending call: a JSON-only value
// or an error, never both.
type Settlement struct {
	Value marshal.Value
	Err   error
}

// Pending is the future returned by Invoke. It settles exactly once.
type Pending struct {
	Name string
	Seq  uint64
	done <-chan Settlement
}

// Done returns a channel that delivers the settlement. The channel is
// buffered; the settling side never blocks on it.
func (p *Pending) Done() <-chan Settlement { return p.done }

// Wait blocks until the call settles or the context is cancelled. The
// registry enforces no timeout of its own; cancellation is the
// caller's responsibility.
func (p *Pending) Wait(ctx context.Context) (marshal.Value, error) {
	select {
	case s := <-p.done:
		return s.Value, s.Err
	case <-ctx.Done():
		return marshal.Value{}, ctx.Err()
	}
}

// call is one outstanding invocation. The registry is its sole owner;
// collaborators reference it only by (name, seq).
type call struct {
	args []marshal.Value
	done chan Settlement
}

// function is the per-name correlation state: a monotonic sequence
// counter and the map of outstanding calls. Sequence allocation and map
// insertion happen atomically under mu.
type function struct {
	mu      sync.Mutex
	seq     uint64
	pending map[uint64]*call
}

// Registry correlates exposed-function calls across the boundary.
// Per-name state is created lazily on first invocation and lives for
// the registry's lifetime; memory is bounded by outstanding calls, not
// cumulative ones.
type Registry struct {
	mu        sync.Mutex
	functions map[string]*function

	emit    Emitter
	logger  *zap.Logger
	metrics *monitoring.Metrics
}

// NewRegistry creates a registry emitting correlation tokens through
// emit. Metrics may be nil.
func NewRegistry(emit Emitter, logger *zap.Logger, metrics *monitoring.Metrics) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		functions: make(map[string]*function),
		emit:      emit,
		logger:    logger,
		metrics:   metrics,
	}
}

func (r *Registry) function(name string) *function {
	r.mu.Lock()
	defer r.mu.Unlock()
	fn, ok := r.functions[name]
	if !ok {
		fn = &function{pending: make(map[uint64]*call)}
		r.functions[name] = fn
	}
	return fn
}

// Invoke initiates a call: it allocates the next sequence number,
// retains the arguments, emits the (name, seq) token, and returns a
// future settled later by Settle. Many calls may be outstanding under
// the same name; each owns an independent slot.
func (r *Registry) Invoke(name string, args []marshal.Value) (*Pending, error) {
	fn := r.function(name)

	fn.mu.Lock()
	fn.seq++
	seq := fn.seq
	c := &call{args: args, done: make(chan Settlement, 1)}
	fn.pending[seq] = c
	fn.mu.Unlock()

	if r.metrics != nil {
		r.metrics.BridgeInvocations.WithLabelValues(name).Inc()
		r.metrics.BridgePending.Inc()
	}
	r.logger.Debug("bridge call initiated",
		zap.String("name", name),
		zap.Uint64("seq", seq),
		zap.Int("args", len(args)))

	if r.emit != nil {
		if err := r.emit.BindingCalled(name, seq); err != nil {
			// The token never reached the peer, so nothing can settle
			// this call; drop it instead of leaking the entry.
			fn.mu.Lock()
			delete(fn.pending, seq)
			fn.mu.Unlock()
			if r.metrics != nil {
				r.metrics.BridgePending.Dec()
			}
			return nil, fmt.Errorf("emit binding call %s#%d: %w", name, seq, err)
		}
	}

	return &Pending{Name: name, Seq: seq, done: c.done}, nil
}

// Arguments returns the retained arguments of an outstanding call.
func (r *Registry) Arguments(name string, seq uint64) ([]marshal.Value, bool) {
	r.mu.Lock()
	fn, ok := r.functions[name]
	r.mu.Unlock()
	if !ok {
		return nil, false
	}
	fn.mu.Lock()
	defer fn.mu.Unlock()
	c, ok := fn.pending[seq]
	if !ok {
		return nil, false
	}
	return c.args, true
}

// Settle resolves or rejects an outstanding call and removes it. A
// non-empty errmsg rejects; otherwise the call resolves with value.
// An unknown (name, seq) pair, including a repeated settlement, is a
// logged no-op returning ErrUnknownCall; other pending calls are
// unaffected.
func (r *Registry) Settle(name string, seq uint64, value marshal.Value, errmsg string) error {
	r.mu.Lock()
	fn, ok := r.functions[name]
	r.mu.Unlock()
	if !ok {
		r.logger.Warn("settlement for unknown function", zap.String("name", name), zap.Uint64("seq", seq))
		return ErrUnknownCall
	}

	fn.mu.Lock()
	c, ok := fn.pending[seq]
	if ok {
		delete(fn.pending, seq)
	}
	fn.mu.Unlock()
	if !ok {
		r.logger.Warn("settlement for unknown call", zap.String("name", name), zap.Uint64("seq", seq))
		return ErrUnknownCall
	}

	status := "resolved"
	if errmsg != "" {
		status = "rejected"
		c.done <- Settlement{Err: &CallError{Name: name, Seq: seq, Message: errmsg}}
	} else {
		c.done <- Settlement{Value: value}
	}

	if r.metrics != nil {
		r.metrics.BridgePending.Dec()
		r.metrics.BridgeSettlements.WithLabelValues(name, status).Inc()
	}
	r.logger.Debug("bridge call settled",
		zap.String("name", name),
		zap.Uint64("seq", seq),
		zap.String("status", status))
	return nil
}

// PendingCount reports the number of outstanding calls across all
// names.
func (r *Registry) PendingCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	total := 0
	for _, fn := range r.functions {
		fn.mu.Lock()
		total += len(fn.pending)
		fn.mu.Unlock()
	}
	return total
}
