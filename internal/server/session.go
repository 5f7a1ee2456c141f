package server

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/pagebridge/pagebridge/internal/bridge"
	"github.com/pagebridge/pagebridge/internal/eval"
	"github.com/pagebridge/pagebridge/internal/ident"
	"github.com/pagebridge/pagebridge/internal/marshal"
	"github.com/pagebridge/pagebridge/internal/monitoring"
	"github.com/pagebridge/pagebridge/internal/transport"
	"github.com/pagebridge/pagebridge/internal/vm"
)

// Session owns one client connection together with its execution
// context, bridge registry and orchestrator. Each connection gets an
// isolated VM; nothing is shared between sessions.
type Session struct {
	id      string
	conn    *transport.Conn
	vm      *vm.Context
	bridge  *bridge.Registry
	orch    *eval.Orchestrator
	logger  *zap.Logger
	metrics *monitoring.Metrics

	// evalTimeout bounds a single evaluation when non-zero.
	evalTimeout time.Duration
	// evalLimit throttles evaluate frames when non-nil.
	evalLimit *rate.Limiter

	wg sync.WaitGroup
}

// NewSession wires a session around an accepted connection. Bound
// function invocations inside the VM surface to the client as
// bindingCalled frames.
func NewSession(conn *transport.Conn, logger *zap.Logger, metrics *monitoring.Metrics) *Session {
	id := ident.NewSessionID().String()
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.With(zap.String("session", id))

	emitter := bridge.EmitterFunc(func(name string, seq uint64) error {
		return conn.Write(transport.BindingEnvelope(name, seq))
	})
	registry := bridge.NewRegistry(emitter, logger, metrics)
	ctx := vm.NewContext(logger)

	return &Session{
		id:      id,
		conn:    conn,
		vm:      ctx,
		bridge:  registry,
		orch:    eval.New(ctx, logger, metrics),
		logger:  logger,
		metrics: metrics,
	}
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// Run reads frames until the connection drops. Evaluations run on
// their own goroutines so settle frames stay readable while an awaited
// evaluation is in flight.
func (s *Session) Run(ctx context.Context) {
	defer s.close()
	s.logger.Info("session started")

	for {
		env, err := s.conn.Read()
		if err != nil {
			s.logger.Info("session closed", zap.Error(err))
			return
		}

		switch env.Type {
		case transport.TypeEvaluate:
			s.wg.Add(1)
			go func(env transport.Envelope) {
				defer s.wg.Done()
				s.handleEvaluate(ctx, env)
			}(env)
		case transport.TypeExpose:
			s.handleExpose(env)
		case transport.TypeSettle:
			s.handleSettle(env)
		case transport.TypeRelease:
			s.vm.ReleaseHandle(env.Handle)
			s.ack(env.ID)
		case transport.TypePing:
			_ = s.conn.Write(transport.Envelope{Type: transport.TypePong, ID: env.ID})
		default:
			s.conn.WriteError(env.ID, fmt.Sprintf("unknown message type %q", env.Type))
		}
	}
}

func (s *Session) handleEvaluate(ctx context.Context, env transport.Envelope) {
	if s.evalLimit != nil && !s.evalLimit.Allow() {
		s.conn.WriteError(env.ID, "evaluation rate limit exceeded")
		return
	}
	if s.evalTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.evalTimeout)
		defer cancel()
	}

	outcome, err := s.orch.Evaluate(ctx, env.Expression, env.Args, env.Operands)
	if err != nil {
		s.conn.WriteError(env.ID, err.Error())
		return
	}

	if outcome.Result != nil {
		s.writeResult(env.ID, *outcome.Result)
		return
	}

	select {
	case settled := <-outcome.Pending:
		if settled.Err != nil {
			s.conn.WriteError(env.ID, settled.Err.Error())
			return
		}
		s.writeResult(env.ID, *settled.Result)
	case <-ctx.Done():
		s.conn.WriteError(env.ID, ctx.Err().Error())
	}
}

func (s *Session) handleExpose(env transport.Envelope) {
	if env.Name == "" {
		s.conn.WriteError(env.ID, "expose requires a name")
		return
	}
	if err := s.vm.BindFunction(env.Name, s.bridge); err != nil {
		s.conn.WriteError(env.ID, err.Error())
		return
	}
	s.ack(env.ID)
}

func (s *Session) handleSettle(env transport.Envelope) {
	var value marshal.Value
	if env.Value != nil {
		value = *env.Value
	}
	if err := s.bridge.Settle(env.Name, env.Seq, value, env.ErrMsg); err != nil {
		s.conn.WriteError(env.ID, err.Error())
		return
	}
	s.ack(env.ID)
}

func (s *Session) writeResult(id string, res eval.Result) {
	err := s.conn.Write(transport.ResultEnvelope(id, res.Descriptor, res.Specials))
	if err == nil {
		return
	}
	// An unencodable result (NaN, Infinity) must still settle the
	// request, or the client waits forever.
	s.logger.Warn("result write failed", zap.Error(err))
	s.conn.WriteError(id, fmt.Sprintf("result not serializable: %v", err))
}

func (s *Session) ack(id string) {
	_ = s.conn.Write(transport.Envelope{Type: transport.TypeResult, ID: id})
}

func (s *Session) close() {
	s.wg.Wait()
	s.conn.Close()
	s.vm.Close()
}
