package eval

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/pagebridge/pagebridge/internal/marshal"
	"github.com/pagebridge/pagebridge/internal/monitoring"
)

// Invoker abstracts the execution context the orchestrator drives: it
// evaluates expressions, calls functions, and observes promises. The
// goja-backed context in internal/vm implements it.
type Invoker interface {
	// Invoke calls the expression (a function literal or an expression
	// convertible to one) with the given this binding and arguments.
	Invoke(ctx context.Context, expr string, this marshal.Value, args []marshal.Value) (marshal.Value, error)

	// EvalOperand evaluates one call-site literal operand under the
	// given this binding.
	EvalOperand(ctx context.Context, src string, this marshal.Value) (marshal.Value, error)

	// IsThenable reports whether the value is a promise the context
	// can await.
	IsThenable(v marshal.Value) bool

	// Await resolves a thenable to its settled value.
	Await(ctx context.Context, v marshal.Value) (marshal.Value, error)
}

// Result is the marshaled outcome of one evaluation: the JSON-safe
// descriptor of the result value plus the parallel list of special
// values removed from it.
type Result struct {
	Descriptor marshal.Descriptor `json:"descriptor"`
	Specials   []marshal.Value    `json:"specials"`
}

// Settled is the deferred delivery for awaited evaluations.
type Settled struct {
	Result *Result
	Err    error
}

// Outcome is the explicit sum of the two evaluation shapes: a result
// settled synchronously, or a pending channel that delivers the result
// once the awaited promise settles. Exactly one field is set.
type Outcome struct {
	Result  *Result
	Pending <-chan Settled
}

// Orchestrator wires merging, invocation and extraction together
// around one remote-expression call.
type Orchestrator struct {
	inv     Invoker
	logger  *zap.Logger
	metrics *monitoring.Metrics
}

// New creates an orchestrator over the given execution context.
// Metrics may be nil.
func New(inv Invoker, logger *zap.Logger, metrics *monitoring.Metrics) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{inv: inv, logger: logger, metrics: metrics}
}

// request is the decoded positional argument list. The wire order is
// [ ...specialSlots, argumentDescriptors, funcThis, exprThis,
// awaitPromise, resultSchema ]; control arguments are popped off the
// tail in reverse, leaving the prefix of raw special-value slots.
type request struct {
	slots        []marshal.Value
	descriptors  []marshal.Descriptor
	funcThis     marshal.Value
	exprThis     marshal.Value
	awaitPromise bool
	schema       *marshal.Schema
}

func decodeRequest(args []marshal.Value) (*request, error) {
	if len(args) < 5 {
		return nil, fmt.Errorf("evaluation needs at least 5 positional arguments, got %d", len(args))
	}
	pop := func() marshal.Value {
		v := args[len(args)-1]
		args = args[:len(args)-1]
		return v
	}

	schema, err := marshal.SchemaFromValue(pop())
	if err != nil {
		return nil, fmt.Errorf("result schema: %w", err)
	}

	awaitRaw := pop()
	if awaitRaw.Kind() != marshal.KindBool {
		return nil, fmt.Errorf("awaitPromise must be a boolean, got %s", awaitRaw.Kind())
	}

	exprThis := pop()
	funcThis := pop()

	descRaw := pop()
	if descRaw.Kind() != marshal.KindArray {
		return nil, fmt.Errorf("argument descriptors must be an array, got %s", descRaw.Kind())
	}
	descriptors := make([]marshal.Descriptor, 0, descRaw.Len())
	for _, item := range descRaw.Items() {
		d, err := marshal.DescriptorFromValue(item)
		if err != nil {
			return nil, err
		}
		descriptors = append(descriptors, d)
	}

	return &request{
		slots:        args,
		descriptors:  descriptors,
		funcThis:     funcThis,
		exprThis:     exprThis,
		awaitPromise: awaitRaw.Bool(),
		schema:       schema,
	}, nil
}

// Evaluate runs one remote-expression call: merge argument descriptors
// with the special-value slots, invoke the expression, optionally await
// the result, and extract it against the result schema. Call-site
// literal operands are evaluated under funcThis before merging.
func (o *Orchestrator) Evaluate(ctx context.Context, expr string, args []marshal.Value, operandSrcs []string) (*Outcome, error) {
	start := time.Now()

	req, err := decodeRequest(args)
	if err != nil {
		o.observe("invalid", start)
		return nil, err
	}

	operands := make([]marshal.Value, len(operandSrcs))
	for i, src := range operandSrcs {
		operands[i], err = o.inv.EvalOperand(ctx, src, req.funcThis)
		if err != nil {
			o.observe("error", start)
			return nil, fmt.Errorf("evaluate operand %d: %w", i, err)
		}
	}

	callArgs, err := marshal.MergeArguments(req.descriptors, req.slots, operands)
	if err != nil {
		o.observe("invalid", start)
		return nil, err
	}

	result, err := o.inv.Invoke(ctx, expr, req.exprThis, callArgs)
	if err != nil {
		o.observe("error", start)
		return nil, err
	}

	if req.awaitPromise && o.inv.IsThenable(result) {
		ch := make(chan Settled, 1)
		go func() {
			settledVal, err := o.inv.Await(ctx, result)
			if err != nil {
				o.observe("error", start)
				ch <- Settled{Err: err}
				return
			}
			res, err := o.finish(settledVal, req.schema, start)
			ch <- Settled{Result: res, Err: err}
		}()
		return &Outcome{Pending: ch}, nil
	}

	res, err := o.finish(result, req.schema, start)
	if err != nil {
		return nil, err
	}
	return &Outcome{Result: res}, nil
}

func (o *Orchestrator) finish(result marshal.Value, schema *marshal.Schema, start time.Time) (*Result, error) {
	desc, specials, err := marshal.Extract(result, schema)
	if err != nil {
		o.observe("invalid", start)
		return nil, err
	}
	o.observe("ok", start)
	if o.metrics != nil {
		o.metrics.SpecialsExtracted.Add(float64(len(specials)))
	}
	o.logger.Debug("evaluation finished",
		zap.Int("specials", len(specials)),
		zap.Duration("took", time.Since(start)))
	return &Result{Descriptor: desc, Specials: specials}, nil
}

func (o *Orchestrator) observe(status string, start time.Time) {
	if o.metrics == nil {
		return
	}
	o.metrics.Evaluations.WithLabelValues(status).Inc()
	o.metrics.EvaluationDuration.Observe(time.Since(start).Seconds())
}
