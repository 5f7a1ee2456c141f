package vm

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/dop251/goja"
	"github.com/dop251/goja_nodejs/eventloop"
	"go.uber.org/zap"

	"github.com/pagebridge/pagebridge/internal/bridge"
	"github.com/pagebridge/pagebridge/internal/marshal"
)

// ErrClosed is returned for operations on a closed context.
var ErrClosed = errors.New("vm: context closed")

// Context is one JavaScript execution context backed by a goja runtime.
// All VM access is serialized through an event loop, satisfying goja's
// single-goroutine requirement; the Context API itself is safe for
// concurrent use.
//
// Values exported out of the VM keep their live counterparts in a
// handle table; a marshal.Remote value references a table entry by
// identifier and can be bound back into the VM later.
type Context struct {
	loop   *eventloop.EventLoop
	logger *zap.Logger

	mu      sync.Mutex
	closed  bool
	handles map[string]goja.Value
}

// NewContext creates and starts an execution context.
func NewContext(logger *zap.Logger) *Context {
	if logger == nil {
		logger = zap.NewNop()
	}
	loop := eventloop.NewEventLoop()
	loop.Start()
	return &Context{
		loop:    loop,
		logger:  logger,
		handles: make(map[string]goja.Value),
	}
}

// Close stops the event loop and drops all handles. Jobs already
// queued run to completion first.
func (c *Context) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.mu.Unlock()

	c.loop.Stop()

	c.mu.Lock()
	c.handles = make(map[string]goja.Value)
	c.mu.Unlock()
}

// run executes fn on the VM goroutine and waits for its result. If the
// context is cancelled first the job still runs to completion on the
// loop; only the wait is abandoned.
func (c *Context) run(ctx context.Context, fn func(rt *goja.Runtime) (marshal.Value, error)) (marshal.Value, error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return marshal.Value{}, ErrClosed
	}
	c.mu.Unlock()

	type outcome struct {
		v   marshal.Value
		err error
	}
	ch := make(chan outcome, 1)
	c.loop.RunOnLoop(func(rt *goja.Runtime) {
		v, err := fn(rt)
		ch <- outcome{v, err}
	})

	select {
	case out := <-ch:
		return out.v, out.err
	case <-ctx.Done():
		return marshal.Value{}, ctx.Err()
	}
}

// RunScript evaluates a script in the context and exports its
// completion value.
func (c *Context) RunScript(ctx context.Context, src string) (marshal.Value, error) {
	return c.run(ctx, func(rt *goja.Runtime) (marshal.Value, error) {
		v, err := rt.RunString(src)
		if err != nil {
			return marshal.Value{}, fmt.Errorf("script failed: %w", err)
		}
		return c.export(rt, v, nil)
	})
}

// Invoke calls an expression that evaluates to a function, binding this
// and passing the given arguments. Implements eval.Invoker.
func (c *Context) Invoke(ctx context.Context, expr string, this marshal.Value, args []marshal.Value) (marshal.Value, error) {
	return c.run(ctx, func(rt *goja.Runtime) (marshal.Value, error) {
		fnVal, err := rt.RunString("(" + expr + ")")
		if err != nil {
			return marshal.Value{}, fmt.Errorf("compile expression: %w", err)
		}
		callable, ok := goja.AssertFunction(fnVal)
		if !ok {
			return marshal.Value{}, fmt.Errorf("expression is not callable")
		}

		thisVal, err := c.bind(rt, this)
		if err != nil {
			return marshal.Value{}, err
		}
		callArgs := make([]goja.Value, len(args))
		for i, arg := range args {
			if callArgs[i], err = c.bind(rt, arg); err != nil {
				return marshal.Value{}, err
			}
		}

		result, err := callable(thisVal, callArgs...)
		if err != nil {
			return marshal.Value{}, fmt.Errorf("invocation failed: %w", err)
		}
		return c.export(rt, result, nil)
	})
}

// EvalOperand evaluates one call-site literal operand under the given
// this binding. Implements eval.Invoker.
func (c *Context) EvalOperand(ctx context.Context, src string, this marshal.Value) (marshal.Value, error) {
	return c.run(ctx, func(rt *goja.Runtime) (marshal.Value, error) {
		fnVal, err := rt.RunString("(function() { return (" + src + "); })")
		if err != nil {
			return marshal.Value{}, fmt.Errorf("compile operand: %w", err)
		}
		callable, _ := goja.AssertFunction(fnVal)
		thisVal, err := c.bind(rt, this)
		if err != nil {
			return marshal.Value{}, err
		}
		result, err := callable(thisVal)
		if err != nil {
			return marshal.Value{}, fmt.Errorf("operand failed: %w", err)
		}
		return c.export(rt, result, nil)
	})
}

// IsThenable reports whether the value references a promise handle.
// Implements eval.Invoker.
func (c *Context) IsThenable(v marshal.Value) bool {
	return v.Kind() == marshal.KindRemote && v.Handle().Subtype == "promise"
}

// Await observes a promise handle and returns its settled value; a
// rejected promise becomes an error. Implements eval.Invoker.
func (c *Context) Await(ctx context.Context, v marshal.Value) (marshal.Value, error) {
	if !c.IsThenable(v) {
		return v, nil
	}

	type outcome struct {
		v   marshal.Value
		err error
	}
	ch := make(chan outcome, 1)

	_, err := c.run(ctx, func(rt *goja.Runtime) (marshal.Value, error) {
		obj, err := c.lookup(v.Handle().ID)
		if err != nil {
			return marshal.Value{}, err
		}
		promise, ok := obj.Export().(*goja.Promise)
		if !ok {
			return marshal.Value{}, fmt.Errorf("handle %s is not a promise", v.Handle().ID)
		}

		switch promise.State() {
		case goja.PromiseStateFulfilled:
			res, err := c.export(rt, promise.Result(), nil)
			ch <- outcome{res, err}
		case goja.PromiseStateRejected:
			ch <- outcome{err: fmt.Errorf("promise rejected: %s", promise.Result().String())}
		default:
			// Pending: attach continuations that fire on the loop once
			// the promise settles.
			thenable := obj.(*goja.Object)
			then, ok := goja.AssertFunction(thenable.Get("then"))
			if !ok {
				return marshal.Value{}, fmt.Errorf("handle %s has no then method", v.Handle().ID)
			}
			onFulfilled := rt.ToValue(func(call goja.FunctionCall) goja.Value {
				res, err := c.export(rt, call.Argument(0), nil)
				ch <- outcome{res, err}
				return goja.Undefined()
			})
			onRejected := rt.ToValue(func(call goja.FunctionCall) goja.Value {
				ch <- outcome{err: fmt.Errorf("promise rejected: %s", call.Argument(0).String())}
				return goja.Undefined()
			})
			if _, err := then(thenable, onFulfilled, onRejected); err != nil {
				return marshal.Value{}, fmt.Errorf("attach continuation: %w", err)
			}
		}
		return marshal.Value{}, nil
	})
	if err != nil {
		return marshal.Value{}, err
	}

	select {
	case out := <-ch:
		return out.v, out.err
	case <-ctx.Done():
		return marshal.Value{}, ctx.Err()
	}
}

// BindFunction installs a global function that forwards calls into the
// bridge registry and returns a promise settled when the registry call
// settles. The settlement continuation hops back onto the event loop
// before touching the VM.
func (c *Context) BindFunction(name string, reg *bridge.Registry) error {
	_, err := c.run(context.Background(), func(rt *goja.Runtime) (marshal.Value, error) {
		err := rt.Set(name, func(call goja.FunctionCall) goja.Value {
			args := make([]marshal.Value, len(call.Arguments))
			for i, arg := range call.Arguments {
				exported, err := c.export(rt, arg, nil)
				if err != nil {
					panic(rt.NewTypeError(err.Error()))
				}
				args[i] = exported
			}

			promise, resolve, reject := rt.NewPromise()
			pending, err := reg.Invoke(name, args)
			if err != nil {
				reject(rt.ToValue(err.Error()))
				return rt.ToValue(promise)
			}

			go func() {
				settlement := <-pending.Done()
				c.loop.RunOnLoop(func(rt2 *goja.Runtime) {
					if settlement.Err != nil {
						reject(rt2.ToValue(settlement.Err.Error()))
						return
					}
					bound, err := c.bind(rt2, settlement.Value)
					if err != nil {
						reject(rt2.ToValue(err.Error()))
						return
					}
					resolve(bound)
				})
			}()
			return rt.ToValue(promise)
		})
		if err != nil {
			return marshal.Value{}, fmt.Errorf("bind %s: %w", name, err)
		}
		c.logger.Debug("function bound", zap.String("name", name))
		return marshal.Value{}, nil
	})
	return err
}

// HandleCount reports the number of live handles, for tests and
// diagnostics.
func (c *Context) HandleCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.handles)
}

// ReleaseHandle drops a handle, letting the VM value be collected.
func (c *Context) ReleaseHandle(id string) {
	c.mu.Lock()
	delete(c.handles, id)
	c.mu.Unlock()
}

func (c *Context) lookup(id string) (goja.Value, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.handles[id]
	if !ok {
		return nil, fmt.Errorf("unknown handle %s", id)
	}
	return v, nil
}
