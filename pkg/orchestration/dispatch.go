// Package orchestration implements the orchestrator pipeline (§4.6): the
// single process(Request) -> WrappedResponse entry point that composes the
// classifier, registry, safety wrapper, explainability generator, and audit
// logger into one request flow.
package orchestration

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/clinicalcore/orchestrator/core"
)

// dispatcher bounds a single handler's Process call by a deadline, recovers
// from a handler panic instead of letting it escape the pipeline (§7
// "the orchestrator never panics out"), and serializes calls per handler
// name: a call waits until the previous call to the same handler has
// returned or reached its deadline. A call abandoned at its deadline keeps
// running in its own goroutine and can overlap the next call to that
// handler. Every handler is serialized this way; there is no opt-out for
// reentrant handlers. Adapted from the teacher's PlanExecutor, which bounded remote-agent calls
// under a shared semaphore; here the concurrency unit is "one handler
// instance" rather than "N parallel steps".
type dispatcher struct {
	mu       sync.Mutex
	inflight map[string]*sync.Mutex
	breakers map[string]*core.CircuitBreaker
	logger   core.Logger
}

func newDispatcher(logger core.Logger) *dispatcher {
	if logger == nil {
		logger = core.NoOpLogger{}
	}
	return &dispatcher{
		inflight: make(map[string]*sync.Mutex),
		breakers: make(map[string]*core.CircuitBreaker),
		logger:   logger,
	}
}

func (d *dispatcher) lockFor(name string) *sync.Mutex {
	d.mu.Lock()
	defer d.mu.Unlock()
	l, ok := d.inflight[name]
	if !ok {
		l = &sync.Mutex{}
		d.inflight[name] = l
	}
	return l
}

func (d *dispatcher) breakerFor(name string) *core.CircuitBreaker {
	d.mu.Lock()
	defer d.mu.Unlock()
	b, ok := d.breakers[name]
	if !ok {
		b = core.NewCircuitBreaker(name, core.DefaultCircuitBreakerConfig())
		d.breakers[name] = b
	}
	return b
}

// dispatchResult is what call returns: exactly one of reply or err is set.
type dispatchResult struct {
	reply core.HandlerReply
	err   error
}

// call invokes handler.Process(ctx, req) under deadline, serialized per
// handler name, with panic recovery and circuit-breaker bookkeeping. The
// returned error is always either nil or wraps core.ErrHandlerFailure /
// core.ErrDeadlineExceeded via *core.PipelineError (§7).
func (d *dispatcher) call(ctx context.Context, handler core.Handler, req core.Request, deadline time.Duration) (core.HandlerReply, error) {
	name := handler.Name()

	lock := d.lockFor(name)
	lock.Lock()
	defer lock.Unlock()

	breaker := d.breakerFor(name)
	if !breaker.CanExecute() {
		return core.HandlerReply{}, core.NewPipelineError(core.StageDispatch, name,
			"circuit breaker open", core.ErrHandlerFailure)
	}

	callCtx, cancel := context.WithTimeout(ctx, deadline)
	defer cancel()

	resultCh := make(chan dispatchResult, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				resultCh <- dispatchResult{err: fmt.Errorf("handler panic: %v", r)}
			}
		}()
		reply, err := handler.Process(callCtx, req)
		resultCh <- dispatchResult{reply: reply, err: err}
	}()

	select {
	case <-callCtx.Done():
		breaker.RecordFailure()
		d.logger.Warn("handler deadline exceeded", "handler", name)
		return core.HandlerReply{}, core.NewPipelineError(core.StageDispatch, name,
			"deadline exceeded", core.ErrDeadlineExceeded)
	case res := <-resultCh:
		if res.err != nil {
			breaker.RecordFailure()
			return core.HandlerReply{}, core.NewPipelineError(core.StageDispatch, name,
				res.err.Error(), core.ErrHandlerFailure)
		}
		breaker.RecordSuccess()
		return res.reply, nil
	}
}
