// MIT License
//
// Copyright (c) 2022-2026 GoAkt Team
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
// SOFTWARE.

package agent

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/atomic"

	gerrors "github.com/tochemey/goagent/errors"
	"github.com/tochemey/goagent/internal/queue"
	"github.com/tochemey/goagent/internal/recovery"
	"github.com/tochemey/goagent/internal/validation"
	"github.com/tochemey/goagent/log"
)

var errUndefinedLogger = errors.New("logger is not defined")

// specifies the state in which the agent is
// regarding message processing
const (
	// idle means there are no messages to process
	idle int32 = iota
	// busy means a drain goroutine owns the queue
	busy
)

// Transition computes the next state from the current state and a message.
//
// The context is cancelled when the agent is disposed. A transition that
// observes the cancellation may return early with any error: the agent
// treats it as a graceful stop and neither commits the result nor consults
// the failure policy.
//
// The given state must be treated as immutable. Return a new value instead
// of mutating the previous one in place.
type Transition[S, M any] func(ctx context.Context, state S, message M) (S, error)

// FailurePolicy decides whether a transition failure is recoverable.
//
// Returning true keeps the previous state and resumes with the next message.
// Returning false halts the agent permanently. A non-nil error, or a panic,
// is treated as a halt and reported together with the transition failure.
type FailurePolicy func(ctx context.Context, err error) (bool, error)

// Agent owns a piece of state and applies messages to it one at a time.
//
// Any number of goroutines may call Submit concurrently. Messages are queued
// in an MPSC queue and drained by a single goroutine started on demand, which
// is the only code touching the state. No goroutine is parked while the agent
// is idle.
type Agent[S, M any] struct {
	name string

	// state is read and written by the drain goroutine only
	state      S
	transition Transition[S, M]
	policy     FailurePolicy
	queue      queue.Queue[M]

	status     *atomic.Int32
	disposed   *atomic.Bool
	processing *atomic.Int32

	// ctx is the cancellation signal handed to transitions and the policy
	ctx    context.Context
	cancel context.CancelFunc

	done     chan struct{}
	doneOnce sync.Once
	err      *atomic.Error

	processedCount          *atomic.Uint64
	failureCount            *atomic.Uint64
	droppedCount            *atomic.Uint64
	latestProcessedDuration *atomic.Duration

	logger            log.Logger
	unregisterMetrics func()
}

// New creates an Agent in the Running status.
//
// It returns a *errors.ConfigurationError when the initial state is absent
// (a nil pointer, map, channel, function or interface), when the transition
// or the policy is nil, or when an option is invalid.
func New[S, M any](initial S, transition Transition[S, M], policy FailurePolicy, opts ...Option) (*Agent[S, M], error) {
	cfg := newConfig(opts...)
	if err := validate(initial, transition, policy, cfg); err != nil {
		return nil, err
	}

	name := cfg.name
	if name == "" {
		name = uuid.NewString()
	}

	var q queue.Queue[M] = queue.NewUnbounded[M]()
	if cfg.bounded {
		q = queue.NewBounded[M](cfg.capacity)
	}

	ctx, cancel := context.WithCancel(context.Background())
	agent := &Agent[S, M]{
		name:                    name,
		state:                   initial,
		transition:              transition,
		policy:                  policy,
		queue:                   q,
		status:                  atomic.NewInt32(int32(Running)),
		disposed:                atomic.NewBool(false),
		processing:              atomic.NewInt32(idle),
		ctx:                     ctx,
		cancel:                  cancel,
		done:                    make(chan struct{}),
		err:                     atomic.NewError(nil),
		processedCount:          atomic.NewUint64(0),
		failureCount:            atomic.NewUint64(0),
		droppedCount:            atomic.NewUint64(0),
		latestProcessedDuration: atomic.NewDuration(0),
		logger:                  cfg.logger.With("agent", name),
		unregisterMetrics:       func() {},
	}

	if cfg.meter != nil {
		if err := agent.registerMetrics(cfg.meter); err != nil {
			cancel()
			return nil, gerrors.NewConfigurationError(err)
		}
	}

	agent.logger.Debugf("Agent %s started", name)
	return agent, nil
}

// Name returns the agent name
func (a *Agent[S, M]) Name() string {
	return a.name
}

// Logger returns the agent logger
func (a *Agent[S, M]) Logger() log.Logger {
	return a.logger
}

// Submit enqueues the message when the agent is Running and discards it
// otherwise. It never blocks on the consumer and never fails.
//
// A Submit racing a halt or a disposal may enqueue its message after the
// agent has stopped. On the unbounded queue such a message is retained but
// never processed. On the bounded queue it is rejected without being counted
// as dropped.
func (a *Agent[S, M]) Submit(message M) {
	if Status(a.status.Load()) != Running {
		return
	}
	a.enqueue(message)
}

// enqueue pushes a message accepted by Submit and wakes the consumer
func (a *Agent[S, M]) enqueue(message M) {
	if !a.queue.Push(message) {
		// a disposed ring buffer rejects every push, that is not a full queue
		if Status(a.status.Load()) != Running {
			return
		}

		a.droppedCount.Inc()
		if a.logger.Enabled(log.WarningLevel) {
			a.logger.Warnf("Agent %s queue is full, message dropped", a.name)
		}
		return
	}

	a.process()
}

// Dispose cancels the agent. Only the first call has an effect: it cancels
// the signal observed by transitions, moves a Running agent to Disposed and
// wakes the consumer. An in-flight transition is not interrupted; its result
// is discarded. Dispose does not wait; use Done or Shutdown for that.
func (a *Agent[S, M]) Dispose() {
	if !a.disposed.CompareAndSwap(false, true) {
		return
	}

	a.cancel()
	if a.status.CompareAndSwap(int32(Running), int32(Disposed)) {
		a.logger.Debugf("Agent %s disposed", a.name)
	}

	// the drain goroutine finalizes the agent
	a.process()
}

// Shutdown disposes the agent and waits until any in-flight transition has
// settled or the context is done.
func (a *Agent[S, M]) Shutdown(ctx context.Context) error {
	a.Dispose()
	select {
	case <-a.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Done returns a channel closed once the agent is Halted or Disposed
// and no transition is running anymore.
func (a *Agent[S, M]) Done() <-chan struct{} {
	return a.done
}

// Status returns the agent lifecycle status
func (a *Agent[S, M]) Status() Status {
	return Status(a.status.Load())
}

// Err returns the terminal error once the agent is Halted. It wraps
// errors.ErrHalted together with the failure that caused the halt.
func (a *Agent[S, M]) Err() error {
	return a.err.Load()
}

// ProcessedCount returns the number of committed transitions
func (a *Agent[S, M]) ProcessedCount() uint64 {
	return a.processedCount.Load()
}

// FailureCount returns the number of failed transitions handed to the policy
func (a *Agent[S, M]) FailureCount() uint64 {
	return a.failureCount.Load()
}

// DroppedCount returns the number of messages rejected by a full bounded queue
func (a *Agent[S, M]) DroppedCount() uint64 {
	return a.droppedCount.Load()
}

// LatestProcessedDuration returns the duration of the latest transition
func (a *Agent[S, M]) LatestProcessedDuration() time.Duration {
	return a.latestProcessedDuration.Load()
}

// QueueLength returns an approximate number of pending messages
func (a *Agent[S, M]) QueueLength() int64 {
	return a.queue.Len()
}

// process starts a drain goroutine when none is running
func (a *Agent[S, M]) process() {
	// Only start a processing loop when transitioning from idle -> busy.
	// If another loop is already running (state is busy), exit early.
	if !a.processing.CompareAndSwap(idle, busy) {
		return
	}

	go a.drain()
}

// drain processes queued messages until the queue is empty or the agent
// leaves the Running status. Once finalized the processing flag stays busy
// so no other drain goroutine is ever started.
func (a *Agent[S, M]) drain() {
	for {
		if Status(a.status.Load()) != Running {
			a.finalize()
			return
		}

		if message, ok := a.queue.Pop(); ok {
			a.handle(message)
			continue
		}

		// if no more messages, change busy state to idle
		a.processing.Store(idle)

		// check whether a message or a disposal arrived in the meantime
		pending := !a.queue.IsEmpty() || Status(a.status.Load()) != Running
		if pending && a.processing.CompareAndSwap(idle, busy) {
			continue
		}
		return
	}
}

// handle applies one message to the current state
func (a *Agent[S, M]) handle(message M) {
	start := time.Now()
	next, err := a.apply(message)
	a.latestProcessedDuration.Store(time.Since(start))

	// disposal has begun: whatever the outcome, the result is discarded
	if a.ctx.Err() != nil {
		return
	}

	if err == nil {
		a.state = next
		a.processedCount.Inc()
		return
	}

	a.failureCount.Inc()
	resume, cause := a.decide(err)
	if resume {
		a.logger.Warnf("Agent %s recovered from transition failure: %v", a.name, err)
		return
	}

	a.halt(cause)
}

// apply runs the transition and converts a panic into a PanicError
func (a *Agent[S, M]) apply(message M) (next S, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = recovery.PanicError(r)
		}
	}()
	return a.transition(a.ctx, a.state, message)
}

// decide runs the failure policy. A failing policy halts the agent and the
// returned cause carries both failures.
func (a *Agent[S, M]) decide(cause error) (resume bool, terminal error) {
	defer func() {
		if r := recover(); r != nil {
			resume = false
			terminal = gerrors.NewPolicyError(cause, recovery.PanicError(r))
		}
	}()

	resume, err := a.policy(a.ctx, cause)
	if err != nil {
		return false, gerrors.NewPolicyError(cause, err)
	}

	if !resume {
		return false, cause
	}
	return true, nil
}

// halt moves a Running agent to Halted. It is a no-op when
// disposal won the race.
func (a *Agent[S, M]) halt(cause error) {
	if !a.status.CompareAndSwap(int32(Running), int32(Halted)) {
		return
	}

	a.err.Store(gerrors.NewErrHalted(cause))
	a.logger.Errorf("Agent %s halted: %v", a.name, cause)
}

// finalize discards the pending messages and releases the agent resources.
// It runs once, on the drain goroutine.
func (a *Agent[S, M]) finalize() {
	a.doneOnce.Do(func() {
		a.queue.Dispose()
		a.unregisterMetrics()
		close(a.done)
		a.logger.Debugf("Agent %s stopped with status=%s processed=%d", a.name, a.Status(), a.processedCount.Load())
	})
}

func validate[S, M any](initial S, transition Transition[S, M], policy FailurePolicy, cfg *config) error {
	err := validation.New(validation.FailFast()).
		AddValidator(validation.NewRequiredValidator(initial, gerrors.ErrUndefinedState)).
		AddValidator(validation.NewRequiredValidator(transition, gerrors.ErrUndefinedTransition)).
		AddValidator(validation.NewRequiredValidator(policy, gerrors.ErrUndefinedPolicy)).
		AddAssertion(!cfg.bounded || cfg.capacity > 0, gerrors.ErrInvalidQueueCapacity).
		AddValidator(validation.NewRequiredValidator(cfg.logger, errUndefinedLogger)).
		Validate()
	if err != nil {
		return gerrors.NewConfigurationError(err)
	}
	return nil
}
