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

package broadcast

import (
	"context"
	"sync"

	goset "github.com/deckarep/golang-set/v2"
	"go.uber.org/atomic"

	"github.com/tochemey/goagent/agent"
	gerrors "github.com/tochemey/goagent/errors"
	"github.com/tochemey/goagent/internal/recovery"
	"github.com/tochemey/goagent/log"
)

// Broadcaster wraps an Agent and republishes every committed state to its
// subscriptions.
//
// A new subscription first receives the latest published state (the initial
// state before any commit) and then every subsequent one. When the failure
// policy halts the agent, every subscription receives the failure once.
// When the broadcaster is disposed, every subscription receives a single
// completion.
type Broadcaster[S, M any] struct {
	agent      *agent.Agent[S, M]
	transition agent.Transition[S, M]
	policy     agent.FailurePolicy

	// mu guards the cache and the terminal record
	mu        sync.Mutex
	value     S
	version   uint64
	err       error
	completed bool

	subscriptions goset.Set[*Subscription[S]]
	disposed      *atomic.Bool
	logger        log.Logger
}

// New creates a Broadcaster and its underlying Agent. The agent options
// apply to the wrapped agent; construction fails the same way agent.New does.
func New[S, M any](initial S, transition agent.Transition[S, M], policy agent.FailurePolicy, opts ...agent.Option) (*Broadcaster[S, M], error) {
	b := &Broadcaster[S, M]{
		transition:    transition,
		policy:        policy,
		value:         initial,
		subscriptions: goset.NewSet[*Subscription[S]](),
		disposed:      atomic.NewBool(false),
	}

	// keep the nil checks of the agent for the wrapped functions
	var wrappedTransition agent.Transition[S, M]
	if transition != nil {
		wrappedTransition = b.onTransition
	}

	var wrappedPolicy agent.FailurePolicy
	if policy != nil {
		wrappedPolicy = b.onFailure
	}

	underlying, err := agent.New(initial, wrappedTransition, wrappedPolicy, opts...)
	if err != nil {
		return nil, err
	}

	b.agent = underlying
	b.logger = underlying.Logger()
	return b, nil
}

// Name returns the name of the wrapped agent
func (b *Broadcaster[S, M]) Name() string {
	return b.agent.Name()
}

// Submit forwards the message to the wrapped agent unless the broadcaster
// is disposed
func (b *Broadcaster[S, M]) Submit(message M) {
	if b.disposed.Load() {
		return
	}
	b.agent.Submit(message)
}

// Subscribe registers the observer.
//
// Without a terminal notification the observer receives the latest state then
// every published state. After a failure it receives only the failure. After
// disposal it receives the latest state immediately followed by completion.
// A nil observer is accepted and receives nothing.
func (b *Broadcaster[S, M]) Subscribe(observer Observer[S]) *Subscription[S] {
	if observer == nil {
		observer = NewObserver[S](nil, nil, nil)
	}

	subscription := newSubscription(observer, b.logger, b.unsubscribe)

	b.mu.Lock()
	value, version, err, completed := b.value, b.version, b.err, b.completed
	terminated := err != nil || completed
	if !terminated {
		b.subscriptions.Add(subscription)
	}

	// queue the replay while holding the lock so that any later publish
	// lands behind it
	switch {
	case err != nil:
		subscription.events.Push(event[S]{kind: errorEvent, err: err})
	case completed:
		subscription.events.Push(event[S]{kind: nextEvent, state: value, version: version})
		subscription.events.Push(event[S]{kind: completedEvent})
	default:
		subscription.events.Push(event[S]{kind: nextEvent, state: value, version: version})
	}
	b.mu.Unlock()

	subscription.flush()
	return subscription
}

// Value returns the latest published state
func (b *Broadcaster[S, M]) Value() S {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.value
}

// Err returns the failure delivered to the subscriptions when the failure
// policy halted the agent, nil otherwise
func (b *Broadcaster[S, M]) Err() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.err
}

// Status returns the status of the wrapped agent
func (b *Broadcaster[S, M]) Status() agent.Status {
	return b.agent.Status()
}

// SubscribersCount returns the number of active subscriptions
func (b *Broadcaster[S, M]) SubscribersCount() int {
	return b.subscriptions.Cardinality()
}

// Done returns a channel closed once the wrapped agent has stopped
func (b *Broadcaster[S, M]) Done() <-chan struct{} {
	return b.agent.Done()
}

// Dispose disposes the wrapped agent and completes every subscription.
// Only the first call has an effect. When a failure was already delivered,
// no completion follows it.
func (b *Broadcaster[S, M]) Dispose() {
	if !b.disposed.CompareAndSwap(false, true) {
		return
	}

	b.agent.Dispose()

	var subscriptions []*Subscription[S]
	b.mu.Lock()
	if b.err == nil && !b.completed {
		b.completed = true
		subscriptions = b.subscriptions.ToSlice()
	}
	b.subscriptions.Clear()
	b.mu.Unlock()

	for _, subscription := range subscriptions {
		subscription.completed()
	}
	b.logger.Debugf("Broadcaster %s disposed", b.agent.Name())
}

// Shutdown disposes the broadcaster and waits for the wrapped agent to stop
// or for the context to be done
func (b *Broadcaster[S, M]) Shutdown(ctx context.Context) error {
	b.Dispose()
	select {
	case <-b.agent.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// onTransition runs the user transition and publishes its result
func (b *Broadcaster[S, M]) onTransition(ctx context.Context, state S, message M) (S, error) {
	next, err := b.transition(ctx, state, message)
	if err != nil {
		return next, err
	}

	if ctx.Err() == nil && !b.disposed.Load() {
		b.publish(next)
	}
	return next, nil
}

// onFailure runs the user policy and notifies the subscriptions when it
// decides to halt. The decision is returned unchanged.
func (b *Broadcaster[S, M]) onFailure(ctx context.Context, cause error) (resume bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = recovery.PanicError(r)
			resume = false
			b.terminate(gerrors.NewPolicyError(cause, err))
		}
	}()

	resume, err = b.policy(ctx, cause)
	switch {
	case err != nil:
		b.terminate(gerrors.NewPolicyError(cause, err))
	case !resume:
		b.terminate(cause)
	}
	return resume, err
}

// publish caches the state and delivers it to the current subscriptions.
// Publishing after a terminal notification is a no-op.
func (b *Broadcaster[S, M]) publish(state S) {
	b.mu.Lock()
	if b.err != nil || b.completed {
		b.mu.Unlock()
		return
	}
	b.version++
	b.value = state
	version := b.version
	subscriptions := b.subscriptions.ToSlice()
	b.mu.Unlock()

	for _, subscription := range subscriptions {
		subscription.next(state, version)
	}
}

// terminate records the failure once and delivers it to the current
// subscriptions unless the broadcaster is disposed
func (b *Broadcaster[S, M]) terminate(err error) {
	if b.disposed.Load() {
		return
	}

	b.mu.Lock()
	if b.err != nil || b.completed {
		b.mu.Unlock()
		return
	}
	b.err = err
	subscriptions := b.subscriptions.ToSlice()
	b.subscriptions.Clear()
	b.mu.Unlock()

	for _, subscription := range subscriptions {
		subscription.fail(err)
	}
	b.logger.Errorf("Broadcaster %s terminated: %v", b.agent.Name(), err)
}

func (b *Broadcaster[S, M]) unsubscribe(subscription *Subscription[S]) {
	b.subscriptions.Remove(subscription)
}
