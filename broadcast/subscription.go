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
	"github.com/google/uuid"
	"go.uber.org/atomic"

	"github.com/tochemey/goagent/internal/queue"
	"github.com/tochemey/goagent/log"
)

const (
	idle int32 = iota
	busy
)

type eventKind int

const (
	nextEvent eventKind = iota
	errorEvent
	completedEvent
)

type event[S any] struct {
	kind    eventKind
	state   S
	version uint64
	err     error
}

// Subscription links an Observer to a Broadcaster.
//
// Events are queued per subscription and delivered by whichever goroutine
// finds the subscription idle, so an observer may call back into the
// broadcaster (including Dispose or Cancel) without deadlocking.
type Subscription[S any] struct {
	id       string
	observer Observer[S]
	onCancel func(*Subscription[S])
	logger   log.Logger

	events     *queue.Unbounded[event[S]]
	processing *atomic.Int32

	active     *atomic.Bool
	terminated *atomic.Bool

	// lastVersion is only touched by the delivering goroutine
	lastVersion uint64
	delivered   bool
}

func newSubscription[S any](observer Observer[S], logger log.Logger, onCancel func(*Subscription[S])) *Subscription[S] {
	return &Subscription[S]{
		id:         uuid.NewString(),
		observer:   observer,
		onCancel:   onCancel,
		logger:     logger,
		events:     queue.NewUnbounded[event[S]](),
		processing: atomic.NewInt32(idle),
		active:     atomic.NewBool(true),
		terminated: atomic.NewBool(false),
	}
}

// ID returns the subscription identifier
func (s *Subscription[S]) ID() string {
	return s.id
}

// Active reports whether the subscription still receives events. It turns
// false once cancelled or after the terminal notification.
func (s *Subscription[S]) Active() bool {
	return s.active.Load() && !s.terminated.Load()
}

// Cancel stops the delivery to this subscription. It is idempotent and
// has no effect on the agent or on other subscriptions.
func (s *Subscription[S]) Cancel() {
	if !s.active.CompareAndSwap(true, false) {
		return
	}
	if s.onCancel != nil {
		s.onCancel(s)
	}
}

func (s *Subscription[S]) next(state S, version uint64) {
	s.deliver(event[S]{kind: nextEvent, state: state, version: version})
}

func (s *Subscription[S]) fail(err error) {
	s.deliver(event[S]{kind: errorEvent, err: err})
}

func (s *Subscription[S]) completed() {
	s.deliver(event[S]{kind: completedEvent})
}

// deliver queues the event and drains the queue unless another goroutine
// is already doing it
func (s *Subscription[S]) deliver(e event[S]) {
	if !s.Active() {
		return
	}

	s.events.Push(e)
	s.flush()
}

// flush drains the pending events on the calling goroutine
func (s *Subscription[S]) flush() {
	for {
		if !s.processing.CompareAndSwap(idle, busy) {
			return
		}

		for {
			e, ok := s.events.Pop()
			if !ok {
				break
			}
			s.dispatch(e)
		}

		s.processing.Store(idle)
		if s.events.IsEmpty() {
			return
		}
	}
}

func (s *Subscription[S]) dispatch(e event[S]) {
	if !s.active.Load() || s.terminated.Load() {
		return
	}

	switch e.kind {
	case nextEvent:
		// stale or duplicated versions come from a replay racing a publish
		if s.delivered && e.version <= s.lastVersion {
			return
		}
		s.delivered = true
		s.lastVersion = e.version
		s.safely(func() { s.observer.OnNext(e.state) })
	case errorEvent:
		if s.terminated.CompareAndSwap(false, true) {
			s.safely(func() { s.observer.OnError(e.err) })
		}
	case completedEvent:
		if s.terminated.CompareAndSwap(false, true) {
			s.safely(func() { s.observer.OnCompleted() })
		}
	}
}

// safely runs an observer callback. A panicking observer is logged and
// never reaches the agent.
func (s *Subscription[S]) safely(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Warnf("Subscription %s observer panicked: %v", s.id, r)
		}
	}()
	fn()
}
