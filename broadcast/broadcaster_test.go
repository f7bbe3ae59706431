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
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/tochemey/goagent/agent"
	gerrors "github.com/tochemey/goagent/errors"
	"github.com/tochemey/goagent/log"
)

type counter struct {
	count int64
	sum   int64
}

var errNegative = errors.New("negative message")

func sum(_ context.Context, state counter, message int64) (counter, error) {
	if message < 0 {
		return state, errNegative
	}
	return counter{count: state.count + 1, sum: state.sum + message}, nil
}

func halt(context.Context, error) (bool, error) {
	return false, nil
}

func resume(context.Context, error) (bool, error) {
	return true, nil
}

// recorder is an Observer keeping track of every notification
type recorder struct {
	mu          sync.Mutex
	values      []counter
	errs        []error
	completions int
}

func (r *recorder) OnNext(state counter) {
	r.mu.Lock()
	r.values = append(r.values, state)
	r.mu.Unlock()
}

func (r *recorder) OnError(err error) {
	r.mu.Lock()
	r.errs = append(r.errs, err)
	r.mu.Unlock()
}

func (r *recorder) OnCompleted() {
	r.mu.Lock()
	r.completions++
	r.mu.Unlock()
}

func (r *recorder) snapshot() ([]counter, []error, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	values := make([]counter, len(r.values))
	copy(values, r.values)
	errs := make([]error, len(r.errs))
	copy(errs, r.errs)
	return values, errs, r.completions
}

func (r *recorder) last() counter {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.values) == 0 {
		return counter{}
	}
	return r.values[len(r.values)-1]
}

func newBroadcaster(t *testing.T, policy agent.FailurePolicy) *Broadcaster[counter, int64] {
	t.Helper()
	broadcaster, err := New(counter{}, sum, policy, agent.WithLogger(log.DiscardLogger))
	require.NoError(t, err)
	require.NotNil(t, broadcaster)
	return broadcaster
}

func TestNew(t *testing.T) {
	t.Run("With nil transition", func(t *testing.T) {
		broadcaster, err := New[counter, int64](counter{}, nil, halt)
		require.Nil(t, broadcaster)
		var configErr *gerrors.ConfigurationError
		require.ErrorAs(t, err, &configErr)
		assert.ErrorIs(t, err, gerrors.ErrUndefinedTransition)
	})

	t.Run("With nil policy", func(t *testing.T) {
		broadcaster, err := New(counter{}, sum, nil)
		require.Nil(t, broadcaster)
		assert.ErrorIs(t, err, gerrors.ErrUndefinedPolicy)
	})

	t.Run("With nil initial state", func(t *testing.T) {
		transition := func(_ context.Context, state *counter, _ int64) (*counter, error) {
			return state, nil
		}
		broadcaster, err := New[*counter, int64](nil, transition, halt)
		require.Nil(t, broadcaster)
		assert.ErrorIs(t, err, gerrors.ErrUndefinedState)
	})

	t.Run("With agent options", func(t *testing.T) {
		defer goleak.VerifyNone(t)
		broadcaster, err := New(counter{}, sum, halt, agent.WithName("sum"), agent.WithLogger(log.DiscardLogger))
		require.NoError(t, err)
		assert.Equal(t, "sum", broadcaster.Name())
		assert.Equal(t, agent.Running, broadcaster.Status())
		require.NoError(t, broadcaster.Shutdown(context.Background()))
	})
}

func TestSubscribe(t *testing.T) {
	t.Run("With values published in order", func(t *testing.T) {
		defer goleak.VerifyNone(t)
		broadcaster := newBroadcaster(t, halt)
		observer := new(recorder)
		subscription := broadcaster.Subscribe(observer)
		require.NotNil(t, subscription)
		assert.NotEmpty(t, subscription.ID())
		assert.True(t, subscription.Active())
		assert.Equal(t, 1, broadcaster.SubscribersCount())

		for i := int64(1); i <= 1000; i++ {
			broadcaster.Submit(i)
		}

		require.Eventually(t, func() bool { return observer.last().count == 1000 }, 5*time.Second, 5*time.Millisecond)
		values, errs, completions := observer.snapshot()
		require.Len(t, values, 1001)
		assert.Equal(t, counter{}, values[0])
		for i := 1; i < len(values); i++ {
			assert.EqualValues(t, i, values[i].count)
		}
		assert.Empty(t, errs)
		assert.Zero(t, completions)
		assert.Equal(t, counter{count: 1000, sum: 500_500}, broadcaster.Value())

		require.NoError(t, broadcaster.Shutdown(context.Background()))
	})

	t.Run("With one million messages awaited through a subscription", func(t *testing.T) {
		defer goleak.VerifyNone(t)
		const total = 1_000_000
		broadcaster := newBroadcaster(t, halt)

		reached := make(chan counter, 1)
		broadcaster.Subscribe(NewObserver(func(state counter) {
			if state.count == total {
				reached <- state
			}
		}, nil, nil))

		for i := int64(1); i <= total; i++ {
			broadcaster.Submit(i)
		}

		select {
		case state := <-reached:
			assert.EqualValues(t, total, state.count)
			assert.EqualValues(t, 500_000_500_000, state.sum)
		case <-time.After(30 * time.Second):
			require.Fail(t, "the last state was never published")
		}

		require.NoError(t, broadcaster.Shutdown(context.Background()))
	})

	t.Run("With a late subscriber receiving the cached value first", func(t *testing.T) {
		defer goleak.VerifyNone(t)
		broadcaster := newBroadcaster(t, halt)
		for i := int64(1); i <= 10; i++ {
			broadcaster.Submit(i)
		}
		require.Eventually(t, func() bool { return broadcaster.Value().count == 10 }, time.Second, 5*time.Millisecond)

		observer := new(recorder)
		broadcaster.Subscribe(observer)
		values, _, _ := observer.snapshot()
		require.Len(t, values, 1)
		assert.Equal(t, counter{count: 10, sum: 55}, values[0])

		broadcaster.Submit(11)
		require.Eventually(t, func() bool { return observer.last().count == 11 }, time.Second, 5*time.Millisecond)
		require.NoError(t, broadcaster.Shutdown(context.Background()))
	})

	t.Run("With a nil observer", func(t *testing.T) {
		defer goleak.VerifyNone(t)
		broadcaster := newBroadcaster(t, halt)
		subscription := broadcaster.Subscribe(nil)
		require.NotNil(t, subscription)
		broadcaster.Submit(1)
		require.Eventually(t, func() bool { return broadcaster.Value().count == 1 }, time.Second, 5*time.Millisecond)
		require.NoError(t, broadcaster.Shutdown(context.Background()))
	})

	t.Run("With a cancelled subscription", func(t *testing.T) {
		defer goleak.VerifyNone(t)
		broadcaster := newBroadcaster(t, halt)
		cancelled := new(recorder)
		kept := new(recorder)
		subscription := broadcaster.Subscribe(cancelled)
		broadcaster.Subscribe(kept)
		assert.Equal(t, 2, broadcaster.SubscribersCount())

		subscription.Cancel()
		subscription.Cancel()
		assert.False(t, subscription.Active())
		assert.Equal(t, 1, broadcaster.SubscribersCount())

		broadcaster.Submit(1)
		require.Eventually(t, func() bool { return kept.last().count == 1 }, time.Second, 5*time.Millisecond)
		require.NoError(t, broadcaster.Shutdown(context.Background()))

		values, errs, completions := cancelled.snapshot()
		assert.Equal(t, []counter{{}}, values)
		assert.Empty(t, errs)
		assert.Zero(t, completions)

		_, _, completions = kept.snapshot()
		assert.Equal(t, 1, completions)
		assert.Equal(t, agent.Disposed, broadcaster.Status())
	})

	t.Run("With a panicking observer", func(t *testing.T) {
		defer goleak.VerifyNone(t)
		broadcaster := newBroadcaster(t, halt)
		broadcaster.Subscribe(NewObserver(func(state counter) {
			if state.count > 0 {
				panic("observer exploded")
			}
		}, nil, nil))
		observer := new(recorder)
		broadcaster.Subscribe(observer)

		broadcaster.Submit(1)
		broadcaster.Submit(2)
		require.Eventually(t, func() bool { return observer.last().count == 2 }, time.Second, 5*time.Millisecond)
		assert.Equal(t, agent.Running, broadcaster.Status())
		require.NoError(t, broadcaster.Shutdown(context.Background()))
	})
}

func TestHalt(t *testing.T) {
	t.Run("With every subscriber receiving the failure once", func(t *testing.T) {
		defer goleak.VerifyNone(t)
		broadcaster := newBroadcaster(t, halt)
		first := new(recorder)
		second := new(recorder)
		broadcaster.Subscribe(first)
		broadcaster.Subscribe(second)

		broadcaster.Submit(1)
		broadcaster.Submit(2)
		broadcaster.Submit(-1)
		broadcaster.Submit(3)

		select {
		case <-broadcaster.Done():
		case <-time.After(time.Second):
			require.Fail(t, "broadcaster should have halted")
		}

		assert.Equal(t, agent.Halted, broadcaster.Status())
		assert.ErrorIs(t, broadcaster.Err(), errNegative)
		assert.Zero(t, broadcaster.SubscribersCount())

		for _, observer := range []*recorder{first, second} {
			values, errs, completions := observer.snapshot()
			assert.Equal(t, []counter{{}, {count: 1, sum: 1}, {count: 2, sum: 3}}, values)
			require.Len(t, errs, 1)
			assert.ErrorIs(t, errs[0], errNegative)
			assert.Zero(t, completions)
		}

		// submissions and disposal after the failure change nothing
		broadcaster.Submit(4)
		broadcaster.Dispose()
		broadcaster.Dispose()

		late := new(recorder)
		subscription := broadcaster.Subscribe(late)
		assert.False(t, subscription.Active())
		values, errs, completions := late.snapshot()
		assert.Empty(t, values)
		require.Len(t, errs, 1)
		assert.ErrorIs(t, errs[0], errNegative)
		assert.Zero(t, completions)

		_, errs, completions = first.snapshot()
		assert.Len(t, errs, 1)
		assert.Zero(t, completions)
	})

	t.Run("With a resuming policy", func(t *testing.T) {
		defer goleak.VerifyNone(t)
		broadcaster := newBroadcaster(t, resume)
		observer := new(recorder)
		broadcaster.Subscribe(observer)

		broadcaster.Submit(-1)
		broadcaster.Submit(5)
		require.Eventually(t, func() bool { return observer.last().count == 1 }, time.Second, 5*time.Millisecond)

		_, errs, _ := observer.snapshot()
		assert.Empty(t, errs)
		assert.NoError(t, broadcaster.Err())
		require.NoError(t, broadcaster.Shutdown(context.Background()))
	})

	t.Run("With a failing policy", func(t *testing.T) {
		defer goleak.VerifyNone(t)
		errPolicy := errors.New("policy failed")
		broadcaster := newBroadcaster(t, func(context.Context, error) (bool, error) {
			return true, errPolicy
		})
		observer := new(recorder)
		broadcaster.Subscribe(observer)

		broadcaster.Submit(-1)
		<-broadcaster.Done()

		_, errs, _ := observer.snapshot()
		require.Len(t, errs, 1)
		var policyErr *gerrors.PolicyError
		require.ErrorAs(t, errs[0], &policyErr)
		assert.ErrorIs(t, policyErr, errNegative)
		assert.ErrorIs(t, policyErr, errPolicy)
		assert.Equal(t, agent.Halted, broadcaster.Status())
	})

	t.Run("With a panicking policy", func(t *testing.T) {
		defer goleak.VerifyNone(t)
		broadcaster := newBroadcaster(t, func(context.Context, error) (bool, error) {
			panic("policy exploded")
		})
		observer := new(recorder)
		broadcaster.Subscribe(observer)

		broadcaster.Submit(-1)
		<-broadcaster.Done()

		_, errs, _ := observer.snapshot()
		require.Len(t, errs, 1)
		var panicErr *gerrors.PanicError
		require.ErrorAs(t, errs[0], &panicErr)
		assert.ErrorIs(t, errs[0], errNegative)
		assert.Equal(t, agent.Halted, broadcaster.Status())
	})

	t.Run("With a policy panicking with an error", func(t *testing.T) {
		defer goleak.VerifyNone(t)
		errPolicy := errors.New("policy exploded")
		broadcaster := newBroadcaster(t, func(context.Context, error) (bool, error) {
			panic(errPolicy)
		})
		observer := new(recorder)
		broadcaster.Subscribe(observer)

		broadcaster.Submit(-1)
		<-broadcaster.Done()

		_, errs, _ := observer.snapshot()
		require.Len(t, errs, 1)
		var panicErr *gerrors.PanicError
		require.ErrorAs(t, errs[0], &panicErr)
		assert.ErrorIs(t, errs[0], errPolicy)
		assert.ErrorIs(t, errs[0], errNegative)
		assert.Contains(t, panicErr.Error(), "broadcaster_test.go")
		assert.ErrorIs(t, broadcaster.Err(), errPolicy)
	})
}

func TestDispose(t *testing.T) {
	t.Run("With concurrent callers completing once", func(t *testing.T) {
		defer goleak.VerifyNone(t)
		broadcaster := newBroadcaster(t, halt)
		observer := new(recorder)
		broadcaster.Subscribe(observer)
		for i := int64(1); i <= 10; i++ {
			broadcaster.Submit(i)
		}
		require.Eventually(t, func() bool { return observer.last().count == 10 }, time.Second, 5*time.Millisecond)

		var wg sync.WaitGroup
		start := make(chan struct{})
		for i := 0; i < 32; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				<-start
				broadcaster.Dispose()
			}()
		}
		close(start)
		wg.Wait()
		<-broadcaster.Done()

		values, errs, completions := observer.snapshot()
		assert.Len(t, values, 11)
		assert.Empty(t, errs)
		assert.Equal(t, 1, completions)
		assert.Equal(t, agent.Disposed, broadcaster.Status())
		assert.NoError(t, broadcaster.Err())
		assert.Zero(t, broadcaster.SubscribersCount())
	})

	t.Run("With a late subscriber receiving the cached value then completion", func(t *testing.T) {
		defer goleak.VerifyNone(t)
		broadcaster := newBroadcaster(t, halt)
		broadcaster.Submit(7)
		require.Eventually(t, func() bool { return broadcaster.Value().count == 1 }, time.Second, 5*time.Millisecond)
		require.NoError(t, broadcaster.Shutdown(context.Background()))

		// submissions after disposal are ignored
		broadcaster.Submit(8)

		late := new(recorder)
		subscription := broadcaster.Subscribe(late)
		assert.False(t, subscription.Active())
		values, errs, completions := late.snapshot()
		assert.Equal(t, []counter{{count: 1, sum: 7}}, values)
		assert.Empty(t, errs)
		assert.Equal(t, 1, completions)
	})

	t.Run("With an observer disposing from its callback", func(t *testing.T) {
		defer goleak.VerifyNone(t)
		var broadcaster *Broadcaster[counter, int64]
		observer := new(recorder)
		broadcaster = newBroadcaster(t, halt)
		broadcaster.Subscribe(NewObserver(func(state counter) {
			observer.OnNext(state)
			if state.count == 5 {
				broadcaster.Dispose()
			}
		}, observer.OnError, observer.OnCompleted))

		for i := int64(1); i <= 100; i++ {
			broadcaster.Submit(i)
		}

		select {
		case <-broadcaster.Done():
		case <-time.After(5 * time.Second):
			require.Fail(t, "broadcaster should have stopped")
		}

		values, errs, completions := observer.snapshot()
		require.Len(t, values, 6)
		assert.EqualValues(t, 5, values[5].count)
		assert.Empty(t, errs)
		assert.Equal(t, 1, completions)
	})

	t.Run("With cooperative cancellation in flight", func(t *testing.T) {
		defer goleak.VerifyNone(t)
		started := make(chan struct{})
		transition := func(ctx context.Context, state counter, message int64) (counter, error) {
			if message == 2 {
				close(started)
				<-ctx.Done()
				return counter{count: 100}, ctx.Err()
			}
			return sum(ctx, state, message)
		}

		policyCalled := make(chan struct{}, 1)
		policy := func(context.Context, error) (bool, error) {
			policyCalled <- struct{}{}
			return false, nil
		}

		broadcaster, err := New(counter{}, transition, policy, agent.WithLogger(log.DiscardLogger))
		require.NoError(t, err)
		observer := new(recorder)
		broadcaster.Subscribe(observer)

		broadcaster.Submit(1)
		broadcaster.Submit(2)
		<-started
		require.NoError(t, broadcaster.Shutdown(context.Background()))

		assert.Empty(t, policyCalled)
		values, errs, completions := observer.snapshot()
		assert.Equal(t, []counter{{}, {count: 1, sum: 1}}, values)
		assert.Empty(t, errs)
		assert.Equal(t, 1, completions)
		assert.Equal(t, agent.Disposed, broadcaster.Status())
	})

	t.Run("With disposal winning over an in-flight failure", func(t *testing.T) {
		defer goleak.VerifyNone(t)
		broadcaster, entered, gate := newGatedBroadcaster(t)
		observer := new(recorder)
		broadcaster.Subscribe(observer)

		broadcaster.Submit(-1)
		<-entered

		// the policy is about to halt when the disposal completes everybody
		broadcaster.Dispose()
		_, errs, completions := observer.snapshot()
		assert.Empty(t, errs)
		assert.Equal(t, 1, completions)

		close(gate)
		<-broadcaster.Done()

		_, errs, completions = observer.snapshot()
		assert.Empty(t, errs)
		assert.Equal(t, 1, completions)
		assert.NoError(t, broadcaster.Err())
		assert.Equal(t, agent.Disposed, broadcaster.Status())
	})

	t.Run("With an in-flight failure winning over disposal", func(t *testing.T) {
		defer goleak.VerifyNone(t)
		broadcaster, entered, gate := newGatedBroadcaster(t)
		observer := new(recorder)
		broadcaster.Subscribe(observer)

		broadcaster.Submit(-1)
		<-entered
		close(gate)
		require.Eventually(t, func() bool { return broadcaster.Err() != nil }, time.Second, time.Millisecond)

		broadcaster.Dispose()
		<-broadcaster.Done()

		_, errs, completions := observer.snapshot()
		require.Len(t, errs, 1)
		assert.ErrorIs(t, errs[0], errNegative)
		assert.Zero(t, completions)
		assert.ErrorIs(t, broadcaster.Err(), errNegative)
		assert.True(t, broadcaster.Status().IsTerminal())
	})

	t.Run("With disposal racing an in-flight failure", func(t *testing.T) {
		defer goleak.VerifyNone(t)
		const iterations = 2000
		for i := 0; i < iterations; i++ {
			broadcaster, entered, gate := newGatedBroadcaster(t)
			observers := []*recorder{new(recorder), new(recorder)}
			for _, observer := range observers {
				broadcaster.Subscribe(observer)
			}

			broadcaster.Submit(-1)
			<-entered

			var wg sync.WaitGroup
			start := make(chan struct{})
			wg.Add(3)
			go func() {
				defer wg.Done()
				<-start
				close(gate)
			}()
			for j := 0; j < 2; j++ {
				go func() {
					defer wg.Done()
					<-start
					broadcaster.Dispose()
				}()
			}
			close(start)
			wg.Wait()

			select {
			case <-broadcaster.Done():
			case <-time.After(5 * time.Second):
				require.Fail(t, "broadcaster should have stopped")
			}

			for _, observer := range observers {
				_, errs, completions := observer.snapshot()
				require.Equal(t, 1, len(errs)+completions, "iteration %d", i)
				if len(errs) == 1 {
					require.ErrorIs(t, errs[0], errNegative)
				}
			}
		}
	})
}

// newGatedBroadcaster returns a halting broadcaster whose policy signals
// entered then blocks until gate is closed
func newGatedBroadcaster(t *testing.T) (*Broadcaster[counter, int64], chan struct{}, chan struct{}) {
	t.Helper()
	entered := make(chan struct{}, 1)
	gate := make(chan struct{})
	policy := func(context.Context, error) (bool, error) {
		entered <- struct{}{}
		<-gate
		return false, nil
	}
	return newBroadcaster(t, policy), entered, gate
}

func TestNewObserver(t *testing.T) {
	observer := NewObserver[int](nil, nil, nil)
	assert.NotPanics(t, func() {
		observer.OnNext(1)
		observer.OnError(errors.New("failure"))
		observer.OnCompleted()
	})

	var (
		next      int
		err       error
		completed bool
	)
	observer = NewObserver(func(v int) { next = v }, func(e error) { err = e }, func() { completed = true })
	observer.OnNext(42)
	observer.OnError(errNegative)
	observer.OnCompleted()
	assert.Equal(t, 42, next)
	assert.ErrorIs(t, err, errNegative)
	assert.True(t, completed)
}
