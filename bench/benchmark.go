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

package bench

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/tochemey/goagent/agent"
	"github.com/tochemey/goagent/broadcast"
	"github.com/tochemey/goagent/log"
	"github.com/tochemey/goagent/policy"
)

// State is the running sum computed by the benchmark agents
type State struct {
	Count int64
	Sum   int64
}

// Result describes one benchmark run
type Result struct {
	Name     string
	Count    int64
	Sum      int64
	Duration time.Duration
}

// String returns the result as a one-line report
func (r *Result) String() string {
	return fmt.Sprintf("%-30s-> Sum for: [1..%d], Sum: %d, Time: %dms", r.Name, r.Count, r.Sum, r.Duration.Milliseconds())
}

// Benchmark submits the integers 1..total to an agent and measures how long
// it takes for the last state to be computed
type Benchmark struct {
	total  int64
	logger log.Logger
}

// NewBenchmark creates an instance of Benchmark
func NewBenchmark(total int64, logger log.Logger) *Benchmark {
	if logger == nil {
		logger = log.DiscardLogger
	}
	return &Benchmark{
		total:  total,
		logger: logger,
	}
}

// Agent runs a single producer against an agent
func (b *Benchmark) Agent(ctx context.Context) (*Result, error) {
	return b.run(ctx, "Agent", 1)
}

// ParallelProducers runs the given number of producers against an agent.
// Each producer submits a contiguous range of the integers.
func (b *Benchmark) ParallelProducers(ctx context.Context, producers int) (*Result, error) {
	return b.run(ctx, fmt.Sprintf("Agent%dProducers", producers), producers)
}

// Broadcaster runs a single producer against a broadcaster and waits for
// the subscription to observe the last state
func (b *Benchmark) Broadcaster(ctx context.Context) (*Result, error) {
	broadcaster, err := broadcast.New(State{}, sum, policy.Halt(), agent.WithLogger(b.logger), agent.WithName("Broadcaster"))
	if err != nil {
		return nil, err
	}

	reached := make(chan State, 1)
	failed := make(chan error, 1)
	broadcaster.Subscribe(broadcast.NewObserver(func(state State) {
		if state.Count == b.total {
			reached <- state
		}
	}, func(err error) {
		failed <- err
	}, nil))

	start := time.Now()
	for i := int64(1); i <= b.total; i++ {
		broadcaster.Submit(i)
	}

	defer func() {
		if err := broadcaster.Shutdown(context.WithoutCancel(ctx)); err != nil {
			b.logger.Warnf("Broadcaster shutdown failed: %v", err)
		}
	}()

	select {
	case state := <-reached:
		return b.result("Broadcaster", state, time.Since(start)), nil
	case err := <-failed:
		return nil, err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (b *Benchmark) run(ctx context.Context, name string, producers int) (*Result, error) {
	if b.total <= 0 {
		return nil, fmt.Errorf("invalid total %d, must be greater than zero", b.total)
	}
	producers = max(producers, 1)

	reached := make(chan State, 1)
	transition := func(ctx context.Context, state State, message int64) (State, error) {
		next, err := sum(ctx, state, message)
		if err == nil && next.Count == b.total {
			reached <- next
		}
		return next, err
	}

	counter, err := agent.New(State{}, transition, policy.Halt(), agent.WithLogger(b.logger), agent.WithName(name))
	if err != nil {
		return nil, err
	}

	defer func() {
		if err := counter.Shutdown(context.WithoutCancel(ctx)); err != nil {
			b.logger.Warnf("Agent %s shutdown failed: %v", name, err)
		}
	}()

	start := time.Now()
	eg, egCtx := errgroup.WithContext(ctx)
	size := b.total / int64(producers)
	for p := 0; p < producers; p++ {
		from := int64(p)*size + 1
		to := from + size - 1
		if p == producers-1 {
			to = b.total
		}

		eg.Go(func() error {
			for i := from; i <= to; i++ {
				if i%10_000 == 0 && egCtx.Err() != nil {
					return egCtx.Err()
				}
				counter.Submit(i)
			}
			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		return nil, err
	}

	select {
	case state := <-reached:
		return b.result(name, state, time.Since(start)), nil
	case <-counter.Done():
		return nil, counter.Err()
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (b *Benchmark) result(name string, state State, duration time.Duration) *Result {
	result := &Result{
		Name:     name,
		Count:    state.Count,
		Sum:      state.Sum,
		Duration: duration,
	}
	b.logger.Debug(result.String())
	return result
}

// sum adds the message to the running sum and stops when the agent is disposed
func sum(ctx context.Context, state State, message int64) (State, error) {
	if err := ctx.Err(); err != nil {
		return state, err
	}
	return State{Count: state.Count + 1, Sum: state.Sum + message}, nil
}
