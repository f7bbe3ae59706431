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

package policy

import (
	"context"
	"time"

	"github.com/flowchartsman/retry"

	"github.com/tochemey/goagent/agent"
)

// Retry wraps the transition so that a failing message is retried up to
// maxTries times with an exponential backoff bounded by initialDelay and
// maxDelay. The retries stop as soon as the agent is disposed.
//
// Only the last failure reaches the failure policy.
func Retry[S, M any](transition agent.Transition[S, M], maxTries int, initialDelay, maxDelay time.Duration) agent.Transition[S, M] {
	return func(ctx context.Context, state S, message M) (S, error) {
		var next S
		retrier := retry.NewRetrier(maxTries, initialDelay, maxDelay)
		err := retrier.RunContext(ctx, func(ctx context.Context) error {
			var err error
			next, err = transition(ctx, state, message)
			return err
		})
		if err != nil {
			return state, err
		}
		return next, nil
	}
}

// Timeout wraps the transition so that the context it receives expires
// after the given duration. The transition must observe the context for
// the deadline to take effect; an expired deadline is reported to the
// failure policy as context.DeadlineExceeded.
func Timeout[S, M any](transition agent.Transition[S, M], timeout time.Duration) agent.Transition[S, M] {
	return func(ctx context.Context, state S, message M) (S, error) {
		ctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		return transition(ctx, state, message)
	}
}
