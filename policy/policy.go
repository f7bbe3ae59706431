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
	"errors"

	"go.uber.org/atomic"

	"github.com/tochemey/goagent/agent"
)

// Resume returns a FailurePolicy that keeps the agent running after any
// transition failure. The failed message is dropped and the previous state
// is kept.
func Resume() agent.FailurePolicy {
	return func(context.Context, error) (bool, error) {
		return true, nil
	}
}

// Halt returns a FailurePolicy that halts the agent on the first
// transition failure
func Halt() agent.FailurePolicy {
	return func(context.Context, error) (bool, error) {
		return false, nil
	}
}

// MaxFailures returns a FailurePolicy that resumes the agent until the
// n-th transition failure, which halts it. A value of n less than or equal
// to one halts on the first failure.
//
// The returned policy counts failures across calls: create one per agent.
func MaxFailures(n int) agent.FailurePolicy {
	failures := atomic.NewInt64(0)
	return func(context.Context, error) (bool, error) {
		return failures.Inc() < int64(n), nil
	}
}

// HaltOn returns a FailurePolicy that halts the agent when the failure
// matches one of the targets according to errors.Is, and resumes otherwise
func HaltOn(targets ...error) agent.FailurePolicy {
	return func(_ context.Context, err error) (bool, error) {
		for _, target := range targets {
			if errors.Is(err, target) {
				return false, nil
			}
		}
		return true, nil
	}
}
