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

package errors

import (
	"errors"
	"fmt"

	"go.uber.org/multierr"
)

var (
	// ErrUndefinedState is returned when an agent is created with an absent initial state.
	ErrUndefinedState = errors.New("initial state is not defined")

	// ErrUndefinedTransition is returned when an agent is created without a transition function.
	ErrUndefinedTransition = errors.New("transition function is not defined")

	// ErrUndefinedPolicy is returned when an agent is created without a failure policy.
	ErrUndefinedPolicy = errors.New("failure policy is not defined")

	// ErrInvalidQueueCapacity is returned when a bounded queue is configured with a capacity
	// less than or equal to zero.
	ErrInvalidQueueCapacity = errors.New("invalid queue capacity, must be greater than zero")

	// ErrHalted indicates that the agent has permanently stopped because its failure policy
	// decided that a transition failure was not recoverable.
	ErrHalted = errors.New("agent is halted")
)

// ConfigurationError defines an error raised when an agent
// cannot be created because of invalid construction arguments
type ConfigurationError struct {
	err error
}

// enforce compilation error
var _ error = (*ConfigurationError)(nil)

// NewConfigurationError returns an instance of ConfigurationError
func NewConfigurationError(err error) *ConfigurationError {
	return &ConfigurationError{
		err: fmt.Errorf("configuration error: %w", err),
	}
}

// Error implements the standard error interface
func (e *ConfigurationError) Error() string {
	return e.err.Error()
}

func (e *ConfigurationError) Unwrap() error {
	return e.err
}

// PanicError defines the panic error
// wrapping the underlying error
type PanicError struct {
	err error
}

// enforce compilation error
var _ error = (*PanicError)(nil)

// NewPanicError creates an instance of PanicError
func NewPanicError(err error) *PanicError {
	return &PanicError{err}
}

// Error implements the standard error interface
func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.err)
}

func (e *PanicError) Unwrap() error {
	return e.err
}

// PolicyError is raised when the failure policy itself fails while
// evaluating a transition failure. It carries both the transition failure
// and the policy failure.
type PolicyError struct {
	cause  error
	policy error
	err    error
}

// enforce compilation error
var _ error = (*PolicyError)(nil)

// NewPolicyError creates an instance of PolicyError
func NewPolicyError(cause, policy error) *PolicyError {
	return &PolicyError{
		cause:  cause,
		policy: policy,
		err:    multierr.Combine(cause, fmt.Errorf("failure policy: %w", policy)),
	}
}

// Error implements the standard error interface
func (e *PolicyError) Error() string {
	return e.err.Error()
}

// Cause returns the transition failure the policy was evaluating
func (e *PolicyError) Cause() error {
	return e.cause
}

// Policy returns the failure raised by the policy
func (e *PolicyError) Policy() error {
	return e.policy
}

// Unwrap returns both failures so that errors.Is and errors.As
// can match either of them
func (e *PolicyError) Unwrap() []error {
	return multierr.Errors(e.err)
}

// NewErrHalted wraps the terminal failure with ErrHalted.
func NewErrHalted(err error) error {
	return errors.Join(ErrHalted, err)
}
