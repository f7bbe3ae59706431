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
	"go.opentelemetry.io/otel/metric"

	"github.com/tochemey/goagent/log"
)

// Option is the interface that applies a configuration option.
type Option interface {
	// Apply sets the Option value of a config.
	Apply(config *config)
}

// enforce compilation error
var _ Option = OptionFunc(nil)

// OptionFunc implements the Option interface.
type OptionFunc func(*config)

// Apply applies the option to the config
func (f OptionFunc) Apply(c *config) {
	f(c)
}

// config holds the settings shared by every agent flavor
type config struct {
	name     string
	logger   log.Logger
	capacity int
	bounded  bool
	meter    metric.Meter
}

func newConfig(opts ...Option) *config {
	cfg := &config{
		logger: log.DefaultLogger,
	}
	for _, opt := range opts {
		opt.Apply(cfg)
	}
	return cfg
}

// WithName sets the agent name used in logs and metric attributes.
// A random name is generated when not set.
func WithName(name string) Option {
	return OptionFunc(func(c *config) {
		c.name = name
	})
}

// WithLogger sets the agent logger
func WithLogger(logger log.Logger) Option {
	return OptionFunc(func(c *config) {
		c.logger = logger
	})
}

// WithBoundedQueue caps the number of pending messages.
//
// Submit never blocks: when the queue is full the message is dropped
// and counted. The capacity is rounded up to the next power of two.
func WithBoundedQueue(capacity int) Option {
	return OptionFunc(func(c *config) {
		c.bounded = true
		c.capacity = capacity
	})
}

// WithMetric enables OpenTelemetry metrics using the given meter.
// A nil meter uses the global meter provider.
func WithMetric(meter metric.Meter) Option {
	return OptionFunc(func(c *config) {
		c.meter = meter
		if meter == nil {
			c.meter = globalMeter()
		}
	})
}
