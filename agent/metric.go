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

	"go.opentelemetry.io/otel/attribute"
	otelmetric "go.opentelemetry.io/otel/metric"

	"github.com/tochemey/goagent/internal/metric"
)

func globalMeter() otelmetric.Meter {
	return metric.NewProvider(nil).Meter()
}

// registerMetrics registers the agent instruments and wires their
// unregistration into the agent finalization
func (a *Agent[S, M]) registerMetrics(meter otelmetric.Meter) error {
	metrics, err := metric.NewAgentMetric(meter)
	if err != nil {
		return err
	}

	observeOptions := []otelmetric.ObserveOption{
		otelmetric.WithAttributes(attribute.String("agent.name", a.name)),
	}

	registration, err := meter.RegisterCallback(func(_ context.Context, observer otelmetric.Observer) error {
		observer.ObserveInt64(metrics.ProcessedCount(), int64(a.ProcessedCount()), observeOptions...)
		observer.ObserveInt64(metrics.FailureCount(), int64(a.FailureCount()), observeOptions...)
		observer.ObserveInt64(metrics.DroppedCount(), int64(a.DroppedCount()), observeOptions...)
		observer.ObserveInt64(metrics.QueueLength(), a.QueueLength(), observeOptions...)
		observer.ObserveInt64(metrics.LastProcessedDuration(), a.LatestProcessedDuration().Milliseconds(), observeOptions...)
		return nil
	}, metrics.Instruments()...)
	if err != nil {
		return err
	}

	a.unregisterMetrics = func() {
		if err := registration.Unregister(); err != nil {
			a.logger.Warnf("Agent %s failed to unregister metrics: %v", a.name, err)
		}
	}
	return nil
}
