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

package metric

import (
	"fmt"

	"go.opentelemetry.io/otel/metric"
)

// AgentMetric defines the agent instrumentation
type AgentMetric struct {
	// Specifies the total number of committed transitions
	processedCount metric.Int64ObservableCounter
	// Specifies the total number of failed transitions
	failureCount metric.Int64ObservableCounter
	// Specifies the total number of messages rejected by a full queue
	droppedCount metric.Int64ObservableCounter
	// Specifies the number of messages waiting in the queue
	queueLength metric.Int64ObservableGauge
	// Specifies the latest transition duration in milliseconds
	lastProcessedDuration metric.Int64ObservableGauge
}

// NewAgentMetric creates an instance of AgentMetric
func NewAgentMetric(meter metric.Meter) (*AgentMetric, error) {
	agentMetric := new(AgentMetric)
	var err error

	if agentMetric.processedCount, err = meter.Int64ObservableCounter(
		"agent_processed_count",
		metric.WithDescription("Total number of messages processed"),
	); err != nil {
		return nil, fmt.Errorf("failed to create processedCount instrument, %w", err)
	}

	if agentMetric.failureCount, err = meter.Int64ObservableCounter(
		"agent_failure_count",
		metric.WithDescription("Total number of failed transitions"),
	); err != nil {
		return nil, fmt.Errorf("failed to create failureCount instrument, %w", err)
	}

	if agentMetric.droppedCount, err = meter.Int64ObservableCounter(
		"agent_dropped_count",
		metric.WithDescription("Total number of messages rejected by a full queue"),
	); err != nil {
		return nil, fmt.Errorf("failed to create droppedCount instrument, %w", err)
	}

	if agentMetric.queueLength, err = meter.Int64ObservableGauge(
		"agent_queue_length",
		metric.WithDescription("Number of messages waiting to be processed"),
	); err != nil {
		return nil, fmt.Errorf("failed to create queueLength instrument, %w", err)
	}

	if agentMetric.lastProcessedDuration, err = meter.Int64ObservableGauge(
		"agent_last_processed_duration",
		metric.WithDescription("The latency of the last message processed in milliseconds"),
		metric.WithUnit("ms"),
	); err != nil {
		return nil, fmt.Errorf("failed to create lastProcessedDuration instrument, %w", err)
	}

	return agentMetric, nil
}

// ProcessedCount returns the total number of messages processed
func (x *AgentMetric) ProcessedCount() metric.Int64ObservableCounter {
	return x.processedCount
}

// FailureCount returns the total number of failed transitions
func (x *AgentMetric) FailureCount() metric.Int64ObservableCounter {
	return x.failureCount
}

// DroppedCount returns the total number of messages rejected by a full queue
func (x *AgentMetric) DroppedCount() metric.Int64ObservableCounter {
	return x.droppedCount
}

// QueueLength returns the number of messages waiting to be processed
func (x *AgentMetric) QueueLength() metric.Int64ObservableGauge {
	return x.queueLength
}

// LastProcessedDuration returns the latency of the last message processed
func (x *AgentMetric) LastProcessedDuration() metric.Int64ObservableGauge {
	return x.lastProcessedDuration
}

// Instruments returns every instrument so they can be handed to RegisterCallback
func (x *AgentMetric) Instruments() []metric.Observable {
	return []metric.Observable{
		x.processedCount,
		x.failureCount,
		x.droppedCount,
		x.queueLength,
		x.lastProcessedDuration,
	}
}
