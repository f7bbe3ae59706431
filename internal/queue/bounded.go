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

package queue

import (
	gods "github.com/Workiva/go-datastructures/queue"
)

// Bounded is a fixed-capacity MPSC queue backed by a lock-free ring buffer.
//
// Unlike a blocking mailbox, Push never waits for room: when the buffer is
// full the value is rejected and Push returns false. This keeps producers
// non-blocking while bounding memory.
type Bounded[T any] struct {
	underlying *gods.RingBuffer
}

// enforce compilation error
var _ Queue[int] = (*Bounded[int])(nil)

// NewBounded creates a Bounded queue. The ring buffer rounds the capacity up
// to the next power of two.
func NewBounded[T any](capacity int) *Bounded[T] {
	return &Bounded[T]{
		underlying: gods.NewRingBuffer(uint64(capacity)),
	}
}

// Push offers the value to the ring buffer without blocking.
// It returns false when the buffer is full or disposed.
func (q *Bounded[T]) Push(value T) bool {
	ok, err := q.underlying.Offer(value)
	return err == nil && ok
}

// Pop removes the value at the head of the queue.
// Must be called from the consumer only.
func (q *Bounded[T]) Pop() (T, bool) {
	var zero T
	if q.underlying.Len() == 0 {
		return zero, false
	}

	item, err := q.underlying.Get()
	if err != nil {
		return zero, false
	}

	value, ok := item.(T)
	if !ok {
		return zero, false
	}
	return value, true
}

// IsEmpty reports whether the buffer holds no values
func (q *Bounded[T]) IsEmpty() bool {
	return q.underlying.Len() == 0
}

// Len returns the number of values in the buffer
func (q *Bounded[T]) Len() int64 {
	return int64(q.underlying.Len())
}

// Cap returns the capacity of the ring buffer
func (q *Bounded[T]) Cap() int64 {
	return int64(q.underlying.Cap())
}

// Dispose releases the ring buffer. Further pushes are rejected.
func (q *Bounded[T]) Dispose() {
	q.underlying.Dispose()
}
