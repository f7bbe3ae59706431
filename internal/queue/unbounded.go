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
	"sync/atomic"
)

// CacheLinePadding prevents false sharing between CPU cache lines
type CacheLinePadding [64]byte

type node[T any] struct {
	value T
	next  atomic.Pointer[node[T]]
}

// Unbounded is a lock-free multi-producer, single-consumer (MPSC) FIFO queue.
//
// Producers swap the tail pointer atomically and then link the previous tail
// to the new node, so the global order is the order in which the swaps
// complete. Only one goroutine may consume. The queue grows without limit
// when producers outpace the consumer.
//
// Reference: https://concurrencyfreaks.blogspot.com/2014/04/multi-producer-single-consumer-queue.html
type Unbounded[T any] struct {
	// consumer side
	head atomic.Pointer[node[T]]
	_    CacheLinePadding

	// producer side
	tail atomic.Pointer[node[T]]
	_    CacheLinePadding

	length atomic.Int64
}

// enforce compilation error
var _ Queue[int] = (*Unbounded[int])(nil)

// NewUnbounded creates an instance of Unbounded.
// The zero value is not usable.
func NewUnbounded[T any]() *Unbounded[T] {
	stub := new(node[T])
	q := new(Unbounded[T])
	q.head.Store(stub)
	q.tail.Store(stub)
	return q
}

// Push places the given value at the tail of the queue. It always returns true.
func (q *Unbounded[T]) Push(value T) bool {
	n := &node[T]{value: value}
	q.length.Add(1)
	prev := q.tail.Swap(n)
	prev.next.Store(n)
	return true
}

// Pop takes the value at the head of the queue.
// Returns false if the queue is empty. Must be called from the consumer only.
func (q *Unbounded[T]) Pop() (T, bool) {
	var zero T
	next := q.head.Load().next.Load()
	if next == nil {
		return zero, false
	}

	q.head.Store(next)
	value := next.value
	// release the reference held by the new stub
	next.value = zero
	q.length.Add(-1)
	return value, true
}

// IsEmpty returns true when no value is linked after the head.
// A producer that has swapped the tail but not yet linked its node is
// observed as empty; it is picked up once the link is stored.
func (q *Unbounded[T]) IsEmpty() bool {
	return q.head.Load().next.Load() == nil
}

// Len returns the number of values pushed and not yet popped
func (q *Unbounded[T]) Len() int64 {
	return q.length.Load()
}

// Dispose drops every queued value
func (q *Unbounded[T]) Dispose() {
	for {
		if _, ok := q.Pop(); !ok {
			return
		}
	}
}
