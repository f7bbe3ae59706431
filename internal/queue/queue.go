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

// Queue is the pending-messages queue of an agent.
//
// Push may be called concurrently by any number of producers. Pop, IsEmpty
// and Dispose are reserved to the single consumer that drains the queue.
type Queue[T any] interface {
	// Push appends the value to the tail of the queue. It never blocks and
	// returns false when the value was not accepted.
	Push(value T) bool
	// Pop removes the value at the head of the queue.
	// It returns false when the queue is empty.
	Pop() (T, bool)
	// IsEmpty reports whether the queue currently holds no values
	IsEmpty() bool
	// Len returns an approximate number of values in the queue
	Len() int64
	// Dispose releases the queued values. The queue must not be used afterwards.
	Dispose()
}
