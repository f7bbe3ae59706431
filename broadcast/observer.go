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

package broadcast

// Observer receives the states published by a Broadcaster.
//
// OnNext is called for every published state. Then at most one of OnError
// or OnCompleted is called, after which the observer receives nothing else.
// Calls to a given observer never overlap.
type Observer[S any] interface {
	OnNext(state S)
	OnError(err error)
	OnCompleted()
}

type observer[S any] struct {
	onNext      func(S)
	onError     func(error)
	onCompleted func()
}

// enforce compilation error
var _ Observer[int] = (*observer[int])(nil)

// NewObserver creates an Observer from callbacks. Nil callbacks are ignored.
func NewObserver[S any](onNext func(S), onError func(error), onCompleted func()) Observer[S] {
	return &observer[S]{
		onNext:      onNext,
		onError:     onError,
		onCompleted: onCompleted,
	}
}

func (o *observer[S]) OnNext(state S) {
	if o.onNext != nil {
		o.onNext(state)
	}
}

func (o *observer[S]) OnError(err error) {
	if o.onError != nil {
		o.onError(err)
	}
}

func (o *observer[S]) OnCompleted() {
	if o.onCompleted != nil {
		o.onCompleted()
	}
}
