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

// Status defines the lifecycle status of an Agent.
//
// Status only moves forward: Running → Halted or Running → Disposed.
// No transition ever leaves Halted or Disposed.
type Status int32

const (
	// Running means the agent accepts and processes messages
	Running Status = iota
	// Halted means the failure policy decided that a transition failure
	// was not recoverable. Messages are discarded.
	Halted
	// Disposed means the agent has been disposed. Messages are discarded.
	Disposed
)

// String returns the string representation of the status
func (s Status) String() string {
	switch s {
	case Running:
		return "Running"
	case Halted:
		return "Halted"
	case Disposed:
		return "Disposed"
	default:
		return ""
	}
}

// IsTerminal reports whether the status can no longer change
func (s Status) IsTerminal() bool {
	return s == Halted || s == Disposed
}
