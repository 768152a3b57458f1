// Package arbitration decides the order in which input queues are served.
package arbitration

import "github.com/sarchlab/unicache/sim/queueing"

// An Arbiter orders a set of buffers for service in the current cycle.
type Arbiter[T any] interface {
	// AddBuffer adds a buffer to arbitrate.
	AddBuffer(buf *queueing.Buffer[T])

	// Arbitrate returns the non-empty buffers, highest priority first.
	Arbitrate() []*queueing.Buffer[T]
}

// RoundRobin gives the first slot to each buffer in turn. The starting
// position moves by one on every call, so every buffer is served first at
// least once every len(buffers) cycles.
type RoundRobin[T any] struct {
	buffers []*queueing.Buffer[T]
	next    int
}

// NewRoundRobin creates a round-robin arbiter.
func NewRoundRobin[T any]() *RoundRobin[T] {
	return &RoundRobin[T]{}
}

// AddBuffer adds a buffer to arbitrate.
func (a *RoundRobin[T]) AddBuffer(buf *queueing.Buffer[T]) {
	a.buffers = append(a.buffers, buf)
}

// Buffers returns all the buffers, in the order they were added.
func (a *RoundRobin[T]) Buffers() []*queueing.Buffer[T] {
	return a.buffers
}

// Arbitrate returns the non-empty buffers starting from the current
// position and then moves the position forward.
func (a *RoundRobin[T]) Arbitrate() []*queueing.Buffer[T] {
	n := len(a.buffers)
	if n == 0 {
		return nil
	}

	out := make([]*queueing.Buffer[T], 0, n)

	for i := 0; i < n; i++ {
		buf := a.buffers[(a.next+i)%n]
		if buf.Size() > 0 {
			out = append(out, buf)
		}
	}

	a.next = (a.next + 1) % n

	return out
}
