// Package queueing provides the bounded FIFO buffers and the fixed-latency
// pipelines that simulated hardware uses to hold in-flight items.
package queueing

import (
	"errors"
	"fmt"
	"sync"

	"github.com/sarchlab/unicache/sim"
)

// ErrCapacityExceeded is returned when pushing into a structure that is
// already full. The caller should retry in a later cycle.
var ErrCapacityExceeded = errors.New("capacity exceeded")

// HookPosBufPush marks when an element is pushed into the buffer.
var HookPosBufPush = &sim.HookPos{Name: "Buffer Push"}

// HookPosBufPop marks when an element is popped from the buffer.
var HookPosBufPop = &sim.HookPos{Name: "Buffer Pop"}

// Observable is a buffer-like structure whose fill level can be inspected.
type Observable interface {
	sim.Named
	Size() int
	Capacity() int
}

// A Buffer is a bounded fifo queue. It is safe to use from multiple
// goroutines.
type Buffer[T any] struct {
	sim.HookableBase

	lock     sync.Mutex
	name     string
	capacity int
	elements []T
}

// NewBuffer creates a buffer that can hold at most capacity elements.
func NewBuffer[T any](name string, capacity int) *Buffer[T] {
	sim.NameMustBeValid(name)

	if capacity <= 0 {
		panic(fmt.Sprintf("buffer %s must have a positive capacity", name))
	}

	return &Buffer[T]{
		name:     name,
		capacity: capacity,
	}
}

// Name returns the name of the buffer.
func (b *Buffer[T]) Name() string {
	return b.name
}

// CanPush tells if there is room for at least one more element.
func (b *Buffer[T]) CanPush() bool {
	b.lock.Lock()
	defer b.lock.Unlock()

	return len(b.elements) < b.capacity
}

// Push appends an element at the tail. It fails with ErrCapacityExceeded if
// the buffer is full, leaving the buffer unchanged.
func (b *Buffer[T]) Push(e T) error {
	b.lock.Lock()
	if len(b.elements) >= b.capacity {
		b.lock.Unlock()
		return fmt.Errorf("%s: %w", b.name, ErrCapacityExceeded)
	}

	b.elements = append(b.elements, e)
	b.lock.Unlock()

	b.invoke(HookPosBufPush, e)

	return nil
}

// Pop removes and returns the element at the head.
func (b *Buffer[T]) Pop() (T, bool) {
	b.lock.Lock()
	if len(b.elements) == 0 {
		b.lock.Unlock()

		var zero T

		return zero, false
	}

	e := b.elements[0]
	b.elements = b.elements[1:]
	b.lock.Unlock()

	b.invoke(HookPosBufPop, e)

	return e, true
}

// Peek returns the element at the head without removing it.
func (b *Buffer[T]) Peek() (T, bool) {
	b.lock.Lock()
	defer b.lock.Unlock()

	if len(b.elements) == 0 {
		var zero T
		return zero, false
	}

	return b.elements[0], true
}

// Capacity returns the maximum number of elements.
func (b *Buffer[T]) Capacity() int {
	return b.capacity
}

// Size returns the number of elements currently buffered.
func (b *Buffer[T]) Size() int {
	b.lock.Lock()
	defer b.lock.Unlock()

	return len(b.elements)
}

// Elements returns a copy of the buffered elements, head first.
func (b *Buffer[T]) Elements() []T {
	b.lock.Lock()
	defer b.lock.Unlock()

	out := make([]T, len(b.elements))
	copy(out, b.elements)

	return out
}

// Clear removes all elements in the buffer
func (b *Buffer[T]) Clear() {
	b.lock.Lock()
	b.elements = nil
	b.lock.Unlock()
}

func (b *Buffer[T]) invoke(pos *sim.HookPos, e T) {
	if b.NumHooks() == 0 {
		return
	}

	b.InvokeHook(sim.HookCtx{
		Domain: b,
		Pos:    pos,
		Item:   e,
	})
}
