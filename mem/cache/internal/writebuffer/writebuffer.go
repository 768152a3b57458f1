// Package writebuffer holds dirty lines on their way to memory.
package writebuffer

import (
	"github.com/sarchlab/unicache/sim"
	"github.com/sarchlab/unicache/sim/queueing"
)

// Line is a line to write back. Only the bytes set in DirtyMask need to
// reach memory.
type Line struct {
	LineAddress uint64
	Data        []byte
	DirtyMask   []bool
}

// NumDirtyBytes counts the bytes that must be written.
func (e Line) NumDirtyBytes() int {
	n := 0
	for _, d := range e.DirtyMask {
		if d {
			n++
		}
	}

	return n
}

// WriteBuffer is a bounded FIFO of lines to write back.
type WriteBuffer struct {
	buf *queueing.Buffer[Line]
}

// New creates a write buffer.
func New(name string, capacity int) *WriteBuffer {
	return &WriteBuffer{
		buf: queueing.NewBuffer[Line](name, capacity),
	}
}

// Name returns the name of the buffer.
func (w *WriteBuffer) Name() string {
	return w.buf.Name()
}

// AcceptHook registers a hook that sees every push and drain.
func (w *WriteBuffer) AcceptHook(hook sim.Hook) {
	w.buf.AcceptHook(hook)
}

// CanEnqueue tells if another entry fits.
func (w *WriteBuffer) CanEnqueue() bool {
	return w.buf.CanPush()
}

// Enqueue adds a line at the tail. It fails with
// queueing.ErrCapacityExceeded when full. The data and mask are copied.
func (w *WriteBuffer) Enqueue(
	lineAddr uint64,
	data []byte,
	dirtyMask []bool,
) error {
	return w.buf.Push(Line{
		LineAddress: lineAddr,
		Data:        append([]byte(nil), data...),
		DirtyMask:   append([]bool(nil), dirtyMask...),
	})
}

// Peek returns the oldest entry without removing it.
func (w *WriteBuffer) Peek() (Line, bool) {
	return w.buf.Peek()
}

// Drain removes and returns the oldest entry.
func (w *WriteBuffer) Drain() (Line, bool) {
	return w.buf.Pop()
}

// Contains tells if a line still has data waiting to be written.
func (w *WriteBuffer) Contains(lineAddr uint64) bool {
	for _, e := range w.buf.Elements() {
		if e.LineAddress == lineAddr {
			return true
		}
	}

	return false
}

// Len returns the number of entries.
func (w *WriteBuffer) Len() int {
	return w.buf.Size()
}

// Size returns the number of entries.
func (w *WriteBuffer) Size() int {
	return w.buf.Size()
}

// Capacity returns the maximum number of entries.
func (w *WriteBuffer) Capacity() int {
	return w.buf.Capacity()
}

// Clear drops all entries.
func (w *WriteBuffer) Clear() {
	w.buf.Clear()
}
