// Package mshr tracks the cache misses that wait for data from memory.
package mshr

import (
	"errors"
	"fmt"

	"github.com/sarchlab/unicache/sim"
	"github.com/sarchlab/unicache/sim/queueing"
)

// ErrEntryNotFound is returned when resolving an entry that does not exist.
var ErrEntryNotFound = errors.New("mshr entry not found")

// Entry is one outstanding line fill and the requests waiting for it.
type Entry[W any] struct {
	ID          string
	LineAddress uint64

	// Index and WayID locate the block reserved for the fill. WayID is -1
	// while no block is reserved.
	Index uint64
	WayID int

	// NoAllocate marks fills that are returned to the waiters without being
	// installed.
	NoAllocate bool

	FillIssued bool
	FillReqID  string
	Data       []byte

	Waiters []W
}

// HasReservedWay tells if a block is locked for the fill.
func (e *Entry[W]) HasReservedWay() bool {
	return e.WayID >= 0
}

// MSHR records cache's request to bottom memory.
type MSHR[W any] struct {
	capacity int
	entries  []*Entry[W]
}

// New creates an MSHR with room for capacity lines.
func New[W any](capacity int) *MSHR[W] {
	if capacity <= 0 {
		panic("mshr capacity must be positive")
	}

	return &MSHR[W]{capacity: capacity}
}

// Capacity returns the maximum number of entries.
func (m *MSHR[W]) Capacity() int {
	return m.capacity
}

// Len returns the number of entries.
func (m *MSHR[W]) Len() int {
	return len(m.entries)
}

// IsFull tells if no more lines can be tracked.
func (m *MSHR[W]) IsFull() bool {
	return len(m.entries) >= m.capacity
}

// Lookup finds the entry of a line.
func (m *MSHR[W]) Lookup(lineAddr uint64) (*Entry[W], bool) {
	for _, e := range m.entries {
		if e.LineAddress == lineAddr {
			return e, true
		}
	}

	return nil, false
}

// Get finds an entry by id.
func (m *MSHR[W]) Get(id string) (*Entry[W], bool) {
	for _, e := range m.entries {
		if e.ID == id {
			return e, true
		}
	}

	return nil, false
}

// AllocateOrMerge appends the waiter to the entry of the line, creating the
// entry if the line is not tracked yet. Merging never needs a free entry.
func (m *MSHR[W]) AllocateOrMerge(
	lineAddr uint64,
	waiter W,
) (entry *Entry[W], merged bool, err error) {
	if e, found := m.Lookup(lineAddr); found {
		e.Waiters = append(e.Waiters, waiter)
		return e, true, nil
	}

	if m.IsFull() {
		return nil, false, fmt.Errorf("mshr: %w", queueing.ErrCapacityExceeded)
	}

	entry = &Entry[W]{
		ID:          sim.GetIDGenerator().Generate(),
		LineAddress: lineAddr,
		WayID:       -1,
		Waiters:     []W{waiter},
	}
	m.entries = append(m.entries, entry)

	return entry, false, nil
}

// Resolve attaches the fill data to an entry and removes it. The returned
// entry lists its waiters in arrival order.
func (m *MSHR[W]) Resolve(id string, data []byte) (*Entry[W], error) {
	for i, e := range m.entries {
		if e.ID != id {
			continue
		}

		e.Data = append([]byte(nil), data...)
		m.entries = append(m.entries[:i], m.entries[i+1:]...)

		return e, nil
	}

	return nil, fmt.Errorf("%w: %s", ErrEntryNotFound, id)
}

// Entries returns the entries in allocation order.
func (m *MSHR[W]) Entries() []*Entry[W] {
	return append([]*Entry[W](nil), m.entries...)
}

// Reset drops all entries.
func (m *MSHR[W]) Reset() {
	m.entries = nil
}
