package unified

import (
	"github.com/sarchlab/unicache/packet"
	"github.com/sarchlab/unicache/sim"
)

// A Transaction follows one accepted packet through the cache.
type Transaction struct {
	ID     string
	Packet packet.Packet

	Tag         uint64
	Index       uint64
	Offset      uint64
	LineAddress uint64

	ArriveAt  sim.Cycle
	RespondAt sim.Cycle

	Hit    bool
	Merged bool
}

// Eviction describes a line removed to make room for a fill.
type Eviction struct {
	LineAddress uint64
	SetID       int
	WayID       int
	Dirty       bool
}

// Fill describes a line that arrived from memory.
type Fill struct {
	LineAddress uint64
	Installed   bool
	NumWaiters  int
}

// StallReason tells why the head of an input queue could not proceed.
type StallReason int

// Stall reasons.
const (
	StallMSHRFull StallReason = iota
	StallWriteBufferFull
	StallReturnQueueFull
	StallNoVictim
	StallBankConflict
)

func (r StallReason) String() string {
	switch r {
	case StallMSHRFull:
		return "mshr_full"
	case StallWriteBufferFull:
		return "write_buffer_full"
	case StallReturnQueueFull:
		return "return_queue_full"
	case StallNoVictim:
		return "no_victim"
	case StallBankConflict:
		return "bank_conflict"
	default:
		return "unknown"
	}
}
