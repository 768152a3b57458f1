package unified

import (
	"log"

	"github.com/sarchlab/unicache/mem/cache/internal/mshr"
	"github.com/sarchlab/unicache/packet"
)

// accessBanks serves the heads of the input queues in arbitration order.
// Every bank performs at most one access per cycle.
func (c *Comp) accessBanks() bool {
	madeProgress := false

	for _, q := range c.arbiter.Arbitrate() {
		trans, ok := q.Peek()
		if !ok {
			continue
		}

		bank := c.banks.BankOf(trans.Index)
		if c.bankBusy[bank] {
			c.stall(trans, StallBankConflict)
			continue
		}

		if !c.access(trans) {
			continue
		}

		c.bankBusy[bank] = true
		q.Pop()

		madeProgress = true
	}

	return madeProgress
}

func (c *Comp) stall(trans *Transaction, reason StallReason) {
	c.countStats(func(s *Stats) { s.countStall(reason) })
	c.hook(HookPosStall, trans, reason)
}

func (c *Comp) access(trans *Transaction) bool {
	way, hit := c.banks.Probe(trans.Tag, trans.Index)
	if hit {
		return c.accessHit(trans, way)
	}

	if entry, found := c.mshr.Lookup(trans.LineAddress); found {
		return c.mergeMiss(trans, entry)
	}

	if !trans.Packet.Cacheable && trans.Packet.IsWrite {
		return c.writeAround(trans)
	}

	return c.allocateMiss(trans)
}

func (c *Comp) accessHit(trans *Transaction, way int) bool {
	if !c.returnQueue.CanPush() {
		c.stall(trans, StallReturnQueueFull)
		return false
	}

	block := c.banks.Read(trans.Index, way)
	data := block.Data

	if trans.Packet.IsWrite {
		c.applyWrite(trans, data)
		c.banks.Update(trans.Index, way, data, true)
	}

	c.banks.Visit(trans.Index, way)

	trans.Hit = true

	c.countStats(func(s *Stats) { s.Hits++ })
	c.hook(HookPosHit, trans, nil)

	if !c.respond(trans, data) {
		log.Panic("return queue rejected a response after reporting space")
	}

	return true
}

// needsAllocation tells if the line of the transaction must be kept in the
// cache after the fill.
func needsAllocation(trans *Transaction) bool {
	return trans.Packet.Cacheable || trans.Packet.IsWrite
}

func (c *Comp) mergeMiss(
	trans *Transaction,
	entry *mshr.Entry[*Transaction],
) bool {
	if entry.NoAllocate && needsAllocation(trans) {
		way, ok := c.reserveWay(trans)
		if !ok {
			return false
		}

		entry.WayID = way
		entry.NoAllocate = false
	}

	_, merged, err := c.mshr.AllocateOrMerge(trans.LineAddress, trans)
	if err != nil || !merged {
		log.Panicf("cannot merge into the mshr entry of %#x", trans.LineAddress)
	}

	trans.Merged = true

	c.countStats(func(s *Stats) { s.Merges++ })
	c.hook(HookPosMerge, trans, nil)

	return true
}

func (c *Comp) allocateMiss(trans *Transaction) bool {
	if c.mshr.IsFull() {
		c.stall(trans, StallMSHRFull)
		return false
	}

	way := -1
	noAllocate := !needsAllocation(trans)

	if !noAllocate {
		var ok bool

		way, ok = c.reserveWay(trans)
		if !ok {
			return false
		}
	}

	entry, _, err := c.mshr.AllocateOrMerge(trans.LineAddress, trans)
	if err != nil {
		log.Panic(err)
	}

	entry.Index = trans.Index
	entry.WayID = way
	entry.NoAllocate = noAllocate

	c.countStats(func(s *Stats) { s.Misses++ })
	c.hook(HookPosMiss, trans, nil)

	return true
}

// reserveWay evicts a victim in the set of the transaction and locks the way
// for the coming fill.
func (c *Comp) reserveWay(trans *Transaction) (int, bool) {
	way, ok := c.banks.SelectVictim(trans.Index)
	if !ok {
		c.stall(trans, StallNoVictim)
		return -1, false
	}

	victim := c.banks.Read(trans.Index, way)
	if victim.IsValid && victim.IsDirty && !c.writeBuffer.CanEnqueue() {
		c.stall(trans, StallWriteBufferFull)
		return -1, false
	}

	if victim.IsValid {
		c.evict(trans.Index, way, victim.Tag)
	}

	c.banks.Lock(trans.Index, way)

	return way, true
}

func (c *Comp) evict(index uint64, way int, tag uint64) {
	evicted, wasDirty := c.banks.Evict(index, way)
	lineAddr := c.decoder.Compose(tag, index, 0)

	if wasDirty {
		err := c.writeBuffer.Enqueue(lineAddr, evicted.Data, fullMask(len(evicted.Data)))
		if err != nil {
			log.Panic(err)
		}
	}

	c.countStats(func(s *Stats) { s.Evictions++ })
	c.hook(HookPosEvict, Eviction{
		LineAddress: lineAddr,
		SetID:       evicted.SetID,
		WayID:       evicted.WayID,
		Dirty:       wasDirty,
	}, nil)
}

// writeAround sends the bytes of a non-cacheable write miss straight to the
// write buffer.
func (c *Comp) writeAround(trans *Transaction) bool {
	if !c.writeBuffer.CanEnqueue() {
		c.stall(trans, StallWriteBufferFull)
		return false
	}

	if !c.returnQueue.CanPush() {
		c.stall(trans, StallReturnQueueFull)
		return false
	}

	mask := c.writeMask(trans)

	err := c.writeBuffer.Enqueue(trans.LineAddress, trans.Packet.Data, mask)
	if err != nil {
		log.Panic(err)
	}

	c.countStats(func(s *Stats) { s.WriteArounds++ })

	if !c.respond(trans, trans.Packet.Data) {
		log.Panic("return queue rejected a response after reporting space")
	}

	return true
}

// writeMask returns the block bytes a write touches. Mask bit i covers byte
// offset+i. A writeback with an empty mask covers the whole block.
func (c *Comp) writeMask(trans *Transaction) []bool {
	blockSize := int(c.cfg.BlockSize())
	pkt := trans.Packet

	if pkt.Type == packet.DataWriteback && pkt.ByteMask == 0 {
		return fullMask(blockSize)
	}

	mask := make([]bool, blockSize)

	for i := 0; i < 64; i++ {
		if pkt.ByteMask&(uint64(1)<<uint(i)) == 0 {
			continue
		}

		pos := int(trans.Offset) + i
		if pos >= blockSize {
			break
		}

		mask[pos] = true
	}

	return mask
}

// applyWrite merges the bytes of a write into a block.
func (c *Comp) applyWrite(trans *Transaction, block []byte) {
	if !trans.Packet.IsWrite {
		return
	}

	for i, dirty := range c.writeMask(trans) {
		if dirty {
			block[i] = trans.Packet.Data[i]
		}
	}
}

func fullMask(n int) []bool {
	mask := make([]bool, n)
	for i := range mask {
		mask[i] = true
	}

	return mask
}
