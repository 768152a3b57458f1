package unified

// flush moves through the flush states. The cache first waits for the
// misses in flight, then queues every dirty line in the write buffer, and
// finishes once memory has acknowledged all the writes.
func (c *Comp) flush() bool {
	switch c.state {
	case cacheStatePreFlushing:
		return c.prepareFlush()
	case cacheStateFlushing:
		madeProgress := c.flushNextBlock()
		return c.finalizeFlush() || madeProgress
	}

	return false
}

func (c *Comp) prepareFlush() bool {
	if c.mshr.Len() > 0 || len(c.pendingResponses) > 0 {
		return false
	}

	c.flushList = c.banks.DirtyBlocks()
	c.state = cacheStateFlushing

	return true
}

func (c *Comp) flushNextBlock() bool {
	if len(c.flushList) == 0 {
		return false
	}

	block := c.flushList[0]
	index := uint64(block.SetID)
	bank := c.banks.BankOf(index)

	if c.bankBusy[bank] || !c.writeBuffer.CanEnqueue() {
		return false
	}

	lineAddr := c.decoder.Compose(block.Tag, index, 0)

	err := c.writeBuffer.Enqueue(lineAddr, block.Data, fullMask(len(block.Data)))
	if err != nil {
		return false
	}

	c.banks.Update(index, block.WayID, block.Data, false)
	c.bankBusy[bank] = true
	c.flushList = c.flushList[1:]

	return true
}

func (c *Comp) finalizeFlush() bool {
	if len(c.flushList) > 0 ||
		c.writeBuffer.Len() > 0 ||
		len(c.inflightWrites) > 0 {
		return false
	}

	c.state = cacheStateRunning
	c.countStats(func(s *Stats) { s.Flushes++ })

	return true
}
