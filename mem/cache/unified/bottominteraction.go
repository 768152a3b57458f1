package unified

import (
	"log"

	"github.com/sarchlab/unicache/mem/cache/internal/mshr"
	"github.com/sarchlab/unicache/mem/mem"
)

func (c *Comp) drainWriteBuffer() bool {
	entry, ok := c.writeBuffer.Peek()
	if !ok || !c.lowModule.CanAccept() {
		return false
	}

	req := mem.WriteReqBuilder{}.
		WithSendTime(c.CurrentTime()).
		WithAddress(entry.LineAddress).
		WithData(entry.Data).
		WithDirtyMask(entry.DirtyMask).
		Build()

	if err := c.lowModule.Send(req); err != nil {
		return false
	}

	c.writeBuffer.Drain()
	c.inflightWrites[req.ID] = true

	c.countStats(func(s *Stats) { s.Writebacks++ })

	return true
}

// issueFills sends a read for every mshr entry that has not been fetched.
// A line that still has data in the write buffer is not fetched until the
// data has left.
func (c *Comp) issueFills() bool {
	madeProgress := false

	for _, entry := range c.mshr.Entries() {
		if entry.FillIssued || c.writeBuffer.Contains(entry.LineAddress) {
			continue
		}

		if !c.lowModule.CanAccept() {
			break
		}

		req := mem.ReadReqBuilder{}.
			WithSendTime(c.CurrentTime()).
			WithAddress(entry.LineAddress).
			WithByteSize(c.cfg.BlockSize()).
			Build()

		if err := c.lowModule.Send(req); err != nil {
			break
		}

		entry.FillIssued = true
		entry.FillReqID = req.ID
		madeProgress = true
	}

	return madeProgress
}

// receiveFromBottom takes one response from memory. A fill is only taken
// when the responses of the previous fill have all been queued.
func (c *Comp) receiveFromBottom() bool {
	if len(c.pendingResponses) > 0 {
		return false
	}

	msg, ok := c.lowModule.Retrieve()
	if !ok {
		return false
	}

	switch rsp := msg.(type) {
	case *mem.DataReadyRsp:
		c.handleFill(rsp)
	case *mem.WriteDoneRsp:
		if !c.inflightWrites[rsp.RespondTo] {
			log.Panicf("write done for unknown request %s", rsp.RespondTo)
		}

		delete(c.inflightWrites, rsp.RespondTo)
	default:
		log.Panicf("cannot handle response of type %T", msg)
	}

	return true
}

func (c *Comp) findFillEntry(reqID string) *mshr.Entry[*Transaction] {
	for _, e := range c.mshr.Entries() {
		if e.FillIssued && e.FillReqID == reqID {
			return e
		}
	}

	log.Panicf("fill for unknown request %s", reqID)

	return nil
}

// handleFill applies the waiters of the line in arrival order, installs the
// result and queues one response per waiter.
func (c *Comp) handleFill(rsp *mem.DataReadyRsp) {
	entry := c.findFillEntry(rsp.RespondTo)

	entry, err := c.mshr.Resolve(entry.ID, rsp.Data)
	if err != nil {
		log.Panic(err)
	}

	data := entry.Data
	dirty := false

	for _, trans := range entry.Waiters {
		if trans.Packet.IsWrite {
			c.applyWrite(trans, data)
			dirty = true
		}

		c.pendingResponses = append(c.pendingResponses, trans)
		c.pendingData = append(c.pendingData, append([]byte(nil), data...))
	}

	installed := entry.HasReservedWay()
	if installed {
		tag, _, _ := c.decoder.Decompose(entry.LineAddress)
		c.banks.Install(entry.Index, entry.WayID, tag, data, dirty)
		c.bankBusy[c.banks.BankOf(entry.Index)] = true
	}

	c.countStats(func(s *Stats) { s.Fills++ })
	c.hook(HookPosFill, Fill{
		LineAddress: entry.LineAddress,
		Installed:   installed,
		NumWaiters:  len(entry.Waiters),
	}, nil)
}

func (c *Comp) sendPendingResponses() bool {
	madeProgress := false

	for len(c.pendingResponses) > 0 {
		if !c.respond(c.pendingResponses[0], c.pendingData[0]) {
			break
		}

		c.pendingResponses = c.pendingResponses[1:]
		c.pendingData = c.pendingData[1:]
		madeProgress = true
	}

	return madeProgress
}
