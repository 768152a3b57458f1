// Package unified models a unified instruction and data cache that sits
// between the L1 caches of a core and main memory.
package unified

import (
	"fmt"
	"sync"

	"github.com/sarchlab/unicache/config"
	"github.com/sarchlab/unicache/mem/cache/internal/addressing"
	"github.com/sarchlab/unicache/mem/cache/internal/arbitration"
	"github.com/sarchlab/unicache/mem/cache/internal/mshr"
	"github.com/sarchlab/unicache/mem/cache/internal/tagging"
	"github.com/sarchlab/unicache/mem/cache/internal/writebuffer"
	"github.com/sarchlab/unicache/mem/mem"
	"github.com/sarchlab/unicache/packet"
	"github.com/sarchlab/unicache/sim"
	"github.com/sarchlab/unicache/sim/queueing"
)

// Hook positions of the cache. The item of Accept, Hit, Miss, Merge and
// Respond is a *Transaction; Respond carries the response packet as detail.
var (
	HookPosAccept  = &sim.HookPos{Name: "Cache Accept"}
	HookPosHit     = &sim.HookPos{Name: "Cache Hit"}
	HookPosMiss    = &sim.HookPos{Name: "Cache Miss"}
	HookPosMerge   = &sim.HookPos{Name: "Cache Merge"}
	HookPosEvict   = &sim.HookPos{Name: "Cache Evict"}
	HookPosFill    = &sim.HookPos{Name: "Cache Fill"}
	HookPosRespond = &sim.HookPos{Name: "Cache Respond"}
	HookPosStall   = &sim.HookPos{Name: "Cache Stall"}
)

type cacheState int

const (
	cacheStateRunning cacheState = iota
	cacheStatePreFlushing
	cacheStateFlushing
)

// Comp is a multi-bank, set-associative, write-back unified cache.
type Comp struct {
	*sim.TickingComponent

	cfg         config.Config
	codec       *packet.Codec
	decoder     addressing.Decoder
	banks       *tagging.BankArray
	inputQueues []*queueing.Buffer[*Transaction]
	arbiter     arbitration.Arbiter[*Transaction]
	mshr        *mshr.MSHR[*Transaction]
	writeBuffer *writebuffer.WriteBuffer
	returnQueue *queueing.Buffer[packet.Packet]
	lowModule   mem.LowModule
	upper       sim.Notifiable

	bankBusy         []bool
	pendingResponses []*Transaction
	pendingData      [][]byte
	inflightWrites   map[string]bool

	state     cacheState
	flushList []tagging.Block

	statsLock sync.Mutex
	stats     Stats
}

// Config returns the configuration the cache was built with.
func (c *Comp) Config() config.Config {
	return c.cfg
}

// SetUpperNotifier sets the component that is woken up when responses are
// ready.
func (c *Comp) SetUpperNotifier(n sim.Notifiable) {
	c.upper = n
}

// Send accepts a packet into the input queue of its port. It fails with
// packet.ErrMalformedPacket for invalid or malformed packets and with
// queueing.ErrCapacityExceeded when the port's queue is full.
func (c *Comp) Send(pkt packet.Packet) error {
	if !pkt.Valid {
		return fmt.Errorf("%s: %w: valid bit not set",
			c.Name(), packet.ErrMalformedPacket)
	}

	if err := c.codec.Validate(pkt); err != nil {
		return fmt.Errorf("%s: %w", c.Name(), err)
	}

	if err := c.codec.CheckPort(pkt); err != nil {
		return fmt.Errorf("%s: %w", c.Name(), err)
	}

	trans := c.newTransaction(pkt)

	if err := c.inputQueues[pkt.PortID].Push(trans); err != nil {
		return err
	}

	c.countStats(func(s *Stats) { s.Accepted++ })
	c.hook(HookPosAccept, trans, nil)
	c.TickLater()

	return nil
}

func (c *Comp) newTransaction(pkt packet.Packet) *Transaction {
	tag, index, offset := c.decoder.Decompose(pkt.Address)

	return &Transaction{
		ID:          sim.GetIDGenerator().Generate(),
		Packet:      pkt.Clone(),
		Tag:         tag,
		Index:       index,
		Offset:      offset,
		LineAddress: c.decoder.LineAddress(pkt.Address),
		ArriveAt:    c.CurrentTime(),
	}
}

// CanSend tells if the input queue of a port has room.
func (c *Comp) CanSend(portID uint32) bool {
	if int(portID) >= len(c.inputQueues) {
		return false
	}

	return c.inputQueues[portID].CanPush()
}

// Retrieve takes the oldest response from the return queue.
func (c *Comp) Retrieve() (packet.Packet, bool) {
	rsp, ok := c.returnQueue.Pop()
	if ok {
		c.TickLater()
	}

	return rsp, ok
}

// Flush writes every dirty line back to memory. Lines stay valid and
// become clean. New packets wait in the input queues until the flush is
// done.
func (c *Comp) Flush() {
	c.Lock()
	defer c.Unlock()

	if c.state == cacheStateRunning {
		c.state = cacheStatePreFlushing
	}

	c.TickLater()
}

// IsFlushed tells if the last flush has completed.
func (c *Comp) IsFlushed() bool {
	c.Lock()
	defer c.Unlock()

	return c.state == cacheStateRunning
}

// Stats returns a snapshot of the counters.
func (c *Comp) Stats() Stats {
	c.statsLock.Lock()
	defer c.statsLock.Unlock()

	return c.stats
}

func (c *Comp) countStats(f func(s *Stats)) {
	c.statsLock.Lock()
	f(&c.stats)
	c.statsLock.Unlock()
}

// Buffers returns the queues of the cache, for monitoring.
func (c *Comp) Buffers() []queueing.Observable {
	bufs := make([]queueing.Observable, 0, len(c.inputQueues)+2)
	for _, q := range c.inputQueues {
		bufs = append(bufs, q)
	}

	bufs = append(bufs, c.writeBuffer, c.returnQueue)

	return bufs
}

// NumInflightMisses returns the number of lines waiting for memory.
func (c *Comp) NumInflightMisses() int {
	return c.mshr.Len()
}

// Tick updates the internal states of the Cache.
func (c *Comp) Tick() bool {
	c.Lock()
	defer c.Unlock()

	for i := range c.bankBusy {
		c.bankBusy[i] = false
	}

	madeProgress := false

	madeProgress = c.drainWriteBuffer() || madeProgress
	madeProgress = c.receiveFromBottom() || madeProgress
	madeProgress = c.sendPendingResponses() || madeProgress
	madeProgress = c.issueFills() || madeProgress
	madeProgress = c.flush() || madeProgress

	if c.state == cacheStateRunning {
		madeProgress = c.accessBanks() || madeProgress
	}

	return madeProgress
}

func (c *Comp) hook(pos *sim.HookPos, item, detail interface{}) {
	if c.NumHooks() == 0 {
		return
	}

	c.InvokeHook(sim.HookCtx{
		Domain: c,
		Pos:    pos,
		Now:    c.CurrentTime(),
		Item:   item,
		Detail: detail,
	})
}

func (c *Comp) respond(trans *Transaction, data []byte) bool {
	rsp := trans.Packet.Clone()
	rsp.Valid = true
	rsp.Data = append([]byte(nil), data...)

	if err := c.returnQueue.Push(rsp); err != nil {
		return false
	}

	trans.RespondAt = c.CurrentTime()

	c.countStats(func(s *Stats) { s.Responses++ })
	c.hook(HookPosRespond, trans, rsp)

	if c.upper != nil {
		c.upper.NotifyRecv()
	}

	return true
}
