// Package idealmemcontroller models a memory that serves every request after
// a fixed number of cycles, in the order the requests arrive.
package idealmemcontroller

import (
	"fmt"
	"log"

	"github.com/sarchlab/unicache/mem/mem"
	"github.com/sarchlab/unicache/sim"
	"github.com/sarchlab/unicache/sim/queueing"
)

// An Comp is an ideal memory controller that can perform read and write
// Ideal memory controller always respond to the request in a fixed number of
// cycles.
type Comp struct {
	*sim.TickingComponent

	Storage *mem.Storage
	Latency int

	width     int
	topBuf    *queueing.Buffer[mem.Msg]
	pipeline  *queueing.Pipeline[mem.Msg]
	doneBuf   *queueing.Buffer[mem.Msg]
	rspBuf    *queueing.Buffer[mem.Msg]
	upper     sim.Notifiable
	numServed uint64
}

// SetUpperNotifier sets the component to wake up when a response is ready.
func (c *Comp) SetUpperNotifier(n sim.Notifiable) {
	c.upper = n
}

// CanAccept tells if Send would succeed.
func (c *Comp) CanAccept() bool {
	return c.topBuf.CanPush()
}

// Send queues a request.
func (c *Comp) Send(req mem.Msg) error {
	switch req.(type) {
	case *mem.ReadReq, *mem.WriteReq:
	default:
		return fmt.Errorf("%s cannot handle %T", c.Name(), req)
	}

	if err := c.topBuf.Push(req); err != nil {
		return err
	}

	c.TickLater()

	return nil
}

// Retrieve takes the oldest response.
func (c *Comp) Retrieve() (mem.Msg, bool) {
	rsp, ok := c.rspBuf.Pop()
	if ok {
		c.TickLater()
	}

	return rsp, ok
}

// NumServed returns the number of requests completed so far.
func (c *Comp) NumServed() uint64 {
	return c.numServed
}

// Buffers returns the internal buffers, for monitoring.
func (c *Comp) Buffers() []queueing.Observable {
	return []queueing.Observable{c.topBuf, c.doneBuf, c.rspBuf}
}

// Tick updates ideal memory controller state.
func (c *Comp) Tick() bool {
	madeProgress := false

	for i := 0; i < c.width; i++ {
		madeProgress = c.respond() || madeProgress
	}

	madeProgress = c.pipeline.Tick() || madeProgress

	for i := 0; i < c.width; i++ {
		madeProgress = c.accept() || madeProgress
	}

	return madeProgress
}

func (c *Comp) accept() bool {
	if !c.pipeline.CanAccept() {
		return false
	}

	req, ok := c.topBuf.Pop()
	if !ok {
		return false
	}

	c.pipeline.Accept(req)

	return true
}

func (c *Comp) respond() bool {
	if !c.rspBuf.CanPush() {
		return false
	}

	req, ok := c.doneBuf.Peek()
	if !ok {
		return false
	}

	rsp := c.access(req)
	if err := c.rspBuf.Push(rsp); err != nil {
		return false
	}

	c.doneBuf.Pop()
	c.numServed++

	if c.upper != nil {
		c.upper.NotifyRecv()
	}

	return true
}

func (c *Comp) access(req mem.Msg) mem.Msg {
	now := c.CurrentTime()

	switch req := req.(type) {
	case *mem.ReadReq:
		data, err := c.Storage.Read(req.Address, req.AccessByteSize)
		if err != nil {
			log.Panic(err)
		}

		return mem.DataReadyRspBuilder{}.
			WithSendTime(now).
			WithRspTo(req.ID).
			WithData(data).
			Build()
	case *mem.WriteReq:
		err := c.Storage.WriteMasked(req.Address, req.Data, req.DirtyMask)
		if err != nil {
			log.Panic(err)
		}

		return mem.WriteDoneRspBuilder{}.
			WithSendTime(now).
			WithRspTo(req.ID).
			Build()
	default:
		log.Panicf("cannot handle request of type %T", req)
	}

	return nil
}
