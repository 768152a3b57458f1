package idealmemcontroller

import (
	"github.com/sarchlab/unicache/mem/mem"
	"github.com/sarchlab/unicache/sim"
	"github.com/sarchlab/unicache/sim/queueing"
)

// Builder builds ideal memory controllers.
type Builder struct {
	width      int
	latency    int
	capacity   uint64
	engine     sim.Engine
	topBufSize int
	rspBufSize int
	storage    *mem.Storage
}

// MakeBuilder returns a new Builder
func MakeBuilder() Builder {
	return Builder{
		latency:    100,
		width:      1,
		topBufSize: 16,
		rspBufSize: 16,
	}
}

// WithWidth sets the number of requests served per cycle.
func (b Builder) WithWidth(width int) Builder {
	b.width = width
	return b
}

// WithLatency sets the latency of the memory controller
func (b Builder) WithLatency(latency int) Builder {
	b.latency = latency
	return b
}

// WithNewStorage makes the controller own a new storage of the capacity.
func (b Builder) WithNewStorage(capacity uint64) Builder {
	b.capacity = capacity
	return b
}

// WithEngine sets the engine of the memory controller
func (b Builder) WithEngine(engine sim.Engine) Builder {
	b.engine = engine
	return b
}

// WithTopBufSize sets the size of the top buffer
func (b Builder) WithTopBufSize(topBufSize int) Builder {
	b.topBufSize = topBufSize
	return b
}

// WithRspBufSize sets the number of responses that can wait for pickup.
func (b Builder) WithRspBufSize(n int) Builder {
	b.rspBufSize = n
	return b
}

// WithStorage sets the storage of the memory controller
func (b Builder) WithStorage(storage *mem.Storage) Builder {
	b.storage = storage
	return b
}

// Build builds a new Comp
func (b Builder) Build(name string) *Comp {
	if b.engine == nil {
		panic("ideal memory controller requires an engine")
	}

	c := &Comp{
		Latency: b.latency,
		width:   b.width,
	}

	c.TickingComponent = sim.NewTickingComponent(name, b.engine, c)

	if b.storage == nil {
		c.Storage = mem.NewStorage(b.capacity)
	} else {
		c.Storage = b.storage
	}

	c.topBuf = queueing.NewBuffer[mem.Msg](name+".TopBuf", b.topBufSize)
	c.doneBuf = queueing.NewBuffer[mem.Msg](name+".DoneBuf", b.width)
	c.rspBuf = queueing.NewBuffer[mem.Msg](name+".RspBuf", b.rspBufSize)
	c.pipeline = queueing.MakePipelineBuilder[mem.Msg]().
		WithPipelineWidth(b.width).
		WithNumStage(b.latency).
		WithCyclePerStage(1).
		WithPostPipelineBuffer(c.doneBuf).
		Build(name + ".Pipeline")

	return c
}
