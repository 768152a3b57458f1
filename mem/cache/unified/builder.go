package unified

import (
	"fmt"

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

// A Builder can build unified caches.
type Builder struct {
	engine            sim.Engine
	cfg               config.Config
	hasConfig         bool
	lowModule         mem.LowModule
	upper             sim.Notifiable
	replacementPolicy string
}

// MakeBuilder returns a builder with the production default configuration
// and LRU replacement.
func MakeBuilder() Builder {
	return Builder{
		replacementPolicy: "lru",
	}
}

// WithEngine sets the engine that drives the cache.
func (b Builder) WithEngine(engine sim.Engine) Builder {
	b.engine = engine
	return b
}

// WithConfig sets the cache configuration.
func (b Builder) WithConfig(cfg config.Config) Builder {
	b.cfg = cfg
	b.hasConfig = true

	return b
}

// WithLowModule sets the memory below the cache.
func (b Builder) WithLowModule(lowModule mem.LowModule) Builder {
	b.lowModule = lowModule
	return b
}

// WithUpperNotifier sets the component to wake up when responses are ready.
func (b Builder) WithUpperNotifier(n sim.Notifiable) Builder {
	b.upper = n
	return b
}

// WithReplacementPolicy selects the victim policy: "lru", "fifo" or "srrip".
func (b Builder) WithReplacementPolicy(name string) Builder {
	b.replacementPolicy = name
	return b
}

// Build creates a cache with the given name.
func (b Builder) Build(name string) *Comp {
	b.engineMustBeGiven()
	b.lowModuleMustBeGiven()

	cfg := b.cfg
	if !b.hasConfig {
		cfg = config.MustNew(config.DefaultParams(config.Production))
	}

	c := &Comp{
		cfg:            cfg,
		codec:          packet.NewCodec(cfg),
		decoder:        addressing.NewDecoder(cfg),
		lowModule:      b.lowModule,
		upper:          b.upper,
		bankBusy:       make([]bool, cfg.NumBanks()),
		inflightWrites: make(map[string]bool),
	}

	c.TickingComponent = sim.NewTickingComponent(name, b.engine, c)

	c.banks = tagging.NewBankArray(
		cfg.NumBanks(),
		cfg.NumSets(),
		cfg.Associativity(),
		int(cfg.BlockSize()),
		b.buildVictimFinder(),
	)

	arbiter := arbitration.NewRoundRobin[*Transaction]()
	for i := 0; i < cfg.MaxNumInputPorts(); i++ {
		q := queueing.NewBuffer[*Transaction](
			fmt.Sprintf("%s.InputQueue[%d]", name, i),
			cfg.InputQueueSize(),
		)
		c.inputQueues = append(c.inputQueues, q)
		arbiter.AddBuffer(q)
	}

	c.arbiter = arbiter
	c.mshr = mshr.New[*Transaction](cfg.MissBufferSize())
	c.writeBuffer = writebuffer.New(name+".WriteBuffer", cfg.WritebackBufferSize())
	c.returnQueue = queueing.NewBuffer[packet.Packet](
		name+".ReturnQueue", cfg.ReturnQueueSize())

	return c
}

func (b Builder) buildVictimFinder() tagging.VictimFinder {
	vf, ok := tagging.NewVictimFinder(b.replacementPolicy)
	if !ok {
		panic(fmt.Sprintf("unknown replacement policy %q", b.replacementPolicy))
	}

	return vf
}

func (b Builder) engineMustBeGiven() {
	if b.engine == nil {
		panic("cache requires an engine to operate")
	}
}

func (b Builder) lowModuleMustBeGiven() {
	if b.lowModule == nil {
		panic("cache requires a low module to operate")
	}
}
