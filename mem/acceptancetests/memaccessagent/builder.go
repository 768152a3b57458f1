package memaccessagent

import (
	"math/rand"

	"github.com/sarchlab/unicache/sim"
)

// Builder can build MemAccessAgents.
type Builder struct {
	engine             sim.Engine
	cache              Cache
	maxAddress         uint64
	writeLeft          int
	readLeft           int
	numPorts           int
	seed               int64
	nonCacheableChance float64
	fetchFromPort0     bool
}

// MakeBuilder creates a Builder with default parameters.
func MakeBuilder() *Builder {
	return &Builder{
		maxAddress: 1024 * 1024,
		writeLeft:  1000,
		readLeft:   1000,
		seed:       1,
	}
}

// WithEngine sets the engine the agent ticks on.
func (b *Builder) WithEngine(engine sim.Engine) *Builder {
	b.engine = engine
	return b
}

// WithCache sets the cache to drive.
func (b *Builder) WithCache(cache Cache) *Builder {
	b.cache = cache
	return b
}

// WithMaxAddress limits the addresses to [0, addr).
func (b *Builder) WithMaxAddress(addr uint64) *Builder {
	b.maxAddress = addr
	return b
}

func (b *Builder) WithWriteLeft(write int) *Builder {
	b.writeLeft = write
	return b
}

func (b *Builder) WithReadLeft(read int) *Builder {
	b.readLeft = read
	return b
}

// WithNumPorts sets the number of ports to send from. By default, all the
// ports of the cache are used.
func (b *Builder) WithNumPorts(n int) *Builder {
	b.numPorts = n
	return b
}

func (b *Builder) WithSeed(seed int64) *Builder {
	b.seed = seed
	return b
}

// WithNonCacheableChance sets the probability of a request to be marked as
// non-cacheable.
func (b *Builder) WithNonCacheableChance(p float64) *Builder {
	b.nonCacheableChance = p
	return b
}

// WithInstructionFetch makes port 0 an instruction fetch port that reads
// fetch-width chunks at increasing addresses.
func (b *Builder) WithInstructionFetch() *Builder {
	b.fetchFromPort0 = true
	return b
}

// Build creates a MemAccessAgent.
func (b *Builder) Build(name string) *MemAccessAgent {
	if b.engine == nil || b.cache == nil {
		panic("engine and cache must be given")
	}

	cfg := b.cache.Config()

	agent := &MemAccessAgent{
		Cache:              b.cache,
		MaxAddress:         b.maxAddress,
		WriteLeft:          b.writeLeft,
		ReadLeft:           b.readLeft,
		NonCacheableChance: b.nonCacheableChance,
		FetchFromPort0:     b.fetchFromPort0,
		fetchWidth:         uint64(cfg.FetchWidthBytes()),
		rng:                rand.New(rand.NewSource(b.seed)),
		numPorts:           b.numPorts,
		blockSize:          cfg.BlockSize(),
		maskWidth:          cfg.Layout().ByteMask.Width,
		shadow:             make(map[uint64][]byte),
		pending:            make(map[uint32]map[uint64]*pendingReq),
	}

	if agent.numPorts <= 0 || agent.numPorts > cfg.MaxNumInputPorts() {
		agent.numPorts = cfg.MaxNumInputPorts()
	}

	if bits := cfg.Params().CPUDataBits; bits < 64 {
		if limit := uint64(1) << uint(bits); agent.MaxAddress > limit {
			agent.MaxAddress = limit
		}
	}

	for i := 0; i < agent.numPorts; i++ {
		agent.pending[uint32(i)] = make(map[uint64]*pendingReq)
	}

	agent.TickingComponent = sim.NewTickingComponent(name, b.engine, agent)

	return agent
}
