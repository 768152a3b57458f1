// Package memaccessagent provides a component that drives the unified cache
// with random traffic and checks every response against a shadow copy of
// memory.
package memaccessagent

import (
	"bytes"
	"fmt"
	"log"
	"math/rand"

	"github.com/sarchlab/unicache/config"
	"github.com/sarchlab/unicache/packet"
	"github.com/sarchlab/unicache/sim"
)

var dumpLog = false

// A Cache is the front end the agent drives.
type Cache interface {
	Config() config.Config
	CanSend(portID uint32) bool
	Send(pkt packet.Packet) error
	Retrieve() (packet.Packet, bool)
}

// A Mismatch records a response whose data differs from the expected value.
type Mismatch struct {
	Time     sim.Cycle
	Packet   packet.Packet
	Expected []byte
}

func (m Mismatch) String() string {
	return fmt.Sprintf("%d: %s, expected %x", m.Time, m.Packet, m.Expected)
}

type pendingReq struct {
	pkt      packet.Packet
	expected []byte
	check    bool
}

// A MemAccessAgent is a Component that can help testing the cache by
// generating a large number of reads and writes from several ports at the
// same time.
type MemAccessAgent struct {
	*sim.TickingComponent

	Cache      Cache
	MaxAddress uint64

	WriteLeft          int
	ReadLeft           int
	NonCacheableChance float64
	FetchFromPort0     bool
	Mismatches         []Mismatch
	NumChecked         int

	rng        *rand.Rand
	numPorts   int
	blockSize  uint64
	maskWidth  int
	fetchWidth uint64
	pc         uint64
	shadow     map[uint64][]byte
	pending    map[uint32]map[uint64]*pendingReq
}

// Tick updates the states of the agent and issues new requests.
func (a *MemAccessAgent) Tick() bool {
	madeProgress := false

	madeProgress = a.processRsp() || madeProgress

	if a.ReadLeft == 0 && a.WriteLeft == 0 {
		return madeProgress
	}

	for port := 0; port < a.numPorts; port++ {
		madeProgress = a.issue(uint32(port)) || madeProgress
	}

	return madeProgress
}

// Finished tells if all the requests have been sent and answered.
func (a *MemAccessAgent) Finished() bool {
	return a.ReadLeft == 0 && a.WriteLeft == 0 && a.NumPending() == 0
}

// NumPending returns the number of requests waiting for responses.
func (a *MemAccessAgent) NumPending() int {
	n := 0
	for _, reqs := range a.pending {
		n += len(reqs)
	}

	return n
}

func (a *MemAccessAgent) processRsp() bool {
	madeProgress := false

	for {
		rsp, ok := a.Cache.Retrieve()
		if !ok {
			return madeProgress
		}

		a.checkRsp(rsp)

		madeProgress = true
	}
}

func (a *MemAccessAgent) checkRsp(rsp packet.Packet) {
	line := a.lineAddress(rsp.Address)

	req, ok := a.pending[rsp.PortID][line]
	if !ok {
		log.Panicf("response for a request never sent: %s", rsp)
	}

	delete(a.pending[rsp.PortID], line)

	if dumpLog {
		log.Printf("%d, agent, complete, %s\n", a.CurrentTime(), rsp)
	}

	if !req.check {
		return
	}

	a.NumChecked++

	if !bytes.Equal(rsp.Data, req.expected) {
		a.Mismatches = append(a.Mismatches, Mismatch{
			Time:     a.CurrentTime(),
			Packet:   rsp,
			Expected: req.expected,
		})
	}
}

func (a *MemAccessAgent) issue(port uint32) bool {
	if a.ReadLeft == 0 && a.WriteLeft == 0 {
		return false
	}

	if !a.Cache.CanSend(port) {
		return false
	}

	if a.shouldRead() {
		return a.doRead(port)
	}

	return a.doWrite(port)
}

func (a *MemAccessAgent) shouldRead() bool {
	if a.ReadLeft == 0 {
		return false
	}

	if a.WriteLeft == 0 {
		return true
	}

	return a.rng.Float64() > 0.5
}

func (a *MemAccessAgent) lineAddress(addr uint64) uint64 {
	return addr / a.blockSize * a.blockSize
}

func (a *MemAccessAgent) randomAddress() uint64 {
	return a.rng.Uint64() % a.MaxAddress
}

func (a *MemAccessAgent) shadowLine(line uint64) []byte {
	data, ok := a.shadow[line]
	if !ok {
		data = make([]byte, a.blockSize)
		a.shadow[line] = data
	}

	return data
}

// lineHasWrite tells if any port waits for a write to the line.
func (a *MemAccessAgent) lineHasWrite(line uint64) bool {
	for _, reqs := range a.pending {
		if req, ok := reqs[line]; ok && req.pkt.IsWrite {
			return true
		}
	}

	return false
}

func (a *MemAccessAgent) lineHasRequest(line uint64) bool {
	for _, reqs := range a.pending {
		if _, ok := reqs[line]; ok {
			return true
		}
	}

	return false
}

// doRead issues a read. Port 0 fetches instructions sequentially when
// instruction fetch is enabled; the other ports load and prefetch data at
// random addresses.
func (a *MemAccessAgent) doRead(port uint32) bool {
	isFetch := a.FetchFromPort0 && port == 0

	addr := a.randomAddress()
	if isFetch {
		addr = a.pc
	}

	line := a.lineAddress(addr)

	if _, busy := a.pending[port][line]; busy || a.lineHasWrite(line) {
		return false
	}

	typ := packet.DataLoad
	switch {
	case isFetch:
		typ = packet.InstLoad
	case a.rng.Intn(8) == 0:
		typ = packet.DataPrefetch
	}

	pkt := packet.Packet{
		Address:   addr,
		Data:      make([]byte, a.blockSize),
		Type:      typ,
		PortID:    port,
		Valid:     true,
		Cacheable: a.rng.Float64() >= a.NonCacheableChance,
	}

	if !a.send(pkt, append([]byte(nil), a.shadowLine(line)...), true) {
		return false
	}

	if isFetch {
		a.pc = (a.pc + a.fetchWidth) % a.MaxAddress
	}

	a.ReadLeft--

	return true
}

func (a *MemAccessAgent) doWrite(port uint32) bool {
	if a.FetchFromPort0 && port == 0 {
		return false
	}

	addr := a.randomAddress()
	line := a.lineAddress(addr)

	if a.lineHasRequest(line) {
		return false
	}

	pkt := packet.Packet{
		Address:   addr,
		Data:      make([]byte, a.blockSize),
		Type:      packet.DataRFO,
		PortID:    port,
		Valid:     true,
		IsWrite:   true,
		Cacheable: a.rng.Float64() >= a.NonCacheableChance,
	}
	a.rng.Read(pkt.Data)

	if a.rng.Intn(8) == 0 {
		pkt.Type = packet.DataWriteback
	} else {
		pkt.ByteMask = a.randomMask(addr - line)
	}

	shadow := a.shadowLine(line)
	updated := append([]byte(nil), shadow...)

	for i, dirty := range a.writtenBytes(pkt, addr-line) {
		if dirty {
			updated[i] = pkt.Data[i]
		}
	}

	// A non-cacheable write that misses echoes its own data, so only
	// cacheable writes are checked.
	if !a.send(pkt, updated, pkt.Cacheable) {
		return false
	}

	copy(shadow, updated)
	a.WriteLeft--

	return true
}

func (a *MemAccessAgent) randomMask(offset uint64) uint64 {
	bits := int(a.blockSize - offset)
	if bits > a.maskWidth {
		bits = a.maskWidth
	}

	if bits > 63 {
		bits = 63
	}

	mask := a.rng.Uint64() & (uint64(1)<<uint(bits) - 1)
	if mask == 0 {
		mask = 1
	}

	return mask
}

func (a *MemAccessAgent) writtenBytes(pkt packet.Packet, offset uint64) []bool {
	written := make([]bool, a.blockSize)

	if pkt.Type == packet.DataWriteback && pkt.ByteMask == 0 {
		for i := range written {
			written[i] = true
		}

		return written
	}

	for i := uint64(0); i < 64 && offset+i < a.blockSize; i++ {
		if pkt.ByteMask&(uint64(1)<<i) != 0 {
			written[offset+i] = true
		}
	}

	return written
}

func (a *MemAccessAgent) send(
	pkt packet.Packet,
	expected []byte,
	check bool,
) bool {
	if err := a.Cache.Send(pkt); err != nil {
		return false
	}

	line := a.lineAddress(pkt.Address)
	a.pending[pkt.PortID][line] = &pendingReq{
		pkt:      pkt,
		expected: expected,
		check:    check,
	}

	if dumpLog {
		log.Printf("%d, agent, send, %s\n", a.CurrentTime(), pkt)
	}

	return true
}
