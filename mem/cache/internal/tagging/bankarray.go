// Package tagging holds the data and tag storage of the unified cache. Sets
// are spread over independently locked banks.
package tagging

import (
	"fmt"
	"sync"
)

// A Block of a cache is the information that is associated with a cache line
type Block struct {
	Tag      uint64
	SetID    int
	WayID    int
	IsValid  bool
	IsDirty  bool
	IsLocked bool
	Data     []byte
	RRPV     uint8
}

func (b Block) clone() Block {
	c := b
	c.Data = append([]byte(nil), b.Data...)

	return c
}

// A Set is a list of blocks where a certain piece memory can be stored at.
// LRUQueue lists the way ids from the next victim to the most recently used.
type Set struct {
	ID       int
	Blocks   []Block
	LRUQueue []int
}

// A Bank owns a group of sets and serializes the accesses to them.
type Bank struct {
	sync.Mutex

	ID   int
	sets map[int]*Set
}

// NumSets returns the number of sets the bank holds.
func (b *Bank) NumSets() int {
	return len(b.sets)
}

// BankArray is the multi-bank set-associative storage. Set i lives in bank
// i mod numBanks.
type BankArray struct {
	numBanks  int
	numSets   int
	numWays   int
	blockSize int

	banks        []*Bank
	victimFinder VictimFinder
}

// NewBankArray creates an empty bank array.
func NewBankArray(
	numBanks, numSets, numWays, blockSize int,
	victimFinder VictimFinder,
) *BankArray {
	if numBanks <= 0 || numSets <= 0 || numWays <= 0 || blockSize <= 0 {
		panic("bank array dimensions must be positive")
	}

	a := &BankArray{
		numBanks:     numBanks,
		numSets:      numSets,
		numWays:      numWays,
		blockSize:    blockSize,
		victimFinder: victimFinder,
	}

	a.Reset()

	return a
}

// NumBanks returns the number of banks.
func (a *BankArray) NumBanks() int { return a.numBanks }

// NumSets returns the number of sets.
func (a *BankArray) NumSets() int { return a.numSets }

// NumWays returns the associativity.
func (a *BankArray) NumWays() int { return a.numWays }

// BlockSize returns the number of bytes in a block.
func (a *BankArray) BlockSize() int { return a.blockSize }

// TotalSize returns the maximum number of bytes can be stored in the cache
func (a *BankArray) TotalSize() uint64 {
	return uint64(a.numSets) * uint64(a.numWays) * uint64(a.blockSize)
}

// BankOf returns the id of the bank that holds set index.
func (a *BankArray) BankOf(index uint64) int {
	return int(index % uint64(a.numBanks))
}

// Bank returns a bank by id.
func (a *BankArray) Bank(id int) *Bank {
	return a.banks[id]
}

// Reset will mark all the blocks invalid
func (a *BankArray) Reset() {
	a.banks = make([]*Bank, a.numBanks)
	for i := range a.banks {
		a.banks[i] = &Bank{ID: i, sets: make(map[int]*Set)}
	}

	for i := 0; i < a.numSets; i++ {
		set := &Set{ID: i}

		for j := 0; j < a.numWays; j++ {
			set.Blocks = append(set.Blocks, Block{
				SetID: i,
				WayID: j,
				Data:  make([]byte, a.blockSize),
			})
			set.LRUQueue = append(set.LRUQueue, j)
		}

		a.banks[i%a.numBanks].sets[i] = set
	}
}

func (a *BankArray) lockSet(index uint64) (*Bank, *Set) {
	if index >= uint64(a.numSets) {
		panic(fmt.Sprintf("set %d out of range, %d sets", index, a.numSets))
	}

	bank := a.banks[a.BankOf(index)]
	bank.Lock()

	return bank, bank.sets[int(index)]
}

func (a *BankArray) block(set *Set, way int) *Block {
	if way < 0 || way >= a.numWays {
		panic(fmt.Sprintf("way %d out of range, %d ways", way, a.numWays))
	}

	return &set.Blocks[way]
}

// Probe looks for a valid block with the tag in set index.
func (a *BankArray) Probe(tag, index uint64) (way int, hit bool) {
	bank, set := a.lockSet(index)
	defer bank.Unlock()

	for _, b := range set.Blocks {
		if b.IsValid && b.Tag == tag {
			return b.WayID, true
		}
	}

	return -1, false
}

// Read returns a copy of a block.
func (a *BankArray) Read(index uint64, way int) Block {
	bank, set := a.lockSet(index)
	defer bank.Unlock()

	return a.block(set, way).clone()
}

// Update replaces the data of a resident block and sets its dirty bit.
func (a *BankArray) Update(index uint64, way int, data []byte, dirty bool) {
	bank, set := a.lockSet(index)
	defer bank.Unlock()

	b := a.block(set, way)
	if !b.IsValid {
		panic(fmt.Sprintf("updating invalid block %d/%d", index, way))
	}

	a.copyData(b, data)
	b.IsDirty = dirty
}

func (a *BankArray) copyData(b *Block, data []byte) {
	if len(data) != a.blockSize {
		panic(fmt.Sprintf("block data is %d bytes, want %d",
			len(data), a.blockSize))
	}

	copy(b.Data, data)
}

// SelectVictim asks the replacement policy for a way to evict. It fails when
// every way of the set is locked.
func (a *BankArray) SelectVictim(index uint64) (way int, ok bool) {
	bank, set := a.lockSet(index)
	defer bank.Unlock()

	return a.victimFinder.FindVictim(set)
}

// Evict invalidates a block and returns what it held.
func (a *BankArray) Evict(index uint64, way int) (evicted Block, wasDirty bool) {
	bank, set := a.lockSet(index)
	defer bank.Unlock()

	b := a.block(set, way)
	evicted = b.clone()
	wasDirty = b.IsValid && b.IsDirty

	b.IsValid = false
	b.IsDirty = false

	return evicted, wasDirty
}

// Install places a fetched line into a way and releases its lock.
func (a *BankArray) Install(
	index uint64,
	way int,
	tag uint64,
	data []byte,
	dirty bool,
) {
	bank, set := a.lockSet(index)
	defer bank.Unlock()

	b := a.block(set, way)
	a.copyData(b, data)
	b.Tag = tag
	b.IsValid = true
	b.IsDirty = dirty
	b.IsLocked = false

	a.victimFinder.Fill(set, way)
}

// Visit records a hit with the replacement policy.
func (a *BankArray) Visit(index uint64, way int) {
	bank, set := a.lockSet(index)
	defer bank.Unlock()

	a.block(set, way)
	a.victimFinder.Visit(set, way)
}

// Lock prevents a way from being chosen as a victim.
func (a *BankArray) Lock(index uint64, way int) {
	bank, set := a.lockSet(index)
	defer bank.Unlock()

	a.block(set, way).IsLocked = true
}

// Unlock releases a way.
func (a *BankArray) Unlock(index uint64, way int) {
	bank, set := a.lockSet(index)
	defer bank.Unlock()

	a.block(set, way).IsLocked = false
}

// DirtyBlocks returns copies of all valid dirty blocks, ordered by set and
// way.
func (a *BankArray) DirtyBlocks() []Block {
	var blocks []Block

	for i := 0; i < a.numSets; i++ {
		bank, set := a.lockSet(uint64(i))

		for _, b := range set.Blocks {
			if b.IsValid && b.IsDirty {
				blocks = append(blocks, b.clone())
			}
		}

		bank.Unlock()
	}

	return blocks
}
