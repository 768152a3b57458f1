package tagging

// A VictimFinder decides with block should be evicted. It is called with the
// bank of the set locked.
type VictimFinder interface {
	FindVictim(set *Set) (wayID int, ok bool)
	Visit(set *Set, wayID int)
	Fill(set *Set, wayID int)
}

func findInvalid(set *Set) (int, bool) {
	for _, wayID := range set.LRUQueue {
		block := set.Blocks[wayID]

		if !block.IsValid && !block.IsLocked {
			return wayID, true
		}
	}

	return -1, false
}

func moveToBack(set *Set, wayID int) {
	queue := set.LRUQueue[:0]

	for _, w := range set.LRUQueue {
		if w != wayID {
			queue = append(queue, w)
		}
	}

	set.LRUQueue = append(queue, wayID)
}

// LRUVictimFinder evicts the least recently used block to evict
type LRUVictimFinder struct {
}

// NewLRUVictimFinder returns a newly constructed lru evictor
func NewLRUVictimFinder() *LRUVictimFinder {
	e := new(LRUVictimFinder)
	return e
}

// FindVictim returns the least recently used block in a set
func (e *LRUVictimFinder) FindVictim(set *Set) (int, bool) {
	// First try evicting an empty block
	if wayID, ok := findInvalid(set); ok {
		return wayID, true
	}

	for _, wayID := range set.LRUQueue {
		if !set.Blocks[wayID].IsLocked {
			return wayID, true
		}
	}

	return -1, false
}

// Visit moves the block to the end of the LRUQueue
func (e *LRUVictimFinder) Visit(set *Set, wayID int) {
	moveToBack(set, wayID)
}

// Fill treats a newly installed block as the most recently used.
func (e *LRUVictimFinder) Fill(set *Set, wayID int) {
	moveToBack(set, wayID)
}

// FIFOVictimFinder evicts the block that was installed first. Hits do not
// change the order.
type FIFOVictimFinder struct {
}

// NewFIFOVictimFinder creates a FIFOVictimFinder.
func NewFIFOVictimFinder() *FIFOVictimFinder {
	return &FIFOVictimFinder{}
}

// FindVictim returns the oldest unlocked block, preferring empty ones.
func (e *FIFOVictimFinder) FindVictim(set *Set) (int, bool) {
	if wayID, ok := findInvalid(set); ok {
		return wayID, true
	}

	for _, wayID := range set.LRUQueue {
		if !set.Blocks[wayID].IsLocked {
			return wayID, true
		}
	}

	return -1, false
}

// Visit does nothing.
func (e *FIFOVictimFinder) Visit(set *Set, wayID int) {}

// Fill moves the block to the end of the insertion order.
func (e *FIFOVictimFinder) Fill(set *Set, wayID int) {
	moveToBack(set, wayID)
}

// RRPV values used by the SRRIP victim finder. The counter is 2 bits wide.
const (
	RRPVMax    uint8 = 3
	RRPVInsert uint8 = 2
	RRPVHit    uint8 = 0
)

// SRRIPVictimFinder implements static re-reference interval prediction. A
// block with RRPVMax is predicted to be re-referenced furthest in the
// future.
type SRRIPVictimFinder struct {
}

// NewSRRIPVictimFinder creates an SRRIPVictimFinder.
func NewSRRIPVictimFinder() *SRRIPVictimFinder {
	return &SRRIPVictimFinder{}
}

// FindVictim returns an unlocked block with RRPVMax, aging the set until one
// exists.
func (e *SRRIPVictimFinder) FindVictim(set *Set) (int, bool) {
	if wayID, ok := findInvalid(set); ok {
		return wayID, true
	}

	for {
		aged := false

		for _, wayID := range set.LRUQueue {
			block := &set.Blocks[wayID]
			if block.IsLocked {
				continue
			}

			if block.RRPV >= RRPVMax {
				return wayID, true
			}
		}

		for i := range set.Blocks {
			block := &set.Blocks[i]
			if block.IsLocked || block.RRPV >= RRPVMax {
				continue
			}

			block.RRPV++
			aged = true
		}

		if !aged {
			return -1, false
		}
	}
}

// Visit protects a block that was hit.
func (e *SRRIPVictimFinder) Visit(set *Set, wayID int) {
	set.Blocks[wayID].RRPV = RRPVHit
}

// Fill inserts a block with a long re-reference prediction.
func (e *SRRIPVictimFinder) Fill(set *Set, wayID int) {
	set.Blocks[wayID].RRPV = RRPVInsert
	moveToBack(set, wayID)
}

// NewVictimFinder returns the policy with the given name: "lru", "fifo" or
// "srrip".
func NewVictimFinder(name string) (VictimFinder, bool) {
	switch name {
	case "", "lru":
		return NewLRUVictimFinder(), true
	case "fifo":
		return NewFIFOVictimFinder(), true
	case "srrip":
		return NewSRRIPVictimFinder(), true
	}

	return nil, false
}
