// Package addressing splits addresses into tag, set index and block offset.
package addressing

import "github.com/sarchlab/unicache/config"

// Decoder decomposes addresses with the bit positions of a configuration.
type Decoder struct {
	addrMask   uint64
	offsetBits uint
	indexBits  uint
	numBanks   uint64
}

// NewDecoder creates a decoder for the configuration.
func NewDecoder(cfg config.Config) Decoder {
	addrMask := ^uint64(0)
	if cfg.DataWidth() < 64 {
		addrMask = (uint64(1) << uint(cfg.DataWidth())) - 1
	}

	return Decoder{
		addrMask:   addrMask,
		offsetBits: uint(cfg.OffsetBits()),
		indexBits:  uint(cfg.IndexBits()),
		numBanks:   uint64(cfg.NumBanks()),
	}
}

// Decompose returns the tag, set index and block offset of addr. Bits above
// the data width are dropped.
func (d Decoder) Decompose(addr uint64) (tag, index, offset uint64) {
	addr &= d.addrMask

	offset = addr & ((uint64(1) << d.offsetBits) - 1)
	index = (addr >> d.offsetBits) & ((uint64(1) << d.indexBits) - 1)
	tag = addr >> (d.offsetBits + d.indexBits)

	return tag, index, offset
}

// Compose is the inverse of Decompose.
func (d Decoder) Compose(tag, index, offset uint64) uint64 {
	addr := tag<<(d.offsetBits+d.indexBits) |
		index<<d.offsetBits |
		offset

	return addr & d.addrMask
}

// LineAddress clears the block offset.
func (d Decoder) LineAddress(addr uint64) uint64 {
	return addr & d.addrMask &^ ((uint64(1) << d.offsetBits) - 1)
}

// Offset returns the position of addr within its block.
func (d Decoder) Offset(addr uint64) uint64 {
	_, _, offset := d.Decompose(addr)
	return offset
}

// BankOf returns the bank that holds the set of addr.
func (d Decoder) BankOf(addr uint64) int {
	_, index, _ := d.Decompose(addr)
	return int(index % d.numBanks)
}
