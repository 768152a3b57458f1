// Package packet defines the request/response packets exchanged with the
// unified cache and their fixed-width bit encoding.
package packet

import (
	"bytes"
	"fmt"
)

// RequestType tells what an L1 wants from the unified cache.
type RequestType uint8

// Request types, with the codes used on the wire.
const (
	DataLoad      RequestType = 0b0001
	DataPrefetch  RequestType = 0b0010
	DataRFO       RequestType = 0b0011
	DataWriteback RequestType = 0b0100
	InstLoad      RequestType = 0b1000
)

// Valid tells if t is one of the enumerated request types.
func (t RequestType) Valid() bool {
	switch t {
	case DataLoad, DataPrefetch, DataRFO, DataWriteback, InstLoad:
		return true
	}

	return false
}

// IsData tells if the request comes from the data side.
func (t RequestType) IsData() bool {
	return t.Valid() && t != InstLoad
}

func (t RequestType) String() string {
	switch t {
	case DataLoad:
		return "DATA_LOAD"
	case DataPrefetch:
		return "DATA_PREFETCH_FROM_L1D"
	case DataRFO:
		return "DATA_RFO"
	case DataWriteback:
		return "DATA_WRITEBACK"
	case InstLoad:
		return "INST_LOAD"
	default:
		return fmt.Sprintf("RequestType(%#04b)", uint8(t))
	}
}

// ParseRequestType converts the names printed by String back.
func ParseRequestType(s string) (RequestType, error) {
	for _, t := range []RequestType{
		DataLoad, DataPrefetch, DataRFO, DataWriteback, InstLoad,
	} {
		if t.String() == s {
			return t, nil
		}
	}

	return 0, fmt.Errorf("%w: unknown request type %q", ErrMalformedPacket, s)
}

// Packet is a request to, or a response from, the unified cache. Data always
// holds one block, and byte j of Data is byte j of the block.
type Packet struct {
	Address   uint64
	Data      []byte
	Type      RequestType
	ByteMask  uint64
	PortID    uint32
	Valid     bool
	IsWrite   bool
	Cacheable bool
}

// Clone returns a copy that does not share Data.
func (p Packet) Clone() Packet {
	c := p
	if p.Data != nil {
		c.Data = append([]byte(nil), p.Data...)
	}

	return c
}

// Equal compares every field.
func (p Packet) Equal(o Packet) bool {
	return p.Address == o.Address &&
		bytes.Equal(p.Data, o.Data) &&
		p.Type == o.Type &&
		p.ByteMask == o.ByteMask &&
		p.PortID == o.PortID &&
		p.Valid == o.Valid &&
		p.IsWrite == o.IsWrite &&
		p.Cacheable == o.Cacheable
}

func (p Packet) String() string {
	return fmt.Sprintf("%s port=%d addr=%#x mask=%#x w=%t c=%t v=%t",
		p.Type, p.PortID, p.Address, p.ByteMask,
		p.IsWrite, p.Cacheable, p.Valid)
}
