package packet

import (
	"errors"
	"fmt"

	"github.com/sarchlab/unicache/config"
)

// ErrMalformedPacket is wrapped when a packet cannot be represented or
// processed.
var ErrMalformedPacket = errors.New("malformed packet")

// Codec packs packets into the bit layout of a configuration.
type Codec struct {
	layout    config.Layout
	blockSize int
	numPorts  int
}

// NewCodec creates a codec for the configuration.
func NewCodec(cfg config.Config) *Codec {
	return &Codec{
		layout:    cfg.Layout(),
		blockSize: int(cfg.BlockSize()),
		numPorts:  cfg.MaxNumInputPorts(),
	}
}

// Layout returns the bit layout the codec uses.
func (c *Codec) Layout() config.Layout {
	return c.layout
}

func malformed(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrMalformedPacket, fmt.Sprintf(format, args...))
}

// Validate checks that p fits the layout and describes a legal request.
// Valid is not checked; Encode carries invalid packets as well.
func (c *Codec) Validate(p Packet) error {
	l := c.layout

	if p.Address&^lowMask(l.Address.Width) != 0 {
		return malformed("address %#x wider than %d bits",
			p.Address, l.Address.Width)
	}

	if len(p.Data) != c.blockSize {
		return malformed("data is %d bytes, block is %d bytes",
			len(p.Data), c.blockSize)
	}

	if !p.Type.Valid() {
		return malformed("request type %s", p.Type)
	}

	if p.ByteMask&^lowMask(l.ByteMask.Width) != 0 {
		return malformed("byte mask %#x wider than %d bits",
			p.ByteMask, l.ByteMask.Width)
	}

	if uint64(p.PortID)&^lowMask(l.PortID.Width) != 0 {
		return malformed("port id %d wider than %d bits",
			p.PortID, l.PortID.Width)
	}

	if p.IsWrite && p.Type != DataRFO && p.Type != DataWriteback {
		return malformed("%s cannot write", p.Type)
	}

	if p.Type == DataWriteback && !p.IsWrite {
		return malformed("%s must write", p.Type)
	}

	return nil
}

// CheckPort reports whether the port id addresses an existing input port.
func (c *Codec) CheckPort(p Packet) error {
	if int(p.PortID) >= c.numPorts {
		return malformed("port %d, only %d ports", p.PortID, c.numPorts)
	}

	return nil
}

// Encode packs p into a bit vector of the layout's width.
func (c *Codec) Encode(p Packet) (Bits, error) {
	if err := c.Validate(p); err != nil {
		return Bits{}, err
	}

	l := c.layout
	b := NewBits(l.Width)

	b.SetField(l.Address.Lo, l.Address.Width, p.Address)
	b.SetBytes(l.Data.Lo, p.Data)
	b.SetField(l.Type.Lo, l.Type.Width, uint64(p.Type))
	b.SetField(l.ByteMask.Lo, l.ByteMask.Width, p.ByteMask)
	b.SetField(l.PortID.Lo, l.PortID.Width, uint64(p.PortID))
	b.SetField(l.Valid.Lo, 1, boolBit(p.Valid))
	b.SetField(l.IsWrite.Lo, 1, boolBit(p.IsWrite))
	b.SetField(l.Cacheable.Lo, 1, boolBit(p.Cacheable))

	return b, nil
}

// Decode unpacks a bit vector of Layout().Width bits. Every bit pattern of
// that width decodes; use Validate to check the result.
func (c *Codec) Decode(b Bits) (Packet, error) {
	l := c.layout

	if b.Width() != l.Width {
		return Packet{}, malformed("decoding %d bits with a %d-bit layout",
			b.Width(), l.Width)
	}

	return Packet{
		Address:   b.Field(l.Address.Lo, l.Address.Width),
		Data:      b.Bytes(l.Data.Lo, l.Data.Width/8),
		Type:      RequestType(b.Field(l.Type.Lo, l.Type.Width)),
		ByteMask:  b.Field(l.ByteMask.Lo, l.ByteMask.Width),
		PortID:    uint32(b.Field(l.PortID.Lo, l.PortID.Width)),
		Valid:     b.Bit(l.Valid.Lo),
		IsWrite:   b.Bit(l.IsWrite.Lo),
		Cacheable: b.Bit(l.Cacheable.Lo),
	}, nil
}

func boolBit(v bool) uint64 {
	if v {
		return 1
	}

	return 0
}
