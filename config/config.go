package config

import (
	"errors"
	"fmt"
	"io"
	"text/tabwriter"
)

// TypeWidth is the number of bits of the request type field.
const TypeWidth = 4

// A Field is a contiguous bit range [Lo, Hi] of a wider word.
type Field struct {
	Name  string
	Lo    int
	Hi    int
	Width int
}

func makeField(name string, lo, width int) Field {
	return Field{Name: name, Lo: lo, Hi: lo + width - 1, Width: width}
}

// Layout is the bit layout of a cache packet, from the low bits up.
type Layout struct {
	Address   Field
	Data      Field
	Type      Field
	ByteMask  Field
	PortID    Field
	Valid     Field
	IsWrite   Field
	Cacheable Field

	Width int
}

// Fields lists the packet fields from the low bits up.
func (l Layout) Fields() []Field {
	return []Field{
		l.Address, l.Data, l.Type, l.ByteMask,
		l.PortID, l.Valid, l.IsWrite, l.Cacheable,
	}
}

// Config is the validated, immutable configuration of a unified cache. It is
// a value type; copies are safe to share.
type Config struct {
	params Params

	blockSize uint64
	numSets   int
	numBanks  int

	offset Field
	index  Field
	tag    Field

	layout Layout
}

// New validates the parameters and computes the derived constants.
func New(p Params) (Config, error) {
	if err := validate(p); err != nil {
		return Config{}, err
	}

	c := Config{params: p}
	c.blockSize = p.resolvedBlockSize()
	c.numSets = int(p.CacheSizeBytes / uint64(p.Associativity) / c.blockSize)

	c.numBanks = p.NumBanks
	if c.numBanks == 0 {
		c.numBanks = c.numSets
	}

	offsetBits := Log2(c.blockSize)
	indexBits := Log2(uint64(c.numSets))
	tagBits := p.CPUDataBits - offsetBits - indexBits

	c.offset = makeField("offset", 0, offsetBits)
	c.index = makeField("index", offsetBits, indexBits)
	c.tag = makeField("tag", offsetBits+indexBits, tagBits)

	c.layout = buildLayout(
		p.CPUDataBits,
		int(c.blockSize*8),
		CeilLog2(p.CacheSizeBytes),
		CeilLog2(uint64(p.MaxNumInputPorts))+1,
	)

	return c, nil
}

// MustNew is New for start-up code, where an invalid configuration is fatal.
func MustNew(p Params) Config {
	c, err := New(p)
	if err != nil {
		panic(err)
	}

	return c
}

func buildLayout(addrWidth, dataWidth, maskWidth, portWidth int) Layout {
	l := Layout{}
	pos := 0

	next := func(name string, width int) Field {
		f := makeField(name, pos, width)
		pos += width

		return f
	}

	l.Address = next("address", addrWidth)
	l.Data = next("data", dataWidth)
	l.Type = next("type", TypeWidth)
	l.ByteMask = next("byte_mask", maskWidth)
	l.PortID = next("port_id", portWidth)
	l.Valid = next("valid", 1)
	l.IsWrite = next("is_write", 1)
	l.Cacheable = next("cacheable", 1)
	l.Width = pos

	return l
}

func validate(p Params) error {
	var errs []error

	check := func(ok bool, param string, value any, reason string) {
		if !ok {
			errs = append(errs, &Error{Param: param, Value: value, Reason: reason})
		}
	}

	blockSize := p.resolvedBlockSize()

	check(p.Mode == Production || p.Mode == Simulation,
		"Mode", p.Mode, "is not a build mode")
	check(IsPowerOfTwo(p.CacheSizeBytes),
		"CacheSizeBytes", p.CacheSizeBytes, "must be a power of 2")
	check(p.Associativity > 0 && IsPowerOfTwo(uint64(p.Associativity)),
		"Associativity", p.Associativity, "must be a power of 2")
	check(IsPowerOfTwo(blockSize),
		"BlockSizeBytes", blockSize, "must be a power of 2")
	check(p.InputQueueSize > 0 && IsPowerOfTwo(uint64(p.InputQueueSize)),
		"InputQueueSize", p.InputQueueSize, "must be a power of 2")
	check(p.WritebackBufferSize > 0 &&
		IsPowerOfTwo(uint64(p.WritebackBufferSize)),
		"WritebackBufferSize", p.WritebackBufferSize, "must be a power of 2")
	check(p.ReturnQueueSize > 0 && IsPowerOfTwo(uint64(p.ReturnQueueSize)),
		"ReturnQueueSize", p.ReturnQueueSize, "must be a power of 2")
	check(p.MissBufferSize > 0,
		"MissBufferSize", p.MissBufferSize, "must be positive")
	check(p.MaxNumInputPorts > 0,
		"MaxNumInputPorts", p.MaxNumInputPorts, "must be positive")
	check(p.CPUDataBits > 0 && p.CPUDataBits <= 64 && p.CPUDataBits%8 == 0,
		"CPUDataBits", p.CPUDataBits, "must be a multiple of 8 in [8, 64]")
	check(p.CPUInstBits > 0 && p.CPUInstBits%8 == 0,
		"CPUInstBits", p.CPUInstBits, "must be a positive multiple of 8")
	check(p.CPUInstBits > 0 && p.FetchWidthBits > 0 &&
		p.FetchWidthBits%p.CPUInstBits == 0,
		"FetchWidthBits", p.FetchWidthBits,
		"must be a positive multiple of CPUInstBits")

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	lineBytes := uint64(p.Associativity) * blockSize
	if p.CacheSizeBytes < lineBytes {
		return &Error{
			Param:  "CacheSizeBytes",
			Value:  p.CacheSizeBytes,
			Reason: fmt.Sprintf("must hold at least one set (%d bytes)", lineBytes),
		}
	}

	numSets := int(p.CacheSizeBytes / lineBytes)
	if p.NumBanks != 0 && p.NumBanks < numSets {
		return &Error{
			Param:  "NumBanks",
			Value:  p.NumBanks,
			Reason: fmt.Sprintf("must not be smaller than the number of sets (%d)", numSets),
		}
	}

	if p.NumBanks < 0 {
		return &Error{Param: "NumBanks", Value: p.NumBanks, Reason: "must not be negative"}
	}

	addrBits := Log2(blockSize) + Log2(uint64(numSets))
	if addrBits > p.CPUDataBits {
		return &Error{
			Param:  "CPUDataBits",
			Value:  p.CPUDataBits,
			Reason: fmt.Sprintf("cannot hold %d offset and index bits", addrBits),
		}
	}

	return nil
}

// Params returns the parameters the configuration was built from.
func (c Config) Params() Params { return c.params }

// Mode returns the build mode.
func (c Config) Mode() BuildMode { return c.params.Mode }

// CacheSize returns the total capacity in bytes.
func (c Config) CacheSize() uint64 { return c.params.CacheSizeBytes }

// Associativity returns the number of ways per set.
func (c Config) Associativity() int { return c.params.Associativity }

// BlockSize returns the block size in bytes.
func (c Config) BlockSize() uint64 { return c.blockSize }

// BlockSizeBits returns the block size in bits.
func (c Config) BlockSizeBits() int { return int(c.blockSize * 8) }

// NumSets returns the number of sets.
func (c Config) NumSets() int { return c.numSets }

// NumBanks returns the number of banks.
func (c Config) NumBanks() int { return c.numBanks }

// InputQueueSize returns the depth of each port's input queue.
func (c Config) InputQueueSize() int { return c.params.InputQueueSize }

// WritebackBufferSize returns the depth of the writeback buffer.
func (c Config) WritebackBufferSize() int { return c.params.WritebackBufferSize }

// MissBufferSize returns the number of MSHR entries.
func (c Config) MissBufferSize() int { return c.params.MissBufferSize }

// ReturnQueueSize returns the depth of the return queue.
func (c Config) ReturnQueueSize() int { return c.params.ReturnQueueSize }

// MaxNumInputPorts returns the number of input ports.
func (c Config) MaxNumInputPorts() int { return c.params.MaxNumInputPorts }

// DataWidth returns the address width in bits.
func (c Config) DataWidth() int { return c.params.CPUDataBits }

// CPUDataBytes returns the CPU data word size in bytes.
func (c Config) CPUDataBytes() int { return c.params.CPUDataBits / 8 }

// CPUInstBytes returns the instruction size in bytes.
func (c Config) CPUInstBytes() int { return c.params.CPUInstBits / 8 }

// FetchWidthBytes returns the number of bytes fetched per cycle.
func (c Config) FetchWidthBytes() int { return c.params.FetchWidthBits / 8 }

// InstsFetchPerCycle returns the number of instructions fetched per cycle.
func (c Config) InstsFetchPerCycle() int {
	return c.params.FetchWidthBits / c.params.CPUInstBits
}

// OffsetField returns the position of the block offset in an address.
func (c Config) OffsetField() Field { return c.offset }

// IndexField returns the position of the set index in an address.
func (c Config) IndexField() Field { return c.index }

// TagField returns the position of the tag in an address.
func (c Config) TagField() Field { return c.tag }

// OffsetBits returns the width of the block offset.
func (c Config) OffsetBits() int { return c.offset.Width }

// IndexBits returns the width of the set index.
func (c Config) IndexBits() int { return c.index.Width }

// TagBits returns the width of the tag.
func (c Config) TagBits() int { return c.tag.Width }

// Layout returns the packet bit layout.
func (c Config) Layout() Layout { return c.layout }

// PacketWidth returns the total number of bits of a packet.
func (c Config) PacketWidth() int { return c.layout.Width }

// WriteLayout prints the derived constants as a table.
func (c Config) WriteLayout(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)

	fmt.Fprintf(tw, "mode\t%s\n", c.Mode())
	fmt.Fprintf(tw, "cache size\t%d B\n", c.CacheSize())
	fmt.Fprintf(tw, "associativity\t%d\n", c.Associativity())
	fmt.Fprintf(tw, "block size\t%d B\n", c.BlockSize())
	fmt.Fprintf(tw, "sets\t%d\n", c.NumSets())
	fmt.Fprintf(tw, "banks\t%d\n", c.NumBanks())
	fmt.Fprintf(tw, "insts fetched per cycle\t%d\n", c.InstsFetchPerCycle())
	fmt.Fprintln(tw)

	fmt.Fprintln(tw, "address field\tlo\thi\twidth")
	for _, f := range []Field{c.offset, c.index, c.tag} {
		fmt.Fprintf(tw, "%s\t%d\t%d\t%d\n", f.Name, f.Lo, f.Hi, f.Width)
	}
	fmt.Fprintln(tw)

	fmt.Fprintln(tw, "packet field\tlo\thi\twidth")
	for _, f := range c.layout.Fields() {
		fmt.Fprintf(tw, "%s\t%d\t%d\t%d\n", f.Name, f.Lo, f.Hi, f.Width)
	}
	fmt.Fprintf(tw, "total\t\t\t%d\n", c.layout.Width)

	return tw.Flush()
}
