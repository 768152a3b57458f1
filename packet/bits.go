package packet

import (
	"fmt"
	"strings"
)

// Bits is a fixed-width bit vector. Bit 0 is the least significant bit of
// the first word.
type Bits struct {
	width int
	words []uint64
}

// NewBits creates an all-zero vector of the given width.
func NewBits(width int) Bits {
	if width < 0 {
		panic("negative bit width")
	}

	return Bits{
		width: width,
		words: make([]uint64, (width+63)/64),
	}
}

// Width returns the number of bits in the vector.
func (b Bits) Width() int {
	return b.width
}

func lowMask(width int) uint64 {
	if width >= 64 {
		return ^uint64(0)
	}

	return (uint64(1) << uint(width)) - 1
}

func (b Bits) mustContain(lo, width int) {
	if width < 0 || width > 64 {
		panic(fmt.Sprintf("field width %d out of range", width))
	}

	if lo < 0 || lo+width > b.width {
		panic(fmt.Sprintf("field [%d, %d) outside a %d-bit vector",
			lo, lo+width, b.width))
	}
}

// Field returns bits [lo, lo+width). Width must not exceed 64.
func (b Bits) Field(lo, width int) uint64 {
	b.mustContain(lo, width)

	if width == 0 {
		return 0
	}

	w := lo / 64
	s := uint(lo % 64)

	v := b.words[w] >> s
	if s != 0 && int(s)+width > 64 {
		v |= b.words[w+1] << (64 - s)
	}

	return v & lowMask(width)
}

// SetField overwrites bits [lo, lo+width) with the low bits of v.
func (b *Bits) SetField(lo, width int, v uint64) {
	b.mustContain(lo, width)

	if width == 0 {
		return
	}

	m := lowMask(width)
	v &= m

	w := lo / 64
	s := uint(lo % 64)

	b.words[w] = b.words[w]&^(m<<s) | v<<s
	if s != 0 && int(s)+width > 64 {
		shift := 64 - s
		b.words[w+1] = b.words[w+1]&^(m>>shift) | v>>shift
	}
}

// Bit reports whether bit i is set.
func (b Bits) Bit(i int) bool {
	return b.Field(i, 1) == 1
}

// Bytes returns n bytes starting at bit lo, lowest byte first.
func (b Bits) Bytes(lo, n int) []byte {
	out := make([]byte, n)
	for i := range out {
		out[i] = byte(b.Field(lo+8*i, 8))
	}

	return out
}

// SetBytes writes data starting at bit lo, lowest byte first.
func (b *Bits) SetBytes(lo int, data []byte) {
	for i, d := range data {
		b.SetField(lo+8*i, 8, uint64(d))
	}
}

// Equal tells if two vectors have the same width and contents.
func (b Bits) Equal(o Bits) bool {
	if b.width != o.width {
		return false
	}

	for i := range b.words {
		if b.words[i] != o.words[i] {
			return false
		}
	}

	return true
}

// String formats the vector as a sized hex literal, most significant digit
// first, e.g. 12'h0ab.
func (b Bits) String() string {
	sb := strings.Builder{}
	fmt.Fprintf(&sb, "%d'h", b.width)

	digits := (b.width + 3) / 4
	if digits == 0 {
		sb.WriteByte('0')
		return sb.String()
	}

	for d := digits - 1; d >= 0; d-- {
		width := 4
		if 4*d+width > b.width {
			width = b.width - 4*d
		}

		fmt.Fprintf(&sb, "%x", b.Field(4*d, width))
	}

	return sb.String()
}
