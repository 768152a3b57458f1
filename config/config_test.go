package config

import (
	"bytes"
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Config", func() {
	Context("production defaults", func() {
		var c Config

		BeforeEach(func() {
			c = MustNew(DefaultParams(Production))
		})

		It("should derive the set count and address fields", func() {
			Expect(c.BlockSize()).To(Equal(uint64(64)))
			Expect(c.NumSets()).To(Equal(512))
			Expect(c.NumBanks()).To(Equal(512))
			Expect(c.OffsetBits()).To(Equal(6))
			Expect(c.IndexBits()).To(Equal(9))
			Expect(c.TagBits()).To(Equal(64 - 15))
		})

		It("should cover the whole address with its fields", func() {
			Expect(c.OffsetBits() + c.IndexBits() + c.TagBits()).
				To(Equal(c.DataWidth()))
			Expect(c.IndexField().Lo).To(Equal(c.OffsetField().Hi + 1))
			Expect(c.TagField().Lo).To(Equal(c.IndexField().Hi + 1))
			Expect(c.TagField().Hi).To(Equal(63))
		})

		It("should lay out the packet contiguously", func() {
			l := c.Layout()
			pos := 0

			for _, f := range l.Fields() {
				Expect(f.Lo).To(Equal(pos), f.Name)
				Expect(f.Hi - f.Lo + 1).To(Equal(f.Width))
				pos += f.Width
			}

			Expect(pos).To(Equal(l.Width))
			Expect(c.PacketWidth()).To(Equal(605))
		})

		It("should size the packet fields", func() {
			l := c.Layout()

			Expect(l.Address.Width).To(Equal(64))
			Expect(l.Data.Width).To(Equal(512))
			Expect(l.Type.Width).To(Equal(4))
			Expect(l.ByteMask.Width).To(Equal(17))
			Expect(l.PortID.Width).To(Equal(5))
			Expect(l.Valid.Width).To(Equal(1))
		})

		It("should derive the fetch constants", func() {
			Expect(c.CPUDataBytes()).To(Equal(8))
			Expect(c.CPUInstBytes()).To(Equal(4))
			Expect(c.FetchWidthBytes()).To(Equal(16))
			Expect(c.InstsFetchPerCycle()).To(Equal(4))
		})
	})

	Context("simulation defaults", func() {
		It("should use 4-byte blocks", func() {
			c := MustNew(DefaultParams(Simulation))

			Expect(c.BlockSize()).To(Equal(uint64(4)))
			Expect(c.NumSets()).To(Equal(8192))
			Expect(c.OffsetBits()).To(Equal(2))
			Expect(c.IndexBits()).To(Equal(13))
			Expect(c.Layout().Data.Width).To(Equal(32))
			Expect(c.PacketWidth()).To(Equal(125))
		})
	})

	Context("invalid parameters", func() {
		var p Params

		BeforeEach(func() {
			p = DefaultParams(Production)
		})

		It("should reject a cache size that is not a power of 2", func() {
			p.CacheSizeBytes = 100 * 1024

			_, err := New(p)

			Expect(errors.Is(err, ErrInvalidConfig)).To(BeTrue())
			Expect(err.Error()).To(ContainSubstring("CacheSizeBytes"))
		})

		It("should reject fewer banks than sets", func() {
			p.NumBanks = 4

			_, err := New(p)

			Expect(errors.Is(err, ErrInvalidConfig)).To(BeTrue())

			var cfgErr *Error
			Expect(errors.As(err, &cfgErr)).To(BeTrue())
			Expect(cfgErr.Param).To(Equal("NumBanks"))
		})

		It("should accept more banks than sets", func() {
			p.NumBanks = 1024

			c, err := New(p)

			Expect(err).NotTo(HaveOccurred())
			Expect(c.NumBanks()).To(Equal(1024))
		})

		It("should report every violated constraint", func() {
			p.Associativity = 3
			p.ReturnQueueSize = 10
			p.MissBufferSize = 0

			_, err := New(p)

			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("Associativity"))
			Expect(err.Error()).To(ContainSubstring("ReturnQueueSize"))
			Expect(err.Error()).To(ContainSubstring("MissBufferSize"))
		})

		It("should reject a cache smaller than one set", func() {
			p.CacheSizeBytes = 128

			_, err := New(p)

			Expect(errors.Is(err, ErrInvalidConfig)).To(BeTrue())
		})

		It("should panic in MustNew", func() {
			p.InputQueueSize = 3

			Expect(func() { MustNew(p) }).To(Panic())
		})
	})

	It("should print the layout table", func() {
		c := MustNew(DefaultParams(Production))
		buf := new(bytes.Buffer)

		Expect(c.WriteLayout(buf)).To(Succeed())
		Expect(buf.String()).To(ContainSubstring("byte_mask"))
		Expect(buf.String()).To(ContainSubstring("605"))
	})
})
