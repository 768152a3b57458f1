package addressing

import (
	"math/rand"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/unicache/config"
)

var _ = Describe("Decoder", func() {
	var (
		cfg config.Config
		d   Decoder
	)

	BeforeEach(func() {
		cfg = config.MustNew(config.DefaultParams(config.Production))
		d = NewDecoder(cfg)
	})

	It("should split an address", func() {
		addr := uint64(0x1234_5678)

		tag, index, offset := d.Decompose(addr)

		Expect(offset).To(Equal(uint64(0x38)))
		Expect(index).To(Equal(uint64(0x159)))
		Expect(tag).To(Equal(uint64(0x1234_5678 >> 15)))
	})

	It("should be a bijection", func() {
		r := rand.New(rand.NewSource(1))

		for i := 0; i < 1000; i++ {
			addr := r.Uint64()

			tag, index, offset := d.Decompose(addr)

			Expect(d.Compose(tag, index, offset)).To(Equal(addr))
			Expect(offset).To(BeNumerically("<", cfg.BlockSize()))
			Expect(index).To(BeNumerically("<", cfg.NumSets()))
		}
	})

	It("should compute the line address and offset", func() {
		Expect(d.LineAddress(0x10ff)).To(Equal(uint64(0x10c0)))
		Expect(d.Offset(0x10ff)).To(Equal(uint64(0x3f)))
	})

	It("should map every set to its own bank", func() {
		Expect(d.BankOf(0)).To(Equal(0))
		Expect(d.BankOf(64)).To(Equal(1))
		Expect(d.BankOf(64 * 512)).To(Equal(0))
	})

	Context("narrow addresses", func() {
		BeforeEach(func() {
			p := config.DefaultParams(config.Simulation)
			p.CPUDataBits = 32
			cfg = config.MustNew(p)
			d = NewDecoder(cfg)
		})

		It("should drop bits above the data width", func() {
			tag, index, offset := d.Decompose(0xff_0000_0005)

			Expect(offset).To(Equal(uint64(1)))
			Expect(index).To(Equal(uint64(1)))
			Expect(tag).To(Equal(uint64(0)))
			Expect(d.LineAddress(0xff_0000_0005)).To(Equal(uint64(4)))
		})
	})
})
