package writebuffer

import (
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/unicache/sim/queueing"
)

var _ = Describe("WriteBuffer", func() {
	var (
		wb *WriteBuffer
	)

	BeforeEach(func() {
		wb = New("Cache.WriteBuffer", 4)
	})

	It("should drain in FIFO order", func() {
		for i := 0; i < 4; i++ {
			err := wb.Enqueue(uint64(i*64), []byte{byte(i)}, []bool{true})
			Expect(err).NotTo(HaveOccurred())
		}

		for i := 0; i < 4; i++ {
			e, ok := wb.Drain()
			Expect(ok).To(BeTrue())
			Expect(e.LineAddress).To(Equal(uint64(i * 64)))
			Expect(e.Data).To(Equal([]byte{byte(i)}))
		}

		_, ok := wb.Drain()
		Expect(ok).To(BeFalse())
	})

	It("should reject entries when full", func() {
		for i := 0; i < 4; i++ {
			Expect(wb.Enqueue(uint64(i*64), nil, nil)).To(Succeed())
		}

		Expect(wb.CanEnqueue()).To(BeFalse())

		err := wb.Enqueue(0x1000, nil, nil)
		Expect(errors.Is(err, queueing.ErrCapacityExceeded)).To(BeTrue())
		Expect(wb.Len()).To(Equal(4))
	})

	It("should tell which lines are pending", func() {
		Expect(wb.Enqueue(0x40, nil, nil)).To(Succeed())

		Expect(wb.Contains(0x40)).To(BeTrue())
		Expect(wb.Contains(0x80)).To(BeFalse())

		_, _ = wb.Drain()
		Expect(wb.Contains(0x40)).To(BeFalse())
	})

	It("should copy the data", func() {
		data := []byte{1, 2}
		Expect(wb.Enqueue(0x40, data, []bool{true, false})).To(Succeed())
		data[0] = 9

		e, _ := wb.Peek()
		Expect(e.Data).To(Equal([]byte{1, 2}))
		Expect(e.NumDirtyBytes()).To(Equal(1))
	})
})
