package mem

import (
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Storage", func() {
	var (
		storage *Storage
	)

	BeforeEach(func() {
		storage = NewStorage(1 << 20)
	})

	It("should read zeros from untouched memory", func() {
		data, err := storage.Read(0x100, 8)

		Expect(err).NotTo(HaveOccurred())
		Expect(data).To(Equal(make([]byte, 8)))
	})

	It("should read what was written across units", func() {
		data := []byte{1, 2, 3, 4, 5, 6, 7, 8}

		Expect(storage.Write(4092, data)).To(Succeed())

		read, err := storage.Read(4092, 8)
		Expect(err).NotTo(HaveOccurred())
		Expect(read).To(Equal(data))
	})

	It("should only write masked bytes", func() {
		Expect(storage.Write(0, []byte{1, 1, 1, 1})).To(Succeed())

		err := storage.WriteMasked(0, []byte{9, 9, 9, 9},
			[]bool{true, false, false, true})
		Expect(err).NotTo(HaveOccurred())

		read, _ := storage.Read(0, 4)
		Expect(read).To(Equal([]byte{9, 1, 1, 9}))
	})

	It("should reject a mask of the wrong length", func() {
		err := storage.WriteMasked(0, []byte{1, 2}, []bool{true})

		Expect(err).To(HaveOccurred())
	})

	It("should reject accesses beyond the capacity", func() {
		_, err := storage.Read(1<<20-4, 8)
		Expect(errors.Is(err, ErrAddressOutOfRange)).To(BeTrue())

		err = storage.Write(1<<20, []byte{1})
		Expect(errors.Is(err, ErrAddressOutOfRange)).To(BeTrue())
	})

	It("should cover the whole address space without a capacity", func() {
		storage = NewStorage(0)

		Expect(storage.Write(0xffff_ffff_ffff_fff0, []byte{7})).To(Succeed())

		read, err := storage.Read(0xffff_ffff_ffff_fff0, 1)
		Expect(err).NotTo(HaveOccurred())
		Expect(read).To(Equal([]byte{7}))
	})
})

var _ = Describe("Request builders", func() {
	It("should give every message a unique id", func() {
		read := ReadReqBuilder{}.
			WithAddress(0x40).
			WithByteSize(64).
			Build()
		write := WriteReqBuilder{}.
			WithAddress(0x80).
			WithData([]byte{1}).
			WithDirtyMask([]bool{true}).
			Build()
		rsp := DataReadyRspBuilder{}.
			WithRspTo(read.ID).
			WithData([]byte{2}).
			Build()

		Expect(read.ID).NotTo(Equal(write.ID))
		Expect(rsp.ID).NotTo(Equal(read.ID))
		Expect(rsp.RespondTo).To(Equal(read.ID))
		Expect(read.AccessByteSize).To(Equal(uint64(64)))
		Expect(write.DirtyMask).To(Equal([]bool{true}))
	})
})
