package mshr_test

import (
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/unicache/mem/cache/internal/mshr"
	"github.com/sarchlab/unicache/sim/queueing"
)

var _ = Describe("MSHR", func() {
	var (
		m *mshr.MSHR[string]
	)

	BeforeEach(func() {
		m = mshr.New[string](4)
	})

	It("should allocate an entry", func() {
		e, merged, err := m.AllocateOrMerge(0x40, "a")

		Expect(err).NotTo(HaveOccurred())
		Expect(merged).To(BeFalse())
		Expect(e.ID).NotTo(BeEmpty())
		Expect(e.HasReservedWay()).To(BeFalse())

		found, ok := m.Lookup(0x40)
		Expect(ok).To(BeTrue())
		Expect(found).To(BeIdenticalTo(e))

		byID, ok := m.Get(e.ID)
		Expect(ok).To(BeTrue())
		Expect(byID).To(BeIdenticalTo(e))
	})

	It("should merge without growing", func() {
		first, _, _ := m.AllocateOrMerge(0x40, "a")
		second, merged, err := m.AllocateOrMerge(0x40, "b")
		_, _, _ = m.AllocateOrMerge(0x40, "c")

		Expect(err).NotTo(HaveOccurred())
		Expect(merged).To(BeTrue())
		Expect(second).To(BeIdenticalTo(first))
		Expect(m.Len()).To(Equal(1))
		Expect(first.Waiters).To(Equal([]string{"a", "b", "c"}))
	})

	It("should reject a new line when full", func() {
		for i := 0; i < 4; i++ {
			_, _, err := m.AllocateOrMerge(uint64(i*64), "x")
			Expect(err).NotTo(HaveOccurred())
		}

		Expect(m.IsFull()).To(BeTrue())

		_, _, err := m.AllocateOrMerge(0x1000, "y")
		Expect(errors.Is(err, queueing.ErrCapacityExceeded)).To(BeTrue())

		_, merged, err := m.AllocateOrMerge(0x40, "z")
		Expect(err).NotTo(HaveOccurred())
		Expect(merged).To(BeTrue())
	})

	It("should accept again after a resolve", func() {
		var first *mshr.Entry[string]
		for i := 0; i < 4; i++ {
			e, _, _ := m.AllocateOrMerge(uint64(i*64), "x")
			if i == 0 {
				first = e
			}
		}

		resolved, err := m.Resolve(first.ID, []byte{1, 2, 3, 4})

		Expect(err).NotTo(HaveOccurred())
		Expect(resolved.Data).To(Equal([]byte{1, 2, 3, 4}))
		Expect(m.Len()).To(Equal(3))

		_, ok := m.Lookup(0)
		Expect(ok).To(BeFalse())

		_, _, err = m.AllocateOrMerge(0x1000, "y")
		Expect(err).NotTo(HaveOccurred())
	})

	It("should return the waiters in arrival order on resolve", func() {
		e, _, _ := m.AllocateOrMerge(0x80, "1")
		_, _, _ = m.AllocateOrMerge(0x80, "2")
		_, _, _ = m.AllocateOrMerge(0x80, "3")

		resolved, err := m.Resolve(e.ID, nil)

		Expect(err).NotTo(HaveOccurred())
		Expect(resolved.Waiters).To(Equal([]string{"1", "2", "3"}))
	})

	It("should fail to resolve an unknown entry", func() {
		_, err := m.Resolve("nope", nil)

		Expect(errors.Is(err, mshr.ErrEntryNotFound)).To(BeTrue())
	})

	It("should list entries in allocation order and reset", func() {
		_, _, _ = m.AllocateOrMerge(0x80, "a")
		_, _, _ = m.AllocateOrMerge(0x40, "b")

		entries := m.Entries()
		Expect(entries).To(HaveLen(2))
		Expect(entries[0].LineAddress).To(Equal(uint64(0x80)))
		Expect(entries[1].LineAddress).To(Equal(uint64(0x40)))

		m.Reset()
		Expect(m.Len()).To(Equal(0))
		Expect(m.Capacity()).To(Equal(4))
	})
})
