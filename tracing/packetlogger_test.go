package tracing

import (
	"bytes"
	"log"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/unicache/mem/cache/unified"
)

var _ = Describe("PacketLogger", func() {
	It("should log every cache event", func() {
		buf := new(bytes.Buffer)
		domain := newTestDomain()
		domain.AcceptHook(NewPacketLogger(log.New(buf, "", 0)))

		trans := newTestTransaction("t1")
		runMissWithStalls(domain, trans)
		fire(domain, unified.HookPosEvict,
			31, unified.Eviction{LineAddress: 0x80, Dirty: true}, nil)

		lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
		Expect(lines).To(HaveLen(7))
		Expect(string(lines[0])).To(HavePrefix("10,Cache,Cache Accept,t1,DATA_LOAD"))
		Expect(string(lines[1])).To(HaveSuffix("mshr_full"))
		Expect(string(lines[4])).To(ContainSubstring("installed=false"))
		Expect(string(lines[6])).To(ContainSubstring("0x80"))
		Expect(string(lines[6])).To(ContainSubstring("dirty=true"))
	})
})
