package tracing

import (
	"log"

	"github.com/sarchlab/unicache/mem/cache/unified"
	"github.com/sarchlab/unicache/packet"
	"github.com/sarchlab/unicache/sim"
)

// PacketLogger is a hook that writes every cache event into a logger.
type PacketLogger struct {
	sim.LogHookBase
}

// NewPacketLogger returns a new PacketLogger which will write into the
// logger.
func NewPacketLogger(logger *log.Logger) *PacketLogger {
	h := new(PacketLogger)
	h.Logger = logger

	return h
}

// Func writes the event information into the logger
func (h *PacketLogger) Func(ctx sim.HookCtx) {
	domain := ""
	if named, ok := ctx.Domain.(sim.Named); ok {
		domain = named.Name()
	}

	switch item := ctx.Item.(type) {
	case *unified.Transaction:
		h.logTransaction(ctx, domain, item)
	case unified.Eviction:
		h.Printf("%d,%s,%s,%#x,set=%d,way=%d,dirty=%t",
			ctx.Now, domain, ctx.Pos.Name,
			item.LineAddress, item.SetID, item.WayID, item.Dirty)
	case unified.Fill:
		h.Printf("%d,%s,%s,%#x,installed=%t,waiters=%d",
			ctx.Now, domain, ctx.Pos.Name,
			item.LineAddress, item.Installed, item.NumWaiters)
	}
}

func (h *PacketLogger) logTransaction(
	ctx sim.HookCtx,
	domain string,
	trans *unified.Transaction,
) {
	switch detail := ctx.Detail.(type) {
	case packet.Packet:
		h.Printf("%d,%s,%s,%s,%s", ctx.Now, domain, ctx.Pos.Name,
			trans.ID, detail)
	case unified.StallReason:
		h.Printf("%d,%s,%s,%s,%s,%s", ctx.Now, domain, ctx.Pos.Name,
			trans.ID, trans.Packet, detail)
	default:
		h.Printf("%d,%s,%s,%s,%s", ctx.Now, domain, ctx.Pos.Name,
			trans.ID, trans.Packet)
	}
}
