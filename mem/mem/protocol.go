// Package mem defines the protocol between the cache and the memory below
// it, and the storage that memory models keep their data in.
package mem

import (
	"fmt"

	"github.com/sarchlab/unicache/sim"
)

// MsgMeta carries the information every message has.
type MsgMeta struct {
	ID       string
	SendTime sim.Cycle
}

// A Msg is a request to or a response from a memory.
type Msg interface {
	Meta() *MsgMeta
}

// A ReadReq is a request sent to a memory controller to fetch data
type ReadReq struct {
	MsgMeta

	Address        uint64
	AccessByteSize uint64
}

// Meta returns the message meta.
func (r *ReadReq) Meta() *MsgMeta {
	return &r.MsgMeta
}

func (r *ReadReq) String() string {
	return fmt.Sprintf("read %#x+%d", r.Address, r.AccessByteSize)
}

// A WriteReq is a request sent to a memory controller to write data. Only
// the bytes set in DirtyMask are written; a nil mask writes all of Data.
type WriteReq struct {
	MsgMeta

	Address   uint64
	Data      []byte
	DirtyMask []bool
}

// Meta returns the message meta.
func (r *WriteReq) Meta() *MsgMeta {
	return &r.MsgMeta
}

func (r *WriteReq) String() string {
	return fmt.Sprintf("write %#x+%d", r.Address, len(r.Data))
}

// DataReadyRsp returns the data of a ReadReq.
type DataReadyRsp struct {
	MsgMeta

	RespondTo string
	Data      []byte
}

// Meta returns the message meta.
func (r *DataReadyRsp) Meta() *MsgMeta {
	return &r.MsgMeta
}

// WriteDoneRsp acknowledges a WriteReq.
type WriteDoneRsp struct {
	MsgMeta

	RespondTo string
}

// Meta returns the message meta.
func (r *WriteDoneRsp) Meta() *MsgMeta {
	return &r.MsgMeta
}

// ReadReqBuilder can build read requests.
type ReadReqBuilder struct {
	sendTime          sim.Cycle
	address, byteSize uint64
}

// WithSendTime sets the send time of the request to build.
func (b ReadReqBuilder) WithSendTime(t sim.Cycle) ReadReqBuilder {
	b.sendTime = t
	return b
}

// WithAddress sets the address of the request to build.
func (b ReadReqBuilder) WithAddress(address uint64) ReadReqBuilder {
	b.address = address
	return b
}

// WithByteSize sets the byte size of the request to build.
func (b ReadReqBuilder) WithByteSize(byteSize uint64) ReadReqBuilder {
	b.byteSize = byteSize
	return b
}

// Build creates a new ReadReq
func (b ReadReqBuilder) Build() *ReadReq {
	r := &ReadReq{}
	r.ID = sim.GetIDGenerator().Generate()
	r.SendTime = b.sendTime
	r.Address = b.address
	r.AccessByteSize = b.byteSize

	return r
}

// WriteReqBuilder can build write requests.
type WriteReqBuilder struct {
	sendTime  sim.Cycle
	address   uint64
	data      []byte
	dirtyMask []bool
}

// WithSendTime sets the send time of the request to build.
func (b WriteReqBuilder) WithSendTime(t sim.Cycle) WriteReqBuilder {
	b.sendTime = t
	return b
}

// WithAddress sets the address of the request to build.
func (b WriteReqBuilder) WithAddress(address uint64) WriteReqBuilder {
	b.address = address
	return b
}

// WithData sets the data of the request to build.
func (b WriteReqBuilder) WithData(data []byte) WriteReqBuilder {
	b.data = data
	return b
}

// WithDirtyMask sets the dirty mask of the request to build.
func (b WriteReqBuilder) WithDirtyMask(mask []bool) WriteReqBuilder {
	b.dirtyMask = mask
	return b
}

// Build creates a new WriteReq
func (b WriteReqBuilder) Build() *WriteReq {
	r := &WriteReq{}
	r.ID = sim.GetIDGenerator().Generate()
	r.SendTime = b.sendTime
	r.Address = b.address
	r.Data = b.data
	r.DirtyMask = b.dirtyMask

	return r
}

// DataReadyRspBuilder can build data ready responds.
type DataReadyRspBuilder struct {
	sendTime sim.Cycle
	rspTo    string
	data     []byte
}

// WithSendTime sets the send time of the message to build.
func (b DataReadyRspBuilder) WithSendTime(t sim.Cycle) DataReadyRspBuilder {
	b.sendTime = t
	return b
}

// WithRspTo sets ID of the request that the respond to build is replying to.
func (b DataReadyRspBuilder) WithRspTo(id string) DataReadyRspBuilder {
	b.rspTo = id
	return b
}

// WithData sets the data of the message to build.
func (b DataReadyRspBuilder) WithData(data []byte) DataReadyRspBuilder {
	b.data = data
	return b
}

// Build creates a new DataReadyRsp
func (b DataReadyRspBuilder) Build() *DataReadyRsp {
	r := &DataReadyRsp{}
	r.ID = sim.GetIDGenerator().Generate()
	r.SendTime = b.sendTime
	r.RespondTo = b.rspTo
	r.Data = b.data

	return r
}

// WriteDoneRspBuilder can build write done responds.
type WriteDoneRspBuilder struct {
	sendTime sim.Cycle
	rspTo    string
}

// WithSendTime sets the send time of the message to build.
func (b WriteDoneRspBuilder) WithSendTime(t sim.Cycle) WriteDoneRspBuilder {
	b.sendTime = t
	return b
}

// WithRspTo sets ID of the request that the respond to build is replying to.
func (b WriteDoneRspBuilder) WithRspTo(id string) WriteDoneRspBuilder {
	b.rspTo = id
	return b
}

// Build creates a new WriteDoneRsp
func (b WriteDoneRspBuilder) Build() *WriteDoneRsp {
	r := &WriteDoneRsp{}
	r.ID = sim.GetIDGenerator().Generate()
	r.SendTime = b.sendTime
	r.RespondTo = b.rspTo

	return r
}

// LowModule is a memory below the cache. Send fails with
// queueing.ErrCapacityExceeded when the module cannot take the request this
// cycle. Responses are collected with Retrieve.
type LowModule interface {
	sim.Named
	CanAccept() bool
	Send(req Msg) error
	Retrieve() (Msg, bool)
}
