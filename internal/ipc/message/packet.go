package message

import (
	"sync/atomic"

	"github.com/marmos91/ara-ipcbinding/internal/ipc/bufpool"
)

// RefBuffer is a small reference-counted wrapper around a pooled byte
// slice, so the same payload can be held by the send queue and the trace
// monitor simultaneously (spec.md §3: "payload is a reference-counted
// immutable byte buffer") without a data race on release. It stands in for
// the C++ shared_ptr<const Buffer> the original design uses — idiomatic Go
// has no shared_ptr, so release-on-last-drop is made explicit via Release
// rather than left to the garbage collector, because the backing array is
// pool-owned and must be returned exactly once.
type RefBuffer struct {
	data    []byte
	pooled  bool
	count   atomic.Int32
}

// NewRefBuffer wraps data with an initial reference count of one. pooled
// indicates whether data came from bufpool (and should be returned to it on
// final release) or is a plain allocation (e.g. from the deterministic
// arena, or literal test data).
func NewRefBuffer(data []byte, pooled bool) *RefBuffer {
	b := &RefBuffer{data: data, pooled: pooled}
	b.count.Store(1)
	return b
}

// Bytes returns a const view of the payload. Callers must not retain it past
// Release.
func (b *RefBuffer) Bytes() []byte {
	if b == nil {
		return nil
	}
	return b.data
}

// Len returns the payload length.
func (b *RefBuffer) Len() int {
	if b == nil {
		return 0
	}
	return len(b.data)
}

// Retain increments the reference count. Call once per additional holder
// (e.g. the trace monitor capturing a TX record while the send queue still
// holds the packet).
func (b *RefBuffer) Retain() *RefBuffer {
	if b == nil {
		return nil
	}
	b.count.Add(1)
	return b
}

// Release decrements the reference count and returns the backing array to
// bufpool when it reaches zero and the buffer was pool-allocated.
func (b *RefBuffer) Release() {
	if b == nil {
		return
	}
	if b.count.Add(-1) == 0 && b.pooled {
		bufpool.Put(b.data)
	}
}

// IpcPacket is the (header, shared-owned payload buffer) pair described in
// spec.md §3. VariantHeader carries the already-encoded, variant-specific
// header bytes (RequestHeader, NotificationHeader, ...); this package keeps
// it as raw bytes rather than an interface so the send path never needs a
// type switch to write it to the wire.
type IpcPacket struct {
	Header        GenericMessageHeader
	VariantHeader []byte
	Payload       *RefBuffer
}

// GetPacket yields a const view of the fully framed message: generic
// header, then variant header, then payload. This mirrors the original's
// GetPacket() accessor, which returns a const view rather than a copy.
func (p *IpcPacket) GetPacket() [][]byte {
	parts := make([][]byte, 0, 3)
	parts = append(parts, p.Header.Encode())
	if len(p.VariantHeader) > 0 {
		parts = append(parts, p.VariantHeader)
	}
	if p.Payload != nil && p.Payload.Len() > 0 {
		parts = append(parts, p.Payload.Bytes())
	}
	return parts
}

// TotalLen returns the combined length of all three parts, i.e. the number
// of bytes this packet occupies on the wire.
func (p *IpcPacket) TotalLen() int {
	n := HeaderSize + len(p.VariantHeader)
	if p.Payload != nil {
		n += p.Payload.Len()
	}
	return n
}

// Release drops this packet's reference to its payload buffer. Called
// exactly once by whichever code path retires the packet (successful send
// completion, or drop-on-error).
func (p *IpcPacket) Release() {
	if p.Payload != nil {
		p.Payload.Release()
	}
}
