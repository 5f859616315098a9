// Package tp implements the SOME/IP-TP reassembly engine (spec.md §4.5,
// component C11): per-flow segmented-message assembly keyed by the
// transport tuple, with a configurable deterministic (monotonic arena) or
// flexible (bufpool) allocation policy, and cancellation on a competing
// non-segmented message with the same logical identity.
package tp

import (
	"sort"
	"sync"

	"github.com/marmos91/ara-ipcbinding/internal/ipc/arena"
	"github.com/marmos91/ara-ipcbinding/internal/ipc/bufpool"
	"github.com/marmos91/ara-ipcbinding/internal/metrics"
)

// TpHeaderSize is the on-wire size of the TP segment header (spec.md §6:
// "TP segment header: 32 bits [offset:28 | reserved:3 | more:1]").
const TpHeaderSize = 4

// TpHeader is the 32-bit SOME/IP-TP segment header. Offset is expressed in
// bytes after decoding (the wire field is in units of 16 bytes).
type TpHeader struct {
	OffsetBytes uint32
	More        bool
}

// DecodeTpHeader parses the 4-byte TP header from the front of data.
func DecodeTpHeader(data []byte) (TpHeader, []byte, bool) {
	if len(data) < TpHeaderSize {
		return TpHeader{}, nil, false
	}
	raw := uint32(data[0])<<24 | uint32(data[1])<<16 | uint32(data[2])<<8 | uint32(data[3])
	offsetUnits := raw >> 4
	more := raw&0x1 != 0
	return TpHeader{OffsetBytes: offsetUnits * 16, More: more}, data[TpHeaderSize:], true
}

// EncodeTpHeader writes the wire form of h.
func EncodeTpHeader(h TpHeader) []byte {
	units := h.OffsetBytes / 16
	raw := units << 4
	if h.More {
		raw |= 0x1
	}
	return []byte{byte(raw >> 24), byte(raw >> 16), byte(raw >> 8), byte(raw)}
}

// byteRange is a half-open [start, end) span of bytes already written into
// an Assembler's buffer.
type byteRange struct{ start, end uint32 }

// Assembler holds the reassembly state for one in-progress segmented
// message (spec.md §3: "buffer, next-expected offset, received-segment
// set, and creation-time allocator choice").
type Assembler struct {
	mu       sync.Mutex
	maxSize  uint32
	buf      []byte
	ranges   []byteRange
	closed   bool
	deterministic bool
	arenaBuf *arena.Arena // non-nil iff deterministic
	metrics  metrics.BindingMetrics
}

// newAssembler creates an Assembler with maxSize as its configured cap. If
// arenaPool is non-nil, the assembler's backing buffer is carved from it
// (the deterministic policy); otherwise it grows via bufpool (flexible). m
// may be nil, disabling metrics collection.
func newAssembler(maxSize uint32, arenaPool *arena.Arena, m metrics.BindingMetrics) *Assembler {
	return &Assembler{maxSize: maxSize, deterministic: arenaPool != nil, arenaBuf: arenaPool, metrics: m}
}

// Result is what Accept returns once a segment has been processed.
type Result int

const (
	// Pending means the segment was accepted but the message is not yet
	// complete.
	Pending Result = iota
	// Complete means this segment was the last one (more == false); Accept
	// also returns the reassembled payload.
	Complete
	// Dropped means the segment was rejected (exceeds max size, or the
	// assembler was already closed/canceled); the partial state is cleared.
	Dropped
)

// Accept implements the acceptance algorithm of spec.md §4.5.
func (a *Assembler) Accept(hdr TpHeader, payload []byte) (Result, []byte) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed {
		a.recordOutcome(Dropped)
		return Dropped, nil
	}

	end := hdr.OffsetBytes + uint32(len(payload))
	if end > a.maxSize {
		a.cancelLocked()
		a.recordOutcome(Dropped)
		return Dropped, nil
	}

	// Non-final segments (more=true) must be 16-byte aligned in both offset
	// and length; only the final segment may be sub-16-aligned (spec.md
	// §4.5 step 3).
	if hdr.More {
		if hdr.OffsetBytes%16 != 0 || len(payload)%16 != 0 {
			a.cancelLocked()
			a.recordOutcome(Dropped)
			return Dropped, nil
		}
	}

	if !a.ensureCapacityLocked(end) {
		a.cancelLocked()
		a.recordOutcome(Dropped)
		return Dropped, nil
	}
	copy(a.buf[hdr.OffsetBytes:end], payload)
	a.mergeRangeLocked(byteRange{start: hdr.OffsetBytes, end: end})

	if hdr.More {
		a.recordOutcome(Pending)
		return Pending, nil
	}

	a.closed = true
	total := a.buf[:end]
	a.recordOutcome(Complete)
	return Complete, total
}

// recordOutcome reports one segment-acceptance outcome to metrics, if
// configured.
func (a *Assembler) recordOutcome(r Result) {
	if a.metrics == nil {
		return
	}
	switch r {
	case Pending:
		a.metrics.RecordTPSegmentAccepted("pending")
	case Complete:
		a.metrics.RecordTPSegmentAccepted("complete")
	case Dropped:
		a.metrics.RecordTPSegmentAccepted("dropped")
	}
}

// ensureCapacityLocked guarantees a.buf has at least size bytes of
// addressable, zeroed capacity. For the deterministic policy the entire
// maxSize backing array is carved from the arena in one Reserve call on
// first use and never grown again — growing incrementally via append would
// silently fall back to the Go runtime heap once the slice's capacity is
// exceeded, defeating the "never falls back to the global heap" contract
// (spec.md §4.5 Allocator contract). The flexible policy grows through
// bufpool, copying forward what was already written.
func (a *Assembler) ensureCapacityLocked(size uint32) bool {
	if a.deterministic {
		if a.buf == nil {
			reserved, err := a.arenaBuf.Reserve(int(a.maxSize))
			if err != nil {
				// Exhaustion of the deterministic buffer is an error
				// surfaced to the caller, never an abort (spec.md §4.5
				// Allocator contract).
				if a.metrics != nil {
					a.metrics.RecordTPAllocatorExhausted()
				}
				return false
			}
			a.buf = reserved
		}
		return uint32(len(a.buf)) >= size
	}
	if uint32(len(a.buf)) >= size {
		return true
	}
	grown := bufpool.Get(int(size))
	copy(grown, a.buf)
	if a.buf != nil {
		bufpool.Put(a.buf)
	}
	a.buf = grown
	return true
}

// mergeRangeLocked inserts r into the sorted, non-overlapping received-range
// set, coalescing adjacent/overlapping ranges.
func (a *Assembler) mergeRangeLocked(r byteRange) {
	a.ranges = append(a.ranges, r)
	sort.Slice(a.ranges, func(i, j int) bool { return a.ranges[i].start < a.ranges[j].start })

	merged := a.ranges[:0]
	for _, cur := range a.ranges {
		if len(merged) > 0 && cur.start <= merged[len(merged)-1].end {
			if cur.end > merged[len(merged)-1].end {
				merged[len(merged)-1].end = cur.end
			}
			continue
		}
		merged = append(merged, cur)
	}
	a.ranges = merged
}

// IsContiguousCover reports whether the received ranges form a single
// contiguous [0, total) cover — the shape spec.md's I-TP-monotonic testable
// property demands for any successful reassembly.
func (a *Assembler) IsContiguousCover(total uint32) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.ranges) == 1 && a.ranges[0].start == 0 && a.ranges[0].end == total
}

// cancelLocked clears this assembler's partial state (spec.md I6/§4.5:
// cancellation on overflow or a competing non-TP message).
func (a *Assembler) cancelLocked() {
	if a.deterministic {
		// Deterministic buffers are never individually freed back to the
		// arena (bump allocator, no free); only Arena.Reset reclaims them,
		// and nothing in this repository calls it.
		a.buf = nil
	} else if a.buf != nil {
		bufpool.Put(a.buf)
		a.buf = nil
	}
	a.ranges = nil
	a.closed = true
}

// Cancel is the externally-triggered cancellation path (spec.md §4.5/§5: a
// competing non-TP message with the same key, or assembler destruction).
func (a *Assembler) Cancel() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.cancelLocked()
}
