// Package bufpool provides a tiered buffer pool for IPC message payloads —
// the "flexible allocator" referenced by spec.md §4.5/§9 for TP assemblers
// that are not configured to use the deterministic monotonic arena
// (internal/ipc/arena). transport.AllocateMessage also draws receive
// buffers from it; ConnectionMessageHandler does not, and allocates each
// receive buffer with make.
//
// Grounded in the teacher's pkg/bufpool/bufpool.go tiering scheme.
package bufpool

import "sync"

// Default buffer size classes.
const (
	DefaultSmallSize  = 4 << 10  // 4KB: control-only messages (Subscribe/Ack/NAck)
	DefaultMediumSize = 64 << 10 // 64KB: typical request/response payloads
	DefaultLargeSize  = 1 << 20  // 1MB: large TP-reassembled payloads
)

// Pool manages a set of byte slice pools organized by size class.
type Pool struct {
	small      sync.Pool
	medium     sync.Pool
	large      sync.Pool
	smallSize  int
	mediumSize int
	largeSize  int
}

// Config holds configuration for creating a custom buffer pool.
type Config struct {
	SmallSize  int
	MediumSize int
	LargeSize  int
}

// DefaultConfig returns the default pool configuration.
func DefaultConfig() Config {
	return Config{
		SmallSize:  DefaultSmallSize,
		MediumSize: DefaultMediumSize,
		LargeSize:  DefaultLargeSize,
	}
}

// NewPool creates a new buffer pool with the given configuration.
// If cfg is nil, default values are used.
func NewPool(cfg *Config) *Pool {
	if cfg == nil {
		defaultCfg := DefaultConfig()
		cfg = &defaultCfg
	}
	if cfg.SmallSize <= 0 {
		cfg.SmallSize = DefaultSmallSize
	}
	if cfg.MediumSize <= 0 {
		cfg.MediumSize = DefaultMediumSize
	}
	if cfg.LargeSize <= 0 {
		cfg.LargeSize = DefaultLargeSize
	}

	p := &Pool{
		smallSize:  cfg.SmallSize,
		mediumSize: cfg.MediumSize,
		largeSize:  cfg.LargeSize,
	}
	p.small = sync.Pool{New: func() any { buf := make([]byte, p.smallSize); return &buf }}
	p.medium = sync.Pool{New: func() any { buf := make([]byte, p.mediumSize); return &buf }}
	p.large = sync.Pool{New: func() any { buf := make([]byte, p.largeSize); return &buf }}
	return p
}

// Get returns a byte slice of exactly the requested size (spec.md I5: "the
// completed size must match the allocated size"), backed by a pooled buffer
// when size fits a tier.
func (p *Pool) Get(size int) []byte {
	var bufPtr *[]byte
	switch {
	case size <= p.smallSize:
		bufPtr = p.small.Get().(*[]byte)
	case size <= p.mediumSize:
		bufPtr = p.medium.Get().(*[]byte)
	case size <= p.largeSize:
		bufPtr = p.large.Get().(*[]byte)
	default:
		return make([]byte, size)
	}
	buf := *bufPtr
	return buf[:size]
}

// Put returns a buffer to the pool for reuse. Buffers not obtained from Get
// (wrong capacity) are silently dropped for the GC to collect.
func (p *Pool) Put(buf []byte) {
	if buf == nil {
		return
	}
	switch cap(buf) {
	case p.smallSize:
		full := buf[:cap(buf)]
		p.small.Put(&full)
	case p.mediumSize:
		full := buf[:cap(buf)]
		p.medium.Put(&full)
	case p.largeSize:
		full := buf[:cap(buf)]
		p.large.Put(&full)
	}
}

var globalPool = NewPool(nil)

// Get returns a byte slice of exactly the requested size from the global pool.
func Get(size int) []byte { return globalPool.Get(size) }

// Put returns a buffer to the global pool.
func Put(buf []byte) { globalPool.Put(buf) }

// GetUint32 is a convenience wrapper for wire lengths, which arrive as uint32.
func GetUint32(size uint32) []byte { return globalPool.Get(int(size)) }
