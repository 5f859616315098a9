package transport

import (
	"encoding/binary"
	"io"
	"net"
	"sync"
	"sync/atomic"

	"golang.org/x/sys/unix"

	"github.com/marmos91/ara-ipcbinding/internal/ipc/bufpool"
	"github.com/marmos91/ara-ipcbinding/internal/logger"
)

// UnixConnection is the concrete Endpoint realization over a Unix-domain
// stream socket. Messages are length-delimited by a 4-byte big-endian
// prefix — the same record-marking shape the teacher uses for RPC framing,
// minus the "last fragment" bit: SafeIPC messages are never split across
// transport records (segmentation, when it happens, is SOME/IP-TP's job one
// layer up, not the transport's).
type UnixConnection struct {
	conn net.Conn

	peerCred   uint64
	peerLoaded bool

	sendMu   sync.Mutex
	inUse    atomic.Int32
	closed   atomic.Bool
	closeMu  sync.Mutex
	closeErr error
}

// NewUnixConnection wraps an accepted net.Conn as an Endpoint. For a
// *net.UnixConn it captures SO_PEERCRED immediately so GetPeerIdentity
// never blocks on the syscall later; any other net.Conn (such as one end of
// net.Pipe) is framed the same way and reports a zero peer identity.
func NewUnixConnection(c net.Conn) *UnixConnection {
	ep := &UnixConnection{conn: c}
	if uc, ok := c.(*net.UnixConn); ok {
		ep.loadPeerCredentials(uc)
	}
	return ep
}

func (e *UnixConnection) loadPeerCredentials(uc *net.UnixConn) {
	raw, err := uc.SyscallConn()
	if err != nil {
		return
	}
	var cred *unix.Ucred
	ctrlErr := raw.Control(func(fd uintptr) {
		cred, err = unix.GetsockoptUcred(int(fd), unix.SOL_SOCKET, unix.SO_PEERCRED)
	})
	if ctrlErr != nil || err != nil || cred == nil {
		logger.Warn("ipc transport: SO_PEERCRED unavailable", "error", err)
		return
	}
	// Pack pid:uid:gid into the opaque u64 the spec treats as an identity
	// token (spec.md GLOSSARY: "peer credentials: opaque identifier").
	e.peerCred = uint64(uint32(cred.Pid))<<32 | uint64(uint32(cred.Uid))<<16&0xFFFF0000 | uint64(uint32(cred.Gid))&0xFFFF
	e.peerLoaded = true
}

// Send writes iovec as a single length-delimited record. The write runs on a
// new goroutine, so Send always reports SendAsyncPending and completion is
// called from that goroutine once the write has finished (spec.md §4.1
// treats the synchronous/asynchronous split as a transport implementation
// detail the connection layer must tolerate either way).
func (e *UnixConnection) Send(iovec [][]byte, completion func(err error)) (SendStatus, error) {
	if e.closed.Load() {
		return 0, ErrDisconnected
	}
	total := 0
	for _, b := range iovec {
		total += len(b)
	}
	if total > MaxMessageSize {
		return 0, ErrSize
	}

	e.inUse.Add(1)
	go func() {
		defer e.inUse.Add(-1)
		err := e.writeRecord(iovec, total)
		if completion != nil {
			completion(err)
		}
	}()
	return SendAsyncPending, nil
}

func (e *UnixConnection) writeRecord(iovec [][]byte, total int) error {
	e.sendMu.Lock()
	defer e.sendMu.Unlock()

	var prefix [4]byte
	binary.BigEndian.PutUint32(prefix[:], uint32(total))
	if _, err := e.conn.Write(prefix[:]); err != nil {
		return classifyWriteErr(err)
	}
	for _, b := range iovec {
		if len(b) == 0 {
			continue
		}
		if _, err := e.conn.Write(b); err != nil {
			return classifyWriteErr(err)
		}
	}
	return nil
}

func classifyWriteErr(err error) error {
	if err == nil {
		return nil
	}
	if err == io.ErrClosedPipe {
		return ErrDisconnected
	}
	return ErrDisconnected
}

// ReceiveAsync runs a read loop on its own goroutine: it reads the 4-byte
// length prefix, asks onAvailable for a destination buffer sized to match,
// reads the record into it, and calls onCompleted — then re-arms itself,
// matching spec.md §4.1's "ReceiveAsync re-arms itself" contract.
func (e *UnixConnection) ReceiveAsync(onAvailable func(length uint32) []byte, onCompleted func(n int, err error)) error {
	if e.closed.Load() {
		return ErrDisconnected
	}
	e.inUse.Add(1)
	go e.receiveLoop(onAvailable, onCompleted)
	return nil
}

func (e *UnixConnection) receiveLoop(onAvailable func(length uint32) []byte, onCompleted func(n int, err error)) {
	defer e.inUse.Add(-1)
	for {
		var prefix [4]byte
		if _, err := io.ReadFull(e.conn, prefix[:]); err != nil {
			onCompleted(0, mapReadErr(err))
			return
		}
		length := binary.BigEndian.Uint32(prefix[:])
		if length > MaxMessageSize {
			onCompleted(0, ErrSize)
			return
		}
		buf := onAvailable(length)
		if uint32(len(buf)) != length {
			onCompleted(0, ErrProtocolError)
			return
		}
		if length == 0 {
			onCompleted(0, nil)
			continue
		}
		n, err := io.ReadFull(e.conn, buf)
		if err != nil {
			onCompleted(n, mapReadErr(err))
			return
		}
		onCompleted(n, nil)
	}
}

func mapReadErr(err error) error {
	if err == io.EOF || err == io.ErrUnexpectedEOF {
		return ErrDisconnected
	}
	return ErrDisconnected
}

// CheckPeerIntegrityLevel always reports satisfied: plain SO_PEERCRED
// carries no MAC/integrity label, so every peer is QM (spec.md GLOSSARY).
func (e *UnixConnection) CheckPeerIntegrityLevel(_ string) bool {
	return true
}

// GetPeerIdentity returns the packed pid/uid/gid captured at accept time.
func (e *UnixConnection) GetPeerIdentity() uint64 {
	return e.peerCred
}

// Close closes the underlying socket. Idempotent.
func (e *UnixConnection) Close() error {
	e.closeMu.Lock()
	defer e.closeMu.Unlock()
	if e.closed.Swap(true) {
		return e.closeErr
	}
	if e.conn != nil {
		e.closeErr = e.conn.Close()
	}
	return e.closeErr
}

// IsInUse reports whether a send or receive is still in flight.
func (e *UnixConnection) IsInUse() bool {
	return e.inUse.Load() > 0
}

// AllocateMessage is a convenience onAvailable implementation for callers
// that want ReceiveAsync to pull its destination buffers from the shared
// buffer pool instead of a fixed-size arena.
func AllocateMessage(length uint32) []byte {
	return bufpool.Get(int(length))
}
