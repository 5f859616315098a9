package transport

import (
	"fmt"
	"net"
	"os"
	"sync"
	"sync/atomic"

	"github.com/marmos91/ara-ipcbinding/internal/logger"
)

// UnixListener is the concrete Acceptor realization for a SafeIPC local
// endpoint: a Unix-domain-socket listener.
//
// Grounded in the teacher's internal/protocol/portmap/server.go serveTCP
// accept loop, and the other_examples Unix-socket IPC daemon's stale-socket
// removal / 0600 permission pattern.
type UnixListener struct {
	path     string
	listener net.Listener

	mu       sync.Mutex
	pending  bool
	inUse    atomic.Bool
	shutdown chan struct{}
	once     sync.Once
}

// NewUnixListener creates an Acceptor bound to a Unix socket path. Init
// must be called before AcceptAsync.
func NewUnixListener(path string) *UnixListener {
	return &UnixListener{path: path, shutdown: make(chan struct{})}
}

// Init begins listening, removing a stale socket file at path first.
func (l *UnixListener) Init() error {
	if err := os.Remove(l.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("transport: removing stale socket %q: %w", l.path, err)
	}
	ln, err := net.Listen("unix", l.path)
	if err != nil {
		return fmt.Errorf("transport: listen %q: %w", l.path, err)
	}
	if err := os.Chmod(l.path, 0o600); err != nil {
		_ = ln.Close()
		return fmt.Errorf("transport: chmod %q: %w", l.path, err)
	}
	l.listener = ln
	logger.Info("ipc acceptor listening", "path", l.path)
	return nil
}

// AcceptAsync arranges completion to be invoked once with the next accepted
// connection. Only one pending accept is permitted at a time (spec.md §6).
func (l *UnixListener) AcceptAsync(completion func(Endpoint, error)) error {
	l.mu.Lock()
	if l.pending {
		l.mu.Unlock()
		return ErrBusy
	}
	l.pending = true
	l.mu.Unlock()

	l.inUse.Store(true)
	go func() {
		defer l.inUse.Store(false)
		conn, err := l.listener.Accept()
		l.mu.Lock()
		l.pending = false
		l.mu.Unlock()
		if err != nil {
			select {
			case <-l.shutdown:
				completion(nil, ErrDisconnected)
			default:
				completion(nil, err)
			}
			return
		}
		completion(NewUnixConnection(conn), nil)
	}()
	return nil
}

// Close stops listening. Idempotent.
func (l *UnixListener) Close() error {
	var err error
	l.once.Do(func() {
		close(l.shutdown)
		if l.listener != nil {
			err = l.listener.Close()
		}
		_ = os.Remove(l.path)
	})
	return err
}

// IsInUse reports whether an accept is currently pending.
func (l *UnixListener) IsInUse() bool {
	return l.inUse.Load()
}
