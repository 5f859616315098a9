package transport

import (
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestUnixListener_AcceptAsync(t *testing.T) {
	sockPath := filepath.Join(t.TempDir(), "ara-ipc.sock")

	l := NewUnixListener(sockPath)
	if err := l.Init(); err != nil {
		t.Fatalf("Init: %v", err)
	}
	defer func() { _ = l.Close() }()

	accepted := make(chan Endpoint, 1)
	acceptErrs := make(chan error, 1)
	if err := l.AcceptAsync(func(ep Endpoint, err error) {
		if err != nil {
			acceptErrs <- err
			return
		}
		accepted <- ep
	}); err != nil {
		t.Fatalf("AcceptAsync: %v", err)
	}

	conn, err := net.Dial("unix", sockPath)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer func() { _ = conn.Close() }()

	select {
	case ep := <-accepted:
		defer func() { _ = ep.Close() }()
	case err := <-acceptErrs:
		t.Fatalf("accept failed: %v", err)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for accept")
	}
}

func TestUnixListener_RejectsConcurrentAccept(t *testing.T) {
	sockPath := filepath.Join(t.TempDir(), "ara-ipc.sock")

	l := NewUnixListener(sockPath)
	if err := l.Init(); err != nil {
		t.Fatalf("Init: %v", err)
	}
	defer func() { _ = l.Close() }()

	done := make(chan struct{})
	if err := l.AcceptAsync(func(Endpoint, error) { close(done) }); err != nil {
		t.Fatalf("first AcceptAsync: %v", err)
	}

	if err := l.AcceptAsync(func(Endpoint, error) {}); err != ErrBusy {
		t.Fatalf("expected ErrBusy for concurrent accept, got %v", err)
	}

	conn, err := net.Dial("unix", sockPath)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	_ = conn.Close()
	<-done
}

func TestUnixListener_RemovesStaleSocket(t *testing.T) {
	sockPath := filepath.Join(t.TempDir(), "ara-ipc.sock")

	if err := os.WriteFile(sockPath, []byte("stale"), 0o600); err != nil {
		t.Fatalf("seeding stale file: %v", err)
	}

	l := NewUnixListener(sockPath)
	if err := l.Init(); err != nil {
		t.Fatalf("Init should clean up stale socket file: %v", err)
	}
	defer func() { _ = l.Close() }()

	info, err := os.Stat(sockPath)
	if err != nil {
		t.Fatalf("expected socket file to exist: %v", err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Errorf("expected socket permissions 0600, got %v", info.Mode().Perm())
	}
}
