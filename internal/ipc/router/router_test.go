package router

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/marmos91/ara-ipcbinding/internal/ipc/message"
)

type fakeBackend struct {
	offering      bool
	removed       []uint32
	subscribers   map[uint32]bool
	requestsSeen  int
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{subscribers: make(map[uint32]bool)}
}

func (b *fakeBackend) OnRequestReceived(message.RequestHeader, Remote)         { b.requestsSeen++ }
func (b *fakeBackend) OnRequestNoReturnReceived(message.RequestHeader, Remote) {}
func (b *fakeBackend) OnSubscribeEventReceived(hdr message.SubscribeHeader, connectionID uint32, reply ReplySender) {
	b.subscribers[connectionID] = true
}
func (b *fakeBackend) OnUnsubscribeEventReceived(hdr message.SubscribeHeader, connectionID uint32) {
	delete(b.subscribers, connectionID)
}
func (b *fakeBackend) StartOffering() { b.offering = true }
func (b *fakeBackend) StopOffering()  { b.offering = false }
func (b *fakeBackend) RemoveConnection(connectionID uint32) {
	b.removed = append(b.removed, connectionID)
	delete(b.subscribers, connectionID)
}

func TestRouter_RegisterAndGet(t *testing.T) {
	rt := New()
	id := message.ServiceInstanceIdentifier{ServiceID: 0x1234, InstanceID: 1, MajorVer: 1}
	backend := newFakeBackend()

	rt.Register(id, backend)
	require.True(t, backend.offering)

	got, ok := rt.Get(id)
	require.True(t, ok)
	require.Same(t, backend, got)
}

func TestRouter_GetUnregisteredReturnsNotFoundNoAbort(t *testing.T) {
	rt := New()
	_, ok := rt.Get(message.ServiceInstanceIdentifier{ServiceID: 0xFFFF})
	require.False(t, ok)
}

func TestRouter_DeregisterStopsOffering(t *testing.T) {
	rt := New()
	id := message.ServiceInstanceIdentifier{ServiceID: 0x1234}
	backend := newFakeBackend()
	rt.Register(id, backend)

	rt.Deregister(id)
	require.False(t, backend.offering)
	_, ok := rt.Get(id)
	require.False(t, ok)
}

func TestRouter_RemoveConnectionScrubsEveryBackend(t *testing.T) {
	rt := New()
	idA := message.ServiceInstanceIdentifier{ServiceID: 1}
	idB := message.ServiceInstanceIdentifier{ServiceID: 2}
	backendA := newFakeBackend()
	backendB := newFakeBackend()
	rt.Register(idA, backendA)
	rt.Register(idB, backendB)

	backendA.subscribers[42] = true
	backendB.subscribers[42] = true

	rt.RemoveConnection(42)

	require.Contains(t, backendA.removed, uint32(42))
	require.Contains(t, backendB.removed, uint32(42))
	require.NotContains(t, backendA.subscribers, uint32(42))
	require.NotContains(t, backendB.subscribers, uint32(42))
}
