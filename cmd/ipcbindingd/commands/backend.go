package commands

import (
	"github.com/marmos91/ara-ipcbinding/internal/ipc/message"
	"github.com/marmos91/ara-ipcbinding/internal/ipc/router"
	"github.com/marmos91/ara-ipcbinding/internal/logger"
)

// unroutedBackend is the BackendRouter registered for every configured
// instance until a generated service stub takes its place: it answers every
// request with ReturnNotOk and every subscription with a NAck, so the
// daemon is a complete, connectable binding even with no application logic
// wired in yet.
type unroutedBackend struct {
	id message.ServiceInstanceIdentifier
}

func (b *unroutedBackend) OnRequestReceived(hdr message.RequestHeader, r router.Remote) {
	logger.Debug("unrouted request", "instance", b.id.String(), "method_id", hdr.MethodID)
	r.Reply.SendErrorResponse(hdr, message.ReturnNotOk)
}

func (b *unroutedBackend) OnRequestNoReturnReceived(hdr message.RequestHeader, r router.Remote) {
	logger.Debug("unrouted fire-and-forget request", "instance", b.id.String(), "method_id", hdr.MethodID)
}

func (b *unroutedBackend) OnSubscribeEventReceived(hdr message.SubscribeHeader, connectionID uint32, reply router.ReplySender) {
	logger.Debug("unrouted subscribe", "instance", b.id.String(), "event_id", hdr.EventID)
	reply.SendSubscribeNAck(hdr)
}

func (b *unroutedBackend) OnUnsubscribeEventReceived(hdr message.SubscribeHeader, connectionID uint32) {}

func (b *unroutedBackend) StartOffering() {
	logger.Info("offering service instance", "instance", b.id.String())
}

func (b *unroutedBackend) StopOffering() {
	logger.Info("stopped offering service instance", "instance", b.id.String())
}

func (b *unroutedBackend) RemoveConnection(connectionID uint32) {}
