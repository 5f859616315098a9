// Package message defines the wire types for the ara::com SafeIPC protocol:
// the GenericMessageHeader shared by every variant, the eight variant
// headers, and the shared-owned payload envelope (IpcPacket) that is
// simultaneously queued for send and handed to the trace monitor.
//
// All integers are little-endian, matching this daemon's native host order
// (spec.md §6 leaves the byte order to the transport's native order; this
// package pins it down consistently across every wire structure).
package message

import (
	"encoding/binary"
	"fmt"
)

// MessageType discriminates the eight IPC message variants. The TP bit
// (TPFlag) may be OR'd into any request/notification-shaped type to mark a
// SOME/IP-TP segment; non-segmented traffic never sets it.
type MessageType uint8

const (
	TypeRequest           MessageType = 0x00
	TypeRequestNoReturn   MessageType = 0x01
	TypeNotification      MessageType = 0x02
	TypeResponse          MessageType = 0x80
	TypeErrorResponse     MessageType = 0x81
	TypeApplicationError  MessageType = 0x82
	TypeSubscribeEvent    MessageType = 0x10
	TypeSubscribeEventAck MessageType = 0x11
	TypeSubscribeEventNAck MessageType = 0x12
	TypeUnsubscribeEvent  MessageType = 0x13

	// TPFlag marks a segmented SOME/IP-TP message. It is orthogonal to the
	// base type: a segment of a Request carries TypeRequest|TPFlag.
	TPFlag MessageType = 0x20
)

// IsTP reports whether the TP segmentation bit is set.
func (t MessageType) IsTP() bool { return t&TPFlag != 0 }

// WithoutTP clears the TP bit, yielding the base (reassembled) type.
func (t MessageType) WithoutTP() MessageType { return t &^ TPFlag }

// WithTP sets the TP bit.
func (t MessageType) WithTP() MessageType { return t | TPFlag }

func (t MessageType) String() string {
	base := t.WithoutTP()
	var name string
	switch base {
	case TypeRequest:
		name = "Request"
	case TypeRequestNoReturn:
		name = "RequestNoReturn"
	case TypeNotification:
		name = "Notification"
	case TypeResponse:
		name = "Response"
	case TypeErrorResponse:
		name = "ErrorResponse"
	case TypeApplicationError:
		name = "ApplicationError"
	case TypeSubscribeEvent:
		name = "SubscribeEvent"
	case TypeSubscribeEventAck:
		name = "SubscribeEventAck"
	case TypeSubscribeEventNAck:
		name = "SubscribeEventNAck"
	case TypeUnsubscribeEvent:
		name = "UnsubscribeEvent"
	default:
		name = fmt.Sprintf("Unknown(0x%02x)", uint8(base))
	}
	if t.IsTP() {
		return name + "+TP"
	}
	return name
}

// ReturnCode mirrors the SOME/IP E_OK / E_NOT_OK vocabulary this daemon
// needs; generated-service-specific codes are out of scope (spec.md §1).
type ReturnCode uint8

const (
	ReturnOK    ReturnCode = 0x00
	ReturnNotOk ReturnCode = 0x01
)

// HeaderSize is the on-wire size of GenericMessageHeader.
const HeaderSize = 8

// GenericMessageHeader is the header shared by every IPC message variant.
type GenericMessageHeader struct {
	ProtocolVersion uint8
	MessageType     MessageType
	ReturnCode      ReturnCode
	reserved        uint8 // wire padding, always zero, kept for 4-byte alignment
	PayloadLength   uint32
}

// Encode writes the header in wire order into a freshly allocated slice.
func (h GenericMessageHeader) Encode() []byte {
	buf := make([]byte, HeaderSize)
	h.EncodeInto(buf)
	return buf
}

// EncodeInto writes the header into buf, which must be at least HeaderSize
// bytes long.
func (h GenericMessageHeader) EncodeInto(buf []byte) {
	_ = buf[HeaderSize-1]
	buf[0] = h.ProtocolVersion
	buf[1] = uint8(h.MessageType)
	buf[2] = uint8(h.ReturnCode)
	buf[3] = 0
	binary.LittleEndian.PutUint32(buf[4:8], h.PayloadLength)
}

// DecodeGenericMessageHeader parses a GenericMessageHeader from the front of
// data. It returns an error if data is shorter than HeaderSize — the caller
// (ConnectionSkeleton's decoding algorithm, spec.md §4.2 step 1) treats this
// as a malformed message: log and discard, connection stays open.
func DecodeGenericMessageHeader(data []byte) (GenericMessageHeader, error) {
	if len(data) < HeaderSize {
		return GenericMessageHeader{}, fmt.Errorf("message: generic header too short: got %d bytes, need %d", len(data), HeaderSize)
	}
	return GenericMessageHeader{
		ProtocolVersion: data[0],
		MessageType:     MessageType(data[1]),
		ReturnCode:      ReturnCode(data[2]),
		PayloadLength:   binary.LittleEndian.Uint32(data[4:8]),
	}, nil
}
