package message

import (
	"encoding/binary"
	"fmt"
)

// RequestHeaderSize is the on-wire size of RequestHeader.
const RequestHeaderSize = 11

// RequestHeader is the type-specific header carried by Request,
// RequestNoReturn, Response and ErrorResponse (spec.md §3 table). Its wire
// layout is shared across those four variants; ErrorResponse's return code
// lives in GenericMessageHeader.ReturnCode, not here.
type RequestHeader struct {
	ServiceID  uint16
	InstanceID uint16
	MajorVer   uint8
	MethodID   uint16
	ClientID   uint16
	SessionID  uint16
}

// Encode writes the header in wire order.
func (h RequestHeader) Encode() []byte {
	buf := make([]byte, RequestHeaderSize)
	h.EncodeInto(buf)
	return buf
}

func (h RequestHeader) EncodeInto(buf []byte) {
	_ = buf[RequestHeaderSize-1]
	binary.LittleEndian.PutUint16(buf[0:2], h.ServiceID)
	binary.LittleEndian.PutUint16(buf[2:4], h.InstanceID)
	buf[4] = h.MajorVer
	binary.LittleEndian.PutUint16(buf[5:7], h.MethodID)
	binary.LittleEndian.PutUint16(buf[7:9], h.ClientID)
	binary.LittleEndian.PutUint16(buf[9:11], h.SessionID)
}

// DecodeRequestHeader parses a RequestHeader from the front of data.
func DecodeRequestHeader(data []byte) (RequestHeader, error) {
	if len(data) < RequestHeaderSize {
		return RequestHeader{}, fmt.Errorf("message: request header too short: got %d bytes, need %d", len(data), RequestHeaderSize)
	}
	return RequestHeader{
		ServiceID:  binary.LittleEndian.Uint16(data[0:2]),
		InstanceID: binary.LittleEndian.Uint16(data[2:4]),
		MajorVer:   data[4],
		MethodID:   binary.LittleEndian.Uint16(data[5:7]),
		ClientID:   binary.LittleEndian.Uint16(data[7:9]),
		SessionID:  binary.LittleEndian.Uint16(data[9:11]),
	}, nil
}

// ApplicationErrorHeaderSize is the on-wire size of ApplicationErrorHeader.
const ApplicationErrorHeaderSize = RequestHeaderSize + 8

// ApplicationErrorHeader extends RequestHeader with a user-defined error
// code and domain, carried by ApplicationError messages (spec.md §3).
type ApplicationErrorHeader struct {
	RequestHeader
	ErrorCode   uint32
	ErrorDomain uint32
}

func (h ApplicationErrorHeader) Encode() []byte {
	buf := make([]byte, ApplicationErrorHeaderSize)
	h.RequestHeader.EncodeInto(buf[0:RequestHeaderSize])
	binary.LittleEndian.PutUint32(buf[RequestHeaderSize:RequestHeaderSize+4], h.ErrorCode)
	binary.LittleEndian.PutUint32(buf[RequestHeaderSize+4:RequestHeaderSize+8], h.ErrorDomain)
	return buf
}

func DecodeApplicationErrorHeader(data []byte) (ApplicationErrorHeader, error) {
	if len(data) < ApplicationErrorHeaderSize {
		return ApplicationErrorHeader{}, fmt.Errorf("message: application-error header too short: got %d bytes, need %d", len(data), ApplicationErrorHeaderSize)
	}
	req, err := DecodeRequestHeader(data)
	if err != nil {
		return ApplicationErrorHeader{}, err
	}
	return ApplicationErrorHeader{
		RequestHeader: req,
		ErrorCode:     binary.LittleEndian.Uint32(data[RequestHeaderSize : RequestHeaderSize+4]),
		ErrorDomain:   binary.LittleEndian.Uint32(data[RequestHeaderSize+4 : RequestHeaderSize+8]),
	}, nil
}

// NotificationHeaderSize is the on-wire size of NotificationHeader.
const NotificationHeaderSize = 9

// NotificationHeader is carried by Notification messages.
type NotificationHeader struct {
	ServiceID  uint16
	InstanceID uint16
	MajorVer   uint8
	EventID    uint16
	SessionID  uint16
}

func (h NotificationHeader) Encode() []byte {
	buf := make([]byte, NotificationHeaderSize)
	binary.LittleEndian.PutUint16(buf[0:2], h.ServiceID)
	binary.LittleEndian.PutUint16(buf[2:4], h.InstanceID)
	buf[4] = h.MajorVer
	binary.LittleEndian.PutUint16(buf[5:7], h.EventID)
	binary.LittleEndian.PutUint16(buf[7:9], h.SessionID)
	return buf
}

func DecodeNotificationHeader(data []byte) (NotificationHeader, error) {
	if len(data) < NotificationHeaderSize {
		return NotificationHeader{}, fmt.Errorf("message: notification header too short: got %d bytes, need %d", len(data), NotificationHeaderSize)
	}
	return NotificationHeader{
		ServiceID:  binary.LittleEndian.Uint16(data[0:2]),
		InstanceID: binary.LittleEndian.Uint16(data[2:4]),
		MajorVer:   data[4],
		EventID:    binary.LittleEndian.Uint16(data[5:7]),
		SessionID:  binary.LittleEndian.Uint16(data[7:9]),
	}, nil
}

// SubscribeHeaderSize is the on-wire size of SubscribeHeader.
const SubscribeHeaderSize = 9

// SubscribeHeader is carried by SubscribeEvent, SubscribeEventAck,
// SubscribeEventNAck and UnsubscribeEvent messages. None of these carry a
// payload (spec.md §3 table).
type SubscribeHeader struct {
	ServiceID  uint16
	InstanceID uint16
	MajorVer   uint8
	EventID    uint16
	ClientID   uint16
}

func (h SubscribeHeader) Encode() []byte {
	buf := make([]byte, SubscribeHeaderSize)
	binary.LittleEndian.PutUint16(buf[0:2], h.ServiceID)
	binary.LittleEndian.PutUint16(buf[2:4], h.InstanceID)
	buf[4] = h.MajorVer
	binary.LittleEndian.PutUint16(buf[5:7], h.EventID)
	binary.LittleEndian.PutUint16(buf[7:9], h.ClientID)
	return buf
}

func DecodeSubscribeHeader(data []byte) (SubscribeHeader, error) {
	if len(data) < SubscribeHeaderSize {
		return SubscribeHeader{}, fmt.Errorf("message: subscribe header too short: got %d bytes, need %d", len(data), SubscribeHeaderSize)
	}
	return SubscribeHeader{
		ServiceID:  binary.LittleEndian.Uint16(data[0:2]),
		InstanceID: binary.LittleEndian.Uint16(data[2:4]),
		MajorVer:   data[4],
		EventID:    binary.LittleEndian.Uint16(data[5:7]),
		ClientID:   binary.LittleEndian.Uint16(data[7:9]),
	}, nil
}

// ServiceInstanceIdentifier uniquely names one offered SOME/IP service
// instance (spec.md §3).
type ServiceInstanceIdentifier struct {
	ServiceID  uint16
	InstanceID uint16
	MajorVer   uint8
	MinorVer   uint32
}

func (s ServiceInstanceIdentifier) String() string {
	return fmt.Sprintf("0x%04x:0x%04x:%d.%d", s.ServiceID, s.InstanceID, s.MajorVer, s.MinorVer)
}

// ProvidedServiceInstanceID is a ServiceInstanceIdentifier plus a provenance
// flag distinguishing a generated (concrete) instance id from an
// any-instance wildcard offer (spec.md §3).
type ProvidedServiceInstanceID struct {
	ServiceInstanceIdentifier
	IsAnyInstance bool
}

// IpcUnicastAddress is a logical local endpoint, not a network address
// (spec.md §3).
type IpcUnicastAddress struct {
	Domain uint32
	Port   uint32
}

func (a IpcUnicastAddress) String() string {
	return fmt.Sprintf("%d:%d", a.Domain, a.Port)
}

// IsUnspecified reports whether a is the reserved (0,0) address — rejected
// by internal/config's validator per SPEC_FULL.md §10 (grounded in the
// original's ip_address_parser_utils.h refusal of unspecified bind
// targets).
func (a IpcUnicastAddress) IsUnspecified() bool {
	return a.Domain == 0 && a.Port == 0
}
