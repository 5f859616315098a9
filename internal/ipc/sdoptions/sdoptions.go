// Package sdoptions implements the SD-Options Deserializer (spec.md §4.8,
// component C10): a strict length-framed parser for the "options" block of
// a SOME/IP-SD message, with graceful whole-block discard on any framing
// error.
//
// Grounded in the teacher's internal/protocol/portmap/xdr manual
// binary.*Endian field-by-field decode style (no reflection-based
// marshaling for tight wire formats).
package sdoptions

import (
	"encoding/binary"
	"net"
)

// Protocol is the transport protocol an endpoint option advertises.
type Protocol uint8

const (
	ProtoUnknown Protocol = iota
	ProtoTCP
	ProtoUDP
)

func protocolFromWire(b byte) Protocol {
	switch b {
	case 0x06:
		return ProtoTCP
	case 0x11:
		return ProtoUDP
	default:
		return ProtoUnknown
	}
}

// OptionType discriminates the endpoint option kinds this parser
// recognizes; every other type is skipped (spec.md §4.8: "unknown types are
// skipped exactly payload_length bytes").
type OptionType uint8

const (
	TypeIPv4Unicast   OptionType = 0x04
	TypeIPv4Multicast OptionType = 0x14
	TypeIPv6Unicast   OptionType = 0x06
	TypeIPv6Multicast OptionType = 0x16
)

// Option is one parsed endpoint option (spec.md §4.8: "(type, ip_address,
// transport_proto, port, discardable_flag)").
type Option struct {
	Type        OptionType
	Address     net.IP
	Protocol    Protocol
	Port        uint16
	Discardable bool
}

// discardableFlagMask is bit 0x80 of the option's flags byte.
const discardableFlagMask = 0x80

// Parse parses the options block of a SOME/IP-SD message (spec.md §6 wire
// format: "options_length:u32 | (length:u16, type:u8, flags:u8,
// payload[length-1])*"). On any framing error it returns (nil, false) — no
// partial success is ever returned (spec.md §4.8).
func Parse(data []byte) ([]Option, bool) {
	if len(data) < 4 {
		return nil, false
	}
	optionsLength := binary.BigEndian.Uint32(data[0:4])
	rest := data[4:]
	if uint32(len(rest)) != optionsLength {
		return nil, false
	}

	var opts []Option
	for len(rest) > 0 {
		if len(rest) < 4 {
			return nil, false
		}
		length := binary.BigEndian.Uint16(rest[0:2])
		optType := OptionType(rest[2])
		flags := rest[3]
		if length < 1 {
			return nil, false
		}
		payloadLen := int(length) - 1
		if len(rest) < 4+payloadLen {
			return nil, false
		}
		payload := rest[4 : 4+payloadLen]
		rest = rest[4+payloadLen:]

		discardable := flags&discardableFlagMask != 0

		switch optType {
		case TypeIPv4Unicast, TypeIPv4Multicast:
			if len(payload) != 8 {
				return nil, false
			}
			opts = append(opts, Option{
				Type:        optType,
				Address:     net.IP(append([]byte(nil), payload[0:4]...)),
				Protocol:    protocolFromWire(payload[5]),
				Port:        binary.BigEndian.Uint16(payload[6:8]),
				Discardable: discardable,
			})
		case TypeIPv6Unicast, TypeIPv6Multicast:
			if len(payload) != 20 {
				return nil, false
			}
			opts = append(opts, Option{
				Type:        optType,
				Address:     net.IP(append([]byte(nil), payload[0:16]...)),
				Protocol:    protocolFromWire(payload[17]),
				Port:        binary.BigEndian.Uint16(payload[18:20]),
				Discardable: discardable,
			})
		default:
			// Unknown type: skip exactly payload_length bytes (spec.md
			// §4.8); already advanced above, nothing further to do.
		}
	}

	return opts, true
}
