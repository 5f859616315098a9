package sdoptions

import (
	"encoding/binary"
	"net"
	"testing"

	"github.com/stretchr/testify/require"
)

func encodeIPv4Option(optType OptionType, ip net.IP, proto byte, port uint16, discardable bool) []byte {
	payload := make([]byte, 8)
	copy(payload[0:4], ip.To4())
	payload[4] = 0 // reserved
	payload[5] = proto
	binary.BigEndian.PutUint16(payload[6:8], port)

	flags := byte(0)
	if discardable {
		flags = discardableFlagMask
	}

	opt := make([]byte, 4+len(payload))
	binary.BigEndian.PutUint16(opt[0:2], uint16(len(payload)+1))
	opt[2] = byte(optType)
	opt[3] = flags
	copy(opt[4:], payload)
	return opt
}

func wrapOptionsBlock(entries ...[]byte) []byte {
	var body []byte
	for _, e := range entries {
		body = append(body, e...)
	}
	block := make([]byte, 4+len(body))
	binary.BigEndian.PutUint32(block[0:4], uint32(len(body)))
	copy(block[4:], body)
	return block
}

func TestParse_SingleIPv4UnicastOption(t *testing.T) {
	entry := encodeIPv4Option(TypeIPv4Unicast, net.IPv4(192, 168, 1, 1), 0x06, 30501, false)
	block := wrapOptionsBlock(entry)

	opts, ok := Parse(block)
	require.True(t, ok)
	require.Len(t, opts, 1)
	require.Equal(t, TypeIPv4Unicast, opts[0].Type)
	require.Equal(t, ProtoTCP, opts[0].Protocol)
	require.EqualValues(t, 30501, opts[0].Port)
	require.False(t, opts[0].Discardable)
	require.True(t, opts[0].Address.Equal(net.IPv4(192, 168, 1, 1)))
}

func TestParse_LengthMismatchIsFramingError(t *testing.T) {
	entry := encodeIPv4Option(TypeIPv4Unicast, net.IPv4(10, 0, 0, 1), 0x11, 1, true)
	block := wrapOptionsBlock(entry)
	block[3]++ // corrupt the options_length field

	opts, ok := Parse(block)
	require.False(t, ok)
	require.Nil(t, opts)
}

func TestParse_UnknownTypeSkipped(t *testing.T) {
	unknown := make([]byte, 4+3)
	binary.BigEndian.PutUint16(unknown[0:2], 4) // length includes flags byte + 3 payload bytes
	unknown[2] = 0xFF
	unknown[3] = 0
	known := encodeIPv4Option(TypeIPv4Multicast, net.IPv4(224, 0, 0, 1), 0x06, 80, false)

	block := wrapOptionsBlock(unknown, known)
	opts, ok := Parse(block)
	require.True(t, ok)
	require.Len(t, opts, 1)
	require.Equal(t, TypeIPv4Multicast, opts[0].Type)
}

func TestParse_TruncatedOptionIsFramingError(t *testing.T) {
	block := []byte{0, 0, 0, 2, 0, 5} // claims 2 bytes remain, then a length/type pair promising more
	opts, ok := Parse(block)
	require.False(t, ok)
	require.Nil(t, opts)
}

func TestParse_IPv6UnicastOption(t *testing.T) {
	ip := net.ParseIP("2001:db8::1")
	payload := make([]byte, 20)
	copy(payload[0:16], ip.To16())
	payload[16] = 0
	payload[17] = 0x11
	binary.BigEndian.PutUint16(payload[18:20], 5000)

	entry := make([]byte, 4+len(payload))
	binary.BigEndian.PutUint16(entry[0:2], uint16(len(payload)+1))
	entry[2] = byte(TypeIPv6Unicast)
	entry[3] = 0
	copy(entry[4:], payload)

	block := wrapOptionsBlock(entry)
	opts, ok := Parse(block)
	require.True(t, ok)
	require.Len(t, opts, 1)
	require.Equal(t, ProtoUDP, opts[0].Protocol)
	require.EqualValues(t, 5000, opts[0].Port)
	require.True(t, opts[0].Address.Equal(ip))
}
