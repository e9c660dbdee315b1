package reply

import (
	"encoding/binary"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ringping/ringping/internal/echo"
	"github.com/ringping/ringping/internal/session"
)

// buildEchoReply constructs a well-formed ICMP Echo Reply (type 0) for
// the given seq, mirroring a loopback responder that flips the Echo
// Request it received into a Reply and leaves the checksum valid.
func buildEchoReply(t *testing.T, seq uint16) []byte {
	t.Helper()
	raw := make([]byte, 8+len(echo.DefaultPayload))
	raw[0] = 0 // Echo Reply
	raw[1] = 0
	binary.BigEndian.PutUint16(raw[4:6], 0x1234)
	binary.BigEndian.PutUint16(raw[6:8], seq)
	copy(raw[8:], echo.DefaultPayload)
	cksum := echo.Checksum(raw)
	binary.BigEndian.PutUint16(raw[2:4], cksum)
	return raw
}

func TestClassifyEchoRoundTrip(t *testing.T) {
	raw := buildEchoReply(t, 42)
	cls := Classify(raw, session.V4, false, time.Now().Add(-5*time.Millisecond), time.Now())
	require.Equal(t, Echo, cls.Kind)
	assert.Equal(t, uint16(42), cls.Seq)
	assert.Greater(t, cls.RTT, time.Duration(0))
}

func TestClassifyMalformedOnBadChecksum(t *testing.T) {
	raw := buildEchoReply(t, 5)
	raw[len(raw)-1] ^= 0xff // corrupt a payload byte without fixing the checksum
	cls := Classify(raw, session.V4, false, time.Now(), time.Now())
	assert.Equal(t, Malformed, cls.Kind)
	assert.Equal(t, uint16(5), cls.Seq)
}

func TestClassifyTooShortIsNoise(t *testing.T) {
	cls := Classify([]byte{0, 0, 0}, session.V4, false, time.Now(), time.Now())
	assert.Equal(t, Noise, cls.Kind)
}

func TestClassifyICMPErrorWithOffendingSeq(t *testing.T) {
	offending := make([]byte, 20+8)
	offending[0] = 0x45 // IHL=5 -> 20-byte IP header
	binary.BigEndian.PutUint16(offending[20+6:20+8], 77)

	raw := make([]byte, 8+len(offending))
	raw[0] = 3 // Destination Unreachable
	raw[1] = 1 // Host Unreachable
	copy(raw[8:], offending)

	cls := Classify(raw, session.V4, false, time.Now(), time.Now())
	require.Equal(t, ICMPError, cls.Kind)
	assert.Equal(t, 3, cls.ErrType)
	assert.Equal(t, 1, cls.ErrCode)
	assert.Equal(t, uint16(77), cls.ErrSeq)
}

func TestClassifyICMPErrorV6UsesFixedHeaderLength(t *testing.T) {
	// The embedded offending packet is the original IPv6 header (fixed
	// 40 bytes, no IHL nibble) followed by the offending ICMPv6 bytes.
	// Byte 0 here is Version/Traffic-Class, not an IHL field — a
	// classifier that (wrongly) read it as one would derive a bogus
	// offset and misreport ErrSeq.
	offending := make([]byte, ipv6HeaderLen+8)
	offending[0] = 0x60 // IPv6 version nibble, not an IHL
	binary.BigEndian.PutUint16(offending[ipv6HeaderLen+6:ipv6HeaderLen+8], 99)

	raw := make([]byte, 8+len(offending))
	raw[0] = 3 // Time Exceeded (ICMPv6 type 3)
	raw[1] = 0
	copy(raw[8:], offending)

	cls := Classify(raw, session.V6, false, time.Now(), time.Now())
	require.Equal(t, ICMPError, cls.Kind)
	assert.Equal(t, uint16(99), cls.ErrSeq)
}

func TestClassifyStripsV4IPHeaderWhenPresent(t *testing.T) {
	icmpPart := buildEchoReply(t, 9)
	raw := make([]byte, 20+len(icmpPart))
	raw[0] = 0x45
	raw[8] = 57 // TTL
	copy(raw[20:], icmpPart)

	cls := Classify(raw, session.V4, true, time.Now(), time.Now())
	require.Equal(t, Echo, cls.Kind)
	assert.Equal(t, uint16(9), cls.Seq)
	assert.Equal(t, uint8(57), cls.TTL)
}

func TestErrorTextKnownAndUnknownPairs(t *testing.T) {
	assert.Equal(t, "Time to Live Exceeded", ErrorText(session.V4, 11, 0))
	assert.Equal(t, "", ErrorText(session.V4, 99, 99))
	assert.Equal(t, "Time to Live Exceeded", ErrorText(session.V6, 3, 0))
}
