// Package echo builds and mutates ICMP/ICMPv6 Echo Request octets and
// keeps the RFC 1071 checksum current as the sequence number advances.
//
// Grounded on ravvdevv-Pulse/internal/icmp/icmp.go's Checksum helper
// (kept here, unchanged in algorithm, next to Verify, the validity check
// used by tests and by the classifier) and on the incremental-update law in
// original_source/src/iputils/ip4.rs's EchoICMPv4 (init_bytes computes
// a base sum once; update_chksm/final_bytes folds only the sequence
// word on every subsequent call instead of re-summing the packet). The
// Go teacher always recomputes the full checksum through
// golang.org/x/net/icmp.Message.Marshal; this package replaces that
// with the O(1)-per-send law spec.md §4.B specifies as the reason the
// core is worth writing.
package echo

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/ringping/ringping/internal/session"
)

// TypeEchoRequestV4 and TypeEchoRequestV6 are the ICMP/ICMPv6 Echo
// Request type octets (RFC 792, RFC 4443).
const (
	TypeEchoRequestV4 = 8
	TypeEchoRequestV6 = 128

	// headerLen is the fixed 8-byte ICMP header: type, code, checksum(2),
	// identifier(2), sequence(2).
	headerLen = 8
)

// DefaultPayload is the reference 21-byte literal spec.md §3 names.
var DefaultPayload = []byte("SWIKISSSWIKISSSWIKISS")

// ErrPayloadTooShort is returned by New when the payload is empty.
// spec.md §8 permits a zero-length payload in principle but construction
// here requires at least one byte so DefaultPayload's "≥ 7" guidance has
// a concrete floor to violate in tests.
var ErrPayloadTooShort = errors.New("echo payload must not be empty")

// Packet is the mutable Echo Request working buffer: 8-byte header plus
// payload, reused in place across send iterations.
type Packet struct {
	buf        []byte
	baseSum    uint32
	seq        uint16
	identifier uint16
}

// New allocates a Packet for the given family, lays down its fixed
// fields via init, and returns it with sequence 0 (the first Advance
// call produces sequence 1, per spec.md §3).
func New(family session.Family, identifier uint16, payload []byte) (*Packet, error) {
	if len(payload) == 0 {
		return nil, ErrPayloadTooShort
	}
	p := &Packet{
		buf:        make([]byte, headerLen+len(payload)),
		identifier: identifier,
	}
	typ := byte(TypeEchoRequestV4)
	if family == session.V6 {
		typ = TypeEchoRequestV6
	}
	p.init(typ, payload)
	return p, nil
}

// init lays down type, code=0, zeroed checksum, identifier, zero
// sequence, and payload, then records the base sum: the running
// one's-complement sum of those bytes before any sequence number is
// written into them (the sequence field is zero at this point, so it
// contributes 0 and can be added in later without recomputing from
// scratch).
func (p *Packet) init(typ byte, payload []byte) {
	buf := p.buf
	buf[0] = typ
	buf[1] = 0 // code
	buf[2] = 0
	buf[3] = 0 // checksum, patched by Advance
	binary.BigEndian.PutUint16(buf[4:6], p.identifier)
	binary.BigEndian.PutUint16(buf[6:8], 0)
	copy(buf[headerLen:], payload)

	p.seq = 0
	p.baseSum = runningSum(buf)
}

// Bytes returns the current wire image of the packet. The slice aliases
// Packet's internal buffer and is only valid until the next Advance.
func (p *Packet) Bytes() []byte {
	return p.buf
}

// Sequence returns the current sequence number (0 before the first
// Advance).
func (p *Packet) Sequence() uint16 {
	return p.seq
}

// Advance increments the sequence number, writes it at offsets 6-7, and
// recomputes the checksum in O(1) by folding only the new sequence word
// into the base sum recorded at init time — the incremental update law
// of spec.md §4.B. Wraps at 2^16 per spec.md §8.
func (p *Packet) Advance() {
	p.seq++
	binary.BigEndian.PutUint16(p.buf[6:8], p.seq)

	sum := p.baseSum + uint32(p.seq)
	sum = foldCarries(sum)
	cksum := ^uint16(sum)
	binary.BigEndian.PutUint16(p.buf[2:4], cksum)
}

// runningSum computes the unfolded RFC 1071 32-bit accumulator over b,
// treating b as 16-bit big-endian words and padding an odd trailing
// byte with one zero byte (the padding is never written back to the
// wire buffer).
func runningSum(b []byte) uint32 {
	var sum uint32
	n := len(b)
	for i := 0; i+1 < n; i += 2 {
		sum += uint32(b[i])<<8 | uint32(b[i+1])
	}
	if n%2 == 1 {
		sum += uint32(b[n-1]) << 8
	}
	return sum
}

// foldCarries folds the high 16 bits of sum back into the low 16 bits
// until none remain, per RFC 1071 step 3.
func foldCarries(sum uint32) uint32 {
	for sum>>16 != 0 {
		sum = (sum & 0xffff) + (sum >> 16)
	}
	return sum
}

// Checksum computes the RFC 1071 ICMP checksum over b from scratch: the
// bitwise complement of the folded running sum. Computed over a packet
// whose checksum field is zero, it is the value to write at offsets
// 2-3; over a well-formed packet it returns 0. Exported so tests can
// stamp a valid checksum onto synthetic packets; checking a received
// packet is Verify's job.
func Checksum(b []byte) uint16 {
	return ^uint16(foldCarries(runningSum(b)))
}

// Verify folds b (which must include its own checksum field) and
// reports whether the result is the RFC 1071 validity value 0xffff,
// i.e. whether b's checksum is self-consistent.
func Verify(b []byte) bool {
	return foldCarries(runningSum(b)) == 0xffff
}

func (p *Packet) String() string {
	return fmt.Sprintf("echo.Packet{seq=%d, len=%d}", p.seq, len(p.buf))
}
