// Package reply parses a single datagram read off an ICMP socket into
// a ReplyClassification: Echo, ICMP error, Malformed, or Noise, per
// spec.md §4.C.
//
// Grounded on original_source/src/ring_impl.rs's handle_returned (IP
// header length via (buf[0]&0x0F)*4, raw-socket offset arithmetic, the
// checksum-fold validity check) for the raw-socket V4 read shape, and
// on other_examples/…KilimcininKorOglu-poros__internal-probe-icmp_packet.go
// and other_examples/…tomc603-pinger__receiver-icmplistener.go for the
// Go-idiomatic tagged-classification shape, built on plain byte-offset
// parsing rather than golang.org/x/net/icmp.
package reply

import (
	"encoding/binary"
	"time"

	"github.com/ringping/ringping/internal/echo"
	"github.com/ringping/ringping/internal/session"
)

// Kind tags a Classification.
type Kind int

const (
	Echo Kind = iota
	ICMPError
	Malformed
	Noise
)

// Classification is the tagged result of parsing one received datagram.
type Classification struct {
	Kind Kind

	// Populated when Kind == Echo.
	Seq   uint16
	TTL   uint8
	RTT   time.Duration
	Bytes int

	// Populated when Kind == ICMPError.
	ErrType int
	ErrCode int
	ErrSeq  uint16
}

// ICMP type octets this classifier recognizes (RFC 792 / RFC 4443).
const (
	typeEchoReplyV4 = 0
	typeEchoReplyV6 = 129

	typeDestUnreachable = 3
	typeSourceQuench    = 4
	typeTimeExceeded    = 11
	typeParamProblem    = 12

	typeDestUnreachableV6 = 1
	typeTimeExceededV6    = 3
)

// icmpErrorText maps (type, code) to the descriptive text spec.md §6
// requires inline error lines to carry.
func icmpErrorText(family session.Family, typ, code int) (string, bool) {
	if family == session.V6 {
		switch typ {
		case typeDestUnreachableV6:
			return "Destination Unreachable", true
		case typeTimeExceededV6:
			return "Time to Live Exceeded", true
		}
		return "", false
	}
	switch typ {
	case typeDestUnreachable:
		switch code {
		case 0:
			return "Destination Network Unreachable", true
		case 1:
			return "Destination Host Unreachable", true
		case 2:
			return "Destination Protocol Unreachable", true
		case 3:
			return "Destination Port Unreachable", true
		case 4:
			return "Fragmentation Needed", true
		case 5:
			return "Source Route Failed", true
		}
		return "", false
	case typeSourceQuench:
		if code == 0 {
			return "Source Quench", true
		}
	case typeTimeExceeded:
		switch code {
		case 0:
			return "Time to Live Exceeded", true
		case 1:
			return "Fragment Reassembly Time Exceeded", true
		}
	case typeParamProblem:
		if code == 0 {
			return "Parameter Problem", true
		}
	}
	return "", false
}

// ErrorText returns the descriptive text for an ICMPError classification,
// or "" if the (type, code) pair is not one of the mapped errors.
func ErrorText(family session.Family, typ, code int) string {
	text, _ := icmpErrorText(family, typ, code)
	return text
}

// Classify parses raw, the bytes returned from one read of the ICMP
// socket, given the session family, whether the read shape includes an
// IPv4 header (true for raw V4 sockets, false for datagram V4 sockets
// and all V6 sockets — see spec.md §4.C), the send instant of the
// request currently being waited on, and the receive instant. An Echo's
// RTT is always recvInstant minus sendInstant; the reply's own sequence
// is not matched against the request.
func Classify(raw []byte, family session.Family, hasIPHeader bool, sendInstant time.Time, recvInstant time.Time) Classification {
	off := 0
	var ttl uint8
	if hasIPHeader {
		if len(raw) < 1 {
			return Classification{Kind: Noise}
		}
		ihl := int(raw[0]&0x0f) * 4
		if len(raw) < ihl+headerMinLen {
			return Classification{Kind: Noise}
		}
		if len(raw) > 8 {
			ttl = raw[8]
		}
		off = ihl
	}

	icmpBytes := raw[off:]
	if len(icmpBytes) < headerMinLen {
		return Classification{Kind: Noise}
	}

	typ := int(icmpBytes[0])
	code := int(icmpBytes[1])

	isEchoReply := (family != session.V6 && typ == typeEchoReplyV4) ||
		(family == session.V6 && typ == typeEchoReplyV6)

	if isEchoReply {
		seq := binary.BigEndian.Uint16(icmpBytes[6:8])
		if !echo.Verify(icmpBytes) {
			return Classification{Kind: Malformed, Seq: seq}
		}
		rtt := recvInstant.Sub(sendInstant)
		return Classification{
			Kind:  Echo,
			Seq:   seq,
			TTL:   ttl,
			RTT:   rtt,
			Bytes: len(icmpBytes),
		}
	}

	if _, ok := icmpErrorText(family, typ, code); ok {
		seq := offendingSeq(family, icmpBytes)
		return Classification{
			Kind:    ICMPError,
			ErrType: typ,
			ErrCode: code,
			ErrSeq:  seq,
		}
	}

	return Classification{Kind: Noise}
}

// headerMinLen is the minimum bytes of an ICMP message this classifier
// needs to read type/code/checksum/identifier/sequence.
const headerMinLen = 8

// ipv6HeaderLen is the fixed IPv6 header length (RFC 8200): unlike
// IPv4 there is no IHL nibble to read, version/traffic-class occupies
// byte 0 instead.
const ipv6HeaderLen = 40

// offendingSeq recovers the sequence number of the Echo Request that
// provoked an ICMP/ICMPv6 error message. The error payload carries the
// offending IP header followed by the first bytes of the offending
// ICMP packet (RFC 792 / RFC 4443); the sequence sits at offset 6-7 of
// that embedded packet, after the embedded IP header. The embedded
// header's length must be computed per family: IPv4's is variable via
// the IHL nibble, IPv6's is the fixed 40-byte base header.
func offendingSeq(family session.Family, icmpBytes []byte) uint16 {
	// icmpBytes[8:] is "IP header + start of offending packet".
	if len(icmpBytes) < 9 {
		return 0
	}
	embedded := icmpBytes[8:]

	var ihl int
	if family == session.V6 {
		ihl = ipv6HeaderLen
	} else {
		if len(embedded) < 1 {
			return 0
		}
		ihl = int(embedded[0]&0x0f) * 4
	}

	if len(embedded) < ihl+8 {
		return 0
	}
	offending := embedded[ihl:]
	return binary.BigEndian.Uint16(offending[6:8])
}
