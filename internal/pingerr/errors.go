// Package pingerr defines the error kinds a ring session can raise,
// matching the propagation rule: setup errors are fatal, per-packet
// errors are absorbed into statistics and diagnostics.
package pingerr

import "errors"

// Sentinel errors for the fatal, setup-phase failures. Wrap these with
// fmt.Errorf("...: %w", ErrX) to add destination/flag context.
var (
	// ErrArgParse covers a malformed command line: missing destination,
	// unparsable flag value, or a combination the CLI surface rejects
	// (e.g. -b with -6).
	ErrArgParse = errors.New("argument parse error")

	// ErrResolution covers the case where no endpoint of the requested
	// family could be found for the destination string.
	ErrResolution = errors.New("destination not resolvable")

	// ErrSocket covers failure to construct, connect, or configure the
	// ICMP socket.
	ErrSocket = errors.New("socket error")

	// ErrChannelSend indicates the receive worker has died and the
	// sender can no longer publish outstanding requests to it.
	ErrChannelSend = errors.New("internal channel send error")
)

// Per-packet conditions. These are never fatal; the receive worker
// reflects them only in Stats and inline diagnostics.
var (
	// ErrReplyTimeout marks a packet for which no reply arrived within
	// the configured timeout.
	ErrReplyTimeout = errors.New("reply timeout")

	// ErrReplyMalformed marks a reply whose checksum did not verify
	// (its folded sum was not 0xffff).
	ErrReplyMalformed = errors.New("malformed reply")
)

// ICMPError describes a received ICMP error message (type/code per
// RFC 792) reported inline and counted as loss. It is not one of the
// fatal sentinels above: it is carried as a value, not compared with
// errors.Is, since its text depends on (Type, Code).
type ICMPError struct {
	Type        int
	Code        int
	OffendingSeq int
	Text        string
}

func (e *ICMPError) Error() string {
	return e.Text
}
