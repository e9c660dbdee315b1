// Package session holds the immutable parameters a ring session reads
// for its whole lifetime: family, pacing, timeout, TTL, and the
// resolved destination.
package session

import (
	"fmt"
	"net"
	"time"
)

// Family selects which IP family a session resolves and sockets for.
type Family int

const (
	// Any lets the resolver prefer V6, falling back to V4.
	Any Family = iota
	V4
	V6
)

func (f Family) String() string {
	switch f {
	case V4:
		return "ipv4"
	case V6:
		return "ipv6"
	default:
		return "any"
	}
}

// Endpoint is a resolved destination of a known family. Port is
// syntactic only; ICMP has no ports.
type Endpoint struct {
	IP     net.IP
	Family Family
}

func (e Endpoint) String() string {
	return e.IP.String()
}

const (
	// DefaultInterval is the wait between sends when -i is not given.
	DefaultInterval = time.Second
	// DefaultTimeout is the per-reply wait when -d is not given.
	DefaultTimeout = time.Second
	// DefaultTTLv4 is used when a session is explicitly built for V4.
	DefaultTTLv4 = 64
	// DefaultTTLv6 is the path default otherwise (matches spec.md §3).
	DefaultTTLv6 = 128
)

// Config is the immutable record a Coordinator reads. Build one with
// New, set its fields directly, then hand it to the coordinator — nothing
// below is safe to mutate after that handoff.
type Config struct {
	Family       Family
	Count        int // 0 = unbounded
	Interval     time.Duration
	ReplyTimeout time.Duration
	TTL          int
	Quiet        bool
	Broadcast    bool
	Destination  string
	Endpoint     Endpoint
}

// New returns a Config with spec.md §4.E defaults: family Any, count
// unbounded, 1s interval, 1s reply timeout, quiet and broadcast off.
func New(destination string) *Config {
	return &Config{
		Family:       Any,
		Count:        0,
		Interval:     DefaultInterval,
		ReplyTimeout: DefaultTimeout,
		TTL:          0, // resolved to family default in Validate
		Destination:  destination,
	}
}

// Validate fills in the family-dependent TTL default when the caller
// never set one, and rejects the broadcast/V6 combination per spec.md
// §9 ("combining -b with -6 should fail at configuration").
func (c *Config) Validate() error {
	if c.TTL == 0 {
		if c.Family == V4 {
			c.TTL = DefaultTTLv4
		} else {
			c.TTL = DefaultTTLv6
		}
	}
	if c.Broadcast && c.Family == V6 {
		return fmt.Errorf("broadcast requires an IPv4 destination, got family %s", c.Family)
	}
	if c.Interval < time.Second {
		return fmt.Errorf("interval must be >= 1s, got %s", c.Interval)
	}
	return nil
}

// Network returns the golang.org/x/net/icmp network name for this
// session's resolved family: "ip4:icmp" for raw or "udp4" for
// datagram sockets (and the v6 equivalents), matching the dual read
// shapes spec.md §4.C requires the classifier to tolerate.
func (c *Config) Network(datagram bool) string {
	if c.Endpoint.Family == V6 {
		if datagram {
			return "udp6"
		}
		return "ip6:ipv6-icmp"
	}
	if datagram {
		return "udp4"
	}
	return "ip4:icmp"
}
