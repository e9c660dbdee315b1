// Package resolver turns a destination host string into a concrete
// Endpoint of the requested family, per spec.md §4.A.
//
// Grounded on ravvdevv-Pulse/internal/icmp/icmp.go's Pinger.Resolve
// (net.LookupIP, first-match-by-family) and on original_source's
// iputils get_ip4_addr/get_ip6_addr, which additionally warn when the
// chosen endpoint is loopback — that warning is restored here since
// spec.md §4.A calls for it but the Go teacher's Resolve dropped it.
package resolver

import (
	"fmt"
	"net"

	"github.com/ringping/ringping/internal/pingerr"
	"github.com/ringping/ringping/internal/session"
)

// Warner receives the non-fatal loopback notice on the diagnostic
// stream. Kept as a narrow interface so callers can plug in whatever
// diagnostics sink they have without resolver depending on it.
type Warner interface {
	Warn(format string, args ...interface{})
}

// nopWarner discards warnings; used when a caller passes nil.
type nopWarner struct{}

func (nopWarner) Warn(string, ...interface{}) {}

// Resolve looks up host and returns the first candidate matching
// family. Any means V6 first, then V4. A literal IP address
// degenerates to a single candidate. If the chosen endpoint is
// loopback, w.Warn is called before returning.
func Resolve(host string, family session.Family, w Warner) (session.Endpoint, error) {
	if w == nil {
		w = nopWarner{}
	}

	ips, err := net.LookupIP(host)
	if err != nil {
		return session.Endpoint{}, fmt.Errorf("%w: lookup %q: %v", pingerr.ErrResolution, host, err)
	}

	pick := func(want session.Family) (session.Endpoint, bool) {
		for _, ip := range ips {
			if want == session.V4 {
				if v4 := ip.To4(); v4 != nil {
					return session.Endpoint{IP: v4, Family: session.V4}, true
				}
			} else {
				if ip.To4() == nil && ip.To16() != nil {
					return session.Endpoint{IP: ip, Family: session.V6}, true
				}
			}
		}
		return session.Endpoint{}, false
	}

	var ep session.Endpoint
	var ok bool

	switch family {
	case session.V4:
		ep, ok = pick(session.V4)
	case session.V6:
		ep, ok = pick(session.V6)
	default:
		if ep, ok = pick(session.V6); !ok {
			ep, ok = pick(session.V4)
		}
	}

	if !ok {
		return session.Endpoint{}, fmt.Errorf("%w: no usable %s address for %q", pingerr.ErrResolution, family, host)
	}

	if ep.IP.IsLoopback() {
		w.Warn("ringing a loopback address (%s)", ep.IP)
	}

	return ep, nil
}
