// Package sockopt opens an ICMP socket (raw or datagram, V4 or V6) and
// applies the TTL/hop-limit and broadcast socket options spec.md §4.E
// and §6 require.
//
// Grounded on golang.org/x/net/icmp.ListenPacket for the connection
// itself (as the teacher does in ravvdevv-Pulse/internal/icmp/icmp.go)
// and on ipv4.PacketConn.SetTTL / ipv6.PacketConn.SetHopLimit for the
// hop-limit option — the pattern the prometheus-community/pro-bing
// dependency pulled in via malbeclabs-doublezero/go.mod uses to
// configure an icmp.PacketConn without reaching for raw syscalls.
// SO_BROADCAST has no equivalent in the ipv4 package, so it is set
// directly through golang.org/x/sys/unix.SetsockoptInt over the
// connection's syscall.RawConn, the pattern
// other_examples/…dantte-lp-gobfd__internal-netio-rawsock_linux.go
// uses for its own socket options.
package sockopt

import (
	"fmt"

	"golang.org/x/net/icmp"
	"golang.org/x/net/ipv4"
	"golang.org/x/sys/unix"

	"github.com/ringping/ringping/internal/pingerr"
	"github.com/ringping/ringping/internal/session"
)

// Shape describes the read/write geometry of the socket Open returned:
// whether reads carry a leading IPv4 header, and whether the
// connection is a datagram socket (address type net.UDPAddr) rather
// than a raw one (net.IPAddr).
type Shape struct {
	HasIPHeader bool
	Datagram    bool
}

// Open listens on an ICMP socket for cfg's family, preferring a raw
// socket (requires privilege, yields the IPv4 header on read) and
// falling back to an unprivileged datagram socket when raw
// construction is denied. It reports which shape it obtained so the
// reply classifier knows whether to expect a leading IP header and so
// the caller knows which net.Addr type to write to.
func Open(cfg *session.Config) (conn *icmp.PacketConn, shape Shape, err error) {
	network := cfg.Network(false)
	conn, err = icmp.ListenPacket(network, "")
	if err != nil {
		network = cfg.Network(true)
		conn, err = icmp.ListenPacket(network, "")
		if err != nil {
			return nil, Shape{}, fmt.Errorf("%w: listen %s: %v", pingerr.ErrSocket, network, err)
		}
		shape = Shape{HasIPHeader: false, Datagram: true}
	} else {
		shape = Shape{HasIPHeader: cfg.Endpoint.Family != session.V6, Datagram: false}
	}

	if err := applyOptions(conn, cfg); err != nil {
		conn.Close()
		return nil, Shape{}, err
	}

	return conn, shape, nil
}

// applyOptions sets TTL/hop-limit and, when requested, SO_BROADCAST.
func applyOptions(conn *icmp.PacketConn, cfg *session.Config) error {
	if cfg.Endpoint.Family == session.V6 {
		if err := conn.IPv6PacketConn().SetHopLimit(cfg.TTL); err != nil {
			return fmt.Errorf("%w: set hop limit: %v", pingerr.ErrSocket, err)
		}
		return nil
	}

	if err := conn.IPv4PacketConn().SetTTL(cfg.TTL); err != nil {
		return fmt.Errorf("%w: set TTL: %v", pingerr.ErrSocket, err)
	}
	if cfg.Broadcast {
		if err := setBroadcast(conn.IPv4PacketConn()); err != nil {
			return err
		}
	}
	return nil
}

// setBroadcast enables SO_BROADCAST on the connection's underlying file
// descriptor. ipv4.PacketConn has no dedicated setter for it, so it is
// reached through the connection's own SyscallConn.
func setBroadcast(p4 *ipv4.PacketConn) error {
	rawConn, err := p4.SyscallConn()
	if err != nil {
		return fmt.Errorf("%w: obtain raw conn for broadcast: %v", pingerr.ErrSocket, err)
	}
	var sockErr error
	ctlErr := rawConn.Control(func(fd uintptr) {
		sockErr = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_BROADCAST, 1)
	})
	if ctlErr != nil {
		return fmt.Errorf("%w: control: %v", pingerr.ErrSocket, ctlErr)
	}
	if sockErr != nil {
		return fmt.Errorf("%w: set SO_BROADCAST: %v", pingerr.ErrSocket, sockErr)
	}
	return nil
}
