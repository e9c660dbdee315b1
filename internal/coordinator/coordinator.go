// Package coordinator runs one ring session end to end: it owns the
// send loop, the receive worker, the interrupt handler, and the final
// statistics report, coordinating the two goroutines exactly the way
// spec.md §4.D and §5 describe.
//
// Grounded directly on original_source/src/ring_impl.rs's run() and
// handle_returned(): the channel of Continue/Stop messages is
// mpsc::channel's Go analogue (a buffered chan ringMessage); the
// Arc<(Mutex<bool>, Condvar)> pair that the Rust sender blocks on
// between sends is a sync.Mutex-guarded bool plus a sync.Cond here;
// the AtomicBool the ctrlc handler flips is an atomic.Bool read by
// both goroutines without holding any lock, matching spec.md §5's
// "shared resources" list. The non-blocking spin-wait-with-yield the
// Rust receiver performs on a socket in nonblocking mode is replaced
// with repeated short-deadline reads on the icmp.PacketConn, the
// pattern other_examples/…tomc603-pinger__receiver-icmplistener.go
// uses (SetReadDeadline before a blocking ReadFrom, retry on a timeout
// error) — idiomatic Go for the same "poll until ready or expired"
// shape without hand-rolled nonblocking-socket plumbing.
package coordinator

import (
	"fmt"
	"net"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"golang.org/x/net/icmp"

	"github.com/ringping/ringping/internal/diag"
	"github.com/ringping/ringping/internal/echo"
	"github.com/ringping/ringping/internal/pingerr"
	"github.com/ringping/ringping/internal/reply"
	"github.com/ringping/ringping/internal/session"
	"github.com/ringping/ringping/internal/sockopt"
)

// pollStep is the read-deadline granularity the receive worker uses
// while spin-waiting for a reply. Short enough to notice an interrupt
// quickly, long enough not to busy-loop the CPU.
const pollStep = 25 * time.Millisecond

// chanDepth is the outstanding-request channel's buffer. The receiver
// normally drains a Continue well inside one reply timeout, so this
// only needs headroom for the in-flight request plus the terminal
// Stop.
const chanDepth = 8

// ringMessage mirrors original_source's RingMessage enum: either a
// Continue(seq, send_instant) describing one outstanding request, or
// a terminal Stop.
type ringMessage struct {
	stop        bool
	seq         uint16
	sendInstant time.Time
}

// Coordinator runs the send loop and receive worker for one session
// and reports the final statistics.
type Coordinator struct {
	cfg   *session.Config
	conn  *icmp.PacketConn
	shape sockopt.Shape
	diag  *diag.Diagnostics
	pkt   *echo.Packet
	dst   net.Addr

	stopFlag atomic.Bool

	mu           sync.Mutex
	cond         *sync.Cond
	stopCond     bool
	intervalDone bool

	ch       chan ringMessage
	recvDone chan struct{}
}

// New builds a Coordinator for one session. conn and shape come from
// sockopt.Open; pkt is the Echo Request working buffer the sender
// mutates in place via Advance.
func New(cfg *session.Config, conn *icmp.PacketConn, shape sockopt.Shape, pkt *echo.Packet, d *diag.Diagnostics) *Coordinator {
	c := &Coordinator{
		cfg:      cfg,
		conn:     conn,
		shape:    shape,
		diag:     d,
		pkt:      pkt,
		dst:      dstAddr(cfg, shape),
		ch:       make(chan ringMessage, chanDepth),
		recvDone: make(chan struct{}),
	}
	c.cond = sync.NewCond(&c.mu)
	return c
}

// dstAddr builds the net.Addr WriteTo expects: net.UDPAddr for a
// datagram socket, net.IPAddr for a raw one.
func dstAddr(cfg *session.Config, shape sockopt.Shape) net.Addr {
	if shape.Datagram {
		return &net.UDPAddr{IP: cfg.Endpoint.IP}
	}
	return &net.IPAddr{IP: cfg.Endpoint.IP}
}

// Run drives the session to completion: it installs a SIGINT/SIGTERM
// handler, starts the receive worker, runs the send loop on the
// calling goroutine, waits for the receiver to join, and returns the
// final report. A mid-session socket error is logged and ends the
// session the same way an interrupt would — spec.md §7 treats it as
// non-fatal to the exit code once the session is underway. A
// ChannelSendError (the receive worker having already died while the
// sender still has requests to publish) is fatal per spec.md §7 and is
// returned rather than swallowed, matching
// original_source/src/ring_impl.rs:343-345's Err(RingError::ChannelSendError)
// propagating out of run().
func (c *Coordinator) Run() (Report, error) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	go func() {
		if _, ok := <-sigCh; ok {
			c.requestStop()
		}
	}()

	stats := &Stats{}

	go c.receiveWorker(stats)

	err := c.sendLoop(stats)

	<-c.recvDone

	return stats.Report(), err
}

// requestStop is the interrupt path: it sets the atomic stop flag
// first (read lock-free by both goroutines), then wakes anyone
// parked in waitInterval. Safe to call more than once.
func (c *Coordinator) requestStop() {
	c.stopFlag.Store(true)
	c.mu.Lock()
	c.stopCond = true
	c.mu.Unlock()
	c.cond.Broadcast()
}

// sendLoop is the sender side of the ring: write the current packet,
// publish its sequence and send instant to the receive worker, count
// the send, advance the packet for next time, then wait out the
// interval (or notice the stop flag, or notice the count target). It
// returns a non-nil error only for a ChannelSendError — the receive
// worker having already exited while a publish was still outstanding —
// which is fatal per spec.md §7.
func (c *Coordinator) sendLoop(stats *Stats) error {
	c.pkt.Advance() // first wire image carries sequence 1, per spec.md §3

	for {
		if c.stopFlag.Load() {
			c.postStop()
			return nil
		}
		if c.cfg.Count > 0 && stats.Sent >= c.cfg.Count {
			c.postStop()
			return nil
		}

		sendInstant := time.Now()
		if _, err := c.conn.WriteTo(c.pkt.Bytes(), c.dst); err != nil {
			c.diag.Fatal(fmt.Errorf("%w: write: %v", pingerr.ErrSocket, err))
			c.postStop()
			return nil
		}

		if !c.publish(ringMessage{seq: c.pkt.Sequence(), sendInstant: sendInstant}) {
			// Receiver already gone: the Go analogue of original_source's
			// mpsc send failing with the receiver's end dropped.
			err := fmt.Errorf("%w: receive worker exited before publish of seq %d", pingerr.ErrChannelSend, c.pkt.Sequence())
			c.diag.Fatal(err)
			return err
		}
		stats.Sent++

		c.pkt.Advance()

		if c.waitInterval() {
			c.postStop()
			return nil
		}
	}
}

// publish sends msg to the receive worker, or reports failure if the
// receiver has already exited — the Go analogue of original_source's
// ChannelSendError path.
func (c *Coordinator) publish(msg ringMessage) bool {
	select {
	case c.ch <- msg:
		return true
	case <-c.recvDone:
		return false
	}
}

// postStop publishes the terminal Stop message. Harmless to call after
// the receiver has already exited.
func (c *Coordinator) postStop() {
	select {
	case c.ch <- ringMessage{stop: true}:
	case <-c.recvDone:
	}
}

// waitInterval blocks for cfg.Interval or until the stop flag fires,
// whichever comes first, and reports whether it woke because of the
// stop flag. This is a timed condition-variable wait built from
// sync.Cond plus a time.AfterFunc callback, since sync.Cond itself has
// no built-in deadline — the Go shape of the
// Arc<(Mutex<bool>, Condvar)>.wait_timeout original_source's sender
// blocks on between sends.
func (c *Coordinator) waitInterval() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.stopCond {
		return true
	}

	timer := time.AfterFunc(c.cfg.Interval, func() {
		c.mu.Lock()
		c.intervalDone = true
		c.mu.Unlock()
		c.cond.Broadcast()
	})
	defer timer.Stop()

	for !c.stopCond && !c.intervalDone {
		c.cond.Wait()
	}
	c.intervalDone = false
	return c.stopCond
}

// receiveWorker drains the outstanding-request channel in order,
// waiting out each reply (or timeout, or interrupt) before moving to
// the next message, and closes recvDone on exit so the sender can
// detect it.
func (c *Coordinator) receiveWorker(stats *Stats) {
	defer close(c.recvDone)

	buf := make([]byte, 1500)
	for msg := range c.ch {
		if msg.stop {
			if c.drainPending(buf) {
				stats.Discarded++
			}
			return
		}
		c.awaitReply(msg, stats, buf)
	}
}

// awaitReply waits for a reply to one outstanding request until it
// arrives, its timeout elapses, or the stop flag fires. A reply that
// classifies as Noise (not ours) does not end the wait; the loop keeps
// polling against the same deadline.
func (c *Coordinator) awaitReply(msg ringMessage, stats *Stats, buf []byte) {
	deadline := msg.sendInstant.Add(c.cfg.ReplyTimeout)

	for {
		if c.stopFlag.Load() {
			return
		}

		remaining := time.Until(deadline)
		if remaining <= 0 {
			c.diag.Timeout(msg.seq, fmt.Errorf("%w: seq %d", pingerr.ErrReplyTimeout, msg.seq))
			return
		}

		step := pollStep
		if remaining < step {
			step = remaining
		}
		c.conn.SetReadDeadline(time.Now().Add(step))

		n, _, err := c.conn.ReadFrom(buf)
		if err != nil {
			// Timeout is the expected case while polling; any other
			// read error just means this slice of the deadline is lost.
			continue
		}

		cls := reply.Classify(buf[:n], c.cfg.Endpoint.Family, c.shape.HasIPHeader, msg.sendInstant, time.Now())
		switch cls.Kind {
		case reply.Echo:
			// Paired with the current outstanding request regardless of
			// its own sequence field — the simpler current-Continue
			// pairing spec.md §9 permits in place of a seq -> send_instant
			// map, since out-of-order replies to a single destination are
			// rare for this kind of utility.
			stats.Acked++
			c.diag.Reply(cls.Bytes, cls.Seq, cls.TTL, float64(cls.RTT.Microseconds())/1000)
			return
		case reply.ICMPError:
			text := reply.ErrorText(c.cfg.Endpoint.Family, cls.ErrType, cls.ErrCode)
			c.diag.ICMPErr(&pingerr.ICMPError{
				Type:         cls.ErrType,
				Code:         cls.ErrCode,
				OffendingSeq: int(cls.ErrSeq),
				Text:         text,
			})
			return
		case reply.Malformed:
			c.diag.Malformed(cls.Seq, fmt.Errorf("%w: seq %d", pingerr.ErrReplyMalformed, cls.Seq))
			return
		case reply.Noise:
			continue
		}
	}
}

// drainPending reports whether one more reply is sitting on the
// socket right now, for the discard count a Stop delivered with a
// request still outstanding: spec.md §4.D counts that request as
// discarded rather than lost.
func (c *Coordinator) drainPending(buf []byte) bool {
	c.conn.SetReadDeadline(time.Now().Add(pollStep))
	n, _, err := c.conn.ReadFrom(buf)
	return err == nil && n > 0
}

