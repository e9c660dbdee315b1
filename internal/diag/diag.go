// Package diag is the diagnostics sink for a ring session: a
// structured log for setup-phase events (logrus) and colored,
// VT100-escaped operator-facing lines for per-reply and summary output
// (fatih/color).
//
// Grounded on sun977-NeoScan/neoAgent/internal/pkg/logger/logger.go for
// the logrus.TextFormatter{ForceColors:true} setup style, and on the
// literal escape sequences in original_source/src/ring_impl.rs
// ("\x1b[1;32m" for success, "\x1b[1;31m" for loss/error,
// "\x1b[1;33m" for the loopback warning) translated into fatih/color
// styles instead of hand-written escape codes.
package diag

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/sirupsen/logrus"

	"github.com/ringping/ringping/internal/pingerr"
)

// Diagnostics writes the two parallel sinks a ring session needs: a
// structured log for setup/fatal events, and colored lines for the
// per-reply / summary / error output a human watches scroll by.
type Diagnostics struct {
	log   *logrus.Logger
	out   io.Writer
	errw  io.Writer
	quiet bool

	ok    *color.Color
	warn  *color.Color
	bad   *color.Color
	plain *color.Color
}

// New builds a Diagnostics writing structured log entries to stderr
// and colored lines to stdout/stderr. quiet suppresses per-reply lines
// only — the final summary always prints, per spec.md §6.
func New(quiet bool) *Diagnostics {
	log := logrus.New()
	log.SetOutput(os.Stderr)
	log.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
		ForceColors:   true,
	})
	log.SetLevel(logrus.InfoLevel)

	return &Diagnostics{
		log:   log,
		out:   os.Stdout,
		errw:  os.Stderr,
		quiet: quiet,
		ok:    color.New(color.FgHiGreen, color.Bold),
		warn:  color.New(color.FgHiYellow, color.Bold),
		bad:   color.New(color.FgHiRed, color.Bold),
		plain: color.New(color.FgWhite),
	}
}

// Setup logs a structured, non-fatal setup event, such as resolution
// succeeding or the socket being opened.
func (d *Diagnostics) Setup(format string, args ...interface{}) {
	d.log.Infof(format, args...)
}

// Warn prints the non-fatal loopback warning spec.md §4.A requires,
// both to the structured log and as a colored line, matching
// original_source's "\x1b[1;33m[WARNING]" styling.
func (d *Diagnostics) Warn(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	d.log.Warn(msg)
	d.warn.Fprintf(d.errw, "[WARNING] %s\n", msg)
}

// Fatal logs a fatal setup-phase error. Callers still return the error
// up the stack for the CLI surface to turn into an exit code; Fatal
// only records it.
func (d *Diagnostics) Fatal(err error) {
	d.log.WithError(err).Error("ringping: fatal")
	d.bad.Fprintf(d.errw, "ringping: %v\n", err)
}

// Banner prints the one-line session-start banner spec.md §6 and §9
// call for, e.g. "Ringing example.com (93.184.216.34) with 21 bytes of
// data".
func (d *Diagnostics) Banner(host, addr string, bytes int) {
	d.plain.Fprintf(d.out, "Ringing ")
	d.ok.Fprintf(d.out, "%s", host)
	d.plain.Fprintf(d.out, " (%s) with ", addr)
	fmt.Fprintf(d.out, "%d bytes of data\n", bytes)
}

// Reply prints one successful echo line. Suppressed when quiet.
func (d *Diagnostics) Reply(bytes int, seq uint16, ttl uint8, rttMS float64) {
	if d.quiet {
		return
	}
	d.ok.Fprintf(d.out, "%d bytes", bytes)
	d.plain.Fprintf(d.out, " returned. ICMP Sequence: ")
	fmt.Fprintf(d.out, "%d, ", seq)
	d.plain.Fprintf(d.out, "TTL: ")
	fmt.Fprintf(d.out, "%d, ", ttl)
	d.plain.Fprintf(d.out, "Time: ")
	fmt.Fprintf(d.out, "%.3f ms\n", rttMS)
}

// Timeout logs and prints the "Packet Timed Out" line spec.md §8's
// scenario 3 requires. err is the per-packet pingerr.ErrReplyTimeout
// value, recorded in the structured log; the colored line is
// suppressed when quiet, the log entry never is.
func (d *Diagnostics) Timeout(seq uint16, err error) {
	d.log.WithError(err).WithField("seq", seq).Warn("reply timeout")
	if d.quiet {
		return
	}
	d.bad.Fprintf(d.out, "Packet Timed Out. ICMP Sequence: %d\n", seq)
}

// ICMPErr logs and prints an inline ICMP error line, e.g. "Time to
// Live Exceeded" for (11, 0). err is the *pingerr.ICMPError value
// describing the (type, code) pair; the colored line is suppressed
// when quiet, the log entry never is.
func (d *Diagnostics) ICMPErr(err *pingerr.ICMPError) {
	d.log.WithError(err).WithField("seq", err.OffendingSeq).Warn("icmp error reply")
	if d.quiet {
		return
	}
	d.bad.Fprintf(d.out, "%s. ICMP Sequence: %d\n", err.Text, err.OffendingSeq)
}

// Malformed logs and prints the inline line for a reply whose
// checksum did not verify. err is the per-packet
// pingerr.ErrReplyMalformed value; the colored line is suppressed
// when quiet, the log entry never is.
func (d *Diagnostics) Malformed(seq uint16, err error) {
	d.log.WithError(err).WithField("seq", seq).Warn("malformed reply")
	if d.quiet {
		return
	}
	d.bad.Fprintf(d.out, "Malformed Reply. ICMP Sequence: %d\n", seq)
}

// Summary prints the final stats line. Never suppressed, per spec.md
// §6's "final summary" and §8's scenario list.
func (d *Diagnostics) Summary(sent, acked, lossPct int, elapsedSec float64) {
	d.plain.Fprintf(d.out, "\n--- ring statistics ---\n")
	fmt.Fprintf(d.out, "%d packets transmitted, ", sent)
	d.ok.Fprintf(d.out, "%d received", acked)
	fmt.Fprintf(d.out, ", ")
	d.bad.Fprintf(d.out, "%d%% packet loss", lossPct)
	fmt.Fprintf(d.out, ", time %.0fs\n", elapsedSec)
}
