// Command ringping sends ICMP/ICMPv6 Echo Requests to a destination at
// a fixed interval and reports round-trip statistics, modeled on
// original_source/src/main.rs's ring tool.
//
// Grounded on sun977-NeoScan/neoAgent/cmd/agent/root.go for the
// spf13/cobra command shape (RunE returning an error the caller turns
// into an exit code, flags bound with cmd.Flags().*VarP) in place of
// the teacher's hand-rolled flag-package arg scanner in
// ravvdevv-Pulse/cmd/pulse/main.go.
package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/ringping/ringping/internal/coordinator"
	"github.com/ringping/ringping/internal/diag"
	"github.com/ringping/ringping/internal/echo"
	"github.com/ringping/ringping/internal/pingerr"
	"github.com/ringping/ringping/internal/resolver"
	"github.com/ringping/ringping/internal/session"
	"github.com/ringping/ringping/internal/sockopt"
)

// version is the string -v/--version prints. No build-time injection
// machinery here; a one-off CLI doesn't need it.
const version = "ringping 0.1.0"

func main() {
	os.Exit(run(os.Args[1:]))
}

// run builds and executes the root command, translating the resulting
// error (if any) into an exit code per spec.md §7.
func run(args []string) int {
	var (
		ipv4      bool
		ipv6      bool
		quiet     bool
		broadcast bool
		showVer   bool
		count     int
		ttl       int
		interval  float64
		timeout   float64
	)

	root := &cobra.Command{
		Use:           "ringping <destination>",
		Short:         "Send ICMP/ICMPv6 Echo Requests and report round-trip statistics",
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, posArgs []string) error {
			if showVer {
				fmt.Fprintln(cmd.OutOrStdout(), version)
				return nil
			}
			if len(posArgs) != 1 {
				return fmt.Errorf("%w: Missing destination address", pingerr.ErrArgParse)
			}
			if ipv4 && ipv6 {
				return fmt.Errorf("%w: -4 and -6 are mutually exclusive", pingerr.ErrArgParse)
			}

			cfg := session.New(posArgs[0])
			switch {
			case ipv4:
				cfg.Family = session.V4
			case ipv6:
				cfg.Family = session.V6
			default:
				cfg.Family = session.Any
			}
			cfg.Count = count
			cfg.Quiet = quiet
			cfg.Broadcast = broadcast
			if ttl > 0 {
				cfg.TTL = ttl
			}
			if interval > 0 {
				cfg.Interval = time.Duration(interval * float64(time.Second))
			}
			if timeout > 0 {
				cfg.ReplyTimeout = time.Duration(timeout * float64(time.Second))
			}

			return ringSession(cfg)
		},
	}

	root.SetArgs(args)
	root.Flags().BoolVarP(&ipv4, "ipv4", "4", false, "Force V4 resolution and socket")
	root.Flags().BoolVarP(&ipv6, "ipv6", "6", false, "Force V6 resolution and socket")
	root.Flags().BoolVarP(&quiet, "quiet", "q", false, "Suppress per-reply lines; print only final stats")
	root.Flags().BoolVarP(&broadcast, "broadcast", "b", false, "Enable broadcast on the socket")
	root.Flags().BoolVarP(&showVer, "version", "v", false, "Print version and exit 0")
	root.Flags().IntVarP(&count, "count", "c", 0, "Stop after N sent packets (0 = unbounded)")
	root.Flags().IntVarP(&ttl, "ttl", "t", 0, "Set IP TTL (default 64 for V4, 128 otherwise)")
	root.Flags().Float64VarP(&interval, "interval", "i", 0, "Wait S seconds between sends (default 1)")
	root.Flags().Float64VarP(&timeout, "timeout", "d", 0, "Wait at most S seconds per reply (default 1)")

	if err := root.Execute(); err != nil {
		return exitCode(err)
	}
	return 0
}

// ringSession runs setup (validate, resolve, open socket) and then the
// coordinator's send/receive loop, printing the banner and final
// summary along the way.
func ringSession(cfg *session.Config) error {
	d := diag.New(cfg.Quiet)

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("%w: %v", pingerr.ErrArgParse, err)
	}

	ep, err := resolver.Resolve(cfg.Destination, cfg.Family, d)
	if err != nil {
		return err
	}
	cfg.Endpoint = ep
	d.Setup("resolved %s to %s (%s)", cfg.Destination, ep.IP, ep.Family)

	conn, shape, err := sockopt.Open(cfg)
	if err != nil {
		return err
	}
	defer conn.Close()
	d.Setup("opened %s socket (raw=%v)", cfg.Family, !shape.Datagram)

	identifier := uint16(os.Getpid() & 0xffff)
	pkt, err := echo.New(cfg.Endpoint.Family, identifier, echo.DefaultPayload)
	if err != nil {
		return fmt.Errorf("%w: %v", pingerr.ErrArgParse, err)
	}

	d.Banner(cfg.Destination, ep.String(), len(echo.DefaultPayload))

	start := time.Now()
	co := coordinator.New(cfg, conn, shape, pkt, d)
	report, err := co.Run()
	elapsed := time.Since(start).Seconds()
	if err != nil {
		return err
	}

	d.Summary(report.Sent, report.Acked, report.LossPct, elapsed)
	return nil
}

// exitCode maps a setup-phase error to the non-zero exit status
// spec.md §7 requires. Interrupt and normal completion both return 0
// from run() directly and never reach here.
func exitCode(err error) int {
	fmt.Fprintln(os.Stderr, "ringping:", err)
	switch {
	case errors.Is(err, pingerr.ErrArgParse):
		return 1
	case errors.Is(err, pingerr.ErrResolution):
		return 2
	case errors.Is(err, pingerr.ErrSocket):
		return 3
	case errors.Is(err, pingerr.ErrChannelSend):
		return 4
	default:
		return 1
	}
}
