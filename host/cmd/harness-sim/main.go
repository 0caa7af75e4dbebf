// Command harness-sim runs the flash read jitter harness on a host, with
// simulated timer, pins and flash.
package main

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"flashjitter/core"
	"flashjitter/host/sim"
)

var opts = struct {
	config       string
	cycles       int
	realtime     bool
	telemetryOut string
	gpiochip     string
	latency      uint64
	assetSize    int
	readDelay    time.Duration
	verbose      bool
	asyncLog     bool
}{}

var rootCmd = &cobra.Command{
	Use:   "harness-sim",
	Short: "Run the flash read jitter harness on the host",
	Long: "Run the harness against simulated drivers. By default time is simulated and a\n" +
		"cycle completes instantly; --realtime paces the timer and cadence by the wall clock.",
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(cmd.OutOrStdout())
	},
}

func init() {
	f := rootCmd.Flags()
	f.StringVarP(&opts.config, "config", "c", "", "YAML harness configuration")
	f.IntVarP(&opts.cycles, "cycles", "n", 5, "read cycles to run, 0 runs until interrupted")
	f.BoolVar(&opts.realtime, "realtime", false, "pace the harness by the wall clock")
	f.StringVarP(&opts.telemetryOut, "telemetry-out", "o", "", "write telemetry blocks to this file")
	f.StringVar(&opts.gpiochip, "gpiochip", "", "mirror the signal pins onto this Linux GPIO chip")
	f.Uint64Var(&opts.latency, "latency", 0, "ticks between each alarm and its callback")
	f.IntVar(&opts.assetSize, "asset-size", 5000, "size of the file placed at the read path")
	f.DurationVar(&opts.readDelay, "read-delay", 200*time.Microsecond, "flash access time per read")
	f.BoolVarP(&opts.verbose, "verbose", "v", false, "debug logging and a timing dump at exit")
	f.BoolVar(&opts.asyncLog, "async-log", false, "queue console lines to a worker, dropping them when it falls behind")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(out io.Writer) error {
	cfg := core.DefaultConfig()
	if opts.config != "" {
		var err error
		if cfg, err = sim.LoadConfig(opts.config); err != nil {
			return err
		}
	}

	core.SetDebugWriter(func(s string) { fmt.Fprintln(os.Stderr, s) })
	core.SetDebugEnabled(opts.verbose)
	if opts.asyncLog {
		core.InitAsyncDebug()
		defer core.StopAsyncDebug()
	}

	bench := sim.NewBench()
	bench.FS.Put(cfg.Reader.Path, assetData(opts.assetSize))
	bench.FS.ReadDelay = opts.readDelay
	if opts.latency > 0 {
		lat := opts.latency
		bench.Timers.SetLatency(func() uint64 { return lat })
	}

	if opts.gpiochip != "" {
		m, err := sim.OpenChipMirror(opts.gpiochip, cfg.Pins.Toggle, cfg.Pins.Reading)
		if err != nil {
			return err
		}
		defer m.Close()
		bench.GPIO.SetMirror(m)
	}
	// Long runs would otherwise keep every toggle edge.
	bench.GPIO.SetEdgeLimit(0)

	h := core.NewHarness(cfg, bench.Platform())

	if opts.telemetryOut != "" {
		f, err := os.Create(opts.telemetryOut)
		if err != nil {
			return fmt.Errorf("create telemetry file: %w", err)
		}
		defer f.Close()
		tel := core.NewTelemetry(func(b []byte) { f.Write(b) })
		h.SetTelemetry(tel)
		core.SetLogHook(tel.ReportLog)
	}

	stop := make(chan struct{})
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sig)
	go func() {
		<-sig
		close(stop)
	}()

	if opts.realtime {
		// Wall clock uptime, and a goroutine standing in for the timer interrupt.
		bench.FS.SetSleeper(time.Sleep)
		go bench.Timers.Run(stop, time.Millisecond)
	} else {
		core.SetClockSource(bench.Clock.Now)
		h.SetSleeper(bench.Sleep)
	}

	if err := h.Init(); err != nil {
		return fmt.Errorf("harness init: %w", err)
	}

loop:
	for n := 0; opts.cycles == 0 || n < opts.cycles; n++ {
		select {
		case <-stop:
			break loop
		default:
		}
		res, _ := h.Step()
		if res.Err != nil {
			fmt.Fprintf(out, "cycle %d: %v\n", res.Cycle, res.Err)
		} else if cfg.Reader.Enabled {
			fmt.Fprintf(out, "cycle %d: %d reads, %d bytes, reading pin high %d us\n",
				res.Cycle, res.Reads, res.Bytes, res.Elapsed)
		}
	}

	pt := h.Timer()
	if err := pt.Stop(); err != nil {
		return fmt.Errorf("stop timer: %w", err)
	}
	count, err := pt.Handle().RawCount()
	if err != nil {
		return fmt.Errorf("read counter: %w", err)
	}

	s := pt.Stats()
	fmt.Fprintf(out, "timer: %d firings, nominal %d Hz, max latency %d ticks, stopped at count %d\n",
		s.Firings, pt.ToggleFrequency(), s.MaxLatencyTicks, count)
	if !h.FilesystemAvailable() {
		fmt.Fprintln(out, "filesystem: unavailable")
	}
	if opts.asyncLog {
		core.StopAsyncDebug()
		if n := core.DroppedDebugLines(); n > 0 {
			fmt.Fprintf(out, "console: %d lines dropped\n", n)
		}
	}
	if opts.verbose {
		core.DumpTimingRing()
	}
	return nil
}

// assetData is a deterministic stand-in for the image file.
func assetData(n int) []byte {
	data := make([]byte, n)
	for i := range data {
		data[i] = byte(i * 7)
	}
	return data
}
