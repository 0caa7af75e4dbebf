// Command jitter-monitor decodes harness telemetry from a serial port or a
// capture file and reports read window and timer statistics.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"flashjitter/host/monitor"
	"flashjitter/host/serial"
	"flashjitter/protocol"
)

var (
	quiet bool

	serialOpts = struct {
		device   string
		baud     int
		duration time.Duration
		capture  string
	}{}

	rootCmd = &cobra.Command{
		Use:          "jitter-monitor",
		Short:        "Decode flash read jitter harness telemetry",
		SilenceUsage: true,
	}

	serialCmd = &cobra.Command{
		Use:   "serial",
		Short: "Read telemetry from the device's serial port",
		Long:  "Read telemetry from the device's serial port until interrupted or --duration elapses, then print a report.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSerial(cmd.OutOrStdout())
		},
	}

	replayCmd = &cobra.Command{
		Use:   "replay <capture>",
		Short: "Decode a telemetry capture file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(cmd.OutOrStdout(), args[0])
		},
	}
)

func init() {
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "do not print forwarded log lines")

	f := serialCmd.Flags()
	f.StringVarP(&serialOpts.device, "device", "d", "/dev/ttyACM0", "serial device path")
	f.IntVarP(&serialOpts.baud, "baud", "b", 115200, "baud rate (ignored for USB CDC)")
	f.DurationVar(&serialOpts.duration, "duration", 0, "stop after this long, 0 runs until interrupted")
	f.StringVar(&serialOpts.capture, "capture", "", "also write raw bytes to this file for replay")

	rootCmd.AddCommand(serialCmd, replayCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newMonitor(out io.Writer) *monitor.Monitor {
	m := monitor.New()
	if !quiet {
		m.OnLog(func(l *protocol.LogMsg) {
			fmt.Fprintf(out, "%s (%d) %s: %s\n", levelLetter(l.Level), l.UptimeMS, l.Tag, l.Text)
		})
	}
	return m
}

func levelLetter(level uint8) string {
	switch level {
	case 1:
		return "E"
	case 2:
		return "W"
	case 3:
		return "I"
	case 4:
		return "D"
	}
	return "?"
}

func runSerial(out io.Writer) error {
	cfg := serial.DefaultConfig(serialOpts.device)
	cfg.Baud = serialOpts.baud

	port, err := serial.Open(cfg)
	if err != nil {
		return err
	}
	defer port.Close()
	if err := port.Flush(); err != nil {
		return fmt.Errorf("flush %s: %w", cfg.Device, err)
	}

	var src io.Reader = port
	if serialOpts.capture != "" {
		f, err := os.Create(serialOpts.capture)
		if err != nil {
			return fmt.Errorf("create capture: %w", err)
		}
		defer f.Close()
		src = io.TeeReader(port, f)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	if serialOpts.duration > 0 {
		ctx, cancel = context.WithTimeout(ctx, serialOpts.duration)
		defer cancel()
	}

	m := newMonitor(out)
	err = m.Consume(ctx, src, true)
	m.Report(out)
	return err
}

func runReplay(out io.Writer, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open capture: %w", err)
	}
	defer f.Close()

	m := newMonitor(out)
	if err := m.Consume(context.Background(), f, false); err != nil {
		return err
	}
	m.Report(out)
	return nil
}
